package http

import (
	"net/http"
	"strings"

	applog "receipts/internal/log"
)

type nameRequest struct {
	Name string `json:"name"`
}

type categoryRequest struct {
	Name           string   `json:"name"`
	AlternateNames []string `json:"alternate_names"`
}

type productRequest struct {
	Name       string `json:"name"`
	CategoryID *int64 `json:"category_id"`
	ProducerID *int64 `json:"producer_id"`
}

type variantRequest struct {
	Name      string `json:"name"`
	ProductID *int64 `json:"product_id"`
}

type mergeRequest struct {
	TargetID int64 `json:"target_id"`
}

// idAndBody parses the {id} path value and the JSON body. It writes the
// 400 response itself and reports whether the handler should go on.
func idAndBody(w http.ResponseWriter, r *http.Request, dst any) (int64, bool) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return 0, false
	}
	if err := decodeJSON(w, r, dst); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return 0, false
	}
	return id, true
}

func body(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeJSON(w, r, dst); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func idOnly(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return 0, false
	}
	return id, true
}

// Shops

func (s *Server) handleListShops(w http.ResponseWriter, r *http.Request) {
	shops, err := s.uc.Shops.List(r.Context())
	if err != nil {
		writeInternal(w, r, "list shops failed", err)
		return
	}
	writeJSON(w, http.StatusOK, viewList(shops, shopOf))
}

func (s *Server) handleGetShop(w http.ResponseWriter, r *http.Request) {
	id, ok := idOnly(w, r)
	if !ok {
		return
	}
	shop, err := s.uc.Shops.Get(r.Context(), id)
	if err != nil {
		writeInternal(w, r, "get shop failed", err)
		return
	}
	writeJSON(w, http.StatusOK, shopOf(*shop))
}

func (s *Server) handleInsertShop(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if !body(w, r, &req) {
		return
	}
	res, err := s.uc.Shops.Insert(r.Context(), req.Name)
	writeResult(w, r, "shop", applog.OpInsert, http.StatusCreated, res, err)
}

func (s *Server) handleUpdateShop(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	id, ok := idAndBody(w, r, &req)
	if !ok {
		return
	}
	res, err := s.uc.Shops.Update(r.Context(), id, req.Name)
	writeResult(w, r, "shop", applog.OpUpdate, http.StatusOK, res, err)
}

func (s *Server) handleDeleteShop(w http.ResponseWriter, r *http.Request) {
	id, ok := idOnly(w, r)
	if !ok {
		return
	}
	res, err := s.uc.Shops.Delete(r.Context(), id, confirmed(r))
	writeResult(w, r, "shop", applog.OpDelete, http.StatusOK, res, err)
}

func (s *Server) handleMergeShop(w http.ResponseWriter, r *http.Request) {
	var req mergeRequest
	id, ok := idAndBody(w, r, &req)
	if !ok {
		return
	}
	res, err := s.uc.Shops.Merge(r.Context(), id, req.TargetID)
	writeResult(w, r, "shop", applog.OpMerge, http.StatusOK, res, err)
}

// Categories

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.uc.Categories.List(r.Context())
	if err != nil {
		writeInternal(w, r, "list categories failed", err)
		return
	}
	writeJSON(w, http.StatusOK, viewList(categories, categoryOf))
}

// handleFindCategory looks a category up by its name or an alternate name.
func (s *Server) handleFindCategory(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		writeError(w, http.StatusBadRequest, "missing name")
		return
	}
	category, found, err := s.uc.Categories.Find(r.Context(), name)
	if err != nil {
		writeInternal(w, r, "find category failed", err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "no category matches "+name)
		return
	}
	writeJSON(w, http.StatusOK, categoryOf(*category))
}

func (s *Server) handleInsertCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !body(w, r, &req) {
		return
	}
	res, err := s.uc.Categories.Insert(r.Context(), req.Name, req.AlternateNames)
	writeResult(w, r, "category", applog.OpInsert, http.StatusCreated, res, err)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	id, ok := idAndBody(w, r, &req)
	if !ok {
		return
	}
	res, err := s.uc.Categories.Update(r.Context(), id, req.Name, req.AlternateNames)
	writeResult(w, r, "category", applog.OpUpdate, http.StatusOK, res, err)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := idOnly(w, r)
	if !ok {
		return
	}
	res, err := s.uc.Categories.Delete(r.Context(), id, confirmed(r))
	writeResult(w, r, "category", applog.OpDelete, http.StatusOK, res, err)
}

func (s *Server) handleMergeCategory(w http.ResponseWriter, r *http.Request) {
	var req mergeRequest
	id, ok := idAndBody(w, r, &req)
	if !ok {
		return
	}
	res, err := s.uc.Categories.Merge(r.Context(), id, req.TargetID)
	writeResult(w, r, "category", applog.OpMerge, http.StatusOK, res, err)
}

// Producers

func (s *Server) handleListProducers(w http.ResponseWriter, r *http.Request) {
	producers, err := s.uc.Producers.List(r.Context())
	if err != nil {
		writeInternal(w, r, "list producers failed", err)
		return
	}
	writeJSON(w, http.StatusOK, viewList(producers, producerOf))
}

func (s *Server) handleInsertProducer(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if !body(w, r, &req) {
		return
	}
	res, err := s.uc.Producers.Insert(r.Context(), req.Name)
	writeResult(w, r, "producer", applog.OpInsert, http.StatusCreated, res, err)
}

func (s *Server) handleUpdateProducer(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	id, ok := idAndBody(w, r, &req)
	if !ok {
		return
	}
	res, err := s.uc.Producers.Update(r.Context(), id, req.Name)
	writeResult(w, r, "producer", applog.OpUpdate, http.StatusOK, res, err)
}

func (s *Server) handleDeleteProducer(w http.ResponseWriter, r *http.Request) {
	id, ok := idOnly(w, r)
	if !ok {
		return
	}
	res, err := s.uc.Producers.Delete(r.Context(), id, confirmed(r))
	writeResult(w, r, "producer", applog.OpDelete, http.StatusOK, res, err)
}

func (s *Server) handleMergeProducer(w http.ResponseWriter, r *http.Request) {
	var req mergeRequest
	id, ok := idAndBody(w, r, &req)
	if !ok {
		return
	}
	res, err := s.uc.Producers.Merge(r.Context(), id, req.TargetID)
	writeResult(w, r, "producer", applog.OpMerge, http.StatusOK, res, err)
}

// Products

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.uc.Products.List(r.Context())
	if err != nil {
		writeInternal(w, r, "list products failed", err)
		return
	}
	writeJSON(w, http.StatusOK, viewList(products, productOf))
}

func (s *Server) handleInsertProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if !body(w, r, &req) {
		return
	}
	res, err := s.uc.Products.Insert(r.Context(), req.Name, req.CategoryID, req.ProducerID)
	writeResult(w, r, "product", applog.OpInsert, http.StatusCreated, res, err)
}

func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	id, ok := idAndBody(w, r, &req)
	if !ok {
		return
	}
	res, err := s.uc.Products.Update(r.Context(), id, req.Name, req.CategoryID, req.ProducerID)
	writeResult(w, r, "product", applog.OpUpdate, http.StatusOK, res, err)
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := idOnly(w, r)
	if !ok {
		return
	}
	res, err := s.uc.Products.Delete(r.Context(), id, confirmed(r))
	writeResult(w, r, "product", applog.OpDelete, http.StatusOK, res, err)
}

func (s *Server) handleMergeProduct(w http.ResponseWriter, r *http.Request) {
	var req mergeRequest
	id, ok := idAndBody(w, r, &req)
	if !ok {
		return
	}
	res, err := s.uc.Products.Merge(r.Context(), id, req.TargetID)
	writeResult(w, r, "product", applog.OpMerge, http.StatusOK, res, err)
}

// Variants

func (s *Server) handleListVariants(w http.ResponseWriter, r *http.Request) {
	productID, ok := idOnly(w, r)
	if !ok {
		return
	}
	variants, err := s.uc.Variants.List(r.Context(), productID)
	if err != nil {
		writeInternal(w, r, "list variants failed", err)
		return
	}
	writeJSON(w, http.StatusOK, viewList(variants, variantOf))
}

func (s *Server) handleInsertVariant(w http.ResponseWriter, r *http.Request) {
	var req variantRequest
	if !body(w, r, &req) {
		return
	}
	res, err := s.uc.Variants.Insert(r.Context(), req.Name, req.ProductID)
	writeResult(w, r, "variant", applog.OpInsert, http.StatusCreated, res, err)
}

func (s *Server) handleUpdateVariant(w http.ResponseWriter, r *http.Request) {
	var req variantRequest
	id, ok := idAndBody(w, r, &req)
	if !ok {
		return
	}
	res, err := s.uc.Variants.Update(r.Context(), id, req.Name, req.ProductID)
	writeResult(w, r, "variant", applog.OpUpdate, http.StatusOK, res, err)
}

func (s *Server) handleDeleteVariant(w http.ResponseWriter, r *http.Request) {
	id, ok := idOnly(w, r)
	if !ok {
		return
	}
	res, err := s.uc.Variants.Delete(r.Context(), id, confirmed(r))
	writeResult(w, r, "variant", applog.OpDelete, http.StatusOK, res, err)
}
