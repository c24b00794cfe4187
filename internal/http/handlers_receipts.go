package http

import (
	"net/http"

	"receipts/internal/core"
	applog "receipts/internal/log"
	"receipts/internal/services"
)

// Dates are epoch milliseconds, amounts decimal strings. Omitted fields
// reach the use cases as nil so they can report missing values.
type transactionRequest struct {
	Date      *int64  `json:"date"`
	TotalCost *string `json:"total_cost"`
	Note      *string `json:"note"`
	ShopID    *int64  `json:"shop_id"`
}

func (req transactionRequest) input() services.TransactionInput {
	return services.TransactionInput{
		Date:      req.Date,
		TotalCost: req.TotalCost,
		Note:      req.Note,
		ShopID:    req.ShopID,
	}
}

type itemRequest struct {
	ProductID     *int64  `json:"product_id"`
	VariantID     *int64  `json:"variant_id"`
	Price         *string `json:"price"`
	Quantity      *string `json:"quantity"`
	Date          *int64  `json:"date"`
	TransactionID *int64  `json:"transaction_id"`
	ShopID        *int64  `json:"shop_id"`
}

func (req itemRequest) input() services.ItemInput {
	return services.ItemInput{
		ProductID:     req.ProductID,
		VariantID:     req.VariantID,
		Price:         req.Price,
		Quantity:      req.Quantity,
		Date:          req.Date,
		TransactionID: req.TransactionID,
		ShopID:        req.ShopID,
	}
}

// Transactions

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	transactions, err := s.uc.Transactions.List(r.Context())
	if err != nil {
		writeInternal(w, r, "list transactions failed", err)
		return
	}
	loc := s.spending.Location()
	writeJSON(w, http.StatusOK, viewList(transactions, func(t core.Transaction) transactionView {
		return transactionOf(t, loc)
	}))
}

func (s *Server) handleTransactionDetails(w http.ResponseWriter, r *http.Request) {
	id, ok := idOnly(w, r)
	if !ok {
		return
	}
	details, err := s.uc.Transactions.Details(r.Context(), id)
	if err != nil {
		writeInternal(w, r, "transaction details failed", err)
		return
	}
	writeJSON(w, http.StatusOK, transactionDetailsOf(*details, s.spending.Location()))
}

func (s *Server) handleInsertTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if !body(w, r, &req) {
		return
	}
	res, err := s.uc.Transactions.Insert(r.Context(), req.input())
	writeResult(w, r, "transaction", applog.OpInsert, http.StatusCreated, res, err)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	id, ok := idAndBody(w, r, &req)
	if !ok {
		return
	}
	res, err := s.uc.Transactions.Update(r.Context(), id, req.input())
	writeResult(w, r, "transaction", applog.OpUpdate, http.StatusOK, res, err)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := idOnly(w, r)
	if !ok {
		return
	}
	res, err := s.uc.Transactions.Delete(r.Context(), id, confirmed(r))
	writeResult(w, r, "transaction", applog.OpDelete, http.StatusOK, res, err)
}

// Items

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.uc.Items.List(r.Context())
	if err != nil {
		writeInternal(w, r, "list items failed", err)
		return
	}
	loc := s.spending.Location()
	writeJSON(w, http.StatusOK, viewList(items, func(i core.Item) itemView {
		return itemOf(i, loc)
	}))
}

func (s *Server) handleInsertItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if !body(w, r, &req) {
		return
	}
	res, err := s.uc.Items.Insert(r.Context(), req.input())
	writeResult(w, r, "item", applog.OpInsert, http.StatusCreated, res, err)
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	id, ok := idAndBody(w, r, &req)
	if !ok {
		return
	}
	res, err := s.uc.Items.Update(r.Context(), id, req.input())
	writeResult(w, r, "item", applog.OpUpdate, http.StatusOK, res, err)
}

// handleDeleteItem never asks for confirmation, items have no dependents.
func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := idOnly(w, r)
	if !ok {
		return
	}
	res, err := s.uc.Items.Delete(r.Context(), id)
	writeResult(w, r, "item", applog.OpDelete, http.StatusOK, res, err)
}
