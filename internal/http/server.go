package http

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	applog "receipts/internal/log"
	"receipts/internal/middleware/ratelimit"
	"receipts/internal/middleware/security"
	"receipts/internal/middleware/trace"
	"receipts/internal/services"
	"receipts/internal/spending"
	"receipts/internal/storage"
)

// Deps is everything the API serves from.
type Deps struct {
	Repo     *storage.SQLiteRepository
	UseCases *services.UseCases
	Spending *spending.Service
	Logger   *applog.Logger

	// RateLimit applies to mutating requests only. Zero means defaults.
	RateLimit ratelimit.Config
	// TrustedProxies are CIDRs whose forwarding headers are believed.
	TrustedProxies []string
	// ShortChartURLs asks QuickChart for short links instead of inline ones.
	ShortChartURLs bool
}

type Server struct {
	http.Server

	repo     *storage.SQLiteRepository
	uc       *services.UseCases
	spending *spending.Service
	logger   *applog.Logger

	rateLimiter *ratelimit.Limiter
	detector    *security.Detector
	tracer      *trace.Middleware
	sessions    *liveSessions
	shortCharts bool

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
// There is no write timeout: live spending streams stay open.
func NewServer(addr string, deps Deps) (*Server, error) {
	if deps.Repo == nil || deps.UseCases == nil || deps.Spending == nil {
		return nil, errors.New("http server needs a repository, use cases and a spending service")
	}
	if deps.Logger == nil {
		deps.Logger = applog.New(applog.DefaultConfig())
	}

	s := &Server{
		repo:        deps.Repo,
		uc:          deps.UseCases,
		spending:    deps.Spending,
		logger:      deps.Logger.WithComponent(applog.ComponentHTTP),
		rateLimiter: ratelimit.New(deps.RateLimit),
		detector:    security.NewDetector(),
		tracer:      trace.NewMiddleware(),
		sessions:    newLiveSessions(),
		shortCharts: deps.ShortChartURLs,
	}
	for _, cidr := range deps.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			s.rateLimiter.Stop()
			return nil, err
		}
	}

	mux := http.NewServeMux()
	s.routes(mux)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.middleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/shops", s.handleListShops)
	mux.HandleFunc("POST /api/shops", s.handleInsertShop)
	mux.HandleFunc("GET /api/shops/{id}", s.handleGetShop)
	mux.HandleFunc("PUT /api/shops/{id}", s.handleUpdateShop)
	mux.HandleFunc("DELETE /api/shops/{id}", s.handleDeleteShop)
	mux.HandleFunc("POST /api/shops/{id}/merge", s.handleMergeShop)

	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("GET /api/categories/find", s.handleFindCategory)
	mux.HandleFunc("POST /api/categories", s.handleInsertCategory)
	mux.HandleFunc("PUT /api/categories/{id}", s.handleUpdateCategory)
	mux.HandleFunc("DELETE /api/categories/{id}", s.handleDeleteCategory)
	mux.HandleFunc("POST /api/categories/{id}/merge", s.handleMergeCategory)

	mux.HandleFunc("GET /api/producers", s.handleListProducers)
	mux.HandleFunc("POST /api/producers", s.handleInsertProducer)
	mux.HandleFunc("PUT /api/producers/{id}", s.handleUpdateProducer)
	mux.HandleFunc("DELETE /api/producers/{id}", s.handleDeleteProducer)
	mux.HandleFunc("POST /api/producers/{id}/merge", s.handleMergeProducer)

	mux.HandleFunc("GET /api/products", s.handleListProducts)
	mux.HandleFunc("POST /api/products", s.handleInsertProduct)
	mux.HandleFunc("PUT /api/products/{id}", s.handleUpdateProduct)
	mux.HandleFunc("DELETE /api/products/{id}", s.handleDeleteProduct)
	mux.HandleFunc("POST /api/products/{id}/merge", s.handleMergeProduct)
	mux.HandleFunc("GET /api/products/{id}/variants", s.handleListVariants)
	mux.HandleFunc("GET /api/products/{id}/prices", s.handlePriceHistory)

	mux.HandleFunc("POST /api/variants", s.handleInsertVariant)
	mux.HandleFunc("PUT /api/variants/{id}", s.handleUpdateVariant)
	mux.HandleFunc("DELETE /api/variants/{id}", s.handleDeleteVariant)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleInsertTransaction)
	mux.HandleFunc("GET /api/transactions/{id}", s.handleTransactionDetails)
	mux.HandleFunc("PUT /api/transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("GET /api/items", s.handleListItems)
	mux.HandleFunc("POST /api/items", s.handleInsertItem)
	mux.HandleFunc("PUT /api/items/{id}", s.handleUpdateItem)
	mux.HandleFunc("DELETE /api/items/{id}", s.handleDeleteItem)

	mux.HandleFunc("GET /api/spending", s.handleSpendingReport)
	mux.HandleFunc("GET /api/spending/total", s.handleSpendingTotal)
	mux.HandleFunc("GET /api/spending/totals", s.handleSpendingTotals)
	mux.HandleFunc("GET /api/spending/chart", s.handleSpendingChart)
	mux.HandleFunc("GET /api/spending/totals/chart", s.handleTotalsChart)
	mux.HandleFunc("GET /api/export.csv", s.handleExportCSV)

	mux.HandleFunc("GET /api/spending/live/{session}", s.handleLiveStream)
	mux.HandleFunc("GET /api/spending/live/{session}/state", s.handleLiveState)
	mux.HandleFunc("PUT /api/spending/live/{session}/period", s.handleLivePeriod)
	mux.HandleFunc("PUT /api/spending/live/{session}/dimension", s.handleLiveDimension)
}

// middleware wraps h, outermost first: request id, logger, access log,
// scanner detection, security headers, then rate limiting of writes.
func (s *Server) middleware(h http.Handler) http.Handler {
	h = s.rateLimiter.Middleware(s.detector.ExtractClientIP, ratelimit.Mutating, func(w http.ResponseWriter, r *http.Request) {
		s.logger.WarnContext(r.Context(), "Rate limit exceeded",
			applog.FieldClientIP, s.detector.ExtractClientIP(r),
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path)
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
	})(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.detector.Middleware(s.logger.WithComponent(applog.ComponentSecurity).Logger)(h)
	h = applog.AccessLog(s.detector.ExtractClientIP)(h)
	h = applog.RequestIDMiddleware(func(r *http.Request) string {
		return trace.GetRequestID(r.Context())
	})(h)
	h = applog.Middleware(s.logger)(h)
	return s.tracer.Handler(h)
}

// Shutdown stops live streams, the rate limiter and the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.sessions.closeAll()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.repo.Ping(ctx); err != nil {
		s.logger.WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err.Error())
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
