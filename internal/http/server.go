package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	applog "pinledger/internal/log"
	"pinledger/internal/middleware/ratelimit"
	"pinledger/internal/middleware/security"
	"pinledger/internal/middleware/trace"
	"pinledger/internal/services"
)

const (
	readyTimeout       = 5 * time.Second
	categoriesCacheAge = 3600
)

// Options tunes the middleware around the API.
type Options struct {
	RateLimitPerMinute int
	// BlockSuspicious rejects requests the detector flags instead of only
	// logging them.
	BlockSuspicious bool
	// TrustedProxies are extra CIDRs whose forwarded headers are believed.
	TrustedProxies []string
}

// Server wraps http.Server with the ledger API and its middleware.
type Server struct {
	*http.Server

	ledger   *services.LedgerService
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	started  time.Time

	shutdownOnce sync.Once
}

// NewServer builds the API server listening on addr.
func NewServer(addr string, ledger *services.LedgerService, opts Options) *Server {
	detector := security.NewDetector()
	for _, cidr := range opts.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			applog.FromContext(context.Background()).Warn("Ignoring trusted proxy",
				applog.FieldError, err)
		}
	}

	s := &Server{
		ledger:   ledger,
		detector: detector,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		tracer:   trace.NewMiddleware(detector.ExtractClientIP),
		started:  time.Now(),
	}

	root := http.NewServeMux()
	root.HandleFunc("GET /healthz", s.handleHealth)
	root.HandleFunc("GET /readyz", s.handleReady)
	root.Handle("/api/", s.limiter.Middleware(detector.ExtractClientIP, nil)(s.apiRoutes()))

	var handler http.Handler = root
	handler = security.NoStoreMiddleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = detector.Middleware(opts.BlockSuspicious)(handler)
	handler = trace.LoggerMiddleware(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) apiRoutes() http.Handler {
	mux := http.NewServeMux()

	// Transactions
	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("POST /api/transactions/webhook", s.handleWebhook)
	mux.HandleFunc("GET /api/transactions/{id}", s.handleGetTransaction)
	mux.HandleFunc("PATCH /api/transactions/{id}/memory", s.handleSaveMemory)
	mux.HandleFunc("PATCH /api/transactions/{id}/category", s.handleUpdateCategory)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	// Social
	mux.HandleFunc("POST /api/transactions/{id}/comments", s.handleAddComment)
	mux.HandleFunc("GET /api/transactions/{id}/reviews", s.handleReviews)
	mux.HandleFunc("GET /api/transactions/{id}/visits", s.handleVisits)
	mux.HandleFunc("POST /api/reviews/{id}/like", s.handleToggleLike)

	// Map and offers
	mux.HandleFunc("GET /api/map", s.handleMap)
	mux.HandleFunc("GET /api/offers", s.handleOffers)
	mux.HandleFunc("POST /api/offers/refresh", s.handleRefreshOffers)
	mux.Handle("GET /api/categories", security.CacheMiddleware(categoriesCacheAge)(http.HandlerFunc(s.handleCategories)))

	// Settings
	mux.HandleFunc("GET /api/budget", s.handleGetBudget)
	mux.HandleFunc("PUT /api/budget", s.handleSetBudget)
	mux.HandleFunc("GET /api/persona", s.handleGetPersona)
	mux.HandleFunc("PUT /api/persona", s.handleSetPersona)

	// Inbox
	mux.HandleFunc("GET /api/notifications", s.handleNotifications)
	mux.HandleFunc("POST /api/notifications/read-all", s.handleMarkAllRead)
	mux.HandleFunc("POST /api/notifications/{id}/read", s.handleMarkRead)
	mux.HandleFunc("POST /api/notifications/{id}/open", s.handleOpenNotification)
	mux.HandleFunc("GET /api/memos", s.handleMemos)
	mux.HandleFunc("POST /api/memos", s.handleAddMemo)
	mux.HandleFunc("DELETE /api/memos", s.handleClearMemos)
	mux.HandleFunc("POST /api/memos/{id}/toggle", s.handleToggleMemo)
	mux.HandleFunc("DELETE /api/memos/{id}", s.handleDeleteMemo)
	mux.HandleFunc("GET /api/cards", s.handleCards)
	mux.HandleFunc("POST /api/cards", s.handleAddCard)

	// AI and places
	mux.HandleFunc("POST /api/receipts/scan", s.handleScanReceipt)
	mux.HandleFunc("POST /api/receipts", s.handleSaveReceipt)
	mux.HandleFunc("GET /api/insights", s.handleInsight)
	mux.HandleFunc("GET /api/places/suggest", s.handleSuggest)
	mux.HandleFunc("GET /api/places/search", s.handleSearchPlace)
	mux.HandleFunc("GET /api/places/details", s.handlePlaceDetails)

	// Reports
	mux.HandleFunc("GET /api/report", s.handleReport)
	mux.HandleFunc("GET /api/ledger", s.handleLedger)

	return mux
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	tm := s.tracer.GetMetrics()
	rm := s.limiter.GetMetrics()
	dm := s.detector.GetMetrics()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
		"requests": map[string]int64{
			"total":        tm.TotalRequests,
			"avg_micros":   tm.AverageResponseTime,
			"rate_limited": rm.TotalHits,
			"rate_clients": rm.ClientCount,
			"suspicious":   dm.SuspiciousRequests,
			"blocked":      dm.BlockedRequests,
		},
	})
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]string{
		"ai":       s.ledger.AIProvider(),
		"geocoder": "disabled",
	}
	if s.ledger.GeocoderEnabled() {
		checks["geocoder"] = "enabled"
	}
	if err := s.ledger.Ping(ctx); err != nil {
		checks["store"] = "failed: " + err.Error()
		status, code = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// Shutdown drains connections and stops the rate limiter. Safe to call more
// than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		err = s.Server.Shutdown(ctx)
		s.limiter.Stop()
	})
	return err
}
