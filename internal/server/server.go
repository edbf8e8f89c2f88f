// Package server sets up the HTTP server with all routes
package server

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/mbd888/walletguard/internal/alert"
	"github.com/mbd888/walletguard/internal/blacklist"
	"github.com/mbd888/walletguard/internal/chain"
	"github.com/mbd888/walletguard/internal/config"
	"github.com/mbd888/walletguard/internal/detect"
	"github.com/mbd888/walletguard/internal/health"
	"github.com/mbd888/walletguard/internal/ledger"
	"github.com/mbd888/walletguard/internal/logging"
	"github.com/mbd888/walletguard/internal/metrics"
	"github.com/mbd888/walletguard/internal/ratelimit"
	"github.com/mbd888/walletguard/internal/realtime"
	"github.com/mbd888/walletguard/internal/risk"
	"github.com/mbd888/walletguard/internal/scanner"
	"github.com/mbd888/walletguard/internal/scorer"
	"github.com/mbd888/walletguard/internal/traces"
	"github.com/mbd888/walletguard/internal/transfer"
	"github.com/mbd888/walletguard/internal/validation"
	"github.com/mbd888/walletguard/internal/wallet"
)

// -----------------------------------------------------------------------------
// Server
// -----------------------------------------------------------------------------

// Server wraps the HTTP server and dependencies
type Server struct {
	cfg    *config.Config
	logger *slog.Logger

	db      *sql.DB // nil if using in-memory
	source  chain.Source
	alchemy *chain.AlchemyClient // nil when a source was injected

	wallets     wallet.Store
	ledger      ledger.Store
	assessments risk.Store
	blacklist   blacklist.Store
	alerts      alert.Store
	warnings    transfer.WarningStore
	blocked     transfer.BlockedStore

	engine  *risk.Engine
	gate    *transfer.Gate
	sink    *alert.Sink
	hub     *realtime.Hub
	scanner *scanner.Scanner
	checks  *health.Registry

	apiLimiter      *ratelimit.Limiter
	transferLimiter *ratelimit.Limiter

	router       *gin.Engine
	httpSrv      *http.Server
	cancelRunCtx context.CancelFunc
	stopTracing  func(context.Context) error

	// Health state
	ready   atomic.Bool
	healthy atomic.Bool
}

// Option configures the server
type Option func(*Server)

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithSource sets a custom transaction source (for testing)
func WithSource(src chain.Source) Option {
	return func(s *Server) {
		s.source = src
	}
}

// New creates a new server instance
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		checks: health.NewRegistry(),
	}

	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		format := "text"
		if cfg.IsProduction() {
			format = "json"
		}
		s.logger = logging.New(cfg.LogLevel, format)
	}

	ctx := context.Background()

	// Storage (Postgres if DATABASE_URL set, otherwise in-memory)
	if cfg.DatabaseURL != "" {
		if err := s.setupPostgres(ctx); err != nil {
			return nil, err
		}
	} else {
		s.wallets = wallet.NewMemoryStore()
		s.ledger = ledger.NewMemoryStore()
		s.assessments = risk.NewMemoryStore()
		s.blacklist = blacklist.NewMemoryStore()
		s.alerts = alert.NewMemoryStore()
		s.warnings = transfer.NewMemoryWarningStore()
		s.blocked = transfer.NewMemoryBlockedStore()
		s.logger.Info("using in-memory storage (data will not persist)")
	}

	// Transaction source
	if s.source == nil {
		client, err := chain.NewAlchemyClient(ctx, cfg.RPCURL, cfg.FetchTimeout)
		if err != nil {
			return nil, fmt.Errorf("failed to connect transaction source: %w", err)
		}
		s.alchemy = client
		s.source = client
		s.checks.Register("chain_rpc", health.SourceChecker(client))
	}

	// Fraud model (degrades to heuristics when missing)
	model := scorer.Load(cfg.ModelPath, s.logger)
	_, degraded := model.(scorer.Unavailable)
	s.checks.Register("scorer", health.ScorerChecker(!degraded))

	// Realtime alert streaming
	s.hub = realtime.NewHub(s.logger)

	// Alert sink fans out to storage, websocket subscribers, and metrics
	s.sink = alert.NewSink(s.alerts, s.hub, s.logger)
	s.sink.OnRaise(func(severity string) {
		metrics.AlertsRaisedTotal.WithLabelValues(severity).Inc()
	})

	checker := blacklist.NewChecker(s.blacklist, s.logger)

	s.engine = risk.NewEngine(
		s.source,
		detect.NewSet(detect.DefaultConfig()),
		model,
		checker,
		risk.NewAggregator(cfg.MLConfidenceFloor),
		s.assessments,
		s.wallets,
		logging.Named(s.logger, "risk"),
		cfg.FetchLimit,
	)

	s.gate = transfer.NewGate(
		s.wallets, s.warnings, s.blocked, s.ledger,
		checker, s.engine, s.sink,
		logging.Named(s.logger, "gate"),
	).WithEvents(s.hub)

	scanCfg := scanner.DefaultConfig()
	scanCfg.Interval = cfg.ScanInterval
	scanCfg.AlertThreshold = cfg.AlertThreshold
	s.scanner = scanner.New(
		scanCfg, s.engine, s.wallets, s.blacklist, s.sink,
		logging.Named(s.logger, "scanner"),
	).WithEvents(s.hub)

	// Configure gin
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s.router = gin.New()
	s.setupMiddleware()
	s.setupRoutes()

	s.healthy.Store(true)

	return s, nil
}

// setupPostgres opens the pool and wires every store's Postgres twin.
func (s *Server) setupPostgres(ctx context.Context) error {
	db, err := sql.Open("postgres", s.cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	s.db = db
	s.checks.Register("database", health.DBChecker(db))
	s.logger.Info("using PostgreSQL storage", "url", maskDSN(s.cfg.DatabaseURL))

	walletStore := wallet.NewPostgresStore(db)
	ledgerStore := ledger.NewPostgresStore(db)
	assessmentStore := risk.NewPostgresStore(db)
	blacklistStore := blacklist.NewPostgresStore(db)
	alertStore := alert.NewPostgresStore(db)
	warningStore := transfer.NewPostgresWarningStore(db)
	blockedStore := transfer.NewPostgresBlockedStore(db)

	for name, migrate := range map[string]func(context.Context) error{
		"wallets":     walletStore.Migrate,
		"ledger":      ledgerStore.Migrate,
		"assessments": assessmentStore.Migrate,
		"blacklist":   blacklistStore.Migrate,
		"alerts":      alertStore.Migrate,
		"warnings":    warningStore.Migrate,
		"blocked":     blockedStore.Migrate,
	} {
		if err := migrate(ctx); err != nil {
			s.logger.Warn("store migration failed", "store", name, "error", err)
		}
	}

	s.wallets = walletStore
	s.ledger = ledgerStore
	s.assessments = assessmentStore
	s.blacklist = blacklistStore
	s.alerts = alertStore
	s.warnings = warningStore
	s.blocked = blockedStore
	return nil
}

// maskDSN hides password in connection string for logging
func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "***"
	}
	if u.User != nil {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}

// -----------------------------------------------------------------------------
// Middleware
// -----------------------------------------------------------------------------

func (s *Server) setupMiddleware() {
	// Recovery with logging
	s.router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logging.L(c.Request.Context()).Error("panic recovered",
			"error", recovered,
			"path", c.Request.URL.Path,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "An unexpected error occurred",
		})
	}))

	// Request size limit (1MB)
	s.router.Use(validation.RequestSizeMiddleware(validation.MaxRequestSize))

	// Rate limiting
	apiCfg := ratelimit.DefaultConfig()
	apiCfg.RequestsPerMinute = s.cfg.RateLimitRPM
	s.apiLimiter = ratelimit.New(apiCfg)
	s.router.Use(s.apiLimiter.Middleware())

	transferCfg := ratelimit.TransferConfig()
	transferCfg.RequestsPerMinute = s.cfg.TransfersPerMinute
	transferCfg.MinInterval = s.cfg.MinTransferInterval
	s.transferLimiter = ratelimit.New(transferCfg)

	// Prometheus metrics
	s.router.Use(metrics.Middleware())

	// Request ID
	s.router.Use(s.requestIDMiddleware())

	// Logging
	s.router.Use(s.loggingMiddleware())
}

func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = generateRequestID()
		}

		ctx := logging.WithRequestID(c.Request.Context(), requestID)
		ctx = logging.WithLogger(ctx, s.logger)
		c.Request = c.Request.WithContext(ctx)

		c.Header("X-Request-ID", requestID)

		c.Next()
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		logger := logging.L(c.Request.Context())

		switch {
		case status >= 500:
			logger.Error("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
				"client_ip", c.ClientIP(),
			)
		case status >= 400:
			logger.Warn("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		default:
			logger.Info("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		}
	}
}

// adminMiddleware gates the admin surface behind the shared secret. With
// no secret configured (local development) admin routes stay open.
func (s *Server) adminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.cfg.AdminSecret == "" {
			c.Next()
			return
		}
		supplied := c.GetHeader("X-Admin-Secret")
		if subtle.ConstantTimeCompare([]byte(supplied), []byte(s.cfg.AdminSecret)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "forbidden",
				"message": "Admin secret required",
			})
			return
		}
		c.Next()
	}
}

// -----------------------------------------------------------------------------
// Routes
// -----------------------------------------------------------------------------

func (s *Server) setupRoutes() {
	// Health & metrics endpoints
	s.router.GET("/", s.infoHandler)
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/health/live", s.livenessHandler)
	s.router.GET("/health/ready", s.readinessHandler)
	s.router.GET("/metrics", metrics.Handler())

	// WebSocket for real-time alert streaming
	s.router.GET("/ws/alerts", func(c *gin.Context) {
		s.hub.HandleWebSocket(c.Writer, c.Request)
	})
	s.router.GET("/ws/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.hub.Stats())
	})

	// API routes; :address URL params are validated up front
	api := s.router.Group("")
	api.Use(validation.AddressParamMiddleware())

	riskHandler := risk.NewHandler(s.engine, s.assessments)
	riskHandler.RegisterRoutes(api)

	transferHandler := transfer.NewHandler(s.gate, s.warnings, s.blocked, s.ledger)
	transferHandler.RegisterRoutes(api)

	// The transfer endpoint additionally rate limits per sender
	gated := api.Group("")
	gated.Use(s.transferLimiter.SenderMiddleware())
	transferHandler.RegisterTransferRoutes(gated)

	walletHandler := wallet.NewHandler(s.wallets, s.sink).WithEvents(s.hub)
	walletHandler.RegisterRoutes(api)

	alertHandler := alert.NewHandler(s.alerts)
	alertHandler.RegisterRoutes(api)

	// Admin surface
	admin := api.Group("/admin")
	admin.Use(s.adminMiddleware())
	walletHandler.RegisterAdminRoutes(admin)
	blacklist.NewHandler(s.blacklist).RegisterAdminRoutes(admin)
}

// -----------------------------------------------------------------------------
// Handlers
// -----------------------------------------------------------------------------

func (s *Server) infoHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":        "WalletGuard",
		"description": "Blockchain fraud-risk decision engine",
		"version":     "0.1.0",
		"status":      "operational",
	})
}

// HealthResponse for health check endpoints
type HealthResponse struct {
	Status    string          `json:"status"`
	Version   string          `json:"version"`
	Checks    []health.Status `json:"checks,omitempty"`
	Timestamp string          `json:"timestamp"`
}

func (s *Server) healthHandler(c *gin.Context) {
	healthy, statuses := s.checks.CheckAll(c.Request.Context())

	status := "healthy"
	httpStatus := http.StatusOK
	if !healthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, HealthResponse{
		Status:    status,
		Version:   "0.1.0",
		Checks:    statuses,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) livenessHandler(c *gin.Context) {
	if !s.healthy.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (s *Server) readinessHandler(c *gin.Context) {
	if !s.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Run starts the HTTP server with graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancelRunCtx = cancel

	shutdownTraces, err := traces.Init(runCtx, s.cfg.OTLPEndpoint, s.logger)
	if err != nil {
		s.logger.Warn("failed to initialize tracing", "error", err)
	} else {
		s.stopTracing = shutdownTraces
	}

	if s.db != nil {
		metrics.StartDBStatsCollector(runCtx, s.db, 15*time.Second)
	}

	s.httpSrv = &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errChan := make(chan error, 1)

	go func() {
		s.logger.Info("starting server", "port", s.cfg.Port, "env", s.cfg.Env)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	go s.hub.Run(runCtx)
	s.scanner.Start(runCtx)

	// Mark as ready after brief delay for startup
	go func() {
		time.Sleep(100 * time.Millisecond)
		s.ready.Store(true)
		s.logger.Info("server ready")
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		s.logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	s.ready.Store(false)
	s.logger.Info("starting graceful shutdown")

	// Cancel the context for all background goroutines (hub, scanner)
	if s.cancelRunCtx != nil {
		s.cancelRunCtx()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpSrv.Shutdown(ctx); err != nil {
		s.logger.Error("shutdown error", "error", err)
		return err
	}

	s.scanner.Stop()
	s.logger.Info("scanner stopped")

	if s.apiLimiter != nil {
		s.apiLimiter.Stop()
	}
	if s.transferLimiter != nil {
		s.transferLimiter.Stop()
	}

	if s.alchemy != nil {
		s.alchemy.Close()
	}

	if s.stopTracing != nil {
		if err := s.stopTracing(ctx); err != nil {
			s.logger.Error("tracing shutdown error", "error", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("database close error", "error", err)
		} else {
			s.logger.Info("database connection closed")
		}
	}

	s.logger.Info("server stopped")
	return nil
}

// Router returns the gin router for testing
func (s *Server) Router() *gin.Engine {
	return s.router
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func generateRequestID() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp-based ID
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(bytes)
}
