package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/jmerrifield20/custodyledger/internal/auth"
	"github.com/jmerrifield20/custodyledger/internal/custody"
	"github.com/jmerrifield20/custodyledger/internal/custody/handler"
	"github.com/jmerrifield20/custodyledger/internal/ledger"
	"github.com/jmerrifield20/custodyledger/internal/monitor"
	"github.com/jmerrifield20/custodyledger/internal/stream"
	"github.com/jmerrifield20/custodyledger/internal/webhooks"
)

func main() {
	debug := flag.Bool("debug", false, "development logging")
	flag.Parse()

	logger, _ := zap.NewProduction()
	if *debug {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(logger); err != nil {
		logger.Fatal("custodyd exited with error", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	// ── Configuration ────────────────────────────────────────────────────────
	viper.SetConfigName("custodyd")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("configs")
	viper.AddConfigPath(".")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.cors_origins", []string{"http://localhost:3000"})
	viper.SetDefault("server.rate_limit_rps", 20)
	viper.SetDefault("custody.anchor_transfers", true)
	viper.SetDefault("auth.jwt_secret", "")
	viper.SetDefault("auth.issuer", "custodyd")
	viper.SetDefault("auth.token_ttl", "8h")
	viper.SetDefault("mirror.driver", "")
	viper.SetDefault("mirror.url", "")
	viper.SetDefault("monitor.interval", "1m")

	if err := viper.ReadInConfig(); err != nil {
		var cfgNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgNotFound) {
			return fmt.Errorf("read config: %w", err)
		}
		logger.Warn("no config file found, using defaults and env vars")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Session ──────────────────────────────────────────────────────────────
	session := custody.NewSession(custody.Config{
		AnchorTransfers: viper.GetBool("custody.anchor_transfers"),
	}, logger)
	session.SetMetricsRecorder(handler.SessionMetrics())
	logger.Info("custody session started",
		zap.String("session", session.ID().String()),
		zap.Bool("anchor_transfers", viper.GetBool("custody.anchor_transfers")),
	)

	// ── Mirrors ──────────────────────────────────────────────────────────────
	switch driver := viper.GetString("mirror.driver"); driver {
	case "":
		logger.Info("ledger mirror: none (set mirror.driver to postgres or sqlite)")
	case "postgres":
		db, err := pgxpool.New(ctx, viper.GetString("mirror.url"))
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer db.Close()
		if err := db.Ping(ctx); err != nil {
			return fmt.Errorf("ping postgres: %w", err)
		}
		session.AddSink(ledger.NewPostgresSink(db, session.ID(), logger))
		logger.Info("ledger mirror: postgres")
	case "sqlite":
		sink, err := ledger.OpenSQLiteSink(viper.GetString("mirror.url"), session.ID(), logger)
		if err != nil {
			return fmt.Errorf("open sqlite mirror: %w", err)
		}
		session.AddSink(sink)
		logger.Info("ledger mirror: sqlite", zap.String("path", viper.GetString("mirror.url")))
	default:
		return fmt.Errorf("unknown mirror.driver %q", driver)
	}

	corsOrigins := viper.GetStringSlice("server.cors_origins")
	hub := stream.NewHub(originChecker(corsOrigins), logger)
	session.AddSink(hub)

	// ── Webhooks ─────────────────────────────────────────────────────────────
	whSvc := webhooks.NewService(webhooks.NewStore(), logger)
	whSvc.SetMetricsRecorder(handler.RecordWebhookDelivery)
	var seeds []webhooks.CreateSubscriptionRequest
	if err := viper.UnmarshalKey("webhooks", &seeds); err != nil {
		return fmt.Errorf("parse webhooks config: %w", err)
	}
	for i := range seeds {
		sub, err := whSvc.Subscribe(ctx, "config", &seeds[i])
		if err != nil {
			return fmt.Errorf("webhook %s: %w", seeds[i].URL, err)
		}
		logger.Info("webhook subscribed", zap.String("url", sub.URL), zap.Strings("events", sub.Events))
	}
	session.SetEventDispatcher(whSvc)

	// ── Operator auth ────────────────────────────────────────────────────────
	var tokens *auth.TokenIssuer
	operators := auth.Operators(viper.GetStringMapString("auth.operators"))
	if secret := viper.GetString("auth.jwt_secret"); secret != "" {
		tokens = auth.NewTokenIssuer([]byte(secret), viper.GetString("auth.issuer"), viper.GetDuration("auth.token_ttl"))
		logger.Info("operator authentication enabled", zap.Int("operators", len(operators)))
	} else {
		logger.Warn("operator authentication disabled; set auth.jwt_secret to require tokens")
	}
	guard := auth.RequireToken(tokens)

	// ── Integrity monitor ────────────────────────────────────────────────────
	mon := monitor.New(session, monitor.Config{Interval: viper.GetDuration("monitor.interval")}, logger)
	mon.SetWebhookDispatch(whSvc.Dispatch)
	mon.SetMirrorRecord(handler.RecordMirrorCheck)
	monDone := startMonitor(ctx, mon, viper.GetDuration("monitor.interval"))

	// ── HTTP Router ──────────────────────────────────────────────────────────
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(handler.CORS(corsOrigins))
	router.Use(handler.SecurityHeaders())
	router.Use(handler.BodyLimit(1 << 20))
	if rps := viper.GetInt("server.rate_limit_rps"); rps > 0 {
		router.Use(handler.RateLimiter(ctx, rps, rps*2))
	}
	router.Use(handler.RequestID())
	router.Use(handler.PrometheusMiddleware())
	router.Use(auth.OptionalToken(tokens))
	router.Use(handler.RequestLogger(logger))

	router.GET("/healthz", func(c *gin.Context) {
		rep := mon.Last()
		if rep == nil || rep.Healthy() {
			c.JSON(http.StatusOK, gin.H{"status": "ok", "session": session.ID().String(), "last_check": rep})
			return
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "session": session.ID().String(), "last_check": rep})
	})
	router.GET("/metrics", handler.MetricsHandler())

	v1 := router.Group("/api/v1")
	handler.NewEvidenceHandler(session, guard, logger).Register(v1)
	handler.NewLedgerHandler(session, hub, logger).Register(v1)
	handler.NewAuthHandler(operators, tokens, logger).Register(v1)
	webhooks.NewHandler(whSvc, guard, auth.OperatorFromCtx, logger).Register(v1)

	port := viper.GetInt("server.port")
	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("custodyd HTTP listening", zap.Int("port", port))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP listen error", zap.Error(err))
		}
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	<-ctx.Done()
	logger.Info("shutting down custodyd...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", zap.Error(err))
	}
	// The monitor may still be dispatching alerts; join it before draining webhooks.
	<-monDone
	whSvc.Wait()

	final := session.Verify(shutdownCtx)
	logger.Info("final ledger state",
		zap.Bool("valid", final.Valid),
		zap.Int("blocks", final.Blocks),
		zap.String("root", final.Root),
	)
	if err := ledger.CloseAll(session.Sinks()); err != nil {
		logger.Error("close ledger sinks", zap.Error(err))
	}

	logger.Info("custodyd stopped")
	return nil
}

// originChecker admits websocket upgrades from the configured CORS origins.
// Requests without an Origin header (non-browser clients) are allowed.
// startMonitor runs mon until ctx is cancelled. The returned channel is closed
// once the monitor has stopped, immediately when interval disables it.
func startMonitor(ctx context.Context, mon *monitor.Monitor, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	if interval <= 0 {
		close(done)
		return done
	}
	go func() {
		defer close(done)
		mon.Start(ctx)
	}()
	return done
}

func originChecker(origins []string) func(r *http.Request) bool {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o == "*" {
			return nil
		}
		allowed[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed[origin]
	}
}
