package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jcmexdev/pix-checkout/internal/checkout/config"
	"github.com/jcmexdev/pix-checkout/internal/checkout/core/ports"
	"github.com/jcmexdev/pix-checkout/internal/checkout/eventlog"
	eventsqlite "github.com/jcmexdev/pix-checkout/internal/checkout/eventlog/sqlite"
	"github.com/jcmexdev/pix-checkout/internal/checkout/infra/adapters/mercadopago"
	"github.com/jcmexdev/pix-checkout/internal/checkout/infra/adapters/notify"
	"github.com/jcmexdev/pix-checkout/internal/checkout/infra/adapters/postgres"
	"github.com/jcmexdev/pix-checkout/internal/checkout/infra/httpx"
	"github.com/jcmexdev/pix-checkout/internal/checkout/workflow"
	"github.com/jcmexdev/pix-checkout/internal/pkg/cache"
	"github.com/jcmexdev/pix-checkout/internal/pkg/metrics"
	"github.com/jcmexdev/pix-checkout/internal/pkg/retry"
	"github.com/jcmexdev/pix-checkout/internal/pkg/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const serviceName = "checkout-api"

func main() {
	telemetry.InitLogger(serviceName)

	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.SetupTracer(ctx, serviceName)
	if err != nil {
		log.Fatalf("tracer setup failed: %v", err)
	}
	defer shutdownTracer(context.Background())

	// ── Database, catalog and cache ─────────────────────────────────────────
	db, err := postgres.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	if err := postgres.Migrate(db); err != nil {
		log.Fatalf("database migration failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("database handle unavailable: %v", err)
	}
	defer sqlDB.Close()
	dbPing := func(ctx context.Context) error { return sqlDB.PingContext(ctx) }

	var productCache cache.Cache
	if cfg.RedisAddr != "" {
		productCache = cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, serviceName)
	}

	// ── Payment gateway ─────────────────────────────────────────────────────
	var gateway ports.PaymentGateway
	if cfg.MPAccessToken != "" {
		opts := []mercadopago.Option{}
		if cfg.MPBaseURL != "" {
			opts = append(opts, mercadopago.WithBaseURL(cfg.MPBaseURL))
		}
		gateway = mercadopago.New(cfg.MPAccessToken, opts...)
	} else {
		slog.Warn("MP_ACCESS_TOKEN not set; payment endpoints will answer 503")
	}

	// ── Payment event log ───────────────────────────────────────────────────
	var events eventlog.Repository
	if cfg.EventLogPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.EventLogPath), 0o755); err != nil {
			log.Fatalf("event log directory: %v", err)
		}
		repo, err := eventsqlite.Open(cfg.EventLogPath)
		if err != nil {
			log.Fatalf("event log open failed: %v", err)
		}
		defer repo.Close()
		events = repo
	}

	// ── Workflow and HTTP surface ───────────────────────────────────────────
	svc := workflow.New(
		gateway,
		postgres.NewOrderRepo(db),
		postgres.NewCatalog(db, productCache),
		notify.NewEmailStub(),
		events,
		retry.New(retry.DefaultMaxAttempts, retry.DefaultBaseDelay),
	)

	handler := httpx.NewHandler(svc, dbPing, cfg.MPWebhookSecret)
	router := httpx.NewRouter(handler, metrics.NewServerMetrics("api"), cfg.Origins())

	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           otelhttp.NewHandler(router, "http.server"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("checkout API running", "addr", cfg.ServerAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server failed: %v", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
	}
}
