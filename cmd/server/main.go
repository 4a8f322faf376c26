// Command server runs the gatherhall vetting service: public application
// submission and status lookup, authenticated access checks, and the
// admin review workflow.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"gatherhall/internal/audit"
	"gatherhall/internal/identity"
	jwttoken "gatherhall/internal/jwt_token"
	"gatherhall/internal/platform/config"
	"gatherhall/internal/platform/httpserver"
	"gatherhall/internal/platform/kafka"
	"gatherhall/internal/platform/logger"
	"gatherhall/internal/platform/postgres"
	platformredis "gatherhall/internal/platform/redis"
	"gatherhall/internal/vetting/access"
	"gatherhall/internal/vetting/handler"
	"gatherhall/internal/vetting/metrics"
	"gatherhall/internal/vetting/notify"
	"gatherhall/internal/vetting/service"
	appstore "gatherhall/internal/vetting/store/application"
	auditlogstore "gatherhall/internal/vetting/store/auditlog"
	"gatherhall/pkg/platform/middleware/admin"
	"gatherhall/pkg/platform/middleware/auth"
	"gatherhall/pkg/platform/middleware/request"
	"gatherhall/pkg/platform/middleware/requesttime"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	db, err := postgres.Open(cfg.Postgres)
	if err != nil {
		log.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	producer, err := kafka.NewProducer(cfg.Kafka)
	if err != nil {
		log.Error("failed to connect to kafka", "error", err)
		os.Exit(1)
	}
	if producer != nil {
		defer producer.Close()
	}

	m := metrics.New()

	var (
		apps     service.ApplicationStore
		auditLog service.AuditLogStore
		users    service.IdentityStore
		opts     []service.Option
	)
	if db != nil {
		apps = appstore.NewPostgresStore(db)
		auditLog = auditlogstore.NewPostgresStore(db)
		users = identity.NewPostgresStore(db)
		opts = append(opts, service.WithStoreTx(newVettingPostgresTx(db)))
		log.Info("using postgres stores")
	} else {
		apps = appstore.NewInMemoryStore()
		auditLog = auditlogstore.NewInMemoryStore()
		users = identity.NewInMemoryStore()
		log.Warn("DATABASE_URL not set, using in-memory stores")
	}

	var cache access.StatusCache
	if redisClient != nil {
		cache = access.NewRedisCache(redisClient.Client, config.StatusCacheTTL)
		log.Info("using redis status cache")
	} else {
		cache = access.NewMemoryCache(config.StatusCacheTTL)
		log.Warn("REDIS_URL not set, using in-memory status cache")
	}

	dispatcher := notify.NewDispatcher(notify.NewSlogSender(log), log, m, cfg.Notify)
	opts = append(opts,
		service.WithLogger(log),
		service.WithMetrics(m),
		service.WithNotifier(dispatcher),
	)

	var mirror *audit.Mirror
	if producer != nil {
		mirror = audit.NewMirror(producer, log, m)
		opts = append(opts, service.WithAuditMirror(mirror))
		log.Info("audit mirror enabled", "topic", cfg.Kafka.Topic)
	}

	svc := service.New(apps, auditLog, users, opts...)
	checker := access.NewChecker(apps, auditLog, cache, log, m)
	h := handler.New(svc, checker, log)

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)
	validator := jwttoken.NewMiddlewareAdapter(jwtService)

	r := chi.NewRouter()
	r.Use(request.Middleware)
	r.Use(requesttime.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		h.RegisterPublic(r)
	})
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(validator, log))
		h.RegisterAuthenticated(r)
	})
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(validator, log))
		r.Use(admin.RequireAdminRole(log))
		h.RegisterAdmin(r)
	})

	srv := httpserver.New(cfg.Addr, r)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		dispatcher.Run(gctx)
		return nil
	})
	if mirror != nil {
		g.Go(func() error {
			if err := mirror.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
