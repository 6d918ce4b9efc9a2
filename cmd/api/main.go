package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"callcenter-api/internal/activities"
	"callcenter-api/internal/audit"
	"callcenter-api/internal/auth"
	"callcenter-api/internal/calls"
	"callcenter-api/internal/campaigns"
	"callcenter-api/internal/config"
	"callcenter-api/internal/httpapi"
	"callcenter-api/internal/jobs"
	"callcenter-api/internal/leads"
	"callcenter-api/internal/livestats"
	"callcenter-api/internal/metrics"
	"callcenter-api/internal/reporting"
	"callcenter-api/internal/store"
	"callcenter-api/internal/templates"
	"callcenter-api/internal/users"
	"callcenter-api/pkg/logger"
	"callcenter-api/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := store.CreateSchema(rootCtx, db); err != nil {
		log.Error("schema init failed", "err", err)
		os.Exit(1)
	}

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr(), Password: cfg.Redis.Password})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	st := store.NewPostgres(db)
	auditSvc := audit.NewService(audit.NewPostgresRepo(db))

	// Every instance applies call events to one board in Redis. Snapshots
	// go to local websocket clients, and through the pub/sub channel to the
	// other instances' clients.
	live := livestats.NewService()
	live.Audit = auditSvc
	live.Board = livestats.NewRedisBoard(rdb, livestats.DefaultBoardKey)
	relay := livestats.NewRedisBroadcaster(rdb, livestats.DefaultChannel)
	live.Peers = relay
	hub := livestats.NewHub(live.Snapshot)
	defer hub.Close()
	live.AddSink(hub)
	if err := live.Load(rootCtx); err != nil {
		log.Warn("live board load failed", "err", err)
	}
	go func() {
		if err := relay.Relay(rootCtx, live); err != nil {
			log.Error("live stats relay stopped", "err", err)
		}
	}()

	progress := campaigns.NewProgress(st)
	progress.Metrics = m

	leadSvc := leads.NewService(st, cfg.Leads.DefaultPhoneRegion, nil)
	leadSvc.Metrics = m
	leadSvc.Audit = auditSvc

	callSvc := calls.NewService(st, live)
	callSvc.Metrics = m

	h := httpapi.Handlers{
		Auth: auth.NewService(st, authManager, auth.Lockout{
			Redis:     rdb,
			MaxFailed: cfg.Auth.MaxFailedLogins,
			Window:    cfg.Auth.LockoutWindow,
		}),
		Users:      users.NewService(st, auditSvc),
		Campaigns:  campaigns.NewService(st, auditSvc),
		Progress:   progress,
		Leads:      leadSvc,
		Activities: activities.NewService(st),
		Calls:      callSvc,
		Reports:    reporting.NewService(st, cfg.App.Location),
		Templates:  templates.NewService(st, cfg.Leads.DefaultPhoneRegion),
		Live:       live,
		Audit:      auditSvc,
		Metrics:    m,
		Ping: func(ctx context.Context) error {
			return utils.HealthCheck(ctx, db, 2*time.Second)
		},
	}

	cronManager := jobs.NewCronManager(progress, cfg.App.Location, log)
	if err := cronManager.SetupJobs(cfg.Jobs.RecomputeCron); err != nil {
		log.Error("cron setup failed", "err", err)
		os.Exit(1)
	}
	cronManager.Start()

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))
	r.Use(m.Middleware())
	r.Use(httpapi.CORS(cfg.HTTP.CORSOrigins))
	r.Use(httpapi.ClientIP())

	registerRoutes(r, h, routeDeps{
		Auth:        auth.RequireAccessToken(authManager),
		AuthOrQuery: auth.RequireAccessTokenOrQuery(authManager),
		LoginLimit:  httpapi.NewRateLimiter(cfg.HTTP.LoginRatePerMinute, cfg.HTTP.LoginBurst).Middleware(),
		Metrics:     metrics.Handler(reg),
		LiveWS:      hub,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env, "tz", cfg.App.Timezone)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
	cronManager.Stop(shutdownCtx)
}
