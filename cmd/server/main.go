package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"smartsender/internal/api"
	"smartsender/internal/chat"
	"smartsender/internal/config"
	"smartsender/internal/db"
	"smartsender/internal/files"
	"smartsender/internal/jobs"
	"smartsender/internal/logger"
	"smartsender/internal/metrics"
	myMiddleware "smartsender/internal/middleware"
	"smartsender/internal/staff"
	"smartsender/internal/storage"
	"smartsender/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Config & Flags
	configPath := flag.String("config", "", "path to a config file (yaml, json or toml)")
	addr := flag.String("addr", "", "http service address, overrides server.addr")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to Redis (optional: fan-out across instances, or the KV driver)
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		log.Info("✅ Connected to Redis", zap.String("addr", cfg.Redis.Addr))
	}

	// 3. Connect to PostgreSQL when it backs the store
	var database *db.Database
	if cfg.Storage.Driver == "postgres" {
		database, err = db.NewDatabase(cfg.Database.DSN, db.PoolOptions{
			MaxOpen:     cfg.Database.MaxOpen,
			MaxIdle:     cfg.Database.MaxIdle,
			MaxLifetime: cfg.Database.MaxLifetime,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to DB: %w", err)
		}
		defer database.Close()
		log.Info("✅ Connected to PostgreSQL")

		if err := database.AutoMigrate(); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		log.Info("✅ Database Schema Initialized")
	}

	// 4. Open the persistent store
	opts := storage.Options{Path: cfg.Storage.Path, Redis: redisClient}
	if database != nil {
		opts.DB = database.Conn
	}
	kv, err := storage.Open(cfg.Storage.Driver, opts)
	if err != nil {
		return err
	}
	defer kv.Close()
	st := store.New(kv, log, m)
	log.Info("✅ Store ready", zap.String("driver", cfg.Storage.Driver))

	// 5. Initialize Staff Feature
	fixtures := staff.DefaultFixtures()
	if cfg.Staff.FixturesPath != "" {
		if fixtures, err = staff.LoadFixtures(cfg.Staff.FixturesPath); err != nil {
			return err
		}
	}
	staffRepo, err := staff.NewRepository(st, fixtures)
	if err != nil {
		return err
	}
	staffService := staff.NewService(staffRepo, st, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, log)
	staffHandler := staff.NewHandler(staffService)

	// 6. Initialize Chat Feature
	hub := chat.NewHub(redisClient, cfg.Redis.Channel, log, m)
	chatOpts := []chat.Option{
		chat.WithPresence(hub),
		chat.WithNotifier(hub),
		chat.WithMetrics(m),
		chat.WithLogger(log),
		chat.WithSeed(cfg.Chat.Seed),
	}
	if cfg.Chat.SimulateLatency {
		chatOpts = append(chatOpts, chat.WithLatency(chat.DefaultLatency))
	}
	chatService := chat.NewService(st, staffRepo, chatOpts...)
	hub.Bind(chatService)
	chatHandler := chat.NewHandler(hub, chatService)

	// 7. Initialize File Sharing Feature
	fileService := files.NewService(st, staffRepo, m, log)
	fileHandler := files.NewHandler(fileService)

	cron := jobs.NewManager(log, jobs.Entry{
		Name:     "files-expiry",
		Schedule: cfg.Files.ExpirySchedule,
		Job:      files.NewExpiryJob(fileService, log),
	})
	if err := cron.RegisterJobs(); err != nil {
		return fmt.Errorf("failed to register jobs: %w", err)
	}

	authMiddleware := myMiddleware.NewAuthMiddleware(staffService)
	limiter := myMiddleware.NewLimiterPool(cfg.RateLimit.RPS, cfg.RateLimit.Burst)

	// 8. Define Routes
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Public Routes
	r.With(limiter.Limit).Post("/login", staffHandler.Login)
	r.Handle("/metrics", m.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		api.OK(w, map[string]string{"status": "ok"})
	})

	// Protected Routes (Require JWT)
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.Handle)
		staffHandler.Routes(r)
		chatHandler.Routes(r, limiter.Limit)
		fileHandler.Routes(r)

		// Admin Routes
		r.Group(func(r chi.Router) {
			r.Use(myMiddleware.RequireAdmin(staffService))
			staffHandler.AdminRoutes(r)
			fileHandler.AdminRoutes(r)
		})
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 9. Start the engines
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return hub.Run(gctx) })
	g.Go(func() error { return hub.SubscribeToRedis(gctx) })
	g.Go(func() error {
		log.Info("🚀 Server starting", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	cron.Start()

	g.Go(func() error {
		<-gctx.Done()
		log.Info("🛑 Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		cron.Stop(shutdownCtx)
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("👋 Bye")
	return nil
}
