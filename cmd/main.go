package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/cwrk-planet/board-service/config"
	"github.com/cwrk-planet/board-service/internal/postgres"
	"github.com/cwrk-planet/board-service/internal/relay"
	"github.com/cwrk-planet/board-service/internal/security"
	"github.com/cwrk-planet/board-service/internal/service"
	grpcx "github.com/cwrk-planet/board-service/internal/transport/grpc"
	httpx "github.com/cwrk-planet/board-service/internal/transport/http"
	"github.com/cwrk-planet/board-service/internal/transport/ws"
	"github.com/cwrk-planet/board-service/pkg/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

func main() {
	// --- config ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	instanceID := uuid.NewString()
	logger.Init(logger.Config{
		Env:        logger.ParseEnv(cfg.Logging.Env),
		Service:    cfg.Logging.Service,
		Version:    cfg.Logging.Version,
		InstanceID: instanceID,
		Backend:    logger.Backend(cfg.Logging.Backend),
		Level:      logger.ParseLevel(cfg.Logging.Level),
		AddSource:  cfg.Logging.AddSource,
		Debug:      cfg.Logging.Debug,
	})
	defer func() { _ = logger.Sync() }()
	slog.Info("starting board-service",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- postgres ---
	db, err := postgres.New(ctx, postgres.Config{
		DSN:               cfg.Postgres.DSN,
		MaxConns:          cfg.Postgres.MaxConns,
		MinConns:          cfg.Postgres.MinConns,
		MaxConnLifetime:   cfg.Postgres.MaxConnLifetimeDur(),
		MaxConnIdleTime:   cfg.Postgres.MaxConnIdleTimeDur(),
		HealthCheckPeriod: cfg.Postgres.HealthCheckPeriodDur(),
		ApplicationName:   cfg.Logging.Service,
		ConnectTimeout:    cfg.Postgres.ConnectTimeoutDur(),
	})
	if err != nil {
		slog.Error("postgres connect failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer db.Close()

	if cfg.Postgres.Migrate {
		if err := postgres.Migrate(ctx, db.Pool); err != nil {
			slog.Error("postgres migrate failed", slog.Any("err", err))
			os.Exit(1)
		}
	}

	// --- repos & services ---
	breaker := service.NewBreaker(service.BreakerConfig{
		Name:             "postgres",
		FailureThreshold: cfg.Postgres.BreakerFailures,
		OpenTimeout:      cfg.Postgres.BreakerTimeoutDur(),
	})
	roomSvc := service.NewRoomService(postgres.NewRoomRepository(db.Pool), postgres.NewUserRepository(db.Pool))
	chatSvc := service.NewChatService(postgres.NewChatRepository(db.Pool), breaker, cfg.WS.ChatMaxLen)
	canvasSvc := service.NewCanvasService(postgres.NewCanvasRepository(db.Pool), breaker)

	auth := security.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer, 0, cfg.Auth.ClockSkewDur())

	// --- WS registry, hub, router ---
	registry := ws.NewRegistry()
	hub := ws.NewHub(registry)
	router := ws.NewRouter(registry, hub, chatSvc, canvasSvc, roomSvc)
	wsServer := ws.NewServer(ws.Config{
		PingPeriod:     cfg.WS.PingPeriodDur(),
		WriteWait:      cfg.WS.WriteWaitDur(),
		MaxMessageSize: cfg.WS.MaxMessageSize,
		SendBuffer:     cfg.WS.SendBuffer,
		AllowedOrigins: cfg.WS.AllowedOrigins,
	}, auth, registry, router)

	// --- relay (опционально) ---
	var rel *relay.Redis
	if cfg.Redis.Addr != "" {
		rcfg := relay.Config{
			Addr:          cfg.Redis.Addr,
			Password:      cfg.Redis.Password,
			DB:            cfg.Redis.DB,
			ChannelPrefix: cfg.Redis.ChannelPrefix,
		}
		client, err := relay.NewClient(ctx, rcfg)
		if err != nil {
			slog.Error("redis connect failed", slog.Any("err", err))
			os.Exit(1)
		}
		defer func() { _ = client.Close() }()
		rel = relay.NewRedis(client, rcfg, instanceID)
		hub.SetRelay(rel)
	}

	// --- HTTP ---
	var ready atomic.Bool
	handler := httpx.NewHandler(roomSvc, chatSvc, canvasSvc)
	httpSrv := &http.Server{
		Addr: cfg.HTTP.Addr,
		Handler: httpx.NewRouter(httpx.Deps{
			Handler:        handler,
			Auth:           auth,
			Admins:         roomSvc,
			WS:             wsServer.HandleWS,
			Ready:          ready.Load,
			AllowedOrigins: cfg.CORS.AllowedOrigins,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// --- gRPC health ---
	grpcSrv := grpcx.NewServer(cfg.GRPC.TimeoutDur())

	// --- run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("http listen", "addr", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		lis, err := net.Listen("tcp", cfg.GRPC.Addr)
		if err != nil {
			return err
		}
		slog.Info("grpc listen", "addr", cfg.GRPC.Addr)
		return grpcSrv.Serve(lis)
	})

	g.Go(func() error {
		return grpcSrv.WatchStorage(gctx, func(c context.Context) error {
			err := postgres.Ping(c, db.Pool)
			ready.Store(err == nil)
			return err
		}, 10*time.Second)
	})

	if rel != nil {
		g.Go(func() error { return rel.Run(gctx, hub) })
	}

	// --- graceful shutdown ---
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		ready.Store(false)

		shCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeoutDur())
		defer cancel()

		grpcSrv.GracefulStop()
		err := httpSrv.Shutdown(shCtx)
		// hijacked ws-соединения Shutdown не ждёт, закрываем сами
		wsServer.Shutdown()
		return err
	})

	if err := g.Wait(); err != nil {
		slog.Error("server error", slog.Any("err", err))
	}
	slog.Info("stopped")
}
