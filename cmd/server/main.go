package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rl1809/vending-machine/internal/adapter/handler"
	"github.com/rl1809/vending-machine/internal/adapter/journal"
	"github.com/rl1809/vending-machine/internal/config"
	"github.com/rl1809/vending-machine/internal/core/service"
	"github.com/rl1809/vending-machine/internal/dispatch"
	"github.com/rl1809/vending-machine/internal/port"
)

func main() {
	configPath := flag.String("config", os.Getenv("VENDING_CONFIG"), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath, os.LookupEnv)
	if err != nil {
		zap.NewExample().Fatal("failed to load config", zap.Error(err))
	}
	logger, err := cfg.Log.Build()
	if err != nil {
		zap.NewExample().Fatal("failed to build logger", zap.Error(err))
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var rdb *redis.Client
	if cfg.Storage.Driver == config.DriverRedis || cfg.Journal.Sink == config.SinkRedis {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Storage.Redis.Addr,
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
			PoolSize: cfg.Storage.Redis.PoolSize,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal("failed to connect redis", zap.Error(err))
		}
		logger.Info("connected to redis", zap.String("addr", cfg.Storage.Redis.Addr))
	}

	store, closeStore, err := openStore(ctx, cfg.Storage, rdb, logger)
	if err != nil {
		logger.Fatal("failed to open state store", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
	}

	machine := service.NewMachine(store, cfg.AccessMode(),
		service.WithLogger(logger.Named("machine")),
		service.WithEventQueue(cfg.Journal.QueueSize),
	)

	var sink port.EventSink = journal.NewLogSink(logger)
	if cfg.Journal.Sink == config.SinkRedis {
		sink = journal.NewRedisStreamSink(rdb, cfg.Journal.Stream, int64(cfg.Journal.MaxLen))
	}

	var wg sync.WaitGroup
	for i := 0; i < cfg.Journal.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			journal.Drain(id, machine.Events(), sink, logger.Named("journal"))
		}(i)
	}
	logger.Info("started journal workers", zap.Int("workers", cfg.Journal.Workers), zap.String("sink", cfg.Journal.Sink))

	dispatcher := dispatch.New(machine)

	var grpcServer *grpc.Server
	if cfg.GRPC.Addr != "" {
		grpcServer = grpc.NewServer()
		handler.RegisterMachineServer(grpcServer, handler.NewGRPCHandler(dispatcher, logger.Named("grpc")))

		healthServer := health.NewServer()
		grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
		healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

		lis, err := net.Listen("tcp", cfg.GRPC.Addr)
		if err != nil {
			logger.Fatal("failed to listen", zap.String("addr", cfg.GRPC.Addr), zap.Error(err))
		}
		go func() {
			logger.Info("gRPC server listening", zap.String("addr", cfg.GRPC.Addr))
			if err := grpcServer.Serve(lis); err != nil {
				logger.Error("gRPC server error", zap.Error(err))
			}
		}()
	}

	var httpServer *http.Server
	if cfg.HTTP.Addr != "" {
		mux := http.NewServeMux()
		handler.NewHTTPHandler(dispatcher, logger.Named("http")).Register(mux)

		httpServer = &http.Server{
			Addr: cfg.HTTP.Addr,
			Handler: cors.New(cors.Options{
				AllowedOrigins: cfg.HTTP.AllowedOrigins,
				AllowedMethods: []string{http.MethodGet, http.MethodPost},
				AllowedHeaders: []string{"Content-Type", handler.PrincipalHeader},
			}).Handler(mux),
		}
		go func() {
			logger.Info("HTTP server listening", zap.String("addr", cfg.HTTP.Addr))
			if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				logger.Error("HTTP server error", zap.Error(err))
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeoutDuration())
	defer shutdownCancel()
	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("HTTP shutdown", zap.Error(err))
		}
		logger.Info("HTTP server stopped")
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
		logger.Info("gRPC server stopped")
	}

	// Nothing publishes after the servers stop, so the workers drain what is
	// left and exit.
	machine.Close()
	wg.Wait()
	logger.Info("journal workers stopped")

	if err := closeStore(); err != nil {
		logger.Warn("close state store", zap.Error(err))
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	logger.Info("connections closed")
}
