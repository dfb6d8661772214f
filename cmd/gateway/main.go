// Market agent gateway main entry point
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/market-agent-gateway/internal/agentcore"
	"github.com/market-agent-gateway/internal/config"
	"github.com/market-agent-gateway/internal/events"
	"github.com/market-agent-gateway/internal/gateway"
	"github.com/market-agent-gateway/internal/logging"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "Path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting market agent gateway",
		zap.String("runtime_backend", cfg.Runtime.Backend),
		zap.String("memory_backend", cfg.Memory.Backend),
		zap.String("runtime_id", cfg.Gateway.RuntimeID),
		zap.String("memory_id", cfg.Gateway.MemoryID))

	runtime, closeRuntime := buildRuntime(cfg, logger)
	defer closeRuntime()

	var opts []gateway.Option
	if cfg.NATS.URL != "" {
		conn, err := events.Connect(cfg.NATS.URL, logger)
		if err != nil {
			logger.Warn("Turn events disabled", zap.Error(err))
		} else {
			defer conn.Drain()
			opts = append(opts, gateway.WithPublisher(events.NewNATSPublisher(conn, logger)))
			logger.Info("Publishing turn events", zap.String("nats_url", cfg.NATS.URL))
		}
	}

	gw := gateway.New(cfg.ForGateway(), runtime, logger, opts...)
	server := gateway.NewServer(gw, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handlers.ProxyHeaders(server.Handler()),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: gw.Config().InvokeTimeout + 10*time.Second,
	}

	go func() {
		logger.Info("HTTP server starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", zap.Error(err))
	}
	logger.Info("Shutdown complete")
}

// buildRuntime assembles the invoker and memory backends named in cfg.
func buildRuntime(cfg config.Config, logger *zap.Logger) (agentcore.Runtime, func()) {
	closeFn := func() {}

	var invoker agentcore.Invoker
	var runtimeMemory agentcore.MemoryRetriever
	switch cfg.Runtime.Backend {
	case config.RuntimeAnthropic:
		invoker = agentcore.NewModelInvoker(agentcore.ModelConfig{
			APIKey:    cfg.Runtime.APIKey,
			Model:     cfg.Runtime.Model,
			MaxTokens: cfg.Runtime.MaxTokens,
		}, logger.Named("model"))
	default:
		client := agentcore.NewHTTPClient(agentcore.HTTPConfig{
			BaseURL: cfg.Runtime.URL,
			Timeout: cfg.Runtime.Timeout,
		}, logger.Named("runtime"))
		invoker = client
		runtimeMemory = client
	}

	var mem agentcore.MemoryRetriever
	switch cfg.Memory.Backend {
	case config.MemoryRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Memory.RedisAddress,
			Password: cfg.Memory.RedisPassword,
			DB:       cfg.Memory.RedisDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("Failed to connect to Redis, memory views will be empty", zap.Error(err))
		}
		cancel()
		mem = agentcore.NewRedisMemory(rdb, cfg.Memory.KeyPrefix, logger)
		closeFn = func() { rdb.Close() }
	case config.MemoryRuntime:
		mem = runtimeMemory
	}

	return agentcore.Compose(invoker, mem), closeFn
}
