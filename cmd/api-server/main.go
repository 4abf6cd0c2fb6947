// Package main API Server 入口
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"blog-graphql/internal/apiserver/auth"
	"blog-graphql/internal/apiserver/graphql"
	"blog-graphql/internal/apiserver/server"
	"blog-graphql/internal/config"
	"blog-graphql/internal/shared/infra"
	"blog-graphql/internal/shared/storage/dbutil"
	"blog-graphql/pkg/dataloader"
	"blog-graphql/pkg/logging"
)

func main() {
	configDir := flag.String("config", "", "配置文件目录（覆盖 CONFIG_DIR）")
	migrate := flag.Bool("migrate", true, "启动时自动建表")
	flag.Parse()

	if *configDir != "" {
		config.SetConfigDir(*configDir)
	}

	// 加载配置（.env → {env}.yaml → 环境变量）
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.New(logging.Config{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		Output:    cfg.Log.Output,
		Component: "api-server",
	})
	logger.Info("Starting API Server", "env", cfg.Env, "config", cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hasher := auth.NewHasher(auth.Config{Cost: cfg.Hashing.Cost})
	inf, err := infra.New(ctx, infra.DatabaseOptions{
		Driver: dbutil.DriverType(cfg.DatabaseDriver),
		DSN:    cfg.DatabaseURL,
		Pool: dbutil.Pool{
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		},
		AutoMigrate: *migrate,
	}, hasher, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize database")
		os.Exit(1)
	}
	defer inf.Close()

	metrics := server.NewMetrics("blog")
	inf.Store.SetQueryObserver(metrics.RecordDBQuery)

	h := server.NewHandler(inf.Store, server.Options{
		AllowedOrigin: cfg.APIServer.URL,
		GraphQL: graphql.Config{
			MaxParallelism: cfg.GraphQL.MaxParallelism,
			MaxDepth:       cfg.GraphQL.MaxDepth,
		},
		Loader: dataloader.Config{
			MaxBatch: cfg.Loader.MaxBatch,
			Wait:     cfg.Loader.Wait,
		},
		Logger:  logger,
		Metrics: metrics,
	})

	srv := &http.Server{
		Addr:         cfg.APIServer.Addr(),
		Handler:      h.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	// 优雅关闭
	go func() {
		<-ctx.Done()
		logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("Server shutdown error")
		}
	}()

	logger.Info("API Server listening", "addr", srv.Addr, "graphiql", cfg.APIServer.URL+"/graphiql")
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Error("Server error")
		os.Exit(1)
	}

	logger.Info("Server stopped")
}
