// Command rasterkitd is the long-running raster extraction service,
// generalizing the teacher's main.go errgroup-orchestrated multi-listener
// shape (gRPC health server, Prometheus metrics server, HTTP API server)
// from a single fixed elevation dataset to any TIFF/GeoTIFF source named
// by RASTER_SOURCE or a per-request query parameter.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	grpclogging "github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/mauricemojito/rasterkit/internal/config"
	"github.com/mauricemojito/rasterkit/internal/logging"
	"github.com/mauricemojito/rasterkit/internal/metrics"
)

const appName = "rasterkitd"

var (
	grpcHealthServer  *grpc.Server
	httpMetricsServer *http.Server
	httpAPIServer     *http.Server
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to parse config: %+v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, appName)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	g, ctx := errgroup.WithContext(ctx)

	svc := newAPIService(cfg, logger)
	metrics.Register()

	healthServer := health.NewServer()

	g.Go(func() error { return startHealthServer(logger, cfg, healthServer) })
	g.Go(func() error { return startMetricsServer(logger, cfg) })
	g.Go(func() error { return startAPIServer(logger, cfg, svc) })

	healthServer.SetServingStatus(appName, healthpb.HealthCheckResponse_SERVING)

	select {
	case <-interrupt:
		logger.Warn("received termination signal, starting graceful shutdown")
		cancel()
	case <-ctx.Done():
		logger.Warn("context cancelled, starting graceful shutdown")
	}

	healthServer.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if httpMetricsServer != nil {
		if err := httpMetricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP metrics server shutdown error", "error", err)
		}
	}
	if httpAPIServer != nil {
		if err := httpAPIServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP API server shutdown error", "error", err)
		}
	}
	if grpcHealthServer != nil {
		grpcHealthServer.GracefulStop()
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server group returned an error", "error", err)
		os.Exit(2)
	}
}

func startHealthServer(logger *slog.Logger, cfg config.Config, healthServer *health.Server) error {
	addr := fmt.Sprintf(":%d", cfg.HealthPort)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("gRPC health server failed to listen: %w", err)
	}
	lopts := []grpclogging.Option{grpclogging.WithLogOnEvents(grpclogging.StartCall, grpclogging.FinishCall)}
	grpcHealthServer = grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			grpclogging.UnaryServerInterceptor(logging.InterceptorLogger(logger), lopts...),
			metrics.GRPC.UnaryServerInterceptor(),
		),
	)
	healthpb.RegisterHealthServer(grpcHealthServer, healthServer)
	logger.Info("gRPC health server listening", "address", addr)
	return grpcHealthServer.Serve(lis)
}

func startMetricsServer(logger *slog.Logger, cfg config.Config) error {
	addr := fmt.Sprintf(":%d", cfg.HTTPMetricsPort)
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	httpMetricsServer = &http.Server{Addr: addr, Handler: mux}
	logger.Info("HTTP metrics server listening", "address", addr)
	if err := httpMetricsServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("HTTP metrics server failed: %w", err)
	}
	return nil
}

func startAPIServer(logger *slog.Logger, cfg config.Config, svc *apiService) error {
	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	mux := http.NewServeMux()
	mux.HandleFunc("/analyze", svc.handleAnalyze)
	mux.HandleFunc("/extract", svc.handleExtract)
	mux.HandleFunc("/elevation", svc.handleElevation)
	mux.HandleFunc("/profile", svc.handleProfile)

	httpAPIServer = &http.Server{Addr: addr, Handler: mux}
	logger.Info("HTTP API server listening", "address", addr)
	if err := httpAPIServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("HTTP API server failed: %w", err)
	}
	return nil
}
