package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	ledgerapi "github.com/example/abacus/api/ledger"
	"github.com/example/abacus/internal/app"
	"github.com/example/abacus/internal/config"
	"github.com/example/abacus/internal/rpc"
	"github.com/example/abacus/internal/security"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := cfg.NewLogger()

	allowlist, err := security.ParseCIDRAllowlist(cfg.IPAllowlist)
	if err != nil {
		logger.Error("invalid API_IP_ALLOWLIST", "error", err)
		os.Exit(1)
	}

	l, err := app.Open(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to open ledger", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := l.Close(); err != nil {
			logger.Error("failed to close ledger", "error", err)
		}
	}()

	opts := rpc.ServerOptions{Logger: logger, IPAllowlist: allowlist}
	if cfg.TLSEnabled() {
		opts.TLS, err = security.LoadServerTLSConfig(security.TLSConfig{
			CertFile:          cfg.TLSCert,
			KeyFile:           cfg.TLSKey,
			CAFile:            cfg.TLSCA,
			RequireClientAuth: true,
		})
		if err != nil {
			logger.Error("failed to load TLS config", "error", err)
			os.Exit(1)
		}
	}

	grpcServer := rpc.NewGRPCServer(rpc.NewServer(l.Service), opts)

	healthServer := health.NewServer()
	healthServer.SetServingStatus(ledgerapi.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen", "error", err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutting down ledger gRPC server")
		healthServer.Shutdown()
		grpcServer.GracefulStop()
	}()

	logger.Info("ledger gRPC server listening", "addr", cfg.GRPCAddr, "tls", cfg.TLSEnabled(), "store", cfg.Store)
	if err := grpcServer.Serve(lis); err != nil {
		logger.Error("failed to serve", "error", err)
		os.Exit(1)
	}
}
