package main

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/spf13/cobra"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	grpcadapter "github.com/simaogato/finops-backend/internal/adapter/grpc"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the gRPC server and the periodic reminder cycle",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
	return cmd
}

func runServe(ctx context.Context) error {
	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	// Create gRPC server with logging and auth interceptors
	grpcServer := grpclib.NewServer(
		grpclib.ChainUnaryInterceptor(
			grpcadapter.LoggingInterceptor(log),
			grpcadapter.AuthInterceptor(cfg.Server.APIToken),
		),
	)
	grpcadapter.RegisterFinOpsServiceServer(grpcServer, a.server)
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.Server.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Server.Address, err)
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("address", cfg.Server.Address).Msg("gRPC server listening")
		serveErr <- grpcServer.Serve(lis)
	}()

	if cfg.Cadence.Interval > 0 {
		go runCycles(ctx, a, cfg.Cadence.Interval)
	}

	select {
	case err := <-serveErr:
		return fmt.Errorf("failed to serve gRPC server: %w", err)
	case <-ctx.Done():
	}

	// Graceful shutdown
	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(cfg.Server.ShutdownTimeout):
		log.Warn().Msg("Graceful shutdown timed out, forcing stop")
		grpcServer.Stop()
	}

	log.Info().Msg("gRPC server stopped")
	return nil
}

// runCycles runs a reminder cycle over the stored receivables on every tick until ctx is done
func runCycles(ctx context.Context, a *app, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			req, err := newRequest(map[string]interface{}{
				"reference_date": referenceDate(""),
				"dispatch":       true,
			})
			if err != nil {
				log.Error().Err(err).Msg("Scheduled reminder cycle failed")
				continue
			}
			if _, err := a.server.RunReminderCycle(ctx, req); err != nil {
				log.Error().Err(err).Msg("Scheduled reminder cycle failed")
			}
		}
	}
}
