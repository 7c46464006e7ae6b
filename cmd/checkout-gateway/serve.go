// cmd/checkout-gateway/serve.go
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/checkout-gateway/internal/config"
	"github.com/example/checkout-gateway/internal/events"
	"github.com/example/checkout-gateway/internal/gateway"
	"github.com/example/checkout-gateway/internal/grpcserver"
	"github.com/example/checkout-gateway/internal/httpserver"
	"github.com/example/checkout-gateway/internal/payment"
	"github.com/example/checkout-gateway/internal/processor"
)

type eventSink interface {
	payment.EventPublisher
	io.Closer
}

func newServeCmd() *cobra.Command {
	var envFile string
	v := config.NewViper()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP gateway",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadDotEnv(envFile); err != nil {
				return err
			}
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, os.Stderr)
		},
	}

	f := cmd.Flags()
	f.StringVar(&envFile, "env-file", "", "load environment variables from this file (default .env when present)")
	f.String("addr", "", "HTTP listen address (HTTP_ADDR)")
	f.String("log-level", "", "debug, info, warn or error (LOG_LEVEL)")
	f.String("grpc-addr", "", "gRPC health listen address, empty to disable (GRPC_ADDR)")
	_ = v.BindPFlag("http_addr", f.Lookup("addr"))
	_ = v.BindPFlag("log_level", f.Lookup("log-level"))
	_ = v.BindPFlag("grpc_addr", f.Lookup("grpc-addr"))
	return cmd
}

func newLogger(w io.Writer, level string) *slog.Logger {
	lvl, _ := config.ParseLevel(level)
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})).
		With("service", "checkout-gateway")
}

func newEventSink(cfg *config.Config, logger *slog.Logger) eventSink {
	brokers := cfg.Brokers()
	if len(brokers) == 0 {
		return events.Nop{}
	}
	logger.Info("publishing intent events", "brokers", brokers, "topic", cfg.KafkaEventsTopic)
	return events.New(brokers, cfg.KafkaEventsTopic, logger)
}

func run(ctx context.Context, cfg *config.Config, logOut io.Writer) error {
	logger := newLogger(logOut, cfg.LogLevel)
	slog.SetDefault(logger)

	stripeClient, err := processor.NewStripe(processor.Config{
		SecretKey: cfg.StripeSecretKey,
		APIURL:    cfg.StripeAPIURL,
		Timeout:   cfg.ProcessorTimeout,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("init stripe client: %w", err)
	}

	sink := newEventSink(cfg, logger)
	defer func() {
		if err := sink.Close(); err != nil {
			logger.Error("close event sink", "err", err)
		}
	}()

	g := gateway.New(gateway.Deps{
		Processor: stripeClient,
		Events:    sink,
		Timeout:   cfg.ProcessorTimeout,
		Logger:    logger,
	})

	api := httpserver.NewAPIServer(g, httpserver.Options{
		Addr:          cfg.HTTPAddr,
		CORSEnabled:   cfg.CORSEnabled,
		AllowedOrigin: cfg.CORSAllowedOrigin,
		// leave room for a full processor round trip
		WriteTimeout:    cfg.ProcessorTimeout + 5*time.Second,
		ShutdownTimeout: cfg.ShutdownTimeout,
		Logger:          logger,
	})

	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return fmt.Errorf("listen grpc %s: %w", cfg.GRPCAddr, err)
		}
		hs := grpcserver.NewHealthServer(logger)
		go func() {
			if err := hs.Serve(lis); err != nil {
				logger.Error("grpc health server", "err", err)
			}
		}()
		go func() {
			<-ctx.Done()
			hs.Drain()
		}()
		defer hs.Stop()
	}

	return api.ListenAndServe(ctx)
}
