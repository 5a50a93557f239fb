// replay-worker compresses replay segments for a parent process.
//
// Requests are read from stdin and responses written to stdout, both as MessagePack maps. Logs
// go to stderr. The process exits when stdin is closed or on SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/teenjuna/replay/deflate"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	var (
		configPath  string
		level       int
		logLevel    string
		metricsAddr string
	)

	flagSet := pflag.NewFlagSet("replay-worker", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&configPath, "config", "", "path to a YAML config file")
	flagSet.IntVar(&level, "level", -1, "zlib compression level (-2..9)")
	flagSet.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flagSet.StringVar(&metricsAddr, "metrics-addr", "", "address to serve Prometheus metrics on")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}

	cfg := &Config{}
	if configPath != "" {
		loaded, err := LoadFile(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if flagSet.Changed("level") {
		cfg.Level = &level
	}
	if flagSet.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flagSet.Changed("metrics-addr") {
		cfg.MetricsAddr = metricsAddr
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	slogLevel, _ := parseLogLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slogLevel}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, logger, stdin, stdout)
}

func serve(ctx context.Context, cfg *Config, logger *slog.Logger, r io.Reader, w io.Writer) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var (
		stream = deflate.NewStream(r, w)
		worker = deflate.NewWorker(stream.WorkerChannel(), func(c *deflate.WorkerConfig) {
			c.Level(*cfg.Level).
				Logger(logger).
				Prometheus(deflate.Prometheus(registry))
		})
		group, gctx = errgroup.WithContext(ctx)
		done        = make(chan struct{})
	)

	// A blocked read doesn't observe gctx, so the worker runs outside the group and serve
	// returns on cancellation without waiting for it.
	result := make(chan error, 1)
	go func() {
		defer close(done)
		logger.Info("worker started", "level", *cfg.Level)
		result <- worker.Run(gctx)
	}()
	group.Go(func() error {
		select {
		case err := <-result:
			if err != nil {
				return fmt.Errorf("run worker: %w", err)
			}
			logger.Info("worker stopped")
			return nil
		case <-gctx.Done():
			logger.Info("worker interrupted")
			if err := stream.Close(); err != nil {
				logger.Warn("failed to close stream", "error", err)
			}
			return nil
		}
	})

	if cfg.MetricsAddr != "" {
		server := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		group.Go(func() error {
			logger.Info("serving metrics", "addr", cfg.MetricsAddr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve metrics: %w", err)
			}
			return nil
		})
		group.Go(func() error {
			select {
			case <-gctx.Done():
			case <-done:
			}
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	return group.Wait()
}
