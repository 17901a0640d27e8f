// carupload serves signed upload URLs, the metadata index and the realtime
// connection registry, either as an HTTP server or as one of the Lambda
// entry points selected by --mode.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"

	"github.com/mwantia/carupload/config"
	"github.com/mwantia/carupload/handler"
	"github.com/mwantia/carupload/log"
	"github.com/mwantia/carupload/service"
)

// Buildtime variables
var (
	Program = "carupload"
	Version = "0.0.0"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  string
		mode        string
		listen      string
		logLevel    string
		showVersion bool
	)

	flagSet := pflag.NewFlagSet(Program, pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", os.Getenv(config.EnvConfigPath), "path to the YAML config file")
	flagSet.StringVar(&mode, "mode", "http", "one of http, lambda-upload, lambda-connect, lambda-disconnect")
	flagSet.StringVar(&listen, "listen", "", "HTTP listen address (overrides the config)")
	flagSet.StringVar(&logLevel, "log-level", "", "log level (overrides the config)")
	flagSet.BoolVar(&showVersion, "version", false, "print the version and exit")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if showVersion {
		fmt.Printf("%s %s\n", Program, Version)
		return nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if listen != "" {
		cfg.Listen = listen
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	logger := log.NewLogger(Program, log.LoggerOptions{
		Level:   cfg.LogLevel(),
		File:    cfg.Log.File,
		JSON:    cfg.Log.JSON,
		NoColor: cfg.Log.NoColor,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := service.NewFromConfig(ctx, cfg, logger.Named("service"))
	if err != nil {
		return err
	}
	if err := svc.Open(ctx); err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(context.Background()); err != nil {
			logger.Error("Failed to close backends: %v", err)
		}
	}()

	metrics := handler.NewMetrics(prometheus.NewRegistry())
	logger.Info("Starting %s %s in '%s' mode with %s", Program, Version, mode, cfg)

	switch mode {
	case "http":
		return serveHTTP(ctx, cfg.Listen, handler.NewRouter(svc, logger.Named("http"), metrics), logger)
	case "lambda-upload":
		lambda.StartWithOptions(handler.NewLambda(svc, logger.Named("lambda"), metrics).HandleRequest, lambda.WithContext(ctx))
	case "lambda-connect":
		lambda.StartWithOptions(handler.NewLambda(svc, logger.Named("lambda"), metrics).HandleConnect, lambda.WithContext(ctx))
	case "lambda-disconnect":
		lambda.StartWithOptions(handler.NewLambda(svc, logger.Named("lambda"), metrics).HandleDisconnect, lambda.WithContext(ctx))
	default:
		return fmt.Errorf("unknown mode '%s'", mode)
	}
	return nil
}

// serveHTTP serves until ctx is cancelled, then drains open requests.
func serveHTTP(ctx context.Context, addr string, h http.Handler, logger *log.Logger) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Listening on %s", addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
