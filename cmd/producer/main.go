package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/edujtm/rabbit-values-producer/internal/api"
	"github.com/edujtm/rabbit-values-producer/internal/config"
	"github.com/edujtm/rabbit-values-producer/internal/httputil"
	"github.com/edujtm/rabbit-values-producer/internal/metrics"
	"github.com/edujtm/rabbit-values-producer/internal/rabbitmq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func main() {
	defaults, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	app := &cli.App{
		Name:   "producer",
		Usage:  "Publish values received over HTTP to a RabbitMQ queue",
		Flags:  runFlags(defaults),
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("Producer stopped with an error")
	}
}

func run(c *cli.Context) error {
	cfg := configFromFlags(c)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	setupLogger(cfg, os.Stdout)

	client := rabbitmq.NewClient()
	connectCtx, cancel := context.WithTimeout(c.Context, cfg.ConnectTimeout)
	err := client.Connect(connectCtx, cfg.RabbitURL)
	cancel()
	if err != nil {
		return err
	}

	publisher := client.NewPublisher(cfg.Queue)
	if cfg.DeclareOnStartup {
		if err := publisher.Declare(); err != nil {
			closeClient(client)
			return fmt.Errorf("declaring queue %q: %w", cfg.Queue, err)
		}
		log.Info().Str("queue", cfg.Queue).Msg("Queue declared")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.New(reg)
	if err != nil {
		closeClient(client)
		return fmt.Errorf("registering metrics: %w", err)
	}

	mux := http.NewServeMux()
	api.NewHandler(publisher, client, m).Register(mux)
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      mux,
		IdleTimeout:  1 * time.Minute,
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
	}

	shutdownFinished := httputil.SetupGracefulShutdown(c.Context, server, cfg.ShutdownTimeout, func() {
		closeClient(client)
	})

	log.Info().
		Str("addr", server.Addr).
		Str("queue", cfg.Queue).
		Msg("Listening for values")

	err = server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		closeClient(client)
		return fmt.Errorf("listening for connections: %w", err)
	}

	<-shutdownFinished
	return nil
}

func closeClient(client io.Closer) {
	if err := client.Close(); err != nil {
		log.Warn().Err(err).Msg("Error closing rabbitmq client")
	}
}

func setupLogger(cfg config.Config, out io.Writer) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.LogFormat == "json" {
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: out})
}
