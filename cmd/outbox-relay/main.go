// The outbox-relay drains the IAM outbox table and publishes pending
// entries to NATS. It is the external delivery leg of the transactional
// outbox: the core only writes durable rows, this process moves them.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Migorithm/IAM/adapters/nats"
	"github.com/Migorithm/IAM/adapters/postgres"
	promadapter "github.com/Migorithm/IAM/adapters/prometheus"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(log)

	if err := run(log); err != nil && err != context.Canceled {
		log.Error("relay exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCfg, err := postgres.ConfigFromEnv()
	if err != nil {
		return err
	}
	natsCfg, err := nats.ConfigFromEnv()
	if err != nil {
		return err
	}

	store, err := postgres.Open(ctx, pgCfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	reg := prometheus.NewRegistry()
	relayMetrics := promadapter.NewRelayMetrics(reg)

	promMux := http.NewServeMux()
	promMux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	promServer := &http.Server{Addr: natsCfg.MetricsAddr, Handler: promMux}
	go func() {
		log.Info("metrics server starting", slog.String("addr", natsCfg.MetricsAddr))
		if err := promServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server error", slog.Any("error", err))
		}
	}()
	defer promServer.Shutdown(context.Background())

	relay, err := nats.NewRelay(nats.RelayConfig{
		Connect:       nats.ConnectURL(natsCfg.URL),
		Sessions:      store,
		Log:           log,
		Metrics:       relayMetrics,
		SubjectPrefix: natsCfg.SubjectPrefix,
		BatchSize:     natsCfg.BatchSize,
		PollInterval:  natsCfg.PollInterval,
	})
	if err != nil {
		return err
	}
	defer relay.Close()

	return relay.Run(ctx)
}
