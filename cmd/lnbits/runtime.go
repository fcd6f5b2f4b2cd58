package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	"github.com/brojonat/lnbits/client"
	"github.com/brojonat/lnbits/service/config"
	"github.com/brojonat/lnbits/service/metrics"
	lnnats "github.com/brojonat/lnbits/service/nats"
)

// runtime is everything a command needs, built from the global flags.
type runtime struct {
	cfg       *config.Config
	client    *client.Client
	logger    *slog.Logger
	metrics   *metrics.Metrics
	publisher lnnats.Publisher
	out       *printer

	metricsServer *http.Server
}

// newPublisher connects to NATS when --nats-url is set. Tests swap it for
// an in-memory publisher.
var newPublisher = func(url string, logger *slog.Logger, m *metrics.Metrics) (lnnats.Publisher, error) {
	pub, err := lnnats.NewPublisher(url, logger, m)
	if err != nil {
		return nil, err
	}
	return pub, nil
}

func newRuntime(c *cli.Context) (*runtime, error) {
	cfg := &config.Config{
		AdminKey:       c.String("admin-key"),
		InvoiceReadKey: c.String("invoice-key"),
		Endpoint:       c.String("endpoint"),
		Timeout:        c.Duration("timeout"),
		LogLevel:       c.String("log-level"),
		NATSURL:        c.String("nats-url"),
		MetricsAddr:    c.String("metrics-addr"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w (set --admin-key/LNBITS_ADMIN_KEY and --invoice-key/LNBITS_INVOICE_READ_KEY)", err)
	}

	out, err := newPrinter(c.App.Writer, c.Bool("json"), c.String("jq"))
	if err != nil {
		return nil, err
	}

	rt := &runtime{
		cfg:    cfg,
		logger: setupLogger(cfg.LogLevel),
		out:    out,
	}

	registry := prometheus.NewRegistry()
	rt.metrics = metrics.NewMetrics(registry)
	if cfg.MetricsAddr != "" {
		rt.serveMetrics(registry)
	}

	transport := metrics.NewInstrumentedTransport(http.DefaultTransport, rt.metrics)
	rt.client, err = client.NewClient(cfg.ClientConfig(transport, rt.logger))
	if err != nil {
		rt.Close()
		return nil, err
	}

	if cfg.NATSURL != "" {
		pub, err := newPublisher(cfg.NATSURL, rt.logger, rt.metrics)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.publisher = pub
	}

	return rt, nil
}

func (rt *runtime) serveMetrics(registry *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	rt.metricsServer = &http.Server{
		Addr:              rt.cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := rt.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			rt.logger.Error("metrics server failed", "addr", rt.cfg.MetricsAddr, "error", err)
		}
	}()
	rt.logger.Info("serving metrics", "addr", rt.cfg.MetricsAddr)
}

// publish sends an event if NATS is configured. Failures are logged only;
// the payment itself already happened.
func (rt *runtime) publish(ctx context.Context, event *lnnats.PaymentEvent) {
	if rt.publisher == nil {
		return
	}
	if err := rt.publisher.PublishPayment(ctx, event); err != nil {
		rt.logger.Error("failed to publish payment event",
			"type", event.Type,
			"payment_hash", event.PaymentHash,
			"error", err,
		)
	}
}

// Close releases the publisher and metrics server.
func (rt *runtime) Close() {
	if rt.publisher != nil {
		if err := rt.publisher.Close(); err != nil {
			rt.logger.Warn("failed to close NATS publisher", "error", err)
		}
	}
	if rt.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		rt.metricsServer.Shutdown(ctx)
	}
}

// withRuntime adapts a command body that needs a runtime into a cli.ActionFunc.
func withRuntime(fn func(c *cli.Context, rt *runtime) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		rt, err := newRuntime(c)
		if err != nil {
			return err
		}
		defer rt.Close()
		return fn(c, rt)
	}
}

// setupLogger creates a structured logger with the given log level.
func setupLogger(levelStr string) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
