package cmd

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/donaldgifford/amul-stock-tracker/internal/amul"
	"github.com/donaldgifford/amul-stock-tracker/internal/config"
	"github.com/donaldgifford/amul-stock-tracker/internal/engine"
	"github.com/donaldgifford/amul-stock-tracker/internal/notify"
	"github.com/donaldgifford/amul-stock-tracker/internal/store"
	"github.com/donaldgifford/amul-stock-tracker/internal/telemetry"
	domain "github.com/donaldgifford/amul-stock-tracker/pkg/types"
)

// Publish pacing applied when a daily ntfy limit is configured.
const (
	publishRate  = 1.0
	publishBurst = 5
)

// newCatalog builds the storefront fetcher for the configured mode.
func newCatalog(cfg *config.Config, log *slog.Logger) (amul.Catalog, error) {
	r := cfg.Retailer
	if r.Mode == config.ModeBrowser {
		return amul.NewBrowserCatalog(
			amul.WithBrowserBaseURL(r.BaseURL),
			amul.WithBrowserCategory(cfg.Monitor.Category),
			amul.WithBrowserUserAgent(r.UserAgent),
			amul.WithBrowserTimeout(r.BrowserTimeout),
			amul.WithBrowserLogger(log),
		), nil
	}
	return amul.NewClient(
		amul.WithBaseURL(r.BaseURL),
		amul.WithCategory(cfg.Monitor.Category),
		amul.WithPageLimit(r.PageLimit),
		amul.WithTimeout(r.Timeout),
		amul.WithUserAgent(r.UserAgent),
		amul.WithLogger(log),
	)
}

// newNotifier returns the ntfy notifier, or a no-op one when no topic is set.
func newNotifier(cfg *config.Config, log *slog.Logger) notify.Notifier {
	n := cfg.Notifications.Ntfy
	if n.Topic == "" {
		log.Warn("NTFY_TOPIC not set, notifications disabled")
		return notify.NewNoOpNotifier(log)
	}
	opts := []notify.NtfyOption{
		notify.WithHTTPClient(&http.Client{Timeout: n.Timeout}),
		notify.WithPriority(n.Priority),
		notify.WithTags(n.Tags),
	}
	if n.DailyLimit > 0 {
		opts = append(opts, notify.WithQuota(
			notify.NewPublishQuota(publishRate, publishBurst, n.DailyLimit),
		))
	}
	return notify.NewNtfyNotifier(n.Server, n.Topic, opts...)
}

// newEngine wires the full check pipeline. The caller closes the returned
// store.
func newEngine(ctx context.Context, cfg *config.Config, log *slog.Logger) (*engine.Engine, store.Store, error) {
	catalog, err := newCatalog(cfg, log)
	if err != nil {
		return nil, nil, err
	}

	st, err := store.New(ctx, &cfg.State, log)
	if err != nil {
		return nil, nil, err
	}

	eng := engine.NewEngine(catalog, st, newNotifier(cfg, log), cfg.Monitor.Pincode,
		engine.WithLogger(log),
		engine.WithTargets(domain.ParseTargets(cfg.Monitor.Targets)),
	)
	return eng, st, nil
}

func closeStore(st store.Store, log *slog.Logger) {
	if err := st.Close(); err != nil {
		log.Warn("closing state store", "error", err)
	}
}

// setupTelemetry installs tracing and returns a function that flushes it.
func setupTelemetry(ctx context.Context, cfg *config.Config, log *slog.Logger) (func(), error) {
	p, shutdown, err := telemetry.Setup(ctx, cfg.Telemetry, Version)
	if err != nil {
		return nil, err
	}
	if p.Exporter {
		log.Info("exporting telemetry", "endpoint", cfg.Telemetry.OTLPEndpoint)
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			log.Warn("flushing telemetry", "error", err)
		}
	}, nil
}
