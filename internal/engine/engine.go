// Package engine runs stock checks: it fetches the catalog, diffs it against
// the persisted status map, saves the new map and sends alerts.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"github.com/donaldgifford/amul-stock-tracker/internal/amul"
	"github.com/donaldgifford/amul-stock-tracker/internal/metrics"
	"github.com/donaldgifford/amul-stock-tracker/internal/notify"
	"github.com/donaldgifford/amul-stock-tracker/internal/store"
	domain "github.com/donaldgifford/amul-stock-tracker/pkg/types"
)

var tracer = otel.Tracer("github.com/donaldgifford/amul-stock-tracker/internal/engine")

// Engine orchestrates one stock check at a time.
type Engine struct {
	catalog  amul.Catalog
	store    store.Store
	notifier notify.Notifier
	log      *slog.Logger

	pincode string
	targets domain.TargetSet
	nowFunc func() time.Time
	inst    *instruments

	// mu serializes runs so a manual trigger never overlaps a scheduled one.
	mu   sync.Mutex
	last *domain.RunResult
	// lastMu guards last separately so status reads do not wait on a run.
	lastMu sync.RWMutex
}

// NewEngine creates a new Engine with injected dependencies.
func NewEngine(
	c amul.Catalog,
	s store.Store,
	n notify.Notifier,
	pincode string,
	opts ...EngineOption,
) *Engine {
	eng := &Engine{
		catalog:  c,
		store:    s,
		notifier: n,
		log:      slog.Default(),
		pincode:  pincode,
		targets:  domain.TargetSet{},
		nowFunc:  time.Now,
		inst:     mustInstruments(otel.GetMeterProvider()),
	}
	for _, opt := range opts {
		opt(eng)
	}
	return eng
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.log = l
	}
}

// WithMeterProvider records OpenTelemetry check metrics on mp instead of the
// global provider.
func WithMeterProvider(mp metric.MeterProvider) EngineOption {
	return func(e *Engine) {
		e.inst = mustInstruments(mp)
	}
}

// WithTargets restricts alerts to the given products. An empty set alerts on
// every product.
func WithTargets(t domain.TargetSet) EngineOption {
	return func(e *Engine) {
		if t == nil {
			t = domain.TargetSet{}
		}
		e.targets = t
	}
}

// Pincode returns the delivery pincode being monitored.
func (eng *Engine) Pincode() string {
	return eng.pincode
}

// Targets returns the configured target set.
func (eng *Engine) Targets() domain.TargetSet {
	return eng.targets
}

// LastResult returns the result of the most recent successful run, or nil.
func (eng *Engine) LastResult() *domain.RunResult {
	eng.lastMu.RLock()
	defer eng.lastMu.RUnlock()
	return eng.last
}

// RunCheck performs one full check. A fetch, load or save failure aborts the
// run and is returned; nothing is persisted or sent in that case. Notification
// failures are recorded on the result but do not fail the run.
func (eng *Engine) RunCheck(ctx context.Context) (*domain.RunResult, error) {
	eng.mu.Lock()
	defer eng.mu.Unlock()

	ctx, span := tracer.Start(ctx, "engine.RunCheck")
	defer span.End()

	start := time.Now()
	defer func() {
		elapsed := time.Since(start).Seconds()
		metrics.CheckDuration.Observe(elapsed)
		eng.inst.checkDuration.Record(ctx, elapsed)
	}()
	metrics.ChecksTotal.Inc()
	eng.inst.checks.Add(ctx, 1)

	res := &domain.RunResult{
		RunID:     uuid.NewString(),
		Pincode:   eng.pincode,
		StartedAt: eng.nowFunc(),
	}
	log := eng.log.With("run_id", res.RunID, "pincode", eng.pincode)
	span.SetAttributes(
		attribute.String("run.id", res.RunID),
		attribute.String("run.pincode", eng.pincode),
	)

	fail := func(stage string, err error) (*domain.RunResult, error) {
		metrics.CheckFailuresTotal.WithLabelValues(stage).Inc()
		eng.inst.checkFailures.Add(ctx, 1, stageAttr(stage))
		span.RecordError(err)
		span.SetStatus(codes.Error, stage)
		log.Error("stock check failed", "stage", stage, "error", err)
		return nil, err
	}

	snap, err := eng.catalog.Fetch(ctx, eng.pincode)
	if err != nil {
		return fail("fetch", fmt.Errorf("fetching catalog: %w", err))
	}
	res.Substore = snap.Substore
	res.Listed = len(snap.Products)

	prev, err := eng.store.Load(ctx)
	if err != nil {
		return fail("load", fmt.Errorf("loading state: %w", err))
	}

	diff := Diff(prev, snap, eng.targets)
	res.Statuses = diff.Statuses
	res.Alerts = diff.Alerts
	res.Available = len(snap.Available())

	if err := eng.store.Save(ctx, diff.Statuses); err != nil {
		return fail("save", fmt.Errorf("saving state: %w", err))
	}

	metrics.ProductsListed.Set(float64(res.Listed))
	metrics.ProductsAvailable.Set(float64(res.Available))

	log.Info("catalog checked",
		"substore", res.Substore,
		"listed", res.Listed,
		"available", res.Available,
		"added", len(diff.Added),
		"sold_out", len(diff.SoldOut),
		"alerts", len(diff.Alerts),
	)
	if !eng.targets.All() {
		for _, id := range eng.targets.IDs() {
			if _, ok := diff.Statuses[id]; !ok {
				log.Warn("target not in catalog, targets are product aliases such as paneer-400g",
					"target", id,
				)
			}
		}
	}

	// The map already records these products as available, so a cancelled
	// caller must not cut off the alerts that announce them.
	eng.sendAlerts(context.WithoutCancel(ctx), log, res)

	res.FinishedAt = eng.nowFunc()
	metrics.LastSuccessfulCheck.SetToCurrentTime()
	span.SetAttributes(
		attribute.Int("run.alerts", len(res.Alerts)),
		attribute.Int("run.notified", res.Notified),
	)

	eng.lastMu.Lock()
	eng.last = res
	eng.lastMu.Unlock()

	return res, nil
}

// sendAlerts delivers each alert independently. A failure for one product
// does not stop the others.
func (eng *Engine) sendAlerts(ctx context.Context, log *slog.Logger, res *domain.RunResult) {
	for i := range res.Alerts {
		a := &res.Alerts[i]
		if err := eng.notifier.SendAlert(ctx, notify.NewAlertPayload(a)); err != nil {
			metrics.NotificationFailuresTotal.Inc()
			eng.inst.notifyErrors.Add(ctx, 1)
			res.NotifyFailure = append(res.NotifyFailure, domain.NotificationFailure{
				ProductID: a.Product.ID,
				Error:     err.Error(),
			})
			log.Error("sending notification",
				"product", a.Product.ID,
				"error", err,
			)
			continue
		}

		metrics.AlertsFiredTotal.Inc()
		eng.inst.alerts.Add(ctx, 1)
		res.Notified++
		log.Info("product back in stock",
			"product", a.Product.ID,
			"name", a.Product.DisplayName(),
			"quantity", a.Product.InventoryQuantity,
			"price", a.Product.Price,
		)
	}
}
