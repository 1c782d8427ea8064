package engine

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/donaldgifford/amul-stock-tracker/internal/engine"

// instruments are the OpenTelemetry counterparts of the Prometheus check
// metrics, exported over OTLP by the telemetry package.
type instruments struct {
	checks        metric.Int64Counter
	checkFailures metric.Int64Counter
	checkDuration metric.Float64Histogram
	alerts        metric.Int64Counter
	notifyErrors  metric.Int64Counter
}

func newInstruments(mp metric.MeterProvider) (*instruments, error) {
	m := mp.Meter(meterName)
	var (
		inst instruments
		err  error
	)

	if inst.checks, err = m.Int64Counter("ast.checks",
		metric.WithDescription("Stock checks started."),
	); err != nil {
		return nil, err
	}
	if inst.checkFailures, err = m.Int64Counter("ast.check.failures",
		metric.WithDescription("Stock checks aborted, by stage."),
	); err != nil {
		return nil, err
	}
	if inst.checkDuration, err = m.Float64Histogram("ast.check.duration",
		metric.WithDescription("Duration of a stock check."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if inst.alerts, err = m.Int64Counter("ast.alerts",
		metric.WithDescription("Back-in-stock alerts delivered."),
	); err != nil {
		return nil, err
	}
	if inst.notifyErrors, err = m.Int64Counter("ast.notification.failures",
		metric.WithDescription("Alerts that could not be delivered."),
	); err != nil {
		return nil, err
	}

	return &inst, nil
}

func stageAttr(stage string) metric.AddOption {
	return metric.WithAttributes(attribute.String("stage", stage))
}

// mustInstruments falls back to no-op instruments when the provider rejects
// one; metrics never stop a check from running.
func mustInstruments(mp metric.MeterProvider) *instruments {
	inst, err := newInstruments(mp)
	if err != nil {
		inst, _ = newInstruments(noop.NewMeterProvider())
	}
	return inst
}
