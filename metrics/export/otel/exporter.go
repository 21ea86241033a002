package otel

import (
	"context"
	"errors"
	"fmt"

	goToken "github.com/MrEthical07/goToken"
	"github.com/MrEthical07/goToken/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	// ErrNilMeter is returned when no meter is supplied.
	ErrNilMeter = errors.New("nil meter")
	// ErrNilSource is returned when no engine or snapshot source is supplied.
	ErrNilSource = errors.New("nil metrics source")
)

// Source is what the exporter reads on each collection. *goToken.Engine
// satisfies it.
type Source interface {
	MetricsSnapshot() goToken.MetricsSnapshot
	AuditDropped() uint64
}

// observeFunc reports one instrument's value from a snapshot taken for the
// current collection cycle.
type observeFunc func(o metric.Observer, snap goToken.MetricsSnapshot, src Source)

// OTelExporter publishes engine metrics as observable instruments:
//
//   - one Int64ObservableCounter per engine counter
//   - one Int64ObservableGauge per histogram named <name>_bucket, with a
//     cumulative point per "le" attribute value
//   - one Int64ObservableGauge per histogram named <name>_count
//   - the audit drop counter
type OTelExporter struct {
	registration metric.Registration
}

// NewOTelExporter registers instruments on meter that read from engine.
func NewOTelExporter(meter metric.Meter, engine *goToken.Engine) (*OTelExporter, error) {
	if engine == nil {
		return nil, ErrNilSource
	}
	return NewOTelExporterFromSource(meter, engine)
}

// NewOTelExporterFromSource registers instruments on meter that read from source.
func NewOTelExporterFromSource(meter metric.Meter, source Source) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	var (
		instruments []metric.Observable
		observers   []observeFunc
	)
	counter := func(name, help string, read func(goToken.MetricsSnapshot, Source) uint64) error {
		ins, err := meter.Int64ObservableCounter(name, metric.WithDescription(help))
		if err != nil {
			return fmt.Errorf("create observable counter %s: %w", name, err)
		}
		instruments = append(instruments, ins)
		observers = append(observers, func(o metric.Observer, snap goToken.MetricsSnapshot, src Source) {
			o.ObserveInt64(ins, int64(read(snap, src)))
		})
		return nil
	}

	for _, def := range internaldefs.CounterDefs {
		id := def.ID
		if err := counter(def.Name, def.Help, func(snap goToken.MetricsSnapshot, _ Source) uint64 {
			return snap.Counters[id]
		}); err != nil {
			return nil, err
		}
	}
	for _, def := range internaldefs.HistogramDefs {
		fns, ins, err := histogramInstruments(meter, def)
		if err != nil {
			return nil, err
		}
		instruments = append(instruments, ins...)
		observers = append(observers, fns)
	}
	if err := counter(internaldefs.AuditDroppedName, internaldefs.AuditDroppedHelp, func(_ goToken.MetricsSnapshot, src Source) uint64 {
		return src.AuditDropped()
	}); err != nil {
		return nil, err
	}

	registration, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		snap := source.MetricsSnapshot()
		for _, observe := range observers {
			observe(o, snap, source)
		}
		return nil
	}, instruments...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	return &OTelExporter{registration: registration}, nil
}

// leAttrs are the per-bucket attribute sets, built once.
var leAttrs = func() []metric.ObserveOption {
	out := make([]metric.ObserveOption, len(internaldefs.HistogramBounds))
	for i, bound := range internaldefs.HistogramBounds {
		out[i] = metric.WithAttributes(attribute.String("le", bound))
	}
	return out
}()

func histogramInstruments(meter metric.Meter, def internaldefs.HistogramDef) (observeFunc, []metric.Observable, error) {
	buckets, err := meter.Int64ObservableGauge(def.Name+"_bucket", metric.WithDescription(def.Help+" Cumulative count per upper bound."))
	if err != nil {
		return nil, nil, fmt.Errorf("create histogram bucket gauge %s: %w", def.Name, err)
	}
	count, err := meter.Int64ObservableGauge(def.Name+"_count", metric.WithDescription(def.Help+" Total samples."))
	if err != nil {
		return nil, nil, fmt.Errorf("create histogram count gauge %s: %w", def.Name, err)
	}

	id := def.ID
	observe := func(o metric.Observer, snap goToken.MetricsSnapshot, _ Source) {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snap.Histograms[id]))
		for i, total := range cumulative {
			o.ObserveInt64(buckets, int64(total), leAttrs[i])
		}
		o.ObserveInt64(count, int64(cumulative[len(cumulative)-1]))
	}
	return observe, []metric.Observable{buckets, count}, nil
}

// Close unregisters the collection callback.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
