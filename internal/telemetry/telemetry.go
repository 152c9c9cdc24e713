// Package telemetry exports engine meters through OpenTelemetry and serves
// them in Prometheus format.
package telemetry

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/cwbudde/algo-utau/synth"
)

const meterName = "github.com/cwbudde/algo-utau/synth"

// Source is the engine state observed by the meters. All methods must be
// safe to call from a goroutine other than the audio one.
type Source interface {
	Amplitude() float32
	Stats() synth.Stats
	Controller() *synth.Controller
}

// Provider owns the meter provider and the /metrics handler.
type Provider struct {
	meters  *sdkmetric.MeterProvider
	handler http.Handler
}

// Setup builds a Prometheus-backed meter provider and registers the engine
// instruments on it. When the exporter cannot be created metrics are still
// collected but Handler returns nil.
func Setup(src Source, logger *slog.Logger) (*Provider, error) {
	p := &Provider{}
	exporter, err := prometheus.New()
	if err != nil {
		logger.Warn("failed to initialize prometheus exporter", slog.String("error", err.Error()))
		p.meters = sdkmetric.NewMeterProvider()
	} else {
		p.meters = sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
		p.handler = promhttp.Handler()
	}
	if err := Register(p.meters.Meter(meterName), src); err != nil {
		_ = p.meters.Shutdown(context.Background())
		return nil, err
	}
	return p, nil
}

// Handler serves the Prometheus exposition, or nil without an exporter.
func (p *Provider) Handler() http.Handler { return p.handler }

// Shutdown flushes and stops the meter provider.
func (p *Provider) Shutdown(ctx context.Context) error { return p.meters.Shutdown(ctx) }

// Register creates the engine instruments on meter. Values are read from src
// on every collection; nothing is recorded on the audio goroutine.
func Register(meter metric.Meter, src Source) error {
	amplitude, err := meter.Float64ObservableGauge("utau.engine.amplitude",
		metric.WithDescription("Mean absolute output level of the last block"))
	if err != nil {
		return err
	}
	voices, err := meter.Int64ObservableGauge("utau.engine.voices",
		metric.WithDescription("Voices alive after the last block"))
	if err != nil {
		return err
	}
	pending, err := meter.Int64ObservableGauge("utau.control.pending",
		metric.WithDescription("Control messages waiting for the next block"))
	if err != nil {
		return err
	}

	counters := []struct {
		name, desc string
		read       func(synth.Stats, *synth.Controller) uint64
		inst       metric.Int64ObservableCounter
	}{
		{name: "utau.engine.blocks", desc: "Blocks processed",
			read: func(s synth.Stats, _ *synth.Controller) uint64 { return s.Blocks }},
		{name: "utau.notes.started", desc: "Notes that started a voice",
			read: func(s synth.Stats, _ *synth.Controller) uint64 { return s.NotesStarted }},
		{name: "utau.notes.dropped", desc: "Notes rejected because a voice was still sounding",
			read: func(s synth.Stats, _ *synth.Controller) uint64 { return s.NotesDropped }},
		{name: "utau.notes.unresolved", desc: "Notes whose phoneme had no playable sample",
			read: func(s synth.Stats, _ *synth.Controller) uint64 { return s.NotesUnresolved }},
		{name: "utau.reshape.failures", desc: "Blocks rendered silent because re-pitching failed",
			read: func(s synth.Stats, _ *synth.Controller) uint64 { return s.ReshapeFailures }},
		{name: "utau.control.applied", desc: "Control messages applied by the engine",
			read: func(s synth.Stats, _ *synth.Controller) uint64 { return s.ControlApplied }},
		{name: "utau.control.dropped", desc: "Control messages rejected on a full queue",
			read: func(_ synth.Stats, c *synth.Controller) uint64 { return c.Dropped() }},
	}
	instruments := []metric.Observable{amplitude, voices, pending}
	for i := range counters {
		c, err := meter.Int64ObservableCounter(counters[i].name, metric.WithDescription(counters[i].desc))
		if err != nil {
			return err
		}
		counters[i].inst = c
		instruments = append(instruments, c)
	}

	_, err = meter.RegisterCallback(func(ctx context.Context, obs metric.Observer) error {
		stats := src.Stats()
		ctrl := src.Controller()
		obs.ObserveFloat64(amplitude, float64(src.Amplitude()))
		obs.ObserveInt64(voices, int64(stats.ActiveVoices))
		obs.ObserveInt64(pending, int64(ctrl.Pending()))
		for _, c := range counters {
			obs.ObserveInt64(c.inst, int64(c.read(stats, ctrl)))
		}
		return nil
	}, instruments...)
	return err
}
