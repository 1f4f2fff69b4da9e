// Package metrics exports simulation counters through OpenTelemetry.
package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"infinite-flight/internal/sim"
)

const instrumentationName = "infinite-flight/internal/metrics"

// Meter returns the package meter from the global provider.
func Meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// Sim records per-frame simulation metrics. It implements sim.Observer.
type Sim struct {
	crashes      metric.Int64Counter
	objectives   metric.Int64Counter
	recentered   metric.Int64Counter
	particles    metric.Int64Histogram
	stepDuration metric.Float64Histogram
}

// New creates the instruments on m.
func New(m metric.Meter) (*Sim, error) {
	var s Sim
	var err error

	s.crashes, err = m.Int64Counter(
		"flightsim.crashes",
		metric.WithDescription("Ground impacts"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create crashes counter: %w", err)
	}

	s.objectives, err = m.Int64Counter(
		"flightsim.objectives",
		metric.WithDescription("Goals flown through"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create objectives counter: %w", err)
	}

	s.recentered, err = m.Int64Counter(
		"flightsim.chunks.recentered",
		metric.WithDescription("Terrain chunks relocated and resampled"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create recentered counter: %w", err)
	}

	s.particles, err = m.Int64Histogram(
		"flightsim.particles",
		metric.WithDescription("Live crash particles per tick"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create particles histogram: %w", err)
	}

	s.stepDuration, err = m.Float64Histogram(
		"flightsim.step.duration",
		metric.WithDescription("Simulation tick processing time"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create step duration histogram: %w", err)
	}

	return &s, nil
}

// Observe implements sim.Observer.
func (s *Sim) Observe(f sim.Frame) {
	ctx := context.Background()
	state := metric.WithAttributes(attribute.String("state", string(f.State)))

	for _, ev := range f.Events {
		switch ev.Type {
		case sim.EventCrash:
			s.crashes.Add(ctx, 1)
		case sim.EventGoalCompleted:
			s.objectives.Add(ctx, 1)
		case sim.EventRecentered:
			s.recentered.Add(ctx, int64(len(ev.Slots)))
		}
	}
	s.particles.Record(ctx, int64(len(f.Particles)), state)
	s.stepDuration.Record(ctx, float64(f.Elapsed.Microseconds())/1000, state)
}
