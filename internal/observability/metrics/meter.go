// Copyright 2026 The Eduplane Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Config holds metrics configuration
type Config struct {
	Enabled bool
}

// Meter wraps OpenTelemetry meter
type Meter struct {
	meter metric.Meter
}

// New creates a new meter instance backed by the global meter provider.
func New(ctx context.Context, cfg Config, serviceName string) (*Meter, error) {
	if !cfg.Enabled {
		return &Meter{meter: otel.Meter("noop")}, nil
	}
	return &Meter{meter: otel.Meter(serviceName)}, nil
}

// GetMeter returns the underlying meter
func (m *Meter) GetMeter() metric.Meter {
	return m.meter
}

// CreateCounter creates a new counter metric
func (m *Meter) CreateCounter(name, description string) (metric.Int64Counter, error) {
	counter, err := m.meter.Int64Counter(name, metric.WithDescription(description))
	if err != nil {
		return nil, fmt.Errorf("failed to create counter %s: %w", name, err)
	}
	return counter, nil
}

// CreateHistogram creates a new histogram metric
func (m *Meter) CreateHistogram(name, description, unit string) (metric.Float64Histogram, error) {
	histogram, err := m.meter.Float64Histogram(
		name,
		metric.WithDescription(description),
		metric.WithUnit(unit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create histogram %s: %w", name, err)
	}
	return histogram, nil
}

// Saga outcomes
const (
	OutcomeCompleted  = "completed"
	OutcomeRolledBack = "rolled_back"
)

// SagaInstruments records provisioning saga runs and compensations.
// A nil *SagaInstruments is valid and records nothing.
type SagaInstruments struct {
	runs          metric.Int64Counter
	compensations metric.Int64Counter
	duration      metric.Float64Histogram
}

// NewSagaInstruments registers the saga instruments on m.
func NewSagaInstruments(m *Meter) (*SagaInstruments, error) {
	runs, err := m.CreateCounter("saga.runs", "Provisioning saga runs by outcome")
	if err != nil {
		return nil, err
	}
	compensations, err := m.CreateCounter("saga.compensations", "Compensating actions by result")
	if err != nil {
		return nil, err
	}
	duration, err := m.CreateHistogram("saga.duration", "Provisioning saga wall time", "ms")
	if err != nil {
		return nil, err
	}
	return &SagaInstruments{runs: runs, compensations: compensations, duration: duration}, nil
}

// RecordRun records one finished saga.
func (s *SagaInstruments) RecordRun(ctx context.Context, saga, outcome string, elapsed time.Duration) {
	if s == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("saga", saga),
		attribute.String("outcome", outcome),
	)
	s.runs.Add(ctx, 1, attrs)
	s.duration.Record(ctx, float64(elapsed.Milliseconds()), attrs)
}

// RecordCompensation records one compensating action.
func (s *SagaInstruments) RecordCompensation(ctx context.Context, saga, step string, ok bool) {
	if s == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failed"
	}
	s.compensations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("saga", saga),
		attribute.String("step", step),
		attribute.String("result", result),
	))
}
