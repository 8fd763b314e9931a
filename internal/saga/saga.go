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

// Package saga runs multi-step provisioning as an ordered list of steps,
// each pairing a forward action with a compensating action.
//
// When a forward action fails, every step whose forward action already
// succeeded is compensated in strict reverse order. Compensation is best
// effort: a failing compensation is logged and the remaining compensations
// still run. The caller always receives the original forward error.
package saga

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/eduplane/eduplane/internal/apperr"
	"github.com/eduplane/eduplane/internal/observability/logger"
	"github.com/eduplane/eduplane/internal/observability/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"
)

// Step is one unit of a saga. Forward performs one mutation and records
// whatever later steps need in state. Compensate undoes exactly what Forward
// wrote; it is nil for read-only steps.
type Step[S any] struct {
	Name       string
	Forward    func(ctx context.Context, state *S) error
	Compensate func(ctx context.Context, state *S) error
}

// RetryPolicy bounds how often a failing compensation is re-attempted.
type RetryPolicy struct {
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// Executor holds the collaborators shared by all saga runs. It keeps no
// per-run state and is safe for concurrent use.
type Executor struct {
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *metrics.SagaInstruments
	retry   RetryPolicy
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger used for step and compensation records.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// WithTracer sets the tracer used for saga and step spans.
func WithTracer(t trace.Tracer) Option {
	return func(e *Executor) { e.tracer = t }
}

// WithMetrics sets the instruments recording run outcomes.
func WithMetrics(m *metrics.SagaInstruments) Option {
	return func(e *Executor) { e.metrics = m }
}

// WithCompensationRetry retries each failing compensation up to maxTries
// attempts in total, backing off exponentially from initial.
func WithCompensationRetry(maxTries uint, initial time.Duration) Option {
	return func(e *Executor) {
		e.retry.MaxTries = maxTries
		e.retry.InitialInterval = initial
	}
}

// NewExecutor creates an executor. Without options it logs to the slog
// default, traces through the global provider and never retries.
func NewExecutor(opts ...Option) *Executor {
	e := &Executor{
		logger: slog.Default(),
		tracer: otel.Tracer("github.com/eduplane/eduplane/internal/saga"),
		retry: RetryPolicy{
			MaxTries:        1,
			InitialInterval: 100 * time.Millisecond,
			MaxInterval:     2 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.retry.MaxTries == 0 {
		e.retry.MaxTries = 1
	}
	if e.retry.MaxInterval < e.retry.InitialInterval {
		e.retry.MaxInterval = e.retry.InitialInterval
	}
	return e
}

// Run executes steps in order against state and returns state when every
// step succeeded. On the first forward failure it compensates the
// already-succeeded steps in reverse order and returns the classified
// forward error.
//
// Run ignores cancellation of ctx: once started, a saga finishes either
// fully applied or fully compensated.
func Run[S any](ctx context.Context, e *Executor, name string, state *S, steps ...Step[S]) (*S, error) {
	if e == nil {
		e = NewExecutor()
	}
	ctx = context.WithoutCancel(ctx)
	ctx, span := e.tracer.Start(ctx, "saga."+name, trace.WithAttributes(
		attribute.String("saga.name", name),
		attribute.Int("saga.steps", len(steps)),
	))
	defer span.End()

	start := time.Now()
	log := e.logger.With(logger.Saga(name))

	// indices of steps whose forward succeeded, in execution order
	journal := make([]int, 0, len(steps))

	for i := range steps {
		err := runForward(ctx, e, name, i, steps[i], state)
		if err == nil {
			journal = append(journal, i)
			continue
		}

		err = apperr.Classify(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.WarnContext(ctx, "saga_step_failed",
			logger.Step(steps[i].Name),
			logger.StepIndex(i),
			logger.ErrorKind(apperr.KindOf(err).Code()),
			logger.Error(err),
		)

		compensate(ctx, e, log, name, steps, journal, state)
		e.metrics.RecordRun(ctx, name, metrics.OutcomeRolledBack, time.Since(start))
		return nil, err
	}

	e.metrics.RecordRun(ctx, name, metrics.OutcomeCompleted, time.Since(start))
	log.DebugContext(ctx, "saga_completed", logger.Duration(time.Since(start).Milliseconds()))
	return state, nil
}

func runForward[S any](ctx context.Context, e *Executor, name string, i int, step Step[S], state *S) (err error) {
	ctx, span := e.tracer.Start(ctx, name+"/"+step.Name, trace.WithAttributes(
		attribute.Int("saga.step_index", i),
	))
	defer span.End()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("step %s panicked: %v", step.Name, r)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	if step.Forward == nil {
		return nil
	}
	return step.Forward(ctx, state)
}

func compensate[S any](ctx context.Context, e *Executor, log *slog.Logger, name string, steps []Step[S], journal []int, state *S) {
	var failures error
	for j := len(journal) - 1; j >= 0; j-- {
		i := journal[j]
		step := steps[i]
		if step.Compensate == nil {
			continue
		}

		attempts, err := e.retryCompensation(ctx, func() error {
			return runCompensate(ctx, step, state)
		})
		e.metrics.RecordCompensation(ctx, name, step.Name, err == nil)
		if err != nil {
			failures = multierr.Append(failures, fmt.Errorf("%s: %w", step.Name, err))
			log.ErrorContext(ctx, "saga_compensation_failed",
				logger.Step(step.Name),
				logger.StepIndex(i),
				logger.Attempts(attempts),
				logger.Error(err),
			)
			continue
		}
		log.DebugContext(ctx, "saga_step_compensated", logger.Step(step.Name), logger.StepIndex(i))
	}

	if failures != nil {
		log.ErrorContext(ctx, "saga_rollback_incomplete",
			slog.Int("failed_compensations", len(multierr.Errors(failures))),
			logger.Error(failures),
		)
		return
	}
	log.InfoContext(ctx, "saga_rolled_back", slog.Int("compensated_steps", len(journal)))
}

func runCompensate[S any](ctx context.Context, step Step[S], state *S) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("compensation %s panicked: %v", step.Name, r)
		}
	}()
	return step.Compensate(ctx, state)
}

func (e *Executor) retryCompensation(ctx context.Context, fn func() error) (int, error) {
	attempts := 0
	op := func() (struct{}, error) {
		attempts++
		return struct{}{}, fn()
	}
	if e.retry.MaxTries <= 1 {
		_, err := op()
		return attempts, err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.retry.InitialInterval
	b.MaxInterval = e.retry.MaxInterval

	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(e.retry.MaxTries),
	)
	return attempts, err
}
