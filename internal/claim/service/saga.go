package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// compensation undoes one external step.
type compensation struct {
	step string
	undo func(ctx context.Context) error
}

// saga runs external calls in order and remembers how to undo each one.
// A saga is used by a single goroutine.
type saga struct {
	tracer        trace.Tracer
	logger        *slog.Logger
	compensations []compensation
	onCompensate  func(step string, err error)
}

func newSaga(tracer trace.Tracer, logger *slog.Logger, onCompensate func(step string, err error)) *saga {
	return &saga{tracer: tracer, logger: logger, onCompensate: onCompensate}
}

// run executes do inside a span. When do succeeds and undo is not nil, undo
// is registered for compensation.
func (s *saga) run(ctx context.Context, step string, do func(ctx context.Context) error, undo func(ctx context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, "claim."+step, trace.WithAttributes(attribute.String("saga.step", step)))
	defer span.End()

	if err := do(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if undo != nil {
		s.compensations = append(s.compensations, compensation{step: step, undo: undo})
	}
	return nil
}

// compensate undoes completed steps in reverse order. Every compensation is
// attempted even when an earlier one fails, and cancellation of ctx does not
// stop the rollback. The joined failures are returned.
func (s *saga) compensate(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)
	ctx, span := s.tracer.Start(ctx, "claim.compensate",
		trace.WithAttributes(attribute.Int("saga.compensations", len(s.compensations))))
	defer span.End()

	var errs []error
	for i := len(s.compensations) - 1; i >= 0; i-- {
		c := s.compensations[i]
		err := c.undo(ctx)
		if s.onCompensate != nil {
			s.onCompensate(c.step, err)
		}
		if err != nil {
			s.logger.ErrorContext(ctx, "claim compensation failed", "step", c.step, "error", err)
			errs = append(errs, err)
		}
	}
	s.compensations = nil

	if err := errors.Join(errs...); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "compensation incomplete")
		return err
	}
	return nil
}

func (s *saga) pending() int {
	return len(s.compensations)
}
