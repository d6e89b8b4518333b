package audit

import (
	"context"
	"log/slog"

	"namespaces/pkg/requestcontext"
)

// Publisher records events. publisher.Publisher is the standard implementation.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}

// Emitter writes an audit log line for every event and forwards it to the
// publisher when one is configured. Either side may be nil.
type Emitter struct {
	logger    *slog.Logger
	publisher Publisher
}

func NewEmitter(logger *slog.Logger, publisher Publisher) *Emitter {
	return &Emitter{logger: logger, publisher: publisher}
}

// Emit logs event and publishes it. A publish failure is returned so callers
// inside a transaction can abort; the log line is written regardless.
func (e *Emitter) Emit(ctx context.Context, action AuditEvent, event Event) error {
	event.Action = string(action)
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}

	if e.logger != nil {
		args := []any{
			"namespace", event.Namespace,
			"event", event.Action,
			"log_type", "audit",
		}
		if event.Entry != "" {
			args = append(args, "entry", event.Entry)
		}
		if event.Subject != "" {
			args = append(args, "subject", event.Subject)
		}
		if event.ActorID != "" {
			args = append(args, "actor_id", event.ActorID)
		}
		if event.Mint != "" {
			args = append(args, "mint", event.Mint)
		}
		if event.Reason != "" {
			args = append(args, "reason", event.Reason)
		}
		if event.RequestID != "" {
			args = append(args, "request_id", event.RequestID)
		}
		e.logger.InfoContext(ctx, event.Action, args...)
	}

	if e.publisher == nil {
		return nil
	}
	return e.publisher.Emit(ctx, event)
}
