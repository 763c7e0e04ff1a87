package events

import (
	"context"

	"resto-be/internal/logger"

	"go.uber.org/zap"
)

// LogBus only logs events. Used when no broker is configured.
type LogBus struct{}

func NewLogBus() *LogBus {
	return &LogBus{}
}

func (LogBus) Publish(ctx context.Context, name string, payload any) error {
	env := NewEnvelope(name, payload)
	logger.FromCtx(ctx).Info("event",
		zap.String("event", name),
		zap.String("event_id", env.ID),
		zap.Any("payload", payload),
	)
	return nil
}
