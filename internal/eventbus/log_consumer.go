package eventbus

import (
	"context"

	"go.uber.org/zap"

	"github.com/matthewbaird/abiconsole/internal/event"
)

// LogConsumer logs engine events for observability.
type LogConsumer struct {
	log *zap.Logger
}

func NewLogConsumer(log *zap.Logger) *LogConsumer {
	return &LogConsumer{log: log.With(zap.String("component", "events"))}
}

func (c *LogConsumer) HandleEvent(_ context.Context, evt any) error {
	switch e := evt.(type) {
	case event.StateChanged:
		fields := []zap.Field{
			zap.String("operation", e.Operation),
			zap.String("phase", e.Phase),
			zap.String("call_id", e.CallID),
			zap.Uint64("generation", e.Generation),
		}
		if e.TxHash != "" {
			fields = append(fields, zap.String("tx", e.TxHash))
		}
		if e.Error != "" {
			fields = append(fields, zap.String("error", e.Error))
			c.log.Warn("operation state", fields...)
			return nil
		}
		c.log.Debug("operation state", fields...)
	case event.CallSuperseded:
		c.log.Debug("superseded outcome",
			zap.String("operation", e.Operation),
			zap.String("outcome", e.Outcome),
			zap.String("call_id", e.CallID),
			zap.Uint64("generation", e.Generation))
	case event.SchemaLoaded:
		c.log.Info("interface loaded",
			zap.Uint64("generation", e.Generation),
			zap.String("digest", e.SchemaDigest),
			zap.Int("operations", len(e.Operations)))
	}
	return nil
}
