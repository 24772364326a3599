// Package logsink implements events.Sink by writing each event as a
// structured log/slog record.
package logsink

import (
	"log/slog"

	"github.com/Azure/go-workflow-engine/workflow/events"
)

type Sink struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{logger: logger}
}

func (s *Sink) Emit(ev events.Event) error {
	attrs := []any{
		"event", string(ev.Type),
		"instance_id", ev.InstanceID,
		"workflow", ev.WorkflowName,
	}
	if ev.StepID != "" {
		attrs = append(attrs, "step_id", ev.StepID)
	}
	if ev.Error != "" {
		attrs = append(attrs, "error", ev.Error)
	}
	if ev.Attempt != 0 {
		attrs = append(attrs, "attempt", ev.Attempt)
	}
	if ev.Reason != "" {
		attrs = append(attrs, "reason", ev.Reason)
	}
	s.logger.Info("workflow event", attrs...)
	return nil
}
