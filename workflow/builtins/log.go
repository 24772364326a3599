package builtins

import (
	"context"
	"log/slog"

	"github.com/Azure/go-workflow-engine/workflow"
)

// logAction writes a structured slog record and always succeeds; a
// "message" config value that is not a string is ignored in favour of
// the default message.
type logAction struct {
	level slog.Level
}

func newLogAction(config map[string]interface{}) (workflow.Action, error) {
	level := slog.LevelInfo
	if raw, ok := config["level"].(string); ok {
		switch raw {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}
	return logAction{level: level}, nil
}

func (a logAction) Execute(ctx workflow.Context) workflow.ActionResult {
	message := "workflow step"
	if raw, ok := ctx.ConfigValue("message"); ok {
		if s, ok := raw.(string); ok {
			message = s
		}
	}
	slog.Default().Log(context.Background(), a.level, message,
		"workflow_id", ctx.WorkflowID(),
		"step_id", ctx.StepID(),
	)
	return workflow.Success(nil, nil)
}

func (a logAction) CanExecute(workflow.Context) bool { return true }
func (a logAction) Name() string                     { return "log" }
func (a logAction) Description() string              { return "writes a structured log record" }
