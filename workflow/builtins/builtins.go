// Package builtins ships the bundled "known built-in short name" action
// implementations (log, delay, http, email, condition) resolved by the
// ActionRegistry's tier 2. Register wires every bundled action into a
// registry.Registry; callers normally call it once at program start.
package builtins

import (
	"log/slog"

	"github.com/Azure/go-workflow-engine/workflow/registry"
)

// Register installs all bundled actions into reg under their built-in
// short names: "log", "delay", "http", "email", "condition".
func Register(reg *registry.Registry) {
	reg.RegisterBuiltin("log", newLogAction)
	reg.RegisterBuiltin("delay", newDelayAction)
	reg.RegisterBuiltin("http", newHTTPAction)
	reg.RegisterBuiltin("email", newEmailAction(defaultMailer))
	reg.RegisterBuiltin("condition", newConditionAction)
}

// RegisterWithMailer is like Register but lets the caller supply the
// Mailer the "email" action sends through, e.g. an in-memory test
// double in tests or a real SMTP-backed Mailer in production.
func RegisterWithMailer(reg *registry.Registry, mailer Mailer) {
	Register(reg)
	reg.RegisterBuiltin("email", newEmailAction(mailer))
}

var defaultMailer Mailer = LoggingMailer{Logger: slog.Default()}
