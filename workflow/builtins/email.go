package builtins

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/Azure/go-workflow-engine/workflow"
)

// Message is the formatted email an action hands to a Mailer.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer is the capability the "email" built-in sends through. No real
// SMTP dependency is introduced by this module; production callers
// supply their own Mailer implementation.
type Mailer interface {
	Send(Message) error
}

// LoggingMailer "sends" by writing a structured log record, used as the
// default Mailer so the built-in is runnable out of the box without any
// external configuration.
type LoggingMailer struct {
	Logger *slog.Logger
}

func (m LoggingMailer) Send(msg Message) error {
	logger := m.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("email sent", "to", msg.To, "subject", msg.Subject)
	return nil
}

// InMemoryMailer is a test double that records every message it
// receives instead of sending anything.
type InMemoryMailer struct {
	mu       sync.Mutex
	Messages []Message
}

func (m *InMemoryMailer) Send(msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = append(m.Messages, msg)
	return nil
}

func (m *InMemoryMailer) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message{}, m.Messages...)
}

type emailAction struct {
	mailer  Mailer
	to      string
	subject string
	body    string
}

func newEmailAction(mailer Mailer) func(map[string]interface{}) (workflow.Action, error) {
	return func(config map[string]interface{}) (workflow.Action, error) {
		to, _ := config["to"].(string)
		subject, _ := config["subject"].(string)
		body, _ := config["body"].(string)
		if to == "" {
			return nil, fmt.Errorf("email action requires a %q config string", "to")
		}
		return emailAction{mailer: mailer, to: to, subject: subject, body: body}, nil
	}
}

func (a emailAction) Execute(ctx workflow.Context) workflow.ActionResult {
	if err := a.mailer.Send(Message{To: a.to, Subject: a.subject, Body: a.body}); err != nil {
		return workflow.Failure(fmt.Sprintf("send email: %v", err), nil)
	}
	return workflow.Success(map[string]interface{}{"emailed": true}, nil)
}

func (a emailAction) CanExecute(workflow.Context) bool { return true }
func (a emailAction) Name() string                     { return "email" }
func (a emailAction) Description() string              { return "sends an email via a pluggable Mailer" }
