// Package promsink implements events.Sink by incrementing
// prometheus/client_golang counters: one for every event by type and
// workflow name, and one for StepFailed events by workflow name and
// step id. It records no durations or histograms.
package promsink

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Azure/go-workflow-engine/workflow/events"
)

type Sink struct {
	eventsTotal *prometheus.CounterVec
	stepFailures *prometheus.CounterVec
}

// New registers its metrics against reg. Pass prometheus.NewRegistry()
// in tests to avoid collisions with the global default registry.
func New(reg prometheus.Registerer) *Sink {
	s := &Sink{
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "workflow_events_total",
			Help: "Count of workflow lifecycle events emitted, by type and workflow name.",
		}, []string{"type", "workflow"}),
		stepFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "workflow_step_failures_total",
			Help: "Count of step failures, by workflow name and step id.",
		}, []string{"workflow", "step_id"}),
	}
	reg.MustRegister(s.eventsTotal, s.stepFailures)
	return s
}

func (s *Sink) Emit(ev events.Event) error {
	s.eventsTotal.WithLabelValues(string(ev.Type), ev.WorkflowName).Inc()
	if ev.Type == events.TypeStepFailed {
		s.stepFailures.WithLabelValues(ev.WorkflowName, ev.StepID).Inc()
	}
	return nil
}
