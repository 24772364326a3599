package sqlstore

import (
	"time"

	"github.com/Azure/go-workflow-engine/workflow"
)

// serializedDefinition is the JSON-friendly projection of a
// workflow.Definition, since Definition itself exposes no exported
// fields (by design: it is an immutable value type accessed only
// through constructors and accessors).
type serializedDefinition struct {
	Name        string                    `json:"name"`
	Version     string                    `json:"version"`
	StepOrder   []string                  `json:"step_order"`
	Steps       map[string]serializedStep `json:"steps"`
	Transitions []workflow.Transition     `json:"transitions"`
	Metadata    map[string]interface{}    `json:"metadata"`
}

type serializedStep struct {
	ID              string                 `json:"id"`
	ActionRef       string                 `json:"action_ref"`
	Config          map[string]interface{} `json:"config"`
	TimeoutSeconds  float64                `json:"timeout_seconds"`
	RetryAttempts   int                    `json:"retry_attempts"`
	CompensationRef string                 `json:"compensation_ref"`
	Conditions      []string               `json:"conditions"`
	Prerequisites   []string               `json:"prerequisites"`
}

func serializeDefinition(def workflow.Definition) serializedDefinition {
	steps := map[string]serializedStep{}
	var order []string
	for _, s := range def.Steps() {
		order = append(order, s.ID())
		steps[s.ID()] = serializedStep{
			ID:              s.ID(),
			ActionRef:       s.ActionRef(),
			Config:          s.Config(),
			TimeoutSeconds:  s.Timeout().Seconds(),
			RetryAttempts:   s.RetryAttempts(),
			CompensationRef: s.CompensationRef(),
			Conditions:      s.Conditions(),
			Prerequisites:   s.Prerequisites(),
		}
	}
	return serializedDefinition{
		Name:        def.Name(),
		Version:     def.Version(),
		StepOrder:   order,
		Steps:       steps,
		Transitions: def.Transitions(),
		Metadata:    def.Metadata(),
	}
}

func deserializeDefinition(s serializedDefinition) (workflow.Definition, error) {
	steps := map[string]workflow.Step{}
	for id, sd := range s.Steps {
		steps[id] = workflow.NewStep(sd.ID, sd.ActionRef,
			workflow.WithConfig(sd.Config),
			workflow.WithTimeout(time.Duration(sd.TimeoutSeconds*float64(time.Second))),
			workflow.WithRetryAttempts(sd.RetryAttempts),
			workflow.WithCompensation(sd.CompensationRef),
			workflow.WithConditions(sd.Conditions...),
			workflow.WithPrerequisites(sd.Prerequisites...),
		)
	}
	return workflow.NewDefinition(s.Name, s.Version, s.StepOrder, steps, s.Transitions, s.Metadata)
}
