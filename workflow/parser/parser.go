// Package parser builds a workflow.Definition from a declarative
// representation: an already-decoded map, raw YAML, or raw JSON. The
// recognized field set is documented in the declarative workflow
// format; the parser normalizes list-form steps into id-keyed form and
// synthesizes sequential transitions when none are given, producing a
// Definition identical in semantics to what the Builder produces.
package parser

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Azure/go-workflow-engine/workflow"
)

var timeoutPattern = regexp.MustCompile(`^\d+[smhd]$`)

// Option configures Parse behavior.
type Option func(*options)

type options struct {
	schema *jsonSchema
}

// Parse builds a Definition from an already-decoded map, e.g. the
// result of json.Unmarshal or yaml.Unmarshal into
// map[string]interface{}.
func Parse(doc map[string]interface{}, opts ...Option) (workflow.Definition, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.schema != nil {
		if err := o.schema.Validate(doc); err != nil {
			return workflow.Definition{}, workflow.NewError(workflow.KindInvalidDefinition, "document failed schema validation").WithCause(err)
		}
	}
	return parse(doc)
}

// ParseYAML decodes raw into a map and delegates to Parse.
func ParseYAML(raw []byte, opts ...Option) (workflow.Definition, error) {
	var doc map[string]interface{}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return workflow.Definition{}, workflow.NewError(workflow.KindInvalidDefinition, "invalid yaml").WithCause(err)
	}
	return Parse(normalizeYAMLMap(doc), opts...)
}

// ParseJSON decodes raw into a map and delegates to Parse.
func ParseJSON(raw []byte, opts ...Option) (workflow.Definition, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return workflow.Definition{}, workflow.NewError(workflow.KindInvalidDefinition, "invalid json").WithCause(err)
	}
	return Parse(doc, opts...)
}

func parse(doc map[string]interface{}) (workflow.Definition, error) {
	name, _ := doc["name"].(string)
	version, _ := doc["version"].(string)
	if version == "" {
		version = "1.0"
	}

	stepOrder, stepsByID, err := parseSteps(doc["steps"])
	if err != nil {
		return workflow.Definition{}, err
	}

	var transitions []workflow.Transition
	if raw, ok := doc["transitions"]; ok {
		transitions, err = parseTransitions(raw, stepsByID)
		if err != nil {
			return workflow.Definition{}, err
		}
	} else {
		transitions = sequentialTransitions(stepOrder)
	}

	metadata, _ := doc["metadata"].(map[string]interface{})

	return workflow.NewDefinition(name, version, stepOrder, stepsByID, transitions, metadata)
}

func sequentialTransitions(order []string) []workflow.Transition {
	var out []workflow.Transition
	for i := 0; i+1 < len(order); i++ {
		out = append(out, workflow.NewTransition(order[i], order[i+1], ""))
	}
	return out
}

func parseSteps(raw interface{}) ([]string, map[string]workflow.Step, error) {
	steps := map[string]workflow.Step{}
	var order []string

	switch v := raw.(type) {
	case []interface{}:
		for _, item := range v {
			rec, ok := item.(map[string]interface{})
			if !ok {
				return nil, nil, workflow.NewError(workflow.KindInvalidStepID, "step record must be a map")
			}
			id, _ := rec["id"].(string)
			if id == "" {
				return nil, nil, workflow.NewError(workflow.KindInvalidStepID, "step in list form requires an id")
			}
			step, err := parseStepRecord(id, rec)
			if err != nil {
				return nil, nil, err
			}
			if _, exists := steps[id]; exists {
				return nil, nil, workflow.NewError(workflow.KindDuplicateStepID, "duplicate step id").WithStep(id)
			}
			steps[id] = step
			order = append(order, id)
		}
	case map[string]interface{}:
		// id-keyed map form has no inherent order; fall back to a
		// deterministic pass (ids in sorted order) but this form is
		// best paired with explicit transitions since declaration
		// order is otherwise just that sorted id order.
		ids := make([]string, 0, len(v))
		for id := range v {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			item := v[id]
			rec, ok := item.(map[string]interface{})
			if !ok {
				return nil, nil, workflow.NewError(workflow.KindInvalidStepID, "step record must be a map").WithStep(id)
			}
			step, err := parseStepRecord(id, rec)
			if err != nil {
				return nil, nil, err
			}
			steps[id] = step
			order = append(order, id)
		}
	case nil:
		return nil, nil, workflow.NewError(workflow.KindEmptyWorkflow, "steps field is required")
	default:
		return nil, nil, workflow.NewError(workflow.KindInvalidStepID, "steps must be a list or id-keyed map")
	}

	if len(order) == 0 {
		return nil, nil, workflow.NewError(workflow.KindEmptyWorkflow, "workflow must declare at least one step")
	}
	return order, steps, nil
}

func parseStepRecord(id string, rec map[string]interface{}) (workflow.Step, error) {
	actionRef, _ := rec["action"].(string)

	config, _ := rec["config"].(map[string]interface{})
	if config == nil {
		config, _ = rec["parameters"].(map[string]interface{})
	}

	var timeout time.Duration
	if raw, ok := rec["timeout"]; ok {
		var err error
		timeout, err = parseTimeout(raw)
		if err != nil {
			return workflow.Step{}, workflow.NewError(workflow.KindInvalidTimeout, err.Error()).WithStep(id)
		}
	}

	retryAttempts := 0
	if raw, ok := rec["retry_attempts"]; ok {
		n, err := toInt(raw)
		if err != nil || n < 0 || n > 10 {
			return workflow.Step{}, workflow.NewError(workflow.KindInvalidRetryAttempts, "retry_attempts must be between 0 and 10").WithStep(id)
		}
		retryAttempts = n
	}

	compensationRef, _ := rec["compensation"].(string)

	var conditions []string
	if raw, ok := rec["conditions"].([]interface{}); ok {
		for _, c := range raw {
			if s, ok := c.(string); ok {
				conditions = append(conditions, s)
			}
		}
	}

	var prerequisites []string
	if raw, ok := rec["prerequisites"].([]interface{}); ok {
		for _, p := range raw {
			if s, ok := p.(string); ok {
				prerequisites = append(prerequisites, s)
			}
		}
	}

	return workflow.NewStep(id, actionRef,
		workflow.WithConfig(config),
		workflow.WithTimeout(timeout),
		workflow.WithRetryAttempts(retryAttempts),
		workflow.WithCompensation(compensationRef),
		workflow.WithConditions(conditions...),
		workflow.WithPrerequisites(prerequisites...),
	), nil
}

func parseTimeout(raw interface{}) (time.Duration, error) {
	switch v := raw.(type) {
	case string:
		if !timeoutPattern.MatchString(v) {
			return 0, fmt.Errorf("timeout %q must match ^\\d+[smhd]$", v)
		}
		return parseDurationString(v)
	case int:
		if v <= 0 {
			return 0, fmt.Errorf("timeout must be a positive integer number of seconds")
		}
		return time.Duration(v) * time.Second, nil
	case float64:
		if v <= 0 {
			return 0, fmt.Errorf("timeout must be a positive integer number of seconds")
		}
		return time.Duration(v) * time.Second, nil
	default:
		return 0, fmt.Errorf("unsupported timeout value %v", raw)
	}
}

func parseDurationString(s string) (time.Duration, error) {
	unit := s[len(s)-1]
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil {
		return 0, err
	}
	switch unit {
	case 's':
		return time.Duration(n) * time.Second, nil
	case 'm':
		return time.Duration(n) * time.Minute, nil
	case 'h':
		return time.Duration(n) * time.Hour, nil
	case 'd':
		return time.Duration(n) * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unknown timeout unit %q", string(unit))
	}
}

func toInt(raw interface{}) (int, error) {
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("not a number: %v", raw)
	}
}

func parseTransitions(raw interface{}, steps map[string]workflow.Step) ([]workflow.Transition, error) {
	list, ok := raw.([]interface{})
	if !ok {
		return nil, workflow.NewError(workflow.KindInvalidTransition, "transitions must be a list")
	}
	var out []workflow.Transition
	for _, item := range list {
		rec, ok := item.(map[string]interface{})
		if !ok {
			return nil, workflow.NewError(workflow.KindInvalidTransition, "transition record must be a map")
		}
		from, _ := rec["from"].(string)
		to, _ := rec["to"].(string)
		condition, _ := rec["condition"].(string)
		if _, ok := steps[from]; !ok {
			return nil, workflow.NewError(workflow.KindInvalidTransition, "transition references unknown from-step").WithStep(from)
		}
		if _, ok := steps[to]; !ok {
			return nil, workflow.NewError(workflow.KindInvalidTransition, "transition references unknown to-step").WithStep(to)
		}
		out = append(out, workflow.NewTransition(from, to, condition))
	}
	return out, nil
}

// normalizeYAMLMap recursively converts map[interface{}]interface{}
// shapes (which older yaml decoders can still produce in nested
// values) into map[string]interface{} so downstream code only ever
// deals with one map type. gopkg.in/yaml.v3 already decodes top-level
// maps as map[string]interface{}, but this keeps nested decoding
// robust regardless.
func normalizeYAMLMap(v interface{}) map[string]interface{} {
	out, _ := normalizeYAMLValue(v).(map[string]interface{})
	return out
}

func normalizeYAMLValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = normalizeYAMLValue(val)
		}
		return out
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[fmt.Sprintf("%v", k)] = normalizeYAMLValue(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = normalizeYAMLValue(e)
		}
		return out
	default:
		return v
	}
}
