package workflow

import (
	"strings"
	"time"
)

// Context is the immutable bundle of data and step-scoped configuration
// passed to an action. A new Context is produced for every step
// invocation; none are ever mutated after construction.
type Context struct {
	workflowID string
	stepID     string
	data       map[string]interface{}
	config     map[string]interface{}
	executedAt time.Time
}

// NewContext builds a Context for the given step, deep-copying data and
// config so neither the Instance's data map nor the Step's config map
// can be mutated through the returned value.
func NewContext(workflowID, stepID string, data, config map[string]interface{}) Context {
	return Context{
		workflowID: workflowID,
		stepID:     stepID,
		data:       deepCopyMap(data),
		config:     deepCopyMap(config),
		executedAt: time.Now().UTC(),
	}
}

func (c Context) WorkflowID() string { return c.workflowID }
func (c Context) StepID() string     { return c.stepID }
func (c Context) ExecutedAt() time.Time { return c.executedAt }

// Data returns a copy of the context's data map. Mutating the returned
// map never affects the Context.
func (c Context) Data() map[string]interface{} { return deepCopyMap(c.data) }

// Config returns a copy of the context's step-scoped config map.
func (c Context) Config() map[string]interface{} { return deepCopyMap(c.config) }

// Get resolves a dot-separated path into Data, returning (nil, false)
// on any missing segment.
func (c Context) Get(path string) (interface{}, bool) {
	return lookupPath(c.data, path)
}

// ConfigValue resolves a plain (non-dotted) key out of Config.
func (c Context) ConfigValue(key string) (interface{}, bool) {
	v, ok := c.config[key]
	return v, ok
}

// With returns a new Context with key set to value in its data map; the
// receiver is left untouched.
func (c Context) With(key string, value interface{}) Context {
	next := deepCopyMap(c.data)
	next[key] = value
	return Context{
		workflowID: c.workflowID,
		stepID:     c.stepID,
		data:       next,
		config:     deepCopyMap(c.config),
		executedAt: c.executedAt,
	}
}

// WithData returns a new Context whose data map is the receiver's data
// shallow-merged with patch (patch wins on key collision).
func (c Context) WithData(patch map[string]interface{}) Context {
	next := deepCopyMap(c.data)
	for k, v := range patch {
		next[k] = v
	}
	return Context{
		workflowID: c.workflowID,
		stepID:     c.stepID,
		data:       next,
		config:     deepCopyMap(c.config),
		executedAt: c.executedAt,
	}
}

func lookupPath(data map[string]interface{}, path string) (interface{}, bool) {
	if path == "" {
		return nil, false
	}
	segments := strings.Split(path, ".")
	var cur interface{} = data
	for _, seg := range segments {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		v, ok := m[seg]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

func deepCopyMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return map[string]interface{}{}
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return deepCopyMap(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = deepCopyValue(e)
		}
		return out
	default:
		return v
	}
}

// MergeData merges b into a (b wins on collision) producing a new map;
// neither input is mutated. Used by ActionResult.Merge and by the
// executor when folding Success data into Instance data.
func MergeData(a, b map[string]interface{}) map[string]interface{} {
	out := deepCopyMap(a)
	for k, v := range b {
		out[k] = deepCopyValue(v)
	}
	return out
}
