package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/Azure/go-workflow-engine/workflow"
	"github.com/Azure/go-workflow-engine/workflow/events"
	"github.com/Azure/go-workflow-engine/workflow/registry"
	"github.com/Azure/go-workflow-engine/workflow/storage"
	"github.com/Azure/go-workflow-engine/workflow/storage/memstore"
)

// Engine is the public facade composing StateManager, Executor, and
// Storage: start / resume / cancel / get / list / status.
type Engine struct {
	states   *StateManager
	executor *Executor
	registry *registry.Registry
	sink     events.Sink
	logger   *slog.Logger
	pool     *Pool
}

// Option configures an Engine at construction time.
type Option func(*config)

type config struct {
	store         storage.Store
	sink          events.Sink
	logger        *slog.Logger
	breakerCfg    *BreakerConfig
	poolSize      int
}

func WithStore(store storage.Store) Option {
	return func(c *config) { c.store = store }
}

func WithEventSink(sink events.Sink) Option {
	return func(c *config) { c.sink = sink }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithCircuitBreaker opts into the optional per-action-name circuit
// breaker described in the retry/timeout design; disabled by default.
func WithCircuitBreaker(cfg BreakerConfig) Option {
	return func(c *config) { c.breakerCfg = &cfg }
}

// WithWorkerPoolSize configures the bounded pool used by StartAsync /
// ResumeAsync for cross-instance parallelism. Default 4.
func WithWorkerPoolSize(n int) Option {
	return func(c *config) { c.poolSize = n }
}

// New builds an Engine that resolves actions through reg (callers
// typically pass a *registry.Registry pre-seeded via
// workflow/builtins.Register).
func New(reg *registry.Registry, opts ...Option) *Engine {
	c := config{poolSize: 4}
	for _, opt := range opts {
		opt(&c)
	}
	if c.store == nil {
		c.store = memstore.New()
	}
	if c.sink == nil {
		c.sink = events.Noop{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	states := NewStateManager(c.store)
	executor := NewExecutor(states, reg, c.sink, c.breakerCfg, c.logger)

	e := &Engine{states: states, executor: executor, registry: reg, sink: c.sink, logger: c.logger}
	e.pool = NewPool(c.poolSize)
	return e
}

// Start creates a PENDING Instance for def with the given id and
// initial data, persists it, emits WorkflowStarted, then runs the
// Executor. Returns DuplicateInstance if id already exists.
func (e *Engine) Start(ctx context.Context, id string, def workflow.Definition, initialData map[string]interface{}) (workflow.Instance, error) {
	exists, err := e.states.Exists(ctx, id)
	if err != nil {
		return workflow.Instance{}, err
	}
	if exists {
		return workflow.Instance{}, workflow.NewError(workflow.KindDuplicateInstance, "instance already exists").WithContext(map[string]interface{}{"id": id})
	}

	inst := workflow.NewInstance(id, def, initialData)
	if err := e.states.Save(ctx, &inst); err != nil {
		return workflow.Instance{}, err
	}
	e.executor.emit(events.Event{Type: events.TypeWorkflowStarted, InstanceID: id, WorkflowName: def.Name(), At: time.Now().UTC(), Data: initialData})

	runErr := e.executor.Run(ctx, &inst)
	return inst, runErr
}

// Resume loads a persisted Instance and re-enters the Executor loop.
// Terminal instances are rejected with CannotResumeTerminal.
func (e *Engine) Resume(ctx context.Context, id string) (workflow.Instance, error) {
	inst, err := e.states.Load(ctx, id)
	if err != nil {
		return workflow.Instance{}, err
	}
	if inst.State.IsTerminal() {
		return inst, workflow.NewError(workflow.KindCannotResumeTerminal, "cannot resume a terminal instance").WithContext(map[string]interface{}{"id": id, "state": string(inst.State)})
	}
	runErr := e.executor.Run(ctx, &inst)
	return inst, runErr
}

// Cancel transitions inst to CANCELLED if currently permitted,
// persists, and emits WorkflowCancelled. Terminal instances are
// rejected with CannotCancelTerminal.
func (e *Engine) Cancel(ctx context.Context, id, reason string) (workflow.Instance, error) {
	inst, err := e.states.Load(ctx, id)
	if err != nil {
		return workflow.Instance{}, err
	}
	if inst.State.IsTerminal() {
		return inst, workflow.NewError(workflow.KindCannotCancelTerminal, "cannot cancel a terminal instance").WithContext(map[string]interface{}{"id": id, "state": string(inst.State)})
	}
	if err := e.states.TransitionState(ctx, &inst, workflow.StateCancelled); err != nil {
		return inst, err
	}
	e.executor.emit(events.Event{Type: events.TypeWorkflowCancelled, InstanceID: id, WorkflowName: inst.DefinitionRef.Name, At: time.Now().UTC(), Reason: reason})
	return inst, nil
}

// Get loads an Instance by id.
func (e *Engine) Get(ctx context.Context, id string) (workflow.Instance, error) {
	return e.states.Load(ctx, id)
}

// ListFilter mirrors storage.Criteria for the facade's public surface.
type ListFilter = storage.Criteria

// List returns Summaries for instances matching filter, sorted by
// CreatedAt descending (tie-broken by id, enforced by the Store).
func (e *Engine) List(ctx context.Context, filter ListFilter) ([]workflow.Summary, error) {
	instances, err := e.states.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]workflow.Summary, 0, len(instances))
	for _, inst := range instances {
		out = append(out, inst.Summary())
	}
	return out, nil
}

// Status returns the lightweight status projection for id.
func (e *Engine) Status(ctx context.Context, id string) (workflow.Status, error) {
	inst, err := e.states.Load(ctx, id)
	if err != nil {
		return workflow.Status{}, err
	}
	return inst.Status(), nil
}

// StartAsync submits Start's work to the Engine's bounded worker pool,
// for cross-instance parallelism; independent instances may then run
// concurrently even though each is itself strictly sequential.
func (e *Engine) StartAsync(id string, def workflow.Definition, initialData map[string]interface{}) {
	e.pool.Submit(func(ctx context.Context) {
		if _, err := e.Start(ctx, id, def, initialData); err != nil {
			e.logger.Error("async start failed", "id", id, "error", err)
		}
	})
}

// ResumeAsync submits Resume's work to the Engine's bounded worker pool.
func (e *Engine) ResumeAsync(id string) {
	e.pool.Submit(func(ctx context.Context) {
		if _, err := e.Resume(ctx, id); err != nil {
			e.logger.Error("async resume failed", "id", id, "error", err)
		}
	})
}

// Close stops the Engine's worker pool, waiting for in-flight work to
// finish.
func (e *Engine) Close() {
	e.pool.Close()
}

// --- Thin pass-through helpers (§6.2); these MUST behave identically
// to the facade methods above. ---

func StartWorkflow(ctx context.Context, e *Engine, id string, def workflow.Definition, initialData map[string]interface{}) (workflow.Instance, error) {
	return e.Start(ctx, id, def, initialData)
}

func GetWorkflow(ctx context.Context, e *Engine, id string) (workflow.Instance, error) {
	return e.Get(ctx, id)
}

func CancelWorkflow(ctx context.Context, e *Engine, id, reason string) (workflow.Instance, error) {
	return e.Cancel(ctx, id, reason)
}

func ListWorkflows(ctx context.Context, e *Engine, filter ListFilter) ([]workflow.Summary, error) {
	return e.List(ctx, filter)
}
