// Package storage defines the durability contract every backend
// (memstore, sqlstore, or a caller-supplied one) must satisfy. The core
// engine depends only on this interface; concrete backends are thin,
// swappable adapters.
package storage

import (
	"context"

	"github.com/Azure/go-workflow-engine/workflow"
)

// Criteria filters a FindInstances call. Zero values mean "no filter
// on this field".
type Criteria struct {
	State  workflow.State
	Name   string
	Limit  int
	Offset int
}

// Store is the persistence contract. Save must be atomic per call
// (observers see the old or the new record, never a partial write).
// Load must return a deep copy: mutating the returned Instance, or
// later mutations the caller makes to its own in-memory copy, must
// never bleed into a subsequent Load unless an intervening Save
// happened. FindInstances sorts by CreatedAt descending, ties broken by
// id, and supports at minimum State/Name/Limit/Offset filtering.
type Store interface {
	Save(ctx context.Context, inst workflow.Instance) error
	Load(ctx context.Context, id string) (workflow.Instance, error)
	Exists(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
	FindInstances(ctx context.Context, criteria Criteria) ([]workflow.Instance, error)
}

// ErrConflict is returned by Save when the caller's Instance.Version
// does not match the currently stored version, signaling optimistic
// concurrency contention the caller should retry.
var ErrConflict = workflow.NewError(workflow.KindConflict, "instance was concurrently modified")

// NotFound builds the standard WorkflowInstanceNotFound error for a
// missing instance id, for backends to return from Load/Delete.
func NotFound(id string) error {
	return workflow.NewError(workflow.KindWorkflowInstanceNotFound, "instance not found").WithContext(map[string]interface{}{"id": id})
}
