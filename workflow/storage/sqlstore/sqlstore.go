// Package sqlstore is a SQLite-backed storage.Store, using the pure-Go
// modernc.org/sqlite driver so the module stays embeddable without cgo.
// It demonstrates the storage contract's "load after restart is
// byte-equivalent to last save" requirement against real persistence
// rather than only an in-memory map.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Azure/go-workflow-engine/workflow"
	"github.com/Azure/go-workflow-engine/workflow/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS instances (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	version INTEGER NOT NULL,
	state TEXT NOT NULL,
	current_step_id TEXT NOT NULL,
	error_message TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	snapshot BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_instances_state ON instances(state);
CREATE INDEX IF NOT EXISTS idx_instances_name ON instances(name);
`

// Store is a SQLite-backed storage.Store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) a SQLite database at path and
// ensures its schema exists. Use ":memory:" for an ephemeral database
// with the same on-disk wire format as a real file, useful in tests
// that want to exercise the real codec without touching disk.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite is not safe for concurrent writers on one handle
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlstore: migrate schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// snapshot is the serializable projection of workflow.Instance persisted
// in the snapshot column; it preserves every field the storage contract
// requires, including the full Definition so recovery is independent of
// later code changes to step ids.
type snapshot struct {
	ID             string                     `json:"id"`
	DefinitionRef  workflow.DefinitionRef     `json:"definition_ref"`
	Definition     serializedDefinition       `json:"definition"`
	State          workflow.State             `json:"state"`
	Data           map[string]interface{}     `json:"data"`
	CurrentStepID  string                     `json:"current_step_id"`
	CompletedSteps []string                   `json:"completed_steps"`
	FailedSteps    []workflow.FailedStep      `json:"failed_steps"`
	ErrorMessage   string                     `json:"error_message"`
	Version        int64                      `json:"version"`
	CreatedAt      time.Time                  `json:"created_at"`
	UpdatedAt      time.Time                  `json:"updated_at"`
}

func toSnapshot(inst workflow.Instance) snapshot {
	return snapshot{
		ID:             inst.ID,
		DefinitionRef:  inst.DefinitionRef,
		Definition:     serializeDefinition(inst.Definition),
		State:          inst.State,
		Data:           inst.Data,
		CurrentStepID:  inst.CurrentStepID,
		CompletedSteps: inst.CompletedSteps,
		FailedSteps:    inst.FailedSteps,
		ErrorMessage:   inst.ErrorMessage,
		Version:        inst.Version,
		CreatedAt:      inst.CreatedAt,
		UpdatedAt:      inst.UpdatedAt,
	}
}

func fromSnapshot(snap snapshot) (workflow.Instance, error) {
	def, err := deserializeDefinition(snap.Definition)
	if err != nil {
		return workflow.Instance{}, err
	}
	return workflow.Instance{
		ID:             snap.ID,
		DefinitionRef:  snap.DefinitionRef,
		Definition:     def,
		State:          snap.State,
		Data:           snap.Data,
		CurrentStepID:  snap.CurrentStepID,
		CompletedSteps: snap.CompletedSteps,
		FailedSteps:    snap.FailedSteps,
		ErrorMessage:   snap.ErrorMessage,
		Version:        snap.Version,
		CreatedAt:      snap.CreatedAt,
		UpdatedAt:      snap.UpdatedAt,
	}, nil
}

func (s *Store) Save(ctx context.Context, inst workflow.Instance) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlstore: begin tx: %w", err)
	}
	defer tx.Rollback()

	var currentVersion int64
	err = tx.QueryRowContext(ctx, `SELECT version FROM instances WHERE id = ?`, inst.ID).Scan(&currentVersion)
	switch {
	case err == sql.ErrNoRows:
		// new instance, nothing to conflict with
	case err != nil:
		return fmt.Errorf("sqlstore: check existing version: %w", err)
	default:
		if currentVersion != inst.Version {
			return storage.ErrConflict
		}
	}

	inst.Version++
	snap := toSnapshot(inst)
	blob, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("sqlstore: encode snapshot: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO instances (id, name, version, state, current_step_id, error_message, created_at, updated_at, snapshot)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name, version=excluded.version, state=excluded.state,
			current_step_id=excluded.current_step_id, error_message=excluded.error_message,
			updated_at=excluded.updated_at, snapshot=excluded.snapshot
	`, inst.ID, inst.DefinitionRef.Name, inst.Version, string(inst.State), inst.CurrentStepID,
		inst.ErrorMessage, inst.CreatedAt.UnixNano(), inst.UpdatedAt.UnixNano(), blob)
	if err != nil {
		return fmt.Errorf("sqlstore: upsert instance: %w", err)
	}
	return tx.Commit()
}

func (s *Store) Load(ctx context.Context, id string) (workflow.Instance, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT snapshot FROM instances WHERE id = ?`, id).Scan(&blob)
	if err == sql.ErrNoRows {
		return workflow.Instance{}, storage.NotFound(id)
	}
	if err != nil {
		return workflow.Instance{}, fmt.Errorf("sqlstore: load %s: %w", id, err)
	}
	var snap snapshot
	if err := json.Unmarshal(blob, &snap); err != nil {
		return workflow.Instance{}, fmt.Errorf("sqlstore: decode snapshot: %w", err)
	}
	return fromSnapshot(snap)
}

func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM instances WHERE id = ?`, id).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("sqlstore: exists %s: %w", id, err)
	}
	return count > 0, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM instances WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlstore: delete %s: %w", id, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return storage.NotFound(id)
	}
	return nil
}

func (s *Store) FindInstances(ctx context.Context, criteria storage.Criteria) ([]workflow.Instance, error) {
	query := `SELECT snapshot FROM instances WHERE 1=1`
	var args []interface{}
	if criteria.State != "" {
		query += ` AND state = ?`
		args = append(args, string(criteria.State))
	}
	if criteria.Name != "" {
		query += ` AND name = ?`
		args = append(args, criteria.Name)
	}
	query += ` ORDER BY created_at DESC, id ASC`
	if criteria.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, criteria.Limit)
		if criteria.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, criteria.Offset)
		}
	} else if criteria.Offset > 0 {
		query += ` LIMIT -1 OFFSET ?`
		args = append(args, criteria.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: find instances: %w", err)
	}
	defer rows.Close()

	var out []workflow.Instance
	for rows.Next() {
		var blob []byte
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("sqlstore: scan instance: %w", err)
		}
		var snap snapshot
		if err := json.Unmarshal(blob, &snap); err != nil {
			return nil, fmt.Errorf("sqlstore: decode snapshot: %w", err)
		}
		inst, err := fromSnapshot(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, rows.Err()
}
