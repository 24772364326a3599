package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Azure/go-workflow-engine/workflow/builtins"
	"github.com/Azure/go-workflow-engine/workflow/engine"
	"github.com/Azure/go-workflow-engine/workflow/events"
	"github.com/Azure/go-workflow-engine/workflow/events/logsink"
	"github.com/Azure/go-workflow-engine/workflow/events/promsink"
	"github.com/Azure/go-workflow-engine/workflow/registry"
	"github.com/Azure/go-workflow-engine/workflow/storage"
	"github.com/Azure/go-workflow-engine/workflow/storage/memstore"
	"github.com/Azure/go-workflow-engine/workflow/storage/sqlstore"

	"github.com/prometheus/client_golang/prometheus"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "workflowctl",
		Short:         "Start, resume, cancel, and inspect workflow instances",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newStartCmd(),
		newResumeCmd(),
		newCancelCmd(),
		newGetCmd(),
		newListCmd(),
		newStatusCmd(),
	)
	return root
}

// buildEngine wires an Engine from process configuration: the chosen
// storage backend, the bundled actions, and (optionally) a Prometheus
// event sink alongside the default structured-log sink.
func buildEngine() (*engine.Engine, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	var store storage.Store
	var closer func()
	switch strings.ToLower(cfg.StorageBackend) {
	case "", "memory":
		store = memstore.New()
		closer = func() {}
	case "sqlite":
		db, err := sqlstore.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		store = db
		closer = func() { _ = db.Close() }
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}

	sink := events.Sink(logsink.New(nil))
	if cfg.MetricsAddr != "" {
		promSink := promsink.New(prometheus.DefaultRegisterer)
		sink = events.Multi{sink, promSink}
	}

	reg := registry.New()
	builtins.Register(reg)

	e := engine.New(reg,
		engine.WithStore(store),
		engine.WithEventSink(sink),
		engine.WithWorkerPoolSize(cfg.WorkerPoolSize),
	)

	return e, func() {
		e.Close()
		closer()
	}, nil
}
