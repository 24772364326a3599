package main

import (
	"github.com/caarlos0/env/v11"
)

// cliConfig is bound from the process environment via struct tags,
// mirroring the teacher's env-first configuration precedence (flags
// override env where both are offered).
type cliConfig struct {
	StorageBackend string `env:"WORKFLOWCTL_STORAGE" envDefault:"memory"` // "memory" or "sqlite"
	SQLitePath     string `env:"WORKFLOWCTL_SQLITE_PATH" envDefault:"workflow.db"`
	MetricsAddr    string `env:"WORKFLOWCTL_METRICS_ADDR"` // non-empty adds the Prometheus event sink; no metrics endpoint is served
	WorkerPoolSize int    `env:"WORKFLOWCTL_POOL_SIZE" envDefault:"4"`
}

func loadConfig() (cliConfig, error) {
	var c cliConfig
	if err := env.Parse(&c); err != nil {
		return cliConfig{}, err
	}
	return c, nil
}
