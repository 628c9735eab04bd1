// internal/workers/verification/external-action/config.go
package externalaction

import (
	"time"

	"loan-portal/internal/common/config"
)

type Config struct {
	Timeout  time.Duration
	Interval time.Duration
	// StartWait bounds how long an API call waits for form creation before
	// answering with a "starting" snapshot.
	StartWait time.Duration
	// SweepInterval is how often trackers of expired sessions are closed.
	SweepInterval time.Duration
	Actions       map[string]config.ActionConfig
}

func DefaultConfig() *Config {
	return &Config{
		Timeout:       30 * time.Minute,
		Interval:      5 * time.Second,
		StartWait:     10 * time.Second,
		SweepInterval: time.Minute,
		Actions: map[string]config.ActionConfig{
			config.ActionEMandate: {BackoffOnNotFound: true, BackoffBase: 2000, BackoffMultiplier: 1.5, BackoffMax: 15000},
		},
	}
}

func LoadConfig(cfg *config.Config) *Config {
	c := DefaultConfig()
	c.Timeout = config.GetDuration(config.GetWorkerConfig(cfg, TaskType).Timeout)
	c.Interval = config.GetDuration(cfg.Polling.Interval)
	c.SweepInterval = config.GetDuration(cfg.Polling.SweepInterval)
	c.Actions = cfg.Polling.Actions
	return c
}
