// internal/workers/servicing/loan-dashboard/config.go
package loandashboard

import (
	"time"

	"loan-portal/internal/common/config"
)

type Config struct {
	Timeout time.Duration
	// IncludeClosed also fetches closed loans; their failure is never fatal.
	IncludeClosed bool
}

func DefaultConfig() *Config {
	return &Config{
		Timeout:       15 * time.Second,
		IncludeClosed: true,
	}
}

func LoadConfig(cfg *config.Config) *Config {
	c := DefaultConfig()
	c.Timeout = config.GetDuration(config.GetWorkerConfig(cfg, TaskType).Timeout)
	return c
}
