// internal/workers/auth/user-signup/config.go
package usersignup

import (
	"time"

	"loan-portal/internal/common/config"
)

type Config struct {
	Timeout           time.Duration
	MinPasswordLength int
}

func DefaultConfig() *Config {
	return &Config{
		Timeout:           10 * time.Second,
		MinPasswordLength: 8,
	}
}

func LoadConfig(cfg *config.Config) *Config {
	c := DefaultConfig()
	c.Timeout = config.GetDuration(config.GetWorkerConfig(cfg, TaskType).Timeout)
	return c
}
