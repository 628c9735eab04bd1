// internal/workers/support/grievance-ticket/config.go
package grievanceticket

import (
	"time"

	"loan-portal/internal/common/config"
)

type Config struct {
	Timeout      time.Duration
	MaxShortDesc int
	Notify       bool
}

func DefaultConfig() *Config {
	return &Config{
		Timeout:      30 * time.Second,
		MaxShortDesc: 200,
		Notify:       true,
	}
}

func LoadConfig(cfg *config.Config) *Config {
	c := DefaultConfig()
	c.Timeout = config.GetDuration(config.GetWorkerConfig(cfg, TaskType).Timeout)
	c.Notify = cfg.Notifications.Email.Enabled || cfg.Notifications.SMS.Enabled
	return c
}
