// internal/workers/disbursement/track-disbursal/config.go
package trackdisbursal

import (
	"time"

	"loan-portal/internal/common/config"
)

type Config struct {
	Timeout  time.Duration
	Interval time.Duration
	Notify   bool
}

func DefaultConfig() *Config {
	return &Config{
		Timeout:  30 * time.Minute,
		Interval: 5 * time.Second,
		Notify:   true,
	}
}

func LoadConfig(cfg *config.Config) *Config {
	c := DefaultConfig()
	c.Timeout = config.GetDuration(config.GetWorkerConfig(cfg, TaskType).Timeout)
	c.Interval = config.GetDuration(cfg.Polling.Interval)
	c.Notify = cfg.Notifications.Email.Enabled || cfg.Notifications.SMS.Enabled
	return c
}
