// internal/workers/offers/select-offer/config.go
package selectoffer

import (
	"time"

	"loan-portal/internal/common/config"
)

type Config struct {
	Timeout     time.Duration
	Attempts    int
	RetryDelay  time.Duration
	CacheTTL    time.Duration
	CachePrefix string
}

func DefaultConfig() *Config {
	return &Config{
		Timeout:     30 * time.Second,
		Attempts:    3,
		RetryDelay:  2 * time.Second,
		CacheTTL:    30 * time.Minute,
		CachePrefix: "loan-portal:offers",
	}
}

func LoadConfig(cfg *config.Config) *Config {
	c := DefaultConfig()
	c.Timeout = config.GetDuration(config.GetWorkerConfig(cfg, TaskType).Timeout)
	c.Attempts = cfg.Polling.OfferAttempts
	c.RetryDelay = config.GetDuration(cfg.Polling.OfferRetryDelay)
	return c
}
