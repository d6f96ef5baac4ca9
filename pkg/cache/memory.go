package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/noah-isme/lesson-booking-api/pkg/config"
)

// NewMemory returns the in-process store used when Redis is unavailable.
func NewMemory(cfg config.AvailabilityConfig) *gocache.Cache {
	cleanup := cfg.MemoryCleanup
	if cleanup <= 0 {
		cleanup = 10 * time.Minute
	}
	return gocache.New(cfg.CacheTTL, cleanup)
}
