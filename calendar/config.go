package calendar

import (
	"fmt"
	"time"
)

// ServiceConfig holds configuration options for the calendar service
type ServiceConfig struct {
	// Cache configuration
	CacheEnabled bool
	CacheConfig  CacheConfig

	// Location decides which calendar day "today" is. Nil means UTC.
	Location *time.Location

	// MaxRangeDays caps a single projection request. Zero disables the cap.
	MaxRangeDays int
}

// DefaultServiceConfig provides sensible defaults for production use
var DefaultServiceConfig = ServiceConfig{
	CacheEnabled: true,
	CacheConfig:  DefaultCacheConfig,
	MaxRangeDays: 731,
}

// LowMemoryConfig keeps the projection cache small
var LowMemoryConfig = ServiceConfig{
	CacheEnabled: true,
	CacheConfig: CacheConfig{
		TTL:             5 * time.Minute,
		MaxEntries:      100,
		CleanupInterval: 2 * time.Minute,
	},
	MaxRangeDays: 366,
}

// DisabledCacheConfig turns off caching entirely
var DisabledCacheConfig = ServiceConfig{
	CacheEnabled: false,
	CacheConfig:  CacheConfig{}, // Not used
	MaxRangeDays: 731,
}

// Names of the presets accepted by ConfigForProfile
const (
	ProfileDefault   = "default"
	ProfileLowMemory = "low_memory"
	ProfileDisabled  = "disabled"
)

// ConfigForProfile returns the preset for name. An empty name selects the default.
func ConfigForProfile(name string) (ServiceConfig, error) {
	switch name {
	case "", ProfileDefault:
		return DefaultServiceConfig, nil
	case ProfileLowMemory:
		return LowMemoryConfig, nil
	case ProfileDisabled:
		return DisabledCacheConfig, nil
	default:
		return ServiceConfig{}, fmt.Errorf("unknown cache profile %q", name)
	}
}
