package dynamo

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config holds configuration for the Host.
type Config struct {
	// Table is the name of the records table.
	// Default: "dyntable_records"
	Table string

	// IDAttr is the partition key attribute.
	// Default: "id"
	IDAttr string

	// EntityAttr holds the entity name of each item.
	// Default: "entity"
	EntityAttr string

	// CacheSize is the number of decoded records kept in memory.
	// Default: 1024, 0 or less also means the default
	CacheSize int

	// TransientTTL is how long committed non-persistable records live.
	// Default: 1h
	TransientTTL time.Duration

	// Registerer receives the host metrics. Default: none
	Registerer prometheus.Registerer

	// Logger receives warnings. Default: slog.Default()
	Logger *slog.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Table:        "dyntable_records",
		IDAttr:       "id",
		EntityAttr:   "entity",
		CacheSize:    1024,
		TransientTTL: time.Hour,
	}
}

// validate fills in defaults for unset values.
func (c *Config) validate() {
	def := DefaultConfig()
	if c.Table == "" {
		c.Table = def.Table
	}
	if c.IDAttr == "" {
		c.IDAttr = def.IDAttr
	}
	if c.EntityAttr == "" {
		c.EntityAttr = def.EntityAttr
	}
	if c.CacheSize <= 0 {
		c.CacheSize = def.CacheSize
	}
	if c.TransientTTL <= 0 {
		c.TransientTTL = def.TransientTTL
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
