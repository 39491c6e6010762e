package vm

import (
	"fmt"
	"log/slog"
)

const DefaultMaxDepth = 1024

type Config struct {
	// MaxSteps bounds the instructions a single Run may execute. Zero means
	// unlimited.
	MaxSteps int64
	// MaxDepth bounds nested calls. Zero selects DefaultMaxDepth.
	MaxDepth int

	// Tracer, if set, sees every instruction before it runs.
	Tracer Tracer
}

func (c *Config) Validate(logger *slog.Logger) error {
	if c.MaxSteps < 0 {
		return fmt.Errorf("max steps must not be negative, got %d", c.MaxSteps)
	}

	if c.MaxDepth < 0 {
		return fmt.Errorf("max depth must not be negative, got %d", c.MaxDepth)
	}

	if c.MaxDepth == 0 {
		logger.Debug("using default max depth", slog.Int("max_depth", DefaultMaxDepth))
		c.MaxDepth = DefaultMaxDepth
	}

	return nil
}
