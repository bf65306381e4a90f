package config

import (
	"errors"
	"fmt"
)

var (
	validAnimFormats = map[string]bool{"seanim": true, "json": true}
	validLogLevels   = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validLogFormats  = map[string]bool{"text": true, "json": true}
)

// Validate checks every setting and reports all problems at once. It is
// run by Load and again after command line overrides.
func (c *Config) Validate() error {
	var errs []error

	if !validAnimFormats[c.AnimFormat] {
		errs = append(errs, fmt.Errorf("invalid anim_format '%s': must be seanim or json", c.AnimFormat))
	}
	if !validLogLevels[c.LogLevel] {
		errs = append(errs, fmt.Errorf("invalid log_level '%s': must be debug, info, warn or error", c.LogLevel))
	}
	if !validLogFormats[c.LogFormat] {
		errs = append(errs, fmt.Errorf("invalid log_format '%s': must be text or json", c.LogFormat))
	}
	if c.OutputDir == "" {
		errs = append(errs, errors.New("output_dir cannot be empty"))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("invalid workers %d: must be at least 1", c.Workers))
	}
	if c.ChunkCacheSize < 0 {
		errs = append(errs, fmt.Errorf("invalid chunk_cache_size %d: must not be negative", c.ChunkCacheSize))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
