package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/forPelevin/srtgen/internal/types"
)

// Validate returns the first problem found.
func (c *Config) Validate() error {
	if strings.ContainsAny(c.Transcription.Model, `/\`) {
		return fmt.Errorf("transcription.model %q must be a model id, not a path", c.Transcription.Model)
	}
	if c.Transcription.Threads < 0 {
		return errors.New("transcription.threads must be >= 0")
	}
	if _, err := types.ParseDuplicateMode(c.Transcription.Duplicate); err != nil {
		return fmt.Errorf("transcription.duplicate: %w", err)
	}
	if _, err := types.ParseWriteMode(c.Transcription.WriteMode); err != nil {
		return fmt.Errorf("transcription.write_mode: %w", err)
	}
	if _, err := types.ParseFormat(c.Transcription.Format); err != nil {
		return fmt.Errorf("transcription.format: %w", err)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q must be console or json", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q must be debug, info, warn or error", c.Logging.Level)
	}
	return nil
}
