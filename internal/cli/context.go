package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/forPelevin/srtgen/internal/config"
	"github.com/forPelevin/srtgen/internal/history"
	"github.com/forPelevin/srtgen/internal/logging"
)

type commandContext struct {
	configFlag string
	stderr     io.Writer

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger

	closers []io.Closer
}

func newCommandContext(stderr io.Writer) *commandContext {
	return &commandContext{stderr: stderr}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(strings.TrimSpace(c.configFlag))
		if err != nil {
			c.configErr = fmt.Errorf("load config: %w", err)
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// loggerFor builds the process logger from the loaded config. A bad log
// file falls back to stderr only.
func (c *commandContext) loggerFor(cfg *config.Config) *slog.Logger {
	c.loggerOnce.Do(func() {
		opts := logging.Options{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
			File:   cfg.Logging.File,
			Writer: c.stderr,
		}
		logger, closer, err := logging.New(opts)
		if err != nil {
			opts.File = ""
			logger, closer, err = logging.New(opts)
		}
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		c.closers = append(c.closers, closer)
		c.logger = logger
	})
	return c.logger
}

// openHistory returns nil when the database cannot be opened; jobs still run.
func (c *commandContext) openHistory(ctx context.Context, cfg *config.Config, logger *slog.Logger) *history.Store {
	store, err := history.Open(ctx, cfg.HistoryPath())
	if err != nil {
		logger.Warn("history unavailable", "component", "cli", "path", cfg.HistoryPath(), "error", err)
		return nil
	}
	c.closers = append(c.closers, store)
	return store
}

func (c *commandContext) close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		_ = c.closers[i].Close()
	}
	c.closers = nil
}
