// Package jobs enforces a single active transcription job and runs it off
// the caller's goroutine.
package jobs

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
)

// ErrJobAlreadyRunning rejects a second job instead of queueing it.
var ErrJobAlreadyRunning = errors.New("a transcription job is already running")

type Manager struct {
	logger *slog.Logger

	mu     sync.Mutex
	active *Token
	lock   *flock.Flock
}

// NewManager returns a manager. A non-empty lockPath also excludes other
// processes holding the same lock file.
func NewManager(lockPath string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	m := &Manager{logger: logger}
	if lockPath != "" {
		m.lock = flock.New(lockPath)
	}
	return m
}

// Start claims the job slot and returns a fresh token for the new job.
func (m *Manager) Start() (*Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active != nil {
		return nil, ErrJobAlreadyRunning
	}
	if m.lock != nil {
		if err := os.MkdirAll(filepath.Dir(m.lock.Path()), 0o755); err != nil {
			return nil, fmt.Errorf("create lock dir: %w", err)
		}
		ok, err := m.lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("acquire job lock: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("%w (lock held by another process: %s)", ErrJobAlreadyRunning, m.lock.Path())
		}
	}
	m.active = NewToken()
	return m.active, nil
}

// Finish releases the slot held by tok. Stale tokens are ignored.
func (m *Manager) Finish(tok *Token) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil || m.active != tok {
		return
	}
	m.active = nil
	if m.lock != nil {
		if err := m.lock.Unlock(); err != nil {
			m.logger.Warn("failed to release job lock", "lock", m.lock.Path(), "error", err)
		}
	}
}

// Cancel cancels the active job, reporting whether there was one.
func (m *Manager) Cancel() bool {
	m.mu.Lock()
	tok := m.active
	m.mu.Unlock()
	if tok == nil {
		return false
	}
	tok.Cancel()
	return true
}

// Running reports whether a job holds the slot.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active != nil
}

// Run is a job executing on its worker goroutine.
type Run struct {
	Token *Token
	done  chan struct{}
	err   error
}

// Done is closed when the job function returns.
func (r *Run) Done() <-chan struct{} { return r.done }

// Wait blocks until the job finishes and returns its error.
func (r *Run) Wait() error {
	<-r.done
	return r.err
}

// Go claims the slot and runs fn on a new goroutine. The slot is released
// when fn returns.
func (m *Manager) Go(fn func(tok *Token) error) (*Run, error) {
	tok, err := m.Start()
	if err != nil {
		return nil, err
	}
	r := &Run{Token: tok, done: make(chan struct{})}
	go func() {
		defer close(r.done)
		defer m.Finish(tok)
		r.err = fn(tok)
	}()
	return r, nil
}
