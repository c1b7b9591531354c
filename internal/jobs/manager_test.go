package jobs

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestToken_CancelIsIdempotent(t *testing.T) {
	tok := NewToken()
	if tok.Cancelled() {
		t.Fatalf("fresh token cancelled")
	}
	tok.Cancel()
	tok.Cancel()
	if !tok.Cancelled() {
		t.Fatalf("token not cancelled")
	}
	select {
	case <-tok.Done():
	default:
		t.Fatalf("Done not closed")
	}
}

func TestToken_ContextFollowsToken(t *testing.T) {
	tok := NewToken()
	ctx, cancel := tok.Context(context.Background())
	defer cancel()
	tok.Cancel()
	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("context not cancelled with token")
	}
}

func TestManager_RejectsSecondJob(t *testing.T) {
	m := NewManager("", nil)
	first, err := m.Start()
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := m.Start(); !errors.Is(err, ErrJobAlreadyRunning) {
		t.Fatalf("expected ErrJobAlreadyRunning, got %v", err)
	}
	m.Finish(first)
	second, err := m.Start()
	if err != nil {
		t.Fatalf("start after finish: %v", err)
	}
	if second == first || second.Cancelled() {
		t.Fatalf("expected a fresh token per job")
	}
}

func TestManager_LockExcludesOtherHolders(t *testing.T) {
	lock := filepath.Join(t.TempDir(), "state", "job.lock")
	a := NewManager(lock, nil)
	b := NewManager(lock, nil)
	tok, err := a.Start()
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := b.Start(); !errors.Is(err, ErrJobAlreadyRunning) {
		t.Fatalf("expected lock contention error, got %v", err)
	}
	a.Finish(tok)
	tok, err = b.Start()
	if err != nil {
		t.Fatalf("start after release: %v", err)
	}
	b.Finish(tok)
}

func TestManager_GoRunsOffGoroutineAndCancels(t *testing.T) {
	m := NewManager("", nil)
	started := make(chan struct{})
	run, err := m.Go(func(tok *Token) error {
		close(started)
		<-tok.Done()
		return errors.New("stopped")
	})
	if err != nil {
		t.Fatalf("go: %v", err)
	}
	<-started
	if !m.Running() {
		t.Fatalf("manager should report a running job")
	}
	if !m.Cancel() {
		t.Fatalf("cancel found no job")
	}
	if err := run.Wait(); err == nil || err.Error() != "stopped" {
		t.Fatalf("wait = %v", err)
	}
	if m.Running() {
		t.Fatalf("slot not released")
	}
	if m.Cancel() {
		t.Fatalf("cancel with no active job must report false")
	}
}
