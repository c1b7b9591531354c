package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/forPelevin/srtgen/internal/jobs"
)

// runJob executes fn on the manager's worker goroutine and waits for it.
// SIGINT, SIGTERM and ctx cancellation cancel the job token; the job then
// unwinds on its own and its error is returned.
func runJob(ctx context.Context, mgr *jobs.Manager, logger *slog.Logger, fn func(tok *jobs.Token) error) error {
	run, err := mgr.Go(fn)
	if err != nil {
		return err
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)

	ctxDone := ctx.Done()
	for {
		select {
		case <-run.Done():
			return run.Wait()
		case sig := <-sigs:
			logger.Warn("cancel requested", "component", "cli", "signal", sig.String())
			mgr.Cancel()
		case <-ctxDone:
			ctxDone = nil
			logger.Warn("cancel requested", "component", "cli", "reason", context.Cause(ctx))
			mgr.Cancel()
		}
	}
}
