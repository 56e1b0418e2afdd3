// Package orchestrator starts one supervisor per configured server and
// runs them until a shutdown signal arrives, generalizing the teacher's
// single-cron-job runner into N independently supervised connections.
package orchestrator

import (
	"context"
	"errors"
	"log"
	"sync"
)

// Supervisor is the subset of *supervisor.Supervisor the orchestrator
// drives.
type Supervisor interface {
	Run(ctx context.Context) error
}

// Orchestrator owns the lifetime of every server's supervisor.
type Orchestrator struct {
	supervisors []Supervisor
	logger      *log.Logger
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

// New builds an Orchestrator for the given supervisors.
func New(logger *log.Logger, supervisors ...Supervisor) *Orchestrator {
	if logger == nil {
		logger = log.Default()
	}
	return &Orchestrator{supervisors: supervisors, logger: logger}
}

// Run starts every supervisor and blocks until ctx is canceled, then waits
// for each supervisor to return before Run itself returns. Callers typically
// cancel ctx from a signal handler. A non-nil return means at least one
// supervisor hit a stop error while shutting down (e.g. failing to close its
// session cleanly); callers should exit non-zero in that case, matching
// spec.md §6's "exit 0 on clean stop, 1 on stop error" contract.
func (o *Orchestrator) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	errs := make([]error, len(o.supervisors))
	for i, sup := range o.supervisors {
		o.wg.Add(1)
		go func(i int, sup Supervisor) {
			defer o.wg.Done()
			if err := sup.Run(runCtx); err != nil {
				o.logger.Printf("orchestrator: supervisor %d exited: %v", i, err)
				errs[i] = err
			}
		}(i, sup)
	}

	<-runCtx.Done()
	o.wg.Wait()
	return errors.Join(errs...)
}

// Stop cancels every supervisor's context. Safe to call once Run has
// started; a nil cancel (Run not yet called) is a no-op.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
}
