// Package worker provides a reference implementation of the scheduler's
// Spawner capability interface. The worker process itself is out of scope
// for the master (see the design's non-goals): this package supplies only
// the minimal in-process stand-in needed to exercise the birth/termination
// contract the scheduler depends on, for local testing and demos. A real
// deployment would replace it with something that execs a subprocess or
// calls out over the network — nothing in pkg/scheduler depends on this
// package.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cuemby/dispatch/pkg/log"
	"github.com/cuemby/dispatch/pkg/types"
	"github.com/rs/zerolog"
)

// Terminator is the subset of *scheduler.Scheduler that a Spawner needs to
// report worker completion back to. Defined here, not imported from
// pkg/scheduler, so this package stays a leaf: scheduler.Scheduler already
// satisfies it.
type Terminator interface {
	WorkerTerminated(workerID string, result types.ResultKind, message string)
}

// Runner executes one task's simulated work and reports how it went.
// Run must respect ctx cancellation (delivered on Kill) by returning
// promptly with types.ResultError.
type Runner interface {
	Run(ctx context.Context, task *types.Task, node string) (types.ResultKind, string)
}

// SimWorker is a Spawner backed by goroutines rather than real processes.
type SimWorker struct {
	term   Terminator
	runner Runner
	logger zerolog.Logger

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// New returns a SimWorker that reports completions to term using runner to
// decide each task's outcome.
func New(term Terminator, runner Runner) *SimWorker {
	return &SimWorker{
		term:    term,
		runner:  runner,
		logger:  log.WithComponent("worker"),
		cancels: make(map[string]context.CancelFunc),
	}
}

// Start launches a goroutine that runs runner.Run and reports the result.
// It never returns an error itself; failures surface as a ResultError
// outcome through Terminator, same as any other worker failure.
func (w *SimWorker) Start(ctx context.Context, workerID string, task *types.Task, node string) error {
	runCtx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.cancels[workerID] = cancel
	w.mu.Unlock()

	go func() {
		defer func() {
			w.mu.Lock()
			delete(w.cancels, workerID)
			w.mu.Unlock()
		}()

		result, msg := w.runner.Run(runCtx, task, node)
		w.logger.Debug().
			Str("worker_id", workerID).
			Str("node", node).
			Str("jobname", task.Jobname).
			Str("result", string(result)).
			Msg("worker finished")
		w.term.WorkerTerminated(workerID, result, msg)
	}()

	return nil
}

// Kill cancels the context passed to the worker's Runner, if it is still
// live. Best-effort, matching the design's kill semantics: the actual
// termination is still reported asynchronously.
func (w *SimWorker) Kill(workerID string) {
	w.mu.Lock()
	cancel, ok := w.cancels[workerID]
	w.mu.Unlock()
	if ok {
		cancel()
	}
}

// FixedRunner completes every task with the same outcome after Delay. It
// exists for tests and demos that need deterministic outcomes.
type FixedRunner struct {
	Result types.ResultKind
	Delay  time.Duration
}

func (r FixedRunner) Run(ctx context.Context, task *types.Task, node string) (types.ResultKind, string) {
	select {
	case <-time.After(r.Delay):
		return r.Result, fmt.Sprintf("partition %d on %s", task.Partid, node)
	case <-ctx.Done():
		return types.ResultError, "killed"
	}
}
