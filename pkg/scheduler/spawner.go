package scheduler

import (
	"context"

	"github.com/cuemby/dispatch/pkg/types"
)

// Spawner is the scheduler's capability interface onto worker processes. It
// replaces a global process-name lookup (disco_worker in the source this
// design is drawn from) with a handle injected at construction, per the
// design notes: testable, and decoupled from any one worker implementation.
type Spawner interface {
	// Start launches a worker for task on node under the scheduler-chosen
	// workerID. Start must not block for the lifetime of the task — it only
	// performs the initial handshake and returns. The worker reports its own
	// termination later via Scheduler.WorkerTerminated.
	Start(ctx context.Context, workerID string, task *types.Task, node string) error

	// Kill asks a live worker to terminate. Best-effort: the actual
	// termination is still reported asynchronously through the
	// Terminator, exactly as in the normal-exit path.
	Kill(workerID string)
}
