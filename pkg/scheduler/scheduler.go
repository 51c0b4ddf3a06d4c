// Package scheduler implements the master scheduling authority described by
// the design: a single-threaded serializer over a waitlist and a node
// registry, a poke-driven loop, and the worker-lifecycle bookkeeping that
// keeps the two consistent.
//
//	submit ──► waitlist ──► tryDispatch ──► selector.Select ──► Spawner.Start
//	                             ▲                                   │
//	                             └───────── WorkerTerminated ◄───────┘
//
// Every public method enqueues a closure onto a single command channel
// drained by one goroutine (run). That goroutine is the only thing that
// ever touches the waitlist or the Registry: posting to the channel is the
// "poke" the design calls for, so there is no separate signal to forget.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/cuemby/dispatch/pkg/events"
	"github.com/cuemby/dispatch/pkg/log"
	"github.com/cuemby/dispatch/pkg/metrics"
	"github.com/cuemby/dispatch/pkg/registry"
	"github.com/cuemby/dispatch/pkg/selector"
	"github.com/cuemby/dispatch/pkg/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Scheduler is the master scheduling authority for one cluster.
type Scheduler struct {
	reg     *registry.Registry
	spawner Spawner
	broker  *events.Broker
	logger  zerolog.Logger

	cmdCh  chan func()
	stopCh chan struct{}
	once   sync.Once

	waitlist []*types.Task
}

// New creates a Scheduler with the given initial node configuration. spawner
// must not be nil; broker may be nil, in which case events are dropped.
func New(spawner Spawner, cfg []types.Node, broker *events.Broker) *Scheduler {
	reg := registry.New()
	reg.ApplyConfig(cfg)

	return &Scheduler{
		reg:     reg,
		spawner: spawner,
		broker:  broker,
		logger:  log.WithComponent("scheduler"),
		cmdCh:   make(chan func(), 256),
		stopCh:  make(chan struct{}),
	}
}

// Start begins the command loop in its own goroutine.
func (s *Scheduler) Start() {
	go s.run()
}

// Stop halts the command loop. Safe to call more than once.
func (s *Scheduler) Stop() {
	s.once.Do(func() { close(s.stopCh) })
}

func (s *Scheduler) run() {
	for {
		select {
		case cmd := <-s.cmdCh:
			cmd()
		case <-s.stopCh:
			return
		}
	}
}

// do posts fn to the command queue and blocks until it has run. It is how
// every public method other than Submit hands its work to the single
// serializing goroutine while still giving the caller a synchronous-looking
// API.
func (s *Scheduler) do(fn func()) {
	done := make(chan struct{})
	s.cmdCh <- func() {
		fn()
		close(done)
	}
	<-done
}

func (s *Scheduler) publish(jobname string, typ events.EventType, msg string) {
	if s.broker == nil {
		return
	}
	s.broker.Publish(&events.Event{
		ID:      uuid.NewString(),
		Jobname: jobname,
		Type:    typ,
		Message: msg,
	})
}

// Submit posts task to the command loop, which appends it to the waitlist
// and attempts to drain the waitlist. It returns as soon as that work is
// queued; it does not wait for the task to be admitted or dispatched. This
// is the admission contract: coordinators submitting many tasks back to
// back must not have their latency coupled to cluster fullness.
func (s *Scheduler) Submit(task *types.Task) {
	s.cmdCh <- func() {
		s.waitlist = append(s.waitlist, task)
		metrics.TasksSubmittedTotal.Inc()
		metrics.WaitlistDepth.Set(float64(len(s.waitlist)))
		s.publish(task.Jobname, events.EventTaskSubmitted, fmt.Sprintf("task %s/%d submitted", task.Jobname, task.Partid))
		s.tryDispatch()
	}
}

// KillJob asks every live worker belonging to jobname to terminate and
// drops any of its tasks still sitting in the waitlist. It acks
// synchronously, before any of the matched workers' terminations are
// observed — callers that need a synchronous "all dead" barrier must build
// one on top of the termination notifications.
func (s *Scheduler) KillJob(jobname string) {
	s.do(func() {
		s.killJobLocked(jobname)
		metrics.JobsKilledTotal.Inc()
		s.publish(jobname, events.EventJobKilled, fmt.Sprintf("job %s killed", jobname))
	})
}

// CleanJob is KillJob followed by dropping the job's tasks and asking drop
// (typically storage.Store.DropJob) to discard its event log. It acks
// exactly once, unlike the source this design is drawn from.
func (s *Scheduler) CleanJob(jobname string, drop func(jobname string) error) {
	s.do(func() {
		s.killJobLocked(jobname)
		if drop != nil {
			if err := drop(jobname); err != nil {
				s.logger.Warn().Err(err).Str("jobname", jobname).Msg("failed to drop job event log")
			}
		}
		s.publish(jobname, events.EventJobCleaned, fmt.Sprintf("job %s cleaned", jobname))
	})
}

func (s *Scheduler) killJobLocked(jobname string) {
	kept := s.waitlist[:0]
	for _, t := range s.waitlist {
		if t.Jobname != jobname {
			kept = append(kept, t)
		}
	}
	s.waitlist = kept
	metrics.WaitlistDepth.Set(float64(len(s.waitlist)))

	for _, w := range s.reg.WorkersByJob(jobname) {
		s.spawner.Kill(w.WorkerID)
	}
}

// Blacklist globally disables node. Idempotent.
func (s *Scheduler) Blacklist(node string) {
	s.do(func() {
		s.reg.Blacklist(node)
		s.publish("", events.EventNodeBlacklisted, "node "+node+" blacklisted")
	})
}

// Whitelist re-enables node and pokes the loop. Idempotent.
func (s *Scheduler) Whitelist(node string) {
	s.do(func() {
		s.reg.Whitelist(node)
		s.publish("", events.EventNodeWhitelisted, "node "+node+" whitelisted")
		s.tryDispatch()
	})
}

// UpdateConfig replaces the node configuration and pokes the loop. Nodes
// already present keep their load and counters.
func (s *Scheduler) UpdateConfig(cfg []types.Node) {
	s.do(func() {
		s.reg.ApplyConfig(cfg)
		metrics.NodesTotal.Set(float64(len(cfg)))
		s.publish("", events.EventConfigReloaded, "configuration reloaded")
		s.tryDispatch()
	})
}

// GetActive returns the nodes and partition ids currently running jobname.
func (s *Scheduler) GetActive(jobname string) (nodes []string, partids []int) {
	s.do(func() {
		for _, w := range s.reg.WorkersByJob(jobname) {
			nodes = append(nodes, w.Node)
			partids = append(partids, w.Partid)
		}
	})
	return nodes, partids
}

// GetNodeInfo returns a snapshot of every configured node.
func (s *Scheduler) GetNodeInfo() []types.NodeInfo {
	var out []types.NodeInfo
	s.do(func() {
		for _, n := range s.reg.Nodes() {
			out = append(out, types.NodeInfo{
				Name:        n,
				Capacity:    s.reg.Capacity(n),
				Load:        s.reg.Load(n),
				Counters:    s.reg.Counters(n),
				Blacklisted: s.reg.Blacklisted(n),
			})
		}
	})
	return out
}

// GetNode returns a snapshot of one node and its active workers. ok is
// false if node is not configured.
func (s *Scheduler) GetNode(node string) (info types.NodeInfo, workers []types.ActiveWorker, ok bool) {
	s.do(func() {
		if !s.reg.Configured(node) {
			return
		}
		ok = true
		info = types.NodeInfo{
			Name:        node,
			Capacity:    s.reg.Capacity(node),
			Load:        s.reg.Load(node),
			Counters:    s.reg.Counters(node),
			Blacklisted: s.reg.Blacklisted(node),
		}
		for _, w := range s.reg.WorkersByNode(node) {
			workers = append(workers, types.ActiveWorker{
				WorkerID: w.WorkerID,
				Jobname:  w.Jobname,
				Node:     w.Node,
				Partid:   w.Partid,
				Mode:     w.Mode,
			})
		}
	})
	return info, workers, ok
}

// WorkerTerminated reports that a worker has exited, normally or not. It is
// the only entry point into the Scheduler that originates outside the
// command loop other than the public operations above, and is how
// clean_worker bookkeeping is driven.
func (s *Scheduler) WorkerTerminated(workerID string, result types.ResultKind, message string) {
	s.do(func() {
		s.cleanWorkerLocked(workerID, result, message)
	})
}

func (s *Scheduler) cleanWorkerLocked(workerID string, result types.ResultKind, message string) {
	w, ok := s.reg.RemoveWorker(workerID)
	if !ok {
		s.logger.Warn().Str("worker_id", workerID).Msg("termination reported for unknown worker")
		return
	}

	kind := types.CounterKindFor(result)
	s.reg.RecordOutcome(w.Node, kind)
	metrics.WorkerOutcomesTotal.WithLabelValues(w.Node, string(kind)).Inc()
	metrics.LiveWorkersTotal.Set(float64(s.reg.LiveWorkerCount()))

	evType := events.EventWorkerCrashed
	switch kind {
	case types.CounterOK:
		evType = events.EventWorkerOK
	case types.CounterDataErr:
		evType = events.EventWorkerDataError
	}
	s.publish(w.Jobname, evType, fmt.Sprintf("worker %s on %s terminated: %s", workerID, w.Node, result))

	if w.ReplyTo != nil {
		w.ReplyTo.Notify(types.Outcome{
			Result:  result,
			Message: message,
			Node:    w.Node,
			Partid:  w.Partid,
		})
	}

	s.tryDispatch()
}

// tryDispatch attempts to place the waitlist head, repeating for as long as
// each attempt produces a terminal decision (dispatched, or terminally
// unplaceable). It never blocks on I/O and always returns.
func (s *Scheduler) tryDispatch() {
	for len(s.waitlist) > 0 {
		head := s.waitlist[0]
		snap := selector.Snapshot{
			Nodes:           s.reg.Nodes(),
			Load:            s.reg.LoadSnapshot(),
			Capacity:        s.reg.CapacitySnapshot(),
			GlobalBlacklist: s.reg.BlacklistSnapshot(),
		}
		result := selector.Select(snap, head.Pref.Node, head.Pref.TaskBlacklist)

		switch result.Outcome {
		case selector.Node:
			s.waitlist = s.waitlist[1:]
			metrics.WaitlistDepth.Set(float64(len(s.waitlist)))
			metrics.DispatchAttemptsTotal.WithLabelValues("dispatched").Inc()
			s.startWorker(head, result.Node)
			continue

		case selector.Busy:
			metrics.DispatchAttemptsTotal.WithLabelValues("busy").Inc()
			return

		case selector.AllBad:
			if result.Terminal() {
				s.waitlist = s.waitlist[1:]
				metrics.WaitlistDepth.Set(float64(len(s.waitlist)))
				metrics.DispatchAttemptsTotal.WithLabelValues("all_bad_terminal").Inc()
				s.publish(head.Jobname, events.EventTaskFailed, fmt.Sprintf("task %s/%d failed on all nodes", head.Jobname, head.Partid))
				if head.ReplyTo != nil {
					head.ReplyTo.MasterError("job failed on all available nodes")
				}
				continue
			}
			metrics.DispatchAttemptsTotal.WithLabelValues("all_bad_retryable").Inc()
			s.publish(head.Jobname, events.EventTaskHeld, fmt.Sprintf("task %s/%d held: all feasible nodes excluded", head.Jobname, head.Partid))
			return
		}
	}
}

// startWorker performs the birth procedure: register the worker (which
// increments load) before the spawn handshake can possibly complete, then
// hand off to the Spawner. A synchronous handshake failure is folded into
// the normal termination path rather than given special treatment.
func (s *Scheduler) startWorker(task *types.Task, node string) {
	workerID := uuid.NewString()
	w := &types.Worker{
		WorkerID: workerID,
		ReplyTo:  task.ReplyTo,
		Jobname:  task.Jobname,
		Node:     node,
		Mode:     task.Mode,
		Partid:   task.Partid,
	}
	s.reg.StartWorker(w)
	metrics.LiveWorkersTotal.Set(float64(s.reg.LiveWorkerCount()))
	s.publish(task.Jobname, events.EventTaskDispatched, fmt.Sprintf("task %s/%d dispatched to %s", task.Jobname, task.Partid, node))

	if err := s.spawner.Start(context.Background(), workerID, task, node); err != nil {
		s.logger.Error().Err(err).Str("worker_id", workerID).Str("node", node).Msg("worker start handshake failed")
		s.cleanWorkerLocked(workerID, types.ResultError, err.Error())
	}
}
