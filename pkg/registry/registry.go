// Package registry holds the master's in-memory, process-local bookkeeping:
// live workers, per-node load and capacity, per-node outcome counters, and
// the global black-list. It is owned exclusively by the scheduler's
// serialized command loop (see pkg/scheduler) — nothing in this package
// takes its own lock, by design: the caller is the lock.
package registry

import (
	"sort"

	"github.com/cuemby/dispatch/pkg/types"
)

// Registry is the scheduler's bookkeeping store. It is not safe for
// concurrent use from more than one goroutine; the scheduler serializes all
// access to it.
type Registry struct {
	caps      map[string]int
	load      map[string]int
	counters  map[string]types.NodeCounters
	blacklist map[string]bool

	workers map[string]*types.Worker // by worker id
	byJob   map[string]map[string]bool
	byNode  map[string]map[string]bool
}

// New returns an empty Registry with no configured nodes.
func New() *Registry {
	return &Registry{
		caps:      make(map[string]int),
		load:      make(map[string]int),
		counters:  make(map[string]types.NodeCounters),
		blacklist: make(map[string]bool),
		workers:   make(map[string]*types.Worker),
		byJob:     make(map[string]map[string]bool),
		byNode:    make(map[string]map[string]bool),
	}
}

// ApplyConfig replaces the configured node set. Nodes already present keep
// their load and counters; newly-configured nodes start at zero. Nodes
// dropped from cfg lose their capacity entry (so they become unselectable)
// but any still-live workers on them, and their accumulated counters, are
// left untouched for bookkeeping until those workers terminate.
func (r *Registry) ApplyConfig(cfg []types.Node) {
	next := make(map[string]int, len(cfg))
	for _, n := range cfg {
		next[n.Name] = n.Capacity
		if _, ok := r.load[n.Name]; !ok {
			r.load[n.Name] = 0
		}
		if _, ok := r.counters[n.Name]; !ok {
			r.counters[n.Name] = types.NodeCounters{}
		}
	}
	r.caps = next
}

// Nodes returns the names of currently configured nodes, sorted.
func (r *Registry) Nodes() []string {
	names := make([]string, 0, len(r.caps))
	for n := range r.caps {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Configured reports whether node is part of the current configuration.
func (r *Registry) Configured(node string) bool {
	_, ok := r.caps[node]
	return ok
}

// Capacity returns node's configured capacity (0 if unconfigured).
func (r *Registry) Capacity(node string) int { return r.caps[node] }

// Load returns node's current live-worker count.
func (r *Registry) Load(node string) int { return r.load[node] }

// LoadSnapshot returns a copy of the current per-node load map.
func (r *Registry) LoadSnapshot() map[string]int {
	out := make(map[string]int, len(r.load))
	for n, v := range r.load {
		out[n] = v
	}
	return out
}

// CapacitySnapshot returns a copy of the current per-node capacity map.
func (r *Registry) CapacitySnapshot() map[string]int {
	out := make(map[string]int, len(r.caps))
	for n, v := range r.caps {
		out[n] = v
	}
	return out
}

// Blacklist adds node to the global black-list. Idempotent.
func (r *Registry) Blacklist(node string) { r.blacklist[node] = true }

// Whitelist removes node from the global black-list. Idempotent.
func (r *Registry) Whitelist(node string) { delete(r.blacklist, node) }

// Blacklisted reports whether node is globally black-listed.
func (r *Registry) Blacklisted(node string) bool { return r.blacklist[node] }

// BlacklistSnapshot returns a copy of the global black-list.
func (r *Registry) BlacklistSnapshot() map[string]bool {
	out := make(map[string]bool, len(r.blacklist))
	for n := range r.blacklist {
		out[n] = true
	}
	return out
}

// Counters returns node's outcome counters.
func (r *Registry) Counters(node string) types.NodeCounters { return r.counters[node] }

// RecordOutcome increments node's counter bucket for kind. Unmapped kinds
// increment nothing, per the result-kind mapping in the design.
func (r *Registry) RecordOutcome(node string, kind types.CounterKind) {
	c := r.counters[node]
	switch kind {
	case types.CounterOK:
		c.OK++
	case types.CounterDataErr:
		c.DataErr++
	case types.CounterCrash:
		c.Crash++
	}
	r.counters[node] = c
}

// StartWorker registers a newly-dispatched worker and increments its node's
// load. Must be called before the worker can possibly report termination.
func (r *Registry) StartWorker(w *types.Worker) {
	r.workers[w.WorkerID] = w
	r.load[w.Node]++

	if r.byJob[w.Jobname] == nil {
		r.byJob[w.Jobname] = make(map[string]bool)
	}
	r.byJob[w.Jobname][w.WorkerID] = true

	if r.byNode[w.Node] == nil {
		r.byNode[w.Node] = make(map[string]bool)
	}
	r.byNode[w.Node][w.WorkerID] = true
}

// Worker looks up a live worker by id. The second return is false if no
// such worker is currently live.
func (r *Registry) Worker(workerID string) (*types.Worker, bool) {
	w, ok := r.workers[workerID]
	return w, ok
}

// RemoveWorker deletes a live worker's record and decrements its node's
// load by exactly one. A second call for the same worker finds no record,
// returns false and leaves load unchanged (see
// Scheduler.cleanWorkerLocked).
func (r *Registry) RemoveWorker(workerID string) (*types.Worker, bool) {
	w, ok := r.workers[workerID]
	if !ok {
		return nil, false
	}
	delete(r.workers, workerID)
	r.load[w.Node]--

	if set := r.byJob[w.Jobname]; set != nil {
		delete(set, workerID)
		if len(set) == 0 {
			delete(r.byJob, w.Jobname)
		}
	}
	if set := r.byNode[w.Node]; set != nil {
		delete(set, workerID)
		if len(set) == 0 {
			delete(r.byNode, w.Node)
		}
	}
	return w, true
}

// WorkersByJob returns the live workers for jobname.
func (r *Registry) WorkersByJob(jobname string) []*types.Worker {
	ids := r.byJob[jobname]
	out := make([]*types.Worker, 0, len(ids))
	for id := range ids {
		out = append(out, r.workers[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WorkerID < out[j].WorkerID })
	return out
}

// WorkersByNode returns the live workers on node.
func (r *Registry) WorkersByNode(node string) []*types.Worker {
	ids := r.byNode[node]
	out := make([]*types.Worker, 0, len(ids))
	for id := range ids {
		out = append(out, r.workers[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WorkerID < out[j].WorkerID })
	return out
}

// LiveWorkerCount returns the total number of live workers across all
// nodes. Used by tests asserting the Σload = |live_workers| invariant.
func (r *Registry) LiveWorkerCount() int { return len(r.workers) }
