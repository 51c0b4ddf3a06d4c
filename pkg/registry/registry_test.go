package registry

import (
	"testing"

	"github.com/cuemby/dispatch/pkg/types"
	"github.com/stretchr/testify/assert"
)

func TestApplyConfigPreservesLoadAndCounters(t *testing.T) {
	r := New()
	r.ApplyConfig([]types.Node{{Name: "a", Capacity: 2}, {Name: "b", Capacity: 2}})

	w := &types.Worker{WorkerID: "w1", Node: "a", Jobname: "j"}
	r.StartWorker(w)
	r.RecordOutcome("a", types.CounterOK)

	// Reload keeping "a", dropping "b", adding "c".
	r.ApplyConfig([]types.Node{{Name: "a", Capacity: 3}, {Name: "c", Capacity: 1}})

	assert.Equal(t, 1, r.Load("a"), "load for retained node must be preserved")
	assert.Equal(t, uint64(1), r.Counters("a").OK, "counters for retained node must be preserved")
	assert.Equal(t, 3, r.Capacity("a"), "capacity updates on reload")
	assert.False(t, r.Configured("b"), "dropped node is no longer configured")
	assert.Equal(t, 0, r.Load("c"), "new node initializes at zero load")
	assert.Equal(t, uint64(0), r.Counters("c").OK, "new node initializes at zero counters")
}

func TestStartAndRemoveWorkerKeepsLoadConsistent(t *testing.T) {
	r := New()
	r.ApplyConfig([]types.Node{{Name: "a", Capacity: 2}})

	r.StartWorker(&types.Worker{WorkerID: "w1", Node: "a", Jobname: "j1"})
	r.StartWorker(&types.Worker{WorkerID: "w2", Node: "a", Jobname: "j2"})
	assert.Equal(t, 2, r.Load("a"))
	assert.Equal(t, 2, r.LiveWorkerCount())

	_, ok := r.RemoveWorker("w1")
	assert.True(t, ok)
	assert.Equal(t, 1, r.Load("a"))
	assert.Equal(t, 1, r.LiveWorkerCount())

	_, ok = r.RemoveWorker("w1")
	assert.False(t, ok, "removing an already-removed worker must report false, not double-decrement")
	assert.Equal(t, 1, r.Load("a"))
}

func TestBlacklistIdempotent(t *testing.T) {
	r := New()
	r.Blacklist("a")
	r.Blacklist("a")
	assert.True(t, r.Blacklisted("a"))
	r.Whitelist("a")
	r.Whitelist("a")
	assert.False(t, r.Blacklisted("a"))
}

func TestWorkersByJobAndNode(t *testing.T) {
	r := New()
	r.ApplyConfig([]types.Node{{Name: "a", Capacity: 5}, {Name: "b", Capacity: 5}})
	r.StartWorker(&types.Worker{WorkerID: "w1", Node: "a", Jobname: "j"})
	r.StartWorker(&types.Worker{WorkerID: "w2", Node: "b", Jobname: "j"})
	r.StartWorker(&types.Worker{WorkerID: "w3", Node: "a", Jobname: "other"})

	assert.Len(t, r.WorkersByJob("j"), 2)
	assert.Len(t, r.WorkersByNode("a"), 2)
	assert.Len(t, r.WorkersByNode("b"), 1)

	r.RemoveWorker("w1")
	assert.Len(t, r.WorkersByJob("j"), 1)
	assert.Len(t, r.WorkersByNode("a"), 1)
}
