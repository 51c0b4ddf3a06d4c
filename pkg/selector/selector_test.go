package selector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func snap(nodes []string, load, cap map[string]int, blacklist ...string) Snapshot {
	bl := make(map[string]bool, len(blacklist))
	for _, n := range blacklist {
		bl[n] = true
	}
	return Snapshot{Nodes: nodes, Load: load, Capacity: cap, GlobalBlacklist: bl}
}

func TestSelectPreferredFastPath(t *testing.T) {
	s := snap([]string{"a", "b"}, map[string]int{"a": 0, "b": 0}, map[string]int{"a": 2, "b": 2})
	r := Select(s, "a", nil)
	assert.Equal(t, Node, r.Outcome)
	assert.Equal(t, "a", r.Node)
}

func TestSelectPreferredBusyFallsBackToLeastLoaded(t *testing.T) {
	s := snap([]string{"a", "b"}, map[string]int{"a": 1, "b": 0}, map[string]int{"a": 1, "b": 1})
	r := Select(s, "a", nil)
	assert.Equal(t, Node, r.Outcome)
	assert.Equal(t, "b", r.Node)
}

func TestSelectAllBusy(t *testing.T) {
	s := snap([]string{"a"}, map[string]int{"a": 1}, map[string]int{"a": 1})
	r := Select(s, "a", nil)
	assert.Equal(t, Busy, r.Outcome)
}

func TestSelectTerminalAllBad(t *testing.T) {
	s := snap([]string{"a", "b"}, map[string]int{"a": 0, "b": 0}, map[string]int{"a": 1, "b": 1})
	r := Select(s, "", []string{"a", "b"})
	assert.Equal(t, AllBad, r.Outcome)
	assert.True(t, r.Terminal())
}

func TestSelectRetryableAllBad(t *testing.T) {
	s := snap([]string{"a", "b"}, map[string]int{"a": 0, "b": 0}, map[string]int{"a": 1, "b": 1}, "a")
	r := Select(s, "", []string{"b"})
	assert.Equal(t, AllBad, r.Outcome)
	assert.False(t, r.Terminal())
}

func TestSelectDeterministicTieBreak(t *testing.T) {
	tests := []struct {
		name  string
		nodes []string
		want  string
	}{
		{"alpha beats beta", []string{"beta", "alpha"}, "alpha"},
		{"node1 beats node2", []string{"node2", "node1"}, "node1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			load := map[string]int{}
			cap := map[string]int{}
			for _, n := range tt.nodes {
				load[n] = 0
				cap[n] = 1
			}
			s := snap(tt.nodes, load, cap)
			r := Select(s, "", nil)
			assert.Equal(t, Node, r.Outcome)
			assert.Equal(t, tt.want, r.Node)
		})
	}
}

func TestSelectPreferredNodeBlacklisted(t *testing.T) {
	s := snap([]string{"a", "b"}, map[string]int{"a": 0, "b": 0}, map[string]int{"a": 2, "b": 2})
	r := Select(s, "a", []string{"a"})
	assert.Equal(t, Node, r.Outcome)
	assert.Equal(t, "b", r.Node)
}

func TestSelectUnconfiguredPreferredNodeIgnored(t *testing.T) {
	s := snap([]string{"a"}, map[string]int{"a": 0}, map[string]int{"a": 1})
	r := Select(s, "ghost", nil)
	assert.Equal(t, Node, r.Outcome)
	assert.Equal(t, "a", r.Node)
}

func TestSelectEmptyConfig(t *testing.T) {
	s := snap(nil, map[string]int{}, map[string]int{})
	r := Select(s, "", nil)
	assert.Equal(t, Busy, r.Outcome)
}
