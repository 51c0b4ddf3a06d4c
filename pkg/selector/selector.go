// Package selector implements the master's node-placement policy as a pure
// function over a read-only snapshot of the cluster. It holds no state of
// its own and performs no locking: callers are expected to invoke it from
// inside the scheduler's serialized region, where the snapshot it is given
// cannot change out from under it.
package selector

import "sort"

// Outcome discriminates the three possible results of Select.
type Outcome int

const (
	// Node means placement succeeded; Node names the chosen node.
	Node Outcome = iota
	// Busy means every configured node is at capacity.
	Busy
	// AllBad means capacity exists somewhere, but every node with spare
	// capacity is excluded by a black-list.
	AllBad
)

// Result is the full answer from Select.
type Result struct {
	Outcome Outcome
	Node    string // valid iff Outcome == Node
	Tried   int    // valid iff Outcome == AllBad: size of the task's black-list
	Total   int    // valid iff Outcome == AllBad: number of configured nodes
}

// Terminal reports whether an AllBad result means the task has now failed
// on every node it could ever run on (tried >= total), as opposed to being
// merely excluded right now with other candidates still untried.
func (r Result) Terminal() bool {
	return r.Outcome == AllBad && r.Tried >= r.Total
}

// Snapshot is the read-only cluster view Select operates over.
type Snapshot struct {
	// Nodes lists every configured node name.
	Nodes []string
	// Load maps node name to current live-worker count.
	Load map[string]int
	// Capacity maps node name to configured capacity.
	Capacity map[string]int
	// GlobalBlacklist is the set of administratively disabled nodes.
	GlobalBlacklist map[string]bool
}

func (s Snapshot) hasCapacity(node string) bool {
	return s.Load[node] < s.Capacity[node]
}

func (s Snapshot) configured(node string) bool {
	_, ok := s.Capacity[node]
	return ok
}

// Select implements the node-selection algorithm: fast path on a preferred
// node, then least-loaded among feasible candidates, deterministically
// tie-broken by node name.
func Select(snap Snapshot, prefNode string, taskBlacklist []string) Result {
	blacklisted := make(map[string]bool, len(taskBlacklist)+len(snap.GlobalBlacklist))
	for n := range snap.GlobalBlacklist {
		blacklisted[n] = true
	}
	for _, n := range taskBlacklist {
		blacklisted[n] = true
	}

	// 1. Preferred-node fast path.
	if prefNode != "" && snap.configured(prefNode) && !blacklisted[prefNode] && snap.hasCapacity(prefNode) {
		return Result{Outcome: Node, Node: prefNode}
	}

	// 2. Any node with spare capacity at all?
	var available []string
	for _, n := range snap.Nodes {
		if snap.hasCapacity(n) {
			available = append(available, n)
		}
	}
	if len(available) == 0 {
		return Result{Outcome: Busy}
	}

	// 3. Exclude black-listed candidates.
	var candidates []string
	for _, n := range available {
		if !blacklisted[n] {
			candidates = append(candidates, n)
		}
	}
	if len(candidates) == 0 {
		return Result{Outcome: AllBad, Tried: len(taskBlacklist), Total: len(snap.Nodes)}
	}

	// 4. Least-loaded, ties broken by node name.
	sort.Slice(candidates, func(i, j int) bool {
		li, lj := snap.Load[candidates[i]], snap.Load[candidates[j]]
		if li != lj {
			return li < lj
		}
		return candidates[i] < candidates[j]
	})
	return Result{Outcome: Node, Node: candidates[0]}
}
