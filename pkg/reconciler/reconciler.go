// Package reconciler periodically exports the scheduler's node-level
// bookkeeping to Prometheus and the health registry. It reconciles nothing
// in the scheduler itself — the scheduler's own poke-driven loop keeps its
// state correct on every event — this is purely an observability sampler,
// kept on the teacher's own ticker-loop shape (NewX/Start/Stop/run).
package reconciler

import (
	"sync"
	"time"

	"github.com/cuemby/dispatch/pkg/log"
	"github.com/cuemby/dispatch/pkg/metrics"
	"github.com/cuemby/dispatch/pkg/scheduler"
	"github.com/rs/zerolog"
)

// Reconciler samples scheduler.GetNodeInfo on a fixed interval and updates
// the corresponding gauges.
type Reconciler struct {
	sched  *scheduler.Scheduler
	logger zerolog.Logger
	period time.Duration

	mu     sync.Mutex
	stopCh chan struct{}
}

// New creates a Reconciler sampling sched every period.
func New(sched *scheduler.Scheduler, period time.Duration) *Reconciler {
	if period <= 0 {
		period = 10 * time.Second
	}
	return &Reconciler{
		sched:  sched,
		logger: log.WithComponent("reconciler"),
		period: period,
		stopCh: make(chan struct{}),
	}
}

// Start begins the sampling loop.
func (r *Reconciler) Start() {
	go r.run()
}

// Stop stops the sampling loop.
func (r *Reconciler) Stop() {
	close(r.stopCh)
}

func (r *Reconciler) run() {
	ticker := time.NewTicker(r.period)
	defer ticker.Stop()

	r.logger.Info().Dur("period", r.period).Msg("reconciler started")

	for {
		select {
		case <-ticker.C:
			r.sample()
		case <-r.stopCh:
			r.logger.Info().Msg("reconciler stopped")
			return
		}
	}
}

func (r *Reconciler) sample() {
	infos := r.sched.GetNodeInfo()
	metrics.NodesTotal.Set(float64(len(infos)))

	for _, n := range infos {
		metrics.NodeLoad.WithLabelValues(n.Name).Set(float64(n.Load))
		metrics.NodeCapacity.WithLabelValues(n.Name).Set(float64(n.Capacity))
		blacklisted := 0.0
		if n.Blacklisted {
			blacklisted = 1.0
		}
		metrics.NodeBlacklisted.WithLabelValues(n.Name).Set(blacklisted)
	}

	metrics.UpdateComponent("scheduler", true, "")
}
