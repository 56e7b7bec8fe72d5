// Package cycle implements the soft-real-time cycle engine (§4.6): a
// fixed-budget tick that dequeues at most one command, dispatches it
// through the Component tree, checks every VCU's state, gathers and
// publishes telemetry, then sleeps to the next tick boundary. It is
// grounded on the teacher's daemon.Run() select loop, generalized from
// an event-driven signal/shutdown loop to a periodic work loop that must
// never let a slow cycle accumulate backlog (§8).
package cycle

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"icc.tech/hil-supervisor/internal/component"
	"icc.tech/hil-supervisor/internal/metrics"
	"icc.tech/hil-supervisor/internal/queue"
	"icc.tech/hil-supervisor/internal/telemetry"
)

// DefaultPeriod is the cycle's soft-real-time budget (§4.6).
const DefaultPeriod = 1 * time.Second

// Sink receives one cycle's worth of telemetry, grouped by timestamp.
// internal/sink/logfile and internal/sink/timeseries each implement this.
type Sink interface {
	Publish(ctx context.Context, snapshot telemetry.Snapshot) error
}

// Engine drives the cycle loop for one rig (one Component tree).
type Engine struct {
	tree      *component.Tree
	commands  *queue.CommandQueue[component.Command]
	telemetry *queue.TelemetryQueue[telemetry.Bucket]
	sinks     []Sink
	period    time.Duration
	log       *logrus.Entry
}

// New creates an Engine. period <= 0 falls back to DefaultPeriod.
func New(tree *component.Tree, commands *queue.CommandQueue[component.Command], telemetryQueue *queue.TelemetryQueue[telemetry.Bucket], sinks []Sink, period time.Duration) *Engine {
	if period <= 0 {
		period = DefaultPeriod
	}
	return &Engine{
		tree:      tree,
		commands:  commands,
		telemetry: telemetryQueue,
		sinks:     sinks,
		period:    period,
		log:       logrus.WithField("component", "cycle"),
	}
}

// Run blocks, driving one cycle per period, until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	e.log.WithField("period", e.period).Info("cycle engine starting")
	for {
		start := time.Now()
		e.runOnce(ctx)
		elapsed := time.Since(start)
		metrics.ObserveCycleDuration(elapsed, e.period)
		metrics.CommandQueueDepth.Set(float64(e.commands.Len()))
		metrics.TelemetryQueueDepth.Set(float64(e.telemetry.Len()))

		sleep := e.period - elapsed
		if sleep <= 0 {
			e.log.WithFields(logrus.Fields{"elapsed": elapsed, "budget": e.period}).
				Warn("cycle overran its budget; starting next cycle immediately")
			sleep = 0
		}

		select {
		case <-ctx.Done():
			e.log.Info("cycle engine stopping")
			return ctx.Err()
		case <-time.After(sleep):
		}
	}
}

func (e *Engine) runOnce(ctx context.Context) {
	notified := e.dispatchOne(ctx)
	e.tree.CheckState(ctx)
	e.tree.GatherTelemetry(ctx)
	e.publish(ctx)
	e.tree.CompleteCommands(ctx, notified)
}

func (e *Engine) dispatchOne(ctx context.Context) []*component.Component {
	cmd, ok := e.commands.Pop()
	if !ok {
		return nil
	}
	opLabel := fmt.Sprintf("%d", cmd.Operation)
	if !cmd.Operation.Dispatchable() {
		e.log.WithField("operation", cmd.Operation).Warn("dropping non-dispatchable command")
		metrics.CommandsTotal.WithLabelValues(opLabel, "invalid_cmd").Inc()
		return nil
	}

	notified, err := e.tree.Dispatch(ctx, cmd)
	if err != nil {
		if nf, ok := asNotFound(err); ok {
			e.log.WithField("target", nf.Path).Warn("command target not found")
			metrics.CommandsTotal.WithLabelValues(opLabel, "not_found").Inc()
			return notified
		}
		e.log.WithFields(logrus.Fields{"target": cmd.Target, "operation": cmd.Operation}).
			WithError(err).Error("command dispatch failed")
		metrics.CommandsTotal.WithLabelValues(opLabel, "warning").Inc()
		return notified
	}
	metrics.CommandsTotal.WithLabelValues(opLabel, "ack").Inc()
	return notified
}

func asNotFound(err error) (*component.ErrNotFound, bool) {
	nf, ok := err.(*component.ErrNotFound)
	return nf, ok
}

func (e *Engine) publish(ctx context.Context) {
	points := e.tree.Root.Keeper().Drain()
	if len(points) == 0 {
		return
	}

	snapshot := telemetry.GroupByTimestamp(points)
	for _, bucket := range snapshot.Buckets() {
		e.telemetry.Push(bucket)
	}

	for _, sink := range e.sinks {
		if err := sink.Publish(ctx, snapshot); err != nil {
			e.log.WithError(err).Warn("telemetry sink publish failed")
		}
	}
}
