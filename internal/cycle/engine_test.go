package cycle_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"icc.tech/hil-supervisor/internal/component"
	"icc.tech/hil-supervisor/internal/cycle"
	"icc.tech/hil-supervisor/internal/queue"
	"icc.tech/hil-supervisor/internal/telemetry"
)

type recordingSink struct {
	mu        sync.Mutex
	snapshots []telemetry.Snapshot
}

func (s *recordingSink) Publish(ctx context.Context, snapshot telemetry.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = append(s.snapshots, snapshot)
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snapshots)
}

func TestEngineGathersAndPublishesTelemetry(t *testing.T) {
	root := component.New("root", component.KindRoot)
	vcu := component.New("donatello", component.KindVCU)
	root.AdoptChild("donatello", vcu)
	vcu.Keeper().Channel("vcu_state").Append(telemetry.String("vcu_state", "idle", time.Now()))

	tree := component.NewTree(root)
	commands := queue.NewCommandQueue[component.Command]()
	telemetryQ := queue.NewTelemetryQueue[telemetry.Bucket](200)
	sink := &recordingSink{}

	engine := cycle.New(tree, commands, telemetryQ, []cycle.Sink{sink}, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	err := engine.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.Greater(t, sink.count(), 0)
	assert.Greater(t, telemetryQ.Len(), 0)
}

func TestEngineDropsUnresolvableTargetWithoutStopping(t *testing.T) {
	root := component.New("root", component.KindRoot)
	tree := component.NewTree(root)
	commands := queue.NewCommandQueue[component.Command]()
	commands.Push(component.Command{Operation: component.PwrSupplyCmd, Target: "missing.power_supply"})
	telemetryQ := queue.NewTelemetryQueue[telemetry.Bucket](200)

	engine := cycle.New(tree, commands, telemetryQ, nil, 20*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := engine.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
