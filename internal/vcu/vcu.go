// Package vcu implements the per-VCU state machine (§4.3) as a
// component.Hooks attached to the VCU's own Component node. It is
// grounded on the teacher's task.Task state machine (task.go): an
// explicit State type, a mutex-guarded setState that both logs and
// updates a Prometheus gauge, and transitions gated on the current
// state rather than on the caller's assumptions.
package vcu

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"icc.tech/hil-supervisor/internal/component"
	"icc.tech/hil-supervisor/internal/pinger"
	"icc.tech/hil-supervisor/internal/telemetry"
)

// RebootFunc issues the known reboot verb against the VCU's remote
// endpoint (e.g. a remote-shell command, or a serial verb), used by the
// RESTART operation (§6).
type RebootFunc func(ctx context.Context) error

// ChildBuilder constructs a fresh set of child Components (keyed by
// their local name: "power_supply", "serial_line", ...) for POWER_OFF to
// adopt back onto the VCU's Component, rebuilding its subtree from
// scratch (§4.3 "POWER_OFF rebuilds children; BRING_OFFLINE does not").
type ChildBuilder func() (map[string]*component.Component, error)

// VCU is the Hooks implementation for one VCU's Component node.
type VCU struct {
	name  string
	owner *component.Component // the Component this VCU is attached to via SetHooks
	pg    *pinger.Pinger
	log   *logrus.Entry

	reboot  RebootFunc
	rebuild ChildBuilder

	mu             sync.Mutex
	state          State
	stateEnteredAt time.Time
}

// New creates a VCU attached to owner, starting in power_off. Call
// Enable (via an ENABLE command through the tree, or directly in tests)
// to begin booting.
func New(name string, owner *component.Component, pg *pinger.Pinger, reboot RebootFunc, rebuild ChildBuilder) *VCU {
	v := &VCU{
		name:           name,
		owner:          owner,
		pg:             pg,
		log:            logrus.WithField("vcu", name),
		reboot:         reboot,
		rebuild:        rebuild,
		state:          StatePowerOff,
		stateEnteredAt: time.Now(),
	}
	owner.SetHooks(v)
	return v
}

// State returns the VCU's current state.
func (v *VCU) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

func (v *VCU) setState(s State) {
	old := v.state
	if old == s {
		return
	}
	v.state = s
	v.stateEnteredAt = time.Now()
	v.log.WithFields(logrus.Fields{"from": old, "to": s}).Info("vcu state changed")

	for _, st := range allStates {
		val := 0.0
		if st == s {
			val = 1.0
		}
		stateGauge.WithLabelValues(v.name, string(st)).Set(val)
	}
	if s == StateRecovery {
		recoveryAttempts.WithLabelValues(v.name).Inc()
	}

	if !pingerRunsIn(s) && v.pg != nil {
		v.pg.Stop()
	}
}

// OnCommandPending implements component.Hooks. When this VCU is an
// ancestor of the actual target (isTerminal false), an idle VCU moves to
// command ahead of the descendant Driver executing. When the command
// targets the VCU itself, the operation is handled directly.
func (v *VCU) OnCommandPending(ctx context.Context, cmd component.Command, isTerminal bool) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !isTerminal {
		if v.state == StateIdle {
			v.setState(StateCommand)
		}
		return nil
	}

	switch cmd.Operation {
	case component.Enable:
		return v.enableLocked()
	case component.PowerOff:
		return v.powerOffLocked(ctx)
	case component.BringOffline:
		return v.bringOfflineLocked(ctx)
	case component.Recovery:
		v.setState(StateRecovery)
		return nil
	case component.Restart:
		return v.restartLocked(ctx)
	case component.BootedForce:
		if v.state == StateBooting || v.state == StateRecovery {
			v.setState(StateIdle)
		}
		return nil
	default:
		return fmt.Errorf("vcu %s: unsupported operation %v", v.name, cmd.Operation)
	}
}

func (v *VCU) enableLocked() error {
	if v.state != StatePowerOff && v.state != StateOffline {
		return nil
	}
	v.setState(StateBooting)
	if v.pg != nil {
		v.pg.Start(context.Background())
	}
	return nil
}

func (v *VCU) powerOffLocked(ctx context.Context) error {
	if err := v.owner.Close(ctx); err != nil {
		v.log.WithError(err).Warn("power_off: close children")
	}
	if v.rebuild != nil {
		children, err := v.rebuild()
		if err != nil {
			return fmt.Errorf("vcu %s: rebuild children: %w", v.name, err)
		}
		for name, child := range children {
			v.owner.AdoptChild(name, child)
		}
	}
	v.setState(StatePowerOff)
	return nil
}

func (v *VCU) bringOfflineLocked(ctx context.Context) error {
	if err := v.owner.Close(ctx); err != nil {
		v.log.WithError(err).Warn("bring_offline: close children")
	}
	for _, child := range v.owner.Children() {
		v.owner.DropChild(child.Name())
	}
	v.setState(StateOffline)
	return nil
}

func (v *VCU) restartLocked(ctx context.Context) error {
	if v.reboot == nil {
		return fmt.Errorf("vcu %s: no reboot function configured", v.name)
	}
	if err := v.reboot(ctx); err != nil {
		return err
	}
	v.setState(StateBooting)
	return nil
}

// CommandComplete implements component.Hooks: an ancestor VCU that moved
// idle→command for a descendant's command returns to idle once the
// dispatch step finishes, regardless of that step's outcome.
func (v *VCU) CommandComplete(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state == StateCommand {
		v.setState(StateIdle)
	}
	return nil
}

// CheckState implements component.Hooks: consults the pinger snapshot
// and may transition booting→idle or idle→booting (on pinger loss).
// recovery is entered only via the RECOVERY operation in
// OnCommandPending (§4.3); there is no timeout-driven path into it.
func (v *VCU) CheckState(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch v.state {
	case StatePowerOff, StateOffline, StateCommand:
		return nil
	case StateBooting:
		if v.pg != nil && v.pg.Snapshot().Connected {
			v.setState(StateIdle)
		}
		return nil
	case StateIdle:
		if v.pg != nil && !v.pg.Snapshot().Connected {
			v.setState(StateBooting)
		}
		return nil
	case StateRecovery:
		if v.pg != nil && v.pg.Snapshot().Connected {
			v.setState(StateIdle)
		}
		return nil
	}
	return nil
}

// WriteTelemetry implements component.Hooks: publishes the VCU's own
// state name and, when a pinger is attached, its latched connectivity
// snapshot (§4.4).
func (v *VCU) WriteTelemetry(ctx context.Context, keeper *telemetry.Keeper) {
	v.mu.Lock()
	state := v.state
	v.mu.Unlock()

	now := time.Now()
	keeper.Channel("vcu_state").Append(telemetry.String("vcu_state", string(state), now))

	if v.pg == nil {
		return
	}
	snap := v.pg.Snapshot()
	keeper.Channel("connected").Append(telemetry.Boolean("connected", snap.Connected, now))
	if snap.Uname != "" {
		keeper.Channel("uname").Append(telemetry.String("uname", snap.Uname, now))
	}
	if snap.Version != "" {
		keeper.Channel("version").Append(telemetry.String("version", snap.Version, now))
	}
}
