// Package component implements the Component tree (§4.2): the recursive
// container that mirrors the physical rig layout, owns each leaf's Driver
// and TelemetryKeeper, and resolves dotted command targets down to the
// Component that actually executes them. It is grounded on the teacher's
// internal/task manager: a name-keyed, insertion-ordered child map with
// explicit Start/Stop-style lifecycle, generalized here from a flat task
// list to an arbitrarily deep tree.
package component

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"icc.tech/hil-supervisor/internal/driver"
	"icc.tech/hil-supervisor/internal/telemetry"
)

// Kind tags what a Component represents in the rig (§3 "Component").
type Kind string

const (
	KindRoot         Kind = "root"
	KindVCU          Kind = "vcu"
	KindPowerSupply  Kind = "power_supply"
	KindSerialLine   Kind = "serial_line"
	KindRemoteShell  Kind = "remote_shell"
	KindVLAN         Kind = "vlan"
	KindGeneric      Kind = "generic"
)

// Hooks lets a Component (in practice, a VCU) participate in the command
// callstack and per-cycle housekeeping beyond plain Driver dispatch.
type Hooks interface {
	// OnCommandPending fires once per dequeued command for every
	// Component on the resolved path from root to target, inclusive.
	// isTerminal is true only for the Component the command actually
	// targets. A VCU uses this to move idle→command ahead of a
	// descendant's Driver executing, and to run VCU-targeted operations
	// (RECOVERY, POWER_OFF, ...) directly when it is itself the target.
	OnCommandPending(ctx context.Context, cmd Command, isTerminal bool) error

	// CommandComplete fires once per cycle, after the dispatch step,
	// for every non-terminal Component that received OnCommandPending
	// this cycle (the cmd_complete command→idle transition, §4.3).
	CommandComplete(ctx context.Context) error

	// CheckState runs every cycle for every Component with Hooks,
	// independent of whether a command targeted it (§4.6 step 4).
	CheckState(ctx context.Context) error

	// WriteTelemetry projects any Hooks-owned state (e.g. a VCU's
	// current state name) into keeper.
	WriteTelemetry(ctx context.Context, keeper *telemetry.Keeper)
}

// Projector turns a Driver's raw ReadState map into telemetry Points
// appended to keeper, using whatever key mapping the leaf kind defines
// (e.g. powersupply's §4.4 table).
type Projector func(state map[string]interface{}, keeper *telemetry.Keeper)

// InvokeMapper turns an inbound Command's options into the verb/arg pair
// a Driver.Invoke call expects, rejecting anything it doesn't recognize.
type InvokeMapper func(cmd Command) (verb string, arg interface{}, err error)

// Component is one node of the rig tree.
type Component struct {
	name string
	kind Kind

	mu       sync.RWMutex
	children map[string]*Component
	order    []string

	keeper *telemetry.Keeper

	drv       driver.Driver
	projector Projector
	invoker   InvokeMapper

	hooks Hooks
}

// New creates a detached Component with no Driver and no Hooks. Leaf
// kinds get their Driver through SetDriver; kinds that participate in the
// command callstack or per-cycle housekeeping get Hooks through SetHooks
// (only KindVCU does today).
func New(name string, kind Kind) *Component {
	return &Component{
		name:     name,
		kind:     kind,
		children: make(map[string]*Component),
		keeper:   telemetry.NewKeeper(),
	}
}

// Name returns this Component's own (undotted) name.
func (c *Component) Name() string { return c.name }

// Kind returns this Component's tag.
func (c *Component) Kind() Kind { return c.kind }

// Keeper returns this Component's owned TelemetryKeeper.
func (c *Component) Keeper() *telemetry.Keeper { return c.keeper }

// SetDriver attaches drv, proj and inv to a leaf Component. Calling it on
// a Component that already owns children is a programming error the
// builder must avoid; leaves and containers are disjoint in this tree.
func (c *Component) SetDriver(drv driver.Driver, proj Projector, inv InvokeMapper) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drv = drv
	c.projector = proj
	c.invoker = inv
}

// Driver returns the attached Driver, or nil for a container Component.
func (c *Component) Driver() driver.Driver {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.drv
}

// SetHooks attaches hooks, making this Component command-aware.
func (c *Component) SetHooks(hooks Hooks) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = hooks
}

// Hooks returns the attached Hooks, or nil.
func (c *Component) Hooks() Hooks {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hooks
}

// AdoptChild inserts child under name, preserving insertion order so
// telemetry drains and tree walks are deterministic. child's own
// TelemetryKeeper becomes a child of c's keeper (§4.4 dotted prefixing).
func (c *Component) AdoptChild(name string, child *Component) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.children[name]; !exists {
		c.order = append(c.order, name)
	}
	c.children[name] = child
	c.keeper.AdoptChild(name, child.keeper)
}

// DropChild removes name, detaching its TelemetryKeeper from the tree
// too. Used by POWER_OFF (rebuild) and BRING_OFFLINE (no rebuild) alike;
// the caller decides whether to AdoptChild a fresh replacement after.
func (c *Component) DropChild(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.children[name]; !exists {
		return
	}
	delete(c.children, name)
	for i, n := range c.order {
		if n == name {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.keeper.DropChild(name)
}

// Child looks up an immediate child by its undotted name.
func (c *Component) Child(name string) (*Component, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	child, ok := c.children[name]
	return child, ok
}

// Children returns immediate children in insertion order.
func (c *Component) Children() []*Component {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Component, 0, len(c.order))
	for _, n := range c.order {
		out = append(out, c.children[n])
	}
	return out
}

// ErrNotFound is returned by Resolve when a dotted path has no matching
// Component; the caller logs it and drops the command, it never aborts a
// cycle (§4.6: an unresolvable target is not a Driver error).
type ErrNotFound struct {
	Path string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("component: no such target %q", e.Path)
}

// Resolve walks a dotted path (e.g. "donatello.power_supply") from c and
// returns the ancestors of the target, in root-to-leaf order, starting
// with c itself and followed by every Component strictly between c and
// the target, plus the target Component itself. An empty path resolves to
// c with no ancestors.
func (c *Component) Resolve(path string) (ancestors []*Component, terminal *Component, err error) {
	if path == "" {
		return nil, c, nil
	}
	parts := strings.Split(path, ".")
	ancestors = append(ancestors, c)
	cur := c
	for i, part := range parts {
		child, ok := cur.Child(part)
		if !ok {
			return nil, nil, &ErrNotFound{Path: path}
		}
		if i == len(parts)-1 {
			return ancestors, child, nil
		}
		ancestors = append(ancestors, child)
		cur = child
	}
	return ancestors, cur, nil
}

// Close releases this Component's Driver (if any) and recurses into
// every child, collecting (not short-circuiting on) errors so a single
// misbehaving leaf never strands its siblings' transports open.
func (c *Component) Close(ctx context.Context) error {
	var first error
	for _, child := range c.Children() {
		if err := child.Close(ctx); err != nil && first == nil {
			first = err
		}
	}
	if c.drv != nil {
		if err := c.drv.Close(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}
