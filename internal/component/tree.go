package component

import (
	"context"

	"icc.tech/hil-supervisor/internal/driver"
	"icc.tech/hil-supervisor/internal/metrics"
)

// Tree wraps the rig's root Component with the whole-tree operations the
// cycle engine drives once per tick (§4.6).
type Tree struct {
	Root *Component
}

// NewTree creates a Tree rooted at root (conventionally a KindRoot
// Component with one child per configured VCU).
func NewTree(root *Component) *Tree {
	return &Tree{Root: root}
}

// Dispatch resolves cmd.Target, walks the command callstack from root to
// the terminal Component (inclusive), and finally invokes the terminal's
// Driver if it has one. It returns the non-terminal Components that
// received OnCommandPending, so the caller can run CommandComplete on
// them once the dispatch step finishes (§4.3 cmd_complete).
func (t *Tree) Dispatch(ctx context.Context, cmd Command) ([]*Component, error) {
	ancestors, terminal, err := t.Root.Resolve(cmd.Target)
	if err != nil {
		return nil, err
	}

	var notified []*Component
	for _, a := range ancestors {
		if h := a.Hooks(); h != nil {
			if err := h.OnCommandPending(ctx, cmd, false); err != nil {
				return notified, err
			}
			notified = append(notified, a)
		}
	}
	if h := terminal.Hooks(); h != nil {
		if err := h.OnCommandPending(ctx, cmd, true); err != nil {
			return notified, err
		}
	}

	drv := terminal.Driver()
	if drv == nil || terminal.invoker == nil {
		return notified, nil
	}
	verb, arg, err := terminal.invoker(cmd)
	if err != nil {
		metrics.DriverErrorsTotal.WithLabelValues(terminal.name, "warning").Inc()
		return notified, driver.Warning(err)
	}
	if err := drv.Invoke(ctx, verb, arg); err != nil {
		severity := "warning"
		if driver.IsFatal(err) {
			severity = "fatal"
		}
		metrics.DriverErrorsTotal.WithLabelValues(terminal.name, severity).Inc()
		return notified, err
	}
	return notified, nil
}

// CompleteCommands runs CommandComplete on every Component in notified
// (the return value of a prior Dispatch), regardless of whether that
// Dispatch ultimately succeeded, since a stuck "command" state would
// otherwise never clear (§4.3 cmd_complete fires "after dispatch").
func (t *Tree) CompleteCommands(ctx context.Context, notified []*Component) {
	for _, c := range notified {
		if h := c.Hooks(); h != nil {
			h.CommandComplete(ctx)
		}
	}
}

// CheckState recursively runs CheckState on every Component that has
// Hooks (§4.6 step 4: VCUs consult their pingers and may transition).
func (t *Tree) CheckState(ctx context.Context) {
	t.walk(t.Root, func(c *Component) {
		if h := c.Hooks(); h != nil {
			h.CheckState(ctx)
		}
	})
}

// GatherTelemetry recursively reads every leaf Driver's state and every
// Hooks-bearing Component's own state, projecting both into the owning
// Component's TelemetryKeeper (§4.6 step 5). It does not drain; the
// caller drains t.Root.Keeper() afterward to collect the whole tree.
func (t *Tree) GatherTelemetry(ctx context.Context) {
	t.walk(t.Root, func(c *Component) {
		if h := c.Hooks(); h != nil {
			h.WriteTelemetry(ctx, c.Keeper())
		}
		drv := c.Driver()
		if drv == nil || c.projector == nil {
			return
		}
		state, err := drv.ReadState(ctx)
		if err != nil {
			return
		}
		c.projector(state, c.Keeper())
	})
}

func (t *Tree) walk(c *Component, fn func(*Component)) {
	fn(c)
	for _, child := range c.Children() {
		t.walk(child, fn)
	}
}

// Close recursively closes every Driver in the tree.
func (t *Tree) Close(ctx context.Context) error {
	return t.Root.Close(ctx)
}
