package telemetry

import "sync"

// Channel is an append-only vector of Points under one local name. Readers
// drain it (pop semantics): after Drain returns, the channel is empty.
type Channel struct {
	mu     sync.Mutex
	name   string
	points []Point
}

// NewChannel creates an empty, named channel.
func NewChannel(name string) *Channel {
	return &Channel{name: name}
}

// Name returns the channel's local (unqualified) name.
func (c *Channel) Name() string {
	return c.name
}

// Append adds a point to the channel. The point's Name is set to the
// channel's local name; callers need not set it themselves.
func (c *Channel) Append(p Point) {
	p.Name = c.name
	c.mu.Lock()
	c.points = append(c.points, p)
	c.mu.Unlock()
}

// Drain empties the channel and returns the points it held, in append
// order. Safe to call even when empty (returns nil).
func (c *Channel) Drain() []Point {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.points) == 0 {
		return nil
	}
	out := c.points
	c.points = nil
	return out
}

// Len reports the number of buffered points without draining them.
func (c *Channel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.points)
}
