// Package serialline implements the Driver for a line-oriented serial
// transport (GLOSSARY). No serial library appears anywhere in the
// retrieved example pack, and this is an out-of-scope external
// collaborator (§1); rather than fabricate a dependency, the transport is
// any io.ReadWriteCloser the caller supplies (a real TTY via os.OpenFile,
// or a fake in tests), matching the pack's preference for small
// stdlib-only adapters at true system boundaries.
package serialline

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"icc.tech/hil-supervisor/internal/driver"
)

// Opener creates the underlying transport for a given device path. The
// default dials a real TTY; tests substitute a fake.
type Opener func(device string, baud int) (io.ReadWriteCloser, error)

// DefaultOpener opens device as a plain file, which is sufficient for a
// kernel-exposed TTY device node; baud rate configuration over termios is
// left to the deployment's udev/stty setup, matching the driver's
// intentionally thin out-of-scope role.
func DefaultOpener(device string, baud int) (io.ReadWriteCloser, error) {
	return os.OpenFile(device, os.O_RDWR, 0)
}

// Driver talks line-by-line to a serial device.
type Driver struct {
	mu      sync.Mutex
	opener  Opener
	device  string
	baud    int
	timeout time.Duration

	conn   io.ReadWriteCloser
	reader *bufio.Reader
}

// New creates an unopened serial driver using opener to establish the
// transport (pass serialline.DefaultOpener for a real device).
func New(opener Opener, timeout time.Duration) *Driver {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Driver{opener: opener, timeout: timeout}
}

var _ driver.Driver = (*Driver)(nil)

// Open opens the serial device named by params["device"] at
// params["baud"] (default 115200). Idempotent.
func (d *Driver) Open(ctx context.Context, params map[string]interface{}) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn != nil {
		return nil
	}

	device, _ := params["device"].(string)
	if device == "" {
		device = d.device
	}
	baud := 115200
	if v, ok := params["baud"].(int); ok {
		baud = v
	} else if v, ok := params["baud"].(float64); ok {
		baud = int(v)
	}

	conn, err := d.opener(device, baud)
	if err != nil {
		return driver.Fatal(fmt.Errorf("serialline: open %s: %w", device, err))
	}
	d.device, d.baud = device, baud
	d.conn = conn
	d.reader = bufio.NewReader(conn)
	return nil
}

// Close releases the serial transport.
func (d *Driver) Close(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == nil {
		return nil
	}
	err := d.conn.Close()
	d.conn = nil
	d.reader = nil
	if err != nil {
		return driver.Warning(err)
	}
	return nil
}

// ReadState reports basic link info; serial lines have no structured
// query protocol of their own, so state is limited to connection facts.
func (d *Driver) ReadState(ctx context.Context) (map[string]interface{}, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return map[string]interface{}{
		"device": d.device,
		"baud":   d.baud,
		"open":   d.conn != nil,
	}, nil
}

// Invoke writes a raw line to the serial device (§6 SERIAL_CMD: options
// {command:string} → raw line to serial).
func (d *Driver) Invoke(ctx context.Context, verb string, arg interface{}) error {
	line, ok := arg.(string)
	if !ok {
		line = verb
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == nil {
		return driver.Warning(fmt.Errorf("serialline: not open"))
	}
	if _, err := fmt.Fprintf(d.conn, "%s\n", line); err != nil {
		return driver.Warning(fmt.Errorf("serialline: write: %w", err))
	}
	return nil
}
