// Package powersupply implements the Driver for a programmable power
// supply controlled by a line-based request/response text protocol over a
// stream socket (GLOSSARY "PSU"). It is an external collaborator in the
// spec's sense: the core only ever sees it through driver.Driver.
package powersupply

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"icc.tech/hil-supervisor/internal/driver"
)

// Defaults is the configured set of startup values applied by the
// synthetic "set_defaults" verb (§6), in the order ch1 V, ch2 V, ch1 I,
// ch2 I, ch1 OE, ch2 OE.
type Defaults struct {
	Ch1Volt    float64
	Ch2Volt    float64
	Ch1Current float64
	Ch2Current float64
	Ch1Enable  bool
	Ch2Enable  bool
}

// Driver talks to the PSU over a line-oriented TCP text protocol: each
// request is a single line "VERB ARG\n", each response a single line
// reply (value, or "OK"/"ERR <reason>").
type Driver struct {
	mu       sync.Mutex
	addr     string
	timeout  time.Duration
	defaults Defaults

	conn   net.Conn
	reader *bufio.Reader
}

// New creates an unopened PSU driver. addr is "host:port"; timeout bounds
// every request/response round trip.
func New(addr string, timeout time.Duration, defaults Defaults) *Driver {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Driver{addr: addr, timeout: timeout, defaults: defaults}
}

var _ driver.Driver = (*Driver)(nil)

// Open dials the PSU's control socket. Idempotent: a second call with the
// connection already open is a no-op.
func (d *Driver) Open(ctx context.Context, params map[string]interface{}) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn != nil {
		return nil
	}
	if addr, ok := params["addr"].(string); ok && addr != "" {
		d.addr = addr
	}
	dialer := net.Dialer{Timeout: d.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", d.addr)
	if err != nil {
		return driver.Fatal(fmt.Errorf("psu: dial %s: %w", d.addr, err))
	}
	d.conn = conn
	d.reader = bufio.NewReader(conn)
	return nil
}

// Close releases the control socket.
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

// ReadState queries the PSU's measured/set values and output-enable
// flags, projected into the keys the spec names in §4.4: idn,
// pri_meas_volt, red_meas_volt, pri_set_volt, red_set_volt,
// pri_meas_curr, red_meas_curr, pri_set_curr, red_set_curr,
// pri_output_enable, red_output_enable.
func (d *Driver) ReadState(ctx context.Context) (map[string]interface{}, error) {
	queries := []struct {
		key  string
		verb string
		kind string // "string", "float", "bool"
	}{
		{"idn", "IDN?", "string"},
		{"pri_meas_volt", "MEAS:VOLT? 1", "float"},
		{"red_meas_volt", "MEAS:VOLT? 2", "float"},
		{"pri_set_volt", "VOLT? 1", "float"},
		{"red_set_volt", "VOLT? 2", "float"},
		{"pri_meas_curr", "MEAS:CURR? 1", "float"},
		{"red_meas_curr", "MEAS:CURR? 2", "float"},
		{"pri_set_curr", "CURR? 1", "float"},
		{"red_set_curr", "CURR? 2", "float"},
		{"pri_output_enable", "OUTP? 1", "bool"},
		{"red_output_enable", "OUTP? 2", "bool"},
	}

	state := make(map[string]interface{}, len(queries))
	for _, q := range queries {
		reply, err := d.roundTrip(ctx, q.verb)
		if err != nil {
			return state, driver.Warning(fmt.Errorf("psu: query %s: %w", q.verb, err))
		}
		switch q.kind {
		case "float":
			v, err := strconv.ParseFloat(reply, 64)
			if err != nil {
				continue
			}
			state[q.key] = v
		case "bool":
			state[q.key] = reply == "1" || reply == "ON"
		default:
			state[q.key] = reply
		}
	}
	return state, nil
}

// Invoke maps a recognized PWR_SUPPLY_CMD name (§6) to a wire verb.
func (d *Driver) Invoke(ctx context.Context, verb string, arg interface{}) error {
	switch verb {
	case "set_voltage_channel1":
		return d.setFloat(ctx, "VOLT 1", arg)
	case "set_voltage_channel2":
		return d.setFloat(ctx, "VOLT 2", arg)
	case "set_current_channel1":
		return d.setFloat(ctx, "CURR 1", arg)
	case "set_current_channel2":
		return d.setFloat(ctx, "CURR 2", arg)
	case "set_output_channel1":
		return d.setBool(ctx, "OUTP 1", arg)
	case "set_output_channel2":
		return d.setBool(ctx, "OUTP 2", arg)
	case "set_defaults":
		return d.applyDefaults(ctx)
	default:
		return driver.Warning(fmt.Errorf("psu: unrecognized verb %q", verb))
	}
}

func (d *Driver) applyDefaults(ctx context.Context) error {
	steps := []struct {
		verb string
		arg  interface{}
	}{
		{"set_voltage_channel1", d.defaults.Ch1Volt},
		{"set_voltage_channel2", d.defaults.Ch2Volt},
		{"set_current_channel1", d.defaults.Ch1Current},
		{"set_current_channel2", d.defaults.Ch2Current},
		{"set_output_channel1", d.defaults.Ch1Enable},
		{"set_output_channel2", d.defaults.Ch2Enable},
	}
	for _, s := range steps {
		if err := d.Invoke(ctx, s.verb, s.arg); err != nil {
			return err
		}
	}
	return nil
}

func (d *Driver) setFloat(ctx context.Context, verb string, arg interface{}) error {
	v, ok := toFloat(arg)
	if !ok {
		return driver.Warning(fmt.Errorf("psu: %s: value is not numeric: %v", verb, arg))
	}
	_, err := d.roundTrip(ctx, fmt.Sprintf("%s %g", verb, v))
	if err != nil {
		return driver.Warning(fmt.Errorf("psu: %s: %w", verb, err))
	}
	return nil
}

func (d *Driver) setBool(ctx context.Context, verb string, arg interface{}) error {
	b, ok := toBool(arg)
	if !ok {
		return driver.Warning(fmt.Errorf("psu: %s: value is not boolean: %v", verb, arg))
	}
	onOff := "0"
	if b {
		onOff = "1"
	}
	_, err := d.roundTrip(ctx, fmt.Sprintf("%s %s", verb, onOff))
	if err != nil {
		return driver.Warning(fmt.Errorf("psu: %s: %w", verb, err))
	}
	return nil
}

func (d *Driver) roundTrip(ctx context.Context, line string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == nil {
		return "", fmt.Errorf("psu: not open")
	}

	deadline := time.Now().Add(d.timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	if err := d.conn.SetDeadline(deadline); err != nil {
		return "", err
	}

	if _, err := fmt.Fprintf(d.conn, "%s\n", line); err != nil {
		return "", err
	}
	reply, err := d.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return trimEOL(reply), nil
}

func trimEOL(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func toBool(v interface{}) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case float64:
		return b != 0, true
	case int:
		return b != 0, true
	}
	return false, false
}
