// Package remoteshell implements the Driver for a remote shell reached
// over an encrypted transport (GLOSSARY "SGA/HPA"). HPA shells tunnel
// through an already-open SGA connection the way a jump host is dialed
// with golang.org/x/crypto/ssh.
package remoteshell

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"icc.tech/hil-supervisor/internal/driver"
)

// Params configures Open. Tunnel, if non-nil, is an already-open Driver
// whose connection this shell should dial through (HPA tunneled via SGA).
type Params struct {
	Host     string
	Port     int
	User     string
	Password string
	Timeout  time.Duration
	Tunnel   *Driver
}

// Driver is a Driver backed by an SSH client connection.
type Driver struct {
	mu      sync.Mutex
	params  Params
	client  *ssh.Client
	lastCmd string
}

// New creates an unopened remote-shell driver.
func New() *Driver {
	return &Driver{}
}

var _ driver.Driver = (*Driver)(nil)

// Open establishes (or reuses) the SSH connection. Idempotent.
func (d *Driver) Open(ctx context.Context, params map[string]interface{}) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.client != nil {
		return nil
	}

	p := paramsFromMap(params)
	d.params = p

	cfg := &ssh.ClientConfig{
		User:            p.User,
		Auth:            []ssh.AuthMethod{ssh.Password(p.Password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // lab fixture network, not the public internet
		Timeout:         p.Timeout,
	}
	addr := fmt.Sprintf("%s:%d", p.Host, p.Port)

	if p.Tunnel != nil {
		tunnelClient := p.Tunnel.sshClient()
		if tunnelClient == nil {
			return driver.Fatal(fmt.Errorf("remoteshell: tunnel host not open"))
		}
		conn, err := tunnelClient.Dial("tcp", addr)
		if err != nil {
			return driver.Warning(fmt.Errorf("remoteshell: tunnel dial %s: %w", addr, err))
		}
		cConn, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
		if err != nil {
			conn.Close()
			return driver.Warning(fmt.Errorf("remoteshell: tunnel handshake %s: %w", addr, err))
		}
		d.client = ssh.NewClient(cConn, chans, reqs)
		return nil
	}

	client, err := sshDialTimeout(ctx, addr, cfg, p.Timeout)
	if err != nil {
		return driver.Warning(fmt.Errorf("remoteshell: dial %s: %w", addr, err))
	}
	d.client = client
	return nil
}

func sshDialTimeout(ctx context.Context, addr string, cfg *ssh.ClientConfig, timeout time.Duration) (*ssh.Client, error) {
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	cConn, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return ssh.NewClient(cConn, chans, reqs), nil
}

func (d *Driver) sshClient() *ssh.Client {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.client
}

// Close shuts the SSH connection down.
func (d *Driver) Close(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.client == nil {
		return nil
	}
	err := d.client.Close()
	d.client = nil
	if err != nil {
		return driver.Warning(err)
	}
	return nil
}

// ReadState reports the last command line that ran successfully over the
// shell. The pinger does not go through ReadState: its probe calls Run
// directly under its own bounded timeout, independent of the cycle.
func (d *Driver) ReadState(ctx context.Context) (map[string]interface{}, error) {
	return map[string]interface{}{"last_command": d.lastCmd}, nil
}

// Invoke runs a remote shell command line, e.g. a reboot verb (§4.3
// "known reboot serial verb").
func (d *Driver) Invoke(ctx context.Context, verb string, arg interface{}) error {
	cmd, ok := arg.(string)
	if !ok {
		cmd = verb
	}
	_, err := d.Run(ctx, cmd)
	if err != nil {
		return driver.Warning(err)
	}
	return nil
}

// Run executes cmd over a new SSH session, bounded by ctx's deadline.
func (d *Driver) Run(ctx context.Context, cmd string) (string, error) {
	client := d.sshClient()
	if client == nil {
		return "", fmt.Errorf("remoteshell: not open")
	}

	session, err := client.NewSession()
	if err != nil {
		return "", fmt.Errorf("remoteshell: new session: %w", err)
	}
	defer session.Close()

	var out bytes.Buffer
	session.Stdout = &out

	done := make(chan error, 1)
	go func() { done <- session.Run(cmd) }()

	select {
	case err := <-done:
		if err != nil {
			return "", fmt.Errorf("remoteshell: run %q: %w", cmd, err)
		}
		d.mu.Lock()
		d.lastCmd = cmd
		d.mu.Unlock()
		return out.String(), nil
	case <-ctx.Done():
		session.Signal(ssh.SIGKILL)
		return "", ctx.Err()
	}
}

func paramsFromMap(m map[string]interface{}) Params {
	p := Params{Timeout: 10 * time.Second}
	if v, ok := m["host"].(string); ok {
		p.Host = v
	}
	if v, ok := m["port"].(int); ok {
		p.Port = v
	} else if v, ok := m["port"].(float64); ok {
		p.Port = int(v)
	}
	if p.Port == 0 {
		p.Port = 22
	}
	if v, ok := m["user"].(string); ok {
		p.User = v
	}
	if v, ok := m["password"].(string); ok {
		p.Password = v
	}
	if v, ok := m["tunnel"].(*Driver); ok {
		p.Tunnel = v
	}
	return p
}
