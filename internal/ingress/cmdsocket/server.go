// Package cmdsocket implements the line-delimited JSON command ingress
// (§6 "Command socket"). It is grounded on the teacher's
// command.UDSServer accept loop: a connection-tracking listener with a
// per-connection bufio.Scanner/json.Encoder pair, adapted from a Unix
// domain socket carrying JSON-RPC envelopes to a plain TCP listener
// carrying the spec's flatter CommandEnvelope/Response pair.
package cmdsocket

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"sync"

	"github.com/sirupsen/logrus"

	"icc.tech/hil-supervisor/internal/command"
	"icc.tech/hil-supervisor/internal/component"
	"icc.tech/hil-supervisor/internal/queue"
)

// Server accepts line-delimited JSON command connections and pushes
// each successfully decoded command onto an unbounded CommandQueue.
type Server struct {
	addr     string
	commands *queue.CommandQueue[component.Command]
	log      *logrus.Entry

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	wg       sync.WaitGroup
	stopped  bool
}

// New creates a Server listening on addr, pushing decoded commands onto
// commands.
func New(addr string, commands *queue.CommandQueue[component.Command]) *Server {
	return &Server{
		addr:     addr,
		commands: commands,
		log:      logrus.WithField("component", "cmdsocket"),
		conns:    make(map[net.Conn]struct{}),
	}
}

// Start listens on addr and serves connections until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = listener
	s.log.WithField("addr", s.addr).Info("command socket listening")

	go s.acceptLoop(ctx)

	<-ctx.Done()
	return s.Stop()
}

func (s *Server) acceptLoop(ctx context.Context) {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.mu.Lock()
			stopped := s.stopped
			s.mu.Unlock()
			if stopped {
				return
			}
			s.log.WithError(err).Error("accept failed")
			continue
		}

		s.mu.Lock()
		if s.stopped {
			s.mu.Unlock()
			conn.Close()
			return
		}
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	scanner := bufio.NewScanner(conn)
	encoder := json.NewEncoder(conn)

	// One command per connection: read a single line, reply, and close.
	if scanner.Scan() {
		line := scanner.Bytes()

		env, err := command.Decode(line)
		if err != nil {
			encoder.Encode(command.Response{Status: command.StatusInvalidJSON, Detail: err.Error()})
			return
		}

		cmd, err := env.ToCommand()
		if err != nil {
			encoder.Encode(command.Response{Status: command.StatusInvalidCmd, Detail: err.Error()})
			return
		}

		s.commands.Push(cmd)
		encoder.Encode(command.Response{Status: command.StatusACK})
	}

	if err := scanner.Err(); err != nil {
		s.log.WithError(err).Debug("connection read error")
	}
}

// Stop closes the listener and every open connection, then waits for
// in-flight handlers to return.
func (s *Server) Stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	if s.listener != nil {
		s.listener.Close()
	}
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	s.log.Info("command socket stopped")
	return nil
}
