package cmdsocket_test

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"icc.tech/hil-supervisor/internal/command"
	"icc.tech/hil-supervisor/internal/component"
	"icc.tech/hil-supervisor/internal/ingress/cmdsocket"
	"icc.tech/hil-supervisor/internal/queue"
)

func TestServerAcksValidCommand(t *testing.T) {
	commands := queue.NewCommandQueue[component.Command]()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()
	srv := cmdsocket.New(addr, commands)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Start(ctx)
	time.Sleep(50 * time.Millisecond)

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	env := command.Envelope{Operation: int(component.Enable), Target: "donatello"}
	payload, _ := json.Marshal(env)
	_, err = conn.Write(append(payload, '\n'))
	require.NoError(t, err)

	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)

	var resp command.Response
	require.NoError(t, json.Unmarshal([]byte(line), &resp))
	require.Equal(t, command.StatusACK, resp.Status)

	cmd, ok := commands.Pop()
	require.True(t, ok)
	require.Equal(t, component.Enable, cmd.Operation)
}

func TestServerRejectsInvalidJSON(t *testing.T) {
	commands := queue.NewCommandQueue[component.Command]()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()
	srv := cmdsocket.New(addr, commands)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Start(ctx)
	time.Sleep(50 * time.Millisecond)

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("{not json}\n"))
	require.NoError(t, err)

	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)

	var resp command.Response
	require.NoError(t, json.Unmarshal([]byte(line), &resp))
	require.Equal(t, command.StatusInvalidJSON, resp.Status)
}
