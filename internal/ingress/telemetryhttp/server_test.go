package telemetryhttp_test

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"icc.tech/hil-supervisor/internal/ingress/telemetryhttp"
	"icc.tech/hil-supervisor/internal/queue"
	"icc.tech/hil-supervisor/internal/telemetry"
)

func TestServerDrainsQueueOnEachRequest(t *testing.T) {
	points := queue.NewTelemetryQueue[telemetry.Bucket](200)
	points.Push(telemetry.Bucket{
		TimestampSeconds: float64(time.Now().UnixNano()) / float64(time.Second),
		Points:           []telemetry.Point{telemetry.String("vcu_state", "idle", time.Now())},
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	srv := telemetryhttp.New(addr, points)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Start(ctx)
	time.Sleep(50 * time.Millisecond)

	resp, err := http.Get("http://" + addr + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	var got []telemetry.Bucket
	require.NoError(t, json.Unmarshal(body, &got))
	require.Len(t, got, 1)
	require.Len(t, got[0].Points, 1)
	require.Equal(t, "vcu_state", got[0].Points[0].Name)

	resp2, err := http.Get("http://" + addr + "/")
	require.NoError(t, err)
	defer resp2.Body.Close()
	body2, _ := io.ReadAll(resp2.Body)
	var got2 []telemetry.Bucket
	require.NoError(t, json.Unmarshal(body2, &got2))
	require.Empty(t, got2)
}
