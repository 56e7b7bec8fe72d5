package queue_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"icc.tech/hil-supervisor/internal/queue"
)

func TestCommandQueueFIFOOrder(t *testing.T) {
	q := queue.NewCommandQueue[int]()
	q.Push(1)
	q.Push(2)
	q.Push(3)

	v, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, q.Len())
}

func TestCommandQueuePopEmptyReturnsFalse(t *testing.T) {
	q := queue.NewCommandQueue[string]()
	_, ok := q.Pop()
	assert.False(t, ok)
}

func TestTelemetryQueueNeverExceedsCapacity(t *testing.T) {
	q := queue.NewTelemetryQueue[int](200)
	for i := 0; i < 250; i++ {
		q.Push(i)
	}
	assert.Equal(t, 200, q.Len())
}

func TestTelemetryQueueDropsOldestOnOverflow(t *testing.T) {
	q := queue.NewTelemetryQueue[int](3)
	q.Push(1)
	q.Push(2)
	q.Push(3)
	q.Push(4) // evicts 1

	got := q.Drain()
	assert.Equal(t, []int{2, 3, 4}, got)
	assert.Equal(t, 0, q.Len())
}
