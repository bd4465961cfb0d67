package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestPool_ExecutePreservesOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	pool := NewPool[int, int](4, func(_ context.Context, n int) (int, error) {
		return n * n, nil
	})
	inputs := []int{1, 2, 3, 4, 5, 6, 7, 8, 9}
	results := pool.Execute(context.Background(), inputs)

	require.Len(t, results, len(inputs))
	for i, r := range results {
		require.NoError(t, r.Err)
		assert.Equal(t, inputs[i], r.Input)
		assert.Equal(t, inputs[i]*inputs[i], r.Result)
	}
}

func TestPool_ErrorsStayWithTheirTask(t *testing.T) {
	defer goleak.VerifyNone(t)

	boom := errors.New("boom")
	pool := NewPool[int, string](2, func(_ context.Context, n int) (string, error) {
		if n%2 == 0 {
			return "", boom
		}
		return "ok", nil
	})
	results := pool.Execute(context.Background(), []int{1, 2, 3})

	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, boom)
	assert.Equal(t, "ok", results[2].Result)
}

func TestPool_CancelledContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	pool := NewPool[int, int](0, func(_ context.Context, n int) (int, error) {
		calls.Add(1)
		return n, nil
	})
	results := pool.Execute(ctx, []int{1, 2, 3})

	require.Len(t, results, 3)
	for _, r := range results {
		if r.Err != nil {
			assert.ErrorIs(t, r.Err, context.Canceled)
		}
	}
}

func TestBatch(t *testing.T) {
	assert.Equal(t, [][]int{{1, 2}, {3, 4}, {5}}, Batch([]int{1, 2, 3, 4, 5}, 2))
	assert.Equal(t, [][]int{{1}, {2}}, Batch([]int{1, 2}, 0))
	assert.Nil(t, Batch([]int{}, 3))
}
