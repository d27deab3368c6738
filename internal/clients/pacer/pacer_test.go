package pacer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWait_SpacesRequests(t *testing.T) {
	p := New(50 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, p.Wait(ctx))
	require.NoError(t, p.Wait(ctx))
	require.NoError(t, p.Wait(ctx))
	elapsed := time.Since(start)

	// First call is free, the next two wait one interval each
	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
}

func TestWait_ZeroIntervalNeverBlocks(t *testing.T) {
	p := New(0)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 100; i++ {
		require.NoError(t, p.Wait(ctx))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestWait_CancelledContext(t *testing.T) {
	p := New(10 * time.Second)
	ctx := context.Background()

	// Prime the pacer so the next call would block for the full interval
	require.NoError(t, p.Wait(ctx))

	cancelCtx, cancel := context.WithCancel(ctx)
	cancel()

	err := p.Wait(cancelCtx)
	assert.ErrorIs(t, err, context.Canceled)
}
