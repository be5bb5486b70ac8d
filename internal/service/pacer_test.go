package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendInterval(t *testing.T) {
	assert.Equal(t, 6*time.Minute, SendInterval(10))
	assert.Equal(t, time.Minute, SendInterval(60))
	assert.Equal(t, time.Hour, SendInterval(0))
}

func TestPacer_FirstWaitIsImmediate(t *testing.T) {
	pacer := NewPacer(10)

	started := time.Now()
	require.NoError(t, pacer.Wait(context.Background()))
	assert.Less(t, time.Since(started), 50*time.Millisecond)
}

func TestPacer_SpacesConsecutiveWaits(t *testing.T) {
	pacer := NewPacer(36000)

	require.NoError(t, pacer.Wait(context.Background()))
	started := time.Now()
	require.NoError(t, pacer.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(started), 90*time.Millisecond)
}

func TestPacer_WaitHonoursCancellation(t *testing.T) {
	pacer := NewPacer(1)
	require.NoError(t, pacer.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, pacer.Wait(ctx))
}

func TestSleepCtx(t *testing.T) {
	assert.NoError(t, sleepCtx(context.Background(), 0))
	assert.NoError(t, sleepCtx(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepCtx(ctx, time.Hour), context.Canceled)
}
