package janitor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew_BadSchedule(t *testing.T) {
	_, err := New("every now and then", zap.NewNop().Sugar())
	assert.Error(t, err)
}

func TestJanitor_RunOnce(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	var calls atomic.Int32

	j, err := New("@every 1h", zap.New(core).Sugar(),
		Task{Name: "broken", Run: func(context.Context) (int, error) {
			calls.Add(1)
			return 0, errors.New("store unavailable")
		}},
		Task{Name: "sessions", Run: func(context.Context) (int, error) {
			calls.Add(1)
			return 3, nil
		}},
		Task{Name: "idle", Run: func(context.Context) (int, error) {
			calls.Add(1)
			return 0, nil
		}},
	)
	require.NoError(t, err)

	j.RunOnce(context.Background())
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 1, logs.FilterLevelExact(zap.ErrorLevel).Len())
	assert.Equal(t, 1, logs.FilterMessage("janitor task sessions dropped 3 entries").Len())
}

func TestJanitor_StartRunsOnSchedule(t *testing.T) {
	var calls atomic.Int32
	j, err := New("@every 1s", zap.NewNop().Sugar(), Task{Name: "count", Run: func(context.Context) (int, error) {
		calls.Add(1)
		return 1, nil
	}})
	require.NoError(t, err)

	j.Start()
	assert.Eventually(t, func() bool { return calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, j.Stop(ctx))
}
