package usecase

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crewmission-service/pkg/logger"
)

func TestPollerRunsOnStartAndWake(t *testing.T) {
	var runs atomic.Int32
	p := NewPoller("test", time.Hour, func(context.Context) error {
		runs.Add(1)
		return nil
	}, logger.NewNop(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Start(ctx) }()

	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)

	Pollers{p}.WakeAll()
	require.Eventually(t, func() bool { return runs.Load() == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}
}

func TestPollerSurvivesFailuresAndPanics(t *testing.T) {
	var runs atomic.Int32
	p := NewPoller("flaky", 10*time.Millisecond, func(context.Context) error {
		switch runs.Add(1) {
		case 1:
			return errors.New("store unavailable")
		case 2:
			panic("boom")
		}
		return nil
	}, logger.NewNop(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = p.Start(ctx) }()

	require.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, 5*time.Millisecond)
}

func TestWakeNeverBlocks(t *testing.T) {
	p := NewPoller("idle", time.Hour, func(context.Context) error { return nil }, logger.NewNop(), nil)
	for i := 0; i < 5; i++ {
		p.Wake()
	}
	assert.Equal(t, "idle", p.Name())
}
