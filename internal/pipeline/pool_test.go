package pipeline

import (
	"sync"
	"sync/atomic"
	"testing"

	"NetSentinel/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolRunsAllTasks(t *testing.T) {
	p := NewPool("test", 4, 64)
	p.Start()

	var n atomic.Int32
	for i := 0; i < 50; i++ {
		require.NoError(t, p.Submit(func() { n.Add(1) }))
	}
	p.Stop()
	assert.Equal(t, int32(50), n.Load())
}

func TestPoolBusyWhenQueueFull(t *testing.T) {
	p := NewPool("test", 1, 1)
	p.Start()

	release := make(chan struct{})
	running := make(chan struct{})
	require.NoError(t, p.Submit(func() {
		close(running)
		<-release
	}))
	<-running

	require.NoError(t, p.Submit(func() {}))
	err := p.Submit(func() {})
	assert.ErrorIs(t, err, model.ErrBusy)

	close(release)
	p.Stop()
}

func TestPoolSubmitAfterStop(t *testing.T) {
	p := NewPool("test", 1, 1)
	p.Start()
	p.Stop()
	assert.ErrorIs(t, p.Submit(func() {}), ErrStopped)
	p.Stop()
}

func TestPoolSurvivesPanic(t *testing.T) {
	p := NewPool("test", 1, 4)
	p.Start()

	var wg sync.WaitGroup
	wg.Add(1)
	require.NoError(t, p.Submit(func() { panic("boom") }))
	require.NoError(t, p.Submit(func() { wg.Done() }))
	wg.Wait()
	p.Stop()
}
