package workerpool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPoolRunsSubmittedTasks(t *testing.T) {
	p := New(4, 16)
	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.Run(ctx)
	}()

	var count int32
	var tasksDone sync.WaitGroup
	for i := 0; i < 20; i++ {
		tasksDone.Add(1)
		ok := p.Submit(ctx, func() {
			atomic.AddInt32(&count, 1)
			tasksDone.Done()
		})
		require.True(t, ok)
	}
	tasksDone.Wait()
	require.EqualValues(t, 20, atomic.LoadInt32(&count))

	cancel()
	wg.Wait()
}

func TestSubmitRespectsContextCancellation(t *testing.T) {
	p := New(0, 0) // no workers, unbuffered queue: Submit must block then abort
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	ok := p.Submit(ctx, func() {})
	require.False(t, ok)
}

func TestPanickingTaskDoesNotKillWorker(t *testing.T) {
	p := New(1, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.Run(ctx)
	}()

	var ran int32
	p.Submit(ctx, func() { panic("boom") })

	done := make(chan struct{})
	p.Submit(ctx, func() {
		atomic.StoreInt32(&ran, 1)
		close(done)
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not recover from panic")
	}
	require.EqualValues(t, 1, atomic.LoadInt32(&ran))

	cancel()
	wg.Wait()
}
