package batch

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_PreservesInputOrder(t *testing.T) {
	pool := New(4)

	jobs := make([]Job[int], 20)
	for i := 0; i < 20; i++ {
		i := i
		jobs[i] = func() int { return i * i }
	}

	results := Run(pool, jobs)
	require.Len(t, results, 20)
	for i, r := range results {
		assert.Equal(t, i*i, r)
	}
}

func TestRun_EmptyJobsReturnsNil(t *testing.T) {
	pool := New(4)
	results := Run[int](pool, nil)
	assert.Nil(t, results)
}

// TestRun_UsesAllWorkersConcurrently uses a WaitGroup barrier: every job
// blocks until all N have started, which only completes within the timeout
// if all N are running at once (i.e. workers > 1 actually run in parallel).
func TestRun_UsesAllWorkersConcurrently(t *testing.T) {
	const n = 8
	pool := New(n)

	var wg sync.WaitGroup
	wg.Add(n)

	jobs := make([]Job[struct{}], n)
	for i := range jobs {
		jobs[i] = func() struct{} {
			wg.Done()
			wg.Wait()
			return struct{}{}
		}
	}

	done := make(chan struct{})
	go func() {
		Run(pool, jobs)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out: jobs did not run concurrently")
	}
}

func TestNew_NonPositiveDefaultsToTen(t *testing.T) {
	p := New(0)
	assert.Equal(t, 10, p.numWorkers)
	p = New(-5)
	assert.Equal(t, 10, p.numWorkers)
}
