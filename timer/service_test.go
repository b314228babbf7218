//go:build linux

package timer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanxc-go/spin"
)

func TestForIsMemoizedPerScheduler(t *testing.T) {
	s := spin.NewScheduler()
	a, err := For(s)
	require.NoError(t, err)
	b, err := For(s)
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestForIsDistinctPerScheduler(t *testing.T) {
	s1 := spin.NewScheduler()
	s2 := spin.NewScheduler()
	a, err := For(s1)
	require.NoError(t, err)
	b, err := For(s2)
	require.NoError(t, err)
	assert.NotSame(t, a, b)
}

func TestCloseRemovesFromRegistry(t *testing.T) {
	s := spin.NewScheduler()
	svc, err := For(s)
	require.NoError(t, err)
	require.NoError(t, svc.Close())

	again, err := For(s)
	require.NoError(t, err)
	assert.NotSame(t, svc, again)
}

func TestEnqueueArmsOnlyTheEarliestDeadline(t *testing.T) {
	s := spin.NewScheduler()
	svc, err := For(s)
	require.NoError(t, err)

	far, err := New(s, func() {}, time.Now().Add(time.Hour), 0)
	require.NoError(t, err)
	near, err := New(s, func() {}, time.Now().Add(time.Minute), 0)
	require.NoError(t, err)

	assert.Equal(t, 2, svc.Len())
	front := svc.queue.Min()
	require.NotNil(t, front)
	assert.Same(t, &near.node, front)
	_ = far
}

func TestMultipleOneShotTimersAllFire(t *testing.T) {
	s := spin.NewScheduler()
	const n = 5
	fired := make(chan int, n)
	for i := 0; i < n; i++ {
		i := i
		_, err := After(s, func() { fired <- i }, time.Duration(i+1)*5*time.Millisecond)
		require.NoError(t, err)
	}

	go func() {
		time.Sleep(500 * time.Millisecond)
		s.Stop()
		s.Interrupt()
	}()

	seen := map[int]bool{}
	timeout := time.After(2 * time.Second)
	go s.Run()
	for len(seen) < n {
		select {
		case i := <-fired:
			seen[i] = true
		case <-timeout:
			t.Fatalf("only %d/%d timers fired", len(seen), n)
		}
	}
	assert.Len(t, seen, n)
}
