package park

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParkReturnsAfterUnpark(t *testing.T) {
	p := New()

	done := make(chan Outcome, 1)
	go func() {
		done <- p.Park(0)
	}()

	time.Sleep(20 * time.Millisecond)
	p.Unpark()

	select {
	case outcome := <-done:
		assert.Equal(t, Unparked, outcome)
	case <-time.After(2 * time.Second):
		t.Fatal("parked goroutine was not resumed")
	}
}

func TestUnparkBeforeParkIsNotLost(t *testing.T) {
	p := New()
	p.Unpark()

	assert.Equal(t, Unparked, p.Park(time.Second))
}

func TestUnparkCoalesces(t *testing.T) {
	p := New()
	for i := 0; i < 10; i++ {
		p.Unpark()
	}

	require.Equal(t, Unparked, p.Park(time.Second))
	assert.Equal(t, TimedOut, p.Park(20*time.Millisecond))
}

func TestParkTimeout(t *testing.T) {
	p := New()

	start := time.Now()
	outcome := p.Park(30 * time.Millisecond)

	assert.Equal(t, TimedOut, outcome)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	assert.Equal(t, "timed out", outcome.String())
}

func TestUnparkFromManyGoroutines(t *testing.T) {
	p := New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Unpark()
		}()
	}
	wg.Wait()

	assert.Equal(t, Unparked, p.Park(time.Second))
}
