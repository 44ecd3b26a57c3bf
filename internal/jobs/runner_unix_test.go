//go:build !windows

package jobs

import (
	"context"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCollectsResultsInOrder(t *testing.T) {
	results := Run(context.Background(), []Job{
		{Name: "slow", Command: "sh -c 'sleep 0.2; echo slow'", Capture: true},
		{Name: "fails", Command: "sh -c 'echo oops >&2; exit 4'", Capture: true},
		{Name: "fast", Command: "echo", Args: []string{"fast"}, Capture: true},
	})
	require.Len(t, results, 3)

	assert.Equal(t, "slow", results[0].Name)
	assert.Equal(t, "slow\n", string(results[0].Stdout))
	assert.False(t, results[0].Failed())

	assert.Equal(t, "fails", results[1].Name)
	assert.Equal(t, 4, results[1].Status.ExitCode)
	assert.Equal(t, "oops\n", string(results[1].Stderr))
	assert.NoError(t, results[1].Err)
	assert.True(t, results[1].Failed())

	assert.Equal(t, "fast\n", string(results[2].Stdout))
	assert.Positive(t, results[2].Duration)
}

func TestRunPassesEnvAndDir(t *testing.T) {
	dir := t.TempDir()
	results := Run(context.Background(), []Job{
		{Name: "env", Command: `sh -c 'echo "$GREETING"; ls'`, Env: map[string]string{"GREETING": "hello"}, Dir: dir, Capture: true},
	})
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	assert.Equal(t, "hello\n", string(results[0].Stdout))
}

func TestRunInterruptsOnTimeout(t *testing.T) {
	r := &Runner{Grace: time.Second}
	results := r.Run(context.Background(), []Job{
		{Name: "sleeper", Command: "sleep 10", Capture: true, Timeout: Duration{100 * time.Millisecond}},
	})
	require.Len(t, results, 1)

	res := results[0]
	require.NoError(t, res.Err)
	assert.True(t, res.TimedOut)
	assert.True(t, res.Failed())
	sig, ok := res.Status.Signaled()
	assert.True(t, ok)
	assert.Equal(t, syscall.SIGINT, sig)
	assert.Less(t, res.Duration, 5*time.Second)
}

func TestRunKillsAfterGrace(t *testing.T) {
	r := &Runner{Grace: 100 * time.Millisecond}
	results := r.Run(context.Background(), []Job{
		{Name: "stubborn", Command: `sh -c 'trap "" INT; sleep 10'`, Timeout: Duration{100 * time.Millisecond}},
	})
	require.Len(t, results, 1)

	res := results[0]
	require.NoError(t, res.Err)
	assert.True(t, res.TimedOut)
	sig, ok := res.Status.Signaled()
	assert.True(t, ok)
	assert.Equal(t, syscall.SIGKILL, sig)
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	results := Run(ctx, []Job{
		{Name: "a", Command: "sleep 10"},
		{Name: "b", Command: "sleep 10"},
	})
	for _, res := range results {
		assert.True(t, res.TimedOut, res.Name)
		assert.True(t, res.Failed(), res.Name)
	}
}

func TestRunReportsSpawnErrors(t *testing.T) {
	results := Run(context.Background(), []Job{
		{Name: "missing", Command: "coprocess-no-such-program"},
	})
	require.Len(t, results, 1)
	assert.Error(t, results[0].Err)
	assert.True(t, results[0].Failed())
}
