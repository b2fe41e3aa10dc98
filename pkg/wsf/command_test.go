package wsf

import (
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestRunCommand_CapturesBothStreams(t *testing.T) {
	requireShell(t)
	result, err := RunCommand(context.Background(),
		[]string{"sh", "-c", `echo out; echo err 1>&2; echo more`}, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "out\nmore\n", result.Stdout)
	assert.Equal(t, "err\n", result.Stderr)
	assert.Equal(t, 0, result.ExitCode)
}

func TestRunCommand_LargeOutputDoesNotDeadlock(t *testing.T) {
	requireShell(t)
	// Both pipes exceed the OS pipe buffer; sequential reading would block.
	script := `i=0; while [ $i -lt 20000 ]; do echo "line $i"; echo "warn $i" 1>&2; i=$((i+1)); done`
	result, err := RunCommand(context.Background(), []string{"sh", "-c", script}, 30*time.Second)
	require.NoError(t, err)
	assert.Greater(t, len(result.Stdout), 100000)
	assert.Greater(t, len(result.Stderr), 100000)
}

func TestRunCommand_NonzeroExit(t *testing.T) {
	requireShell(t)
	result, err := RunCommand(context.Background(),
		[]string{"sh", "-c", `echo bad input 1>&2; exit 3`}, 5*time.Second)
	require.Error(t, err)

	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 3, exitErr.Code)
	assert.Contains(t, exitErr.Error(), "bad input")
	assert.False(t, errors.Is(err, ErrTimeout), "a failed run is not a timeout")
	require.NotNil(t, result)
	assert.Equal(t, 3, result.ExitCode)
}

func TestRunCommand_Timeout(t *testing.T) {
	requireShell(t)
	started := time.Now()
	result, err := RunCommand(context.Background(),
		[]string{"sh", "-c", `echo partial; exec sleep 10`}, 200*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(started), 5*time.Second, "the process is killed, not awaited")

	var exitErr *ExitError
	assert.False(t, errors.As(err, &exitErr), "a timeout is not an exit failure")
	require.NotNil(t, result)
	assert.Equal(t, "partial\n", result.Stdout)
}

func TestRunCommand_CallerCancel(t *testing.T) {
	requireShell(t)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()
	_, err := RunCommand(ctx, []string{"sh", "-c", `exec sleep 10`}, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrTimeout)
}

func TestRunCommand_Errors(t *testing.T) {
	_, err := RunCommand(context.Background(), nil, time.Second)
	assert.Error(t, err)

	_, err = RunCommand(context.Background(), []string{"/nonexistent/wsf-plugin"}, time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "starting /nonexistent/wsf-plugin")
}
