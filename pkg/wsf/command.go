package wsf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// pipeDrainDelay bounds how long Wait keeps the output pipes open after the
// process is killed, so orphaned children holding them cannot block.
const pipeDrainDelay = 2 * time.Second

// CommandResult is the captured outcome of a program run.
type CommandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// ExitError reports a program that finished with a nonzero exit code.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("command exited with code %d", e.Code)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

// RunCommand runs argv, capturing stdout and stderr concurrently. A zero
// timeout waits for the program to finish. When the timeout expires the
// process is killed and the error wraps ErrTimeout; the partial output is
// still returned. A nonzero exit returns an *ExitError with the result.
func RunCommand(ctx context.Context, argv []string, timeout time.Duration) (*CommandResult, error) {
	if len(argv) == 0 {
		return nil, errors.New("running command: empty command line")
	}

	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...) //nolint:gosec // argv comes from plugin configuration
	cmd.WaitDelay = pipeDrainDelay

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("opening stdout of %s: %w", argv[0], err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("opening stderr of %s: %w", argv[0], err)
	}

	started := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", argv[0], err)
	}
	slog.Debug("command started", "command", argv[0], "args", len(argv)-1, "timeout", timeout)

	var outBuf, errBuf bytes.Buffer
	var g errgroup.Group
	g.Go(func() error { return gobble(stdout, &outBuf) })
	g.Go(func() error { return gobble(stderr, &errBuf) })
	readErr := g.Wait()
	waitErr := cmd.Wait()

	result := &CommandResult{
		Stdout:   outBuf.String(),
		Stderr:   errBuf.String(),
		ExitCode: cmd.ProcessState.ExitCode(),
		Duration: time.Since(started),
	}

	if timeout > 0 && errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		slog.Warn("command timed out and was killed", "command", argv[0], "timeout", timeout)
		return result, fmt.Errorf("running %s: %w after %s", argv[0], ErrTimeout, timeout)
	}
	if ctx.Err() != nil {
		return result, fmt.Errorf("running %s: %w", argv[0], ctx.Err())
	}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return result, &ExitError{Code: exitErr.ExitCode(), Stderr: result.Stderr}
	}
	if waitErr != nil && !errors.Is(waitErr, exec.ErrWaitDelay) {
		return result, fmt.Errorf("waiting for %s: %w", argv[0], waitErr)
	}
	if readErr != nil {
		return result, fmt.Errorf("reading output of %s: %w", argv[0], readErr)
	}
	return result, nil
}

// gobble drains r into buf. A pipe closed by Wait is not an error.
func gobble(r io.Reader, buf *bytes.Buffer) error {
	_, err := io.Copy(buf, r)
	if err != nil && !errors.Is(err, io.ErrClosedPipe) && !strings.Contains(err.Error(), "file already closed") {
		return err
	}
	return nil
}
