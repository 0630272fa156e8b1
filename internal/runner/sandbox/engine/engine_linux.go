//go:build linux

package engine

import (
	"context"
	"io"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"autograder/internal/runner/sandbox/result"
	"autograder/internal/runner/sandbox/spec"
	appErr "autograder/pkg/errors"
	"autograder/pkg/utils/logger"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// runState tracks the supervision lifecycle of one request.
type runState string

const (
	statePending     runState = "Pending"
	stateSpawning    runState = "Spawning"
	stateRunning     runState = "Running"
	stateCompleted   runState = "Completed"
	stateTimedOut    runState = "TimedOut"
	stateSpawnFailed runState = "SpawnFailed"
)

type linuxEngine struct {
	cfg Config
}

// NewEngine creates a Linux execution engine.
func NewEngine(cfg Config) (Engine, error) {
	if cfg.MaxCaptureBytes <= 0 {
		cfg.MaxCaptureBytes = defaultMaxCaptureBytes
	}
	return &linuxEngine{cfg: cfg}, nil
}

// Run spawns the child in its own process group with the requested environment,
// drains stdout/stderr concurrently into bounded buffers, and races the
// child's exit against the wall-clock deadline. On every exit path the child
// (and any descendant in its group) is dead and reaped before Run returns.
func (e *linuxEngine) Run(ctx context.Context, runSpec spec.RunSpec) (result.RawCapture, error) {
	if err := validateRunSpec(runSpec); err != nil {
		return result.RawCapture{}, err
	}

	maxCapture := runSpec.MaxCaptureBytes
	if maxCapture <= 0 {
		maxCapture = e.cfg.MaxCaptureBytes
	}

	state := statePending

	state = stateSpawning
	cmd := exec.Command(runSpec.Cmd[0], runSpec.Cmd[1:]...)
	cmd.Dir = runSpec.WorkDir
	cmd.Env = runSpec.Env
	cmd.Stdin = strings.NewReader(runSpec.Stdin)
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: syscall.SIGKILL,
	}

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return result.RawCapture{}, appErr.Wrapf(err, appErr.ExecutionSpawnFailed, "open stdout pipe failed")
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return result.RawCapture{}, appErr.Wrapf(err, appErr.ExecutionSpawnFailed, "open stderr pipe failed")
	}

	if err := cmd.Start(); err != nil {
		state = stateSpawnFailed
		logger.Warn(ctx, "child spawn failed", zap.Strings("cmd", runSpec.Cmd), zap.Error(err))
		return result.RawCapture{}, appErr.Wrapf(err, appErr.ExecutionSpawnFailed, "start child process failed")
	}

	// The budget clock starts only once the child is confirmed running.
	start := time.Now()
	state = stateRunning

	stdoutBuf := newLimitedBuffer(maxCapture)
	stderrBuf := newLimitedBuffer(maxCapture)

	var drains sync.WaitGroup
	drains.Add(2)
	go func() {
		defer drains.Done()
		_, _ = io.Copy(stdoutBuf, stdoutPipe)
	}()
	go func() {
		defer drains.Done()
		_, _ = io.Copy(stderrBuf, stderrPipe)
	}()

	done := make(chan error, 1)
	go func() {
		drains.Wait()
		done <- cmd.Wait()
	}()

	timer := time.NewTimer(runSpec.WallTime)
	defer timer.Stop()

	var waitErr error
	timedOut := false
	canceled := false
	select {
	case waitErr = <-done:
		state = stateCompleted
	case <-timer.C:
		// Deadline first: kill the whole process group so descendants
		// cannot outlive the request, then reap.
		state = stateTimedOut
		timedOut = true
		killProcessGroup(cmd.Process.Pid)
		waitErr = <-done
	case <-ctx.Done():
		canceled = true
		killProcessGroup(cmd.Process.Pid)
		waitErr = <-done
	}
	elapsed := time.Since(start)

	if canceled {
		logger.Info(ctx, "execution canceled", zap.Duration("elapsed", elapsed))
		return result.RawCapture{}, appErr.Wrapf(ctx.Err(), appErr.ExecutionSystemError, "execution canceled")
	}

	capture := result.RawCapture{
		Stdout:        stdoutBuf.Bytes(),
		StdoutClipped: stdoutBuf.Clipped(),
		Stderr:        stderrBuf.Bytes(),
		StderrClipped: stderrBuf.Clipped(),
		Duration:      elapsed,
		TimedOut:      timedOut,
	}
	if timedOut {
		capture.ExitCode = -1
	} else {
		capture.Exited = true
		capture.ExitCode = exitCode(waitErr, cmd)
	}

	logger.Debug(ctx, "child process finished",
		zap.String("state", string(state)),
		zap.Int("exit_code", capture.ExitCode),
		zap.Bool("timed_out", timedOut),
		zap.Duration("elapsed", elapsed),
	)
	return capture, nil
}

func exitCode(waitErr error, cmd *exec.Cmd) int {
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	if waitErr == nil {
		return 0
	}
	return -1
}

func killProcessGroup(pid int) {
	if pid <= 0 {
		return
	}
	_ = unix.Kill(-pid, unix.SIGKILL)
}

func validateRunSpec(runSpec spec.RunSpec) error {
	if runSpec.WorkDir == "" {
		return appErr.New(appErr.InvalidParams).WithMessage("work dir is required")
	}
	if len(runSpec.Cmd) == 0 {
		return appErr.New(appErr.InvalidParams).WithMessage("command is required")
	}
	if runSpec.WallTime <= 0 {
		return appErr.New(appErr.InvalidParams).WithMessage("wall time is required")
	}
	return nil
}
