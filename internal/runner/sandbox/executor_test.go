package sandbox_test

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"autograder/internal/runner/sandbox"
	"autograder/internal/runner/sandbox/result"
	"autograder/internal/runner/sandbox/spec"
	pkgerrors "autograder/pkg/errors"
)

type fakeEngine struct {
	capture result.RawCapture
	err     error
	calls   int
	lastRun spec.RunSpec
}

func (f *fakeEngine) Run(ctx context.Context, runSpec spec.RunSpec) (result.RawCapture, error) {
	f.calls++
	f.lastRun = runSpec
	if f.err != nil {
		return result.RawCapture{}, f.err
	}
	return f.capture, nil
}

func testRequest(code string) spec.ExecutionRequest {
	return spec.ExecutionRequest{
		Source: spec.SubmissionSource{Code: code, AssignmentID: "a1", StudentID: "s1"},
		Policy: spec.ExecutionPolicy{
			MaxSeconds:         5,
			AllowedImports:     []string{"math"},
			MaxOutputBytes:     2000,
			MaxStderrBytes:     1000,
			InterpreterCommand: "python3 -I {source}",
		},
	}
}

func newExecutor(t *testing.T, eng *fakeEngine) *sandbox.Executor {
	t.Helper()
	executor, err := sandbox.NewExecutor(eng, t.TempDir())
	if err != nil {
		t.Fatalf("create executor: %v", err)
	}
	return executor
}

func TestExecuteSuccess(t *testing.T) {
	eng := &fakeEngine{capture: result.RawCapture{
		ExitCode: 0,
		Exited:   true,
		Stdout:   []byte("4.0\n"),
		Duration: 40 * time.Millisecond,
	}}
	executor := newExecutor(t, eng)

	res, err := executor.Execute(context.Background(), testRequest("import math\nprint(math.sqrt(16))\n"))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if res.Outcome != result.OutcomeSuccess {
		t.Fatalf("outcome = %s, want Success", res.Outcome)
	}
	if res.Stdout != "4.0\n" {
		t.Fatalf("stdout = %q", res.Stdout)
	}
	if eng.calls != 1 {
		t.Fatalf("engine calls = %d, want 1", eng.calls)
	}
}

func TestExecuteRunSpecShape(t *testing.T) {
	eng := &fakeEngine{capture: result.RawCapture{Exited: true}}
	executor := newExecutor(t, eng)

	req := testRequest("print('hi')\n")
	req.Policy.Stdin = "5\n"
	if _, err := executor.Execute(context.Background(), req); err != nil {
		t.Fatalf("execute: %v", err)
	}

	run := eng.lastRun
	if len(run.Cmd) != 3 || run.Cmd[0] != "python3" || run.Cmd[1] != "-I" {
		t.Fatalf("cmd = %v, want python3 -I <source>", run.Cmd)
	}
	if !strings.HasSuffix(run.Cmd[2], "main.py") {
		t.Fatalf("source arg = %q, want path to main.py", run.Cmd[2])
	}
	if run.Stdin != "5\n" {
		t.Fatalf("stdin = %q, want policy stdin", run.Stdin)
	}
	if run.WallTime != 5*time.Second {
		t.Fatalf("wall time = %s, want 5s", run.WallTime)
	}
	if run.MaxCaptureBytes <= 2000 {
		t.Fatalf("capture bound = %d, want headroom above the policy cap", run.MaxCaptureBytes)
	}
	for _, pair := range run.Env {
		if strings.HasPrefix(pair, "CANVAS_") || strings.HasPrefix(pair, "ANTHROPIC_") {
			t.Fatalf("credential flowed into run env: %q", pair)
		}
	}
}

func TestExecutePolicyViolationNeverSpawns(t *testing.T) {
	eng := &fakeEngine{}
	executor := newExecutor(t, eng)

	res, err := executor.Execute(context.Background(), testRequest("import os\nos.remove('/')\n"))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if res.Outcome != result.OutcomePolicyViolation {
		t.Fatalf("outcome = %s, want PolicyViolation", res.Outcome)
	}
	if res.Reason == "" {
		t.Fatalf("expected a rejection reason")
	}
	if eng.calls != 0 {
		t.Fatalf("engine was invoked %d times for a rejected submission", eng.calls)
	}
}

func TestExecuteUnparseableSourceNeverSpawns(t *testing.T) {
	eng := &fakeEngine{}
	executor := newExecutor(t, eng)

	res, err := executor.Execute(context.Background(), testRequest("x = 'unterminated\n"))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if res.Outcome != result.OutcomePolicyViolation {
		t.Fatalf("outcome = %s, want PolicyViolation", res.Outcome)
	}
	if res.Reason != "unparseable source" {
		t.Fatalf("reason = %q", res.Reason)
	}
	if eng.calls != 0 {
		t.Fatalf("engine was invoked for unparseable source")
	}
}

func TestExecuteClassifiesRuntimeError(t *testing.T) {
	eng := &fakeEngine{capture: result.RawCapture{
		ExitCode: 1,
		Exited:   true,
		Stderr:   []byte("Traceback (most recent call last):\n"),
	}}
	executor := newExecutor(t, eng)

	res, err := executor.Execute(context.Background(), testRequest("raise ValueError('boom')\n"))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if res.Outcome != result.OutcomeRuntimeError {
		t.Fatalf("outcome = %s, want RuntimeError", res.Outcome)
	}
	if !strings.Contains(res.Stderr, "Traceback") {
		t.Fatalf("stderr = %q, want traceback preserved", res.Stderr)
	}
}

func TestExecuteClassifiesTimeout(t *testing.T) {
	eng := &fakeEngine{capture: result.RawCapture{
		ExitCode: -1,
		TimedOut: true,
		Duration: 5 * time.Second,
	}}
	executor := newExecutor(t, eng)

	res, err := executor.Execute(context.Background(), testRequest("while True: pass\n"))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if res.Outcome != result.OutcomeTimeout {
		t.Fatalf("outcome = %s, want Timeout", res.Outcome)
	}
	if res.Exited {
		t.Fatalf("timed-out run reported as exited")
	}
}

func TestExecuteEngineFailureIsInternalError(t *testing.T) {
	eng := &fakeEngine{err: pkgerrors.New(pkgerrors.ExecutionSpawnFailed)}
	executor := newExecutor(t, eng)

	res, err := executor.Execute(context.Background(), testRequest("print('hi')\n"))
	if err != nil {
		t.Fatalf("engine failure must be captured, not returned: %v", err)
	}
	if res.Outcome != result.OutcomeInternalError {
		t.Fatalf("outcome = %s, want InternalError", res.Outcome)
	}
}

func TestExecuteInvalidPolicyIsHardError(t *testing.T) {
	eng := &fakeEngine{}
	executor := newExecutor(t, eng)

	req := testRequest("print('hi')\n")
	req.Policy.MaxSeconds = 0
	if _, err := executor.Execute(context.Background(), req); err == nil {
		t.Fatalf("expected hard error for invalid policy")
	}
	if eng.calls != 0 {
		t.Fatalf("engine invoked despite invalid policy")
	}
}

func TestExecuteCleansUpWorkspace(t *testing.T) {
	eng := &fakeEngine{capture: result.RawCapture{Exited: true}}
	workRoot := t.TempDir()
	executor, err := sandbox.NewExecutor(eng, workRoot)
	if err != nil {
		t.Fatalf("create executor: %v", err)
	}

	if _, err := executor.Execute(context.Background(), testRequest("print('hi')\n")); err != nil {
		t.Fatalf("execute: %v", err)
	}

	entries, err := os.ReadDir(workRoot)
	if err != nil {
		t.Fatalf("read work root: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("workspace left behind: %v", entries)
	}
}
