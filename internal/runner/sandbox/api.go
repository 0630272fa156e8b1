// Package sandbox executes untrusted student submissions under a wall-clock
// budget with a scrubbed environment and returns a structured outcome.
package sandbox

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"autograder/internal/runner/sandbox/engine"
	"autograder/internal/runner/sandbox/env"
	"autograder/internal/runner/sandbox/policy"
	"autograder/internal/runner/sandbox/result"
	"autograder/internal/runner/sandbox/spec"
	appErr "autograder/pkg/errors"
	"autograder/pkg/utils/logger"

	"github.com/google/shlex"
	"go.uber.org/zap"
)

const (
	sourceFileName    = "main.py"
	sourcePlaceholder = "{source}"
	// captureHeadroom keeps the engine buffers comfortably above the policy
	// caps so ANSI stripping and newline normalization cannot eat into the
	// bytes the normalizer is allowed to return.
	captureHeadroom = 8 * 1024
)

// Service is the execution entrypoint consumed by the grading layer.
type Service interface {
	Execute(ctx context.Context, req spec.ExecutionRequest) (result.ExecutionResult, error)
}

// Executor wires the policy checker, environment builder, engine and
// normalizer into the full execution pipeline. Each request owns its child
// process and workspace exclusively; nothing is shared or reused between
// concurrent requests.
type Executor struct {
	engine   engine.Engine
	workRoot string
}

// NewExecutor creates an Executor. workRoot is where per-request workspaces
// are created; empty means the system temp directory.
func NewExecutor(eng engine.Engine, workRoot string) (*Executor, error) {
	if eng == nil {
		return nil, appErr.New(appErr.InvalidParams).WithMessage("engine is required")
	}
	if workRoot == "" {
		workRoot = os.TempDir()
	}
	if err := os.MkdirAll(workRoot, 0750); err != nil {
		return nil, appErr.Wrapf(err, appErr.WorkspaceSetupFailed, "create work root failed")
	}
	return &Executor{engine: eng, workRoot: workRoot}, nil
}

// Execute runs one submission end to end. Misbehavior of the submission is
// always captured into the result, never returned as an error; the only hard
// error is a caller bug such as an invalid policy.
func (e *Executor) Execute(ctx context.Context, req spec.ExecutionRequest) (result.ExecutionResult, error) {
	if err := req.Policy.Validate(); err != nil {
		return result.ExecutionResult{}, err
	}

	verdict := policy.Check(req.Source, req.Policy)
	if !verdict.Allowed {
		logger.Info(ctx, "submission rejected by policy",
			zap.String("assignment", req.Source.AssignmentID),
			zap.String("student", req.Source.StudentID),
			zap.Strings("disallowed", verdict.Disallowed),
		)
		return result.PolicyViolationResult(verdict.Reason), nil
	}

	workDir, err := os.MkdirTemp(e.workRoot, "exec-")
	if err != nil {
		return result.InternalErrorResult("workspace setup failed"), nil
	}
	defer func() {
		_ = os.RemoveAll(workDir)
	}()

	sourcePath := filepath.Join(workDir, sourceFileName)
	if err := os.WriteFile(sourcePath, []byte(req.Source.Code), 0600); err != nil {
		return result.InternalErrorResult("workspace setup failed"), nil
	}

	cmdArgs, err := buildCommand(req.Policy.InterpreterCommand, sourcePath)
	if err != nil {
		return result.ExecutionResult{}, err
	}

	maxCapture := req.Policy.MaxOutputBytes
	if req.Policy.MaxStderrBytes > maxCapture {
		maxCapture = req.Policy.MaxStderrBytes
	}

	raw, err := e.engine.Run(ctx, spec.RunSpec{
		WorkDir:         workDir,
		Cmd:             cmdArgs,
		Env:             env.Build(req.Policy),
		Stdin:           req.Policy.Stdin,
		WallTime:        req.Policy.WallTime(),
		MaxCaptureBytes: maxCapture + captureHeadroom,
	})
	if err != nil {
		logger.Error(ctx, "execution failed",
			zap.String("assignment", req.Source.AssignmentID),
			zap.String("student", req.Source.StudentID),
			zap.Error(err),
		)
		return result.InternalErrorResult(appErr.GetError(err).Error()), nil
	}

	outcome := classify(raw)
	res := result.Normalize(raw, outcome, req.Policy)

	logger.Info(ctx, "execution finished",
		zap.String("assignment", req.Source.AssignmentID),
		zap.String("student", req.Source.StudentID),
		zap.String("outcome", string(outcome)),
		zap.Int64("duration_ms", res.DurationMs),
	)
	return res, nil
}

func classify(raw result.RawCapture) result.Outcome {
	switch {
	case raw.TimedOut:
		return result.OutcomeTimeout
	case raw.ExitCode == 0:
		return result.OutcomeSuccess
	default:
		return result.OutcomeRuntimeError
	}
}

// buildCommand expands the interpreter command template into argv.
func buildCommand(template, sourcePath string) ([]string, error) {
	expanded := template
	if strings.Contains(expanded, sourcePlaceholder) {
		expanded = strings.ReplaceAll(expanded, sourcePlaceholder, sourcePath)
	} else {
		expanded = expanded + " " + sourcePath
	}
	fields, err := shlex.Split(expanded)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.PolicyInvalid, "parse interpreter command failed")
	}
	if len(fields) == 0 {
		return nil, appErr.New(appErr.PolicyInvalid).WithMessage("interpreter command is empty")
	}
	return fields, nil
}
