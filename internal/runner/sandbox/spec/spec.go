// Package spec defines the submission data model and per-assignment execution policy.
package spec

import (
	"time"

	appErr "autograder/pkg/errors"
)

// SubmissionSource is one student submission. It is never mutated after creation.
type SubmissionSource struct {
	Code         string
	AssignmentID string
	StudentID    string
}

// ExecutionPolicy is the per-assignment execution configuration.
// It is resolved once per grading session and treated as read-only by the sandbox.
type ExecutionPolicy struct {
	// MaxSeconds is the wall-clock budget for the child process.
	MaxSeconds int
	// AllowedImports lists the top-level module names a submission may import.
	AllowedImports []string
	// MaxOutputBytes caps captured stdout after normalization.
	MaxOutputBytes int
	// MaxStderrBytes caps captured stderr after normalization.
	MaxStderrBytes int
	// Stdin is canned input fed to interactive programs so input() never blocks.
	Stdin string
	// InterpreterCommand is a shell-style template, e.g. "python3 -I {source}".
	// The {source} placeholder expands to the submission file path.
	InterpreterCommand string
}

// Validate reports a hard error for policies a caller should never construct.
func (p ExecutionPolicy) Validate() error {
	if p.MaxSeconds <= 0 {
		return appErr.New(appErr.PolicyInvalid).WithDetail("field", "maxSeconds").WithMessage("max seconds must be positive")
	}
	if p.MaxOutputBytes <= 0 {
		return appErr.New(appErr.PolicyInvalid).WithDetail("field", "maxOutputBytes").WithMessage("max output bytes must be positive")
	}
	if p.MaxStderrBytes <= 0 {
		return appErr.New(appErr.PolicyInvalid).WithDetail("field", "maxStderrBytes").WithMessage("max stderr bytes must be positive")
	}
	if p.InterpreterCommand == "" {
		return appErr.New(appErr.PolicyInvalid).WithDetail("field", "interpreterCommand").WithMessage("interpreter command is required")
	}
	return nil
}

// WallTime returns the wall-clock budget as a duration.
func (p ExecutionPolicy) WallTime() time.Duration {
	return time.Duration(p.MaxSeconds) * time.Second
}

// ImportAllowed reports whether a top-level module name is on the allow-list.
func (p ExecutionPolicy) ImportAllowed(name string) bool {
	for _, allowed := range p.AllowedImports {
		if allowed == name {
			return true
		}
	}
	return false
}

// ExecutionRequest pairs one submission with the policy it runs under.
type ExecutionRequest struct {
	Source SubmissionSource
	Policy ExecutionPolicy
}

// RunSpec is the low-level execution specification handed to the engine.
type RunSpec struct {
	WorkDir string
	Cmd     []string
	Env     []string
	Stdin   string
	// WallTime bounds the child's lifetime once it is confirmed running.
	WallTime time.Duration
	// MaxCaptureBytes bounds each of the stdout and stderr drain buffers.
	MaxCaptureBytes int
}
