//go:build !linux

package engine

import (
	"context"

	"autograder/internal/runner/sandbox/result"
	"autograder/internal/runner/sandbox/spec"
	appErr "autograder/pkg/errors"
)

type stubEngine struct{}

func NewEngine(cfg Config) (Engine, error) {
	return &stubEngine{}, nil
}

func (s *stubEngine) Run(ctx context.Context, runSpec spec.RunSpec) (result.RawCapture, error) {
	return result.RawCapture{}, appErr.New(appErr.ExecutionSystemError).WithMessage("execution engine is only supported on linux")
}
