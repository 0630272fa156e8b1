package engine

import (
	"context"

	"autograder/internal/runner/sandbox/result"
	"autograder/internal/runner/sandbox/spec"
)

// Engine runs one RunSpec as a supervised child process.
type Engine interface {
	Run(ctx context.Context, runSpec spec.RunSpec) (result.RawCapture, error)
}

// Config controls engine behavior.
type Config struct {
	// MaxCaptureBytes is the hard per-stream drain limit when the RunSpec
	// does not set one. Policy-level truncation happens later, in the
	// normalizer; this bound only stops a runaway child from exhausting
	// supervisor memory.
	MaxCaptureBytes int
}

const defaultMaxCaptureBytes = 1 << 20
