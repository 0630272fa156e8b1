// Package config resolves per-assignment execution policies.
package config

import (
	"context"

	"autograder/internal/runner/sandbox/spec"
)

// PolicyRepository resolves the execution policy for an assignment.
type PolicyRepository interface {
	GetPolicy(ctx context.Context, assignmentID string) (spec.ExecutionPolicy, error)
}
