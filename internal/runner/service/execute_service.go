// Package service coordinates submission execution for the HTTP layer.
package service

import (
	"context"
	"fmt"
	"time"

	"autograder/internal/runner/config"
	"autograder/internal/runner/sandbox"
	"autograder/internal/runner/sandbox/result"
	"autograder/internal/runner/sandbox/spec"
	appErr "autograder/pkg/errors"
)

const rateKeyPrefix = "runner:rate:student:"

// Config wires the dependencies of the ExecuteService.
type Config struct {
	Executor sandbox.Service
	Policies config.PolicyRepository
	// RateLimiter may be nil, which disables per-student rate limiting.
	RateLimiter *RateLimitService
	// StudentMax is requests per student per rate window.
	StudentMax int
	// PoolSize bounds concurrent executions; SlotWait bounds how long a
	// request waits for a free slot before being rejected.
	PoolSize      int
	SlotWait      time.Duration
	MaxSourceSize int
}

// ExecuteService admits, bounds and runs submission executions.
type ExecuteService struct {
	executor    sandbox.Service
	policies    config.PolicyRepository
	rateLimiter *RateLimitService
	studentMax  int
	slots       chan struct{}
	slotWait    time.Duration
	maxSource   int
}

const (
	defaultPoolSize      = 4
	defaultSlotWait      = 2 * time.Second
	defaultMaxSourceSize = 64 * 1024
)

func NewExecuteService(cfg Config) (*ExecuteService, error) {
	if cfg.Executor == nil {
		return nil, appErr.New(appErr.InvalidParams).WithMessage("executor is required")
	}
	if cfg.Policies == nil {
		return nil, appErr.New(appErr.InvalidParams).WithMessage("policy repository is required")
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = defaultPoolSize
	}
	if cfg.SlotWait <= 0 {
		cfg.SlotWait = defaultSlotWait
	}
	if cfg.MaxSourceSize <= 0 {
		cfg.MaxSourceSize = defaultMaxSourceSize
	}

	slots := make(chan struct{}, cfg.PoolSize)
	for i := 0; i < cfg.PoolSize; i++ {
		slots <- struct{}{}
	}

	return &ExecuteService{
		executor:    cfg.Executor,
		policies:    cfg.Policies,
		rateLimiter: cfg.RateLimiter,
		studentMax:  cfg.StudentMax,
		slots:       slots,
		slotWait:    cfg.SlotWait,
		maxSource:   cfg.MaxSourceSize,
	}, nil
}

// Execute resolves the assignment policy and runs the submission. A full
// execution pool or an exceeded rate limit rejects the request before any
// process is spawned.
func (s *ExecuteService) Execute(ctx context.Context, source spec.SubmissionSource) (result.ExecutionResult, error) {
	if source.AssignmentID == "" {
		return result.ExecutionResult{}, appErr.ValidationError("assignment_id", "required")
	}
	if source.StudentID == "" {
		return result.ExecutionResult{}, appErr.ValidationError("student_id", "required")
	}
	if source.Code == "" {
		return result.ExecutionResult{}, appErr.ValidationError("source", "required")
	}
	if len(source.Code) > s.maxSource {
		return result.ExecutionResult{}, appErr.New(appErr.SubmissionTooLarge).
			WithDetail("max_bytes", s.maxSource)
	}

	if s.rateLimiter != nil && s.studentMax > 0 {
		key := fmt.Sprintf("%s%s", rateKeyPrefix, source.StudentID)
		if err := s.rateLimiter.Allow(ctx, key, s.studentMax); err != nil {
			return result.ExecutionResult{}, err
		}
	}

	release, err := s.acquireSlot(ctx)
	if err != nil {
		return result.ExecutionResult{}, err
	}
	defer release()

	pol, err := s.policies.GetPolicy(ctx, source.AssignmentID)
	if err != nil {
		return result.ExecutionResult{}, err
	}

	return s.executor.Execute(ctx, spec.ExecutionRequest{Source: source, Policy: pol})
}

func (s *ExecuteService) acquireSlot(ctx context.Context) (func(), error) {
	timer := time.NewTimer(s.slotWait)
	defer timer.Stop()
	select {
	case <-s.slots:
		return func() { s.slots <- struct{}{} }, nil
	case <-timer.C:
		return nil, appErr.New(appErr.ExecutionQueueFull)
	case <-ctx.Done():
		return nil, appErr.Wrap(ctx.Err(), appErr.Timeout)
	}
}
