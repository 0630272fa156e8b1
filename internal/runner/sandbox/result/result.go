// Package result defines execution outcomes and the normalized result value.
package result

import "time"

// Outcome classifies how an execution attempt concluded.
type Outcome string

const (
	OutcomeSuccess         Outcome = "Success"
	OutcomeRuntimeError    Outcome = "RuntimeError"
	OutcomeTimeout         Outcome = "Timeout"
	OutcomePolicyViolation Outcome = "PolicyViolation"
	OutcomeInternalError   Outcome = "InternalError"
)

// RawCapture is the unprocessed data collected by the engine for one run.
type RawCapture struct {
	ExitCode int
	Exited   bool
	TimedOut bool
	// StdoutClipped / StderrClipped are set when the drain buffer hit its cap
	// and bytes beyond it were discarded.
	Stdout        []byte
	StdoutClipped bool
	Stderr        []byte
	StderrClipped bool
	// Duration is wall time measured from the instant the child was confirmed
	// running, so queueing delay never counts against the budget.
	Duration time.Duration
}

// ExecutionResult is the immutable value returned to the grading caller.
// Exactly one Outcome kind is set.
type ExecutionResult struct {
	Outcome         Outcome `json:"outcome"`
	Stdout          string  `json:"stdout"`
	StdoutTruncated bool    `json:"stdout_truncated"`
	Stderr          string  `json:"stderr"`
	StderrTruncated bool    `json:"stderr_truncated"`
	// ExitCode is meaningful only when Exited is true.
	ExitCode int  `json:"exit_code"`
	Exited   bool `json:"exited"`
	// DurationMs is elapsed wall time of the child process in milliseconds.
	DurationMs int64 `json:"duration_ms"`
	// Reason carries detail for PolicyViolation and InternalError outcomes.
	Reason string `json:"reason,omitempty"`
}

// PolicyViolationResult builds the result for a submission rejected before execution.
func PolicyViolationResult(reason string) ExecutionResult {
	return ExecutionResult{
		Outcome: OutcomePolicyViolation,
		Reason:  reason,
	}
}

// InternalErrorResult builds the result for a supervisor-side failure.
func InternalErrorResult(reason string) ExecutionResult {
	return ExecutionResult{
		Outcome: OutcomeInternalError,
		Reason:  reason,
	}
}
