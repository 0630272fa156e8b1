package config

import (
	"context"
	"os"
	"strconv"

	"autograder/internal/runner/sandbox/spec"
	appErr "autograder/pkg/errors"
)

// Environment overrides applied on top of the configured defaults, matching
// the deployment convention of the grading stack.
const (
	envTimeoutSeconds = "GRADER_TIMEOUT_SECONDS"
	envInterpreter    = "GRADER_INTERPRETER"
)

// PolicyConfig is the YAML shape of one policy. Zero/nil fields fall back to
// the session defaults when merged.
type PolicyConfig struct {
	AssignmentID       string    `yaml:"assignmentID"`
	MaxSeconds         int       `yaml:"maxSeconds"`
	AllowedImports     *[]string `yaml:"allowedImports"`
	MaxOutputBytes     int       `yaml:"maxOutputBytes"`
	MaxStderrBytes     int       `yaml:"maxStderrBytes"`
	Stdin              *string   `yaml:"stdin"`
	InterpreterCommand string    `yaml:"interpreterCommand"`
}

// DefaultPolicy returns the session-wide fallback policy.
func DefaultPolicy() spec.ExecutionPolicy {
	return spec.ExecutionPolicy{
		MaxSeconds: 10,
		AllowedImports: []string{
			"requests", "json", "openpyxl", "pandas", "numpy",
			"matplotlib", "math", "random", "datetime", "re",
		},
		MaxOutputBytes:     2000,
		MaxStderrBytes:     1000,
		Stdin:              "5\ntest\nyes\n100\n",
		InterpreterCommand: "python3 -I {source}",
	}
}

// LocalRepository serves policies merged once at construction from static
// configuration. It is safe for concurrent use: the map is never written
// after New returns.
type LocalRepository struct {
	defaults     spec.ExecutionPolicy
	byAssignment map[string]spec.ExecutionPolicy
}

// NewLocalRepository builds a repository from the configured defaults and
// per-assignment overrides. Environment overrides are applied to the defaults
// before any merging, so they flow into every assignment that does not pin
// its own value.
func NewLocalRepository(defaults PolicyConfig, assignments []PolicyConfig) (*LocalRepository, error) {
	base := mergePolicy(DefaultPolicy(), defaults)
	base = applyEnvOverrides(base)
	if err := base.Validate(); err != nil {
		return nil, err
	}

	byAssignment := make(map[string]spec.ExecutionPolicy, len(assignments))
	for _, cfg := range assignments {
		if cfg.AssignmentID == "" {
			return nil, appErr.New(appErr.PolicyInvalid).WithMessage("assignment policy needs an assignmentID")
		}
		merged := mergePolicy(base, cfg)
		if err := merged.Validate(); err != nil {
			return nil, appErr.Wrapf(err, appErr.PolicyInvalid, "policy for assignment %s is invalid", cfg.AssignmentID)
		}
		byAssignment[cfg.AssignmentID] = merged
	}

	return &LocalRepository{defaults: base, byAssignment: byAssignment}, nil
}

// GetPolicy returns the assignment's policy, or the session defaults when the
// assignment has no dedicated entry.
func (r *LocalRepository) GetPolicy(ctx context.Context, assignmentID string) (spec.ExecutionPolicy, error) {
	if assignmentID == "" {
		return spec.ExecutionPolicy{}, appErr.New(appErr.InvalidParams).WithMessage("assignment id is required")
	}
	if pol, ok := r.byAssignment[assignmentID]; ok {
		return pol, nil
	}
	return r.defaults, nil
}

// mergePolicy overlays the set fields of cfg onto base. Pointer fields
// distinguish "absent" from "deliberately empty" so an assignment can allow
// zero imports or empty stdin.
func mergePolicy(base spec.ExecutionPolicy, cfg PolicyConfig) spec.ExecutionPolicy {
	merged := base
	if cfg.MaxSeconds != 0 {
		merged.MaxSeconds = cfg.MaxSeconds
	}
	if cfg.AllowedImports != nil {
		merged.AllowedImports = append([]string(nil), (*cfg.AllowedImports)...)
	}
	if cfg.MaxOutputBytes != 0 {
		merged.MaxOutputBytes = cfg.MaxOutputBytes
	}
	if cfg.MaxStderrBytes != 0 {
		merged.MaxStderrBytes = cfg.MaxStderrBytes
	}
	if cfg.Stdin != nil {
		merged.Stdin = *cfg.Stdin
	}
	if cfg.InterpreterCommand != "" {
		merged.InterpreterCommand = cfg.InterpreterCommand
	}
	return merged
}

func applyEnvOverrides(pol spec.ExecutionPolicy) spec.ExecutionPolicy {
	if raw := os.Getenv(envTimeoutSeconds); raw != "" {
		if seconds, err := strconv.Atoi(raw); err == nil && seconds > 0 {
			pol.MaxSeconds = seconds
		}
	}
	if interp := os.Getenv(envInterpreter); interp != "" {
		pol.InterpreterCommand = interp
	}
	return pol
}
