// Package env constructs the scrubbed environment for the submission process.
//
// The parent process holds long-lived credentials (LMS token, model API key)
// in its own environment. None of that may ever reach a child, so the child
// environment is built from a fixed allow-list of key=value pairs and never
// reads the parent's live environment. An allow-list fails safe; a
// "remove known-bad keys" filter does not.
package env

import "autograder/internal/runner/sandbox/spec"

const (
	childPath = "/usr/local/bin:/usr/bin:/bin"
	childHome = "/tmp"
)

// Build returns the complete child environment for the given policy.
// The result is deterministic: the same policy always yields the same pairs,
// in the same order.
func Build(policy spec.ExecutionPolicy) []string {
	return []string{
		"PATH=" + childPath,
		"HOME=" + childHome,
		"TMPDIR=" + childHome,
		"LANG=C.UTF-8",
		"LC_ALL=C.UTF-8",
		"PYTHONIOENCODING=utf-8",
		"PYTHONDONTWRITEBYTECODE=1",
		"PYTHONUNBUFFERED=1",
	}
}
