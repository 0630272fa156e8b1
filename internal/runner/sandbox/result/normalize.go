package result

import (
	"bytes"
	"regexp"
	"unicode/utf8"

	"autograder/internal/runner/sandbox/spec"
)

// ansiEscape matches ANSI escape sequences students sometimes emit via
// colorized print helpers. They are stripped so grading comparisons stay stable.
var ansiEscape = regexp.MustCompile("\x1b(?:[@-Z\\\\-_]|\\[[0-?]*[ -/]*[@-~])")

// Normalize converts a raw capture into the final immutable result.
// Both streams are ANSI-stripped, newline-normalized, then truncated
// independently to the policy caps on a clean UTF-8 boundary.
func Normalize(raw RawCapture, outcome Outcome, policy spec.ExecutionPolicy) ExecutionResult {
	stdout, stdoutTruncated := normalizeStream(raw.Stdout, raw.StdoutClipped, policy.MaxOutputBytes)
	stderr, stderrTruncated := normalizeStream(raw.Stderr, raw.StderrClipped, policy.MaxStderrBytes)

	return ExecutionResult{
		Outcome:         outcome,
		Stdout:          stdout,
		StdoutTruncated: stdoutTruncated,
		Stderr:          stderr,
		StderrTruncated: stderrTruncated,
		ExitCode:        raw.ExitCode,
		Exited:          raw.Exited,
		DurationMs:      raw.Duration.Milliseconds(),
	}
}

func normalizeStream(data []byte, clipped bool, maxBytes int) (string, bool) {
	cleaned := ansiEscape.ReplaceAll(data, nil)
	cleaned = normalizeNewlines(cleaned)

	truncated := clipped
	if maxBytes > 0 && len(cleaned) > maxBytes {
		cleaned = truncateUTF8(cleaned, maxBytes)
		truncated = true
	}
	return string(cleaned), truncated
}

func normalizeNewlines(data []byte) []byte {
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	return bytes.ReplaceAll(data, []byte("\r"), []byte("\n"))
}

// truncateUTF8 clips data to at most maxBytes without splitting a rune.
func truncateUTF8(data []byte, maxBytes int) []byte {
	if len(data) <= maxBytes {
		return data
	}
	cut := data[:maxBytes]
	for i := 0; i < utf8.UTFMax-1 && len(cut) > 0; i++ {
		r, size := utf8.DecodeLastRune(cut)
		if r != utf8.RuneError || size > 1 {
			break
		}
		cut = cut[:len(cut)-1]
	}
	return cut
}
