package result_test

import (
	"strings"
	"testing"
	"time"

	"autograder/internal/runner/sandbox/result"
	"autograder/internal/runner/sandbox/spec"
)

func testPolicy(maxOut, maxErr int) spec.ExecutionPolicy {
	return spec.ExecutionPolicy{
		MaxSeconds:     5,
		MaxOutputBytes: maxOut,
		MaxStderrBytes: maxErr,
	}
}

func TestNormalizePassthrough(t *testing.T) {
	raw := result.RawCapture{
		ExitCode: 0,
		Exited:   true,
		Stdout:   []byte("4.0\n"),
		Stderr:   nil,
		Duration: 120 * time.Millisecond,
	}

	res := result.Normalize(raw, result.OutcomeSuccess, testPolicy(2000, 1000))

	if res.Outcome != result.OutcomeSuccess {
		t.Fatalf("outcome = %s, want Success", res.Outcome)
	}
	if res.Stdout != "4.0\n" {
		t.Fatalf("stdout = %q, want %q", res.Stdout, "4.0\n")
	}
	if res.StdoutTruncated || res.StderrTruncated {
		t.Fatalf("unexpected truncation flags: %+v", res)
	}
	if !res.Exited || res.ExitCode != 0 {
		t.Fatalf("exit status lost: %+v", res)
	}
	if res.DurationMs != 120 {
		t.Fatalf("duration_ms = %d, want 120", res.DurationMs)
	}
}

func TestNormalizeTruncatesToExactCap(t *testing.T) {
	raw := result.RawCapture{
		Exited:   true,
		Stdout:   []byte(strings.Repeat("A", 5000)),
		Duration: time.Millisecond,
	}

	res := result.Normalize(raw, result.OutcomeSuccess, testPolicy(2000, 1000))

	if len(res.Stdout) != 2000 {
		t.Fatalf("stdout length = %d, want exactly 2000", len(res.Stdout))
	}
	if !res.StdoutTruncated {
		t.Fatalf("truncation flag not set for clipped stdout")
	}
	if res.StderrTruncated {
		t.Fatalf("stderr flag set although stderr was empty")
	}
}

func TestNormalizeStreamsTruncateIndependently(t *testing.T) {
	raw := result.RawCapture{
		Exited:   true,
		ExitCode: 1,
		Stdout:   []byte("short"),
		Stderr:   []byte(strings.Repeat("e", 3000)),
	}

	res := result.Normalize(raw, result.OutcomeRuntimeError, testPolicy(2000, 1000))

	if res.StdoutTruncated {
		t.Fatalf("stdout flagged truncated although below cap")
	}
	if !res.StderrTruncated || len(res.Stderr) != 1000 {
		t.Fatalf("stderr = %d bytes truncated=%v, want 1000 bytes truncated", len(res.Stderr), res.StderrTruncated)
	}
}

func TestNormalizeTruncatesOnRuneBoundary(t *testing.T) {
	// Each snowman is 3 bytes; a 7-byte cap falls mid-rune.
	raw := result.RawCapture{
		Exited: true,
		Stdout: []byte(strings.Repeat("☃", 4)),
	}

	res := result.Normalize(raw, result.OutcomeSuccess, testPolicy(7, 1000))

	if !res.StdoutTruncated {
		t.Fatalf("truncation flag not set")
	}
	if len(res.Stdout) != 6 {
		t.Fatalf("stdout length = %d, want 6 (two whole runes)", len(res.Stdout))
	}
	if strings.Count(res.Stdout, "☃") != 2 {
		t.Fatalf("stdout = %q, want two snowmen", res.Stdout)
	}
}

func TestNormalizeLineEndings(t *testing.T) {
	raw := result.RawCapture{
		Exited: true,
		Stdout: []byte("a\r\nb\rc\n"),
	}

	res := result.Normalize(raw, result.OutcomeSuccess, testPolicy(2000, 1000))

	if res.Stdout != "a\nb\nc\n" {
		t.Fatalf("stdout = %q, want normalized line endings", res.Stdout)
	}
}

func TestNormalizeStripsANSISequences(t *testing.T) {
	raw := result.RawCapture{
		Exited: true,
		Stdout: []byte("\x1b[31mred\x1b[0m plain\n"),
	}

	res := result.Normalize(raw, result.OutcomeSuccess, testPolicy(2000, 1000))

	if res.Stdout != "red plain\n" {
		t.Fatalf("stdout = %q, want ANSI codes stripped", res.Stdout)
	}
}

func TestNormalizeKeepsEngineClipFlag(t *testing.T) {
	// The engine hit its hard drain limit; even though the kept bytes fit the
	// policy cap, the result must still report truncation.
	raw := result.RawCapture{
		Exited:        true,
		Stdout:        []byte("kept"),
		StdoutClipped: true,
	}

	res := result.Normalize(raw, result.OutcomeSuccess, testPolicy(2000, 1000))

	if !res.StdoutTruncated {
		t.Fatalf("engine clip flag was not carried into the result")
	}
}
