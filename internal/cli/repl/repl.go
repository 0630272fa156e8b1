// Package repl implements the interactive shell instructors use to try out
// submissions against an execution policy before a grading run.
package repl

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"autograder/internal/runner/sandbox"
	"autograder/internal/runner/sandbox/policy"
	"autograder/internal/runner/sandbox/spec"

	"github.com/google/shlex"
)

// Session holds REPL state.
type Session struct {
	executor     sandbox.Service
	policy       spec.ExecutionPolicy
	input        *bufio.Reader
	outputWriter *bufio.Writer
}

func New(executor sandbox.Service, pol spec.ExecutionPolicy) *Session {
	return NewWithIO(executor, pol, os.Stdin, os.Stdout)
}

// NewWithIO creates a session reading commands from in and writing to out.
func NewWithIO(executor sandbox.Service, pol spec.ExecutionPolicy, in io.Reader, out io.Writer) *Session {
	return &Session{
		executor:     executor,
		policy:       pol,
		input:        bufio.NewReader(in),
		outputWriter: bufio.NewWriter(out),
	}
}

func (s *Session) Run(ctx context.Context) {
	reader := s.input
	for {
		_, _ = s.outputWriter.WriteString("autograder> ")
		_ = s.outputWriter.Flush()
		line, err := reader.ReadString('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.printLine("read input failed: %v", err)
			}
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			s.printLine("bye")
			return
		}
		if s.handleSystemCommand(line) {
			continue
		}

		if err := s.handleCommand(ctx, line); err != nil {
			s.printLine("error: %v", err)
		}
	}
}

func (s *Session) handleSystemCommand(line string) bool {
	switch line {
	case "help":
		s.printHelp()
		return true
	case "show policy":
		s.printJSON(s.policy)
		return true
	}
	if strings.HasPrefix(line, "set ") {
		s.handleSet(strings.TrimSpace(strings.TrimPrefix(line, "set ")))
		return true
	}
	return false
}

func (s *Session) handleSet(args string) {
	parts := strings.Fields(args)
	if len(parts) < 2 {
		s.printLine("usage: set timeout <seconds> | set imports <a,b,c>")
		return
	}
	switch parts[0] {
	case "timeout":
		seconds, err := strconv.Atoi(parts[1])
		if err != nil || seconds <= 0 {
			s.printLine("timeout must be a positive integer")
			return
		}
		s.policy.MaxSeconds = seconds
	case "imports":
		var names []string
		for _, name := range strings.Split(parts[1], ",") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
		s.policy.AllowedImports = names
	default:
		s.printLine("unknown setting %q", parts[0])
	}
}

func (s *Session) handleCommand(ctx context.Context, line string) error {
	args, err := shlex.Split(line)
	if err != nil {
		return fmt.Errorf("parse command: %w", err)
	}
	if len(args) == 0 {
		return nil
	}

	switch args[0] {
	case "check":
		if len(args) < 2 {
			return fmt.Errorf("usage: check <file>")
		}
		source, err := s.loadSource(args[1])
		if err != nil {
			return err
		}
		verdict := policy.Check(source, s.policy)
		s.printJSON(verdict)
		return nil
	case "run":
		if len(args) < 2 {
			return fmt.Errorf("usage: run <file>")
		}
		source, err := s.loadSource(args[1])
		if err != nil {
			return err
		}
		res, err := s.executor.Execute(ctx, spec.ExecutionRequest{Source: source, Policy: s.policy})
		if err != nil {
			return err
		}
		s.printJSON(res)
		return nil
	default:
		return fmt.Errorf("unknown command %q, try help", args[0])
	}
}

func (s *Session) loadSource(path string) (spec.SubmissionSource, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return spec.SubmissionSource{}, fmt.Errorf("read source file: %w", err)
	}
	return spec.SubmissionSource{
		Code:         string(code),
		AssignmentID: "cli",
		StudentID:    "cli",
	}, nil
}

func (s *Session) printHelp() {
	s.printLine("commands:")
	s.printLine("  check <file>            statically check imports against the policy")
	s.printLine("  run <file>              execute a submission under the policy")
	s.printLine("  set timeout <seconds>   change the wall-clock budget")
	s.printLine("  set imports <a,b,c>     replace the import allow-list")
	s.printLine("  show policy             print the active policy")
	s.printLine("  exit                    leave the shell")
}

func (s *Session) printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		s.printLine("encode output failed: %v", err)
		return
	}
	_, _ = s.outputWriter.Write(data)
	_, _ = s.outputWriter.WriteString("\n")
	_ = s.outputWriter.Flush()
}

func (s *Session) printLine(format string, args ...interface{}) {
	_, _ = s.outputWriter.WriteString(fmt.Sprintf(format, args...))
	_, _ = s.outputWriter.WriteString("\n")
	_ = s.outputWriter.Flush()
}
