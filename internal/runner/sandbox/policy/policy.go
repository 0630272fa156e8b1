// Package policy statically checks submission imports against the assignment
// allow-list before anything is executed.
//
// The checker never runs the submission. It scans the source for import
// statements wherever they appear, including inside function bodies and
// conditional branches, so a disallowed import cannot hide behind a code path
// that only triggers at runtime. Imports built from strings at runtime
// (__import__, importlib with computed names) are an accepted gap and cannot
// be caught here.
package policy

import (
	"fmt"
	"strings"

	"autograder/internal/runner/sandbox/spec"
)

// Verdict is the outcome of a static policy check.
type Verdict struct {
	Allowed bool
	// Reason explains a rejection, e.g. "unparseable source" or the first
	// disallowed module name.
	Reason string
	// Imports lists every top-level module name the source imports.
	Imports []string
	// Disallowed lists the imported names missing from the allow-list.
	Disallowed []string
}

// baseline names are always permitted regardless of the assignment policy.
// Builtins need no import at all; __future__ only changes compile behavior.
var baseline = map[string]bool{
	"__future__": true,
}

// Check scans the submission for import statements and validates each imported
// top-level module name against the policy allow-list. It is a pure function:
// no side effects, nothing is executed.
func Check(source spec.SubmissionSource, pol spec.ExecutionPolicy) Verdict {
	imports, err := scanImports(source.Code)
	if err != nil {
		// Fail closed: code we cannot read is code we will not run.
		return Verdict{Allowed: false, Reason: "unparseable source"}
	}

	var disallowed []string
	for _, name := range imports {
		if baseline[name] || pol.ImportAllowed(name) {
			continue
		}
		disallowed = append(disallowed, name)
	}

	if len(disallowed) > 0 {
		return Verdict{
			Allowed:    false,
			Reason:     fmt.Sprintf("import of %q is not allowed", disallowed[0]),
			Imports:    imports,
			Disallowed: disallowed,
		}
	}
	return Verdict{Allowed: true, Imports: imports}
}

// scanImports returns the deduplicated top-level module names imported by the
// source, in first-appearance order. It returns an error when the source is
// structurally broken (unterminated string, unbalanced brackets, malformed
// import statement).
func scanImports(code string) ([]string, error) {
	statements, err := logicalStatements(code)
	if err != nil {
		return nil, err
	}

	var names []string
	seen := make(map[string]bool)
	record := func(name string) {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	for _, stmt := range statements {
		switch {
		case stmt == "import" || stmt == "from":
			return nil, fmt.Errorf("truncated import statement")
		case strings.HasPrefix(stmt, "import ") || strings.HasPrefix(stmt, "import\t"):
			parsed, err := parseImport(strings.TrimSpace(stmt[len("import"):]))
			if err != nil {
				return nil, err
			}
			for _, name := range parsed {
				record(name)
			}
		case strings.HasPrefix(stmt, "from ") || strings.HasPrefix(stmt, "from\t"):
			name, err := parseFromImport(strings.TrimSpace(stmt[len("from"):]))
			if err != nil {
				return nil, err
			}
			record(name)
		}
	}
	return names, nil
}

// parseImport handles "a.b as c, d" and returns the top-level names ["a", "d"].
func parseImport(clause string) ([]string, error) {
	if clause == "" {
		return nil, fmt.Errorf("empty import statement")
	}
	var names []string
	for _, item := range strings.Split(clause, ",") {
		fields := strings.Fields(item)
		switch len(fields) {
		case 1:
		case 3:
			if fields[1] != "as" || !isIdentifier(fields[2]) {
				return nil, fmt.Errorf("malformed import item %q", item)
			}
		default:
			return nil, fmt.Errorf("malformed import item %q", item)
		}
		top, err := topLevelName(fields[0])
		if err != nil {
			return nil, err
		}
		names = append(names, top)
	}
	return names, nil
}

// parseFromImport handles "x.y import a as b, c" and "x import *",
// returning the top-level module name "x". Aliases are irrelevant to the
// policy: the underlying module is what gets loaded.
func parseFromImport(clause string) (string, error) {
	clause = strings.NewReplacer("(", " ( ", ")", " ) ", ",", " , ", "*", " * ").Replace(clause)
	tokens := strings.Fields(clause)
	if len(tokens) < 3 || tokens[1] != "import" {
		return "", fmt.Errorf("malformed from-import %q", clause)
	}
	moduleName := tokens[0]

	// Relative imports can only reach files the student did not submit.
	if strings.HasPrefix(moduleName, ".") {
		return "", fmt.Errorf("relative import %q", moduleName)
	}

	for _, tok := range tokens[2:] {
		switch tok {
		case "(", ")", ",", "*", "as":
		default:
			if !isIdentifier(tok) {
				return "", fmt.Errorf("malformed import name %q", tok)
			}
		}
	}

	return topLevelName(moduleName)
}

// topLevelName validates a dotted module path and returns its first segment.
func topLevelName(dotted string) (string, error) {
	segments := strings.Split(dotted, ".")
	for _, seg := range segments {
		if !isIdentifier(seg) {
			return "", fmt.Errorf("invalid module name %q", dotted)
		}
	}
	return segments[0], nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
