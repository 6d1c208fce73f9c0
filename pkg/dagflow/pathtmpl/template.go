package pathtmpl

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
)

// WorkflowIDVar is the variable every path template can reference.
const WorkflowIDVar = "workflow_id"

// varPattern matches ${name} or $name. A bare $name ends at the first
// non-identifier character, so $run does not match inside $runner.
var varPattern = regexp.MustCompile(`\$\{([a-zA-Z_][a-zA-Z0-9_]*)\}|\$([a-zA-Z_][a-zA-Z0-9_]*)`)

// varName returns the variable named by a varPattern match.
func varName(match string) string {
	if strings.HasPrefix(match, "${") {
		return match[2 : len(match)-1]
	}
	return match[1:]
}

var (
	// ErrEmptyPath indicates a template rendered to an empty path.
	ErrEmptyPath = errors.New("template rendered an empty path")

	// ErrUnsafeWorkflowID indicates a workflow id that would escape its directory.
	ErrUnsafeWorkflowID = errors.New("workflow id is not a single path element")
)

// UndefinedVariableError lists variables a template referenced but the
// caller did not supply.
type UndefinedVariableError struct {
	Template string
	Names    []string
}

// Error implements the error interface.
func (e *UndefinedVariableError) Error() string {
	return fmt.Sprintf("template %q: undefined variable(s): %s", e.Template, strings.Join(e.Names, ", "))
}

// Template is a parsed path template.
// It is immutable and safe for concurrent use.
type Template struct {
	raw  string
	vars []string
}

// Parse parses s and records the variables it references.
func Parse(s string) *Template {
	t := &Template{raw: s}
	seen := make(map[string]bool)
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			t.vars = append(t.vars, name)
		}
	}

	for _, match := range varPattern.FindAllString(s, -1) {
		add(varName(match))
	}
	return t
}

// String returns the template source.
func (t *Template) String() string {
	return t.raw
}

// Vars returns the variable names in order of first appearance.
func (t *Template) Vars() []string {
	out := make([]string, len(t.vars))
	copy(out, t.vars)
	return out
}

// Render substitutes vars into the template.
// Every referenced variable must be present; missing ones are reported
// together in an *UndefinedVariableError. Substituted values are inserted
// literally and never expanded again.
func (t *Template) Render(vars map[string]any) (string, error) {
	var missing []string
	out := varPattern.ReplaceAllStringFunc(t.raw, func(match string) string {
		name := varName(match)
		if val, ok := vars[name]; ok {
			return fmt.Sprint(val)
		}
		if !slices.Contains(missing, name) {
			missing = append(missing, name)
		}
		return match
	})

	if len(missing) > 0 {
		return "", &UndefinedVariableError{Template: t.raw, Names: missing}
	}
	return out, nil
}

// ResolvePath renders template for a workflow run and returns a cleaned path.
//
// The variable workflow_id is always bound to workflowID and takes
// precedence over an entry of the same name in extra. The workflow id must be
// usable as a single path element.
func ResolvePath(template, workflowID string, extra map[string]any) (string, error) {
	if workflowID == "" || workflowID == "." || workflowID == ".." ||
		strings.ContainsAny(workflowID, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrUnsafeWorkflowID, workflowID)
	}

	vars := make(map[string]any, len(extra)+1)
	for k, v := range extra {
		vars[k] = v
	}
	vars[WorkflowIDVar] = workflowID

	rendered, err := Parse(template).Render(vars)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(rendered) == "" {
		return "", fmt.Errorf("%w: %q", ErrEmptyPath, template)
	}
	return filepath.Clean(rendered), nil
}
