package dsl

import (
	"fmt"
	"sort"
)

// Severity of a Diagnostic.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// MarshalText encodes the severity as "error" or "warning".
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes "error" or "warning".
func (s *Severity) UnmarshalText(text []byte) error {
	switch string(text) {
	case "error":
		*s = SeverityError
	case "warning":
		*s = SeverityWarning
	default:
		return fmt.Errorf("unknown severity %q", text)
	}
	return nil
}

// Phase names the stage that produced a diagnostic.
type Phase string

const (
	PhaseSyntax   Phase = "syntax"
	PhaseSemantic Phase = "semantic"
)

// Diagnostic is a located message produced instead of a failure.
// Pos always refers to the original source text.
type Diagnostic struct {
	Severity Severity `json:"severity"`
	Phase    Phase    `json:"phase"`
	Rule     string   `json:"rule,omitempty"`
	Message  string   `json:"message"`
	Pos      Position `json:"pos"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s", d.Pos, d.Severity, d.Message)
}

// IsError reports whether the diagnostic has error severity.
func (d Diagnostic) IsError() bool {
	return d.Severity == SeverityError
}

// SyntaxError builds an error-severity syntax diagnostic.
func SyntaxError(pos Position, format string, args ...any) Diagnostic {
	return Diagnostic{
		Severity: SeverityError,
		Phase:    PhaseSyntax,
		Rule:     "syntax",
		Message:  fmt.Sprintf(format, args...),
		Pos:      pos,
	}
}

// SemanticError builds an error-severity semantic diagnostic.
func SemanticError(pos Position, rule, format string, args ...any) Diagnostic {
	return Diagnostic{
		Severity: SeverityError,
		Phase:    PhaseSemantic,
		Rule:     rule,
		Message:  fmt.Sprintf(format, args...),
		Pos:      pos,
	}
}

// SemanticWarning builds a warning-severity semantic diagnostic.
func SemanticWarning(pos Position, rule, format string, args ...any) Diagnostic {
	return Diagnostic{
		Severity: SeverityWarning,
		Phase:    PhaseSemantic,
		Rule:     rule,
		Message:  fmt.Sprintf(format, args...),
		Pos:      pos,
	}
}

// HasErrors reports whether any diagnostic has error severity.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.IsError() {
			return true
		}
	}
	return false
}

// Count returns the number of errors and warnings in diags.
func Count(diags []Diagnostic) (errors, warnings int) {
	for _, d := range diags {
		if d.IsError() {
			errors++
		} else {
			warnings++
		}
	}
	return errors, warnings
}

// SortByPosition orders diagnostics by source position, keeping the
// original order for equal positions.
func SortByPosition(diags []Diagnostic) {
	sort.SliceStable(diags, func(i, j int) bool {
		a, b := diags[i].Pos, diags[j].Pos
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Column < b.Column
	})
}
