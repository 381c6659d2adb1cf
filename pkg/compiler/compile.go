package compiler

import (
	"fmt"
	"strings"
)

// StageError reports a pass that produced diagnostics. The pipeline
// halts at the failing pass boundary; Lines holds one formatted
// "[Kind] message" entry per diagnostic ("[Kind] name: message" for
// scope analysis).
type StageError struct {
	Stage string
	Lines []string
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s reported errors:\n  %s", e.Stage, strings.Join(e.Lines, "\n  "))
}

func formatScopeDiag(d ScopeDiagnostic) string {
	name := d.Name
	if name == "" {
		name = "<anon>"
	}
	return fmt.Sprintf("[%s] %s: %s", d.Kind, name, d.Message)
}

func formatTypeDiag(d TypeDiagnostic) string {
	return fmt.Sprintf("[%s] %s", d.Kind, d.Message)
}

func formatIRDiag(d IRDiagnostic) string {
	return fmt.Sprintf("[%s] %s", d.Kind, d.Message)
}

// Frontend lexes, parses and resolves src. A lex failure comes back
// wrapped with a "lex error" prefix, a parse failure as the *ParseError;
// resolver diagnostics come back as a *StageError with Stage
// "scope analysis".
func Frontend(src string) (*Program, *Resolution, error) {
	tokens, err := Lex(src)
	if err != nil {
		return nil, nil, fmt.Errorf("lex error: %w", err)
	}
	prog, err := Parse(tokens, src)
	if err != nil {
		return nil, nil, err
	}
	res := Resolve(prog)
	if res.HasErrors() {
		lines := make([]string, len(res.Diagnostics))
		for i, d := range res.Diagnostics {
			lines[i] = formatScopeDiag(d)
		}
		return prog, res, &StageError{Stage: "scope analysis", Lines: lines}
	}
	return prog, res, nil
}

// Compile runs the full pipeline and returns the IR for src. Each pass
// runs only when every earlier pass finished without diagnostics.
func Compile(src string) (*IRProgram, error) {
	prog, res, err := Frontend(src)
	if err != nil {
		return nil, err
	}
	report := Check(prog, res)
	if report.HasErrors() {
		lines := make([]string, len(report.Diagnostics))
		for i, d := range report.Diagnostics {
			lines[i] = formatTypeDiag(d)
		}
		return nil, &StageError{Stage: "type checking", Lines: lines}
	}
	ir, diags := Lower(prog, res)
	if len(diags) > 0 {
		lines := make([]string, len(diags))
		for i, d := range diags {
			lines[i] = formatIRDiag(d)
		}
		return ir, &StageError{Stage: "ir lowering", Lines: lines}
	}
	return ir, nil
}
