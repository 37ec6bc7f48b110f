// Package errsys implements the closed error taxonomy of the execution engine.
//
// Every error that can escape a pipeline stage (parse, lower, infer, compile,
// run) is a *Error carrying a Kind, a message, and - whenever the producing
// stage preserved one - a source Span. Catchable kinds can be caught by a
// guest try/catch; the rest abort the run.
package errsys

import (
	"fmt"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

// Kind is the closed taxonomy of error kinds the runtime can raise.
type Kind string

const (
	ParseError        Kind = "ParseError"
	UnsupportedFeature Kind = "UnsupportedFeature"
	TypeError          Kind = "TypeError"
	MethodError        Kind = "MethodError"
	DivisionByZero     Kind = "DivisionByZero"
	InexactError       Kind = "InexactError"
	DomainError        Kind = "DomainError"
	UndefVarError      Kind = "UndefVarError"
	UndefKeywordError  Kind = "UndefKeywordError"
	DictKeyNotFound    Kind = "DictKeyNotFound"
	InternalError      Kind = "InternalError"
	Cancelled          Kind = "Cancelled"
)

// Catchable reports whether a guest try/catch may intercept this kind.
// ParseError and UnsupportedFeature are reported to the REPL directly and
// never reach a running VM; InternalError and Cancelled always abort.
func (k Kind) Catchable() bool {
	switch k {
	case TypeError, MethodError, DivisionByZero, InexactError, DomainError,
		UndefVarError, UndefKeywordError, DictKeyNotFound:
		return true
	default:
		return false
	}
}

// Span is a half-open byte range plus line/column, preserved from the CST
// through IR, bytecode debug tables, and into runtime errors.
type Span struct {
	File        string
	Line        int
	Column      int
	StartByte   int
	EndByte     int
}

func (s Span) IsZero() bool { return s.File == "" && s.Line == 0 && s.StartByte == 0 && s.EndByte == 0 }

// Frame is one entry of a runtime call stack attached to an error.
type Frame struct {
	Function string
	Span     Span
}

// Error is the concrete error type produced by every stage of the pipeline.
type Error struct {
	Kind       Kind
	Message    string
	Span       Span
	Hint       string
	Candidates []string // MethodError: the candidate signatures that were tried
	Stack      []Frame
	Source     string // the source line at Span, when available
}

func New(kind Kind, message string, span Span) *Error {
	return &Error{Kind: kind, Message: message, Span: span}
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s: %s", e.Kind, e.Message))
	if e.Hint != "" {
		sb.WriteString(fmt.Sprintf(" (%s)", e.Hint))
	}
	if !e.Span.IsZero() {
		sb.WriteString(fmt.Sprintf("\n  at %s:%d:%d", e.Span.File, e.Span.Line, e.Span.Column))
		if e.Source != "" {
			prefix := fmt.Sprintf("  %d | ", e.Span.Line)
			sb.WriteString(fmt.Sprintf("\n%s%s\n", prefix, e.Source))
			pad := strings.Repeat(" ", len(prefix))
			if e.Span.Column > 0 {
				pad += strings.Repeat(" ", e.Span.Column-1)
			}
			sb.WriteString(pad + "^")
		}
	}
	if len(e.Candidates) > 0 {
		sb.WriteString("\nCandidates:\n  " + strings.Join(e.Candidates, "\n  "))
	}
	for _, f := range e.Stack {
		sb.WriteString(fmt.Sprintf("\n  at %s (%s:%d:%d)", f.Function, f.Span.File, f.Span.Line, f.Span.Column))
	}
	return sb.String()
}

func (e *Error) WithHint(hint string) *Error       { e.Hint = hint; return e }
func (e *Error) WithSource(src string) *Error      { e.Source = src; return e }
func (e *Error) WithCandidates(c []string) *Error  { e.Candidates = c; return e }
func (e *Error) Push(frame Frame) *Error           { e.Stack = append(e.Stack, frame); return e }

// Wrap annotates a lower-level (e.g. I/O) error with engine context while
// preserving its stack trace, for boundary code such as the CLI reading a
// source file or the package cache reading a module off disk.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return pkgerrors.Wrap(err, message)
}

// Internal builds an InternalError: the compiler must never produce one for
// IR that typechecks - any occurrence is a bug, so these
// are always constructed with a hint pointing at the invariant that broke.
func Internal(hint string) *Error {
	return &Error{Kind: InternalError, Message: "compiler produced an invalid instruction or state", Hint: hint}
}
