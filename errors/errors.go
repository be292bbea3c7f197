package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Is reports whether any error in err's chain matches target.
// Re-exported so callers need a single errors import.
func Is(err, target error) bool { return errors.Is(err, target) }

// As finds the first error in err's chain matching target.
func As(err error, target any) bool { return errors.As(err, target) }

// Phase indicates where in the pipeline the error occurred
type Phase string

const (
	PhaseScan   Phase = "scan"   // process image scanning
	PhaseParse  Phase = "parse"  // bundle decoding
	PhaseLink   Phase = "link"   // global symbol resolution
	PhaseLoad   Phase = "load"   // code object loading
	PhaseFreeze Phase = "freeze" // executable freezing
	PhaseQuery  Phase = "query"  // symbol and kernel queries
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidMagic    Kind = "invalid_magic"
	KindTruncated       Kind = "truncated"
	KindInvalidData     Kind = "invalid_data"
	KindUndefinedSymbol Kind = "undefined_symbol"
	KindLoaderFailure   Kind = "loader_failure"
	KindValidation      Kind = "validation_failure"
	KindFrozen          Kind = "frozen"
	KindClosed          Kind = "closed"
	KindNotFound        Kind = "not_found"
	KindUnsupported     Kind = "unsupported"
)

// Error is the structured error type used throughout the runtime
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Op     string // native boundary operation, e.g. "hsa_executable_freeze"
	Module string // module path or ISA the error relates to
	Symbol string // offending symbol name, if any
	Status uint32 // numeric status from the native boundary
	Detail string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Module != "" {
		b.WriteString(" in ")
		b.WriteString(e.Module)
	}
	if e.Symbol != "" {
		fmt.Fprintf(&b, ": symbol %q", e.Symbol)
	}
	if e.Op != "" {
		b.WriteString(": ")
		b.WriteString(e.Op)
		if e.Status != 0 {
			fmt.Fprintf(&b, " (status %#x)", e.Status)
		}
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Op sets the native boundary operation name
func (b *Builder) Op(op string) *Builder {
	b.err.Op = op
	return b
}

// Module sets the module or ISA context
func (b *Builder) Module(m string) *Builder {
	b.err.Module = m
	return b
}

// Symbol sets the offending symbol name
func (b *Builder) Symbol(name string) *Builder {
	b.err.Symbol = name
	return b
}

// Status sets the numeric loader status
func (b *Builder) Status(s uint32) *Builder {
	b.err.Status = s
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// UndefinedSymbol creates a linkage error naming the missing global
func UndefinedSymbol(name string) *Error {
	return &Error{
		Phase:  PhaseLink,
		Kind:   KindUndefinedSymbol,
		Symbol: name,
		Detail: fmt.Sprintf("global symbol %q is undefined", name),
	}
}

// Loader creates an error for a failed native boundary call
func Loader(phase Phase, op string, status uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindLoaderFailure,
		Op:     op,
		Status: status,
	}
}

// Validation creates an error for a failed executable integrity check
func Validation(count uint32) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindValidation,
		Status: count,
		Detail: fmt.Sprintf("executable validation reported %d errors", count),
	}
}

// Frozen creates an error for mutation attempted after freeze
func Frozen(op string) *Error {
	return &Error{
		Phase:  PhaseFreeze,
		Kind:   KindFrozen,
		Op:     op,
		Detail: "executable is frozen",
	}
}

// Closed creates an error for use of a released handle
func Closed(what string) *Error {
	return &Error{
		Phase:  PhaseQuery,
		Kind:   KindClosed,
		Detail: fmt.Sprintf("%s already released", what),
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Scan creates a process image scanning error
func Scan(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseScan,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
	}
}

// ParseFailed creates a parsing error
func ParseFailed(what string, cause error) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindInvalidData,
		Detail: fmt.Sprintf("parse %s", what),
		Cause:  cause,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// BinaryFailure records one device binary that could not be materialized
type BinaryFailure struct {
	Agent string // agent name the executable was built for
	ISA   string // architecture key of the binary
	Index int    // position within the architecture's code-object list
	Err   error
}

// BuildError is returned when one or more device binaries fail to build.
// Executables for unaffected binaries are still constructed; the caller
// decides whether partial success is acceptable.
type BuildError struct {
	Failures []BinaryFailure
}

// Error implements the error interface with failures grouped by agent
func (e *BuildError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d device binaries failed to build:\n", len(e.Failures))

	byAgent := make(map[string][]BinaryFailure)
	for _, f := range e.Failures {
		byAgent[f.Agent] = append(byAgent[f.Agent], f)
	}

	agents := make([]string, 0, len(byAgent))
	for a := range byAgent {
		agents = append(agents, a)
	}
	sort.Strings(agents)

	for _, a := range agents {
		b.WriteString("  ")
		b.WriteString(a)
		b.WriteString(":\n")
		for _, f := range byAgent[a] {
			fmt.Fprintf(&b, "    - %s[%d]: %v\n", f.ISA, f.Index, f.Err)
		}
	}

	return strings.TrimSuffix(b.String(), "\n")
}

// Unwrap exposes the individual failures to errors.Is/As
func (e *BuildError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}

// Is reports whether target matches this error type
func (e *BuildError) Is(target error) bool {
	_, ok := target.(*BuildError)
	return ok
}
