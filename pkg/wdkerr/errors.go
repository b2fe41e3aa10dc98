// Package wdkerr defines the error taxonomy shared by the model, query and
// answer layers.
//
// Every error raised by those layers carries a Kind so callers can decide how
// to surface it:
//   - ModelConfiguration: a referenced filter, reporter, field or query does
//     not exist. Always a deployment bug; never retried.
//   - ParameterValidation: user input failed a declared validator. The message
//     is safe to show to the end user.
//   - Integrity: the id query and an attribute query disagree about the
//     population of a page. Fatal to the request.
//   - DataAccess: the database failed. Propagated unchanged.
package wdkerr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind categorizes an Error.
type Kind string

const (
	// KindModelConfiguration marks a model authoring or deployment mistake.
	KindModelConfiguration Kind = "MODEL_CONFIGURATION"

	// KindParameterValidation marks invalid user-supplied parameter values.
	KindParameterValidation Kind = "PARAMETER_VALIDATION"

	// KindIntegrity marks a population mismatch between id and attribute queries.
	KindIntegrity Kind = "INTEGRITY"

	// KindDataAccess marks an underlying database failure.
	KindDataAccess Kind = "DATA_ACCESS"
)

// Error is the single error type of the taxonomy.
type Error struct {
	// Kind identifies the error category.
	Kind Kind

	// Message is a human-readable description.
	Message string

	// SQL holds the statements involved, in the order they were composed.
	SQL []string

	// Queries names the model queries involved.
	Queries []string

	// Param, Prompt and Value describe a failed parameter validation.
	Param  string
	Prompt string
	Value  string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Kind == KindParameterValidation && e.Param != "" {
		fmt.Fprintf(&b, " (param=%s, prompt=%q, value=%q)", e.Param, e.Prompt, e.Value)
	}
	if len(e.Queries) > 0 {
		fmt.Fprintf(&b, " [queries: %s]", strings.Join(e.Queries, ", "))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	for _, sql := range e.SQL {
		b.WriteString("\n")
		b.WriteString(sql)
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// ModelConfiguration creates a model configuration error.
func ModelConfiguration(format string, args ...any) *Error {
	return &Error{Kind: KindModelConfiguration, Message: fmt.Sprintf(format, args...)}
}

// ParameterValidation creates a parameter validation error. The message
// includes the offending value and the parameter prompt.
func ParameterValidation(param, prompt, value, reason string) *Error {
	return &Error{
		Kind:    KindParameterValidation,
		Message: reason,
		Param:   param,
		Prompt:  prompt,
		Value:   value,
	}
}

// Integrity creates an integrity error carrying the SQL and query names
// needed to debug the model.
func Integrity(message string, sql []string, queries ...string) *Error {
	return &Error{
		Kind:    KindIntegrity,
		Message: message,
		SQL:     sql,
		Queries: queries,
	}
}

// DataAccess wraps a database failure.
func DataAccess(op, sql string, err error) *Error {
	e := &Error{Kind: KindDataAccess, Message: op, Err: err}
	if sql != "" {
		e.SQL = []string{sql}
	}
	return e
}

// KindOf returns the Kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsModelConfiguration reports whether err is a model configuration error.
func IsModelConfiguration(err error) bool {
	return KindOf(err) == KindModelConfiguration
}

// IsParameterValidation reports whether err is a parameter validation error.
func IsParameterValidation(err error) bool {
	return KindOf(err) == KindParameterValidation
}

// IsIntegrity reports whether err is an integrity error.
func IsIntegrity(err error) bool {
	return KindOf(err) == KindIntegrity
}

// IsDataAccess reports whether err is a data access error.
func IsDataAccess(err error) bool {
	return KindOf(err) == KindDataAccess
}
