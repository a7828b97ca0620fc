// Package apperr defines the error taxonomy shared across the execution and
// scheduling subsystem.
package apperr

import "fmt"

// Kind classifies an application error for callers that need to decide how
// to respond (HTTP status, retry, log level) without string-matching.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindAuth       Kind = "auth"
	KindHandler    Kind = "handler"
	KindScheduler  Kind = "scheduler"
	KindTransport  Kind = "transport"
)

// Error wraps an underlying cause with a Kind and enough context (execution,
// node, or job ID) for a caller to log or respond usefully.
type Error struct {
	Kind    Kind
	Message string
	Cause   error

	ExecutionID string
	NodeID      string
	JobID       string
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

func newErr(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// Validation reports a malformed or inconsistent input.
func Validation(msg string, cause error) *Error { return newErr(KindValidation, msg, cause) }

// NotFound reports a missing workflow, execution, or job.
func NotFound(msg string, cause error) *Error { return newErr(KindNotFound, msg, cause) }

// Auth reports a request-time authorization failure.
func Auth(msg string, cause error) *Error { return newErr(KindAuth, msg, cause) }

// Handler reports an action handler failure during node execution.
func Handler(msg string, cause error) *Error { return newErr(KindHandler, msg, cause) }

// Scheduler reports a job scheduling or dispatch failure.
func Scheduler(msg string, cause error) *Error { return newErr(KindScheduler, msg, cause) }

// Transport reports a failure talking to an external collaborator (HTTP,
// e-mail, realtime bridge).
func Transport(msg string, cause error) *Error { return newErr(KindTransport, msg, cause) }

// WithExecution attaches an execution ID to the error and returns it.
func (e *Error) WithExecution(id string) *Error { e.ExecutionID = id; return e }

// WithNode attaches a node ID to the error and returns it.
func (e *Error) WithNode(id string) *Error { e.NodeID = id; return e }

// WithJob attaches a job ID to the error and returns it.
func (e *Error) WithJob(id string) *Error { e.JobID = id; return e }
