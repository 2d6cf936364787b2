// Package errors provides severity-aware error types for the billing pipeline.
package errors

import "fmt"

// Severity indicates error impact level.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// PipelineError is a structured error with context about where in the
// extract/transform/deliver flow a failure happened.
type PipelineError struct {
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
	Source   string   `json:"source,omitempty"` // which input produced the error
	Row      int      `json:"row,omitempty"`    // 1-based data row for per-record failures
	Err      error    `json:"-"`
}

func (e *PipelineError) Error() string {
	if e.Source != "" && e.Row > 0 {
		return fmt.Sprintf("[%s] %s: %s (source: %s, row: %d)", e.Severity, e.Code, e.Message, e.Source, e.Row)
	}
	if e.Source != "" {
		return fmt.Sprintf("[%s] %s: %s (source: %s)", e.Severity, e.Code, e.Message, e.Source)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Severity, e.Code, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Error codes
const (
	ErrCodeConfiguration     = "CONFIGURATION"
	ErrCodeSourceUnavailable = "SOURCE_UNAVAILABLE"
	ErrCodeMalformedRecord   = "MALFORMED_RECORD"
	ErrCodeSinkRejected      = "SINK_REJECTED"
)

// NewConfigurationError reports missing or invalid configuration, before any
// network call is made.
func NewConfigurationError(format string, args ...interface{}) *PipelineError {
	return &PipelineError{
		Code:     ErrCodeConfiguration,
		Message:  fmt.Sprintf(format, args...),
		Severity: SeverityFatal,
	}
}

// NewSourceUnavailableError reports an unreachable or malformed source; the
// in-flight fetch is aborted.
func NewSourceUnavailableError(source string, err error) *PipelineError {
	return &PipelineError{
		Code:     ErrCodeSourceUnavailable,
		Message:  err.Error(),
		Severity: SeverityFatal,
		Source:   source,
		Err:      err,
	}
}

// NewMalformedRecordError reports one row that failed required-field
// validation. The row is skipped and the run continues until the configured
// failure ceiling is exceeded.
func NewMalformedRecordError(source string, row int, reason string) *PipelineError {
	return &PipelineError{
		Code:     ErrCodeMalformedRecord,
		Message:  reason,
		Severity: SeverityWarning,
		Source:   source,
		Row:      row,
	}
}

// NewSinkRejectedError reports a non-success response from the billing drop
// sink, carrying the response body verbatim.
func NewSinkRejectedError(status int, body string) *PipelineError {
	return &PipelineError{
		Code:     ErrCodeSinkRejected,
		Message:  fmt.Sprintf("sink returned status %d: %s", status, body),
		Severity: SeverityFatal,
	}
}

// HasCode reports whether err (or anything it wraps) is a PipelineError with
// the given code.
func HasCode(err error, code string) bool {
	for err != nil {
		if pe, ok := err.(*PipelineError); ok && pe.Code == code {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
