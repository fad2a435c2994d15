package domain

import "fmt"

// DuplicateCheckError indicates a check identity was registered twice.
type DuplicateCheckError struct {
	Message string
}

func (e *DuplicateCheckError) Error() string { return e.Message }

// IncompatibleMetricError indicates a metric kind was registered under a
// dimension that does not support it.
type IncompatibleMetricError struct {
	Message string
}

func (e *IncompatibleMetricError) Error() string { return e.Message }

// SchemaMismatchError indicates the target table or column of a check does
// not exist in the warehouse.
type SchemaMismatchError struct {
	Message string
}

func (e *SchemaMismatchError) Error() string { return e.Message }

// CaptureWriteError indicates persisting failing rows failed after retry.
type CaptureWriteError struct {
	Message string
}

func (e *CaptureWriteError) Error() string { return e.Message }

// ValidationError indicates invalid input or configuration.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ErrDuplicateCheck creates a DuplicateCheckError with a formatted message.
func ErrDuplicateCheck(format string, args ...interface{}) *DuplicateCheckError {
	return &DuplicateCheckError{Message: fmt.Sprintf(format, args...)}
}

// ErrIncompatibleMetric creates an IncompatibleMetricError with a formatted message.
func ErrIncompatibleMetric(format string, args ...interface{}) *IncompatibleMetricError {
	return &IncompatibleMetricError{Message: fmt.Sprintf(format, args...)}
}

// ErrSchemaMismatch creates a SchemaMismatchError with a formatted message.
func ErrSchemaMismatch(format string, args ...interface{}) *SchemaMismatchError {
	return &SchemaMismatchError{Message: fmt.Sprintf(format, args...)}
}

// ErrCaptureWrite creates a CaptureWriteError with a formatted message.
func ErrCaptureWrite(format string, args ...interface{}) *CaptureWriteError {
	return &CaptureWriteError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}
