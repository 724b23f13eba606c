package builder

import (
	"errors"
	"fmt"
)

// ErrValidation is matched by every *ValidationError through errors.Is.
var ErrValidation = errors.New("dsql: invalid statement input")

// Validation error codes.
const (
	CodeUnsupportedOperator = "UNSUPPORTED_OPERATOR"
	CodeMissingOperator     = "MISSING_OPERATOR"
	CodeEmptyRecords        = "EMPTY_RECORDS"
	CodeHeterogeneous       = "HETEROGENEOUS_RECORDS"
	CodeEmptyPatch          = "EMPTY_PATCH"
	CodeEmptyInList         = "EMPTY_IN_LIST"
	CodeEmptyCondition      = "EMPTY_CONDITION"
	CodeEmptyTable          = "EMPTY_TABLE"
	CodeEmptyField          = "EMPTY_FIELD"
	CodeDuplicateField      = "DUPLICATE_FIELD"
	CodeUnknownKind         = "UNKNOWN_KIND"
	CodeUnknownDialect      = "UNKNOWN_DIALECT"
	CodeInvalidPagination   = "INVALID_PAGINATION"
)

// ValidationError reports malformed builder input. It is always returned
// before any statement text is produced.
type ValidationError struct {
	Reason  string // one of the Code* constants
	Field   string // offending field or predicate key, if any
	Value   any    // offending value, if any
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("ValidationError: %s: %s", e.Reason, e.Message)
	}
	return fmt.Sprintf("ValidationError: %s: %q: %s", e.Reason, e.Field, e.Message)
}

func (e *ValidationError) Code() string { return e.Reason }

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(code, field string, value any, format string, args ...any) *ValidationError {
	return &ValidationError{
		Reason:  code,
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf(format, args...),
	}
}

// IsValidationError reports whether err is, or wraps, a *ValidationError.
func IsValidationError(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

// ErrorCode extracts the validation code of err, or "UNKNOWN_ERROR".
func ErrorCode(err error) string {
	var e *ValidationError
	if errors.As(err, &e) {
		return e.Code()
	}
	return "UNKNOWN_ERROR"
}
