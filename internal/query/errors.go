package query

import (
	"errors"
	"fmt"

	"github.com/llehouerou/shoal/internal/meta"
)

var (
	ErrNoQueryType      = errors.New("query type not set")
	ErrAlreadyUsed      = errors.New("blocking query already used, reset it first")
	ErrRunning          = errors.New("query is still running")
	ErrAborted          = errors.New("query aborted")
	ErrUnbalancedGroup  = errors.New("unbalanced and/or group")
	ErrNoReturnValues   = errors.New("custom query without return values")
	ErrPoolClosed       = errors.New("worker pool closed")
	ErrUnsupportedMatch = errors.New("unsupported match target")
)

// InvalidFieldError reports a field that cannot be used in the position it
// was given. Name is set instead of Field when the field was given by a
// name that does not resolve.
type InvalidFieldError struct {
	Field meta.Field
	Name  string
}

func (e *InvalidFieldError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("invalid field %q", e.Name)
	}
	return fmt.Sprintf("invalid field %s (%d)", e.Field, int(e.Field))
}

// InvalidCompareError reports an unknown numeric comparator.
type InvalidCompareError struct {
	Compare string
}

func (e *InvalidCompareError) Error() string {
	return fmt.Sprintf("invalid compare %q", e.Compare)
}

// InvalidFunctionError reports an unknown aggregate function.
type InvalidFunctionError struct {
	Function ReturnFunction
}

func (e *InvalidFunctionError) Error() string {
	return fmt.Sprintf("invalid return function %d", int(e.Function))
}
