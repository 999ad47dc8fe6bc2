package selection

import (
	"context"
	"errors"
	"fmt"

	"github.com/wonny/trendscan/pkg/database"
)

// ValidationError is a caller error found before any query is built
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

func invalid(field, value, reason string) error {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

// QueryErrorKind classifies a downstream failure
type QueryErrorKind string

const (
	KindUnavailable QueryErrorKind = "unavailable" // 재시도 가능 (연결 끊김, 타임아웃)
	KindInternal    QueryErrorKind = "internal"
)

// QueryError wraps a store failure. Error() carries only the kind and the
// operation, never SQL text or driver messages.
type QueryError struct {
	Kind QueryErrorKind
	Op   string
	Err  error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("screener %s failed: %s", e.Op, e.Kind)
}

func (e *QueryError) Unwrap() error { return e.Err }

// classify maps a store error to a QueryError
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var qErr *QueryError
	if errors.As(err, &qErr) {
		return err
	}
	kind := KindInternal
	if errors.Is(err, context.DeadlineExceeded) || database.IsRetryable(err) {
		kind = KindUnavailable
	}
	return &QueryError{Kind: kind, Op: op, Err: err}
}
