package app

import (
	"fmt"
	"time"

	"bandScalper/internal/domain"
)

// CycleErrorKind classifies a recoverable per-cycle failure.
type CycleErrorKind string

const (
	KindDataUnavailable   CycleErrorKind = "data_unavailable"
	KindOrderFailed       CycleErrorKind = "order_failed"
	KindPersistenceFailed CycleErrorKind = "persistence_failed"
)

// CycleError is returned by RunCycle and kept as the last error in status.
type CycleError struct {
	Kind      CycleErrorKind
	Err       error
	At        time.Time
	LastClose float64
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *CycleError) Unwrap() error {
	return e.Err
}

func (e *CycleError) toDomain() *domain.CycleError {
	if e == nil {
		return nil
	}
	msg := ""
	if e.Err != nil {
		msg = e.Err.Error()
	}
	return &domain.CycleError{
		Kind:      string(e.Kind),
		Message:   msg,
		At:        e.At,
		LastClose: e.LastClose,
	}
}
