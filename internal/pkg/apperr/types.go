package apperr

import (
	"errors"
	"fmt"
)

const (
	invalidArgumentCode = "INVALID_ARGUMENT"
	transientCode       = "TRANSIENT_ERROR"
	dispatchCode        = "DISPATCH_ERROR"
	persistenceCode     = "PERSISTENCE_ERROR"
	internalErrorCode   = "INTERNAL_ERROR"
)

type messageCause struct {
	Msg   string
	Cause error
}

func (e *messageCause) Message() string { return e.Msg }
func (e *messageCause) Unwrap() error   { return e.Cause }

func formatError(code, msg string, cause error) string {
	if cause != nil {
		return fmt.Sprintf("[%s] %s: %v", code, msg, cause)
	}
	return fmt.Sprintf("[%s] %s", code, msg)
}

// InvalidArgErr marks a construction-time configuration or argument fault.
// It is only produced at startup and is always fatal.
type InvalidArgErr struct {
	messageCause
}

func NewInvalidArgErr(msg string, cause error) *InvalidArgErr {
	return &InvalidArgErr{messageCause: messageCause{Msg: msg, Cause: cause}}
}

func (e *InvalidArgErr) Error() string { return formatError(invalidArgumentCode, e.Msg, e.Cause) }
func (e *InvalidArgErr) Code() string  { return invalidArgumentCode }

// TransientErr marks a network, timeout, or RPC failure during a height
// query or log scan. It drives a backoff cycle and is retried indefinitely.
type TransientErr struct {
	messageCause
}

func NewTransientErr(msg string, cause error) *TransientErr {
	return &TransientErr{messageCause: messageCause{Msg: msg, Cause: cause}}
}

func (e *TransientErr) Error() string { return formatError(transientCode, e.Msg, e.Cause) }
func (e *TransientErr) Code() string  { return transientCode }

// DispatchErr marks a downstream relay action failure. It aborts the current
// processing cycle without advancing the block watermark.
type DispatchErr struct {
	messageCause
}

func NewDispatchErr(msg string, cause error) *DispatchErr {
	return &DispatchErr{messageCause: messageCause{Msg: msg, Cause: cause}}
}

func (e *DispatchErr) Error() string { return formatError(dispatchCode, e.Msg, e.Cause) }
func (e *DispatchErr) Code() string  { return dispatchCode }

// PersistenceErr marks a failed durable flush of the dedup set. The
// in-memory set remains authoritative; the durable snapshot may lag until
// the next successful flush.
type PersistenceErr struct {
	messageCause
}

func NewPersistenceErr(msg string, cause error) *PersistenceErr {
	return &PersistenceErr{messageCause: messageCause{Msg: msg, Cause: cause}}
}

func (e *PersistenceErr) Error() string { return formatError(persistenceCode, e.Msg, e.Cause) }
func (e *PersistenceErr) Code() string  { return persistenceCode }

type InternalErr struct {
	messageCause
}

func NewInternalErr(msg string, cause error) *InternalErr {
	return &InternalErr{messageCause: messageCause{Msg: msg, Cause: cause}}
}

func (e *InternalErr) Error() string { return formatError(internalErrorCode, e.Msg, e.Cause) }
func (e *InternalErr) Code() string  { return internalErrorCode }

// IsTransient reports whether err is (or wraps) a TransientErr.
func IsTransient(err error) bool {
	var te *TransientErr
	return errors.As(err, &te)
}

// IsDispatch reports whether err is (or wraps) a DispatchErr.
func IsDispatch(err error) bool {
	var de *DispatchErr
	return errors.As(err, &de)
}
