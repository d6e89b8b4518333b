package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and the custody boundary
// return these (optionally wrapped) so services can translate them into
// domain errors.
//
// They describe the state of a record, not a rule violation:
// - ErrNotFound: record does not exist
// - ErrConflict: record already exists under this address
// - ErrInvalidState: record is in the wrong state for the requested operation
// - ErrInsufficientFunds: a token account cannot cover a debit
// - ErrUnavailable: backing service temporarily unavailable
//
// For rule violations use pkg/domain-errors directly.
var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInvalidState      = errors.New("invalid state")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrUnavailable       = errors.New("unavailable")
)
