// Package domainerrors defines the error type returned by services.
//
// Every error carries a Code (the coarse category used for transport mapping)
// and, for registry rule violations, a Reason naming the exact rule that failed
// (for example ReasonClaimNotAllowed). Stores never construct these; they
// return sentinel errors which services translate.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code is the coarse error category.
type Code string

const (
	CodeBadRequest         Code = "bad_request"
	CodeValidation         Code = "validation_error"
	CodeInvalidInput       Code = "invalid_input"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeInvariantViolation Code = "invariant_violation"
	CodePolicyViolation    Code = "policy_violation"
	CodeStale              Code = "stale_request"
	CodeTimeout            Code = "timeout"
	CodeUnavailable        Code = "unavailable"
	CodeInternal           Code = "internal_error"
)

// Reason names the registry rule that rejected a request.
type Reason string

const (
	// Policy violations.
	ReasonInvalidInvalidationType   Reason = "InvalidInvalidationType"
	ReasonNamespaceReachedLimit     Reason = "NamespaceReachedLimit"
	ReasonRentalDurationTooSmall    Reason = "RentalDurationTooSmall"
	ReasonRentalDurationTooLarge    Reason = "RentalDurationTooLarge"
	ReasonNamespaceRequiresDuration Reason = "NamespaceRequiresDuration"
	ReasonNamespaceRequiresToken    Reason = "NamespaceRequiresToken"
	ReasonInvalidPaymentMint        Reason = "InvalidPaymentMint"

	// Authorization failures.
	ReasonInvalidUpdateAuthority  Reason = "InvalidUpdateAuthority"
	ReasonInvalidApproveAuthority Reason = "InvalidApproveAuthority"
	ReasonInvalidOwnerMint        Reason = "InvalidOwnerMint"
	ReasonInvalidUserTokenAccount Reason = "InvalidUserTokenAccount"
	ReasonInvalidAuthority        Reason = "InvalidAuthority"

	// Staleness and replay.
	ReasonClaimNotAllowed Reason = "ClaimNotAllowed"

	// Cross-record consistency.
	ReasonInvalidEntry        Reason = "InvalidEntry"
	ReasonInvalidReverseEntry Reason = "InvalidReverseEntry"
	ReasonInvalidTokenManager Reason = "InvalidTokenManager"
	ReasonInvalidCertificate  Reason = "InvalidCertificate"
	ReasonReverseEntryInUse   Reason = "ReverseEntryInUse"

	// Arithmetic.
	ReasonCountUnderflow Reason = "CountUnderflow"
)

var reasonCodes = map[Reason]Code{
	ReasonInvalidInvalidationType:   CodePolicyViolation,
	ReasonNamespaceReachedLimit:     CodePolicyViolation,
	ReasonRentalDurationTooSmall:    CodePolicyViolation,
	ReasonRentalDurationTooLarge:    CodePolicyViolation,
	ReasonNamespaceRequiresDuration: CodePolicyViolation,
	ReasonNamespaceRequiresToken:    CodePolicyViolation,
	ReasonInvalidPaymentMint:        CodePolicyViolation,

	ReasonInvalidUpdateAuthority:  CodeForbidden,
	ReasonInvalidApproveAuthority: CodeForbidden,
	ReasonInvalidOwnerMint:        CodeForbidden,
	ReasonInvalidUserTokenAccount: CodeForbidden,
	ReasonInvalidAuthority:        CodeForbidden,

	ReasonClaimNotAllowed: CodeStale,

	ReasonInvalidEntry:        CodeInvariantViolation,
	ReasonInvalidReverseEntry: CodeInvariantViolation,
	ReasonInvalidTokenManager: CodeInvariantViolation,
	ReasonInvalidCertificate:  CodeInvariantViolation,
	ReasonReverseEntryInUse:   CodeConflict,

	ReasonCountUnderflow: CodeInternal,
}

// Code returns the category a reason belongs to. Unknown reasons are internal.
func (r Reason) Code() Code {
	if code, ok := reasonCodes[r]; ok {
		return code
	}
	return CodeInternal
}

// Error is the domain error returned across service boundaries.
type Error struct {
	Code    Code
	Reason  Reason
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Reason != "" {
		msg = string(e.Reason) + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an error with the given code.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Newf builds an error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(err error, code Code, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// Rule builds an error for a registry rule violation. The code is derived
// from the reason.
func Rule(reason Reason, msg string) error {
	return &Error{Code: reason.Code(), Reason: reason, Message: msg}
}

// From returns the outermost domain error in the chain.
func From(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// HasCode reports whether the outermost domain error in the chain has code.
func HasCode(err error, code Code) bool {
	de, ok := From(err)
	return ok && de.Code == code
}

// Is is an alias of HasCode kept for call sites that read better with it.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// HasReason reports whether any domain error in the chain carries reason.
func HasReason(err error, reason Reason) bool {
	for err != nil {
		var de *Error
		if !errors.As(err, &de) {
			return false
		}
		if de.Reason == reason {
			return true
		}
		err = de.Err
	}
	return false
}

// ReasonOf returns the reason of the outermost domain error, if any.
func ReasonOf(err error) Reason {
	for err != nil {
		var de *Error
		if !errors.As(err, &de) {
			return ""
		}
		if de.Reason != "" {
			return de.Reason
		}
		err = de.Err
	}
	return ""
}
