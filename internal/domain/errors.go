package domain

import "errors"

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrBackendNotFound = errors.New("backend not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrBlockNotFound   = errors.New("memory block not found")
	ErrSecretNotFound  = errors.New("secret not found")

	// ErrInsufficientBalance means an authorize failed the available-balance
	// check. It ends the turn, never the session.
	ErrInsufficientBalance = errors.New("insufficient token balance")
	// ErrOverageExceeded means a commit's actual cost exceeded the bounded
	// overage allowance over its authorized estimate.
	ErrOverageExceeded     = errors.New("actual cost exceeds authorized overage bound")
	ErrReservationNotFound = errors.New("reservation not found")

	ErrSafetyRejected     = errors.New("rejected by safety gate")
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrBackendTimeout     = errors.New("backend timed out")
	ErrTurnCancelled      = errors.New("turn cancelled")
	// ErrTurnInFlight means a send stopped waiting for the session because
	// its previous turn had not finished when the caller's context ended.
	ErrTurnInFlight = errors.New("another turn is in flight")

	// ErrBlockFrozen is returned by delete or reclassify on a frozen block;
	// the caller must unfreeze first.
	ErrBlockFrozen = errors.New("memory block is frozen")

	// ErrInvalidConfiguration covers configuration writes that reference
	// unknown backends or malformed policies. Raised at write time, never
	// mid-dispatch.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)
