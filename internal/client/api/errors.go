package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnavailable marks transport-level failures: the server could not be
	// reached or did not produce a usable response. Never retried beyond the
	// single refresh-and-retry cycle.
	ErrUnavailable = errors.New("server unavailable")

	// ErrUnauthorized marks an authorization rejection on an ordinary call.
	// The authed client reacts to it with exactly one refresh-and-retry.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrUnexpectedVerdict is returned when the server produces a transaction
	// status outside the known set. Verdicts are classified exactly once at
	// this boundary and never re-inferred downstream.
	ErrUnexpectedVerdict = errors.New("unexpected transaction verdict")
)

// StatusError is a non-2xx response with the server-supplied error message.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}

// Unwrap maps authorization rejections onto ErrUnauthorized so callers can
// use errors.Is without inspecting status codes.
func (e *StatusError) Unwrap() error {
	if e.Code == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

// AuthError is a login, challenge or refresh rejection. Message carries the
// server-supplied reason verbatim.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}

type OTPRejectReason string

const (
	OTPReasonInvalid OTPRejectReason = "invalid"
	OTPReasonExpired OTPRejectReason = "expired"
)

// OTPRejectedError is a server-side rejection of a submitted passcode.
// Message is forwarded verbatim to the caller; Reason distinguishes an
// invalid code from an expired one, which terminates the challenge.
type OTPRejectedError struct {
	Reason  OTPRejectReason
	Message string
}

func (e *OTPRejectedError) Error() string {
	return e.Message
}
