package token

import (
	"errors"
	"fmt"
)

var (
	// ErrTokenMalformed is returned when the token is not a well-formed JWT
	// or lacks the claims needed to rebuild a principal
	ErrTokenMalformed = errors.New("token malformed")

	// ErrTokenSignatureInvalid is returned when the signature does not verify
	// under the current signing key
	ErrTokenSignatureInvalid = errors.New("token signature invalid")

	// ErrTokenExpired is returned when now is at or past the token's expiry
	ErrTokenExpired = errors.New("token expired")

	// ErrSigningKeyMisconfigured is returned by NewService when the signing key
	// is missing or too short. It is fatal at startup.
	ErrSigningKeyMisconfigured = errors.New("signing key misconfigured")

	// ErrMissingSubject is returned by Mint for a principal without a login
	ErrMissingSubject = errors.New("principal has no login")
)

// VerificationError describes why a token was rejected. Kind is one of the
// ErrToken* sentinels; Cause is the underlying parser or crypto error.
type VerificationError struct {
	Kind  error
	Cause error
}

func (e *VerificationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%v: %v", e.Kind, e.Cause)
	}
	return e.Kind.Error()
}

// Unwrap exposes both the sentinel and the cause to errors.Is / errors.As
func (e *VerificationError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

func malformed(cause error) error {
	return &VerificationError{Kind: ErrTokenMalformed, Cause: cause}
}

func signatureInvalid(cause error) error {
	return &VerificationError{Kind: ErrTokenSignatureInvalid, Cause: cause}
}

func expired(cause error) error {
	return &VerificationError{Kind: ErrTokenExpired, Cause: cause}
}

// Reason returns a short, log-safe label for a verification failure
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, ErrTokenSignatureInvalid):
		return "signature_invalid"
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	default:
		return "unknown"
	}
}
