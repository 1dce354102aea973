// Package errors defines the error taxonomy for the Asphaleia secure-channel
// core. Every failure path is explicit and distinguishable by kind so callers
// can apply different policies (abort, log, or retry with fresh ephemeral
// material). Error messages never include secret material.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for cryptographic operations
var (
	// ErrRandomnessUnavailable indicates the injected CSPRNG failed.
	// Fatal: the process cannot produce secure keys and must not retry.
	ErrRandomnessUnavailable = errors.New("crypto: randomness source unavailable")

	// ErrInvalidKeySize indicates that a key has an incorrect size.
	ErrInvalidKeySize = errors.New("crypto: invalid key size")

	// ErrInvalidPublicKey indicates that a public key is invalid.
	ErrInvalidPublicKey = errors.New("crypto: invalid public key")

	// ErrInvalidPrivateKey indicates that a private key is invalid.
	ErrInvalidPrivateKey = errors.New("crypto: invalid private key")

	// ErrInvalidCiphertext indicates a KEM ciphertext is malformed.
	ErrInvalidCiphertext = errors.New("crypto: invalid ciphertext")

	// ErrSecretDestroyed indicates use of secret material after zeroization.
	ErrSecretDestroyed = errors.New("crypto: secret material destroyed")
)

// Sentinel errors for handshake and record processing
var (
	// ErrMalformedMessage indicates a handshake message or record failed
	// structural parsing. The attempt is discarded, never retried as-is.
	ErrMalformedMessage = errors.New("protocol: malformed message")

	// ErrAuthenticationFailed indicates a signature or AEAD tag mismatch.
	// Treated as a potential attack; no state is updated.
	ErrAuthenticationFailed = errors.New("protocol: authentication failed")

	// ErrReplayDetected indicates a record was re-delivered or fell outside
	// the replay window. Logged, not treated as channel failure.
	ErrReplayDetected = errors.New("protocol: replay detected")

	// ErrCounterExhausted indicates the record counter would overflow.
	// Fatal for the channel; forces renegotiation.
	ErrCounterExhausted = errors.New("channel: nonce counter exhausted")

	// ErrChannelClosed indicates the channel has been closed.
	ErrChannelClosed = errors.New("channel: closed")

	// ErrInvalidState indicates an operation in the wrong protocol state.
	ErrInvalidState = errors.New("protocol: invalid state")

	// ErrUnsupportedVersion indicates no common protocol version.
	ErrUnsupportedVersion = errors.New("protocol: unsupported version")

	// ErrUnsupportedCipherSuite indicates no common cipher suite.
	ErrUnsupportedCipherSuite = errors.New("protocol: unsupported cipher suite")

	// ErrMessageTooLarge indicates a message exceeds the maximum size.
	ErrMessageTooLarge = errors.New("protocol: message too large")

	// ErrCertificateRequired indicates peer authentication was required but
	// no certificate was presented.
	ErrCertificateRequired = errors.New("protocol: certificate required")
)

// ErrCertificateInvalid is the match target for all certificate validation
// failures; the concrete reason travels in a CertificateError.
var ErrCertificateInvalid = errors.New("cert: certificate invalid")

// CertificateError reports why certificate validation failed.
// It matches ErrCertificateInvalid under errors.Is.
type CertificateError struct {
	Reason string // one of the ValidationResult names
}

func (e *CertificateError) Error() string {
	return fmt.Sprintf("cert: certificate invalid: %s", e.Reason)
}

// Is reports whether target is ErrCertificateInvalid.
func (e *CertificateError) Is(target error) bool {
	return target == ErrCertificateInvalid
}

// NewCertificateError creates a CertificateError with the given reason.
func NewCertificateError(reason string) *CertificateError {
	return &CertificateError{Reason: reason}
}

// CryptoError wraps a cryptographic error with the failing operation.
type CryptoError struct {
	Op  string // Operation that failed
	Err error  // Underlying error
}

func (e *CryptoError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *CryptoError) Unwrap() error {
	return e.Err
}

// NewCryptoError creates a new CryptoError.
func NewCryptoError(op string, err error) *CryptoError {
	return &CryptoError{Op: op, Err: err}
}

// ProtocolError wraps a protocol error with the phase in which it occurred.
type ProtocolError struct {
	Phase string // Protocol phase (e.g., "handshake", "record")
	Err   error  // Underlying error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol %s: %v", e.Phase, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// NewProtocolError creates a new ProtocolError.
func NewProtocolError(phase string, err error) *ProtocolError {
	return &ProtocolError{Phase: phase, Err: err}
}

// Is reports whether any error in err's chain matches target.
// This is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
// This is a convenience wrapper around errors.As.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
