// Package crypto wraps the cryptographic primitives composed by the
// Asphaleia secure-channel core: X25519, ML-KEM-1024, SHAKE-256 key
// derivation, and AEAD record protection. The package owns no algorithm
// implementations; it composes audited primitives from the standard
// library, golang.org/x/crypto, and cloudflare/circl.
//
// All randomness is consumed through an injected io.Reader so callers
// control the entropy source; Reader is the default OS CSPRNG.
package crypto

import (
	"crypto/rand"
	"io"

	qerrors "github.com/asphaleia/asphaleia-go/internal/errors"
)

// Reader is the default cryptographically secure randomness source.
var Reader = rand.Reader

// SecureRandom fills b with random bytes from rng. A nil rng falls back to
// Reader. Failure is fatal for the caller: the process cannot produce
// secure keys and must not retry.
func SecureRandom(rng io.Reader, b []byte) error {
	if rng == nil {
		rng = Reader
	}
	if _, err := io.ReadFull(rng, b); err != nil {
		return qerrors.NewCryptoError("SecureRandom", qerrors.ErrRandomnessUnavailable)
	}
	return nil
}

// SecureRandomBytes returns n random bytes from rng.
func SecureRandomBytes(rng io.Reader, n int) ([]byte, error) {
	b := make([]byte, n)
	if err := SecureRandom(rng, b); err != nil {
		return nil, err
	}
	return b, nil
}
