// Package identity implements long-term Ed25519 signing key pairs.
//
// An identity key signs handshake transcripts and certificate bodies; it is
// never used for key agreement. Key pairs are generated atomically so the
// public key is always the true counterpart of the secret, and the secret
// half is zeroized on Destroy.
package identity

import (
	"io"

	"github.com/cloudflare/circl/sign/ed25519"

	"github.com/asphaleia/asphaleia-go/internal/constants"
	qerrors "github.com/asphaleia/asphaleia-go/internal/errors"
)

// KeyPair is a long-term Ed25519 signing key pair.
type KeyPair struct {
	public  ed25519.PublicKey
	private ed25519.PrivateKey
}

// Generate produces a new signing key pair from rng. A nil rng falls back to
// the OS CSPRNG. Failure means the randomness source is unavailable, which
// is fatal and not retried.
func Generate(rng io.Reader) (*KeyPair, error) {
	public, private, err := ed25519.GenerateKey(rng)
	if err != nil {
		return nil, qerrors.NewCryptoError("identity.Generate", qerrors.ErrRandomnessUnavailable)
	}
	return &KeyPair{public: public, private: private}, nil
}

// Sign signs message with the secret key.
func (kp *KeyPair) Sign(message []byte) []byte {
	return ed25519.Sign(kp.private, message)
}

// Public returns a copy of the public key bytes.
func (kp *KeyPair) Public() []byte {
	out := make([]byte, len(kp.public))
	copy(out, kp.public)
	return out
}

// Destroy zeroizes the secret half of the key pair.
func (kp *KeyPair) Destroy() {
	for i := range kp.private {
		kp.private[i] = 0
	}
	kp.private = nil
	kp.public = nil
}

// Verify reports whether signature is a valid signature of message under
// publicKey. It never panics and returns false on any mismatch, including
// malformed keys or signatures.
func Verify(publicKey, message, signature []byte) bool {
	if len(publicKey) != constants.Ed25519PublicKeySize {
		return false
	}
	if len(signature) != constants.Ed25519SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(publicKey), message, signature)
}
