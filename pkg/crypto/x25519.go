// x25519.go implements the classical half of the hybrid key agreement.
//
// X25519 (RFC 7748) provides ~128 bits of classical security. It is NOT
// quantum-resistant; in hybrid mode it provides defense-in-depth and keeps
// the channel secure if ML-KEM is broken.
package crypto

import (
	"crypto/ecdh"
	"io"

	"github.com/asphaleia/asphaleia-go/internal/constants"
	qerrors "github.com/asphaleia/asphaleia-go/internal/errors"
)

// X25519KeyPair is an ephemeral X25519 key pair for the handshake.
type X25519KeyPair struct {
	// PublicKey is the public share sent to the peer.
	PublicKey *ecdh.PublicKey

	// PrivateKey is the secret scalar.
	PrivateKey *ecdh.PrivateKey
}

// GenerateX25519KeyPair generates a new X25519 key pair from rng.
func GenerateX25519KeyPair(rng io.Reader) (*X25519KeyPair, error) {
	if rng == nil {
		rng = Reader
	}
	privateKey, err := ecdh.X25519().GenerateKey(rng)
	if err != nil {
		return nil, qerrors.NewCryptoError("X25519KeyPair.Generate", qerrors.ErrRandomnessUnavailable)
	}

	return &X25519KeyPair{
		PublicKey:  privateKey.PublicKey(),
		PrivateKey: privateKey,
	}, nil
}

// X25519 computes the Diffie-Hellman shared value between privateKey and
// peerPublic. The result must never be used directly as a key; it always
// feeds the SHAKE-256 key schedule.
func X25519(privateKey *ecdh.PrivateKey, peerPublic *ecdh.PublicKey) ([]byte, error) {
	if privateKey == nil {
		return nil, qerrors.ErrInvalidPrivateKey
	}
	if peerPublic == nil {
		return nil, qerrors.ErrInvalidPublicKey
	}

	sharedSecret, err := privateKey.ECDH(peerPublic)
	if err != nil {
		return nil, qerrors.NewCryptoError("X25519", err)
	}

	return sharedSecret, nil
}

// PublicKeyBytes returns the encoded bytes of the public key.
func (kp *X25519KeyPair) PublicKeyBytes() []byte {
	return kp.PublicKey.Bytes()
}

// ParseX25519PublicKey parses an X25519 public key from its 32-byte encoding.
func ParseX25519PublicKey(data []byte) (*ecdh.PublicKey, error) {
	if len(data) != constants.X25519PublicKeySize {
		return nil, qerrors.ErrInvalidPublicKey
	}

	publicKey, err := ecdh.X25519().NewPublicKey(data)
	if err != nil {
		return nil, qerrors.NewCryptoError("ParseX25519PublicKey", qerrors.ErrInvalidPublicKey)
	}

	return publicKey, nil
}

// Zeroize drops references to the key material. crypto/ecdh does not expose
// its backing bytes for overwriting.
func (kp *X25519KeyPair) Zeroize() {
	kp.PrivateKey = nil
	kp.PublicKey = nil
}
