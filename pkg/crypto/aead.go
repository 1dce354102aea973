// aead.go wraps the AEAD ciphers protecting channel records.
//
// Two suites are supported: AES-256-GCM (hardware-accelerated on modern
// CPUs) and ChaCha20-Poly1305. Nonce management lives in the channel layer,
// which derives each nonce from the channel identifier and a monotonic
// record counter; this wrapper only seals and opens with explicit nonces.
// A (key, nonce) pair is used at most once; the channel enforces this, and
// nonce reuse completely breaks both suites.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/asphaleia/asphaleia-go/internal/constants"
	qerrors "github.com/asphaleia/asphaleia-go/internal/errors"
)

// AEAD is an authenticated cipher bound to a single directional key.
type AEAD struct {
	cipher cipher.AEAD
	suite  constants.CipherSuite
}

// NewAEAD creates an AEAD for the given suite and 32-byte key. The key is
// copied into the cipher schedule; the caller keeps ownership of key and
// must zeroize it.
func NewAEAD(suite constants.CipherSuite, key []byte) (*AEAD, error) {
	if len(key) != constants.AEADKeySize {
		return nil, qerrors.ErrInvalidKeySize
	}

	var aeadCipher cipher.AEAD

	switch suite {
	case constants.CipherSuiteAES256GCM:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, qerrors.NewCryptoError("NewAEAD", err)
		}
		aeadCipher, err = cipher.NewGCM(block)
		if err != nil {
			return nil, qerrors.NewCryptoError("NewAEAD", err)
		}

	case constants.CipherSuiteChaCha20Poly1305:
		c, err := chacha20poly1305.New(key)
		if err != nil {
			return nil, qerrors.NewCryptoError("NewAEAD", err)
		}
		aeadCipher = c

	default:
		return nil, qerrors.ErrUnsupportedCipherSuite
	}

	return &AEAD{cipher: aeadCipher, suite: suite}, nil
}

// Seal encrypts and authenticates plaintext under the given nonce,
// authenticating additionalData alongside. Returns ciphertext || tag.
func (a *AEAD) Seal(nonce, plaintext, additionalData []byte) ([]byte, error) {
	if len(nonce) != constants.AEADNonceSize {
		return nil, qerrors.NewCryptoError("AEAD.Seal", qerrors.ErrInvalidKeySize)
	}
	return a.cipher.Seal(nil, nonce, plaintext, additionalData), nil
}

// Open verifies and decrypts ciphertext || tag under the given nonce.
// Any mismatch yields ErrAuthenticationFailed with no further detail.
func (a *AEAD) Open(nonce, ciphertext, additionalData []byte) ([]byte, error) {
	if len(nonce) != constants.AEADNonceSize {
		return nil, qerrors.NewCryptoError("AEAD.Open", qerrors.ErrInvalidKeySize)
	}
	if len(ciphertext) < constants.AEADTagSize {
		return nil, qerrors.ErrMalformedMessage
	}

	plaintext, err := a.cipher.Open(nil, nonce, ciphertext, additionalData)
	if err != nil {
		return nil, qerrors.ErrAuthenticationFailed
	}

	return plaintext, nil
}

// Suite returns the cipher suite identifier.
func (a *AEAD) Suite() constants.CipherSuite {
	return a.suite
}

// Overhead returns the bytes added to each plaintext by sealing.
func (a *AEAD) Overhead() int {
	return a.cipher.Overhead()
}
