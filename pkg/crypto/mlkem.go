// mlkem.go wraps the ML-KEM-1024 key encapsulation mechanism (NIST FIPS 203)
// from cloudflare/circl. ML-KEM-1024 provides NIST Category 5 post-quantum
// security based on the Module-LWE problem.
package crypto

import (
	"io"

	"github.com/cloudflare/circl/kem/mlkem/mlkem1024"

	"github.com/asphaleia/asphaleia-go/internal/constants"
	qerrors "github.com/asphaleia/asphaleia-go/internal/errors"
)

// MLKEMPublicKey wraps an ML-KEM-1024 encapsulation key.
type MLKEMPublicKey struct {
	key *mlkem1024.PublicKey
}

// MLKEMPrivateKey wraps an ML-KEM-1024 decapsulation key.
type MLKEMPrivateKey struct {
	key *mlkem1024.PrivateKey
}

// MLKEMKeyPair is an ML-KEM-1024 key pair. In the handshake these are
// ephemeral: generated by the initiator, encapsulated to by the responder,
// and destroyed with the handshake state.
type MLKEMKeyPair struct {
	// EncapsulationKey is the public key peers encapsulate to.
	EncapsulationKey *MLKEMPublicKey

	// DecapsulationKey is the private key used to decapsulate.
	DecapsulationKey *MLKEMPrivateKey
}

// GenerateMLKEMKeyPair generates a new ML-KEM-1024 key pair from rng.
func GenerateMLKEMKeyPair(rng io.Reader) (*MLKEMKeyPair, error) {
	if rng == nil {
		rng = Reader
	}
	pk, sk, err := mlkem1024.GenerateKeyPair(rng)
	if err != nil {
		return nil, qerrors.NewCryptoError("MLKEMKeyPair.Generate", qerrors.ErrRandomnessUnavailable)
	}

	return &MLKEMKeyPair{
		EncapsulationKey: &MLKEMPublicKey{key: pk},
		DecapsulationKey: &MLKEMPrivateKey{key: sk},
	}, nil
}

// MLKEMEncapsulate encapsulates a fresh shared value under ek.
//
// Returns the 1568-byte ciphertext and the 32-byte shared value.
func MLKEMEncapsulate(rng io.Reader, ek *MLKEMPublicKey) (ciphertext, sharedSecret []byte, err error) {
	if ek == nil || ek.key == nil {
		return nil, nil, qerrors.ErrInvalidPublicKey
	}

	seed := make([]byte, mlkem1024.EncapsulationSeedSize)
	if err := SecureRandom(rng, seed); err != nil {
		return nil, nil, err
	}

	ct := make([]byte, mlkem1024.CiphertextSize)
	ss := make([]byte, mlkem1024.SharedKeySize)
	ek.key.EncapsulateTo(ct, ss, seed)
	Zeroize(seed)

	return ct, ss, nil
}

// MLKEMDecapsulate recovers the shared value from ciphertext using dk.
// ML-KEM uses implicit rejection: a malformed but well-sized ciphertext
// yields a pseudorandom value rather than an error, so authentication of
// the transcript is what detects tampering.
func MLKEMDecapsulate(dk *MLKEMPrivateKey, ciphertext []byte) ([]byte, error) {
	if dk == nil || dk.key == nil {
		return nil, qerrors.ErrInvalidPrivateKey
	}
	if len(ciphertext) != constants.MLKEMCiphertextSize {
		return nil, qerrors.ErrInvalidCiphertext
	}

	ss := make([]byte, mlkem1024.SharedKeySize)
	dk.key.DecapsulateTo(ss, ciphertext)

	return ss, nil
}

// Bytes returns the encoded bytes of the encapsulation key.
func (pk *MLKEMPublicKey) Bytes() []byte {
	if pk == nil || pk.key == nil {
		return nil
	}
	buf := make([]byte, mlkem1024.PublicKeySize)
	pk.key.Pack(buf)
	return buf
}

// PublicKeyBytes returns the encoded bytes of the encapsulation key.
func (kp *MLKEMKeyPair) PublicKeyBytes() []byte {
	return kp.EncapsulationKey.Bytes()
}

// ParseMLKEMPublicKey parses an ML-KEM-1024 encapsulation key.
func ParseMLKEMPublicKey(data []byte) (*MLKEMPublicKey, error) {
	if len(data) != constants.MLKEMPublicKeySize {
		return nil, qerrors.ErrInvalidPublicKey
	}

	pk := new(mlkem1024.PublicKey)
	if err := pk.Unpack(data); err != nil {
		return nil, qerrors.NewCryptoError("ParseMLKEMPublicKey", qerrors.ErrInvalidPublicKey)
	}

	return &MLKEMPublicKey{key: pk}, nil
}

// Zeroize drops references to the key material. circl does not expose
// decapsulation key bytes for overwriting.
func (kp *MLKEMKeyPair) Zeroize() {
	kp.DecapsulationKey = nil
	kp.EncapsulationKey = nil
}

// Zeroize overwrites b with zeros. Convenience re-export used throughout the
// handshake for intermediate secrets.
func Zeroize(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// ZeroizeAll overwrites every slice with zeros.
func ZeroizeAll(slices ...[]byte) {
	for _, s := range slices {
		Zeroize(s)
	}
}
