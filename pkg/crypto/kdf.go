// kdf.go implements key derivation using SHAKE-256 (NIST FIPS 202) and
// transcript hashing using SHA3-256.
//
// Every derivation is domain-separated and every input is 4-byte big-endian
// length-prefixed, so distinct input vectors can never produce colliding
// absorb streams. Derivation is deterministic given identical inputs, which
// is what makes both handshake sides arrive at byte-identical session keys;
// freshness comes from the ephemeral keys, never from the KDF.
package crypto

import (
	"encoding/binary"

	"golang.org/x/crypto/sha3"

	"github.com/asphaleia/asphaleia-go/internal/constants"
	qerrors "github.com/asphaleia/asphaleia-go/internal/errors"
)

// maxKDFOutput caps a single derivation at 1 MiB.
const maxKDFOutput = 1 << 20

// DeriveKey derives outputLen bytes from a single input under a domain
// separator:
//
//	output = SHAKE-256(len(domain) || domain || len(input) || input, outputLen)
func DeriveKey(domain string, input []byte, outputLen int) ([]byte, error) {
	return DeriveKeyMultiple(domain, [][]byte{input}, outputLen)
}

// DeriveKeyMultiple derives outputLen bytes from several inputs under a
// domain separator. The input count and each input are length-prefixed.
func DeriveKeyMultiple(domain string, inputs [][]byte, outputLen int) ([]byte, error) {
	if outputLen <= 0 || outputLen > maxKDFOutput {
		return nil, qerrors.NewCryptoError("DeriveKeyMultiple", qerrors.ErrInvalidKeySize)
	}

	h := sha3.NewShake256()
	lenBuf := make([]byte, 4)

	domainBytes := []byte(domain)
	binary.BigEndian.PutUint32(lenBuf, uint32(len(domainBytes)))
	h.Write(lenBuf)
	h.Write(domainBytes)

	binary.BigEndian.PutUint32(lenBuf, uint32(len(inputs)))
	h.Write(lenBuf)

	for _, input := range inputs {
		binary.BigEndian.PutUint32(lenBuf, uint32(len(input)))
		h.Write(lenBuf)
		h.Write(input)
	}

	output := make([]byte, outputLen)
	_, _ = h.Read(output) // SHAKE256.Read never fails

	return output, nil
}

// TranscriptHash computes the SHA3-256 hash of ordered handshake components.
// Each component is length-prefixed so the encoding is injective; the hash
// binds derived keys to the exact handshake run that produced them.
func TranscriptHash(components ...[]byte) []byte {
	h := sha3.New256()
	lenBuf := make([]byte, 4)

	binary.BigEndian.PutUint32(lenBuf, uint32(len(components)))
	h.Write(lenBuf)

	for _, component := range components {
		binary.BigEndian.PutUint32(lenBuf, uint32(len(component)))
		h.Write(lenBuf)
		h.Write(component)
	}

	return h.Sum(nil)
}

// CombineSharedSecrets derives the handshake shared secret.
//
// In hybrid mode both values are combined by concatenate-then-hash:
//
//	K = SHAKE-256(domain || K_ecdh || K_kem || transcript_hash, 256)
//
// ECDH first, KEM second; any change to this order is a protocol version
// change. Concatenation inside SHAKE-256 (never XOR) avoids algebraic
// cancellation between the two values, and the result stays secure if
// either primitive remains unbroken. In classical mode kemSecret is nil and
// a distinct domain separator keeps the two modes from ever colliding.
func CombineSharedSecrets(ecdhSecret, kemSecret, transcriptHash []byte) ([]byte, error) {
	if len(ecdhSecret) != constants.X25519SharedSecretSize {
		return nil, qerrors.NewCryptoError("CombineSharedSecrets", qerrors.ErrInvalidKeySize)
	}
	if len(transcriptHash) != constants.TranscriptHashSize {
		return nil, qerrors.NewCryptoError("CombineSharedSecrets", qerrors.ErrInvalidKeySize)
	}

	if kemSecret == nil {
		return DeriveKeyMultiple(
			constants.DomainSeparatorECDHSecret,
			[][]byte{ecdhSecret, transcriptHash},
			constants.SharedSecretSize,
		)
	}

	if len(kemSecret) != constants.MLKEMSharedSecretSize {
		return nil, qerrors.NewCryptoError("CombineSharedSecrets", qerrors.ErrInvalidKeySize)
	}
	return DeriveKeyMultiple(
		constants.DomainSeparatorHybridSecret,
		[][]byte{ecdhSecret, kemSecret, transcriptHash},
		constants.SharedSecretSize,
	)
}
