// Package constants defines security parameters and protocol constants for
// the Asphaleia hybrid secure-channel protocol.
//
// The protocol combines X25519 (RFC 7748) with ML-KEM-1024 (NIST FIPS 203)
// for NIST Category 5 post-quantum security, and Ed25519 for identity
// authentication.
package constants

// Protocol version and identification
const (
	// ProtocolVersionMajor and ProtocolVersionMinor form the current wire version.
	ProtocolVersionMajor uint8 = 1
	ProtocolVersionMinor uint8 = 0

	// ProtocolName is used for domain separation in key derivation.
	ProtocolName = "ASPHALEIA-HSC-v1"
)

// X25519 parameters (RFC 7748)
const (
	// X25519PublicKeySize is the size of an X25519 public key in bytes.
	X25519PublicKeySize = 32

	// X25519PrivateKeySize is the size of an X25519 private key in bytes.
	X25519PrivateKeySize = 32

	// X25519SharedSecretSize is the size of the X25519 shared value in bytes.
	X25519SharedSecretSize = 32
)

// ML-KEM-1024 parameters (NIST FIPS 203, Category 5)
const (
	// MLKEMPublicKeySize is the size of an ML-KEM-1024 encapsulation key in bytes.
	MLKEMPublicKeySize = 1568

	// MLKEMCiphertextSize is the size of an ML-KEM-1024 ciphertext in bytes.
	MLKEMCiphertextSize = 1568

	// MLKEMSharedSecretSize is the size of the ML-KEM shared value in bytes.
	MLKEMSharedSecretSize = 32
)

// Ed25519 identity parameters (RFC 8032)
const (
	// Ed25519PublicKeySize is the size of an Ed25519 public key in bytes.
	Ed25519PublicKeySize = 32

	// Ed25519SignatureSize is the size of an Ed25519 signature in bytes.
	Ed25519SignatureSize = 64
)

// Symmetric encryption parameters
const (
	// AEADKeySize is the size of AES-256 and ChaCha20 keys in bytes.
	AEADKeySize = 32

	// AEADNonceSize is the size of AES-GCM and ChaCha20-Poly1305 nonces in bytes.
	AEADNonceSize = 12

	// AEADTagSize is the size of the authentication tag in bytes.
	AEADTagSize = 16
)

// Key derivation parameters (SHAKE-256)
const (
	// SharedSecretSize is the size of the combined handshake shared secret.
	SharedSecretSize = 32

	// TranscriptHashSize is the size of the handshake transcript hash in bytes.
	TranscriptHashSize = 32

	// ChannelIDSize is the size of the derived channel identifier in bytes.
	ChannelIDSize = 16

	// DomainSeparatorHybridSecret binds the combined ECDH+KEM secret derivation.
	DomainSeparatorHybridSecret = "ASPHALEIA-HSC-v1-HybridSecret"

	// DomainSeparatorECDHSecret binds the classical-only secret derivation.
	// Distinct from the hybrid separator so the two modes can never collide.
	DomainSeparatorECDHSecret = "ASPHALEIA-HSC-v1-ECDHSecret"

	// DomainSeparatorInitiatorTraffic labels initiator-to-responder keys.
	DomainSeparatorInitiatorTraffic = "ASPHALEIA-HSC-v1-InitiatorToResponder"

	// DomainSeparatorResponderTraffic labels responder-to-initiator keys.
	DomainSeparatorResponderTraffic = "ASPHALEIA-HSC-v1-ResponderToInitiator"

	// DomainSeparatorChannelID labels channel identifier derivation.
	DomainSeparatorChannelID = "ASPHALEIA-HSC-v1-ChannelID"

	// DomainSeparatorInitiatorAuth labels the initiator's proof-of-possession
	// signature over its ephemeral public shares.
	DomainSeparatorInitiatorAuth = "ASPHALEIA-HSC-v1-InitiatorAuth"

	// DomainSeparatorResponderAuth labels the responder's transcript signature.
	DomainSeparatorResponderAuth = "ASPHALEIA-HSC-v1-ResponderAuth"
)

// Channel parameters
const (
	// ReplayWindowSize is the width of the sliding replay window in records.
	ReplayWindowSize = 64

	// MaxRecordsPerChannel caps the send counter. Exceeding it risks nonce
	// reuse, so the channel fails fatally and forces renegotiation.
	MaxRecordsPerChannel = uint64(1) << 48
)

// Message size limits
const (
	// MaxMessageSize is the maximum size of a single protocol message payload.
	MaxMessageSize = 1 << 21

	// MaxCertificateSize bounds an encoded certificate on the wire.
	MaxCertificateSize = 4096

	// MinRecordSize is the minimum size of a valid channel record payload:
	// an authentication tag over an empty plaintext.
	MinRecordSize = AEADTagSize
)

// CipherSuite identifies the AEAD used for channel records.
type CipherSuite uint16

const (
	// CipherSuiteAES256GCM uses AES-256-GCM for record protection.
	CipherSuiteAES256GCM CipherSuite = 0x0001

	// CipherSuiteChaCha20Poly1305 uses ChaCha20-Poly1305 for record protection.
	CipherSuiteChaCha20Poly1305 CipherSuite = 0x0002
)

// String returns a human-readable name for the cipher suite.
func (cs CipherSuite) String() string {
	switch cs {
	case CipherSuiteAES256GCM:
		return "AES-256-GCM"
	case CipherSuiteChaCha20Poly1305:
		return "ChaCha20-Poly1305"
	default:
		return "Unknown"
	}
}

// IsSupported returns true if the cipher suite is supported.
func (cs CipherSuite) IsSupported() bool {
	return cs == CipherSuiteAES256GCM || cs == CipherSuiteChaCha20Poly1305
}
