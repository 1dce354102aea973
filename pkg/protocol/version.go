// Package protocol defines the wire encoding owned by the secure-channel
// core: handshake messages, channel records, and alerts. Transports carry
// these messages opaquely; byte delivery and retransmission are theirs.
package protocol

import "github.com/asphaleia/asphaleia-go/internal/constants"

// Version is the protocol wire version.
type Version struct {
	Major uint8
	Minor uint8
}

// Current is the protocol version spoken by this implementation.
var Current = Version{Major: constants.ProtocolVersionMajor, Minor: constants.ProtocolVersionMinor}

// Bytes returns the version as a 2-byte value.
func (v Version) Bytes() []byte {
	return []byte{v.Major, v.Minor}
}

// IsCompatible reports whether two versions can interoperate.
// Versions are compatible if they share a major version.
func (v Version) IsCompatible(other Version) bool {
	return v.Major == other.Major
}

// String returns a string representation of the version.
func (v Version) String() string {
	return string('0'+v.Major) + "." + string('0'+v.Minor)
}

// Mode selects the key-agreement composition for a handshake.
type Mode uint8

const (
	// ModeECDH derives the shared secret from X25519 alone.
	ModeECDH Mode = 0x01

	// ModeHybrid combines X25519 with ML-KEM-1024 so the secret stays safe
	// if either primitive is later broken.
	ModeHybrid Mode = 0x02
)

// IsValid reports whether the mode is a known composition.
func (m Mode) IsValid() bool {
	return m == ModeECDH || m == ModeHybrid
}

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeECDH:
		return "ecdh"
	case ModeHybrid:
		return "hybrid"
	default:
		return "unknown"
	}
}

// SupportedCipherSuites returns the cipher suites this implementation
// offers, in preference order.
func SupportedCipherSuites() []constants.CipherSuite {
	return []constants.CipherSuite{
		constants.CipherSuiteChaCha20Poly1305,
		constants.CipherSuiteAES256GCM,
	}
}
