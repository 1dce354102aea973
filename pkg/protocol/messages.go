// messages.go defines the handshake and record messages.
//
//	Initiator                              Responder
//	    |                                      |
//	    | -------- HandshakeInit ------------> |
//	    |   - ephemeral X25519 share           |
//	    |   - ephemeral ML-KEM key (hybrid)    |
//	    |   - certificate + PoP sig (optional) |
//	    |                                      |
//	    | <------- HandshakeResponse --------- |
//	    |   - ephemeral X25519 share           |
//	    |   - ML-KEM ciphertext (hybrid)       |
//	    |   - certificate                      |
//	    |   - transcript signature             |
//	    |                                      |
//	    |    === Channel Established ===       |
//	    |                                      |
//	    | <============ Record =============>  |
package protocol

import (
	"github.com/asphaleia/asphaleia-go/internal/constants"
	qerrors "github.com/asphaleia/asphaleia-go/internal/errors"
)

// MessageType identifies the type of protocol message.
type MessageType uint8

// Protocol message types.
const (
	// MessageTypeHandshakeInit opens a handshake from the initiator.
	MessageTypeHandshakeInit MessageType = 0x01
	// MessageTypeHandshakeResponse answers with the responder's shares.
	MessageTypeHandshakeResponse MessageType = 0x02

	// MessageTypeRecord carries an encrypted channel record.
	MessageTypeRecord MessageType = 0x10
	// MessageTypeClose signals graceful channel termination.
	MessageTypeClose MessageType = 0x14

	// MessageTypeAlert signals an error condition.
	MessageTypeAlert MessageType = 0xF0
)

// String returns a human-readable name for the message type.
func (mt MessageType) String() string {
	switch mt {
	case MessageTypeHandshakeInit:
		return "HandshakeInit"
	case MessageTypeHandshakeResponse:
		return "HandshakeResponse"
	case MessageTypeRecord:
		return "Record"
	case MessageTypeClose:
		return "Close"
	case MessageTypeAlert:
		return "Alert"
	default:
		return "Unknown"
	}
}

// HandshakeInit is sent by the initiator to begin a handshake.
type HandshakeInit struct {
	// Version offered by the initiator.
	Version Version

	// Mode selects classical-only or hybrid key agreement.
	Mode Mode

	// CipherSuites offered, in preference order.
	CipherSuites []constants.CipherSuite

	// EcdhPublic is the ephemeral X25519 public share (32 bytes).
	EcdhPublic []byte

	// KemPublic is the ephemeral ML-KEM-1024 encapsulation key
	// (1568 bytes in hybrid mode, empty otherwise).
	KemPublic []byte

	// Certificate is the initiator's encoded certificate, present when
	// mutual authentication is requested. Empty otherwise.
	Certificate []byte

	// AuthSignature is the initiator's proof-of-possession signature over
	// its ephemeral shares. Present exactly when Certificate is.
	AuthSignature []byte
}

// HandshakeResponse is sent by the responder to complete key agreement.
type HandshakeResponse struct {
	// Version selected by the responder.
	Version Version

	// CipherSuite selected from the initiator's offer.
	CipherSuite constants.CipherSuite

	// EcdhPublic is the ephemeral X25519 public share (32 bytes).
	EcdhPublic []byte

	// KemCiphertext encapsulates a fresh shared value under the initiator's
	// ML-KEM key (1568 bytes in hybrid mode, empty otherwise).
	KemCiphertext []byte

	// Certificate is the responder's encoded certificate.
	Certificate []byte

	// Signature is the responder's identity signature over the handshake
	// transcript (64 bytes).
	Signature []byte
}

// Record is an encrypted channel record.
type Record struct {
	// Counter is the sender's record counter, also bound into the nonce
	// and additional data.
	Counter uint64

	// Payload is ciphertext plus authentication tag.
	Payload []byte
}

// AlertLevel indicates the severity of an alert.
type AlertLevel uint8

// Alert severity levels.
const (
	// AlertLevelWarning indicates a recoverable condition.
	AlertLevelWarning AlertLevel = 0x01
	// AlertLevelFatal indicates the connection must terminate.
	AlertLevelFatal AlertLevel = 0x02
)

// AlertCode identifies specific error conditions.
type AlertCode uint8

// String returns the alert code name.
func (c AlertCode) String() string {
	switch c {
	case AlertCodeHandshakeFailure:
		return "handshake_failure"
	case AlertCodeBadCertificate:
		return "bad_certificate"
	case AlertCodeDecryptionFailed:
		return "decryption_failed"
	case AlertCodeUnsupportedVersion:
		return "unsupported_version"
	case AlertCodeCloseNotify:
		return "close_notify"
	default:
		return "unknown"
	}
}

// Alert codes.
const (
	// AlertCodeHandshakeFailure indicates the handshake could not complete.
	AlertCodeHandshakeFailure AlertCode = 0x01
	// AlertCodeBadCertificate indicates certificate validation failed.
	AlertCodeBadCertificate AlertCode = 0x02
	// AlertCodeDecryptionFailed indicates record authentication failed.
	AlertCodeDecryptionFailed AlertCode = 0x03
	// AlertCodeUnsupportedVersion indicates no common protocol version.
	AlertCodeUnsupportedVersion AlertCode = 0x04
	// AlertCodeCloseNotify indicates graceful closure.
	AlertCodeCloseNotify AlertCode = 0x05
)

// Alert signals an error condition or closure.
type Alert struct {
	Level       AlertLevel
	Code        AlertCode
	Description string
}

// Validate checks structural validity of a HandshakeInit.
func (m *HandshakeInit) Validate() error {
	if !m.Version.IsCompatible(Current) {
		return qerrors.ErrUnsupportedVersion
	}
	if !m.Mode.IsValid() {
		return qerrors.ErrMalformedMessage
	}
	if len(m.EcdhPublic) != constants.X25519PublicKeySize {
		return qerrors.ErrMalformedMessage
	}
	switch m.Mode {
	case ModeHybrid:
		if len(m.KemPublic) != constants.MLKEMPublicKeySize {
			return qerrors.ErrMalformedMessage
		}
	case ModeECDH:
		if len(m.KemPublic) != 0 {
			return qerrors.ErrMalformedMessage
		}
	}
	if len(m.CipherSuites) == 0 || len(m.CipherSuites) > 16 {
		return qerrors.ErrMalformedMessage
	}
	if len(m.Certificate) > constants.MaxCertificateSize {
		return qerrors.ErrMalformedMessage
	}
	// Certificate and proof-of-possession travel together.
	if (len(m.Certificate) == 0) != (len(m.AuthSignature) == 0) {
		return qerrors.ErrMalformedMessage
	}
	if len(m.AuthSignature) != 0 && len(m.AuthSignature) != constants.Ed25519SignatureSize {
		return qerrors.ErrMalformedMessage
	}
	return nil
}

// Validate checks structural validity of a HandshakeResponse.
// The expected mode is known from the initiator's state.
func (m *HandshakeResponse) Validate(mode Mode) error {
	if !m.Version.IsCompatible(Current) {
		return qerrors.ErrUnsupportedVersion
	}
	if !m.CipherSuite.IsSupported() {
		return qerrors.ErrUnsupportedCipherSuite
	}
	if len(m.EcdhPublic) != constants.X25519PublicKeySize {
		return qerrors.ErrMalformedMessage
	}
	switch mode {
	case ModeHybrid:
		if len(m.KemCiphertext) != constants.MLKEMCiphertextSize {
			return qerrors.ErrMalformedMessage
		}
	case ModeECDH:
		if len(m.KemCiphertext) != 0 {
			return qerrors.ErrMalformedMessage
		}
	default:
		return qerrors.ErrMalformedMessage
	}
	if len(m.Certificate) == 0 || len(m.Certificate) > constants.MaxCertificateSize {
		return qerrors.ErrMalformedMessage
	}
	if len(m.Signature) != constants.Ed25519SignatureSize {
		return qerrors.ErrMalformedMessage
	}
	return nil
}

// Validate checks structural validity of a Record.
func (m *Record) Validate() error {
	if len(m.Payload) < constants.MinRecordSize {
		return qerrors.ErrMalformedMessage
	}
	// The 8-byte counter shares the frame payload budget.
	if len(m.Payload) > constants.MaxMessageSize-8 {
		return qerrors.ErrMessageTooLarge
	}
	return nil
}

// Validate checks structural validity of an Alert.
func (m *Alert) Validate() error {
	if m.Level != AlertLevelWarning && m.Level != AlertLevelFatal {
		return qerrors.ErrMalformedMessage
	}
	if len(m.Description) > 256 {
		return qerrors.ErrMalformedMessage
	}
	return nil
}

// HeaderSize is the size of the message header (type + length).
const HeaderSize = 5 // 1 byte type + 4 bytes big-endian length

// MaxMessageSize is the maximum size of a protocol message payload.
const MaxMessageSize = constants.MaxMessageSize
