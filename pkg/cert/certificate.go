// Package cert binds public signing keys to subject identities.
//
// Certificates use a fixed binary encoding (big-endian, length-prefixed
// fields) rather than X.509; PEM or other text encodings are the concern of
// an external collaborator. A certificate is immutable once issued and
// expires by its validity window, never by deletion.
package cert

import (
	"encoding/binary"
	"time"

	"github.com/asphaleia/asphaleia-go/internal/constants"
	qerrors "github.com/asphaleia/asphaleia-go/internal/errors"
	"github.com/asphaleia/asphaleia-go/pkg/identity"
)

// Certificate binds an Ed25519 public key to a subject identity.
type Certificate struct {
	// Subject identifies the key holder.
	Subject string

	// PublicKey is the subject's Ed25519 public key.
	PublicKey []byte

	// Issuer is the subject name of the issuing authority.
	Issuer string

	// Serial is unique per issuing authority.
	Serial uint64

	// NotBefore and NotAfter bound the validity window, inclusive.
	NotBefore time.Time
	NotAfter  time.Time

	// Signature is the issuer's Ed25519 signature over the canonical
	// encoding of all other fields.
	Signature []byte
}

// Validity is a certificate validity window.
type Validity struct {
	NotBefore time.Time
	NotAfter  time.Time
}

// tbsEncoding returns the canonical to-be-signed encoding:
//
//	len(subject) || subject ||
//	len(publicKey) || publicKey ||
//	len(issuer) || issuer ||
//	serial (8B BE) || notBefore (8B BE unix) || notAfter (8B BE unix)
//
// All length prefixes are 2-byte big-endian.
func (c *Certificate) tbsEncoding() []byte {
	subject := []byte(c.Subject)
	issuer := []byte(c.Issuer)

	buf := make([]byte, 0, 2+len(subject)+2+len(c.PublicKey)+2+len(issuer)+24)
	buf = appendPrefixed(buf, subject)
	buf = appendPrefixed(buf, c.PublicKey)
	buf = appendPrefixed(buf, issuer)
	buf = binary.BigEndian.AppendUint64(buf, c.Serial)
	buf = binary.BigEndian.AppendUint64(buf, uint64(c.NotBefore.Unix()))
	buf = binary.BigEndian.AppendUint64(buf, uint64(c.NotAfter.Unix()))
	return buf
}

// Encode serializes the certificate: canonical body followed by the
// length-prefixed issuer signature.
func (c *Certificate) Encode() []byte {
	body := c.tbsEncoding()
	return appendPrefixed(body, c.Signature)
}

// Decode parses a certificate from its binary encoding.
func Decode(data []byte) (*Certificate, error) {
	if len(data) > constants.MaxCertificateSize {
		return nil, qerrors.ErrMalformedMessage
	}

	c := &Certificate{}
	offset := 0

	subject, offset, ok := readPrefixed(data, offset)
	if !ok {
		return nil, qerrors.ErrMalformedMessage
	}
	c.Subject = string(subject)

	publicKey, offset, ok := readPrefixed(data, offset)
	if !ok {
		return nil, qerrors.ErrMalformedMessage
	}
	c.PublicKey = publicKey

	issuer, offset, ok := readPrefixed(data, offset)
	if !ok {
		return nil, qerrors.ErrMalformedMessage
	}
	c.Issuer = string(issuer)

	if len(data)-offset < 24 {
		return nil, qerrors.ErrMalformedMessage
	}
	c.Serial = binary.BigEndian.Uint64(data[offset:])
	c.NotBefore = time.Unix(int64(binary.BigEndian.Uint64(data[offset+8:])), 0).UTC()
	c.NotAfter = time.Unix(int64(binary.BigEndian.Uint64(data[offset+16:])), 0).UTC()
	offset += 24

	signature, offset, ok := readPrefixed(data, offset)
	if !ok || offset != len(data) {
		return nil, qerrors.ErrMalformedMessage
	}
	c.Signature = signature

	return c, nil
}

// wellFormed reports whether the certificate's fields are structurally valid.
func (c *Certificate) wellFormed() bool {
	if c == nil || c.Subject == "" || c.Issuer == "" {
		return false
	}
	if len(c.PublicKey) != constants.Ed25519PublicKeySize {
		return false
	}
	if len(c.Signature) != constants.Ed25519SignatureSize {
		return false
	}
	if !c.NotAfter.After(c.NotBefore) {
		return false
	}
	return true
}

// verifySignature reports whether the certificate body verifies under
// issuerKey.
func (c *Certificate) verifySignature(issuerKey []byte) bool {
	return identity.Verify(issuerKey, c.tbsEncoding(), c.Signature)
}

// IsSelfSigned reports whether the certificate names itself as issuer.
func (c *Certificate) IsSelfSigned() bool {
	return c.Subject == c.Issuer
}

func appendPrefixed(buf, field []byte) []byte {
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(field)))
	return append(buf, field...)
}

func readPrefixed(data []byte, offset int) ([]byte, int, bool) {
	if len(data)-offset < 2 {
		return nil, offset, false
	}
	n := int(binary.BigEndian.Uint16(data[offset:]))
	offset += 2
	if len(data)-offset < n {
		return nil, offset, false
	}
	field := make([]byte, n)
	copy(field, data[offset:offset+n])
	return field, offset + n, true
}
