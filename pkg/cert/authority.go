package cert

import (
	"sync/atomic"
	"time"

	"github.com/asphaleia/asphaleia-go/internal/constants"
	qerrors "github.com/asphaleia/asphaleia-go/internal/errors"
	"github.com/asphaleia/asphaleia-go/pkg/identity"
)

// Authority issues certificates under a long-term signing key.
// Serial numbers are unique per authority and strictly increasing.
type Authority struct {
	name    string
	keyPair *identity.KeyPair
	serial  atomic.Uint64
}

// NewAuthority creates an issuing authority with the given name and key pair.
// The authority takes a reference to the key pair; the caller must not
// destroy it while the authority is in use.
func NewAuthority(name string, keyPair *identity.KeyPair) (*Authority, error) {
	if name == "" {
		return nil, qerrors.ErrMalformedMessage
	}
	if keyPair == nil {
		return nil, qerrors.ErrInvalidPrivateKey
	}
	return &Authority{name: name, keyPair: keyPair}, nil
}

// Name returns the authority's subject name.
func (a *Authority) Name() string {
	return a.name
}

// PublicKey returns the authority's public signing key.
func (a *Authority) PublicKey() []byte {
	return a.keyPair.Public()
}

// Issue builds and signs a certificate binding subjectPublicKey to subject,
// valid for the given window, with a fresh serial.
func (a *Authority) Issue(subject string, subjectPublicKey []byte, validity Validity) (*Certificate, error) {
	if subject == "" {
		return nil, qerrors.NewCertificateError(ResultMalformed.String())
	}
	if len(subjectPublicKey) != constants.Ed25519PublicKeySize {
		return nil, qerrors.ErrInvalidPublicKey
	}
	if !validity.NotAfter.After(validity.NotBefore) {
		return nil, qerrors.NewCertificateError(ResultMalformed.String())
	}

	publicKey := make([]byte, len(subjectPublicKey))
	copy(publicKey, subjectPublicKey)

	c := &Certificate{
		Subject:   subject,
		PublicKey: publicKey,
		Issuer:    a.name,
		Serial:    a.serial.Add(1),
		NotBefore: validity.NotBefore.Truncate(time.Second).UTC(),
		NotAfter:  validity.NotAfter.Truncate(time.Second).UTC(),
	}
	c.Signature = a.keyPair.Sign(c.tbsEncoding())

	return c, nil
}

// SelfSigned issues the authority's own root certificate.
func (a *Authority) SelfSigned(validity Validity) (*Certificate, error) {
	return a.Issue(a.name, a.keyPair.Public(), validity)
}
