package cert

import (
	"sync"

	"github.com/asphaleia/asphaleia-go/internal/constants"
	qerrors "github.com/asphaleia/asphaleia-go/internal/errors"
)

// TrustStore holds the trusted root public keys for validation, keyed by
// authority name. It is read-mostly: many concurrent validations may share
// one store, while Add and Remove take the exclusive path.
type TrustStore struct {
	mu    sync.RWMutex
	roots map[string][]byte
}

// NewTrustStore creates an empty trust store.
func NewTrustStore() *TrustStore {
	return &TrustStore{roots: make(map[string][]byte)}
}

// Add registers an authority's public key as a trusted root.
func (s *TrustStore) Add(name string, publicKey []byte) error {
	if name == "" {
		return qerrors.ErrMalformedMessage
	}
	if len(publicKey) != constants.Ed25519PublicKeySize {
		return qerrors.ErrInvalidPublicKey
	}

	key := make([]byte, len(publicKey))
	copy(key, publicKey)

	s.mu.Lock()
	s.roots[name] = key
	s.mu.Unlock()
	return nil
}

// AddRoot registers a self-signed root certificate. The certificate must be
// well-formed and verify under its own key.
func (s *TrustStore) AddRoot(c *Certificate) error {
	if !c.wellFormed() || !c.IsSelfSigned() {
		return qerrors.NewCertificateError(ResultMalformed.String())
	}
	if !c.verifySignature(c.PublicKey) {
		return qerrors.NewCertificateError(ResultSignatureInvalid.String())
	}
	return s.Add(c.Subject, c.PublicKey)
}

// Remove deletes a trusted root by authority name.
func (s *TrustStore) Remove(name string) {
	s.mu.Lock()
	delete(s.roots, name)
	s.mu.Unlock()
}

// Lookup returns the trusted public key for an authority name.
func (s *TrustStore) Lookup(name string) ([]byte, bool) {
	s.mu.RLock()
	key, ok := s.roots[name]
	s.mu.RUnlock()
	return key, ok
}

// Len returns the number of trusted roots.
func (s *TrustStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.roots)
}
