package handshake

import (
	"io"
	"time"

	"github.com/asphaleia/asphaleia-go/internal/constants"
	qerrors "github.com/asphaleia/asphaleia-go/internal/errors"
	"github.com/asphaleia/asphaleia-go/pkg/cert"
	"github.com/asphaleia/asphaleia-go/pkg/channel"
	"github.com/asphaleia/asphaleia-go/pkg/identity"
	"github.com/asphaleia/asphaleia-go/pkg/protocol"
)

// Config carries one party's handshake parameters. A single Config may be
// shared across handshakes; it is never mutated after withDefaults.
type Config struct {
	// Mode selects hybrid or classical-only key agreement. Defaults to
	// hybrid.
	Mode protocol.Mode

	// Identity is the long-term signing key. Required for responders and
	// for initiators that present a certificate.
	Identity *identity.KeyPair

	// Certificate binds Identity's public key to a subject name. Required
	// for responders; optional for initiators.
	Certificate *cert.Certificate

	// Intermediates are candidate issuers consulted when the peer's
	// certificate does not chain directly to a root.
	Intermediates []*cert.Certificate

	// Roots anchors peer certificate validation. Required whenever a peer
	// certificate will be verified.
	Roots *cert.TrustStore

	// RequirePeerAuth makes a responder reject initiators that present no
	// certificate. Responders are always authenticated.
	RequirePeerAuth bool

	// Suites lists acceptable cipher suites in preference order. Defaults
	// to the full supported set.
	Suites []constants.CipherSuite

	// Rand is the entropy source for ephemeral keys. Defaults to the
	// process CSPRNG.
	Rand io.Reader

	// Observer receives channel events on the established channel.
	Observer channel.Observer

	// Now overrides the clock used for certificate validation.
	Now func() time.Time
}

// withDefaults validates the config for the given role and returns a
// normalized copy.
func (c *Config) withDefaults(role channel.Role) (*Config, error) {
	if c == nil {
		c = &Config{}
	}
	cfg := *c

	if cfg.Mode == 0 {
		cfg.Mode = protocol.ModeHybrid
	}
	if !cfg.Mode.IsValid() {
		return nil, qerrors.NewProtocolError("config", qerrors.ErrInvalidState)
	}
	if len(cfg.Suites) == 0 {
		cfg.Suites = protocol.SupportedCipherSuites()
	}
	for _, s := range cfg.Suites {
		if !s.IsSupported() {
			return nil, qerrors.ErrUnsupportedCipherSuite
		}
	}

	if role == channel.RoleResponder {
		if cfg.Identity == nil || cfg.Certificate == nil {
			return nil, qerrors.ErrCertificateRequired
		}
	}
	if cfg.Certificate != nil && cfg.Identity == nil {
		return nil, qerrors.NewCertificateError("certificate configured without identity key")
	}
	if role == channel.RoleInitiator && cfg.Roots == nil {
		return nil, qerrors.NewCertificateError("no trust roots configured")
	}
	if role == channel.RoleResponder && cfg.RequirePeerAuth && cfg.Roots == nil {
		return nil, qerrors.NewCertificateError("no trust roots configured")
	}

	return &cfg, nil
}
