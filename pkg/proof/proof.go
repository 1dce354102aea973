// Package proof defines the capability boundary for external attestation
// systems. A Provider produces an opaque blob bound to channel context; a
// Verifier checks one. The channel and handshake layers never interpret
// these blobs, they only carry them.
package proof

import qerrors "github.com/asphaleia/asphaleia-go/internal/errors"

// Context is the public material a proof binds to: the channel identifier
// and the peer's certificate as sent on the wire.
type Context struct {
	ChannelID       []byte
	PeerCertificate []byte
}

// Provider produces attestation blobs for a local party.
type Provider interface {
	// Prove returns an opaque proof over statement bound to ctx.
	Prove(ctx Context, statement []byte) ([]byte, error)
}

// Verifier checks attestation blobs produced by a Provider.
type Verifier interface {
	// Verify checks proof against statement under ctx. A nil return means
	// the proof is acceptable.
	Verify(ctx Context, statement, proof []byte) error
}

// NoOp implements both sides with empty proofs. It accepts only the empty
// proof, so a deployment that configures NoOp on one side and a real
// verifier on the other fails closed.
type NoOp struct{}

// Prove returns an empty proof.
func (NoOp) Prove(ctx Context, statement []byte) ([]byte, error) {
	return nil, nil
}

// Verify accepts only the empty proof.
func (NoOp) Verify(ctx Context, statement, proof []byte) error {
	if len(proof) != 0 {
		return qerrors.ErrAuthenticationFailed
	}
	return nil
}
