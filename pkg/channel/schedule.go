// schedule.go derives directional traffic keys and the channel identifier
// from the combined handshake secret.
package channel

import (
	"github.com/asphaleia/asphaleia-go/internal/constants"
	qerrors "github.com/asphaleia/asphaleia-go/internal/errors"
	"github.com/asphaleia/asphaleia-go/pkg/crypto"
	"github.com/asphaleia/asphaleia-go/pkg/secret"
)

// Role identifies which side of the handshake a party played. The key
// schedule binds each traffic key to a direction, so both sides derive the
// same pair of keys but assign them to send and receive mirror-wise.
type Role uint8

const (
	// RoleInitiator is the party that sent the first handshake message.
	RoleInitiator Role = 1
	// RoleResponder is the party that answered it.
	RoleResponder Role = 2
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleInitiator:
		return "initiator"
	case RoleResponder:
		return "responder"
	default:
		return "unknown"
	}
}

// SessionKeys holds the directional traffic keys and channel identifier
// produced by the key schedule. SendKey and RecvKey are owned by the
// struct and must be destroyed via Destroy when the channel closes.
type SessionKeys struct {
	SendKey   *secret.Buffer
	RecvKey   *secret.Buffer
	ChannelID []byte
}

// DeriveSessionKeys expands the combined handshake secret into two
// independent traffic keys and a public channel identifier. The initiator
// sends on the initiator-to-responder key; the responder sends on the
// responder-to-initiator key. The channel identifier depends only on the
// transcript, never on secret material.
func DeriveSessionKeys(shared *secret.Buffer, transcriptHash []byte, role Role) (*SessionKeys, error) {
	if shared == nil || shared.Destroyed() {
		return nil, qerrors.ErrSecretDestroyed
	}
	if len(transcriptHash) != constants.TranscriptHashSize {
		return nil, qerrors.NewCryptoError("derive_session_keys", qerrors.ErrInvalidKeySize)
	}
	if role != RoleInitiator && role != RoleResponder {
		return nil, qerrors.NewCryptoError("derive_session_keys", qerrors.ErrInvalidState)
	}

	ss := shared.Expose()

	i2r, err := crypto.DeriveKeyMultiple(
		constants.DomainSeparatorInitiatorTraffic,
		[][]byte{ss, transcriptHash},
		constants.AEADKeySize,
	)
	if err != nil {
		return nil, err
	}
	r2i, err := crypto.DeriveKeyMultiple(
		constants.DomainSeparatorResponderTraffic,
		[][]byte{ss, transcriptHash},
		constants.AEADKeySize,
	)
	if err != nil {
		crypto.Zeroize(i2r)
		return nil, err
	}
	channelID, err := crypto.DeriveKeyMultiple(
		constants.DomainSeparatorChannelID,
		[][]byte{transcriptHash},
		constants.ChannelIDSize,
	)
	if err != nil {
		crypto.Zeroize(i2r)
		crypto.Zeroize(r2i)
		return nil, err
	}

	keys := &SessionKeys{ChannelID: channelID}
	if role == RoleInitiator {
		keys.SendKey = secret.New(i2r)
		keys.RecvKey = secret.New(r2i)
	} else {
		keys.SendKey = secret.New(r2i)
		keys.RecvKey = secret.New(i2r)
	}
	return keys, nil
}

// Destroy zeroizes both traffic keys. Safe to call more than once.
func (k *SessionKeys) Destroy() {
	if k == nil {
		return
	}
	k.SendKey.Destroy()
	k.RecvKey.Destroy()
}
