// Package channel implements the authenticated record layer that runs over
// an established handshake: directional AEAD protection, monotonic send
// counters, replay rejection, and zeroizing teardown.
package channel

import (
	"encoding/binary"
	"sync"
	"sync/atomic"

	"github.com/asphaleia/asphaleia-go/internal/constants"
	qerrors "github.com/asphaleia/asphaleia-go/internal/errors"
	"github.com/asphaleia/asphaleia-go/pkg/crypto"
	"github.com/asphaleia/asphaleia-go/pkg/protocol"
)

// Channel states.
const (
	stateEstablished uint32 = iota
	stateClosed
)

// MaxPlaintextSize is the largest plaintext a single record can carry: the
// frame payload budget minus the record counter and authentication tag.
const MaxPlaintextSize = constants.MaxMessageSize - 8 - constants.AEADTagSize

// Directions, bound into the AAD so a reflected record never authenticates.
const (
	directionInitiatorToResponder byte = 0x01
	directionResponderToInitiator byte = 0x02
)

// Stats is a point-in-time snapshot of channel activity.
type Stats struct {
	RecordsSent     uint64
	RecordsReceived uint64
	BytesSent       uint64
	BytesReceived   uint64
	ReplaysRejected uint64
	AuthFailures    uint64
}

// SecureChannel is an established bidirectional channel. Encrypt and
// Decrypt are each serialized internally; the two directions never block
// each other.
type SecureChannel struct {
	channelID []byte
	role      Role
	suite     constants.CipherSuite

	sendMu      sync.Mutex
	sendAEAD    *crypto.AEAD
	sendCounter uint64

	recvMu   sync.Mutex
	recvAEAD *crypto.AEAD
	replay   *ReplayWindow

	keys  *SessionKeys
	codec *protocol.Codec
	state atomic.Uint32

	recordsSent     atomic.Uint64
	recordsReceived atomic.Uint64
	bytesSent       atomic.Uint64
	bytesReceived   atomic.Uint64
	replaysRejected atomic.Uint64
	authFailures    atomic.Uint64

	observer Observer
}

// New builds a channel from derived session keys. The channel takes
// ownership of keys and destroys them on Close.
func New(keys *SessionKeys, role Role, suite constants.CipherSuite, observer Observer) (*SecureChannel, error) {
	if keys == nil || keys.SendKey == nil || keys.RecvKey == nil {
		return nil, qerrors.ErrInvalidState
	}
	if len(keys.ChannelID) != constants.ChannelIDSize {
		return nil, qerrors.ErrInvalidState
	}

	sendAEAD, err := crypto.NewAEAD(suite, keys.SendKey.Expose())
	if err != nil {
		keys.Destroy()
		return nil, err
	}
	recvAEAD, err := crypto.NewAEAD(suite, keys.RecvKey.Expose())
	if err != nil {
		keys.Destroy()
		return nil, err
	}

	ch := &SecureChannel{
		channelID: append([]byte(nil), keys.ChannelID...),
		role:      role,
		suite:     suite,
		sendAEAD:  sendAEAD,
		recvAEAD:  recvAEAD,
		replay:    NewReplayWindow(),
		keys:      keys,
		codec:     protocol.NewCodec(),
		observer:  observer,
	}
	return ch, nil
}

// ChannelID returns the public channel identifier.
func (c *SecureChannel) ChannelID() []byte {
	return append([]byte(nil), c.channelID...)
}

// Role returns which side of the handshake this channel belongs to.
func (c *SecureChannel) Role() Role {
	return c.role
}

// Suite returns the negotiated cipher suite.
func (c *SecureChannel) Suite() constants.CipherSuite {
	return c.suite
}

// Encrypt protects plaintext and returns a complete wire frame. Each call
// consumes one counter value; when the counter space is exhausted the
// channel closes itself and every further call fails.
func (c *SecureChannel) Encrypt(plaintext []byte) ([]byte, error) {
	if len(plaintext) > MaxPlaintextSize {
		return nil, qerrors.ErrMessageTooLarge
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.state.Load() != stateEstablished {
		return nil, qerrors.ErrChannelClosed
	}
	if c.sendCounter >= constants.MaxRecordsPerChannel {
		c.closeLocked()
		return nil, qerrors.ErrCounterExhausted
	}

	counter := c.sendCounter
	nonce := c.nonce(counter)
	aad := c.aad(c.sendDirection(), counter)

	ciphertext, err := c.sendAEAD.Seal(nonce, plaintext, aad)
	if err != nil {
		return nil, err
	}
	c.sendCounter++

	frame, err := c.codec.EncodeRecord(&protocol.Record{Counter: counter, Payload: ciphertext})
	if err != nil {
		return nil, err
	}

	c.recordsSent.Add(1)
	c.bytesSent.Add(uint64(len(frame)))
	if c.observer != nil {
		c.observer.RecordSealed(c.channelID, len(frame))
	}
	return frame, nil
}

// Decrypt authenticates and decrypts one wire frame. The replay window
// advances only after the record authenticates, so malformed or forged
// frames leave no trace in channel state.
func (c *SecureChannel) Decrypt(frame []byte) ([]byte, error) {
	if c.state.Load() != stateEstablished {
		return nil, qerrors.ErrChannelClosed
	}

	record, err := c.codec.DecodeRecord(frame)
	if err != nil {
		return nil, err
	}

	c.recvMu.Lock()
	defer c.recvMu.Unlock()

	if c.state.Load() != stateEstablished {
		return nil, qerrors.ErrChannelClosed
	}

	if err := c.replay.Check(record.Counter); err != nil {
		c.replaysRejected.Add(1)
		if c.observer != nil {
			c.observer.ReplayRejected(c.channelID, record.Counter)
		}
		return nil, err
	}

	nonce := c.nonce(record.Counter)
	aad := c.aad(c.recvDirection(), record.Counter)

	plaintext, err := c.recvAEAD.Open(nonce, record.Payload, aad)
	if err != nil {
		c.authFailures.Add(1)
		if c.observer != nil {
			c.observer.AuthFailed(c.channelID)
		}
		return nil, err
	}

	if err := c.replay.Commit(record.Counter); err != nil {
		crypto.Zeroize(plaintext)
		return nil, err
	}

	c.recordsReceived.Add(1)
	c.bytesReceived.Add(uint64(len(frame)))
	if c.observer != nil {
		c.observer.RecordOpened(c.channelID, len(plaintext))
	}
	return plaintext, nil
}

// Close destroys the traffic keys and marks the channel unusable.
// Idempotent.
func (c *SecureChannel) Close() error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	c.recvMu.Lock()
	defer c.recvMu.Unlock()
	c.closeLocked()
	return nil
}

func (c *SecureChannel) closeLocked() {
	if !c.state.CompareAndSwap(stateEstablished, stateClosed) {
		return
	}
	c.keys.Destroy()
	if c.observer != nil {
		c.observer.Closed(c.channelID, c.recordsSent.Load(), c.recordsReceived.Load())
	}
}

// Closed reports whether the channel has been closed.
func (c *SecureChannel) Closed() bool {
	return c.state.Load() == stateClosed
}

// Stats returns a snapshot of channel counters.
func (c *SecureChannel) Stats() Stats {
	return Stats{
		RecordsSent:     c.recordsSent.Load(),
		RecordsReceived: c.recordsReceived.Load(),
		BytesSent:       c.bytesSent.Load(),
		BytesReceived:   c.bytesReceived.Load(),
		ReplaysRejected: c.replaysRejected.Load(),
		AuthFailures:    c.authFailures.Load(),
	}
}

func (c *SecureChannel) sendDirection() byte {
	if c.role == RoleInitiator {
		return directionInitiatorToResponder
	}
	return directionResponderToInitiator
}

func (c *SecureChannel) recvDirection() byte {
	if c.role == RoleInitiator {
		return directionResponderToInitiator
	}
	return directionInitiatorToResponder
}

// nonce builds the 96-bit record nonce: the first four bytes of the channel
// identifier followed by the 64-bit counter.
func (c *SecureChannel) nonce(counter uint64) []byte {
	nonce := make([]byte, constants.AEADNonceSize)
	copy(nonce[:4], c.channelID[:4])
	binary.BigEndian.PutUint64(nonce[4:], counter)
	return nonce
}

// aad binds each record to the channel, direction, and counter.
func (c *SecureChannel) aad(direction byte, counter uint64) []byte {
	aad := make([]byte, 0, constants.ChannelIDSize+1+8)
	aad = append(aad, c.channelID...)
	aad = append(aad, direction)
	return binary.BigEndian.AppendUint64(aad, counter)
}
