package channel

// Observer receives per-channel events. Implementations must be safe for
// concurrent use; a nil Observer on a channel disables all callbacks.
type Observer interface {
	// RecordSealed fires after a plaintext is encrypted, with the size of
	// the resulting wire frame.
	RecordSealed(channelID []byte, wireBytes int)

	// RecordOpened fires after a record authenticates and decrypts.
	RecordOpened(channelID []byte, plaintextBytes int)

	// ReplayRejected fires when a record counter fails the replay check.
	ReplayRejected(channelID []byte, counter uint64)

	// AuthFailed fires when a record fails AEAD authentication.
	AuthFailed(channelID []byte)

	// Closed fires exactly once when the channel closes.
	Closed(channelID []byte, sent, received uint64)
}

// NopObserver ignores all events.
type NopObserver struct{}

func (NopObserver) RecordSealed(channelID []byte, wireBytes int)      {}
func (NopObserver) RecordOpened(channelID []byte, plaintextBytes int) {}
func (NopObserver) ReplayRejected(channelID []byte, counter uint64)   {}
func (NopObserver) AuthFailed(channelID []byte)                       {}
func (NopObserver) Closed(channelID []byte, sent, received uint64)    {}
