// Package secret provides zeroizing containers for raw key material.
//
// A Buffer owns its bytes: callers hand ownership over at construction and
// read through a borrowed view. Contents are overwritten with zeros on
// Destroy, which every owner must call on all exit paths including errors.
// The only equality operation is constant-time; ordinary comparison of
// secrets invites timing-based recovery.
//
// Note: the Go runtime may copy or move memory and the compiler may reorder
// stores. Zeroization here is best-effort defense against later heap reads,
// not an OS-level memory protection.
package secret

import (
	"crypto/rand"
	"crypto/subtle"
	"io"

	qerrors "github.com/asphaleia/asphaleia-go/internal/errors"
)

// Buffer is a zeroizing container for a fixed-length byte secret.
// The zero value is a destroyed buffer.
type Buffer struct {
	data      []byte
	destroyed bool
}

// New creates a Buffer that takes ownership of b. The caller must not read
// or write b afterwards.
func New(b []byte) *Buffer {
	return &Buffer{data: b}
}

// Copy creates a Buffer holding a copy of b. The caller keeps ownership of b
// and remains responsible for zeroizing it.
func Copy(b []byte) *Buffer {
	dup := make([]byte, len(b))
	copy(dup, b)
	return &Buffer{data: dup}
}

// Random creates a Buffer of n bytes read from rng. A nil rng falls back to
// the OS CSPRNG.
func Random(rng io.Reader, n int) (*Buffer, error) {
	if rng == nil {
		rng = rand.Reader
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(rng, b); err != nil {
		return nil, qerrors.NewCryptoError("secret.Random", qerrors.ErrRandomnessUnavailable)
	}
	return &Buffer{data: b}, nil
}

// Expose returns a borrowed read view of the secret bytes. The view is valid
// only until Destroy; callers must not retain or mutate it.
func (b *Buffer) Expose() []byte {
	if b == nil || b.destroyed {
		return nil
	}
	return b.data
}

// Len returns the length of the secret, or 0 once destroyed.
func (b *Buffer) Len() int {
	if b == nil || b.destroyed {
		return 0
	}
	return len(b.data)
}

// Equal compares two buffers in constant time. Destroyed buffers compare
// unequal to everything, including each other.
func (b *Buffer) Equal(other *Buffer) bool {
	if b == nil || other == nil || b.destroyed || other.destroyed {
		return false
	}
	return subtle.ConstantTimeCompare(b.data, other.data) == 1
}

// EqualBytes compares the secret to v in constant time.
func (b *Buffer) EqualBytes(v []byte) bool {
	if b == nil || b.destroyed {
		return false
	}
	return subtle.ConstantTimeCompare(b.data, v) == 1
}

// Destroy overwrites the secret with zeros and marks the buffer unusable.
// Safe to call multiple times and on nil.
func (b *Buffer) Destroy() {
	if b == nil || b.destroyed {
		return
	}
	Zeroize(b.data)
	b.data = nil
	b.destroyed = true
}

// Destroyed reports whether the buffer has been zeroized.
func (b *Buffer) Destroyed() bool {
	return b == nil || b.destroyed
}

// Zeroize overwrites b with zeros.
func Zeroize(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// ZeroizeAll overwrites every slice with zeros.
func ZeroizeAll(slices ...[]byte) {
	for _, s := range slices {
		Zeroize(s)
	}
}

// ConstantTimeCompare compares two byte slices in constant time.
// Returns true if the slices are equal, false otherwise.
func ConstantTimeCompare(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}
