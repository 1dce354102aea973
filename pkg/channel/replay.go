package channel

import (
	"sync"

	"github.com/asphaleia/asphaleia-go/internal/constants"
	qerrors "github.com/asphaleia/asphaleia-go/internal/errors"
)

// ReplayWindow tracks received record counters with a sliding bitmap.
// It accepts counters up to ReplayWindowSize behind the highest seen,
// rejecting duplicates and anything older.
//
// Check and Commit are split so that a forged record can never advance
// the window: callers Check before authenticating and Commit only after
// the AEAD tag verifies.
type ReplayWindow struct {
	mu      sync.Mutex
	highSeq uint64
	bitmap  uint64
	primed  bool
}

// NewReplayWindow creates an empty replay window.
func NewReplayWindow() *ReplayWindow {
	return &ReplayWindow{}
}

// Check reports whether seq would be accepted. It never mutates state.
func (w *ReplayWindow) Check(seq uint64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.check(seq)
}

// Commit records seq as received. The caller must have authenticated the
// record carrying seq first.
func (w *ReplayWindow) Commit(seq uint64) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.check(seq); err != nil {
		return err
	}

	if !w.primed || seq > w.highSeq {
		shift := uint64(constants.ReplayWindowSize)
		if w.primed {
			shift = seq - w.highSeq
		}
		if shift >= constants.ReplayWindowSize {
			w.bitmap = 0
		} else {
			w.bitmap <<= shift
		}
		w.bitmap |= 1
		w.highSeq = seq
		w.primed = true
		return nil
	}

	w.bitmap |= 1 << (w.highSeq - seq)
	return nil
}

func (w *ReplayWindow) check(seq uint64) error {
	if !w.primed {
		return nil
	}
	if seq > w.highSeq {
		return nil
	}
	offset := w.highSeq - seq
	if offset >= constants.ReplayWindowSize {
		return qerrors.ErrReplayDetected
	}
	if w.bitmap&(1<<offset) != 0 {
		return qerrors.ErrReplayDetected
	}
	return nil
}

// Highest returns the highest committed counter, and whether any record
// has been committed at all.
func (w *ReplayWindow) Highest() (uint64, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.highSeq, w.primed
}
