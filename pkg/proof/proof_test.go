package proof_test

import (
	"errors"
	"testing"

	qerrors "github.com/asphaleia/asphaleia-go/internal/errors"
	"github.com/asphaleia/asphaleia-go/pkg/proof"
)

func TestNoOpRoundTrip(t *testing.T) {
	var p proof.NoOp
	ctx := proof.Context{ChannelID: []byte{1, 2, 3, 4}}

	blob, err := p.Prove(ctx, []byte("statement"))
	if err != nil {
		t.Fatalf("Prove failed: %v", err)
	}
	if err := p.Verify(ctx, []byte("statement"), blob); err != nil {
		t.Errorf("Verify of own proof failed: %v", err)
	}
}

func TestNoOpRejectsNonEmptyProof(t *testing.T) {
	var p proof.NoOp

	err := p.Verify(proof.Context{}, []byte("statement"), []byte{0x01})
	if !errors.Is(err, qerrors.ErrAuthenticationFailed) {
		t.Errorf("non-empty proof: got %v", err)
	}
}
