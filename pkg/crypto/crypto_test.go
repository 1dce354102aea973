package crypto_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/asphaleia/asphaleia-go/internal/constants"
	qerrors "github.com/asphaleia/asphaleia-go/internal/errors"
	"github.com/asphaleia/asphaleia-go/pkg/crypto"
)

// --- Random Tests ---

func TestSecureRandom(t *testing.T) {
	buf := make([]byte, 32)
	if err := crypto.SecureRandom(nil, buf); err != nil {
		t.Fatalf("SecureRandom failed: %v", err)
	}

	allZeros := true
	for _, b := range buf {
		if b != 0 {
			allZeros = false
			break
		}
	}
	if allZeros {
		t.Error("SecureRandom returned all zeros")
	}
}

func TestSecureRandomBytes(t *testing.T) {
	sizes := []int{16, 32, 64, 128}
	for _, size := range sizes {
		buf, err := crypto.SecureRandomBytes(nil, size)
		if err != nil {
			t.Fatalf("SecureRandomBytes(%d) failed: %v", size, err)
		}
		if len(buf) != size {
			t.Errorf("SecureRandomBytes(%d) returned %d bytes", size, len(buf))
		}
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("entropy exhausted")
}

func TestSecureRandomFailure(t *testing.T) {
	buf := make([]byte, 32)
	err := crypto.SecureRandom(failingReader{}, buf)
	if !errors.Is(err, qerrors.ErrRandomnessUnavailable) {
		t.Errorf("expected ErrRandomnessUnavailable, got %v", err)
	}
}

// --- X25519 Tests ---

func TestX25519KeyExchange(t *testing.T) {
	alice, err := crypto.GenerateX25519KeyPair(nil)
	if err != nil {
		t.Fatalf("GenerateX25519KeyPair failed: %v", err)
	}
	bob, err := crypto.GenerateX25519KeyPair(nil)
	if err != nil {
		t.Fatalf("GenerateX25519KeyPair failed: %v", err)
	}

	secretAlice, err := crypto.X25519(alice.PrivateKey, bob.PublicKey)
	if err != nil {
		t.Fatalf("X25519 failed for Alice: %v", err)
	}
	secretBob, err := crypto.X25519(bob.PrivateKey, alice.PublicKey)
	if err != nil {
		t.Fatalf("X25519 failed for Bob: %v", err)
	}

	if !bytes.Equal(secretAlice, secretBob) {
		t.Error("X25519 shared secrets do not match")
	}
	if len(secretAlice) != constants.X25519SharedSecretSize {
		t.Errorf("shared secret size: got %d, want %d", len(secretAlice), constants.X25519SharedSecretSize)
	}
}

func TestParseX25519PublicKey(t *testing.T) {
	kp, err := crypto.GenerateX25519KeyPair(nil)
	if err != nil {
		t.Fatalf("GenerateX25519KeyPair failed: %v", err)
	}

	parsed, err := crypto.ParseX25519PublicKey(kp.PublicKeyBytes())
	if err != nil {
		t.Fatalf("ParseX25519PublicKey failed: %v", err)
	}
	if !bytes.Equal(parsed.Bytes(), kp.PublicKeyBytes()) {
		t.Error("parsed key does not match original")
	}

	if _, err := crypto.ParseX25519PublicKey(make([]byte, 16)); err == nil {
		t.Error("short key should fail to parse")
	}
}

// --- ML-KEM Tests ---

func TestMLKEMRoundTrip(t *testing.T) {
	kp, err := crypto.GenerateMLKEMKeyPair(nil)
	if err != nil {
		t.Fatalf("GenerateMLKEMKeyPair failed: %v", err)
	}

	if len(kp.PublicKeyBytes()) != constants.MLKEMPublicKeySize {
		t.Errorf("public key size: got %d, want %d", len(kp.PublicKeyBytes()), constants.MLKEMPublicKeySize)
	}

	ciphertext, sharedSecret, err := crypto.MLKEMEncapsulate(nil, kp.EncapsulationKey)
	if err != nil {
		t.Fatalf("MLKEMEncapsulate failed: %v", err)
	}
	if len(ciphertext) != constants.MLKEMCiphertextSize {
		t.Errorf("ciphertext size: got %d, want %d", len(ciphertext), constants.MLKEMCiphertextSize)
	}

	recovered, err := crypto.MLKEMDecapsulate(kp.DecapsulationKey, ciphertext)
	if err != nil {
		t.Fatalf("MLKEMDecapsulate failed: %v", err)
	}
	if !bytes.Equal(sharedSecret, recovered) {
		t.Error("decapsulated secret does not match encapsulated secret")
	}
}

func TestMLKEMCorruptedCiphertext(t *testing.T) {
	kp, err := crypto.GenerateMLKEMKeyPair(nil)
	if err != nil {
		t.Fatalf("GenerateMLKEMKeyPair failed: %v", err)
	}

	ciphertext, sharedSecret, err := crypto.MLKEMEncapsulate(nil, kp.EncapsulationKey)
	if err != nil {
		t.Fatalf("MLKEMEncapsulate failed: %v", err)
	}

	// Implicit rejection: a corrupted ciphertext decapsulates to a
	// different secret rather than an error.
	ciphertext[0] ^= 0x01
	recovered, err := crypto.MLKEMDecapsulate(kp.DecapsulationKey, ciphertext)
	if err != nil {
		t.Fatalf("MLKEMDecapsulate failed: %v", err)
	}
	if bytes.Equal(sharedSecret, recovered) {
		t.Error("corrupted ciphertext produced the original secret")
	}
}

func TestParseMLKEMPublicKeyWrongSize(t *testing.T) {
	if _, err := crypto.ParseMLKEMPublicKey(make([]byte, 100)); err == nil {
		t.Error("short key should fail to parse")
	}
}

// --- KDF Tests ---

func TestDeriveKeyDeterministic(t *testing.T) {
	input := []byte("input keying material")

	a, err := crypto.DeriveKey("test-domain", input, 32)
	if err != nil {
		t.Fatalf("DeriveKey failed: %v", err)
	}
	b, err := crypto.DeriveKey("test-domain", input, 32)
	if err != nil {
		t.Fatalf("DeriveKey failed: %v", err)
	}

	if !bytes.Equal(a, b) {
		t.Error("same inputs should derive the same key")
	}
	if len(a) != 32 {
		t.Errorf("output length: got %d, want 32", len(a))
	}
}

func TestDeriveKeyDomainSeparation(t *testing.T) {
	input := []byte("input keying material")

	a, _ := crypto.DeriveKey("domain-a", input, 32)
	b, _ := crypto.DeriveKey("domain-b", input, 32)

	if bytes.Equal(a, b) {
		t.Error("different domains should derive different keys")
	}
}

func TestDeriveKeyMultipleBoundaries(t *testing.T) {
	// Length-prefixed absorption: moving a byte across the boundary must
	// change the output.
	a, _ := crypto.DeriveKeyMultiple("test", [][]byte{{1, 2}, {3}}, 32)
	b, _ := crypto.DeriveKeyMultiple("test", [][]byte{{1}, {2, 3}}, 32)

	if bytes.Equal(a, b) {
		t.Error("input boundaries should affect derived keys")
	}
}

func TestTranscriptHash(t *testing.T) {
	a := crypto.TranscriptHash([]byte("one"), []byte("two"))
	b := crypto.TranscriptHash([]byte("one"), []byte("two"))
	c := crypto.TranscriptHash([]byte("onet"), []byte("wo"))

	if !bytes.Equal(a, b) {
		t.Error("transcript hash should be deterministic")
	}
	if bytes.Equal(a, c) {
		t.Error("component boundaries should affect the transcript hash")
	}
	if len(a) != constants.TranscriptHashSize {
		t.Errorf("hash length: got %d, want %d", len(a), constants.TranscriptHashSize)
	}
}

func TestCombineSharedSecrets(t *testing.T) {
	ecdh := make([]byte, constants.X25519SharedSecretSize)
	kem := make([]byte, constants.MLKEMSharedSecretSize)
	transcript := crypto.TranscriptHash([]byte("transcript"))
	for i := range ecdh {
		ecdh[i] = byte(i)
	}
	for i := range kem {
		kem[i] = byte(i * 3)
	}

	hybrid, err := crypto.CombineSharedSecrets(ecdh, kem, transcript)
	if err != nil {
		t.Fatalf("CombineSharedSecrets failed: %v", err)
	}
	if len(hybrid) != constants.SharedSecretSize {
		t.Errorf("combined secret length: got %d, want %d", len(hybrid), constants.SharedSecretSize)
	}

	classical, err := crypto.CombineSharedSecrets(ecdh, nil, transcript)
	if err != nil {
		t.Fatalf("CombineSharedSecrets (classical) failed: %v", err)
	}
	if bytes.Equal(hybrid, classical) {
		t.Error("hybrid and classical modes must derive different secrets")
	}

	otherTranscript := crypto.TranscriptHash([]byte("other"))
	rebound, err := crypto.CombineSharedSecrets(ecdh, kem, otherTranscript)
	if err != nil {
		t.Fatalf("CombineSharedSecrets failed: %v", err)
	}
	if bytes.Equal(hybrid, rebound) {
		t.Error("transcript must bind the combined secret")
	}
}

// --- AEAD Tests ---

func TestAEADRoundTrip(t *testing.T) {
	suites := []constants.CipherSuite{
		constants.CipherSuiteAES256GCM,
		constants.CipherSuiteChaCha20Poly1305,
	}

	for _, suite := range suites {
		t.Run(suite.String(), func(t *testing.T) {
			key := make([]byte, constants.AEADKeySize)
			if err := crypto.SecureRandom(nil, key); err != nil {
				t.Fatalf("SecureRandom failed: %v", err)
			}

			aead, err := crypto.NewAEAD(suite, key)
			if err != nil {
				t.Fatalf("NewAEAD failed: %v", err)
			}

			nonce := make([]byte, constants.AEADNonceSize)
			plaintext := []byte("attack at dawn")
			aad := []byte("header")

			ciphertext, err := aead.Seal(nonce, plaintext, aad)
			if err != nil {
				t.Fatalf("Seal failed: %v", err)
			}
			if len(ciphertext) != len(plaintext)+constants.AEADTagSize {
				t.Errorf("ciphertext length: got %d, want %d", len(ciphertext), len(plaintext)+constants.AEADTagSize)
			}

			recovered, err := aead.Open(nonce, ciphertext, aad)
			if err != nil {
				t.Fatalf("Open failed: %v", err)
			}
			if !bytes.Equal(recovered, plaintext) {
				t.Error("round trip mismatch")
			}
		})
	}
}

func TestAEADTamperDetection(t *testing.T) {
	key := make([]byte, constants.AEADKeySize)
	aead, err := crypto.NewAEAD(constants.CipherSuiteChaCha20Poly1305, key)
	if err != nil {
		t.Fatalf("NewAEAD failed: %v", err)
	}

	nonce := make([]byte, constants.AEADNonceSize)
	ciphertext, err := aead.Seal(nonce, []byte("payload"), []byte("aad"))
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}

	tampered := append([]byte(nil), ciphertext...)
	tampered[0] ^= 0x01
	if _, err := aead.Open(nonce, tampered, []byte("aad")); !errors.Is(err, qerrors.ErrAuthenticationFailed) {
		t.Errorf("tampered ciphertext: expected ErrAuthenticationFailed, got %v", err)
	}

	if _, err := aead.Open(nonce, ciphertext, []byte("wrong aad")); !errors.Is(err, qerrors.ErrAuthenticationFailed) {
		t.Errorf("wrong AAD: expected ErrAuthenticationFailed, got %v", err)
	}

	wrongNonce := make([]byte, constants.AEADNonceSize)
	wrongNonce[0] = 1
	if _, err := aead.Open(wrongNonce, ciphertext, []byte("aad")); !errors.Is(err, qerrors.ErrAuthenticationFailed) {
		t.Errorf("wrong nonce: expected ErrAuthenticationFailed, got %v", err)
	}
}

func TestNewAEADRejectsBadInputs(t *testing.T) {
	if _, err := crypto.NewAEAD(constants.CipherSuiteAES256GCM, make([]byte, 16)); !errors.Is(err, qerrors.ErrInvalidKeySize) {
		t.Errorf("short key: expected ErrInvalidKeySize, got %v", err)
	}
	if _, err := crypto.NewAEAD(constants.CipherSuite(0x9999), make([]byte, 32)); !errors.Is(err, qerrors.ErrUnsupportedCipherSuite) {
		t.Errorf("unknown suite: expected ErrUnsupportedCipherSuite, got %v", err)
	}
}
