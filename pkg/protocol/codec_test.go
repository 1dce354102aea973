package protocol_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/asphaleia/asphaleia-go/internal/constants"
	qerrors "github.com/asphaleia/asphaleia-go/internal/errors"
	"github.com/asphaleia/asphaleia-go/pkg/protocol"
)

func filled(n int, b byte) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}

func validInit(mode protocol.Mode) *protocol.HandshakeInit {
	m := &protocol.HandshakeInit{
		Version:      protocol.Current,
		Mode:         mode,
		CipherSuites: protocol.SupportedCipherSuites(),
		EcdhPublic:   filled(constants.X25519PublicKeySize, 0xA1),
	}
	if mode == protocol.ModeHybrid {
		m.KemPublic = filled(constants.MLKEMPublicKeySize, 0xB2)
	}
	return m
}

func validResponse(mode protocol.Mode) *protocol.HandshakeResponse {
	m := &protocol.HandshakeResponse{
		Version:     protocol.Current,
		CipherSuite: constants.CipherSuiteAES256GCM,
		EcdhPublic:  filled(constants.X25519PublicKeySize, 0xC3),
		Certificate: filled(200, 0xD4),
		Signature:   filled(constants.Ed25519SignatureSize, 0xE5),
	}
	if mode == protocol.ModeHybrid {
		m.KemCiphertext = filled(constants.MLKEMCiphertextSize, 0xF6)
	}
	return m
}

func TestHandshakeInitRoundTrip(t *testing.T) {
	codec := protocol.NewCodec()

	cases := []struct {
		name string
		msg  *protocol.HandshakeInit
	}{
		{"hybrid", validInit(protocol.ModeHybrid)},
		{"ecdh only", validInit(protocol.ModeECDH)},
	}
	mutual := validInit(protocol.ModeHybrid)
	mutual.Certificate = filled(180, 0x33)
	mutual.AuthSignature = filled(constants.Ed25519SignatureSize, 0x44)
	cases = append(cases, struct {
		name string
		msg  *protocol.HandshakeInit
	}{"hybrid with certificate", mutual})

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			encoded, err := codec.EncodeHandshakeInit(tc.msg)
			if err != nil {
				t.Fatalf("encode failed: %v", err)
			}
			decoded, err := codec.DecodeHandshakeInit(encoded)
			if err != nil {
				t.Fatalf("decode failed: %v", err)
			}

			if decoded.Version != tc.msg.Version || decoded.Mode != tc.msg.Mode {
				t.Error("version or mode mismatch")
			}
			if len(decoded.CipherSuites) != len(tc.msg.CipherSuites) {
				t.Fatal("suite count mismatch")
			}
			for i, cs := range tc.msg.CipherSuites {
				if decoded.CipherSuites[i] != cs {
					t.Errorf("suite %d mismatch", i)
				}
			}
			if !bytes.Equal(decoded.EcdhPublic, tc.msg.EcdhPublic) ||
				!bytes.Equal(decoded.KemPublic, tc.msg.KemPublic) ||
				!bytes.Equal(decoded.Certificate, tc.msg.Certificate) ||
				!bytes.Equal(decoded.AuthSignature, tc.msg.AuthSignature) {
				t.Error("field mismatch after roundtrip")
			}
		})
	}
}

func TestHandshakeInitRejectsInvalid(t *testing.T) {
	codec := protocol.NewCodec()

	badEcdh := validInit(protocol.ModeHybrid)
	badEcdh.EcdhPublic = badEcdh.EcdhPublic[:16]
	if _, err := codec.EncodeHandshakeInit(badEcdh); err == nil {
		t.Error("short ECDH share should fail")
	}

	missingKem := validInit(protocol.ModeHybrid)
	missingKem.KemPublic = nil
	if _, err := codec.EncodeHandshakeInit(missingKem); err == nil {
		t.Error("hybrid without KEM key should fail")
	}

	certNoSig := validInit(protocol.ModeECDH)
	certNoSig.Certificate = filled(100, 0x01)
	if _, err := codec.EncodeHandshakeInit(certNoSig); err == nil {
		t.Error("certificate without proof signature should fail")
	}

	noSuites := validInit(protocol.ModeECDH)
	noSuites.CipherSuites = nil
	if _, err := codec.EncodeHandshakeInit(noSuites); err == nil {
		t.Error("empty suite list should fail")
	}
}

func TestHandshakeResponseRoundTrip(t *testing.T) {
	codec := protocol.NewCodec()

	for _, mode := range []protocol.Mode{protocol.ModeHybrid, protocol.ModeECDH} {
		t.Run(mode.String(), func(t *testing.T) {
			msg := validResponse(mode)
			encoded, err := codec.EncodeHandshakeResponse(msg)
			if err != nil {
				t.Fatalf("encode failed: %v", err)
			}
			decoded, err := codec.DecodeHandshakeResponse(encoded)
			if err != nil {
				t.Fatalf("decode failed: %v", err)
			}
			if err := decoded.Validate(mode); err != nil {
				t.Fatalf("decoded message invalid: %v", err)
			}

			if decoded.Version != msg.Version || decoded.CipherSuite != msg.CipherSuite {
				t.Error("version or suite mismatch")
			}
			if !bytes.Equal(decoded.EcdhPublic, msg.EcdhPublic) ||
				!bytes.Equal(decoded.KemCiphertext, msg.KemCiphertext) ||
				!bytes.Equal(decoded.Certificate, msg.Certificate) ||
				!bytes.Equal(decoded.Signature, msg.Signature) {
				t.Error("field mismatch after roundtrip")
			}
		})
	}
}

func TestResponseModeMismatch(t *testing.T) {
	msg := validResponse(protocol.ModeECDH)
	if err := msg.Validate(protocol.ModeHybrid); !errors.Is(err, qerrors.ErrMalformedMessage) {
		t.Errorf("missing KEM ciphertext in hybrid mode: got %v", err)
	}

	msg = validResponse(protocol.ModeHybrid)
	if err := msg.Validate(protocol.ModeECDH); !errors.Is(err, qerrors.ErrMalformedMessage) {
		t.Errorf("unexpected KEM ciphertext in ecdh mode: got %v", err)
	}
}

func TestRecordRoundTrip(t *testing.T) {
	codec := protocol.NewCodec()

	msg := &protocol.Record{Counter: 0xDEADBEEF01, Payload: filled(64, 0x7E)}
	encoded, err := codec.EncodeRecord(msg)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	decoded, err := codec.DecodeRecord(encoded)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded.Counter != msg.Counter || !bytes.Equal(decoded.Payload, msg.Payload) {
		t.Error("record mismatch after roundtrip")
	}

	// The decoded payload must not alias the wire buffer.
	encoded[protocol.HeaderSize+8] ^= 0xFF
	if !bytes.Equal(decoded.Payload, msg.Payload) {
		t.Error("decoded payload aliases the input buffer")
	}
}

func TestRecordRejectsShortPayload(t *testing.T) {
	codec := protocol.NewCodec()

	msg := &protocol.Record{Counter: 1, Payload: filled(constants.MinRecordSize-1, 0x00)}
	if _, err := codec.EncodeRecord(msg); !errors.Is(err, qerrors.ErrMalformedMessage) {
		t.Errorf("short payload: got %v", err)
	}
}

func TestAlertRoundTrip(t *testing.T) {
	codec := protocol.NewCodec()

	msg := &protocol.Alert{
		Level:       protocol.AlertLevelFatal,
		Code:        protocol.AlertCodeBadCertificate,
		Description: "certificate rejected",
	}
	encoded, err := codec.EncodeAlert(msg)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	decoded, err := codec.DecodeAlert(encoded)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded.Level != msg.Level || decoded.Code != msg.Code || decoded.Description != msg.Description {
		t.Error("alert mismatch after roundtrip")
	}
}

func TestCloseRoundTrip(t *testing.T) {
	codec := protocol.NewCodec()

	encoded := codec.EncodeClose()
	if err := codec.DecodeClose(encoded); err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	withPayload := append(append([]byte(nil), encoded...), 0x00)
	binary.BigEndian.PutUint32(withPayload[1:], 1)
	if err := codec.DecodeClose(withPayload); !errors.Is(err, qerrors.ErrMalformedMessage) {
		t.Errorf("close with payload: got %v", err)
	}
}

func TestDecodeMalformedFrames(t *testing.T) {
	codec := protocol.NewCodec()

	valid, err := codec.EncodeHandshakeInit(validInit(protocol.ModeHybrid))
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	truncated := valid[:len(valid)-1]
	if _, err := codec.DecodeHandshakeInit(truncated); !errors.Is(err, qerrors.ErrMalformedMessage) {
		t.Errorf("truncated frame: got %v", err)
	}

	trailing := append(append([]byte(nil), valid...), 0xAB)
	if _, err := codec.DecodeHandshakeInit(trailing); !errors.Is(err, qerrors.ErrMalformedMessage) {
		t.Errorf("trailing bytes: got %v", err)
	}

	wrongType := append([]byte(nil), valid...)
	wrongType[0] = byte(protocol.MessageTypeRecord)
	if _, err := codec.DecodeHandshakeInit(wrongType); !errors.Is(err, qerrors.ErrMalformedMessage) {
		t.Errorf("wrong type byte: got %v", err)
	}

	if _, err := codec.DecodeHandshakeInit(nil); !errors.Is(err, qerrors.ErrMalformedMessage) {
		t.Errorf("nil input: got %v", err)
	}
	if _, err := codec.DecodeHandshakeInit(valid[:3]); !errors.Is(err, qerrors.ErrMalformedMessage) {
		t.Errorf("short header: got %v", err)
	}
}

func TestReadMessage(t *testing.T) {
	codec := protocol.NewCodec()

	msg := &protocol.Record{Counter: 7, Payload: filled(32, 0x5C)}
	encoded, err := codec.EncodeRecord(msg)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	read, err := codec.ReadMessage(bytes.NewReader(encoded))
	if err != nil {
		t.Fatalf("ReadMessage failed: %v", err)
	}
	if !bytes.Equal(read, encoded) {
		t.Error("ReadMessage did not return the full frame")
	}

	decoded, err := codec.DecodeRecord(read)
	if err != nil || decoded.Counter != 7 {
		t.Errorf("decode of read frame failed: %v", err)
	}
}

func TestReadMessageRejectsOversizedLength(t *testing.T) {
	codec := protocol.NewCodec()

	header := make([]byte, protocol.HeaderSize)
	header[0] = byte(protocol.MessageTypeRecord)
	binary.BigEndian.PutUint32(header[1:], protocol.MaxMessageSize+1)

	if _, err := codec.ReadMessage(bytes.NewReader(header)); !errors.Is(err, qerrors.ErrMessageTooLarge) {
		t.Errorf("oversized length: got %v", err)
	}
}

func TestReadMessageTruncatedStream(t *testing.T) {
	codec := protocol.NewCodec()

	msg := &protocol.Record{Counter: 1, Payload: filled(32, 0x01)}
	encoded, err := codec.EncodeRecord(msg)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	if _, err := codec.ReadMessage(bytes.NewReader(encoded[:len(encoded)-4])); err == nil {
		t.Error("truncated stream should fail")
	}
	if _, err := codec.ReadMessage(bytes.NewReader(nil)); err == nil {
		t.Error("empty stream should fail")
	}
}

func TestPeekType(t *testing.T) {
	codec := protocol.NewCodec()

	encoded := codec.EncodeClose()
	mt, err := protocol.PeekType(encoded)
	if err != nil || mt != protocol.MessageTypeClose {
		t.Errorf("PeekType: got %v, %v", mt, err)
	}
	if _, err := protocol.PeekType(nil); !errors.Is(err, qerrors.ErrMalformedMessage) {
		t.Errorf("empty input: got %v", err)
	}
}
