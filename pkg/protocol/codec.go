// codec.go implements serialization of protocol messages.
//
// Wire format, all integers big-endian:
//
//	+------+--------+----------+
//	| Type | Length | Payload  |
//	| 1B   | 4B BE  | Variable |
//	+------+--------+----------+
//
// Variable-length fields inside payloads carry a 2-byte big-endian length
// prefix; record counters are fixed-width 8-byte big-endian. Any structural
// violation decodes to ErrMalformedMessage.
package protocol

import (
	"encoding/binary"
	"io"

	"github.com/asphaleia/asphaleia-go/internal/constants"
	qerrors "github.com/asphaleia/asphaleia-go/internal/errors"
)

// Codec serializes and deserializes protocol messages.
type Codec struct{}

// NewCodec creates a protocol codec.
func NewCodec() *Codec {
	return &Codec{}
}

// EncodeHandshakeInit serializes a HandshakeInit message.
func (c *Codec) EncodeHandshakeInit(m *HandshakeInit) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	payload := make([]byte, 0, 64+len(m.KemPublic)+len(m.Certificate))
	payload = append(payload, m.Version.Major, m.Version.Minor)
	payload = append(payload, byte(m.Mode))
	payload = binary.BigEndian.AppendUint16(payload, uint16(len(m.CipherSuites)))
	for _, cs := range m.CipherSuites {
		payload = binary.BigEndian.AppendUint16(payload, uint16(cs))
	}
	payload = appendField(payload, m.EcdhPublic)
	payload = appendField(payload, m.KemPublic)
	payload = appendField(payload, m.Certificate)
	payload = appendField(payload, m.AuthSignature)

	return frame(MessageTypeHandshakeInit, payload), nil
}

// DecodeHandshakeInit deserializes a HandshakeInit message.
func (c *Codec) DecodeHandshakeInit(data []byte) (*HandshakeInit, error) {
	payload, err := unframe(data, MessageTypeHandshakeInit)
	if err != nil {
		return nil, err
	}

	cur := &cursor{data: payload}
	m := &HandshakeInit{}

	version, ok := cur.bytes(2)
	if !ok {
		return nil, qerrors.ErrMalformedMessage
	}
	m.Version = Version{Major: version[0], Minor: version[1]}

	mode, ok := cur.byte()
	if !ok {
		return nil, qerrors.ErrMalformedMessage
	}
	m.Mode = Mode(mode)

	suiteCount, ok := cur.uint16()
	if !ok || suiteCount == 0 || suiteCount > 16 {
		return nil, qerrors.ErrMalformedMessage
	}
	m.CipherSuites = make([]constants.CipherSuite, suiteCount)
	for i := range m.CipherSuites {
		v, ok := cur.uint16()
		if !ok {
			return nil, qerrors.ErrMalformedMessage
		}
		m.CipherSuites[i] = constants.CipherSuite(v)
	}

	if m.EcdhPublic, ok = cur.field(); !ok {
		return nil, qerrors.ErrMalformedMessage
	}
	if m.KemPublic, ok = cur.field(); !ok {
		return nil, qerrors.ErrMalformedMessage
	}
	if m.Certificate, ok = cur.field(); !ok {
		return nil, qerrors.ErrMalformedMessage
	}
	if m.AuthSignature, ok = cur.field(); !ok {
		return nil, qerrors.ErrMalformedMessage
	}
	if !cur.done() {
		return nil, qerrors.ErrMalformedMessage
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// EncodeHandshakeResponse serializes a HandshakeResponse message.
func (c *Codec) EncodeHandshakeResponse(m *HandshakeResponse) ([]byte, error) {
	payload := make([]byte, 0, 128+len(m.KemCiphertext)+len(m.Certificate))
	payload = append(payload, m.Version.Major, m.Version.Minor)
	payload = binary.BigEndian.AppendUint16(payload, uint16(m.CipherSuite))
	payload = appendField(payload, m.EcdhPublic)
	payload = appendField(payload, m.KemCiphertext)
	payload = appendField(payload, m.Certificate)
	payload = appendField(payload, m.Signature)

	return frame(MessageTypeHandshakeResponse, payload), nil
}

// DecodeHandshakeResponse deserializes a HandshakeResponse message.
// Structural validation against the expected mode is the caller's job,
// since the mode lives in handshake state, not on the wire.
func (c *Codec) DecodeHandshakeResponse(data []byte) (*HandshakeResponse, error) {
	payload, err := unframe(data, MessageTypeHandshakeResponse)
	if err != nil {
		return nil, err
	}

	cur := &cursor{data: payload}
	m := &HandshakeResponse{}

	version, ok := cur.bytes(2)
	if !ok {
		return nil, qerrors.ErrMalformedMessage
	}
	m.Version = Version{Major: version[0], Minor: version[1]}

	suite, ok := cur.uint16()
	if !ok {
		return nil, qerrors.ErrMalformedMessage
	}
	m.CipherSuite = constants.CipherSuite(suite)

	if m.EcdhPublic, ok = cur.field(); !ok {
		return nil, qerrors.ErrMalformedMessage
	}
	if m.KemCiphertext, ok = cur.field(); !ok {
		return nil, qerrors.ErrMalformedMessage
	}
	if m.Certificate, ok = cur.field(); !ok {
		return nil, qerrors.ErrMalformedMessage
	}
	if m.Signature, ok = cur.field(); !ok {
		return nil, qerrors.ErrMalformedMessage
	}
	if !cur.done() {
		return nil, qerrors.ErrMalformedMessage
	}

	return m, nil
}

// EncodeRecord serializes a channel record.
func (c *Codec) EncodeRecord(m *Record) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	payload := make([]byte, 0, 8+len(m.Payload))
	payload = binary.BigEndian.AppendUint64(payload, m.Counter)
	payload = append(payload, m.Payload...)

	return frame(MessageTypeRecord, payload), nil
}

// DecodeRecord deserializes a channel record.
func (c *Codec) DecodeRecord(data []byte) (*Record, error) {
	payload, err := unframe(data, MessageTypeRecord)
	if err != nil {
		return nil, err
	}
	if len(payload) < 8+constants.MinRecordSize {
		return nil, qerrors.ErrMalformedMessage
	}

	m := &Record{
		Counter: binary.BigEndian.Uint64(payload[:8]),
		Payload: append([]byte(nil), payload[8:]...),
	}
	return m, nil
}

// EncodeAlert serializes an alert.
func (c *Codec) EncodeAlert(m *Alert) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	payload := make([]byte, 0, 4+len(m.Description))
	payload = append(payload, byte(m.Level), byte(m.Code))
	payload = appendField(payload, []byte(m.Description))

	return frame(MessageTypeAlert, payload), nil
}

// DecodeAlert deserializes an alert.
func (c *Codec) DecodeAlert(data []byte) (*Alert, error) {
	payload, err := unframe(data, MessageTypeAlert)
	if err != nil {
		return nil, err
	}

	cur := &cursor{data: payload}
	level, ok1 := cur.byte()
	code, ok2 := cur.byte()
	desc, ok3 := cur.field()
	if !ok1 || !ok2 || !ok3 || !cur.done() {
		return nil, qerrors.ErrMalformedMessage
	}

	m := &Alert{Level: AlertLevel(level), Code: AlertCode(code), Description: string(desc)}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// EncodeClose serializes a close message. Close carries no payload.
func (c *Codec) EncodeClose() []byte {
	return frame(MessageTypeClose, nil)
}

// DecodeClose checks a framed close message.
func (c *Codec) DecodeClose(data []byte) error {
	payload, err := unframe(data, MessageTypeClose)
	if err != nil {
		return err
	}
	if len(payload) != 0 {
		return qerrors.ErrMalformedMessage
	}
	return nil
}

// ReadMessage reads one framed message from r, returning the full frame
// including its header.
func (c *Codec) ReadMessage(r io.Reader) ([]byte, error) {
	header := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, qerrors.NewProtocolError("read", err)
	}

	length := binary.BigEndian.Uint32(header[1:])
	if length > MaxMessageSize {
		return nil, qerrors.ErrMessageTooLarge
	}

	msg := make([]byte, HeaderSize+int(length))
	copy(msg, header)
	if _, err := io.ReadFull(r, msg[HeaderSize:]); err != nil {
		return nil, qerrors.NewProtocolError("read", err)
	}
	return msg, nil
}

// PeekType returns the message type of a framed message.
func PeekType(data []byte) (MessageType, error) {
	if len(data) < 1 {
		return 0, qerrors.ErrMalformedMessage
	}
	return MessageType(data[0]), nil
}

// frame prepends the type and length header to payload.
func frame(mt MessageType, payload []byte) []byte {
	buf := make([]byte, 0, HeaderSize+len(payload))
	buf = append(buf, byte(mt))
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(payload)))
	return append(buf, payload...)
}

// unframe validates the header and returns the payload.
func unframe(data []byte, want MessageType) ([]byte, error) {
	if len(data) < HeaderSize {
		return nil, qerrors.ErrMalformedMessage
	}
	if MessageType(data[0]) != want {
		return nil, qerrors.ErrMalformedMessage
	}
	length := binary.BigEndian.Uint32(data[1:HeaderSize])
	if length > MaxMessageSize || len(data) != HeaderSize+int(length) {
		return nil, qerrors.ErrMalformedMessage
	}
	return data[HeaderSize:], nil
}

// appendField appends a 2-byte length-prefixed field.
func appendField(buf, field []byte) []byte {
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(field)))
	return append(buf, field...)
}

// cursor walks a payload, failing closed on any short read.
type cursor struct {
	data   []byte
	offset int
}

func (c *cursor) byte() (byte, bool) {
	if len(c.data)-c.offset < 1 {
		return 0, false
	}
	b := c.data[c.offset]
	c.offset++
	return b, true
}

func (c *cursor) bytes(n int) ([]byte, bool) {
	if len(c.data)-c.offset < n {
		return nil, false
	}
	b := c.data[c.offset : c.offset+n]
	c.offset += n
	return b, true
}

func (c *cursor) uint16() (uint16, bool) {
	b, ok := c.bytes(2)
	if !ok {
		return 0, false
	}
	return binary.BigEndian.Uint16(b), true
}

func (c *cursor) field() ([]byte, bool) {
	n, ok := c.uint16()
	if !ok {
		return nil, false
	}
	b, ok := c.bytes(int(n))
	if !ok {
		return nil, false
	}
	out := make([]byte, n)
	copy(out, b)
	return out, true
}

func (c *cursor) done() bool {
	return c.offset == len(c.data)
}
