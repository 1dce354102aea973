package handshake

import (
	"errors"
	"io"

	qerrors "github.com/asphaleia/asphaleia-go/internal/errors"
	"github.com/asphaleia/asphaleia-go/pkg/channel"
	"github.com/asphaleia/asphaleia-go/pkg/protocol"
)

// Initiate runs the initiator side of the handshake over rw and returns the
// established channel. On failure a fatal alert is written best-effort
// before the error propagates.
func Initiate(rw io.ReadWriter, cfg *Config) (*channel.SecureChannel, error) {
	h, err := NewInitiator(cfg)
	if err != nil {
		return nil, err
	}

	initFrame, err := h.CreateInit()
	if err != nil {
		return nil, err
	}
	if _, err := rw.Write(initFrame); err != nil {
		h.Abort()
		return nil, qerrors.NewProtocolError("init", err)
	}

	respFrame, err := h.codec.ReadMessage(rw)
	if err != nil {
		h.Abort()
		return nil, err
	}
	if mt, _ := protocol.PeekType(respFrame); mt == protocol.MessageTypeAlert {
		h.Abort()
		return nil, alertError(h.codec, respFrame)
	}

	ch, err := h.ProcessResponse(respFrame)
	if err != nil {
		sendAlert(rw, h.codec, err)
		return nil, err
	}
	return ch, nil
}

// Respond runs the responder side of the handshake over rw and returns the
// established channel.
func Respond(rw io.ReadWriter, cfg *Config) (*channel.SecureChannel, error) {
	h, err := NewResponder(cfg)
	if err != nil {
		return nil, err
	}

	initFrame, err := h.codec.ReadMessage(rw)
	if err != nil {
		h.Abort()
		return nil, err
	}

	if err := h.ProcessInit(initFrame); err != nil {
		sendAlert(rw, h.codec, err)
		return nil, err
	}

	respFrame, ch, err := h.CreateResponse()
	if err != nil {
		sendAlert(rw, h.codec, err)
		return nil, err
	}
	if _, err := rw.Write(respFrame); err != nil {
		ch.Close()
		return nil, qerrors.NewProtocolError("response", err)
	}
	return ch, nil
}

// sendAlert maps err to a fatal alert and writes it. Write failures are
// swallowed: the handshake error is what the caller needs.
func sendAlert(w io.Writer, codec *protocol.Codec, err error) {
	alert := &protocol.Alert{Level: protocol.AlertLevelFatal, Code: alertCodeFor(err)}
	frame, encErr := codec.EncodeAlert(alert)
	if encErr != nil {
		return
	}
	_, _ = w.Write(frame)
}

func alertCodeFor(err error) protocol.AlertCode {
	switch {
	case errors.Is(err, qerrors.ErrCertificateInvalid), errors.Is(err, qerrors.ErrCertificateRequired):
		return protocol.AlertCodeBadCertificate
	case errors.Is(err, qerrors.ErrUnsupportedVersion):
		return protocol.AlertCodeUnsupportedVersion
	case errors.Is(err, qerrors.ErrAuthenticationFailed):
		return protocol.AlertCodeDecryptionFailed
	default:
		return protocol.AlertCodeHandshakeFailure
	}
}

// alertError decodes a received alert into a handshake error.
func alertError(codec *protocol.Codec, frame []byte) error {
	alert, err := codec.DecodeAlert(frame)
	if err != nil {
		return qerrors.ErrMalformedMessage
	}
	var cause error
	switch alert.Code {
	case protocol.AlertCodeBadCertificate:
		cause = qerrors.ErrCertificateInvalid
	case protocol.AlertCodeUnsupportedVersion:
		cause = qerrors.ErrUnsupportedVersion
	case protocol.AlertCodeDecryptionFailed:
		cause = qerrors.ErrAuthenticationFailed
	default:
		cause = qerrors.ErrInvalidState
	}
	return qerrors.NewProtocolError("alert:"+alert.Code.String(), cause)
}
