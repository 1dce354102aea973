// Package handshake implements the two-message authenticated key exchange:
// a hybrid X25519 + ML-KEM-1024 agreement (or classical-only when
// configured), certificate-based peer authentication, and derivation of an
// established SecureChannel. All ephemeral secrets are zeroized on every
// exit path, success or failure.
package handshake

import (
	"time"

	"github.com/asphaleia/asphaleia-go/internal/constants"
	qerrors "github.com/asphaleia/asphaleia-go/internal/errors"
	"github.com/asphaleia/asphaleia-go/pkg/cert"
	"github.com/asphaleia/asphaleia-go/pkg/channel"
	"github.com/asphaleia/asphaleia-go/pkg/crypto"
	"github.com/asphaleia/asphaleia-go/pkg/identity"
	"github.com/asphaleia/asphaleia-go/pkg/protocol"
	"github.com/asphaleia/asphaleia-go/pkg/secret"
)

type handshakeState uint8

const (
	stateStart handshakeState = iota
	stateAwaitResponse
	stateRespond
	stateDone
	stateFailed
)

// Handshake drives one side of the key exchange. A Handshake is single-use:
// after it completes or fails it cannot be restarted.
type Handshake struct {
	cfg   *Config
	role  channel.Role
	state handshakeState

	mode  protocol.Mode
	suite constants.CipherSuite

	ecdh *crypto.X25519KeyPair
	kem  *crypto.MLKEMKeyPair

	// Initiator shares captured for the transcript. On the responder these
	// come from the received init message.
	initEcdhPublic []byte
	initKemPublic  []byte

	peerCert *cert.Certificate
	codec    *protocol.Codec
}

// NewInitiator prepares the initiating side of a handshake.
func NewInitiator(cfg *Config) (*Handshake, error) {
	cfg, err := cfg.withDefaults(channel.RoleInitiator)
	if err != nil {
		return nil, err
	}
	return &Handshake{cfg: cfg, role: channel.RoleInitiator, mode: cfg.Mode, codec: protocol.NewCodec()}, nil
}

// NewResponder prepares the responding side of a handshake.
func NewResponder(cfg *Config) (*Handshake, error) {
	cfg, err := cfg.withDefaults(channel.RoleResponder)
	if err != nil {
		return nil, err
	}
	return &Handshake{cfg: cfg, role: channel.RoleResponder, mode: cfg.Mode, codec: protocol.NewCodec()}, nil
}

// Role returns which side this handshake drives.
func (h *Handshake) Role() channel.Role {
	return h.role
}

// PeerCertificate returns the authenticated peer certificate, if the peer
// presented one and the handshake verified it.
func (h *Handshake) PeerCertificate() *cert.Certificate {
	return h.peerCert
}

// CreateInit generates the initiator's ephemeral key material and returns
// the framed first handshake message.
func (h *Handshake) CreateInit() ([]byte, error) {
	if h.role != channel.RoleInitiator || h.state != stateStart {
		return nil, h.fail(qerrors.ErrInvalidState)
	}

	ecdh, err := crypto.GenerateX25519KeyPair(h.cfg.Rand)
	if err != nil {
		return nil, h.fail(err)
	}
	h.ecdh = ecdh
	h.initEcdhPublic = ecdh.PublicKeyBytes()

	if h.mode == protocol.ModeHybrid {
		kem, err := crypto.GenerateMLKEMKeyPair(h.cfg.Rand)
		if err != nil {
			return nil, h.fail(err)
		}
		h.kem = kem
		h.initKemPublic = kem.PublicKeyBytes()
	}

	msg := &protocol.HandshakeInit{
		Version:      protocol.Current,
		Mode:         h.mode,
		CipherSuites: h.cfg.Suites,
		EcdhPublic:   h.initEcdhPublic,
		KemPublic:    h.initKemPublic,
	}

	if h.cfg.Certificate != nil {
		digest, err := initAuthDigest(h.mode, h.initEcdhPublic, h.initKemPublic)
		if err != nil {
			return nil, h.fail(err)
		}
		msg.Certificate = h.cfg.Certificate.Encode()
		msg.AuthSignature = h.cfg.Identity.Sign(digest)
	}

	frame, err := h.codec.EncodeHandshakeInit(msg)
	if err != nil {
		return nil, h.fail(err)
	}
	h.state = stateAwaitResponse
	return frame, nil
}

// ProcessInit consumes the initiator's first message on the responder,
// authenticating the initiator when required and negotiating the cipher
// suite. CreateResponse must follow.
func (h *Handshake) ProcessInit(frame []byte) error {
	if h.role != channel.RoleResponder || h.state != stateStart {
		return h.fail(qerrors.ErrInvalidState)
	}

	msg, err := h.codec.DecodeHandshakeInit(frame)
	if err != nil {
		return h.fail(err)
	}
	if !protocol.Current.IsCompatible(msg.Version) {
		return h.fail(qerrors.ErrUnsupportedVersion)
	}
	if msg.Mode != h.mode {
		return h.fail(qerrors.NewProtocolError("init", qerrors.ErrInvalidState))
	}

	suite, ok := negotiateSuite(h.cfg.Suites, msg.CipherSuites)
	if !ok {
		return h.fail(qerrors.ErrUnsupportedCipherSuite)
	}
	h.suite = suite

	if h.cfg.RequirePeerAuth && len(msg.Certificate) == 0 {
		return h.fail(qerrors.ErrCertificateRequired)
	}
	if len(msg.Certificate) > 0 {
		peer, err := h.verifyPeerCertificate(msg.Certificate)
		if err != nil {
			return h.fail(err)
		}
		digest, err := initAuthDigest(msg.Mode, msg.EcdhPublic, msg.KemPublic)
		if err != nil {
			return h.fail(err)
		}
		if !identity.Verify(peer.PublicKey, digest, msg.AuthSignature) {
			return h.fail(qerrors.ErrAuthenticationFailed)
		}
		h.peerCert = peer
	}

	h.initEcdhPublic = msg.EcdhPublic
	h.initKemPublic = msg.KemPublic
	h.state = stateRespond
	return nil
}

// CreateResponse generates the responder's ephemeral share, encapsulates to
// the initiator's KEM key in hybrid mode, signs the transcript, and returns
// the framed response together with the established channel.
func (h *Handshake) CreateResponse() ([]byte, *channel.SecureChannel, error) {
	if h.role != channel.RoleResponder || h.state != stateRespond {
		return nil, nil, h.fail(qerrors.ErrInvalidState)
	}

	ecdh, err := crypto.GenerateX25519KeyPair(h.cfg.Rand)
	if err != nil {
		return nil, nil, h.fail(err)
	}
	h.ecdh = ecdh

	peerEcdh, err := crypto.ParseX25519PublicKey(h.initEcdhPublic)
	if err != nil {
		return nil, nil, h.fail(err)
	}
	ecdhSecret, err := crypto.X25519(ecdh.PrivateKey, peerEcdh)
	if err != nil {
		return nil, nil, h.fail(err)
	}
	defer crypto.Zeroize(ecdhSecret)

	var kemCiphertext, kemSecret []byte
	if h.mode == protocol.ModeHybrid {
		peerKem, err := crypto.ParseMLKEMPublicKey(h.initKemPublic)
		if err != nil {
			return nil, nil, h.fail(err)
		}
		kemCiphertext, kemSecret, err = crypto.MLKEMEncapsulate(h.cfg.Rand, peerKem)
		if err != nil {
			return nil, nil, h.fail(err)
		}
		defer crypto.Zeroize(kemSecret)
	}

	transcript := transcriptHash(h.mode, h.suite, h.initEcdhPublic, h.initKemPublic, ecdh.PublicKeyBytes(), kemCiphertext)

	digest, err := responderAuthDigest(transcript)
	if err != nil {
		return nil, nil, h.fail(err)
	}

	msg := &protocol.HandshakeResponse{
		Version:       protocol.Current,
		CipherSuite:   h.suite,
		EcdhPublic:    ecdh.PublicKeyBytes(),
		KemCiphertext: kemCiphertext,
		Certificate:   h.cfg.Certificate.Encode(),
		Signature:     h.cfg.Identity.Sign(digest),
	}
	if err := msg.Validate(h.mode); err != nil {
		return nil, nil, h.fail(err)
	}

	frame, err := h.codec.EncodeHandshakeResponse(msg)
	if err != nil {
		return nil, nil, h.fail(err)
	}

	ch, err := h.establish(ecdhSecret, kemSecret, transcript)
	if err != nil {
		return nil, nil, h.fail(err)
	}
	h.state = stateDone
	h.destroy()
	return frame, ch, nil
}

// ProcessResponse consumes the responder's message on the initiator,
// authenticates the responder, and returns the established channel.
func (h *Handshake) ProcessResponse(frame []byte) (*channel.SecureChannel, error) {
	if h.role != channel.RoleInitiator || h.state != stateAwaitResponse {
		return nil, h.fail(qerrors.ErrInvalidState)
	}

	msg, err := h.codec.DecodeHandshakeResponse(frame)
	if err != nil {
		return nil, h.fail(err)
	}
	if err := msg.Validate(h.mode); err != nil {
		return nil, h.fail(err)
	}
	if !protocol.Current.IsCompatible(msg.Version) {
		return nil, h.fail(qerrors.ErrUnsupportedVersion)
	}
	if !suiteOffered(h.cfg.Suites, msg.CipherSuite) {
		return nil, h.fail(qerrors.ErrUnsupportedCipherSuite)
	}
	h.suite = msg.CipherSuite

	peer, err := h.verifyPeerCertificate(msg.Certificate)
	if err != nil {
		return nil, h.fail(err)
	}

	transcript := transcriptHash(h.mode, h.suite, h.initEcdhPublic, h.initKemPublic, msg.EcdhPublic, msg.KemCiphertext)
	digest, err := responderAuthDigest(transcript)
	if err != nil {
		return nil, h.fail(err)
	}
	if !identity.Verify(peer.PublicKey, digest, msg.Signature) {
		return nil, h.fail(qerrors.ErrAuthenticationFailed)
	}
	h.peerCert = peer

	peerEcdh, err := crypto.ParseX25519PublicKey(msg.EcdhPublic)
	if err != nil {
		return nil, h.fail(err)
	}
	ecdhSecret, err := crypto.X25519(h.ecdh.PrivateKey, peerEcdh)
	if err != nil {
		return nil, h.fail(err)
	}
	defer crypto.Zeroize(ecdhSecret)

	var kemSecret []byte
	if h.mode == protocol.ModeHybrid {
		kemSecret, err = crypto.MLKEMDecapsulate(h.kem.DecapsulationKey, msg.KemCiphertext)
		if err != nil {
			return nil, h.fail(err)
		}
		defer crypto.Zeroize(kemSecret)
	}

	ch, err := h.establish(ecdhSecret, kemSecret, transcript)
	if err != nil {
		return nil, h.fail(err)
	}
	h.state = stateDone
	h.destroy()
	return ch, nil
}

// establish combines the shared secrets, runs the key schedule, and builds
// the channel. The combined secret is destroyed before returning.
func (h *Handshake) establish(ecdhSecret, kemSecret, transcript []byte) (*channel.SecureChannel, error) {
	combined, err := crypto.CombineSharedSecrets(ecdhSecret, kemSecret, transcript)
	if err != nil {
		return nil, err
	}
	shared := secret.New(combined)
	defer shared.Destroy()

	keys, err := channel.DeriveSessionKeys(shared, transcript, h.role)
	if err != nil {
		return nil, err
	}
	return channel.New(keys, h.role, h.suite, h.cfg.Observer)
}

// verifyPeerCertificate decodes and chain-validates a peer certificate
// against the configured trust roots.
func (h *Handshake) verifyPeerCertificate(encoded []byte) (*cert.Certificate, error) {
	peer, err := cert.Decode(encoded)
	if err != nil {
		return nil, err
	}
	if h.cfg.Roots == nil {
		return nil, qerrors.NewCertificateError("no trust roots configured")
	}
	result := cert.ValidateChain(peer, h.cfg.Intermediates, h.cfg.Roots, h.cfg.now())
	if err := result.Err(); err != nil {
		return nil, err
	}
	return peer, nil
}

// Abort destroys all handshake state. Safe to call at any point, including
// after completion.
func (h *Handshake) Abort() {
	h.state = stateFailed
	h.destroy()
}

// fail marks the handshake failed, destroys ephemeral secrets, and passes
// the error through.
func (h *Handshake) fail(err error) error {
	h.state = stateFailed
	h.destroy()
	return err
}

func (h *Handshake) destroy() {
	if h.ecdh != nil {
		h.ecdh.Zeroize()
		h.ecdh = nil
	}
	if h.kem != nil {
		h.kem.Zeroize()
		h.kem = nil
	}
}

// transcriptHash binds every public handshake value into a single digest.
func transcriptHash(mode protocol.Mode, suite constants.CipherSuite, initEcdh, initKem, respEcdh, kemCiphertext []byte) []byte {
	suiteBytes := []byte{byte(suite >> 8), byte(suite)}
	return crypto.TranscriptHash(
		protocol.Current.Bytes(),
		[]byte{byte(mode)},
		suiteBytes,
		initEcdh,
		initKem,
		respEcdh,
		kemCiphertext,
	)
}

// initAuthDigest is what an authenticating initiator signs: its own
// ephemeral shares under a dedicated domain, proving possession of the
// certified key by the party that generated the shares.
func initAuthDigest(mode protocol.Mode, ecdhPublic, kemPublic []byte) ([]byte, error) {
	return crypto.DeriveKeyMultiple(
		constants.DomainSeparatorInitiatorAuth,
		[][]byte{{byte(mode)}, ecdhPublic, kemPublic},
		constants.TranscriptHashSize,
	)
}

// responderAuthDigest is what the responder signs: the full transcript
// under its own domain.
func responderAuthDigest(transcript []byte) ([]byte, error) {
	return crypto.DeriveKeyMultiple(
		constants.DomainSeparatorResponderAuth,
		[][]byte{transcript},
		constants.TranscriptHashSize,
	)
}

// negotiateSuite picks the responder's most preferred suite that the
// initiator offered.
func negotiateSuite(preferred, offered []constants.CipherSuite) (constants.CipherSuite, bool) {
	for _, want := range preferred {
		for _, got := range offered {
			if want == got {
				return want, true
			}
		}
	}
	return 0, false
}

func suiteOffered(offered []constants.CipherSuite, suite constants.CipherSuite) bool {
	for _, s := range offered {
		if s == suite {
			return true
		}
	}
	return false
}

// now is split out so tests can pin certificate validation time.
func (c *Config) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}
