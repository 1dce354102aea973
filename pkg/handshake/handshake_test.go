package handshake_test

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/asphaleia/asphaleia-go/internal/constants"
	qerrors "github.com/asphaleia/asphaleia-go/internal/errors"
	"github.com/asphaleia/asphaleia-go/pkg/cert"
	"github.com/asphaleia/asphaleia-go/pkg/channel"
	"github.com/asphaleia/asphaleia-go/pkg/handshake"
	"github.com/asphaleia/asphaleia-go/pkg/identity"
	"github.com/asphaleia/asphaleia-go/pkg/protocol"
)

var hsNow = time.Date(2026, time.May, 10, 9, 0, 0, 0, time.UTC)

func clock() time.Time { return hsNow }

// fixture holds a root authority plus issued credentials for both parties.
type fixture struct {
	roots *cert.TrustStore

	respIdentity *identity.KeyPair
	respCert     *cert.Certificate

	initIdentity *identity.KeyPair
	initCert     *cert.Certificate
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	caKey, err := identity.Generate(nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	ca, err := cert.NewAuthority("test-root", caKey)
	if err != nil {
		t.Fatalf("NewAuthority failed: %v", err)
	}

	roots := cert.NewTrustStore()
	if err := roots.Add(ca.Name(), ca.PublicKey()); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	validity := cert.Validity{NotBefore: hsNow.Add(-time.Hour), NotAfter: hsNow.Add(24 * time.Hour)}

	respIdentity, err := identity.Generate(nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	respCert, err := ca.Issue("responder.test", respIdentity.Public(), validity)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	initIdentity, err := identity.Generate(nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	initCert, err := ca.Issue("initiator.test", initIdentity.Public(), validity)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	return &fixture{
		roots:        roots,
		respIdentity: respIdentity,
		respCert:     respCert,
		initIdentity: initIdentity,
		initCert:     initCert,
	}
}

func (f *fixture) initiatorConfig() *handshake.Config {
	return &handshake.Config{Roots: f.roots, Now: clock}
}

func (f *fixture) responderConfig() *handshake.Config {
	return &handshake.Config{
		Identity:    f.respIdentity,
		Certificate: f.respCert,
		Roots:       f.roots,
		Now:         clock,
	}
}

// run drives a full handshake through the state machines and returns both
// established channels.
func run(t *testing.T, initCfg, respCfg *handshake.Config) (*channel.SecureChannel, *channel.SecureChannel) {
	t.Helper()

	initiator, err := handshake.NewInitiator(initCfg)
	if err != nil {
		t.Fatalf("NewInitiator failed: %v", err)
	}
	responder, err := handshake.NewResponder(respCfg)
	if err != nil {
		t.Fatalf("NewResponder failed: %v", err)
	}

	initFrame, err := initiator.CreateInit()
	if err != nil {
		t.Fatalf("CreateInit failed: %v", err)
	}
	if err := responder.ProcessInit(initFrame); err != nil {
		t.Fatalf("ProcessInit failed: %v", err)
	}
	respFrame, chR, err := responder.CreateResponse()
	if err != nil {
		t.Fatalf("CreateResponse failed: %v", err)
	}
	chI, err := initiator.ProcessResponse(respFrame)
	if err != nil {
		t.Fatalf("ProcessResponse failed: %v", err)
	}
	return chI, chR
}

// exchange sends one message each way and checks both decrypt correctly.
func exchange(t *testing.T, chI, chR *channel.SecureChannel) {
	t.Helper()

	frame, err := chI.Encrypt([]byte("from initiator"))
	if err != nil {
		t.Fatalf("initiator Encrypt failed: %v", err)
	}
	got, err := chR.Decrypt(frame)
	if err != nil || string(got) != "from initiator" {
		t.Fatalf("responder Decrypt failed: %v", err)
	}

	frame, err = chR.Encrypt([]byte("from responder"))
	if err != nil {
		t.Fatalf("responder Encrypt failed: %v", err)
	}
	got, err = chI.Decrypt(frame)
	if err != nil || string(got) != "from responder" {
		t.Fatalf("initiator Decrypt failed: %v", err)
	}
}

func TestHandshakeHybrid(t *testing.T) {
	f := newFixture(t)
	chI, chR := run(t, f.initiatorConfig(), f.responderConfig())
	defer chI.Close()
	defer chR.Close()

	if !bytes.Equal(chI.ChannelID(), chR.ChannelID()) {
		t.Error("channel IDs differ")
	}
	if chI.Suite() != chR.Suite() {
		t.Error("suites differ")
	}
	exchange(t, chI, chR)
}

func TestHandshakeECDHOnly(t *testing.T) {
	f := newFixture(t)
	initCfg := f.initiatorConfig()
	initCfg.Mode = protocol.ModeECDH
	respCfg := f.responderConfig()
	respCfg.Mode = protocol.ModeECDH

	chI, chR := run(t, initCfg, respCfg)
	defer chI.Close()
	defer chR.Close()
	exchange(t, chI, chR)
}

func TestHandshakeMutualAuth(t *testing.T) {
	f := newFixture(t)
	initCfg := f.initiatorConfig()
	initCfg.Identity = f.initIdentity
	initCfg.Certificate = f.initCert
	respCfg := f.responderConfig()
	respCfg.RequirePeerAuth = true

	initiator, err := handshake.NewInitiator(initCfg)
	if err != nil {
		t.Fatalf("NewInitiator failed: %v", err)
	}
	responder, err := handshake.NewResponder(respCfg)
	if err != nil {
		t.Fatalf("NewResponder failed: %v", err)
	}

	initFrame, err := initiator.CreateInit()
	if err != nil {
		t.Fatalf("CreateInit failed: %v", err)
	}
	if err := responder.ProcessInit(initFrame); err != nil {
		t.Fatalf("ProcessInit failed: %v", err)
	}
	if got := responder.PeerCertificate(); got == nil || got.Subject != "initiator.test" {
		t.Fatal("responder did not authenticate the initiator")
	}

	respFrame, chR, err := responder.CreateResponse()
	if err != nil {
		t.Fatalf("CreateResponse failed: %v", err)
	}
	defer chR.Close()

	chI, err := initiator.ProcessResponse(respFrame)
	if err != nil {
		t.Fatalf("ProcessResponse failed: %v", err)
	}
	defer chI.Close()

	if got := initiator.PeerCertificate(); got == nil || got.Subject != "responder.test" {
		t.Fatal("initiator did not authenticate the responder")
	}
	exchange(t, chI, chR)
}

func TestHandshakeRequirePeerAuthRejectsAnonymous(t *testing.T) {
	f := newFixture(t)
	respCfg := f.responderConfig()
	respCfg.RequirePeerAuth = true

	initiator, err := handshake.NewInitiator(f.initiatorConfig())
	if err != nil {
		t.Fatalf("NewInitiator failed: %v", err)
	}
	responder, err := handshake.NewResponder(respCfg)
	if err != nil {
		t.Fatalf("NewResponder failed: %v", err)
	}

	initFrame, err := initiator.CreateInit()
	if err != nil {
		t.Fatalf("CreateInit failed: %v", err)
	}
	if err := responder.ProcessInit(initFrame); !errors.Is(err, qerrors.ErrCertificateRequired) {
		t.Errorf("anonymous initiator: got %v", err)
	}
}

func TestHandshakeTamperedSignatureRejected(t *testing.T) {
	f := newFixture(t)

	initiator, err := handshake.NewInitiator(f.initiatorConfig())
	if err != nil {
		t.Fatalf("NewInitiator failed: %v", err)
	}
	responder, err := handshake.NewResponder(f.responderConfig())
	if err != nil {
		t.Fatalf("NewResponder failed: %v", err)
	}

	initFrame, err := initiator.CreateInit()
	if err != nil {
		t.Fatalf("CreateInit failed: %v", err)
	}
	if err := responder.ProcessInit(initFrame); err != nil {
		t.Fatalf("ProcessInit failed: %v", err)
	}
	respFrame, chR, err := responder.CreateResponse()
	if err != nil {
		t.Fatalf("CreateResponse failed: %v", err)
	}
	defer chR.Close()

	// The transcript signature is the final field of the response.
	respFrame[len(respFrame)-1] ^= 0x01
	if _, err := initiator.ProcessResponse(respFrame); !errors.Is(err, qerrors.ErrAuthenticationFailed) {
		t.Errorf("tampered signature: got %v", err)
	}
}

func TestHandshakeExpiredCertificateRejected(t *testing.T) {
	f := newFixture(t)
	initCfg := f.initiatorConfig()
	initCfg.Now = func() time.Time { return hsNow.Add(48 * time.Hour) }

	initiator, err := handshake.NewInitiator(initCfg)
	if err != nil {
		t.Fatalf("NewInitiator failed: %v", err)
	}
	responder, err := handshake.NewResponder(f.responderConfig())
	if err != nil {
		t.Fatalf("NewResponder failed: %v", err)
	}

	initFrame, err := initiator.CreateInit()
	if err != nil {
		t.Fatalf("CreateInit failed: %v", err)
	}
	if err := responder.ProcessInit(initFrame); err != nil {
		t.Fatalf("ProcessInit failed: %v", err)
	}
	respFrame, chR, err := responder.CreateResponse()
	if err != nil {
		t.Fatalf("CreateResponse failed: %v", err)
	}
	defer chR.Close()

	if _, err := initiator.ProcessResponse(respFrame); !errors.Is(err, qerrors.ErrCertificateInvalid) {
		t.Errorf("expired certificate: got %v", err)
	}
}

func TestHandshakeSuiteNegotiation(t *testing.T) {
	f := newFixture(t)
	initCfg := f.initiatorConfig()
	initCfg.Suites = []constants.CipherSuite{constants.CipherSuiteChaCha20Poly1305}
	respCfg := f.responderConfig()
	respCfg.Suites = []constants.CipherSuite{
		constants.CipherSuiteAES256GCM,
		constants.CipherSuiteChaCha20Poly1305,
	}

	chI, chR := run(t, initCfg, respCfg)
	defer chI.Close()
	defer chR.Close()

	if chI.Suite() != constants.CipherSuiteChaCha20Poly1305 {
		t.Errorf("negotiated suite: got %v", chI.Suite())
	}
	exchange(t, chI, chR)
}

func TestHandshakeNoCommonSuite(t *testing.T) {
	f := newFixture(t)
	initCfg := f.initiatorConfig()
	initCfg.Suites = []constants.CipherSuite{constants.CipherSuiteChaCha20Poly1305}
	respCfg := f.responderConfig()
	respCfg.Suites = []constants.CipherSuite{constants.CipherSuiteAES256GCM}

	initiator, err := handshake.NewInitiator(initCfg)
	if err != nil {
		t.Fatalf("NewInitiator failed: %v", err)
	}
	responder, err := handshake.NewResponder(respCfg)
	if err != nil {
		t.Fatalf("NewResponder failed: %v", err)
	}

	initFrame, err := initiator.CreateInit()
	if err != nil {
		t.Fatalf("CreateInit failed: %v", err)
	}
	if err := responder.ProcessInit(initFrame); !errors.Is(err, qerrors.ErrUnsupportedCipherSuite) {
		t.Errorf("disjoint suites: got %v", err)
	}
}

func TestHandshakeFreshness(t *testing.T) {
	f := newFixture(t)

	chA, chA2 := run(t, f.initiatorConfig(), f.responderConfig())
	defer chA.Close()
	defer chA2.Close()
	chB, chB2 := run(t, f.initiatorConfig(), f.responderConfig())
	defer chB.Close()
	defer chB2.Close()

	if bytes.Equal(chA.ChannelID(), chB.ChannelID()) {
		t.Error("independent handshakes produced the same channel ID")
	}
}

func TestHandshakeSingleUse(t *testing.T) {
	f := newFixture(t)

	initiator, err := handshake.NewInitiator(f.initiatorConfig())
	if err != nil {
		t.Fatalf("NewInitiator failed: %v", err)
	}
	if _, err := initiator.CreateInit(); err != nil {
		t.Fatalf("CreateInit failed: %v", err)
	}
	if _, err := initiator.CreateInit(); !errors.Is(err, qerrors.ErrInvalidState) {
		t.Errorf("second CreateInit: got %v", err)
	}

	// Role misuse fails the same way.
	responder, err := handshake.NewResponder(f.responderConfig())
	if err != nil {
		t.Fatalf("NewResponder failed: %v", err)
	}
	if _, err := responder.CreateInit(); !errors.Is(err, qerrors.ErrInvalidState) {
		t.Errorf("responder CreateInit: got %v", err)
	}
}

func TestConfigValidation(t *testing.T) {
	f := newFixture(t)

	if _, err := handshake.NewResponder(&handshake.Config{Roots: f.roots}); !errors.Is(err, qerrors.ErrCertificateRequired) {
		t.Errorf("responder without credentials: got %v", err)
	}
	if _, err := handshake.NewInitiator(&handshake.Config{}); err == nil {
		t.Error("initiator without roots should fail")
	}
	if _, err := handshake.NewInitiator(&handshake.Config{
		Roots:  f.roots,
		Suites: []constants.CipherSuite{0x7777},
	}); !errors.Is(err, qerrors.ErrUnsupportedCipherSuite) {
		t.Errorf("unknown suite: got %v", err)
	}
	if _, err := handshake.NewInitiator(&handshake.Config{
		Roots:       f.roots,
		Certificate: f.initCert,
	}); err == nil {
		t.Error("certificate without identity should fail")
	}
}

// duplex joins one read side and one write side of a pipe pair.
type duplex struct {
	io.Reader
	io.Writer
}

func pipePair() (io.ReadWriter, io.ReadWriter) {
	ir, iw := io.Pipe()
	rr, rw := io.Pipe()
	return duplex{ir, rw}, duplex{rr, iw}
}

func TestInitiateRespond(t *testing.T) {
	f := newFixture(t)
	initSide, respSide := pipePair()

	type result struct {
		ch  *channel.SecureChannel
		err error
	}
	done := make(chan result, 1)
	go func() {
		ch, err := handshake.Respond(respSide, f.responderConfig())
		done <- result{ch, err}
	}()

	chI, err := handshake.Initiate(initSide, f.initiatorConfig())
	if err != nil {
		t.Fatalf("Initiate failed: %v", err)
	}
	defer chI.Close()

	res := <-done
	if res.err != nil {
		t.Fatalf("Respond failed: %v", res.err)
	}
	defer res.ch.Close()

	exchange(t, chI, res.ch)
}

func TestInitiateReceivesAlert(t *testing.T) {
	f := newFixture(t)
	initSide, respSide := pipePair()

	respCfg := f.responderConfig()
	respCfg.RequirePeerAuth = true

	done := make(chan error, 1)
	go func() {
		_, err := handshake.Respond(respSide, respCfg)
		done <- err
	}()

	// Anonymous initiator against a responder that requires client
	// certificates: the responder answers with an alert.
	_, err := handshake.Initiate(initSide, f.initiatorConfig())
	if !errors.Is(err, qerrors.ErrCertificateInvalid) {
		t.Errorf("Initiate: got %v", err)
	}
	if err := <-done; !errors.Is(err, qerrors.ErrCertificateRequired) {
		t.Errorf("Respond: got %v", err)
	}
}
