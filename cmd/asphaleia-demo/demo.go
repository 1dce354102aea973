package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/asphaleia/asphaleia-go/internal/constants"
	"github.com/asphaleia/asphaleia-go/pkg/cert"
	"github.com/asphaleia/asphaleia-go/pkg/channel"
	"github.com/asphaleia/asphaleia-go/pkg/handshake"
	"github.com/asphaleia/asphaleia-go/pkg/identity"
	"github.com/asphaleia/asphaleia-go/pkg/metrics"
	"github.com/asphaleia/asphaleia-go/pkg/protocol"
)

type demoOptions struct {
	mode        string
	suite       string
	message     string
	mutual      bool
	showMetrics bool
	logLevel    string
	logFormat   string
}

// duplex joins one read end and one write end into an io.ReadWriter.
type duplex struct {
	io.Reader
	io.Writer
}

func runDemo(opts demoOptions) error {
	logger := metrics.NewLogger(
		metrics.WithOutput(os.Stderr),
		metrics.WithLevel(metrics.ParseLevel(opts.logLevel)),
		metrics.WithFormat(parseFormat(opts.logFormat)),
		metrics.WithName("demo"),
	)
	metrics.SetLogger(logger)

	mode, err := parseMode(opts.mode)
	if err != nil {
		return err
	}
	suite, err := parseSuite(opts.suite)
	if err != nil {
		return err
	}

	fmt.Printf("mode: %s, suite: %s, mutual auth: %v\n\n", mode, suite, opts.mutual)

	// Certificate authority and per-party identities.
	caKey, err := identity.Generate(nil)
	if err != nil {
		return err
	}
	ca, err := cert.NewAuthority("demo-root", caKey)
	if err != nil {
		return err
	}

	validity := cert.Validity{
		NotBefore: time.Now().Add(-time.Minute),
		NotAfter:  time.Now().Add(24 * time.Hour),
	}
	rootCert, err := ca.SelfSigned(validity)
	if err != nil {
		return err
	}

	roots := cert.NewTrustStore()
	if err := roots.AddRoot(rootCert); err != nil {
		return err
	}

	responderKey, err := identity.Generate(nil)
	if err != nil {
		return err
	}
	responderCert, err := ca.Issue("responder.demo", responderKey.Public(), validity)
	if err != nil {
		return err
	}
	fmt.Printf("issued certificate: subject=%s serial=%d issuer=%s\n",
		responderCert.Subject, responderCert.Serial, responderCert.Issuer)

	initiatorCfg := &handshake.Config{
		Mode:   mode,
		Suites: []constants.CipherSuite{suite},
		Roots:  roots,
	}
	responderCfg := &handshake.Config{
		Mode:            mode,
		Identity:        responderKey,
		Certificate:     responderCert,
		Roots:           roots,
		RequirePeerAuth: opts.mutual,
		Suites:          []constants.CipherSuite{suite},
	}

	if opts.mutual {
		initiatorKey, err := identity.Generate(nil)
		if err != nil {
			return err
		}
		initiatorCert, err := ca.Issue("initiator.demo", initiatorKey.Public(), validity)
		if err != nil {
			return err
		}
		initiatorCfg.Identity = initiatorKey
		initiatorCfg.Certificate = initiatorCert
		fmt.Printf("issued certificate: subject=%s serial=%d issuer=%s\n",
			initiatorCert.Subject, initiatorCert.Serial, initiatorCert.Issuer)
	}

	observer := metrics.NewChannelObserver(metrics.ChannelObserverConfig{Logger: logger})
	initiatorCfg.Observer = observer
	responderCfg.Observer = observer

	// Two pipes form an in-memory full-duplex link.
	initRead, respWrite := io.Pipe()
	respRead, initWrite := io.Pipe()
	initiatorLink := duplex{Reader: initRead, Writer: initWrite}
	responderLink := duplex{Reader: respRead, Writer: respWrite}

	type result struct {
		ch  *channel.SecureChannel
		err error
	}
	responderDone := make(chan result, 1)
	go func() {
		ch, err := handshake.Respond(responderLink, responderCfg)
		responderDone <- result{ch, err}
	}()

	start := time.Now()
	initiatorCh, err := handshake.Initiate(initiatorLink, initiatorCfg)
	if err != nil {
		return fmt.Errorf("initiator handshake: %w", err)
	}
	defer initiatorCh.Close()

	r := <-responderDone
	if r.err != nil {
		return fmt.Errorf("responder handshake: %w", r.err)
	}
	responderCh := r.ch
	defer responderCh.Close()

	fmt.Printf("\nhandshake complete in %s\n", time.Since(start).Round(time.Microsecond))
	fmt.Printf("channel id: %x\n\n", initiatorCh.ChannelID())

	// Encrypted round trip.
	frame, err := initiatorCh.Encrypt([]byte(opts.message))
	if err != nil {
		return err
	}
	plaintext, err := responderCh.Decrypt(frame)
	if err != nil {
		return err
	}
	fmt.Printf("initiator -> responder: %q (%d wire bytes)\n", plaintext, len(frame))

	reply, err := responderCh.Encrypt([]byte(strings.ToUpper(string(plaintext))))
	if err != nil {
		return err
	}
	echoed, err := initiatorCh.Decrypt(reply)
	if err != nil {
		return err
	}
	fmt.Printf("responder -> initiator: %q (%d wire bytes)\n", echoed, len(reply))

	stats := initiatorCh.Stats()
	fmt.Printf("\ninitiator stats: sent=%d received=%d bytes_out=%d bytes_in=%d\n",
		stats.RecordsSent, stats.RecordsReceived, stats.BytesSent, stats.BytesReceived)

	if opts.showMetrics {
		fmt.Println("\n--- metrics ---")
		exporter := metrics.NewPrometheusExporter(metrics.Global(), "asphaleia")
		exporter.WriteMetrics(os.Stdout)
	}
	return nil
}

func parseMode(s string) (protocol.Mode, error) {
	switch strings.ToLower(s) {
	case "hybrid":
		return protocol.ModeHybrid, nil
	case "ecdh":
		return protocol.ModeECDH, nil
	default:
		return 0, fmt.Errorf("unknown mode %q (want hybrid or ecdh)", s)
	}
}

func parseSuite(s string) (constants.CipherSuite, error) {
	switch strings.ToLower(s) {
	case "chacha20-poly1305":
		return constants.CipherSuiteChaCha20Poly1305, nil
	case "aes-256-gcm":
		return constants.CipherSuiteAES256GCM, nil
	default:
		return 0, fmt.Errorf("unknown cipher suite %q", s)
	}
}

func parseFormat(s string) metrics.Format {
	if strings.EqualFold(s, "json") {
		return metrics.FormatJSON
	}
	return metrics.FormatText
}
