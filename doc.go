// Package asphaleia provides authenticated, forward-secret secure channels
// built on a hybrid classical/post-quantum key exchange.
//
// The handshake combines X25519 ECDH with ML-KEM-1024 (NIST FIPS 203)
// encapsulation, so an established channel stays confidential if either
// algorithm holds. Peers authenticate with Ed25519 identity keys bound to
// a lightweight certificate format with chain validation.
//
// # Quick Start
//
// Establishing a channel over any io.ReadWriter:
//
//	import "github.com/asphaleia/asphaleia-go/pkg/handshake"
//
//	// Responder
//	ch, _ := handshake.Respond(conn, &handshake.Config{
//		Identity:    responderKey,
//		Certificate: responderCert,
//		Roots:       roots,
//	})
//
//	// Initiator
//	ch, _ := handshake.Initiate(conn, &handshake.Config{Roots: roots})
//	frame, _ := ch.Encrypt([]byte("hello"))
//
// For driving the handshake message by message, use the lower-level
// Handshake type in pkg/handshake.
//
// # Package Structure
//
//   - pkg/handshake: two-message authenticated key exchange
//   - pkg/channel: record protection, replay window, key schedule
//   - pkg/cert: certificate issuance, validation, trust stores
//   - pkg/identity: Ed25519 identity keys
//   - pkg/crypto: X25519, ML-KEM-1024, SHAKE-256 KDF, AEAD primitives
//   - pkg/secret: zeroizing containers for key material
//   - pkg/protocol: wire message definitions and codec
//   - pkg/proof: capability boundary for external attestation
//   - pkg/metrics: structured logging, tracing, counters
//
// # Security Properties
//
//   - Hybrid guarantee: the session secret combines both key agreements
//     through SHAKE-256, never XOR
//   - Forward secrecy: all key-agreement material is ephemeral and
//     zeroized as soon as the session keys exist
//   - Mutual or one-way authentication over Ed25519 certificates
//   - Per-record replay protection with a sliding window that advances
//     only after authentication succeeds
//   - Directional traffic keys with counter-derived nonces; channels shut
//     down before a nonce could repeat
//
// # References
//
//   - NIST FIPS 203: Module-Lattice-Based Key-Encapsulation Mechanism
//   - NIST FIPS 202: SHA-3 Standard (SHAKE-256)
//   - RFC 7748: Elliptic Curves for Security
//   - RFC 8032: Edwards-Curve Digital Signature Algorithm
package asphaleia
