// Command asphaleia-demo exercises the full stack in one process: a small
// certificate authority, two authenticated parties, a hybrid handshake over
// an in-memory duplex, and an encrypted echo exchange.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/asphaleia/asphaleia-go/internal/constants"
	"github.com/asphaleia/asphaleia-go/pkg/protocol"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "demo":
		demoCommand(os.Args[2:])
	case "version":
		fmt.Printf("asphaleia-demo protocol %s (%s)\n", protocol.Current, constants.ProtocolName)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`asphaleia-demo - hybrid secure channel demonstration

USAGE:
    asphaleia-demo <command> [options]

COMMANDS:
    demo      Run a local handshake and encrypted exchange
    version   Print protocol version
    help      Show this help message

EXAMPLES:
    # Hybrid handshake with mutual authentication
    asphaleia-demo demo --mutual

    # Classical-only mode with verbose logging
    asphaleia-demo demo --mode ecdh --log-level debug

    # Dump metrics after the exchange
    asphaleia-demo demo --metrics`)
}

func demoCommand(args []string) {
	fs := flag.NewFlagSet("demo", flag.ExitOnError)
	mode := fs.String("mode", "hybrid", "Key agreement mode: hybrid or ecdh")
	suite := fs.String("suite", "chacha20-poly1305", "Cipher suite: chacha20-poly1305 or aes-256-gcm")
	message := fs.String("message", "Hello over a hybrid secure channel!", "Message to exchange")
	mutual := fs.Bool("mutual", false, "Require initiator authentication")
	showMetrics := fs.Bool("metrics", false, "Print collected metrics after the exchange")
	logLevel := fs.String("log-level", "info", "Log level: debug, info, warn, error, silent")
	logFormat := fs.String("log-format", "text", "Log format: text or json")
	fs.Parse(args)

	if err := runDemo(demoOptions{
		mode:        *mode,
		suite:       *suite,
		message:     *message,
		mutual:      *mutual,
		showMetrics: *showMetrics,
		logLevel:    *logLevel,
		logFormat:   *logFormat,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "demo failed: %v\n", err)
		os.Exit(1)
	}
}
