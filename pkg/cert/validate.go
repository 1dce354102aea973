package cert

import (
	"time"

	qerrors "github.com/asphaleia/asphaleia-go/internal/errors"
)

// ValidationResult reports why validation succeeded or failed. Callers must
// branch on the specific reason; validation is never a bare boolean.
type ValidationResult int

// Validation outcomes.
const (
	// ResultValid means the certificate is well-formed, in its validity
	// window, and chains to a trusted root.
	ResultValid ValidationResult = iota

	// ResultExpired means now is after the certificate's NotAfter.
	ResultExpired

	// ResultNotYetValid means now is before the certificate's NotBefore.
	ResultNotYetValid

	// ResultSignatureInvalid means the issuer signature did not verify.
	ResultSignatureInvalid

	// ResultUntrustedIssuer means no trusted root matches the issuer and no
	// chain to one could be built.
	ResultUntrustedIssuer

	// ResultMalformed means a field is structurally invalid.
	ResultMalformed
)

// String returns the result name.
func (r ValidationResult) String() string {
	switch r {
	case ResultValid:
		return "Valid"
	case ResultExpired:
		return "Expired"
	case ResultNotYetValid:
		return "NotYetValid"
	case ResultSignatureInvalid:
		return "SignatureInvalid"
	case ResultUntrustedIssuer:
		return "UntrustedIssuer"
	case ResultMalformed:
		return "Malformed"
	default:
		return "Unknown"
	}
}

// Err returns nil for ResultValid and a CertificateError carrying the
// result name otherwise.
func (r ValidationResult) Err() error {
	if r == ResultValid {
		return nil
	}
	return qerrors.NewCertificateError(r.String())
}

// maxChainDepth bounds how many intermediates a chain may traverse.
const maxChainDepth = 4

// Validate checks a certificate directly against the trusted roots at time
// now. The issuer's public key must be in roots; use ValidateChain when
// intermediates are involved.
func Validate(c *Certificate, roots *TrustStore, now time.Time) ValidationResult {
	return ValidateChain(c, nil, roots, now)
}

// ValidateChain checks a certificate against the trusted roots at time now,
// building a chain through the supplied intermediates if needed.
//
// Checks run in this order: structural well-formedness, issuer resolution,
// signature verification, then the validity window. Each intermediate link
// must itself be well-formed, correctly signed, and within its window at now.
func ValidateChain(c *Certificate, intermediates []*Certificate, roots *TrustStore, now time.Time) ValidationResult {
	if roots == nil {
		return ResultUntrustedIssuer
	}

	current := c
	for depth := 0; depth <= maxChainDepth; depth++ {
		if !current.wellFormed() {
			return ResultMalformed
		}

		// Trusted root key for this link's issuer?
		if issuerKey, ok := roots.Lookup(current.Issuer); ok {
			if !current.verifySignature(issuerKey) {
				return ResultSignatureInvalid
			}
			return checkWindow(c, now)
		}

		// Otherwise the chain continues through an intermediate.
		issuer := findIssuer(current, intermediates)
		if issuer == nil {
			return ResultUntrustedIssuer
		}
		if !issuer.wellFormed() {
			return ResultMalformed
		}
		if !current.verifySignature(issuer.PublicKey) {
			return ResultSignatureInvalid
		}
		if r := checkWindow(issuer, now); r != ResultValid {
			return r
		}
		current = issuer
	}

	return ResultUntrustedIssuer
}

// checkWindow returns the validity-window result for c at now.
func checkWindow(c *Certificate, now time.Time) ValidationResult {
	if now.Before(c.NotBefore) {
		return ResultNotYetValid
	}
	if now.After(c.NotAfter) {
		return ResultExpired
	}
	return ResultValid
}

func findIssuer(c *Certificate, intermediates []*Certificate) *Certificate {
	for _, candidate := range intermediates {
		if candidate != nil && candidate.Subject == c.Issuer && candidate != c {
			return candidate
		}
	}
	return nil
}
