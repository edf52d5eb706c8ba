package tls

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"time"
)

// expiryWarning is how close to NotAfter a certificate is logged as expiring.
const expiryWarning = 30 * 24 * time.Hour

// ValidateCertificate parses the leaf of cert and checks its validity window.
func ValidateCertificate(cert *tls.Certificate, now time.Time) (*x509.Certificate, error) {
	if cert == nil {
		return nil, fmt.Errorf("certificate is nil")
	}
	if len(cert.Certificate) == 0 {
		return nil, fmt.Errorf("certificate chain is empty")
	}

	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}
	if err := ValidateX509Certificate(leaf, now); err != nil {
		return nil, err
	}
	return leaf, nil
}

// ValidateX509Certificate checks that now falls inside the certificate's
// validity window.
func ValidateX509Certificate(cert *x509.Certificate, now time.Time) error {
	if now.Before(cert.NotBefore) {
		return fmt.Errorf("certificate is not yet valid (valid from %s)", cert.NotBefore.Format(time.RFC3339))
	}
	if now.After(cert.NotAfter) {
		return fmt.Errorf("certificate expired on %s", cert.NotAfter.Format(time.RFC3339))
	}
	return nil
}

// ExpiresSoon reports whether cert expires within 30 days of now, and the
// whole days left.
func ExpiresSoon(cert *x509.Certificate, now time.Time) (bool, int) {
	left := cert.NotAfter.Sub(now)
	return left < expiryWarning, int(left.Hours() / 24)
}
