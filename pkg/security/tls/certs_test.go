package tls

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeKeyPair writes a self-signed certificate for cn valid over
// [notBefore, notAfter] and returns the file paths.
func writeKeyPair(t *testing.T, dir, cn string, notBefore, notAfter time.Time) (string, string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      pkix.Name{CommonName: cn},
		NotBefore:    notBefore,
		NotAfter:     notAfter,
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	certFile := filepath.Join(dir, "server.crt")
	keyFile := filepath.Join(dir, "server.key")
	require.NoError(t, os.WriteFile(certFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600))
	require.NoError(t, os.WriteFile(keyFile, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0o600))
	return certFile, keyFile
}

func TestValidateCertificate(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name      string
		notBefore time.Time
		notAfter  time.Time
		wantErr   string
	}{
		{name: "valid", notBefore: now.Add(-time.Hour), notAfter: now.Add(365 * 24 * time.Hour)},
		{name: "expired", notBefore: now.Add(-48 * time.Hour), notAfter: now.Add(-24 * time.Hour), wantErr: "expired"},
		{name: "not yet valid", notBefore: now.Add(24 * time.Hour), notAfter: now.Add(48 * time.Hour), wantErr: "not yet valid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			certFile, keyFile := writeKeyPair(t, t.TempDir(), "lendrules", tt.notBefore, tt.notAfter)
			pair, err := tls.LoadX509KeyPair(certFile, keyFile)
			require.NoError(t, err)

			leaf, err := ValidateCertificate(&pair, now)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "lendrules", leaf.Subject.CommonName)
		})
	}

	_, err := ValidateCertificate(nil, now)
	assert.Error(t, err)
	_, err = ValidateCertificate(&tls.Certificate{}, now)
	assert.Error(t, err)
}

func TestExpiresSoon(t *testing.T) {
	now := time.Now()
	soon, days := ExpiresSoon(&x509.Certificate{NotAfter: now.Add(10*24*time.Hour + time.Hour)}, now)
	assert.True(t, soon)
	assert.Equal(t, 10, days)

	soon, _ = ExpiresSoon(&x509.Certificate{NotAfter: now.Add(90 * 24 * time.Hour)}, now)
	assert.False(t, soon)
}

func TestParseMinVersion(t *testing.T) {
	v, err := ParseMinVersion("")
	require.NoError(t, err)
	assert.Equal(t, uint16(tls.VersionTLS13), v)

	v, err = ParseMinVersion("1.2")
	require.NoError(t, err)
	assert.Equal(t, uint16(tls.VersionTLS12), v)

	_, err = ParseMinVersion("1.0")
	assert.Error(t, err)
}

func TestCertificateReloader(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	certFile, keyFile := writeKeyPair(t, dir, "first", now.Add(-time.Hour), now.Add(24*time.Hour))

	r := NewCertificateReloader(certFile, keyFile, 0, nil)
	require.NoError(t, r.Start(context.Background()))
	assert.Equal(t, "first", r.GetCertificate().Leaf.Subject.CommonName)
	assert.False(t, r.needsReload())

	cfg, err := r.TLSConfig("1.2")
	require.NoError(t, err)
	got, err := cfg.GetCertificate(nil)
	require.NoError(t, err)
	assert.Equal(t, "first", got.Leaf.Subject.CommonName)

	// A renewed pair is picked up once the files change.
	writeKeyPair(t, dir, "second", now.Add(-time.Hour), now.Add(24*time.Hour))
	later := now.Add(time.Minute)
	require.NoError(t, os.Chtimes(certFile, later, later))
	require.NoError(t, os.Chtimes(keyFile, later, later))
	require.True(t, r.needsReload())
	require.NoError(t, r.reload())
	assert.Equal(t, "second", r.GetCertificate().Leaf.Subject.CommonName)

	// An expired renewal is rejected and the current certificate kept.
	writeKeyPair(t, dir, "expired", now.Add(-48*time.Hour), now.Add(-24*time.Hour))
	assert.Error(t, r.reload())
	assert.Equal(t, "second", r.GetCertificate().Leaf.Subject.CommonName)
}

func TestCertificateReloader_MissingFiles(t *testing.T) {
	r := NewCertificateReloader("/nonexistent/server.crt", "/nonexistent/server.key", time.Minute, nil)
	assert.Error(t, r.Start(context.Background()))
}
