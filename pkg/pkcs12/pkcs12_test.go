package pkcs12

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gopkcs12 "software.sslmate.com/src/go-pkcs12"
)

func newPFX(t *testing.T, password string) ([]byte, *x509.Certificate) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(7),
		Subject:      pkix.Name{CommonName: "SUPERMERCADO TESTE LTDA:12345678000195"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	pfx, err := gopkcs12.Modern.Encode(key, cert, nil, password)
	require.NoError(t, err)
	return pfx, cert
}

func TestToPEM(t *testing.T) {
	pfx, _ := newPFX(t, "segredo")

	blocks, err := ToPEM(pfx, "segredo")
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, "CERTIFICATE", blocks[0].Type)
	assert.Equal(t, "PRIVATE KEY", blocks[1].Type)
}

func TestToCredential(t *testing.T) {
	pfx, cert := newPFX(t, "segredo")

	credential, err := ToCredential(pfx, "segredo")
	require.NoError(t, err)

	pair, err := credential.KeyPair()
	require.NoError(t, err)
	assert.Equal(t, cert.Raw, pair.Certificate[0])
	_, ok := pair.PrivateKey.(*rsa.PrivateKey)
	assert.True(t, ok)
}

func TestToCredential_WrongPassword(t *testing.T) {
	pfx, _ := newPFX(t, "segredo")

	_, err := ToCredential(pfx, "errada")
	assert.Error(t, err)
}

func TestInspect(t *testing.T) {
	pfx, cert := newPFX(t, "segredo")

	got, err := Inspect(pfx, "segredo")
	require.NoError(t, err)
	assert.Equal(t, cert.Subject.CommonName, got.Subject.CommonName)
	assert.WithinDuration(t, cert.NotAfter, got.NotAfter, time.Second)

	_, err = Inspect([]byte("nao e pfx"), "segredo")
	assert.Error(t, err)
}
