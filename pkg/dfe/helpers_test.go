package dfe

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	testCNPJ      = "12345678000195"
	testAccessKey = "35240112345678000195550010000012341000012345"
)

var (
	credentialOnce sync.Once
	testCred       Credential
	testCert       *x509.Certificate
	testKey        *rsa.PrivateKey
	credentialErr  error
)

// testCredential gera um certificado autoassinado de cliente, reutilizado pelos testes
func testCredential(t *testing.T) (Credential, *x509.Certificate, *rsa.PrivateKey) {
	t.Helper()
	credentialOnce.Do(func() {
		testKey, credentialErr = rsa.GenerateKey(rand.Reader, 2048)
		if credentialErr != nil {
			return
		}
		template := &x509.Certificate{
			SerialNumber:          big.NewInt(1),
			Subject:               pkix.Name{CommonName: "EMPRESA TESTE LTDA:" + testCNPJ},
			NotBefore:             time.Now().Add(-time.Hour),
			NotAfter:              time.Now().Add(24 * time.Hour),
			KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment | x509.KeyUsageCertSign,
			ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
			BasicConstraintsValid: true,
			IsCA:                  true,
		}
		var der []byte
		der, credentialErr = x509.CreateCertificate(rand.Reader, template, template, &testKey.PublicKey, testKey)
		if credentialErr != nil {
			return
		}
		testCert, credentialErr = x509.ParseCertificate(der)
		if credentialErr != nil {
			return
		}
		testCred = Credential{
			CertificatePEM: pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
			PrivateKeyPEM:  pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(testKey)}),
		}
	})
	require.NoError(t, credentialErr)
	return testCred, testCert, testKey
}

func testIdentity() Identity {
	return Identity{TaxID: "12.345.678/0001-95", State: "SP"}
}
