package pkcs12

import (
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/hugohenrick/nfe-dfe/pkg/dfe"
	"software.sslmate.com/src/go-pkcs12"
)

// ErrEmptyCertificate indica um arquivo PFX sem certificado
var ErrEmptyCertificate = errors.New("arquivo PFX sem certificado")

// ToPEM converte um certificado PKCS12 para blocos PEM
func ToPEM(pfxData []byte, password string) ([]*pem.Block, error) {
	privateKey, certificate, caCerts, err := pkcs12.DecodeChain(pfxData, password)
	if err != nil {
		return nil, err
	}

	var blocks []*pem.Block
	if certificate != nil {
		blocks = append(blocks, &pem.Block{Type: "CERTIFICATE", Bytes: certificate.Raw})
	}

	// cadeia da autoridade certificadora
	for _, cert := range caCerts {
		blocks = append(blocks, &pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})
	}

	if privateKey != nil {
		pkData, err := x509.MarshalPKCS8PrivateKey(privateKey)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, &pem.Block{Type: "PRIVATE KEY", Bytes: pkData})
	}

	return blocks, nil
}

// ToCredential converte o PFX do e-CNPJ na credencial usada pelo cliente DF-e
func ToCredential(pfxData []byte, password string) (dfe.Credential, error) {
	blocks, err := ToPEM(pfxData, password)
	if err != nil {
		return dfe.Credential{}, fmt.Errorf("falha ao abrir certificado PFX: %w", err)
	}

	var credential dfe.Credential
	for _, block := range blocks {
		switch block.Type {
		case "CERTIFICATE":
			credential.CertificatePEM = append(credential.CertificatePEM, pem.EncodeToMemory(block)...)
		case "PRIVATE KEY":
			credential.PrivateKeyPEM = pem.EncodeToMemory(block)
		}
	}
	if len(credential.CertificatePEM) == 0 {
		return dfe.Credential{}, ErrEmptyCertificate
	}
	if len(credential.PrivateKeyPEM) == 0 {
		return dfe.Credential{}, errors.New("arquivo PFX sem chave privada")
	}
	return credential, nil
}

// Inspect retorna o certificado principal do PFX, usado para validar o upload
func Inspect(pfxData []byte, password string) (*x509.Certificate, error) {
	_, certificate, _, err := pkcs12.DecodeChain(pfxData, password)
	if err != nil {
		return nil, fmt.Errorf("falha ao abrir certificado PFX: %w", err)
	}
	if certificate == nil {
		return nil, ErrEmptyCertificate
	}
	return certificate, nil
}
