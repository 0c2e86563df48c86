package dfe

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/base64"
	"fmt"

	"github.com/beevik/etree"
	"github.com/moov-io/signedxml"
)

const (
	dsigNamespace      = "http://www.w3.org/2000/09/xmldsig#"
	c14nAlgorithm      = "http://www.w3.org/TR/2001/REC-xml-c14n-20010315"
	envelopedAlgorithm = "http://www.w3.org/2000/09/xmldsig#enveloped-signature"
	rsaSHA1Algorithm   = "http://www.w3.org/2000/09/xmldsig#rsa-sha1"
	sha1Algorithm      = "http://www.w3.org/2000/09/xmldsig#sha1"
)

// EventSigner assina o infEvento com o certificado do interessado (XML-DSig enveloped)
type EventSigner struct {
	key  *rsa.PrivateKey
	cert *x509.Certificate
}

// NewEventSigner carrega a chave RSA e o certificado da credencial
func NewEventSigner(credential Credential) (*EventSigner, error) {
	pair, err := credential.KeyPair()
	if err != nil {
		return nil, &ValidationError{Field: "credential", Reason: err.Error()}
	}
	key, ok := pair.PrivateKey.(*rsa.PrivateKey)
	if !ok {
		return nil, newValidationError("credential", "a chave privada deve ser RSA")
	}
	cert, err := x509.ParseCertificate(pair.Certificate[0])
	if err != nil {
		return nil, newValidationError("credential", "certificado ilegível: %v", err)
	}
	return &EventSigner{key: key, cert: cert}, nil
}

// Sign adiciona uma Signature após cada infEvento do envEvento
func (s *EventSigner) Sign(body string) (string, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(body); err != nil {
		return "", fmt.Errorf("falha ao ler evento para assinatura: %w", err)
	}

	events := doc.FindElements("//infEvento")
	if len(events) == 0 {
		return "", fmt.Errorf("infEvento não encontrado")
	}

	for _, infEvento := range events {
		sig, err := s.signElement(infEvento)
		if err != nil {
			return "", err
		}
		infEvento.Parent().AddChild(sig)
	}

	signed, err := doc.WriteToString()
	if err != nil {
		return "", fmt.Errorf("falha ao serializar evento assinado: %w", err)
	}
	return signed, nil
}

func (s *EventSigner) signElement(elem *etree.Element) (*etree.Element, error) {
	id := elem.SelectAttrValue("Id", "")
	if id == "" {
		return nil, fmt.Errorf("infEvento sem atributo Id")
	}

	// o namespace herdado precisa estar no próprio elemento para a canonicalização
	if elem.SelectAttr("xmlns") == nil {
		elem.CreateAttr("xmlns", NFeNamespace)
	}

	canonicalizer := signedxml.ExclusiveCanonicalization{WithComments: false}
	canonical, err := canonicalizer.ProcessElement(elem, "")
	if err != nil {
		return nil, fmt.Errorf("falha ao canonicalizar infEvento: %w", err)
	}
	digest := sha1.Sum([]byte(canonical))

	sig := etree.NewElement("Signature")
	sig.CreateAttr("xmlns", dsigNamespace)

	signedInfo := sig.CreateElement("SignedInfo")
	signedInfo.CreateAttr("xmlns", dsigNamespace)
	signedInfo.CreateElement("CanonicalizationMethod").CreateAttr("Algorithm", c14nAlgorithm)
	signedInfo.CreateElement("SignatureMethod").CreateAttr("Algorithm", rsaSHA1Algorithm)

	ref := signedInfo.CreateElement("Reference")
	ref.CreateAttr("URI", "#"+id)
	transforms := ref.CreateElement("Transforms")
	transforms.CreateElement("Transform").CreateAttr("Algorithm", envelopedAlgorithm)
	transforms.CreateElement("Transform").CreateAttr("Algorithm", c14nAlgorithm)
	ref.CreateElement("DigestMethod").CreateAttr("Algorithm", sha1Algorithm)
	ref.CreateElement("DigestValue").SetText(base64.StdEncoding.EncodeToString(digest[:]))

	canonicalSignedInfo, err := canonicalizer.ProcessElement(signedInfo, "")
	if err != nil {
		return nil, fmt.Errorf("falha ao canonicalizar SignedInfo: %w", err)
	}
	hashed := sha1.Sum([]byte(canonicalSignedInfo))

	signature, err := rsa.SignPKCS1v15(rand.Reader, s.key, crypto.SHA1, hashed[:])
	if err != nil {
		return nil, fmt.Errorf("falha ao assinar evento: %w", err)
	}

	sig.CreateElement("SignatureValue").SetText(base64.StdEncoding.EncodeToString(signature))
	keyInfo := sig.CreateElement("KeyInfo")
	keyInfo.CreateElement("X509Data").CreateElement("X509Certificate").
		SetText(base64.StdEncoding.EncodeToString(s.cert.Raw))

	return sig, nil
}
