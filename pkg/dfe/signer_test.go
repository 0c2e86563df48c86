package dfe

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha1"
	"encoding/base64"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/moov-io/signedxml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedEvent(t *testing.T) *etree.Document {
	t.Helper()
	cred, _, _ := testCredential(t)

	body, err := BuildManifestationBody(testIdentity(), Homologation, ManifestationRequest{
		AccessKey: testAccessKey,
		Kind:      Awareness,
		IssuedAt:  time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	signer, err := NewEventSigner(cred)
	require.NoError(t, err)
	signed, err := signer.Sign(body)
	require.NoError(t, err)

	return parseXML(t, signed)
}

func TestEventSigner_Structure(t *testing.T) {
	doc := signedEvent(t)

	sig := doc.FindElement("//evento/Signature")
	require.NotNil(t, sig)
	assert.Equal(t, dsigNamespace, sig.SelectAttrValue("xmlns", ""))
	assert.Equal(t, "#ID210210"+testAccessKey+"01", sig.FindElement("SignedInfo/Reference").SelectAttrValue("URI", ""))
	assert.Equal(t, c14nAlgorithm, sig.FindElement("SignedInfo/CanonicalizationMethod").SelectAttrValue("Algorithm", ""))
	assert.Equal(t, rsaSHA1Algorithm, sig.FindElement("SignedInfo/SignatureMethod").SelectAttrValue("Algorithm", ""))
	assert.Len(t, sig.FindElements("SignedInfo/Reference/Transforms/Transform"), 2)
	assert.NotEmpty(t, sig.FindElement("KeyInfo/X509Data/X509Certificate").Text())

	// a assinatura fica depois do infEvento, dentro do evento
	children := doc.FindElement("//evento").ChildElements()
	require.Len(t, children, 2)
	assert.Equal(t, "infEvento", children[0].Tag)
	assert.Equal(t, "Signature", children[1].Tag)
}

func TestEventSigner_Verifies(t *testing.T) {
	_, cert, _ := testCredential(t)
	doc := signedEvent(t)
	canonicalizer := signedxml.ExclusiveCanonicalization{}

	inf := doc.FindElement("//infEvento")
	canonical, err := canonicalizer.ProcessElement(inf, "")
	require.NoError(t, err)
	digest := sha1.Sum([]byte(canonical))
	assert.Equal(t, base64.StdEncoding.EncodeToString(digest[:]), doc.FindElement("//DigestValue").Text())

	signedInfo := doc.FindElement("//Signature/SignedInfo")
	canonicalInfo, err := canonicalizer.ProcessElement(signedInfo, "")
	require.NoError(t, err)
	hashed := sha1.Sum([]byte(canonicalInfo))

	signature, err := base64.StdEncoding.DecodeString(doc.FindElement("//SignatureValue").Text())
	require.NoError(t, err)

	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	require.True(t, ok)
	assert.NoError(t, rsa.VerifyPKCS1v15(pub, crypto.SHA1, hashed[:], signature))
}

func TestEventSigner_TamperedEventFailsDigest(t *testing.T) {
	doc := signedEvent(t)

	inf := doc.FindElement("//infEvento")
	inf.FindElement("tpEvento").SetText(string(Unknown))
	canonicalizer := signedxml.ExclusiveCanonicalization{}
	canonical, err := canonicalizer.ProcessElement(inf, "")
	require.NoError(t, err)
	digest := sha1.Sum([]byte(canonical))

	assert.NotEqual(t, base64.StdEncoding.EncodeToString(digest[:]), doc.FindElement("//DigestValue").Text())
}

func TestNewEventSigner_InvalidCredential(t *testing.T) {
	_, err := NewEventSigner(Credential{CertificatePEM: []byte("x"), PrivateKeyPEM: []byte("y")})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "credential", vErr.Field)
}

func TestEventSigner_RejectsBodyWithoutEvent(t *testing.T) {
	cred, _, _ := testCredential(t)
	signer, err := NewEventSigner(cred)
	require.NoError(t, err)

	_, err = signer.Sign(`<envEvento xmlns="http://www.portalfiscal.inf.br/nfe"/>`)
	assert.Error(t, err)

	_, err = signer.Sign(`<envEvento><evento><infEvento>`)
	assert.Error(t, err)
}
