package dfe

import (
	"crypto/tls"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Environment define o ambiente da SEFAZ
type Environment string

const (
	Production   Environment = "production"
	Homologation Environment = "homologation"
)

// TpAmb retorna o código tpAmb do ambiente (1=produção, 2=homologação)
func (e Environment) TpAmb() string {
	if e == Production {
		return "1"
	}
	return "2"
}

// Valid informa se o ambiente é conhecido
func (e Environment) Valid() bool {
	return e == Production || e == Homologation
}

// ParseEnvironment aceita os nomes usados na configuração fiscal e o código tpAmb
func ParseEnvironment(s string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "production", "producao", "produção", "1":
		return Production, nil
	case "homologation", "homologacao", "homologação", "test", "2":
		return Homologation, nil
	}
	return "", newValidationError("environment", "ambiente %q desconhecido", s)
}

// Identity identifica o interessado (destinatário) perante a SEFAZ
type Identity struct {
	TaxID string // CNPJ ou CPF, com ou sem máscara
	State string // sigla da UF do autor
}

// Digits retorna o documento só com dígitos, validando o tamanho (CNPJ 14 ou CPF 11)
func (i Identity) Digits() (string, error) {
	digits := onlyDigits(i.TaxID)
	if len(digits) != 14 && len(digits) != 11 {
		return "", newValidationError("taxId", "documento %q deve ter 14 (CNPJ) ou 11 (CPF) dígitos", i.TaxID)
	}
	return digits, nil
}

// taxIDTag retorna o nome do elemento XML do documento
func taxIDTag(digits string) string {
	if len(digits) == 11 {
		return "CPF"
	}
	return "CNPJ"
}

// NSUDigits é o tamanho fixo do NSU no protocolo
const NSUDigits = 15

// NSU é o número sequencial único, sempre com 15 dígitos
type NSU string

// ZeroNSU é o cursor da primeira sincronização
const ZeroNSU NSU = "000000000000000"

// ParseNSU valida e normaliza um NSU. Vazio equivale a zero.
func ParseNSU(s string) (NSU, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ZeroNSU, nil
	}
	if len(s) > NSUDigits || onlyDigits(s) != s {
		return "", newValidationError("nsu", "%q não é um inteiro não negativo de até %d dígitos", s, NSUDigits)
	}
	return NSU(strings.Repeat("0", NSUDigits-len(s)) + s), nil
}

// NSUFromUint converte um inteiro em NSU
func NSUFromUint(n uint64) (NSU, error) {
	return ParseNSU(strconv.FormatUint(n, 10))
}

// Uint retorna o valor numérico do NSU
func (n NSU) Uint() uint64 {
	v, _ := strconv.ParseUint(string(n), 10, 64)
	return v
}

// String retorna o NSU sem zeros à esquerda ("0" para o cursor inicial)
func (n NSU) String() string {
	trimmed := strings.TrimLeft(string(n), "0")
	if trimmed == "" {
		return "0"
	}
	return trimmed
}

// Padded retorna o NSU com 15 dígitos
func (n NSU) Padded() string {
	if n == "" {
		return string(ZeroNSU)
	}
	return string(n)
}

// Less compara dois NSUs
func (n NSU) Less(other NSU) bool {
	return n.Uint() < other.Uint()
}

// AccessKey é a chave de acesso de 44 dígitos de um documento fiscal
type AccessKey string

// ParseAccessKey valida a chave de acesso. Espaços de formatação são ignorados.
func ParseAccessKey(s string) (AccessKey, error) {
	digits := strings.Join(strings.Fields(s), "")
	if len(digits) != 44 || onlyDigits(digits) != digits {
		return "", newValidationError("accessKey", "chave de acesso %q deve ter 44 dígitos", s)
	}
	return AccessKey(digits), nil
}

// String retorna a chave
func (k AccessKey) String() string {
	return string(k)
}

// IssuerTaxID retorna o CNPJ do emitente contido na chave (posições 7 a 20)
func (k AccessKey) IssuerTaxID() string {
	if len(k) != 44 {
		return ""
	}
	return string(k[6:20])
}

// StateCode retorna o código da UF de emissão contido na chave
func (k AccessKey) StateCode() string {
	if len(k) != 44 {
		return ""
	}
	return string(k[:2])
}

// ManifestationKind é o tipo de evento de manifestação do destinatário
type ManifestationKind string

const (
	Confirmation ManifestationKind = "210200"
	Awareness    ManifestationKind = "210210"
	Unknown      ManifestationKind = "210220"
	NotPerformed ManifestationKind = "210240"
)

var manifestationDescriptions = map[ManifestationKind]string{
	Confirmation: "Confirmacao da Operacao",
	Awareness:    "Ciencia da Operacao",
	Unknown:      "Desconhecimento da Operacao",
	NotPerformed: "Operacao nao Realizada",
}

// ParseManifestationKind aceita o código do evento ou os nomes usados na API
func ParseManifestationKind(s string) (ManifestationKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "210200", "confirmation", "confirmacao", "confirmed":
		return Confirmation, nil
	case "210210", "awareness", "ciencia", "acknowledged":
		return Awareness, nil
	case "210220", "unknown", "desconhecimento":
		return Unknown, nil
	case "210240", "not_performed", "nao_realizada", "operation not performed":
		return NotPerformed, nil
	}
	return "", newValidationError("kind", "tipo de manifestação %q desconhecido", s)
}

// Description retorna o descEvento exigido pelo leiaute
func (k ManifestationKind) Description() string {
	return manifestationDescriptions[k]
}

// Valid informa se o tipo é conhecido
func (k ManifestationKind) Valid() bool {
	_, ok := manifestationDescriptions[k]
	return ok
}

// Credential é o certificado do cliente usado no mTLS e na assinatura dos eventos
type Credential struct {
	CertificatePEM []byte
	PrivateKeyPEM  []byte
}

// KeyPair carrega o par certificado/chave
func (c Credential) KeyPair() (tls.Certificate, error) {
	pair, err := tls.X509KeyPair(c.CertificatePEM, c.PrivateKeyPEM)
	if err != nil {
		return tls.Certificate{}, &CredentialError{Cause: err}
	}
	return pair, nil
}

// String evita que o conteúdo da credencial apareça em logs
func (c Credential) String() string {
	return fmt.Sprintf("Credential{cert:%d bytes, key:<redacted>}", len(c.CertificatePEM))
}

// GoString evita que o conteúdo da credencial apareça em logs com %#v
func (c Credential) GoString() string {
	return c.String()
}

// StatusCode é o cStat retornado pela SEFAZ
type StatusCode string

// Códigos de status relevantes para o cliente
const (
	StatusNoDocuments      StatusCode = "137"
	StatusDocumentsFound   StatusCode = "138"
	StatusOverconsumption  StatusCode = "656"
	StatusBatchProcessed   StatusCode = "128"
	StatusEventRegistered  StatusCode = "135"
	StatusEventNotLinked   StatusCode = "136"
	StatusDuplicateEvent   StatusCode = "573"
	StatusTaxIDNotAllowed  StatusCode = "593"
	StatusUnknownAccessKey StatusCode = "217"
)

// parseStatusCode valida que o cStat é numérico de 3 dígitos
func parseStatusCode(s string) (StatusCode, bool) {
	s = strings.TrimSpace(s)
	if len(s) != 3 || onlyDigits(s) != s {
		return "", false
	}
	return StatusCode(s), true
}

// Document é um docZip retornado pela distribuição
type Document struct {
	NSU     NSU
	Schema  string // ex.: resNFe_v1.01.xsd, procNFe_v4.00.xsd
	Payload string // conteúdo gzip em base64, como recebido
}

// DistributionResult é o retorno de distDFeInt
type DistributionResult struct {
	Status       StatusCode
	Message      string
	NextNSU      NSU
	MaxNSU       NSU
	ResponseTime string
	Documents    []Document
}

// InSync informa se o cursor alcançou o maior NSU disponível
func (r *DistributionResult) InSync() bool {
	return r.NextNSU.Uint() >= r.MaxNSU.Uint()
}

// HasDocuments informa se o lote trouxe documentos
func (r *DistributionResult) HasDocuments() bool {
	return len(r.Documents) > 0
}

// ManifestationResult é o retorno do envio de um evento de manifestação
type ManifestationResult struct {
	Status       StatusCode
	Message      string
	EventStatus  StatusCode
	EventMessage string
	Protocol     string
	RegisteredAt string
}

// Registered informa se a SEFAZ registrou o evento
func (r *ManifestationResult) Registered() bool {
	return r.EventStatus == StatusEventRegistered || r.EventStatus == StatusEventNotLinked
}

// ManifestationRequest agrupa os dados do evento
type ManifestationRequest struct {
	AccessKey     AccessKey
	Kind          ManifestationKind
	Justification string
	Sequence      int
	IssuedAt      time.Time
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
