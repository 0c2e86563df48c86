package dfe

import (
	"fmt"
	"strings"
	"time"
)

// Namespaces e versões de leiaute
const (
	NFeNamespace          = "http://www.portalfiscal.inf.br/nfe"
	soap12Namespace       = "http://www.w3.org/2003/05/soap-envelope"
	distributionWSDL      = "http://www.portalfiscal.inf.br/nfe/wsdl/NFeDistribuicaoDFe"
	eventWSDL             = "http://www.portalfiscal.inf.br/nfe/wsdl/NFeRecepcaoEvento4"
	distributionVersion   = "1.01"
	eventVersion          = "1.00"
	nationalEnvironmentUF = "91"
	eventTimeLayout       = "2006-01-02T15:04:05-07:00"
	maxJustification      = 255
)

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// escapeXML escapa o texto antes da interpolação no XML
func escapeXML(s string) string {
	return xmlEscaper.Replace(s)
}

// distributionHeader monta tpAmb, cUFAutor e CNPJ/CPF comuns às consultas de distribuição
func distributionHeader(identity Identity, env Environment) (string, error) {
	if !env.Valid() {
		return "", newValidationError("environment", "ambiente %q desconhecido", env)
	}
	taxID, err := identity.Digits()
	if err != nil {
		return "", err
	}
	tag := taxIDTag(taxID)
	return fmt.Sprintf("<tpAmb>%s</tpAmb><cUFAutor>%s</cUFAutor><%s>%s</%s>",
		env.TpAmb(), StateCode(identity.State), tag, escapeXML(taxID), tag), nil
}

func distributionBody(header, query string) string {
	return fmt.Sprintf(`<distDFeInt xmlns="%s" versao="%s">%s%s</distDFeInt>`,
		NFeNamespace, distributionVersion, header, query)
}

// BuildSyncBody monta a consulta distNSU (documentos posteriores ao último NSU)
func BuildSyncBody(identity Identity, env Environment, last NSU) (string, error) {
	header, err := distributionHeader(identity, env)
	if err != nil {
		return "", err
	}
	nsu, err := ParseNSU(string(last))
	if err != nil {
		return "", err
	}
	return distributionBody(header, fmt.Sprintf("<distNSU><ultNSU>%s</ultNSU></distNSU>", nsu.Padded())), nil
}

// BuildNSUBody monta a consulta consNSU (um único NSU)
func BuildNSUBody(identity Identity, env Environment, target NSU) (string, error) {
	header, err := distributionHeader(identity, env)
	if err != nil {
		return "", err
	}
	nsu, err := ParseNSU(string(target))
	if err != nil {
		return "", err
	}
	return distributionBody(header, fmt.Sprintf("<consNSU><NSU>%s</NSU></consNSU>", nsu.Padded())), nil
}

// BuildAccessKeyBody monta a consulta consChNFe (documento por chave de acesso)
func BuildAccessKeyBody(identity Identity, env Environment, key AccessKey) (string, error) {
	header, err := distributionHeader(identity, env)
	if err != nil {
		return "", err
	}
	parsed, err := ParseAccessKey(string(key))
	if err != nil {
		return "", err
	}
	return distributionBody(header, fmt.Sprintf("<consChNFe><chNFe>%s</chNFe></consChNFe>", escapeXML(string(parsed)))), nil
}

// EventID monta o atributo Id do infEvento: "ID" + tpEvento + chave + sequência (2 dígitos)
func EventID(kind ManifestationKind, key AccessKey, sequence int) string {
	return fmt.Sprintf("ID%s%s%02d", kind, key, sequence)
}

// BuildManifestationBody monta o envEvento com um único evento de manifestação.
// A obrigatoriedade da justificativa é validada pela SEFAZ, não aqui.
func BuildManifestationBody(identity Identity, env Environment, req ManifestationRequest) (string, error) {
	if !env.Valid() {
		return "", newValidationError("environment", "ambiente %q desconhecido", env)
	}
	taxID, err := identity.Digits()
	if err != nil {
		return "", err
	}
	key, err := ParseAccessKey(string(req.AccessKey))
	if err != nil {
		return "", err
	}
	if !req.Kind.Valid() {
		return "", newValidationError("kind", "tipo de manifestação %q desconhecido", req.Kind)
	}
	sequence := req.Sequence
	if sequence == 0 {
		sequence = 1
	}
	if sequence < 1 || sequence > 20 {
		return "", newValidationError("sequence", "sequência %d fora do intervalo 1-20", sequence)
	}
	justification := req.Justification
	if len([]rune(justification)) > maxJustification {
		return "", newValidationError("justification", "justificativa excede %d caracteres", maxJustification)
	}
	issuedAt := req.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = time.Now()
	}

	var det strings.Builder
	fmt.Fprintf(&det, `<detEvento versao="%s"><descEvento>%s</descEvento>`, eventVersion, req.Kind.Description())
	// o texto vai sem alteração; espaços só decidem se há justificativa
	if strings.TrimSpace(justification) != "" {
		fmt.Fprintf(&det, "<xJust>%s</xJust>", escapeXML(justification))
	}
	det.WriteString("</detEvento>")

	tag := taxIDTag(taxID)
	infEvento := fmt.Sprintf(
		`<infEvento Id="%s"><cOrgao>%s</cOrgao><tpAmb>%s</tpAmb><%s>%s</%s><chNFe>%s</chNFe>`+
			`<dhEvento>%s</dhEvento><tpEvento>%s</tpEvento><nSeqEvento>%d</nSeqEvento>`+
			`<verEvento>%s</verEvento>%s</infEvento>`,
		EventID(req.Kind, key, sequence), nationalEnvironmentUF, env.TpAmb(),
		tag, escapeXML(taxID), tag, escapeXML(string(key)),
		issuedAt.Format(eventTimeLayout), req.Kind, sequence,
		eventVersion, det.String())

	return fmt.Sprintf(`<envEvento xmlns="%s" versao="%s"><idLote>%s</idLote><evento versao="%s">%s</evento></envEvento>`,
		NFeNamespace, eventVersion, issuedAt.Format("20060102150405"), eventVersion, infEvento), nil
}

// Operation identifica o serviço SOAP chamado
type Operation int

const (
	OperationDistribution Operation = iota
	OperationEvent
)

// WrapEnvelope envolve o corpo no envelope SOAP 1.2 do serviço
func WrapEnvelope(body string, op Operation) string {
	var content string
	switch op {
	case OperationEvent:
		content = fmt.Sprintf(`<nfeDadosMsg xmlns="%s">%s</nfeDadosMsg>`, eventWSDL, body)
	default:
		content = fmt.Sprintf(`<nfeDistDFeInteresse xmlns="%s"><nfeDadosMsg>%s</nfeDadosMsg></nfeDistDFeInteresse>`, distributionWSDL, body)
	}
	return `<?xml version="1.0" encoding="utf-8"?>` +
		`<soap12:Envelope xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xmlns:xsd="http://www.w3.org/2001/XMLSchema" xmlns:soap12="` + soap12Namespace + `">` +
		`<soap12:Header/><soap12:Body>` + content + `</soap12:Body></soap12:Envelope>`
}
