package dfe

import (
	"fmt"
	"html"
	"regexp"
	"strings"
)

// Parser extrai os campos das respostas da SEFAZ
type Parser interface {
	ParseDistribution(body []byte) (*DistributionResult, error)
	ParseManifestation(body []byte) (*ManifestationResult, error)
}

// prefix aceita um prefixo de namespace opcional no nome do elemento
const prefix = `(?:[A-Za-z_][\w.-]*:)?`

func elementPattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`<` + prefix + name + `(?:\s[^>]*)?>\s*([^<]*?)\s*</` + prefix + name + `\s*>`)
}

var (
	cStatPattern     = elementPattern("cStat")
	xMotivoPattern   = elementPattern("xMotivo")
	ultNSUPattern    = elementPattern("ultNSU")
	maxNSUPattern    = elementPattern("maxNSU")
	dhRespPattern    = elementPattern("dhResp")
	nProtPattern     = elementPattern("nProt")
	dhRegPattern     = elementPattern("dhRegEvento")
	docZipPattern    = regexp.MustCompile(`<` + prefix + `docZip((?:\s[^>]*)?)>\s*([^<]*?)\s*</` + prefix + `docZip\s*>`)
	attrPattern      = regexp.MustCompile(`([\w:.-]+)\s*=\s*(?:"([^"]*)"|'([^']*)')`)
	retEventoPattern = regexp.MustCompile(`(?s)<` + prefix + `retEvento(?:\s[^>]*)?>(.*?)</` + prefix + `retEvento\s*>`)
)

// RegexParser extrai campos por expressões regulares, sem montar a árvore XML.
// O leiaute das respostas é raso e estável.
type RegexParser struct{}

// NewRegexParser cria o parser padrão
func NewRegexParser() *RegexParser {
	return &RegexParser{}
}

func firstMatch(pattern *regexp.Regexp, text string) (string, bool) {
	m := pattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return html.UnescapeString(m[1]), true
}

func parseStatus(text string, body []byte) (StatusCode, string, error) {
	raw, ok := firstMatch(cStatPattern, text)
	if !ok {
		return "", "", &ParseError{Reason: "cStat não encontrado", Snippet: snippet(body)}
	}
	status, ok := parseStatusCode(raw)
	if !ok {
		return "", "", &ParseError{Reason: fmt.Sprintf("cStat %q inválido", raw), Snippet: snippet(body)}
	}
	message, _ := firstMatch(xMotivoPattern, text)
	return status, message, nil
}

func parseCursor(pattern *regexp.Regexp, name, text string, body []byte) (NSU, error) {
	raw, ok := firstMatch(pattern, text)
	if !ok || raw == "" {
		return ZeroNSU, nil
	}
	nsu, err := ParseNSU(raw)
	if err != nil {
		return "", &ParseError{Reason: fmt.Sprintf("%s %q inválido", name, raw), Snippet: snippet(body)}
	}
	return nsu, nil
}

// ParseDistribution interpreta o retDistDFeInt
func (p *RegexParser) ParseDistribution(body []byte) (*DistributionResult, error) {
	text := string(body)

	status, message, err := parseStatus(text, body)
	if err != nil {
		return nil, err
	}

	next, err := parseCursor(ultNSUPattern, "ultNSU", text, body)
	if err != nil {
		return nil, err
	}
	maxCursor, err := parseCursor(maxNSUPattern, "maxNSU", text, body)
	if err != nil {
		return nil, err
	}
	responseTime, _ := firstMatch(dhRespPattern, text)

	result := &DistributionResult{
		Status:       status,
		Message:      message,
		NextNSU:      next,
		MaxNSU:       maxCursor,
		ResponseTime: responseTime,
		Documents:    []Document{},
	}

	for _, m := range docZipPattern.FindAllStringSubmatch(text, -1) {
		attrs := parseAttributes(m[1])
		raw, ok := attrs["NSU"]
		if !ok || strings.TrimSpace(raw) == "" {
			return nil, &ParseError{Reason: "docZip sem atributo NSU", Snippet: snippet(body)}
		}
		nsu, err := ParseNSU(raw)
		if err != nil {
			return nil, &ParseError{Reason: fmt.Sprintf("NSU do docZip %q inválido", attrs["NSU"]), Snippet: snippet(body)}
		}
		result.Documents = append(result.Documents, Document{
			NSU:     nsu,
			Schema:  attrs["schema"],
			Payload: strings.Join(strings.Fields(m[2]), ""),
		})
	}

	return result, nil
}

// ParseManifestation interpreta o retEnvEvento
func (p *RegexParser) ParseManifestation(body []byte) (*ManifestationResult, error) {
	text := string(body)

	// o cStat do lote vem antes de qualquer retEvento
	batch := text
	if loc := retEventoPattern.FindStringIndex(text); loc != nil {
		batch = text[:loc[0]]
	}
	status, message, err := parseStatus(batch, body)
	if err != nil {
		return nil, err
	}

	result := &ManifestationResult{
		Status:  status,
		Message: message,
	}

	if m := retEventoPattern.FindStringSubmatch(text); m != nil {
		event := m[1]
		eventStatus, eventMessage, err := parseStatus(event, body)
		if err != nil {
			return nil, err
		}
		result.EventStatus = eventStatus
		result.EventMessage = eventMessage
		result.Protocol, _ = firstMatch(nProtPattern, event)
		result.RegisteredAt, _ = firstMatch(dhRegPattern, event)
	}

	return result, nil
}

func parseAttributes(raw string) map[string]string {
	attrs := make(map[string]string)
	for _, loc := range attrPattern.FindAllStringSubmatchIndex(raw, -1) {
		name := raw[loc[2]:loc[3]]
		if i := strings.LastIndex(name, ":"); i >= 0 {
			name = name[i+1:]
		}
		// grupo 2 para aspas duplas, grupo 3 para aspas simples
		value := ""
		if loc[4] >= 0 {
			value = raw[loc[4]:loc[5]]
		} else if loc[6] >= 0 {
			value = raw[loc[6]:loc[7]]
		}
		attrs[name] = html.UnescapeString(value)
	}
	return attrs
}
