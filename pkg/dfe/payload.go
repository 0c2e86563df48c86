package dfe

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"
)

// DocumentKind classifica o docZip pelo schema
type DocumentKind string

const (
	KindSummary      DocumentKind = "resNFe"
	KindInvoice      DocumentKind = "procNFe"
	KindEventSummary DocumentKind = "resEvento"
	KindEvent        DocumentKind = "procEventoNFe"
	KindOther        DocumentKind = "other"
)

// Kind retorna o tipo do documento a partir do nome do schema (ex.: resNFe_v1.01.xsd)
func (d Document) Kind() DocumentKind {
	name := d.Schema
	if i := strings.Index(name, "_"); i >= 0 {
		name = name[:i]
	}
	switch DocumentKind(name) {
	case KindSummary, KindInvoice, KindEventSummary, KindEvent:
		return DocumentKind(name)
	}
	return KindOther
}

// Decode decodifica o base64 e descompacta o gzip do docZip
func (d Document) Decode() ([]byte, error) {
	compressed, err := base64.StdEncoding.DecodeString(d.Payload)
	if err != nil {
		return nil, fmt.Errorf("docZip NSU %s com base64 inválido: %w", d.NSU, err)
	}
	reader, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("docZip NSU %s não é gzip: %w", d.NSU, err)
	}
	defer reader.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(reader, maxResponseBytes)); err != nil {
		return nil, fmt.Errorf("falha ao descompactar docZip NSU %s: %w", d.NSU, err)
	}
	return buf.Bytes(), nil
}

// DocumentSummary reúne os dados de identificação de um documento distribuído
type DocumentSummary struct {
	Kind             DocumentKind
	AccessKey        string
	IssuerTaxID      string
	IssuerName       string
	TotalValue       string
	IssuedAt         string
	Situation        string
	Protocol         string
	EventType        string
	EventDescription string
}

// Summarize decodifica o documento e extrai os campos de identificação
func (d Document) Summarize() (*DocumentSummary, []byte, error) {
	content, err := d.Decode()
	if err != nil {
		return nil, nil, err
	}
	summary, err := SummarizeXML(d.Kind(), content)
	if err != nil {
		return nil, content, err
	}
	return summary, content, nil
}

// SummarizeXML extrai os campos de identificação do XML já descompactado
func SummarizeXML(kind DocumentKind, content []byte) (*DocumentSummary, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(content); err != nil {
		return nil, fmt.Errorf("XML do documento inválido: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("XML do documento sem elemento raiz")
	}

	summary := &DocumentSummary{Kind: kind}
	switch kind {
	case KindSummary:
		summary.AccessKey = text(root, "./chNFe")
		summary.IssuerTaxID = firstText(root, "./CNPJ", "./CPF")
		summary.IssuerName = text(root, "./xNome")
		summary.TotalValue = text(root, "./vNF")
		summary.IssuedAt = text(root, "./dhEmi")
		summary.Situation = text(root, "./cSitNFe")
		summary.Protocol = text(root, "./nProt")
	case KindInvoice:
		summary.AccessKey = firstText(root, ".//protNFe/infProt/chNFe")
		if summary.AccessKey == "" {
			if inf := root.FindElement(".//infNFe"); inf != nil {
				summary.AccessKey = strings.TrimPrefix(inf.SelectAttrValue("Id", ""), "NFe")
			}
		}
		summary.IssuerTaxID = firstText(root, ".//emit/CNPJ", ".//emit/CPF")
		summary.IssuerName = text(root, ".//emit/xNome")
		summary.TotalValue = text(root, ".//total/ICMSTot/vNF")
		summary.IssuedAt = firstText(root, ".//ide/dhEmi", ".//ide/dEmi")
		summary.Protocol = text(root, ".//protNFe/infProt/nProt")
		summary.Situation = text(root, ".//protNFe/infProt/cStat")
	case KindEventSummary:
		summary.AccessKey = text(root, "./chNFe")
		summary.IssuerTaxID = firstText(root, "./CNPJ", "./CPF")
		summary.IssuedAt = text(root, "./dhEvento")
		summary.EventType = text(root, "./tpEvento")
		summary.EventDescription = text(root, "./xEvento")
		summary.Protocol = text(root, "./nProt")
	case KindEvent:
		summary.AccessKey = text(root, ".//infEvento/chNFe")
		summary.IssuerTaxID = firstText(root, ".//infEvento/CNPJ", ".//infEvento/CPF")
		summary.IssuedAt = text(root, ".//infEvento/dhEvento")
		summary.EventType = text(root, ".//infEvento/tpEvento")
		summary.EventDescription = text(root, ".//detEvento/descEvento")
		summary.Protocol = text(root, ".//retEvento/infEvento/nProt")
	default:
		summary.AccessKey = text(root, ".//chNFe")
	}
	return summary, nil
}

func text(root *etree.Element, path string) string {
	if el := root.FindElement(path); el != nil {
		return strings.TrimSpace(el.Text())
	}
	return ""
}

func firstText(root *etree.Element, paths ...string) string {
	for _, path := range paths {
		if v := text(root, path); v != "" {
			return v
		}
	}
	return ""
}
