package dfe

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/hugohenrick/nfe-dfe/pkg/dfe"
)

// BlockWait é a espera exigida pela SEFAZ após uma consulta sem documentos
const BlockWait = time.Hour

var (
	ErrSyncStateNotFound = errors.New("estado de sincronização não encontrado")
	ErrDocumentNotFound  = errors.New("documento não encontrado")
	ErrCursorRegression  = errors.New("ultNSU retornado é menor que o já registrado")
)

// SyncState guarda o último NSU processado por filial e ambiente
type SyncState struct {
	TenantID     string          `json:"tenant_id"`
	BranchID     string          `json:"branch_id"`
	TaxID        string          `json:"tax_id"`
	Environment  dfe.Environment `json:"environment"`
	LastNSU      dfe.NSU         `json:"last_nsu"`
	MaxNSU       dfe.NSU         `json:"max_nsu"`
	LastStatus   dfe.StatusCode  `json:"last_status"`
	LastMessage  string          `json:"last_message"`
	BlockedUntil *time.Time      `json:"blocked_until,omitempty"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// NewSyncState cria o estado inicial (NSU zero) de uma filial
func NewSyncState(tenantID, branchID, taxID string, env dfe.Environment) *SyncState {
	return &SyncState{
		TenantID:    tenantID,
		BranchID:    branchID,
		TaxID:       taxID,
		Environment: env,
		LastNSU:     dfe.ZeroNSU,
		MaxNSU:      dfe.ZeroNSU,
		UpdatedAt:   time.Now(),
	}
}

// Advance registra o resultado de uma consulta. O NSU nunca retrocede.
func (s *SyncState) Advance(result *dfe.DistributionResult, now time.Time) error {
	s.LastStatus = result.Status
	s.LastMessage = result.Message
	s.UpdatedAt = now

	switch result.Status {
	case dfe.StatusDocumentsFound:
		if result.NextNSU.Less(s.LastNSU) {
			return ErrCursorRegression
		}
		s.LastNSU = result.NextNSU
		if !result.MaxNSU.Less(s.MaxNSU) {
			s.MaxNSU = result.MaxNSU
		}
		s.BlockedUntil = nil
	case dfe.StatusNoDocuments, dfe.StatusOverconsumption:
		if s.LastNSU.Less(result.NextNSU) {
			s.LastNSU = result.NextNSU
		}
		if s.MaxNSU.Less(result.MaxNSU) {
			s.MaxNSU = result.MaxNSU
		}
		until := now.Add(BlockWait)
		s.BlockedUntil = &until
	}
	return nil
}

// Blocked indica se a filial ainda deve aguardar antes de consultar de novo
func (s *SyncState) Blocked(now time.Time) bool {
	return s.BlockedUntil != nil && now.Before(*s.BlockedUntil)
}

// ReceivedDocument é um docZip distribuído e já descompactado
type ReceivedDocument struct {
	ID          string           `json:"id"`
	TenantID    string           `json:"tenant_id"`
	BranchID    string           `json:"branch_id"`
	Environment dfe.Environment  `json:"environment"`
	NSU         dfe.NSU          `json:"nsu"`
	Schema      string           `json:"schema"`
	Kind        dfe.DocumentKind `json:"kind"`
	AccessKey   string           `json:"access_key"`
	IssuerTaxID string           `json:"issuer_tax_id"`
	IssuerName  string           `json:"issuer_name"`
	TotalValue  string           `json:"total_value"`
	IssuedAt    string           `json:"issued_at"`
	EventType   string           `json:"event_type,omitempty"`
	Content     string           `json:"-"`
	ReceivedAt  time.Time        `json:"received_at"`
}

// NewReceivedDocument decodifica o docZip e extrai os dados de identificação.
// Um XML ilegível ainda é guardado, apenas sem o resumo.
func NewReceivedDocument(tenantID, branchID string, env dfe.Environment, doc dfe.Document, now time.Time) (*ReceivedDocument, error) {
	summary, content, err := doc.Summarize()
	if content == nil {
		return nil, err
	}

	received := &ReceivedDocument{
		ID:          NewDocumentID(),
		TenantID:    tenantID,
		BranchID:    branchID,
		Environment: env,
		NSU:         doc.NSU,
		Schema:      doc.Schema,
		Kind:        doc.Kind(),
		Content:     string(content),
		ReceivedAt:  now,
	}
	if summary != nil {
		received.AccessKey = summary.AccessKey
		received.IssuerTaxID = summary.IssuerTaxID
		received.IssuerName = summary.IssuerName
		received.TotalValue = summary.TotalValue
		received.IssuedAt = summary.IssuedAt
		received.EventType = summary.EventType
	}
	return received, nil
}

// NewDocumentID gera o identificador de um documento recebido
func NewDocumentID() string {
	return uuid.New().String()
}

// Manifestation registra um evento de manifestação enviado
type Manifestation struct {
	ID            string                `json:"id"`
	TenantID      string                `json:"tenant_id"`
	BranchID      string                `json:"branch_id"`
	Environment   dfe.Environment       `json:"environment"`
	AccessKey     string                `json:"access_key"`
	Kind          dfe.ManifestationKind `json:"kind"`
	Justification string                `json:"justification,omitempty"`
	Status        dfe.StatusCode        `json:"status"`
	Message       string                `json:"message"`
	EventStatus   dfe.StatusCode        `json:"event_status,omitempty"`
	Protocol      string                `json:"protocol,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
}

// NewManifestation cria o registro a partir do retorno da SEFAZ
func NewManifestation(tenantID, branchID string, env dfe.Environment, key dfe.AccessKey, kind dfe.ManifestationKind, justification string, result *dfe.ManifestationResult, now time.Time) *Manifestation {
	return &Manifestation{
		ID:            uuid.New().String(),
		TenantID:      tenantID,
		BranchID:      branchID,
		Environment:   env,
		AccessKey:     string(key),
		Kind:          kind,
		Justification: justification,
		Status:        result.Status,
		Message:       result.Message,
		EventStatus:   result.EventStatus,
		Protocol:      result.Protocol,
		CreatedAt:     now,
	}
}

// Registered indica se o evento foi vinculado à NF-e
func (m *Manifestation) Registered() bool {
	return m.EventStatus == dfe.StatusEventRegistered || m.EventStatus == dfe.StatusEventNotLinked
}
