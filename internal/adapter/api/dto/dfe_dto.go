package dto

import (
	"time"

	domain "github.com/hugohenrick/nfe-dfe/internal/domain/dfe"
)

// SyncRequest representa o pedido de sincronização de uma filial.
// CNPJ e UF, quando omitidos, vêm do cadastro da filial.
type SyncRequest struct {
	BranchID    string `json:"branch_id"`
	TaxID       string `json:"tax_id,omitempty"`
	State       string `json:"state,omitempty"`
	Environment string `json:"environment,omitempty"`
}

// FetchRequest representa a consulta avulsa de uma chave de acesso
type FetchRequest struct {
	BranchID    string `json:"branch_id"`
	Environment string `json:"environment,omitempty"`
}

// ManifestationRequest representa o envio de um evento de manifestação do destinatário
type ManifestationRequest struct {
	BranchID      string `json:"branch_id"`
	Environment   string `json:"environment,omitempty"`
	Kind          string `json:"kind" binding:"required"`
	Justification string `json:"justification,omitempty"`
}

// SyncStateResponse representa o estado de sincronização de uma filial
type SyncStateResponse struct {
	BranchID     string     `json:"branch_id"`
	Environment  string     `json:"environment"`
	LastNSU      string     `json:"last_nsu"`
	MaxNSU       string     `json:"max_nsu"`
	LastStatus   string     `json:"last_status,omitempty"`
	LastMessage  string     `json:"last_message,omitempty"`
	BlockedUntil *time.Time `json:"blocked_until,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// NewSyncStateResponse cria um SyncStateResponse a partir do estado
func NewSyncStateResponse(s *domain.SyncState) *SyncStateResponse {
	return &SyncStateResponse{
		BranchID:     s.BranchID,
		Environment:  string(s.Environment),
		LastNSU:      s.LastNSU.String(),
		MaxNSU:       s.MaxNSU.String(),
		LastStatus:   string(s.LastStatus),
		LastMessage:  s.LastMessage,
		BlockedUntil: s.BlockedUntil,
		UpdatedAt:    s.UpdatedAt,
	}
}

// DocumentResponse representa um documento distribuído
type DocumentResponse struct {
	ID          string    `json:"id"`
	NSU         string    `json:"nsu"`
	Schema      string    `json:"schema"`
	Kind        string    `json:"kind"`
	AccessKey   string    `json:"access_key,omitempty"`
	IssuerTaxID string    `json:"issuer_tax_id,omitempty"`
	IssuerName  string    `json:"issuer_name,omitempty"`
	TotalValue  string    `json:"total_value,omitempty"`
	IssuedAt    string    `json:"issued_at,omitempty"`
	EventType   string    `json:"event_type,omitempty"`
	ReceivedAt  time.Time `json:"received_at"`
	XML         string    `json:"xml,omitempty"`
}

// NewDocumentResponse cria um DocumentResponse; o XML só é incluído se carregado
func NewDocumentResponse(d *domain.ReceivedDocument) *DocumentResponse {
	return &DocumentResponse{
		ID:          d.ID,
		NSU:         d.NSU.String(),
		Schema:      d.Schema,
		Kind:        string(d.Kind),
		AccessKey:   d.AccessKey,
		IssuerTaxID: d.IssuerTaxID,
		IssuerName:  d.IssuerName,
		TotalValue:  d.TotalValue,
		IssuedAt:    d.IssuedAt,
		EventType:   d.EventType,
		ReceivedAt:  d.ReceivedAt,
		XML:         d.Content,
	}
}

// DocumentListResponse representa a listagem paginada de documentos
type DocumentListResponse struct {
	Documents  []DocumentResponse `json:"documents"`
	Total      int                `json:"total"`
	Page       int                `json:"page"`
	PageSize   int                `json:"page_size"`
	TotalPages int                `json:"total_pages"`
}

// NewDocumentListResponse cria a resposta paginada
func NewDocumentListResponse(docs []*domain.ReceivedDocument, total int, p Pagination) *DocumentListResponse {
	response := &DocumentListResponse{
		Documents:  make([]DocumentResponse, 0, len(docs)),
		Total:      total,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: calculateTotalPages(total, p.PageSize),
	}
	for _, d := range docs {
		response.Documents = append(response.Documents, *NewDocumentResponse(d))
	}
	return response
}

// ManifestationResponse representa o retorno de um evento de manifestação
type ManifestationResponse struct {
	ID            string    `json:"id"`
	AccessKey     string    `json:"access_key"`
	Kind          string    `json:"kind"`
	Description   string    `json:"description"`
	Justification string    `json:"justification,omitempty"`
	Status        string    `json:"status"`
	Message       string    `json:"message"`
	EventStatus   string    `json:"event_status,omitempty"`
	Protocol      string    `json:"protocol,omitempty"`
	Registered    bool      `json:"registered"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewManifestationResponse cria um ManifestationResponse
func NewManifestationResponse(m *domain.Manifestation) *ManifestationResponse {
	return &ManifestationResponse{
		ID:            m.ID,
		AccessKey:     m.AccessKey,
		Kind:          string(m.Kind),
		Description:   m.Kind.Description(),
		Justification: m.Justification,
		Status:        string(m.Status),
		Message:       m.Message,
		EventStatus:   string(m.EventStatus),
		Protocol:      m.Protocol,
		Registered:    m.Registered(),
		CreatedAt:     m.CreatedAt,
	}
}

// DocumentDetailResponse representa um documento e as manifestações já enviadas para a chave
type DocumentDetailResponse struct {
	Document       *DocumentResponse       `json:"document"`
	Manifestations []ManifestationResponse `json:"manifestations"`
}

// NewDocumentDetailResponse cria um DocumentDetailResponse
func NewDocumentDetailResponse(d *domain.ReceivedDocument, ms []*domain.Manifestation) *DocumentDetailResponse {
	response := &DocumentDetailResponse{
		Document:       NewDocumentResponse(d),
		Manifestations: make([]ManifestationResponse, 0, len(ms)),
	}
	for _, m := range ms {
		response.Manifestations = append(response.Manifestations, *NewManifestationResponse(m))
	}
	return response
}

// FetchResponse representa o retorno da consulta por chave de acesso
type FetchResponse struct {
	Status    string             `json:"status"`
	Message   string             `json:"message"`
	Documents []DocumentResponse `json:"documents"`
}

// NewFetchResponse cria um FetchResponse
func NewFetchResponse(status, message string, docs []*domain.ReceivedDocument) *FetchResponse {
	response := &FetchResponse{
		Status:    status,
		Message:   message,
		Documents: make([]DocumentResponse, 0, len(docs)),
	}
	for _, d := range docs {
		response.Documents = append(response.Documents, *NewDocumentResponse(d))
	}
	return response
}
