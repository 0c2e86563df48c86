package dto

import (
	"time"

	"github.com/hugohenrick/nfe-dfe/internal/domain/certificate"
)

// CertificateUploadRequest representa os campos do formulário de upload do PFX
type CertificateUploadRequest struct {
	BranchID string `form:"branch_id" binding:"required"`
	Name     string `form:"name" binding:"required"`
	Password string `form:"password" binding:"required"`
}

// CertificateResponse representa a resposta com dados de um certificado
type CertificateResponse struct {
	ID             string    `json:"id"`
	BranchID       string    `json:"branch_id"`
	Name           string    `json:"name"`
	Subject        string    `json:"subject"`
	ExpirationDate time.Time `json:"expiration_date"`
	IsActive       bool      `json:"is_active"`
	IsExpired      bool      `json:"is_expired"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewCertificateResponse cria um novo CertificateResponse a partir de um certificado
func NewCertificateResponse(cert *certificate.Certificate) *CertificateResponse {
	return &CertificateResponse{
		ID:             cert.ID,
		BranchID:       cert.BranchID,
		Name:           cert.Name,
		Subject:        cert.Subject,
		ExpirationDate: cert.ExpirationDate,
		IsActive:       cert.IsActive,
		IsExpired:      cert.IsExpired(),
		CreatedAt:      cert.CreatedAt,
		UpdatedAt:      cert.UpdatedAt,
	}
}

// NewCertificateListResponse cria a lista de certificados de uma filial
func NewCertificateListResponse(certificates []*certificate.Certificate) []CertificateResponse {
	response := make([]CertificateResponse, 0, len(certificates))
	for _, cert := range certificates {
		response = append(response, *NewCertificateResponse(cert))
	}
	return response
}
