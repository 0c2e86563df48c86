package certificate

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrCertificateNotFound = errors.New("nenhum certificado ativo para a filial")
	ErrCertificateExpired  = errors.New("certificado digital expirado")
)

// Certificate é o e-CNPJ (A1) da filial usado na comunicação com a SEFAZ
type Certificate struct {
	ID              string    `json:"id"`
	TenantID        string    `json:"tenant_id"`
	BranchID        string    `json:"branch_id"`
	Name            string    `json:"name"`
	Subject         string    `json:"subject"`
	CertificateData []byte    `json:"-"`
	Password        string    `json:"-"`
	ExpirationDate  time.Time `json:"expiration_date"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewCertificate cria um novo certificado digital
func NewCertificate(tenantID, branchID, name string, expirationDate time.Time) (*Certificate, error) {
	if tenantID == "" {
		return nil, errors.New("tenant ID é obrigatório")
	}
	if branchID == "" {
		return nil, errors.New("branch ID é obrigatório")
	}
	if name == "" {
		return nil, errors.New("nome do certificado é obrigatório")
	}
	if expirationDate.Before(time.Now()) {
		return nil, ErrCertificateExpired
	}

	now := time.Now()
	return &Certificate{
		ID:             uuid.New().String(),
		TenantID:       tenantID,
		BranchID:       branchID,
		Name:           name,
		ExpirationDate: expirationDate,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// StoreCertificateData armazena o conteúdo do PFX e sua senha
func (c *Certificate) StoreCertificateData(data []byte, password string) error {
	if len(data) == 0 {
		return errors.New("dados do certificado não podem estar vazios")
	}
	if password == "" {
		return errors.New("senha do certificado é obrigatória")
	}

	c.CertificateData = data
	c.Password = password
	c.UpdatedAt = time.Now()
	return nil
}

// IsExpired verifica se o certificado está expirado
func (c *Certificate) IsExpired() bool {
	return time.Now().After(c.ExpirationDate)
}
