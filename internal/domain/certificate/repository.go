package certificate

import (
	"context"
)

// Repository define as operações de repositório de certificados digitais
type Repository interface {
	// Create grava o certificado; se ativo, desativa os demais da filial
	Create(ctx context.Context, cert *Certificate) error

	// FindActiveCertificate busca o certificado ativo de uma filial
	FindActiveCertificate(ctx context.Context, branchID string) (*Certificate, error)

	// FindByBranch lista os certificados de uma filial, sem o conteúdo do PFX
	FindByBranch(ctx context.Context, branchID string) ([]*Certificate, error)
}
