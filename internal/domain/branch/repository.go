package branch

import (
	"context"
)

// Repository define as consultas de filiais usadas pela sincronização
type Repository interface {
	// FindByTenantAndID busca uma filial pelo ID do tenant e ID da filial
	FindByTenantAndID(ctx context.Context, tenantID, id string) (*Branch, error)
}
