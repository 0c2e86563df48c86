package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/hugohenrick/nfe-dfe/internal/domain/branch"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresBranchRepository implementa a interface branch.Repository usando PostgreSQL
type PostgresBranchRepository struct {
	db *pgxpool.Pool
}

// NewPostgresBranchRepository cria uma nova instância de PostgresBranchRepository
func NewPostgresBranchRepository(db *pgxpool.Pool) *PostgresBranchRepository {
	return &PostgresBranchRepository{db: db}
}

// FindByTenantAndID implementa branch.Repository.FindByTenantAndID
func (r *PostgresBranchRepository) FindByTenantAndID(ctx context.Context, tenantID, id string) (*branch.Branch, error) {
	query := `
		SELECT id, tenant_id, name, COALESCE(document, ''), COALESCE(state, ''), status, is_main
		FROM public.branches
		WHERE tenant_id = $1 AND id = $2
	`

	b := &branch.Branch{}
	var status string
	err := r.db.QueryRow(ctx, query, tenantID, id).Scan(
		&b.ID,
		&b.TenantID,
		&b.Name,
		&b.Document,
		&b.State,
		&status,
		&b.IsMain,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, branch.ErrBranchNotFound
		}
		return nil, fmt.Errorf("falha ao buscar filial: %w", err)
	}
	b.Status = branch.Status(status)
	return b, nil
}
