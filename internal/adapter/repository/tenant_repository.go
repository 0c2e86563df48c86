package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/hugohenrick/nfe-dfe/pkg/tenant"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const tenantStatusActive = "active"

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// tenantSchema resolve o schema do tenant do contexto, já escapado para uso em SQL
func tenantSchema(ctx context.Context, q rowQuerier) (string, error) {
	tenantID := tenant.GetTenantIDFromContext(ctx)
	if tenantID == "" {
		return "", tenant.ErrTenantNotSpecified
	}

	var schema string
	err := q.QueryRow(ctx, "SELECT schema FROM public.tenants WHERE id = $1", tenantID).Scan(&schema)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", tenant.ErrTenantNotFound
		}
		return "", fmt.Errorf("falha ao obter schema do tenant: %w", err)
	}
	return pgx.Identifier{schema}.Sanitize(), nil
}

// TenantSchema associa um tenant ao seu schema
type TenantSchema struct {
	TenantID string
	Schema   string
}

// TenantRepository consulta a tabela pública de tenants
type TenantRepository struct {
	db *pgxpool.Pool
}

// NewTenantRepository cria uma nova instância de TenantRepository
func NewTenantRepository(db *pgxpool.Pool) *TenantRepository {
	return &TenantRepository{db: db}
}

// ValidateTenant verifica se um tenant existe e está ativo
func (r *TenantRepository) ValidateTenant(ctx context.Context, tenantID string) (bool, error) {
	var status string
	err := r.db.QueryRow(ctx, "SELECT status FROM public.tenants WHERE id = $1", tenantID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("falha ao buscar tenant: %w", err)
	}
	return status == tenantStatusActive, nil
}

// ActiveSchemas lista os schemas dos tenants ativos
func (r *TenantRepository) ActiveSchemas(ctx context.Context) ([]TenantSchema, error) {
	rows, err := r.db.Query(ctx, "SELECT id, schema FROM public.tenants WHERE status = $1 ORDER BY schema", tenantStatusActive)
	if err != nil {
		return nil, fmt.Errorf("falha ao listar tenants: %w", err)
	}
	defer rows.Close()

	var schemas []TenantSchema
	for rows.Next() {
		var s TenantSchema
		if err := rows.Scan(&s.TenantID, &s.Schema); err != nil {
			return nil, fmt.Errorf("falha ao ler tenant: %w", err)
		}
		schemas = append(schemas, s)
	}
	return schemas, rows.Err()
}
