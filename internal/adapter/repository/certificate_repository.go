package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/hugohenrick/nfe-dfe/internal/domain/certificate"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CertificateRepository implementa a interface certificate.Repository
type CertificateRepository struct {
	db *pgxpool.Pool
}

// NewCertificateRepository cria uma nova instância de CertificateRepository
func NewCertificateRepository(db *pgxpool.Pool) certificate.Repository {
	return &CertificateRepository{db: db}
}

// Create implementa o método Create da interface certificate.Repository
func (r *CertificateRepository) Create(ctx context.Context, cert *certificate.Certificate) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("falha ao iniciar transação: %w", err)
	}
	defer tx.Rollback(ctx)

	schema, err := tenantSchema(ctx, tx)
	if err != nil {
		return err
	}

	// apenas um certificado ativo por filial
	if cert.IsActive {
		_, err = tx.Exec(ctx, fmt.Sprintf("UPDATE %s.branch_certificates SET is_active = false, updated_at = $2 WHERE branch_id = $1 AND is_active = true", schema),
			cert.BranchID, cert.UpdatedAt)
		if err != nil {
			return fmt.Errorf("falha ao desativar certificados existentes: %w", err)
		}
	}

	query := fmt.Sprintf(`
		INSERT INTO %s.branch_certificates (
			id, tenant_id, branch_id, name, subject, certificate_data,
			password, expiration_date, is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, schema)

	_, err = tx.Exec(ctx, query,
		cert.ID, cert.TenantID, cert.BranchID, cert.Name, cert.Subject, cert.CertificateData,
		cert.Password, cert.ExpirationDate, cert.IsActive, cert.CreatedAt, cert.UpdatedAt)
	if err != nil {
		return fmt.Errorf("falha ao inserir certificado: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("falha ao confirmar transação: %w", err)
	}
	return nil
}

// FindActiveCertificate implementa o método FindActiveCertificate da interface certificate.Repository
func (r *CertificateRepository) FindActiveCertificate(ctx context.Context, branchID string) (*certificate.Certificate, error) {
	conn, err := r.db.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("falha ao adquirir conexão: %w", err)
	}
	defer conn.Release()

	schema, err := tenantSchema(ctx, conn)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT
			id, tenant_id, branch_id, name, subject, certificate_data,
			password, expiration_date, is_active, created_at, updated_at
		FROM %s.branch_certificates
		WHERE branch_id = $1 AND is_active = true
		ORDER BY created_at DESC
		LIMIT 1
	`, schema)

	var cert certificate.Certificate
	err = conn.QueryRow(ctx, query, branchID).Scan(
		&cert.ID, &cert.TenantID, &cert.BranchID, &cert.Name, &cert.Subject, &cert.CertificateData,
		&cert.Password, &cert.ExpirationDate, &cert.IsActive, &cert.CreatedAt, &cert.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, certificate.ErrCertificateNotFound
		}
		return nil, fmt.Errorf("falha ao buscar certificado ativo: %w", err)
	}

	return &cert, nil
}

// FindByBranch implementa o método FindByBranch da interface certificate.Repository
func (r *CertificateRepository) FindByBranch(ctx context.Context, branchID string) ([]*certificate.Certificate, error) {
	conn, err := r.db.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("falha ao adquirir conexão: %w", err)
	}
	defer conn.Release()

	schema, err := tenantSchema(ctx, conn)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT id, tenant_id, branch_id, name, subject, expiration_date, is_active, created_at, updated_at
		FROM %s.branch_certificates
		WHERE branch_id = $1
		ORDER BY created_at DESC
	`, schema)

	rows, err := conn.Query(ctx, query, branchID)
	if err != nil {
		return nil, fmt.Errorf("falha ao listar certificados: %w", err)
	}
	defer rows.Close()

	var certs []*certificate.Certificate
	for rows.Next() {
		var cert certificate.Certificate
		if err := rows.Scan(&cert.ID, &cert.TenantID, &cert.BranchID, &cert.Name, &cert.Subject,
			&cert.ExpirationDate, &cert.IsActive, &cert.CreatedAt, &cert.UpdatedAt); err != nil {
			return nil, fmt.Errorf("falha ao ler certificado: %w", err)
		}
		certs = append(certs, &cert)
	}
	return certs, rows.Err()
}
