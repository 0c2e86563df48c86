package repository

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/hugohenrick/nfe-dfe/internal/domain/dfe"
	"github.com/hugohenrick/nfe-dfe/pkg/dfe"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DFeRepository implementa a interface dfe.Repository no schema do tenant
type DFeRepository struct {
	db *pgxpool.Pool
}

// NewDFeRepository cria uma nova instância de DFeRepository
func NewDFeRepository(db *pgxpool.Pool) domain.Repository {
	return &DFeRepository{db: db}
}

const documentColumns = `id, tenant_id, branch_id, environment, nsu, schema_name, kind, access_key,
	issuer_tax_id, issuer_name, total_value, issued_at, event_type, content, received_at`

// GetState implementa dfe.Repository.GetState
func (r *DFeRepository) GetState(ctx context.Context, branchID string, env dfe.Environment) (*domain.SyncState, error) {
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
		SELECT tenant_id, branch_id, tax_id, environment, last_nsu, max_nsu,
			last_status, last_message, blocked_until, updated_at
		FROM %s.dfe_sync_state
		WHERE branch_id = $1 AND environment = $2
	`, schema)

	var state domain.SyncState
	err = conn.QueryRow(ctx, query, branchID, string(env)).Scan(
		&state.TenantID, &state.BranchID, &state.TaxID, &state.Environment, &state.LastNSU, &state.MaxNSU,
		&state.LastStatus, &state.LastMessage, &state.BlockedUntil, &state.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSyncStateNotFound
		}
		return nil, fmt.Errorf("falha ao buscar estado de sincronização: %w", err)
	}
	return &state, nil
}

// SaveState implementa dfe.Repository.SaveState
func (r *DFeRepository) SaveState(ctx context.Context, state *domain.SyncState) error {
	conn, err := r.db.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("falha ao adquirir conexão: %w", err)
	}
	defer conn.Release()

	schema, err := tenantSchema(ctx, conn)
	if err != nil {
		return err
	}
	return upsertState(ctx, conn, schema, state)
}

// SaveDocuments implementa dfe.Repository.SaveDocuments
func (r *DFeRepository) SaveDocuments(ctx context.Context, state *domain.SyncState, docs []*domain.ReceivedDocument) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("falha ao iniciar transação: %w", err)
	}
	defer tx.Rollback(ctx)

	schema, err := tenantSchema(ctx, tx)
	if err != nil {
		return err
	}

	insert := documentUpsertSQL(schema)

	batch := &pgx.Batch{}
	for _, d := range docs {
		batch.Queue(insert,
			d.ID, d.TenantID, d.BranchID, string(d.Environment), string(d.NSU), d.Schema, string(d.Kind), d.AccessKey,
			d.IssuerTaxID, d.IssuerName, d.TotalValue, d.IssuedAt, d.EventType, d.Content, d.ReceivedAt)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("falha ao gravar documentos: %w", err)
		}
	}

	if state != nil {
		if err := upsertState(ctx, tx, schema, state); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("falha ao confirmar transação: %w", err)
	}
	return nil
}

type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

func upsertState(ctx context.Context, db execer, schema string, state *domain.SyncState) error {
	query := fmt.Sprintf(`
		INSERT INTO %s.dfe_sync_state (
			tenant_id, branch_id, tax_id, environment, last_nsu, max_nsu,
			last_status, last_message, blocked_until, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (branch_id, environment) DO UPDATE SET
			tax_id = EXCLUDED.tax_id,
			last_nsu = EXCLUDED.last_nsu,
			max_nsu = EXCLUDED.max_nsu,
			last_status = EXCLUDED.last_status,
			last_message = EXCLUDED.last_message,
			blocked_until = EXCLUDED.blocked_until,
			updated_at = EXCLUDED.updated_at
	`, schema)

	_, err := db.Exec(ctx, query,
		state.TenantID, state.BranchID, state.TaxID, string(state.Environment), string(state.LastNSU), string(state.MaxNSU),
		string(state.LastStatus), state.LastMessage, state.BlockedUntil, state.UpdatedAt)
	if err != nil {
		return fmt.Errorf("falha ao gravar estado de sincronização: %w", err)
	}
	return nil
}

// ListDocuments implementa dfe.Repository.ListDocuments
func (r *DFeRepository) ListDocuments(ctx context.Context, branchID string, env dfe.Environment, limit, offset int) ([]*domain.ReceivedDocument, int, error) {
	conn, err := r.db.Acquire(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("falha ao adquirir conexão: %w", err)
	}
	defer conn.Release()

	schema, err := tenantSchema(ctx, conn)
	if err != nil {
		return nil, 0, err
	}

	var total int
	err = conn.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s.dfe_documents WHERE branch_id = $1 AND environment = $2", schema),
		branchID, string(env)).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("falha ao contar documentos: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM %s.dfe_documents
		WHERE branch_id = $1 AND environment = $2
		ORDER BY nsu DESC
		LIMIT $3 OFFSET $4
	`, documentColumns, schema)

	rows, err := conn.Query(ctx, query, branchID, string(env), limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("falha ao listar documentos: %w", err)
	}
	defer rows.Close()

	var docs []*domain.ReceivedDocument
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, 0, err
		}
		// a listagem não carrega o XML
		d.Content = ""
		docs = append(docs, d)
	}
	return docs, total, rows.Err()
}

// FindDocumentByKey implementa dfe.Repository.FindDocumentByKey
func (r *DFeRepository) FindDocumentByKey(ctx context.Context, branchID string, key dfe.AccessKey) (*domain.ReceivedDocument, error) {
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
		SELECT %s FROM %s.dfe_documents
		WHERE branch_id = $1 AND access_key = $2 AND kind IN ($3, $4)
		ORDER BY CASE kind WHEN $3 THEN 0 ELSE 1 END, nsu DESC
		LIMIT 1
	`, documentColumns, schema)

	d, err := scanDocument(conn.QueryRow(ctx, query, branchID, string(key), string(dfe.KindInvoice), string(dfe.KindSummary)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrDocumentNotFound
	}
	return d, err
}

// SaveManifestation implementa dfe.Repository.SaveManifestation
func (r *DFeRepository) SaveManifestation(ctx context.Context, m *domain.Manifestation) error {
	conn, err := r.db.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("falha ao adquirir conexão: %w", err)
	}
	defer conn.Release()

	schema, err := tenantSchema(ctx, conn)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s.dfe_manifestations (
			id, tenant_id, branch_id, environment, access_key, kind, justification,
			status, message, event_status, protocol, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, schema)

	_, err = conn.Exec(ctx, query,
		m.ID, m.TenantID, m.BranchID, string(m.Environment), m.AccessKey, string(m.Kind), m.Justification,
		string(m.Status), m.Message, string(m.EventStatus), m.Protocol, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("falha ao gravar manifestação: %w", err)
	}
	return nil
}

// ListManifestations implementa dfe.Repository.ListManifestations
func (r *DFeRepository) ListManifestations(ctx context.Context, branchID string, key dfe.AccessKey) ([]*domain.Manifestation, error) {
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
		SELECT id, tenant_id, branch_id, environment, access_key, kind, justification,
			status, message, event_status, protocol, created_at
		FROM %s.dfe_manifestations
		WHERE branch_id = $1 AND access_key = $2
		ORDER BY created_at
	`, schema)

	rows, err := conn.Query(ctx, query, branchID, string(key))
	if err != nil {
		return nil, fmt.Errorf("falha ao listar manifestações: %w", err)
	}
	defer rows.Close()

	var list []*domain.Manifestation
	for rows.Next() {
		var m domain.Manifestation
		if err := rows.Scan(&m.ID, &m.TenantID, &m.BranchID, &m.Environment, &m.AccessKey, &m.Kind, &m.Justification,
			&m.Status, &m.Message, &m.EventStatus, &m.Protocol, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("falha ao ler manifestação: %w", err)
		}
		list = append(list, &m)
	}
	return list, rows.Err()
}

func scanDocument(row pgx.Row) (*domain.ReceivedDocument, error) {
	var d domain.ReceivedDocument
	err := row.Scan(&d.ID, &d.TenantID, &d.BranchID, &d.Environment, &d.NSU, &d.Schema, &d.Kind, &d.AccessKey,
		&d.IssuerTaxID, &d.IssuerName, &d.TotalValue, &d.IssuedAt, &d.EventType, &d.Content, &d.ReceivedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("falha ao ler documento: %w", err)
	}
	return &d, nil
}

// documentUpsertSQL grava um docZip por NSU. A reentrega do mesmo NSU após uma falha
// apenas atualiza o registro.
func documentUpsertSQL(schema string) string {
	return fmt.Sprintf(`
		INSERT INTO %s.dfe_documents (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (branch_id, environment, nsu) DO UPDATE SET
			schema_name = EXCLUDED.schema_name,
			kind = EXCLUDED.kind,
			access_key = EXCLUDED.access_key,
			issuer_tax_id = EXCLUDED.issuer_tax_id,
			issuer_name = EXCLUDED.issuer_name,
			total_value = EXCLUDED.total_value,
			issued_at = EXCLUDED.issued_at,
			event_type = EXCLUDED.event_type,
			content = EXCLUDED.content
	`, schema, documentColumns)
}
