package repository

import (
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
)

func TestDocumentUpsertSQL(t *testing.T) {
	query := documentUpsertSQL(pgx.Identifier{"tenant_abc"}.Sanitize())

	assert.Contains(t, query, `INSERT INTO "tenant_abc".dfe_documents`)
	assert.Contains(t, query, "ON CONFLICT (branch_id, environment, nsu) DO UPDATE SET")
	assert.NotContains(t, query, "DO NOTHING")
	assert.Contains(t, query, "content = EXCLUDED.content")
	// received_at do primeiro recebimento é preservado
	assert.NotContains(t, query, "received_at = EXCLUDED")
	assert.Equal(t, 15, strings.Count(query, "$"))
}
