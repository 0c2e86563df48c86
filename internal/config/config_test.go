package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hugohenrick/nfe-dfe/pkg/dfe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dfe-sync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("LOJA1_CNPJ", "12.345.678/0001-95")
	t.Setenv("DATABASE_URL", "postgres://localhost/nfe")

	path := writeConfig(t, `
database:
  url: ${DATABASE_URL}
dfe:
  timeout: 45s
  retry_backoff: 500ms
partners:
  - tenant_id: t1
    branch_id: b1
    tax_id: ${LOJA1_CNPJ}
    state: sp
    environment: producao
  - tenant_id: t1
    branch_id: b2
    tax_id: "12345678909"
    state: MG
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/nfe", cfg.Database.URL)
	assert.Equal(t, 45*time.Second, cfg.DFe.Timeout)
	assert.Equal(t, 500*time.Millisecond, cfg.DFe.RetryBackoff)
	assert.Equal(t, time.Hour, cfg.DFe.Interval)
	assert.Equal(t, 50, cfg.DFe.MaxPages)

	require.Len(t, cfg.Partners, 2)
	assert.Equal(t, "12.345.678/0001-95", cfg.Partners[0].TaxID)
	assert.Equal(t, dfe.Production, cfg.Partners[0].Environment)
	assert.Equal(t, dfe.Homologation, cfg.Partners[1].Environment)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"no partners":  "dfe:\n  timeout: 10s\n",
		"bad tax id":   "partners:\n  - {tenant_id: t1, branch_id: b1, tax_id: '123', state: SP}\n",
		"bad state":    "partners:\n  - {tenant_id: t1, branch_id: b1, tax_id: '12345678000195', state: XX}\n",
		"bad env":      "partners:\n  - {tenant_id: t1, branch_id: b1, tax_id: '12345678000195', state: SP, environment: staging}\n",
		"short period": "dfe:\n  interval: 10s\npartners:\n  - {tenant_id: t1, branch_id: b1, tax_id: '12345678000195', state: SP}\n",
		"missing ids":  "partners:\n  - {tax_id: '12345678000195', state: SP}\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, content))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nao-existe.yaml"))
	assert.Error(t, err)
}
