package branch

import (
	"errors"
	"strings"
)

var (
	ErrBranchNotFound  = errors.New("filial não encontrada")
	ErrBranchNotActive = errors.New("filial não está ativa")
)

// Status representa o estado da filial
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusBlocked  Status = "blocked"
)

// Branch é a filial destinatária das NF-e, com o CNPJ e a UF usados na consulta DF-e
type Branch struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	Name     string `json:"name"`
	Document string `json:"document"` // CNPJ da filial
	State    string `json:"state"`
	Status   Status `json:"status"`
	IsMain   bool   `json:"is_main"`
}

// IsActive verifica se a filial está ativa
func (b *Branch) IsActive() bool {
	return b.Status == StatusActive
}

// UF retorna a sigla do estado em maiúsculas
func (b *Branch) UF() string {
	return strings.ToUpper(strings.TrimSpace(b.State))
}
