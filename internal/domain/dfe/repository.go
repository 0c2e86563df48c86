package dfe

import (
	"context"

	"github.com/hugohenrick/nfe-dfe/pkg/dfe"
)

// Repository define a persistência do DF-e no schema do tenant
type Repository interface {
	// GetState busca o estado de sincronização; ErrSyncStateNotFound se ainda não existe
	GetState(ctx context.Context, branchID string, env dfe.Environment) (*SyncState, error)

	SaveState(ctx context.Context, state *SyncState) error

	// SaveDocuments grava os documentos de uma página e o novo estado na mesma transação.
	// Com state nil grava apenas os documentos (consulta por chave).
	SaveDocuments(ctx context.Context, state *SyncState, docs []*ReceivedDocument) error

	ListDocuments(ctx context.Context, branchID string, env dfe.Environment, limit, offset int) ([]*ReceivedDocument, int, error)

	// FindDocumentByKey retorna o documento mais completo da chave (procNFe antes de resNFe)
	FindDocumentByKey(ctx context.Context, branchID string, key dfe.AccessKey) (*ReceivedDocument, error)

	SaveManifestation(ctx context.Context, m *Manifestation) error

	ListManifestations(ctx context.Context, branchID string, key dfe.AccessKey) ([]*Manifestation, error)
}
