package dfe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hugohenrick/nfe-dfe/internal/domain/certificate"
	domain "github.com/hugohenrick/nfe-dfe/internal/domain/dfe"
	nfe "github.com/hugohenrick/nfe-dfe/pkg/dfe"
	"github.com/hugohenrick/nfe-dfe/pkg/logger"
	"github.com/hugohenrick/nfe-dfe/pkg/pkcs12"
	"github.com/hugohenrick/nfe-dfe/pkg/tenant"
)

// ErrSyncInProgress indica outra sincronização em andamento para o mesmo CNPJ e ambiente
var ErrSyncInProgress = errors.New("sincronização já em andamento para este CNPJ")

// DistributionClient é o subconjunto do cliente DF-e usado pelo serviço
type DistributionClient interface {
	QueryNewDocuments(ctx context.Context, identity nfe.Identity, env nfe.Environment, last nfe.NSU, credential nfe.Credential) (*nfe.DistributionResult, error)
	QueryByAccessKey(ctx context.Context, identity nfe.Identity, env nfe.Environment, key nfe.AccessKey, credential nfe.Credential) (*nfe.DistributionResult, error)
	RegisterManifestation(ctx context.Context, identity nfe.Identity, env nfe.Environment, key nfe.AccessKey, kind nfe.ManifestationKind, justification string, credential nfe.Credential) (*nfe.ManifestationResult, error)
}

// Partner é a filial interessada nos documentos
type Partner struct {
	TenantID    string
	BranchID    string
	TaxID       string
	State       string
	Environment nfe.Environment
}

func (p Partner) identity() nfe.Identity {
	return nfe.Identity{TaxID: p.TaxID, State: p.State}
}

func (p Partner) validate() error {
	if p.TenantID == "" {
		return &nfe.ValidationError{Field: "tenantId", Reason: "obrigatório"}
	}
	if p.BranchID == "" {
		return &nfe.ValidationError{Field: "branchId", Reason: "obrigatório"}
	}
	if !p.Environment.Valid() {
		return &nfe.ValidationError{Field: "environment", Reason: fmt.Sprintf("ambiente %q desconhecido", p.Environment)}
	}
	_, err := p.identity().Digits()
	return err
}

// Config controla o laço de sincronização
type Config struct {
	// MaxPages limita as consultas por execução
	MaxPages     int
	MaxAttempts  int
	RetryBackoff time.Duration
}

// DefaultConfig retorna a configuração padrão do sincronizador
func DefaultConfig() Config {
	return Config{MaxPages: 50, MaxAttempts: 3, RetryBackoff: 2 * time.Second}
}

// SyncSummary resume uma execução de SyncBranch
type SyncSummary struct {
	BranchID     string          `json:"branch_id"`
	Environment  nfe.Environment `json:"environment"`
	StartNSU     string          `json:"start_nsu"`
	LastNSU      string          `json:"last_nsu"`
	MaxNSU       string          `json:"max_nsu"`
	Pages        int             `json:"pages"`
	Documents    int             `json:"documents"`
	Status       nfe.StatusCode  `json:"status,omitempty"`
	Message      string          `json:"message,omitempty"`
	InSync       bool            `json:"in_sync"`
	Skipped      bool            `json:"skipped"`
	BlockedUntil *time.Time      `json:"blocked_until,omitempty"`
}

// Synchronizer mantém o NSU de cada filial e persiste os documentos distribuídos
type Synchronizer struct {
	client       DistributionClient
	repo         domain.Repository
	certificates certificate.Repository
	logger       logger.Logger
	config       Config
	locks        *keyedMutex
	now          func() time.Time
	sleep        func(ctx context.Context, d time.Duration) error
}

// NewSynchronizer cria o serviço de sincronização
func NewSynchronizer(client DistributionClient, repo domain.Repository, certificates certificate.Repository, log logger.Logger, config Config) *Synchronizer {
	if config.MaxPages <= 0 {
		config.MaxPages = DefaultConfig().MaxPages
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 1
	}
	return &Synchronizer{
		client:       client,
		repo:         repo,
		certificates: certificates,
		logger:       log,
		config:       config,
		locks:        newKeyedMutex(),
		now:          time.Now,
		sleep:        sleepContext,
	}
}

// SyncBranch consulta novos documentos até alcançar o maxNSU ou a SEFAZ pedir espera
func (s *Synchronizer) SyncBranch(ctx context.Context, p Partner) (*SyncSummary, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	taxID, _ := p.identity().Digits()

	unlock, ok := s.locks.tryLock(taxID + ":" + string(p.Environment))
	if !ok {
		return nil, ErrSyncInProgress
	}
	defer unlock()

	ctx = tenant.SetTenantIDContext(ctx, p.TenantID)

	state, err := s.repo.GetState(ctx, p.BranchID, p.Environment)
	if errors.Is(err, domain.ErrSyncStateNotFound) {
		state = domain.NewSyncState(p.TenantID, p.BranchID, taxID, p.Environment)
	} else if err != nil {
		return nil, fmt.Errorf("falha ao carregar estado de sincronização: %w", err)
	}

	summary := &SyncSummary{
		BranchID:    p.BranchID,
		Environment: p.Environment,
		StartNSU:    state.LastNSU.String(),
		LastNSU:     state.LastNSU.String(),
		MaxNSU:      state.MaxNSU.String(),
	}

	if state.Blocked(s.now()) {
		s.logger.Info("sincronização adiada pela janela de espera da SEFAZ",
			"branch_id", p.BranchID, "environment", p.Environment, "blocked_until", state.BlockedUntil)
		summary.Skipped = true
		summary.BlockedUntil = state.BlockedUntil
		return summary, nil
	}

	credential, err := s.credential(ctx, p.BranchID)
	if err != nil {
		return nil, err
	}

	for summary.Pages < s.config.MaxPages {
		result, err := s.queryWithRetry(ctx, p, state.LastNSU, credential)
		if err != nil {
			return summary, err
		}
		summary.Pages++

		docs := s.receive(p, result.Documents)
		if err := state.Advance(result, s.now()); err != nil {
			s.logger.Error("cursor retornado pela SEFAZ é inconsistente",
				"branch_id", p.BranchID, "last_nsu", state.LastNSU.String(), "ultNSU", result.NextNSU.String())
			return summary, err
		}
		if err := s.repo.SaveDocuments(ctx, state, docs); err != nil {
			return summary, fmt.Errorf("falha ao gravar documentos: %w", err)
		}

		summary.Documents += len(docs)
		summary.LastNSU = state.LastNSU.String()
		summary.MaxNSU = state.MaxNSU.String()
		summary.Status = result.Status
		summary.Message = result.Message
		summary.BlockedUntil = state.BlockedUntil

		if result.Status != nfe.StatusDocumentsFound || result.InSync() {
			summary.InSync = result.InSync() &&
				(result.Status == nfe.StatusDocumentsFound || result.Status == nfe.StatusNoDocuments)
			break
		}
	}

	s.logger.Info("sincronização DF-e finalizada",
		"branch_id", p.BranchID,
		"environment", p.Environment,
		"pages", summary.Pages,
		"documents", summary.Documents,
		"ultNSU", summary.LastNSU,
		"maxNSU", summary.MaxNSU,
		"cStat", summary.Status)
	return summary, nil
}

// FetchByAccessKey busca um documento pela chave sem alterar o NSU da filial
func (s *Synchronizer) FetchByAccessKey(ctx context.Context, p Partner, key nfe.AccessKey) (*nfe.DistributionResult, []*domain.ReceivedDocument, error) {
	if err := p.validate(); err != nil {
		return nil, nil, err
	}
	ctx = tenant.SetTenantIDContext(ctx, p.TenantID)

	credential, err := s.credential(ctx, p.BranchID)
	if err != nil {
		return nil, nil, err
	}

	result, err := s.client.QueryByAccessKey(ctx, p.identity(), p.Environment, key, credential)
	if err != nil {
		return nil, nil, err
	}

	docs := s.receive(p, result.Documents)
	if len(docs) > 0 {
		if err := s.repo.SaveDocuments(ctx, nil, docs); err != nil {
			return nil, nil, fmt.Errorf("falha ao gravar documentos: %w", err)
		}
	}
	return result, docs, nil
}

// Manifest registra a manifestação do destinatário e guarda o retorno
func (s *Synchronizer) Manifest(ctx context.Context, p Partner, key nfe.AccessKey, kind nfe.ManifestationKind, justification string) (*domain.Manifestation, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	ctx = tenant.SetTenantIDContext(ctx, p.TenantID)

	credential, err := s.credential(ctx, p.BranchID)
	if err != nil {
		return nil, err
	}

	result, err := s.client.RegisterManifestation(ctx, p.identity(), p.Environment, key, kind, justification, credential)
	if err != nil {
		return nil, err
	}

	m := domain.NewManifestation(p.TenantID, p.BranchID, p.Environment, key, kind, justification, result, s.now())
	if err := s.repo.SaveManifestation(ctx, m); err != nil {
		return nil, fmt.Errorf("falha ao gravar manifestação: %w", err)
	}

	if !m.Registered() {
		s.logger.Warn("manifestação rejeitada pela SEFAZ",
			"branch_id", p.BranchID, "tpEvento", kind, "cStat", result.Status, "eventStatus", result.EventStatus)
	}
	return m, nil
}

// State retorna o estado de sincronização da filial
func (s *Synchronizer) State(ctx context.Context, tenantID, branchID string, env nfe.Environment) (*domain.SyncState, error) {
	return s.repo.GetState(tenant.SetTenantIDContext(ctx, tenantID), branchID, env)
}

// Documents lista os documentos recebidos pela filial
func (s *Synchronizer) Documents(ctx context.Context, tenantID, branchID string, env nfe.Environment, limit, offset int) ([]*domain.ReceivedDocument, int, error) {
	return s.repo.ListDocuments(tenant.SetTenantIDContext(ctx, tenantID), branchID, env, limit, offset)
}

// Document retorna o documento de uma chave e as manifestações já enviadas
func (s *Synchronizer) Document(ctx context.Context, tenantID, branchID string, key nfe.AccessKey) (*domain.ReceivedDocument, []*domain.Manifestation, error) {
	ctx = tenant.SetTenantIDContext(ctx, tenantID)
	doc, err := s.repo.FindDocumentByKey(ctx, branchID, key)
	if err != nil {
		return nil, nil, err
	}
	manifestations, err := s.repo.ListManifestations(ctx, branchID, key)
	if err != nil {
		return nil, nil, err
	}
	return doc, manifestations, nil
}

func (s *Synchronizer) credential(ctx context.Context, branchID string) (nfe.Credential, error) {
	cert, err := s.certificates.FindActiveCertificate(ctx, branchID)
	if err != nil {
		return nfe.Credential{}, err
	}
	if cert.IsExpired() {
		return nfe.Credential{}, certificate.ErrCertificateExpired
	}
	credential, err := pkcs12.ToCredential(cert.CertificateData, cert.Password)
	if err != nil {
		return nfe.Credential{}, &nfe.CredentialError{Cause: err}
	}
	return credential, nil
}

func (s *Synchronizer) queryWithRetry(ctx context.Context, p Partner, last nfe.NSU, credential nfe.Credential) (*nfe.DistributionResult, error) {
	var lastErr error
	parseRetried := false
	for attempt := 1; attempt <= s.config.MaxAttempts; attempt++ {
		result, err := s.client.QueryNewDocuments(ctx, p.identity(), p.Environment, last, credential)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !retryable(err) || attempt == s.config.MaxAttempts {
			break
		}
		// resposta ilegível tem uma única nova tentativa
		var pErr *nfe.ParseError
		if errors.As(err, &pErr) {
			if parseRetried {
				break
			}
			parseRetried = true
		}

		wait := s.config.RetryBackoff << (attempt - 1)
		s.logger.Warn("falha transitória na distribuição DF-e, nova tentativa",
			"branch_id", p.BranchID, "attempt", attempt, "wait", wait, "error", err)
		if err := s.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

// receive decodifica os docZip de uma página. Conteúdo ilegível é guardado ainda em base64.
func (s *Synchronizer) receive(p Partner, documents []nfe.Document) []*domain.ReceivedDocument {
	now := s.now()
	received := make([]*domain.ReceivedDocument, 0, len(documents))
	for _, doc := range documents {
		r, err := domain.NewReceivedDocument(p.TenantID, p.BranchID, p.Environment, doc, now)
		if err != nil {
			s.logger.Error("docZip não pôde ser descompactado", "nsu", doc.NSU.String(), "schema", doc.Schema, "error", err)
			r = &domain.ReceivedDocument{
				TenantID:    p.TenantID,
				BranchID:    p.BranchID,
				Environment: p.Environment,
				NSU:         doc.NSU,
				Schema:      doc.Schema,
				Kind:        doc.Kind(),
				Content:     doc.Payload,
				ReceivedAt:  now,
			}
			r.ID = domain.NewDocumentID()
		}
		received = append(received, r)
	}
	return received
}

func retryable(err error) bool {
	var tErr *nfe.TransportError
	if errors.As(err, &tErr) {
		return tErr.Temporary()
	}
	var pErr *nfe.ParseError
	return errors.As(err, &pErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
