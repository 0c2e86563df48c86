package controller

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/hugohenrick/nfe-dfe/internal/adapter/api/dto"
	"github.com/hugohenrick/nfe-dfe/internal/domain/branch"
	"github.com/hugohenrick/nfe-dfe/internal/domain/certificate"
	domain "github.com/hugohenrick/nfe-dfe/internal/domain/dfe"
	dfeservice "github.com/hugohenrick/nfe-dfe/internal/service/dfe"
	nfe "github.com/hugohenrick/nfe-dfe/pkg/dfe"
	"github.com/hugohenrick/nfe-dfe/pkg/logger"
	"github.com/hugohenrick/nfe-dfe/pkg/tenant"
)

// DFeService é o serviço de distribuição usado pelo controller
type DFeService interface {
	SyncBranch(ctx context.Context, p dfeservice.Partner) (*dfeservice.SyncSummary, error)
	FetchByAccessKey(ctx context.Context, p dfeservice.Partner, key nfe.AccessKey) (*nfe.DistributionResult, []*domain.ReceivedDocument, error)
	Manifest(ctx context.Context, p dfeservice.Partner, key nfe.AccessKey, kind nfe.ManifestationKind, justification string) (*domain.Manifestation, error)
	State(ctx context.Context, tenantID, branchID string, env nfe.Environment) (*domain.SyncState, error)
	Documents(ctx context.Context, tenantID, branchID string, env nfe.Environment, limit, offset int) ([]*domain.ReceivedDocument, int, error)
	Document(ctx context.Context, tenantID, branchID string, key nfe.AccessKey) (*domain.ReceivedDocument, []*domain.Manifestation, error)
}

// DFeController manipula as requisições de distribuição e manifestação de NF-e
type DFeController struct {
	service    DFeService
	branches   branch.Repository
	defaultEnv nfe.Environment
	logger     logger.Logger
}

// NewDFeController cria uma nova instância de DFeController
func NewDFeController(service DFeService, branches branch.Repository, defaultEnv nfe.Environment, logger logger.Logger) *DFeController {
	return &DFeController{
		service:    service,
		branches:   branches,
		defaultEnv: defaultEnv,
		logger:     logger,
	}
}

// @Summary Sincronizar documentos
// @Description Consulta a distribuição DF-e a partir do último NSU da filial até ficar em dia
// @Tags DF-e
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param request body dto.SyncRequest true "Filial e ambiente"
// @Success 200 {object} dfeservice.SyncSummary
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Failure 504 {object} dto.ErrorResponse
// @Router /dfe/sync [post]
func (c *DFeController) Sync(ctx *gin.Context) {
	var req dto.SyncRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(http.StatusBadRequest, "Dados inválidos", err.Error()))
		return
	}

	partner, err := c.partner(ctx, req.BranchID, req.TaxID, req.State, req.Environment)
	if err != nil {
		c.handleError(ctx, err)
		return
	}

	summary, err := c.service.SyncBranch(ctx.Request.Context(), partner)
	if err != nil {
		c.handleError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, summary)
}

// @Summary Listar documentos
// @Description Lista os documentos distribuídos para a filial, do NSU mais recente ao mais antigo
// @Tags DF-e
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param branch_id query string false "ID da filial (padrão: filial do token)"
// @Param environment query string false "Ambiente (producao|homologacao)"
// @Param page query int false "Página" default(1)
// @Param page_size query int false "Itens por página" default(10)
// @Success 200 {object} dto.DocumentListResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /dfe/documents [get]
func (c *DFeController) ListDocuments(ctx *gin.Context) {
	env, err := c.environment(ctx.Query("environment"))
	if err != nil {
		c.handleError(ctx, err)
		return
	}
	branchID, err := c.branchID(ctx, ctx.Query("branch_id"))
	if err != nil {
		c.handleError(ctx, err)
		return
	}

	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(ctx.DefaultQuery("page_size", "10"))
	pagination := dto.GetPagination(page, pageSize)
	offset := (pagination.Page - 1) * pagination.PageSize

	docs, total, err := c.service.Documents(ctx.Request.Context(), ctx.GetString("tenant_id"), branchID, env, pagination.PageSize, offset)
	if err != nil {
		c.handleError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewDocumentListResponse(docs, total, pagination))
}

// @Summary Obter documento
// @Description Retorna o XML mais completo da chave de acesso e as manifestações já enviadas
// @Tags DF-e
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param key path string true "Chave de acesso (44 dígitos)"
// @Param branch_id query string false "ID da filial (padrão: filial do token)"
// @Success 200 {object} dto.DocumentDetailResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /dfe/documents/{key} [get]
func (c *DFeController) GetDocument(ctx *gin.Context) {
	key, err := nfe.ParseAccessKey(ctx.Param("key"))
	if err != nil {
		c.handleError(ctx, err)
		return
	}
	branchID, err := c.branchID(ctx, ctx.Query("branch_id"))
	if err != nil {
		c.handleError(ctx, err)
		return
	}

	doc, manifestations, err := c.service.Document(ctx.Request.Context(), ctx.GetString("tenant_id"), branchID, key)
	if err != nil {
		c.handleError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewDocumentDetailResponse(doc, manifestations))
}

// @Summary Consultar chave de acesso
// @Description Consulta avulsa (consChNFe) de uma NF-e; não altera o NSU da filial
// @Tags DF-e
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param key path string true "Chave de acesso (44 dígitos)"
// @Param request body dto.FetchRequest false "Filial e ambiente"
// @Success 200 {object} dto.FetchResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /dfe/documents/{key}/fetch [post]
func (c *DFeController) FetchDocument(ctx *gin.Context) {
	key, err := nfe.ParseAccessKey(ctx.Param("key"))
	if err != nil {
		c.handleError(ctx, err)
		return
	}

	var req dto.FetchRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(http.StatusBadRequest, "Dados inválidos", err.Error()))
			return
		}
	}

	partner, err := c.partner(ctx, req.BranchID, "", "", req.Environment)
	if err != nil {
		c.handleError(ctx, err)
		return
	}

	result, docs, err := c.service.FetchByAccessKey(ctx.Request.Context(), partner, key)
	if err != nil {
		c.handleError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewFetchResponse(string(result.Status), result.Message, docs))
}

// @Summary Manifestar destinatário
// @Description Envia o evento de manifestação (ciencia, confirmacao, desconhecimento, nao_realizada)
// @Tags DF-e
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param key path string true "Chave de acesso (44 dígitos)"
// @Param request body dto.ManifestationRequest true "Tipo do evento"
// @Success 200 {object} dto.ManifestationResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /dfe/documents/{key}/manifestation [post]
func (c *DFeController) Manifest(ctx *gin.Context) {
	key, err := nfe.ParseAccessKey(ctx.Param("key"))
	if err != nil {
		c.handleError(ctx, err)
		return
	}

	var req dto.ManifestationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(http.StatusBadRequest, "Dados inválidos", err.Error()))
		return
	}

	kind, err := nfe.ParseManifestationKind(req.Kind)
	if err != nil {
		c.handleError(ctx, err)
		return
	}

	partner, err := c.partner(ctx, req.BranchID, "", "", req.Environment)
	if err != nil {
		c.handleError(ctx, err)
		return
	}

	m, err := c.service.Manifest(ctx.Request.Context(), partner, key, kind, req.Justification)
	if err != nil {
		c.handleError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewManifestationResponse(m))
}

// @Summary Estado da sincronização
// @Description Retorna o último NSU, o maxNSU e a janela de espera da filial
// @Tags DF-e
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param branch_id query string false "ID da filial (padrão: filial do token)"
// @Param environment query string false "Ambiente (producao|homologacao)"
// @Success 200 {object} dto.SyncStateResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /dfe/state [get]
func (c *DFeController) GetState(ctx *gin.Context) {
	env, err := c.environment(ctx.Query("environment"))
	if err != nil {
		c.handleError(ctx, err)
		return
	}
	branchID, err := c.branchID(ctx, ctx.Query("branch_id"))
	if err != nil {
		c.handleError(ctx, err)
		return
	}

	state, err := c.service.State(ctx.Request.Context(), ctx.GetString("tenant_id"), branchID, env)
	if err != nil {
		c.handleError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSyncStateResponse(state))
}

func (c *DFeController) environment(value string) (nfe.Environment, error) {
	if value == "" {
		return c.defaultEnv, nil
	}
	env, err := nfe.ParseEnvironment(value)
	if err != nil {
		return "", &nfe.ValidationError{Field: "environment", Reason: err.Error()}
	}
	return env, nil
}

// branchID usa a filial informada ou, na falta dela, a filial do token
func (c *DFeController) branchID(ctx *gin.Context, requested string) (string, error) {
	if requested != "" {
		return requested, nil
	}
	if fromToken := ctx.GetString("branch_id"); fromToken != "" {
		return fromToken, nil
	}
	return "", &nfe.ValidationError{Field: "branchId", Reason: "obrigatório"}
}

// partner monta o interessado da consulta. CNPJ e UF ausentes vêm do cadastro da filial.
func (c *DFeController) partner(ctx *gin.Context, requestedBranch, taxID, state, environment string) (dfeservice.Partner, error) {
	env, err := c.environment(environment)
	if err != nil {
		return dfeservice.Partner{}, err
	}
	branchID, err := c.branchID(ctx, requestedBranch)
	if err != nil {
		return dfeservice.Partner{}, err
	}

	tenantID := ctx.GetString("tenant_id")
	if taxID == "" || state == "" {
		b, err := c.branches.FindByTenantAndID(ctx.Request.Context(), tenantID, branchID)
		if err != nil {
			return dfeservice.Partner{}, err
		}
		if !b.IsActive() {
			return dfeservice.Partner{}, branch.ErrBranchNotActive
		}
		if taxID == "" {
			taxID = b.Document
		}
		if state == "" {
			state = b.UF()
		}
	}

	return dfeservice.Partner{
		TenantID:    tenantID,
		BranchID:    branchID,
		TaxID:       taxID,
		State:       state,
		Environment: env,
	}, nil
}

// handleError converte os erros do serviço DF-e em respostas HTTP
func (c *DFeController) handleError(ctx *gin.Context, err error) {
	status, message := errorStatus(err)
	if status >= http.StatusInternalServerError {
		c.logger.Error("falha na operação DF-e", "path", ctx.FullPath(), "status", status, "error", err)
	}
	ctx.JSON(status, dto.NewErrorResponse(status, message, err.Error()))
}

func errorStatus(err error) (int, string) {
	var (
		validationErr *nfe.ValidationError
		credentialErr *nfe.CredentialError
		transportErr  *nfe.TransportError
		parseErr      *nfe.ParseError
	)

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, "Dados inválidos"
	case errors.Is(err, dfeservice.ErrSyncInProgress):
		return http.StatusConflict, "Sincronização em andamento"
	case errors.Is(err, certificate.ErrCertificateNotFound),
		errors.Is(err, certificate.ErrCertificateExpired),
		errors.As(err, &credentialErr):
		return http.StatusUnprocessableEntity, "Certificado digital indisponível"
	case errors.Is(err, branch.ErrBranchNotActive):
		return http.StatusUnprocessableEntity, "Filial inativa"
	case errors.Is(err, branch.ErrBranchNotFound),
		errors.Is(err, tenant.ErrTenantNotFound),
		errors.Is(err, domain.ErrDocumentNotFound),
		errors.Is(err, domain.ErrSyncStateNotFound):
		return http.StatusNotFound, "Registro não encontrado"
	case errors.As(err, &transportErr):
		if transportErr.Timeout() {
			return http.StatusGatewayTimeout, "SEFAZ não respondeu a tempo"
		}
		return http.StatusBadGateway, "Falha na comunicação com a SEFAZ"
	case errors.As(err, &parseErr), errors.Is(err, domain.ErrCursorRegression):
		return http.StatusBadGateway, "Resposta inválida da SEFAZ"
	default:
		return http.StatusInternalServerError, "Erro interno"
	}
}
