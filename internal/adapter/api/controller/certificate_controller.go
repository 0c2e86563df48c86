package controller

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hugohenrick/nfe-dfe/internal/adapter/api/dto"
	"github.com/hugohenrick/nfe-dfe/internal/domain/certificate"
	"github.com/hugohenrick/nfe-dfe/pkg/logger"
	"github.com/hugohenrick/nfe-dfe/pkg/pkcs12"
)

// maxCertificateSize limita o tamanho do arquivo PFX aceito
const maxCertificateSize = 1 << 20

// CertificateController manipula as requisições relacionadas a certificados digitais
type CertificateController struct {
	certificateRepo certificate.Repository
	logger          logger.Logger
}

// NewCertificateController cria uma nova instância de CertificateController
func NewCertificateController(certificateRepo certificate.Repository, logger logger.Logger) *CertificateController {
	return &CertificateController{
		certificateRepo: certificateRepo,
		logger:          logger,
	}
}

// @Summary Enviar certificado
// @Description Recebe o PFX (A1) da filial; a validade e o titular são lidos do próprio arquivo
// @Tags Certificados
// @Accept multipart/form-data
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param branch_id formData string true "ID da filial"
// @Param name formData string true "Nome do certificado"
// @Param password formData string true "Senha do PFX"
// @Param certificate formData file true "Arquivo PFX"
// @Success 201 {object} dto.CertificateResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /certificates/upload [post]
func (c *CertificateController) Upload(ctx *gin.Context) {
	var req dto.CertificateUploadRequest
	if err := ctx.ShouldBind(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(http.StatusBadRequest, "Dados inválidos", err.Error()))
		return
	}

	file, err := ctx.FormFile("certificate")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(http.StatusBadRequest, "Arquivo do certificado não fornecido", err.Error()))
		return
	}
	if file.Size > maxCertificateSize {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(http.StatusBadRequest, "Arquivo do certificado muito grande", ""))
		return
	}

	certFile, err := file.Open()
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(http.StatusBadRequest, "Erro ao abrir arquivo do certificado", err.Error()))
		return
	}
	defer certFile.Close()

	certData, err := io.ReadAll(certFile)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(http.StatusBadRequest, "Erro ao ler arquivo do certificado", err.Error()))
		return
	}

	leaf, err := pkcs12.Inspect(certData, req.Password)
	if err != nil {
		ctx.JSON(http.StatusUnprocessableEntity, dto.NewErrorResponse(http.StatusUnprocessableEntity, "Certificado ou senha inválidos", err.Error()))
		return
	}

	cert, err := certificate.NewCertificate(ctx.GetString("tenant_id"), req.BranchID, req.Name, leaf.NotAfter)
	if err != nil {
		ctx.JSON(http.StatusUnprocessableEntity, dto.NewErrorResponse(http.StatusUnprocessableEntity, "Certificado inválido", err.Error()))
		return
	}
	cert.Subject = leaf.Subject.CommonName
	if err := cert.StoreCertificateData(certData, req.Password); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(http.StatusBadRequest, "Certificado inválido", err.Error()))
		return
	}

	if err := c.certificateRepo.Create(ctx.Request.Context(), cert); err != nil {
		c.logger.Error("falha ao gravar certificado", "branch_id", req.BranchID, "error", err)
		ctx.JSON(http.StatusInternalServerError, dto.NewErrorResponse(http.StatusInternalServerError, "Erro ao gravar certificado", err.Error()))
		return
	}

	c.logger.Info("certificado digital cadastrado", "branch_id", cert.BranchID, "subject", cert.Subject, "expiration", cert.ExpirationDate)
	ctx.JSON(http.StatusCreated, dto.NewCertificateResponse(cert))
}

// @Summary Listar certificados
// @Description Lista os certificados de uma filial
// @Tags Certificados
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param branch_id query string false "ID da filial (padrão: filial do token)"
// @Success 200 {array} dto.CertificateResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /certificates [get]
func (c *CertificateController) List(ctx *gin.Context) {
	branchID := ctx.DefaultQuery("branch_id", ctx.GetString("branch_id"))
	if branchID == "" {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(http.StatusBadRequest, "Filial não informada", "informe branch_id"))
		return
	}

	certificates, err := c.certificateRepo.FindByBranch(ctx.Request.Context(), branchID)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, dto.NewErrorResponse(http.StatusInternalServerError, "Erro ao listar certificados", err.Error()))
		return
	}

	ctx.JSON(http.StatusOK, dto.NewCertificateListResponse(certificates))
}
