package route

import (
	"github.com/gin-gonic/gin"
	"github.com/hugohenrick/nfe-dfe/internal/adapter/api/controller"
)

// SetupCertificateRoutes configura as rotas para o módulo de certificados digitais.
// O grupo recebido já deve ter os middlewares de JWT e tenant.
func SetupCertificateRoutes(router *gin.RouterGroup, certificateController *controller.CertificateController) {
	certificateRouter := router.Group("/certificates")
	{
		certificateRouter.GET("", certificateController.List)
		certificateRouter.POST("/upload", certificateController.Upload)
	}
}
