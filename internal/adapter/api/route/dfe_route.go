package route

import (
	"github.com/gin-gonic/gin"
	"github.com/hugohenrick/nfe-dfe/internal/adapter/api/controller"
	"github.com/hugohenrick/nfe-dfe/pkg/auth"
)

// SetupDFeRoutes configura as rotas de distribuição DF-e e manifestação do destinatário
func SetupDFeRoutes(router *gin.RouterGroup, dfeController *controller.DFeController) {
	dfeRouter := router.Group("/dfe")
	{
		dfeRouter.GET("/state", dfeController.GetState)
		dfeRouter.GET("/documents", dfeController.ListDocuments)
		dfeRouter.GET("/documents/:key", dfeController.GetDocument)

		// Operações que falam com a SEFAZ
		sefaz := dfeRouter.Group("")
		sefaz.Use(auth.RoleAuthMiddleware("admin", "manager", "fiscal"))
		{
			sefaz.POST("/sync", dfeController.Sync)
			sefaz.POST("/documents/:key/fetch", dfeController.FetchDocument)
			sefaz.POST("/documents/:key/manifestation", dfeController.Manifest)
		}
	}
}
