package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hugohenrick/nfe-dfe/docs"
	"github.com/hugohenrick/nfe-dfe/internal/adapter/api/controller"
	"github.com/hugohenrick/nfe-dfe/internal/adapter/api/route"
	"github.com/hugohenrick/nfe-dfe/internal/adapter/repository"
	"github.com/hugohenrick/nfe-dfe/internal/infrastructure/database"
	dfeservice "github.com/hugohenrick/nfe-dfe/internal/service/dfe"
	"github.com/hugohenrick/nfe-dfe/pkg/auth"
	"github.com/hugohenrick/nfe-dfe/pkg/branch"
	nfe "github.com/hugohenrick/nfe-dfe/pkg/dfe"
	"github.com/hugohenrick/nfe-dfe/pkg/logger"
	"github.com/hugohenrick/nfe-dfe/pkg/tenant"
	"github.com/jackc/pgx/v5/pgxpool"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// App representa a aplicação e suas dependências
type App struct {
	router                *gin.Engine
	db                    *pgxpool.Pool
	logger                logger.Logger
	jwtService            *auth.JWTService
	tenantRepository      *repository.TenantRepository
	dfeController         *controller.DFeController
	certificateController *controller.CertificateController
}

// NewApp cria uma nova instância do aplicativo
func NewApp(ctx context.Context) (*App, error) {
	log := logger.NewLogger()

	// Configurar banco de dados
	db, err := database.NewPostgresDB(ctx, database.NewPostgresConfigFromEnv())
	if err != nil {
		return nil, err
	}

	jwtService, err := auth.NewJWTServiceFromEnv()
	if err != nil {
		db.Close()
		return nil, err
	}

	defaultEnv, err := nfe.ParseEnvironment(getEnv("DFE_ENVIRONMENT", string(nfe.Homologation)))
	if err != nil {
		db.Close()
		return nil, err
	}

	// Criar repositórios
	tenantRepo := repository.NewTenantRepository(db)
	branchRepo := repository.NewPostgresBranchRepository(db)
	certificateRepo := repository.NewCertificateRepository(db)
	dfeRepo := repository.NewDFeRepository(db)

	// Cliente da SEFAZ e serviço de sincronização
	client := nfe.NewClient(
		nfe.WithLogger(log),
		nfe.WithTransport(nfe.NewHTTPSTransport(httpsConfigFromEnv())),
	)
	synchronizer := dfeservice.NewSynchronizer(client, dfeRepo, certificateRepo, log, dfeservice.DefaultConfig())

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(cors.New(corsConfig()))

	return &App{
		router:                router,
		db:                    db,
		logger:                log,
		jwtService:            jwtService,
		tenantRepository:      tenantRepo,
		dfeController:         controller.NewDFeController(synchronizer, branchRepo, defaultEnv, log),
		certificateController: controller.NewCertificateController(certificateRepo, log),
	}, nil
}

// SetupRoutes configura as rotas da aplicação
func (a *App) SetupRoutes(basePath string) {
	docs.SwaggerInfo.BasePath = basePath
	a.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := a.router.Group(basePath)

	// Health check
	api.GET("/health", func(c *gin.Context) {
		status := http.StatusOK
		dbStatus := "ok"
		if err := a.db.Ping(c.Request.Context()); err != nil {
			status = http.StatusServiceUnavailable
			dbStatus = err.Error()
		}
		c.JSON(status, gin.H{
			"status":   http.StatusText(status),
			"database": dbStatus,
			"version":  "1.0.0",
		})
	})

	// Rotas autenticadas: JWT e depois validação do tenant do token
	protected := api.Group("")
	protected.Use(auth.JWTAuthMiddleware(a.jwtService))
	protected.Use(tenant.TenantMiddleware(a.tenantRepository))
	protected.Use(branch.BranchMiddleware())

	route.SetupDFeRoutes(protected, a.dfeController)
	route.SetupCertificateRoutes(protected, a.certificateController)
}

// Start inicia o servidor HTTP e o encerra quando ctx é cancelado
func (a *App) Start(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("servidor HTTP iniciado", "addr", addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.logger.Info("encerrando servidor HTTP")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("erro ao encerrar servidor: %w", err)
	}
	return nil
}

// Close libera os recursos da aplicação
func (a *App) Close() {
	if a.db != nil {
		a.db.Close()
	}
}

func httpsConfigFromEnv() *nfe.HTTPSConfig {
	config := nfe.DefaultHTTPSConfig()
	if seconds, err := strconv.Atoi(getEnv("DFE_TIMEOUT_SECONDS", "")); err == nil && seconds > 0 {
		config.Timeout = time.Duration(seconds) * time.Second
	}
	return config
}

func corsConfig() cors.Config {
	config := cors.DefaultConfig()
	config.AllowHeaders = append(config.AllowHeaders, "Authorization", "tenant-id", "branch-id")
	if origins := getEnv("CORS_ALLOWED_ORIGINS", ""); origins != "" {
		config.AllowOrigins = strings.Split(origins, ",")
	} else {
		config.AllowAllOrigins = true
	}
	return config
}
