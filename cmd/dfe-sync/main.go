package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hugohenrick/nfe-dfe/internal/adapter/repository"
	"github.com/hugohenrick/nfe-dfe/internal/config"
	"github.com/hugohenrick/nfe-dfe/internal/infrastructure/database"
	dfeservice "github.com/hugohenrick/nfe-dfe/internal/service/dfe"
	nfe "github.com/hugohenrick/nfe-dfe/pkg/dfe"
	"github.com/hugohenrick/nfe-dfe/pkg/logger"
	"github.com/joho/godotenv"
)

func main() {
	configPath := flag.String("config", "dfe-sync.yaml", "arquivo de configuração do worker")
	once := flag.Bool("once", false, "executa uma única rodada e encerra")
	flag.Parse()

	// Carregar variáveis de ambiente usadas na expansão do YAML
	if err := godotenv.Load(); err != nil {
		log.Printf("Aviso: Arquivo .env não encontrado: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Erro ao carregar configuração: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbConfig := database.NewPostgresConfigFromEnv()
	if cfg.Database.URL != "" {
		dbConfig.URL = cfg.Database.URL
	}
	db, err := database.NewPostgresDB(ctx, dbConfig)
	if err != nil {
		log.Fatalf("Erro ao conectar com o banco de dados: %v", err)
	}
	defer db.Close()

	appLogger := logger.NewLogger()

	httpsConfig := nfe.DefaultHTTPSConfig()
	httpsConfig.Timeout = cfg.DFe.Timeout
	client := nfe.NewClient(
		nfe.WithLogger(appLogger),
		nfe.WithTransport(nfe.NewHTTPSTransport(httpsConfig)),
	)

	synchronizer := dfeservice.NewSynchronizer(
		client,
		repository.NewDFeRepository(db),
		repository.NewCertificateRepository(db),
		appLogger,
		dfeservice.Config{
			MaxPages:     cfg.DFe.MaxPages,
			MaxAttempts:  cfg.DFe.MaxAttempts,
			RetryBackoff: cfg.DFe.RetryBackoff,
		},
	)

	w := newWorker(synchronizer, partners(cfg), cfg.DFe.Concurrency, appLogger)
	if *once {
		w.runOnce(ctx)
		return
	}
	w.run(ctx, cfg.DFe.Interval)
}

func partners(cfg *config.Config) []dfeservice.Partner {
	result := make([]dfeservice.Partner, 0, len(cfg.Partners))
	for _, p := range cfg.Partners {
		result = append(result, dfeservice.Partner{
			TenantID:    p.TenantID,
			BranchID:    p.BranchID,
			TaxID:       p.TaxID,
			State:       p.State,
			Environment: p.Environment,
		})
	}
	return result
}
