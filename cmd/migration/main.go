package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/hugohenrick/nfe-dfe/internal/adapter/repository"
	"github.com/hugohenrick/nfe-dfe/internal/infrastructure/database"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	migrationsDir := flag.String("dir", "migrations/tenant", "diretório das migrações dos schemas de tenant")
	flag.Parse()

	// Carregar variáveis de ambiente
	if err := godotenv.Load(); err != nil {
		log.Printf("Aviso: Arquivo .env não encontrado: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	config := database.NewPostgresConfigFromEnv()
	db, err := database.NewPostgresDB(ctx, config)
	if err != nil {
		log.Fatalf("Erro ao conectar com o banco de dados: %v", err)
	}
	defer db.Close()

	if err := runPublicMigrations(ctx, db); err != nil {
		log.Fatalf("Erro ao executar migrações: %v", err)
	}

	schemas, err := repository.NewTenantRepository(db).ActiveSchemas(ctx)
	if err != nil {
		log.Fatalf("Erro ao listar tenants: %v", err)
	}
	for _, s := range schemas {
		if err := database.RunTenantMigrations(ctx, db, config, s.Schema, *migrationsDir); err != nil {
			log.Fatalf("Erro ao migrar tenant %s: %v", s.TenantID, err)
		}
	}

	log.Printf("Migrações executadas com sucesso! (%d tenants)", len(schemas))
}

// publicMigrations cria as tabelas compartilhadas consultadas pela API
var publicMigrations = []migration{
	{
		version: "001_init_schema",
		up: `
			-- Tabela de tenants (empresas)
			CREATE TABLE IF NOT EXISTS tenants (
				id UUID PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				document VARCHAR(20) UNIQUE NOT NULL,
				status VARCHAR(20) NOT NULL,
				schema VARCHAR(50) NOT NULL,
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_tenants_status ON tenants(status);
		`,
	},
	{
		version: "002_create_branches",
		up: `
			-- Filiais destinatárias: CNPJ e UF usados na distribuição DF-e
			CREATE TABLE IF NOT EXISTS branches (
				id UUID PRIMARY KEY,
				tenant_id UUID NOT NULL REFERENCES tenants(id),
				name VARCHAR(255) NOT NULL,
				document VARCHAR(20),
				state VARCHAR(2),
				status VARCHAR(20) NOT NULL,
				is_main BOOLEAN NOT NULL DEFAULT false,
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_branches_tenant_id ON branches(tenant_id);
		`,
	},
}

func runPublicMigrations(ctx context.Context, db *pgxpool.Pool) error {
	conn, err := db.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("erro ao obter conexão: %w", err)
	}
	defer conn.Release()

	if err := createMigrationsTable(ctx, conn); err != nil {
		return fmt.Errorf("erro ao criar tabela de migrações: %w", err)
	}

	lastMigration, err := getLastMigration(ctx, conn)
	if err != nil {
		return fmt.Errorf("erro ao verificar última migração: %w", err)
	}
	log.Printf("Última migração executada: %s", lastMigration)

	for _, m := range publicMigrations {
		if m.version <= lastMigration {
			log.Printf("Pulando migração %s (já executada)", m.version)
			continue
		}

		log.Printf("Executando migração %s", m.version)
		if err := applyMigration(ctx, conn, m); err != nil {
			return err
		}
		log.Printf("Migração %s executada com sucesso", m.version)
	}
	return nil
}

func applyMigration(ctx context.Context, conn *pgxpool.Conn, m migration) error {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("erro ao iniciar transação: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, m.up); err != nil {
		return fmt.Errorf("erro ao executar migração %s: %w", m.version, err)
	}
	if _, err := tx.Exec(ctx,
		"INSERT INTO public.migrations (version, executed_at) VALUES ($1, $2)",
		m.version, time.Now()); err != nil {
		return fmt.Errorf("erro ao registrar migração %s: %w", m.version, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("erro ao fazer commit da migração %s: %w", m.version, err)
	}
	return nil
}

func createMigrationsTable(ctx context.Context, conn *pgxpool.Conn) error {
	query := `
		CREATE TABLE IF NOT EXISTS public.migrations (
			version VARCHAR(100) PRIMARY KEY,
			executed_at TIMESTAMP NOT NULL
		)
	`
	_, err := conn.Exec(ctx, query)
	return err
}

func getLastMigration(ctx context.Context, conn *pgxpool.Conn) (string, error) {
	var version string
	err := conn.QueryRow(ctx,
		"SELECT version FROM public.migrations ORDER BY version DESC LIMIT 1").Scan(&version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return version, nil
}

type migration struct {
	version string
	up      string
}
