package database

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RunTenantMigrations cria o schema do tenant e aplica as migrações de migrationsDir nele
func RunTenantMigrations(ctx context.Context, pool *pgxpool.Pool, config *PostgresConfig, schema, migrationsDir string) error {
	if _, err := pool.Exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", pgx.Identifier{schema}.Sanitize())); err != nil {
		return fmt.Errorf("erro ao criar schema: %w", err)
	}

	dbURL, err := tenantURL(config.ConnectionString(), schema)
	if err != nil {
		return err
	}

	m, err := migrate.New("file://"+migrationsDir, dbURL)
	if err != nil {
		return fmt.Errorf("erro ao criar migrate: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("erro ao aplicar migrações no schema %s: %w", schema, err)
	}

	log.Printf("Migrações aplicadas com sucesso no schema %s", schema)
	return nil
}

// tenantURL direciona o migrate e sua tabela de controle para o schema do tenant
func tenantURL(connString, schema string) (string, error) {
	u, err := url.Parse(connString)
	if err != nil {
		return "", fmt.Errorf("DATABASE_URL inválida: %w", err)
	}
	q := u.Query()
	q.Set("search_path", schema)
	q.Set("x-migrations-table", "schema_migrations")
	u.RawQuery = q.Encode()
	return u.String(), nil
}
