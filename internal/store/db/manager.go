// Package db opens the Postgres record store, applies embedded migrations,
// and hands out repositories bound to the shared connection pool.
package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/keepsake-app/keepsake/internal/store/displaydata"
	"github.com/keepsake-app/keepsake/internal/store/gifts"
	"github.com/keepsake-app/keepsake/internal/store/migrations"
	"github.com/keepsake-app/keepsake/internal/store/relationships"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

type Manager struct {
	db            *sql.DB
	gifts         gifts.Repository
	relationships relationships.Repository
	displayData   displaydata.Repository
}

func (m *Manager) Conn() *sql.DB { return m.db }

func (m *Manager) Gifts() gifts.Repository { return m.gifts }

func (m *Manager) Relationships() relationships.Repository { return m.relationships }

func (m *Manager) DisplayData() displaydata.Repository { return m.displayData }

func (m *Manager) Close() error { return m.db.Close() }

// RunMigrations applies the embedded goose migration set.
func (m *Manager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	return goose.UpContext(ctx, m.db, ".")
}

// NewManager opens the store via the pgx stdlib driver. When migrate is
// true, the embedded migration set is applied first; device agents open with
// migrate=false since schema ownership stays with the server.
func NewManager(ctx context.Context, dsn string, migrate bool) (*Manager, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	m := &Manager{
		db:            db,
		gifts:         gifts.NewPostgresRepository(db),
		relationships: relationships.NewPostgresRepository(db),
		displayData:   displaydata.NewPostgresRepository(db),
	}

	if migrate {
		if err := m.RunMigrations(ctx); err != nil {
			return nil, fmt.Errorf("migration error: %w", err)
		}
	}

	return m, nil
}
