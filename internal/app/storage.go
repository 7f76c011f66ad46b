package app

import (
	"context"
	"database/sql"
	"fmt"

	"draftly/internal/config"
	"draftly/internal/logger"
	"draftly/internal/repository"
	"draftly/internal/repository/memory"
	"draftly/internal/repository/postgres"
	"draftly/internal/repository/sqlite"
)

// storage bundles the repositories of the selected backend.
type storage struct {
	users  repository.UserRepository
	drafts repository.DraftRepository
	close  func() error
}

// openStorage picks postgres when DATABASE_URL is set, sqlite when
// SQLITE_PATH is set, and in-memory repositories otherwise. Schemas are
// created or migrated before returning.
func openStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) (*storage, error) {
	switch cfg.StorageDriver() {
	case "postgres":
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to reach database: %w", err)
		}
		if err := postgres.InitializeDatabase(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		log.Info("Using PostgreSQL repositories")
		return &storage{
			users:  postgres.NewPostgresUserRepository(db),
			drafts: postgres.NewPostgresDraftRepository(db),
			close:  db.Close,
		}, nil

	case "sqlite":
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		log.Info("Using SQLite repositories at", cfg.SQLitePath)
		return &storage{
			users:  sqlite.NewUserRepository(db),
			drafts: sqlite.NewDraftRepository(db),
			close:  db.Close,
		}, nil

	default:
		log.Info("Using in-memory repositories")
		return &storage{
			users:  memory.NewInMemoryUserRepository(),
			drafts: memory.NewInMemoryDraftRepository(),
			close:  func() error { return nil },
		}, nil
	}
}
