package migrations

import (
	"context"
	"fmt"
	"strings"

	"autoyield-vault/internal/storage/postgres"
)

// RunPostgresMigrations creates the operation journal schema. Every file is
// idempotent and runs on each start.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) error {
	files, err := sqlFiles(PostgresFS, "postgres")
	if err != nil {
		return err
	}
	for _, m := range files {
		if strings.TrimSpace(m.sql) == "" {
			continue
		}
		if _, err := pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("apply migration %s: %w", m.name, err)
		}
	}
	return nil
}
