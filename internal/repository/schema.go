package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// EnsureSchema 启动时建表（幂等）
// bins 为节点元数据表，telemetry 为 append-only 遥测日志
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS bins (
			id         VARCHAR(20) PRIMARY KEY,
			supervisor VARCHAR(100) NOT NULL DEFAULT '',
			lat        DOUBLE PRECISION NOT NULL DEFAULT 0,
			lon        DOUBLE PRECISION NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS telemetry (
			id         BIGSERIAL PRIMARY KEY,
			bin_id     VARCHAR(20) NOT NULL,
			fill_level INTEGER NOT NULL DEFAULT 0,
			status_msg VARCHAR(200) NOT NULL DEFAULT '',
			lat        DOUBLE PRECISION NOT NULL DEFAULT 0,
			lon        DOUBLE PRECISION NOT NULL DEFAULT 0,
			timestamp  TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_telemetry_bin_id ON telemetry (bin_id, id DESC)`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}
