package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/STARTUPinnovator/smartbin/internal/domain"
)

// PostgresBinsRepo bins 表的 PostgreSQL 实现
type PostgresBinsRepo struct {
	db *sql.DB
}

func NewPostgresBinsRepo(db *sql.DB) *PostgresBinsRepo {
	return &PostgresBinsRepo{db: db}
}

// 确保实现了接口
var _ BinsRepo = (*PostgresBinsRepo)(nil)

// UpsertBin whole-record 覆盖：并发写入同一 id 时由数据库串行化，last-committed wins
func (r *PostgresBinsRepo) UpsertBin(ctx context.Context, bin domain.Bin) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO bins (id, supervisor, lat, lon)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id)
		 DO UPDATE SET supervisor = EXCLUDED.supervisor,
		               lat = EXCLUDED.lat,
		               lon = EXCLUDED.lon`,
		bin.ID, bin.Supervisor, bin.Lat, bin.Lon,
	)
	if err != nil {
		return domain.NewStorageError("upsert bin", err)
	}
	return nil
}

func (r *PostgresBinsRepo) GetBin(ctx context.Context, id string) (*domain.Bin, error) {
	var b domain.Bin
	err := r.db.QueryRowContext(ctx,
		`SELECT id, supervisor, lat, lon, created_at FROM bins WHERE id = $1`,
		id,
	).Scan(&b.ID, &b.Supervisor, &b.Lat, &b.Lon, &b.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("bin not found: %s", id)
		}
		return nil, domain.NewStorageError("get bin", err)
	}
	return &b, nil
}

func (r *PostgresBinsRepo) ListBins(ctx context.Context) ([]domain.Bin, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, supervisor, lat, lon, created_at FROM bins ORDER BY id`,
	)
	if err != nil {
		return nil, domain.NewStorageError("list bins", err)
	}
	defer rows.Close()

	bins := []domain.Bin{}
	for rows.Next() {
		var b domain.Bin
		if err := rows.Scan(&b.ID, &b.Supervisor, &b.Lat, &b.Lon, &b.CreatedAt); err != nil {
			return nil, domain.NewStorageError("scan bin", err)
		}
		bins = append(bins, b)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("iterate bins", err)
	}
	return bins, nil
}
