package repository

import (
	"context"
	"database/sql"

	"github.com/STARTUPinnovator/smartbin/internal/domain"
)

// PostgresTelemetryRepo telemetry 表的 PostgreSQL 实现
// 单条 INSERT 即单个窄事务：不同节点的写入互不阻塞
type PostgresTelemetryRepo struct {
	db *sql.DB
}

func NewPostgresTelemetryRepo(db *sql.DB) *PostgresTelemetryRepo {
	return &PostgresTelemetryRepo{db: db}
}

var _ TelemetryRepo = (*PostgresTelemetryRepo)(nil)

// AppendTelemetry 序列号由 BIGSERIAL 分配，通过 RETURNING 带回
func (r *PostgresTelemetryRepo) AppendTelemetry(ctx context.Context, event domain.TelemetryEvent) (int64, error) {
	var seq int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO telemetry (bin_id, fill_level, status_msg, lat, lon, timestamp)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		event.BinID, event.FillLevel, event.StatusMsg, event.Lat, event.Lon, event.RecordedAt,
	).Scan(&seq)
	if err != nil {
		return 0, domain.NewStorageError("append telemetry", err)
	}
	return seq, nil
}

func (r *PostgresTelemetryRepo) ListByBin(ctx context.Context, binID string, limit int) ([]domain.TelemetryEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, bin_id, fill_level, status_msg, lat, lon, timestamp
		 FROM telemetry
		 WHERE bin_id = $1
		 ORDER BY id DESC
		 LIMIT $2`,
		binID, limit,
	)
	if err != nil {
		return nil, domain.NewStorageError("list telemetry", err)
	}
	defer rows.Close()

	return scanTelemetryRows(rows)
}

// LatestByBin 每个节点最近一条事件（DISTINCT ON 按序列号取最新）
func (r *PostgresTelemetryRepo) LatestByBin(ctx context.Context) (map[string]domain.TelemetryEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT ON (bin_id) id, bin_id, fill_level, status_msg, lat, lon, timestamp
		 FROM telemetry
		 ORDER BY bin_id, id DESC`,
	)
	if err != nil {
		return nil, domain.NewStorageError("latest telemetry", err)
	}
	defer rows.Close()

	events, err := scanTelemetryRows(rows)
	if err != nil {
		return nil, err
	}

	latest := make(map[string]domain.TelemetryEvent, len(events))
	for _, e := range events {
		latest[e.BinID] = e
	}
	return latest, nil
}

func scanTelemetryRows(rows *sql.Rows) ([]domain.TelemetryEvent, error) {
	events := []domain.TelemetryEvent{}
	for rows.Next() {
		var e domain.TelemetryEvent
		if err := rows.Scan(&e.SequenceID, &e.BinID, &e.FillLevel, &e.StatusMsg, &e.Lat, &e.Lon, &e.RecordedAt); err != nil {
			return nil, domain.NewStorageError("scan telemetry", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("iterate telemetry", err)
	}
	return events, nil
}
