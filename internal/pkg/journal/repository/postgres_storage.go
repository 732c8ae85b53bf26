package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"media_relay_bot/internal/pkg/journal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS relay_records (
	id             TEXT PRIMARY KEY,
	group_id       TEXT NOT NULL DEFAULT '',
	kind           TEXT NOT NULL,
	content_ref    TEXT NOT NULL,
	sender_id      BIGINT NOT NULL,
	destination_id BIGINT NOT NULL,
	status         TEXT NOT NULL,
	error          TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS relay_records_created_at_idx ON relay_records (created_at DESC);
`

type PostgresStorage struct {
	db *sql.DB
}

func NewPostgresStorage(db *sql.DB) *PostgresStorage {
	return &PostgresStorage{db: db}
}

// OpenPostgres connects to dsn, checks the connection and applies the schema.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err := NewPostgresStorage(db).EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func (p *PostgresStorage) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create relay_records: %w", err)
	}
	return nil
}

func (p *PostgresStorage) SaveRelay(ctx context.Context, r *domain.RelayRecord) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO relay_records (id, group_id, kind, content_ref, sender_id, destination_id, status, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`, r.ID, r.GroupID, r.Kind, r.ContentRef, r.SenderID, r.DestinationID, string(r.Status), r.Error, r.CreatedAt)
	return err
}

func (p *PostgresStorage) GetRecentRelays(ctx context.Context, limit int) ([]*domain.RelayRecord, error) {
	if limit <= 0 {
		limit = DefaultMemoryCapacity
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, group_id, kind, content_ref, sender_id, destination_id, status, error, created_at
		FROM relay_records
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.RelayRecord
	for rows.Next() {
		r := &domain.RelayRecord{}
		var status string
		err := rows.Scan(&r.ID, &r.GroupID, &r.Kind, &r.ContentRef, &r.SenderID, &r.DestinationID, &status, &r.Error, &r.CreatedAt)
		if err != nil {
			return nil, err
		}
		r.Status = domain.Status(status)
		records = append(records, r)
	}
	return records, rows.Err()
}

func (p *PostgresStorage) GetRelayStats(ctx context.Context) (*domain.RelayStats, error) {
	stats := &domain.RelayStats{ByKind: make(map[string]int)}

	row := p.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(CASE WHEN status = 'failed' THEN 1 END),
			COUNT(DISTINCT NULLIF(group_id, ''))
		FROM relay_records
	`)
	if err := row.Scan(&stats.Total, &stats.Failed, &stats.Albums); err != nil {
		return nil, err
	}

	rows, err := p.db.QueryContext(ctx, `SELECT kind, COUNT(*) FROM relay_records GROUP BY kind`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		stats.ByKind[kind] = n
	}
	return stats, rows.Err()
}
