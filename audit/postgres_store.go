package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

const createAuditTable = `
CREATE TABLE IF NOT EXISTS audit_records (
	id                TEXT PRIMARY KEY,
	ip                TEXT NOT NULL,
	region            TEXT,
	user_agent        TEXT,
	recipient_address TEXT NOT NULL,
	success           BOOLEAN NOT NULL,
	tx_hash           TEXT,
	created_at        TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_ip_created ON audit_records (ip, created_at) WHERE success;
CREATE INDEX IF NOT EXISTS idx_audit_addr_created ON audit_records (recipient_address, created_at) WHERE success;
`

// countColumns whitelists the key fields a windowed count may filter by.
var countColumns = map[string]string{
	"ip":                "ip",
	"recipient_address": "recipient_address",
}

// PostgresStore persists audit records in an audit_records table.
type PostgresStore struct {
	db *sql.DB
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	if _, err := db.ExecContext(ctx, createAuditTable); err != nil {
		return nil, fmt.Errorf("failed to ensure audit schema: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Append(ctx context.Context, record *Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_records (id, ip, region, user_agent, recipient_address, success, tx_hash, created_at)
		 VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, NULLIF($7, ''), $8)`,
		record.ID, record.IP, record.Region, record.UserAgent,
		record.RecipientAddress, record.Success, record.TxHash, record.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert audit record: %w", err)
	}
	return nil
}

func (s *PostgresStore) CountSuccessfulSince(ctx context.Context, keyField, keyValue string, since time.Time) (int, error) {
	column, ok := countColumns[keyField]
	if !ok {
		return 0, fmt.Errorf("unsupported count key field: %s", keyField)
	}

	var count int
	query := fmt.Sprintf(
		`SELECT COUNT(*) FROM audit_records WHERE success AND %s = $1 AND created_at >= $2`, column)
	if err := s.db.QueryRowContext(ctx, query, keyValue, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count audit records: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
