// SQLite-backed delivery log.
//
// DESIGN: One table per channel, named after the original log tables
// (sms_alerts_log, telegram_alerts_log, ...). Table names come from a fixed
// map, never from caller input, so channel strings cannot reach SQL text.
package deliverylog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// tableForChannel maps a channel name to its log table.
// Unknown channels are rejected before any SQL runs.
var tableForChannel = map[string]string{
	"sms":      "sms_alerts_log",
	"telegram": "telegram_alerts_log",
	"email":    "alert_emails_log",
	"whatsapp": "whatsapp_alerts_log",
}

const schemaTemplate = `
CREATE TABLE IF NOT EXISTS %s (
	id                  INTEGER PRIMARY KEY AUTOINCREMENT,
	alert_type          TEXT NOT NULL,
	severity            TEXT NOT NULL,
	message             TEXT NOT NULL,
	recipient           TEXT NOT NULL,
	farm_id             TEXT NOT NULL,
	sent_at             TEXT NOT NULL,
	delivery_status     TEXT NOT NULL,
	provider_message_id TEXT,
	error_message       TEXT
);
CREATE INDEX IF NOT EXISTS idx_%s_sent_at ON %s (sent_at DESC);
`

// SQLiteStore is the durable delivery log.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and migrates) the delivery log database at path.
// Use ":memory:" for an ephemeral database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("delivery log path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open delivery log '%s': %w", path, err)
	}
	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent channel appends.
	db.SetMaxOpenConns(1)

	for _, table := range tableForChannel {
		if _, err := db.Exec(fmt.Sprintf(schemaTemplate, table, table, table)); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to migrate table %s: %w", table, err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// Append writes one record to the channel's log table.
func (s *SQLiteStore) Append(ctx context.Context, channel string, rec Record) error {
	table, ok := tableForChannel[channel]
	if !ok {
		return fmt.Errorf("unknown delivery log channel '%s'", channel)
	}

	query := fmt.Sprintf(`INSERT INTO %s
		(alert_type, severity, message, recipient, farm_id, sent_at, delivery_status, provider_message_id, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, table)

	_, err := s.db.ExecContext(ctx, query,
		rec.AlertType,
		rec.Severity,
		rec.Message,
		rec.Recipient,
		rec.FarmID,
		rec.SentAt.UTC().Format(time.RFC3339Nano),
		string(rec.Status),
		nullable(rec.ProviderMessageID),
		nullable(rec.ErrorMessage),
	)
	if err != nil {
		return fmt.Errorf("failed to append delivery record: %w", err)
	}
	return nil
}

// ListRecent returns up to limit records for the channel, newest first.
func (s *SQLiteStore) ListRecent(ctx context.Context, channel string, limit int) ([]Record, error) {
	table, ok := tableForChannel[channel]
	if !ok {
		return nil, fmt.Errorf("unknown delivery log channel '%s'", channel)
	}
	if limit <= 0 {
		limit = 50
	}

	query := fmt.Sprintf(`SELECT alert_type, severity, message, recipient, farm_id, sent_at, delivery_status,
		COALESCE(provider_message_id, ''), COALESCE(error_message, '')
		FROM %s ORDER BY sent_at DESC, id DESC LIMIT ?`, table)

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list delivery records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var sentAt, status string
		if err := rows.Scan(&rec.AlertType, &rec.Severity, &rec.Message, &rec.Recipient, &rec.FarmID,
			&sentAt, &status, &rec.ProviderMessageID, &rec.ErrorMessage); err != nil {
			return nil, fmt.Errorf("failed to scan delivery record: %w", err)
		}
		rec.SentAt, _ = time.Parse(time.RFC3339Nano, sentAt)
		rec.Status = Status(status)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// nullable maps "" to NULL so optional columns stay NULL rather than empty.
func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

// Ensure SQLiteStore implements Store
var _ Store = (*SQLiteStore)(nil)
