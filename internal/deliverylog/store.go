// Package deliverylog persists the audit trail of alert send attempts.
//
// DESIGN: One append-only log per channel. A record is written exactly once
// per send attempt that reached the provider, immediately after the call
// returns, and is never updated afterwards (no delivery-status webhooks are
// consumed). A failed log write must never mask the send outcome - callers
// treat it as a side diagnostic.
//
// Two implementations:
//   - SQLiteStore: durable, one table per channel (production)
//   - MemoryStore: in-process, for tests and ephemeral deployments
package deliverylog

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Status is the outcome recorded for a send attempt.
type Status string

const (
	StatusSent    Status = "sent"
	StatusPending Status = "pending"
	StatusFailed  Status = "failed"
)

// Record is one send attempt. ProviderMessageID is set on success,
// ErrorMessage only on failure.
type Record struct {
	AlertType         string    `json:"alert_type"`
	Severity          string    `json:"severity"`
	Message           string    `json:"message"`
	Recipient         string    `json:"recipient"`
	FarmID            string    `json:"farm_id"`
	SentAt            time.Time `json:"sent_at"`
	Status            Status    `json:"delivery_status"`
	ProviderMessageID string    `json:"provider_message_id,omitempty"`
	ErrorMessage      string    `json:"error_message,omitempty"`
}

// Store is the append-only delivery log.
type Store interface {
	// Append writes one record to the channel's log.
	Append(ctx context.Context, channel string, rec Record) error

	// ListRecent returns up to limit records for the channel,
	// newest first by sent_at.
	ListRecent(ctx context.Context, channel string, limit int) ([]Record, error)

	// Close releases underlying resources.
	Close() error
}

// MemoryStore keeps delivery records in process memory.
type MemoryStore struct {
	records map[string][]Record
	mu      sync.RWMutex
	closed  bool
}

// NewMemoryStore creates an empty in-memory delivery log.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string][]Record)}
}

// Append writes one record to the channel's log.
func (s *MemoryStore) Append(_ context.Context, channel string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("delivery log is closed")
	}
	s.records[channel] = append(s.records[channel], rec)
	return nil
}

// ListRecent returns up to limit records for the channel, newest first.
func (s *MemoryStore) ListRecent(_ context.Context, channel string, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := s.records[channel]
	out := make([]Record, len(recs))
	copy(out, recs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].SentAt.After(out[j].SentAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Close marks the store closed; further appends fail.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)
