// Package recordstore defines the record-store collaborator the
// conversation core proposes actions against, plus its two
// implementations: an in-memory store (default, also used in tests) and
// a PostgreSQL store.
//
// The core only ever reads through the cache (Snapshot) and writes
// through the typed mutation methods; it performs no retries and
// propagates store failures unmodified.
package recordstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"membuddy/internal/member"
)

// Sentinel errors. StoreUnavailable-class failures are returned wrapped
// from the underlying driver; callers decide retry policy.
var (
	// ErrNotFound is returned when no record matches the lookup.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a compare-and-set update lost the
	// race; the caller may re-read and re-prompt.
	ErrConflict = errors.New("record version conflict")
)

// Snapshot is one consistent full read of the dataset, served by the
// cache to the extraction/validation pipeline. Readers must treat it as
// immutable.
type Snapshot struct {
	Members   map[string]*member.Member         // keyed by lowercase email
	Methods   map[string][]member.PaymentMethod // keyed by member ID
	FetchedAt time.Time
}

// MemberByEmail looks a member up in the snapshot.
func (s *Snapshot) MemberByEmail(email string) (*member.Member, bool) {
	m, ok := s.Members[normalizeEmail(email)]
	return m, ok
}

// MethodsFor returns the stored payment-method descriptions for a
// member, falling back to the defaults when none are on file.
func (s *Snapshot) MethodsFor(memberID string) []string {
	stored := s.Methods[memberID]
	if len(stored) == 0 {
		return member.DefaultPaymentMethods
	}
	out := make([]string, len(stored))
	for i, pm := range stored {
		out[i] = pm.Description
	}
	return out
}

// Store is the record-store contract. Every write implementation must be
// safe for concurrent callers; the cache layer invalidates after each
// write regardless of outcome.
type Store interface {
	Close() error

	// GetMemberByEmail returns the member or ErrNotFound.
	GetMemberByEmail(ctx context.Context, email string) (*member.Member, error)

	// UpdateMemberFields applies canonical field->value updates using
	// compare-and-set on the record version. Returns ErrNotFound or
	// ErrConflict as appropriate.
	UpdateMemberFields(ctx context.Context, memberID string, fields map[string]string, expectedVersion int) error

	// RecordPayment appends a completed payment and extends the
	// member's expiration date by one year.
	RecordPayment(ctx context.Context, memberID, method string, amount float64) (*member.Payment, error)

	// RecordFeedback stores a rating (1-5) with optional comment and,
	// for identified members, refreshes the engagement score. An empty
	// memberID records anonymous feedback.
	RecordFeedback(ctx context.Context, memberID string, rating int, comment string) (*member.Feedback, error)

	// ListPaymentMethods returns the member's stored method
	// descriptions, most recent first.
	ListPaymentMethods(ctx context.Context, memberID string) ([]string, error)

	// Snapshot performs the full dataset read the cache wraps.
	Snapshot(ctx context.Context) (*Snapshot, error)
}

// Type selects a store implementation.
type Type string

const (
	// MemoryStore keeps records in process memory.
	MemoryStore Type = "memory"
	// PostgresStore uses a PostgreSQL database.
	PostgresStore Type = "postgres"
)

// Config holds store-creation settings.
type Config struct {
	Type             Type
	ConnectionString string
	// SeedPath optionally points at a JSON file of members to load
	// into the memory store at startup.
	SeedPath string
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// New creates a store from configuration.
func New(cfg Config) (Store, error) {
	switch cfg.Type {
	case MemoryStore, "":
		s := NewMemory()
		if cfg.SeedPath != "" {
			if err := s.LoadSeed(cfg.SeedPath); err != nil {
				return nil, err
			}
		}
		return s, nil
	case PostgresStore:
		return NewPostgres(cfg.ConnectionString)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", cfg.Type)
	}
}
