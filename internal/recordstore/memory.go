package recordstore

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"membuddy/internal/member"
)

// Memory is the in-process store implementation. It is the default for
// local development and the fixture for engine tests.
type Memory struct {
	mu       sync.RWMutex
	members  map[string]*member.Member // keyed by member ID
	byEmail  map[string]string         // lowercase email -> member ID
	methods  map[string][]member.PaymentMethod
	payments []member.Payment
	feedback []member.Feedback
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		members: make(map[string]*member.Member),
		byEmail: make(map[string]string),
		methods: make(map[string][]member.PaymentMethod),
	}
}

// Close is a no-op for the memory store.
func (m *Memory) Close() error { return nil }

// AddMember inserts or replaces a member record.
func (m *Memory) AddMember(rec member.Member) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := rec
	m.members[cp.MemberID] = &cp
	m.byEmail[normalizeEmail(cp.Email)] = cp.MemberID
}

// AddPaymentMethod stores a payment-method description for a member.
func (m *Memory) AddPaymentMethod(memberID, description string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.methods[memberID] = append(m.methods[memberID], member.PaymentMethod{
		MemberID:    memberID,
		Description: description,
	})
}

type seedFile struct {
	Members []member.Member `json:"members"`
	Methods []member.PaymentMethod `json:"payment_methods"`
}

// LoadSeed loads members and payment methods from a JSON file.
func (m *Memory) LoadSeed(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading seed file: %w", err)
	}
	var seed seedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("parsing seed file %s: %w", path, err)
	}
	for _, rec := range seed.Members {
		m.AddMember(rec)
	}
	for _, pm := range seed.Methods {
		m.AddPaymentMethod(pm.MemberID, pm.Description)
	}
	return nil
}

// SeedDemo loads the small demo dataset used by the chat CLI when no
// seed file is configured.
func (m *Memory) SeedDemo() {
	for _, rec := range DemoMembers() {
		m.AddMember(rec)
	}
	for _, pm := range DemoPaymentMethods() {
		m.AddPaymentMethod(pm.MemberID, pm.Description)
	}
}

// GetMemberByEmail returns a copy of the matching member record.
func (m *Memory) GetMemberByEmail(_ context.Context, email string) (*member.Member, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byEmail[normalizeEmail(email)]
	if !ok {
		return nil, fmt.Errorf("member %s: %w", email, ErrNotFound)
	}
	cp := *m.members[id]
	return &cp, nil
}

// UpdateMemberFields applies canonical field updates under
// compare-and-set on the record version.
func (m *Memory) UpdateMemberFields(_ context.Context, memberID string, fields map[string]string, expectedVersion int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.members[memberID]
	if !ok {
		return fmt.Errorf("member %s: %w", memberID, ErrNotFound)
	}
	if rec.Version != expectedVersion {
		return fmt.Errorf("member %s at version %d, expected %d: %w", memberID, rec.Version, expectedVersion, ErrConflict)
	}
	for field, value := range fields {
		switch field {
		case "email":
			delete(m.byEmail, normalizeEmail(rec.Email))
			rec.Email = value
			m.byEmail[normalizeEmail(value)] = memberID
		case "address":
			rec.Address = value
		case "graduation_year":
			year, err := parseYear(value)
			if err != nil {
				return err
			}
			rec.GraduationYear = year
		default:
			return fmt.Errorf("unknown member field %q", field)
		}
	}
	rec.Version++
	return nil
}

// RecordPayment appends a payment and extends the expiration date by one
// year from the later of now and the current expiration.
func (m *Memory) RecordPayment(_ context.Context, memberID, method string, amount float64) (*member.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.members[memberID]
	if !ok {
		return nil, fmt.Errorf("member %s: %w", memberID, ErrNotFound)
	}
	now := time.Now().UTC()
	base := rec.ExpirationDate
	if base.Before(now) {
		base = now
	}
	rec.ExpirationDate = base.AddDate(1, 0, 0)
	rec.Version++

	payment := member.Payment{
		TransactionID: "TXN-" + uuid.NewString(),
		MemberID:      memberID,
		Method:        method,
		Amount:        amount,
		PaidAt:        now,
		Status:        "completed",
	}
	m.payments = append(m.payments, payment)
	cp := payment
	return &cp, nil
}

// RecordFeedback stores the rating and, for identified members,
// recomputes the engagement score from the running average rating.
func (m *Memory) RecordFeedback(_ context.Context, memberID string, rating int, comment string) (*member.Feedback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fb := member.Feedback{
		FeedbackID: uuid.NewString(),
		MemberID:   memberID,
		Rating:     rating,
		Comment:    comment,
		GivenAt:    time.Now().UTC(),
	}
	m.feedback = append(m.feedback, fb)

	if memberID != "" {
		if rec, ok := m.members[memberID]; ok {
			var sum, n int
			for _, f := range m.feedback {
				if f.MemberID == memberID {
					sum += f.Rating
					n++
				}
			}
			avg := float64(sum) / float64(n)
			rec.EngagementScore = member.EngagementScore(avg)
			rec.Version++
		}
	}
	cp := fb
	return &cp, nil
}

// ListPaymentMethods returns the member's stored method descriptions.
func (m *Memory) ListPaymentMethods(_ context.Context, memberID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stored := m.methods[memberID]
	out := make([]string, len(stored))
	for i, pm := range stored {
		out[i] = pm.Description
	}
	return out, nil
}

// Snapshot copies the full dataset into an immutable view.
func (m *Memory) Snapshot(_ context.Context) (*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := &Snapshot{
		Members:   make(map[string]*member.Member, len(m.members)),
		Methods:   make(map[string][]member.PaymentMethod, len(m.methods)),
		FetchedAt: time.Now().UTC(),
	}
	for email, id := range m.byEmail {
		cp := *m.members[id]
		snap.Members[email] = &cp
	}
	for id, pms := range m.methods {
		snap.Methods[id] = append([]member.PaymentMethod(nil), pms...)
	}
	return snap, nil
}

func parseYear(value string) (int, error) {
	var year int
	if _, err := fmt.Sscanf(value, "%d", &year); err != nil {
		return 0, fmt.Errorf("parsing graduation year %q: %w", value, err)
	}
	if year <= 0 || year > math.MaxInt32 {
		return 0, fmt.Errorf("graduation year %d out of range", year)
	}
	return year, nil
}
