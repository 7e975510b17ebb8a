package recordstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"membuddy/internal/member"
)

func newSeededMemory() *Memory {
	s := NewMemory()
	s.SeedDemo()
	return s
}

func TestMemory_GetMemberByEmail(t *testing.T) {
	s := newSeededMemory()
	ctx := context.Background()

	rec, err := s.GetMemberByEmail(ctx, " JOHN@example.com ")
	require.NoError(t, err)
	assert.Equal(t, "M-1001", rec.MemberID)

	_, err = s.GetMemberByEmail(ctx, "ghost@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_UpdateMemberFields_CAS(t *testing.T) {
	s := newSeededMemory()
	ctx := context.Background()

	rec, err := s.GetMemberByEmail(ctx, "john@example.com")
	require.NoError(t, err)

	err = s.UpdateMemberFields(ctx, rec.MemberID, map[string]string{"address": "42 Elm St"}, rec.Version)
	require.NoError(t, err)

	// The stale version loses the second round.
	err = s.UpdateMemberFields(ctx, rec.MemberID, map[string]string{"address": "9 Pine Rd"}, rec.Version)
	assert.ErrorIs(t, err, ErrConflict)

	updated, err := s.GetMemberByEmail(ctx, "john@example.com")
	require.NoError(t, err)
	assert.Equal(t, "42 Elm St", updated.Address)
	assert.Equal(t, rec.Version+1, updated.Version)
}

func TestMemory_UpdateEmailReindexes(t *testing.T) {
	s := newSeededMemory()
	ctx := context.Background()

	rec, err := s.GetMemberByEmail(ctx, "john@example.com")
	require.NoError(t, err)

	err = s.UpdateMemberFields(ctx, rec.MemberID, map[string]string{"email": "john.doe@newmail.com"}, rec.Version)
	require.NoError(t, err)

	_, err = s.GetMemberByEmail(ctx, "john@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	moved, err := s.GetMemberByEmail(ctx, "John.Doe@newmail.com")
	require.NoError(t, err)
	assert.Equal(t, rec.MemberID, moved.MemberID)
}

func TestMemory_RecordPaymentExtendsExpiration(t *testing.T) {
	s := newSeededMemory()
	ctx := context.Background()

	before, err := s.GetMemberByEmail(ctx, "john@example.com")
	require.NoError(t, err)

	payment, err := s.RecordPayment(ctx, before.MemberID, "PayPal", 50)
	require.NoError(t, err)
	assert.Equal(t, "completed", payment.Status)
	assert.True(t, len(payment.TransactionID) > 4)

	after, err := s.GetMemberByEmail(ctx, "john@example.com")
	require.NoError(t, err)
	assert.Equal(t, before.ExpirationDate.AddDate(1, 0, 0), after.ExpirationDate)
}

func TestMemory_RecordPaymentLapsedMember(t *testing.T) {
	s := NewMemory()
	s.AddMember(member.Member{
		MemberID:       "M-2001",
		FullName:       "Lapsed Member",
		Email:          "lapsed@example.com",
		MembershipType: member.TypeRegular,
		ExpirationDate: time.Now().UTC().AddDate(-1, 0, 0),
		Version:        1,
	})
	ctx := context.Background()

	_, err := s.RecordPayment(ctx, "M-2001", "Card", 200)
	require.NoError(t, err)

	rec, err := s.GetMemberByEmail(ctx, "lapsed@example.com")
	require.NoError(t, err)
	// Lapsed memberships restart from now, not from the old expiration.
	assert.True(t, rec.ExpirationDate.After(time.Now().UTC().AddDate(0, 11, 0)))
}

func TestMemory_FeedbackUpdatesEngagementScore(t *testing.T) {
	s := newSeededMemory()
	ctx := context.Background()

	_, err := s.RecordFeedback(ctx, "M-1001", 5, "great")
	require.NoError(t, err)
	_, err = s.RecordFeedback(ctx, "M-1001", 4, "")
	require.NoError(t, err)

	rec, err := s.GetMemberByEmail(ctx, "john@example.com")
	require.NoError(t, err)
	// avg 4.5 -> 90
	assert.Equal(t, 90, rec.EngagementScore)
}

func TestMemory_SnapshotIsIsolated(t *testing.T) {
	s := newSeededMemory()
	ctx := context.Background()

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)

	rec, ok := snap.MemberByEmail("john@example.com")
	require.True(t, ok)

	err = s.UpdateMemberFields(ctx, rec.MemberID, map[string]string{"address": "changed"}, rec.Version)
	require.NoError(t, err)

	// The snapshot keeps the pre-update view.
	stale, ok := snap.MemberByEmail("john@example.com")
	require.True(t, ok)
	assert.Equal(t, "12 Main St, Springfield", stale.Address)
}

func TestSnapshot_MethodsForFallsBackToDefaults(t *testing.T) {
	s := newSeededMemory()
	snap, err := s.Snapshot(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"Card ending 1234"}, snap.MethodsFor("M-1001"))
	assert.Equal(t, member.DefaultPaymentMethods, snap.MethodsFor("M-9999"))
}
