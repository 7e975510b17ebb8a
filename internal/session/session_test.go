package session

import (
	"sync"
	"testing"
	"time"
)

func TestNewManager(t *testing.T) {
	mgr := NewManager()
	if mgr == nil {
		t.Fatal("NewManager returned nil")
	}
	if mgr.Count() != 0 {
		t.Errorf("Expected 0 sessions, got %d", mgr.Count())
	}
}

func TestNew(t *testing.T) {
	sess := New("test-session")

	if sess.SessionID != "test-session" {
		t.Errorf("Expected SessionID 'test-session', got '%s'", sess.SessionID)
	}
	if sess.Context.State != StateIdle {
		t.Errorf("Expected initial state %q, got %q", StateIdle, sess.Context.State)
	}
	if sess.Context.Pending != nil {
		t.Error("Expected no pending action on a new session")
	}
	if sess.History == nil {
		t.Error("Expected History to be initialized")
	}
}

func TestNew_AutoGenerateID(t *testing.T) {
	sess := New("")

	if sess.SessionID == "" {
		t.Error("Expected auto-generated SessionID")
	}
	if len(sess.SessionID) != 36 {
		t.Errorf("Expected UUID length 36, got %d", len(sess.SessionID))
	}
}

func TestManager_GetOrCreate(t *testing.T) {
	mgr := NewManager()

	first := mgr.GetOrCreate("test-1")
	if first.SessionID != "test-1" {
		t.Errorf("Expected SessionID 'test-1', got '%s'", first.SessionID)
	}

	second := mgr.GetOrCreate("test-1")
	if first != second {
		t.Error("Expected GetOrCreate to return the existing session")
	}
	if mgr.Count() != 1 {
		t.Errorf("Expected 1 session, got %d", mgr.Count())
	}
}

func TestManager_GetUnknown(t *testing.T) {
	mgr := NewManager()

	if _, err := mgr.Get("missing"); err == nil {
		t.Error("Expected error for unknown session")
	}
}

func TestManager_Delete(t *testing.T) {
	mgr := NewManager()
	mgr.GetOrCreate("test-1")

	if err := mgr.Delete("test-1"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if mgr.Count() != 0 {
		t.Errorf("Expected 0 sessions after delete, got %d", mgr.Count())
	}
	if err := mgr.Delete("test-1"); err == nil {
		t.Error("Expected error deleting unknown session")
	}
}

func TestManager_CleanupExpired(t *testing.T) {
	mgr := NewManager()
	old := mgr.GetOrCreate("old")
	mgr.GetOrCreate("fresh")

	old.LastUsed = time.Now().Add(-time.Hour)

	removed := mgr.CleanupExpired(30 * time.Minute)
	if removed != 1 {
		t.Errorf("Expected 1 removed session, got %d", removed)
	}
	if _, err := mgr.Get("old"); err == nil {
		t.Error("Expected old session to be gone")
	}
	if _, err := mgr.Get("fresh"); err != nil {
		t.Errorf("Expected fresh session to survive: %v", err)
	}
}

func TestSession_IdentityTransition(t *testing.T) {
	sess := New("s1")

	sess.AwaitIdentity("update_profile")
	if got := sess.GetContext().State; got != StateAwaitingIdentity {
		t.Fatalf("Expected %q, got %q", StateAwaitingIdentity, got)
	}

	sess.SetIdentity("john@example.com", "M-1001", 1, "Card ending 1234")
	ctx := sess.GetContext()
	if ctx.State != StateActive {
		t.Errorf("Expected %q, got %q", StateActive, ctx.State)
	}
	if ctx.CurrentEmail != "john@example.com" || ctx.MemberID != "M-1001" {
		t.Errorf("Identity not recorded: %+v", ctx)
	}
	if ctx.PaymentMethod != "Card ending 1234" {
		t.Errorf("Payment method not recorded: %s", ctx.PaymentMethod)
	}
}

func TestSession_PendingOnlyWhileAwaitingConfirmation(t *testing.T) {
	sess := New("s1")
	sess.SetIdentity("john@example.com", "M-1001", 1, "")

	sess.BeginConfirmation(Pending{
		Kind:    PendingUpdateProfile,
		Updates: map[string]string{"graduation_year": "2023"},
	})
	ctx := sess.GetContext()
	if ctx.State != StateAwaitingConfirmation {
		t.Fatalf("Expected %q, got %q", StateAwaitingConfirmation, ctx.State)
	}
	if ctx.Pending == nil || ctx.Pending.Updates["graduation_year"] != "2023" {
		t.Fatalf("Pending not parked: %+v", ctx.Pending)
	}

	taken := sess.TakePending()
	if taken == nil || taken.Kind != PendingUpdateProfile {
		t.Fatalf("TakePending returned %+v", taken)
	}

	ctx = sess.GetContext()
	if ctx.State != StateActive {
		t.Errorf("Expected %q after resolution, got %q", StateActive, ctx.State)
	}
	if ctx.Pending != nil {
		t.Error("Expected pending to be cleared after resolution")
	}
}

func TestSession_ConfirmationPatience(t *testing.T) {
	sess := New("s1")
	sess.SetIdentity("john@example.com", "M-1001", 1, "")
	sess.BeginConfirmation(Pending{Kind: PendingProcessPayment, Amount: 50, Method: "PayPal"})

	if sess.RecordUnclearTurn(2) {
		t.Error("Patience should not be exhausted after one unclear turn")
	}
	if !sess.RecordUnclearTurn(2) {
		t.Error("Patience should be exhausted after two unclear turns")
	}

	// Exhausted patience abandons the proposal.
	if p := sess.TakePending(); p == nil {
		t.Fatal("Expected the parked action to still be retrievable")
	}
	if got := sess.GetContext().State; got != StateActive {
		t.Errorf("Expected %q after abandonment, got %q", StateActive, got)
	}
}

func TestSession_GetContextCopiesPending(t *testing.T) {
	sess := New("s1")
	sess.BeginConfirmation(Pending{
		Kind:    PendingUpdateProfile,
		Updates: map[string]string{"email": "a@b.com"},
	})

	ctx := sess.GetContext()
	ctx.Pending.Updates["email"] = "tampered"

	if sess.GetContext().Pending.Updates["email"] != "a@b.com" {
		t.Error("GetContext leaked a mutable reference to pending updates")
	}
}

func TestSession_TurnCount(t *testing.T) {
	sess := New("s1")

	sess.AddMessage("user", "hello")
	sess.AddMessage("assistant", "hi there")
	sess.AddMessage("user", "renew my membership")

	if got := sess.GetContext().TurnCount; got != 2 {
		t.Errorf("Expected 2 user turns counted, got %d", got)
	}
}

func TestSession_Reset(t *testing.T) {
	sess := New("s1")
	sess.SetIdentity("john@example.com", "M-1001", 1, "")
	sess.AddMessage("user", "hello")
	sess.Reset()

	ctx := sess.GetContext()
	if ctx.State != StateIdle || ctx.CurrentEmail != "" {
		t.Errorf("Reset did not clear context: %+v", ctx)
	}
	if ctx.TurnCount != 0 {
		t.Errorf("Reset did not clear the turn counter: %d", ctx.TurnCount)
	}
	if len(sess.GetHistory()) != 0 {
		t.Error("Reset did not clear history")
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	mgr := NewManager()

	mgr.GetOrCreate("shared")

	// Manager lookups touch LastUsed while session methods hold the
	// session lock; run them together so the race detector sees both.
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess := mgr.GetOrCreate("shared")
			sess.AddMessage("user", "ping")
			if _, err := mgr.Get("shared"); err != nil {
				t.Errorf("Get returned error: %v", err)
			}
			mgr.CleanupExpired(time.Hour)
		}()
	}
	wg.Wait()

	sess, err := mgr.Get("shared")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got := len(sess.GetHistory()); got != 20 {
		t.Errorf("Expected 20 messages, got %d", got)
	}
	if got := sess.GetContext().TurnCount; got != 20 {
		t.Errorf("Expected turn count 20, got %d", got)
	}
}
