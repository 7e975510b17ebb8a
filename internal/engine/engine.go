// Package engine turns normalized user text into proposed or executed
// actions against the record store. It owns intent detection, the
// per-session conversation state machine, and the confirmation
// protocol for mutations.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"membuddy/internal/cache"
	"membuddy/internal/extract"
	"membuddy/internal/lexicon"
	"membuddy/internal/member"
	"membuddy/internal/recordstore"
	"membuddy/internal/session"
	"membuddy/internal/validate"
)

// DefaultConfirmPatience is how many unclear replies the engine
// tolerates while a proposal awaits confirmation before abandoning it.
const DefaultConfirmPatience = 2

const capabilities = "I can renew your membership, update your profile (email, address, graduation year), or record feedback."

// Config tunes engine behavior.
type Config struct {
	// ConfirmPatience overrides DefaultConfirmPatience when positive.
	ConfirmPatience int
}

// Engine coordinates lexicon, extractors, validator, sessions, cache
// and store for one deployment.
type Engine struct {
	lex       *lexicon.Lexicon
	store     recordstore.Store
	snapshots *cache.ReadThrough
	sessions  *session.Manager
	patience  int
	now       func() time.Time
	log       *slog.Logger
}

// New wires an engine. A nil logger falls back to slog.Default.
func New(lex *lexicon.Lexicon, store recordstore.Store, snapshots *cache.ReadThrough, sessions *session.Manager, cfg Config, logger *slog.Logger) *Engine {
	patience := cfg.ConfirmPatience
	if patience <= 0 {
		patience = DefaultConfirmPatience
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		lex:       lex,
		store:     store,
		snapshots: snapshots,
		sessions:  sessions,
		patience:  patience,
		now:       time.Now,
		log:       logger,
	}
}

// Sessions exposes the session manager for lifecycle commands.
func (e *Engine) Sessions() *session.Manager { return e.sessions }

// HandleTurn processes one user message for the session and returns the
// resulting action. The returned error is reserved for programming
// errors; user-facing failures come back as ActionError.
func (e *Engine) HandleTurn(ctx context.Context, sessionID, raw string) (*Action, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return reply("Say something like \"renew my membership\" or \"update my email\"."), nil
	}

	sess := e.sessions.GetOrCreate(sessionID)
	sess.AddMessage("user", raw)
	text := e.lex.Normalize(raw)

	var act *Action
	switch sess.GetContext().State {
	case session.StateAwaitingConfirmation:
		act = e.resolveConfirmation(ctx, sess, text)
	case session.StateAwaitingIdentity:
		act = e.resolveIdentity(ctx, sess, text)
	default:
		act = e.dispatch(ctx, sess, text)
	}

	sess.AddMessage("assistant", act.Message)
	e.log.Debug("turn handled",
		"session", sess.SessionID,
		"state", string(sess.GetContext().State),
		"action", string(act.Type))
	return act, nil
}

// dispatch handles turns in the idle and active states.
func (e *Engine) dispatch(ctx context.Context, sess *session.Session, text string) *Action {
	intent, _ := detectIntent(text)
	sctx := sess.GetContext()

	// Continuations: a prior turn asked for a bare value.
	if intent == IntentUnknown {
		if field, ok := strings.CutPrefix(sctx.LastAction, "update:"); ok {
			return e.proposeUpdate(ctx, sess, field, text)
		}
		if sctx.LastAction == "feedback:rating" {
			return e.planFeedback(ctx, sess, text)
		}
		if sctx.LastAction == "renew:method" {
			return e.planRenewal(ctx, sess, text)
		}
	}

	// An email mentioned on any turn identifies the session up front.
	identified := false
	if sctx.MemberID == "" {
		if em := extract.Email(text); em.Found {
			if act := e.identify(ctx, sess, em.Value); act != nil {
				return act
			}
			identified = true
		}
	}

	switch intent {
	case IntentGreeting:
		return reply("Hello! " + capabilities)
	case IntentHelp:
		return reply(capabilities)
	case IntentCancel:
		sess.SetLastAction("")
		return reply("Nothing is in progress. " + capabilities)
	case IntentRenew:
		return e.withIdentity(ctx, sess, text, "renew", e.planRenewal)
	case IntentUpdateProfile:
		return e.withIdentity(ctx, sess, text, "update_profile", e.planUpdate)
	case IntentFeedback:
		return e.planFeedback(ctx, sess, text)
	default:
		if identified {
			return reply("Thanks, you're verified. " + capabilities)
		}
		return reply("I'm not sure what you need. " + capabilities)
	}
}

// withIdentity runs plan once the session is identified, extracting an
// email from the current turn or asking for one.
func (e *Engine) withIdentity(ctx context.Context, sess *session.Session, text, intentName string, plan func(context.Context, *session.Session, string) *Action) *Action {
	if sess.GetContext().MemberID != "" {
		return plan(ctx, sess, text)
	}
	if em := extract.Email(text); em.Found {
		if act := e.identify(ctx, sess, em.Value); act != nil {
			return act
		}
		return plan(ctx, sess, text)
	}
	sess.AwaitIdentity(intentName)
	return needsInfo("email", "What's the email address on your account?")
}

// identify resolves the email against the cached dataset and records
// the identity on success. A non-nil return is the failure action.
func (e *Engine) identify(ctx context.Context, sess *session.Session, email string) *Action {
	snap, err := e.snapshots.Get(ctx, cache.DatasetKey)
	if err != nil {
		e.log.Error("snapshot fetch failed", "error", err)
		return actionErr(ErrStoreUnavailable, "I can't reach member records right now. Please try again shortly.", "")
	}
	m, ok := snap.MemberByEmail(email)
	if !ok {
		return actionErr(ErrNotFound,
			fmt.Sprintf("I couldn't find a member with the email %s.", email),
			"Double-check the address or contact support.")
	}

	var stored string
	if methods := snap.Methods[m.MemberID]; len(methods) > 0 {
		stored = methods[0].Description
	}
	sess.SetIdentity(m.Email, m.MemberID, m.Version, stored)
	return nil
}

// resolveIdentity handles the turn after the engine asked for an email.
func (e *Engine) resolveIdentity(ctx context.Context, sess *session.Session, text string) *Action {
	em := extract.Email(text)
	if !em.Found {
		return needsInfo("email", "I didn't catch an email address. What's the email on your account?")
	}
	if act := e.identify(ctx, sess, em.Value); act != nil {
		return act
	}

	switch sess.GetContext().LastAction {
	case "renew":
		return e.planRenewal(ctx, sess, text)
	case "update_profile":
		return needsInfo("field", "Thanks, you're verified. Which field would you like to update: email, address, or graduation year?")
	default:
		return reply("Thanks, you're verified. " + capabilities)
	}
}

// planUpdate proposes a profile update from the current turn.
func (e *Engine) planUpdate(ctx context.Context, sess *session.Session, text string) *Action {
	fields, _ := extract.Fields(text)
	switch {
	case len(fields) == 0:
		sess.SetLastAction("update_profile")
		return needsInfo("field", "Which field would you like to update: email, address, or graduation year?")
	case len(fields) > 1:
		return actionErr(ErrAmbiguousMatch,
			"I can only update one field at a time, and that message mentions several.",
			fmt.Sprintf("Tell me one of: %s.", strings.Join(fields, ", ")))
	}

	field := fields[0]
	val := extract.Value(text, field)
	if !val.Found {
		sess.SetLastAction("update:" + field)
		return needsInfo(field, fmt.Sprintf("What should the new %s be?", fieldLabel(field)))
	}
	return e.proposeUpdate(ctx, sess, field, val.Value)
}

// proposeUpdate validates the value and parks the update for
// confirmation, attaching a transition suggestion when the new
// graduation year makes a Student member eligible.
func (e *Engine) proposeUpdate(ctx context.Context, sess *session.Session, field, rawValue string) *Action {
	res := validate.Field(field, rawValue)
	if !res.Valid {
		return actionErr(fromValidation(res.ErrorKind),
			fmt.Sprintf("That doesn't look like a valid %s.", fieldLabel(field)),
			res.Suggestion)
	}

	sctx := sess.GetContext()
	updates := map[string]string{field: res.CanonicalValue}
	transition := e.transitionFor(ctx, sctx.CurrentEmail, updates)

	prompt := fmt.Sprintf("Set your %s to %q? (yes/no)", fieldLabel(field), res.CanonicalValue)
	if transition != nil {
		prompt += " " + transition.Message
	}

	sess.SetLastAction("")
	sess.BeginConfirmation(session.Pending{
		Kind:            session.PendingUpdateProfile,
		Updates:         updates,
		ExpectedVersion: sctx.MemberVersion,
		Prompt:          prompt,
	})
	return &Action{
		Type:       ActionNeedsConfirmation,
		Message:    prompt,
		Updates:    updates,
		Transition: transition,
	}
}

// planRenewal proposes a renewal payment from the current turn.
func (e *Engine) planRenewal(ctx context.Context, sess *session.Session, text string) *Action {
	sctx := sess.GetContext()
	snap, err := e.snapshots.Get(ctx, cache.DatasetKey)
	if err != nil {
		e.log.Error("snapshot fetch failed", "error", err)
		return actionErr(ErrStoreUnavailable, "I can't reach member records right now. Please try again shortly.", "")
	}
	m, ok := snap.MemberByEmail(sctx.CurrentEmail)
	if !ok {
		return actionErr(ErrNotFound, "Your member record seems to have moved. Let's start over with your email.", "")
	}

	options := member.RenewalOptions(m)
	if len(options) == 0 {
		return reply(fmt.Sprintf("There's no self-service renewal package for %s memberships. Please contact support.", m.MembershipType))
	}
	pkg := options[0]
	amount := pkg.PriceAt(e.now())

	if amt := extract.Amount(text); amt.Found {
		res := validate.Amount(amt.Value)
		if !res.Valid {
			return actionErr(fromValidation(res.ErrorKind), "That payment amount doesn't work.", res.Suggestion)
		}
		amount = amt.Amount
	}

	available := snap.MethodsFor(m.MemberID)
	var method string
	if pm := extract.PaymentMethod(text, extract.Context{
		StoredPaymentMethod: sctx.PaymentMethod,
		AvailableMethods:    available,
	}); pm.Found {
		res := validate.PaymentMethod(pm.Value, available)
		if !res.Valid {
			return actionErr(fromValidation(res.ErrorKind),
				fmt.Sprintf("I don't recognize the payment method %q.", pm.Value),
				res.Suggestion)
		}
		method = res.CanonicalValue
	} else if sctx.PaymentMethod != "" {
		method = sctx.PaymentMethod
	} else {
		sess.SetLastAction("renew:method")
		return needsInfo("payment_method",
			fmt.Sprintf("How would you like to pay? Options: %s.", strings.Join(available, ", ")))
	}

	prompt := fmt.Sprintf("Renew with the %s for $%.2f using %s? (yes/no)", pkg.Name, amount, method)
	sess.SetLastAction("")
	sess.BeginConfirmation(session.Pending{
		Kind:            session.PendingProcessPayment,
		Amount:          amount,
		Method:          method,
		ExpectedVersion: m.Version,
		Prompt:          prompt,
	})
	return &Action{Type: ActionNeedsConfirmation, Message: prompt}
}

// planFeedback records a rating, asking for one when the turn lacks it.
// Feedback needs no confirmation and works for anonymous sessions.
func (e *Engine) planFeedback(ctx context.Context, sess *session.Session, text string) *Action {
	r := extract.Rating(text)
	if !r.Found {
		sess.SetLastAction("feedback:rating")
		return needsInfo("rating", "How would you rate your experience, from 1 to 5?")
	}
	rating := int(r.Amount)

	sctx := sess.GetContext()
	fb, err := e.store.RecordFeedback(ctx, sctx.MemberID, rating, text)
	e.snapshots.Invalidate(cache.DatasetKey)
	if err != nil {
		return e.storeFailure("record feedback", err)
	}

	sess.SetLastAction("record_feedback")
	msg := fmt.Sprintf("Thanks for the feedback — %d/5 recorded.", fb.Rating)
	if sctx.MemberID != "" {
		msg += " Your engagement score has been updated."
	}
	return &Action{Type: ActionRecordFeedback, Message: msg}
}

// resolveConfirmation handles turns while a proposal is parked.
func (e *Engine) resolveConfirmation(ctx context.Context, sess *session.Session, text string) *Action {
	// Refusal wins over agreement when a turn contains both.
	if e.lex.IsNegative(text) {
		sess.TakePending()
		sess.SetLastAction("")
		return reply("Okay, I won't make that change. " + capabilities)
	}
	if e.lex.IsAffirmative(text) {
		return e.execute(ctx, sess, sess.TakePending())
	}

	if sess.RecordUnclearTurn(e.patience) {
		sess.TakePending()
		return reply("I'll set that aside for now. " + capabilities)
	}
	pending := sess.GetContext().Pending
	return &Action{
		Type:    ActionNeedsConfirmation,
		Message: "Just to confirm: " + pending.Prompt,
	}
}

// execute commits a confirmed proposal against the store. The snapshot
// is invalidated after every write attempt, success or not.
func (e *Engine) execute(ctx context.Context, sess *session.Session, p *session.Pending) *Action {
	if p == nil {
		return reply("Nothing is waiting for confirmation. " + capabilities)
	}
	sctx := sess.GetContext()

	switch p.Kind {
	case session.PendingUpdateProfile:
		// Re-evaluated here rather than reused from the proposal: the
		// record may have changed between the two turns.
		transition := e.transitionFor(ctx, sctx.CurrentEmail, p.Updates)
		err := e.store.UpdateMemberFields(ctx, sctx.MemberID, p.Updates, p.ExpectedVersion)
		e.snapshots.Invalidate(cache.DatasetKey)
		if err != nil {
			return e.storeFailure("update profile", err)
		}
		sess.SetMemberVersion(p.ExpectedVersion + 1)
		if newEmail, ok := p.Updates["email"]; ok {
			sess.SetIdentity(newEmail, sctx.MemberID, p.ExpectedVersion+1, sctx.PaymentMethod)
		}
		sess.SetLastAction("update_profile")
		return &Action{
			Type:       ActionUpdateProfile,
			Message:    "Done — " + describeUpdates(p.Updates) + ".",
			Updates:    p.Updates,
			Transition: transition,
		}

	case session.PendingProcessPayment, session.PendingTransition:
		payment, err := e.store.RecordPayment(ctx, sctx.MemberID, p.Method, p.Amount)
		e.snapshots.Invalidate(cache.DatasetKey)
		if err != nil {
			return e.storeFailure("process payment", err)
		}
		sess.SetMemberVersion(sctx.MemberVersion + 1)
		sess.SetLastAction("process_payment")
		return &Action{
			Type: ActionProcessPayment,
			Message: fmt.Sprintf("Payment of $%.2f via %s processed (transaction %s). Your membership has been extended by a year.",
				payment.Amount, payment.Method, payment.TransactionID),
			Payment: payment,
		}

	default:
		return reply("Nothing is waiting for confirmation. " + capabilities)
	}
}

// transitionFor evaluates the transition rule for a pending update
// against the member's current record. Nil when the update doesn't touch
// the graduation year, the member can't be loaded, or the rule doesn't
// apply.
func (e *Engine) transitionFor(ctx context.Context, email string, updates map[string]string) *member.TransitionSuggestion {
	raw, ok := updates[extract.FieldGraduationYear]
	if !ok {
		return nil
	}
	snap, err := e.snapshots.Get(ctx, cache.DatasetKey)
	if err != nil {
		return nil
	}
	m, ok := snap.MemberByEmail(email)
	if !ok {
		return nil
	}
	year, _ := strconv.Atoi(raw)
	if s := member.SuggestTransition(m, year); s.Eligible {
		return &s
	}
	return nil
}

// storeFailure maps a store error onto the user-facing taxonomy.
func (e *Engine) storeFailure(op string, err error) *Action {
	switch {
	case errors.Is(err, recordstore.ErrConflict):
		return actionErr(ErrConflict,
			"Your record changed while we were talking, so I didn't apply that.",
			"Tell me again and I'll use the latest version.")
	case errors.Is(err, recordstore.ErrNotFound):
		return actionErr(ErrNotFound, "I couldn't find your member record anymore.", "")
	default:
		e.log.Error("store operation failed", "op", op, "error", err)
		return actionErr(ErrStoreUnavailable,
			"Something went wrong talking to member records. Nothing was changed on your account.", "")
	}
}

func fieldLabel(field string) string {
	if field == extract.FieldGraduationYear {
		return "graduation year"
	}
	return field
}

func describeUpdates(updates map[string]string) string {
	parts := make([]string, 0, len(updates))
	for field, value := range updates {
		parts = append(parts, fmt.Sprintf("your %s is now %q", fieldLabel(field), value))
	}
	return strings.Join(parts, "; ")
}
