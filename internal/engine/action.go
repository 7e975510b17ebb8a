package engine

import (
	"membuddy/internal/member"
	"membuddy/internal/validate"
)

// ActionType classifies what the planner decided for a turn.
type ActionType string

const (
	// ActionReply is an informational reply with no state change.
	ActionReply ActionType = "reply"
	// ActionNeedsInfo asks the user for a missing piece of data.
	ActionNeedsInfo ActionType = "needs_info"
	// ActionNeedsConfirmation proposes a mutation and waits for yes/no.
	ActionNeedsConfirmation ActionType = "needs_confirmation"
	// ActionUpdateProfile reports a committed profile update.
	ActionUpdateProfile ActionType = "update_profile"
	// ActionProcessPayment reports a committed payment.
	ActionProcessPayment ActionType = "process_payment"
	// ActionRecordFeedback reports stored feedback.
	ActionRecordFeedback ActionType = "record_feedback"
	// ActionError reports a failure the user can act on.
	ActionError ActionType = "error"
)

// ErrorKind tags an ActionError so callers can branch without parsing
// the message. Validation failures reuse the validator's kinds.
type ErrorKind string

const (
	ErrMissingField     ErrorKind = "MissingField"
	ErrAmbiguousMatch   ErrorKind = "AmbiguousMatch"
	ErrStoreUnavailable ErrorKind = "StoreUnavailable"
	ErrConflict         ErrorKind = "Conflict"
	ErrNotFound         ErrorKind = "NotFound"
)

// fromValidation maps a validator error kind onto the action taxonomy.
func fromValidation(kind validate.ErrorKind) ErrorKind {
	return ErrorKind(kind)
}

// Action is the planner's decision for one turn: the reply text plus
// structured payload for the caller.
type Action struct {
	Type    ActionType `json:"type"`
	Message string     `json:"message"`

	// MissingField names the datum an ActionNeedsInfo asks for.
	MissingField string `json:"missing_field,omitempty"`

	ErrorKind  ErrorKind `json:"error_kind,omitempty"`
	Suggestion string    `json:"suggestion,omitempty"`

	// Updates holds the committed field changes for ActionUpdateProfile
	// or the proposed ones for ActionNeedsConfirmation.
	Updates map[string]string `json:"updates,omitempty"`

	Payment    *member.Payment              `json:"payment,omitempty"`
	Transition *member.TransitionSuggestion `json:"transition,omitempty"`
}

func reply(msg string) *Action {
	return &Action{Type: ActionReply, Message: msg}
}

func needsInfo(field, msg string) *Action {
	return &Action{Type: ActionNeedsInfo, Message: msg, MissingField: field}
}

func actionErr(kind ErrorKind, msg, suggestion string) *Action {
	return &Action{Type: ActionError, Message: msg, ErrorKind: kind, Suggestion: suggestion}
}
