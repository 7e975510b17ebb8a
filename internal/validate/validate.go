// Package validate applies per-field domain rules to extracted values.
//
// Validation never fails with an error or panic: malformed input produces
// an Invalid result with a machine-readable error kind and a
// human-readable suggestion the caller can show the user verbatim.
package validate

import (
	"fmt"
	"strconv"
	"strings"

	"membuddy/internal/extract"
)

// ErrorKind classifies why a value was rejected.
type ErrorKind string

const (
	ErrMalformedEmail ErrorKind = "MalformedEmail"
	ErrOutOfRange     ErrorKind = "OutOfRange"
	ErrTooShort       ErrorKind = "TooShort"
	ErrNotPositive    ErrorKind = "NotPositive"
	ErrUnknownMethod  ErrorKind = "UnknownMethod"
	ErrUnknownField   ErrorKind = "UnknownField"
)

// Result is the immutable outcome of a single validation call.
type Result struct {
	Valid          bool
	CanonicalValue string
	ErrorKind      ErrorKind
	Suggestion     string // set on every invalid result
}

// Graduation-year bounds. Years outside this window are treated as typos
// rather than legitimate records.
const (
	MinGraduationYear = 1900
	MaxGraduationYear = 2030
)

const minAddressLen = 3

// Field validates rawValue against the rules for the given canonical
// field key and returns either a canonical value or a correctable error.
func Field(field, rawValue string) Result {
	switch field {
	case extract.FieldEmail:
		return email(rawValue)
	case extract.FieldGraduationYear:
		return graduationYear(rawValue)
	case extract.FieldAddress:
		return address(rawValue)
	case "amount":
		return Amount(rawValue)
	case "payment_method":
		return PaymentMethod(rawValue, nil)
	default:
		return invalid(ErrUnknownField, fmt.Sprintf("I can update email, address or graduation year — not %q.", field))
	}
}

func email(raw string) Result {
	r := extract.Email(raw)
	if !r.Found || r.Value != strings.ToLower(strings.TrimSpace(raw)) {
		suggestion := "Please provide an email like user@example.com."
		if r.Found {
			suggestion = fmt.Sprintf("Did you mean %s?", r.Value)
		}
		return invalid(ErrMalformedEmail, suggestion)
	}
	return valid(r.Value)
}

func graduationYear(raw string) Result {
	year, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return invalid(ErrOutOfRange, fmt.Sprintf("Please provide a 4-digit year between %d and %d.", MinGraduationYear, MaxGraduationYear))
	}
	if year < MinGraduationYear || year > MaxGraduationYear {
		nearest := MinGraduationYear
		if year > MaxGraduationYear {
			nearest = MaxGraduationYear
		}
		return invalid(ErrOutOfRange, fmt.Sprintf("%d is outside %d–%d; did you mean %d?", year, MinGraduationYear, MaxGraduationYear, nearest))
	}
	return valid(strconv.Itoa(year))
}

func address(raw string) Result {
	trimmed := strings.TrimSpace(raw)
	if len(trimmed) < minAddressLen {
		return invalid(ErrTooShort, "Please provide your full address including street and city.")
	}
	return valid(trimmed)
}

// Amount validates a payment amount: numeric and strictly positive.
func Amount(raw string) Result {
	value, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimPrefix(raw, "$")), 64)
	if err != nil {
		return invalid(ErrNotPositive, "Please provide an amount like $100 or 99.50.")
	}
	if value <= 0 {
		return invalid(ErrNotPositive, "The amount must be greater than zero.")
	}
	return valid(strconv.FormatFloat(value, 'f', 2, 64))
}

// PaymentMethod checks that the method is in the canonical vocabulary or
// among the member's stored methods from context.
func PaymentMethod(raw string, available []string) Result {
	trimmed := strings.TrimSpace(raw)
	for _, m := range available {
		if strings.EqualFold(m, trimmed) {
			return valid(m)
		}
	}
	for _, m := range extract.CanonicalMethods {
		if strings.EqualFold(m, trimmed) {
			return valid(m)
		}
	}
	// A stored-method description like "Card ending 1234" resolves via
	// its leading canonical token.
	for _, m := range extract.CanonicalMethods {
		if strings.HasPrefix(strings.ToLower(trimmed), strings.ToLower(m)+" ") {
			return valid(trimmed)
		}
	}
	known := strings.Join(extract.CanonicalMethods, ", ")
	return invalid(ErrUnknownMethod, fmt.Sprintf("Available payment methods are: %s.", known))
}

func valid(canonical string) Result {
	return Result{Valid: true, CanonicalValue: canonical}
}

func invalid(kind ErrorKind, suggestion string) Result {
	return Result{ErrorKind: kind, Suggestion: suggestion}
}
