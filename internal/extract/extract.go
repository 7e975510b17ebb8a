// Package extract provides the entity extractors that pull typed values
// out of normalized user text: email address, money amount, payment
// method, profile field name and field value.
//
// Every extractor is a pure function of (text, context). Results are
// tagged variants carrying the matched span and how the match was made,
// so the state machine can dispatch on them without re-inspecting text.
package extract

import "fmt"

// Kind identifies which entity a Result carries.
type Kind int

const (
	KindEmail Kind = iota
	KindAmount
	KindPaymentMethod
	KindFieldName
	KindFieldValue
	KindRating
)

// String returns the string representation of a Kind.
func (k Kind) String() string {
	switch k {
	case KindEmail:
		return "email"
	case KindAmount:
		return "amount"
	case KindPaymentMethod:
		return "payment_method"
	case KindFieldName:
		return "field_name"
	case KindFieldValue:
		return "field_value"
	case KindRating:
		return "rating"
	default:
		return "unknown"
	}
}

// Method records how an extractor arrived at its value.
type Method int

const (
	// MethodExact means the value was matched verbatim in the text.
	MethodExact Method = iota
	// MethodFuzzy means the value was inferred from a keyword or variant.
	MethodFuzzy
	// MethodContextDefault means the value came from session context
	// rather than the text itself ("use my card").
	MethodContextDefault
)

// String returns the string representation of a Method.
func (m Method) String() string {
	switch m {
	case MethodExact:
		return "exact"
	case MethodFuzzy:
		return "fuzzy"
	case MethodContextDefault:
		return "context-default"
	default:
		return "unknown"
	}
}

// Result is the immutable output of a single extractor call.
type Result struct {
	Kind    Kind
	RawSpan string // substring of the input that produced the value
	Value   string // canonical string payload
	Amount  float64 // numeric payload, set only for KindAmount
	Method  Method
	Found   bool
}

// notFound is the zero result for a kind.
func notFound(kind Kind) Result {
	return Result{Kind: kind}
}

// Context carries the session-derived defaults extractors may consult.
// It is a plain value so extractors stay pure and free of session
// package dependencies.
type Context struct {
	// StoredPaymentMethod is the member's method on file, e.g.
	// "Card ending 1234". Empty when no member is identified.
	StoredPaymentMethod string
	// AvailableMethods lists the member's usable payment methods.
	AvailableMethods []string
}

// String renders a Result for logs and debugging.
func (r Result) String() string {
	if !r.Found {
		return fmt.Sprintf("%s: not found", r.Kind)
	}
	return fmt.Sprintf("%s: %q (%s)", r.Kind, r.Value, r.Method)
}
