package extract

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)

// Email returns the first substring that looks like a standard
// local@domain.tld email address. The domain must contain at least one
// dot; the local part may use '.', '_', '+' and '-'.
func Email(text string) Result {
	match := emailPattern.FindString(text)
	if match == "" {
		return notFound(KindEmail)
	}
	return Result{
		Kind:    KindEmail,
		RawSpan: match,
		Value:   strings.ToLower(match),
		Method:  MethodExact,
		Found:   true,
	}
}

// Amount candidate patterns, in the order the original conversations use
// them. Each has exactly one capture group holding the number.
var amountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\$(\d+(?:\.\d{1,2})?)`),
	regexp.MustCompile(`(?i)(\d+(?:\.\d{1,2})?)\s*(?:dollars?|bucks?)`),
	regexp.MustCompile(`(?i)(?:pay|pays|paying|paid|charge|charged)\s+(\d+(?:\.\d{1,2})?)\b`),
}

// Amount scans for a currency-marked number ("$123", "123 dollars",
// "75 bucks") or a bare number following a pay/charge verb. When several
// candidates appear, the leftmost match wins. The value is non-negative
// and rounded to two decimals.
func Amount(text string) Result {
	bestIdx := -1
	var bestSpan, bestNum string
	for _, pat := range amountPatterns {
		loc := pat.FindStringSubmatchIndex(text)
		if loc == nil {
			continue
		}
		if bestIdx == -1 || loc[0] < bestIdx {
			bestIdx = loc[0]
			bestSpan = text[loc[0]:loc[1]]
			bestNum = text[loc[2]:loc[3]]
		}
	}
	if bestIdx == -1 {
		return notFound(KindAmount)
	}
	value, err := strconv.ParseFloat(bestNum, 64)
	if err != nil || value < 0 {
		return notFound(KindAmount)
	}
	value = math.Round(value*100) / 100
	return Result{
		Kind:    KindAmount,
		RawSpan: bestSpan,
		Value:   strconv.FormatFloat(value, 'f', 2, 64),
		Amount:  value,
		Method:  MethodExact,
		Found:   true,
	}
}

// CanonicalMethods is the payment-method vocabulary the validator and
// extractor share.
var CanonicalMethods = []string{"Card", "ACH", "PayPal", "Check"}

// methodKeywords maps each canonical method to the phrase fragments that
// identify it in free text.
var methodKeywords = map[string][]string{
	"Card":   {"card", "credit", "debit", "visa", "mastercard"},
	"ACH":    {"ach", "bank", "direct debit", "transfer"},
	"PayPal": {"paypal", "pay pal"},
	"Check":  {"check", "cheque"},
}

// PaymentMethod fuzzy-matches the text against the canonical method
// vocabulary. When the phrase references "my" method and the context
// holds a stored method whose description contains the matched token,
// the stored method is returned as a contextual default instead of the
// bare token.
func PaymentMethod(text string, ctx Context) Result {
	lower := strings.ToLower(text)

	// An available method named verbatim wins outright.
	for _, m := range ctx.AvailableMethods {
		if m != "" && strings.Contains(lower, strings.ToLower(m)) {
			return Result{
				Kind:    KindPaymentMethod,
				RawSpan: m,
				Value:   m,
				Method:  MethodExact,
				Found:   true,
			}
		}
	}

	for _, canon := range CanonicalMethods {
		for _, kw := range methodKeywords[canon] {
			idx := strings.Index(lower, kw)
			if idx < 0 {
				continue
			}
			span := text[idx : idx+len(kw)]
			if refersToOwn(lower, idx) && strings.Contains(strings.ToLower(ctx.StoredPaymentMethod), kw) {
				return Result{
					Kind:    KindPaymentMethod,
					RawSpan: span,
					Value:   ctx.StoredPaymentMethod,
					Method:  MethodContextDefault,
					Found:   true,
				}
			}
			return Result{
				Kind:    KindPaymentMethod,
				RawSpan: span,
				Value:   canon,
				Method:  MethodFuzzy,
				Found:   true,
			}
		}
	}
	return notFound(KindPaymentMethod)
}

var ratingPattern = regexp.MustCompile(`\b([1-5])\b\s*(?:stars?|/\s*5|out of 5)?`)

// Rating finds a 1-5 feedback rating. The numeric payload is carried in
// Amount.
func Rating(text string) Result {
	m := ratingPattern.FindStringSubmatch(text)
	if m == nil {
		return notFound(KindRating)
	}
	value := m[1]
	rating, _ := strconv.Atoi(value)
	return Result{
		Kind:    KindRating,
		RawSpan: strings.TrimSpace(m[0]),
		Value:   value,
		Amount:  float64(rating),
		Method:  MethodExact,
		Found:   true,
	}
}

// refersToOwn reports whether the matched token is possessive-qualified,
// as in "use my card" or "the card on file".
func refersToOwn(lower string, idx int) bool {
	prefix := lower[:idx]
	if strings.Contains(prefix, "my ") || strings.Contains(prefix, "my\t") {
		return true
	}
	return strings.Contains(lower[idx:], "on file")
}
