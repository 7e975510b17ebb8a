package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmail(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		want  string
		found bool
	}{
		{"plain", "contact me at john.doe@company.co.uk", "john.doe@company.co.uk", true},
		{"with plus", "it's a+b_c-d@example.com thanks", "a+b_c-d@example.com", true},
		{"lowercased", "JOHN@EXAMPLE.COM", "john@example.com", true},
		{"first of two", "a@b.com or c@d.com", "a@b.com", true},
		{"none", "no email here", "", false},
		{"missing tld dot", "user@localhost", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Email(tt.text)
			assert.Equal(t, tt.found, r.Found)
			assert.Equal(t, tt.want, r.Value)
			if r.Found {
				assert.Equal(t, KindEmail, r.Kind)
				assert.Equal(t, MethodExact, r.Method)
			}
		})
	}
}

func TestAmount(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		want  float64
		found bool
	}{
		{"dollar sign", "pay $100", 100.00, true},
		{"dollars word", "use my card for 50 dollars", 50.00, true},
		{"bucks", "pay 75 bucks", 75.00, true},
		{"decimal", "charge $19.99 please", 19.99, true},
		{"verb then bare number", "please charge 42 now", 42.00, true},
		{"leftmost wins", "pay $20 instead of 90 dollars", 20.00, true},
		{"no amount", "renew my membership", 0, false},
		{"bare number without verb", "I joined in 2019 batch 12", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Amount(tt.text)
			assert.Equal(t, tt.found, r.Found, "text=%q", tt.text)
			if tt.found {
				assert.InDelta(t, tt.want, r.Amount, 0.001)
			}
		})
	}
}

func TestAmountValueFormatting(t *testing.T) {
	r := Amount("pay $100")
	assert.Equal(t, "100.00", r.Value)
}

func TestPaymentMethod(t *testing.T) {
	t.Run("bare keyword", func(t *testing.T) {
		r := PaymentMethod("I'd like to pay with paypal", Context{})
		assert.True(t, r.Found)
		assert.Equal(t, "PayPal", r.Value)
		assert.Equal(t, MethodFuzzy, r.Method)
	})

	t.Run("variant keyword", func(t *testing.T) {
		r := PaymentMethod("use bank transfer", Context{})
		assert.True(t, r.Found)
		assert.Equal(t, "ACH", r.Value)
	})

	t.Run("contextual default", func(t *testing.T) {
		ctx := Context{StoredPaymentMethod: "Card ending 1234"}
		r := PaymentMethod("use my card", ctx)
		assert.True(t, r.Found)
		assert.Equal(t, "Card ending 1234", r.Value)
		assert.Equal(t, MethodContextDefault, r.Method)
	})

	t.Run("on file counts as own", func(t *testing.T) {
		ctx := Context{StoredPaymentMethod: "Card ending 1234"}
		r := PaymentMethod("the card on file is fine", ctx)
		assert.True(t, r.Found)
		assert.Equal(t, "Card ending 1234", r.Value)
		assert.Equal(t, MethodContextDefault, r.Method)
	})

	t.Run("my without stored method stays bare", func(t *testing.T) {
		r := PaymentMethod("use my card", Context{})
		assert.True(t, r.Found)
		assert.Equal(t, "Card", r.Value)
		assert.Equal(t, MethodFuzzy, r.Method)
	})

	t.Run("available method verbatim", func(t *testing.T) {
		ctx := Context{AvailableMethods: []string{"Card ending 1234"}}
		r := PaymentMethod("pay with card ending 1234", ctx)
		assert.True(t, r.Found)
		assert.Equal(t, "Card ending 1234", r.Value)
		assert.Equal(t, MethodExact, r.Method)
	})

	t.Run("none", func(t *testing.T) {
		r := PaymentMethod("renew my membership", Context{})
		assert.False(t, r.Found)
	})
}

func TestField(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		want  string
		found bool
	}{
		{"grad year", "update my grad year to 2023", FieldGraduationYear, true},
		{"graduation", "graduation is next spring", FieldGraduationYear, true},
		{"email address phrase", "change my email address", FieldEmail, true},
		{"email address with value", "change my email address to new@example.com", FieldEmail, true},
		{"email address plus separate address", "update my email address and my address", "", false},
		{"address", "I moved, new address", FieldAddress, true},
		{"street synonym", "update my street info", FieldAddress, true},
		{"ambiguous", "update my email and address", "", false},
		{"nothing", "hello there", "", false},
		{"no partial word hit", "my hometown is nice", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Field(tt.text)
			assert.Equal(t, tt.found, r.Found, "text=%q", tt.text)
			assert.Equal(t, tt.want, r.Value)
		})
	}
}

func TestValue(t *testing.T) {
	t.Run("graduation year", func(t *testing.T) {
		r := Value("update my graduation year to 2023", FieldGraduationYear)
		assert.True(t, r.Found)
		assert.Equal(t, "2023", r.Value)
	})

	t.Run("year without separator", func(t *testing.T) {
		r := Value("graduation year 2024", FieldGraduationYear)
		assert.True(t, r.Found)
		assert.Equal(t, "2024", r.Value)
	})

	t.Run("email", func(t *testing.T) {
		r := Value("set my email to new.me@example.com", FieldEmail)
		assert.True(t, r.Found)
		assert.Equal(t, "new.me@example.com", r.Value)
	})

	t.Run("address with colon", func(t *testing.T) {
		r := Value("address: 123 Main St, Boston", FieldAddress)
		assert.True(t, r.Found)
		assert.Equal(t, "123 Main St, Boston", r.Value)
	})

	t.Run("address with to", func(t *testing.T) {
		r := Value("change my address to 44 Elm Street.", FieldAddress)
		assert.True(t, r.Found)
		assert.Equal(t, "44 Elm Street", r.Value)
	})

	t.Run("missing value", func(t *testing.T) {
		r := Value("update my address", FieldAddress)
		assert.False(t, r.Found)
	})

	t.Run("missing year", func(t *testing.T) {
		r := Value("update my graduation year please", FieldGraduationYear)
		assert.False(t, r.Found)
	})
}

func TestRating(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		want  float64
		found bool
	}{
		{"stars", "5 stars, loved it", 5, true},
		{"slash five", "I'd say 4/5 overall", 4, true},
		{"out of five", "3 out of 5", 3, true},
		{"bare digit", "a 2", 2, true},
		{"out of range digit", "I rate it 9", 0, false},
		{"no digit", "it was fine", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Rating(tt.text)
			assert.Equal(t, tt.found, r.Found, "text=%q", tt.text)
			if tt.found {
				assert.Equal(t, tt.want, r.Amount)
			}
		})
	}
}
