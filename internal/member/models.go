// Package member holds the membership-record model and the business
// rules derived from it: renewal packages, transition eligibility and
// engagement scoring.
package member

import "time"

// Membership types as stored on the member record.
const (
	TypeStudent   = "Student"
	TypeRegular   = "Pharmacist Regular"
	TypeSupporter = "Supporter"
)

// Member is one row of the master table.
type Member struct {
	MemberID        string    `json:"member_id" db:"member_id"`
	FullName        string    `json:"full_name" db:"full_name"`
	Email           string    `json:"email" db:"email"`
	Address         string    `json:"address" db:"address"`
	GraduationYear  int       `json:"graduation_year" db:"graduation_year"`
	MembershipType  string    `json:"membership_type" db:"membership_type"`
	JoinDate        time.Time `json:"join_date" db:"join_date"`
	ExpirationDate  time.Time `json:"expiration_date" db:"expiration_date"`
	EngagementScore int       `json:"engagement_score" db:"engagement_score"`
	// Version supports compare-and-set updates at the store layer.
	Version int `json:"version" db:"version"`
}

// PaymentMethod is one stored method, e.g. "Card ending 1234".
type PaymentMethod struct {
	MemberID    string `json:"member_id" db:"member_id"`
	Description string `json:"description" db:"description"`
}

// Payment is one completed payment record.
type Payment struct {
	TransactionID string    `json:"transaction_id" db:"transaction_id"`
	MemberID      string    `json:"member_id" db:"member_id"`
	Method        string    `json:"payment_method" db:"method"`
	Amount        float64   `json:"amount" db:"amount"`
	PaidAt        time.Time `json:"paid_at" db:"paid_at"`
	Status        string    `json:"status" db:"status"`
}

// Feedback is one rating with optional comment. MemberID may be empty
// for anonymous feedback.
type Feedback struct {
	FeedbackID string    `json:"feedback_id" db:"feedback_id"`
	MemberID   string    `json:"member_id" db:"member_id"`
	Rating     int       `json:"rating" db:"rating"`
	Comment    string    `json:"comment" db:"comment"`
	GivenAt    time.Time `json:"given_at" db:"given_at"`
}

// DefaultPaymentMethods are offered when a member has none on file.
var DefaultPaymentMethods = []string{"Card", "ACH", "PayPal"}
