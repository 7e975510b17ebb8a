package member

import (
	"fmt"
	"math"
	"time"
)

// TransitionYearThreshold is the graduation year at which a Student
// member becomes eligible for the transition package.
const TransitionYearThreshold = 2023

// RenewalOption is one package a member may renew into.
type RenewalOption struct {
	Name              string  `json:"name"`
	Price             float64 `json:"price"`
	EarlyBirdPrice    float64 `json:"early_bird_price"`
	EarlyBirdDeadline string  `json:"early_bird_deadline"`
	Description       string  `json:"description"`
}

var (
	transitionPackage = RenewalOption{
		Name:              "Pharmacist Transition Package",
		Price:             100,
		EarlyBirdPrice:    90,
		EarlyBirdDeadline: "June 15",
		Description:       "Perfect for recent graduates transitioning to professional practice",
	}
	regularRenewal = RenewalOption{
		Name:              "Regular Renewal",
		Price:             200,
		EarlyBirdPrice:    180,
		EarlyBirdDeadline: "June 20",
		Description:       "Annual membership renewal for practicing pharmacists",
	}
	studentRenewal = RenewalOption{
		Name:              "Student Renewal",
		Price:             50,
		EarlyBirdPrice:    45,
		EarlyBirdDeadline: "June 30",
		Description:       "Discounted rate for current students",
	}
)

// PriceAt returns the effective price at the given time. The early-bird
// discount applies through the deadline day in the current calendar
// year.
func (o RenewalOption) PriceAt(now time.Time) float64 {
	deadline, err := time.Parse("January 2", o.EarlyBirdDeadline)
	if err != nil {
		return o.Price
	}
	cutoff := time.Date(now.Year(), deadline.Month(), deadline.Day(), 23, 59, 59, 0, now.Location())
	if now.After(cutoff) {
		return o.Price
	}
	return o.EarlyBirdPrice
}

// RenewalOptions returns the packages available to a member, keyed off
// membership type and graduation year.
func RenewalOptions(m *Member) []RenewalOption {
	switch {
	case m.MembershipType == TypeStudent && m.GraduationYear >= TransitionYearThreshold:
		return []RenewalOption{transitionPackage}
	case m.MembershipType == TypeRegular:
		return []RenewalOption{regularRenewal}
	case m.MembershipType == TypeStudent:
		return []RenewalOption{studentRenewal}
	default:
		return nil
	}
}

// TransitionSuggestion describes the upsell hint attached to a profile
// update that makes a Student member transition-eligible.
type TransitionSuggestion struct {
	Eligible bool   `json:"eligible"`
	Package  string `json:"package,omitempty"`
	Message  string `json:"message,omitempty"`
}

// SuggestTransition evaluates the transition rule for a proposed
// graduation year against the member's current record. It is a pure
// business rule: the record is whatever snapshot the caller fetched.
func SuggestTransition(m *Member, newGraduationYear int) TransitionSuggestion {
	if m == nil || m.MembershipType != TypeStudent || newGraduationYear < TransitionYearThreshold {
		return TransitionSuggestion{}
	}
	return TransitionSuggestion{
		Eligible: true,
		Package:  transitionPackage.Name,
		Message: fmt.Sprintf(
			"Since your graduation year is now %d and you're currently a Student member, you're eligible for the %s ($%.0f, Early Bird $%.0f before %s).",
			newGraduationYear, transitionPackage.Name, transitionPackage.Price,
			transitionPackage.EarlyBirdPrice, transitionPackage.EarlyBirdDeadline),
	}
}

// EngagementScore converts an average feedback rating (1-5) to a 0-100
// engagement score, capped at 100.
func EngagementScore(avgRating float64) int {
	if avgRating <= 0 {
		return 0
	}
	score := int(math.Round(avgRating * 20))
	if score > 100 {
		return 100
	}
	return score
}
