package recordstore

import (
	"time"

	"membuddy/internal/member"
)

// DemoMembers returns the sample dataset used by the chat CLI and the
// seed command.
func DemoMembers() []member.Member {
	now := time.Now().UTC()
	return []member.Member{
		{
			MemberID:        "M-1001",
			FullName:        "John Doe",
			Email:           "john@example.com",
			Address:         "12 Main St, Springfield",
			GraduationYear:  2023,
			MembershipType:  member.TypeStudent,
			JoinDate:        now.AddDate(-2, 0, 0),
			ExpirationDate:  now.AddDate(0, 3, 0),
			EngagementScore: 60,
			Version:         1,
		},
		{
			MemberID:        "M-1002",
			FullName:        "Maria Chen",
			Email:           "maria@example.com",
			Address:         "400 Oak Ave, Portland",
			GraduationYear:  2015,
			MembershipType:  member.TypeRegular,
			JoinDate:        now.AddDate(-8, 0, 0),
			ExpirationDate:  now.AddDate(0, 1, 0),
			EngagementScore: 80,
			Version:         1,
		},
	}
}

// DemoPaymentMethods returns the stored payment methods for the demo
// members.
func DemoPaymentMethods() []member.PaymentMethod {
	return []member.PaymentMethod{
		{MemberID: "M-1001", Description: "Card ending 1234"},
		{MemberID: "M-1002", Description: "PayPal account"},
	}
}
