package model

import "time"

// MembershipLevel defines a loyalty tier: its point accrual rate (fraction of
// a paid amount converted to points) and a benefits blurb.
type MembershipLevel struct {
	ID          string // UUID
	Name        string // unique: "Normal", "VIP", "VVIP"
	AccrualRate float64
	Benefits    string
}

// Membership maps one user to one level. It is recomputed from the user's
// total paid amount, never edited directly.
type Membership struct {
	ID        string // UUID
	UserID    string // unique
	LevelID   string
	JoinedAt  time.Time
	ExpiresAt *time.Time
	UpdatedAt time.Time
}
