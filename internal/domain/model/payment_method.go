package model

import "time"

// PaymentMethod stores a user's gateway billing credential. CustomerRef is
// the gateway-side customer identifier (unique); BillingKey is the
// recurring-charge authorization token, stored encrypted at rest.
type PaymentMethod struct {
	ID          string // UUID
	UserID      string
	CustomerRef string // unique gateway customer identifier
	BillingKey  string // encrypted; may be empty when only CustomerRef is known
	Label       string // e.g. card brand + last digits
	IsDefault   bool   // at most one default per user
	CreatedAt   time.Time
}
