package model

import "time"

type PlanStatus string

const (
	PlanStatusActive   PlanStatus = "ACTIVE"
	PlanStatusInactive PlanStatus = "INACTIVE"
)

type BillingInterval string

const (
	BillingMonthly BillingInterval = "monthly"
	BillingYearly  BillingInterval = "yearly"
)

// Plan is a subscription product: price per billing interval plus an
// optional free trial.
type Plan struct {
	ID              string // UUID
	Name            string
	Price           int64 // KRW per interval
	BillingInterval BillingInterval
	TrialPeriodDays int
	Status          PlanStatus
	CreatedAt       time.Time
}

// NextPeriodEnd returns the end of a billing period starting at start.
func (p *Plan) NextPeriodEnd(start time.Time) time.Time {
	if p.BillingInterval == BillingYearly {
		return start.AddDate(1, 0, 0)
	}
	return start.AddDate(0, 1, 0)
}
