package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type SettlementStatus string

const (
	SettlementCreated   SettlementStatus = "created"
	SettlementPolling   SettlementStatus = "polling"
	SettlementPaid      SettlementStatus = "paid"
	SettlementDelivered SettlementStatus = "delivered"
	SettlementExpired   SettlementStatus = "expired"
	SettlementFailed    SettlementStatus = "failed"
)

// Pending reports whether the settlement still waits for the processor.
func (s SettlementStatus) Pending() bool {
	return s == SettlementCreated || s == SettlementPolling
}

// Resolved reports whether the settlement reached a terminal state.
// Paid is not terminal: delivery is still outstanding.
func (s SettlementStatus) Resolved() bool {
	return s == SettlementDelivered || s == SettlementExpired || s == SettlementFailed
}

// PendingSettlement is one invoice tracked from creation until it is paid,
// expired or failed.
type PendingSettlement struct {
	SettlementID string           `json:"settlement_id"`
	OrderID      string           `json:"order_id"`
	ChatID       int64            `json:"chat_id"`
	PlanID       PlanID           `json:"plan_id"`
	QuotaGB      int              `json:"quota_gb"`
	DurationDays int              `json:"duration_days"`
	AmountUSD    decimal.Decimal  `json:"amount_usd"`
	PayURL       string           `json:"pay_url"`
	CreatedAt    time.Time        `json:"created_at"`
	Status       SettlementStatus `json:"status"`
	Attempts     int              `json:"attempts"`
	AccountName  string           `json:"account_name,omitempty"`
	ResolvedAt   time.Time        `json:"resolved_at,omitempty"`
	FailReason   string           `json:"fail_reason,omitempty"`
}
