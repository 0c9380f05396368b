package payments

import "strings"

type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
	StatusExpired Status = "expired"
	StatusFailed  Status = "failed"
)

// MapCryptomusStatus folds the processor's payment_status values into the
// four states the tracker acts on. Unknown values keep the invoice pending.
func MapCryptomusStatus(raw string) Status {
	switch s := strings.ToLower(strings.TrimSpace(raw)); {
	case s == "paid" || s == "paid_over":
		return StatusPaid
	case s == "cancel" || s == "expired":
		return StatusExpired
	case s == "fail" || s == "system_fail" || s == "wrong_amount" || s == "locked" || strings.HasPrefix(s, "refund"):
		return StatusFailed
	default:
		return StatusPending
	}
}
