package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// AccountRecord is a ledger entry for one provisioned account.
type AccountRecord struct {
	ChatID       int64
	AccountName  string
	PlanID       PlanID
	PurchasedAt  time.Time
	QuotaGB      int
	DurationDays int
	PriceUSD     decimal.Decimal
	IsDiagnostic bool
	SettlementID string
}

// AccountName builds a provisioning-side account name for a chat from a
// millisecond timestamp. Callers issuing several names for one chat must use
// distinct timestamps.
func AccountName(chatID int64, t time.Time) string {
	return fmt.Sprintf("%d_%d", chatID, t.UnixMilli())
}

// AccountDetails is the account state reported by the provisioning tool.
type AccountDetails struct {
	UploadBytes         *int64 `json:"upload_bytes"`
	DownloadBytes       *int64 `json:"download_bytes"`
	Status              string `json:"status"`
	MaxDownloadBytes    int64  `json:"max_download_bytes"`
	ExpirationDays      int    `json:"expiration_days"`
	AccountCreationDate string `json:"account_creation_date"`
	Blocked             bool   `json:"blocked"`
	Password            string `json:"password,omitempty"`
}

const bytesInGB = 1024 * 1024 * 1024

func (d AccountDetails) QuotaGB() float64 {
	return float64(d.MaxDownloadBytes) / bytesInGB
}

// UsedGB sums upload and download traffic. It is 0 when the account has no
// traffic data yet.
func (d AccountDetails) UsedGB() float64 {
	var used int64
	if d.UploadBytes != nil {
		used += *d.UploadBytes
	}
	if d.DownloadBytes != nil {
		used += *d.DownloadBytes
	}
	return float64(used) / bytesInGB
}

func (d AccountDetails) HasTraffic() bool {
	return d.UploadBytes != nil && d.DownloadBytes != nil
}
