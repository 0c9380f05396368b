package models

import "github.com/shopspring/decimal"

// PaymentSettings is the processor configuration editable by admins.
type PaymentSettings struct {
	MerchantID string
	PaymentKey string
	Enabled    bool
	Prices     map[PlanID]decimal.Decimal
}

// Copy returns a deep copy so callers never share the prices map.
func (s PaymentSettings) Copy() PaymentSettings {
	prices := make(map[PlanID]decimal.Decimal, len(s.Prices))
	for k, v := range s.Prices {
		prices[k] = v
	}
	s.Prices = prices
	return s
}

// Refresh recomputes Enabled from the credentials.
func (s *PaymentSettings) Refresh() {
	s.Enabled = s.MerchantID != "" && s.PaymentKey != ""
}

const DefaultHelpMessage = `**Welcome to Our VPN Service!**

🔹 To view your configurations, click '📱 View My Config'
🔹 To see available plans, click '💰 View Available Plans'
🔹 To download VPN client, click '⬇️ Downloads'

For support, contact: @admin_username`
