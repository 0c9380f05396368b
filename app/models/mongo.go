package models

// MongoChatAccounts is one document per chat holding every account bought
// from that chat.
type MongoChatAccounts struct {
	ChatID   int64                `bson:"_id"`
	Accounts []MongoAccountRecord `bson:"accounts"`
}

type MongoAccountRecord struct {
	AccountName  string `bson:"account_name"`
	Plan         string `bson:"plan"`
	PurchasedAt  string `bson:"purchased_at"`
	QuotaGB      int    `bson:"quota_gb"`
	DurationDays int    `bson:"duration_days"`
	PriceUSD     string `bson:"price_usd,omitempty"`
	IsDiagnostic bool   `bson:"is_diagnostic"`
	SettlementID string `bson:"settlement_id,omitempty"`
}

// MongoPaymentSettings keeps prices as decimal strings.
type MongoPaymentSettings struct {
	ID         string            `bson:"_id"`
	MerchantID string            `bson:"merchant_id"`
	PaymentKey string            `bson:"payment_key"`
	Enabled    bool              `bson:"enabled"`
	Prices     map[string]string `bson:"prices"`
}

type MongoHelpMessage struct {
	ID   string `bson:"_id"`
	Text string `bson:"text"`
}
