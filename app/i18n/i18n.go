// Package i18n holds the customer-facing texts in every supported language.
package i18n

import (
	"fmt"

	"hysteriabot/m/v2/app/models"
)

type Key string

const (
	ViewConfig      Key = "view_config"
	ViewPlans       Key = "view_plans"
	Downloads       Key = "downloads"
	Support         Key = "support"
	SelectLanguage  Key = "select_language"
	LanguageSet     Key = "language_set"
	Welcome         Key = "welcome"
	ConfigNotFound  Key = "config_not_found"
	ActiveConfigs   Key = "active_configs"
	ExpiredConfigs  Key = "expired_configs"
	ConfigDetails   Key = "config_details"
	BasicPlan       Key = "basic_plan"
	PremiumPlan     Key = "premium_plan"
	UltimatePlan    Key = "ultimate_plan"
	SelectPayment   Key = "select_payment"
	CryptoPay       Key = "crypto_pay"
	PurchaseSuccess Key = "purchase_success"
	PurchaseError   Key = "purchase_error"
	DownloadTitle   Key = "download_title"
	AndroidClient   Key = "android_client"
	IOSClient       Key = "ios_client"
	WindowsClient   Key = "windows_client"
	MacOSClient     Key = "macos_client"
	LinuxClient     Key = "linux_client"

	// English only for now.
	PaymentDisabled   Key = "payment_disabled"
	PaymentLink       Key = "payment_link"
	PayButton         Key = "pay_button"
	SettlementExpired Key = "settlement_expired"
	SettlementFailed  Key = "settlement_failed"
	AccountReady      Key = "account_ready"
	DiagnosticReady   Key = "diagnostic_ready"
	Cancelled         Key = "cancelled"
	GenericError      Key = "generic_error"
	DiagnoseModeLabel Key = "diagnose_mode_label"
)

const DefaultLanguage = "en"

var englishOnly = map[Key]string{
	PaymentDisabled:   "Payments are currently unavailable. Please contact support.",
	PaymentLink:       "Pay $%s for the %s plan with the button below. Your configuration is sent here as soon as the payment is confirmed.",
	PayButton:         "💳 Pay now",
	SettlementExpired: "Your payment for the %s plan was not received in time and the invoice expired.",
	SettlementFailed:  "We could not complete your %s purchase. Please contact support.",
	AccountReady:      "✅ Your %s plan is ready!\nUsername: `%s`\nTraffic: %dGB\nDays: %d\n\n`%s`",
	DiagnosticReady:   "🔍 Diagnose mode: free %s account created.",
	Cancelled:         "Cancelled.",
	GenericError:      "Something went wrong. Please try again later.",
	DiagnoseModeLabel: "(Diagnose Mode)",
}

type Language struct {
	Code  string
	Label string
}

// Languages are listed in the order they are offered.
var Languages = []Language{
	{Code: "en", Label: "English 🇬🇧"},
	{Code: "fa", Label: "فارسی 🇮🇷"},
	{Code: "ru", Label: "Русский 🇷🇺"},
	{Code: "zh", Label: "中文 🇨🇳"},
	{Code: "tk", Label: "Türkmençe 🇹🇲"},
	{Code: "ar", Label: "العربية 🇸🇦"},
}

func Supported(lang string) bool {
	_, ok := translations[lang]
	return ok
}

// Text looks key up in lang and falls back to English.
func Text(lang string, key Key) string {
	if text, ok := translations[lang][key]; ok {
		return text
	}
	if text, ok := translations[DefaultLanguage][key]; ok {
		return text
	}
	if text, ok := englishOnly[key]; ok {
		return text
	}
	return string(key)
}

func Textf(lang string, key Key, args ...any) string {
	return fmt.Sprintf(Text(lang, key), args...)
}

// LanguageByButton maps a language button label to its code.
func LanguageByButton(label string) (string, bool) {
	for _, l := range Languages {
		if l.Label == label {
			return l.Code, true
		}
	}
	return "", false
}

// KeyByButton finds which menu key a button label stands for, whatever the
// language it was rendered in.
func KeyByButton(label string, keys ...Key) (Key, bool) {
	for _, table := range translations {
		for _, key := range keys {
			if table[key] == label {
				return key, true
			}
		}
	}
	return "", false
}

var planKeys = map[models.PlanID]Key{
	models.BasicPlan:    BasicPlan,
	models.PremiumPlan:  PremiumPlan,
	models.UltimatePlan: UltimatePlan,
}

// PlanText describes a plan with its current quota, duration and price.
func PlanText(lang string, plan models.Plan) string {
	key, ok := planKeys[plan.ID]
	if !ok {
		return fmt.Sprintf("%s\n- %dGB\n- %d\n- $%s", plan.Title(), plan.TrafficQuotaGB, plan.DurationDays, plan.PriceUSD.String())
	}
	return Textf(lang, key, plan.TrafficQuotaGB, plan.DurationDays, plan.PriceUSD.String())
}
