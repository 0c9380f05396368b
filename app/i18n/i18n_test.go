package i18n

import (
	"strings"
	"testing"

	"hysteriabot/m/v2/app/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestEveryLanguageHasEveryKey(t *testing.T) {
	for _, l := range Languages {
		t.Run(l.Code, func(t *testing.T) {
			assert.True(t, Supported(l.Code))
			assert.Len(t, translations[l.Code], len(translations[DefaultLanguage]))
		})
	}
}

func TestTextFallsBackToEnglish(t *testing.T) {
	assert.Equal(t, "💰 مشاهده پلن‌ها", Text("fa", ViewPlans))
	assert.Equal(t, "💰 View Available Plans", Text("xx", ViewPlans))
	assert.Equal(t, "Cancelled.", Text("ru", Cancelled))
	assert.Equal(t, "unknown_key", Text("en", "unknown_key"))
}

func TestLanguageByButton(t *testing.T) {
	code, ok := LanguageByButton("Русский 🇷🇺")
	assert.True(t, ok)
	assert.Equal(t, "ru", code)

	_, ok = LanguageByButton("Deutsch")
	assert.False(t, ok)
}

func TestKeyByButton(t *testing.T) {
	key, ok := KeyByButton("⬇️ 下载", ViewConfig, Downloads)
	assert.True(t, ok)
	assert.Equal(t, Downloads, key)

	_, ok = KeyByButton("⬇️ 下载", ViewConfig)
	assert.False(t, ok)
}

func TestPlanTextUsesPlanData(t *testing.T) {
	plan := models.Plan{ID: models.PremiumPlan, TrafficQuotaGB: 150, DurationDays: 60, PriceUSD: decimal.RequireFromString("3.5")}
	assert.Equal(t, "⚡️ Premium Plan\n- 150GB Traffic\n- 60 Days\n- Price: $3.5", PlanText("en", plan))

	for _, l := range Languages {
		text := PlanText(l.Code, plan)
		assert.True(t, strings.Contains(text, "150") && strings.Contains(text, "60") && strings.Contains(text, "3.5"), "%s: %s", l.Code, text)
		assert.NotContains(t, text, "%!")
	}
}

func TestConfigDetails(t *testing.T) {
	text := Textf("en", ConfigDetails, "555_1", "Premium", 1.5, 100.0, 12)
	assert.Equal(t, "Username: 555_1\nPlan: Premium\nTraffic: 1.50GB/100.00GB\nExpires in: 12 days\n", text)
}
