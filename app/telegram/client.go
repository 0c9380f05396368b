package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	"hysteriabot/m/v2/app/db/redis"
	"hysteriabot/m/v2/app/i18n"
	"hysteriabot/m/v2/app/models"
	"hysteriabot/m/v2/app/provisioning"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"
)

// Hiddify client downloads.
const (
	androidPlayURL   = "https://play.google.com/store/apps/details?id=app.hiddify.com&hl=en"
	androidGitHubURL = "https://github.com/hiddify/hiddify-next/releases/download/v2.0.5/Hiddify-Android-arm64.apk"
	iosURL           = "https://apps.apple.com/us/app/hiddify-proxy-vpn/id6596777532"
	windowsURL       = "https://github.com/hiddify/hiddify-next/releases/download/v2.0.5/Hiddify-Windows-Setup-x64.exe"
	otherPlatformURL = "https://github.com/hiddify/hiddify-app/releases/tag/v2.0.5"
)

func (b *Bot) selectLanguage(ctx context.Context, chatID int64, code string) error {
	if err := redis.SaveLanguage(ctx, b.redis, chatID, code); err != nil {
		log.Errorf("selectLanguage: chat %d keeps the previous language: %v", chatID, err)
	}
	return b.sendWithKeyboard(chatID, i18n.Text(code, i18n.Welcome), clientKeyboard(code))
}

// viewConfig sends one QR code per account of the chat. Blocked accounts and
// accounts the provisioning tool no longer knows are skipped.
func (b *Bot) viewConfig(ctx context.Context, chatID int64, text string) error {
	lang := b.language(ctx, chatID)
	records, err := b.ledger.ListByChat(ctx, chatID)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		b.send(chatID, i18n.Text(lang, i18n.ConfigNotFound))
		return nil
	}
	b.send(chatID, strings.TrimSpace(strings.ReplaceAll(i18n.Text(lang, i18n.ActiveConfigs), "**", "")))

	for _, rec := range records {
		logger := log.WithFields(log.Fields{"chat_id": chatID, "account_name": rec.AccountName})
		details, err := b.gateway.GetAccount(ctx, rec.AccountName)
		if err != nil {
			logger.WithError(err).Warn("viewConfig: skipping account")
			continue
		}
		if details.Blocked {
			continue
		}
		conn, err := b.gateway.GetConnection(ctx, rec.AccountName, provisioning.IPv4, provisioning.URIOptions{Singbox: true})
		if err != nil {
			logger.WithError(err).Warn("viewConfig: no connection for account")
			continue
		}
		if err := b.sendQR(chatID, conn.URI, configCaption(lang, rec, details, conn), nil); err != nil {
			logger.WithError(err).Error("viewConfig: failed to send account")
			continue
		}
		time.Sleep(b.sendDelay)
	}
	return nil
}

func configCaption(lang string, rec models.AccountRecord, d *models.AccountDetails, conn *provisioning.Connection) string {
	header := "*Configuration*"
	if rec.IsDiagnostic {
		header += " " + i18n.Text(lang, i18n.DiagnoseModeLabel)
	}
	details := i18n.Textf(lang, i18n.ConfigDetails,
		"`"+rec.AccountName+"`", models.Plan{ID: rec.PlanID}.Title(), d.UsedGB(), d.QuotaGB(), d.ExpirationDays)
	return fmt.Sprintf("%s\n\n%s\n`%s`", header, details, conn.URI)
}

func (b *Bot) viewPlans(ctx context.Context, chatID int64, text string) error {
	lang := b.language(ctx, chatID)
	catalog, err := b.settings.Catalog(ctx)
	if err != nil {
		return err
	}
	texts := make([]string, 0, len(catalog))
	rows := make([][]telego.InlineKeyboardButton, 0, len(catalog))
	for _, plan := range catalog {
		description := i18n.PlanText(lang, plan)
		texts = append(texts, description)
		title := strings.SplitN(description, "\n", 2)[0]
		rows = append(rows, []telego.InlineKeyboardButton{
			{Text: title, CallbackData: purchasePlanAction + ":" + string(plan.ID)},
		})
	}
	return b.sendWithKeyboard(chatID, strings.Join(texts, "\n\n"), &telego.InlineKeyboardMarkup{InlineKeyboard: rows})
}

func (b *Bot) downloads(ctx context.Context, chatID int64, text string) error {
	lang := b.language(ctx, chatID)
	link := func(key i18n.Key, suffix, url string) []telego.InlineKeyboardButton {
		return []telego.InlineKeyboardButton{{Text: i18n.Text(lang, key) + suffix, URL: url}}
	}
	keyboard := &telego.InlineKeyboardMarkup{
		InlineKeyboard: [][]telego.InlineKeyboardButton{
			link(i18n.AndroidClient, " (Google Play)", androidPlayURL),
			link(i18n.AndroidClient, " (GitHub)", androidGitHubURL),
			link(i18n.IOSClient, "", iosURL),
			link(i18n.WindowsClient, "", windowsURL),
			link(i18n.LinuxClient, "", otherPlatformURL),
		},
	}
	_, err := b.SendMessage(tu.Message(tu.ID(chatID), i18n.Text(lang, i18n.DownloadTitle)).
		WithParseMode(telego.ModeMarkdown).
		WithReplyMarkup(keyboard))
	return err
}

func (b *Bot) support(ctx context.Context, chatID int64, text string) error {
	help, err := b.settings.HelpMessage(ctx)
	if err != nil {
		log.Warnf("support: %v", err)
	}
	b.sendMarkdown(chatID, help)
	return nil
}
