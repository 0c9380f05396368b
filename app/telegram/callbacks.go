package telegram

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"hysteriabot/m/v2/app/dialog"
	"hysteriabot/m/v2/app/i18n"
	"hysteriabot/m/v2/app/models"
	"hysteriabot/m/v2/app/payments"
	"hysteriabot/m/v2/app/provisioning"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"
)

// Callback data is "action:entity[:extra]".
const (
	purchasePlanAction   = "purchase_plan"
	resetUserAction      = "reset_user"
	ipv6URIAction        = "ipv6_uri"
	editUsernameAction   = "edit_username"
	editTrafficAction    = "edit_traffic"
	editExpirationAction = "edit_expiration"
	renewPasswordAction  = "renew_password"
	renewCreationAction  = "renew_creation"
	blockUserAction      = "block_user"
	confirmBlockAction   = "confirm_block"
	broadcastAction      = "broadcast"
)

const maxInlineResults = 50

func callbackChatID(query telego.CallbackQuery) int64 {
	if query.Message != nil {
		return query.Message.GetChat().ID
	}
	return query.From.ID
}

func parseCallbackData(data string) (action, entity, extra string) {
	parts := strings.SplitN(data, ":", 3)
	action = parts[0]
	if len(parts) > 1 {
		entity = parts[1]
	}
	if len(parts) > 2 {
		extra = parts[2]
	}
	return action, entity, extra
}

func (b *Bot) answerCallback(queryID, text string) {
	err := b.AnswerCallbackQuery(&telego.AnswerCallbackQueryParams{CallbackQueryID: queryID, Text: text})
	if err != nil {
		log.Errorf("Failed to answer callback query: %v", err)
	}
}

func (b *Bot) handleCallbackQuery(ctx context.Context, query telego.CallbackQuery) {
	chatID := callbackChatID(query)
	action, entity, extra := parseCallbackData(query.Data)
	log.Infof("Received callback query: %s, for user: %d in chat %d", query.Data, query.From.ID, chatID)
	_ = b.metrics().Incr("telegram.callback_query", []string{"action:" + action}, 1)

	if action == purchasePlanAction {
		b.handlePurchase(ctx, query.ID, chatID, entity)
		return
	}
	if !b.cfg.IsAdmin(query.From.ID) {
		log.Warnf("Rejected callback query %s from non-admin %d", query.Data, query.From.ID)
		b.answerCallback(query.ID, "Not allowed.")
		return
	}
	b.answerCallback(query.ID, "")
	if entity == "" {
		log.Errorf("Callback query without entity: %s", query.Data)
		return
	}

	var err error
	switch action {
	case resetUserAction:
		err = b.editOutput(chatID, func() (string, error) { return b.gateway.ResetAccount(ctx, entity) })
	case ipv6URIAction:
		err = b.sendIPv6URI(ctx, chatID, entity)
	case editUsernameAction:
		err = b.ask(chatID, dialog.State{Step: dialog.AwaitingRename, Username: entity}, fmt.Sprintf("Enter new username for %s:", entity))
	case editTrafficAction:
		err = b.ask(chatID, dialog.State{Step: dialog.AwaitingTrafficLimit, Username: entity}, fmt.Sprintf("Enter new traffic limit (GB) for %s:", entity))
	case editExpirationAction:
		err = b.ask(chatID, dialog.State{Step: dialog.AwaitingExpiration, Username: entity}, fmt.Sprintf("Enter new expiration days for %s:", entity))
	case renewPasswordAction:
		err = b.editAndReport(ctx, chatID, entity, provisioning.AccountPatch{RenewPassword: true})
	case renewCreationAction:
		err = b.editAndReport(ctx, chatID, entity, provisioning.AccountPatch{RenewCreationDate: true})
	case blockUserAction:
		keyboard := &telego.InlineKeyboardMarkup{
			InlineKeyboard: [][]telego.InlineKeyboardButton{{
				{Text: "True", CallbackData: confirmBlockAction + ":" + entity + ":true"},
				{Text: "False", CallbackData: confirmBlockAction + ":" + entity + ":false"},
			}},
		}
		err = b.sendWithKeyboard(chatID, fmt.Sprintf("Set block status for %s:", entity), keyboard)
	case confirmBlockAction:
		blocked := extra == "true"
		err = b.editAndReport(ctx, chatID, entity, provisioning.AccountPatch{Blocked: &blocked})
	case broadcastAction:
		if entity != audienceAll && entity != audienceActive && entity != audienceExpired {
			log.Errorf("Unknown broadcast audience: %s", entity)
			return
		}
		err = b.ask(chatID, dialog.State{Step: dialog.AwaitingBroadcastText, Audience: entity}, "Enter your message to broadcast (or /cancel):")
	default:
		log.Errorf("Unknown callback query: %s", query.Data)
	}
	if err != nil {
		b.replyError(ctx, chatID, err)
	}
}

func (b *Bot) editOutput(chatID int64, edit func() (string, error)) error {
	output, err := edit()
	if err != nil {
		return err
	}
	b.send(chatID, output)
	return nil
}

func (b *Bot) sendIPv6URI(ctx context.Context, chatID int64, name string) error {
	conn, err := b.gateway.GetConnection(ctx, name, provisioning.IPv6, provisioning.URIOptions{})
	if err != nil {
		return err
	}
	return b.sendQR(chatID, conn.URI, fmt.Sprintf("*IPv6 URI for* `%s`*:*\n\n`%s`", name, conn.URI), nil)
}

// handlePurchase starts a purchase, or creates a free account right away
// while diagnose mode is on.
func (b *Bot) handlePurchase(ctx context.Context, queryID string, chatID int64, rawPlan string) {
	lang := b.language(ctx, chatID)
	planID, err := models.ParsePlanID(rawPlan)
	if err != nil {
		log.Errorf("handlePurchase: %v", err)
		b.answerCallback(queryID, i18n.Text(lang, i18n.PurchaseError))
		return
	}

	if b.settings.DiagnoseMode() {
		if _, err := b.tracker.ProvisionDiagnostic(ctx, chatID, planID); err != nil {
			log.Errorf("handlePurchase: diagnostic account for chat %d failed: %v", chatID, err)
			b.answerCallback(queryID, "Failed to create configuration")
			b.send(chatID, i18n.Text(lang, i18n.GenericError))
			return
		}
		b.answerCallback(queryID, "")
		return
	}

	s, invoice, err := b.tracker.Purchase(ctx, chatID, planID)
	switch {
	case errors.Is(err, payments.ErrDisabled):
		b.answerCallback(queryID, i18n.Text(lang, i18n.PaymentDisabled))
		return
	case err != nil:
		log.Errorf("handlePurchase: purchase for chat %d failed: %v", chatID, err)
		b.answerCallback(queryID, i18n.Text(lang, i18n.PurchaseError))
		return
	}
	b.answerCallback(queryID, "")

	title := models.Plan{ID: s.PlanID}.Title()
	keyboard := &telego.InlineKeyboardMarkup{
		InlineKeyboard: [][]telego.InlineKeyboardButton{{
			{Text: i18n.Text(lang, i18n.PayButton), URL: invoice.PayURL},
		}},
	}
	text := i18n.Textf(lang, i18n.PaymentLink, s.AmountUSD.StringFixed(2), title)
	if err := b.sendWithKeyboard(chatID, text, keyboard); err != nil {
		log.Errorf("handlePurchase: failed to send the payment link to chat %d: %v", chatID, err)
	}
}

// handleInlineQuery lets admins search accounts by name from any chat.
func (b *Bot) handleInlineQuery(ctx context.Context, query telego.InlineQuery) {
	if !b.cfg.IsAdmin(query.From.ID) {
		return
	}
	accounts, err := b.gateway.ListAccounts(ctx)
	if err != nil {
		log.Errorf("handleInlineQuery: %v", err)
		params := tu.InlineQuery(query.ID)
		params.Button = &telego.InlineQueryResultsButton{Text: "Error retrieving users.", StartParameter: "users"}
		if err := b.AnswerInlineQuery(params); err != nil {
			log.Errorf("Failed to answer inline query: %v", err)
		}
		return
	}

	names := make([]string, 0, len(accounts))
	for name := range accounts {
		names = append(names, name)
	}
	sort.Strings(names)

	needle := strings.ToLower(strings.TrimSpace(query.Query))
	results := []telego.InlineQueryResult{}
	for _, name := range names {
		if !strings.Contains(strings.ToLower(name), needle) {
			continue
		}
		d := accounts[name]
		article := tu.ResultArticle(name, name, tu.TextMessage(fmt.Sprintf(
			"Name: %s\nTraffic limit: %.2f GB\nDays: %d\nAccount Creation: %s\nBlocked: %t",
			name, d.QuotaGB(), d.ExpirationDays, d.AccountCreationDate, d.Blocked)))
		article.Description = fmt.Sprintf("Traffic Limit: %.2f GB, Expiration Days: %d", d.QuotaGB(), d.ExpirationDays)
		results = append(results, article)
		if len(results) == maxInlineResults {
			break
		}
	}

	params := tu.InlineQuery(query.ID, results...)
	params.CacheTime = 0
	params.IsPersonal = true
	if err := b.AnswerInlineQuery(params); err != nil {
		log.Errorf("Failed to answer inline query: %v", err)
	}
}
