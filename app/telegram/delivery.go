package telegram

import (
	"context"
	"fmt"

	"hysteriabot/m/v2/app/db/redis"
	"hysteriabot/m/v2/app/i18n"
	"hysteriabot/m/v2/app/models"
	"hysteriabot/m/v2/app/settlement"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"
)

// Notifier sends settlement outcomes to customers and alerts to admins.
type Notifier struct {
	sender Sender
	redis  redis.Client
	admins []int64
}

var (
	_ settlement.Deliverer = (*Notifier)(nil)
	_ settlement.Alerter   = (*Notifier)(nil)
)

func NewNotifier(sender Sender, redisClient redis.Client, admins []int64) *Notifier {
	return &Notifier{sender: sender, redis: redisClient, admins: admins}
}

func (n *Notifier) language(ctx context.Context, chatID int64) string {
	return redis.GetLanguage(ctx, n.redis, chatID, i18n.DefaultLanguage)
}

// DeliverAccount sends the new account as a QR code with its connection URI.
func (n *Notifier) DeliverAccount(ctx context.Context, d settlement.Delivery) error {
	lang := n.language(ctx, d.ChatID)
	title := models.Plan{ID: d.Record.PlanID}.Title()
	caption := i18n.Textf(lang, i18n.AccountReady, title, d.Record.AccountName, d.Record.QuotaGB, d.Record.DurationDays, d.Connection.URI)
	if d.Record.IsDiagnostic {
		caption = i18n.Textf(lang, i18n.DiagnosticReady, title) + "\n\n" + caption
	}
	if d.Connection.NormalSublink != "" {
		caption += fmt.Sprintf("\n\n*Normal SUB:*\n`%s`", d.Connection.NormalSublink)
	}
	return sendQR(n.sender, d.ChatID, d.Connection.URI, caption, nil)
}

func (n *Notifier) NotifyClosed(ctx context.Context, s models.PendingSettlement) error {
	key := i18n.SettlementFailed
	if s.Status == models.SettlementExpired {
		key = i18n.SettlementExpired
	}
	text := i18n.Textf(n.language(ctx, s.ChatID), key, models.Plan{ID: s.PlanID}.Title())
	_, err := n.sender.SendMessage(tu.Message(tu.ID(s.ChatID), text))
	return err
}

// Alert messages every admin. Failures are only logged.
func (n *Notifier) Alert(ctx context.Context, text string) {
	for _, admin := range n.admins {
		if _, err := n.sender.SendMessage(tu.Message(tu.ID(admin), "⚠️ "+text)); err != nil {
			log.Errorf("Alert: failed to notify admin %d: %v", admin, err)
		}
	}
}

// NotifyAdmins sends a markdown report to every admin, as plain text when
// the markup is rejected.
func (n *Notifier) NotifyAdmins(ctx context.Context, text string) {
	for _, admin := range n.admins {
		_, err := n.sender.SendMessage(tu.Message(tu.ID(admin), text).WithParseMode(telego.ModeMarkdown))
		if err == nil {
			continue
		}
		if _, err := n.sender.SendMessage(tu.Message(tu.ID(admin), text)); err != nil {
			log.Errorf("NotifyAdmins: failed to notify admin %d: %v", admin, err)
		}
	}
}
