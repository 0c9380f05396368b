// Package telegram is the chat front end: it routes updates to the admin and
// customer menus and hands purchased accounts to their owners.
package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"hysteriabot/m/v2/app/config"
	"hysteriabot/m/v2/app/db/redis"
	"hysteriabot/m/v2/app/dialog"
	"hysteriabot/m/v2/app/i18n"
	"hysteriabot/m/v2/app/ledger"
	"hysteriabot/m/v2/app/models"
	"hysteriabot/m/v2/app/payments"
	"hysteriabot/m/v2/app/provisioning"
	"hysteriabot/m/v2/app/settings"
	"hysteriabot/m/v2/app/util"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"
)

// Sender is the part of the Bot API the bot talks to. *telego.Bot
// satisfies it.
type Sender interface {
	SendMessage(params *telego.SendMessageParams) (*telego.Message, error)
	SendPhoto(params *telego.SendPhotoParams) (*telego.Message, error)
	SendDocument(params *telego.SendDocumentParams) (*telego.Message, error)
	SendChatAction(params *telego.SendChatActionParams) error
	AnswerCallbackQuery(params *telego.AnswerCallbackQueryParams) error
	AnswerInlineQuery(params *telego.AnswerInlineQueryParams) error
}

// Purchaser starts customer purchases. *settlement.Tracker satisfies it.
type Purchaser interface {
	Purchase(ctx context.Context, chatID int64, planID models.PlanID) (models.PendingSettlement, *payments.Invoice, error)
	ProvisionDiagnostic(ctx context.Context, chatID int64, planID models.PlanID) (models.AccountRecord, error)
}

type Dependencies struct {
	Gateway  *provisioning.Gateway
	Ledger   *ledger.Ledger
	Settings *settings.Settings
	Tracker  Purchaser
	Redis    redis.Client
}

type Bot struct {
	Sender
	Name string

	cfg      *config.Config
	gateway  *provisioning.Gateway
	ledger   *ledger.Ledger
	settings *settings.Settings
	tracker  Purchaser
	redis    redis.Client
	router   *dialog.Router
	queue    *dialog.ChatQueue
	commands CommandHandlers
	now      func() time.Time

	sendDelay      time.Duration
	broadcastDelay time.Duration

	started atomic.Bool
	done    chan struct{}
}

const handlerTimeout = 5 * time.Minute

// NewTelegoBot connects to the Bot API and records the bot's username in cfg.
func NewTelegoBot(cfg *config.Config) (*telego.Bot, error) {
	bot, err := telego.NewBot(cfg.TelegramBotToken, util.GetBotLoggerOption(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	botInfo, err := bot.GetMe()
	if err != nil {
		return nil, fmt.Errorf("failed to get bot info: %w", err)
	}
	log.Infof("Bot info: %+v", botInfo)
	cfg.BotName = botInfo.Username
	return bot, nil
}

func NewBot(sender Sender, cfg *config.Config, deps Dependencies) *Bot {
	b := &Bot{
		Sender:         sender,
		Name:           cfg.BotName,
		cfg:            cfg,
		gateway:        deps.Gateway,
		ledger:         deps.Ledger,
		settings:       deps.Settings,
		tracker:        deps.Tracker,
		redis:          deps.Redis,
		queue:          dialog.NewChatQueue(),
		now:            time.Now,
		sendDelay:      time.Second,
		broadcastDelay: 50 * time.Millisecond,
		done:           make(chan struct{}),
	}
	b.router = dialog.NewRouter(b.lookupCommand)
	b.commands = b.setupCommandHandlers()
	b.registerSteps()
	return b
}

// Start consumes updates until the channel is closed. Updates of one chat are
// handled in arrival order, different chats concurrently.
func (b *Bot) Start(updates <-chan telego.Update) {
	b.started.Store(true)
	go func() {
		defer close(b.done)
		for update := range updates {
			b.handleUpdate(update)
		}
	}()
}

// Stop waits for the update channel to close and for queued handlers to
// finish.
func (b *Bot) Stop() {
	if b.started.Load() {
		<-b.done
	}
	b.queue.Close()
}

func (b *Bot) metrics() statsd.ClientInterface {
	if b.cfg.DataDogClient == nil {
		return &statsd.NoOpClient{}
	}
	return b.cfg.DataDogClient
}

func (b *Bot) handleUpdate(update telego.Update) {
	var chatID int64
	var job func(ctx context.Context)
	switch {
	case update.Message != nil:
		message := *update.Message
		chatID = message.Chat.ID
		job = func(ctx context.Context) { b.handleMessage(ctx, &message) }
	case update.CallbackQuery != nil:
		query := *update.CallbackQuery
		chatID = callbackChatID(query)
		job = func(ctx context.Context) { b.handleCallbackQuery(ctx, query) }
	case update.InlineQuery != nil:
		query := *update.InlineQuery
		chatID = query.From.ID
		job = func(ctx context.Context) { b.handleInlineQuery(ctx, query) }
	default:
		log.Debugf("Ignoring update %d", update.UpdateID)
		return
	}

	submitted := b.queue.Submit(chatID, func() {
		ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
		defer cancel()
		job(ctx)
	})
	if !submitted {
		log.Warnf("Dropping update %d for chat %d, the bot is stopping", update.UpdateID, chatID)
	}
}

func (b *Bot) handleMessage(ctx context.Context, message *telego.Message) {
	chatID := message.Chat.ID
	if message.Chat.Type != "private" {
		log.Infof("Ignoring message in non-private chat %d", chatID)
		return
	}
	if message.Text == "" {
		return
	}
	_ = b.metrics().Incr("telegram.text_message_received", nil, 1)

	res, err := b.router.Dispatch(ctx, chatID, message.Text)
	switch {
	case err != nil:
		b.replyError(ctx, chatID, err)
	case res == dialog.Unhandled:
		b.handleUnknown(chatID, message.Text)
	case strings.TrimSpace(message.Text) == dialog.CancelCommand:
		b.send(chatID, i18n.Text(b.language(ctx, chatID), i18n.Cancelled))
	}
}

func (b *Bot) handleUnknown(chatID int64, text string) {
	if strings.HasPrefix(text, "/") {
		_ = b.metrics().Incr("unknown_command", nil, 1)
		b.send(chatID, "Unknown command \U0001f937")
		return
	}
	log.Debugf("No handler for message in chat %d", chatID)
}

// replyError shows validation messages as they are. Admins get the
// provisioning tool's own words, customers a fixed text.
func (b *Bot) replyError(ctx context.Context, chatID int64, err error) {
	if errors.Is(err, dialog.ErrValidation) {
		b.send(chatID, dialog.ValidationMessage(err))
		return
	}
	log.Errorf("Failed to handle update in chat %d: %v", chatID, err)
	if b.cfg.IsAdmin(chatID) {
		b.send(chatID, "❌ "+provisioning.AdminMessage(err))
		return
	}
	b.send(chatID, i18n.Text(b.language(ctx, chatID), i18n.GenericError))
}

func (b *Bot) language(ctx context.Context, chatID int64) string {
	return redis.GetLanguage(ctx, b.redis, chatID, i18n.DefaultLanguage)
}

func (b *Bot) send(chatID int64, text string) {
	if _, err := b.SendMessage(tu.Message(tu.ID(chatID), text)); err != nil {
		log.Errorf("Failed to send message to chat %d: %v", chatID, err)
	}
}

// sendMarkdown falls back to plain text when Telegram rejects the markup,
// i.e. for admin-written texts.
func (b *Bot) sendMarkdown(chatID int64, text string) {
	_, err := b.SendMessage(tu.Message(tu.ID(chatID), text).WithParseMode(telego.ModeMarkdown))
	if err == nil {
		return
	}
	log.Warnf("Failed to send markdown to chat %d, retrying as plain text: %v", chatID, err)
	b.send(chatID, text)
}

func (b *Bot) sendWithKeyboard(chatID int64, text string, markup telego.ReplyMarkup) error {
	_, err := b.SendMessage(tu.Message(tu.ID(chatID), text).WithReplyMarkup(markup))
	return err
}

func (b *Bot) sendQR(chatID int64, content, caption string, markup *telego.InlineKeyboardMarkup) error {
	return sendQR(b.Sender, chatID, content, caption, markup)
}

// sendQR sends content as a QR code photo with a markdown caption.
func sendQR(sender Sender, chatID int64, content, caption string, markup *telego.InlineKeyboardMarkup) error {
	png, err := util.QRCode(content)
	if err != nil {
		return err
	}
	params := tu.Photo(tu.ID(chatID), tu.File(tu.NameReader(bytes.NewReader(png), "qr.png"))).
		WithCaption(caption).
		WithParseMode(telego.ModeMarkdown)
	if markup != nil {
		params = params.WithReplyMarkup(markup)
	}
	if _, err := sender.SendPhoto(params); err != nil {
		return fmt.Errorf("sendQR: %w", err)
	}
	return nil
}

func (b *Bot) sendTypingAction(chatID int64) {
	err := b.SendChatAction(&telego.SendChatActionParams{ChatID: tu.ID(chatID), Action: telego.ChatActionTyping})
	if err != nil {
		log.Errorf("Failed to send chat action: %v", err)
	}
}

// ChunkSendMessage sends text in as many messages as Telegram's size limit
// requires.
func ChunkSendMessage(sender Sender, chatID telego.ChatID, text string) {
	for _, part := range util.SplitMessage(text, util.TelegramMessageLimit) {
		if _, err := sender.SendMessage(tu.Message(chatID, part)); err != nil {
			log.Errorf("Failed to send message to chat %d: %v", chatID.ID, err)
			return
		}
	}
}
