package telegram

import (
	"context"
	"strings"

	"hysteriabot/m/v2/app/dialog"
	"hysteriabot/m/v2/app/i18n"

	"github.com/mymmrac/telego"
)

const (
	StartCommand = "/start"
	HelpCommand  = "/help"
)

// Admin menu buttons.
const (
	AddUserButton         = "➕ Add User"
	ShowUserButton        = "👥 Show User"
	DeleteUserButton      = "❌ Delete User"
	ServerInfoButton      = "📊 Server Info"
	BackupButton          = "💾 Backup Server"
	SalesStatsButton      = "📈 Sales Stats"
	BroadcastButton       = "📢 Broadcast Message"
	EditHelpButton        = "📝 Edit Help"
	PaymentSettingsButton = "⚙️ Payment Settings"
	EditPlansButton       = "💰 Edit Plans"
	ToggleDiagnoseButton  = "🔍 Toggle Diagnose Mode"
)

const languagePrompt = "Please select your language / لطفا زبان خود را انتخاب کنید / Выберите ваш язык / 请选择语言 / Diliňizi saýlaň / الرجاء اختيار لغتك"

// CommandHandler binds a slash command or a menu button to its handler.
// Name tags the command metric.
type CommandHandler struct {
	Command string
	Name    string
	Admin   bool
	Handler dialog.Handler
}

type CommandHandlers []*CommandHandler

func newCommandHandler(command, name string, handler dialog.Handler) *CommandHandler {
	return &CommandHandler{Command: command, Name: name, Handler: handler}
}

func newAdminCommandHandler(command, name string, handler dialog.Handler) *CommandHandler {
	return &CommandHandler{Command: command, Name: name, Admin: true, Handler: handler}
}

func (b *Bot) setupCommandHandlers() CommandHandlers {
	return CommandHandlers{
		newCommandHandler(StartCommand, "start", b.start),
		newCommandHandler(HelpCommand, "help", b.support),
		newAdminCommandHandler(AddUserButton, "add_user", b.addUser),
		newAdminCommandHandler(ShowUserButton, "show_user", b.showUser),
		newAdminCommandHandler(DeleteUserButton, "delete_user", b.deleteUser),
		newAdminCommandHandler(ServerInfoButton, "server_info", b.serverInfo),
		newAdminCommandHandler(BackupButton, "backup", b.backup),
		newAdminCommandHandler(SalesStatsButton, "sales_stats", b.salesStats),
		newAdminCommandHandler(BroadcastButton, "broadcast", b.broadcast),
		newAdminCommandHandler(EditHelpButton, "edit_help", b.editHelp),
		newAdminCommandHandler(PaymentSettingsButton, "payment_settings", b.paymentSettings),
		newAdminCommandHandler(EditPlansButton, "edit_plans", b.editPlans),
		newAdminCommandHandler(ToggleDiagnoseButton, "toggle_diagnose", b.toggleDiagnose),
	}
}

func (c CommandHandlers) get(command string, isAdmin bool) *CommandHandler {
	for _, ch := range c {
		if ch.Command == command && (isAdmin || !ch.Admin) {
			return ch
		}
	}
	return nil
}

// normalizeCommand strips a trailing @botname from slash commands.
func (b *Bot) normalizeCommand(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return text
	}
	command := strings.Split(text, " ")[0]
	if b.Name != "" {
		command = strings.ReplaceAll(command, "@"+b.Name, "")
	}
	return command
}

// lookupCommand resolves text for the dialog router. Admins reach the admin
// table and the customer menu, customers only the latter.
func (b *Bot) lookupCommand(chatID int64, text string) (dialog.Handler, bool) {
	if ch := b.commands.get(b.normalizeCommand(text), b.cfg.IsAdmin(chatID)); ch != nil {
		b.countCommand(ch.Name)
		return ch.Handler, true
	}
	if code, ok := i18n.LanguageByButton(text); ok {
		b.countCommand("language")
		return func(ctx context.Context, chatID int64, text string) error {
			return b.selectLanguage(ctx, chatID, code)
		}, true
	}
	key, ok := i18n.KeyByButton(text, i18n.ViewConfig, i18n.ViewPlans, i18n.Downloads, i18n.Support)
	if !ok {
		return nil, false
	}
	b.countCommand(string(key))
	switch key {
	case i18n.ViewConfig:
		return b.viewConfig, true
	case i18n.ViewPlans:
		return b.viewPlans, true
	case i18n.Downloads:
		return b.downloads, true
	default:
		return b.support, true
	}
}

func (b *Bot) countCommand(name string) {
	_ = b.metrics().Incr("command", []string{"command:" + name, "bot_name:" + b.Name}, 1)
}

func (b *Bot) start(ctx context.Context, chatID int64, text string) error {
	if b.cfg.IsAdmin(chatID) {
		return b.sendWithKeyboard(chatID, "Welcome, Admin! Please select an option:", adminKeyboard())
	}
	return b.sendWithKeyboard(chatID, languagePrompt, languageKeyboard())
}

func adminKeyboard() *telego.ReplyKeyboardMarkup {
	return replyKeyboard([][]string{
		{AddUserButton, ShowUserButton},
		{DeleteUserButton, ServerInfoButton},
		{BackupButton, SalesStatsButton},
		{BroadcastButton, EditHelpButton},
		{PaymentSettingsButton, EditPlansButton},
		{ToggleDiagnoseButton},
	})
}

func languageKeyboard() *telego.ReplyKeyboardMarkup {
	rows := [][]string{}
	for i := 0; i < len(i18n.Languages); i += 2 {
		row := []string{i18n.Languages[i].Label}
		if i+1 < len(i18n.Languages) {
			row = append(row, i18n.Languages[i+1].Label)
		}
		rows = append(rows, row)
	}
	return replyKeyboard(rows)
}

func clientKeyboard(lang string) *telego.ReplyKeyboardMarkup {
	return replyKeyboard([][]string{
		{i18n.Text(lang, i18n.ViewConfig), i18n.Text(lang, i18n.ViewPlans)},
		{i18n.Text(lang, i18n.Downloads), i18n.Text(lang, i18n.Support)},
	})
}

func replyKeyboard(labels [][]string) *telego.ReplyKeyboardMarkup {
	rows := make([][]telego.KeyboardButton, 0, len(labels))
	for _, row := range labels {
		buttons := make([]telego.KeyboardButton, 0, len(row))
		for _, label := range row {
			buttons = append(buttons, telego.KeyboardButton{Text: label})
		}
		rows = append(rows, buttons)
	}
	return &telego.ReplyKeyboardMarkup{Keyboard: rows, ResizeKeyboard: true}
}
