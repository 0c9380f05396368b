package telegram

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"hysteriabot/m/v2/app/db/redis"
	"hysteriabot/m/v2/app/dialog"
	"hysteriabot/m/v2/app/ledger"
	"hysteriabot/m/v2/app/models"
	"hysteriabot/m/v2/app/provisioning"
	"hysteriabot/m/v2/app/settings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"
)

const serverInfoTTL = time.Minute

// Broadcast audiences, picked by the blocked flag of each account.
const (
	audienceAll     = "all"
	audienceActive  = "active"
	audienceExpired = "expired"
)

const pricesFormatHelp = "Please use format: basic_price premium_price ultimate_price\nExample: 1.8 3.0 4.2"

func (b *Bot) registerSteps() {
	b.router.RegisterStep(dialog.AwaitingNewUsername, b.newUsernameStep)
	b.router.RegisterStep(dialog.AwaitingNewQuota, b.newQuotaStep)
	b.router.RegisterStep(dialog.AwaitingNewDays, b.newDaysStep)
	b.router.RegisterStep(dialog.AwaitingShowUsername, b.showUserStep)
	b.router.RegisterStep(dialog.AwaitingDeleteUsername, b.deleteUserStep)
	b.router.RegisterStep(dialog.AwaitingRename, b.renameStep)
	b.router.RegisterStep(dialog.AwaitingTrafficLimit, b.trafficLimitStep)
	b.router.RegisterStep(dialog.AwaitingExpiration, b.expirationStep)
	b.router.RegisterStep(dialog.AwaitingBroadcastText, b.broadcastStep)
	b.router.RegisterStep(dialog.AwaitingHelpMessage, b.helpMessageStep)
	b.router.RegisterStep(dialog.AwaitingMerchantID, b.merchantStep)
	b.router.RegisterStep(dialog.AwaitingPaymentKey, b.paymentKeyStep)
	b.router.RegisterStep(dialog.AwaitingPrices, b.pricesStep)
}

// ask arms the next form step and prompts for it.
func (b *Bot) ask(chatID int64, st dialog.State, prompt string) error {
	b.router.SetState(chatID, st)
	b.send(chatID, prompt)
	return nil
}

func parsePositive(text string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func (b *Bot) addUser(ctx context.Context, chatID int64, text string) error {
	return b.ask(chatID, dialog.State{Step: dialog.AwaitingNewUsername}, "Enter username:")
}

func (b *Bot) newUsernameStep(ctx context.Context, chatID int64, text string, st dialog.State) error {
	username := strings.TrimSpace(text)
	if username == "" {
		return dialog.Validation("Username cannot be empty. Please enter a valid username.")
	}
	accounts, err := b.gateway.ListAccounts(ctx)
	if err != nil {
		return err
	}
	for existing := range accounts {
		if strings.EqualFold(existing, username) {
			return dialog.Validation("Username '%s' already exists. Please choose a different username.", username)
		}
	}
	return b.ask(chatID, dialog.State{Step: dialog.AwaitingNewQuota, Username: username}, "Enter traffic limit (GB):")
}

func (b *Bot) newQuotaStep(ctx context.Context, chatID int64, text string, st dialog.State) error {
	quota, ok := parsePositive(text)
	if !ok {
		return dialog.Validation("Invalid traffic limit. Please enter a number.")
	}
	return b.ask(chatID, dialog.State{Step: dialog.AwaitingNewDays, Username: st.Username, QuotaGB: quota}, "Enter expiration days:")
}

func (b *Bot) newDaysStep(ctx context.Context, chatID int64, text string, st dialog.State) error {
	days, ok := parsePositive(text)
	if !ok {
		return dialog.Validation("Invalid expiration days. Please enter a number.")
	}
	b.sendTypingAction(chatID)
	receipt, err := b.gateway.CreateAccount(ctx, st.Username, st.QuotaGB, days)
	if err != nil {
		return err
	}
	conn, err := b.gateway.GetConnection(ctx, strings.ToLower(st.Username), provisioning.IPv4, provisioning.URIOptions{Singbox: true, NormalSub: true})
	if err != nil {
		return err
	}
	return b.sendQR(chatID, conn.URI, fmt.Sprintf("%s\n\n`%s`", receipt.Output, conn.URI), nil)
}

func (b *Bot) showUser(ctx context.Context, chatID int64, text string) error {
	return b.ask(chatID, dialog.State{Step: dialog.AwaitingShowUsername}, "Enter username:")
}

func (b *Bot) showUserStep(ctx context.Context, chatID int64, text string, st dialog.State) error {
	b.sendTypingAction(chatID)
	name, err := b.gateway.FindAccount(ctx, text)
	if err != nil {
		return err
	}
	details, err := b.gateway.GetAccount(ctx, name)
	if err != nil {
		return err
	}
	conn, err := b.gateway.GetConnection(ctx, name, provisioning.IPv4, provisioning.URIOptions{Singbox: true, NormalSub: true})
	if err != nil {
		return err
	}
	return b.sendQR(chatID, conn.URI, userDetailsCaption(name, details, conn), userActionsKeyboard(name))
}

func bytesToGB(n int64) float64 {
	return float64(n) / (1 << 30)
}

func userDetailsCaption(name string, d *models.AccountDetails, conn *provisioning.Connection) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "*User Details:*\n\nName: `%s`\nTraffic Limit: %.2f GB\nDays: %d\nAccount Creation: %s\nBlocked: %t\n\n",
		name, d.QuotaGB(), d.ExpirationDays, d.AccountCreationDate, d.Blocked)
	if d.HasTraffic() {
		fmt.Fprintf(&sb, "*Traffic Data:*\nUpload: %.2f GB\nDownload: %.2f GB\nStatus: %s",
			bytesToGB(*d.UploadBytes), bytesToGB(*d.DownloadBytes), d.Status)
	} else {
		sb.WriteString("*Traffic Data:*\nUser not active or no traffic data available.")
	}
	fmt.Fprintf(&sb, "\n\n*IPv4 URI:*\n\n`%s`", conn.URI)
	if conn.SingboxSublink != "" {
		fmt.Fprintf(&sb, "\n\n*SingBox SUB:*\n`%s`", conn.SingboxSublink)
	}
	if conn.NormalSublink != "" {
		fmt.Fprintf(&sb, "\n\n*Normal SUB:*\n`%s`", conn.NormalSublink)
	}
	return sb.String()
}

func userActionsKeyboard(name string) *telego.InlineKeyboardMarkup {
	button := func(text, action string) telego.InlineKeyboardButton {
		return telego.InlineKeyboardButton{Text: text, CallbackData: action + ":" + name}
	}
	return &telego.InlineKeyboardMarkup{
		InlineKeyboard: [][]telego.InlineKeyboardButton{
			{button("Reset User", resetUserAction), button("IPv6-URI", ipv6URIAction)},
			{button("Edit Username", editUsernameAction), button("Edit Traffic Limit", editTrafficAction)},
			{button("Edit Expiration Days", editExpirationAction), button("Renew Password", renewPasswordAction)},
			{button("Renew Creation Date", renewCreationAction), button("Block User", blockUserAction)},
		},
	}
}

func (b *Bot) deleteUser(ctx context.Context, chatID int64, text string) error {
	return b.ask(chatID, dialog.State{Step: dialog.AwaitingDeleteUsername}, "Enter username:")
}

func (b *Bot) deleteUserStep(ctx context.Context, chatID int64, text string, st dialog.State) error {
	output, err := b.gateway.RemoveAccount(ctx, strings.ToLower(strings.TrimSpace(text)))
	if err != nil {
		return err
	}
	b.send(chatID, output)
	return nil
}

// renameStep renames the account and points its ledger entry at the new
// name so the owner keeps seeing it.
func (b *Bot) renameStep(ctx context.Context, chatID int64, text string, st dialog.State) error {
	newName := strings.TrimSpace(text)
	if newName == "" {
		return dialog.Validation("Username cannot be empty. Please enter a valid username.")
	}
	output, err := b.gateway.EditAccount(ctx, st.Username, provisioning.AccountPatch{NewName: newName})
	if err != nil {
		return err
	}
	renamed, err := b.ledger.Rename(ctx, st.Username, newName)
	if err != nil {
		log.Errorf("Renamed %s to %s but the ledger still has the old name: %v", st.Username, newName, err)
		b.send(chatID, output+"\n\n⚠️ The purchase record still uses the old name.")
		return nil
	}
	if renamed {
		log.Infof("Ledger entry %s renamed to %s", st.Username, newName)
	}
	b.send(chatID, output)
	return nil
}

func (b *Bot) trafficLimitStep(ctx context.Context, chatID int64, text string, st dialog.State) error {
	quota, ok := parsePositive(text)
	if !ok {
		return dialog.Validation("Invalid traffic limit. Please enter a number.")
	}
	return b.editAndReport(ctx, chatID, st.Username, provisioning.AccountPatch{NewQuotaGB: &quota})
}

func (b *Bot) expirationStep(ctx context.Context, chatID int64, text string, st dialog.State) error {
	days, ok := parsePositive(text)
	if !ok {
		return dialog.Validation("Invalid expiration days. Please enter a number.")
	}
	return b.editAndReport(ctx, chatID, st.Username, provisioning.AccountPatch{NewExpirationDays: &days})
}

func (b *Bot) editAndReport(ctx context.Context, chatID int64, name string, patch provisioning.AccountPatch) error {
	output, err := b.gateway.EditAccount(ctx, name, patch)
	if err != nil {
		return err
	}
	b.send(chatID, output)
	return nil
}

func (b *Bot) serverInfo(ctx context.Context, chatID int64, text string) error {
	b.sendTypingAction(chatID)
	info, err := redis.WrapInCache(b.redis, redis.ServerInfoKey, serverInfoTTL, func() (string, error) {
		return b.gateway.ServerInfo(ctx)
	})()
	if err != nil {
		return err
	}
	ChunkSendMessage(b.Sender, tu.ID(chatID), info)
	return nil
}

func (b *Bot) backup(ctx context.Context, chatID int64, text string) error {
	b.send(chatID, "Starting backup. This may take a few moments...")
	b.sendTypingAction(chatID)
	path, err := b.gateway.Backup(ctx)
	if err != nil {
		b.send(chatID, "Backup failed: "+provisioning.AdminMessage(err))
		return nil
	}
	b.send(chatID, "Backup completed successfully!")

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("backup: %w", err)
	}
	defer file.Close()
	_, err = b.SendDocument(tu.Document(tu.ID(chatID), tu.File(file)).WithCaption("Backup completed: " + filepath.Base(path)))
	return err
}

func (b *Bot) salesStats(ctx context.Context, chatID int64, text string) error {
	stats, err := SalesStats(ctx, b.ledger, b.settings, b.now())
	if err != nil {
		return err
	}
	b.sendMarkdown(chatID, stats)
	return nil
}

// SalesStats reports the last 24 hours and 7 days of sales, with diagnostic
// accounts counted apart.
func SalesStats(ctx context.Context, l *ledger.Ledger, s *settings.Settings, now time.Time) (string, error) {
	payment, err := s.Payment(ctx)
	if err != nil {
		return "", err
	}
	day := now.Add(-24 * time.Hour)
	week := now.Add(-7 * 24 * time.Hour)

	summaries := make([]ledger.Summary, 0, 4)
	for _, q := range []struct {
		since  time.Time
		filter ledger.Filter
	}{
		{day, ledger.ExcludeDiagnostic},
		{week, ledger.ExcludeDiagnostic},
		{day, ledger.OnlyDiagnostic},
		{week, ledger.OnlyDiagnostic},
	} {
		summary, err := l.Aggregate(ctx, q.since, &now, q.filter, payment.Prices)
		if err != nil {
			return "", err
		}
		summaries = append(summaries, summary)
	}

	var sb strings.Builder
	sb.WriteString("📊 *Sales Statistics*\n\n")
	writeSales(&sb, "Today's Sales", summaries[0])
	sb.WriteString("\n\n")
	writeSales(&sb, "Weekly Sales", summaries[1])
	sb.WriteString("\n\n🧪 *Diagnose Mode Stats*\n\n")
	writeTestConfigs(&sb, "Today's Test Configs", summaries[2])
	sb.WriteString("\n\n")
	writeTestConfigs(&sb, "Weekly Test Configs", summaries[3])
	return sb.String(), nil
}

func writeSales(sb *strings.Builder, title string, s ledger.Summary) {
	fmt.Fprintf(sb, "*%s:*\nTotal Configs: %d\nTotal Profit: $%s", title, s.Count, s.TotalRevenue.StringFixed(2))
	writePlanCounts(sb, s)
}

func writeTestConfigs(sb *strings.Builder, title string, s ledger.Summary) {
	fmt.Fprintf(sb, "*%s:*\nTotal Test Configs: %d", title, s.Count)
	writePlanCounts(sb, s)
}

func writePlanCounts(sb *strings.Builder, s ledger.Summary) {
	for _, plan := range models.DefaultCatalog {
		fmt.Fprintf(sb, "\n%s Plans: %d", plan.Title(), s.PerPlan[plan.ID])
	}
}

func (b *Bot) broadcast(ctx context.Context, chatID int64, text string) error {
	keyboard := &telego.InlineKeyboardMarkup{
		InlineKeyboard: [][]telego.InlineKeyboardButton{
			{{Text: "👥 All Users", CallbackData: broadcastAction + ":" + audienceAll}},
			{{Text: "✅ Active Users", CallbackData: broadcastAction + ":" + audienceActive}},
			{{Text: "⛔️ Expired Users", CallbackData: broadcastAction + ":" + audienceExpired}},
		},
	}
	return b.sendWithKeyboard(chatID, "Select users to send message to:", keyboard)
}

// broadcastStep sends text to every chat owning an account of the audience.
// A chat with several accounts is tried once.
func (b *Bot) broadcastStep(ctx context.Context, chatID int64, text string, st dialog.State) error {
	accounts, err := b.gateway.ListAccounts(ctx)
	if err != nil {
		return err
	}
	owners, err := b.ledger.ChatsByAccount(ctx)
	if err != nil {
		return err
	}
	recipients := map[int64]bool{}
	for name, owner := range owners {
		if _, ok := accounts[name]; ok {
			recipients[owner] = true
		}
	}

	names := make([]string, 0, len(accounts))
	for name := range accounts {
		names = append(names, name)
	}
	sort.Strings(names)

	sent, failed := 0, 0
	done := map[int64]bool{}
	for _, name := range names {
		blocked := accounts[name].Blocked
		if (st.Audience == audienceActive && blocked) || (st.Audience == audienceExpired && !blocked) {
			continue
		}
		owner, ok := owners[name]
		if !ok || done[owner] {
			continue
		}
		done[owner] = true
		if _, err := b.SendMessage(tu.Message(tu.ID(owner), text).WithParseMode(telego.ModeMarkdown)); err != nil {
			log.Warnf("broadcast: failed to reach chat %d: %v", owner, err)
			failed++
			continue
		}
		sent++
		if sent%5 == 0 {
			b.send(chatID, fmt.Sprintf("Progress: %d/%d messages sent...", sent, len(recipients)))
		}
		time.Sleep(b.broadcastDelay)
	}

	report := fmt.Sprintf("📢 *Broadcast Complete*\n\n✅ Successfully sent: %d\n❌ Failed to send: %d\n👥 Total unique users: %d\n🎯 Selected group: %s",
		sent, failed, len(recipients), st.Audience)
	b.sendMarkdown(chatID, report)
	return nil
}

func (b *Bot) editHelp(ctx context.Context, chatID int64, text string) error {
	current, err := b.settings.HelpMessage(ctx)
	if err != nil {
		log.Warnf("editHelp: %v", err)
	}
	prompt := "Current help message is:\n\n" + current + "\n\nSend the new help message (or /cancel to keep current):"
	return b.ask(chatID, dialog.State{Step: dialog.AwaitingHelpMessage}, prompt)
}

func (b *Bot) helpMessageStep(ctx context.Context, chatID int64, text string, st dialog.State) error {
	if strings.TrimSpace(text) == "" {
		return dialog.Validation("Help message cannot be empty.")
	}
	if err := b.settings.SetHelpMessage(ctx, text); err != nil {
		return err
	}
	b.send(chatID, "✅ Help message updated successfully!")
	return nil
}

func (b *Bot) paymentSettings(ctx context.Context, chatID int64, text string) error {
	return b.ask(chatID, dialog.State{Step: dialog.AwaitingMerchantID}, "Please enter your Cryptomus Merchant ID (or /cancel):")
}

func (b *Bot) merchantStep(ctx context.Context, chatID int64, text string, st dialog.State) error {
	merchantID := strings.TrimSpace(text)
	if merchantID == "" {
		return dialog.Validation("Merchant ID cannot be empty.")
	}
	if err := b.settings.SetMerchant(ctx, merchantID); err != nil {
		return err
	}
	return b.ask(chatID, dialog.State{Step: dialog.AwaitingPaymentKey}, "Now enter your Cryptomus Payment Key:")
}

func (b *Bot) paymentKeyStep(ctx context.Context, chatID int64, text string, st dialog.State) error {
	key := strings.TrimSpace(text)
	if key == "" {
		return dialog.Validation("Payment key cannot be empty.")
	}
	enabled, err := b.settings.SetPaymentKey(ctx, key)
	if err != nil {
		return err
	}
	status := "disabled"
	if enabled {
		status = "enabled"
	}
	b.send(chatID, fmt.Sprintf("✅ Payment settings updated successfully!\nPayments are %s.", status))
	return nil
}

func (b *Bot) editPlans(ctx context.Context, chatID int64, text string) error {
	catalog, err := b.settings.Catalog(ctx)
	if err != nil {
		return err
	}
	prompt := "Current plan prices:\n" + formatPrices(catalog) +
		"\n\nEnter new prices in this format:\nbasic_price premium_price ultimate_price\nExample: 1.8 3.0 4.2\n\nOr type /cancel to cancel."
	return b.ask(chatID, dialog.State{Step: dialog.AwaitingPrices}, prompt)
}

func (b *Bot) pricesStep(ctx context.Context, chatID int64, text string, st dialog.State) error {
	catalog, err := b.settings.Catalog(ctx)
	if err != nil {
		return err
	}
	prices, err := settings.ParsePrices(catalog, text)
	if err != nil {
		return dialog.Validation("❌ Invalid input format. %s", pricesFormatHelp)
	}
	if err := b.settings.SetPrices(ctx, prices); err != nil {
		return err
	}
	b.send(chatID, "✅ Plan prices updated successfully!\n\nNew prices:\n"+formatPrices(catalog.WithPrices(prices)))
	return nil
}

func formatPrices(catalog models.Catalog) string {
	lines := make([]string, 0, len(catalog))
	for _, plan := range catalog {
		lines = append(lines, fmt.Sprintf("%s: $%s", plan.Title(), plan.PriceUSD.String()))
	}
	return strings.Join(lines, "\n")
}

func (b *Bot) toggleDiagnose(ctx context.Context, chatID int64, text string) error {
	status := "OFF"
	if b.settings.ToggleDiagnose() {
		status = "ON"
	}
	b.send(chatID, fmt.Sprintf("Diagnose mode is now %s.", status))
	return nil
}
