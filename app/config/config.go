package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/go-playground/validator/v10"
)

var CONFIG *Config

type Config struct {
	AdminUserIDs         []int64 `validate:"min=1"`
	BackendListenAddress string
	BotName              string
	DataDogClient        statsd.ClientInterface
	Environment          string `validate:"oneof=dev test production"`
	Hysteria             Hysteria
	LogFile              string
	MongoDBConnection    string `validate:"required"`
	MongoDBName          string `validate:"required"`
	Payments             Payments
	Redis                Redis
	SalesReportInterval  time.Duration `validate:"gt=0"`
	StatusWorkerInterval time.Duration `validate:"gt=0"`
	TelegramBotToken     string        `validate:"required"`
}

// Hysteria points at the provisioning CLI on the VPN host.
type Hysteria struct {
	Python          string `validate:"required"`
	CLIPath         string `validate:"required"`
	LockFile        string
	BackupDirectory string `validate:"required"`
	CommandTimeout  time.Duration
}

// Payments holds the processor defaults. Admins may override credentials at
// runtime through the payment settings document.
type Payments struct {
	CryptomusBaseURL   string `validate:"required,url"`
	MerchantID         string
	PaymentKey         string
	ReturnURL          string
	WebhookSuffix      string
	PollInterval       time.Duration `validate:"gt=0"`
	PollTimeout        time.Duration `validate:"gt=0"`
	PollMaxAttempts    int           `validate:"gt=0"`
	HTTPRequestTimeout time.Duration
}

type Redis struct {
	Host     string
	Port     string
	Password string
}

func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

func (c *Config) IsAdmin(chatID int64) bool {
	for _, id := range c.AdminUserIDs {
		if id == chatID {
			return true
		}
	}
	return false
}

// ParseAdminIDs accepts a JSON array ("[1, 2]") or a comma separated list.
func ParseAdminIDs(raw string) ([]int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if strings.HasPrefix(raw, "[") {
		var ids []int64
		if err := json.Unmarshal([]byte(raw), &ids); err != nil {
			return nil, fmt.Errorf("ParseAdminIDs: %w", err)
		}
		return ids, nil
	}
	ids := []int64{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("ParseAdminIDs: invalid id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ParseDuration parses a Go duration and falls back to def on empty or bad
// input.
func ParseDuration(raw string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func ParseInt(raw string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return def
	}
	return n
}
