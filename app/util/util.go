package util

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"hysteriabot/m/v2/app/config"

	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"
	qrcode "github.com/skip2/go-qrcode"
)

// TelegramMessageLimit is the maximum text length of a single message.
const TelegramMessageLimit = 4096

func Env(name string, defaultValue ...string) string {
	value, ok := os.LookupEnv(name)
	if !ok && len(defaultValue) > 0 {
		return defaultValue[0]
	}
	Assert(ok, "Environment variable "+name+" not found")
	return value
}

func Assert(ok bool, args ...any) {
	if !ok {
		log.Fatal("Assertion failed, killing app!!!", append([]any{"FATAL:"}, args...))
		os.Exit(1)
	}
}

func GetBotLoggerOption(cfg *config.Config) telego.BotOption {
	if cfg.Environment == "production" {
		return telego.WithDefaultLogger(false, true)
	}
	return telego.WithDefaultDebugLogger()
}

// QRCode renders content as a PNG.
func QRCode(content string) ([]byte, error) {
	png, err := qrcode.Encode(content, qrcode.Medium, 512)
	if err != nil {
		return nil, fmt.Errorf("QRCode: %w", err)
	}
	return png, nil
}

// SplitMessage cuts s into pieces no longer than limit runes, preferring line
// boundaries.
func SplitMessage(s string, limit int) []string {
	if s == "" {
		return nil
	}
	var parts []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			parts = append(parts, current.String())
			current.Reset()
		}
	}
	for _, line := range strings.Split(s, "\n") {
		for utf8.RuneCountInString(line) > limit {
			flush()
			runes := []rune(line)
			parts = append(parts, string(runes[:limit]))
			line = string(runes[limit:])
		}
		size := utf8.RuneCountInString(current.String())
		if current.Len() > 0 && size+1+utf8.RuneCountInString(line) > limit {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)
	}
	flush()
	return parts
}
