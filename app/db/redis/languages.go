package redis

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// ServerInfoKey caches the provisioning host's status report.
const ServerInfoKey = "hysteria:server_info"

func languageKey(chatID int64) string {
	return fmt.Sprintf("%d:language", chatID)
}

func SaveLanguage(ctx context.Context, c Client, chatID int64, lang string) error {
	log.Infof("Setting language to %s for chat %d", lang, chatID)
	if err := c.Set(ctx, languageKey(chatID), lang, 0).Err(); err != nil {
		return fmt.Errorf("SaveLanguage: %w", err)
	}
	return nil
}

// GetLanguage returns the chat's language, or def when none was chosen or
// redis is unavailable.
func GetLanguage(ctx context.Context, c Client, chatID int64, def string) string {
	lang, err := c.Get(ctx, languageKey(chatID)).Result()
	if err != nil || lang == "" {
		return def
	}
	return lang
}

func ClearLanguage(ctx context.Context, c Client, chatID int64) error {
	return c.Del(ctx, languageKey(chatID)).Err()
}
