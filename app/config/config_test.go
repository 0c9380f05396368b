package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseAdminIDs(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []int64
		wantErr bool
	}{
		{name: "json array", raw: "[123, 456]", want: []int64{123, 456}},
		{name: "comma list", raw: "123, 456,", want: []int64{123, 456}},
		{name: "empty", raw: "  ", want: nil},
		{name: "garbage", raw: "12a", wantErr: true},
		{name: "broken json", raw: "[12", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAdminIDs(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDurationAndInt(t *testing.T) {
	assert.Equal(t, 15*time.Second, ParseDuration("15s", time.Minute))
	assert.Equal(t, time.Minute, ParseDuration("", time.Minute))
	assert.Equal(t, time.Minute, ParseDuration("-1s", time.Minute))
	assert.Equal(t, 7, ParseInt("7", 3))
	assert.Equal(t, 3, ParseInt("x", 3))
}

func validConfig() *Config {
	return &Config{
		AdminUserIDs:      []int64{1},
		Environment:       "dev",
		MongoDBConnection: "mongodb://localhost:27017",
		MongoDBName:       "hysteriabot",
		Hysteria: Hysteria{
			Python:          "python3",
			CLIPath:         "/etc/hysteria/core/cli.py",
			BackupDirectory: "/opt/hysbackup",
		},
		Payments: Payments{
			CryptomusBaseURL: "https://api.cryptomus.com/v1",
			PollInterval:     10 * time.Second,
			PollTimeout:      time.Hour,
			PollMaxAttempts:  360,
		},
		SalesReportInterval:  24 * time.Hour,
		StatusWorkerInterval: time.Minute,
		TelegramBotToken:     "123:abc",
	}
}

func TestValidate(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())
	assert.True(t, cfg.IsAdmin(1))
	assert.False(t, cfg.IsAdmin(2))

	cfg.AdminUserIDs = nil
	assert.Error(t, cfg.Validate(), "admins are mandatory")

	cfg = validConfig()
	cfg.Payments.PollMaxAttempts = 0
	assert.Error(t, cfg.Validate(), "poll bound is mandatory")
}
