package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	coreconfig "github.com/go-core-fx/config"
)

const (
	BackendGoogle = "google"
	BackendMemory = "memory"
)

var (
	ErrMissingBotToken      = errors.New("telegram bot token is required")
	ErrMissingSpreadsheetID = errors.New("google sheets id is required")
	ErrMissingCredentials   = errors.New("google service account credentials are required")
	ErrInvalidTimezone      = errors.New("unknown timezone")
)

type Config struct {
	TelegramBotToken string `koanf:"telegram_bot_token"`
	OwnerTelegramID  string `koanf:"owner_telegram_id"`
	PublicURL        string `koanf:"public_url"`
	WebhookSecret    string `koanf:"webhook_secret"`
	HTTPAddr         string `koanf:"http_addr"`

	SheetsBackend             string        `koanf:"sheets_backend"`
	GoogleSheetsID            string        `koanf:"google_sheets_id"`
	GoogleServiceAccountEmail string        `koanf:"google_service_account_email"`
	GooglePrivateKey          string        `koanf:"google_private_key"`
	CacheTTL                  time.Duration `koanf:"cache_ttl"`

	LLMBaseURL     string        `koanf:"llm_base_url"`
	LLMAPIKey      string        `koanf:"llm_api_key"`
	LLMModel       string        `koanf:"llm_model"`
	LLMTimeout     time.Duration `koanf:"llm_timeout"`
	LLMFastTimeout time.Duration `koanf:"llm_fast_timeout"`

	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	ReminderSchedule  string `koanf:"reminder_schedule"`
	ReminderDaysAhead int    `koanf:"reminder_days_ahead"`
	Timezone          string `koanf:"timezone"`

	Timeout time.Duration `koanf:"timeout"`
	LogFile string        `koanf:"log_file"`
	Debug   bool          `koanf:"debug"`
}

func New() (Config, error) {
	cfg := Config{
		HTTPAddr:          ":8080",
		SheetsBackend:     BackendGoogle,
		CacheTTL:          30 * time.Second,
		LLMModel:          "meta-llama/llama-3.1-8b-instruct",
		LLMTimeout:        30 * time.Second,
		LLMFastTimeout:    15 * time.Second,
		ReminderSchedule:  "0 0 9 * * *",
		ReminderDaysAhead: 3,
		Timezone:          "America/Argentina/Buenos_Aires",
		Timeout:           20 * time.Second,
		LogFile:           "",
		Debug:             false,
	}

	if err := coreconfig.Load(&cfg); err != nil {
		return Config{}, fmt.Errorf("loading config: %w", err)
	}

	return cfg, nil
}

// Validate checks what the Telegram bot needs to serve.
func (c Config) Validate() error {
	if strings.TrimSpace(c.TelegramBotToken) == "" {
		return ErrMissingBotToken
	}
	return c.ValidateStore()
}

// ValidateStore checks the spreadsheet settings alone.
func (c Config) ValidateStore() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("%w %q: %w", ErrInvalidTimezone, c.Timezone, err)
	}
	if c.SheetsBackend == BackendMemory {
		return nil
	}
	if strings.TrimSpace(c.GoogleSheetsID) == "" {
		return ErrMissingSpreadsheetID
	}
	if strings.TrimSpace(c.GoogleServiceAccountEmail) == "" || strings.TrimSpace(c.GooglePrivateKey) == "" {
		return ErrMissingCredentials
	}
	return nil
}

// OwnerIDs parses the comma-separated list of authorized Telegram user ids.
// Entries that are not integers are skipped.
func (c Config) OwnerIDs() []int64 {
	var ids []int64
	for _, part := range strings.Split(c.OwnerTelegramID, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
