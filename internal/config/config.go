package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config contains runtime settings for the pipeline core
type Config struct {
	LogLevel string
	DBPath   string

	// Scheduler surface, operator-editable via the settings file.
	RunAt          TimeOfDay
	FeedURLs       []string
	FeedKeywords   []string
	StaleAfterDays int

	AI struct {
		APIKey  string
		BaseURL string
		Model   string
	}
	SMTP struct {
		Host       string
		Port       int
		From       string
		SenderName string
		DigestTo   string
	}
}

const (
	defaultDBPath         = "jobsearch.db"
	defaultSettingsPath   = "settings.yaml"
	defaultRunAt          = "08:00"
	defaultStaleAfterDays = 7
	defaultAIModel        = "gpt-4.1-mini"
)

// Load populates config from environment variables (a local .env is
// honored when present) and the YAML settings file.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		LogLevel: "info",
		DBPath:   defaultDBPath,
	}
	cfg.StaleAfterDays = defaultStaleAfterDays
	cfg.AI.Model = defaultAIModel

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("JOBOPS_DB"); v != "" {
		cfg.DBPath = v
	}

	cfg.AI.APIKey = os.Getenv("OPENAI_API_KEY")
	cfg.AI.BaseURL = os.Getenv("OPENAI_BASE_URL")
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		cfg.AI.Model = v
	}

	cfg.SMTP.Host = os.Getenv("SMTP_HOST")
	if v := os.Getenv("SMTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("config: SMTP_PORT %q is not a number", v)
		}
		cfg.SMTP.Port = port
	} else {
		cfg.SMTP.Port = 25
	}
	cfg.SMTP.From = os.Getenv("SMTP_FROM")
	cfg.SMTP.SenderName = os.Getenv("SMTP_SENDER_NAME")
	cfg.SMTP.DigestTo = os.Getenv("DIGEST_TO")

	settingsPath := defaultSettingsPath
	if v := os.Getenv("JOBOPS_SETTINGS"); v != "" {
		settingsPath = v
	}

	settings, err := loadSettings(settingsPath)
	if err != nil {
		return cfg, err
	}
	if err := cfg.applySettings(settings); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func (c *Config) applySettings(s settingsFile) error {
	runAt := s.DigestTime
	if runAt == "" {
		runAt = defaultRunAt
	}
	parsed, err := ParseTimeOfDay(runAt)
	if err != nil {
		return fmt.Errorf("config: digest_time: %w", err)
	}
	c.RunAt = parsed

	for _, raw := range s.FeedURLs {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("config: feed url %q is not a well-formed http(s) URL", raw)
		}
		c.FeedURLs = append(c.FeedURLs, raw)
	}

	for _, kw := range s.FeedKeywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			c.FeedKeywords = append(c.FeedKeywords, kw)
		}
	}

	if s.StaleAfterDays > 0 {
		c.StaleAfterDays = s.StaleAfterDays
	}

	return nil
}
