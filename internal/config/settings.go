package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// settingsFile is the operator-editable YAML surface: when to run the
// daily sequence, which feeds to poll, and the title keyword filter.
type settingsFile struct {
	DigestTime     string   `yaml:"digest_time"`
	FeedURLs       []string `yaml:"feed_urls"`
	FeedKeywords   []string `yaml:"feed_keywords"`
	StaleAfterDays int      `yaml:"stale_after_days"`
}

// loadSettings reads the settings file. A missing file is not an
// error; defaults apply.
func loadSettings(path string) (settingsFile, error) {
	var s settingsFile

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return s, fmt.Errorf("config: read settings %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("config: parse settings %s: %w", path, err)
	}

	return s, nil
}
