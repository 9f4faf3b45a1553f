// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config turns viper settings into a validated types.Config.
// Defaults come from types.DefaultConfig, a YAML file and SHELFWATCH_*
// environment variables override them, and the secrets directory fills
// credentials that are still empty.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"github.com/pdiddy/shelfwatch/pkg/types"
)

// Name is the config file base name and the ~/.config directory name.
const Name = "shelfwatch"

// EnvPrefix prefixes every environment override, e.g. SHELFWATCH_NOTION_API_TOKEN.
const EnvPrefix = "SHELFWATCH"

// Setup points v at cfgFile, or at the standard search paths when cfgFile is
// empty, and enables environment overrides. It returns the file in use, or ""
// when no file was found.
func Setup(v *viper.Viper, cfgFile string) (string, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(Name)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("config")

		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", Name))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return "", nil
		}
		return "", fmt.Errorf("%w: reading config: %v", types.ErrConfig, err)
	}
	return v.ConfigFileUsed(), nil
}

// setDefaults registers every key so AutomaticEnv can override keys that no
// config file mentions.
func setDefaults(v *viper.Viper) {
	d := types.DefaultConfig()

	v.SetDefault("notion.api_token", "")
	v.SetDefault("notion.database_id", "")
	v.SetDefault("notion.timeout", d.Notion.Timeout)
	v.SetDefault("notion.user_agent", d.Notion.UserAgent)

	v.SetDefault("llm.base_url", d.LLM.BaseURL)
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.temperature", d.LLM.Temperature)
	v.SetDefault("llm.max_tokens", d.LLM.MaxTokens)
	v.SetDefault("llm.max_retries", d.LLM.MaxRetries)
	v.SetDefault("llm.timeout", d.LLM.Timeout)
	v.SetDefault("llm.min_confidence", d.LLM.MinConfidence)

	v.SetDefault("search.timeout", d.Search.Timeout)
	v.SetDefault("search.user_agent", d.Search.UserAgent)
	v.SetDefault("search.base_url", d.Search.BaseURL)
	v.SetDefault("search.max_results", d.Search.MaxResults)
	v.SetDefault("search.max_retries", d.Search.MaxRetries)
	v.SetDefault("search.retry_delay", d.Search.RetryDelay)
	v.SetDefault("search.inter_book_delay", d.Search.InterBookDelay)

	v.SetDefault("notification.wecom_webhook", "")
	v.SetDefault("notification.feishu_webhook", "")
	v.SetDefault("notification.enabled_channels", d.Notification.EnabledChannels)
	v.SetDefault("notification.timeout", d.Notification.Timeout)
	v.SetDefault("notification.always_notify", d.Notification.AlwaysNotify)

	v.SetDefault("scheduler.cron", d.Scheduler.Cron)
	v.SetDefault("scheduler.timezone", d.Scheduler.Timezone)
	v.SetDefault("scheduler.run_on_start", d.Scheduler.RunOnStart)
	v.SetDefault("scheduler.listen", d.Scheduler.Listen)
	v.SetDefault("scheduler.lock_file", d.Scheduler.LockFile)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.max_size_mb", d.Logging.MaxSizeMB)
	v.SetDefault("logging.max_age_days", d.Logging.MaxAgeDays)
	v.SetDefault("logging.max_backups", d.Logging.MaxBackups)

	v.SetDefault("ledger.path", d.Ledger.Path)
}

// Filler fills empty credentials, typically from the secrets directory.
type Filler interface {
	Fill(cfg *types.Config)
}

// Load decodes v into a Config and lets fill supply missing credentials.
// fill may be nil. Load does not validate; callers pick the checks their
// command needs.
func Load(v *viper.Viper, fill Filler) (types.Config, error) {
	cfg := types.DefaultConfig()
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("%w: decoding config: %v", types.ErrConfig, err)
	}
	if fill != nil {
		fill.Fill(&cfg)
	}
	trim(&cfg)
	return cfg, nil
}

func trim(cfg *types.Config) {
	cfg.Notion.APIToken = strings.TrimSpace(cfg.Notion.APIToken)
	cfg.Notion.DatabaseID = strings.TrimSpace(cfg.Notion.DatabaseID)
	cfg.LLM.APIKey = strings.TrimSpace(cfg.LLM.APIKey)
	cfg.LLM.Model = strings.TrimSpace(cfg.LLM.Model)
	cfg.Notification.WeComWebhook = strings.TrimSpace(cfg.Notification.WeComWebhook)
	cfg.Notification.FeishuWebhook = strings.TrimSpace(cfg.Notification.FeishuWebhook)

	channels := cfg.Notification.EnabledChannels[:0:0]
	for _, c := range cfg.Notification.EnabledChannels {
		if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
			channels = append(channels, c)
		}
	}
	cfg.Notification.EnabledChannels = channels
}

// Check validates one section of a Config and appends problems.
type Check func(cfg types.Config, problems []string) []string

// Validate runs checks and returns a single ErrConfig listing every problem.
// With no checks it validates everything a scheduled run needs.
func Validate(cfg types.Config, checks ...Check) error {
	if len(checks) == 0 {
		checks = []Check{Notion, LLM, Search, Notification, Scheduler}
	}
	var problems []string
	for _, check := range checks {
		problems = check(cfg, problems)
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", types.ErrConfig, strings.Join(problems, "; "))
	}
	return nil
}

// Notion requires the integration token and database id.
func Notion(cfg types.Config, problems []string) []string {
	if cfg.Notion.APIToken == "" {
		problems = append(problems, "notion.api_token is required")
	}
	if cfg.Notion.DatabaseID == "" {
		problems = append(problems, "notion.database_id is required")
	}
	return problems
}

// NotionToken requires only the token, for commands that pick no database.
func NotionToken(cfg types.Config, problems []string) []string {
	if cfg.Notion.APIToken == "" {
		problems = append(problems, "notion.api_token is required")
	}
	return problems
}

// LLM requires a key, a model and a usable confidence floor.
func LLM(cfg types.Config, problems []string) []string {
	if cfg.LLM.APIKey == "" {
		problems = append(problems, "llm.api_key is required")
	}
	if cfg.LLM.Model == "" {
		problems = append(problems, "llm.model is required")
	}
	if cfg.LLM.MinConfidence < 0 || cfg.LLM.MinConfidence > 1 {
		problems = append(problems, fmt.Sprintf("llm.min_confidence %v is outside [0, 1]", cfg.LLM.MinConfidence))
	}
	if cfg.LLM.MaxRetries < 0 {
		problems = append(problems, "llm.max_retries must not be negative")
	}
	return problems
}

// Search checks the platform endpoint and pacing.
func Search(cfg types.Config, problems []string) []string {
	if cfg.Search.BaseURL == "" {
		problems = append(problems, "search.base_url is required")
	}
	if cfg.Search.MaxResults <= 0 {
		problems = append(problems, "search.max_results must be positive")
	}
	if cfg.Search.MaxRetries < 0 {
		problems = append(problems, "search.max_retries must not be negative")
	}
	if cfg.Search.InterBookDelay < 0 {
		problems = append(problems, "search.inter_book_delay must not be negative")
	}
	return problems
}

// Notification rejects unknown channels and enabled channels without a webhook.
func Notification(cfg types.Config, problems []string) []string {
	for _, c := range cfg.Notification.EnabledChannels {
		switch c {
		case types.ChannelWeCom:
			if cfg.Notification.WeComWebhook == "" {
				problems = append(problems, "notification.wecom_webhook is required when wecom is enabled")
			}
		case types.ChannelFeishu:
			if cfg.Notification.FeishuWebhook == "" {
				problems = append(problems, "notification.feishu_webhook is required when feishu is enabled")
			}
		default:
			problems = append(problems, fmt.Sprintf("unknown notification channel %q", c))
		}
	}
	return problems
}

// Scheduler checks the cron expression and timezone.
func Scheduler(cfg types.Config, problems []string) []string {
	if _, err := cron.ParseStandard(cfg.Scheduler.Cron); err != nil {
		problems = append(problems, fmt.Sprintf("scheduler.cron %q: %v", cfg.Scheduler.Cron, err))
	}
	if _, err := Location(cfg.Scheduler); err != nil {
		problems = append(problems, err.Error())
	}
	return problems
}

// Location resolves the scheduler timezone. Empty means local time.
func Location(cfg types.SchedulerConfig) (*time.Location, error) {
	if cfg.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("scheduler.timezone %q: %v", cfg.Timezone, err)
	}
	return loc, nil
}
