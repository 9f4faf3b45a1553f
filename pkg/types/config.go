package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout bounds a single HTTP request.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// NotionConfig holds reading-list store settings.
type NotionConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// APIToken is the Notion integration token.
	APIToken string `json:"-" yaml:"api_token,omitempty" mapstructure:"api_token"`

	// DatabaseID is the reading-list database.
	DatabaseID string `json:"database_id" yaml:"database_id" mapstructure:"database_id"`
}

// LLMConfig holds settings for the availability judge's model endpoint.
type LLMConfig struct {
	// BaseURL is an OpenAI-compatible API root (".../v1").
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// APIKey authenticates against BaseURL.
	APIKey string `json:"-" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// Model is the model identifier passed through unchanged.
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	Temperature float64 `json:"temperature" yaml:"temperature" mapstructure:"temperature"`
	MaxTokens   int     `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`

	// MaxRetries is the number of retries for transport failures (default 2).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// Timeout bounds one completion request.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// MinConfidence is the lowest confidence the judge acts on (default 0.5).
	MinConfidence float64 `json:"min_confidence" yaml:"min_confidence" mapstructure:"min_confidence"`
}

// SearchConfig holds settings for the platform search stage.
type SearchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// BaseURL is the platform search endpoint.
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// MaxResults caps the candidates handed to the judge (default 10).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`

	// MaxRetries is the number of retries after a failed request (default 2).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// RetryDelay is the first backoff delay; it doubles per retry.
	RetryDelay time.Duration `json:"retry_delay" yaml:"retry_delay" mapstructure:"retry_delay"`

	// InterBookDelay spaces consecutive books in one run (default 2s).
	InterBookDelay time.Duration `json:"inter_book_delay" yaml:"inter_book_delay" mapstructure:"inter_book_delay"`
}

// Notification channel names.
const (
	ChannelWeCom  = "wecom"
	ChannelFeishu = "feishu"
)

// NotificationConfig selects and configures webhook channels.
type NotificationConfig struct {
	WeComWebhook    string        `json:"-" yaml:"wecom_webhook,omitempty" mapstructure:"wecom_webhook"`
	FeishuWebhook   string        `json:"-" yaml:"feishu_webhook,omitempty" mapstructure:"feishu_webhook"`
	EnabledChannels []string      `json:"enabled_channels" yaml:"enabled_channels" mapstructure:"enabled_channels"`
	Timeout         time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// AlwaysNotify sends the run summary even when nothing became available.
	AlwaysNotify bool `json:"always_notify" yaml:"always_notify" mapstructure:"always_notify"`
}

// SchedulerConfig holds cron settings for the schedule command.
type SchedulerConfig struct {
	// Cron is a five-field cron expression (minute hour dom month dow).
	Cron string `json:"cron" yaml:"cron" mapstructure:"cron"`

	// Timezone is an IANA zone name the expression is evaluated in.
	Timezone string `json:"timezone" yaml:"timezone" mapstructure:"timezone"`

	// RunOnStart triggers one run immediately when the scheduler starts.
	RunOnStart bool `json:"run_on_start" yaml:"run_on_start" mapstructure:"run_on_start"`

	// Listen enables the status server when non-empty (e.g. "127.0.0.1:8089").
	Listen string `json:"listen,omitempty" yaml:"listen,omitempty" mapstructure:"listen"`

	// LockFile guards against overlapping runs across processes.
	LockFile string `json:"lock_file" yaml:"lock_file" mapstructure:"lock_file"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level" mapstructure:"level"`
	Format string `json:"format" yaml:"format" mapstructure:"format"`

	// File enables a rotated log file in addition to stderr.
	File       string `json:"file,omitempty" yaml:"file,omitempty" mapstructure:"file"`
	MaxSizeMB  int    `json:"max_size_mb" yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxAgeDays int    `json:"max_age_days" yaml:"max_age_days" mapstructure:"max_age_days"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups" mapstructure:"max_backups"`
}

// LedgerConfig holds the local check-history database settings.
type LedgerConfig struct {
	// Path is the SQLite file. Empty disables the ledger.
	Path string `json:"path" yaml:"path" mapstructure:"path"`
}

// Config groups all settings for one shelfwatch process.
type Config struct {
	Notion       NotionConfig       `json:"notion" yaml:"notion" mapstructure:"notion"`
	LLM          LLMConfig          `json:"llm" yaml:"llm" mapstructure:"llm"`
	Search       SearchConfig       `json:"search" yaml:"search" mapstructure:"search"`
	Notification NotificationConfig `json:"notification" yaml:"notification" mapstructure:"notification"`
	Scheduler    SchedulerConfig    `json:"scheduler" yaml:"scheduler" mapstructure:"scheduler"`
	Logging      LoggingConfig      `json:"logging" yaml:"logging" mapstructure:"logging"`
	Ledger       LedgerConfig       `json:"ledger" yaml:"ledger" mapstructure:"ledger"`
}

// DefaultUserAgent is sent to the search platform.
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// DefaultConfig returns a Config with every optional field set.
func DefaultConfig() Config {
	return Config{
		Notion: NotionConfig{
			HTTPConfig: HTTPConfig{Timeout: 30 * time.Second, UserAgent: "shelfwatch/0.1"},
		},
		LLM: LLMConfig{
			BaseURL:       "https://api.openai.com/v1",
			Model:         "gpt-4o-mini",
			Temperature:   0.3,
			MaxTokens:     2000,
			MaxRetries:    2,
			Timeout:       60 * time.Second,
			MinConfidence: 0.5,
		},
		Search: SearchConfig{
			HTTPConfig:     HTTPConfig{Timeout: 30 * time.Second, UserAgent: DefaultUserAgent},
			BaseURL:        "https://weread.qq.com/web/search/global",
			MaxResults:     10,
			MaxRetries:     2,
			RetryDelay:     time.Second,
			InterBookDelay: 2 * time.Second,
		},
		Notification: NotificationConfig{
			EnabledChannels: []string{ChannelWeCom, ChannelFeishu},
			Timeout:         10 * time.Second,
		},
		Scheduler: SchedulerConfig{
			Cron:     "0 9 * * *",
			Timezone: "Asia/Shanghai",
			LockFile: "data/shelfwatch.lock",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  10,
			MaxAgeDays: 30,
			MaxBackups: 10,
		},
		Ledger: LedgerConfig{
			Path: "data/shelfwatch.db",
		},
	}
}
