package types

import "time"

// Provider identifies the generation backend.
type Provider string

const (
	ProviderDeepSeek Provider = "deepseek"
	ProviderGemini   Provider = "gemini"
)

// AIConfig holds shared settings for calls to the generation backend.
type AIConfig struct {
	// Provider selects the backend: deepseek (any OpenAI-compatible endpoint) or gemini.
	Provider Provider `json:"provider" yaml:"provider"`

	// Model is the model identifier (e.g. "deepseek-chat").
	Model string `json:"model" yaml:"model"`

	// BaseURL overrides the chat-completions endpoint root.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// APIKey is the authentication key for the backend.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of authoring retries on transient failures (default 1).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// TopicTimeout bounds one topic-sourcing call (default 90s).
	TopicTimeout time.Duration `json:"topic_timeout" yaml:"topic_timeout"`

	// ArticleTimeout bounds one authoring call (default 3m).
	ArticleTimeout time.Duration `json:"article_timeout" yaml:"article_timeout"`
}

// StoreConfig locates the persisted article store.
type StoreConfig struct {
	// PostsDir is the directory of persisted articles.
	PostsDir string `json:"posts_dir" yaml:"posts_dir"`

	// LedgerPath is the SQLite run ledger path. Empty disables the ledger.
	LedgerPath string `json:"ledger_path,omitempty" yaml:"ledger_path,omitempty"`
}

// GenerationConfig holds settings for one batch run.
type GenerationConfig struct {
	AIConfig    `yaml:",inline"`
	StoreConfig `yaml:",inline"`

	// Count is the resolved number of articles to attempt.
	Count int `json:"count" yaml:"count"`

	// MinLength is the quality-gate threshold in characters (default 1000).
	MinLength int `json:"min_length" yaml:"min_length"`

	// Delay is the pause between successful persists (default 5s).
	Delay time.Duration `json:"delay" yaml:"delay"`

	// CatalogPath overrides the embedded topic catalogue.
	CatalogPath string `json:"catalog_path,omitempty" yaml:"catalog_path,omitempty"`

	// Seed drives every random choice in the run. Zero means time-based.
	Seed int64 `json:"seed" yaml:"seed"`
}
