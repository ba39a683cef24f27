package types

import "time"

// HTTPConfig holds shared HTTP settings used for direct PDF transfers and the
// plain HTTP document source.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// RetryBudget is the attempt count and fixed delay for one call site.
type RetryBudget struct {
	Attempts int           `json:"attempts" yaml:"attempts" mapstructure:"attempts"`
	Delay    time.Duration `json:"delay" yaml:"delay" mapstructure:"delay"`
}

// RetryConfig holds the budgets for the three granularities that retry
// independently.
type RetryConfig struct {
	// Login covers the whole authentication sequence (default 5 / 30s).
	Login RetryBudget `json:"login" yaml:"login" mapstructure:"login"`

	// Listing covers resolving one year's listing page (default 5 / 30s).
	Listing RetryBudget `json:"listing" yaml:"listing" mapstructure:"listing"`

	// Paper covers one candidate: detail hop and download (default 5 / 30s).
	Paper RetryBudget `json:"paper" yaml:"paper" mapstructure:"paper"`
}

// Document source drivers.
const (
	DriverRod  = "rod"
	DriverHTTP = "http"
)

// BrowserConfig selects and tunes the navigable document source.
type BrowserConfig struct {
	// Driver is "rod" (headless Chrome) or "http" (no JavaScript).
	Driver string `json:"driver" yaml:"driver" mapstructure:"driver"`

	// Headless runs the local browser without a window.
	Headless bool `json:"headless" yaml:"headless" mapstructure:"headless"`

	// Bin is an optional path to the Chrome binary.
	Bin string `json:"bin,omitempty" yaml:"bin,omitempty" mapstructure:"bin"`

	// RemoteURL connects to an already running browser's control URL.
	RemoteURL string `json:"remote_url,omitempty" yaml:"remote_url,omitempty" mapstructure:"remote_url"`

	// ContainerImage starts a browser container (e.g. ghcr.io/go-rod/rod)
	// through docker or podman and connects to it.
	ContainerImage string `json:"container_image,omitempty" yaml:"container_image,omitempty" mapstructure:"container_image"`

	// ControlPort is the host port published by the browser container.
	ControlPort int `json:"control_port" yaml:"control_port" mapstructure:"control_port"`

	// PageTimeout bounds a single navigation.
	PageTimeout time.Duration `json:"page_timeout" yaml:"page_timeout" mapstructure:"page_timeout"`
}

// AIConfig holds settings for the keyword expansion service.
type AIConfig struct {
	// Model is the AI model identifier.
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// MaxTokens caps the response length.
	MaxTokens int `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`
}

// HarvestConfig groups every setting of a harvest run.
type HarvestConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// OutputDir is the artifact root: <output_dir>/<year>/<title>.pdf.
	OutputDir string `json:"output_dir" yaml:"output_dir" mapstructure:"output_dir"`

	// MinGroups is the keyword-group threshold for admission (default 2).
	MinGroups int `json:"min_groups" yaml:"min_groups" mapstructure:"min_groups"`

	// SettleDelay is how long a browser-mediated download is given to land.
	SettleDelay time.Duration `json:"settle_delay" yaml:"settle_delay" mapstructure:"settle_delay"`

	// Concurrency is the number of sources harvested at once (default 1).
	Concurrency int `json:"concurrency" yaml:"concurrency" mapstructure:"concurrency"`

	// RunTimeout cancels the whole run when non-zero.
	RunTimeout time.Duration `json:"run_timeout" yaml:"run_timeout" mapstructure:"run_timeout"`

	Retry   RetryConfig   `json:"retry" yaml:"retry" mapstructure:"retry"`
	Browser BrowserConfig `json:"browser" yaml:"browser" mapstructure:"browser"`
	AI      AIConfig      `json:"ai" yaml:"ai" mapstructure:"ai"`

	// Sources replaces the built-in registry when non-empty.
	Sources []ProceedingsSource `json:"sources,omitempty" yaml:"sources,omitempty" mapstructure:"sources"`

	// Keywords is the initial keyword set when no keyword file is given.
	Keywords KeywordSet `json:"keywords,omitempty" yaml:"keywords,omitempty" mapstructure:"keywords"`
}

// DefaultHarvestConfig returns the constants the harvester has always used.
func DefaultHarvestConfig() HarvestConfig {
	return HarvestConfig{
		HTTPConfig: HTTPConfig{
			Timeout:   60 * time.Second,
			UserAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
		},
		OutputDir:   "output",
		MinGroups:   DefaultMinGroups,
		SettleDelay: 10 * time.Second,
		Concurrency: 1,
		Retry: RetryConfig{
			Login:   RetryBudget{Attempts: 5, Delay: 30 * time.Second},
			Listing: RetryBudget{Attempts: 5, Delay: 30 * time.Second},
			Paper:   RetryBudget{Attempts: 5, Delay: 30 * time.Second},
		},
		Browser: BrowserConfig{
			Driver:      DriverRod,
			Headless:    true,
			ControlPort: 7317,
			PageTimeout: 60 * time.Second,
		},
		AI: AIConfig{
			Model:     "claude-sonnet-4-5-20250929",
			MaxTokens: 4096,
		},
	}
}

// Credentials authenticate a session-based portal. A nil *Credentials or one
// without username/password disables authentication.
type Credentials struct {
	Username    string `json:"username" yaml:"username"`
	Password    string `json:"password" yaml:"password"`
	Institution string `json:"institution" yaml:"institution"`
}

// Usable reports whether the credentials can attempt a login.
func (c *Credentials) Usable() bool {
	return c != nil && c.Username != "" && c.Password != ""
}
