// Package config loads onboardbuddy settings from a YAML file, BUDDY_*
// environment variables and the bot's historical environment names, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix namespaces environment overrides: llm.provider is BUDDY_LLM_PROVIDER.
const EnvPrefix = "BUDDY"

// FileName is the config file looked up in the working directory.
const FileName = "onboardbuddy.yaml"

// Authorization modes.
const (
	AuthzTitle    = "title"
	AuthzFile     = "file"
	AuthzAllowAll = "allow-all"
)

var v *viper.Viper

// explicitFile is set by --config and wins over discovery.
var explicitFile string

// SetConfigFile pins the config file used by the next Initialize.
func SetConfigFile(path string) { explicitFile = path }

// legacyEnv maps keys to the environment names the bot has always honoured.
var legacyEnv = map[string][]string{
	"slack.bot_token":      {"SLACK_BOT_TOKEN"},
	"slack.signing_secret": {"SLACK_SIGNING_SECRET"},
	"server.port":          {"PORT"},
	"llm.model":            {"GEMINI_MODEL"},
	"authz.allow_all":      {"ALLOW_ALL_MANAGERS"},
	"telemetry.enabled":    {"BUDDY_OTEL_ENABLED"},
}

// Initialize (re)builds the configuration from defaults, file and
// environment. A missing config file is not an error.
func Initialize() error {
	v = viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for key, names := range legacyEnv {
		envKey := EnvPrefix + "_" + strings.ToUpper(strings.NewReplacer(".", "_").Replace(key))
		if err := v.BindEnv(append([]string{key, envKey}, names...)...); err != nil {
			return fmt.Errorf("binding env for %s: %w", key, err)
		}
	}

	path := explicitFile
	if path == "" {
		path = discover()
	}
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || (explicitFile == "" && os.IsNotExist(err)) {
			return nil
		}
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("slack.skip_verification", false)
	v.SetDefault("server.port", 3000)
	v.SetDefault("storage.backend", "memory")
	v.SetDefault("storage.path", "onboardbuddy.db")
	v.SetDefault("llm.provider", "anthropic")
	v.SetDefault("llm.timeout", 25*time.Second)
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("authz.mode", AuthzTitle)
	v.SetDefault("authz.allow_all", false)
	v.SetDefault("pulse.enabled", true)
	v.SetDefault("pulse.work_start", 9)
	v.SetDefault("pulse.work_end", 17)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "auto")
	v.SetDefault("telemetry.enabled", false)
}

// discover returns the first existing config file: ./onboardbuddy.yaml, then
// $XDG_CONFIG_HOME/onboardbuddy/config.yaml.
func discover() string {
	candidates := []string{FileName}
	if dir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "onboardbuddy", "config.yaml"))
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c
		}
	}
	return ""
}

// ConfigFileUsed returns the file read by Initialize, if any.
func ConfigFileUsed() string {
	if v == nil {
		return ""
	}
	return v.ConfigFileUsed()
}

func ensure() {
	if v == nil {
		_ = Initialize()
	}
}

func GetString(key string) string {
	ensure()
	return v.GetString(key)
}

func GetBool(key string) bool {
	ensure()
	return v.GetBool(key)
}

func GetInt(key string) int {
	ensure()
	return v.GetInt(key)
}

func GetDuration(key string) time.Duration {
	ensure()
	return v.GetDuration(key)
}

// Set overrides key for the rest of the process.
func Set(key string, value any) {
	ensure()
	v.Set(key, value)
}

// ResetForTesting drops all loaded state.
func ResetForTesting() {
	v = nil
	explicitFile = ""
}

// Config is the resolved configuration.
type Config struct {
	Slack     SlackConfig     `yaml:"slack"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	LLM       LLMConfig       `yaml:"llm"`
	Authz     AuthzConfig     `yaml:"authz"`
	Pulse     PulseConfig     `yaml:"pulse"`
	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type SlackConfig struct {
	BotToken         string `yaml:"bot_token,omitempty"`
	SigningSecret    string `yaml:"signing_secret,omitempty"`
	SkipVerification bool   `yaml:"skip_verification"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type StorageConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path,omitempty"`
	DSN     string `yaml:"dsn,omitempty"`
}

type LLMConfig struct {
	Provider   string        `yaml:"provider"`
	Model      string        `yaml:"model,omitempty"`
	APIKey     string        `yaml:"api_key,omitempty"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
	MaxTokens  int64         `yaml:"max_tokens"`
}

type AuthzConfig struct {
	Mode       string `yaml:"mode"`
	PolicyFile string `yaml:"policy_file,omitempty"`
}

type PulseConfig struct {
	Enabled   bool   `yaml:"enabled"`
	WorkStart int    `yaml:"work_start"`
	WorkEnd   int    `yaml:"work_end"`
	Timezone  string `yaml:"timezone,omitempty"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type TelemetryConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load resolves the current settings. ALLOW_ALL_MANAGERS forces the
// allow-all policy.
func Load() (*Config, error) {
	ensure()
	c := &Config{
		Slack: SlackConfig{
			BotToken:         v.GetString("slack.bot_token"),
			SigningSecret:    v.GetString("slack.signing_secret"),
			SkipVerification: v.GetBool("slack.skip_verification"),
		},
		Server: ServerConfig{Port: v.GetInt("server.port")},
		Storage: StorageConfig{
			Backend: strings.ToLower(v.GetString("storage.backend")),
			Path:    v.GetString("storage.path"),
			DSN:     v.GetString("storage.dsn"),
		},
		LLM: LLMConfig{
			Provider:   strings.ToLower(v.GetString("llm.provider")),
			Model:      v.GetString("llm.model"),
			APIKey:     v.GetString("llm.api_key"),
			Timeout:    v.GetDuration("llm.timeout"),
			MaxRetries: v.GetInt("llm.max_retries"),
			MaxTokens:  v.GetInt64("llm.max_tokens"),
		},
		Authz: AuthzConfig{
			Mode:       strings.ToLower(v.GetString("authz.mode")),
			PolicyFile: v.GetString("authz.policy_file"),
		},
		Pulse: PulseConfig{
			Enabled:   v.GetBool("pulse.enabled"),
			WorkStart: v.GetInt("pulse.work_start"),
			WorkEnd:   v.GetInt("pulse.work_end"),
			Timezone:  v.GetString("pulse.timezone"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Telemetry: TelemetryConfig{Enabled: v.GetBool("telemetry.enabled")},
	}
	if v.GetBool("authz.allow_all") {
		c.Authz.Mode = AuthzAllowAll
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) validate() error {
	switch c.Authz.Mode {
	case AuthzTitle, AuthzAllowAll:
	case AuthzFile:
		if c.Authz.PolicyFile == "" {
			return fmt.Errorf("authz.mode %q requires authz.policy_file", AuthzFile)
		}
	default:
		return fmt.Errorf("unknown authz.mode %q", c.Authz.Mode)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if c.Pulse.WorkStart < 0 || c.Pulse.WorkEnd > 23 || c.Pulse.WorkStart > c.Pulse.WorkEnd {
		return fmt.Errorf("invalid pulse work hours %d-%d", c.Pulse.WorkStart, c.Pulse.WorkEnd)
	}
	return nil
}

// ValidateServe checks what the Slack server needs beyond Load.
func (c *Config) ValidateServe() error {
	var missing []string
	if c.Slack.BotToken == "" {
		missing = append(missing, "slack.bot_token (SLACK_BOT_TOKEN)")
	}
	if c.Slack.SigningSecret == "" && !c.Slack.SkipVerification {
		missing = append(missing, "slack.signing_secret (SLACK_SIGNING_SECRET)")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Location returns the pulse timezone, defaulting to local time.
func (c *Config) Location() (*time.Location, error) {
	if c.Pulse.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Pulse.Timezone)
	if err != nil {
		return nil, fmt.Errorf("pulse.timezone: %w", err)
	}
	return loc, nil
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		if len(s) <= 8 {
			return "****"
		}
		return s[:4] + "****"
	}
	c.Slack.BotToken = mask(c.Slack.BotToken)
	c.Slack.SigningSecret = mask(c.Slack.SigningSecret)
	c.LLM.APIKey = mask(c.LLM.APIKey)
	if i := strings.Index(c.Storage.DSN, "@"); i > 0 {
		c.Storage.DSN = "****" + c.Storage.DSN[i:]
	}
	return c
}

// YAML renders c as a config file.
func (c Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// Write saves c to path, refusing to overwrite unless force is set.
func (c Config) Write(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}
	data, err := c.YAML()
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
