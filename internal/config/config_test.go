package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func mustInit(t *testing.T) {
	t.Helper()
	t.Cleanup(ResetForTesting)
	if err := Initialize(); err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}
}

func TestDefaults(t *testing.T) {
	mustInit(t)

	tests := []struct {
		key      string
		expected any
		getter   func(string) any
	}{
		{"server.port", 3000, func(k string) any { return GetInt(k) }},
		{"storage.backend", "memory", func(k string) any { return GetString(k) }},
		{"llm.provider", "anthropic", func(k string) any { return GetString(k) }},
		{"llm.timeout", 25 * time.Second, func(k string) any { return GetDuration(k) }},
		{"authz.mode", AuthzTitle, func(k string) any { return GetString(k) }},
		{"pulse.enabled", true, func(k string) any { return GetBool(k) }},
		{"telemetry.enabled", false, func(k string) any { return GetBool(k) }},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := tt.getter(tt.key); got != tt.expected {
				t.Errorf("Get(%q) = %v, want %v", tt.key, got, tt.expected)
			}
		})
	}
	if got := ConfigFileUsed(); got != "" {
		t.Errorf("ConfigFileUsed() = %q with no file present", got)
	}
}

func TestEnvironmentBinding(t *testing.T) {
	tests := []struct {
		envVar   string
		key      string
		value    string
		expected any
		getter   func(string) any
	}{
		{"BUDDY_LLM_PROVIDER", "llm.provider", "gemini", "gemini", func(k string) any { return GetString(k) }},
		{"BUDDY_LLM_TIMEOUT", "llm.timeout", "10s", 10 * time.Second, func(k string) any { return GetDuration(k) }},
		{"BUDDY_PULSE_WORK_END", "pulse.work_end", "18", 18, func(k string) any { return GetInt(k) }},
		{"SLACK_BOT_TOKEN", "slack.bot_token", "xoxb-legacy", "xoxb-legacy", func(k string) any { return GetString(k) }},
		{"SLACK_SIGNING_SECRET", "slack.signing_secret", "s3cret", "s3cret", func(k string) any { return GetString(k) }},
		{"PORT", "server.port", "8080", 8080, func(k string) any { return GetInt(k) }},
		{"GEMINI_MODEL", "llm.model", "gemini-2.5-pro", "gemini-2.5-pro", func(k string) any { return GetString(k) }},
		{"BUDDY_OTEL_ENABLED", "telemetry.enabled", "true", true, func(k string) any { return GetBool(k) }},
	}
	for _, tt := range tests {
		t.Run(tt.envVar, func(t *testing.T) {
			t.Setenv(tt.envVar, tt.value)
			mustInit(t)
			if got := tt.getter(tt.key); got != tt.expected {
				t.Errorf("Get(%q) with %s=%s = %v, want %v", tt.key, tt.envVar, tt.value, got, tt.expected)
			}
		})
	}
}

func TestPrefixedEnvBeatsLegacyName(t *testing.T) {
	t.Setenv("SLACK_BOT_TOKEN", "legacy")
	t.Setenv("BUDDY_SLACK_BOT_TOKEN", "prefixed")
	mustInit(t)
	if got := GetString("slack.bot_token"); got != "prefixed" {
		t.Errorf("slack.bot_token = %q, want prefixed", got)
	}
}

func TestConfigFileAndPrecedence(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	content := `
server:
  port: 4000
llm:
  provider: gemini
  timeout: 15s
pulse:
  work_start: 8
`
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	mustInit(t)
	if got := GetInt("server.port"); got != 4000 {
		t.Errorf("server.port = %d, want 4000", got)
	}
	if got := GetDuration("llm.timeout"); got != 15*time.Second {
		t.Errorf("llm.timeout = %v, want 15s", got)
	}
	if got := ConfigFileUsed(); got != FileName {
		t.Errorf("ConfigFileUsed() = %q", got)
	}

	t.Setenv("PORT", "5000")
	mustInit(t)
	if got := GetInt("server.port"); got != 5000 {
		t.Errorf("server.port with PORT = %d, want 5000 (env should override file)", got)
	}
}

func TestXDGConfigDiscovered(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	t.Chdir(t.TempDir())
	path := filepath.Join(xdg, "onboardbuddy", "config.yaml")
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	mustInit(t)
	if got := GetString("log.level"); got != "debug" {
		t.Errorf("log.level = %q, want debug", got)
	}
}

func TestExplicitMissingFileFails(t *testing.T) {
	t.Cleanup(ResetForTesting)
	SetConfigFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if err := Initialize(); err == nil {
		t.Fatal("Initialize() succeeded with a missing --config file")
	}
}

func TestLoadAllowAllOverride(t *testing.T) {
	t.Setenv("ALLOW_ALL_MANAGERS", "true")
	mustInit(t)
	c, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if c.Authz.Mode != AuthzAllowAll {
		t.Errorf("Authz.Mode = %q, want %q", c.Authz.Mode, AuthzAllowAll)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"file mode without path", map[string]string{"BUDDY_AUTHZ_MODE": "file"}, "requires authz.policy_file"},
		{"unknown mode", map[string]string{"BUDDY_AUTHZ_MODE": "vibes"}, "unknown authz.mode"},
		{"bad port", map[string]string{"PORT": "70000"}, "invalid server.port"},
		{"inverted hours", map[string]string{"BUDDY_PULSE_WORK_START": "18"}, "invalid pulse work hours"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, val := range tt.env {
				t.Setenv(k, val)
			}
			mustInit(t)
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() error = %v, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestValidateServe(t *testing.T) {
	mustInit(t)
	c, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	err = c.ValidateServe()
	if err == nil || !strings.Contains(err.Error(), "SLACK_BOT_TOKEN") || !strings.Contains(err.Error(), "SLACK_SIGNING_SECRET") {
		t.Errorf("ValidateServe() = %v", err)
	}

	c.Slack.BotToken = "xoxb-1"
	c.Slack.SkipVerification = true
	if err := c.ValidateServe(); err != nil {
		t.Errorf("ValidateServe() with skip_verification = %v", err)
	}
}

func TestWriteThenLoad(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	mustInit(t)
	c, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	c.Storage.Backend = "sqlite"
	c.LLM.Timeout = 40 * time.Second
	c.Pulse.Timezone = "Europe/Berlin"

	if err := c.Write(FileName, false); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := c.Write(FileName, false); err == nil {
		t.Error("second Write without force should fail")
	}

	mustInit(t)
	got, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if got.Storage.Backend != "sqlite" || got.LLM.Timeout != 40*time.Second {
		t.Errorf("reloaded config = %+v", got)
	}
	loc, err := got.Location()
	if err != nil || loc.String() != "Europe/Berlin" {
		t.Errorf("Location() = %v, %v", loc, err)
	}
}

func TestRedacted(t *testing.T) {
	c := Config{
		Slack:   SlackConfig{BotToken: "xoxb-123456789", SigningSecret: "abc"},
		Storage: StorageConfig{DSN: "root:pw@tcp(localhost:3306)/buddy"},
	}
	r := c.Redacted()
	if r.Slack.BotToken != "xoxb****" || r.Slack.SigningSecret != "****" {
		t.Errorf("Redacted() slack = %+v", r.Slack)
	}
	if r.Storage.DSN != "****@tcp(localhost:3306)/buddy" {
		t.Errorf("Redacted() dsn = %q", r.Storage.DSN)
	}
	if c.Slack.BotToken != "xoxb-123456789" {
		t.Error("Redacted() modified the receiver")
	}
}
