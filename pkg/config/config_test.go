package config

import (
	"strings"
	"testing"
)

func productionConfig() *Config {
	return &Config{
		Environment:          EnvProduction,
		LogLevel:             "info",
		SessionAuthKey:       strings.Repeat("a", 32),
		SessionEncryptionKey: strings.Repeat("b", 32),
		APIKey:               "a-real-secret",
		AdminPassword:        "another-real-secret",
	}
}

func TestValidateForProduction(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid production config", func(c *Config) {}, ""},
		{"non-production skips checks", func(c *Config) { c.Environment = EnvDevelopment; c.APIKey = "" }, ""},
		{"short session auth key", func(c *Config) { c.SessionAuthKey = "short" }, "SESSION_AUTH_KEY"},
		{"short encryption key", func(c *Config) { c.SessionEncryptionKey = "short" }, "SESSION_ENCRYPTION_KEY"},
		{"default api key", func(c *Config) { c.APIKey = defaultAPIKey }, "API_KEY"},
		{"empty api key", func(c *Config) { c.APIKey = "" }, "API_KEY"},
		{"default admin password", func(c *Config) { c.AdminPassword = defaultAdminPassword }, "ADMIN_PASSWORD"},
		{"debug logging", func(c *Config) { c.LogLevel = "debug" }, "LOG_LEVEL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := productionConfig()
			tt.mutate(cfg)
			err := ValidateForProduction(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error mentioning %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestIsProduction(t *testing.T) {
	if (&Config{Environment: EnvDevelopment}).IsProduction() {
		t.Fatal("development must not report production")
	}
	if !(&Config{Environment: EnvProduction}).IsProduction() {
		t.Fatal("production must report production")
	}
}
