package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ipchi/fcrm-chat-go/sdk"
)

// Settings is the CLI configuration, loaded from a YAML file and overridable
// via FCRM_CHAT_* environment variables.
type Settings struct {
	BaseURL          string `yaml:"base_url"`
	CompanyToken     string `yaml:"company_token"`
	AppKey           string `yaml:"app_key"`
	AppSecret        string `yaml:"app_secret"`
	RealtimeEndpoint string `yaml:"realtime_endpoint,omitempty"`
	StoragePath      string `yaml:"storage_path,omitempty"`
}

// DefaultSettingsPath returns ~/.fcrm-chat/config.yaml.
func DefaultSettingsPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".fcrm-chat", "config.yaml"), nil
}

// LoadSettings reads the settings file at path (a missing file is not an
// error) and applies environment overrides on top.
func LoadSettings(path string) (Settings, error) {
	var s Settings
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &s); err != nil {
			return Settings{}, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// Environment-only configuration is fine.
	default:
		return Settings{}, fmt.Errorf("read %s: %w", path, err)
	}
	s.applyEnv()
	return s, nil
}

func (s *Settings) applyEnv() {
	overrides := []struct {
		env    string
		target *string
	}{
		{"FCRM_CHAT_BASE_URL", &s.BaseURL},
		{"FCRM_CHAT_COMPANY_TOKEN", &s.CompanyToken},
		{"FCRM_CHAT_APP_KEY", &s.AppKey},
		{"FCRM_CHAT_APP_SECRET", &s.AppSecret},
		{"FCRM_CHAT_REALTIME_ENDPOINT", &s.RealtimeEndpoint},
		{"FCRM_CHAT_STORAGE_PATH", &s.StoragePath},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.target = v
		}
	}
}

func (s Settings) validate() error {
	if s.BaseURL == "" {
		return fmt.Errorf("base_url is not set (config file or FCRM_CHAT_BASE_URL)")
	}
	if s.CompanyToken == "" {
		return fmt.Errorf("company_token is not set (config file or FCRM_CHAT_COMPANY_TOKEN)")
	}
	if s.AppKey == "" || s.AppSecret == "" {
		return fmt.Errorf("app_key/app_secret are not set (config file or FCRM_CHAT_APP_KEY / FCRM_CHAT_APP_SECRET)")
	}
	return nil
}

// options maps the settings onto SDK options.
func (s Settings) options(verbose bool) sdk.Options {
	return sdk.Options{
		BaseURL:          s.BaseURL,
		CompanyToken:     s.CompanyToken,
		AppKey:           s.AppKey,
		AppSecret:        s.AppSecret,
		RealtimeEndpoint: s.RealtimeEndpoint,
		StoragePath:      s.StoragePath,
		Logging:          verbose,
	}
}
