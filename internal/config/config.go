package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// StoreDSNEnv overrides remote_store.dsn when set.
const StoreDSNEnv = "REGGENIE_STORE_DSN"

// Config holds application configuration
type Config struct {
	Server struct {
		Port            string        `yaml:"port"`
		CORSOrigins     []string      `yaml:"cors_origins"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Gemini struct {
		APIKey            string        `yaml:"api_key"`
		ModelName         string        `yaml:"model_name"`
		MaxRetries        int           `yaml:"max_retries"`
		RetryDelay        time.Duration `yaml:"retry_delay"`
		RequestsPerMinute int           `yaml:"requests_per_minute"`
		BaseURL           string        `yaml:"base_url"` // REST endpoint used for search grounding
	} `yaml:"gemini"`

	OpenAI struct {
		APIKey    string `yaml:"api_key"`
		ModelName string `yaml:"model_name"`
		BaseURL   string `yaml:"base_url"`
	} `yaml:"openai"`

	LocalStore struct {
		Path string `yaml:"path"` // SQLite file holding the key/value cache
	} `yaml:"local_store"`

	RemoteStore struct {
		DSN     string `yaml:"dsn"` // PostgreSQL URL, empty means local mode
		Migrate bool   `yaml:"migrate"`
	} `yaml:"remote_store"`

	Auth struct {
		JWTSecret string        `yaml:"jwt_secret"`
		TokenTTL  time.Duration `yaml:"token_ttl"`
	} `yaml:"auth"`

	Settings struct {
		MasterKey string `yaml:"master_key"` // base64 AES-256 key wrapping saved secrets, optional
	} `yaml:"settings"`

	Log struct {
		Production bool `yaml:"production"`
	} `yaml:"log"`
}

// LoadConfig loads configuration from YAML file
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	config.applyDefaults()

	// Expand environment variables in secrets
	config.Gemini.APIKey = os.ExpandEnv(config.Gemini.APIKey)
	config.OpenAI.APIKey = os.ExpandEnv(config.OpenAI.APIKey)
	config.Auth.JWTSecret = os.ExpandEnv(config.Auth.JWTSecret)
	config.RemoteStore.DSN = os.ExpandEnv(config.RemoteStore.DSN)
	config.Settings.MasterKey = os.ExpandEnv(config.Settings.MasterKey)

	return config, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}

	if c.Gemini.ModelName == "" {
		c.Gemini.ModelName = "gemini-2.5-flash"
	}
	if c.Gemini.MaxRetries == 0 {
		c.Gemini.MaxRetries = 3
	}
	if c.Gemini.RetryDelay == 0 {
		c.Gemini.RetryDelay = 2 * time.Second
	}
	if c.Gemini.RequestsPerMinute == 0 {
		c.Gemini.RequestsPerMinute = 60
	}
	if c.Gemini.BaseURL == "" {
		c.Gemini.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}

	if c.OpenAI.ModelName == "" {
		c.OpenAI.ModelName = "gpt-4o"
	}
	if c.OpenAI.BaseURL == "" {
		c.OpenAI.BaseURL = "https://api.openai.com/v1"
	}

	if c.LocalStore.Path == "" {
		c.LocalStore.Path = "./data/reggenie.db"
	}

	if c.Auth.TokenTTL == 0 {
		c.Auth.TokenTTL = 12 * time.Hour
	}
}

// ResolveStoreDSN picks the remote store DSN: environment first, then the
// config file, then the value an admin saved in settings. Surrounding quotes
// are stripped. An empty result means no remote store.
func (c *Config) ResolveStoreDSN(saved string) string {
	for _, candidate := range []string{os.Getenv(StoreDSNEnv), c.RemoteStore.DSN, saved} {
		if dsn := CleanDSN(candidate); dsn != "" {
			return dsn
		}
	}
	return ""
}

// CleanDSN trims whitespace and one layer of matching quotes.
func CleanDSN(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' || first == '\'') && first == last {
			s = strings.TrimSpace(s[1 : len(s)-1])
		}
	}
	return s
}
