package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the publish service
type Config struct {
	// Server
	Port     string
	Host     string
	LogLevel string

	// Database
	DatabaseHost     string
	DatabaseName     string
	DatabaseUser     string
	DatabasePassword string
	// Toolforge-style options file; used when user/password are not set.
	DatabaseConnectFile string

	// OAuth consumer (process-wide, read-only after startup)
	OAuthConsumerKey    string
	OAuthConsumerSecret string
	// Key for encrypting stored access tokens, base64-encoded 32 bytes.
	OAuthEncryptionKey string

	UserAgent string

	// Paths
	LogDir     string
	WordsFile  string
	RevidsFile string

	RevidsAPIURL string

	// Table- and list-valued settings live in an optional YAML file
	// (SETTINGS_FILE); the fields below carry their loaded values.
	CORSAllowedDomains []string
	SpecialUsers       map[string]string
	FallbackUser       string
	NoHashtagUsers     []string
	Hashtag            string

	EnableMetrics bool
}

// settingsFile mirrors the YAML overlay document.
type settingsFile struct {
	CORSAllowedDomains []string          `yaml:"cors_allowed_domains"`
	SpecialUsers       map[string]string `yaml:"special_users"`
	FallbackUser       string            `yaml:"fallback_user"`
	NoHashtagUsers     []string          `yaml:"no_hashtag_users"`
	Hashtag            string            `yaml:"hashtag"`
}

// Load reads configuration from environment variables and the optional
// settings file named by SETTINGS_FILE.
func Load() (*Config, error) {
	config := &Config{}

	// Server configuration
	config.Port = getEnvOrDefault("PORT", "8000")
	config.Host = getEnvOrDefault("HOST", "0.0.0.0")
	config.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	// Database configuration
	config.DatabaseHost = getEnvOrDefault("DB_HOST", "tools.db.svc.wikimedia.cloud")
	config.DatabaseName = os.Getenv("DB_NAME")
	if config.DatabaseName == "" {
		return nil, fmt.Errorf("DB_NAME is required")
	}
	config.DatabaseUser = os.Getenv("DB_USER")
	config.DatabasePassword = os.Getenv("DB_PASSWORD")

	connectFile := getEnvOrDefault("DB_CONNECT_FILE", defaultConnectFile())
	if _, err := os.Stat(connectFile); err == nil {
		config.DatabaseConnectFile = connectFile
	}
	if config.DatabaseUser == "" && config.DatabaseConnectFile == "" {
		return nil, fmt.Errorf("either DB_USER/DB_PASSWORD or DB_CONNECT_FILE is required")
	}

	// OAuth configuration
	config.OAuthConsumerKey = os.Getenv("OAUTH_CONSUMER_KEY")
	if config.OAuthConsumerKey == "" {
		return nil, fmt.Errorf("OAUTH_CONSUMER_KEY is required")
	}
	config.OAuthConsumerSecret = os.Getenv("OAUTH_CONSUMER_SECRET")
	if config.OAuthConsumerSecret == "" {
		return nil, fmt.Errorf("OAUTH_CONSUMER_SECRET is required")
	}
	config.OAuthEncryptionKey = os.Getenv("OAUTH_ENCRYPTION_KEY")
	if config.OAuthEncryptionKey == "" {
		return nil, fmt.Errorf("OAUTH_ENCRYPTION_KEY is required")
	}

	config.UserAgent = getEnvOrDefault(
		"USER_AGENT",
		"mdwiki-publish-service/1.0 (https://mdwiki.toolforge.org; tools.mdwiki@toolforge.org)",
	)

	// Paths
	mainDir := getEnvOrDefault("MAIN_DIR", filepath.Join(homeDir(), "data"))
	config.LogDir = getEnvOrDefault("LOG_DIR", filepath.Join(mainDir, "logs"))
	config.WordsFile = getEnvOrDefault("WORDS_FILE", filepath.Join(mainDir, "words.json"))
	config.RevidsFile = getEnvOrDefault("REVIDS_FILE", filepath.Join(mainDir, "all_pages_revids.json"))

	config.RevidsAPIURL = getEnvOrDefault("REVIDS_API_URL", "https://mdwiki.toolforge.org/api.php")

	// Defaults for table-valued settings; the YAML overlay may replace them.
	config.CORSAllowedDomains = []string{
		"mdwiki.toolforge.org",
		"medwiki.toolforge.org",
		"mdwiki.org",
	}
	config.SpecialUsers = map[string]string{
		"Mr. Ibrahem 1": "Mr. Ibrahem",
		"Admin":         "Mr. Ibrahem",
	}
	config.FallbackUser = "Mr. Ibrahem"
	config.NoHashtagUsers = []string{"Mr. Ibrahem"}
	config.Hashtag = "#mdwikicx"

	if path := os.Getenv("SETTINGS_FILE"); path != "" {
		if err := config.applySettingsFile(path); err != nil {
			return nil, fmt.Errorf("failed to load settings file: %w", err)
		}
	}

	config.EnableMetrics = getBoolEnv("ENABLE_METRICS", true)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) applySettingsFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var sf settingsFile
	if err := yaml.Unmarshal(raw, &sf); err != nil {
		return fmt.Errorf("invalid YAML in %s: %w", path, err)
	}

	if len(sf.CORSAllowedDomains) > 0 {
		c.CORSAllowedDomains = sf.CORSAllowedDomains
	}
	if len(sf.SpecialUsers) > 0 {
		c.SpecialUsers = sf.SpecialUsers
	}
	if sf.FallbackUser != "" {
		c.FallbackUser = sf.FallbackUser
	}
	if len(sf.NoHashtagUsers) > 0 {
		c.NoHashtagUsers = sf.NoHashtagUsers
	}
	if sf.Hashtag != "" {
		c.Hashtag = sf.Hashtag
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil {
		return fmt.Errorf("invalid port: %s", c.Port)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535: %s", c.Port)
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, strings.ToLower(c.LogLevel)) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	if len(c.CORSAllowedDomains) == 0 {
		return fmt.Errorf("CORS allow-list must not be empty")
	}

	if c.FallbackUser == "" {
		return fmt.Errorf("fallback user must not be empty")
	}

	return nil
}

// Helper functions

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func defaultConnectFile() string {
	return filepath.Join(homeDir(), "replica.my.cnf")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
