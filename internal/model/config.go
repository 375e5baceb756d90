package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// EmailConfig holds the site-level settings the receiver pipeline
// consumes. It is passed into the pipeline explicitly at call time.
type EmailConfig struct {
	// SiteName is the forum's display name, used by the quote
	// trimming heuristics to spot "via <site>" attribution lines.
	SiteName string `mapstructure:"site_name" yaml:"site_name"`

	// ReplyByEmailAddress is the outbound reply address template with
	// a single %{reply_key} placeholder, e.g.
	// "replies+%{reply_key}@forum.example.com".
	ReplyByEmailAddress string `mapstructure:"reply_by_email_address" yaml:"reply_by_email_address"`

	// EmailIn gates whether category-routed inbound email is accepted
	// at all.
	EmailIn bool `mapstructure:"email_in" yaml:"email_in"`

	// EmailInMinTrust is the minimum trust level a resolved sender
	// needs to create topics by email in categories that do not allow
	// strangers.
	EmailInMinTrust int `mapstructure:"email_in_min_trust" yaml:"email_in_min_trust"`

	// PreviousRepliesMarker is the localized marker text that
	// precedes quoted prior discussion in outbound notifications.
	PreviousRepliesMarker string `mapstructure:"previous_replies_marker" yaml:"previous_replies_marker"`

	// SystemUsername is the account substituted as author when an
	// unregistered sender posts into a stranger-friendly category.
	SystemUsername string `mapstructure:"system_username" yaml:"system_username"`
}

// IMAPConfig holds the settings for the IMAP inbox poller.
type IMAPConfig struct {
	Host            string `mapstructure:"host" yaml:"host"`
	Port            string `mapstructure:"port" yaml:"port"`
	Username        string `mapstructure:"username" yaml:"username"`
	Password        string `mapstructure:"password" yaml:"password"`
	TLS             bool   `mapstructure:"tls" yaml:"tls"`
	Mailbox         string `mapstructure:"mailbox" yaml:"mailbox"`
	PollIntervalSec int    `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`
}

// StorageConfig holds local persistence settings.
type StorageConfig struct {
	// DBPath is the SQLite database file path.
	DBPath string `mapstructure:"db_path" yaml:"db_path"`

	// UploadDir is the directory attachment uploads are stored under.
	UploadDir string `mapstructure:"upload_dir" yaml:"upload_dir"`

	// UploadBaseURL prefixes the URLs generated for stored uploads.
	UploadBaseURL string `mapstructure:"upload_base_url" yaml:"upload_base_url"`
}

// SpoolConfig holds settings for the drop-directory watcher.
type SpoolConfig struct {
	// Dir is the directory watched for incoming .eml files.
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Email   EmailConfig   `mapstructure:"email" yaml:"email"`
	IMAP    IMAPConfig    `mapstructure:"imap" yaml:"imap"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Spool   SpoolConfig   `mapstructure:"spool" yaml:"spool"`
}

// DefaultConfigPath returns the default path for the configuration
// file, located at ~/.config/forum-inbound/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "forum-inbound", "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Email: EmailConfig{
			SiteName:              "Forum",
			EmailIn:               true,
			EmailInMinTrust:       TrustLevelBasic,
			PreviousRepliesMarker: "Previous Replies",
			SystemUsername:        "system",
		},
		IMAP: IMAPConfig{
			Mailbox:         "INBOX",
			PollIntervalSec: 60,
		},
		Storage: StorageConfig{
			DBPath:        "forum-inbound.db",
			UploadDir:     "uploads",
			UploadBaseURL: "/uploads",
		},
		Spool: SpoolConfig{
			Dir: "spool",
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using
// Viper. If the file does not exist, it returns a default
// configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("email.site_name", "Forum")
	v.SetDefault("email.email_in", true)
	v.SetDefault("email.email_in_min_trust", TrustLevelBasic)
	v.SetDefault("email.previous_replies_marker", "Previous Replies")
	v.SetDefault("email.system_username", "system")
	v.SetDefault("imap.mailbox", "INBOX")
	v.SetDefault("imap.poll_interval_sec", 60)
	v.SetDefault("storage.db_path", "forum-inbound.db")
	v.SetDefault("storage.upload_dir", "uploads")
	v.SetDefault("storage.upload_base_url", "/uploads")
	v.SetDefault("spool.dir", "spool")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaultAppConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaultAppConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("email", cfg.Email)
	v.Set("imap", cfg.IMAP)
	v.Set("storage", cfg.Storage)
	v.Set("spool", cfg.Spool)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
