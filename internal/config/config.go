// Package config loads the site configuration from defaults, an optional
// config.yaml and the environment.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`

	Database   DatabaseConfig   `mapstructure:"database"`
	Uploads    UploadsConfig    `mapstructure:"uploads"`
	Cloudinary CloudinaryConfig `mapstructure:"cloudinary"`
	Admin      AdminConfig      `mapstructure:"admin"`
	SMTP       SMTPConfig       `mapstructure:"smtp"`
	Contact    ContactConfig    `mapstructure:"contact"`
	Site       SiteConfig       `mapstructure:"site"`
	Log        LogConfig        `mapstructure:"log"`
	Live       LiveConfig       `mapstructure:"live"`
	Analytics  AnalyticsConfig  `mapstructure:"analytics"`
	CORS       CORSConfig       `mapstructure:"cors"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// UploadsConfig locates the disk bucket and the URL prefix it is served
// under.
type UploadsConfig struct {
	Dir string `mapstructure:"dir"`
	URL string `mapstructure:"url"`
}

type CloudinaryConfig struct {
	CloudName    string `mapstructure:"cloud_name"`
	UploadPreset string `mapstructure:"upload_preset"`
	APIKey       string `mapstructure:"api_key"`
	APISecret    string `mapstructure:"api_secret"`
	Folder       string `mapstructure:"folder"`
	BaseURL      string `mapstructure:"base_url"`
}

type AdminConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`

	// PasswordHash is a bcrypt hash. It takes precedence over Password.
	PasswordHash string `mapstructure:"password_hash"`
}

type SMTPConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	User string `mapstructure:"user"`
	Pass string `mapstructure:"pass"`
}

type ContactConfig struct {
	ToEmail string `mapstructure:"to_email"`
}

type SiteConfig struct {
	Title    string `mapstructure:"title"`
	Author   string `mapstructure:"author"`
	PageSize int    `mapstructure:"page_size"`
}

type LogConfig struct {
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type LiveConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type AnalyticsConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	RetentionMonths int  `mapstructure:"retention_months"`
}

type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// Development credentials, used when none are configured.
const (
	DefaultAdminUsername = "admin"
	DefaultAdminPassword = "admin123"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("mode", "debug")

	v.SetDefault("database.path", "folio.db")
	v.SetDefault("uploads.dir", "uploads")
	v.SetDefault("uploads.url", "/uploads")

	v.SetDefault("cloudinary.cloud_name", "")
	v.SetDefault("cloudinary.upload_preset", "")
	v.SetDefault("cloudinary.api_key", "")
	v.SetDefault("cloudinary.api_secret", "")
	v.SetDefault("cloudinary.folder", "portfolio")
	v.SetDefault("cloudinary.base_url", "https://api.cloudinary.com")

	v.SetDefault("admin.username", "")
	v.SetDefault("admin.password", "")
	v.SetDefault("admin.password_hash", "")

	v.SetDefault("smtp.host", "smtp.gmail.com")
	v.SetDefault("smtp.port", "587")
	v.SetDefault("smtp.user", "")
	v.SetDefault("smtp.pass", "")
	v.SetDefault("contact.to_email", "")

	v.SetDefault("site.title", "Portfolio")
	v.SetDefault("site.author", "Admin")
	v.SetDefault("site.page_size", 6)

	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)

	v.SetDefault("live.enabled", true)
	v.SetDefault("analytics.enabled", true)
	v.SetDefault("analytics.retention_months", 12)
	v.SetDefault("cors.allow_origins", []string{"*"})
}

// Load reads configuration. cfgFile may be empty, in which case
// ./config.yaml is used when present. Environment variables override both:
// smtp.host is read from SMTP_HOST and so on.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	if err := v.BindEnv("contact.to_email", "CONTACT_TO_EMAIL", "TO_EMAIL"); err != nil {
		return nil, err
	}
	if err := v.BindEnv("mode", "MODE", "GIN_MODE"); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || cfgFile != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		log.Println("Using config file:", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Port == "" {
		return errors.New("port must not be empty")
	}
	if c.Site.PageSize < 1 {
		return fmt.Errorf("site.page_size must be positive, got %d", c.Site.PageSize)
	}
	if c.Analytics.RetentionMonths < 1 {
		return fmt.Errorf("analytics.retention_months must be positive, got %d", c.Analytics.RetentionMonths)
	}
	if strings.Contains(c.Uploads.URL, "://") {
		c.Uploads.URL = strings.TrimRight(c.Uploads.URL, "/")
	} else {
		c.Uploads.URL = "/" + strings.Trim(c.Uploads.URL, "/")
	}
	return nil
}

// AdminCredentials returns the configured login, falling back to the
// development defaults with a warning.
func (c *Config) AdminCredentials() (username, password, hash string) {
	username, password, hash = c.Admin.Username, c.Admin.Password, c.Admin.PasswordHash
	if username == "" {
		username = DefaultAdminUsername
		log.Println("WARNING: Using default admin username. Set ADMIN_USERNAME environment variable.")
	}
	if password == "" && hash == "" {
		password = DefaultAdminPassword
		log.Println("WARNING: Using default admin password. Set ADMIN_PASSWORD or ADMIN_PASSWORD_HASH.")
	}
	return username, password, hash
}

// Configured reports whether every Cloudinary credential is present.
func (c CloudinaryConfig) Configured() bool {
	return c.CloudName != "" && c.UploadPreset != "" && c.APIKey != "" && c.APISecret != ""
}
