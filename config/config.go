package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment,
// .env files and an optional config.yaml.
type Config struct {
	DBPath    string `mapstructure:"DB_PATH" validate:"required"`
	LogLevel  string `mapstructure:"LOG_LEVEL" validate:"required,oneof=debug info warn error"`
	LogFormat string `mapstructure:"LOG_FORMAT" validate:"required,oneof=json console"`

	BackupProvider string `mapstructure:"BACKUP_PROVIDER" validate:"required,oneof=drive s3"`
	BackupFolder   string `mapstructure:"BACKUP_FOLDER" validate:"required"`

	DriveClientID     string `mapstructure:"DRIVE_CLIENT_ID"`
	DriveClientSecret string `mapstructure:"DRIVE_CLIENT_SECRET"`

	S3Bucket string `mapstructure:"S3_BUCKET" validate:"required_if=BackupProvider s3"`
	S3Region string `mapstructure:"S3_REGION" validate:"required_if=BackupProvider s3"`

	SecretsEncrypt bool `mapstructure:"SECRETS_ENCRYPT"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// keys are bound to DEVDECK_<KEY> environment variables.
var keys = []string{
	"DB_PATH",
	"LOG_LEVEL",
	"LOG_FORMAT",
	"BACKUP_PROVIDER",
	"BACKUP_FOLDER",
	"DRIVE_CLIENT_ID",
	"DRIVE_CLIENT_SECRET",
	"S3_BUCKET",
	"S3_REGION",
	"SECRETS_ENCRYPT",
}

// Load reads .env files if present, applies defaults, binds env vars and
// validates the result.
func Load() (*Config, error) {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve home directory: %w", err)
	}
	appDir := filepath.Join(home, ".devdeck")

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath(appDir)

	v.SetEnvPrefix("DEVDECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("DB_PATH", filepath.Join(appDir, "devdeck.db"))
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("BACKUP_PROVIDER", "drive")
	v.SetDefault("BACKUP_FOLDER", "DevDeck Backups")
	v.SetDefault("SECRETS_ENCRYPT", false)

	// Optional config file
	_ = v.ReadInConfig()

	for _, key := range keys {
		_ = v.BindEnv(key)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("config unmarshal error: %w", err)
	}
	c.DBPath = expandHome(c.DBPath, home)

	if err := validate.Struct(&c); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &c, nil
}

// DataDir is the directory holding the database, vault file and log.
func (c *Config) DataDir() string {
	return filepath.Dir(c.DBPath)
}

// LogPath is where the TUI writes its log.
func (c *Config) LogPath() string {
	return filepath.Join(c.DataDir(), "devdeck.log")
}

// VaultPath is the sealing config file.
func (c *Config) VaultPath() string {
	return filepath.Join(c.DataDir(), "vault.json")
}

// RequireDrive checks the settings the device flow needs.
func (c *Config) RequireDrive() error {
	if c.DriveClientID == "" || c.DriveClientSecret == "" {
		return fmt.Errorf("DEVDECK_DRIVE_CLIENT_ID and DEVDECK_DRIVE_CLIENT_SECRET must be set")
	}
	return nil
}

func expandHome(path, home string) string {
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
