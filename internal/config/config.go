package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"

	defaultServerAddress   = "localhost:8080"
	defaultLogLevel        = "info"
	defaultEnv             = EnvLocal
	defaultConfigDir       = ".pinvault"
	defaultAutoLockSeconds = 120
	deviceIDFile           = "device_id"
)

// Config holds the client-side configuration.
type Config struct {
	Env             string `mapstructure:"app_env"`
	ServerAddress   string `mapstructure:"server_address"`
	LogLevel        string `mapstructure:"log_level"`
	ConfigDir       string `mapstructure:"config_dir"`
	DataPath        string `mapstructure:"data_path"`
	TokenPath       string `mapstructure:"token_path"`
	AutoLockSeconds int    `mapstructure:"auto_lock_seconds"`
	EnableTLS       bool   `mapstructure:"enable_tls"`
	DeviceID        string
}

// Load reads the client configuration from the environment and an
// optional .env file, then resolves data paths under the config dir.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	viper.AutomaticEnv()

	viper.SetDefault("APP_ENV", defaultEnv)
	viper.SetDefault("SERVER_ADDRESS", defaultServerAddress)
	viper.SetDefault("LOG_LEVEL", defaultLogLevel)
	viper.SetDefault("CONFIG_DIR", defaultConfigDir)
	viper.SetDefault("AUTO_LOCK_SECONDS", defaultAutoLockSeconds)
	viper.SetDefault("ENABLE_TLS", false)

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	configDir := viper.GetString("CONFIG_DIR")
	if !filepath.IsAbs(configDir) {
		configDir = filepath.Join(homeDir, configDir)
	}
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create config dir: %w", err)
	}

	cfg := &Config{
		Env:             viper.GetString("APP_ENV"),
		ServerAddress:   viper.GetString("SERVER_ADDRESS"),
		LogLevel:        viper.GetString("LOG_LEVEL"),
		ConfigDir:       configDir,
		DataPath:        filepath.Join(configDir, "vault.db"),
		TokenPath:       filepath.Join(configDir, "token"),
		AutoLockSeconds: viper.GetInt("AUTO_LOCK_SECONDS"),
		EnableTLS:       viper.GetBool("ENABLE_TLS"),
	}

	cfg.DeviceID, err = loadDeviceID(configDir)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadDeviceID returns the persisted device identity, generating one on
// first run. The id tags every uploaded document so other devices can
// tell their own echoes apart from foreign changes.
func loadDeviceID(configDir string) (string, error) {
	path := filepath.Join(configDir, deviceIDFile)

	if data, err := os.ReadFile(path); err == nil {
		id := strings.TrimSpace(string(data))
		if _, err := uuid.Parse(id); err == nil {
			return id, nil
		}
	}

	id := uuid.NewString()
	if err := os.WriteFile(path, []byte(id+"\n"), 0600); err != nil {
		return "", fmt.Errorf("failed to persist device id: %w", err)
	}
	return id, nil
}
