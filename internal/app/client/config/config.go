package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultAPIURL       = "http://localhost:8080"
	defaultLogLevel     = "info"
	defaultEnv          = "local"
	defaultDeviceKeyPath = ".device.key"
	defaultConfigDir    = ".daylog"
	defaultSyncInterval = 20
)

// Config holds everything the daylog client needs to talk to the server and
// cache data locally. There is no master password or vault key here: the
// bearer token is the only secret, encrypted at rest with a key generated
// on first run (see internal/app/client/crypto).
type Config struct {
	Env           string `mapstructure:"app_env"`
	APIURL        string `mapstructure:"api_url"`
	LogLevel      string `mapstructure:"log_level"`
	DeviceKeyPath string `mapstructure:"device_key_path"`
	ConfigDir     string `mapstructure:"config_dir"`
	TokenPath     string `mapstructure:"token_path"`
	DBPath        string `mapstructure:"db_path"`
	ClientIDPath  string `mapstructure:"client_id_path"`
	SyncInterval  int    `mapstructure:"sync_interval_seconds"`
}

// MustLoad reads client configuration from the environment (and an optional
// .env file), the way the server's config.MustLoad does. It sets up no file
// watch itself; client.New registers the api_url watch via WatchAPIURL.
func MustLoad() *Config {
	envPath := ".env"
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		envPath = "../.env"
	}

	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			fmt.Printf("failed to load .env file: %v\n", err)
		}
	}

	viper.AutomaticEnv()

	viper.SetDefault("APP_ENV", defaultEnv)
	viper.SetDefault("API_URL", defaultAPIURL)
	viper.SetDefault("LOG_LEVEL", defaultLogLevel)
	viper.SetDefault("DEVICE_KEY_PATH", defaultDeviceKeyPath)
	viper.SetDefault("CONFIG_DIR", defaultConfigDir)
	viper.SetDefault("SYNC_INTERVAL_SECONDS", defaultSyncInterval)

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	configDir := viper.GetString("CONFIG_DIR")
	if configDir == defaultConfigDir {
		configDir = filepath.Join(homeDir, configDir)
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		fmt.Printf("failed to create config directory: %v\n", err)
	}

	deviceKeyPath := viper.GetString("DEVICE_KEY_PATH")
	if deviceKeyPath == defaultDeviceKeyPath {
		deviceKeyPath = filepath.Join(configDir, deviceKeyPath)
	}

	cfg := &Config{
		Env:           viper.GetString("APP_ENV"),
		APIURL:        viper.GetString("API_URL"),
		LogLevel:      viper.GetString("LOG_LEVEL"),
		DeviceKeyPath: deviceKeyPath,
		ConfigDir:     configDir,
		TokenPath:     filepath.Join(configDir, "token"),
		DBPath:        filepath.Join(configDir, "daylog.db"),
		ClientIDPath:  filepath.Join(configDir, "client_id"),
		SyncInterval:  viper.GetInt("SYNC_INTERVAL_SECONDS"),
	}

	if err := cfg.validate(); err != nil {
		panic(fmt.Sprintf("invalid client configuration: %v", err))
	}

	return cfg
}

// WatchAPIURL live-reloads the api_url setting from the config file (when
// one is in use) and invokes onChange whenever it changes, so a running
// sync loop can be repointed at a new server without a restart.
func WatchAPIURL(onChange func(apiURL string)) {
	viper.OnConfigChange(func(fsnotify.Event) {
		onChange(viper.GetString("API_URL"))
	})
	viper.WatchConfig()
}

func (c *Config) validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("api_url must not be empty")
	}
	if c.DeviceKeyPath == "" {
		return fmt.Errorf("device_key_path must not be empty")
	}
	return nil
}

func (c *Config) IsProd() bool {
	return c.Env == "prod"
}

func (c *Config) IsDev() bool {
	return c.Env == "dev"
}

func (c *Config) IsLocal() bool {
	return c.Env == "local" || c.Env == ""
}
