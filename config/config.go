package config

import (
	"fmt"
	"strings"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/lifeembedding/lifeembedding/internal"
)

// We're bootstrapping so avoid any imports from other packages
var log = logrus.New()

const EnvPrefix = "LIFEEMBEDDING"

// LoadConfig loads the config file and ENV variables into a Config struct.
// Options missing from both are filled from the defaults.
func LoadConfig(configFile string) (*Config, error) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
	}

	viper.SetConfigType("yaml")

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// a config file is optional when running purely from ENV
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configFile != "" {
			return nil, err
		}
		log.Warn("config file not found, using defaults and environment")
	}

	// Environment variables take precedence over config file
	loadDotEnv()

	if err := bindSecrets(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := applyDefaults(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// bindSecrets binds secrets that are never expected in the config file.
func bindSecrets() error {
	secrets := map[string]string{
		"embeddings.openai_api_key": EnvPrefix + "_OPENAI_API_KEY",
		"auth.secret":               EnvPrefix + "_AUTH_SECRET",
		"store.postgres.dsn":        EnvPrefix + "_STORE_POSTGRES_DSN",
	}
	for key, env := range secrets {
		if err := viper.BindEnv(key, env); err != nil {
			return fmt.Errorf("error binding environment variable %s: %w", env, err)
		}
	}
	return nil
}

// applyDefaults fills zero-valued fields in cfg from defaultConfig.
func applyDefaults(cfg *Config) error {
	defaults := DefaultConfig()
	if err := mergo.Merge(cfg, defaults); err != nil {
		return fmt.Errorf("error applying config defaults: %w", err)
	}
	return nil
}

// loadDotEnv loads environment variables from .env file
func loadDotEnv() {
	err := godotenv.Load()
	if err != nil {
		log.Debug(".env file not found or unable to load")
	}
}

// SetLogLevel applies the configured log format and level. The level defaults to
// INFO if not set or invalid.
func SetLogLevel(cfg *Config) {
	internal.SetLogFormat(cfg.Log.Format)
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	internal.SetLogLevel(level)
	log.Info("Log level set to: ", level)
}
