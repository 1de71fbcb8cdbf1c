// Package config loads the CLI configuration from file, environment,
// and defaults.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	User     string         `mapstructure:"user"`
	Goals    GoalsConfig    `mapstructure:"goals"`
	Content  ContentConfig  `mapstructure:"content"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type GoalsConfig struct {
	TastingTarget int `mapstructure:"tasting_target"`
	QuizTarget    int `mapstructure:"quiz_target"`
}

// ContentConfig points at the externally authored catalogs used by the
// seed command.
type ContentConfig struct {
	BadgeCatalog string `mapstructure:"badge_catalog"`
	QuestionBank string `mapstructure:"question_bank"`
}

func Load(configFile string) (*Config, error) {
	v := viper.New()

	v.SetConfigType("yaml")

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/palate")
	}

	v.SetDefault("user", "local")
	v.SetDefault("goals.tasting_target", 3)
	v.SetDefault("goals.quiz_target", 1)

	// The database path may come from the environment instead of the
	// config file.
	if err := v.BindEnv("database.path", "PALATE_DB"); err != nil {
		return nil, fmt.Errorf("failed to bind PALATE_DB environment variable: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("configuration file found but could not be read: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration format: %w", err)
	}

	return &cfg, nil
}
