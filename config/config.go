package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Account struct {
		ChatID    string
		AuthToken string
	}

	Remote struct {
		Server  string
		Timeout time.Duration
	}

	Bitcoin struct {
		Network string // mainnet, testnet or signet
	}

	Postgres struct {
		DSN string
	}

	Redis struct {
		Host     string
		Port     string
		User     string
		Password string
		DB       int
	}

	Datadog struct {
		Host string
		Port string
	}

	BlockStorage struct {
		Host      string
		Region    string
		AccessKey string
		SecretKey string
		Bucket    string
	}

	Worker struct {
		Concurrency  int
		SyncInterval time.Duration
	}
}

func ReadConfig(configName string) (*Config, error) {
	viper.SetConfigName(configName)
	viper.AddConfigPath(".")
	viper.AutomaticEnv()
	viper.SetDefault("remote.timeout", 10*time.Second)
	viper.SetDefault("bitcoin.network", "mainnet")
	viper.SetDefault("worker.concurrency", 10)
	viper.SetDefault("worker.syncinterval", 5*time.Minute)

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("fail to read config file: %w", err)
	}
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("fail to unmarshal config: %w", err)
	}
	return &cfg, nil
}
