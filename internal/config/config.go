package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Gateway  GatewayConfig  `mapstructure:"gateway"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host" validate:"required"`
	Port     int    `mapstructure:"port" validate:"required"`
	User     string `mapstructure:"user" validate:"required"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name" validate:"required"`
	SSLMode  string `mapstructure:"sslmode" validate:"required"`
}

// GatewayConfig describes the external SMS API: where to send, how the
// request body fields are named, and how failures are classified.
type GatewayConfig struct {
	Hostname        string        `mapstructure:"hostname" validate:"required,url"`
	MessageField    string        `mapstructure:"message_field" validate:"required"`
	PhoneField      string        `mapstructure:"phone_field" validate:"required"`
	AppField        string        `mapstructure:"app_field" validate:"required"`
	AppValue        string        `mapstructure:"app_value" validate:"required"`
	Timeout         time.Duration `mapstructure:"timeout" validate:"required"`
	RetryableStatus int           `mapstructure:"retryable_status" validate:"required"`
	RatePerSecond   float64       `mapstructure:"rate_per_second"`
	RateBurst       int           `mapstructure:"rate_burst"`
	BreakerFailures int           `mapstructure:"breaker_failures"`
	BreakerCooldown time.Duration `mapstructure:"breaker_cooldown"`
}

type QueueConfig struct {
	ExpansionBatchSize int `mapstructure:"expansion_batch_size" validate:"required,gt=0"`
	SendBatchSize      int `mapstructure:"send_batch_size" validate:"required,gt=0"`
	MaxAttempts        int `mapstructure:"max_attempts" validate:"required,gt=0"`
}

type LoggingConfig struct {
	Dir   string `mapstructure:"dir"`
	Level string `mapstructure:"level"`
}

func setDefaults() {
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("gateway.message_field", "message")
	viper.SetDefault("gateway.phone_field", "mobileNumber")
	viper.SetDefault("gateway.app_field", "application")
	viper.SetDefault("gateway.app_value", "SCADA")
	viper.SetDefault("gateway.timeout", 10*time.Second)
	viper.SetDefault("gateway.retryable_status", 429)
	viper.SetDefault("queue.expansion_batch_size", 50)
	viper.SetDefault("queue.send_batch_size", 100)
	viper.SetDefault("queue.max_attempts", 3)
	viper.SetDefault("logging.dir", "logs")
	viper.SetDefault("logging.level", "info")
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.SetEnvPrefix("NOTIFIER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// DSN renders the lib/pq connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}
