// Package config загружает конфигурацию spiderchef из переменных окружения.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config — вся конфигурация приложения.
type Config struct {
	Logging LogConfig
	Storage StorageConfig
	Output  OutputConfig
}

// LogConfig — настройки логирования.
type LogConfig struct {
	// Level — DEBUG, INFO, WARN или ERROR.
	Level string `envconfig:"LOG_LEVEL" default:"INFO"`

	// Format — json или text.
	Format string `envconfig:"LOG_FORMAT" default:"json"`
}

// StorageConfig — необязательные внешние получатели записей запуска.
type StorageConfig struct {
	// DatabaseURL — PostgreSQL для истории запусков; пусто — не сохранять.
	DatabaseURL string `envconfig:"DB_URL"`

	// RabbitMQURL — брокер для событий запусков; пусто — не публиковать.
	RabbitMQURL string `envconfig:"RABBITMQ_URL"`
}

// OutputConfig — куда записывать результат.
type OutputConfig struct {
	// File — файл результата cook.
	File string `envconfig:"SPIDERCHEF_OUTPUT" default:"output.yaml"`

	// MetricsFile — файл для выгрузки метрик в формате textfile; пусто — не выгружать.
	MetricsFile string `envconfig:"SPIDERCHEF_METRICS_FILE"`
}

// Load загружает конфигурацию из переменных окружения.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// Default возвращает конфигурацию по умолчанию.
func Default() *Config {
	return &Config{
		Logging: LogConfig{
			Level:  "INFO",
			Format: "json",
		},
		Output: OutputConfig{
			File: "output.yaml",
		},
	}
}
