package nats

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	URL           string        `env:"NATS_URL" envDefault:"nats://127.0.0.1:4222"`
	SubjectPrefix string        `env:"NATS_SUBJECT_PREFIX" envDefault:"iam.events"`
	BatchSize     int           `env:"RELAY_BATCH_SIZE" envDefault:"100"`
	PollInterval  time.Duration `env:"RELAY_POLL_INTERVAL" envDefault:"1s"`
	MetricsAddr   string        `env:"RELAY_METRICS_ADDR" envDefault:":9102"`
}

// ConfigFromEnv parses the relay config from environment variables.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
