package config

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config is the process configuration shared by the api, worker and CLI.
type Config struct {
	Env      string `env:"APP_ENV,default=local"`
	Port     string `env:"APP_PORT,default=8080"`
	LogLevel string `env:"LOG_LEVEL,default=info"`

	// Features lists enabled feature flags, comma separated.
	Features []string `env:"FEATURE_FLAGS"`

	Podscribe  PodscribeConfig  `env:", prefix=PODSCRIBE_"`
	Salesforce SalesforceConfig `env:", prefix=SALESFORCE_"`
	Worker     WorkerConfig     `env:", prefix=WORKER_"`
	Redis      RedisConfig      `env:", prefix=REDIS_"`
}

type PodscribeConfig struct {
	Advertiser string `env:"ADVERTISER"`
}

type SalesforceConfig struct {
	InstanceURL string `env:"INSTANCE_URL"`
	AccessToken string `env:"ACCESS_TOKEN"`
	APIVersion  string `env:"API_VERSION,default=v53.0"`
}

type WorkerConfig struct {
	Count        int           `env:"COUNT,default=10"`
	LockDuration time.Duration `env:"LOCK_DURATION,default=1m"`
	HTTPTimeout  time.Duration `env:"HTTP_TIMEOUT,default=30s"`
}

type RedisConfig struct {
	Addr      string        `env:"ADDR"`
	DedupeTTL time.Duration `env:"DEDUPE_TTL,default=24h"`
}

// to help with testing
var envProcess = envconfig.Process

func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envProcess(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func validateConfig(cfg *Config) error {
	var errors []string

	if !slices.Contains([]string{"local", "dev", "staging", "production"}, cfg.Env) {
		errors = append(errors, fmt.Sprintf("APP_ENV must be one of local, dev, staging, production, got %q", cfg.Env))
	}

	if port, err := strconv.Atoi(cfg.Port); err != nil {
		errors = append(errors, "APP_PORT must be a valid number")
	} else if port < 1 || port > 65535 {
		errors = append(errors, "APP_PORT must be between 1 and 65535")
	}

	if cfg.Salesforce.InstanceURL != "" {
		u, err := url.Parse(cfg.Salesforce.InstanceURL)
		if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
			errors = append(errors, "SALESFORCE_INSTANCE_URL must be an absolute http(s) URL")
		}
		if strings.TrimSpace(cfg.Salesforce.AccessToken) == "" {
			errors = append(errors, "SALESFORCE_ACCESS_TOKEN is required when SALESFORCE_INSTANCE_URL is set")
		}
	}

	if cfg.Worker.Count < 1 {
		errors = append(errors, "WORKER_COUNT must be positive")
	}
	if cfg.Worker.LockDuration <= 0 {
		errors = append(errors, "WORKER_LOCK_DURATION must be positive")
	}
	if cfg.Worker.HTTPTimeout <= 0 {
		errors = append(errors, "WORKER_HTTP_TIMEOUT must be positive")
	}

	if len(errors) > 0 {
		return fmt.Errorf("%s", strings.Join(errors, "; "))
	}

	return nil
}

// FeatureSet returns the enabled feature flags as a lookup map.
func (c *Config) FeatureSet() map[string]bool {
	features := make(map[string]bool, len(c.Features))
	for _, f := range c.Features {
		if f = strings.TrimSpace(f); f != "" {
			features[f] = true
		}
	}
	return features
}

func (c *Config) HTTPAddr() string {
	return ":" + c.Port
}
