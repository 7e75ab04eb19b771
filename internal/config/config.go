package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/e-Learning-by-SSE/stu-website-service/internal/platform/envutil"
)

type Postgres struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

func (p Postgres) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		p.User, p.Password, p.Host, p.Port, p.Name)
}

type Redis struct {
	Addr    string `yaml:"addr"`
	Channel string `yaml:"channel"`
}

type Worker struct {
	Concurrency         int `yaml:"concurrency"`
	PollIntervalSeconds int `yaml:"poll_interval_seconds"`
	MaxAttempts         int `yaml:"max_attempts"`
	RetryDelaySeconds   int `yaml:"retry_delay_seconds"`
	StaleClaimSeconds   int `yaml:"stale_claim_seconds"`
}

func (w Worker) PollInterval() time.Duration {
	return time.Duration(w.PollIntervalSeconds) * time.Second
}

func (w Worker) RetryDelay() time.Duration {
	return time.Duration(w.RetryDelaySeconds) * time.Second
}

func (w Worker) StaleClaim() time.Duration {
	return time.Duration(w.StaleClaimSeconds) * time.Second
}

type Groups struct {
	// Capacity caps how full a group may be for random assignment.
	Capacity int `yaml:"capacity"`
}

type Config struct {
	LogMode  string   `yaml:"log_mode"`
	Postgres Postgres `yaml:"postgres"`
	Redis    Redis    `yaml:"redis"`
	Worker   Worker   `yaml:"worker"`
	Groups   Groups   `yaml:"groups"`
}

func Default() Config {
	return Config{
		LogMode: "development",
		Postgres: Postgres{
			Host: "localhost",
			Port: "5432",
			User: "postgres",
			Name: "stu_website",
		},
		Redis: Redis{Channel: "notifications"},
		Worker: Worker{
			Concurrency:         4,
			PollIntervalSeconds: 1,
			MaxAttempts:         5,
			RetryDelaySeconds:   30,
			StaleClaimSeconds:   600,
		},
		Groups: Groups{Capacity: 4},
	}
}

// Load reads the optional YAML file at path (CONFIG_FILE when empty), then
// applies environment overrides on top. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.LogMode = envutil.String("LOG_MODE", c.LogMode)

	c.Postgres.Host = envutil.String("POSTGRES_HOST", c.Postgres.Host)
	c.Postgres.Port = envutil.String("POSTGRES_PORT", c.Postgres.Port)
	c.Postgres.User = envutil.String("POSTGRES_USER", c.Postgres.User)
	c.Postgres.Password = envutil.String("POSTGRES_PASSWORD", c.Postgres.Password)
	c.Postgres.Name = envutil.String("POSTGRES_NAME", c.Postgres.Name)

	c.Redis.Addr = envutil.String("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Channel = envutil.String("REDIS_CHANNEL", c.Redis.Channel)

	c.Worker.Concurrency = envutil.Int("WORKER_CONCURRENCY", c.Worker.Concurrency)
	c.Worker.PollIntervalSeconds = envutil.Int("WORKER_POLL_INTERVAL_SECONDS", c.Worker.PollIntervalSeconds)
	c.Worker.MaxAttempts = envutil.Int("WORKER_MAX_ATTEMPTS", c.Worker.MaxAttempts)
	c.Worker.RetryDelaySeconds = envutil.Int("WORKER_RETRY_DELAY_SECONDS", c.Worker.RetryDelaySeconds)
	c.Worker.StaleClaimSeconds = envutil.Int("WORKER_STALE_CLAIM_SECONDS", c.Worker.StaleClaimSeconds)

	c.Groups.Capacity = envutil.Int("GROUP_CAPACITY", c.Groups.Capacity)
}
