package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Store drivers accepted in store.driver.
const (
	DriverFile     = "file"
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

type Config struct {
	Env    string `yaml:"env"`
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Store struct {
		Driver string `yaml:"driver"`
		Dir    string `yaml:"dir"`
	} `yaml:"store"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Remote struct {
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"remote"`
	Quiz struct {
		TTL                  string `yaml:"ttl"`
		StandardTimeLimit    int    `yaml:"standard_time_limit"`
		CompetitionTimeLimit int    `yaml:"competition_time_limit"`
		WarningAt            int    `yaml:"warning_at"`
		NumDept              int    `yaml:"num_dept"`
		NumGen               int    `yaml:"num_gen"`
		CompetitionQuestions int    `yaml:"competition_questions"`
	} `yaml:"quiz"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	cfg := Config{Env: "development"}
	cfg.Server.Port = "8080"
	cfg.Store.Driver = DriverFile
	cfg.Store.Dir = "data"
	cfg.Redis.Prefix = "quiz"
	cfg.Remote.Timeout = "5s"
	cfg.Quiz.TTL = "10m"
	cfg.Quiz.StandardTimeLimit = 120
	cfg.Quiz.CompetitionTimeLimit = 90
	cfg.Quiz.WarningAt = 30
	cfg.Quiz.NumDept = 5
	cfg.Quiz.NumGen = 5
	cfg.Quiz.CompetitionQuestions = 5
	return cfg
}

// Load reads YAML config from path over the defaults, then applies environment overrides.
// A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config) error {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	setString("APP_ENV", &cfg.Env)
	setString("PORT", &cfg.Server.Port)
	setString("STORE_DRIVER", &cfg.Store.Driver)
	setString("STORE_DIR", &cfg.Store.Dir)
	setString("REDIS_ADDR", &cfg.Redis.Addr)
	setString("REDIS_PASSWORD", &cfg.Redis.Password)
	setString("POSTGRES_URL", &cfg.Postgres.URL)
	setString("REMOTE_SINK_URL", &cfg.Remote.URL)

	if v := os.Getenv("REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("REDIS_DB: %w", err)
		}
		cfg.Redis.DB = db
	}
	return nil
}

// Validate checks the driver has what it needs and the quiz limits are usable.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case DriverFile:
		if c.Store.Dir == "" {
			return errors.New("store.dir is required for the file driver")
		}
	case DriverMemory:
	case DriverRedis:
		if c.Redis.Addr == "" {
			return errors.New("redis.addr is required for the redis driver")
		}
	case DriverPostgres:
		if c.Postgres.URL == "" {
			return errors.New("postgres.url is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Quiz.StandardTimeLimit <= 0 || c.Quiz.CompetitionTimeLimit <= 0 {
		return errors.New("quiz time limits must be positive")
	}
	return nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
