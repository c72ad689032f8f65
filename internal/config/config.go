package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"mcq-quiz-service/internal/domain"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
		// AllowedOrigins controls CORS and WebSocket origin checks; empty allows all.
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		// TTL is how long a session liveness marker survives without a refresh.
		TTL string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		// TTL bounds how long a loaded question set stays cached.
		TTL                string  `yaml:"ttl"`
		Dir                string  `yaml:"dir"`
		TimerPolicy        string  `yaml:"timer_policy"`
		TimerMinutes       int     `yaml:"timer_minutes"`
		NegativeMarkWeight float64 `yaml:"negative_mark_weight"`
	} `yaml:"quiz"`
	Generator struct {
		URL     string `yaml:"url"`
		APIKey  string `yaml:"api_key"`
		Model   string `yaml:"model"`
		Timeout string `yaml:"timeout"`
	} `yaml:"generator"`
}

// Load reads YAML config from path, then applies .env and environment overrides. A missing
// file is not an error; every setting has a default or may come from the environment.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, err
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, err
			}
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	if origins := parseList(os.Getenv("ALLOWED_ORIGINS")); origins != nil {
		c.Server.AllowedOrigins = origins
	}
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Postgres.URL = getEnv("DATABASE_URL", c.Postgres.URL)
	c.Quiz.Dir = getEnv("QUIZ_DIR", c.Quiz.Dir)
	c.Quiz.TimerPolicy = getEnv("TIMER_POLICY", c.Quiz.TimerPolicy)
	c.Quiz.TimerMinutes = getEnvInt("TIMER_MINUTES", c.Quiz.TimerMinutes)
	c.Quiz.NegativeMarkWeight = getEnvFloat("NEGATIVE_MARK_WEIGHT", c.Quiz.NegativeMarkWeight)
	c.Generator.URL = getEnv("GENERATOR_URL", c.Generator.URL)
	c.Generator.APIKey = getEnv("GENERATOR_API_KEY", c.Generator.APIKey)
	c.Generator.Model = getEnv("GENERATOR_MODEL", c.Generator.Model)
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "pretty"
	}
	if c.Quiz.TimerMinutes == 0 && strings.EqualFold(c.Quiz.TimerPolicy, "fixed") {
		c.Quiz.TimerMinutes = 10
	}
}

// SessionDefaults turns the quiz section into the session config used when a load does not
// carry its own.
func (c Config) SessionDefaults() (domain.SessionConfig, error) {
	policy, err := domain.ParseTimerPolicy(c.Quiz.TimerPolicy)
	if err != nil {
		return domain.SessionConfig{}, domain.Validationf("%v", err)
	}
	sc := domain.SessionConfig{
		TimerMinutes:       c.Quiz.TimerMinutes,
		NegativeMarkWeight: c.Quiz.NegativeMarkWeight,
		TimerPolicy:        policy,
	}
	if err := sc.Validate(); err != nil {
		return domain.SessionConfig{}, err
	}
	return sc, nil
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

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	f, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return fallback
	}
	return f
}

// parseList splits a comma-separated value into trimmed entries; empty input yields nil.
func parseList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
