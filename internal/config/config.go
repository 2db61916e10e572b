package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL string `yaml:"ttl"`
	} `yaml:"quiz"`
	Security struct {
		SigningSecret    string   `yaml:"signing_secret"`
		TicketTTL        string   `yaml:"ticket_ttl"`
		ClockSkew        string   `yaml:"clock_skew"`
		SingleUseTickets bool     `yaml:"single_use_tickets"`
		LocalNetwork     string   `yaml:"local_network"`
		AllowedNetworks  []string `yaml:"allowed_networks"`
	} `yaml:"security"`
	Log struct {
		Dir string `yaml:"dir"`
	} `yaml:"log"`
}

// Load reads YAML config from path. A missing file yields defaults so the
// server can come up from env vars alone.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnv(&cfg)
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	applyEnv(&cfg)
	return cfg, nil
}

// applyEnv lets deploy-time secrets override the file.
func applyEnv(cfg *Config) {
	if v := os.Getenv("SIGNING_SECRET"); v != "" {
		cfg.Security.SigningSecret = v
	}
	if v := os.Getenv("POSTGRES_URL"); v != "" {
		cfg.Postgres.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
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
