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
	Admin struct {
		Passcode string `yaml:"passcode"`
	} `yaml:"admin"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Questions struct {
		CacheTTL string `yaml:"cacheTtl"`
	} `yaml:"questions"`
	Game Game `yaml:"game"`
}

// Game holds the loop timing and scoring knobs.
type Game struct {
	WindowSeconds   int `yaml:"windowSeconds"`
	CooldownSeconds int `yaml:"cooldownSeconds"`
	BasePoints      int `yaml:"basePoints"`
	BonusScale      int `yaml:"bonusScale"`
}

// Window returns the answer window as a duration.
func (g Game) Window() time.Duration {
	return time.Duration(g.WindowSeconds) * time.Second
}

// Cooldown returns the between-questions pause as a duration.
func (g Game) Cooldown() time.Duration {
	return time.Duration(g.CooldownSeconds) * time.Second
}

// DefaultGame is the documented tuning: 15s window, 5s cooldown,
// 10 base points plus up to 10 speed-bonus points.
func DefaultGame() Game {
	return Game{WindowSeconds: 15, CooldownSeconds: 5, BasePoints: 10, BonusScale: 10}
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	cfg.Game = withGameDefaults(cfg.Game)
	if cfg.Admin.Passcode == "" {
		cfg.Admin.Passcode = os.Getenv("ADMIN_PASSCODE")
	}
	return cfg, nil
}

func withGameDefaults(g Game) Game {
	def := DefaultGame()
	if g.WindowSeconds <= 0 {
		g.WindowSeconds = def.WindowSeconds
	}
	if g.CooldownSeconds <= 0 {
		g.CooldownSeconds = def.CooldownSeconds
	}
	if g.BasePoints <= 0 {
		g.BasePoints = def.BasePoints
	}
	if g.BonusScale <= 0 {
		g.BonusScale = def.BonusScale
	}
	return g
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
