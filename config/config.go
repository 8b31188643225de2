package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/weak-excuse/api-go/types"
)

type AppConfig struct {
	AppEnv    string          `env:"APP_ENV" env-default:"production"`
	Port      string          `env:"PORT" env-default:"8080"`
	JWTSecret string          `env:"JWT_SECRET"`
	Log       LogConfig       `env-prefix:"LOG_"`
	Database  DatabaseConfig  `env-prefix:"DB_"`
	Incidents IncidentsConfig `env-prefix:"INCIDENTS_"`
	Sweeper   SweeperConfig   `env-prefix:"SWEEPER_"`
}

type LogConfig struct {
	Level  string `env:"LEVEL" env-default:"info"`
	Format string `env:"FORMAT" env-default:"text"`
}

type DatabaseConfig struct {
	Driver     string `env:"DRIVER" env-default:"postgres"`
	URL        string `env:"URL"`
	Host       string `env:"HOST" env-default:"localhost"`
	User       string `env:"USER"`
	Password   string `env:"PASSWORD"`
	Name       string `env:"NAME"`
	Port       string `env:"PORT" env-default:"5432"`
	SSLMode    string `env:"SSLMODE" env-default:"disable"`
	SQLitePath string `env:"SQLITE_PATH" env-default:"data/weakexcuse.db"`
}

type IncidentsConfig struct {
	AccusationTTL        time.Duration `env:"ACCUSATION_TTL" env-default:"168h"`
	SelfReportTTL        time.Duration `env:"SELF_REPORT_TTL" env-default:"48h"`
	DailyAccusationLimit int           `env:"DAILY_ACCUSATION_LIMIT" env-default:"3"`
	AccusationWindow     time.Duration `env:"ACCUSATION_WINDOW" env-default:"24h"`
	NoteMaxLength        int           `env:"NOTE_MAX_LENGTH" env-default:"280"`
}

type SweeperConfig struct {
	Enabled    bool   `env:"ENABLED" env-default:"true"`
	Schedule   string `env:"SCHEDULE" env-default:"@every 5m"`
	RunOnStart bool   `env:"RUN_ON_START" env-default:"true"`
}

// Load reads .env (when present) and the process environment.
func Load() (*AppConfig, error) {
	// A missing .env is fine in production.
	_ = godotenv.Load()

	var cfg AppConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) IsDevelopment() bool {
	return c != nil && strings.EqualFold(c.AppEnv, "development")
}

func (c *AppConfig) Validate() error {
	switch strings.ToLower(c.Database.Driver) {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.JWTSecret == "" && !c.IsDevelopment() {
		return errors.New("JWT_SECRET is required outside development")
	}
	in := c.Incidents
	if in.AccusationTTL <= 0 || in.SelfReportTTL <= 0 || in.AccusationWindow <= 0 {
		return errors.New("incident durations must be positive")
	}
	if in.DailyAccusationLimit <= 0 {
		return errors.New("INCIDENTS_DAILY_ACCUSATION_LIMIT must be positive")
	}
	if in.NoteMaxLength <= 0 {
		return errors.New("INCIDENTS_NOTE_MAX_LENGTH must be positive")
	}
	if c.Sweeper.Enabled && strings.TrimSpace(c.Sweeper.Schedule) == "" {
		return errors.New("SWEEPER_SCHEDULE is required when the sweeper is enabled")
	}
	return nil
}

// Rules converts the incident section into the lifecycle rules.
func (c IncidentsConfig) Rules() types.IncidentRules {
	return types.IncidentRules{
		AccusationTTL:        c.AccusationTTL,
		SelfReportTTL:        c.SelfReportTTL,
		DailyAccusationLimit: c.DailyAccusationLimit,
		AccusationWindow:     c.AccusationWindow,
		NoteMaxLength:        c.NoteMaxLength,
	}
}
