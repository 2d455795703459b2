package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/yungbote/pinegate-backend/internal/data/db"
	"github.com/yungbote/pinegate-backend/internal/http/middleware"
	"github.com/yungbote/pinegate-backend/internal/jobs/runtime"
	"github.com/yungbote/pinegate-backend/internal/platform/directory"
	"github.com/yungbote/pinegate-backend/internal/platform/envutil"
	"github.com/yungbote/pinegate-backend/internal/platform/logger"
	"github.com/yungbote/pinegate-backend/internal/platform/narration"
	"github.com/yungbote/pinegate-backend/internal/platform/openai"
	"github.com/yungbote/pinegate-backend/internal/platform/redislock"
	"github.com/yungbote/pinegate-backend/internal/temporalx"
)

const (
	DefaultPort       = "8080"
	DefaultDailyCron  = "0 17 * * *"
	DefaultWeeklyCron = "0 0 * * 0"
	ServiceName       = "pinegate"
)

type Config struct {
	Port           string
	LogMode        string
	DevMode        bool
	AllowedOrigins []string
	Environment    string
	Version        string

	DB        db.Config
	Narration narration.Config
	Directory directory.Config
	Redis     redislock.Config
	Temporal  temporalx.Config

	MaxConcurrency   int
	TitleBatchSize   int
	LockTTL          time.Duration
	DailyCron        string
	WeeklyCron       string
	QuestCatalogPath string
}

// LoadConfig reads the process environment. Missing narration credentials and
// unparseable cron expressions are errors; everything else falls back to defaults.
func LoadConfig(log *logger.Logger) (Config, error) {
	cfg := Config{
		Port:           envutil.String("PORT", DefaultPort),
		LogMode:        envutil.String("LOG_MODE", "development"),
		DevMode:        envutil.Bool("DEV_MODE", false, log),
		AllowedOrigins: envutil.List("CORS_ALLOWED_ORIGINS", middleware.DefaultAllowedOrigins),
		Environment:    envutil.String("APP_ENV", "development"),
		Version:        envutil.String("APP_VERSION", "dev"),

		DB: db.LoadConfig(log),
		Narration: narration.Config{
			Provider: strings.ToLower(envutil.String("NARRATION_PROVIDER", narration.ProviderOpenAI)),
			OpenAI:   openai.LoadConfig(log),
			Gemini: narration.GeminiConfig{
				APIKey: envutil.String("GEMINI_API_KEY", ""),
				Model:  envutil.String("GEMINI_MODEL", ""),
			},
		},
		Directory: directory.LoadConfig(log),
		Redis:     redislock.LoadConfig(log),
		Temporal:  temporalx.LoadConfig(log),

		MaxConcurrency:   envutil.Int("VILLAGE_MAX_CONCURRENCY", 0, log),
		TitleBatchSize:   envutil.Int("TITLE_BATCH_SIZE", 0, log),
		LockTTL:          envutil.Seconds("PIPELINE_LOCK_TTL_SECONDS", runtime.DefaultLockTTL, log),
		DailyCron:        envutil.String("DAILY_CRON", DefaultDailyCron),
		WeeklyCron:       envutil.String("WEEKLY_CRON", DefaultWeeklyCron),
		QuestCatalogPath: envutil.String("QUEST_CATALOG_YAML", ""),
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Narration.Provider {
	case "", narration.ProviderOpenAI:
		if c.Narration.OpenAI.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when NARRATION_PROVIDER=%s", narration.ProviderOpenAI)
		}
	case narration.ProviderGemini:
		if c.Narration.Gemini.APIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when NARRATION_PROVIDER=%s", narration.ProviderGemini)
		}
	default:
		return fmt.Errorf("unknown NARRATION_PROVIDER %q", c.Narration.Provider)
	}

	switch c.DB.Driver {
	case db.DriverPostgres, db.DriverSQLite:
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", c.DB.Driver)
	}

	for name, expr := range map[string]string{"DAILY_CRON": c.DailyCron, "WEEKLY_CRON": c.WeeklyCron} {
		if _, err := cron.ParseStandard(expr); err != nil {
			return fmt.Errorf("%s %q: %w", name, expr, err)
		}
	}
	return nil
}

// Address is the listen address for the HTTP server.
func (c Config) Address() string {
	if strings.Contains(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}
