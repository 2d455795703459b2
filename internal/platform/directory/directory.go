// Package directory answers "how many users are registered", the one fact the daily quest pool
// needs from the identity provider.
package directory

import (
	"context"
	"strings"
	"time"

	"github.com/yungbote/pinegate-backend/internal/data/repos"
	"github.com/yungbote/pinegate-backend/internal/pkg/dbctx"
	"github.com/yungbote/pinegate-backend/internal/platform/envutil"
	"github.com/yungbote/pinegate-backend/internal/platform/logger"
)

type Counter interface {
	CountUsers(ctx context.Context) (int, error)
}

type Config struct {
	AdminURL   string
	ServiceKey string
	PerPage    int
	Timeout    time.Duration
	MaxRetries int
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		AdminURL:   strings.TrimRight(envutil.String("AUTH_ADMIN_URL", ""), "/"),
		ServiceKey: envutil.String("AUTH_SERVICE_KEY", ""),
		PerPage:    envutil.Int("AUTH_ADMIN_PAGE_SIZE", 1000, log),
		Timeout:    envutil.Seconds("AUTH_ADMIN_TIMEOUT_SECONDS", 30*time.Second, log),
		MaxRetries: envutil.Int("AUTH_ADMIN_MAX_RETRIES", 3, log),
	}
}

// New returns a GoTrueCounter when the admin API is configured, otherwise a CharacterCounter.
func New(log *logger.Logger, cfg Config, chars repos.CharacterRepo) Counter {
	if cfg.AdminURL != "" && cfg.ServiceKey != "" {
		return NewGoTrueCounter(log, cfg)
	}
	log.Info("AUTH_ADMIN_URL not set; counting users from village characters")
	return &CharacterCounter{Characters: chars}
}

// CharacterCounter counts users who have a village character. It undercounts users who
// never logged activity.
type CharacterCounter struct {
	Characters repos.CharacterRepo
}

func (c *CharacterCounter) CountUsers(ctx context.Context) (int, error) {
	n, err := c.Characters.Count(dbctx.From(ctx))
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
