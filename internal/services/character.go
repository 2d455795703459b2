package services

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"gorm.io/gorm"

	"github.com/yungbote/pinegate-backend/internal/data/repos"
	types "github.com/yungbote/pinegate-backend/internal/domain"
	"github.com/yungbote/pinegate-backend/internal/modules/village/steps"
	"github.com/yungbote/pinegate-backend/internal/pkg/dbctx"
	"github.com/yungbote/pinegate-backend/internal/platform/apierr"
	"github.com/yungbote/pinegate-backend/internal/platform/logger"
)

const (
	// LazyCharacterLevel is the level a character gets when first looked up.
	LazyCharacterLevel = 1

	MaxNameRunes        = 40
	MaxDescriptionRunes = 500
)

var plainText = bluemonday.StrictPolicy()

// ProfilePatch carries the editable character fields. Nil means unchanged.
type ProfilePatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// WeeklyStats is one user's points since the start of the current UTC week.
type WeeklyStats struct {
	UserID string         `json:"userId"`
	From   time.Time      `json:"from"`
	To     time.Time      `json:"to"`
	Habits map[string]int `json:"habits"`
	Tasks  map[string]int `json:"tasks"`
	Goals  map[string]int `json:"goals"`
	Total  int            `json:"total"`
}

type CharacterService interface {
	Get(ctx context.Context, userID string) (*types.Character, error)
	UpdateProfile(ctx context.Context, userID string, patch ProfilePatch) (*types.Character, error)
	WeeklyStats(ctx context.Context, userID string, now time.Time) (*WeeklyStats, error)
}

type characterService struct {
	db   *gorm.DB
	log  *logger.Logger
	repo repos.Set
}

func NewCharacterService(db *gorm.DB, baseLog *logger.Logger, repo repos.Set) CharacterService {
	return &characterService{
		db:   db,
		log:  baseLog.With("service", "CharacterService"),
		repo: repo,
	}
}

// Get returns the user's character, creating a level-1 one on first lookup.
func (s *characterService) Get(ctx context.Context, userID string) (*types.Character, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apierr.BadRequest("missing_user_id", "user_id is required")
	}
	dbc := dbctx.From(ctx)
	ch, err := s.repo.Characters.GetByUserID(dbc, userID)
	if err != nil {
		return nil, fmt.Errorf("get character: %w", err)
	}
	if ch != nil {
		return ch, nil
	}

	ch, err = s.repo.Characters.Create(dbc, &types.Character{UserID: userID, Level: LazyCharacterLevel})
	if err == nil {
		s.log.Info("Character created on lookup", "user_id", userID)
		return ch, nil
	}
	if !steps.IsUniqueViolation(err) {
		return nil, fmt.Errorf("create character: %w", err)
	}
	// Lost the race to another lookup or the leveling engine.
	ch, err = s.repo.Characters.GetByUserID(dbc, userID)
	if err != nil {
		return nil, fmt.Errorf("get character: %w", err)
	}
	if ch == nil {
		return nil, fmt.Errorf("character for %s vanished after conflict", userID)
	}
	return ch, nil
}

func (s *characterService) UpdateProfile(ctx context.Context, userID string, patch ProfilePatch) (*types.Character, error) {
	updates := map[string]interface{}{}
	if patch.Name != nil {
		name := cleanText(*patch.Name, MaxNameRunes)
		if name == "" {
			return nil, apierr.BadRequest("invalid_name", "name must not be blank")
		}
		updates["name"] = name
	}
	if patch.Description != nil {
		updates["description"] = cleanText(*patch.Description, MaxDescriptionRunes)
	}
	if len(updates) == 0 {
		return nil, apierr.BadRequest("empty_patch", "nothing to update")
	}

	// Make sure the row exists before patching it.
	if _, err := s.Get(ctx, userID); err != nil {
		return nil, err
	}
	dbc := dbctx.From(ctx)
	if _, err := s.repo.Characters.UpdateProfile(dbc, strings.TrimSpace(userID), updates); err != nil {
		return nil, fmt.Errorf("update character: %w", err)
	}
	return s.Get(ctx, userID)
}

// WeeklyStats scores the user's completions since Sunday 00:00 UTC.
func (s *characterService) WeeklyStats(ctx context.Context, userID string, now time.Time) (*WeeklyStats, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apierr.BadRequest("missing_user_id", "user_id is required")
	}
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()
	from := WeekStart(now)

	rows := steps.LoadCompletions(ctx, steps.AggregateDeps{
		Log:              s.log,
		TaskTemplates:    s.repo.TaskTemplates,
		TaskCompletions:  s.repo.TaskCompletions,
		HabitTemplates:   s.repo.HabitTemplates,
		HabitCompletions: s.repo.HabitCompletions,
		Goals:            s.repo.Goals,
		Characters:       s.repo.Characters,
	}, steps.AggregateInput{Now: now, From: from, UserID: userID})

	agg := steps.ScoreStats(rows, userID)
	out := &WeeklyStats{
		UserID: userID,
		From:   from,
		To:     now,
		Habits: agg.Habits,
		Tasks:  agg.Tasks,
		Goals:  agg.Goals,
	}
	for _, m := range []map[string]int{out.Habits, out.Tasks, out.Goals} {
		for _, v := range m {
			out.Total += v
		}
	}
	return out, nil
}

// WeekStart is the most recent Sunday 00:00 UTC at or before t.
func WeekStart(t time.Time) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -int(day.Weekday()))
}

func cleanText(s string, maxRunes int) string {
	s = html.UnescapeString(plainText.Sanitize(s))
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) > maxRunes {
		s = strings.TrimSpace(string([]rune(s)[:maxRunes]))
	}
	return s
}
