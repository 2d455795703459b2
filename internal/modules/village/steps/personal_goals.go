package steps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/pinegate-backend/internal/data/repos"
	types "github.com/yungbote/pinegate-backend/internal/domain"
	"github.com/yungbote/pinegate-backend/internal/modules/village/prompts"
	"github.com/yungbote/pinegate-backend/internal/pkg/dbctx"
	"github.com/yungbote/pinegate-backend/internal/platform/logger"
	"github.com/yungbote/pinegate-backend/internal/platform/narration"
)

const (
	RecentGoalWindow    = 31 * 24 * time.Hour
	DailySummaryWindow  = 7 * 24 * time.Hour
	UncategorizedLegacy = "luck"

	MinPersonalGoals = 1
	MaxPersonalGoals = 3
)

var ErrInvalidDailyPlan = errors.New("invalid daily plan response")

// PersonalGoalCategories is the closed set a generated personal goal may use.
var PersonalGoalCategories = []string{"gold", "intelligence", "health", "strength", "wisdom", "charisma", "stamina", "luck"}

type PersonalGoalsDeps struct {
	// DB wraps each user's writes in one transaction when set.
	DB              *gorm.DB
	Log             *logger.Logger
	Characters      repos.CharacterRepo
	Goals           repos.GoalRepo
	HabitTemplates  repos.HabitTemplateRepo
	TaskTemplates   repos.TaskTemplateRepo
	DailySummaries  repos.DailySummaryRepo
	WeeklySummaries repos.WeeklySummaryRepo
	QuestBoard      repos.QuestBoardRepo
	Generator       narration.Generator
	MaxConcurrency  int
}

type PersonalGoalsInput struct {
	// Now anchors the lookback windows; zero means time.Now().UTC().
	Now time.Time
}

type PersonalGoalsResult struct {
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Failures  []UserFailure `json:"failures"`
}

type PlannedGoal struct {
	Name           string `json:"name"`
	Category       string `json:"category"`
	DaysToComplete int    `json:"daysToComplete"`
	Weight         int    `json:"weight"`
}

type DailyPlan struct {
	AgentNotes string        `json:"agentNotes"`
	Goals      []PlannedGoal `json:"goals"`
}

type activityItem struct {
	Name        string     `json:"name"`
	Kind        string     `json:"kind"`
	Category    string     `json:"category"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

type characterView struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Level       int    `json:"level"`
	Title       string `json:"title"`
}

type dailyNoteView struct {
	AgentNotes string    `json:"agentNotes"`
	CreatedAt  time.Time `json:"createdAt"`
}

type dailyContext struct {
	Character      characterView   `json:"character"`
	RecentGoals    []activityItem  `json:"recentGoals"`
	WeeklySummary  *chapterView    `json:"weeklySummary"`
	DailySummaries []dailyNoteView `json:"dailySummaries"`
}

// SeedPersonalGoals generates a daily note and 1-3 board goals for every character.
// Each user succeeds or fails on its own; the result tallies both.
func SeedPersonalGoals(ctx context.Context, deps PersonalGoalsDeps, in PersonalGoalsInput) (PersonalGoalsResult, error) {
	out := PersonalGoalsResult{Failures: []UserFailure{}}
	if deps.Log == nil || deps.Characters == nil || deps.Goals == nil || deps.HabitTemplates == nil ||
		deps.TaskTemplates == nil || deps.DailySummaries == nil || deps.WeeklySummaries == nil ||
		deps.QuestBoard == nil || deps.Generator == nil {
		return out, fmt.Errorf("seed_personal_goals: missing deps")
	}
	log := deps.Log.With("step", "seed_personal_goals")
	now := nowOr(in.Now)

	chars, err := deps.Characters.ListAll(dbctx.From(ctx))
	if err != nil {
		return out, fmt.Errorf("seed_personal_goals: list characters: %w", err)
	}
	out.Total = len(chars)
	if len(chars) == 0 {
		return out, nil
	}

	weekly, err := deps.WeeklySummaries.GetLatest(dbctx.From(ctx))
	if err != nil {
		log.Warn("Weekly chapter fetch failed; continuing without it", "error", err)
		weekly = nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrencyOr(deps.MaxConcurrency))
	for _, ch := range chars {
		g.Go(func() error {
			err := seedOneUser(gctx, deps, ch, weekly, now)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Warn("Personal goals failed", "user_id", ch.UserID, "error", err)
				out.Failed++
				out.Failures = append(out.Failures, UserFailure{UserID: ch.UserID, Error: err.Error()})
				return nil
			}
			out.Succeeded++
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(out.Failures, func(i, j int) bool { return out.Failures[i].UserID < out.Failures[j].UserID })
	log.Info("Personal goals done", "total", out.Total, "succeeded", out.Succeeded, "failed", out.Failed)
	return out, nil
}

func seedOneUser(ctx context.Context, deps PersonalGoalsDeps, ch *types.Character, weekly *types.WeeklySummary, now time.Time) error {
	dbc := dbctx.From(ctx)
	userID := ch.UserID

	goals, err := deps.Goals.ListCompleted(dbc, repos.Window{From: now.Add(-RecentGoalWindow), To: now, UserID: userID})
	if err != nil {
		return fmt.Errorf("load recent goals: %w", err)
	}
	habits, err := deps.HabitTemplates.ListActiveByUser(dbc, userID)
	if err != nil {
		return fmt.Errorf("load habits: %w", err)
	}
	tasks, err := deps.TaskTemplates.ListActiveByUser(dbc, userID)
	if err != nil {
		return fmt.Errorf("load tasks: %w", err)
	}
	notes, err := deps.DailySummaries.ListByUserSince(dbc, userID, now.Add(-DailySummaryWindow))
	if err != nil {
		return fmt.Errorf("load daily summaries: %w", err)
	}

	dc := dailyContext{
		Character: characterView{
			Name:        ch.Name,
			Description: ch.Description,
			Level:       ch.Level,
			Title:       ch.Title,
		},
		RecentGoals:    make([]activityItem, 0, len(goals)+len(habits)+len(tasks)),
		WeeklySummary:  viewChapter(weekly),
		DailySummaries: make([]dailyNoteView, 0, len(notes)),
	}
	for _, g := range goals {
		dc.RecentGoals = append(dc.RecentGoals, activityItem{Name: g.Name, Kind: "goal", Category: legacyCategory(g.Category), CompletedAt: g.CompletedAt})
	}
	for _, h := range habits {
		dc.RecentGoals = append(dc.RecentGoals, activityItem{Name: h.Name, Kind: "habit", Category: legacyCategory(h.Category)})
	}
	for _, t := range tasks {
		dc.RecentGoals = append(dc.RecentGoals, activityItem{Name: t.Title, Kind: "task", Category: legacyCategory(t.Category)})
	}
	for _, n := range notes {
		dc.DailySummaries = append(dc.DailySummaries, dailyNoteView{AgentNotes: n.AgentNotes, CreatedAt: n.CreatedAt})
	}

	payload, err := json.Marshal(dc)
	if err != nil {
		return fmt.Errorf("encode context: %w", err)
	}
	system, user, err := prompts.Build(prompts.PromptDailyPlan, prompts.Input{
		ContextJSON:   string(payload),
		CharacterName: ch.Name,
	})
	if err != nil {
		return err
	}
	raw, err := deps.Generator.Generate(ctx, system, user)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}
	plan, err := ParseDailyPlan(raw)
	if err != nil {
		return err
	}

	rows := make([]*types.QuestBoardTemplate, 0, len(plan.Goals))
	for _, pg := range plan.Goals {
		owner := userID
		rows = append(rows, &types.QuestBoardTemplate{
			Name:           pg.Name,
			Category:       pg.Category,
			Weight:         pg.Weight,
			DaysToComplete: pg.DaysToComplete,
			UserID:         &owner,
		})
	}
	persist := func(dbc dbctx.Context) error {
		if _, err := deps.QuestBoard.Create(dbc, rows); err != nil {
			return fmt.Errorf("persist board goals: %w", err)
		}
		if _, err := deps.DailySummaries.Create(dbc, &types.DailySummary{UserID: userID, AgentNotes: plan.AgentNotes}); err != nil {
			return fmt.Errorf("persist daily summary: %w", err)
		}
		return nil
	}
	if deps.DB == nil {
		return persist(dbc)
	}
	return deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return persist(dbc.WithTx(tx))
	})
}

func legacyCategory(c *string) string {
	if c == nil || strings.TrimSpace(*c) == "" {
		return UncategorizedLegacy
	}
	return strings.ToLower(strings.TrimSpace(*c))
}

// ParseDailyPlan validates a generated daily plan: a non-blank agentNotes and 1-3 goals, each
// with a name, a category from PersonalGoalCategories, integer daysToComplete in [1,15] and
// integer weight in [1,5]. Extra fields are ignored.
func ParseDailyPlan(raw string) (DailyPlan, error) {
	out := DailyPlan{}
	body := StripCodeFence(raw)
	if body == "" {
		return out, fmt.Errorf("%w: empty response", ErrInvalidDailyPlan)
	}
	var doc struct {
		AgentNotes *string `json:"agentNotes"`
		Goals      []struct {
			Name           *string  `json:"name"`
			Category       *string  `json:"category"`
			DaysToComplete *float64 `json:"daysToComplete"`
			Weight         *float64 `json:"weight"`
		} `json:"goals"`
	}
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return out, fmt.Errorf("%w: %v", ErrInvalidDailyPlan, err)
	}
	if doc.AgentNotes == nil || strings.TrimSpace(*doc.AgentNotes) == "" {
		return out, fmt.Errorf("%w: agentNotes is required", ErrInvalidDailyPlan)
	}
	out.AgentNotes = strings.TrimSpace(*doc.AgentNotes)

	if len(doc.Goals) < MinPersonalGoals || len(doc.Goals) > MaxPersonalGoals {
		return out, fmt.Errorf("%w: expected %d-%d goals, got %d", ErrInvalidDailyPlan, MinPersonalGoals, MaxPersonalGoals, len(doc.Goals))
	}
	out.Goals = make([]PlannedGoal, 0, len(doc.Goals))
	for i, g := range doc.Goals {
		if g.Name == nil || strings.TrimSpace(*g.Name) == "" {
			return out, fmt.Errorf("%w: goal %d: name is required", ErrInvalidDailyPlan, i)
		}
		if g.Category == nil {
			return out, fmt.Errorf("%w: goal %d: category is required", ErrInvalidDailyPlan, i)
		}
		category := strings.ToLower(strings.TrimSpace(*g.Category))
		if !isPersonalCategory(category) {
			return out, fmt.Errorf("%w: goal %d: unknown category %q", ErrInvalidDailyPlan, i, *g.Category)
		}
		days, ok := intInRange(g.DaysToComplete, 1, 15)
		if !ok {
			return out, fmt.Errorf("%w: goal %d: daysToComplete must be an integer in [1,15]", ErrInvalidDailyPlan, i)
		}
		weight, ok := intInRange(g.Weight, 1, 5)
		if !ok {
			return out, fmt.Errorf("%w: goal %d: weight must be an integer in [1,5]", ErrInvalidDailyPlan, i)
		}
		out.Goals = append(out.Goals, PlannedGoal{
			Name:           strings.TrimSpace(*g.Name),
			Category:       category,
			DaysToComplete: days,
			Weight:         weight,
		})
	}
	return out, nil
}

func isPersonalCategory(c string) bool {
	for _, k := range PersonalGoalCategories {
		if k == c {
			return true
		}
	}
	return false
}

func intInRange(v *float64, lo, hi int) (int, bool) {
	if v == nil || *v != math.Trunc(*v) || *v < float64(lo) || *v > float64(hi) {
		return 0, false
	}
	return int(*v), true
}
