package steps

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/pinegate-backend/internal/data/repos"
	types "github.com/yungbote/pinegate-backend/internal/domain"
	"github.com/yungbote/pinegate-backend/internal/pkg/dbctx"
	"github.com/yungbote/pinegate-backend/internal/platform/logger"
)

// AggregationWindow is how far back AggregateWeek looks from Now.
const AggregationWindow = 7 * 24 * time.Hour

type AggregateDeps struct {
	Log              *logger.Logger
	TaskTemplates    repos.TaskTemplateRepo
	TaskCompletions  repos.TaskCompletionRepo
	HabitTemplates   repos.HabitTemplateRepo
	HabitCompletions repos.HabitCompletionRepo
	Goals            repos.GoalRepo
	Characters       repos.CharacterRepo
}

type AggregateInput struct {
	// Now closes the window; zero means time.Now().UTC().
	Now time.Time
	// From overrides Now-AggregationWindow when set.
	From time.Time
	// UserID narrows every query to one user.
	UserID string
}

// CompletionRows is everything Aggregate needs; AggregateWeek fills it from the store.
type CompletionRows struct {
	Tasks          []*types.TaskCompletion
	Habits         []*types.HabitCompletion
	Goals          []*types.Goal
	TaskTemplates  []*types.TaskTemplate
	HabitTemplates []*types.HabitTemplate
	Characters     []*types.Character
}

// AggregateWeek loads the window's completions and scores them. Sub-query failures are logged
// and treated as empty, so it never fails on the store.
func AggregateWeek(ctx context.Context, deps AggregateDeps, in AggregateInput) WeeklyDetails {
	rows := LoadCompletions(ctx, deps, in)
	details := Aggregate(rows)
	deps.Log.Debug("Aggregated week",
		"step", "aggregate_week",
		"tasks", len(rows.Tasks),
		"habits", len(rows.Habits),
		"goals", len(rows.Goals),
		"users", len(details),
	)
	return details
}

// LoadCompletions reads the window's completion rows plus the templates and characters they
// reference. A failed sub-query is logged and left empty.
func LoadCompletions(ctx context.Context, deps AggregateDeps, in AggregateInput) CompletionRows {
	log := deps.Log.With("step", "load_completions")
	dbc := dbctx.From(ctx)

	to := nowOr(in.Now)
	from := in.From.UTC()
	if in.From.IsZero() {
		from = to.Add(-AggregationWindow)
	}
	w := repos.Window{From: from, To: to, UserID: in.UserID}

	var rows CompletionRows
	var err error

	if rows.Tasks, err = deps.TaskCompletions.ListCompleted(dbc, w); err != nil {
		log.Warn("Task completions query failed; treating as empty", "query", "task_completions", "error", err)
		rows.Tasks = nil
	}
	if rows.Habits, err = deps.HabitCompletions.ListCreated(dbc, w); err != nil {
		log.Warn("Habit completions query failed; treating as empty", "query", "habit_completions", "error", err)
		rows.Habits = nil
	}
	if rows.Goals, err = deps.Goals.ListCompletedUnscoped(dbc, w); err != nil {
		log.Warn("Goal completions query failed; treating as empty", "query", "goal_completions", "error", err)
		rows.Goals = nil
	}

	taskTmplIDs := make([]uuid.UUID, 0, len(rows.Tasks))
	for _, t := range rows.Tasks {
		taskTmplIDs = append(taskTmplIDs, t.TaskTemplateID)
	}
	if rows.TaskTemplates, err = deps.TaskTemplates.GetByIDs(dbc, dedupeUUIDs(taskTmplIDs)); err != nil {
		log.Warn("Task templates query failed; treating as empty", "query", "task_templates", "error", err)
		rows.TaskTemplates = nil
	}

	habitTmplIDs := make([]uuid.UUID, 0, len(rows.Habits))
	for _, h := range rows.Habits {
		habitTmplIDs = append(habitTmplIDs, h.HabitTemplateID)
	}
	if rows.HabitTemplates, err = deps.HabitTemplates.GetByIDs(dbc, dedupeUUIDs(habitTmplIDs)); err != nil {
		log.Warn("Habit templates query failed; treating as empty", "query", "habit_templates", "error", err)
		rows.HabitTemplates = nil
	}

	if userIDs := rows.UserIDs(); len(userIDs) > 0 {
		if rows.Characters, err = deps.Characters.GetByUserIDs(dbc, userIDs); err != nil {
			log.Warn("Characters query failed; treating as empty", "query", "characters", "error", err)
			rows.Characters = nil
		}
	}

	log.Debug("Loaded completions", "from", from, "to", to, "user_id", in.UserID)
	return rows
}

// UserIDs lists the distinct users with at least one completion, in first-seen order.
func (r CompletionRows) UserIDs() []string {
	seen := map[string]bool{}
	out := []string{}
	add := func(id string) {
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		out = append(out, id)
	}
	for _, t := range r.Tasks {
		add(t.UserID)
	}
	for _, h := range r.Habits {
		add(h.UserID)
	}
	for _, g := range r.Goals {
		add(g.UserID)
	}
	return out
}

// Aggregate scores rows into per-user category totals. It is pure: equal inputs give equal outputs.
func Aggregate(rows CompletionRows) WeeklyDetails {
	taskTmpl := make(map[uuid.UUID]*types.TaskTemplate, len(rows.TaskTemplates))
	for _, t := range rows.TaskTemplates {
		if t != nil {
			taskTmpl[t.ID] = t
		}
	}
	habitTmpl := make(map[uuid.UUID]*types.HabitTemplate, len(rows.HabitTemplates))
	for _, h := range rows.HabitTemplates {
		if h != nil {
			habitTmpl[h.ID] = h
		}
	}
	chars := make(map[string]*types.Character, len(rows.Characters))
	for _, c := range rows.Characters {
		if c != nil {
			chars[c.UserID] = c
		}
	}

	out := WeeklyDetails{}
	user := func(id string) *UserAggregate {
		if agg, ok := out[id]; ok {
			return agg
		}
		agg := newUserAggregate()
		if c := chars[id]; c != nil {
			agg.Name = c.Name
			agg.Title = c.Title
			agg.Description = c.Description
		}
		out[id] = agg
		return agg
	}

	for _, t := range rows.Tasks {
		if t == nil || t.UserID == "" {
			continue
		}
		var category *string
		var weight *int
		if tmpl := taskTmpl[t.TaskTemplateID]; tmpl != nil {
			category, weight = tmpl.Category, tmpl.Weight
		}
		user(t.UserID).Tasks[NormalizeCategory(category)] += Points(1, ResolveWeight(weight), TypeBonusTask)
	}

	for _, h := range rows.Habits {
		if h == nil || h.UserID == "" {
			continue
		}
		var category *string
		var weight *int
		if tmpl := habitTmpl[h.HabitTemplateID]; tmpl != nil {
			category, weight = tmpl.Category, tmpl.Weight
		}
		count := h.PositiveCount - h.NegativeCount
		user(h.UserID).Habits[NormalizeCategory(category)] += Points(count, ResolveWeight(weight), TypeBonusHabit)
	}

	for _, g := range rows.Goals {
		if g == nil || g.UserID == "" {
			continue
		}
		user(g.UserID).Goals[NormalizeCategory(g.Category)] += Points(1, ResolveWeight(g.Weight), TypeBonusGoal)
	}

	return out
}

// Points is count x weight x typeBonus.
func Points(count, weight, typeBonus int) int {
	return count * weight * typeBonus
}

// NormalizeCategory lowercases and trims; nil or blank becomes DefaultCategory.
func NormalizeCategory(c *string) string {
	if c == nil {
		return DefaultCategory
	}
	n := strings.ToLower(strings.TrimSpace(*c))
	if n == "" {
		return DefaultCategory
	}
	return n
}

// ResolveWeight maps nil or non-positive weights to DefaultWeight and caps at 5.
func ResolveWeight(w *int) int {
	if w == nil || *w < 1 {
		return DefaultWeight
	}
	if *w > 5 {
		return 5
	}
	return *w
}

func dedupeUUIDs(in []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(in))
	out := make([]uuid.UUID, 0, len(in))
	for _, id := range in {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
