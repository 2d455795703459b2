package steps

import (
	"github.com/google/uuid"

	types "github.com/yungbote/pinegate-backend/internal/domain"
)

// ScoreStats scores one user's rows for the weekly stats view. It differs from Aggregate:
// habits count positive taps only, board goals earn TypeBonusBoardGoal, and task or habit
// completions whose template is missing are skipped.
func ScoreStats(rows CompletionRows, userID string) *UserAggregate {
	out := newUserAggregate()

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

	for _, t := range rows.Tasks {
		if t == nil || t.UserID != userID {
			continue
		}
		tmpl := taskTmpl[t.TaskTemplateID]
		if tmpl == nil {
			continue
		}
		out.Tasks[NormalizeCategory(tmpl.Category)] += Points(1, ResolveWeight(tmpl.Weight), TypeBonusTask)
	}

	for _, h := range rows.Habits {
		if h == nil || h.UserID != userID || h.PositiveCount <= 0 {
			continue
		}
		tmpl := habitTmpl[h.HabitTemplateID]
		if tmpl == nil {
			continue
		}
		out.Habits[NormalizeCategory(tmpl.Category)] += Points(h.PositiveCount, ResolveWeight(tmpl.Weight), TypeBonusHabit)
	}

	for _, g := range rows.Goals {
		if g == nil || g.UserID != userID {
			continue
		}
		bonus := TypeBonusGoal
		if g.FromTemplate {
			bonus = TypeBonusBoardGoal
		}
		out.Goals[NormalizeCategory(g.Category)] += Points(1, ResolveWeight(g.Weight), bonus)
	}

	return out
}
