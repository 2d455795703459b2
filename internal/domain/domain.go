package domain

import (
	"github.com/yungbote/pinegate-backend/internal/domain/jobs"
	"github.com/yungbote/pinegate-backend/internal/domain/tracker"
	"github.com/yungbote/pinegate-backend/internal/domain/village"
)

const (
	RunStatusRunning   = jobs.RunStatusRunning
	RunStatusSucceeded = jobs.RunStatusSucceeded
	RunStatusFailed    = jobs.RunStatusFailed
	RunStatusSkipped   = jobs.RunStatusSkipped

	QuestBoardVisibility = village.QuestBoardVisibility
)

type TaskTemplate = tracker.TaskTemplate
type TaskCompletion = tracker.TaskCompletion
type HabitTemplate = tracker.HabitTemplate
type HabitCompletion = tracker.HabitCompletion
type Goal = tracker.Goal

type Character = village.Character
type WeeklySummary = village.WeeklySummary
type DailySummary = village.DailySummary
type QuestBoardTemplate = village.QuestBoardTemplate

type PipelineRun = jobs.PipelineRun

// Models lists every table, in migration order.
func Models() []any {
	return []any{
		&TaskTemplate{},
		&TaskCompletion{},
		&HabitTemplate{},
		&HabitCompletion{},
		&Goal{},
		&Character{},
		&WeeklySummary{},
		&DailySummary{},
		&QuestBoardTemplate{},
		&PipelineRun{},
	}
}
