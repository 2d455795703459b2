package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/pinegate-backend/internal/data/repos/jobs"
	"github.com/yungbote/pinegate-backend/internal/data/repos/tracker"
	"github.com/yungbote/pinegate-backend/internal/data/repos/village"
	"github.com/yungbote/pinegate-backend/internal/platform/logger"
)

type Window = tracker.Window

type TaskTemplateRepo = tracker.TaskTemplateRepo
type TaskCompletionRepo = tracker.TaskCompletionRepo
type HabitTemplateRepo = tracker.HabitTemplateRepo
type HabitCompletionRepo = tracker.HabitCompletionRepo
type GoalRepo = tracker.GoalRepo

type CharacterRepo = village.CharacterRepo
type WeeklySummaryRepo = village.WeeklySummaryRepo
type DailySummaryRepo = village.DailySummaryRepo
type QuestBoardRepo = village.QuestBoardRepo

type PipelineRunRepo = jobs.PipelineRunRepo

// Set is every repo the service uses, built over one *gorm.DB.
// DB is the handle for callers that need a transaction spanning repos.
type Set struct {
	DB *gorm.DB

	TaskTemplates    TaskTemplateRepo
	TaskCompletions  TaskCompletionRepo
	HabitTemplates   HabitTemplateRepo
	HabitCompletions HabitCompletionRepo
	Goals            GoalRepo

	Characters      CharacterRepo
	WeeklySummaries WeeklySummaryRepo
	DailySummaries  DailySummaryRepo
	QuestBoard      QuestBoardRepo

	PipelineRuns PipelineRunRepo
}

func NewSet(db *gorm.DB, baseLog *logger.Logger) Set {
	return Set{
		DB: db,

		TaskTemplates:    tracker.NewTaskTemplateRepo(db, baseLog),
		TaskCompletions:  tracker.NewTaskCompletionRepo(db, baseLog),
		HabitTemplates:   tracker.NewHabitTemplateRepo(db, baseLog),
		HabitCompletions: tracker.NewHabitCompletionRepo(db, baseLog),
		Goals:            tracker.NewGoalRepo(db, baseLog),

		Characters:      village.NewCharacterRepo(db, baseLog),
		WeeklySummaries: village.NewWeeklySummaryRepo(db, baseLog),
		DailySummaries:  village.NewDailySummaryRepo(db, baseLog),
		QuestBoard:      village.NewQuestBoardRepo(db, baseLog),

		PipelineRuns: jobs.NewPipelineRunRepo(db, baseLog),
	}
}
