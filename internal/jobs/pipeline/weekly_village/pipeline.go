package weekly_village

import (
	"context"
	"time"

	jobrt "github.com/yungbote/pinegate-backend/internal/jobs/runtime"
	"github.com/yungbote/pinegate-backend/internal/modules/village/steps"
)

// Result is what a succeeded run stores on its pipeline_run row.
type Result struct {
	Leveling  LevelingSummary        `json:"leveling"`
	Narration *steps.NarrationResult `json:"narration"`
	Titles    steps.TitlesResult     `json:"titles"`
}

type LevelingSummary struct {
	LevelUps            int                   `json:"levelUps"`
	NewCharacters       int                   `json:"newCharacters"`
	TotalUsersProcessed int                   `json:"totalUsersProcessed"`
	Details             steps.LevelingDetails `json:"details"`
	Failures            []steps.UserFailure   `json:"failures"`
}

// Run chains aggregate, leveling, narration and titles. Each stage feeds the next; a fatal
// narration or titles error fails the run at that stage.
func (p *Pipeline) Run(jc *jobrt.Context) error {
	now := time.Now().UTC()

	var details steps.WeeklyDetails
	_ = jc.Stage("aggregate", func(ctx context.Context) error {
		details = steps.AggregateWeek(ctx, steps.AggregateDeps{
			Log:              p.log,
			TaskTemplates:    p.repo.TaskTemplates,
			TaskCompletions:  p.repo.TaskCompletions,
			HabitTemplates:   p.repo.HabitTemplates,
			HabitCompletions: p.repo.HabitCompletions,
			Goals:            p.repo.Goals,
			Characters:       p.repo.Characters,
		}, steps.AggregateInput{Now: now})
		return nil
	})

	var leveling steps.LevelingResult
	_ = jc.Stage("leveling", func(ctx context.Context) error {
		leveling = steps.LevelCharacters(ctx, steps.LevelingDeps{
			Log:            p.log,
			Characters:     p.repo.Characters,
			MaxConcurrency: p.opts.MaxConcurrency,
		}, steps.LevelingInput{WeeklyDetails: details})
		return nil
	})
	jc.UserFailures("leveling", len(leveling.Failures))

	var narrated steps.NarrationResult
	if err := jc.Stage("narrate", func(ctx context.Context) error {
		var err error
		narrated, err = steps.NarrateWeek(ctx, steps.NarrateDeps{
			Log:       p.log,
			Chapters:  p.repo.WeeklySummaries,
			Generator: p.gen,
			Rand:      p.opts.Rand,
		}, steps.NarrateInput{Leveling: leveling})
		return err
	}); err != nil {
		return err
	}

	var titles steps.TitlesResult
	if err := jc.Stage("titles", func(ctx context.Context) error {
		var err error
		titles, err = steps.UpdateTitles(ctx, steps.TitlesDeps{
			Log:            p.log,
			Characters:     p.repo.Characters,
			Generator:      p.gen,
			BatchSize:      p.opts.TitleBatchSize,
			MaxConcurrency: p.opts.MaxConcurrency,
		}, steps.TitlesInput{WeeklyDetails: details})
		return err
	}); err != nil {
		return err
	}
	jc.UserFailures("titles", len(titles.Failures))

	jc.Succeed("done", Result{
		Leveling: LevelingSummary{
			LevelUps:            leveling.LevelUps,
			NewCharacters:       leveling.NewCharacters,
			TotalUsersProcessed: leveling.TotalUsersProcessed,
			Details:             leveling.Details,
			Failures:            leveling.Failures,
		},
		Narration: &narrated,
		Titles:    titles,
	})
	return nil
}
