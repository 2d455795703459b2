package daily_village

import (
	"context"
	"time"

	jobrt "github.com/yungbote/pinegate-backend/internal/jobs/runtime"
	"github.com/yungbote/pinegate-backend/internal/modules/village/steps"
)

type Result struct {
	QuestPool     *steps.QuestPoolResult    `json:"questPool"`
	QuestPoolErr  string                    `json:"questPoolError,omitempty"`
	PersonalGoals steps.PersonalGoalsResult `json:"personalGoals"`
}

// Run refreshes the quest board. A failed pool insert is recorded but does not stop the
// personal goals stage.
func (p *Pipeline) Run(jc *jobrt.Context) error {
	out := Result{}

	_ = jc.Stage("quest_pool", func(ctx context.Context) error {
		res, err := steps.SeedQuestPool(ctx, steps.QuestPoolDeps{
			Log:        p.log,
			Directory:  p.directory,
			QuestBoard: p.repo.QuestBoard,
			Rand:       p.opts.Rand,
			Catalog:    p.opts.Catalog,
		})
		if err != nil {
			p.log.Error("Quest pool seeding failed; continuing", "error", err)
			out.QuestPoolErr = err.Error()
			return err
		}
		out.QuestPool = &res
		return nil
	})

	if err := jc.Stage("personal_goals", func(ctx context.Context) error {
		var err error
		out.PersonalGoals, err = steps.SeedPersonalGoals(ctx, steps.PersonalGoalsDeps{
			DB:              p.repo.DB,
			Log:             p.log,
			Characters:      p.repo.Characters,
			Goals:           p.repo.Goals,
			HabitTemplates:  p.repo.HabitTemplates,
			TaskTemplates:   p.repo.TaskTemplates,
			DailySummaries:  p.repo.DailySummaries,
			WeeklySummaries: p.repo.WeeklySummaries,
			QuestBoard:      p.repo.QuestBoard,
			Generator:       p.gen,
			MaxConcurrency:  p.opts.MaxConcurrency,
		}, steps.PersonalGoalsInput{Now: time.Now().UTC()})
		return err
	}); err != nil {
		return err
	}
	jc.UserFailures("personal_goals", out.PersonalGoals.Failed)

	jc.Succeed("done", out)
	return nil
}
