package app

import (
	httpH "github.com/yungbote/pinegate-backend/internal/http/handlers"
	"github.com/yungbote/pinegate-backend/internal/jobs/runtime"
	"github.com/yungbote/pinegate-backend/internal/platform/logger"
	"github.com/yungbote/pinegate-backend/internal/services"
)

type Services struct {
	Characters services.CharacterService
	QuestBoard services.QuestBoardService
	Story      services.StoryService
	Pipelines  services.PipelineService
}

func wireServices(log *logger.Logger, deps Deps, runner *runtime.Runner) Services {
	log.Info("Wiring services")
	return Services{
		Characters: services.NewCharacterService(deps.DB, log, deps.Repos),
		QuestBoard: services.NewQuestBoardService(deps.DB, log, deps.Repos),
		Story:      services.NewStoryService(deps.DB, log, deps.Repos.WeeklySummaries),
		Pipelines:  services.NewPipelineService(deps.DB, log, deps.Repos.PipelineRuns, runner, deps.Directory),
	}
}

type Handlers struct {
	Health       *httpH.HealthHandler
	Dev          *httpH.DevHandler
	PipelineRuns *httpH.PipelineRunHandler
	Characters   *httpH.CharacterHandler
	QuestBoard   *httpH.QuestBoardHandler
	Story        *httpH.StoryHandler
}

func wireHandlers(svc Services, devMode bool) Handlers {
	return Handlers{
		Health:       httpH.NewHealthHandler(),
		Dev:          httpH.NewDevHandler(svc.Pipelines, devMode),
		PipelineRuns: httpH.NewPipelineRunHandler(svc.Pipelines),
		Characters:   httpH.NewCharacterHandler(svc.Characters),
		QuestBoard:   httpH.NewQuestBoardHandler(svc.QuestBoard),
		Story:        httpH.NewStoryHandler(svc.Story),
	}
}
