package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/pinegate-backend/internal/http/handlers"
	httpMW "github.com/yungbote/pinegate-backend/internal/http/middleware"
	"github.com/yungbote/pinegate-backend/internal/observability"
	"github.com/yungbote/pinegate-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	AllowedOrigins []string
	Metrics        *observability.Metrics

	HealthHandler      *httpH.HealthHandler
	DevHandler         *httpH.DevHandler
	PipelineRunHandler *httpH.PipelineRunHandler
	CharacterHandler   *httpH.CharacterHandler
	QuestBoardHandler  *httpH.QuestBoardHandler
	StoryHandler       *httpH.StoryHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.TraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.AllowedOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	api := r.Group("/api")
	{
		// Manual triggers
		if cfg.DevHandler != nil {
			api.POST("/dev/weekly-workflow", cfg.DevHandler.TriggerWeekly)
			api.POST("/dev/daily-workflow", cfg.DevHandler.TriggerDaily)
		}

		// Pipeline audit + directory
		if cfg.PipelineRunHandler != nil {
			api.GET("/pipeline-runs/:id", cfg.PipelineRunHandler.GetRun)
			api.GET("/stats/users", cfg.PipelineRunHandler.CountUsers)
		}

		// Characters
		if cfg.CharacterHandler != nil {
			api.GET("/characters/:user_id", cfg.CharacterHandler.GetCharacter)
			api.PATCH("/characters/:user_id", cfg.CharacterHandler.UpdateCharacter)
			api.GET("/characters/:user_id/weekly-stats", cfg.CharacterHandler.WeeklyStats)
		}

		// Quest board
		if cfg.QuestBoardHandler != nil {
			api.GET("/quest-board", cfg.QuestBoardHandler.List)
			api.POST("/quest-board/:id/accept", cfg.QuestBoardHandler.Accept)
		}

		// Story
		if cfg.StoryHandler != nil {
			api.GET("/story", cfg.StoryHandler.Latest)
		}
	}

	return r
}
