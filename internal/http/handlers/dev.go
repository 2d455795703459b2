package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/pinegate-backend/internal/http/response"
	"github.com/yungbote/pinegate-backend/internal/jobs/pipeline/daily_village"
	"github.com/yungbote/pinegate-backend/internal/jobs/pipeline/weekly_village"
	"github.com/yungbote/pinegate-backend/internal/services"
)

var errDevDisabled = errors.New("not found")

// DevHandler exposes manual pipeline triggers. Every route answers 404 unless enabled.
type DevHandler struct {
	pipelines services.PipelineService
	enabled   bool
}

func NewDevHandler(pipelines services.PipelineService, enabled bool) *DevHandler {
	return &DevHandler{pipelines: pipelines, enabled: enabled}
}

// POST /api/dev/weekly-workflow
func (h *DevHandler) TriggerWeekly(c *gin.Context) {
	h.trigger(c, weekly_village.Type, "Weekly workflow started")
}

// POST /api/dev/daily-workflow
func (h *DevHandler) TriggerDaily(c *gin.Context) {
	h.trigger(c, daily_village.Type, "Daily workflow started")
}

func (h *DevHandler) trigger(c *gin.Context, pipeline, message string) {
	if !h.enabled {
		response.RespondError(c, http.StatusNotFound, "not_found", errDevDisabled)
		return
	}
	if err := h.pipelines.Trigger(c.Request.Context(), pipeline); err != nil {
		response.RespondErr(c, "trigger_failed", err)
		return
	}
	response.RespondAccepted(c, gin.H{
		"success":  true,
		"message":  message,
		"pipeline": pipeline,
	})
}
