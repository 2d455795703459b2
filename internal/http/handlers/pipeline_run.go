package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/pinegate-backend/internal/http/response"
	"github.com/yungbote/pinegate-backend/internal/services"
)

type PipelineRunHandler struct {
	pipelines services.PipelineService
}

func NewPipelineRunHandler(pipelines services.PipelineService) *PipelineRunHandler {
	return &PipelineRunHandler{pipelines: pipelines}
}

// GET /api/pipeline-runs/:id
func (h *PipelineRunHandler) GetRun(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_run_id", err)
		return
	}
	run, err := h.pipelines.GetRun(c.Request.Context(), id)
	if err != nil {
		response.RespondErr(c, "pipeline_run_lookup_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"run": run})
}

// GET /api/stats/users
func (h *PipelineRunHandler) CountUsers(c *gin.Context) {
	n, err := h.pipelines.CountUsers(c.Request.Context())
	if err != nil {
		response.RespondErr(c, "count_users_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"count": n})
}
