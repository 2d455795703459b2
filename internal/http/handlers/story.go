package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/pinegate-backend/internal/http/response"
	"github.com/yungbote/pinegate-backend/internal/services"
)

type StoryHandler struct {
	story services.StoryService
}

func NewStoryHandler(story services.StoryService) *StoryHandler {
	return &StoryHandler{story: story}
}

// GET /api/story?limit=
func (h *StoryHandler) Latest(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			response.RespondError(c, http.StatusBadRequest, "invalid_limit", strconv.ErrSyntax)
			return
		}
		limit = n
	}
	chapters, err := h.story.Latest(c.Request.Context(), limit)
	if err != nil {
		response.RespondErr(c, "story_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"chapters": chapters})
}
