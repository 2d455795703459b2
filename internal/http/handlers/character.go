package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/pinegate-backend/internal/http/response"
	"github.com/yungbote/pinegate-backend/internal/services"
)

type CharacterHandler struct {
	characters services.CharacterService
}

func NewCharacterHandler(characters services.CharacterService) *CharacterHandler {
	return &CharacterHandler{characters: characters}
}

// GET /api/characters/:user_id
func (h *CharacterHandler) GetCharacter(c *gin.Context) {
	ch, err := h.characters.Get(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		response.RespondErr(c, "get_character_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"character": ch})
}

// PATCH /api/characters/:user_id
func (h *CharacterHandler) UpdateCharacter(c *gin.Context) {
	var patch services.ProfilePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	ch, err := h.characters.UpdateProfile(c.Request.Context(), c.Param("user_id"), patch)
	if err != nil {
		response.RespondErr(c, "update_character_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"character": ch})
}

// GET /api/characters/:user_id/weekly-stats
func (h *CharacterHandler) WeeklyStats(c *gin.Context) {
	stats, err := h.characters.WeeklyStats(c.Request.Context(), c.Param("user_id"), time.Now().UTC())
	if err != nil {
		response.RespondErr(c, "weekly_stats_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"stats": stats})
}
