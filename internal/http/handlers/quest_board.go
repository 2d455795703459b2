package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/pinegate-backend/internal/http/response"
	"github.com/yungbote/pinegate-backend/internal/services"
)

type QuestBoardHandler struct {
	board services.QuestBoardService
}

func NewQuestBoardHandler(board services.QuestBoardService) *QuestBoardHandler {
	return &QuestBoardHandler{board: board}
}

// GET /api/quest-board?user_id=
func (h *QuestBoardHandler) List(c *gin.Context) {
	rows, err := h.board.List(c.Request.Context(), c.Query("user_id"), time.Now().UTC())
	if err != nil {
		response.RespondErr(c, "list_quests_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"quests": rows})
}

type acceptQuestRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// POST /api/quest-board/:id/accept
func (h *QuestBoardHandler) Accept(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_quest_id", err)
		return
	}
	var req acceptQuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	goal, err := h.board.Accept(c.Request.Context(), id, req.UserID, time.Now().UTC())
	if err != nil {
		response.RespondErr(c, "accept_quest_failed", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"goal": goal})
}
