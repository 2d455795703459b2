package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/pinegate-backend/internal/data/repos"
	types "github.com/yungbote/pinegate-backend/internal/domain"
	"github.com/yungbote/pinegate-backend/internal/pkg/dbctx"
	"github.com/yungbote/pinegate-backend/internal/platform/apierr"
	"github.com/yungbote/pinegate-backend/internal/platform/logger"
)

var errQuestNotFound = errors.New("quest board entry not found")

type QuestBoardService interface {
	// List returns the entries created in the last 24h that the user may see.
	List(ctx context.Context, userID string, now time.Time) ([]*types.QuestBoardTemplate, error)
	// Accept turns a board entry into a goal for userID and removes it from the board.
	Accept(ctx context.Context, id uuid.UUID, userID string, now time.Time) (*types.Goal, error)
}

type questBoardService struct {
	db   *gorm.DB
	log  *logger.Logger
	repo repos.Set
}

func NewQuestBoardService(db *gorm.DB, baseLog *logger.Logger, repo repos.Set) QuestBoardService {
	return &questBoardService{
		db:   db,
		log:  baseLog.With("service", "QuestBoardService"),
		repo: repo,
	}
}

func (s *questBoardService) List(ctx context.Context, userID string, now time.Time) ([]*types.QuestBoardTemplate, error) {
	if now.IsZero() {
		now = time.Now()
	}
	since := now.UTC().Add(-types.QuestBoardVisibility)
	rows, err := s.repo.QuestBoard.ListVisible(dbctx.From(ctx), since, strings.TrimSpace(userID))
	if err != nil {
		return nil, fmt.Errorf("list quest board: %w", err)
	}
	if rows == nil {
		rows = []*types.QuestBoardTemplate{}
	}
	return rows, nil
}

func (s *questBoardService) Accept(ctx context.Context, id uuid.UUID, userID string, now time.Time) (*types.Goal, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apierr.BadRequest("missing_user_id", "user_id is required")
	}
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	var goal *types.Goal
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		entry, err := s.repo.QuestBoard.GetByID(dbc, id)
		if err != nil {
			return fmt.Errorf("load quest: %w", err)
		}
		if entry == nil || (entry.UserID != nil && *entry.UserID != userID) {
			return apierr.NotFound("quest_not_found", errQuestNotFound)
		}

		category := entry.Category
		weight := entry.Weight
		due := now.AddDate(0, 0, entry.DaysToComplete)
		goal, err = s.repo.Goals.Create(dbc, &types.Goal{
			UserID:       userID,
			Name:         entry.Name,
			Category:     &category,
			Weight:       &weight,
			DueDate:      &due,
			FromTemplate: true,
		})
		if err != nil {
			return fmt.Errorf("create goal: %w", err)
		}
		n, err := s.repo.QuestBoard.Delete(dbc, id)
		if err != nil {
			return fmt.Errorf("remove quest: %w", err)
		}
		if n == 0 {
			// Someone else accepted it between the read and the delete.
			return apierr.NotFound("quest_not_found", errQuestNotFound)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Quest accepted", "quest_id", id, "user_id", userID, "goal_id", goal.ID)
	return goal, nil
}
