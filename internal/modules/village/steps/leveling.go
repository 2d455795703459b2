package steps

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/pinegate-backend/internal/data/repos"
	types "github.com/yungbote/pinegate-backend/internal/domain"
	"github.com/yungbote/pinegate-backend/internal/pkg/dbctx"
	"github.com/yungbote/pinegate-backend/internal/platform/logger"
)

// NewCharacterLevel is where the leveling engine starts a character it has to create.
// Level 1 is reserved for lazily created characters.
const NewCharacterLevel = 2

type LevelingDeps struct {
	Log            *logger.Logger
	Characters     repos.CharacterRepo
	MaxConcurrency int
}

type LevelingInput struct {
	WeeklyDetails WeeklyDetails
}

type LevelUp struct {
	UserID   string `json:"userId"`
	OldLevel int    `json:"oldLevel"`
	NewLevel int    `json:"newLevel"`
}

type NewCharacter struct {
	UserID string `json:"userId"`
	Level  int    `json:"level"`
}

type LevelingDetails struct {
	LevelUps      []LevelUp      `json:"levelUps"`
	NewCharacters []NewCharacter `json:"newCharacters"`
}

type LevelingResult struct {
	LevelUps            int             `json:"levelUps"`
	NewCharacters       int             `json:"newCharacters"`
	TotalUsersProcessed int             `json:"totalUsersProcessed"`
	Details             LevelingDetails `json:"details"`
	Failures            []UserFailure   `json:"failures"`
	WeeklyDetails       WeeklyDetails   `json:"weeklyDetails"`
}

// Qualifies reports whether any category total in any entity type is positive.
func Qualifies(agg *UserAggregate) bool {
	if agg == nil {
		return false
	}
	for _, m := range []map[string]int{agg.Habits, agg.Tasks, agg.Goals} {
		for _, v := range m {
			if v > 0 {
				return true
			}
		}
	}
	return false
}

// LevelCharacters raises every qualifying user by one level, creating missing characters at
// NewCharacterLevel. It is not idempotent: two runs over the same aggregate level twice.
// Per-user write failures are collected, never returned.
func LevelCharacters(ctx context.Context, deps LevelingDeps, in LevelingInput) LevelingResult {
	log := deps.Log.With("step", "level_characters")
	dbc := dbctx.From(ctx)

	out := LevelingResult{
		TotalUsersProcessed: len(in.WeeklyDetails),
		Details: LevelingDetails{
			LevelUps:      []LevelUp{},
			NewCharacters: []NewCharacter{},
		},
		Failures:      []UserFailure{},
		WeeklyDetails: in.WeeklyDetails,
	}
	if out.WeeklyDetails == nil {
		out.WeeklyDetails = WeeklyDetails{}
	}

	qualifying := make([]string, 0, len(in.WeeklyDetails))
	for userID, agg := range in.WeeklyDetails {
		if Qualifies(agg) {
			qualifying = append(qualifying, userID)
		}
	}
	sort.Strings(qualifying)
	if len(qualifying) == 0 {
		log.Info("No qualifying users this week", "users", len(in.WeeklyDetails))
		return out
	}

	existing := map[string]*types.Character{}
	chars, err := deps.Characters.GetByUserIDs(dbc, qualifying)
	if err != nil {
		log.Warn("Character fetch failed; treating every qualifying user as new", "error", err)
	}
	for _, c := range chars {
		existing[c.UserID] = c
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrencyOr(deps.MaxConcurrency))
	for _, userID := range qualifying {
		char := existing[userID]
		g.Go(func() error {
			wdbc := dbctx.From(gctx)
			if char != nil {
				oldLevel := char.Level
				if oldLevel < 1 {
					oldLevel = 1
				}
				newLevel := oldLevel + 1
				if err := deps.Characters.UpdateLevel(wdbc, char.ID, newLevel); err != nil {
					log.Error("Level up failed", "user_id", userID, "error", err)
					mu.Lock()
					out.Failures = append(out.Failures, UserFailure{UserID: userID, Error: fmt.Sprintf("level up: %v", err)})
					mu.Unlock()
					return nil
				}
				mu.Lock()
				out.Details.LevelUps = append(out.Details.LevelUps, LevelUp{UserID: userID, OldLevel: oldLevel, NewLevel: newLevel})
				mu.Unlock()
				return nil
			}

			_, err := deps.Characters.Create(wdbc, &types.Character{UserID: userID, Level: NewCharacterLevel})
			if err != nil {
				msg := fmt.Sprintf("create character: %v", err)
				if IsUniqueViolation(err) {
					msg = "create character: already created concurrently"
				}
				log.Error("Character creation failed", "user_id", userID, "error", err)
				mu.Lock()
				out.Failures = append(out.Failures, UserFailure{UserID: userID, Error: msg})
				mu.Unlock()
				return nil
			}
			mu.Lock()
			out.Details.NewCharacters = append(out.Details.NewCharacters, NewCharacter{UserID: userID, Level: NewCharacterLevel})
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(out.Details.LevelUps, func(i, j int) bool { return out.Details.LevelUps[i].UserID < out.Details.LevelUps[j].UserID })
	sort.Slice(out.Details.NewCharacters, func(i, j int) bool {
		return out.Details.NewCharacters[i].UserID < out.Details.NewCharacters[j].UserID
	})
	sort.Slice(out.Failures, func(i, j int) bool { return out.Failures[i].UserID < out.Failures[j].UserID })
	out.LevelUps = len(out.Details.LevelUps)
	out.NewCharacters = len(out.Details.NewCharacters)

	log.Info("Leveling done",
		"level_ups", out.LevelUps,
		"new_characters", out.NewCharacters,
		"failures", len(out.Failures),
		"users", out.TotalUsersProcessed,
	)
	return out
}

// IsUniqueViolation matches both gorm's translated error and a raw Postgres 23505.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
