package steps

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/pinegate-backend/internal/data/repos"
	"github.com/yungbote/pinegate-backend/internal/data/repos/testutil"
	types "github.com/yungbote/pinegate-backend/internal/domain"
	"github.com/yungbote/pinegate-backend/internal/pkg/dbctx"
)

const validPlan = `{"agentNotes":"Ada sharpens her blade for the wolf hunt.","goals":[{"name":"Run 5k","category":"Stamina","daysToComplete":3,"weight":2},{"name":"Read a chapter","category":"wisdom","daysToComplete":1,"weight":1}]}`

func TestParseDailyPlan(t *testing.T) {
	got, err := ParseDailyPlan("```json\n" + validPlan + "\n```")
	require.NoError(t, err)
	assert.Equal(t, DailyPlan{
		AgentNotes: "Ada sharpens her blade for the wolf hunt.",
		Goals: []PlannedGoal{
			{Name: "Run 5k", Category: "stamina", DaysToComplete: 3, Weight: 2},
			{Name: "Read a chapter", Category: "wisdom", DaysToComplete: 1, Weight: 1},
		},
	}, got)

	_, err = ParseDailyPlan(`{"agentNotes":"x","goals":[{"name":"a","category":"luck","daysToComplete":15,"weight":5}],"mood":"calm"}`)
	require.NoError(t, err, "extra fields are tolerated")

	bad := map[string]string{
		"not json":        "not json",
		"no notes":        `{"goals":[{"name":"a","category":"luck","daysToComplete":1,"weight":1}]}`,
		"blank notes":     `{"agentNotes":" ","goals":[{"name":"a","category":"luck","daysToComplete":1,"weight":1}]}`,
		"no goals":        `{"agentNotes":"x","goals":[]}`,
		"too many goals":  `{"agentNotes":"x","goals":[` + strings.Repeat(`{"name":"a","category":"luck","daysToComplete":1,"weight":1},`, 3) + `{"name":"a","category":"luck","daysToComplete":1,"weight":1}]}`,
		"unknown cat":     `{"agentNotes":"x","goals":[{"name":"a","category":"defense","daysToComplete":1,"weight":1}]}`,
		"days too high":   `{"agentNotes":"x","goals":[{"name":"a","category":"luck","daysToComplete":16,"weight":1}]}`,
		"days fractional": `{"agentNotes":"x","goals":[{"name":"a","category":"luck","daysToComplete":1.5,"weight":1}]}`,
		"weight zero":     `{"agentNotes":"x","goals":[{"name":"a","category":"luck","daysToComplete":1,"weight":0}]}`,
		"weight string":   `{"agentNotes":"x","goals":[{"name":"a","category":"luck","daysToComplete":1,"weight":"3"}]}`,
		"missing name":    `{"agentNotes":"x","goals":[{"category":"luck","daysToComplete":1,"weight":1}]}`,
	}
	for name, raw := range bad {
		t.Run(name, func(t *testing.T) {
			_, err := ParseDailyPlan(raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidDailyPlan), "%v", err)
		})
	}
}

func (e env) personalGoalsDeps(gen *scriptedGenerator) PersonalGoalsDeps {
	return PersonalGoalsDeps{
		DB:              e.db,
		Log:             e.log,
		Characters:      e.repo.Characters,
		Goals:           e.repo.Goals,
		HabitTemplates:  e.repo.HabitTemplates,
		TaskTemplates:   e.repo.TaskTemplates,
		DailySummaries:  e.repo.DailySummaries,
		WeeklySummaries: e.repo.WeeklySummaries,
		QuestBoard:      e.repo.QuestBoard,
		Generator:       gen,
	}
}

func TestSeedPersonalGoalsIsolatesFailures(t *testing.T) {
	defer verifyNoLeaks(t)
	e := newEnv(t)
	now := time.Now().UTC()
	testutil.SeedCharacter(t, e.db, "a", 2)
	testutil.SeedCharacter(t, e.db, "b", 1)
	testutil.SeedWeeklySummary(t, e.db, "Week #2 - wolves at the gate", now.Add(-time.Hour))
	require.NoError(t, e.db.Create(&types.HabitTemplate{UserID: "a", Name: "Meditate"}).Error)

	gen := &scriptedGenerator{reply: func(user string) (string, error) {
		if strings.Contains(user, "VILLAGER: hero-a") {
			return validPlan, nil
		}
		return `{"agentNotes":"b rests","goals":[]}`, nil
	}}

	res, err := SeedPersonalGoals(context.Background(), e.personalGoalsDeps(gen), PersonalGoalsInput{Now: now})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 1, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "b", res.Failures[0].UserID)

	var promptA string
	for _, c := range gen.Calls() {
		if strings.Contains(c, "VILLAGER: hero-a") {
			promptA = c
		}
	}
	require.NotEmpty(t, promptA)
	assert.Contains(t, promptA, `"name":"Meditate","kind":"habit","category":"luck"`)
	assert.Contains(t, promptA, "wolves at the gate")

	notesA, err := e.repo.DailySummaries.ListByUserSince(dbcBG(), "a", now.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, notesA, 1)
	assert.Equal(t, "Ada sharpens her blade for the wolf hunt.", notesA[0].AgentNotes)

	notesB, err := e.repo.DailySummaries.ListByUserSince(dbcBG(), "b", now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Empty(t, notesB)

	board, err := e.repo.QuestBoard.ListVisible(dbcBG(), now.Add(-time.Hour), "a")
	require.NoError(t, err)
	require.Len(t, board, 2)
	for _, q := range board {
		require.NotNil(t, q.UserID)
		assert.Equal(t, "a", *q.UserID)
	}
}

func TestSeedPersonalGoalsNoCharacters(t *testing.T) {
	e := newEnv(t)
	gen := replyWith(validPlan)
	res, err := SeedPersonalGoals(context.Background(), e.personalGoalsDeps(gen), PersonalGoalsInput{})
	require.NoError(t, err)
	assert.Equal(t, PersonalGoalsResult{Failures: []UserFailure{}}, res)
	assert.Empty(t, gen.Calls())
}

// boardInsertFails rejects board writes for one user and delegates the rest.
type boardInsertFails struct {
	repos.QuestBoardRepo
	userID string
}

func (f *boardInsertFails) Create(dbc dbctx.Context, rows []*types.QuestBoardTemplate) ([]*types.QuestBoardTemplate, error) {
	for _, r := range rows {
		if r.UserID != nil && *r.UserID == f.userID {
			return nil, errors.New("disk full")
		}
	}
	return f.QuestBoardRepo.Create(dbc, rows)
}

func TestSeedPersonalGoalsLeavesNoSummaryWhenGoalsFail(t *testing.T) {
	defer verifyNoLeaks(t)
	e := newEnv(t)
	now := time.Now().UTC()
	testutil.SeedCharacter(t, e.db, "a", 2)
	testutil.SeedCharacter(t, e.db, "b", 2)

	for _, withDB := range []bool{true, false} {
		deps := e.personalGoalsDeps(replyWith(validPlan))
		deps.QuestBoard = &boardInsertFails{QuestBoardRepo: e.repo.QuestBoard, userID: "b"}
		if !withDB {
			deps.DB = nil
		}

		res, err := SeedPersonalGoals(context.Background(), deps, PersonalGoalsInput{Now: now})
		require.NoError(t, err)
		require.Len(t, res.Failures, 1, "withDB=%v", withDB)
		assert.Equal(t, "b", res.Failures[0].UserID)
		assert.Contains(t, res.Failures[0].Error, "disk full")

		notesB, err := e.repo.DailySummaries.ListByUserSince(dbcBG(), "b", now.Add(-time.Hour))
		require.NoError(t, err)
		assert.Empty(t, notesB, "withDB=%v", withDB)
	}

	notesA, err := e.repo.DailySummaries.ListByUserSince(dbcBG(), "a", now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Len(t, notesA, 2)
}
