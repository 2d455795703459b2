package steps

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yungbote/pinegate-backend/internal/data/repos"
	"github.com/yungbote/pinegate-backend/internal/data/repos/testutil"
	types "github.com/yungbote/pinegate-backend/internal/domain"
	"github.com/yungbote/pinegate-backend/internal/pkg/dbctx"
)

func TestQualifies(t *testing.T) {
	cases := []struct {
		name string
		agg  *UserAggregate
		want bool
	}{
		{"nil", nil, false},
		{"empty", agg(nil, nil, nil), false},
		{"net negative habit", agg(map[string]int{"health": -3}, nil, nil), false},
		{"zero task", agg(nil, map[string]int{"gold": 0}, nil), false},
		{"one positive among negatives", agg(map[string]int{"health": -3, "luck": 1}, nil, nil), true},
		{"goal", agg(nil, nil, map[string]int{"wisdom": 3}), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Qualifies(tc.agg))
		})
	}
}

func TestLevelCharactersTwiceLevelsTwice(t *testing.T) {
	defer verifyNoLeaks(t)
	e := newEnv(t)
	testutil.SeedCharacter(t, e.db, "a", 3)
	deps := LevelingDeps{Log: e.log, Characters: e.repo.Characters, MaxConcurrency: 2}
	in := LevelingInput{WeeklyDetails: WeeklyDetails{"a": agg(nil, map[string]int{"strength": 6}, nil)}}

	first := LevelCharacters(context.Background(), deps, in)
	require.Equal(t, []LevelUp{{UserID: "a", OldLevel: 3, NewLevel: 4}}, first.Details.LevelUps)

	second := LevelCharacters(context.Background(), deps, in)
	require.Equal(t, []LevelUp{{UserID: "a", OldLevel: 4, NewLevel: 5}}, second.Details.LevelUps)

	c, err := e.repo.Characters.GetByUserID(dbctx.From(context.Background()), "a")
	require.NoError(t, err)
	assert.Equal(t, 5, c.Level)
}

func TestLevelCharactersCreatesAtLevelTwoAndSkipsNonQualifying(t *testing.T) {
	defer verifyNoLeaks(t)
	e := newEnv(t)
	testutil.SeedCharacter(t, e.db, "grumpy", 7)
	details := WeeklyDetails{
		"fresh":  agg(nil, nil, map[string]int{"gold": 3}),
		"grumpy": agg(map[string]int{"health": -3}, nil, nil),
	}

	res := LevelCharacters(context.Background(), LevelingDeps{Log: e.log, Characters: e.repo.Characters}, LevelingInput{WeeklyDetails: details})

	assert.Equal(t, 0, res.LevelUps)
	assert.Equal(t, 1, res.NewCharacters)
	assert.Equal(t, 2, res.TotalUsersProcessed)
	assert.Equal(t, []NewCharacter{{UserID: "fresh", Level: 2}}, res.Details.NewCharacters)
	assert.Empty(t, res.Failures)
	assert.Equal(t, details, res.WeeklyDetails)

	dbc := dbctx.From(context.Background())
	fresh, err := e.repo.Characters.GetByUserID(dbc, "fresh")
	require.NoError(t, err)
	require.NotNil(t, fresh)
	assert.Equal(t, 2, fresh.Level)
	grumpy, err := e.repo.Characters.GetByUserID(dbc, "grumpy")
	require.NoError(t, err)
	assert.Equal(t, 7, grumpy.Level)
}

// flakyCharacters fails writes for the listed users and delegates everything else.
type flakyCharacters struct {
	repos.CharacterRepo
	failLevel  map[string]bool
	failCreate error
	byID       map[uuid.UUID]string
}

func (f *flakyCharacters) UpdateLevel(dbc dbctx.Context, id uuid.UUID, level int) error {
	if f.failLevel[f.byID[id]] {
		return fmt.Errorf("deadlock detected")
	}
	return f.CharacterRepo.UpdateLevel(dbc, id, level)
}

func (f *flakyCharacters) Create(dbc dbctx.Context, c *types.Character) (*types.Character, error) {
	if f.failCreate != nil {
		return nil, f.failCreate
	}
	return f.CharacterRepo.Create(dbc, c)
}

func TestLevelCharactersCollectsPerUserFailures(t *testing.T) {
	defer verifyNoLeaks(t)
	e := newEnv(t)
	ok := testutil.SeedCharacter(t, e.db, "ok", 1)
	bad := testutil.SeedCharacter(t, e.db, "bad", 1)
	repo := &flakyCharacters{
		CharacterRepo: e.repo.Characters,
		failLevel:     map[string]bool{"bad": true},
		failCreate:    gorm.ErrDuplicatedKey,
		byID:          map[uuid.UUID]string{ok.ID: "ok", bad.ID: "bad"},
	}
	details := WeeklyDetails{
		"ok":    agg(nil, map[string]int{"gold": 2}, nil),
		"bad":   agg(nil, map[string]int{"gold": 2}, nil),
		"racer": agg(nil, map[string]int{"gold": 2}, nil),
	}

	res := LevelCharacters(context.Background(), LevelingDeps{Log: e.log, Characters: repo, MaxConcurrency: 3}, LevelingInput{WeeklyDetails: details})

	assert.Equal(t, 1, res.LevelUps)
	assert.Equal(t, 0, res.NewCharacters)
	require.Len(t, res.Failures, 2)
	assert.Equal(t, "bad", res.Failures[0].UserID)
	assert.Contains(t, res.Failures[0].Error, "deadlock")
	assert.Equal(t, "racer", res.Failures[1].UserID)
	assert.Contains(t, res.Failures[1].Error, "concurrently")
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(gorm.ErrDuplicatedKey))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey)))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
	assert.False(t, IsUniqueViolation(nil))
}
