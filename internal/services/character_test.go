package services

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yungbote/pinegate-backend/internal/data/repos"
	"github.com/yungbote/pinegate-backend/internal/data/repos/testutil"
	"github.com/yungbote/pinegate-backend/internal/pkg/dbctx"
	"github.com/yungbote/pinegate-backend/internal/platform/apierr"
)

func newCharacterService(t *testing.T) (CharacterService, *gorm.DB, repos.Set) {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	set := repos.NewSet(db, log)
	return NewCharacterService(db, log, set), db, set
}

func requireAPIStatus(t *testing.T, err error, status int, code string) {
	t.Helper()
	var ae *apierr.Error
	require.True(t, errors.As(err, &ae), "expected *apierr.Error, got %v", err)
	assert.Equal(t, status, ae.Status)
	assert.Equal(t, code, ae.Code)
}

func TestCharacterGetCreatesLevelOne(t *testing.T) {
	svc, _, set := newCharacterService(t)
	ctx := context.Background()

	ch, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", ch.UserID)
	assert.Equal(t, LazyCharacterLevel, ch.Level)

	again, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, ch.ID, again.ID)

	n, err := set.Characters.Count(dbctx.From(ctx))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestCharacterGetKeepsExisting(t *testing.T) {
	svc, db, _ := newCharacterService(t)
	seeded := testutil.SeedCharacter(t, db, "u1", 4)

	ch, err := svc.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, ch.ID)
	assert.Equal(t, 4, ch.Level)
}

func TestCharacterGetRejectsBlankUser(t *testing.T) {
	svc, _, _ := newCharacterService(t)
	_, err := svc.Get(context.Background(), "  ")
	requireAPIStatus(t, err, http.StatusBadRequest, "missing_user_id")
}

func TestCharacterUpdateProfile(t *testing.T) {
	svc, db, _ := newCharacterService(t)
	testutil.SeedCharacter(t, db, "u1", 3)

	name := "  <i>Mara</i>   of the Ford "
	desc := "Keeps <script>alert(1)</script>the ferry."
	ch, err := svc.UpdateProfile(context.Background(), "u1", ProfilePatch{Name: &name, Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "Mara of the Ford", ch.Name)
	assert.Equal(t, "Keeps the ferry.", ch.Description)
	assert.Equal(t, 3, ch.Level)
	assert.Equal(t, "Wanderer", ch.Title)
}

func TestCharacterUpdateProfileValidation(t *testing.T) {
	svc, _, _ := newCharacterService(t)
	ctx := context.Background()

	_, err := svc.UpdateProfile(ctx, "u1", ProfilePatch{})
	requireAPIStatus(t, err, http.StatusBadRequest, "empty_patch")

	blank := "<b> </b>"
	_, err = svc.UpdateProfile(ctx, "u1", ProfilePatch{Name: &blank})
	requireAPIStatus(t, err, http.StatusBadRequest, "invalid_name")
}

func TestCharacterUpdateProfileCreatesMissing(t *testing.T) {
	svc, _, _ := newCharacterService(t)
	long := ""
	for i := 0; i < 60; i++ {
		long += "x"
	}
	ch, err := svc.UpdateProfile(context.Background(), "new", ProfilePatch{Name: &long})
	require.NoError(t, err)
	assert.Equal(t, LazyCharacterLevel, ch.Level)
	assert.Len(t, ch.Name, MaxNameRunes)
}

func TestWeekStart(t *testing.T) {
	cases := []struct {
		in   time.Time
		want time.Time
	}{
		{time.Date(2026, 10, 14, 12, 30, 0, 0, time.UTC), time.Date(2026, 10, 11, 0, 0, 0, 0, time.UTC)},
		{time.Date(2026, 10, 11, 0, 0, 0, 0, time.UTC), time.Date(2026, 10, 11, 0, 0, 0, 0, time.UTC)},
		{time.Date(2026, 10, 17, 23, 59, 59, 0, time.UTC), time.Date(2026, 10, 11, 0, 0, 0, 0, time.UTC)},
		{time.Date(2026, 11, 1, 3, 0, 0, 0, time.FixedZone("UTC+5", 5*3600)), time.Date(2026, 10, 25, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, WeekStart(tc.in), "WeekStart(%s)", tc.in)
	}
}

func TestCharacterWeeklyStats(t *testing.T) {
	svc, db, _ := newCharacterService(t)
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

	tmpl := testutil.SeedTaskTemplate(t, db, "u1", "strength", 3)
	testutil.SeedTaskCompletion(t, db, tmpl, time.Date(2026, 10, 12, 9, 0, 0, 0, time.UTC))
	// Saturday before the week started.
	testutil.SeedTaskCompletion(t, db, tmpl, time.Date(2026, 10, 10, 9, 0, 0, 0, time.UTC))
	other := testutil.SeedTaskTemplate(t, db, "u2", "wisdom", 5)
	testutil.SeedTaskCompletion(t, db, other, time.Date(2026, 10, 13, 9, 0, 0, 0, time.UTC))

	stats, err := svc.WeeklyStats(context.Background(), "u1", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 11, 0, 0, 0, 0, time.UTC), stats.From)
	assert.Equal(t, map[string]int{"strength": 6}, stats.Tasks)
	assert.Empty(t, stats.Habits)
	assert.Empty(t, stats.Goals)
	assert.Equal(t, 6, stats.Total)
}

func TestCharacterWeeklyStatsScoring(t *testing.T) {
	svc, db, _ := newCharacterService(t)
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	at := time.Date(2026, 10, 13, 9, 0, 0, 0, time.UTC)

	habit := testutil.SeedHabitTemplate(t, db, "u1", "health", 2)
	testutil.SeedHabitCompletion(t, db, habit, 1, 3, at)
	accepted := testutil.SeedCompletedGoal(t, db, "u1", "gold", 2, at)
	require.NoError(t, db.Model(accepted).Update("from_template", true).Error)

	stats, err := svc.WeeklyStats(context.Background(), "u1", now)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"health": 2}, stats.Habits)
	assert.Equal(t, map[string]int{"gold": 8}, stats.Goals)
	assert.Equal(t, 10, stats.Total)
}

func TestCharacterWeeklyStatsEmpty(t *testing.T) {
	svc, _, _ := newCharacterService(t)
	stats, err := svc.WeeklyStats(context.Background(), "nobody", time.Now())
	require.NoError(t, err)
	assert.NotNil(t, stats.Tasks)
	assert.NotNil(t, stats.Habits)
	assert.NotNil(t, stats.Goals)
	assert.Zero(t, stats.Total)
}
