package steps

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDifficultyScaleBoundaries(t *testing.T) {
	cases := []struct {
		points int
		want   float64
	}{
		{-20, 1},
		{0, 1},
		{6, 1.1},
		{25, 1.5},
		{50, 2.0},
		{100, 3.0},
		{150, 4.0},
		{225, 5.0},
		{300, 6.0},
		{499, 8.0},
		{500, 8.0},
		{750, 9.0},
		{1000, 10.0},
		{100000, 10.0},
	}
	for _, tc := range cases {
		assert.Equalf(t, tc.want, DifficultyScale(tc.points), "points=%d", tc.points)
	}
}

func TestRoundToIsHalfAwayFromZero(t *testing.T) {
	assert.Equal(t, 1.3, roundTo(1.25, 1))
	assert.Equal(t, -1.3, roundTo(-1.25, 1))
	assert.Equal(t, 2.67, roundTo(8.0/3.0, 2))
}

func TestScoreDifficultyBreakdown(t *testing.T) {
	details := WeeklyDetails{
		"a": agg(map[string]int{"health": -3}, map[string]int{"strength": 6, "gold": 4}, nil),
		"b": agg(nil, nil, map[string]int{"wisdom": 1}),
		"c": agg(map[string]int{"luck": 0}, nil, nil),
	}
	got := ScoreDifficulty(details)

	assert.Equal(t, Difficulty{
		DifficultyScale:      1.2,
		TotalPoints:          8,
		AveragePointsPerUser: 2.67,
		UserCount:            3,
		Breakdown:            DifficultyBreakdown{HabitsPoints: -3, TasksPoints: 10, GoalsPoints: 1},
	}, got)
}

func TestScoreDifficultyEmpty(t *testing.T) {
	got := ScoreDifficulty(nil)
	assert.Equal(t, Difficulty{DifficultyScale: 1}, got)
}
