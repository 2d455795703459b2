package steps

import "math"

type DifficultyBreakdown struct {
	HabitsPoints int `json:"habitsPoints"`
	TasksPoints  int `json:"tasksPoints"`
	GoalsPoints  int `json:"goalsPoints"`
}

type Difficulty struct {
	DifficultyScale      float64             `json:"difficultyScale"`
	TotalPoints          int                 `json:"totalPoints"`
	AveragePointsPerUser float64             `json:"averagePointsPerUser"`
	UserCount            int                 `json:"userCount"`
	Breakdown            DifficultyBreakdown `json:"breakdown"`
}

// ScoreDifficulty sums every point in details and maps the total onto [1,10].
func ScoreDifficulty(details WeeklyDetails) Difficulty {
	out := Difficulty{UserCount: len(details)}
	for _, agg := range details {
		if agg == nil {
			continue
		}
		for _, v := range agg.Habits {
			out.Breakdown.HabitsPoints += v
		}
		for _, v := range agg.Tasks {
			out.Breakdown.TasksPoints += v
		}
		for _, v := range agg.Goals {
			out.Breakdown.GoalsPoints += v
		}
	}
	out.TotalPoints = out.Breakdown.HabitsPoints + out.Breakdown.TasksPoints + out.Breakdown.GoalsPoints
	out.DifficultyScale = DifficultyScale(out.TotalPoints)
	if out.UserCount > 0 {
		out.AveragePointsPerUser = roundTo(float64(out.TotalPoints)/float64(out.UserCount), 2)
	}
	return out
}

// DifficultyScale is the piecewise mapping from total points, clamped to [1,10] and rounded
// half away from zero at one decimal.
func DifficultyScale(totalPoints int) float64 {
	tp := float64(totalPoints)
	var x float64
	switch {
	case tp <= 0:
		return 1
	case tp < 50:
		x = 1 + tp/50
	case tp < 150:
		x = 2 + (tp-50)/50
	case tp < 300:
		x = 4 + (tp-150)/75
	case tp < 500:
		x = 6 + (tp-300)/100
	default:
		x = 8 + math.Min(2, (tp-500)/250)
	}
	return math.Min(10, math.Max(1, roundTo(x, 1)))
}

func roundTo(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}
