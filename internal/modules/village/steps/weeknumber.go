package steps

import (
	"regexp"
	"strconv"

	types "github.com/yungbote/pinegate-backend/internal/domain"
)

// RecentChapterLimit is how many chapters feed the week number and the narration context.
const RecentChapterLimit = 5

// MaxTemperature is the top of the narration tone knob; the bottom is 1.
const MaxTemperature = 31

var weekMarkerRE = regexp.MustCompile(`(?i)week\s*#\s*(\d+)`)

// DeriveNextWeekNumber scans every "Week #N" marker in the chapters' agent notes and returns
// the highest N plus one, or 1 when none is found. Chapter order does not matter.
func DeriveNextWeekNumber(chapters []*types.WeeklySummary) int {
	highest := 0
	for _, ch := range chapters {
		if ch == nil {
			continue
		}
		if n := highestWeekMarker(ch.AgentNotes); n > highest {
			highest = n
		}
	}
	return highest + 1
}

func highestWeekMarker(s string) int {
	highest := 0
	for _, m := range weekMarkerRE.FindAllStringSubmatch(s, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return highest
}

// DrawTemperature returns a uniform integer in [1, MaxTemperature].
func DrawTemperature(rng Rand) int {
	return 1 + rng.Intn(MaxTemperature)
}
