package steps

import (
	"math/rand"
	"time"
)

const (
	TypeBonusHabit = 1
	TypeBonusTask  = 2
	TypeBonusGoal  = 3

	// TypeBonusBoardGoal scores a goal accepted from the quest board in weekly stats.
	TypeBonusBoardGoal = 4

	DefaultCategory = "other"
	DefaultWeight   = 1

	// DefaultMaxConcurrency bounds per-user fan-out when deps leave it unset.
	DefaultMaxConcurrency = 8
)

// UserAggregate is one user's points for the window, keyed category -> points per entity type.
type UserAggregate struct {
	Habits      map[string]int `json:"habits"`
	Tasks       map[string]int `json:"tasks"`
	Goals       map[string]int `json:"goals"`
	Name        string         `json:"name"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
}

func newUserAggregate() *UserAggregate {
	return &UserAggregate{
		Habits: map[string]int{},
		Tasks:  map[string]int{},
		Goals:  map[string]int{},
	}
}

// WeeklyDetails is keyed by userId.
type WeeklyDetails map[string]*UserAggregate

// UserIDs returns the keys in no particular order.
func (d WeeklyDetails) UserIDs() []string {
	out := make([]string, 0, len(d))
	for id := range d {
		out = append(out, id)
	}
	return out
}

// UserFailure records one user's failed sub-operation inside a fan-out.
type UserFailure struct {
	UserID string `json:"userId"`
	Error  string `json:"error"`
}

// Rand is the randomness the pipelines draw from. *math/rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
	Perm(n int) []int
}

// NewRand returns a time-seeded source. Not safe for concurrent use.
func NewRand() Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

func concurrencyOr(n int) int {
	if n <= 0 {
		return DefaultMaxConcurrency
	}
	return n
}

func nowOr(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}
