package tracker

import "time"

// Window bounds a completion query to [From, To]. UserID narrows it to one user when set.
type Window struct {
	From   time.Time
	To     time.Time
	UserID string
}
