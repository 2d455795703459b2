package steps

import (
	"context"
	"sync"
	"testing"

	"go.uber.org/goleak"
	"gorm.io/gorm"

	"github.com/yungbote/pinegate-backend/internal/data/repos"
	"github.com/yungbote/pinegate-backend/internal/data/repos/testutil"
	"github.com/yungbote/pinegate-backend/internal/pkg/dbctx"
	"github.com/yungbote/pinegate-backend/internal/platform/logger"
)

// verifyNoLeaks fails the test if a fan-out left goroutines behind. The sql pool's opener
// lives until the DB is closed in cleanup, after this check runs.
func verifyNoLeaks(t *testing.T) {
	t.Helper()
	goleak.VerifyNone(t, goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"))
}

// fixedRand returns the queued Intn values in order (modulo n) and identity permutations.
type fixedRand struct {
	ints []int
	i    int
}

func (r *fixedRand) Intn(n int) int {
	if len(r.ints) == 0 {
		return 0
	}
	v := r.ints[r.i%len(r.ints)]
	r.i++
	return v % n
}

func (r *fixedRand) Perm(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// scriptedGenerator answers every call with reply(user) and records the prompts it saw.
type scriptedGenerator struct {
	mu    sync.Mutex
	calls []string
	reply func(user string) (string, error)
}

func (g *scriptedGenerator) Generate(_ context.Context, _ string, user string) (string, error) {
	g.mu.Lock()
	g.calls = append(g.calls, user)
	g.mu.Unlock()
	return g.reply(user)
}

func (g *scriptedGenerator) Calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}

func replyWith(text string) *scriptedGenerator {
	return &scriptedGenerator{reply: func(string) (string, error) { return text, nil }}
}

type env struct {
	db   *gorm.DB
	log  *logger.Logger
	repo repos.Set
}

func newEnv(t *testing.T) env {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	return env{db: db, log: log, repo: repos.NewSet(db, log)}
}

func (e env) aggregateDeps() AggregateDeps {
	return AggregateDeps{
		Log:              e.log,
		TaskTemplates:    e.repo.TaskTemplates,
		TaskCompletions:  e.repo.TaskCompletions,
		HabitTemplates:   e.repo.HabitTemplates,
		HabitCompletions: e.repo.HabitCompletions,
		Goals:            e.repo.Goals,
		Characters:       e.repo.Characters,
	}
}

func dbcBG() dbctx.Context { return dbctx.From(context.Background()) }

func agg(habits, tasks, goals map[string]int) *UserAggregate {
	a := newUserAggregate()
	for k, v := range habits {
		a.Habits[k] = v
	}
	for k, v := range tasks {
		a.Tasks[k] = v
	}
	for k, v := range goals {
		a.Goals[k] = v
	}
	return a
}
