package steps

import (
	"context"
	"fmt"

	"github.com/yungbote/pinegate-backend/internal/data/repos"
	types "github.com/yungbote/pinegate-backend/internal/domain"
	"github.com/yungbote/pinegate-backend/internal/modules/village/catalog"
	"github.com/yungbote/pinegate-backend/internal/pkg/dbctx"
	"github.com/yungbote/pinegate-backend/internal/platform/directory"
	"github.com/yungbote/pinegate-backend/internal/platform/logger"
)

const (
	MinQuestCount = 5
	MaxQuestCount = 25
)

type QuestPoolDeps struct {
	Log        *logger.Logger
	Directory  directory.Counter
	QuestBoard repos.QuestBoardRepo
	Rand       Rand
	// Catalog defaults to the embedded catalog.
	Catalog []catalog.Quest
}

type QuestPoolResult struct {
	QuestsAdded int `json:"questsAdded"`
	UserCount   int `json:"userCount"`
	QuestCount  int `json:"questCount"`
}

// QuestCount sizes the pool: MinQuestCount with no users, otherwise a uniform draw from
// [n, floor(1.5n)] clamped to [MinQuestCount, MaxQuestCount].
func QuestCount(userCount int, rng Rand) int {
	if userCount <= 0 {
		return MinQuestCount
	}
	upper := userCount * 3 / 2
	n := userCount + rng.Intn(upper-userCount+1)
	if n < MinQuestCount {
		return MinQuestCount
	}
	if n > MaxQuestCount {
		return MaxQuestCount
	}
	return n
}

// SampleQuests picks n distinct quests. n is capped at len(quests).
func SampleQuests(quests []catalog.Quest, n int, rng Rand) []catalog.Quest {
	if n > len(quests) {
		n = len(quests)
	}
	if n <= 0 {
		return []catalog.Quest{}
	}
	perm := rng.Perm(len(quests))
	out := make([]catalog.Quest, 0, n)
	for _, idx := range perm[:n] {
		out = append(out, quests[idx])
	}
	return out
}

// SeedQuestPool inserts a random batch of anonymous quests sized by the user count.
// A failed user count is treated as zero users.
func SeedQuestPool(ctx context.Context, deps QuestPoolDeps) (QuestPoolResult, error) {
	out := QuestPoolResult{}
	if deps.Log == nil || deps.QuestBoard == nil {
		return out, fmt.Errorf("seed_quest_pool: missing deps")
	}
	log := deps.Log.With("step", "seed_quest_pool")
	rng := deps.Rand
	if rng == nil {
		rng = NewRand()
	}
	quests := deps.Catalog
	if quests == nil {
		loaded, err := catalog.Load("")
		if err != nil {
			return out, fmt.Errorf("seed_quest_pool: %w", err)
		}
		quests = loaded
	}

	if deps.Directory != nil {
		n, err := deps.Directory.CountUsers(ctx)
		if err != nil {
			log.Warn("User count failed; sizing pool for zero users", "error", err)
			n = 0
		}
		out.UserCount = n
	}
	out.QuestCount = QuestCount(out.UserCount, rng)

	picked := SampleQuests(quests, out.QuestCount, rng)
	rows := make([]*types.QuestBoardTemplate, 0, len(picked))
	for _, q := range picked {
		rows = append(rows, &types.QuestBoardTemplate{
			Name:           q.Name,
			Category:       q.Category,
			Weight:         q.Weight,
			DaysToComplete: q.DaysToComplete,
		})
	}
	created, err := deps.QuestBoard.Create(dbctx.From(ctx), rows)
	if err != nil {
		return out, fmt.Errorf("seed_quest_pool: insert: %w", err)
	}
	out.QuestsAdded = len(created)
	log.Info("Quest pool seeded", "quests_added", out.QuestsAdded, "user_count", out.UserCount, "quest_count", out.QuestCount)
	return out, nil
}
