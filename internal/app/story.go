package app

import (
	"fmt"

	"github.com/yungbote/pinegate-backend/internal/data/db"
	"github.com/yungbote/pinegate-backend/internal/data/repos"
	"github.com/yungbote/pinegate-backend/internal/platform/logger"
	"github.com/yungbote/pinegate-backend/internal/services"
)

// OpenStory opens only the database, for read-only commands that need no narration credentials.
func OpenStory(log *logger.Logger) (services.StoryService, func(), error) {
	dbService, err := db.Open(log, db.LoadConfig(log))
	if err != nil {
		return nil, nil, fmt.Errorf("init database: %w", err)
	}
	set := repos.NewSet(dbService.DB(), log)
	closeFn := func() {
		if err := dbService.Close(); err != nil {
			log.Warn("Database close failed", "error", err)
		}
	}
	return services.NewStoryService(dbService.DB(), log, set.WeeklySummaries), closeFn, nil
}
