package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/pinegate-backend/internal/data/db"
	types "github.com/yungbote/pinegate-backend/internal/domain"
	"github.com/yungbote/pinegate-backend/internal/platform/logger"
)

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	log, err := logger.New("test")
	if err != nil {
		tb.Fatalf("failed to init logger: %v", err)
	}
	return log
}

// DB returns a fresh, migrated in-memory SQLite database private to the test.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
		Logger:                                   gormLogger.Default.LogMode(gormLogger.Silent),
		NowFunc:                                  func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		tb.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrateAll(gdb); err != nil {
		tb.Fatalf("automigrate: %v", err)
	}
	return gdb
}

func Ptr[T any](v T) *T { return &v }

func SeedTaskTemplate(tb testing.TB, gdb *gorm.DB, userID, category string, weight int) *types.TaskTemplate {
	tb.Helper()
	row := &types.TaskTemplate{UserID: userID, Title: "task " + category, Category: Ptr(category), Weight: Ptr(weight)}
	mustCreate(tb, gdb, row)
	return row
}

func SeedTaskCompletion(tb testing.TB, gdb *gorm.DB, tmpl *types.TaskTemplate, at time.Time) *types.TaskCompletion {
	tb.Helper()
	row := &types.TaskCompletion{
		UserID:         tmpl.UserID,
		TaskTemplateID: tmpl.ID,
		Complete:       true,
		CompletedAt:    Ptr(at),
		Date:           at,
		CreatedAt:      at,
	}
	mustCreate(tb, gdb, row)
	return row
}

func SeedHabitTemplate(tb testing.TB, gdb *gorm.DB, userID, category string, weight int) *types.HabitTemplate {
	tb.Helper()
	row := &types.HabitTemplate{UserID: userID, Name: "habit " + category, Category: Ptr(category), Weight: Ptr(weight)}
	mustCreate(tb, gdb, row)
	return row
}

func SeedHabitCompletion(tb testing.TB, gdb *gorm.DB, tmpl *types.HabitTemplate, pos, neg int, at time.Time) *types.HabitCompletion {
	tb.Helper()
	row := &types.HabitCompletion{
		UserID:          tmpl.UserID,
		HabitTemplateID: tmpl.ID,
		PositiveCount:   pos,
		NegativeCount:   neg,
		Date:            at,
		CreatedAt:       at,
	}
	mustCreate(tb, gdb, row)
	return row
}

func SeedCompletedGoal(tb testing.TB, gdb *gorm.DB, userID, category string, weight int, at time.Time) *types.Goal {
	tb.Helper()
	row := &types.Goal{UserID: userID, Name: "goal " + category, Category: Ptr(category), Weight: Ptr(weight), CompletedAt: Ptr(at), CreatedAt: at}
	mustCreate(tb, gdb, row)
	return row
}

func SeedCharacter(tb testing.TB, gdb *gorm.DB, userID string, level int) *types.Character {
	tb.Helper()
	row := &types.Character{UserID: userID, Level: level, Name: "hero-" + userID, Title: "Wanderer", Description: "a quiet villager"}
	mustCreate(tb, gdb, row)
	return row
}

func SeedWeeklySummary(tb testing.TB, gdb *gorm.DB, agentNotes string, at time.Time) *types.WeeklySummary {
	tb.Helper()
	row := &types.WeeklySummary{Summary: "The village slept.", NextWeekPrompt: "What wakes?", AgentNotes: agentNotes, CreatedAt: at}
	mustCreate(tb, gdb, row)
	return row
}

func mustCreate(tb testing.TB, gdb *gorm.DB, row any) {
	tb.Helper()
	if err := gdb.Create(row).Error; err != nil {
		tb.Fatalf("seed %T: %v", row, err)
	}
}
