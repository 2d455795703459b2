package tracker

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/pinegate-backend/internal/data/repos/testutil"
	types "github.com/yungbote/pinegate-backend/internal/domain"
	"github.com/yungbote/pinegate-backend/internal/pkg/dbctx"
)

func TestTaskCompletionWindowAndTemplateLookup(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	dbc := dbctx.From(context.Background())
	now := time.Now().UTC()

	tmpl := testutil.SeedTaskTemplate(t, db, "u1", "strength", 3)
	inside := testutil.SeedTaskCompletion(t, db, tmpl, now.Add(-2*24*time.Hour))
	testutil.SeedTaskCompletion(t, db, tmpl, now.Add(-9*24*time.Hour))

	open := testutil.SeedTaskCompletion(t, db, tmpl, now.Add(-time.Hour))
	if err := db.Model(open).Update("complete", false).Error; err != nil {
		t.Fatalf("mark incomplete: %v", err)
	}

	completions := NewTaskCompletionRepo(db, log)
	rows, err := completions.ListCompleted(dbc, Window{From: now.Add(-7 * 24 * time.Hour), To: now})
	if err != nil {
		t.Fatalf("ListCompleted: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != inside.ID {
		t.Fatalf("ListCompleted: want only %s, got %d rows", inside.ID, len(rows))
	}

	// soft-deleted templates must still resolve by id
	if err := db.Delete(tmpl).Error; err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	templates := NewTaskTemplateRepo(db, log)
	got, err := templates.GetByIDs(dbc, []uuid.UUID{tmpl.ID})
	if err != nil {
		t.Fatalf("GetByIDs: %v", err)
	}
	if len(got) != 1 || got[0].Weight == nil || *got[0].Weight != 3 {
		t.Fatalf("GetByIDs: expected deleted template with weight 3, got %#v", got)
	}
	active, err := templates.ListActiveByUser(dbc, "u1")
	if err != nil {
		t.Fatalf("ListActiveByUser: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("ListActiveByUser: expected deleted template hidden, got %d", len(active))
	}
}

func TestHabitCompletionWindowByUser(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.From(context.Background())
	now := time.Now().UTC()

	a := testutil.SeedHabitTemplate(t, db, "a", "health", 2)
	b := testutil.SeedHabitTemplate(t, db, "b", "health", 2)
	testutil.SeedHabitCompletion(t, db, a, 3, 1, now.Add(-time.Hour))
	testutil.SeedHabitCompletion(t, db, b, 1, 0, now.Add(-time.Hour))

	repo := NewHabitCompletionRepo(db, testutil.Logger(t))
	rows, err := repo.ListCreated(dbc, Window{From: now.Add(-24 * time.Hour), To: now, UserID: "a"})
	if err != nil {
		t.Fatalf("ListCreated: %v", err)
	}
	if len(rows) != 1 || rows[0].UserID != "a" || rows[0].PositiveCount != 3 {
		t.Fatalf("ListCreated: unexpected rows %#v", rows)
	}
}

func TestGoalListCompletedSkipsDeletedAndOpen(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.From(context.Background())
	now := time.Now().UTC()

	kept := testutil.SeedCompletedGoal(t, db, "u1", "wisdom", 4, now.Add(-time.Hour))
	deleted := testutil.SeedCompletedGoal(t, db, "u1", "wisdom", 4, now.Add(-time.Hour))
	if err := db.Delete(deleted).Error; err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	repo := NewGoalRepo(db, testutil.Logger(t))
	if _, err := repo.Create(dbc, &types.Goal{UserID: "u1", Name: "open goal"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	rows, err := repo.ListCompleted(dbc, Window{From: now.Add(-31 * 24 * time.Hour), To: now, UserID: "u1"})
	if err != nil {
		t.Fatalf("ListCompleted: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != kept.ID {
		t.Fatalf("expected only %s, got %d rows", kept.ID, len(rows))
	}

	all, err := repo.ListCompletedUnscoped(dbc, Window{From: now.Add(-31 * 24 * time.Hour), To: now, UserID: "u1"})
	if err != nil {
		t.Fatalf("ListCompletedUnscoped: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("ListCompletedUnscoped: want kept and deleted goals, got %d rows", len(all))
	}
}
