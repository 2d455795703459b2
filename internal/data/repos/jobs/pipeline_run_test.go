package jobs

import (
	"context"
	"testing"
	"time"

	"gorm.io/datatypes"

	"github.com/yungbote/pinegate-backend/internal/data/repos/testutil"
	types "github.com/yungbote/pinegate-backend/internal/domain"
	"github.com/yungbote/pinegate-backend/internal/pkg/dbctx"
)

func TestPipelineRunRepo(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.From(context.Background())
	repo := NewPipelineRunRepo(db, testutil.Logger(t))

	run, err := repo.Create(dbc, &types.PipelineRun{
		Pipeline:    "weekly_village",
		TriggeredBy: "manual",
		Status:      types.RunStatusRunning,
		StartedAt:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	finished := time.Now().UTC()
	if err := repo.UpdateFields(dbc, run.ID, map[string]interface{}{
		"status":      types.RunStatusSucceeded,
		"stage":       "titles",
		"result":      datatypes.JSON([]byte(`{"levelUps":1}`)),
		"finished_at": &finished,
	}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}

	got, err := repo.GetByID(dbc, run.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID: %v %v", got, err)
	}
	if got.Status != types.RunStatusSucceeded || got.Stage != "titles" || got.FinishedAt == nil {
		t.Fatalf("unexpected run: %#v", got)
	}
	if string(got.Result) != `{"levelUps":1}` {
		t.Fatalf("result: got %s", string(got.Result))
	}
}
