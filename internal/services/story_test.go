package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/pinegate-backend/internal/data/repos"
	"github.com/yungbote/pinegate-backend/internal/data/repos/testutil"
	types "github.com/yungbote/pinegate-backend/internal/domain"
)

func TestStoryLatestRendersAndSanitizes(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	svc := NewStoryService(db, log, repos.NewSet(db, log).WeeklySummaries)
	base := time.Now().UTC().Add(-48 * time.Hour)

	testutil.SeedWeeklySummary(t, db, "Week #1 - quiet", base)
	latest := &types.WeeklySummary{
		Summary:        "The **mill** turned again.\n\n<script>alert('x')</script>\n\n[map](javascript:alert(1))",
		NextWeekPrompt: "Who repairs the bridge?",
		AgentNotes:     "Week #2 - mill",
		CreatedAt:      base.Add(time.Hour),
	}
	require.NoError(t, db.Create(latest).Error)

	chapters, err := svc.Latest(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, chapters, 2)

	first := chapters[0]
	assert.Equal(t, latest.ID.String(), first.ID)
	assert.Equal(t, latest.Summary, first.Summary)
	assert.Contains(t, first.SummaryHTML, "<strong>mill</strong>")
	assert.NotContains(t, first.SummaryHTML, "<script")
	assert.NotContains(t, first.SummaryHTML, "javascript:")
	assert.Equal(t, "Who repairs the bridge?", first.NextWeekPrompt)
	assert.Contains(t, chapters[1].SummaryHTML, "The village slept.")
}

func TestStoryLatestLimit(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	svc := NewStoryService(db, log, repos.NewSet(db, log).WeeklySummaries)
	base := time.Now().UTC().Add(-100 * time.Hour)
	for i := 0; i < 3; i++ {
		testutil.SeedWeeklySummary(t, db, "Week", base.Add(time.Duration(i)*time.Hour))
	}

	chapters, err := svc.Latest(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, chapters, 2)
	assert.True(t, chapters[0].CreatedAt.After(chapters[1].CreatedAt))

	emptyDB := testutil.DB(t)
	empty := NewStoryService(emptyDB, log, repos.NewSet(emptyDB, log).WeeklySummaries)
	none, err := empty.Latest(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, none)
}
