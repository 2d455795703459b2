package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"gorm.io/gorm"

	"github.com/yungbote/pinegate-backend/internal/data/repos"
	"github.com/yungbote/pinegate-backend/internal/pkg/dbctx"
	"github.com/yungbote/pinegate-backend/internal/platform/logger"
)

const (
	DefaultStoryLimit = 5
	MaxStoryLimit     = 52
)

// Chapter is a weekly summary prepared for display.
type Chapter struct {
	ID             string    `json:"id"`
	Summary        string    `json:"summary"`
	SummaryHTML    string    `json:"summaryHtml"`
	NextWeekPrompt string    `json:"nextWeekPrompt"`
	CreatedAt      time.Time `json:"createdAt"`
}

type StoryService interface {
	// Latest returns up to limit chapters, newest first.
	Latest(ctx context.Context, limit int) ([]Chapter, error)
}

type storyService struct {
	db     *gorm.DB
	log    *logger.Logger
	repo   repos.WeeklySummaryRepo
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

func NewStoryService(db *gorm.DB, baseLog *logger.Logger, repo repos.WeeklySummaryRepo) StoryService {
	return &storyService{
		db:     db,
		log:    baseLog.With("service", "StoryService"),
		repo:   repo,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM, extension.Typographer),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		),
		policy: bluemonday.UGCPolicy(),
	}
}

func (s *storyService) Latest(ctx context.Context, limit int) ([]Chapter, error) {
	if limit <= 0 {
		limit = DefaultStoryLimit
	}
	if limit > MaxStoryLimit {
		limit = MaxStoryLimit
	}
	rows, err := s.repo.ListRecent(dbctx.From(ctx), limit)
	if err != nil {
		return nil, fmt.Errorf("list chapters: %w", err)
	}
	out := make([]Chapter, 0, len(rows))
	for _, row := range rows {
		rendered, err := s.render(row.Summary)
		if err != nil {
			s.log.Warn("Chapter render failed; serving escaped text", "chapter_id", row.ID, "error", err)
			rendered = s.policy.Sanitize(row.Summary)
		}
		out = append(out, Chapter{
			ID:             row.ID.String(),
			Summary:        row.Summary,
			SummaryHTML:    rendered,
			NextWeekPrompt: row.NextWeekPrompt,
			CreatedAt:      row.CreatedAt,
		})
	}
	return out, nil
}

// render converts chapter markdown to HTML safe for user-facing pages.
func (s *storyService) render(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := s.md.Convert([]byte(markdown), &buf); err != nil {
		return "", err
	}
	return s.policy.Sanitize(buf.String()), nil
}
