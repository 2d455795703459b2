package steps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/pinegate-backend/internal/data/repos"
	"github.com/yungbote/pinegate-backend/internal/modules/village/prompts"
	"github.com/yungbote/pinegate-backend/internal/pkg/dbctx"
	"github.com/yungbote/pinegate-backend/internal/platform/logger"
	"github.com/yungbote/pinegate-backend/internal/platform/narration"
)

const (
	DefaultTitleBatchSize = 250
	MaxTitleRunes         = 60

	NoCharactersMessage = "No characters to update."
)

var ErrInvalidTitles = errors.New("invalid titles response")

var titlePolicy = bluemonday.StrictPolicy()

type TitlesDeps struct {
	Log            *logger.Logger
	Characters     repos.CharacterRepo
	Generator      narration.Generator
	BatchSize      int
	MaxConcurrency int
}

type TitlesInput struct {
	WeeklyDetails WeeklyDetails
}

type TitlesResult struct {
	Message  string        `json:"message"`
	Updated  int           `json:"updated"`
	Skipped  int           `json:"skipped"`
	Failures []UserFailure `json:"failures"`
}

type TitleAssignment struct {
	UserID string `json:"userId"`
	Title  string `json:"title"`
}

// UpdateTitles asks the generator for one title per active user and writes them in batches.
// A user without a character row is counted as skipped.
func UpdateTitles(ctx context.Context, deps TitlesDeps, in TitlesInput) (TitlesResult, error) {
	out := TitlesResult{Failures: []UserFailure{}}
	if len(in.WeeklyDetails) == 0 {
		out.Message = NoCharactersMessage
		return out, nil
	}
	if deps.Log == nil || deps.Characters == nil || deps.Generator == nil {
		return out, fmt.Errorf("update_titles: missing deps")
	}
	log := deps.Log.With("step", "update_titles")

	payload, err := json.Marshal(in.WeeklyDetails)
	if err != nil {
		return out, fmt.Errorf("update_titles: encode details: %w", err)
	}
	system, user, err := prompts.Build(prompts.PromptWeeklyTitles, prompts.Input{ContextJSON: string(payload)})
	if err != nil {
		return out, fmt.Errorf("update_titles: %w", err)
	}
	raw, err := deps.Generator.Generate(ctx, system, user)
	if err != nil {
		return out, fmt.Errorf("update_titles: generate: %w", err)
	}
	parsed, err := ParseTitles(raw)
	if err != nil {
		return out, fmt.Errorf("update_titles: %w", err)
	}

	assignments := make([]TitleAssignment, 0, len(parsed))
	for _, a := range parsed {
		if _, ok := in.WeeklyDetails[a.UserID]; !ok {
			log.Warn("Dropping title for unknown user", "user_id", a.UserID)
			continue
		}
		assignments = append(assignments, a)
	}

	batchSize := deps.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultTitleBatchSize
	}
	var mu sync.Mutex
	for start := 0; start < len(assignments); start += batchSize {
		end := start + batchSize
		if end > len(assignments) {
			end = len(assignments)
		}
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(concurrencyOr(deps.MaxConcurrency))
		for _, a := range assignments[start:end] {
			g.Go(func() error {
				n, err := deps.Characters.UpdateTitleByUserID(dbctx.From(gctx), a.UserID, a.Title)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err != nil:
					log.Error("Title update failed", "user_id", a.UserID, "error", err)
					out.Failures = append(out.Failures, UserFailure{UserID: a.UserID, Error: fmt.Sprintf("update title: %v", err)})
				case n == 0:
					out.Skipped++
				default:
					out.Updated++
				}
				return nil
			})
		}
		_ = g.Wait()
	}

	sort.Slice(out.Failures, func(i, j int) bool { return out.Failures[i].UserID < out.Failures[j].UserID })
	out.Message = fmt.Sprintf("Updated %d titles.", out.Updated)
	log.Info("Titles done", "updated", out.Updated, "skipped", out.Skipped, "failures", len(out.Failures))
	return out, nil
}

// ParseTitles accepts {"characters":[{userId,title}]} or a bare array of the same entries.
// Entries with a blank userId or title after sanitizing are dropped; the first entry per
// userId wins.
func ParseTitles(raw string) ([]TitleAssignment, error) {
	body := StripCodeFence(raw)
	if body == "" {
		return nil, fmt.Errorf("%w: empty response", ErrInvalidTitles)
	}

	var entries []map[string]any
	if strings.HasPrefix(body, "[") {
		if err := json.Unmarshal([]byte(body), &entries); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidTitles, err)
		}
	} else {
		var wrapper struct {
			Characters *[]map[string]any `json:"characters"`
		}
		if err := json.Unmarshal([]byte(body), &wrapper); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidTitles, err)
		}
		if wrapper.Characters == nil {
			return nil, fmt.Errorf("%w: missing characters", ErrInvalidTitles)
		}
		entries = *wrapper.Characters
	}

	seen := map[string]bool{}
	out := make([]TitleAssignment, 0, len(entries))
	for _, e := range entries {
		userID, _ := e["userId"].(string)
		title, _ := e["title"].(string)
		userID = strings.TrimSpace(userID)
		title = SanitizeTitle(title)
		if userID == "" || title == "" || seen[userID] {
			continue
		}
		seen[userID] = true
		out = append(out, TitleAssignment{UserID: userID, Title: title})
	}
	return out, nil
}

// SanitizeTitle strips markup, collapses whitespace and caps the length at MaxTitleRunes.
func SanitizeTitle(s string) string {
	s = html.UnescapeString(titlePolicy.Sanitize(s))
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) > MaxTitleRunes {
		s = strings.TrimSpace(string([]rune(s)[:MaxTitleRunes]))
	}
	return s
}
