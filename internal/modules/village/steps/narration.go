package steps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/pinegate-backend/internal/data/repos"
	types "github.com/yungbote/pinegate-backend/internal/domain"
	"github.com/yungbote/pinegate-backend/internal/modules/village/prompts"
	"github.com/yungbote/pinegate-backend/internal/pkg/dbctx"
	"github.com/yungbote/pinegate-backend/internal/platform/logger"
	"github.com/yungbote/pinegate-backend/internal/platform/narration"
)

// ErrInvalidNarration wraps every rejection of a generated chapter.
var ErrInvalidNarration = errors.New("invalid narration response")

type NarrateDeps struct {
	Log       *logger.Logger
	Chapters  repos.WeeklySummaryRepo
	Generator narration.Generator
	Rand      Rand
}

type NarrateInput struct {
	Leveling LevelingResult
}

type NarrationResult struct {
	WeekNumber     int            `json:"weekNumber"`
	Temperature    int            `json:"temperature"`
	Difficulty     Difficulty     `json:"difficulty"`
	Summary        string         `json:"summary"`
	NextWeekPrompt string         `json:"nextWeekPrompt"`
	AgentNotes     string         `json:"agentNotes"`
	ChapterID      uuid.UUID      `json:"chapterId"`
	WorkflowData   LevelingResult `json:"workflowData"`
}

// Narration is a validated chapter as returned by the generator.
type Narration struct {
	Summary        string
	NextWeekPrompt string
	AgentNotes     string
	// WeekNumber is 0 when the response carried no usable number.
	WeekNumber int
}

type chapterView struct {
	ID             uuid.UUID `json:"id"`
	Summary        string    `json:"summary"`
	NextWeekPrompt string    `json:"nextWeekPrompt"`
	AgentNotes     string    `json:"agentNotes"`
	CreatedAt      time.Time `json:"createdAt"`
}

func viewChapter(ch *types.WeeklySummary) *chapterView {
	if ch == nil {
		return nil
	}
	return &chapterView{
		ID:             ch.ID,
		Summary:        ch.Summary,
		NextWeekPrompt: ch.NextWeekPrompt,
		AgentNotes:     ch.AgentNotes,
		CreatedAt:      ch.CreatedAt,
	}
}

type narrationContext struct {
	WeekNumber      int            `json:"weekNumber"`
	Temperature     int            `json:"temperature"`
	Difficulty      Difficulty     `json:"difficulty"`
	LastWeekSummary *chapterView   `json:"lastWeekSummary"`
	RecentSummaries []*chapterView `json:"recentSummaries"`
	WorkflowData    LevelingResult `json:"workflowData"`
}

// NarrateWeek generates, validates and appends exactly one chapter. Any generator or
// validation failure is returned and nothing is written.
func NarrateWeek(ctx context.Context, deps NarrateDeps, in NarrateInput) (NarrationResult, error) {
	out := NarrationResult{}
	if deps.Log == nil || deps.Chapters == nil || deps.Generator == nil {
		return out, fmt.Errorf("narrate_week: missing deps")
	}
	log := deps.Log.With("step", "narrate_week")
	dbc := dbctx.From(ctx)
	rng := deps.Rand
	if rng == nil {
		rng = NewRand()
	}

	recent, err := deps.Chapters.ListRecent(dbc, RecentChapterLimit)
	if err != nil {
		return out, fmt.Errorf("narrate_week: load recent chapters: %w", err)
	}
	weekNumber := DeriveNextWeekNumber(recent)
	temperature := DrawTemperature(rng)

	last, err := deps.Chapters.GetLatest(dbc)
	if err != nil {
		return out, fmt.Errorf("narrate_week: load latest chapter: %w", err)
	}
	difficulty := ScoreDifficulty(in.Leveling.WeeklyDetails)

	recentViews := make([]*chapterView, 0, len(recent))
	for _, ch := range recent {
		recentViews = append(recentViews, viewChapter(ch))
	}
	payload, err := json.Marshal(narrationContext{
		WeekNumber:      weekNumber,
		Temperature:     temperature,
		Difficulty:      difficulty,
		LastWeekSummary: viewChapter(last),
		RecentSummaries: recentViews,
		WorkflowData:    in.Leveling,
	})
	if err != nil {
		return out, fmt.Errorf("narrate_week: encode context: %w", err)
	}

	system, user, err := prompts.Build(prompts.PromptWeeklyChapter, prompts.Input{
		ContextJSON: string(payload),
		WeekNumber:  weekNumber,
		Temperature: temperature,
	})
	if err != nil {
		return out, fmt.Errorf("narrate_week: %w", err)
	}

	log.Info("Requesting chapter",
		"week_number", weekNumber,
		"temperature", temperature,
		"difficulty", difficulty.DifficultyScale,
		"users", difficulty.UserCount,
	)
	raw, err := deps.Generator.Generate(ctx, system, user)
	if err != nil {
		return out, fmt.Errorf("narrate_week: generate: %w", err)
	}
	parsed, err := ParseNarration(raw)
	if err != nil {
		log.Error("Chapter rejected", "week_number", weekNumber, "error", err)
		return out, fmt.Errorf("narrate_week: %w", err)
	}

	resolved := weekNumber
	if parsed.WeekNumber >= 1 {
		resolved = parsed.WeekNumber
	}
	notes := parsed.AgentNotes
	if !weekMarkerRE.MatchString(notes) {
		notes = fmt.Sprintf("Week #%d - %s", resolved, notes)
	}

	row, err := deps.Chapters.Create(dbc, &types.WeeklySummary{
		Summary:        parsed.Summary,
		NextWeekPrompt: parsed.NextWeekPrompt,
		AgentNotes:     notes,
	})
	if err != nil {
		return out, fmt.Errorf("narrate_week: persist chapter: %w", err)
	}

	out = NarrationResult{
		WeekNumber:     resolved,
		Temperature:    temperature,
		Difficulty:     difficulty,
		Summary:        parsed.Summary,
		NextWeekPrompt: parsed.NextWeekPrompt,
		AgentNotes:     notes,
		ChapterID:      row.ID,
		WorkflowData:   in.Leveling,
	}
	log.Info("Chapter written", "week_number", resolved, "chapter_id", row.ID)
	return out, nil
}

var narrationFields = map[string]bool{
	"summary":        true,
	"nextWeekPrompt": true,
	"agentNotes":     true,
	"weekNumber":     true,
}

// ParseNarration validates a generated chapter. The text must be a single JSON object, optionally
// inside one markdown code fence, holding non-blank string fields summary, nextWeekPrompt and
// agentNotes, and nothing else except an optional weekNumber. A weekNumber that is not a positive
// integer is ignored rather than rejected.
func ParseNarration(raw string) (Narration, error) {
	out := Narration{}
	body := StripCodeFence(raw)
	if body == "" {
		return out, fmt.Errorf("%w: empty response", ErrInvalidNarration)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &fields); err != nil {
		return out, fmt.Errorf("%w: not a JSON object: %v", ErrInvalidNarration, err)
	}
	if fields == nil {
		return out, fmt.Errorf("%w: not a JSON object", ErrInvalidNarration)
	}
	for k := range fields {
		if !narrationFields[k] {
			return out, fmt.Errorf("%w: unexpected field %q", ErrInvalidNarration, k)
		}
	}

	var err error
	if out.Summary, err = requiredString(fields, "summary"); err != nil {
		return out, err
	}
	if out.NextWeekPrompt, err = requiredString(fields, "nextWeekPrompt"); err != nil {
		return out, err
	}
	if out.AgentNotes, err = requiredString(fields, "agentNotes"); err != nil {
		return out, err
	}
	out.WeekNumber = optionalPositiveInt(fields["weekNumber"])
	return out, nil
}

func requiredString(fields map[string]json.RawMessage, key string) (string, error) {
	v, ok := fields[key]
	if !ok {
		return "", fmt.Errorf("%w: missing %s", ErrInvalidNarration, key)
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return "", fmt.Errorf("%w: %s must be a string", ErrInvalidNarration, key)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: %s is blank", ErrInvalidNarration, key)
	}
	return s, nil
}

func optionalPositiveInt(v json.RawMessage) int {
	if len(v) == 0 {
		return 0
	}
	var f float64
	if err := json.Unmarshal(v, &f); err != nil {
		return 0
	}
	if f < 1 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0
	}
	return int(f)
}

// StripCodeFence removes one surrounding ``` fence (with or without a language tag) and trims.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	body := strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	}
	body = strings.TrimSuffix(strings.TrimSpace(body), "```")
	return strings.TrimSpace(body)
}
