package prompts

import (
	"strings"
	"testing"
)

func TestBuildWeeklyChapter(t *testing.T) {
	system, user, err := Build(PromptWeeklyChapter, Input{WeekNumber: 6, Temperature: 12, ContextJSON: `{"a":1}`})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !strings.Contains(system, "Week #<weekNumber>") {
		t.Fatalf("system prompt missing week marker instructions")
	}
	if !strings.Contains(user, "WEEK_NUMBER: 6") || !strings.Contains(user, "TEMPERATURE: 12") || !strings.Contains(user, `{"a":1}`) {
		t.Fatalf("unexpected user prompt: %q", user)
	}
}

func TestBuildRejectsMissingInput(t *testing.T) {
	if _, _, err := Build(PromptWeeklyChapter, Input{ContextJSON: "{}"}); err == nil {
		t.Fatalf("expected error for missing week number")
	}
	if _, _, err := Build(PromptWeeklyTitles, Input{}); err == nil {
		t.Fatalf("expected error for missing context")
	}
	if _, _, err := Build(PromptName("nope"), Input{}); err == nil {
		t.Fatalf("expected error for unknown prompt")
	}
}
