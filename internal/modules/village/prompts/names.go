package prompts

type PromptName string

const (
	// Weekly pipeline
	PromptWeeklyChapter PromptName = "weekly_chapter"
	PromptWeeklyTitles  PromptName = "weekly_titles"

	// Daily pipeline
	PromptDailyPlan PromptName = "daily_plan"
)
