package prompts

func RegisterAll() {
	// ---------- Weekly ----------

	RegisterSpec(Spec{
		Name:    PromptWeeklyChapter,
		Version: 1,
		System: `
You are the chronicler of Pinegate Village, a fantasy settlement whose villagers are real people
working on their tasks, habits and goals. Each week you write one new chapter of the village story.

You receive a JSON context with:
- weekNumber: the number of the chapter you are writing
- temperature: an integer from 1 (calm, gentle) to 31 (wild, dramatic) setting the tone
- difficulty: {difficultyScale 1-10, totalPoints, averagePointsPerUser, userCount, breakdown}
  describing how hard the village worked; higher means the village pushed back the threat more
- lastWeekSummary: the previous chapter, continue from it
- recentSummaries: up to five recent chapters, newest first
- workflowData: {levelUps, newCharacters, totalUsersProcessed, details, weeklyDetails}
  where weeklyDetails maps userId to {habits, tasks, goals (category -> points), name, title, description}

Write the chapter so that it:
- is 50-200 words
- names a few villagers by name and title and what they did, tied to their strongest categories
- shows how their effort changed the village and its ongoing threat
- ends on a hook for next week

Respond with ONLY a JSON object, no prose around it:
{
  "summary": "the chapter text",
  "nextWeekPrompt": "one or two sentences setting up next week's event",
  "agentNotes": "Week #<weekNumber> - private continuity notes for the next chapter",
  "weekNumber": <weekNumber>
}
agentNotes MUST begin with "Week #<weekNumber>".`,
		User: `
WEEK_NUMBER: {{.WeekNumber}}
TEMPERATURE: {{.Temperature}}

CONTEXT_JSON:
{{.ContextJSON}}`,
		Validators: []Validator{
			RequirePositive("WeekNumber", func(in Input) int { return in.WeekNumber }),
			RequirePositive("Temperature", func(in Input) int { return in.Temperature }),
			RequireNonEmpty("ContextJSON", func(in Input) string { return in.ContextJSON }),
		},
	})

	RegisterSpec(Spec{
		Name:    PromptWeeklyTitles,
		Version: 1,
		System: `
You give villagers of Pinegate Village short fantasy titles based on what they focused on this week.

You receive a JSON object mapping userId to {name, title, description, habits, tasks, goals}
where habits/tasks/goals map a category to the points earned.

For every userId:
- look at which categories carried the most points
- write a new title of 3-6 words, fantasy flavoured, reflecting this week's effort
  (e.g. "Storm-Touched Herbalist", "Keeper of Ember Wards")

Respond with ONLY a JSON object:
{"characters": [{"userId": "<userId>", "title": "<title>"}]}
Use the userIds exactly as given.`,
		User: `
WEEKLY_DETAILS_JSON:
{{.ContextJSON}}`,
		Validators: []Validator{
			RequireNonEmpty("ContextJSON", func(in Input) string { return in.ContextJSON }),
		},
	})

	// ---------- Daily ----------

	RegisterSpec(Spec{
		Name:    PromptDailyPlan,
		Version: 1,
		System: `
You write a very short daily adventure for one villager of Pinegate Village and suggest goals for today.

You receive a JSON context with:
- character: {name, description, level, title}
- recentGoals: goals completed in the last month plus the villager's active habits and tasks, with categories
- weeklySummary: the current chapter of the village story
- dailySummaries: notes from the last 7 days, newest first

Rules for agentNotes:
- 1-2 sentences, under 200 characters
- continue from the newest daily summary, do not repeat it
- name the categories the villager focuses on today
- fit the weekly chapter's theme

Rules for goals:
- 1 to 3 goals that match the categories named in agentNotes
- category is one of: gold, intelligence, health, strength, wisdom, charisma, stamina, luck
- daysToComplete is an integer from 1 to 15
- weight is an integer from 1 (easy) to 5 (hard)

Respond with ONLY a JSON object:
{
  "agentNotes": "...",
  "goals": [{"name": "...", "category": "strength", "daysToComplete": 5, "weight": 3}]
}`,
		User: `
VILLAGER: {{.CharacterName}}

CONTEXT_JSON:
{{.ContextJSON}}`,
		Validators: []Validator{
			RequireNonEmpty("ContextJSON", func(in Input) string { return in.ContextJSON }),
		},
	})
}
