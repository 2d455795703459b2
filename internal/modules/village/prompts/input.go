package prompts

// Input is a superset of all fields any prompt might need.
// Missing fields render as zero values (templates use missingkey=zero).
type Input struct {
	// Full JSON context blob handed to the model
	ContextJSON string
	// Weekly chapter
	WeekNumber  int
	Temperature int
	// Daily plan
	CharacterName string
}
