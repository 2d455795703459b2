package schedule

const (
	WorkflowName        = "village_pipeline"
	ActivityRunPipeline = "village_run_pipeline"

	TriggeredBy = "temporal"
)

type RunInput struct {
	Pipeline string `json:"pipeline"`
}

type RunOutput struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
	Stage  string `json:"stage,omitempty"`
}

// Entry is one cron workflow: Pipeline runs on Cron (five fields, UTC).
type Entry struct {
	Pipeline string
	Cron     string
}

func WorkflowID(pipeline string) string { return "pinegate-cron-" + pipeline }
