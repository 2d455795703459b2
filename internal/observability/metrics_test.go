package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/x", "200", time.Second)
	m.APIInflightInc()
	m.ObservePipelineRun("weekly_village", "succeeded")
	m.ObserveStage("weekly_village", "narrate", "ok", time.Second)
	m.AddUserFailures("daily_village", "personal_goals", 2)
	m.ObserveGeneration("openai", "ok", time.Second)
	if err := m.WritePrometheus(&strings.Builder{}); err != nil {
		t.Fatalf("WritePrometheus on nil: %v", err)
	}

	rec := httptest.NewRecorder()
	m.WriteHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("nil metrics status=%d", rec.Code)
	}
}

func TestMetricsExposition(t *testing.T) {
	m := NewMetrics()
	m.ObservePipelineRun("weekly_village", "succeeded")
	m.ObservePipelineRun("weekly_village", "succeeded")
	m.ObservePipelineRun("daily_village", "")
	m.ObserveStage("weekly_village", "narrate", "ok", 3*time.Second)
	m.AddUserFailures("daily_village", "personal_goals", 2)
	m.AddUserFailures("daily_village", "personal_goals", 0)
	m.ObserveAPI("GET", `/api/"odd"`, "200", 20*time.Millisecond)
	m.APIInflightInc()
	m.APIInflightInc()
	m.APIInflightDec()

	if got := m.pipelineRuns.Value("weekly_village", "succeeded"); got != 2 {
		t.Fatalf("weekly succeeded=%v want 2", got)
	}
	if got := m.pipelineRuns.Value("daily_village", "unknown"); got != 1 {
		t.Fatalf("blank status should count as unknown, got %v", got)
	}
	if got := m.userFailures.Value("daily_village", "personal_goals"); got != 2 {
		t.Fatalf("user failures=%v want 2", got)
	}
	if got := m.stageLatency.Count("weekly_village", "narrate", "ok"); got != 1 {
		t.Fatalf("stage observations=%d want 1", got)
	}
	if got := m.apiInflight.Value(); got != 1 {
		t.Fatalf("inflight=%v want 1", got)
	}

	rec := httptest.NewRecorder()
	m.WriteHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{
		"# TYPE pinegate_pipeline_runs_total counter",
		`pinegate_pipeline_runs_total{pipeline="weekly_village",status="succeeded"} 2`,
		`pinegate_pipeline_stage_duration_seconds_bucket{pipeline="weekly_village",stage="narrate",status="ok",le="5"} 1`,
		`pinegate_pipeline_stage_duration_seconds_bucket{pipeline="weekly_village",stage="narrate",status="ok",le="1"} 0`,
		`pinegate_pipeline_stage_duration_seconds_count{pipeline="weekly_village",stage="narrate",status="ok"} 1`,
		`route="/api/\"odd\""`,
		"pinegate_api_inflight_requests 1",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("exposition missing %q\n%s", want, body)
		}
	}
}

func TestWithLe(t *testing.T) {
	if got := withLe("", "0.5"); got != `{le="0.5"}` {
		t.Fatalf("withLe empty=%s", got)
	}
	if got := withLe(`{a="b"}`, "+Inf"); got != `{a="b",le="+Inf"}` {
		t.Fatalf("withLe labels=%s", got)
	}
}
