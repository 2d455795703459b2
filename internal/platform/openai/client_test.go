package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yungbote/pinegate-backend/internal/platform/logger"
)

func assistantPayload(text string) map[string]any {
	return map[string]any{
		"output": []map[string]any{{
			"type": "message",
			"role": "assistant",
			"content": []map[string]any{
				{"type": "output_text", "text": text},
			},
		}},
	}
}

func newTestClient(t *testing.T, url string, retries int) Client {
	t.Helper()
	c, err := NewClient(logger.NewNop(), Config{
		APIKey:     "sk-test",
		BaseURL:    url,
		Model:      "test-model",
		Timeout:    5 * time.Second,
		MaxRetries: retries,
		RetryBase:  time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	if _, err := NewClient(logger.NewNop(), Config{}); err == nil {
		t.Fatalf("expected error for missing api key")
	}
}

func TestGenerateJSONTextSendsJSONModeAndReturnsText(t *testing.T) {
	var got responsesRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/responses" {
			t.Errorf("path: want=/v1/responses got=%s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("missing bearer auth")
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(assistantPayload(`{"ok":true}`))
	}))
	defer srv.Close()

	text, err := newTestClient(t, srv.URL, 0).GenerateJSONText(context.Background(), "sys", "usr")
	if err != nil {
		t.Fatalf("GenerateJSONText: %v", err)
	}
	if text != `{"ok":true}` {
		t.Fatalf("text: got %q", text)
	}
	if got.Text == nil || got.Text.Format["type"] != "json_object" {
		t.Fatalf("expected json_object format, got %#v", got.Text)
	}
	if len(got.Input) != 2 || got.Input[0].Role != "system" || got.Input[1].Content != "usr" {
		t.Fatalf("unexpected input: %#v", got.Input)
	}
}

func TestGenerateTextRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(assistantPayload("hello"))
	}))
	defer srv.Close()

	text, err := newTestClient(t, srv.URL, 3).GenerateText(context.Background(), "sys", "usr")
	if err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if text != "hello" || atomic.LoadInt32(&calls) != 3 {
		t.Fatalf("text=%q calls=%d", text, calls)
	}
}

func TestGenerateTextDoesNotRetryBadRequest(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"bad"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, 3).GenerateText(context.Background(), "sys", "usr")
	if err == nil {
		t.Fatalf("expected error")
	}
	var httpErr *openAIHTTPError
	if !asHTTPError(err, &httpErr) || httpErr.HTTPStatusCode() != http.StatusBadRequest {
		t.Fatalf("expected 400 openAIHTTPError, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("calls: want=1 got=%d", calls)
	}
}

func TestGenerateTextEmptyOutputIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"output": []any{}})
	}))
	defer srv.Close()

	if _, err := newTestClient(t, srv.URL, 0).GenerateText(context.Background(), "sys", "usr"); err == nil {
		t.Fatalf("expected error for empty output")
	}
}

func asHTTPError(err error, target **openAIHTTPError) bool {
	e, ok := err.(*openAIHTTPError)
	if ok {
		*target = e
	}
	return ok
}
