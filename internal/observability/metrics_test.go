package observability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func testNamespace(prefix string) string {
	return fmt.Sprintf("%s_%d", prefix, time.Now().UnixNano())
}

func scrape(t *testing.T) string {
	t.Helper()
	rec := httptest.NewRecorder()
	MetricsHandler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	return string(body)
}

func TestMetrics_Record(t *testing.T) {
	ns := testNamespace("docbot_test_record")
	m := NewMetrics(ns, nil)

	m.Ingested("text", 3, nil)
	m.Ingested("image", 0, errors.New("ocr failed"))
	m.Responded("list_files", 2*time.Millisecond, nil)
	m.CollaboratorCall("llm", time.Second, fmt.Errorf("wrapped: %w", context.DeadlineExceeded))

	out := scrape(t)
	for _, want := range []string{
		ns + `_ingestions_total{category="text",outcome="ok"} 1`,
		ns + `_ingestions_total{category="image",outcome="error"} 1`,
		ns + `_chunks_stored_total{category="text"} 3`,
		ns + `_responses_total{intent="list_files",outcome="ok"} 1`,
		ns + `_collaborator_calls_total{collaborator="llm",outcome="timeout"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestMetricsHandler_ExposesSessions(t *testing.T) {
	ns := testNamespace("docbot_test_handler")
	NewMetrics(ns, func() int { return 3 })

	want := ns + "_active_sessions 3"
	if !strings.Contains(scrape(t), want) {
		t.Errorf("metrics output missing %q", want)
	}
}
