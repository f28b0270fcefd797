package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/straywatch/straywatch/internal/core"
	"github.com/straywatch/straywatch/internal/observability"
	"github.com/straywatch/straywatch/pkg/models"
)

type fakeReader struct {
	mu   sync.Mutex
	rows []models.Row
	err  error
}

func (f *fakeReader) ReadAll(_ context.Context) ([]models.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.rows, nil
}

func (f *fakeReader) add(sec, count int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ts := time.Date(2025, 6, 10, 14, 0, sec, 0, time.UTC)
	f.rows = append(f.rows, models.Observation{Timestamp: ts, Count: count, Source: models.SourceWebcam}.Row())
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls [][]observability.Alert
	err   error
}

func (n *recordingNotifier) Notify(_ context.Context, alerts []observability.Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, alerts)
	return n.err
}

func newTestServer(reader *fakeReader, notifier observability.Notifier) *Server {
	view := core.NewView(reader, core.ViewOptions{Location: time.UTC})
	return NewServer(view, Options{Notifier: notifier})
}

func get(t *testing.T, h http.Handler, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	var body map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decoding %s response: %v", target, err)
		}
	}
	return rec, body
}

func TestServer_Health(t *testing.T) {
	s := newTestServer(&fakeReader{}, nil)
	rec, body := get(t, s.Routes(), "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body["status"] != "ok" || body["polled"] != false {
		t.Errorf("unexpected body %v", body)
	}
}

func TestServer_UnavailableBeforeFirstPoll(t *testing.T) {
	s := newTestServer(&fakeReader{}, nil)
	for _, path := range []string{"/api/frame", "/api/summary", "/api/alert", "/api/observations"} {
		rec, _ := get(t, s.Routes(), path)
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s: status = %d, want 503", path, rec.Code)
		}
	}
}

func TestServer_SummaryAndAlert(t *testing.T) {
	reader := &fakeReader{}
	s := newTestServer(reader, nil)
	h := s.Routes()

	s.Refresh(context.Background())
	_, body := get(t, h, "/api/summary")
	if body["has_data"] != false || body["message"] != "No dog detection data available yet." {
		t.Errorf("unexpected empty summary %v", body)
	}

	for i, c := range []int{0, 1, 1, 3} {
		reader.add(i+1, c)
	}
	s.Refresh(context.Background())

	_, body = get(t, h, "/api/summary")
	if body["max_count"] != float64(3) || body["total"] != float64(5) || body["tier"] != string(core.TierDanger) {
		t.Errorf("unexpected summary %v", body)
	}

	_, body = get(t, h, "/api/alert")
	// The first poll with data sets the change baseline, so it is not urgent.
	if body["alert"] != string(core.AlertInformational) || body["changed"] != false {
		t.Errorf("unexpected alert %v", body)
	}
}

func TestServer_Observations(t *testing.T) {
	reader := &fakeReader{}
	for i, c := range []int{0, 2, 0, 1, 4} {
		reader.add(i+1, c)
	}
	s := newTestServer(reader, nil)
	s.Refresh(context.Background())
	h := s.Routes()

	_, body := get(t, h, "/api/observations?min=1&limit=2")
	rows, ok := body["observations"].([]any)
	if !ok || len(rows) != 2 {
		t.Fatalf("expected 2 observations, got %v", body["observations"])
	}
	newest := rows[0].(map[string]any)
	if newest["count"] != float64(4) {
		t.Errorf("expected newest first, got %v", newest)
	}

	rec, _ := get(t, h, "/api/observations?min=abc")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}

	_, body = get(t, h, "/api/observations?min=9")
	if rows := body["observations"].([]any); len(rows) != 0 {
		t.Errorf("expected empty table, got %v", rows)
	}
}

func TestServer_StaleFrameKeepsData(t *testing.T) {
	reader := &fakeReader{}
	reader.add(1, 2)
	s := newTestServer(reader, nil)
	s.Refresh(context.Background())

	reader.err = errors.New("sheet unreachable")
	s.Refresh(context.Background())

	_, body := get(t, s.Routes(), "/api/frame")
	if body["stale"] != true {
		t.Errorf("expected stale frame, got %v", body)
	}
	if !strings.Contains(body["error"].(string), "sheet unreachable") {
		t.Errorf("expected error text, got %v", body["error"])
	}
	if body["has_data"] != true {
		t.Errorf("expected previous data to be retained")
	}
}

func TestServer_NotifiesOnUrgent(t *testing.T) {
	reader := &fakeReader{}
	reader.add(1, 0)
	notifier := &recordingNotifier{}
	s := newTestServer(reader, notifier)

	s.Refresh(context.Background())
	reader.add(2, 2)
	s.Refresh(context.Background())
	s.Refresh(context.Background())

	if len(notifier.calls) != 1 {
		t.Fatalf("expected one notification, got %d", len(notifier.calls))
	}
	if notifier.calls[0][0].Condition != observability.ConditionDogDetected {
		t.Errorf("unexpected alert %+v", notifier.calls[0][0])
	}
}

func TestServer_NotifyErrorIsCounted(t *testing.T) {
	reader := &fakeReader{}
	reader.add(1, 0)
	notifier := &recordingNotifier{err: errors.New("webhook down")}
	s := newTestServer(reader, notifier)

	s.Refresh(context.Background())
	reader.add(2, 1)
	s.Refresh(context.Background())

	if got := s.opts.Metrics.Snapshot().NotifyErrors; got != 1 {
		t.Errorf("NotifyErrors = %d, want 1", got)
	}
}

func TestServer_RefreshEndpointAndMetrics(t *testing.T) {
	reader := &fakeReader{}
	reader.add(1, 1)
	s := newTestServer(reader, nil)
	h := s.Routes()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/refresh", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "straywatch_polls_total 1") {
		t.Errorf("expected poll counter in metrics output")
	}
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	s := newTestServer(&fakeReader{}, nil)
	s.opts.Interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	if _, polled := s.Frame(); !polled {
		t.Error("expected at least one poll")
	}
}
