package observability

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSlackNotifier_NoAlerts(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, srv.Client())
	if err := n.Notify(context.Background(), nil); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := n.Notify(context.Background(), []Alert{}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if called {
		t.Fatal("expected no HTTP request for empty alerts")
	}
}

func TestSlackNotifier_SendsAlerts(t *testing.T) {
	var receivedBody []byte
	var receivedContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedContentType = r.Header.Get("Content-Type")
		var err error
		receivedBody, err = io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("reading request body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	at := time.Date(2025, 6, 10, 14, 30, 0, 0, time.UTC)
	alerts := []Alert{
		{ID: "dog-1", Condition: ConditionDogDetected, Severity: SeverityHigh, Message: "Dog Detected: 2 dog(s) at 2025-06-10 14:30:00", TriggeredAt: at},
		{ID: "stale-1", Condition: ConditionFeedUnreachable, Severity: SeverityMedium, Message: "observation log unreadable for 3 consecutive polls", TriggeredAt: at},
	}

	n := NewSlackNotifier(srv.URL, srv.Client())
	if err := n.Notify(context.Background(), alerts); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if receivedContentType != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", receivedContentType)
	}

	var msg slackMessage
	if err := json.Unmarshal(receivedBody, &msg); err != nil {
		t.Fatalf("unmarshaling request body: %v", err)
	}

	// header + section + divider + section
	if len(msg.Blocks) != 4 {
		t.Fatalf("expected 4 blocks, got %d", len(msg.Blocks))
	}
	wantTypes := []string{"header", "section", "divider", "section"}
	for i, want := range wantTypes {
		if msg.Blocks[i].Type != want {
			t.Errorf("block %d: expected type %s, got %s", i, want, msg.Blocks[i].Type)
		}
	}
	if msg.Blocks[0].Text == nil || msg.Blocks[0].Text.Text != "straywatch alert" {
		t.Errorf("unexpected header %v", msg.Blocks[0].Text)
	}

	body := string(receivedBody)
	if !strings.Contains(body, "Dog Detected: 2 dog(s)") {
		t.Error("expected body to contain the detection message")
	}
	if !strings.Contains(body, "[MEDIUM]") {
		t.Error("expected body to contain the severity tag")
	}
}

func TestSlackNotifier_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, srv.Client())
	err := n.Notify(context.Background(), []Alert{{ID: "x", Severity: SeverityHigh, Message: "test", TriggeredAt: time.Now()}})
	if err == nil {
		t.Fatal("expected error for 500 response, got nil")
	}
	if !strings.Contains(err.Error(), "500") {
		t.Errorf("expected error to contain status code 500, got: %s", err.Error())
	}
}

func TestSeverityEmoji(t *testing.T) {
	tests := []struct {
		severity AlertSeverity
		emoji    string
	}{
		{SeverityHigh, "\U0001f6a8"},
		{SeverityMedium, "\U0001f7e1"},
		{SeverityLow, "\U0001f535"},
		{"unknown", "❓"},
	}
	for _, tt := range tests {
		t.Run(string(tt.severity), func(t *testing.T) {
			if got := severityEmoji(tt.severity); got != tt.emoji {
				t.Errorf("severityEmoji(%s) = %q, want %q", tt.severity, got, tt.emoji)
			}
		})
	}
}
