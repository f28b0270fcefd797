package cli

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/straywatch/straywatch/internal/core"
	"github.com/straywatch/straywatch/internal/observability"
	"github.com/straywatch/straywatch/pkg/models"
)

var dashBase = time.Date(2025, 6, 10, 14, 0, 0, 0, time.UTC)

// memReader is an in-memory observation log for command and dashboard tests.
type memReader struct {
	mu   sync.Mutex
	rows []models.Row
	err  error
}

func (r *memReader) ReadAll(_ context.Context) ([]models.Row, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	return append([]models.Row(nil), r.rows...), nil
}

func (r *memReader) add(sec, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	obs := models.Observation{
		Timestamp: dashBase.Add(time.Duration(sec) * time.Second),
		Count:     count,
		Source:    models.SourceWebcam,
	}
	r.rows = append(r.rows, obs.Row())
}

func newTestDashboard(r *memReader) dashboardModel {
	view := core.NewView(r, core.ViewOptions{})
	return newDashboardModel(view, observability.NewMetrics(), 5*time.Second, "memory")
}

// pollOnce runs the pending poll command and feeds its frame back.
func pollOnce(t *testing.T, m dashboardModel, cmd tea.Cmd) (dashboardModel, tea.Cmd) {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a poll command")
	}
	msg, ok := cmd().(frameMsg)
	if !ok {
		t.Fatal("expected poll command to produce frameMsg")
	}
	updated, next := m.Update(msg)
	return updated.(dashboardModel), next
}

func TestDashboardModel_Init(t *testing.T) {
	m := newTestDashboard(&memReader{})
	if !m.loading {
		t.Error("expected loading = true on init")
	}
	if m.Init() == nil {
		t.Error("expected Init to return the first poll")
	}
	if !strings.Contains(m.View(), "Loading observation log") {
		t.Errorf("unexpected view before first poll:\n%s", m.View())
	}
}

func TestDashboardModel_QuitKeys(t *testing.T) {
	keys := []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune{'q'}},
		{Type: tea.KeyEscape},
		{Type: tea.KeyCtrlC},
	}
	for _, key := range keys {
		m := newTestDashboard(&memReader{})
		_, cmd := m.Update(key)
		if cmd == nil {
			t.Fatalf("%s: expected tea.Quit command", key)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("%s: expected tea.QuitMsg", key)
		}
	}
}

func TestDashboardModel_FirstFrameSchedulesTick(t *testing.T) {
	r := &memReader{}
	r.add(0, 2)
	m := newTestDashboard(r)

	m, next := pollOnce(t, m, m.Init())
	if m.loading {
		t.Error("expected loading = false after frame")
	}
	if !m.polled || !m.frame.HasData {
		t.Fatal("expected a frame with data")
	}
	if m.frame.Summary.Latest.Count != 2 {
		t.Errorf("latest = %d, want 2", m.frame.Summary.Latest.Count)
	}
	if next == nil {
		t.Error("expected next tick to be scheduled")
	}
	if got := m.metrics.Snapshot().Polls; got != 1 {
		t.Errorf("metrics polls = %d, want 1", got)
	}
}

func TestDashboardModel_TickPolls(t *testing.T) {
	m := newTestDashboard(&memReader{})
	m, _ = pollOnce(t, m, m.Init())

	updated, cmd := m.Update(tickMsg{gen: m.gen})
	dm := updated.(dashboardModel)
	if !dm.loading {
		t.Error("expected loading after current tick")
	}
	if cmd == nil {
		t.Error("expected poll command from current tick")
	}
}

func TestDashboardModel_StaleTickDropped(t *testing.T) {
	m := newTestDashboard(&memReader{})
	m, _ = pollOnce(t, m, m.Init())

	updated, cmd := m.Update(tickMsg{gen: m.gen - 1})
	if cmd != nil {
		t.Error("expected tick from an old generation to be dropped")
	}
	if updated.(dashboardModel).loading {
		t.Error("expected no poll for an old tick")
	}
}

func TestDashboardModel_TickWhileLoadingDropped(t *testing.T) {
	m := newTestDashboard(&memReader{})
	// Still loading the first frame.
	_, cmd := m.Update(tickMsg{gen: m.gen})
	if cmd != nil {
		t.Error("expected tick during a poll to be dropped")
	}
}

func TestDashboardModel_RefreshKey(t *testing.T) {
	m := newTestDashboard(&memReader{})

	// Ignored while the first poll is in flight.
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	if cmd != nil {
		t.Error("expected r to be ignored while loading")
	}

	m, _ = pollOnce(t, m, m.Init())
	pending := m.gen

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	dm := updated.(dashboardModel)
	if !dm.loading {
		t.Error("expected loading = true after pressing r")
	}
	if cmd == nil {
		t.Fatal("expected a poll command from r")
	}

	// The tick scheduled before the refresh no longer polls.
	dm, _ = pollOnce(t, dm, cmd)
	if _, cmd := dm.Update(tickMsg{gen: pending}); cmd != nil {
		t.Error("expected the pre-refresh tick to be dropped")
	}
}

func TestDashboardModel_WindowSize(t *testing.T) {
	m := newTestDashboard(&memReader{})
	updated, cmd := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	if cmd != nil {
		t.Error("expected no command from window size")
	}
	dm := updated.(dashboardModel)
	if dm.width != 100 || dm.height != 40 {
		t.Errorf("size = %dx%d, want 100x40", dm.width, dm.height)
	}
}

func TestDashboardModel_ViewUrgent(t *testing.T) {
	r := &memReader{}
	r.add(0, 0)
	m := newTestDashboard(r)
	m.width = 100
	m, _ = pollOnce(t, m, m.Init())

	r.add(5, 3)
	m.loading = true
	m, _ = pollOnce(t, m, pollView(m.view))

	view := m.View()
	for _, want := range []string{
		"⚠️ Dog Detected: 3 dog(s) at 2025-06-10 14:00:05",
		"Danger",
		"Total dogs counted",
		"Detections",
		"webcam",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestRenderBanner_ShowsAlertMessage(t *testing.T) {
	tests := []struct {
		name  string
		frame core.Frame
		want  string
	}{
		{"urgent", core.Frame{Alert: core.AlertUrgent, Message: "Dog Detected: 2 dog(s) at 2025-06-10 14:00:00"}, "⚠️ Dog Detected: 2 dog(s) at 2025-06-10 14:00:00"},
		{"normal", core.Frame{Alert: core.AlertNormal, Message: "No dogs detected"}, "✅ No dogs detected"},
		{"informational", core.Frame{Alert: core.AlertInformational, Message: "2 dog(s) present since 2025-06-10 14:00:00"}, "2 dog(s) present since 2025-06-10 14:00:00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := renderBanner(tt.frame); !strings.Contains(got, tt.want) {
				t.Errorf("renderBanner() = %q, want it to contain %q", got, tt.want)
			}
		})
	}
}

func TestDashboardModel_ViewNoDogs(t *testing.T) {
	r := &memReader{}
	r.add(0, 0)
	m := newTestDashboard(r)
	m, _ = pollOnce(t, m, m.Init())

	view := m.View()
	if !strings.Contains(view, "No dogs detected") {
		t.Errorf("expected normal banner:\n%s", view)
	}
	if !strings.Contains(view, "No records with Dog Count >= 1.") {
		t.Errorf("expected empty table text:\n%s", view)
	}
	if !strings.Contains(view, "Safe") {
		t.Errorf("expected Safe tier:\n%s", view)
	}
}

func TestDashboardModel_ViewEmptyLog(t *testing.T) {
	m := newTestDashboard(&memReader{})
	m, _ = pollOnce(t, m, m.Init())

	view := m.View()
	if !strings.Contains(view, "No dog detection data available yet.") {
		t.Errorf("expected no-data message:\n%s", view)
	}
	if strings.Contains(view, "Environment status") {
		t.Errorf("expected no status panel without data:\n%s", view)
	}
}

func TestDashboardModel_ViewStaleKeepsData(t *testing.T) {
	r := &memReader{}
	r.add(0, 1)
	m := newTestDashboard(r)
	m, _ = pollOnce(t, m, m.Init())

	r.err = errors.New("sheet offline")
	m.loading = true
	m, _ = pollOnce(t, m, pollView(m.view))

	if !m.frame.Stale {
		t.Fatal("expected a stale frame")
	}
	view := m.View()
	if !strings.Contains(view, "STALE") || !strings.Contains(view, "sheet offline") {
		t.Errorf("expected stale indicator:\n%s", view)
	}
	if !strings.Contains(view, "Caution") {
		t.Errorf("expected previous data to remain:\n%s", view)
	}
}

func TestSparkline(t *testing.T) {
	obs := func(counts ...int) []models.Observation {
		out := make([]models.Observation, len(counts))
		for i, c := range counts {
			out[i] = models.Observation{Timestamp: dashBase.Add(time.Duration(i) * time.Second), Count: c}
		}
		return out
	}

	tests := []struct {
		name   string
		series []models.Observation
		width  int
		want   string
	}{
		{"empty", nil, 10, ""},
		{"all zero", obs(0, 0, 0), 10, "▁▁▁"},
		{"scaled to peak", obs(0, 1, 2), 10, "▁▄█"},
		{"truncated to width", obs(7, 0, 1), 2, "▁█"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sparkline(tt.series, tt.width); got != tt.want {
				t.Errorf("sparkline = %q, want %q", got, tt.want)
			}
		})
	}
}
