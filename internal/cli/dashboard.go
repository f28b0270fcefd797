package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/straywatch/straywatch/internal/core"
	"github.com/straywatch/straywatch/internal/observability"
	"github.com/straywatch/straywatch/pkg/models"
)

// sparkBlocks are the chart glyphs from lowest to highest.
var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

type dashboardModel struct {
	view     *core.View
	metrics  *observability.Metrics
	interval time.Duration
	source   string
	width    int
	height   int

	frame   core.Frame
	polled  bool
	loading bool
	// gen invalidates pending ticks when a manual refresh reschedules polling.
	gen int
}

// frameMsg carries one poll result back to the model.
type frameMsg struct {
	frame core.Frame
}

// tickMsg schedules the next poll of generation gen.
type tickMsg struct {
	gen int
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 2)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62"))

	urgentBanner = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffffff")).
			Background(lipgloss.Color("#ff0000")).
			Padding(0, 1)
	infoBanner = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#000000")).
			Background(lipgloss.Color("#ffff66")).
			Padding(0, 1)
	normalBanner = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#000000")).
			Background(lipgloss.Color("#ccffcc")).
			Padding(0, 1)

	staleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true)
	chartStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// tierColors follow the status badge palette of the web dashboard.
var tierColors = map[core.Tier]string{
	core.TierSafe:     "#ccffcc",
	core.TierCaution:  "#ffff66",
	core.TierCritical: "#ff6666",
	core.TierDanger:   "#ff0000",
}

func newDashboardModel(view *core.View, metrics *observability.Metrics, interval time.Duration, source string) dashboardModel {
	return dashboardModel{
		view:     view,
		metrics:  metrics,
		interval: interval,
		source:   source,
		loading:  true,
	}
}

func (m dashboardModel) Init() tea.Cmd {
	return pollView(m.view)
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "r":
			if m.loading {
				return m, nil
			}
			m.gen++
			m.loading = true
			return m, pollView(m.view)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		if msg.gen != m.gen || m.loading {
			return m, nil
		}
		m.loading = true
		return m, pollView(m.view)

	case frameMsg:
		m.loading = false
		m.polled = true
		m.frame = msg.frame
		if m.metrics != nil {
			m.metrics.RecordPoll(msg.frame)
		}
		m.gen++
		return m, scheduleTick(m.interval, m.gen)
	}

	return m, nil
}

func pollView(view *core.View) tea.Cmd {
	return func() tea.Msg {
		return frameMsg{frame: view.Poll(context.Background())}
	}
}

func scheduleTick(interval time.Duration, gen int) tea.Cmd {
	return tea.Tick(interval, func(time.Time) tea.Msg {
		return tickMsg{gen: gen}
	})
}

func (m dashboardModel) View() string {
	title := titleStyle.Render(" Stray Dog Dashboard ")
	help := helpStyle.Render(fmt.Sprintf("r: refresh | q: quit | polling every %s", m.interval))

	if !m.polled {
		return fmt.Sprintf("%s\n\n  Loading observation log...\n\n%s", title, help)
	}

	width := m.width - 4
	if width < 40 {
		width = 40
	}

	var b strings.Builder
	b.WriteString(title)
	if m.source != "" {
		b.WriteString(helpStyle.Render("  " + m.source))
	}
	b.WriteString("\n\n")

	if m.frame.Stale {
		b.WriteString(staleStyle.Render(fmt.Sprintf("  STALE since %s: %v", m.frame.PolledAt.Format("15:04:05"), m.frame.Err)))
		b.WriteString("\n\n")
	}

	b.WriteString(renderBanner(m.frame))
	b.WriteString("\n\n")

	if m.frame.HasData {
		b.WriteString(panelStyle.Width(width).Render(renderStatus(m.frame)))
		b.WriteString("\n")
		b.WriteString(panelStyle.Width(width).Render(renderChart(m.frame.Series, width-6)))
		b.WriteString("\n")
	}
	b.WriteString(panelStyle.Width(width).Render(renderDetections(m.frame.Detected)))
	b.WriteString("\n")

	if n := len(m.frame.Skipped); n > 0 {
		b.WriteString(helpStyle.Render(fmt.Sprintf("  %d malformed row(s) skipped", n)))
		b.WriteString("\n")
	}
	if m.loading {
		b.WriteString(helpStyle.Render("  refreshing..."))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(help)
	return b.String()
}

func renderBanner(frame core.Frame) string {
	switch frame.Alert {
	case core.AlertUrgent:
		return urgentBanner.Render("⚠️ " + frame.Message)
	case core.AlertInformational:
		return infoBanner.Render(frame.Message)
	case core.AlertNormal:
		return normalBanner.Render("✅ " + frame.Message)
	default:
		return helpStyle.Render("  " + frame.Message)
	}
}

func renderStatus(frame core.Frame) string {
	s := frame.Summary
	badge := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#000000")).
		Background(lipgloss.Color(tierColors[s.Tier])).
		Padding(0, 1).
		Render(string(s.Tier))

	var b strings.Builder
	b.WriteString(headerStyle.Render("Status"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  %-20s %d\n", "Total dogs counted", s.Total)
	fmt.Fprintf(&b, "  %-20s %d\n", "Current dog count", s.Latest.Count)
	fmt.Fprintf(&b, "  %-20s %d\n", "Max dogs detected", frame.SessionMax)
	fmt.Fprintf(&b, "  %-20s %s", "Environment status", badge)
	return b.String()
}

func renderChart(series []models.Observation, width int) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Dog count over time"))
	b.WriteString("\n  ")
	b.WriteString(chartStyle.Render(sparkline(series, width)))
	if len(series) > 0 {
		first, last := series[0].Timestamp, series[len(series)-1].Timestamp
		if len(series) > width && width > 0 {
			first = series[len(series)-width].Timestamp
		}
		fmt.Fprintf(&b, "\n  %s .. %s", first.Format(models.RowTimeLayout), last.Format(models.RowTimeLayout))
	}
	return b.String()
}

// sparkline renders the last width counts of series scaled to the largest
// of them.
func sparkline(series []models.Observation, width int) string {
	if width > 0 && len(series) > width {
		series = series[len(series)-width:]
	}
	peak := 0
	for _, o := range series {
		peak = max(peak, o.Count)
	}
	out := make([]rune, len(series))
	for i, o := range series {
		level := 0
		if peak > 0 && o.Count > 0 {
			level = o.Count * (len(sparkBlocks) - 1) / peak
		}
		out[i] = sparkBlocks[level]
	}
	return string(out)
}

func renderDetections(rows []models.Observation) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Detections"))
	b.WriteString("\n")
	if len(rows) == 0 {
		b.WriteString("  No records with Dog Count >= 1.")
		return b.String()
	}
	fmt.Fprintf(&b, "  %-20s %-10s %s", models.ColumnTimestamp, models.ColumnCount, models.ColumnSource)
	for _, o := range rows {
		fmt.Fprintf(&b, "\n  %-20s %-10d %s", o.Timestamp.Format(models.RowTimeLayout), o.Count, o.Source)
	}
	return b.String()
}

var dashboardInterval time.Duration

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Live terminal dashboard of the observation log",
	Long: `Launch a terminal dashboard that polls the observation log and shows the
current, max and total dog counts, the environment status tier, the alert
banner, a count chart and the table of detections.

Refresh with r, quit with q.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		interval := dashboardInterval
		if interval == 0 && Config != nil {
			interval = Config.View.PollInterval
		}
		if interval < core.MinPollInterval || interval > core.MaxPollInterval {
			return fmt.Errorf("--interval must be between %s and %s", core.MinPollInterval, core.MaxPollInterval)
		}

		// Log lines would corrupt the alternate screen.
		view, err := newView(slog.New(slog.NewTextHandler(io.Discard, nil)))
		if err != nil {
			return err
		}

		p := tea.NewProgram(newDashboardModel(view, Metrics, interval, describeStore(Config.Store)), tea.WithAltScreen())
		_, err = p.Run()
		return err
	},
}

func init() {
	dashboardCmd.Flags().DurationVar(&dashboardInterval, "interval", 0, "poll interval (default from config)")
	rootCmd.AddCommand(dashboardCmd)
}
