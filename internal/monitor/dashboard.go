package monitor

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/NimbleMarkets/ntcharts/sparkline"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	sparklineWidth  = 30
	sparklineHeight = 3
	historySize     = 30
)

// Model represents the BubbleTea sync status dashboard model.
type Model struct {
	serverURL  string
	interval   time.Duration
	lastUpdate time.Time
	status     StatusResponse
	err        error
	quitting   bool

	queueHistory    []float64
	inFlightHistory []float64
	queuePeak       float64

	loadProgress progress.Model
}

// Lipgloss styles (k9s-inspired color scheme)
var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("51")).
			Bold(true).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true).
			MarginTop(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("45"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	healthyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("226")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	containerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(1, 2)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			MarginTop(1)

	footerKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true)

	sparklineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51"))
)

// NewModel creates a new dashboard model polling serverURL's introspection API.
func NewModel(serverURL string, interval time.Duration) Model {
	loadProg := progress.New(
		progress.WithGradient("#00ff00", "#ff0000"),
		progress.WithWidth(40),
	)

	return Model{
		serverURL:       serverURL,
		interval:        interval,
		loadProgress:    loadProg,
		queueHistory:    make([]float64, 0, historySize),
		inFlightHistory: make([]float64, 0, historySize),
		queuePeak:       1.0,
	}
}

func getDirtyBadge(dirty bool) string {
	if dirty {
		return warningStyle.Render("[~] syncing")
	}
	return healthyStyle.Render("[✓] idle")
}

func getConnectionBadge(c ConnectionStatus) string {
	if c.Sending {
		return warningStyle.Render("[→]")
	}
	if c.SendQueueDepth > 0 || c.InFlightCalls > 0 {
		return warningStyle.Render("[~]")
	}
	return healthyStyle.Render("[✓]")
}

// queueGrowthRate returns the send-queue depth's rate of change, extrapolated
// to calls/min from the last two polls, so an operator can tell a climbing
// queue (server can't keep up) from one that's draining.
func (m Model) queueGrowthRate() float64 {
	n := len(m.queueHistory)
	if n < 2 || m.interval <= 0 {
		return 0
	}
	delta := m.queueHistory[n-1] - m.queueHistory[n-2]
	return delta * time.Minute.Seconds() / m.interval.Seconds()
}

func appendToHistory(history []float64, value float64) []float64 {
	history = append(history, value)
	if len(history) > historySize {
		history = history[1:]
	}
	return history
}

func createSparkline(data []float64) string {
	if len(data) == 0 {
		return dimStyle.Render(fmt.Sprintf("%*s", sparklineWidth, "no data"))
	}

	spark := sparkline.New(sparklineWidth, sparklineHeight)
	for _, v := range data {
		spark.Push(v)
	}

	return sparklineStyle.Render(spark.View())
}

// Message types
type tickMsg time.Time
type statusMsg StatusResponse
type errMsg error

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tick(m.interval),
		fetchStatus(m.serverURL),
	)
}

func tick(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchStatus(serverURL string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		client := NewStatusClient(serverURL)
		status, err := client.FetchStatus(ctx)
		if err != nil {
			return errMsg(err)
		}
		return statusMsg(status)
	}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "r":
			return m, fetchStatus(m.serverURL)
		}

	case tickMsg:
		return m, tea.Batch(
			tick(m.interval),
			fetchStatus(m.serverURL),
		)

	case statusMsg:
		status := StatusResponse(msg)

		m.queueHistory = appendToHistory(m.queueHistory, float64(status.TotalQueueDepth()))
		m.inFlightHistory = appendToHistory(m.inFlightHistory, float64(status.TotalInFlight()))

		if float64(status.TotalQueueDepth()) > m.queuePeak {
			m.queuePeak = float64(status.TotalQueueDepth())
		}

		m.status = status
		m.lastUpdate = time.Now()
		m.err = nil
		return m, nil

	case errMsg:
		m.err = error(msg)
		return m, nil
	}

	return m, nil
}

// View renders the dashboard
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	if m.err != nil {
		return m.renderError()
	}

	return m.renderDashboard()
}

func (m Model) renderError() string {
	header := headerStyle.Render(" joltsync Monitor ")

	var content string
	content += "\n"
	content += errorStyle.Render("⚠ Cannot connect to introspection server") + "\n"
	content += "\n"
	content += dimStyle.Render("URL: ") + valueStyle.Render(m.serverURL) + "\n"
	content += dimStyle.Render("Error: ") + errorStyle.Render(m.err.Error()) + "\n"
	content += "\n"
	content += dimStyle.Render("Please ensure joltsyncd is running with introspection enabled.") + "\n"
	content += "\n"
	content += footerStyle.Render("[q] quit  [r] retry") + "\n"

	return containerStyle.Render(header + "\n" + content)
}

func (m Model) renderDashboard() string {
	var content string

	lastUpdateStr := "Never"
	if !m.lastUpdate.IsZero() {
		lastUpdateStr = m.lastUpdate.Format("3:04:05 PM")
	}

	header := headerStyle.Render(" joltsync Monitor ")
	statusBadge := getDirtyBadge(m.status.Dirty)
	headerLine := fmt.Sprintf("%s   %s   %s   %s   %s",
		statusBadge,
		dimStyle.Render("Groups:"),
		valueStyle.Render(fmt.Sprintf("%d", len(m.status.Connections))),
		dimStyle.Render("Uptime:")+" "+valueStyle.Render(FormatUptime(m.status.UptimeSeconds)),
		dimStyle.Render("Mem:")+" "+valueStyle.Render(FormatMemory(m.status.MemoryBytes)))

	content += header + "\n"
	content += headerLine + "   " + dimStyle.Render(lastUpdateStr) + "\n"

	content += "\n" + sectionStyle.Render("┃ Send Queue") + "\n"
	queueSparkline := createSparkline(m.queueHistory)
	content += labelStyle.Render("  Depth: ") +
		valueStyle.Render(fmt.Sprintf("%d", m.status.TotalQueueDepth())) +
		"   " + queueSparkline +
		"   " + dimStyle.Render(FormatRate(m.queueGrowthRate())) + "\n"

	loadPercent := 0.0
	if m.queuePeak > 0 {
		loadPercent = float64(m.status.TotalQueueDepth()) / m.queuePeak
		if loadPercent > 1.0 {
			loadPercent = 1.0
		}
	}
	content += labelStyle.Render("  Load: ") +
		m.loadProgress.ViewAs(loadPercent) +
		" " + dimStyle.Render(FormatPercentage(loadPercent)) + "\n"

	content += "\n" + sectionStyle.Render("┃ In Flight") + "\n"
	inFlightSparkline := createSparkline(m.inFlightHistory)
	content += labelStyle.Render("  Calls: ") +
		valueStyle.Render(fmt.Sprintf("%d", m.status.TotalInFlight())) +
		"   " + inFlightSparkline + "\n"

	content += "\n" + sectionStyle.Render("┃ Data Groups") + "\n"

	groups := make([]string, 0, len(m.status.Connections))
	for g := range m.status.Connections {
		groups = append(groups, g)
	}
	sort.Strings(groups)

	for _, g := range groups {
		c := m.status.Connections[g]
		badge := getConnectionBadge(c)
		content += fmt.Sprintf("  %s %s  queue=%s  inflight=%s  fetches=%s\n",
			badge,
			valueStyle.Render(g),
			dimStyle.Render(fmt.Sprintf("%d", c.SendQueueDepth)),
			dimStyle.Render(fmt.Sprintf("%d", c.InFlightCalls)),
			dimStyle.Render(fmt.Sprintf("%d", c.TypeFetchesPending+c.RecordFetchesPending)))
	}

	footer := footerKeyStyle.Render("[q]") + footerStyle.Render(" quit  ") +
		footerKeyStyle.Render("[r]") + footerStyle.Render(" refresh  ") +
		footerStyle.Render(fmt.Sprintf("Auto: %v", m.interval))

	content += "\n" + footer

	return containerStyle.Render(content)
}
