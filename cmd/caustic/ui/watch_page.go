package ui

import (
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"caustic/internal/watch"
)

// WatchPageModel renders the live state of an output tree: one row per run
// the watcher has reported, updated as snapshot events arrive. Completed
// runs stay listed so a finished chain remains readable until quit.
type WatchPageModel struct {
	width  int
	height int
	table  table.Model

	root string
	runs map[string]watch.Event // keyed by run directory
	now  time.Time

	styles Styles
}

// NewWatchPageModel creates a watch dashboard over the given output root.
func NewWatchPageModel(root string, styles Styles) WatchPageModel {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "RUN", Width: 32},
			{Title: "STATE", Width: 10},
			{Title: "SEARCH", Width: 8},
			{Title: "DATASET", Width: 14},
			{Title: "SAMPLES", Width: 8},
			{Title: "BEST LOG L", Width: 12},
			{Title: "AGE", Width: 6},
		}),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	return WatchPageModel{
		table:  t,
		root:   root,
		runs:   make(map[string]watch.Event),
		now:    time.Now(),
		styles: styles,
	}
}

// Init initializes the model.
func (m WatchPageModel) Init() tea.Cmd {
	return nil
}

// Update handles messages, delegating navigation to the table.
func (m WatchPageModel) Update(msg tea.Msg) (WatchPageModel, tea.Cmd) {
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// Apply records one watcher snapshot and refreshes the table.
func (m *WatchPageModel) Apply(ev watch.Event) {
	m.runs[ev.Dir] = ev
	m.refreshRows()
}

// Tick advances the clock the AGE column is computed against.
func (m *WatchPageModel) Tick(now time.Time) {
	m.now = now
	m.refreshRows()
}

// SetSize updates the size.
func (m *WatchPageModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.table.SetWidth(w - 2)
	if h > 9 {
		m.table.SetHeight(h - 9)
	}
}

// Runs reports how many runs are listed and how many are still live.
func (m WatchPageModel) Runs() (running, total int) {
	for _, ev := range m.runs {
		if ev.Kind == watch.KindRunning {
			running++
		}
	}
	return running, len(m.runs)
}

func (m *WatchPageModel) refreshRows() {
	dirs := make([]string, 0, len(m.runs))
	for dir := range m.runs {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	rows := make([]table.Row, 0, len(dirs))
	for _, dir := range dirs {
		ev := m.runs[dir]
		rows = append(rows, table.Row{
			m.runLabel(dir),
			string(ev.Kind),
			ev.Search,
			ev.Dataset,
			fmt.Sprintf("%d", ev.Samples),
			formatLogL(ev.BestLogLikelihood),
			formatAge(m.now, ev.LastBeat),
		})
	}
	m.table.SetRows(rows)
}

// runLabel strips the output root and the trailing identifier level, so a
// run reads as pipeline/step rather than a hash path.
func (m *WatchPageModel) runLabel(dir string) string {
	rel, err := filepath.Rel(m.root, dir)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = dir
	}
	if parent := filepath.Dir(rel); parent != "." {
		return parent
	}
	return rel
}

// View renders the dashboard.
func (m WatchPageModel) View() string {
	var sb strings.Builder

	sb.WriteString(m.styles.Header.Render(" caustic watch ") + "\n\n")
	sb.WriteString(m.styles.Muted.Render("root: "+m.root) + "\n\n")

	if len(m.runs) == 0 {
		sb.WriteString(m.styles.Muted.Render("No runs yet. Searches appear here as their output directories fill."))
		sb.WriteString("\n")
	} else {
		sb.WriteString(m.table.View())
		sb.WriteString("\n")
	}

	running, total := m.Runs()
	status := fmt.Sprintf("%d running / %d seen", running, total)
	sb.WriteString("\n" + m.styles.Footer.Render(status+"   [q] quit"))

	return sb.String()
}

// formatLogL leaves a dash until a run has reported any likelihood: the
// tail starts from -Inf so a comparison always improves on it.
func formatLogL(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, -1) {
		return "-"
	}
	return fmt.Sprintf("%.2f", v)
}

// formatAge is blank-dashed for completed runs, which carry no heartbeat.
func formatAge(now, beat time.Time) string {
	if beat.IsZero() || now.Before(beat) {
		return "-"
	}
	return now.Sub(beat).Truncate(time.Second).String()
}
