package main

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"caustic/cmd/caustic/ui"
	"caustic/internal/watch"
)

var watchRoot string

// watchCmd follows running searches in a terminal dashboard
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow running searches live",
	Long: `Opens a dashboard over the output tree. Each run the watcher sees
becomes a row, updated as samples accumulate; completions observed while
watching stay listed. Watching is read-only and can run beside any number
of pipelines.

Example:
  caustic watch
  caustic watch --root /mnt/shared/output`,
	RunE: handleWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchRoot, "root", "", "Output root to watch (default: config output_root)")
	rootCmd.AddCommand(watchCmd)
}

func handleWatch(cmd *cobra.Command, args []string) error {
	root := watchRoot
	if root == "" {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		root = cfg.OutputRoot
	}

	watcher, err := watch.New(root)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := watcher.Start(ctx); err != nil {
		return err
	}

	p := tea.NewProgram(
		newWatchModel(root, watcher.Events()),
		tea.WithAltScreen(),
	)
	_, runErr := p.Run()

	cancel()
	watcher.Stop()
	return runErr
}

type watchEventMsg watch.Event

type watchClosedMsg struct{}

type watchTickMsg time.Time

// watchModel wires the watcher's event stream into the dashboard page.
type watchModel struct {
	page   ui.WatchPageModel
	events <-chan watch.Event
}

func newWatchModel(root string, events <-chan watch.Event) watchModel {
	return watchModel{
		page:   ui.NewWatchPageModel(root, resultStyles()),
		events: events,
	}
}

// waitForEvent reads one watcher snapshot; the Update loop re-arms it
// after each message so the channel drains without blocking the UI.
func waitForEvent(events <-chan watch.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return watchClosedMsg{}
		}
		return watchEventMsg(ev)
	}
}

// watchTick refreshes the AGE column once a second.
func watchTick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return watchTickMsg(t)
	})
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(waitForEvent(m.events), watchTick())
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.page.SetSize(msg.Width, msg.Height)
		return m, nil
	case watchEventMsg:
		m.page.Apply(watch.Event(msg))
		return m, waitForEvent(m.events)
	case watchClosedMsg:
		return m, tea.Quit
	case watchTickMsg:
		m.page.Tick(time.Time(msg))
		return m, watchTick()
	}

	var cmd tea.Cmd
	m.page, cmd = m.page.Update(msg)
	return m, cmd
}

func (m watchModel) View() string {
	return m.page.View()
}
