package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/ytmigrate/internal/services"
	"github.com/desertthunder/ytmigrate/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	PlaylistListView ViewState = iota
	ConfirmView
	MigrateView
	ResultView
)

const recentLines = 8

// RunFunc starts a migration restricted to the given source playlist ids, or all playlists when only is empty.
type RunFunc func(ctx context.Context, only []string, progress chan<- tasks.ProgressUpdate) (*tasks.RunSummary, error)

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	source       services.Source
	run          RunFunc
	autoStart    bool
	width        int
	height       int
	playlistList list.Model
	loaded       bool
	only         []string
	progressChan chan tasks.ProgressUpdate
	doneChan     chan Msg
	playlist     tasks.ProgressUpdate
	tracks       tasks.ProgressUpdate
	recent       []string
	summary      *tasks.RunSummary
	err          error
	spinner      spinner.Model
	bar          progress.Model
	help         help.Model
	keys         keyMap
}

// NewModel creates a TUI that lists source playlists and runs migrations through run.
func NewModel(ctx context.Context, source services.Source, run RunFunc) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.ok

	return &Model{
		ctx:     ctx,
		view:    PlaylistListView,
		source:  source,
		run:     run,
		spinner: s,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// AutoStart skips playlist selection and migrates only (or everything) as soon as the program starts.
func (m *Model) AutoStart(only []string) *Model {
	m.autoStart = true
	m.only = only
	return m
}

// Summary returns the finished run's summary, if any.
func (m *Model) Summary() (*tasks.RunSummary, error) {
	return m.summary, m.err
}

// Init fetches playlists, or starts the migration right away in auto-start mode.
func (m *Model) Init() tea.Cmd {
	if m.autoStart {
		return m.startMigration()
	}
	return m.fetchPlaylists()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.loaded {
			m.playlistList.SetSize(msg.Width-4, msg.Height-8)
		}
		m.bar.Width = min(max(msg.Width-10, 20), 60)
		return m, nil

	case spinner.TickMsg:
		if m.view != MigrateView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch m.view {
		case PlaylistListView:
			return m.handlePlaylistListKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case MigrateView:
			if key.Matches(msg, m.keys.quit) {
				return m, tea.Quit
			}
			return m, nil
		case ResultView:
			if key.Matches(msg, m.keys.quit) || key.Matches(msg, m.keys.enter) {
				return m, tea.Quit
			}
			return m, nil
		}

	case Msg:
		return m.handleMsg(msg)
	}

	var cmd tea.Cmd
	if m.view == PlaylistListView && m.loaded {
		m.playlistList, cmd = m.playlistList.Update(msg)
	}
	return m, cmd
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgPlaylistsFetched:
		data := msg.data.(playlistsFetched)
		if data.err != nil {
			m.err = data.err
			return m, tea.Quit
		}
		items := make([]list.Item, len(data.playlists))
		for i, pl := range data.playlists {
			items[i] = playlistItem{playlist: pl}
		}
		m.playlistList = list.New(items, list.NewDefaultDelegate(), max(m.width-4, 0), max(m.height-8, 0))
		m.playlistList.Title = "Spotify Playlists"
		m.loaded = true
		return m, nil

	case MsgProgressUpdate:
		m.applyProgress(msg.data.(tasks.ProgressUpdate))
		return m, m.waitForProgress()

	case MsgMigrationComplete:
		data := msg.data.(migrationComplete)
		m.summary, m.err = data.summary, data.err
		m.view = ResultView
		return m, nil
	}
	return m, nil
}

func (m *Model) applyProgress(u tasks.ProgressUpdate) {
	switch u.Phase {
	case tasks.StartPlaylist, tasks.FinishPlaylist:
		m.playlist = u
		m.tracks = tasks.ProgressUpdate{}
	case tasks.MatchTracks:
		m.tracks = u
		return
	}
	m.recent = append(m.recent, activityLine(u))
	if len(m.recent) > recentLines {
		m.recent = m.recent[len(m.recent)-recentLines:]
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view == PlaylistListView {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case PlaylistListView:
		return m.renderPlaylistList()
	case ConfirmView:
		return m.renderConfirm()
	case MigrateView:
		return m.renderMigrate()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handlePlaylistListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !m.loaded {
		if key.Matches(msg, m.keys.quit) {
			return m, tea.Quit
		}
		return m, nil
	}
	if m.playlistList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.playlistList, cmd = m.playlistList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.toggle):
		return m, m.toggleSelected()
	case key.Matches(msg, m.keys.all):
		m.only = nil
		m.view = ConfirmView
		return m, nil
	case key.Matches(msg, m.keys.enter):
		m.only = m.selectedIDs()
		if len(m.only) == 0 {
			if item, ok := m.playlistList.SelectedItem().(playlistItem); ok {
				m.only = []string{item.playlist.ID}
			}
		}
		if len(m.only) > 0 {
			m.view = ConfirmView
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.playlistList, cmd = m.playlistList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.yes):
		return m, m.startMigration()
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.back):
		m.view = PlaylistListView
		return m, nil
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) toggleSelected() tea.Cmd {
	current, ok := m.playlistList.SelectedItem().(playlistItem)
	if !ok {
		return nil
	}
	for i, item := range m.playlistList.Items() {
		if pi, ok := item.(playlistItem); ok && pi.playlist.ID == current.playlist.ID {
			pi.selected = !pi.selected
			return m.playlistList.SetItem(i, pi)
		}
	}
	return nil
}

func (m *Model) selectedIDs() []string {
	var ids []string
	for _, item := range m.playlistList.Items() {
		if pi, ok := item.(playlistItem); ok && pi.selected {
			ids = append(ids, pi.playlist.ID)
		}
	}
	return ids
}

func (m *Model) selectedNames() []string {
	var names []string
	for _, item := range m.playlistList.Items() {
		if pi, ok := item.(playlistItem); ok && (pi.selected || (len(m.only) == 1 && pi.playlist.ID == m.only[0])) {
			names = append(names, pi.playlist.Name)
		}
	}
	return names
}

func (m *Model) fetchPlaylists() tea.Cmd {
	return func() tea.Msg {
		playlists, err := m.source.Playlists(m.ctx)
		return playlistsFetchedMsg(playlists, err)
	}
}

func (m *Model) startMigration() tea.Cmd {
	m.view = MigrateView
	m.progressChan = make(chan tasks.ProgressUpdate, 100)
	m.doneChan = make(chan Msg, 1)

	progressChan, doneChan, only := m.progressChan, m.doneChan, m.only
	go func() {
		summary, err := m.run(m.ctx, only, progressChan)
		close(progressChan)
		doneChan <- migrationCompleteMsg(summary, err)
	}()

	return tea.Batch(m.spinner.Tick, m.waitForProgress())
}

func (m *Model) waitForProgress() tea.Cmd {
	progressChan, doneChan := m.progressChan, m.doneChan
	return func() tea.Msg {
		update, ok := <-progressChan
		if !ok {
			return <-doneChan
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderPlaylistList() string {
	if !m.loaded {
		return "Loading Spotify playlists...\n"
	}
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.toggle, m.keys.enter, m.keys.all, m.keys.quit})
	return fmt.Sprintf("%s\n\n%s", m.playlistList.View(), helpView)
}

func (m *Model) renderConfirm() string {
	var target string
	if len(m.only) == 0 {
		target = "all Spotify playlists and Liked Songs"
	} else {
		target = strings.Join(m.selectedNames(), ", ")
	}

	title := styles.title.Render("Migrate to YouTube Music?")
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no, m.keys.quit})
	return fmt.Sprintf("%s\n%s\n\n%s", title, target, helpView)
}

func (m *Model) renderMigrate() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Migrating Playlists"))
	b.WriteString("\n")

	if m.playlist.Total > 0 {
		fmt.Fprintf(&b, "%s Playlist %d of %d\n", m.spinner.View(), m.playlist.Step, m.playlist.Total)
		b.WriteString(m.bar.ViewAs(float64(m.playlist.Step) / float64(m.playlist.Total)))
		b.WriteString("\n")
	} else {
		fmt.Fprintf(&b, "%s Preparing...\n", m.spinner.View())
	}

	if m.tracks.Total > 0 {
		fmt.Fprintf(&b, "\nTracks %d/%d  %s\n", m.tracks.Step, m.tracks.Total, m.tracks.Message)
	}

	if len(m.recent) > 0 {
		b.WriteString("\n")
		b.WriteString(styles.box.Render(strings.Join(m.recent, "\n")))
	}

	b.WriteString("\n\n")
	b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.quit}))
	return b.String()
}

func (m *Model) renderResult() string {
	var b strings.Builder
	if m.err != nil {
		b.WriteString(styles.err.Render(fmt.Sprintf("✗ Migration stopped: %v", m.err)))
	} else {
		b.WriteString(styles.ok.Render("✓ Migration Complete!"))
	}
	b.WriteString("\n")

	if s := m.summary; s != nil {
		if s.DryRun {
			b.WriteString(styles.warn.Render("Dry run: nothing was written to YouTube Music"))
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "\nPlaylists: %d (created %d, merged %d, skipped %d, failed %d)\n",
			s.Playlists, s.Created, s.Merged, s.Skipped, s.Failed)
		fmt.Fprintf(&b, "Tracks: %d matched, %d not found, %d added\n", s.TracksMatched, s.TracksMissing, s.TracksAdded)
		fmt.Fprintf(&b, "Searches: %d  Cached songs: %d\n", s.Searches, s.CachedSongs)
		if s.FailedSongs > 0 {
			b.WriteString(styles.warn.Render(fmt.Sprintf("\n%d songs could not be found on YouTube Music", s.FailedSongs)))
			b.WriteString("\n")
		}
		for _, o := range s.Outcomes {
			if o.Err != nil {
				fmt.Fprintf(&b, "  • %s: %v\n", o.Name, o.Err)
			}
		}
	}

	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.quit}))
	return b.String()
}

