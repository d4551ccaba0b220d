package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/ytmigrate/internal/tasks"
)

const (
	violet       = "#7D56F4"
	spotifyGreen = "#1DB954"
	youtubeRed   = "#FF0033"
	amber        = "#FFA500"
	grey         = "#626262"
)

var styles = newPalette()

// palette holds the named styles used across views.
type palette struct {
	title   lipgloss.Style
	ok      lipgloss.Style
	err     lipgloss.Style
	warn    lipgloss.Style
	skipped lipgloss.Style
	box     lipgloss.Style
}

func newPalette() *palette {
	return &palette{
		title:   bold(violet).MarginBottom(1),
		ok:      bold(spotifyGreen),
		err:     bold(youtubeRed),
		warn:    fg(amber),
		skipped: fg(grey).Italic(true),
		box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(grey)).
			Padding(0, 1),
	}
}

func fg(color string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color))
}

func bold(color string) lipgloss.Style {
	return fg(color).Bold(true)
}

// activityLine colors a finished playlist by its outcome: failed, skipped, partially matched or clean.
// Other updates are returned unstyled.
func activityLine(u tasks.ProgressUpdate) string {
	o, ok := u.Data.(tasks.PlaylistOutcome)
	if !ok {
		return u.Message
	}

	switch {
	case o.Err != nil:
		return styles.err.Render(u.Message)
	case o.Decision == tasks.DecisionSkip:
		return styles.skipped.Render(u.Message)
	case o.Missing > 0:
		return styles.warn.Render(u.Message)
	}
	return styles.ok.Render(u.Message)
}
