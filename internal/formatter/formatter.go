// package formatter renders the failed-song list to plain text, CSV and Markdown
package formatter

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/desertthunder/ytmigrate/internal/shared"
	"github.com/desertthunder/ytmigrate/internal/state"
)

const (
	reportTitle   = "Failed Songs - Could Not Find on YouTube Music"
	reportWidth   = 70
	timeLayout    = "2006-01-02T15:04:05"
	notApplicable = "N/A"
)

// Format names an export format.
type Format string

const (
	FormatText     Format = "text"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
)

// ParseFormat accepts "text", "txt", "csv", "markdown" or "md".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "text", "txt":
		return FormatText, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, s)
}

// Export renders failures in the given format.
func Export(format Format, failures []state.FailedSong) ([]byte, error) {
	switch format {
	case FormatText:
		return ExportToText(failures), nil
	case FormatCSV:
		return ExportToCSV(failures)
	case FormatMarkdown:
		return ExportToMarkdown(failures), nil
	}
	return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
}

func orNA(s string) string {
	if s == "" {
		return notApplicable
	}
	return s
}

func failedAt(f state.FailedSong) string {
	if f.FailedAt.IsZero() {
		return notApplicable
	}
	return f.FailedAt.Local().Format(timeLayout)
}

// ExportToText renders the human-readable failure report, one block per song.
func ExportToText(failures []state.FailedSong) []byte {
	var buf bytes.Buffer

	buf.WriteString(reportTitle + "\n")
	buf.WriteString(strings.Repeat("=", reportWidth) + "\n\n")

	for _, f := range failures {
		fmt.Fprintf(&buf, "Title: %s\n", f.Title)
		fmt.Fprintf(&buf, "Artist: %s\n", f.Artist)
		fmt.Fprintf(&buf, "Album: %s\n", orNA(f.Album))
		fmt.Fprintf(&buf, "Playlist: %s\n", f.Playlist)
		fmt.Fprintf(&buf, "Failed at: %s\n", failedAt(f))
		buf.WriteString(strings.Repeat("-", reportWidth) + "\n\n")
	}

	fmt.Fprintf(&buf, "\nTotal failed songs: %d\n", len(failures))
	return buf.Bytes()
}

// ExportToCSV renders failures with columns: Title, Artist, Album, Playlist, Spotify ID, Failed At
func ExportToCSV(failures []state.FailedSong) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"Title", "Artist", "Album", "Playlist", "Spotify ID", "Failed At"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, f := range failures {
		record := []string{f.Title, f.Artist, f.Album, f.Playlist, f.SpotifyID, failedAt(f)}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportToMarkdown renders failures grouped under their source playlist, in first-seen order.
func ExportToMarkdown(failures []state.FailedSong) []byte {
	var buf bytes.Buffer

	buf.WriteString("# " + reportTitle + "\n\n")
	fmt.Fprintf(&buf, "**Total**: %d\n", len(failures))

	var order []string
	groups := make(map[string][]state.FailedSong)
	for _, f := range failures {
		if _, ok := groups[f.Playlist]; !ok {
			order = append(order, f.Playlist)
		}
		groups[f.Playlist] = append(groups[f.Playlist], f)
	}

	for _, name := range order {
		fmt.Fprintf(&buf, "\n## %s\n\n", orNA(name))
		for i, f := range groups[name] {
			album := ""
			if f.Album != "" {
				album = fmt.Sprintf(" (%s)", f.Album)
			}
			fmt.Fprintf(&buf, "%d. %s - %s%s\n", i+1, f.Artist, f.Title, album)
		}
	}
	return buf.Bytes()
}

// WriteFailureReport overwrites path with the text report, or removes it when there are no failures.
func WriteFailureReport(path string, failures []state.FailedSong) error {
	if len(failures) == 0 {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to remove failure report: %w", err)
		}
		return nil
	}

	if err := os.WriteFile(path, ExportToText(failures), 0644); err != nil {
		return fmt.Errorf("failed to write failure report: %w", err)
	}
	return nil
}
