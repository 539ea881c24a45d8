// package formatter renders weekly playlist results for the terminal
package formatter

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/desertthunder/scarchive/internal/services"
	"github.com/desertthunder/scarchive/internal/tasks"
)

// FormatDuration renders a duration in milliseconds as m:ss.
func FormatDuration(ms int) string {
	if ms <= 0 {
		return "0:00"
	}
	s := ms / 1000
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}

// ExportToText converts the resolved tracks of a run to a numbered plain text list
func ExportToText(tracks []services.Track) []byte {
	var buf bytes.Buffer
	for i, track := range tracks {
		artist := track.Artist()
		if artist == "" {
			artist = "Unknown"
		}
		buf.WriteString(fmt.Sprintf("%d. %s - %s [%s]\n", i+1, artist, track.Title, FormatDuration(track.Duration)))
	}
	return buf.Bytes()
}

// Summary renders a run as a styled header, a status block and the track list.
//
// A nil palette renders plain text.
func Summary(result *tasks.WeeklyResult, p *Palette) string {
	if p == nil {
		p = &Palette{}
	}

	var b strings.Builder
	b.WriteString(p.title.Render(result.Title))
	b.WriteString("\n")

	switch {
	case result.Playlist == nil:
		b.WriteString(p.warn.Render("Playlist response could not be read; check the playlist on SoundCloud"))
	case result.Updated:
		b.WriteString(p.ok.Render(fmt.Sprintf("Updated playlist %d", result.Playlist.ID)))
	default:
		b.WriteString(p.ok.Render(fmt.Sprintf("Created playlist %d", result.Playlist.ID)))
	}
	b.WriteString("\n")

	if result.Playlist != nil && result.Playlist.PermalinkURL != "" {
		b.WriteString(result.Playlist.PermalinkURL + "\n")
	}

	stats := fmt.Sprintf("%s feed: %d pages, %d items, %d tracks", result.Feed, result.Pages, result.Items, len(result.Tracks))
	if result.Excluded > 0 {
		stats += fmt.Sprintf(" (%d already liked)", result.Excluded)
	}
	b.WriteString(p.help.Render(stats))
	b.WriteString("\n")

	if len(result.Tracks) == 0 {
		b.WriteString(p.warn.Render("No tracks this week"))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString("\n")
	b.Write(ExportToText(result.Tracks))
	return b.String()
}
