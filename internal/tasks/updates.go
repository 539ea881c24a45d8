package tasks

import (
	"fmt"

	"github.com/desertthunder/scarchive/internal/services"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase, 0 when unknown
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	FetchFeed Phase = iota
	FetchLikes
	ResolveTracks
	FindPlaylist
	CreatePlaylist
	UpdatePlaylist
	FetchComments
)

func (p Phase) String() string {
	switch p {
	case FetchFeed:
		return "fetch_feed"
	case FetchLikes:
		return "fetch_likes"
	case ResolveTracks:
		return "resolve_tracks"
	case FindPlaylist:
		return "find_playlist"
	case CreatePlaylist:
		return "create_playlist"
	case UpdatePlaylist:
		return "update_playlist"
	case FetchComments:
		return "fetch_comments"
	default:
		return ""
	}
}

func fetchFeedUpdate(page int, feed string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchFeed,
		Step:    page,
		Message: fmt.Sprintf("Fetching %s page %d...", feed, page),
	}
}

func fetchLikesUpdate(page int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchLikes,
		Step:    page,
		Message: fmt.Sprintf("Fetching likes page %d...", page),
	}
}

func fetchCommentsUpdate(step, total, userID int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchComments,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Fetching comments of user %d (%d/%d)...", userID, step, total),
	}
}

func resolveTracksUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveTracks,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Resolving %d tracks...", total),
	}
}

func findPlaylistUpdate(page int, title string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FindPlaylist,
		Step:    page,
		Message: fmt.Sprintf("Looking for playlist %q (page %d)...", title, page),
	}
}

func savePlaylistUpdate(updated bool, title string, count int) ProgressUpdate {
	if updated {
		return ProgressUpdate{
			Phase:   UpdatePlaylist,
			Step:    1,
			Total:   1,
			Message: fmt.Sprintf("Updating playlist %q with %d tracks...", title, count),
		}
	}
	return ProgressUpdate{
		Phase:   CreatePlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Creating playlist %q with %d tracks...", title, count),
	}
}

func playlistSavedUpdate(updated bool, pl *services.Playlist) ProgressUpdate {
	phase, verb := CreatePlaylist, "created"
	if updated {
		phase, verb = UpdatePlaylist, "updated"
	}
	return ProgressUpdate{
		Phase:   phase,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Playlist %s: %s (ID: %d)", verb, pl.Title, pl.ID),
		Data:    pl,
	}
}
