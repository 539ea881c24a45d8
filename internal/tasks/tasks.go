// package tasks builds the weekly favorites playlist from a user's SoundCloud activity.
//
// The core abstraction is WeeklyEngine, which walks an activity feed, resolves tracks and saves the playlist.
// Operations emit progress updates via channels for non-blocking status reporting to the CLI layer.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/scarchive/internal/services"
	"github.com/desertthunder/scarchive/internal/shared"
)

// Feeds the engine can walk.
const (
	FeedReposts = "reposts"
	FeedLikes   = "likes"
	FeedStream  = "stream"
)

// TypeComment selects the comments of followed users as an activity type.
const TypeComment = "comment"

type feedPage = services.Collection[services.FeedItem]

// SoundCloudClient is the subset of [services.Client] used by the engine.
type SoundCloudClient interface {
	UserReposts(ctx context.Context, userID int, offset string) (*services.Reposts, error)
	UserLikes(ctx context.Context, userID int, offset string) (*services.Likes, error)
	Stream(ctx context.Context, userID int, offset string) (*services.Stream, error)
	UserPlaylists(ctx context.Context, userID int, offset string) (*services.UserPlaylists, error)
	UserFollowingsIDs(ctx context.Context, userID int) (*services.IDCollection, error)
	UserComments(ctx context.Context, userID int, offset string) (*services.Comments, error)
	AllTracks(ctx context.Context, ids []int, batchSize, workers int) ([]services.Track, error)
	CreatePlaylist(ctx context.Context, req services.PlaylistCreateRequest) (*services.Playlist, error)
	UpdatePlaylist(ctx context.Context, playlistID int, req services.PlaylistCreateRequest) (*services.Playlist, error)
}

// WeeklyResult contains all data from a weekly playlist run.
type WeeklyResult struct {
	Window   Window             // Target week
	Title    string             // Playlist title
	Feed     string             // Feed that was walked
	Pages    int                // Feed pages fetched
	Items    int                // In-window feed items kept
	TrackIDs []int              // Deduplicated ids in playlist order
	Excluded int                // Ids removed because the user already liked them
	Tracks   []services.Track   // Resolved tracks, following TrackIDs
	Playlist *services.Playlist // Saved playlist, nil when the save response could not be decoded
	Updated  bool               // True when an existing playlist was replaced
}

// WeeklyEngine assembles the weekly favorites playlist for one user.
type WeeklyEngine struct {
	client SoundCloudClient
	cfg    shared.WeeklyConfig
	userID int
	logger *log.Logger
	now    func() time.Time
}

// NewWeeklyEngine creates a new WeeklyEngine for userID using the weekly section of the config.
func NewWeeklyEngine(client SoundCloudClient, cfg shared.WeeklyConfig, userID int, logger *log.Logger) *WeeklyEngine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if cfg.Feed == "" {
		cfg.Feed = FeedReposts
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = services.DefaultBatchSize
	}
	if cfg.Sharing == "" {
		cfg.Sharing = "private"
	}
	return &WeeklyEngine{client: client, cfg: cfg, userID: userID, logger: logger, now: time.Now}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *WeeklyEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Run builds the playlist for the ISO week offset weeks away from the current one.
//
// Any hard failure from the client aborts the run before the playlist is saved.
func (e *WeeklyEngine) Run(ctx context.Context, offset int, progress chan<- ProgressUpdate) (*WeeklyResult, error) {
	if e.client == nil {
		return nil, fmt.Errorf("%w: SoundCloud client not initialized", shared.ErrServiceUnavailable)
	}
	if offset > 0 {
		return nil, fmt.Errorf("%w: week offset %d is in the future", shared.ErrInvalidArgument, offset)
	}

	w := WeekWindow(e.now(), offset)
	result := &WeeklyResult{Window: w, Title: w.Title(), Feed: e.cfg.Feed}
	e.logger.Info("Building weekly playlist", "week", offset, "start", w.Start.Format(dateLayout), "types", e.cfg.Types)

	items, pages, err := e.collect(ctx, w, progress)
	if err != nil {
		return nil, err
	}
	result.Pages = pages

	if slices.Contains(e.cfg.Types, TypeComment) {
		comments, err := e.collectComments(ctx, w, progress)
		if err != nil {
			return nil, err
		}
		items = append(items, comments...)
	}
	result.Items = len(items)

	ids := CollectTrackIDs(items, e.cfg.Types)
	e.logger.Info("Found tracks", "count", len(ids), "items", len(items), "pages", pages)

	if e.cfg.ExcludeLiked && len(ids) > 0 {
		liked, err := e.likedTrackIDs(ctx, progress)
		if err != nil {
			return nil, err
		}
		before := len(ids)
		ids = slices.DeleteFunc(ids, func(id int) bool {
			_, ok := liked[id]
			return ok
		})
		result.Excluded = before - len(ids)
		e.logger.Info("Removed liked tracks", "removed", result.Excluded, "remaining", len(ids))
	}

	if len(ids) > 0 {
		e.sendProgress(progress, resolveTracksUpdate(len(ids)))
		tracks, err := e.client.AllTracks(ctx, ids, e.cfg.BatchSize, e.cfg.Workers)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve tracks: %w", err)
		}
		result.Tracks = tracks
	} else {
		e.logger.Warn("No tracks in window, saving an empty playlist", "title", result.Title)
	}

	result.TrackIDs = make([]int, len(result.Tracks))
	for i, t := range result.Tracks {
		result.TrackIDs[i] = t.ID
	}

	existing, err := e.findPlaylist(ctx, result.Title, progress)
	if err != nil && !errors.Is(err, shared.ErrPlaylistNotFound) {
		return nil, err
	}

	req := services.PlaylistCreateRequest{Playlist: services.PlaylistCreate{
		Title:       result.Title,
		Description: w.Description(),
		Sharing:     e.cfg.Sharing,
		Tracks:      result.TrackIDs,
		TagList:     w.TagList(),
	}}

	result.Updated = existing != nil
	e.sendProgress(progress, savePlaylistUpdate(result.Updated, result.Title, len(result.TrackIDs)))

	var saved *services.Playlist
	if existing != nil {
		saved, err = e.client.UpdatePlaylist(ctx, existing.ID, req)
	} else {
		saved, err = e.client.CreatePlaylist(ctx, req)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to save playlist %q: %w", result.Title, err)
	}

	result.Playlist = saved
	if saved == nil {
		e.logger.Warn("Playlist response could not be decoded", "title", result.Title)
		return result, nil
	}

	e.sendProgress(progress, playlistSavedUpdate(result.Updated, saved))
	return result, nil
}

func (e *WeeklyEngine) fetchPage(ctx context.Context, offset string) (*feedPage, error) {
	switch e.cfg.Feed {
	case FeedLikes:
		return e.client.UserLikes(ctx, e.userID, offset)
	case FeedStream:
		return e.client.Stream(ctx, e.userID, offset)
	case FeedReposts:
		return e.client.UserReposts(ctx, e.userID, offset)
	default:
		return nil, fmt.Errorf("%w: unknown feed %q", shared.ErrInvalidConfig, e.cfg.Feed)
	}
}

// collect walks the feed from the newest item and returns the items inside w.
//
// Items newer than the window are skipped. The first item older than the window
// start ends the walk, as does the last page.
func (e *WeeklyEngine) collect(ctx context.Context, w Window, progress chan<- ProgressUpdate) ([]services.FeedItem, int, error) {
	var items []services.FeedItem
	offset := ""

	for page := 1; ; page++ {
		e.sendProgress(progress, fetchFeedUpdate(page, e.cfg.Feed))

		resp, err := e.fetchPage(ctx, offset)
		if err != nil {
			return nil, page, fmt.Errorf("failed to fetch %s page %d: %w", e.cfg.Feed, page, err)
		}
		if resp == nil {
			e.logger.Warn("Feed page could not be decoded, stopping", "feed", e.cfg.Feed, "page", page)
			return items, page, nil
		}

		for _, item := range resp.Collection {
			if item.CreatedAt.Before(w.Start) {
				e.logger.Debug("Reached end of window", "created_at", item.CreatedAt, "page", page)
				return items, page, nil
			}
			if !w.Contains(item.CreatedAt) || e.excluded(item) {
				continue
			}
			items = append(items, item)
		}

		if offset = resp.NextOffset(); offset == "" {
			return items, page, nil
		}
	}
}

// collectComments returns the in-window comments of every account the user follows.
func (e *WeeklyEngine) collectComments(ctx context.Context, w Window, progress chan<- ProgressUpdate) ([]services.FeedItem, error) {
	followings, err := e.client.UserFollowingsIDs(ctx, e.userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch followings: %w", err)
	}
	if followings == nil {
		e.logger.Warn("Followings could not be decoded, skipping comments")
		return nil, nil
	}

	var items []services.FeedItem
	for i, id := range followings.Collection {
		e.sendProgress(progress, fetchCommentsUpdate(i+1, len(followings.Collection), id))

		comments, err := e.userComments(ctx, id, w)
		if err != nil {
			return nil, err
		}
		items = append(items, comments...)
	}

	e.logger.Info("Found comments", "count", len(items), "followings", len(followings.Collection))
	return items, nil
}

// userComments walks the comments of userID with the same window rules as the feed walk.
func (e *WeeklyEngine) userComments(ctx context.Context, userID int, w Window) ([]services.FeedItem, error) {
	var items []services.FeedItem
	offset := ""

	for page := 1; ; page++ {
		resp, err := e.client.UserComments(ctx, userID, offset)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch comments of user %d page %d: %w", userID, page, err)
		}
		if resp == nil {
			return items, nil
		}

		for _, c := range resp.Collection {
			if c.CreatedAt.Before(w.Start) {
				return items, nil
			}
			if w.Contains(c.CreatedAt) {
				items = append(items, c.FeedItem())
			}
		}

		if offset = resp.NextOffset(); offset == "" {
			return items, nil
		}
	}
}

// excluded drops the user's own uploads from the stream feed.
func (e *WeeklyEngine) excluded(item services.FeedItem) bool {
	return e.cfg.Feed == FeedStream && e.cfg.ExcludeOwn && item.User != nil && item.User.ID == e.userID
}

// likedTrackIDs walks every page of the user's likes.
func (e *WeeklyEngine) likedTrackIDs(ctx context.Context, progress chan<- ProgressUpdate) (map[int]struct{}, error) {
	liked := make(map[int]struct{})
	offset := ""

	for page := 1; ; page++ {
		e.sendProgress(progress, fetchLikesUpdate(page))

		resp, err := e.client.UserLikes(ctx, e.userID, offset)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch likes page %d: %w", page, err)
		}
		if resp == nil {
			return liked, nil
		}
		for _, item := range resp.Collection {
			if item.Track != nil {
				liked[item.Track.ID] = struct{}{}
			}
		}
		if offset = resp.NextOffset(); offset == "" {
			return liked, nil
		}
	}
}

// findPlaylist looks for a playlist of the user titled title.
//
// It returns [shared.ErrPlaylistNotFound] when no listed playlist matches, and
// also when a page of the listing could not be decoded.
func (e *WeeklyEngine) findPlaylist(ctx context.Context, title string, progress chan<- ProgressUpdate) (*services.Playlist, error) {
	offset := ""
	for page := 1; ; page++ {
		e.sendProgress(progress, findPlaylistUpdate(page, title))

		resp, err := e.client.UserPlaylists(ctx, e.userID, offset)
		if err != nil {
			return nil, fmt.Errorf("failed to list playlists: %w", err)
		}
		if resp == nil {
			e.logger.Warn("Playlist page could not be decoded, creating a new playlist", "page", page)
			return nil, shared.ErrPlaylistNotFound
		}
		for _, pl := range resp.Collection {
			if pl.Title == title {
				e.logger.Info("Found existing playlist", "id", pl.ID, "title", title)
				return &pl, nil
			}
		}
		if offset = resp.NextOffset(); offset == "" {
			return nil, fmt.Errorf("%w: %q", shared.ErrPlaylistNotFound, title)
		}
	}
}

// CollectTrackIDs groups the track ids of items by activity type, in the order
// of types, and removes duplicates keeping the first position.
//
// Playlist activities contribute all of their tracks; comments contribute the
// track they were posted on.
func CollectTrackIDs(items []services.FeedItem, types []string) []int {
	var ids []int
	for _, typ := range types {
		for _, item := range items {
			if item.ActivityType() == typ {
				ids = append(ids, item.TrackIDs()...)
			}
		}
	}
	return shared.UniqueInts(ids)
}
