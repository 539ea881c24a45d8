package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/desertthunder/scarchive/internal/shared"
	"golang.org/x/sync/errgroup"
)

// DefaultBatchSize is the number of ids the bulk track lookup accepts per request.
const DefaultBatchSize = 30

var linked = map[string]any{"limit": 100, "linked_partitioning": true}

// Endpoint table. Defaults hold the documented query values; callers override them per call.
var (
	PostPlaylist = Endpoint[Playlist]{Route{Name: "post_playlist", Method: http.MethodPost, Path: "playlists"}}

	UpdatePlaylist = Endpoint[Playlist]{Route{Name: "update_playlist", Method: http.MethodPut, Path: "playlists/{playlist_id}"}}

	GetPlaylist = Endpoint[Playlist]{Route{
		Name: "get_playlist", Method: http.MethodGet, Path: "playlists/{playlist_id}",
		Defaults: map[string]any{"show_tracks": true},
	}}

	GetUserLikes = Endpoint[Likes]{Route{
		Name: "get_user_likes", Method: http.MethodGet, Path: "users/{user_id}/likes",
		Defaults: linked,
	}}

	GetUserReposts = Endpoint[Reposts]{Route{
		Name: "get_user_reposts", Method: http.MethodGet, Path: "stream/users/{user_id}/reposts",
		Defaults: linked,
	}}

	GetStream = Endpoint[Stream]{Route{
		Name: "get_stream", Method: http.MethodGet, Path: "stream",
		Defaults: map[string]any{"promoted_playlist": true, "limit": 100, "linked_partitioning": true},
	}}

	GetUserComments = Endpoint[Comments]{Route{
		Name: "get_user_comments", Method: http.MethodGet, Path: "users/{user_id}/comments",
		Defaults: map[string]any{"limit": 100, "linked_partitioning": true, "threaded": 0},
	}}

	GetUserFollowingsIDs = Endpoint[IDCollection]{Route{
		Name: "get_user_followings_ids", Method: http.MethodGet, Path: "users/{user_id}/followings/ids",
		Defaults: map[string]any{"limit": 5000, "linked_partitioning": true},
	}}

	GetUserFollowersIDs = Route{
		Name: "get_user_followers_ids", Method: http.MethodGet, Path: "users/{user_id}/followers/ids",
		Defaults: map[string]any{"limit": 5000, "linked_partitioning": true},
	}

	GetTrack = Endpoint[Track]{Route{Name: "get_track", Method: http.MethodGet, Path: "tracks/{track_id}"}}

	GetTracks = Endpoint[[]Track]{Route{Name: "get_tracks", Method: http.MethodGet, Path: "tracks"}}

	GetUserPlaylists = Endpoint[UserPlaylists]{Route{
		Name: "get_user_playlists", Method: http.MethodGet, Path: "users/{user_id}/playlists_without_albums",
		Defaults: map[string]any{"limit": 12, "linked_partitioning": true},
	}}

	Search = Route{
		Name: "search", Method: http.MethodGet, Path: "search",
		Defaults: map[string]any{"limit": 20, "offset": 0},
	}
)

// offsetParam maps an empty cursor to nil so the offset key is left out of the query.
func offsetParam(offset string) any {
	if offset == "" {
		return nil
	}
	return offset
}

// UserURN formats the stream URN of a user id.
func UserURN(userID int) string {
	return fmt.Sprintf("soundcloud:users:%d", userID)
}

// CreatePlaylist creates a playlist from req.
func (c *Client) CreatePlaylist(ctx context.Context, req PlaylistCreateRequest) (*Playlist, error) {
	return PostPlaylist.Call(ctx, c, Args{Body: req})
}

// UpdatePlaylist replaces the metadata and tracks of an existing playlist.
func (c *Client) UpdatePlaylist(ctx context.Context, playlistID int, req PlaylistCreateRequest) (*Playlist, error) {
	return UpdatePlaylist.Call(ctx, c, Args{
		Params: map[string]any{"playlist_id": playlistID},
		Body:   req,
	})
}

// Playlist retrieves a playlist by ID, including its tracks.
func (c *Client) Playlist(ctx context.Context, playlistID int) (*Playlist, error) {
	return GetPlaylist.Call(ctx, c, Args{Params: map[string]any{"playlist_id": playlistID}})
}

// UserLikes retrieves a page of the user's likes, newest first. An empty offset starts at the top.
func (c *Client) UserLikes(ctx context.Context, userID int, offset string) (*Likes, error) {
	return GetUserLikes.Call(ctx, c, Args{Params: map[string]any{"user_id": userID, "offset": offsetParam(offset)}})
}

// UserReposts retrieves a page of the user's reposts, newest first.
func (c *Client) UserReposts(ctx context.Context, userID int, offset string) (*Reposts, error) {
	return GetUserReposts.Call(ctx, c, Args{Params: map[string]any{"user_id": userID, "offset": offsetParam(offset)}})
}

// Stream retrieves a page of the user's stream.
func (c *Client) Stream(ctx context.Context, userID int, offset string) (*Stream, error) {
	return GetStream.Call(ctx, c, Args{Params: map[string]any{"user_urn": UserURN(userID), "offset": offsetParam(offset)}})
}

// UserFollowingsIDs retrieves the ids of the accounts the user follows.
func (c *Client) UserFollowingsIDs(ctx context.Context, userID int) (*IDCollection, error) {
	return GetUserFollowingsIDs.Call(ctx, c, Args{Params: map[string]any{"user_id": userID}})
}

// UserComments retrieves a page of the comments a user posted, newest first.
func (c *Client) UserComments(ctx context.Context, userID int, offset string) (*Comments, error) {
	return GetUserComments.Call(ctx, c, Args{Params: map[string]any{"user_id": userID, "offset": offsetParam(offset)}})
}

// UserFollowersIDs retrieves the ids of the user's followers as raw JSON.
func (c *Client) UserFollowersIDs(ctx context.Context, userID int) (any, error) {
	return GetUserFollowersIDs.Call(ctx, c, Args{Params: map[string]any{"user_id": userID}})
}

// Track retrieves a single track by ID.
func (c *Client) Track(ctx context.Context, trackID int) (*Track, error) {
	return GetTrack.Call(ctx, c, Args{Params: map[string]any{"track_id": trackID}})
}

// Tracks retrieves several tracks in one request. The API caps the number of ids per call.
func (c *Client) Tracks(ctx context.Context, ids []int) ([]Track, error) {
	tracks, err := GetTracks.Call(ctx, c, Args{Params: map[string]any{"ids": JoinIDs(ids)}})
	if err != nil || tracks == nil {
		return nil, err
	}
	return *tracks, nil
}

// UserPlaylists retrieves a page of the user's playlists.
func (c *Client) UserPlaylists(ctx context.Context, userID int, offset string) (*UserPlaylists, error) {
	return GetUserPlaylists.Call(ctx, c, Args{Params: map[string]any{"user_id": userID, "offset": offsetParam(offset)}})
}

// Search runs a free text search and returns the raw JSON result.
func (c *Client) Search(ctx context.Context, q string) (any, error) {
	return Search.Call(ctx, c, Args{Params: map[string]any{"q": q}})
}

// AllTracks resolves ids in batches of batchSize using up to workers concurrent requests.
//
// Batches are reassembled in batch order, so the result follows ids. Ids the API
// does not return (deleted or private tracks) are absent from the result.
func (c *Client) AllTracks(ctx context.Context, ids []int, batchSize, workers int) ([]Track, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if workers <= 0 {
		workers = 1
	}

	batches := shared.ChunkInts(ids, batchSize)
	results := make([][]Track, len(batches))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, batch := range batches {
		g.Go(func() error {
			tracks, err := c.Tracks(ctx, batch)
			if err != nil {
				return fmt.Errorf("batch %d/%d: %w", i+1, len(batches), err)
			}
			results[i] = orderTracks(batch, tracks)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	all := make([]Track, 0, len(ids))
	for _, r := range results {
		all = append(all, r...)
	}
	return all, nil
}

// orderTracks sorts tracks to match the order of ids.
func orderTracks(ids []int, tracks []Track) []Track {
	byID := make(map[int]Track, len(tracks))
	for _, t := range tracks {
		byID[t.ID] = t
	}
	ordered := make([]Track, 0, len(tracks))
	for _, id := range ids {
		if t, ok := byID[id]; ok {
			ordered = append(ordered, t)
			delete(byID, id)
		}
	}
	return ordered
}
