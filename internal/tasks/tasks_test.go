package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/scarchive/internal/services"
	"github.com/desertthunder/scarchive/internal/shared"
)

const testUserID = 42

var testNow = date(2025, time.February, 12, 10, 0)

type mockClient struct {
	feed      map[string]*services.Reposts
	feedErr   error
	likes     map[string]*services.Likes
	playlists map[string]*services.UserPlaylists
	tracksErr error
	saveErr   error
	noSave    bool

	followings    *services.IDCollection
	followingsErr error
	comments      map[int]map[string]*services.Comments

	feedCalls       []string
	likesCalls      int
	followingsCalls int
	commentCalls    []string
	resolved   []int
	created    *services.PlaylistCreateRequest
	updated    *services.PlaylistCreateRequest
	updatedID  int
}

func (m *mockClient) page(offset string) (*services.Reposts, error) {
	m.feedCalls = append(m.feedCalls, offset)
	if m.feedErr != nil {
		return nil, m.feedErr
	}
	return m.feed[offset], nil
}

func (m *mockClient) UserReposts(ctx context.Context, userID int, offset string) (*services.Reposts, error) {
	return m.page(offset)
}

func (m *mockClient) Stream(ctx context.Context, userID int, offset string) (*services.Stream, error) {
	return m.page(offset)
}

func (m *mockClient) UserLikes(ctx context.Context, userID int, offset string) (*services.Likes, error) {
	m.likesCalls++
	return m.likes[offset], nil
}

func (m *mockClient) UserPlaylists(ctx context.Context, userID int, offset string) (*services.UserPlaylists, error) {
	if m.playlists == nil {
		return &services.UserPlaylists{}, nil
	}
	return m.playlists[offset], nil
}

func (m *mockClient) UserFollowingsIDs(ctx context.Context, userID int) (*services.IDCollection, error) {
	m.followingsCalls++
	if m.followingsErr != nil {
		return nil, m.followingsErr
	}
	return m.followings, nil
}

func (m *mockClient) UserComments(ctx context.Context, userID int, offset string) (*services.Comments, error) {
	m.commentCalls = append(m.commentCalls, fmt.Sprintf("%d:%s", userID, offset))
	return m.comments[userID][offset], nil
}

func (m *mockClient) AllTracks(ctx context.Context, ids []int, batchSize, workers int) ([]services.Track, error) {
	if m.tracksErr != nil {
		return nil, m.tracksErr
	}
	m.resolved = append(m.resolved, ids...)
	tracks := make([]services.Track, len(ids))
	for i, id := range ids {
		tracks[i] = services.Track{ID: id, Title: fmt.Sprintf("Track %d", id)}
	}
	return tracks, nil
}

func (m *mockClient) CreatePlaylist(ctx context.Context, req services.PlaylistCreateRequest) (*services.Playlist, error) {
	if m.saveErr != nil {
		return nil, m.saveErr
	}
	m.created = &req
	if m.noSave {
		return nil, nil
	}
	return &services.Playlist{ID: 1, Title: req.Playlist.Title}, nil
}

func (m *mockClient) UpdatePlaylist(ctx context.Context, playlistID int, req services.PlaylistCreateRequest) (*services.Playlist, error) {
	if m.saveErr != nil {
		return nil, m.saveErr
	}
	m.updatedID = playlistID
	m.updated = &req
	return &services.Playlist{ID: playlistID, Title: req.Playlist.Title}, nil
}

func feedItem(at time.Time, typ string, trackID int) services.FeedItem {
	return services.FeedItem{
		CreatedAt: at,
		Type:      typ,
		User:      &services.User{ID: 7},
		Track:     &services.Track{ID: trackID, Title: fmt.Sprintf("Track %d", trackID)},
	}
}

func comment(at time.Time, userID, trackID int) services.Comment {
	return services.Comment{ID: trackID * 10, CreatedAt: at, TrackID: trackID, UserID: userID, User: &services.User{ID: userID}}
}

func nextHref(offset string) string {
	return "https://api-v2.soundcloud.com/stream/users/42/reposts?offset=" + offset + "&limit=100"
}

func newTestEngine(client SoundCloudClient, cfg shared.WeeklyConfig) (*WeeklyEngine, *bytes.Buffer) {
	var logs bytes.Buffer
	e := NewWeeklyEngine(client, cfg, testUserID, shared.NewLogger(&logs))
	e.now = func() time.Time { return testNow }
	return e, &logs
}

func defaultWeekly() shared.WeeklyConfig {
	return shared.WeeklyConfig{
		Feed:      FeedReposts,
		Types:     []string{"track-repost", "track"},
		BatchSize: 30,
		Workers:   2,
		Sharing:   "private",
	}
}

func TestCollectTrackIDs(t *testing.T) {
	at := date(2025, time.February, 11, 0, 0)

	t.Run("dedupes across types keeping the first position", func(t *testing.T) {
		items := []services.FeedItem{
			feedItem(at, "track-repost", 5),
			feedItem(at, "track", 3),
			feedItem(at, "track-repost", 5),
			feedItem(at, "track", 7),
		}
		got := CollectTrackIDs(items, []string{"track-repost", "track"})
		if want := []int{5, 3, 7}; !reflect.DeepEqual(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}
	})

	t.Run("type order decides position", func(t *testing.T) {
		items := []services.FeedItem{
			feedItem(at, "track", 1),
			feedItem(at, "track-repost", 2),
			feedItem(at, "track", 2),
		}
		got := CollectTrackIDs(items, []string{"track-repost", "track"})
		if want := []int{2, 1}; !reflect.DeepEqual(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}
	})

	t.Run("unrequested types are ignored", func(t *testing.T) {
		items := []services.FeedItem{feedItem(at, "track", 1), feedItem(at, "track-repost", 2)}
		got := CollectTrackIDs(items, []string{"track"})
		if want := []int{1}; !reflect.DeepEqual(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}
	})

	t.Run("playlists contribute all their tracks", func(t *testing.T) {
		items := []services.FeedItem{
			{
				CreatedAt: at,
				Type:      "playlist-repost",
				Playlist:  &services.Playlist{ID: 9, Tracks: []services.TrackRef{{ID: 4}, {ID: 6}}},
			},
			feedItem(at, "track-repost", 6),
		}
		got := CollectTrackIDs(items, []string{"playlist-repost", "track-repost"})
		if want := []int{4, 6}; !reflect.DeepEqual(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}
	})

	t.Run("likes derive their type from the payload", func(t *testing.T) {
		items := []services.FeedItem{{CreatedAt: at, Kind: "like", Track: &services.Track{ID: 8, Title: "x"}}}
		got := CollectTrackIDs(items, []string{"track"})
		if want := []int{8}; !reflect.DeepEqual(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}
	})

	t.Run("no items", func(t *testing.T) {
		if got := CollectTrackIDs(nil, []string{"track"}); len(got) != 0 {
			t.Errorf("expected no ids, got %v", got)
		}
	})
}

func TestWeeklyEngine_Run(t *testing.T) {
	inWindow := date(2025, time.February, 14, 12, 0)
	beforeWindow := date(2025, time.February, 8, 12, 0)
	afterWindow := date(2025, time.February, 18, 12, 0)

	t.Run("creates playlist from in-window items", func(t *testing.T) {
		client := &mockClient{feed: map[string]*services.Reposts{
			"": {
				Collection: []services.FeedItem{
					feedItem(afterWindow, "track-repost", 99),
					feedItem(inWindow, "track-repost", 5),
					feedItem(inWindow, "track", 3),
				},
				NextHref: nextHref("P2"),
			},
			"P2": {
				Collection: []services.FeedItem{
					feedItem(inWindow, "track-repost", 5),
					feedItem(inWindow, "track", 7),
					feedItem(beforeWindow, "track", 1),
					feedItem(inWindow, "track", 2),
				},
				NextHref: nextHref("P3"),
			},
		}}

		e, _ := newTestEngine(client, defaultWeekly())
		result, err := e.Run(context.Background(), 0, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if want := []string{"", "P2"}; !reflect.DeepEqual(client.feedCalls, want) {
			t.Errorf("expected feed calls %v, got %v", want, client.feedCalls)
		}
		if want := []int{5, 3, 7}; !reflect.DeepEqual(result.TrackIDs, want) {
			t.Errorf("expected track ids %v, got %v", want, result.TrackIDs)
		}
		if result.Pages != 2 || result.Items != 4 {
			t.Errorf("expected 2 pages and 4 items, got %d and %d", result.Pages, result.Items)
		}
		if client.created == nil {
			t.Fatal("expected playlist to be created")
		}
		pl := client.created.Playlist
		if pl.Title != "Weekly Favorites 2025-02-10 - 2025-02-16" {
			t.Errorf("unexpected title %q", pl.Title)
		}
		if !reflect.DeepEqual(pl.Tracks, []int{5, 3, 7}) {
			t.Errorf("expected playlist tracks [5 3 7], got %v", pl.Tracks)
		}
		if pl.Sharing != "private" || !strings.Contains(pl.TagList, "CW7") {
			t.Errorf("unexpected sharing or tags: %q %q", pl.Sharing, pl.TagList)
		}
		if result.Updated || result.Playlist == nil || result.Playlist.ID != 1 {
			t.Errorf("expected created playlist in result, got %+v", result.Playlist)
		}
	})

	t.Run("updates existing playlist with the same title", func(t *testing.T) {
		title := WeekWindow(testNow, -1).Title()
		client := &mockClient{
			feed: map[string]*services.Reposts{
				"": {Collection: []services.FeedItem{feedItem(date(2025, time.February, 5, 0, 0), "track", 11)}},
			},
			playlists: map[string]*services.UserPlaylists{
				"":   {Collection: []services.Playlist{{ID: 3, Title: "Something else"}}, NextHref: nextHref("L2")},
				"L2": {Collection: []services.Playlist{{ID: 77, Title: title}}},
			},
		}

		e, _ := newTestEngine(client, defaultWeekly())
		result, err := e.Run(context.Background(), -1, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if client.created != nil {
			t.Error("expected no playlist to be created")
		}
		if client.updatedID != 77 {
			t.Errorf("expected playlist 77 to be updated, got %d", client.updatedID)
		}
		if !result.Updated {
			t.Error("expected result to be marked as updated")
		}
		if !reflect.DeepEqual(client.updated.Playlist.Tracks, []int{11}) {
			t.Errorf("expected tracks [11], got %v", client.updated.Playlist.Tracks)
		}
	})

	t.Run("empty week creates an empty playlist", func(t *testing.T) {
		client := &mockClient{feed: map[string]*services.Reposts{
			"": {Collection: []services.FeedItem{feedItem(beforeWindow, "track", 1)}, NextHref: nextHref("P2")},
		}}

		e, logs := newTestEngine(client, defaultWeekly())
		result, err := e.Run(context.Background(), 0, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(client.resolved) != 0 {
			t.Errorf("expected no track lookups, got %v", client.resolved)
		}
		if client.created == nil || len(client.created.Playlist.Tracks) != 0 {
			t.Errorf("expected empty playlist to be created, got %+v", client.created)
		}
		if len(result.TrackIDs) != 0 {
			t.Errorf("expected no track ids, got %v", result.TrackIDs)
		}
		if !strings.Contains(logs.String(), "No tracks in window") {
			t.Error("expected empty week to be logged")
		}
	})

	t.Run("hard failure aborts", func(t *testing.T) {
		client := &mockClient{feedErr: fmt.Errorf("%w: get_user_reposts: bad shape", shared.ErrSchemaValidation)}

		e, _ := newTestEngine(client, defaultWeekly())
		_, err := e.Run(context.Background(), 0, nil)
		if !errors.Is(err, shared.ErrSchemaValidation) {
			t.Fatalf("expected ErrSchemaValidation, got %v", err)
		}
		if client.created != nil || client.updated != nil {
			t.Error("expected no playlist to be saved")
		}
		if len(client.feedCalls) != 1 {
			t.Errorf("expected a single attempt, got %d", len(client.feedCalls))
		}
	})

	t.Run("track resolution failure aborts", func(t *testing.T) {
		client := &mockClient{
			feed:      map[string]*services.Reposts{"": {Collection: []services.FeedItem{feedItem(inWindow, "track", 1)}}},
			tracksErr: shared.ErrAPIRequest,
		}

		e, _ := newTestEngine(client, defaultWeekly())
		if _, err := e.Run(context.Background(), 0, nil); !errors.Is(err, shared.ErrAPIRequest) {
			t.Fatalf("expected ErrAPIRequest, got %v", err)
		}
		if client.created != nil {
			t.Error("expected no playlist to be saved")
		}
	})

	t.Run("save failure is returned", func(t *testing.T) {
		client := &mockClient{saveErr: shared.ErrAPIRequest, feed: map[string]*services.Reposts{"": {}}}

		e, _ := newTestEngine(client, defaultWeekly())
		if _, err := e.Run(context.Background(), 0, nil); !errors.Is(err, shared.ErrAPIRequest) {
			t.Fatalf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("undecodable page ends the walk", func(t *testing.T) {
		client := &mockClient{feed: map[string]*services.Reposts{
			"": {Collection: []services.FeedItem{feedItem(inWindow, "track", 4)}, NextHref: nextHref("missing")},
		}}

		e, logs := newTestEngine(client, defaultWeekly())
		result, err := e.Run(context.Background(), 0, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !reflect.DeepEqual(result.TrackIDs, []int{4}) {
			t.Errorf("expected tracks from the first page, got %v", result.TrackIDs)
		}
		if !strings.Contains(logs.String(), "could not be decoded") {
			t.Error("expected soft failure to be logged")
		}
	})

	t.Run("undecodable save response", func(t *testing.T) {
		client := &mockClient{noSave: true, feed: map[string]*services.Reposts{"": {}}}

		e, _ := newTestEngine(client, defaultWeekly())
		result, err := e.Run(context.Background(), 0, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.Playlist != nil {
			t.Errorf("expected no playlist, got %+v", result.Playlist)
		}
	})

	t.Run("excludes liked tracks", func(t *testing.T) {
		client := &mockClient{
			feed: map[string]*services.Reposts{"": {Collection: []services.FeedItem{
				feedItem(inWindow, "track-repost", 1),
				feedItem(inWindow, "track-repost", 2),
				feedItem(inWindow, "track-repost", 3),
			}}},
			likes: map[string]*services.Likes{
				"":   {Collection: []services.FeedItem{feedItem(afterWindow, "", 2)}, NextHref: nextHref("K2")},
				"K2": {Collection: []services.FeedItem{feedItem(beforeWindow, "", 3)}},
			},
		}
		cfg := defaultWeekly()
		cfg.ExcludeLiked = true

		e, _ := newTestEngine(client, cfg)
		result, err := e.Run(context.Background(), 0, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !reflect.DeepEqual(result.TrackIDs, []int{1}) {
			t.Errorf("expected [1], got %v", result.TrackIDs)
		}
		if result.Excluded != 2 || client.likesCalls != 2 {
			t.Errorf("expected 2 exclusions over 2 like pages, got %d and %d", result.Excluded, client.likesCalls)
		}
	})

	t.Run("stream feed excludes own uploads", func(t *testing.T) {
		own := feedItem(inWindow, "track", 8)
		own.User = &services.User{ID: testUserID}
		client := &mockClient{feed: map[string]*services.Reposts{
			"": {Collection: []services.FeedItem{own, feedItem(inWindow, "track", 9)}},
		}}
		cfg := defaultWeekly()
		cfg.Feed = FeedStream
		cfg.ExcludeOwn = true

		e, _ := newTestEngine(client, cfg)
		result, err := e.Run(context.Background(), 0, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !reflect.DeepEqual(result.TrackIDs, []int{9}) {
			t.Errorf("expected [9], got %v", result.TrackIDs)
		}
	})

	t.Run("likes feed", func(t *testing.T) {
		client := &mockClient{likes: map[string]*services.Likes{
			"": {Collection: []services.FeedItem{
				{CreatedAt: inWindow, Kind: "like", Track: &services.Track{ID: 12, Title: "x"}},
				{CreatedAt: beforeWindow, Kind: "like", Track: &services.Track{ID: 13, Title: "y"}},
			}},
		}}
		cfg := defaultWeekly()
		cfg.Feed = FeedLikes
		cfg.Types = []string{"track"}

		e, _ := newTestEngine(client, cfg)
		result, err := e.Run(context.Background(), 0, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !reflect.DeepEqual(result.TrackIDs, []int{12}) {
			t.Errorf("expected [12], got %v", result.TrackIDs)
		}
		if len(client.feedCalls) != 0 {
			t.Error("expected reposts feed to be untouched")
		}
	})

	t.Run("comments of followed users", func(t *testing.T) {
		client := &mockClient{
			feed: map[string]*services.Reposts{
				"": {Collection: []services.FeedItem{feedItem(inWindow, "track-repost", 1)}},
			},
			followings: &services.IDCollection{Collection: []int{100, 200}},
			comments: map[int]map[string]*services.Comments{
				100: {
					"": {
						Collection: []services.Comment{comment(afterWindow, 100, 20), comment(inWindow, 100, 21)},
						NextHref:   nextHref("C2"),
					},
					"C2": {Collection: []services.Comment{
						comment(inWindow, 100, 1),
						comment(beforeWindow, 100, 22),
						comment(inWindow, 100, 23),
					}},
				},
				200: {"": {Collection: []services.Comment{comment(inWindow, 200, 24)}}},
			},
		}
		cfg := defaultWeekly()
		cfg.Types = []string{"comment", "track-repost"}

		e, _ := newTestEngine(client, cfg)
		result, err := e.Run(context.Background(), 0, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if want := []int{21, 1, 24}; !reflect.DeepEqual(result.TrackIDs, want) {
			t.Errorf("expected %v, got %v", want, result.TrackIDs)
		}
		if want := []string{"100:", "100:C2", "200:"}; !reflect.DeepEqual(client.commentCalls, want) {
			t.Errorf("expected comment pages %v, got %v", want, client.commentCalls)
		}
		if result.Items != 4 {
			t.Errorf("expected 4 items, got %d", result.Items)
		}
	})

	t.Run("comments are only fetched when requested", func(t *testing.T) {
		client := &mockClient{feed: map[string]*services.Reposts{"": {}}}

		e, _ := newTestEngine(client, defaultWeekly())
		if _, err := e.Run(context.Background(), 0, nil); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if client.followingsCalls != 0 || len(client.commentCalls) != 0 {
			t.Errorf("expected no comment requests, got %d and %v", client.followingsCalls, client.commentCalls)
		}
	})

	t.Run("followings failure aborts", func(t *testing.T) {
		client := &mockClient{
			feed:          map[string]*services.Reposts{"": {}},
			followingsErr: fmt.Errorf("%w: status 500", shared.ErrAPIRequest),
		}
		cfg := defaultWeekly()
		cfg.Types = []string{"comment"}

		e, _ := newTestEngine(client, cfg)
		if _, err := e.Run(context.Background(), 0, nil); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
		if client.created != nil {
			t.Error("expected no playlist to be saved")
		}
	})

	t.Run("reports progress", func(t *testing.T) {
		client := &mockClient{feed: map[string]*services.Reposts{
			"": {Collection: []services.FeedItem{feedItem(inWindow, "track", 1)}},
		}}
		progress := make(chan ProgressUpdate, 20)

		e, _ := newTestEngine(client, defaultWeekly())
		if _, err := e.Run(context.Background(), 0, progress); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		close(progress)

		var phases []Phase
		for u := range progress {
			phases = append(phases, u.Phase)
		}
		want := []Phase{FetchFeed, ResolveTracks, FindPlaylist, CreatePlaylist, CreatePlaylist}
		if !reflect.DeepEqual(phases, want) {
			t.Errorf("expected phases %v, got %v", want, phases)
		}
	})

	t.Run("full progress channel never blocks", func(t *testing.T) {
		client := &mockClient{feed: map[string]*services.Reposts{"": {}}}
		progress := make(chan ProgressUpdate)

		e, _ := newTestEngine(client, defaultWeekly())
		if _, err := e.Run(context.Background(), 0, progress); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("rejects future weeks", func(t *testing.T) {
		e, _ := newTestEngine(&mockClient{}, defaultWeekly())
		if _, err := e.Run(context.Background(), 1, nil); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("unknown feed", func(t *testing.T) {
		cfg := defaultWeekly()
		cfg.Feed = "comments"
		e, _ := newTestEngine(&mockClient{}, cfg)
		if _, err := e.Run(context.Background(), 0, nil); !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("nil client", func(t *testing.T) {
		e := NewWeeklyEngine(nil, defaultWeekly(), testUserID, nil)
		if _, err := e.Run(context.Background(), 0, nil); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

func TestNewWeeklyEngine(t *testing.T) {
	e := NewWeeklyEngine(&mockClient{}, shared.WeeklyConfig{}, testUserID, nil)
	if e.cfg.Feed != FeedReposts {
		t.Errorf("expected default feed reposts, got %q", e.cfg.Feed)
	}
	if e.cfg.BatchSize != services.DefaultBatchSize {
		t.Errorf("expected default batch size, got %d", e.cfg.BatchSize)
	}
	if e.cfg.Sharing != "private" {
		t.Errorf("expected private sharing, got %q", e.cfg.Sharing)
	}
}

// feedJSON renders a reposts page the way the API returns it.
func feedJSON(t *testing.T, next string, items ...map[string]any) []byte {
	t.Helper()
	page := map[string]any{"collection": items, "next_href": nil}
	if next != "" {
		page["next_href"] = next
	}
	data, err := json.Marshal(page)
	if err != nil {
		t.Fatalf("failed to encode feed: %v", err)
	}
	return data
}

func repost(at time.Time, typ string, id int) map[string]any {
	return map[string]any{
		"created_at": at.Format(time.RFC3339),
		"type":       typ,
		"user":       map[string]any{"id": 7, "username": "friend"},
		"track":      map[string]any{"id": id, "title": fmt.Sprintf("Track %d", id)},
	}
}

func TestWeeklyEngine_EndToEnd(t *testing.T) {
	var (
		feedRequests  []string
		trackRequests []string
		posted        services.PlaylistCreateRequest
	)

	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/stream/users/42/reposts":
			offset := r.URL.Query().Get("offset")
			feedRequests = append(feedRequests, offset)
			next := server.URL + "/stream/users/42/reposts?limit=100&offset="
			switch offset {
			case "":
				w.Write(feedJSON(t, next+"P2",
					repost(date(2025, time.February, 20, 9, 0), "track-repost", 100),
					repost(date(2025, time.February, 15, 9, 0), "track-repost", 11),
					repost(date(2025, time.February, 13, 9, 0), "track", 12),
				))
			case "P2":
				w.Write(feedJSON(t, next+"P3",
					repost(date(2025, time.February, 11, 9, 0), "track-repost", 13),
					repost(date(2025, time.February, 7, 9, 0), "track-repost", 14),
				))
			default:
				t.Errorf("pagination did not halt, got offset %q", offset)
				w.Write(feedJSON(t, ""))
			}
		case r.URL.Path == "/tracks":
			ids := r.URL.Query().Get("ids")
			trackRequests = append(trackRequests, ids)
			var tracks []map[string]any
			parts := strings.Split(ids, ",")
			for i := len(parts) - 1; i >= 0; i-- {
				tracks = append(tracks, map[string]any{"id": json.Number(parts[i]), "title": "Track " + parts[i]})
			}
			json.NewEncoder(w).Encode(tracks)
		case r.URL.Path == "/users/42/playlists_without_albums":
			w.Write([]byte(`{"collection": [], "next_href": null}`))
		case r.URL.Path == "/playlists" && r.Method == http.MethodPost:
			if err := json.NewDecoder(r.Body).Decode(&posted); err != nil {
				t.Errorf("failed to decode playlist body: %v", err)
			}
			fmt.Fprintf(w, `{"id": 500, "title": %q, "tracks": [{"id": 11}, {"id": 12}, {"id": 13}]}`, posted.Playlist.Title)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{}`))
		}
	}))
	defer server.Close()

	var logs bytes.Buffer
	logger := shared.NewLogger(&logs)
	client, err := services.NewClient(services.ClientOpts{
		BaseURL:    server.URL,
		OAuthToken: "token",
		ClientID:   "cid",
		Logger:     logger,
	})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	e := NewWeeklyEngine(client, defaultWeekly(), testUserID, logger)
	e.now = func() time.Time { return testNow }

	result, err := e.Run(context.Background(), 0, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v\n%s", err, logs.String())
	}

	if want := []string{"", "P2"}; !reflect.DeepEqual(feedRequests, want) {
		t.Errorf("expected feed requests %v, got %v", want, feedRequests)
	}
	if len(trackRequests) != 1 || trackRequests[0] != "11,13,12" {
		t.Errorf("expected one track lookup for 11,13,12, got %v", trackRequests)
	}
	if len(result.Tracks) != 3 {
		t.Fatalf("expected 3 tracks, got %d", len(result.Tracks))
	}
	if want := []int{11, 13, 12}; !reflect.DeepEqual(posted.Playlist.Tracks, want) {
		t.Errorf("expected posted tracks %v, got %v", want, posted.Playlist.Tracks)
	}
	if result.Playlist == nil || result.Playlist.ID != 500 {
		t.Errorf("expected playlist 500, got %+v", result.Playlist)
	}
	if posted.Playlist.Title != "Weekly Favorites 2025-02-10 - 2025-02-16" {
		t.Errorf("unexpected title %q", posted.Playlist.Title)
	}
}

func TestWeeklyEngine_findPlaylist(t *testing.T) {
	title := "Weekly Favorites 2025-02-10 - 2025-02-16"

	t.Run("finds playlist on a later page", func(t *testing.T) {
		client := &mockClient{playlists: map[string]*services.UserPlaylists{
			"":   {Collection: []services.Playlist{{ID: 1, Title: "Other"}}, NextHref: nextHref("P2")},
			"P2": {Collection: []services.Playlist{{ID: 2, Title: title}}},
		}}
		e, _ := newTestEngine(client, defaultWeekly())

		pl, err := e.findPlaylist(context.Background(), title, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if pl.ID != 2 {
			t.Errorf("expected playlist 2, got %d", pl.ID)
		}
	})

	t.Run("no match", func(t *testing.T) {
		client := &mockClient{playlists: map[string]*services.UserPlaylists{
			"": {Collection: []services.Playlist{{ID: 1, Title: "Other"}}},
		}}
		e, _ := newTestEngine(client, defaultWeekly())

		pl, err := e.findPlaylist(context.Background(), title, nil)
		if !errors.Is(err, shared.ErrPlaylistNotFound) || pl != nil {
			t.Errorf("expected ErrPlaylistNotFound, got %v, %v", pl, err)
		}
	})

	t.Run("undecodable page", func(t *testing.T) {
		client := &mockClient{playlists: map[string]*services.UserPlaylists{}}
		e, logs := newTestEngine(client, defaultWeekly())

		if _, err := e.findPlaylist(context.Background(), title, nil); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
		if !strings.Contains(logs.String(), "could not be decoded") {
			t.Errorf("expected warning, got %s", logs.String())
		}
	})
}
