// SoundCloud API v2 response and request types
//
// Only the fields the archive uses are modeled. Identifying fields carry
// `validate:"required"` tags so an unexpectedly shaped response fails
// [Endpoint.Call] instead of producing zero values.
package services

import (
	"strings"
	"time"
)

// User represents a SoundCloud user profile.
type User struct {
	ID        int    `json:"id" validate:"required"`
	Kind      string `json:"kind"`
	Username  string `json:"username"`
	FullName  string `json:"full_name"`
	Permalink string `json:"permalink"`
	URN       string `json:"urn"`
	AvatarURL string `json:"avatar_url"`
	Verified  bool   `json:"verified"`
}

// PublisherMetadata holds label-provided track information.
type PublisherMetadata struct {
	ID     int    `json:"id"`
	Artist string `json:"artist"`
	ISRC   string `json:"isrc"`
}

// Track represents a full SoundCloud track.
type Track struct {
	ID                int                `json:"id" validate:"required"`
	Kind              string             `json:"kind"`
	Title             string             `json:"title" validate:"required"`
	Duration          int                `json:"duration"` // milliseconds
	Genre             *string            `json:"genre"`
	ArtworkURL        *string            `json:"artwork_url"`
	PermalinkURL      string             `json:"permalink_url"`
	CreatedAt         time.Time          `json:"created_at"`
	UserID            int                `json:"user_id"`
	User              *User              `json:"user"`
	PublisherMetadata *PublisherMetadata `json:"publisher_metadata"`
}

// Artist prefers the publisher's artist name and falls back to the uploader.
func (t Track) Artist() string {
	if t.PublisherMetadata != nil && t.PublisherMetadata.Artist != "" {
		return t.PublisherMetadata.Artist
	}
	if t.User != nil {
		return t.User.Username
	}
	return ""
}

// HQArtworkURL returns the 500x500 variant of the artwork, or "" when there is none.
func (t Track) HQArtworkURL() string {
	if t.ArtworkURL == nil {
		return ""
	}
	return strings.Replace(*t.ArtworkURL, "-large.", "-t500x500.", 1)
}

// TrackRef is the slim track representation embedded in playlists and comments.
type TrackRef struct {
	ID   int    `json:"id" validate:"required"`
	Kind string `json:"kind"`
}

// Playlist represents a SoundCloud playlist (set).
type Playlist struct {
	ID           int        `json:"id" validate:"required"`
	Kind         string     `json:"kind"`
	Title        string     `json:"title"`
	Description  *string    `json:"description"`
	Sharing      string     `json:"sharing"`
	TagList      *string    `json:"tag_list"`
	PermalinkURL string     `json:"permalink_url"`
	URI          string     `json:"uri"`
	TrackCount   int        `json:"track_count"`
	CreatedAt    time.Time  `json:"created_at"`
	UserID       int        `json:"user_id"`
	Tracks       []TrackRef `json:"tracks" validate:"dive"`
}

// TrackIDs returns the ids of the playlist's tracks in playlist order.
func (p Playlist) TrackIDs() []int {
	ids := make([]int, len(p.Tracks))
	for i, t := range p.Tracks {
		ids[i] = t.ID
	}
	return ids
}

// FeedItem is a single entry of an activity feed.
//
// Stream and repost feeds carry a Type ("track", "track-repost", "playlist",
// "playlist-repost"); like feeds carry Kind "like" and either a Track or a Playlist.
// Comments are folded in with Type "comment" through [Comment.FeedItem].
type FeedItem struct {
	CreatedAt time.Time `json:"created_at" validate:"required"`
	Type      string    `json:"type"`
	Kind      string    `json:"kind"`
	UUID      string    `json:"uuid"`
	Caption   *string   `json:"caption"`
	User      *User     `json:"user"`
	Track     *Track    `json:"track"`
	Playlist  *Playlist `json:"playlist"`
}

// ActivityType returns the item's Type, deriving it from the payload for like feeds.
func (i FeedItem) ActivityType() string {
	switch {
	case i.Type != "":
		return i.Type
	case i.Track != nil:
		return "track"
	case i.Playlist != nil:
		return "playlist"
	default:
		return ""
	}
}

// TrackIDs returns the track ids referenced by the item.
func (i FeedItem) TrackIDs() []int {
	switch {
	case i.Track != nil:
		return []int{i.Track.ID}
	case i.Playlist != nil:
		return i.Playlist.TrackIDs()
	default:
		return nil
	}
}

// Comment is a timed comment a user left on a track.
type Comment struct {
	ID        int       `json:"id" validate:"required"`
	Kind      string    `json:"kind"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at" validate:"required"`
	Timestamp *int      `json:"timestamp"` // position in the track, milliseconds
	TrackID   int       `json:"track_id" validate:"required"`
	UserID    int       `json:"user_id"`
	User      *User     `json:"user"`
	Track     *TrackRef `json:"track"`
}

// FeedItem wraps the comment as a "comment" activity referencing its track.
func (c Comment) FeedItem() FeedItem {
	return FeedItem{
		CreatedAt: c.CreatedAt,
		Type:      "comment",
		Kind:      c.Kind,
		User:      c.User,
		Track:     &Track{ID: c.TrackID},
	}
}

// Collection is the linked-partitioning envelope used by paginated endpoints.
type Collection[T any] struct {
	Collection []T    `json:"collection" validate:"dive"`
	NextHref   string `json:"next_href"`
	QueryURN   string `json:"query_urn"`
}

// NextOffset returns the cursor for the following page, or "" on the last page.
func (c Collection[T]) NextOffset() string {
	return NextOffset(c.NextHref)
}

type (
	Likes         = Collection[FeedItem]
	Reposts       = Collection[FeedItem]
	Stream        = Collection[FeedItem]
	UserPlaylists = Collection[Playlist]
	IDCollection  = Collection[int]
	Comments      = Collection[Comment]
)

// PlaylistCreate is the writable part of a playlist.
type PlaylistCreate struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Sharing     string `json:"sharing" validate:"oneof=public private"`
	Tracks      []int  `json:"tracks"`
	TagList     string `json:"tag_list"`
}

// PlaylistCreateRequest is the body of playlist create and update calls.
type PlaylistCreateRequest struct {
	Playlist PlaylistCreate `json:"playlist"`
}
