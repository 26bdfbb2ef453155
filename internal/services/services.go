// package services defines the playlist source and destination used by the converter
package services

import (
	"context"

	"github.com/desertthunder/musictransfer/internal/models"
	"google.golang.org/api/youtube/v3"
)

// PlaylistDescription is attached to every playlist created on YouTube.
const PlaylistDescription = "Imported using Music Transfer"

// PlaylistSource reads playlists from a streaming service.
type PlaylistSource interface {
	Name() string

	// SelectPlaylist resolves free-form user input to a playlist ID.
	SelectPlaylist(ctx context.Context, input string) (string, error)

	// PlaylistSummary retrieves playlist metadata including its track count.
	PlaylistSummary(ctx context.Context, playlistID string) (*PlaylistSummary, error)

	// PlaylistSongs retrieves one page of a playlist's tracks.
	PlaylistSongs(ctx context.Context, playlistID string, limit, offset int) ([]models.Song, error)
}

// PlaylistDestination creates playlists for an authenticated user.
type PlaylistDestination interface {
	Name() string

	// CreatePlaylist creates an empty playlist and returns it.
	CreatePlaylist(ctx context.Context, title, description string) (*youtube.Playlist, error)

	// MyChannels lists the channels owned by the authenticated user.
	MyChannels(ctx context.Context) (*youtube.ChannelListResponse, error)
}

var (
	_ PlaylistSource      = (*SpotifyService)(nil)
	_ PlaylistDestination = (*YouTubeService)(nil)
)

// PlaylistSummary is the metadata needed to plan a scrape.
type PlaylistSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Owner       string `json:"owner"`
	Description string `json:"description"`
	TrackCount  int    `json:"track_count"`
}

// Loops returns how many pages of pageSize are needed to read trackCount tracks.
func Loops(trackCount, pageSize int) int {
	if trackCount <= 0 || pageSize <= 0 {
		return 0
	}
	return (trackCount + pageSize - 1) / pageSize
}
