package services

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/desertthunder/musictransfer/internal/models"
	"github.com/desertthunder/musictransfer/internal/shared"
	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	spotifyTokenURL = "https://accounts.spotify.com/api/token"

	// PageSize is the largest page the playlist items endpoint returns.
	PageSize = 100
)

var (
	playlistURLPattern = regexp.MustCompile(`^/(?:intl-[a-zA-Z-]+/)?(?:user/[^/]+/)?playlist/([0-9A-Za-z]+)/?$`)
	playlistURIPattern = regexp.MustCompile(`^spotify:(?:user:[^:]+:)?playlist:([0-9A-Za-z]+)$`)
	playlistIDPattern  = regexp.MustCompile(`^[0-9A-Za-z]{22}$`)
)

// SpotifyService reads playlists through the Spotify Web API with an app (client credentials) token.
type SpotifyService struct {
	client *spotify.Client
}

// NewSpotifyService creates a [SpotifyService] from "client_id" and "client_secret" credentials.
//
// An optional "token_url" overrides the Spotify accounts endpoint. The context bounds token requests.
func NewSpotifyService(ctx context.Context, credentials map[string]string, opts ...spotify.ClientOption) (*SpotifyService, error) {
	clientID := credentials["client_id"]
	if clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret := credentials["client_secret"]
	if clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	tokenURL := credentials["token_url"]
	if tokenURL == "" {
		tokenURL = spotifyTokenURL
	}

	config := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
	}

	opts = append([]spotify.ClientOption{spotify.WithRetry(true)}, opts...)
	return NewSpotifyServiceFromClient(spotify.New(config.Client(ctx), opts...)), nil
}

// NewSpotifyServiceFromClient wraps an already configured [spotify.Client].
func NewSpotifyServiceFromClient(client *spotify.Client) *SpotifyService {
	return &SpotifyService{client: client}
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// ParsePlaylistID extracts a playlist ID from a share URL (with or without a scheme), a spotify: URI or a bare ID.
func ParsePlaylistID(input string) (string, bool) {
	input = strings.TrimSpace(input)

	if m := playlistURIPattern.FindStringSubmatch(input); m != nil {
		return m[1], true
	}

	if playlistIDPattern.MatchString(input) {
		return input, true
	}

	if lower := strings.ToLower(input); strings.HasPrefix(lower, "open.spotify.com/") || strings.HasPrefix(lower, "play.spotify.com/") {
		input = "https://" + input
	}

	u, err := url.Parse(input)
	if err != nil || u.Host == "" {
		return "", false
	}
	if host := strings.ToLower(u.Host); host != "open.spotify.com" && host != "play.spotify.com" {
		return "", false
	}
	if m := playlistURLPattern.FindStringSubmatch(u.Path); m != nil {
		return m[1], true
	}
	return "", false
}

// SelectPlaylist resolves input to a playlist ID, searching playlists by name when input is not a link or ID.
func (s *SpotifyService) SelectPlaylist(ctx context.Context, input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("%w: empty playlist input", shared.ErrPlaylistNotFound)
	}

	if id, ok := ParsePlaylistID(input); ok {
		return id, nil
	}

	result, err := s.client.Search(ctx, input, spotify.SearchTypePlaylist, spotify.Limit(5))
	if err != nil {
		return "", fmt.Errorf("%w: search %q: %w", shared.ErrAPIRequest, input, err)
	}

	if result.Playlists != nil {
		for _, pl := range result.Playlists.Playlists {
			if pl.ID != "" {
				return pl.ID.String(), nil
			}
		}
	}

	return "", fmt.Errorf("%w: no playlist matches %q", shared.ErrPlaylistNotFound, input)
}

// PlaylistSummary retrieves playlist metadata.
func (s *SpotifyService) PlaylistSummary(ctx context.Context, playlistID string) (*PlaylistSummary, error) {
	pl, err := s.client.GetPlaylist(ctx, spotify.ID(playlistID))
	if err != nil {
		return nil, fmt.Errorf("%w: playlist %s: %w", shared.ErrPlaylistNotFound, playlistID, err)
	}

	owner := pl.Owner.DisplayName
	if owner == "" {
		owner = pl.Owner.ID
	}

	return &PlaylistSummary{
		ID:          pl.ID.String(),
		Name:        pl.Name,
		Owner:       owner,
		Description: pl.Description,
		TrackCount:  int(pl.Tracks.Total),
	}, nil
}

// PlaylistSongs retrieves up to limit tracks starting at offset.
//
// Items without a playable track (removed local files, podcast episodes) are skipped.
func (s *SpotifyService) PlaylistSongs(ctx context.Context, playlistID string, limit, offset int) ([]models.Song, error) {
	if limit <= 0 || limit > PageSize {
		limit = PageSize
	}

	page, err := s.client.GetPlaylistItems(ctx, spotify.ID(playlistID), spotify.Limit(limit), spotify.Offset(offset))
	if err != nil {
		return nil, fmt.Errorf("%w: playlist %s items at %d: %w", shared.ErrAPIRequest, playlistID, offset, err)
	}

	songs := make([]models.Song, 0, len(page.Items))
	for _, item := range page.Items {
		if item.Track.Track == nil {
			continue
		}
		songs = append(songs, songFromTrack(item.Track.Track))
	}
	return songs, nil
}

func songFromTrack(track *spotify.FullTrack) models.Song {
	artists := make([]string, 0, len(track.Artists))
	for _, a := range track.Artists {
		artists = append(artists, a.Name)
	}

	duration := int(track.Duration)
	return models.Song{
		Title:      track.Name,
		Artist:     strings.Join(artists, ", "),
		Length:     shared.FormatDuration(duration),
		DurationMS: duration,
	}
}
