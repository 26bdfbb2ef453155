package services

import (
	"context"
	"fmt"

	"github.com/desertthunder/musictransfer/internal/shared"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// YouTubeService calls the YouTube Data API for one authenticated user.
type YouTubeService struct {
	service *youtube.Service
}

// NewYouTubeService creates a [YouTubeService]. Callers pass the authenticated transport,
// typically [option.WithTokenSource] or [option.WithHTTPClient].
func NewYouTubeService(ctx context.Context, opts ...option.ClientOption) (*YouTubeService, error) {
	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: youtube client: %w", shared.ErrServiceUnavailable, err)
	}
	return &YouTubeService{service: svc}, nil
}

func (s *YouTubeService) Name() string {
	return "YouTube"
}

// CreatePlaylist creates a new playlist owned by the authenticated user.
func (s *YouTubeService) CreatePlaylist(ctx context.Context, title, description string) (*youtube.Playlist, error) {
	if title == "" {
		return nil, fmt.Errorf("%w: playlist title is required", shared.ErrInvalidInput)
	}

	playlist := &youtube.Playlist{
		Snippet: &youtube.PlaylistSnippet{
			Title:       title,
			Description: description,
		},
	}

	created, err := s.service.Playlists.Insert([]string{"snippet"}, playlist).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%w: create playlist %q: %w", shared.ErrAPIRequest, title, err)
	}
	return created, nil
}

// MyChannels lists the authenticated user's channels.
func (s *YouTubeService) MyChannels(ctx context.Context) (*youtube.ChannelListResponse, error) {
	resp, err := s.service.Channels.List([]string{"snippet"}).Mine(true).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%w: list channels: %w", shared.ErrAPIRequest, err)
	}
	return resp, nil
}
