package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/desertthunder/musictransfer/internal/shared"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

func newTestYouTubeService(t *testing.T, handler http.Handler) *YouTubeService {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc, err := NewYouTubeService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	return svc
}

func TestYouTubeService(t *testing.T) {
	t.Run("Name", func(t *testing.T) {
		svc := newTestYouTubeService(t, http.NotFoundHandler())
		if svc.Name() != "YouTube" {
			t.Errorf("expected 'YouTube', got %s", svc.Name())
		}
	})

	t.Run("CreatePlaylist", func(t *testing.T) {
		t.Run("Success", func(t *testing.T) {
			var got youtube.Playlist
			svc := newTestYouTubeService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost || r.URL.Path != "/youtube/v3/playlists" {
					t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
				}
				if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
					t.Errorf("failed to decode body: %v", err)
				}
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, `{"id":"PL123","snippet":{"title":"Road Trip"}}`)
			}))

			playlist, err := svc.CreatePlaylist(context.Background(), "Road Trip", PlaylistDescription)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if playlist.Id != "PL123" {
				t.Errorf("expected id PL123, got %s", playlist.Id)
			}
			if got.Snippet == nil || got.Snippet.Description != PlaylistDescription {
				t.Errorf("expected description %q to be sent", PlaylistDescription)
			}
		})

		t.Run("Empty Title", func(t *testing.T) {
			svc := newTestYouTubeService(t, http.NotFoundHandler())
			_, err := svc.CreatePlaylist(context.Background(), "", PlaylistDescription)
			if !errors.Is(err, shared.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})

		t.Run("API Error", func(t *testing.T) {
			svc := newTestYouTubeService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				fmt.Fprint(w, `{"error":{"code":403,"message":"quotaExceeded"}}`)
			}))

			_, err := svc.CreatePlaylist(context.Background(), "Road Trip", PlaylistDescription)
			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest, got %v", err)
			}
		})
	})

	t.Run("MyChannels", func(t *testing.T) {
		svc := newTestYouTubeService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("mine") != "true" {
				t.Errorf("expected mine=true, got %s", r.URL.RawQuery)
			}
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"items":[{"id":"UC1","snippet":{"title":"My Channel"}}]}`)
		}))

		resp, err := svc.MyChannels(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(resp.Items) != 1 || resp.Items[0].Snippet.Title != "My Channel" {
			t.Errorf("unexpected channels: %+v", resp.Items)
		}
	})
}
