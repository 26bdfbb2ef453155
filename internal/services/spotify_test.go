package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/musictransfer/internal/shared"
	"github.com/zmb3/spotify/v2"
)

const testPlaylistID = "37i9dQZF1DXcBWIGoYBM5M"

func newSpotifyTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"app-token","token_type":"Bearer","expires_in":3600}`)
	})
	mux.HandleFunc("GET /v1/playlists/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != testPlaylistID {
			http.Error(w, `{"error":{"status":404,"message":"Not found."}}`, http.StatusNotFound)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer app-token" {
			http.Error(w, `{"error":{"status":401,"message":"No token"}}`, http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{
			"id": %q,
			"name": "Today's Top Hits",
			"description": "The hottest tracks",
			"owner": {"id": "spotify", "display_name": "Spotify"},
			"tracks": {"total": 250, "items": []}
		}`, testPlaylistID)
	})
	mux.HandleFunc("GET /v1/playlists/{id}/tracks", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		offset := r.URL.Query().Get("offset")
		fmt.Fprintf(w, `{
			"total": 2,
			"items": [
				{"track": {"type": "track", "id": "t1", "name": "Song %s", "duration_ms": 185000,
					"artists": [{"name": "Artist A"}, {"name": "Artist B"}]}},
				{"track": {"type": "track", "id": "t2", "name": "Other", "duration_ms": 61000,
					"artists": [{"name": "Solo"}]}}
			]
		}`, offset)
	})
	mux.HandleFunc("GET /v1/search", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("q") == "nothing here" {
			fmt.Fprint(w, `{"playlists": {"items": [], "total": 0}}`)
			return
		}
		fmt.Fprintf(w, `{"playlists": {"items": [{"id": %q, "name": "Found"}], "total": 1}}`, testPlaylistID)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestSpotifyService(t *testing.T, srv *httptest.Server) *SpotifyService {
	t.Helper()

	credentials := map[string]string{
		"client_id":     "test_client_id",
		"client_secret": "test_client_secret",
		"token_url":     srv.URL + "/token",
	}

	svc, err := NewSpotifyService(context.Background(), credentials, spotify.WithBaseURL(srv.URL+"/v1/"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	return svc
}

func TestSpotifyService(t *testing.T) {
	t.Run("NewSpotifyService", func(t *testing.T) {
		t.Run("With Valid Credentials", func(t *testing.T) {
			credentials := map[string]string{
				"client_id":     "test_client_id",
				"client_secret": "test_client_secret",
			}

			srv, err := NewSpotifyService(context.Background(), credentials)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if srv == nil {
				t.Fatal("expected service to be created")
			}

			if srv.Name() != "Spotify" {
				t.Errorf("expected service name 'Spotify', got %s", srv.Name())
			}
		})

		t.Run("Missing Client ID", func(t *testing.T) {
			credentials := map[string]string{
				"client_secret": "test_client_secret",
			}

			_, err := NewSpotifyService(context.Background(), credentials)
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Missing Client Secret", func(t *testing.T) {
			credentials := map[string]string{
				"client_id": "test_client_id",
			}

			_, err := NewSpotifyService(context.Background(), credentials)
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})
	})

	t.Run("ParsePlaylistID", func(t *testing.T) {
		tests := []struct {
			name  string
			input string
			want  string
			ok    bool
		}{
			{"share URL", "https://open.spotify.com/playlist/" + testPlaylistID + "?si=abc123", testPlaylistID, true},
			{"URL without scheme", "open.spotify.com/playlist/" + testPlaylistID, testPlaylistID, true},
			{"player URL without scheme", "Play.Spotify.com/playlist/" + testPlaylistID + "?si=x", testPlaylistID, true},
			{"localized URL", "https://open.spotify.com/intl-de/playlist/" + testPlaylistID, testPlaylistID, true},
			{"legacy user URL", "https://open.spotify.com/user/someone/playlist/" + testPlaylistID, testPlaylistID, true},
			{"URI", "spotify:playlist:" + testPlaylistID, testPlaylistID, true},
			{"user URI", "spotify:user:someone:playlist:" + testPlaylistID, testPlaylistID, true},
			{"bare ID", "  " + testPlaylistID + " ", testPlaylistID, true},
			{"album URL", "https://open.spotify.com/album/" + testPlaylistID, "", false},
			{"other host", "https://example.com/playlist/" + testPlaylistID, "", false},
			{"name", "chill vibes", "", false},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, ok := ParsePlaylistID(tt.input)
				if ok != tt.ok || got != tt.want {
					t.Errorf("ParsePlaylistID(%q) = %q, %v; want %q, %v", tt.input, got, ok, tt.want, tt.ok)
				}
			})
		}
	})

	t.Run("SelectPlaylist", func(t *testing.T) {
		srv := newSpotifyTestServer(t)
		svc := newTestSpotifyService(t, srv)
		ctx := context.Background()

		t.Run("URL Input", func(t *testing.T) {
			id, err := svc.SelectPlaylist(ctx, "https://open.spotify.com/playlist/"+testPlaylistID)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if id != testPlaylistID {
				t.Errorf("expected %s, got %s", testPlaylistID, id)
			}
		})

		t.Run("URL Without Scheme", func(t *testing.T) {
			id, err := svc.SelectPlaylist(ctx, "open.spotify.com/playlist/"+testPlaylistID)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if id != testPlaylistID {
				t.Errorf("expected %s, got %s", testPlaylistID, id)
			}
		})

		t.Run("Name Search", func(t *testing.T) {
			id, err := svc.SelectPlaylist(ctx, "top hits")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if id != testPlaylistID {
				t.Errorf("expected %s, got %s", testPlaylistID, id)
			}
		})

		t.Run("No Search Results", func(t *testing.T) {
			_, err := svc.SelectPlaylist(ctx, "nothing here")
			if !errors.Is(err, shared.ErrPlaylistNotFound) {
				t.Errorf("expected ErrPlaylistNotFound, got %v", err)
			}
		})

		t.Run("Empty Input", func(t *testing.T) {
			_, err := svc.SelectPlaylist(ctx, "   ")
			if !errors.Is(err, shared.ErrPlaylistNotFound) {
				t.Errorf("expected ErrPlaylistNotFound, got %v", err)
			}
		})
	})

	t.Run("PlaylistSummary", func(t *testing.T) {
		srv := newSpotifyTestServer(t)
		svc := newTestSpotifyService(t, srv)

		t.Run("Existing Playlist", func(t *testing.T) {
			summary, err := svc.PlaylistSummary(context.Background(), testPlaylistID)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if summary.Name != "Today's Top Hits" {
				t.Errorf("expected name 'Today's Top Hits', got %s", summary.Name)
			}
			if summary.Owner != "Spotify" {
				t.Errorf("expected owner 'Spotify', got %s", summary.Owner)
			}
			if summary.TrackCount != 250 {
				t.Errorf("expected 250 tracks, got %d", summary.TrackCount)
			}
		})

		t.Run("Unknown Playlist", func(t *testing.T) {
			_, err := svc.PlaylistSummary(context.Background(), "0000000000000000000000")
			if !errors.Is(err, shared.ErrPlaylistNotFound) {
				t.Errorf("expected ErrPlaylistNotFound, got %v", err)
			}
		})
	})

	t.Run("PlaylistSongs", func(t *testing.T) {
		srv := newSpotifyTestServer(t)
		svc := newTestSpotifyService(t, srv)

		songs, err := svc.PlaylistSongs(context.Background(), testPlaylistID, 100, 200)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if len(songs) != 2 {
			t.Fatalf("expected 2 songs, got %d", len(songs))
		}

		first := songs[0]
		if first.Title != "Song 200" {
			t.Errorf("expected offset to be forwarded, got title %s", first.Title)
		}
		if first.Artist != "Artist A, Artist B" {
			t.Errorf("expected joined artists, got %s", first.Artist)
		}
		if first.Length != "3:05" {
			t.Errorf("expected length 3:05, got %s", first.Length)
		}
		if songs[1].Length != "1:01" {
			t.Errorf("expected length 1:01, got %s", songs[1].Length)
		}
		if strings.Contains(songs[1].Artist, ",") {
			t.Errorf("expected single artist, got %s", songs[1].Artist)
		}
	})
}

func TestLoops(t *testing.T) {
	tests := []struct {
		count, size, want int
	}{
		{0, 100, 0},
		{1, 100, 1},
		{100, 100, 1},
		{101, 100, 2},
		{250, 100, 3},
		{-5, 100, 0},
		{10, 0, 0},
	}

	for _, tt := range tests {
		if got := Loops(tt.count, tt.size); got != tt.want {
			t.Errorf("Loops(%d, %d) = %d, want %d", tt.count, tt.size, got, tt.want)
		}
	}
}
