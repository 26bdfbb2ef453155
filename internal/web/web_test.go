package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/musictransfer/internal/repositories"
	"github.com/desertthunder/musictransfer/internal/server"
	"github.com/desertthunder/musictransfer/internal/services"
	"github.com/desertthunder/musictransfer/internal/shared"
	"github.com/desertthunder/musictransfer/internal/tasks"
	th "github.com/desertthunder/musictransfer/internal/testing"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/youtube/v3"
)

// fakeQueue replays a scripted sequence of statuses per task.
type fakeQueue struct {
	mu       sync.Mutex
	enqueued map[string]string
	statuses map[string][]*tasks.TaskStatus
	err      error
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{enqueued: map[string]string{}, statuses: map[string][]*tasks.TaskStatus{}}
}

func (q *fakeQueue) Enqueue(_ context.Context, playlist string) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return "", q.err
	}
	id := uuid.NewString()
	q.enqueued[id] = playlist
	return id, nil
}

func (q *fakeQueue) Status(_ context.Context, id string) (*tasks.TaskStatus, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return nil, q.err
	}

	seq := q.statuses[id]
	switch len(seq) {
	case 0:
		return &tasks.TaskStatus{State: tasks.StatePending, Total: 1, Status: "Pending..."}, nil
	case 1:
		return seq[0], nil
	}
	q.statuses[id] = seq[1:]
	return seq[0], nil
}

func (q *fakeQueue) script(id string, statuses ...*tasks.TaskStatus) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.statuses[id] = statuses
}

func (q *fakeQueue) fail(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.err = err
}

func (q *fakeQueue) only(t *testing.T) (string, string) {
	t.Helper()
	q.mu.Lock()
	defer q.mu.Unlock()
	require.Len(t, q.enqueued, 1)
	for id, playlist := range q.enqueued {
		return id, playlist
	}
	return "", ""
}

type fakeYouTube struct {
	mu      sync.Mutex
	created []string
}

func (f *fakeYouTube) Name() string { return "fake" }

func (f *fakeYouTube) CreatePlaylist(_ context.Context, title, description string) (*youtube.Playlist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, title)
	return &youtube.Playlist{
		Id:      "PL123",
		Snippet: &youtube.PlaylistSnippet{Title: title, Description: description},
	}, nil
}

func (f *fakeYouTube) MyChannels(context.Context) (*youtube.ChannelListResponse, error) {
	return &youtube.ChannelListResponse{
		Items: []*youtube.Channel{{Id: "UC1", Snippet: &youtube.ChannelSnippet{Title: "My Channel"}}},
	}, nil
}

type harness struct {
	srv     *httptest.Server
	queue   *fakeQueue
	youtube *fakeYouTube
	jobs    *repositories.JobRepository
}

func newGoogleServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.Form.Get("code") != "good-code" {
			w.Header().Set("Content-Type", "application/json")
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"access-1","refresh_token":"refresh-1","token_type":"Bearer","expires_in":3600}`)
	})
	mux.HandleFunc("POST /revoke", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.Form.Get("token") != "access-1" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, shared.RunMigrations(context.Background(), db))

	google := newGoogleServer(t)
	oauth := server.NewGoogleOAuth(&oauth2.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Endpoint: oauth2.Endpoint{
			AuthURL:  google.URL + "/auth",
			TokenURL: google.URL + "/token",
		},
		Scopes: []string{server.YouTubeScope},
	}, server.GoogleOAuthOptions{RevokeURL: google.URL + "/revoke"})

	logger := shared.NewLogger(io.Discard)
	h := &harness{
		queue:   newFakeQueue(),
		youtube: &fakeYouTube{},
		jobs:    repositories.NewJobRepository(db),
	}

	s, err := NewServer(Options{
		Users:    repositories.NewUserRepository(db),
		Jobs:     h.jobs,
		Queue:    h.queue,
		Sessions: server.NewSessions(server.NewMemoryStore(), "test-secret", logger, server.SessionOptions{}),
		OAuth:    oauth,
		YouTube: func(context.Context, *http.Client) (services.PlaylistDestination, error) {
			return h.youtube, nil
		},
		Logger:    logger,
		Version:   "test",
		LoginRate: 1000,
	})
	require.NoError(t, err)

	h.srv = httptest.NewServer(s.Handler())
	t.Cleanup(h.srv.Close)
	return h
}

// client is a browser: it keeps cookies and does not follow redirects.
type client struct {
	t    *testing.T
	base string
	http *http.Client
}

func (h *harness) client(t *testing.T) *client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &client{
		t:    t,
		base: h.srv.URL,
		http: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (c *client) do(req *http.Request) (*http.Response, string) {
	c.t.Helper()
	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp, string(body)
}

func (c *client) get(path string) (*http.Response, string) {
	c.t.Helper()
	req, err := http.NewRequest(http.MethodGet, c.base+path, nil)
	require.NoError(c.t, err)
	return c.do(req)
}

func (c *client) post(path string, form url.Values) (*http.Response, string) {
	c.t.Helper()
	req, err := http.NewRequest(http.MethodPost, c.base+path, strings.NewReader(form.Encode()))
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *client) register(username, email, password string) {
	c.t.Helper()
	resp, _ := c.post("/register", url.Values{
		"username":  {username},
		"email":     {email},
		"password":  {password},
		"password2": {password},
	})
	require.Equal(c.t, http.StatusFound, resp.StatusCode)
	require.Equal(c.t, "/login", resp.Header.Get("Location"))
}

func (c *client) login(username, password string) {
	c.t.Helper()
	resp, _ := c.post("/login", url.Values{"username": {username}, "password": {password}})
	require.Equal(c.t, http.StatusFound, resp.StatusCode)
	require.Equal(c.t, "/index", resp.Header.Get("Location"))
}

func (c *client) signedIn(username string) *client {
	c.t.Helper()
	c.register(username, username+"@example.com", "hunter22")
	c.login(username, "hunter22")
	return c
}

// cookie returns the session cookie value the browser currently holds.
func (c *client) cookie() string {
	c.t.Helper()
	u, err := url.Parse(c.base)
	require.NoError(c.t, err)
	for _, ck := range c.http.Jar.Cookies(u) {
		if ck.Name == server.DefaultSessionCookie {
			return ck.Value
		}
	}
	return ""
}

func (c *client) setCookie(value string) {
	c.t.Helper()
	u, err := url.Parse(c.base)
	require.NoError(c.t, err)
	c.http.Jar.SetCookies(u, []*http.Cookie{{Name: server.DefaultSessionCookie, Value: value, Path: "/"}})
}

func (c *client) status(location string) *tasks.TaskStatus {
	c.t.Helper()
	resp, body := c.get(location)
	require.Equal(c.t, http.StatusOK, resp.StatusCode, body)
	var status tasks.TaskStatus
	require.NoError(c.t, json.Unmarshal([]byte(body), &status))
	return &status
}

func TestNewServer(t *testing.T) {
	_, err := NewServer(Options{})
	assert.Error(t, err)
}

func TestAccounts(t *testing.T) {
	h := newHarness(t)

	t.Run("register then sign in", func(t *testing.T) {
		c := h.client(t)
		c.register("alice", "alice@example.com", "secret")

		_, body := c.get("/login")
		assert.Contains(t, body, "You are now registerd, please log in.")

		c.login("alice", "secret")
		resp, body := c.get("/index")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, "Logout")
	})

	t.Run("sign in issues a new session cookie", func(t *testing.T) {
		c := h.client(t)
		c.register("carol", "carol@example.com", "secret")
		_, _ = c.get("/login")
		before := c.cookie()
		require.NotEmpty(t, before)

		c.login("carol", "secret")
		after := c.cookie()
		assert.NotEqual(t, before, after)

		stale := h.client(t)
		stale.setCookie(before)
		resp, _ := stale.get("/spotify")
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.True(t, strings.HasPrefix(resp.Header.Get("Location"), "/login"))

		resp, _ = c.get("/spotify")
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		resp, _ = c.get("/logout")
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.NotEqual(t, after, c.cookie())
	})

	t.Run("duplicate username is rejected", func(t *testing.T) {
		c := h.client(t)
		c.register("bob", "bob@example.com", "secret")

		resp, body := c.post("/register", url.Values{
			"username":  {"bob"},
			"email":     {"other@example.com"},
			"password":  {"secret"},
			"password2": {"secret"},
		})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, "Username is unavailable.")
	})

	t.Run("duplicate email is rejected", func(t *testing.T) {
		c := h.client(t)
		c.register("carol", "carol@example.com", "secret")

		_, body := c.post("/register", url.Values{
			"username":  {"carol2"},
			"email":     {"carol@example.com"},
			"password":  {"secret"},
			"password2": {"secret"},
		})
		assert.Contains(t, body, "Email is already registered.")
	})

	t.Run("passwords must match", func(t *testing.T) {
		c := h.client(t)
		resp, body := c.post("/register", url.Values{
			"username":  {"dave"},
			"email":     {"dave@example.com"},
			"password":  {"one"},
			"password2": {"two"},
		})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, "Passwords must match.")
	})

	t.Run("wrong password is rejected", func(t *testing.T) {
		c := h.client(t)
		c.register("erin", "erin@example.com", "secret")

		resp, _ := c.post("/login", url.Values{"username": {"erin"}, "password": {"wrong"}})
		require.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/login", resp.Header.Get("Location"))

		_, body := c.get("/login")
		assert.Contains(t, body, "Invalid username or password")

		resp, _ = c.get("/spotify")
		assert.Equal(t, http.StatusFound, resp.StatusCode)
	})

	t.Run("unknown user is rejected", func(t *testing.T) {
		c := h.client(t)
		resp, _ := c.post("/login", url.Values{"username": {"nobody"}, "password": {"secret"}})
		assert.Equal(t, "/login", resp.Header.Get("Location"))
	})

	t.Run("login returns to the requested page", func(t *testing.T) {
		c := h.client(t)
		c.register("frank", "frank@example.com", "secret")

		resp, _ := c.get("/spotify")
		require.Equal(t, http.StatusFound, resp.StatusCode)
		next := resp.Header.Get("Location")
		assert.Equal(t, "/login?next=%2Fspotify", next)

		resp, _ = c.post(next, url.Values{"username": {"frank"}, "password": {"secret"}})
		require.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/spotify", resp.Header.Get("Location"))
	})

	t.Run("offsite next is ignored", func(t *testing.T) {
		c := h.client(t)
		c.register("gina", "gina@example.com", "secret")

		resp, _ := c.post("/login?next=//evil.example.com", url.Values{"username": {"gina"}, "password": {"secret"}})
		assert.Equal(t, "/index", resp.Header.Get("Location"))
	})

	t.Run("logout", func(t *testing.T) {
		c := h.client(t).signedIn("henry")

		resp, _ := c.get("/logout")
		assert.Equal(t, "/index", resp.Header.Get("Location"))

		resp, _ = c.get("/index")
		assert.Equal(t, http.StatusFound, resp.StatusCode)
	})
}

func TestSafeNext(t *testing.T) {
	tests := map[string]string{
		"":                       "/index",
		"/spotify":               "/spotify",
		"/show_songs?format=csv": "/show_songs?format=csv",
		"https://evil.example":   "/index",
		"//evil.example":         "/index",
		"/\\evil.example":        "/index",
		"relative":               "/index",
	}
	for in, want := range tests {
		assert.Equal(t, want, safeNext(in), "input %q", in)
	}
}

func TestScrape(t *testing.T) {
	h := newHarness(t)

	t.Run("requires sign in", func(t *testing.T) {
		c := h.client(t)
		resp, _ := c.post("/scrape_spotify", url.Values{"playlist": {"x"}})
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/login?next=%2Fscrape_spotify", resp.Header.Get("Location"))
	})

	t.Run("empty playlist", func(t *testing.T) {
		c := h.client(t).signedIn("empty")
		resp, body := c.post("/scrape_spotify", url.Values{"playlist": {"  "}})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, body, "playlist")
	})

	t.Run("queue unavailable", func(t *testing.T) {
		h := newHarness(t)
		c := h.client(t).signedIn("down")
		h.queue.fail(errors.New("redis down"))

		resp, _ := c.post("/scrape_spotify", url.Values{"playlist": {"x"}})
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})

	t.Run("polls to success", func(t *testing.T) {
		h := newHarness(t)
		c := h.client(t).signedIn("poller")

		resp, body := c.post("/scrape_spotify", url.Values{"playlist": {"https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M"}})
		require.Equal(t, http.StatusAccepted, resp.StatusCode, body)
		assert.Equal(t, "application/json; charset=utf-8", resp.Header.Get("Content-Type"))

		id, playlist := h.queue.only(t)
		assert.Equal(t, "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M", playlist)
		location := resp.Header.Get("Location")
		assert.Equal(t, "/task-status/"+id, location)

		result, err := json.Marshal(th.Songs())
		require.NoError(t, err)
		h.queue.script(id,
			&tasks.TaskStatus{State: tasks.StatePending, Total: 1, Status: "Pending..."},
			&tasks.TaskStatus{State: tasks.StateProgress, Current: 5, Total: 100, Status: "Looking for playlist..."},
			&tasks.TaskStatus{State: tasks.StateProgress, Current: 10, Total: 100, Status: "Playlist found."},
			&tasks.TaskStatus{State: tasks.StateProgress, Current: 55, Total: 100, Status: "Getting songs..."},
			&tasks.TaskStatus{State: tasks.StateSuccess, Current: 1, Total: 1, Status: "Success!", Result: result},
		)

		_, body = c.get("/show_songs")
		assert.Contains(t, body, "Your latest job has not finished yet.")

		var (
			last  float64
			final *tasks.TaskStatus
		)
		for range 10 {
			status := c.status(location)
			if status.State == tasks.StateSuccess {
				final = status
				break
			}
			assert.GreaterOrEqual(t, status.Percent(), last)
			last = status.Percent()
		}
		require.NotNil(t, final, "task never reached SUCCESS")
		assert.JSONEq(t, string(result), string(final.Result))

		job, err := h.jobs.Get(context.Background(), id)
		require.NoError(t, err)
		assert.True(t, job.Done())

		// the stored result answers once the queue has forgotten the task
		h.queue.fail(errors.New("redis down"))
		status := c.status(location)
		assert.Equal(t, tasks.StateSuccess, status.State)
		assert.JSONEq(t, string(result), string(status.Result))

		resp, body = c.get("/show_songs")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, "Blue Monday")
		assert.Contains(t, body, "Talking Heads")

		resp, body = c.get("/show_songs?format=csv")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, resp.Header.Get("Content-Disposition"), "attachment")
		assert.Contains(t, body, "Blue Monday,New Order,7:29")

		resp, _ = c.get("/show_songs?format=pdf")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unknown task is pending", func(t *testing.T) {
		status := h.client(t).status("/task-status/" + uuid.NewString())
		assert.Equal(t, tasks.StatePending, status.State)
		assert.Equal(t, "Pending...", status.Status)
	})

	t.Run("failure", func(t *testing.T) {
		id := uuid.NewString()
		h.queue.script(id, &tasks.TaskStatus{State: tasks.StateFailure, Current: 1, Total: 1, Status: "playlist not found"})

		status := h.client(t).status("/task-status/" + id)
		assert.Equal(t, tasks.StateFailure, status.State)
		assert.Equal(t, "playlist not found", status.Status)
	})
}

func TestSpotifyForm(t *testing.T) {
	h := newHarness(t)
	c := h.client(t).signedIn("former")

	resp, body := c.get("/spotify")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "/scrape_spotify")

	resp, body = c.post("/spotify", url.Values{"playlist": {""}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "This field is required.")
}

func TestGoogleFlow(t *testing.T) {
	h := newHarness(t)

	t.Run("callback without authorize", func(t *testing.T) {
		c := h.client(t)
		resp, _ := c.get("/oauth2callback?state=abc&code=good-code")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("revoke without credentials", func(t *testing.T) {
		_, body := h.client(t).get("/revoke")
		assert.Contains(t, body, `You need to <a href="/authorize">authorize</a>`)
	})

	t.Run("create playlist without credentials", func(t *testing.T) {
		c := h.client(t)
		resp, _ := c.post("/create_playlist", url.Values{"name": {"Mix"}})
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/authorize", resp.Header.Get("Location"))
	})

	t.Run("authorize, use and revoke", func(t *testing.T) {
		c := h.client(t)

		resp, _ := c.get("/test")
		assert.Equal(t, "/authorize", resp.Header.Get("Location"))

		resp, _ = c.get("/authorize")
		require.Equal(t, http.StatusFound, resp.StatusCode)
		consent, err := url.Parse(resp.Header.Get("Location"))
		require.NoError(t, err)
		state := consent.Query().Get("state")
		require.NotEmpty(t, state)
		assert.Equal(t, h.srv.URL+"/oauth2callback", consent.Query().Get("redirect_uri"))

		resp, _ = c.get("/oauth2callback?state=wrong&code=good-code")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		resp, _ = c.get("/oauth2callback?state=" + url.QueryEscape(state) + "&code=good-code")
		require.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/test", resp.Header.Get("Location"))

		resp, body := c.get("/test")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, "My Channel")

		resp, body = c.post("/create_playlist", url.Values{"name": {""}})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, "This field is required.")

		resp, body = c.post("/create_playlist", url.Values{"name": {"Road Trip"}})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "PL123", body)
		assert.Equal(t, []string{"Road Trip"}, h.youtube.created)

		_, body = c.get("/revoke")
		assert.Contains(t, body, "Credentials successfully revoked.")

		_, body = c.get("/clear")
		assert.Contains(t, body, "Credentials have been cleared.")

		resp, _ = c.get("/test")
		assert.Equal(t, "/authorize", resp.Header.Get("Location"))
	})
}

func TestPages(t *testing.T) {
	h := newHarness(t)
	c := h.client(t)

	for _, path := range []string{"/login", "/register", "/create_playlist", "/main"} {
		resp, body := c.get(path)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Contains(t, resp.Header.Get("Content-Type"), "text/html", path)
		assert.Contains(t, body, "<nav>", path)
	}

	resp, _ := c.get("/ping")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, appName, resp.Header.Get("App-Name"))
}
