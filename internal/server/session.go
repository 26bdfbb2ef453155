package server

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/musictransfer/internal/shared"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultSessionCookie = "musictransfer_session"
	sessionKeyPrefix     = "musictransfer:session:"
)

// Session is the server-side state of one browser.
type Session struct {
	ID          string       `json:"id"`
	UserID      int64        `json:"user_id,omitempty"`
	Remember    bool         `json:"remember,omitempty"`
	Flashes     []string     `json:"flashes,omitempty"`
	OAuthState  string       `json:"oauth_state,omitempty"`
	Credentials *Credentials `json:"credentials,omitempty"`
	ExpiresAt   time.Time    `json:"expires_at"`
}

func newSession() *Session {
	return &Session{ID: uuid.NewString()}
}

// Authenticated reports whether a user is signed in.
func (s *Session) Authenticated() bool {
	return s != nil && s.UserID != 0
}

// SignIn associates the session with a user.
func (s *Session) SignIn(userID int64, remember bool) {
	s.UserID = userID
	s.Remember = remember
}

// SignOut forgets the signed-in user. OAuth credentials are kept.
func (s *Session) SignOut() {
	s.UserID = 0
	s.Remember = false
}

// AddFlash queues a message for the next rendered page.
func (s *Session) AddFlash(msg string) {
	s.Flashes = append(s.Flashes, msg)
}

// PopFlashes returns and clears the queued messages.
func (s *Session) PopFlashes() []string {
	flashes := s.Flashes
	s.Flashes = nil
	return flashes
}

// SessionStore persists sessions by ID.
//
// Load returns [shared.ErrNotFound] for unknown or expired sessions.
type SessionStore interface {
	Load(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

var (
	_ SessionStore = (*MemoryStore)(nil)
	_ SessionStore = (*RedisStore)(nil)
)

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string][]byte
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string][]byte), now: time.Now}
}

func (m *MemoryStore) Load(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: session %s", shared.ErrNotFound, id)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("corrupt session %s: %w", id, err)
	}
	if !s.ExpiresAt.IsZero() && m.now().After(s.ExpiresAt) {
		delete(m.sessions, id)
		return nil, fmt.Errorf("%w: session %s expired", shared.ErrNotFound, id)
	}
	return &s, nil
}

func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = data
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// RedisStore keeps sessions in Redis with a TTL matching the session expiry.
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) Load(ctx context.Context, id string) (*Session, error) {
	data, err := r.client.Get(ctx, sessionKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: session %s", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("corrupt session %s: %w", id, err)
	}
	return &s, nil
}

func (r *RedisStore) Save(ctx context.Context, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Minute
	}
	if err := r.client.Set(ctx, sessionKeyPrefix+s.ID, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, sessionKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

type sessionKey struct{}

// SessionFrom returns the session loaded by [Sessions.Load], or nil.
func SessionFrom(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionKey{}).(*Session)
	return s
}

// WithSession returns a context carrying s.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionOptions configures [Sessions].
type SessionOptions struct {
	CookieName  string
	Lifetime    time.Duration // browser-session lifetime
	RememberFor time.Duration // lifetime when "remember me" is set
}

// Sessions loads and saves [Session] values through a signed cookie.
type Sessions struct {
	store  SessionStore
	secret []byte
	opts   SessionOptions
	logger *log.Logger
}

// NewSessions creates a session manager. The secret signs session cookies.
func NewSessions(store SessionStore, secret string, logger *log.Logger, opts SessionOptions) *Sessions {
	if opts.CookieName == "" {
		opts.CookieName = DefaultSessionCookie
	}
	if opts.Lifetime <= 0 {
		opts.Lifetime = 24 * time.Hour
	}
	if opts.RememberFor <= 0 {
		opts.RememberFor = 30 * 24 * time.Hour
	}
	return &Sessions{store: store, secret: []byte(secret), opts: opts, logger: logger}
}

func (m *Sessions) sign(id string) string {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(id))
	return id + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func (m *Sessions) verify(value string) (string, bool) {
	id, sig, ok := strings.Cut(value, ".")
	if !ok || id == "" {
		return "", false
	}
	expected := m.sign(id)
	return id, hmac.Equal([]byte(expected[len(id)+1:]), []byte(sig))
}

// Load is middleware placing the request's session (or a fresh one) in the request context.
func (m *Sessions) Load(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := m.lookup(r)
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
	})
}

func (m *Sessions) lookup(r *http.Request) *Session {
	cookie, err := r.Cookie(m.opts.CookieName)
	if err != nil {
		return newSession()
	}

	id, ok := m.verify(cookie.Value)
	if !ok {
		m.logger.Warn("rejected session cookie with bad signature", "remote", r.RemoteAddr)
		return newSession()
	}

	sess, err := m.store.Load(r.Context(), id)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			m.logger.Error("failed to load session", "error", err)
		}
		return newSession()
	}
	return sess
}

// Save persists s and sets the session cookie. It must be called before the response is written.
func (m *Sessions) Save(w http.ResponseWriter, r *http.Request, s *Session) error {
	lifetime := m.opts.Lifetime
	if s.Remember {
		lifetime = m.opts.RememberFor
	}
	s.ExpiresAt = time.Now().Add(lifetime)

	if err := m.store.Save(r.Context(), s); err != nil {
		return err
	}

	cookie := &http.Cookie{
		Name:     m.opts.CookieName,
		Value:    m.sign(s.ID),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https",
	}
	if s.Remember {
		cookie.MaxAge = int(lifetime.Seconds())
	}
	http.SetCookie(w, cookie)
	return nil
}

// Renew moves s to a fresh ID and deletes the stored copy under the old one.
// The new cookie is written by the next [Sessions.Save].
func (m *Sessions) Renew(ctx context.Context, s *Session) error {
	old := s.ID
	s.ID = uuid.NewString()
	if err := m.store.Delete(ctx, old); err != nil {
		return fmt.Errorf("failed to drop session %s: %w", old, err)
	}
	return nil
}
