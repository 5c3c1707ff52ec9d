package webserver

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/JosephChataignon/hAIckers-team/internal/domain/session"
	"github.com/JosephChataignon/hAIckers-team/internal/infrastructure/config"
	"github.com/JosephChataignon/hAIckers-team/internal/infrastructure/monitoring"
	"github.com/JosephChataignon/hAIckers-team/internal/ports/outbound"
)

// SessionKeyPrefix namespaces session entries in the cache
const SessionKeyPrefix = "session:"

// Session is one visitor's state plus the token that addresses it
type Session struct {
	Token     string         `json:"-"`
	CSRFToken string         `json:"csrf_token"`
	State     *session.State `json:"state"`
}

// ValidCSRF compares a submitted token in constant time
func (s *Session) ValidCSRF(token string) bool {
	if token == "" || s.CSRFToken == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.CSRFToken)) == 1
}

// KeyCounter is implemented by cache repositories that can count keys
type KeyCounter interface {
	Count(ctx context.Context, prefix string) (int, error)
}

// SessionStore keeps sessions in a CacheRepository, addressed by a cookie
type SessionStore struct {
	cache   outbound.CacheRepository
	cfg     config.SessionConfig
	metrics *monitoring.MetricsCollector
	logger  *zap.Logger
}

// NewSessionStore creates a new session store. metrics may be nil.
func NewSessionStore(
	cache outbound.CacheRepository,
	cfg config.SessionConfig,
	metrics *monitoring.MetricsCollector,
	logger *zap.Logger,
) *SessionStore {
	return &SessionStore{
		cache:   cache,
		cfg:     cfg,
		metrics: metrics,
		logger:  logger.Named("sessions"),
	}
}

// Load returns the session named by the request cookie. A missing cookie,
// an expired entry or an undecodable one yields a fresh session.
func (s *SessionStore) Load(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(s.cfg.CookieName)
	if err != nil || cookie.Value == "" {
		return s.New()
	}

	data, err := s.cache.Get(r.Context(), SessionKeyPrefix+cookie.Value)
	if err != nil {
		if !errors.Is(err, outbound.ErrCacheMiss) {
			s.logger.Warn("Session lookup failed, starting a new session", zap.Error(err))
		}
		return s.New()
	}

	sess := &Session{}
	if err := json.Unmarshal(data, sess); err != nil || sess.State == nil {
		s.logger.Warn("Discarding undecodable session", zap.Error(err))
		return s.New()
	}
	sess.Token = cookie.Value
	return sess, nil
}

// New creates an unsaved session in its initial state
func (s *SessionStore) New() (*Session, error) {
	token, err := randomToken()
	if err != nil {
		return nil, err
	}
	csrf, err := randomToken()
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, CSRFToken: csrf, State: session.New()}, nil
}

// Save writes the session and refreshes the cookie
func (s *SessionStore) Save(ctx context.Context, w http.ResponseWriter, sess *Session) error {
	if err := s.store(ctx, sess); err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    sess.Token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.cfg.TTL.Seconds()),
	})
	return nil
}

// Update applies fn to the stored session addressed by token. It is used
// outside a request cycle, where no cookie can be written.
func (s *SessionStore) Update(ctx context.Context, token string, fn func(*Session)) error {
	data, err := s.cache.Get(ctx, SessionKeyPrefix+token)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	sess := &Session{}
	if err := json.Unmarshal(data, sess); err != nil || sess.State == nil {
		return fmt.Errorf("failed to decode session: %w", err)
	}
	sess.Token = token

	fn(sess)
	return s.store(ctx, sess)
}

func (s *SessionStore) store(ctx context.Context, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	if err := s.cache.Set(ctx, SessionKeyPrefix+sess.Token, data, s.cfg.TTL); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// Rotate gives the session new tokens and drops the old entry. Called on
// login and logout so a token seen before authentication is never reused.
func (s *SessionStore) Rotate(ctx context.Context, sess *Session) error {
	old := sess.Token

	token, err := randomToken()
	if err != nil {
		return err
	}
	csrf, err := randomToken()
	if err != nil {
		return err
	}
	sess.Token = token
	sess.CSRFToken = csrf

	if err := s.cache.Delete(ctx, SessionKeyPrefix+old); err != nil {
		s.logger.Warn("Failed to delete rotated session", zap.Error(err))
	}
	return nil
}

// ReportActive updates the active-sessions gauge every interval until ctx
// is done. It returns at once when the cache cannot count keys.
func (s *SessionStore) ReportActive(ctx context.Context, interval time.Duration) {
	counter, ok := s.cache.(KeyCounter)
	if !ok || s.metrics == nil {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		n, err := counter.Count(ctx, SessionKeyPrefix)
		if err != nil {
			s.logger.Debug("Failed to count sessions", zap.Error(err))
		} else {
			s.metrics.SetActiveSessions(n)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

type sessionKey struct{}

func withSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

// sessionFrom returns the session loaded by the session middleware
func sessionFrom(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionKey{}).(*Session)
	return sess
}
