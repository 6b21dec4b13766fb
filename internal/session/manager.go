package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/inspection-reports/internal/common"
)

const DefaultCookieName = "inspection_session"

type ManagerConfig struct {
	CookieName   string
	CookieSecure bool
	TTL          time.Duration
}

// Manager ties states in a Store to a browser cookie.
type Manager struct {
	store  Store
	cfg    ManagerConfig
	logger *slog.Logger
	now    func() time.Time
}

func NewManager(store Store, cfg ManagerConfig, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}
	return &Manager{store: store, cfg: cfg, logger: logger, now: time.Now}
}

// Load returns the state named by the request cookie, or a fresh one with a new
// cookie when there is none or it has expired. Fresh states are not saved until
// Save is called.
func (m *Manager) Load(w http.ResponseWriter, r *http.Request) (*State, error) {
	if c, err := r.Cookie(m.cfg.CookieName); err == nil && c.Value != "" {
		st, err := m.store.Get(r.Context(), c.Value)
		switch {
		case err == nil && !m.expired(st):
			return st, nil
		case err == nil, errors.Is(err, common.ErrNotFound):
			// fall through to a new session
		default:
			return nil, common.WrapError(err, "load session")
		}
	}

	st := &State{ID: uuid.NewString(), UpdatedAt: m.now()}
	http.SetCookie(w, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    st.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	m.logger.Debug("session.new", "session_id", st.ID, "request_id", common.RequestIDFromContext(r.Context()))
	return st, nil
}

func (m *Manager) expired(st *State) bool {
	return m.cfg.TTL > 0 && m.now().Sub(st.UpdatedAt) > m.cfg.TTL
}

func (m *Manager) Save(ctx context.Context, st *State) error {
	st.UpdatedAt = m.now()
	if err := m.store.Save(ctx, st); err != nil {
		return common.WrapError(err, "save session")
	}
	return nil
}

// Reset deletes the state and expires the cookie.
func (m *Manager) Reset(ctx context.Context, w http.ResponseWriter, st *State) error {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return m.store.Delete(ctx, st.ID)
}

// Sweep removes states idle for longer than the TTL.
func (m *Manager) Sweep(ctx context.Context) (int64, error) {
	if m.cfg.TTL <= 0 {
		return 0, nil
	}
	n, err := m.store.DeleteExpired(ctx, m.now().Add(-m.cfg.TTL))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		m.logger.Info("session.sweep.ok", "deleted", n)
	}
	return n, nil
}

// StartSweeper runs Sweep every interval until ctx is done. The returned channel
// is closed when the goroutine exits.
func (m *Manager) StartSweeper(ctx context.Context, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	if interval <= 0 {
		close(done)
		return done
	}
	go func() {
		defer close(done)
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if _, err := m.Sweep(ctx); err != nil && ctx.Err() == nil {
					m.logger.Warn("session.sweep.failed", "error", err)
				}
			}
		}
	}()
	return done
}
