// Package session keeps the signed-in user and one-shot notices in a signed cookie.
package session

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/sessions"
	"github.com/sirupsen/logrus"

	appErrors "github.com/unclebandit/moderated-board/internal/errors"
	"github.com/unclebandit/moderated-board/internal/model"
)

const (
	cookieName = "board_session"
	userIDKey  = "user_id"
	maxAge     = 14 * 24 * 60 * 60

	LoginPath = "/accounts/login"
)

type ctxKey int

const userCtxKey ctxKey = 0

type UserLoader interface {
	GetUser(id int) (*model.User, error)
}

// Manager wraps the cookie store.
type Manager struct {
	Store sessions.Store
	Users UserLoader
	Log   logrus.FieldLogger
}

func NewManager(secret string, secure bool, users UserLoader, log logrus.FieldLogger) *Manager {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &Manager{Store: store, Users: users, Log: log}
}

// get never fails: a cookie that does not verify yields a fresh session.
func (m *Manager) get(r *http.Request) *sessions.Session {
	s, err := m.Store.Get(r, cookieName)
	if err != nil {
		m.Log.WithError(err).Debug("Discarding unreadable session cookie")
	}
	return s
}

func (m *Manager) Login(w http.ResponseWriter, r *http.Request, user *model.User) error {
	s := m.get(r)
	s.Values[userIDKey] = user.ID
	return s.Save(r, w)
}

func (m *Manager) Logout(w http.ResponseWriter, r *http.Request) error {
	s := m.get(r)
	delete(s.Values, userIDKey)
	return s.Save(r, w)
}

// AddFlash queues notices for the next rendered page.
func (m *Manager) AddFlash(w http.ResponseWriter, r *http.Request, notices ...model.Notice) {
	s := m.get(r)
	for _, n := range notices {
		s.AddFlash(string(n.Level) + "|" + n.Text)
	}
	if err := s.Save(r, w); err != nil {
		m.Log.WithError(err).Warn("Failed to save flash messages")
	}
}

// Flashes pops queued notices.
func (m *Manager) Flashes(w http.ResponseWriter, r *http.Request) []model.Notice {
	s := m.get(r)
	raw := s.Flashes()
	if len(raw) == 0 {
		return nil
	}
	if err := s.Save(r, w); err != nil {
		m.Log.WithError(err).Warn("Failed to clear flash messages")
	}

	notices := make([]model.Notice, 0, len(raw))
	for _, f := range raw {
		str, ok := f.(string)
		if !ok {
			continue
		}
		level, text, found := strings.Cut(str, "|")
		if !found {
			level, text = string(model.NoticeInfo), str
		}
		notices = append(notices, model.Notice{Level: model.NoticeLevel(level), Text: text})
	}
	return notices
}

// LoadUser puts the signed-in user, if any, on the request context.
func (m *Manager) LoadUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := m.get(r).Values[userIDKey].(int)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		user, err := m.Users.GetUser(id)
		if err != nil {
			if !appErrors.IsNotFound(err) {
				m.Log.WithError(err).WithField("user_id", id).Error("Failed to load session user")
			}
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userCtxKey, user)
}

// UserFrom returns nil for anonymous requests.
func UserFrom(ctx context.Context) *model.User {
	user, _ := ctx.Value(userCtxKey).(*model.User)
	return user
}

// RequireLogin sends anonymous callers to the login page and back afterwards.
func (m *Manager) RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserFrom(r.Context()) == nil {
			http.Redirect(w, r, LoginURL(r.URL.RequestURI()), http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireStaff admits administrators only. Anyone else is asked to sign in with an administrator account.
func (m *Manager) RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := UserFrom(r.Context())
		if user == nil {
			http.Redirect(w, r, LoginURL(r.URL.RequestURI()), http.StatusFound)
			return
		}
		if !user.IsStaff {
			m.AddFlash(w, r, model.Notice{
				Level: model.NoticeError,
				Text:  "You are not authorized to access the administration pages.",
			})
			http.Redirect(w, r, LoginURL(r.URL.RequestURI()), http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func LoginURL(next string) string {
	return LoginPath + "?next=" + url.QueryEscape(next)
}

// SafeNext keeps redirects on this site.
func SafeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}
