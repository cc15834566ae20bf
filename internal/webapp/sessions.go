package webapp

import (
	"context"
	"errors"
	"net/http"

	"github.com/phillip-england/maintreq/internal/security"
	"github.com/phillip-england/maintreq/internal/session"
)

type sessionKey struct{}

// loadSession returns the caller's session, starting a new one (and setting
// the cookie) when the cookie is absent or expired.
func (s *server) loadSession(w http.ResponseWriter, r *http.Request) (session.Session, error) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		if sess, err := s.sessions.Get(cookie.Value); err == nil {
			return sess, nil
		}
	}
	sess, err := s.sessions.Create()
	if err != nil {
		return session.Session{}, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.sessions.TTL().Seconds()),
	})
	return sess, nil
}

func (s *server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// requireIdentified guards every screen except identification. Callers that
// are not Identified get a 403 hard stop.
func (s *server) requireIdentified(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.loadSession(w, r)
		if err != nil {
			http.Error(w, "session unavailable", http.StatusInternalServerError)
			return
		}
		if !sess.Identity.Identified() {
			s.hardStop(w, sess, http.StatusForbidden, "Por favor, faça a identificação na página principal para continuar.")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, sess)))
	})
}

func sessionFromContext(ctx context.Context) (session.Session, bool) {
	sess, ok := ctx.Value(sessionKey{}).(session.Session)
	return sess, ok
}

var errBadCSRF = errors.New("invalid csrf token")

// checkCSRF compares the submitted token with the session's. The form must
// already be parsed.
func checkCSRF(r *http.Request, sess session.Session) error {
	submitted := r.PostFormValue(csrfFieldName)
	if submitted == "" {
		submitted = r.Header.Get("X-CSRF-Token")
	}
	if !security.MatchSecret(submitted, sess.CSRFToken) {
		return errBadCSRF
	}
	return nil
}

func (s *server) rejectCSRF(w http.ResponseWriter, sess session.Session) {
	s.hardStop(w, sess, http.StatusForbidden, "Sessão expirada ou formulário inválido. Recarregue a página e tente novamente.")
}

func (s *server) logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess, err := s.loadSession(w, r)
	if err != nil {
		http.Error(w, "session unavailable", http.StatusInternalServerError)
		return
	}
	if err := r.ParseForm(); err != nil || checkCSRF(r, sess) != nil {
		s.rejectCSRF(w, sess)
		return
	}
	s.sessions.Delete(sess.ID)
	s.clearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
