package www

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"

	"github.com/gorilla/sessions"
)

const sessionName = "cremeria_session"

// sessionStore wraps the cookie that carries the opaque login token. The
// token itself lives in the sessions table; the cookie (or a ?token= query
// parameter, so reloads restore the session) is just transport.
type sessionStore struct {
	store *sessions.CookieStore
}

func newSessionStore(secret string) *sessionStore {
	var key []byte
	if secret != "" {
		key, _ = base64.StdEncoding.DecodeString(secret)
	}
	if len(key) < 32 {
		key = make([]byte, 32)
		rand.Read(key)
	}
	cs := sessions.NewCookieStore(key)
	cs.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   12 * 60 * 60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return &sessionStore{store: cs}
}

func (s *sessionStore) get(r *http.Request) *sessions.Session {
	sess, _ := s.store.Get(r, sessionName)
	return sess
}

// token extracts the login token from the cookie, falling back to the query
// parameter and the Authorization header.
func (s *sessionStore) token(r *http.Request) string {
	sess := s.get(r)
	if t, ok := sess.Values["token"].(string); ok && t != "" {
		return t
	}
	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}
	const bearer = "Bearer "
	if h := r.Header.Get("Authorization"); len(h) > len(bearer) && h[:len(bearer)] == bearer {
		return h[len(bearer):]
	}
	return ""
}

func (s *sessionStore) setToken(w http.ResponseWriter, r *http.Request, token string) {
	sess := s.get(r)
	sess.Values["token"] = token
	sess.Save(r, w)
}

func (s *sessionStore) clear(w http.ResponseWriter, r *http.Request) {
	sess := s.get(r)
	delete(sess.Values, "token")
	sess.Options.MaxAge = -1
	sess.Save(r, w)
}
