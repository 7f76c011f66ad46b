package handler

import (
	"net/http"

	"github.com/gorilla/sessions"
)

const sessionName = "draftly_session"

// NewSessionStore creates the cookie store shared by gothic and the app session
func NewSessionStore(secret []byte, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 30, // 30 days
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}
