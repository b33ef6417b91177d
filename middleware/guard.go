package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	goCred "github.com/MrEthical07/goCred"
)

type sessionContextKey struct{}

type subjectContextKey struct{}

// SessionFromContext returns the session verified by RequireSession.
func SessionFromContext(ctx context.Context) (goCred.SessionInfo, bool) {
	info, ok := ctx.Value(sessionContextKey{}).(goCred.SessionInfo)
	return info, ok
}

// SubjectFromContext returns the subject resolved by RequireUser.
func SubjectFromContext(ctx context.Context) (goCred.Subject, bool) {
	s, ok := ctx.Value(subjectContextKey{}).(goCred.Subject)
	return s, ok
}

// RequireSession rejects requests without a valid bearer session token and
// stores the verified SessionInfo in the request context. It never touches
// the user directory.
func RequireSession(engine *goCred.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				Unauthorized(w)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				Unauthorized(w)
				return
			}

			info, err := engine.ValidateSession(r.Context(), token)
			if err != nil {
				Unauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey{}, info)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireUser is RequireSession plus a directory lookup: the live Subject
// is stored in the request context. A token whose subject was removed is
// rejected with 401; a directory outage is a 500.
func RequireUser(engine *goCred.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				Unauthorized(w)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				Unauthorized(w)
				return
			}

			subject, err := engine.CurrentUser(r.Context(), token)
			if err != nil {
				if errors.Is(err, goCred.ErrUnauthenticated) {
					Unauthorized(w)
					return
				}
				WriteJSON(w, http.StatusInternalServerError, Envelope{Message: goCred.PublicMessage(err)})
				return
			}

			ctx := context.WithValue(r.Context(), subjectContextKey{}, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Envelope is the JSON body shape used by every goCred HTTP response.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// WriteJSON writes body with the given status.
func WriteJSON(w http.ResponseWriter, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Unauthorized writes the uniform 401 response.
func Unauthorized(w http.ResponseWriter) {
	WriteJSON(w, http.StatusUnauthorized, Envelope{Message: goCred.PublicMessage(goCred.ErrUnauthenticated)})
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
