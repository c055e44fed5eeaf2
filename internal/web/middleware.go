package web

import (
	"context"
	"net/http"
	"time"

	"github.com/raine/rapidlisting/internal/session"
	"github.com/rs/zerolog/log"
)

type contextKey string

const sessionKey contextKey = "session"

// sessionMiddleware resolves the session from the cookie, issuing a new
// session id when the cookie is missing or invalid.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
			if verified, err := s.cookies.Verify(cookie.Value); err == nil {
				id = verified
			} else {
				log.Debug().Err(err).Msg("rejected session cookie")
			}
		}
		if id == "" {
			id = NewSessionID()
			value, err := s.cookies.Sign(id, s.now())
			if err != nil {
				log.Error().Err(err).Msg("failed to sign session cookie")
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			s.cookies.Set(w, value)
		}

		sess := s.sessions.GetOrCreate(id)
		ctx := context.WithValue(r.Context(), sessionKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sessionFrom retrieves the session put in the context by sessionMiddleware.
func sessionFrom(ctx context.Context) *session.Session {
	sess, _ := ctx.Value(sessionKey).(*session.Session)
	return sess
}

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs HTTP requests with method, path, status, and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.RequestURI()).
			Int("status", rec.status).
			Dur("duration", time.Since(start).Round(time.Millisecond)).
			Msg("http request")
	})
}
