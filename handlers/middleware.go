package handlers

import (
	"context"
	"net/http"
	"time"

	"taskboard/session"
	"taskboard/utilities"
)

type contextKey int

const sessionKey contextKey = iota

// LoggingMiddleware logs method, path, status and duration of every request.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rw, r)

		utilities.LogRequest(r.Method, r.URL.Path, r.RemoteAddr, rw.statusCode, time.Since(start))
	})
}

// responseWriter records the status code written by the wrapped handler.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// AuthMiddleware redirects to /login unless the session is logged in. The
// loaded session is stored in the request context.
func (h *Handler) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := h.Sessions.Load(r)
		if err != nil {
			utilities.LogError(err, "Loading session")
			writeError(w, err)
			return
		}
		if !s.LoggedIn {
			utilities.LogDebug("unauthenticated %s %s, redirecting to login", r.Method, r.URL.Path)
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}

		ctx := context.WithValue(r.Context(), sessionKey, s)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// sessionFrom returns the session AuthMiddleware stored, or a blank one.
func sessionFrom(r *http.Request) session.Session {
	s, _ := r.Context().Value(sessionKey).(session.Session)
	return s
}
