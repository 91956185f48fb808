package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"familytime/internal/security"
	"familytime/internal/service"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// UserContextKey carries the authenticated caller's user record.
const UserContextKey ContextKey = "user"

// Middleware holds dependencies for middleware functions
type Middleware struct {
	familyService *service.FamilyService
	joinLimiter   *security.RateLimiter
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(familyService *service.FamilyService) *Middleware {
	return &Middleware{
		familyService: familyService,
		// Join-by-code is the one guessable surface; keep it slow.
		joinLimiter: security.NewRateLimiter(10, time.Minute),
	}
}

// RequireUser resolves the caller's identity. Authentication itself is
// delegated to the upstream proxy, which forwards the verified user id
// in X-User-ID; the middleware loads the matching user record.
func (m *Middleware) RequireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("X-User-ID")
		if userID == "" {
			respondWithError(w, http.StatusUnauthorized, "Missing user identity", "", nil)
			return
		}

		user, err := m.familyService.GetUser(r.Context(), userID)
		if err != nil {
			respondWithError(w, http.StatusUnauthorized, "Unknown user", "failed to load user record", err)
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, user)
		next(w, r.WithContext(ctx))
	}
}

// LimitJoinRequests rate-limits join-by-code attempts per client IP.
func (m *Middleware) LimitJoinRequests(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !m.joinLimiter.Allow(security.GetClientIP(r)) {
			respondWithError(w, http.StatusTooManyRequests, "Too many join attempts, try again later", "", nil)
			return
		}
		next(w, r)
	}
}

// Logging tags each request with an id and logs it on completion.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		w.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(w, r)

		log.Printf("%s %s %s %s", requestID, r.Method, r.URL.Path, time.Since(start))
	})
}
