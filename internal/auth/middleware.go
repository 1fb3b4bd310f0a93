package auth

import (
	"context"
	"net/http"
)

type ctxUserKey struct{}

// FromContext returns the authenticated user placed by Optional/Required,
// or nil for guests.
func FromContext(ctx context.Context) *User {
	u, _ := ctx.Value(ctxUserKey{}).(*User)
	return u
}

// WithUser returns a copy of ctx carrying u.
func WithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, ctxUserKey{}, u)
}

// lookup resolves the request's token to a still-existing user.
func (s *Service) lookup(r *http.Request) *User {
	tok := s.TokenFrom(r)
	if tok == "" {
		return nil
	}
	id, _, err := s.Parse(tok)
	if err != nil {
		return nil
	}
	u, err := s.FindByID(r.Context(), id)
	if err != nil {
		return nil
	}
	return u
}

// Optional decorates requests with the user when a valid token is present.
// It never rejects; used for routes where guests are allowed.
func (s *Service) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u := s.lookup(r); u != nil {
			r = r.WithContext(WithUser(r.Context(), u))
		}
		next.ServeHTTP(w, r)
	})
}

// Required enforces a valid token for a user that still exists.
func (s *Service) Required(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.TokenFrom(r) == "" {
			unauthorized(w, "unauthorized")
			return
		}
		u := s.lookup(r)
		if u == nil {
			unauthorized(w, "invalid_token")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
	})
}

func unauthorized(w http.ResponseWriter, code string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"` + code + `"}` + "\n"))
}
