package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type contextKey string

const (
	// PrincipalContextKey is the context key for the authenticated principal
	PrincipalContextKey contextKey = "principal"
)

// GetPrincipalFromContext retrieves the authenticated principal from the context
func GetPrincipalFromContext(ctx context.Context) *Principal {
	if p, ok := ctx.Value(PrincipalContextKey).(*Principal); ok {
		return p
	}
	return nil
}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, PrincipalContextKey, p)
}

// Middleware creates HTTP middleware that enforces bearer token authentication.
// Requests for paths in public skip authentication. Feed paths ending in .ics
// also accept the token as a "token" query parameter because calendar clients
// cannot send custom headers.
func Middleware(authenticator Authenticator, public ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, p := range public {
				if r.URL.Path == p {
					next.ServeHTTP(w, r)
					return
				}
			}

			creds, err := credentialsFromRequest(r)
			if err != nil {
				requestAuth(w)
				return
			}

			principal, err := authenticator.Authenticate(r.Context(), creds)
			if err != nil {
				requestAuth(w)
				return
			}

			if err := authenticator.ValidateAccess(r.Context(), principal, r.URL.Path); err != nil {
				var authErr *Error
				if errors.As(err, &authErr) && authErr.Type == ErrForbidden {
					http.Error(w, "Forbidden", http.StatusForbidden)
					return
				}
				requestAuth(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// requestAuth sends WWW-Authenticate header
func requestAuth(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="wechselmodell"`)
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}

func credentialsFromRequest(r *http.Request) (Credentials, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		return parseBearer(header)
	}
	if strings.HasSuffix(r.URL.Path, ".ics") {
		if token := r.URL.Query().Get("token"); token != "" {
			return Credentials{Token: token}, nil
		}
	}
	return Credentials{}, &Error{Type: ErrUnauthorized, Message: "missing credentials"}
}

// parseBearer parses an "Authorization: Bearer <token>" value
func parseBearer(header string) (Credentials, error) {
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return Credentials{}, &Error{
			Type:    ErrInvalidCredentials,
			Message: "invalid authorization header format",
		}
	}

	token := strings.TrimSpace(header[len(prefix):])
	if token == "" {
		return Credentials{}, &Error{
			Type:    ErrInvalidCredentials,
			Message: "empty bearer token",
		}
	}
	return Credentials{Token: token}, nil
}

// FamilyFromPath extracts the family ID of a /families/{familyID}/... path.
// ok is false for paths outside a family.
func FamilyFromPath(path string) (id uuid.UUID, ok bool, err error) {
	rest, found := strings.CutPrefix(path, "/families/")
	if !found {
		return uuid.Nil, false, nil
	}
	segment, _, _ := strings.Cut(rest, "/")
	id, err = uuid.Parse(segment)
	if err != nil {
		return uuid.Nil, true, &Error{Type: ErrForbidden, Message: "invalid family in path", Err: err}
	}
	return id, true, nil
}
