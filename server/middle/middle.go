// Package middle contains HTTP middleware for the refal evaluation server,
// built the same way the teacher's server/middle builds its AuthHandler:
// validate a bearer token up front and stash the outcome in the request
// context for handlers to consult.
package middle

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/relang/refal/server/result"
)

// Middleware wraps a handler with additional behavior before/after it runs.
type Middleware func(next http.Handler) http.Handler

// authKey is a key in a request's context populated by RequireAuth.
type authKey int

const authLoggedIn authKey = iota

// Issuer is the JWT "iss" claim value refal-issued tokens carry.
const Issuer = "refal"

// LoggedIn reports whether RequireAuth validated a bearer token on req.
func LoggedIn(req *http.Request) bool {
	v, _ := req.Context().Value(authLoggedIn).(bool)
	return v
}

// RequireAuth builds middleware that rejects any request without a valid
// bearer JWT signed with secret, issued by Issuer. unauthedDelay is slept
// before writing a rejection to deprioritize unauthenticated traffic, the
// same defensive pacing as the teacher's AuthHandler.
func RequireAuth(secret []byte, unauthedDelay time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			tok, err := bearerToken(req)
			if err == nil {
				_, err = jwt.Parse(tok, func(t *jwt.Token) (interface{}, error) {
					return secret, nil
				}, jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}), jwt.WithIssuer(Issuer), jwt.WithLeeway(time.Minute))
			}
			if err != nil {
				time.Sleep(unauthedDelay)
				result.Unauthorized(err.Error()).WriteResponse(w)
				return
			}

			ctx := context.WithValue(req.Context(), authLoggedIn, true)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	}
}

func bearerToken(req *http.Request) (string, error) {
	authHeader := strings.TrimSpace(req.Header.Get("Authorization"))
	if authHeader == "" {
		return "", errNoAuthHeader
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(strings.TrimSpace(parts[0]), "bearer") {
		return "", errNotBearer
	}
	return strings.TrimSpace(parts[1]), nil
}

type middleError string

func (e middleError) Error() string { return string(e) }

const (
	errNoAuthHeader middleError = "no authorization header present"
	errNotBearer    middleError = "authorization header not in Bearer format"
)
