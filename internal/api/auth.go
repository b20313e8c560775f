package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hackgods/testing-registration/internal/auth"
)

const callerKey contextKey = "caller"

// CallerClaims are the claims of a caller bearer token. Roles are granted
// per place provider id.
type CallerClaims struct {
	Email           string              `json:"email"`
	PlaceProviderID string              `json:"pp,omitempty"`
	Roles           map[string][]string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// CallerMiddleware turns an optional bearer token into an auth.Caller.
// Requests without a token continue as anonymous; a bad token is rejected.
func CallerMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r.WithContext(withCaller(r.Context(), auth.Anonymous())))
				return
			}
			tokenStr, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || secret == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized", "bearer token required")
				return
			}

			caller, err := parseCaller(tokenStr, secret)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(withCaller(r.Context(), caller)))
		})
	}
}

func parseCaller(tokenStr, secret string) (auth.Caller, error) {
	claims := &CallerClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		return auth.Caller{}, err
	}
	if !token.Valid || claims.Email == "" {
		return auth.Caller{}, errors.New("token carries no caller")
	}

	roles := make(map[string][]auth.Capability, len(claims.Roles))
	for pp, names := range claims.Roles {
		for _, name := range names {
			roles[pp] = append(roles[pp], auth.Capability(name))
		}
	}
	return auth.Caller{Email: claims.Email, PlaceProviderID: claims.PlaceProviderID, Roles: roles}, nil
}

// SignCallerToken issues an HS256 token for caller, valid for ttl.
func SignCallerToken(secret string, caller auth.Caller, ttl time.Duration) (string, error) {
	roles := make(map[string][]string, len(caller.Roles))
	for pp, caps := range caller.Roles {
		for _, c := range caps {
			roles[pp] = append(roles[pp], string(c))
		}
	}
	now := time.Now()
	claims := CallerClaims{
		Email:           caller.Email,
		PlaceProviderID: caller.PlaceProviderID,
		Roles:           roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   caller.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func withCaller(ctx context.Context, c auth.Caller) context.Context {
	return context.WithValue(ctx, callerKey, c)
}

// CallerFromContext returns the caller attached by CallerMiddleware, or an
// anonymous caller.
func CallerFromContext(ctx context.Context) auth.Caller {
	if c, ok := ctx.Value(callerKey).(auth.Caller); ok {
		return c
	}
	return auth.Anonymous()
}
