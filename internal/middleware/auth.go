package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"storefront/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

// SessionHeader carries the anonymous shopper's session id.
const SessionHeader = "X-Session-ID"

type contextKey int

const actorKey contextKey = iota

var (
	errMissingToken = errors.New("missing bearer token")
	errBadHeader    = errors.New("malformed authorization header")
	errNoSubject    = errors.New("token has no user_id")
)

// Claims are the bearer token claims issued by the identity service.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Actor converts the claims into the caller of an operation. Tokens without
// a recognised role act as customers.
func (c *Claims) Actor() model.Actor {
	role := model.RoleCustomer
	if model.Role(c.Role) == model.RoleAdmin {
		role = model.RoleAdmin
	}
	return model.Actor{UserID: c.UserID, Email: c.Email, Role: role}
}

// Auth verifies HS256 bearer tokens and puts the caller in the request context.
type Auth struct {
	secret []byte
	logger zerolog.Logger
}

// NewAuth creates the bearer token middleware set.
func NewAuth(secret string, logger zerolog.Logger) *Auth {
	return &Auth{
		secret: []byte(secret),
		logger: logger.With().Str("component", "auth").Logger(),
	}
}

// Required rejects requests without a valid bearer token.
func (a *Auth) Required(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := a.authenticate(r)
		if err != nil {
			a.logger.Warn().Err(err).Str("path", r.URL.Path).Msg("authentication failed")
			writeError(w, http.StatusUnauthorized, model.ErrCodeUnauthorised, model.ErrUnauthorised.Message)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}

// Optional attaches the caller when a token is sent. A request without an
// Authorization header passes through anonymously; a bad token is rejected.
func (a *Auth) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := a.authenticate(r)
		if errors.Is(err, errMissingToken) {
			next.ServeHTTP(w, r)
			return
		}
		if err != nil {
			a.logger.Warn().Err(err).Str("path", r.URL.Path).Msg("authentication failed")
			writeError(w, http.StatusUnauthorized, model.ErrCodeUnauthorised, model.ErrUnauthorised.Message)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}

// RequireAdmin lets only admins through. It must run after Required.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, model.ErrCodeUnauthorised, model.ErrUnauthorised.Message)
			return
		}
		if !actor.IsAdmin() {
			writeError(w, http.StatusForbidden, model.ErrCodeForbidden, model.ErrForbidden.Message)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (a *Auth) authenticate(r *http.Request) (model.Actor, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return model.Actor{}, errMissingToken
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return model.Actor{}, errBadHeader
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return model.Actor{}, err
	}
	if claims.UserID == "" {
		return model.Actor{}, errNoSubject
	}

	return claims.Actor(), nil
}

// WithActor returns a copy of ctx carrying actor.
func WithActor(ctx context.Context, actor model.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFrom returns the authenticated caller, if any.
func ActorFrom(ctx context.Context) (model.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(model.Actor)
	return actor, ok
}
