package echoapi

import (
	"context"
	"sync"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/Shyamyemuka/goldenspire-learn/core"
	"github.com/Shyamyemuka/goldenspire-learn/core/auth"
	"github.com/Shyamyemuka/goldenspire-learn/core/gate"
	"github.com/Shyamyemuka/goldenspire-learn/core/profile"
	"github.com/Shyamyemuka/goldenspire-learn/core/session"
)

var (
	contextTokenKey   = "userToken"
	contextProfileKey = "profile"
)

// newJWTConfig is the JWT auth middleware config. Tokens are issued by auth.Service.Token.
func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(auth.Claims),
	}
}

func getContextClaims(ctx echo.Context) (auth.Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*auth.Claims); ok {
			return *claims, nil
		}
	}
	return auth.Claims{}, errUnauthorized
}

func getContextProfile(ctx echo.Context) (profile.Profile, bool) {
	p, ok := ctx.Get(contextProfileKey).(profile.Profile)
	return p, ok
}

func mustContextProfile(ctx echo.Context) (profile.Profile, error) {
	if p, ok := getContextProfile(ctx); ok {
		return p, nil
	}
	return profile.Profile{}, errUnauthorized
}

// sessionMiddleware only lets through tokens whose session is still held and active. The request
// context then acts as that session and the caller's profile is loaded.
func sessionMiddleware(sessions session.Accessor, profiles profile.Repository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			if !sessions.Active(claims.Id) {
				return errSessionInactive
			}

			req := ctx.Request()
			ctx.SetRequest(req.WithContext(session.NewContext(req.Context(), claims.Id)))

			p, err := profiles.GetProfile(ctx.Request().Context(), claims.Subject)
			if err != nil {
				if errors.Cause(err) == profile.ErrNotFound {
					return errHttpForbidden
				}
				return errors.Wrap(err, "getting session profile")
			}
			ctx.Set(contextProfileKey, p)
			return next(ctx)
		}
	}
}

// Navigation

type navCtxKey struct{}

// navRecorder keeps the gate decision taken while serving a login request.
type navRecorder struct {
	mu       sync.Mutex
	decision gate.Decision
	ok       bool
}

func (r *navRecorder) record(d gate.Decision) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decision, r.ok = d, true
}

func (r *navRecorder) get() (gate.Decision, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.decision, r.ok
}

func withNavRecorder(ctx context.Context) (context.Context, *navRecorder) {
	rec := new(navRecorder)
	return context.WithValue(ctx, navCtxKey{}, rec), rec
}

// RequestNavigator is the gate.Navigator of the API: it hands the decision back to the login
// request that caused it. Decisions taken outside a request are dropped.
func RequestNavigator() gate.Navigator {
	return gate.NavigatorFunc(func(ctx context.Context, d gate.Decision) {
		if rec, ok := ctx.Value(navCtxKey{}).(*navRecorder); ok {
			rec.record(d)
		}
	})
}
