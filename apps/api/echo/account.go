package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Shyamyemuka/goldenspire-learn/core"
	"github.com/Shyamyemuka/goldenspire-learn/core/auth"
	"github.com/Shyamyemuka/goldenspire-learn/core/gate"
	"github.com/Shyamyemuka/goldenspire-learn/core/signup"
)

const statusPending = "pending"

type authApi struct {
	auth       *auth.Service
	gate       *gate.Gate
	signup     *signup.Service
	validate   *validator.Validate
	translator ut.Translator
	logger     core.Logger
}

func registerAuthAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps ServerDeps) {
	api := authApi{
		auth:       deps.Auth,
		gate:       deps.Gate,
		signup:     deps.Signup,
		validate:   deps.Validate,
		translator: deps.Translator,
		logger:     deps.Logger,
	}

	ag := g.Group("/auth")

	// un-authed endpoints
	ag.POST("/signup", api.register)
	ag.POST("/login", api.login)

	// authed endpoints
	sg := ag.Group("", authed...)
	sg.POST("/logout", api.logout)
	sg.POST("/token-refresh", api.refreshToken)
	sg.GET("/me", api.me)
}

// Handlers

func (api *authApi) register(ctx echo.Context) error {
	var data signup.NewSignup
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSignup")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	pa, err := api.signup.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering")
	}
	return ctx.JSON(http.StatusCreated, pa)
}

// login signs in and answers with the gate's decision, which the gate takes while SignIn emits
// SignedIn.
func (api *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	reqCtx, rec := withNavRecorder(ctx.Request().Context())
	sess, token, err := api.auth.SignIn(reqCtx, data.Email, data.Password)
	if err != nil {
		return err
	}

	if d, ok := rec.get(); ok {
		if !d.Outcome.Admitted() {
			return errPendingApproval
		}
		return ctx.JSON(http.StatusOK, LoginResponse{Token: token, Area: d.Area, Redirect: d.Area.Path()})
	}

	if outcome, ok := api.gate.Outcome(sess.ID); ok && outcome == gate.OutcomeUnknownRole {
		return errUnknownRole
	}
	return ctx.JSON(http.StatusAccepted, StatusResponse{Status: statusPending})
}

func (api *authApi) logout(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	if err = api.auth.SignOut(ctx.Request().Context(), claims.Id); err != nil {
		return errors.Wrap(err, "signing out")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *authApi) refreshToken(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	sess, token, err := api.auth.Refresh(ctx.Request().Context(), claims.Id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, RefreshResponse{Token: token, ExpiresAt: sess.ExpiresAt})
}

func (api *authApi) me(ctx echo.Context) error {
	p, err := mustContextProfile(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p)
}
