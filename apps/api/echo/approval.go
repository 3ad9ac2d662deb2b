package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Shyamyemuka/goldenspire-learn/core/approval"
)

type approvalApi struct {
	svc *approval.Service
}

func registerApprovalAPI(g *echo.Group, authed []echo.MiddlewareFunc, svc *approval.Service) {
	api := approvalApi{svc: svc}

	ag := g.Group("/approvals", chain(authed, staffMiddleware())...)
	ag.GET("", api.query)
	ag.GET("/logs/:userId", api.logs)
	ag.POST("/:id/approve", api.approve)
	ag.POST("/:id/reject", api.reject)
}

// Handlers

func (api *approvalApi) query(ctx echo.Context) error {
	var query ApprovalQuery
	if err := query.Bind(ctx); err != nil {
		return err
	}

	pas, err := api.svc.List(ctx.Request().Context(), query.Filter())
	if err != nil {
		return errors.Wrap(err, "listing pending approvals")
	}
	return ctx.JSON(http.StatusOK, pas)
}

func (api *approvalApi) logs(ctx echo.Context) error {
	logs, err := api.svc.Logs(ctx.Request().Context(), ctx.Param("userId"))
	if err != nil {
		return errors.Wrap(err, "listing approval logs")
	}
	if logs == nil {
		logs = []approval.ApprovalLog{}
	}
	return ctx.JSON(http.StatusOK, logs)
}

// approve and reject act through the request's session, which sessionMiddleware put in the context.
func (api *approvalApi) approve(ctx echo.Context) error {
	pa, err := api.svc.Approve(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "approving")
	}
	return ctx.JSON(http.StatusOK, pa)
}

func (api *approvalApi) reject(ctx echo.Context) error {
	pa, err := api.svc.Reject(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "rejecting")
	}
	return ctx.JSON(http.StatusOK, pa)
}
