package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Shyamyemuka/goldenspire-learn/core"
	"github.com/Shyamyemuka/goldenspire-learn/core/notification"
)

type notificationApi struct {
	svc *notification.Service
}

func registerNotificationAPI(g *echo.Group, authed []echo.MiddlewareFunc, svc *notification.Service) {
	api := notificationApi{svc: svc}

	ng := g.Group("/notifications", authed...)
	ng.GET("", api.query)
	ng.GET("/unread", api.queryUnread)
	ng.POST("/:id/read", api.markRead)
}

// Handlers

func (api *notificationApi) query(ctx echo.Context) error {
	p, err := mustContextProfile(ctx)
	if err != nil {
		return err
	}
	ns, err := api.svc.List(ctx.Request().Context(), p.ID)
	if err != nil {
		return errors.Wrap(err, "listing notifications")
	}
	return ctx.JSON(http.StatusOK, nonNil(ns))
}

func (api *notificationApi) queryUnread(ctx echo.Context) error {
	p, err := mustContextProfile(ctx)
	if err != nil {
		return err
	}
	var limit int
	if val := ctx.QueryParam("limit"); val != "" {
		if limit, err = strconv.Atoi(val); err != nil {
			return core.NewValidationError(nil, core.FieldError{Field: "limit", Error: "must be a number"})
		}
	}

	ns, err := api.svc.Unread(ctx.Request().Context(), p.ID, limit)
	if err != nil {
		return errors.Wrap(err, "listing unread notifications")
	}
	return ctx.JSON(http.StatusOK, nonNil(ns))
}

func (api *notificationApi) markRead(ctx echo.Context) error {
	p, err := mustContextProfile(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.MarkRead(ctx.Request().Context(), p.ID, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "marking notification read")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Notification marked as read."})
}

func nonNil(ns []notification.Notification) []notification.Notification {
	if ns == nil {
		return []notification.Notification{}
	}
	return ns
}
