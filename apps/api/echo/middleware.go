package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/Shyamyemuka/goldenspire-learn/core/profile"
)

// roleMiddleware admits approved profiles holding one of roles. It runs after sessionMiddleware.
func roleMiddleware(roles ...profile.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			p, err := mustContextProfile(ctx)
			if err != nil {
				return err
			}
			if p.IsApproved && p.Role.In(roles...) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

func staffMiddleware() echo.MiddlewareFunc {
	return roleMiddleware(profile.StaffRoles...)
}

func studentMiddleware() echo.MiddlewareFunc {
	return roleMiddleware(profile.RoleStudent)
}

// chain returns base followed by extra without sharing base's backing array.
func chain(base []echo.MiddlewareFunc, extra ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	res := make([]echo.MiddlewareFunc, 0, len(base)+len(extra))
	res = append(res, base...)
	return append(res, extra...)
}
