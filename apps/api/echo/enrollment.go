package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/enrollment"
	"github.com/trezcool/darasa/core/user"
)

type (
	enrollmentApi struct {
		svc *enrollment.Service
	}

	enrollmentDecision func(context.Context, user.Actor, int) (enrollment.Enrollment, error)
)

func registerEnrollmentAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *enrollment.Service) {
	api := enrollmentApi{svc: svc}

	eg := g.Group("/enrollments", jwt)
	eg.POST("/:id/approve", api.approve, teacherMiddleware())
	eg.POST("/:id/reject", api.reject, teacherMiddleware())
}

// Handlers

func (api *enrollmentApi) approve(ctx echo.Context) error {
	return api.decide(ctx, api.svc.Approve)
}

func (api *enrollmentApi) reject(ctx echo.Context) error {
	return api.decide(ctx, api.svc.Reject)
}

func (api *enrollmentApi) decide(ctx echo.Context, op enrollmentDecision) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	enr, err := op(ctx.Request().Context(), actor, id)
	if err != nil {
		return errors.Wrap(err, "deciding enrollment")
	}
	return ctx.JSON(http.StatusOK, enr)
}
