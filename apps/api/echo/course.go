package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/assignment"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/enrollment"
)

type courseApi struct {
	svc    *course.Service
	asgSvc *assignment.Service
	enrSvc *enrollment.Service
}

func registerCourseAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *course.Service,
	asgSvc *assignment.Service,
	enrSvc *enrollment.Service,
) {
	api := courseApi{svc: svc, asgSvc: asgSvc, enrSvc: enrSvc}

	cg := g.Group("/courses", jwt)
	cg.GET("", api.list)
	cg.POST("", api.create, teacherMiddleware())
	cg.GET("/catalog", api.catalog, studentMiddleware())

	dg := cg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, teacherMiddleware())
	dg.DELETE("", api.destroy, teacherMiddleware())
	dg.GET("/assignments", api.listAssignments)

	// enrollment actions hang off the course they target
	dg.POST("/enroll", api.enroll, studentMiddleware())
	dg.POST("/enroll-request", api.requestEnrollment, studentMiddleware())
	dg.DELETE("/enrollment", api.leave, studentMiddleware())
	dg.GET("/enrollments", api.listEnrollments, teacherMiddleware())
	dg.GET("/enrollments/pending", api.listPendingEnrollments, teacherMiddleware())
}

// Handlers

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	crs, err := api.svc.Create(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *courseApi) list(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	qf := bindCourseFilter(ctx)

	infos, total, err := api.svc.ListForActor(ctx.Request().Context(), actor, qf)
	if err != nil {
		return errors.Wrap(err, "listing courses")
	}
	return paginatedJSON(ctx, infos, total, qf.Paging)
}

func (api *courseApi) catalog(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	qf := bindCourseFilter(ctx)

	entries, total, err := api.svc.Catalog(ctx.Request().Context(), actor, qf)
	if err != nil {
		return errors.Wrap(err, "listing catalog")
	}
	return paginatedJSON(ctx, entries, total, qf.Paging)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	withStats := ctx.QueryParam("stats") == "true"

	crs, stats, err := api.svc.GetByID(ctx.Request().Context(), actor, id, withStats)
	if err != nil {
		return errors.Wrap(err, "finding course by ID")
	}
	if stats != nil {
		return ctx.JSON(http.StatusOK, CourseDetailResponse{Course: crs, Stats: stats})
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) update(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	var data course.UpdateCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	crs, err := api.svc.Update(ctx.Request().Context(), actor, id, data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) destroy(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), actor, id); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) listAssignments(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	var qf assignment.QueryFilter
	ordering := new(Ordering)
	ordering.Bind(ctx)
	qf.Ordering = ordering.Ordering
	qf.Paging = bindPaging(ctx)
	qf.Clean()

	infos, total, err := api.asgSvc.ListForCourse(ctx.Request().Context(), id, qf)
	if err != nil {
		return errors.Wrap(err, "listing assignments")
	}
	return paginatedJSON(ctx, infos, total, qf.Paging)
}

func (api *courseApi) enroll(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	enr, err := api.enrSvc.EnrollNow(ctx.Request().Context(), actor, id)
	if err != nil {
		return errors.Wrap(err, "enrolling")
	}
	return ctx.JSON(http.StatusCreated, enr)
}

func (api *courseApi) requestEnrollment(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	enr, err := api.enrSvc.Request(ctx.Request().Context(), actor, id)
	if err != nil {
		return errors.Wrap(err, "requesting enrollment")
	}
	return ctx.JSON(http.StatusCreated, enr)
}

func (api *courseApi) leave(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	if err := api.enrSvc.Leave(ctx.Request().Context(), actor, id); err != nil {
		return errors.Wrap(err, "leaving course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) listEnrollments(ctx echo.Context) error {
	return api.listCourseEnrollments(ctx, false)
}

func (api *courseApi) listPendingEnrollments(ctx echo.Context) error {
	return api.listCourseEnrollments(ctx, true)
}

func (api *courseApi) listCourseEnrollments(ctx echo.Context, pendingOnly bool) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	pg := bindPaging(ctx)

	var (
		details []enrollment.Detail
		total   int
	)
	if pendingOnly {
		details, total, err = api.enrSvc.ListPending(ctx.Request().Context(), actor, id, pg)
	} else if status := ctx.QueryParam("status"); status != "" {
		details, total, err = api.enrSvc.ListByStatus(ctx.Request().Context(), actor, id, status, pg)
	} else {
		details, total, err = api.enrSvc.ListForCourse(ctx.Request().Context(), actor, id, pg)
	}
	if err != nil {
		return errors.Wrap(err, "listing enrollments")
	}
	pg.Clean()
	return paginatedJSON(ctx, details, total, pg)
}

func bindCourseFilter(ctx echo.Context) course.QueryFilter {
	var qf course.QueryFilter
	qf.Search = ctx.QueryParam("search")
	ordering := new(Ordering)
	ordering.Bind(ctx)
	qf.Ordering = ordering.Ordering
	qf.Paging = bindPaging(ctx)
	qf.Clean()
	return qf
}

// paginatedJSON wraps a page of rows with its meta; nil pages render as
// empty arrays.
func paginatedJSON(ctx echo.Context, items interface{}, total int, pg core.Paging) error {
	return ctx.JSON(http.StatusOK, core.Paginated{
		Items: items,
		Total: total,
		Page:  pg.Page,
		Limit: pg.Limit,
	})
}

type CourseDetailResponse struct {
	course.Course
	Stats *course.Stats `json:"stats"`
}
