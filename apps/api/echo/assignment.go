package echoapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/assignment"
	"github.com/trezcool/darasa/core/submission"
)

type assignmentApi struct {
	svc    *assignment.Service
	subSvc *submission.Service
}

func registerAssignmentAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *assignment.Service, subSvc *submission.Service) {
	api := assignmentApi{svc: svc, subSvc: subSvc}

	ag := g.Group("/assignments", jwt)
	ag.POST("", api.create, teacherMiddleware())

	dg := ag.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, teacherMiddleware())
	dg.DELETE("", api.destroy, teacherMiddleware())
	dg.GET("/submissions", api.listSubmissions)
	dg.POST("/submissions", api.uploadSubmission, studentMiddleware())
	dg.PUT("/grades", api.bulkGrade, teacherMiddleware())
}

// Handlers

func (api *assignmentApi) create(ctx echo.Context) error {
	var data assignment.NewAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssignment")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	asg, err := api.svc.Create(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating assignment")
	}
	return ctx.JSON(http.StatusCreated, asg)
}

func (api *assignmentApi) retrieve(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}

	var includes []string
	if inc := ctx.QueryParam("include"); inc != "" {
		for _, part := range strings.Split(inc, ",") {
			switch strings.TrimSpace(part) {
			case assignment.IncludeCourse, assignment.IncludeStats:
				includes = append(includes, strings.TrimSpace(part))
			}
		}
	}

	det, err := api.svc.GetByID(ctx.Request().Context(), id, includes...)
	if err != nil {
		return errors.Wrap(err, "finding assignment by ID")
	}
	return ctx.JSON(http.StatusOK, det)
}

func (api *assignmentApi) update(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	var data assignment.UpdateAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAssignment")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	asg, err := api.svc.Update(ctx.Request().Context(), actor, id, data)
	if err != nil {
		return errors.Wrap(err, "updating assignment")
	}
	return ctx.JSON(http.StatusOK, asg)
}

func (api *assignmentApi) destroy(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), actor, id); err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *assignmentApi) listSubmissions(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	var qf submission.QueryFilter
	ordering := new(Ordering)
	ordering.Bind(ctx)
	qf.Ordering = ordering.Ordering
	qf.Paging = bindPaging(ctx)
	qf.Clean()

	details, total, err := api.subSvc.ListForAssignment(ctx.Request().Context(), actor, id, qf)
	if err != nil {
		return errors.Wrap(err, "listing submissions")
	}
	return paginatedJSON(ctx, details, total, qf.Paging)
}

func (api *assignmentApi) uploadSubmission(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}

	file, err := openUploadedFile(ctx, "file")
	if err != nil {
		return err
	}
	defer file.close()

	sub, err := api.subSvc.Upload(ctx.Request().Context(), actor, id, file.reader, file.name, ctx.FormValue("note"))
	if err != nil {
		return errors.Wrap(err, "uploading submission")
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *assignmentApi) bulkGrade(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	var data BulkGradeRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BulkGradeRequest")
	}

	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	modified, err := api.subSvc.BulkUpdateGrades(ctx.Request().Context(), actor, id, data.Updates)
	if err != nil {
		return errors.Wrap(err, "updating grades")
	}
	return ctx.JSON(http.StatusOK, BulkGradeResponse{Modified: modified})
}

type (
	BulkGradeRequest struct {
		Updates []submission.GradeUpdate `json:"updates"`
	}

	BulkGradeResponse struct {
		Modified int `json:"modified"`
	}
)
