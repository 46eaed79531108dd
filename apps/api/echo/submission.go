package echoapi

import (
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/submission"
)

type submissionApi struct {
	svc *submission.Service
}

func registerSubmissionAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *submission.Service) {
	api := submissionApi{svc: svc}

	sg := g.Group("/submissions", jwt)
	sg.DELETE("/:id", api.destroy, studentMiddleware())
	sg.GET("/:id/file", api.downloadFile)
}

// Handlers

func (api *submissionApi) destroy(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	res, err := api.svc.Delete(ctx.Request().Context(), actor, id)
	if err != nil {
		return errors.Wrap(err, "deleting submission")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *submissionApi) downloadFile(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	ref, err := api.svc.FilePath(ctx.Request().Context(), actor, id)
	if err != nil {
		return errors.Wrap(err, "locating submission file")
	}
	return ctx.Attachment(ref.Path, ref.Name)
}

// allowedUploadExts is the upload allowlist; anything else is refused
// before the blob store is touched.
var allowedUploadExts = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".txt":  true,
	".md":   true,
	".zip":  true,
	".tar":  true,
	".gz":   true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

type uploadedFile struct {
	reader multipart.File
	name   string
}

func (f *uploadedFile) close() { _ = f.reader.Close() }

func openUploadedFile(ctx echo.Context, field string) (*uploadedFile, error) {
	hdr, err := ctx.FormFile(field)
	if err != nil {
		return nil, core.NewValidationError(nil, core.FieldError{Field: field, Error: "this field is required"})
	}
	if hdr.Size > core.Conf.Storage.MaxUploadSize {
		return nil, errFileTooLarge
	}
	if !allowedUploadExts[strings.ToLower(filepath.Ext(hdr.Filename))] {
		return nil, errFileTypeNotAllowed
	}

	file, err := hdr.Open()
	if err != nil {
		return nil, errors.Wrap(err, "opening uploaded file")
	}
	return &uploadedFile{reader: file, name: hdr.Filename}, nil
}
