package echoapi

import (
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kazi/core/submission"
)

type submissionApi struct {
	svc      submission.Service
	validate *validator.Validate
}

func registerSubmissionAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := submissionApi{
		svc:      deps.SubmissionSvc,
		validate: deps.Validate,
	}

	sg := g.Group("/submissions", jwt)
	sg.POST("", api.create, instructorMiddleware())
	sg.GET("", api.query)
	sg.GET("/:id", api.retrieve)
}

// Handlers

// create accepts either a JSON body carrying a submission link or a
// multipart form carrying the artifact under the "file" field.
func (api *submissionApi) create(ctx echo.Context) error {
	var data submission.NewSubmission

	contentType := ctx.Request().Header.Get(echo.HeaderContentType)
	if strings.HasPrefix(contentType, echo.MIMEMultipartForm) {
		data.TaskID = ctx.FormValue("task_id")
		data.SubmissionURL = ctx.FormValue("submission_url")
		data.LinkType = ctx.FormValue("link_type")

		fh, err := ctx.FormFile("file")
		if err != nil && err != http.ErrMissingFile {
			return errors.Wrap(err, "reading form file")
		}
		if fh != nil {
			f, err := fh.Open()
			if err != nil {
				return errors.Wrap(err, "opening form file")
			}
			defer f.Close()
			data.File = &submission.FileUpload{
				Name:        fh.Filename,
				Size:        fh.Size,
				ContentType: fh.Header.Get(echo.HeaderContentType),
				Content:     f,
			}
		}
	} else if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubmission")
	}

	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	sub, err := api.svc.Submit(ctx.Request().Context(), claims.Actor(), data)
	if err != nil {
		return errors.Wrap(err, "recording submission")
	}

	return ctx.JSON(http.StatusCreated, sub)
}

func (api *submissionApi) query(ctx echo.Context) error {
	filter := new(submission.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []submission.Submission{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	subs, err := api.svc.Query(ctx.Request().Context(), claims.Actor(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying submissions")
	}
	if subs == nil {
		subs = []submission.Submission{}
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *submissionApi) retrieve(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	sub, err := api.svc.Get(ctx.Request().Context(), claims.Actor(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == submission.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding submission by ID")
	}
	return ctx.JSON(http.StatusOK, sub)
}
