package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/review"
)

type reviewApi struct {
	svc      review.Service
	validate *validator.Validate
}

func registerReviewAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := reviewApi{
		svc:      deps.ReviewSvc,
		validate: deps.Validate,
	}

	rg := g.Group("/reviews", jwt, adminMiddleware())
	rg.POST("", api.create)
	rg.POST("/quick", api.quick)
	rg.GET("", api.query)
}

// Handlers

func (api *reviewApi) create(ctx echo.Context) error {
	var data review.NewReview
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewReview")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	rev, err := api.svc.Review(ctx.Request().Context(), claims.Actor(), data)
	if err != nil {
		return errors.Wrap(err, "recording review")
	}

	return ctx.JSON(http.StatusCreated, rev)
}

func (api *reviewApi) quick(ctx echo.Context) error {
	var data QuickReviewRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to QuickReviewRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	rev, err := api.svc.QuickReview(ctx.Request().Context(), claims.Actor(), data.SubmissionID, data.Status)
	if err != nil {
		return errors.Wrap(err, "recording quick review")
	}

	return ctx.JSON(http.StatusCreated, rev)
}

func (api *reviewApi) query(ctx echo.Context) error {
	filter := new(review.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []review.Review{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	reviews, err := api.svc.Query(ctx.Request().Context(), claims.Actor(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying reviews")
	}
	if reviews == nil {
		reviews = []review.Review{}
	}
	return ctx.JSON(http.StatusOK, reviews)
}

type QuickReviewRequest struct {
	SubmissionID string `json:"submission_id" validate:"required,uuid4"`
	Status       string `json:"status" validate:"required,oneof=approved rejected revision_required"`
}

func (qr *QuickReviewRequest) Validate(validate *validator.Validate) error {
	qr.SubmissionID = core.CleanString(qr.SubmissionID)
	return validate.Struct(qr)
}
