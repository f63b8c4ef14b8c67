package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kazi/core/payment"
)

type paymentApi struct {
	svc      payment.Service
	validate *validator.Validate
}

func registerPaymentAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := paymentApi{
		svc:      deps.PaymentSvc,
		validate: deps.Validate,
	}

	pg := g.Group("/payments", jwt)
	pg.GET("", api.query)
	pg.GET("/summary", api.summary)
	pg.PATCH("/:id/paid", api.markPaid, adminMiddleware())
	pg.POST("/mark-paid", api.markManyPaid, adminMiddleware())
}

// Handlers

func (api *paymentApi) query(ctx echo.Context) error {
	filter := new(payment.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []payment.Payment{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	payments, err := api.svc.Query(ctx.Request().Context(), claims.Actor(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying payments")
	}
	if payments == nil {
		payments = []payment.Payment{}
	}
	return ctx.JSON(http.StatusOK, payments)
}

func (api *paymentApi) summary(ctx echo.Context) error {
	filter := new(payment.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		filter = new(payment.QueryFilter)
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	summary, err := api.svc.Summarize(ctx.Request().Context(), claims.Actor(), filter)
	if err != nil {
		return errors.Wrap(err, "summarizing payments")
	}
	return ctx.JSON(http.StatusOK, summary)
}

func (api *paymentApi) markPaid(ctx echo.Context) error {
	var data payment.MarkPaidRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MarkPaidRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	p, err := api.svc.MarkPaid(ctx.Request().Context(), claims.Actor(), ctx.Param("id"), data.Notes)
	if err != nil {
		if errors.Cause(err) == payment.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "marking payment as paid")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *paymentApi) markManyPaid(ctx echo.Context) error {
	var data payment.MarkManyPaidRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MarkManyPaidRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	results := api.svc.MarkManyPaid(ctx.Request().Context(), claims.Actor(), data.IDs, data.Notes)
	return ctx.JSON(http.StatusOK, results)
}
