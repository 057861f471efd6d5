// Package alertrecord exposes the alert record listing endpoint and the
// support controls for pausing a buyer's sends.
package alertrecord

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/openlistings/beacon/internal/repositories/alertrecord"
	"github.com/openlistings/beacon/pkg/dispatch"
	"github.com/openlistings/beacon/pkg/models"
	"github.com/openlistings/beacon/pkg/redis"
	"github.com/openlistings/beacon/pkg/tracing"
)

var validate = validator.New()

// Register registers alert record routes
func Register(g *echo.Group) {
	g.GET("", List)
	g.POST("/pause", Pause)
	g.DELETE("/pause/:buyer_id", Resume)
}

// List returns alert records filtered by buyer, property, or status
func List(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "alertrecord_handler.List")
	defer span.End()

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	filter := alertrecord.ListFilter{
		BuyerID:    c.QueryParam("buyer_id"),
		PropertyID: c.QueryParam("property_id"),
		Status:     models.AlertStatus(c.QueryParam("status")),
		Limit:      limit,
		Offset:     offset,
	}

	ctx, repo, err := ectoinject.GetContext[*alertrecord.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	records, err := repo.List(ctx, filter)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to list alert records")
	}

	return c.JSON(http.StatusOK, records)
}

// PauseRequest is the request body for pausing a buyer's alert sends
type PauseRequest struct {
	BuyerID string `json:"buyer_id" validate:"required"`
	Minutes int    `json:"minutes" validate:"required,min=1"`
}

// Pause stops alert sends for a buyer for the requested number of minutes.
// Used by support when the mailer reports a bounce or complaint.
func Pause(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "alertrecord_handler.Pause")
	defer span.End()

	var req PauseRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, limiter, err := ectoinject.GetContext[*redis.ActionLimiter](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get limiter")
	}

	d := time.Duration(req.Minutes) * time.Minute
	if err := limiter.Pause(ctx, req.BuyerID, dispatch.RateLimitAction, d); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to pause alerts")
	}

	return c.NoContent(http.StatusNoContent)
}

// Resume lifts a pause on a buyer's alert sends
func Resume(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "alertrecord_handler.Resume")
	defer span.End()

	buyerID := c.Param("buyer_id")
	if buyerID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "buyer_id is required")
	}

	ctx, limiter, err := ectoinject.GetContext[*redis.ActionLimiter](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get limiter")
	}

	if err := limiter.Resume(ctx, buyerID, dispatch.RateLimitAction); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to resume alerts")
	}

	return c.NoContent(http.StatusNoContent)
}
