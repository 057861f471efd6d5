// Package alertrun exposes the manual run trigger and run history endpoints.
package alertrun

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/openlistings/beacon/internal/repositories/runsummary"
	"github.com/openlistings/beacon/pkg/engine"
	"github.com/openlistings/beacon/pkg/tracing"
)

var validate = validator.New()

// Register registers alert run routes
func Register(g *echo.Group) {
	g.POST("", Trigger)
	g.GET("/property/:property_id", ListByProperty)
}

// TriggerRunRequest is the request body for triggering an alert run
type TriggerRunRequest struct {
	PropertyID string `json:"property_id" validate:"required"`
}

// Trigger starts an alert run for a property and returns its summary. The
// run is detached from the request context so a dropped connection does not
// abort alerts mid flight.
func Trigger(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "alertrun_handler.Trigger")
	defer span.End()

	var req TriggerRunRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, coordinator, err := ectoinject.GetContext[*engine.Coordinator](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get coordinator")
	}

	summary, err := coordinator.Run(context.WithoutCancel(ctx), req.PropertyID)
	if err != nil {
		if errors.Is(err, engine.ErrPropertyNotFound) {
			return httperror.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return httperror.NewHTTPError(http.StatusInternalServerError, "alert run failed")
	}

	return c.JSON(http.StatusOK, summary)
}

// ListByProperty returns recent run summaries for a property
func ListByProperty(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "alertrun_handler.ListByProperty")
	defer span.End()

	propertyID := c.Param("property_id")
	if propertyID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "property_id is required")
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	ctx, repo, err := ectoinject.GetContext[*runsummary.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	summaries, err := repo.ListByProperty(ctx, propertyID, limit)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to list run summaries")
	}

	return c.JSON(http.StatusOK, summaries)
}
