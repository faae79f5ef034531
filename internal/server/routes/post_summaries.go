package routes

import (
	"net/http"

	"github.com/DerwenAI/dylifo/internal/queue"
	"github.com/DerwenAI/dylifo/internal/server/middleware"
	"github.com/DerwenAI/dylifo/pkg/logger"
	"github.com/DerwenAI/dylifo/pkg/pipeline"

	"github.com/labstack/echo/v4"
)

// SummaryHandler runs the full pipeline for one document, given inline or
// by path.
func SummaryHandler(c echo.Context) error {
	type summaryResponse struct {
		Message    string              `json:"message"`
		Narrative  string              `json:"narrative,omitempty"`
		Result     *pipeline.Result    `json:"result,omitempty"`
		ErrorClass pipeline.ErrorClass `json:"error_class,omitempty"`
	}

	data := new(queue.SummaryRequest)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, summaryResponse{
			Message: "Invalid request body",
		})
	}

	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, summaryResponse{
			Message: "Invalid request body",
		})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App
	p := app.Pipeline

	var (
		res  *pipeline.Result
		path string
		err  error
	)
	if data.Path != "" {
		if path, err = app.ResolvePath(data.Path); err == nil {
			res, err = p.RunPath(ctx, path)
		}
	} else {
		res, err = p.Run(ctx, data.Raw())
	}
	if err != nil {
		logger.Error("[Server] summary failed", "class", pipeline.Classify(err), "err", err)
		return c.JSON(StatusFor(err), summaryResponse{
			Message:    err.Error(),
			ErrorClass: pipeline.Classify(err),
		})
	}

	return c.JSON(http.StatusOK, summaryResponse{
		Message:   "Summary generated",
		Narrative: res.Text(),
		Result:    res,
	})
}
