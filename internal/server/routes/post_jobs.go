package routes

import (
	"encoding/json"
	"net/http"

	"github.com/DerwenAI/dylifo/internal/queue"
	"github.com/DerwenAI/dylifo/internal/server/middleware"
	"github.com/DerwenAI/dylifo/internal/util"
	"github.com/DerwenAI/dylifo/pkg/logger"

	"github.com/labstack/echo/v4"
)

// JobHandler queues a summary request for the worker and returns its ID.
func JobHandler(c echo.Context) error {
	type jobResponse struct {
		Message string `json:"message"`
		ID      string `json:"id,omitempty"`
	}

	app := c.(*middleware.AppContext).App
	if app.Queue == nil {
		return c.JSON(http.StatusServiceUnavailable, jobResponse{
			Message: "Queue not configured",
		})
	}

	data := new(queue.SummaryRequest)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, jobResponse{
			Message: "Invalid request body",
		})
	}

	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, jobResponse{
			Message: "Invalid request body",
		})
	}

	if data.Path != "" {
		path, err := app.ResolvePath(data.Path)
		if err != nil {
			return c.JSON(StatusFor(err), jobResponse{
				Message: err.Error(),
			})
		}
		data.Path = path
	}

	if data.ID == "" {
		id, err := util.NewID()
		if err != nil {
			return c.JSON(http.StatusInternalServerError, jobResponse{
				Message: "Internal server error",
			})
		}
		data.ID = id
	}

	body, err := json.Marshal(data)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, jobResponse{
			Message: "Internal server error",
		})
	}

	if err := queue.PublishFIFO(c.Request().Context(), app.Queue, queue.SummaryQueue, body, nil); err != nil {
		logger.Error("[Server] failed to queue job", "id", data.ID, "err", err)
		return c.JSON(http.StatusInternalServerError, jobResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusAccepted, jobResponse{
		Message: "Job queued",
		ID:      data.ID,
	})
}
