package routes

import (
	"net/http"

	"github.com/DerwenAI/dylifo/internal/queue"
	"github.com/DerwenAI/dylifo/internal/server/middleware"
	"github.com/DerwenAI/dylifo/pkg/pipeline"
	"github.com/DerwenAI/dylifo/pkg/resolution"
	"github.com/DerwenAI/dylifo/pkg/vocabulary"

	"github.com/labstack/echo/v4"
)

// GraphHandler returns the parsed graph and its Mermaid rendering without
// calling a model.
func GraphHandler(c echo.Context) error {
	type graphResponse struct {
		Message    string                        `json:"message"`
		Graph      *resolution.ResolutionGraph   `json:"graph,omitempty"`
		Facts      []vocabulary.RelationshipFact `json:"facts,omitempty"`
		Rows       []resolution.EntitySourceRow  `json:"rows,omitempty"`
		Mermaid    string                        `json:"mermaid,omitempty"`
		ErrorClass pipeline.ErrorClass           `json:"error_class,omitempty"`
	}

	data := new(queue.SummaryRequest)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, graphResponse{
			Message: "Invalid request body",
		})
	}

	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, graphResponse{
			Message: "Invalid request body",
		})
	}

	var (
		res  *pipeline.Result
		path string
		err  error
	)
	if data.Path != "" {
		app := c.(*middleware.AppContext).App
		if path, err = app.ResolvePath(data.Path); err == nil {
			res, err = app.Pipeline.InspectPath(c.Request().Context(), path)
		}
	} else {
		res, err = pipeline.Inspect(data.Raw())
	}
	if err != nil {
		return c.JSON(StatusFor(err), graphResponse{
			Message:    err.Error(),
			ErrorClass: pipeline.Classify(err),
		})
	}

	return c.JSON(http.StatusOK, graphResponse{
		Message: "Graph rendered",
		Graph:   res.Graph,
		Facts:   res.Facts,
		Rows:    res.Rows,
		Mermaid: res.Mermaid,
	})
}
