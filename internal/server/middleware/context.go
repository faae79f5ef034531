package middleware

import (
	"github.com/DerwenAI/dylifo/internal/queue"
	"github.com/DerwenAI/dylifo/pkg/pipeline"

	"github.com/labstack/echo/v4"
)

// App holds what every handler shares. Pipeline and the backend client it
// wraps are safe for concurrent requests.
type App struct {
	Pipeline *pipeline.Pipeline
	// Queue is nil when the server runs without a broker.
	Queue  queue.Publisher
	APIKey string
	// DataDir is the only local directory path requests may read from. Empty
	// disables local paths.
	DataDir string
	// CORSOrigins lists the browser origins allowed to call the API. Empty
	// allows none.
	CORSOrigins []string
}

type AppContext struct {
	echo.Context
	App *App
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{c, app}
			return next(cc)
		}
	}
}
