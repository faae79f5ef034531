package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/DerwenAI/dylifo/internal/backend"
	"github.com/DerwenAI/dylifo/internal/config"
	"github.com/DerwenAI/dylifo/internal/queue"
	mid "github.com/DerwenAI/dylifo/internal/server/middleware"
	"github.com/DerwenAI/dylifo/internal/storage"
	"github.com/DerwenAI/dylifo/internal/util"
	"github.com/DerwenAI/dylifo/pkg/logger"
	"github.com/DerwenAI/dylifo/pkg/pipeline"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

// New builds the echo instance with every middleware and route registered.
func New(app *mid.App) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &CustomValidator{validator: validator.New()}

	e.Use(mid.AppContextMiddleware(app))
	if len(app.CORSOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: app.CORSOrigins,
		}))
	}
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("16M"))

	RegisterRoutes(e)
	return e
}

// Init resolves the settings, connects the optional broker and serves until
// SIGINT or SIGTERM.
func Init() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	docLoader, err := storage.NewLoader(ctx)
	if err != nil {
		logger.Fatal("Failed to create document loader", "err", err)
	}

	p, err := pipeline.FromSettings(
		util.GetEnvString("DYLIFO_CONFIG", config.DefaultPath),
		backend.New,
		pipeline.WithLoader(docLoader),
	)
	if err != nil {
		logger.Fatal("Failed to resolve configuration", "err", err)
	}

	app := &mid.App{
		Pipeline:    p,
		APIKey:      util.GetEnv("DYLIFO_API_KEY"),
		CORSOrigins: util.GetEnvList("DYLIFO_CORS_ORIGINS"),
	}
	if dir := util.GetEnv("DYLIFO_DATA_DIR"); dir != "" {
		abs, err := filepath.Abs(dir)
		if err != nil {
			logger.Fatal("Invalid data directory", "dir", dir, "err", err)
		}
		app.DataDir = abs
	}

	if util.GetEnvBool("DYLIFO_QUEUE", false) {
		que := queue.Init()
		defer que.Close()
		ch, err := que.Channel()
		if err != nil {
			logger.Fatal("Failed to open channel", "err", err)
		}
		if err := queue.SetupQueues(ch, []string{queue.SummaryQueue, queue.NarrativeQueue}); err != nil {
			logger.Fatal("Failed to declare queues", "err", err)
		}
		app.Queue = ch
	}

	e := New(app)

	go func() {
		port := util.GetEnvString("PORT", "8080")
		logger.Info("Starting server", "port", port, "backend", p.Config().Backend(), "model", p.Config().Model())
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed shutting down server", "err", err)
		}
	}()

	<-ctx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), util.GetEnvDuration("DYLIFO_SHUTDOWN_TIMEOUT", 10*time.Second))
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown server", "err", err)
	}
}
