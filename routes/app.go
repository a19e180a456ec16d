package routes

import (
	"errors"
	"net/http"

	"beststore/events"
	"beststore/services"
	"beststore/views"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/template/html/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Options struct {
	Service     *services.ProductService
	Hub         *events.Hub // optional
	ImagesDir   string
	BodyLimitMB int
	AccessLog   bool
}

// NewApp builds the Fiber application with its views, middleware and routes.
func NewApp(opts Options) *fiber.App {
	return newApp(opts, NewProductHandler(opts.Service))
}

func newApp(opts Options, h *ProductHandler) *fiber.App {
	engine := html.NewFileSystem(http.FS(views.FS), ".html")

	bodyLimit := fiber.DefaultBodyLimit
	if opts.BodyLimitMB > 0 {
		bodyLimit = opts.BodyLimitMB * 1024 * 1024
	}

	app := fiber.New(fiber.Config{
		Views:        engine,
		BodyLimit:    bodyLimit,
		ErrorHandler: errorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	if opts.AccessLog {
		app.Use(fiberlogger.New(fiberlogger.Config{
			Format: "${time} ${locals:requestid} ${status} - ${method} ${path} ${latency}\n",
		}))
	}

	// Serve uploaded images
	app.Static("/images", opts.ImagesDir)

	if opts.Hub != nil {
		app.Get("/ws", adaptor.HTTPHandler(opts.Hub))
	}

	SetupRoutes(app, h)
	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		zap.L().Error("request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Any("request_id", c.Locals("requestid")),
			zap.Error(err))
	}
	return c.Status(code).SendString(http.StatusText(code))
}
