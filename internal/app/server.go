package app

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tigerroll/forecastpipe/internal/support/logger"
)

// NewServer builds the invocation server:
//
//	POST|GET /fetch   fetch run, JSON response
//	POST|GET /ingest  ingestion run, plain-text response
//	GET /metrics      Prometheus metrics
//	GET /healthz      liveness
func NewServer(runner *Runner, gatherer prometheus.Gatherer) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "forecastpipe",
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			logger.Errorf("HTTP %s %s failed: %v", c.Method(), c.Path(), err)
			return c.Status(code).SendString(err.Error())
		},
	})
	app.Use(recover.New())

	fetch := func(c *fiber.Ctx) error {
		status, resp := runner.Fetch(c.UserContext())
		return c.Status(status).JSON(resp)
	}
	ingest := func(c *fiber.Ctx) error {
		status, msg := runner.Ingest(c.UserContext())
		c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
		return c.Status(status).SendString(msg)
	}
	app.Post("/fetch", fetch)
	app.Get("/fetch", fetch)
	app.Post("/ingest", ingest)
	app.Get("/ingest", ingest)

	if gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}
