package app

import (
	"time"

	"quadenc/pkg/quadrature"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"github.com/womat/debug"
)

// resp is the snapshot of the decoder as sent by /data and mqtt.
type resp struct {
	TimeStamp time.Time `json:"timestamp"`
	quadrature.Snapshot
}

func (app *App) snapshot() resp {
	return resp{TimeStamp: time.Now(), Snapshot: app.decoder.Snapshot()}
}

// runWebServer starts the applications web server and listens for web requests.
//  It's designed to run in a separate go function to not block the main go function.
//  e.g.: go runWebServer()
//  See app.Run()
func (app *App) runWebServer() {
	if err := app.web.Listen(app.urlParsed.Host); err != nil {
		debug.ErrorLog.Print(err)
	}
}

// HandleData returns the current position and rate of the encoder.
func (app *App) HandleData() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request data")

		return ctx.JSON(app.snapshot())
	}
}

// HandleMetrics serves the prometheus metrics of the decoder.
func (app *App) HandleMetrics() fiber.Handler {
	h := fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(app.registry, promhttp.HandlerOpts{}))

	return func(ctx *fiber.Ctx) error {
		debug.TraceLog.Print("web request metrics")

		h(ctx.Context())
		return nil
	}
}
