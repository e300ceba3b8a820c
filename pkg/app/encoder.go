package app

import (
	"quadenc/pkg/port"
	"quadenc/pkg/quadrature"

	"github.com/womat/debug"
)

// initDecoder creates the decoder with the current line levels and starts watching the lines.
func (app *App) initDecoder() error {
	opts := []quadrature.Option{
		quadrature.WithStrict(app.config.Decoder.Strict),
		quadrature.WithStart(app.encoder.Now()),
	}

	if app.config.Gpio.InitialRead {
		a, b, err := app.encoder.Values()
		if err != nil {
			return err
		}
		debug.InfoLog.Printf("initial encoder state %v", quadrature.NewState(a, b))
		opts = append(opts, quadrature.WithInitialState(a, b))
	}

	app.decoder = quadrature.New(opts...)
	return app.encoder.Watch(app.handleEdge)
}

// handleEdge is called by the gpio backend for each edge of channel A or B.
// It runs in the context of the gpio watcher and must not block.
func (app *App) handleEdge(evt port.Event) {
	app.decoder.Edge(evt.A, evt.B, evt.Timestamp)
}
