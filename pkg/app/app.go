package app

import (
	"fmt"
	"net/url"
	"sync"

	"quadenc/pkg/app/config"
	"quadenc/pkg/mqtt"
	"quadenc/pkg/quadrature"
	"quadenc/pkg/raspberry"

	"github.com/gofiber/fiber/v2"
	"github.com/gofrs/flock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/womat/debug"
)

// App is the main application struct.
// App is where the application is wired up.
type App struct {
	// web is the fiber web framework instance
	web *fiber.App

	// config is the application configuration
	config *config.Config

	// urlParsed contains the parsed Config.Url parameter
	// and makes it easier to get params out of e.g.
	// url: https://0.0.0.0:7844/?minTls=1.2&bodyLimit=50MB
	urlParsed *url.URL

	// mqtt is the handler to the mqtt broker
	mqtt *mqtt.Handler

	// encoder is the handler to the gpio lines of channel A and B
	encoder raspberry.Encoder

	// decoder holds position and rate, it is written by the edge handler only
	decoder *quadrature.Decoder

	// registry holds the prometheus collectors of the decoder
	registry *prometheus.Registry

	// lock ensures that only one instance owns the encoder lines
	lock *flock.Flock

	// running is set if all services are started
	running bool
	// wg waits for the reporting goroutines
	wg sync.WaitGroup
	// shutdown signals application shutdown
	shutdown chan struct{}
}

// New checks the Web server URL and initialize the main app structure
func New(config *config.Config) (*App, error) {
	u, err := url.Parse(config.Webserver.URL)
	if err != nil {
		debug.ErrorLog.Printf("Error parsing url %q: %s", config.Webserver.URL, err.Error())
		return &App{}, err
	}

	return &App{
		config:    config,
		urlParsed: u,

		web:      fiber.New(fiber.Config{DisableStartupMessage: true}),
		mqtt:     mqtt.New(),
		registry: prometheus.NewRegistry(),

		shutdown: make(chan struct{}),
	}, nil
}

// Run starts the application.
func (app *App) Run() error {
	if err := app.init(); err != nil {
		return err
	}

	app.running = true
	go app.mqtt.Service()
	go app.runWebServer()

	app.wg.Add(2)
	go app.runReporter()
	go app.runPublisher()

	return nil
}

// init initializes the application.
func (app *App) init() (err error) {
	if app.config.LockFile != "" {
		app.lock = flock.New(app.config.LockFile)
		var locked bool
		if locked, err = app.lock.TryLock(); err != nil {
			debug.ErrorLog.Printf("can't lock %s: %v", app.config.LockFile, err)
			return err
		}
		if !locked {
			return fmt.Errorf("encoder is already used by another instance (%s)", app.config.LockFile)
		}
	}

	if app.encoder, err = raspberry.Open(app.config.Gpio); err != nil {
		debug.ErrorLog.Printf("can't open gpio: %v", err)
		return err
	}

	if err = app.initDecoder(); err != nil {
		debug.ErrorLog.Printf("can't start decoder: %v", err)
		return err
	}

	if err = app.mqtt.Connect(app.config.MQTT.Connection); err != nil {
		debug.ErrorLog.Printf("can't open mqtt broker %v", err)
		return err
	}

	if err = app.initMetrics(); err != nil {
		debug.ErrorLog.Printf("can't register metrics: %v", err)
		return err
	}

	// initDefaultRoutes should be always called last because it accesses the decoder and the metrics registry
	app.initDefaultRoutes()

	return nil
}

// Shutdown returns the read only shutdown channel.
// Shutdown is used to be able to react on application shutdown. (see cmd/quadenc.go)
func (app *App) Shutdown() <-chan struct{} {
	return app.shutdown
}

// Close stops the reporting, the web server and releases the gpio lines.
func (app *App) Close() error {
	if app.shutdown != nil {
		select {
		case <-app.shutdown:
			return nil
		default:
			close(app.shutdown)
		}
	}
	app.wg.Wait()

	if app.web != nil {
		_ = app.web.Shutdown()
	}
	if app.running {
		_ = app.mqtt.Close()
	} else if app.mqtt != nil {
		_ = app.mqtt.Disconnect()
	}
	if app.encoder != nil {
		_ = app.encoder.Close()
	}
	if app.lock != nil {
		_ = app.lock.Unlock()
	}
	return nil
}
