package app

import (
	"fmt"
	"time"

	"github.com/womat/debug"
)

// runReporter writes the status line of the decoder to the report output
// every report interval until the application is shut down.
func (app *App) runReporter() {
	defer app.wg.Done()

	t := time.NewTicker(app.config.Report.Interval)
	defer t.Stop()

	for {
		select {
		case <-app.shutdown:
			return
		case <-t.C:
			s := app.decoder.Snapshot()
			debug.TraceLog.Printf("edges: %v, transitions: %v, illegal: %v", s.Edges, s.Transitions, s.Illegal)
			if _, err := fmt.Fprintln(app.config.Report.Output, s); err != nil {
				debug.ErrorLog.Printf("can't write report: %v", err)
			}
		}
	}
}

// runPublisher sends the snapshot of the decoder to the mqtt broker every mqtt interval.
// If no broker is configured, runPublisher returns immediately.
func (app *App) runPublisher() {
	defer app.wg.Done()

	if !app.mqtt.Connected() || app.config.MQTT.Interval <= 0 {
		return
	}

	t := time.NewTicker(app.config.MQTT.Interval)
	defer t.Stop()

	for {
		select {
		case <-app.shutdown:
			return
		case <-t.C:
			if err := app.mqtt.Publish(app.config.MQTT.Topic, app.snapshot()); err != nil {
				debug.ErrorLog.Printf("sendMQTT marshal: %v", err)
			}
		}
	}
}
