package app

import (
	"net/url"
	"sync"
	"time"

	"luxlink/pkg/app/config"
	"luxlink/pkg/lamp"
	"luxlink/pkg/mqtt"
	"luxlink/pkg/receiver"
	"luxlink/pkg/sensor"
	"luxlink/pkg/transmit"

	"github.com/gofiber/fiber/v2"
	"github.com/womat/debug"
)

// App is the main application struct.
// App is where the application is wired up.
type App struct {
	// web is the fiber web framework instance
	web *fiber.App

	// config is the application configuration
	config *config.Config

	// urlParsed contains the parsed Config.Webserver.URL parameter
	urlParsed *url.URL

	// mqtt publishes decoded messages to the broker
	mqtt *mqtt.Publisher

	// lamp is the transmit light, nil on receive-only deployments
	lamp *lamp.Lamp

	// sender runs transmissions against the lamp
	sender *transmit.Sender

	// rx owns the receive session and threshold estimator. The sample
	// consumer goroutine is its single writer; the control surface
	// synchronizes with it through rxMu so reset and calibrate apply
	// between samples.
	rx   *receiver.Receiver
	rxMu sync.Mutex

	// source delivers brightness samples, nil when the host feeds them
	source sensor.Source
	// feed is the host-fed source used when no capture is configured
	feed *sensor.Feed

	// last is the most recent decode result
	last   Decoded
	lastMu sync.RWMutex

	// shutdown signals application shutdown
	shutdown chan struct{}
}

// Decoded is a completed receive result.
type Decoded struct {
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// New checks the web server URL and initializes the main app structure.
func New(cfg *config.Config) (*App, error) {
	u, err := url.Parse(cfg.Webserver.URL)
	if err != nil {
		debug.ErrorLog.Printf("error parsing url %q: %s", cfg.Webserver.URL, err.Error())
		return &App{}, err
	}

	return &App{
		config:    cfg,
		urlParsed: u,

		web:  fiber.New(),
		mqtt: mqtt.New(),
		rx:   receiver.New(),

		shutdown: make(chan struct{}),
	}, nil
}

// Run initializes the wiring and starts the application services.
func (app *App) Run() error {
	if err := app.init(); err != nil {
		return err
	}

	go app.mqtt.Service()
	go app.runWebServer()
	go app.service()

	if app.config.Sensor.AutoReady {
		app.rxMu.Lock()
		app.rx.MarkReady()
		app.rxMu.Unlock()
	}

	return nil
}

// init initializes lamp, sender, sample source and mqtt.
func (app *App) init() (err error) {
	if app.config.Lamp >= 0 {
		if app.lamp, err = lamp.Open(app.config.Lamp); err != nil {
			debug.ErrorLog.Printf("can't open lamp: %v", err)
			return err
		}
		app.sender = transmit.NewSender(app.lamp)
	}

	if app.config.Sensor.Capture != "" {
		if app.source, err = sensor.NewReplay(app.config.Sensor.Capture, app.config.Sensor.Pace); err != nil {
			debug.ErrorLog.Printf("can't open capture: %v", err)
			return err
		}
	} else {
		app.feed = sensor.NewFeed()
		app.source = app.feed
	}

	if err = app.mqtt.Connect(app.config.MQTT.Connection); err != nil {
		debug.ErrorLog.Printf("can't connect mqtt broker: %v", err)
		return err
	}

	// initRoutes should always be called last because handlers may
	// access things initialized above
	app.initDefaultRoutes()

	return nil
}

// Feed returns the host-fed sample source, or nil when a capture
// replay is configured. The camera pipeline pushes its samples here.
func (app *App) Feed() *sensor.Feed {
	return app.feed
}

// Shutdown returns the read only shutdown channel.
func (app *App) Shutdown() <-chan struct{} {
	return app.shutdown
}

// Close releases all application resources.
func (app *App) Close() error {
	if app.mqtt != nil {
		_ = app.mqtt.Disconnect()
	}
	if app.source != nil {
		_ = app.source.Close()
	}
	if app.lamp != nil {
		_ = app.lamp.Close()
	}
	return nil
}
