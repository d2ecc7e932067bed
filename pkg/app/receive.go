package app

import (
	"encoding/json"
	"time"

	"luxlink/pkg/mqtt"

	"github.com/womat/debug"
)

// service drains the sample source and feeds the receiver. It is the
// sole mutator of the receive session; decode results leave the core
// as events to the display surface and the mqtt broker.
func (app *App) service() {
	if app.source == nil {
		return
	}

	for s := range app.source.C() {
		app.rxMu.Lock()
		text, ok := app.rx.Push(s)
		app.rxMu.Unlock()

		if ok {
			app.deliver(text)
		}
	}

	debug.InfoLog.Print("sample source ended")
}

// deliver records a decode result and publishes it.
func (app *App) deliver(text string) {
	d := Decoded{Text: text, At: time.Now()}

	app.lastMu.Lock()
	app.last = d
	app.lastMu.Unlock()

	debug.InfoLog.Printf("message received: %q", text)
	app.sendMQTT(app.config.MQTT.Topic, d)
}

// lastDecoded returns the most recent decode result.
func (app *App) lastDecoded() Decoded {
	app.lastMu.RLock()
	defer app.lastMu.RUnlock()
	return app.last
}

// sendMQTT hands a message to the mqtt publisher without blocking the
// sample consumer.
func (app *App) sendMQTT(topic string, message interface{}) {
	go func(t string, m interface{}) {
		b, err := json.MarshalIndent(m, "", "  ")
		if err != nil {
			debug.ErrorLog.Printf("sendMQTT marshal: %v", err)
			return
		}

		app.mqtt.C <- mqtt.Message{
			Qos:      0,
			Retained: true,
			Topic:    t,
			Payload:  b,
		}
	}(topic, message)
}
