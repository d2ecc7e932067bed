// Package mqtt publishes decoded messages to an mqtt broker.
package mqtt

import (
	mqttlib "github.com/eclipse/paho.mqtt.golang"
	"github.com/womat/debug"
)

// quiesce is the number of milliseconds to wait for in-flight work on
// disconnect.
const quiesce = 250

// Publisher is the channel-fed mqtt client. Sending a Message to C
// publishes it; without a configured broker messages are discarded.
type Publisher struct {
	client mqttlib.Client

	// C is the channel of outgoing messages.
	C chan Message
}

// Message is one mqtt publication.
type Message struct {
	Topic    string
	Payload  []byte
	Qos      byte
	Retained bool
}

// New returns an unconnected publisher.
func New() *Publisher {
	return &Publisher{
		C: make(chan Message),
	}
}

// Connect connects to the broker. An empty broker string disables
// publishing entirely.
func (p *Publisher) Connect(broker string) error {
	if broker == "" {
		return nil
	}

	opts := mqttlib.NewClientOptions().AddBroker(broker)
	p.client = mqttlib.NewClient(opts)
	return p.reconnect()
}

func (p *Publisher) reconnect() error {
	t := p.client.Connect()
	<-t.Done()
	return t.Error()
}

// Disconnect ends the broker connection.
func (p *Publisher) Disconnect() error {
	if p.client == nil {
		return nil
	}

	p.client.Disconnect(quiesce)
	return nil
}

// Service drains C and publishes each message, reconnecting on demand.
// It returns when C is closed. Designed to run as its own goroutine.
func (p *Publisher) Service() {
	for m := range p.C {
		if p.client == nil || m.Topic == "" {
			continue
		}

		if !p.client.IsConnected() {
			debug.DebugLog.Print("mqtt broker not connected, reconnecting")
			if err := p.reconnect(); err != nil {
				debug.ErrorLog.Printf("can't reconnect to mqtt broker: %v", err)
				continue
			}
		}

		debug.DebugLog.Printf("publishing %d bytes to topic %v", len(m.Payload), m.Topic)
		t := p.client.Publish(m.Topic, m.Qos, m.Retained, m.Payload)

		// publishing is asynchronous; surface errors from a helper
		go func(t mqttlib.Token, topic string) {
			<-t.Done()
			if err := t.Error(); err != nil {
				debug.ErrorLog.Printf("publishing topic %v: %v", topic, err)
			}
		}(t, m.Topic)
	}
}
