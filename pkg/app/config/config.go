package config

import (
	"fmt"
	"io"
	"os"

	"github.com/womat/debug"
	"gopkg.in/yaml.v2"
)

// Config defines the struct of the global configuration and of the
// configuration file.
type Config struct {
	// Lamp is the GPIO number of the transmit light, or -1 for a
	// receive-only deployment.
	Lamp int `yaml:"lamp"`

	Flag      FlagConfig      `yaml:"-"`
	Sensor    SensorConfig    `yaml:"sensor"`
	Log       LogConfig       `yaml:"log"`
	Webserver WebserverConfig `yaml:"webserver"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
}

// FlagConfig holds the command line parameters.
type FlagConfig struct {
	LogLevel   string
	ConfigFile string
}

// SensorConfig selects the brightness sample source.
type SensorConfig struct {
	// Capture is a recorded sample file to replay; empty means the
	// host feeds samples itself.
	Capture string `yaml:"capture"`
	// Pace replays the capture on its recorded cadence.
	Pace bool `yaml:"pace"`
	// AutoReady arms the receiver immediately instead of waiting for
	// the readiness signal on the control surface.
	AutoReady bool `yaml:"autoready"`
}

// WebserverConfig defines the web server and its enabled services.
type WebserverConfig struct {
	URL         string          `yaml:"url"`
	Webservices map[string]bool `yaml:"webservices"`
}

// MQTTConfig defines the mqtt client configuration.
type MQTTConfig struct {
	Connection string `yaml:"connection"`
	Topic      string `yaml:"topic"`
}

// LogConfig defines the log destination and level.
type LogConfig struct {
	File       io.WriteCloser `yaml:"-"`
	Flag       int            `yaml:"-"`
	FlagString string         `yaml:"flag"`
	FileString string         `yaml:"file"`
}

// NewConfig returns the configuration defaults.
func NewConfig() *Config {
	return &Config{
		Lamp: -1,
		Flag: FlagConfig{},
		Log: LogConfig{
			FileString: "stderr",
			FlagString: "standard",
		},
		Webserver: WebserverConfig{
			URL: "http://0.0.0.0:4000",
			Webservices: map[string]bool{
				"version": true,
				"health":  true,
				"status":  true,
				"message": true,
				"send":    true,
				"control": true,
			},
		},
		MQTT: MQTTConfig{
			Connection: "",
			Topic:      "luxlink/message",
		},
	}
}

// LoadConfig reads the configuration file and applies the command line
// overrides.
func (c *Config) LoadConfig() error {
	if err := c.readConfigFile(); err != nil {
		return fmt.Errorf("error reading config file %q: %w", c.Flag.ConfigFile, err)
	}

	if c.Flag.LogLevel != "" {
		c.Log.FlagString = c.Flag.LogLevel
	}
	if err := c.setLogConfig(); err != nil {
		return fmt.Errorf("unable to open log file %q: %w", c.Log.FileString, err)
	}

	return nil
}

func (c *Config) readConfigFile() error {
	file, err := os.Open(c.Flag.ConfigFile)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	return yaml.NewDecoder(file).Decode(c)
}

func (c *Config) setLogConfig() (err error) {
	switch c.Log.FlagString {
	case "trace", "full":
		c.Log.Flag = debug.Full
	case "debug":
		c.Log.Flag = debug.Warning | debug.Info | debug.Error | debug.Fatal | debug.Debug
	case "standard":
		c.Log.Flag = debug.Standard
	}

	switch c.Log.FileString {
	case "stderr":
		c.Log.File = os.Stderr
	case "stdout":
		c.Log.File = os.Stdout
	default:
		if c.Log.File, err = os.OpenFile(c.Log.FileString, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666); err != nil {
			return
		}
	}

	return
}
