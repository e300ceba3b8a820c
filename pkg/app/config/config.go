package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/womat/debug"
	"gopkg.in/natefinch/lumberjack.v2"
	"gopkg.in/yaml.v2"
)

// Config holds the application configuration. Attention!
// Each of the struct fields must be in the format
// first letter uppercase -> followed by CamelCase as in the config file.
// Config defines the struct of global config and the struct of the configuration file
type Config struct {
	Gpio      GpioConfig      `yaml:"gpio"`
	Decoder   DecoderConfig   `yaml:"decoder"`
	Report    ReportConfig    `yaml:"report"`
	LockFile  string          `yaml:"lockfile"`
	Flag      FlagConfig      `yaml:"-"`
	Log       LogConfig       `yaml:"debug"`
	Webserver WebserverConfig `yaml:"webserver"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
}

// FlagConfig defines the configured flags (parameters)
type FlagConfig struct {
	LogLevel   string
	ConfigFile string
}

// GpioConfig defines the encoder lines and the gpio backend.
//  backend: gpiod (character device), gpiomem (/dev/gpiomem) or emu (software emulation)
//  bias:    pullup, pulldown or none
type GpioConfig struct {
	Backend string `yaml:"backend"`
	Chip    string `yaml:"chip"`
	A       int    `yaml:"a"`
	B       int    `yaml:"b"`
	Bias    string `yaml:"bias"`
	// InitialRead reads the line levels at start up, otherwise both channels are assumed low.
	InitialRead bool      `yaml:"initialread"`
	Emu         EmuConfig `yaml:"emu"`
}

// EmuConfig defines the signal of the emulated encoder.
type EmuConfig struct {
	PPS     float64 `yaml:"pps"`
	Reverse bool    `yaml:"reverse"`
}

// DecoderConfig defines the decoding options.
type DecoderConfig struct {
	// Strict rejects transitions where both channels change at once.
	Strict bool `yaml:"strict"`
}

// ReportConfig defines the cadence and destination of the status line.
type ReportConfig struct {
	IntervalInt int           `yaml:"interval"`
	Interval    time.Duration `yaml:"-"`
	OutputFile  string        `yaml:"output"`
	Output      io.Writer     `yaml:"-"`
}

// WebserverConfig defines the struct of the webserver and webservice configuration and configuration file
type WebserverConfig struct {
	URL         string          `yaml:"url"`
	Webservices map[string]bool `yaml:"webservices"`
}

// MQTTConfig defines the struct of the mqtt client configuration and configuration file
type MQTTConfig struct {
	Connection  string        `yaml:"connection"`
	Interval    time.Duration `yaml:"-"`
	IntervalInt int           `yaml:"interval"`
	Topic       string        `yaml:"topic"`
}

// LogConfig defines the struct of the debug configuration and configuration file
type LogConfig struct {
	File       io.WriteCloser `yaml:"-"`
	Flag       int            `yaml:"-"`
	FlagString string         `yaml:"flag"`
	FileString string         `yaml:"file"`
	// MaxSize is the size in megabytes of a log file before it gets rotated.
	MaxSize int `yaml:"maxsize"`
	// MaxBackups is the number of rotated log files to keep.
	MaxBackups int `yaml:"maxbackups"`
}

func NewConfig() *Config {
	return &Config{
		Gpio: GpioConfig{
			Backend:     "gpiod",
			Chip:        "gpiochip0",
			A:           2,
			B:           3,
			Bias:        "none",
			InitialRead: true,
			Emu:         EmuConfig{PPS: 100},
		},
		Report: ReportConfig{
			IntervalInt: 500,
			OutputFile:  "stdout",
		},
		LockFile: "/var/run/quadenc.lock",
		Flag:     FlagConfig{},
		Log: LogConfig{
			FileString: "stderr",
			FlagString: "standard",
			MaxSize:    10,
			MaxBackups: 3,
		},
		Webserver: WebserverConfig{
			URL: "http://0.0.0.0:4000",
			Webservices: map[string]bool{
				"version": true,
				"health":  true,
				"data":    true,
				"metrics": true,
			},
		},
		MQTT: MQTTConfig{
			IntervalInt: 5,
			Topic:       "/quadenc",
		},
	}
}

// LoadConfig reads the config file, applies command line flags and converts the derived fields.
// A missing config file is not an error, the defaults are used.
func (c *Config) LoadConfig() error {
	if err := c.readConfigFile(); err != nil {
		return fmt.Errorf("error reading config file %q: %w", c.Flag.ConfigFile, err)
	}

	if c.Flag.LogLevel != "" {
		c.Log.FlagString = c.Flag.LogLevel
	}
	if err := c.setLogConfig(); err != nil {
		return fmt.Errorf("unable to open debug file %q: %w", c.Log.FileString, err)
	}

	if err := c.setReportConfig(); err != nil {
		return fmt.Errorf("unable to open report output %q: %w", c.Report.OutputFile, err)
	}

	c.MQTT.Interval = time.Duration(c.MQTT.IntervalInt) * time.Second

	if c.Gpio.A == c.Gpio.B {
		return fmt.Errorf("channel a and b use the same line %d", c.Gpio.A)
	}
	return nil
}

func (c *Config) readConfigFile() error {
	if c.Flag.ConfigFile == "" {
		return nil
	}

	file, err := os.Open(c.Flag.ConfigFile)
	if err != nil {
		if os.IsNotExist(err) {
			debug.InfoLog.Printf("config file %q not found, using defaults", c.Flag.ConfigFile)
			return nil
		}
		return err
	}
	defer func() { _ = file.Close() }()

	decoder := yaml.NewDecoder(file)
	if err = decoder.Decode(c); err != nil && err != io.EOF {
		return err
	}

	return nil
}

func (c *Config) setLogConfig() (err error) {
	// defines Debug section of global.Config
	switch c.Log.FlagString {
	case "trace", "full":
		c.Log.Flag = debug.Full
	case "debug":
		c.Log.Flag = debug.Warning | debug.Info | debug.Error | debug.Fatal | debug.Debug
	case "standard":
		c.Log.Flag = debug.Standard
	default:
		return fmt.Errorf("unknown log level %q", c.Log.FlagString)
	}

	switch c.Log.FileString {
	case "stderr":
		c.Log.File = os.Stderr
	case "stdout":
		c.Log.File = os.Stdout
	default:
		c.Log.File = &lumberjack.Logger{
			Filename:   c.Log.FileString,
			MaxSize:    c.Log.MaxSize,
			MaxBackups: c.Log.MaxBackups,
		}
	}

	return
}

func (c *Config) setReportConfig() (err error) {
	if c.Report.IntervalInt <= 0 {
		return fmt.Errorf("invalid report interval %d", c.Report.IntervalInt)
	}
	c.Report.Interval = time.Duration(c.Report.IntervalInt) * time.Millisecond

	switch c.Report.OutputFile {
	case "stdout", "":
		c.Report.Output = os.Stdout
	case "stderr":
		c.Report.Output = os.Stderr
	case "none":
		c.Report.Output = io.Discard
	default:
		c.Report.Output, err = os.OpenFile(c.Report.OutputFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o666)
	}

	return
}
