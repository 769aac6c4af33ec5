package config

import (
	"os"
	"time"

	"github.com/caarlos0/env/v7"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/alepar/aranet/aranet"
)

// EnvPrefix prefixes every environment override, e.g. ARANET_MQTT_BROKER.
const EnvPrefix = "ARANET_"

// Config holds the settings shared by the exporter and aranetctl.
type Config struct {
	Log      LogConfig      `yaml:"log" envPrefix:"LOG_"`
	BLE      BLEConfig      `yaml:"ble" envPrefix:"BLE_"`
	Exporter ExporterConfig `yaml:"exporter" envPrefix:"EXPORTER_"`
	MQTT     MQTTConfig     `yaml:"mqtt" envPrefix:"MQTT_"`
	Influx   InfluxConfig   `yaml:"influx" envPrefix:"INFLUX_"`
	// Devices names known sensors; only used for labels
	Devices []Device `yaml:"devices"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"LEVEL"`
}

type BLEConfig struct {
	ScanDuration   time.Duration `yaml:"scan_duration" env:"SCAN_DURATION"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" env:"CONNECT_TIMEOUT"`
	Retries        int           `yaml:"retries" env:"RETRIES"`
	NotifyTimeout  time.Duration `yaml:"notify_timeout" env:"NOTIFY_TIMEOUT"`
	PollInterval   time.Duration `yaml:"poll_interval" env:"POLL_INTERVAL"`
	MaxPollRetries int           `yaml:"max_poll_retries" env:"MAX_POLL_RETRIES"`
	// LegacyTemperature decodes temperatures the way old firmware encodes them.
	LegacyTemperature bool `yaml:"legacy_temperature" env:"LEGACY_TEMPERATURE"`
}

type ExporterConfig struct {
	ListenAddress string        `yaml:"listen_address" env:"LISTEN_ADDRESS"`
	ReadInterval  time.Duration `yaml:"read_interval" env:"READ_INTERVAL"`
}

// MQTTConfig enables publishing when Broker is set.
type MQTTConfig struct {
	Broker      string        `yaml:"broker" env:"BROKER"`
	ClientID    string        `yaml:"client_id" env:"CLIENT_ID"`
	Username    string        `yaml:"username" env:"USERNAME"`
	Password    string        `yaml:"password" env:"PASSWORD"`
	TopicPrefix string        `yaml:"topic_prefix" env:"TOPIC_PREFIX"`
	QoS         byte          `yaml:"qos" env:"QOS"`
	Retain      bool          `yaml:"retain" env:"RETAIN"`
	Timeout     time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

func (c MQTTConfig) Enabled() bool {
	return c.Broker != ""
}

// InfluxConfig enables writing when URL is set.
type InfluxConfig struct {
	URL         string `yaml:"url" env:"URL"`
	Token       string `yaml:"token" env:"TOKEN"`
	Org         string `yaml:"org" env:"ORG"`
	Bucket      string `yaml:"bucket" env:"BUCKET"`
	Measurement string `yaml:"measurement" env:"MEASUREMENT"`
}

func (c InfluxConfig) Enabled() bool {
	return c.URL != ""
}

type Device struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	c := &Config{}
	c.ApplyDefaults()
	return c
}

// Load reads the YAML file at path, applies defaults and environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read config file")
		}
		if err := yaml.Unmarshal(data, &c); err != nil {
			return nil, errors.Wrapf(err, "failed to parse config file %s", path)
		}
	}

	c.ApplyDefaults()
	if err := c.OverrideFromEnv(nil); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// ApplyDefaults sets every zero field to its default.
func (c *Config) ApplyDefaults() {
	opts := aranet.DefaultOptions()

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.BLE.ScanDuration == 0 {
		c.BLE.ScanDuration = 5 * time.Second
	}
	if c.BLE.ConnectTimeout == 0 {
		c.BLE.ConnectTimeout = 10 * time.Second
	}
	if c.BLE.Retries == 0 {
		c.BLE.Retries = 5
	}
	if c.BLE.NotifyTimeout == 0 {
		c.BLE.NotifyTimeout = opts.NotifyTimeout
	}
	if c.BLE.PollInterval == 0 {
		c.BLE.PollInterval = opts.PollInterval
	}
	if c.BLE.MaxPollRetries == 0 {
		c.BLE.MaxPollRetries = opts.MaxPollRetries
	}
	if c.Exporter.ListenAddress == "" {
		c.Exporter.ListenAddress = ":8080"
	}
	if c.Exporter.ReadInterval == 0 {
		c.Exporter.ReadInterval = 30 * time.Second
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "aranet"
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = "aranet"
	}
	if c.MQTT.Timeout == 0 {
		c.MQTT.Timeout = 5 * time.Second
	}
	if c.Influx.Measurement == "" {
		c.Influx.Measurement = "aranet"
	}
}

// OverrideFromEnv applies ARANET_ variables. A nil environ reads the process
// environment.
func (c *Config) OverrideFromEnv(environ map[string]string) error {
	opts := env.Options{Prefix: EnvPrefix, Environment: environ}
	if err := env.Parse(c, opts); err != nil {
		return errors.Wrap(err, "failed to parse environment")
	}
	return nil
}

func (c *Config) Validate() error {
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(err, "log.level")
	}
	if c.BLE.ScanDuration <= 0 {
		return errors.New("ble.scan_duration must be positive")
	}
	if c.BLE.Retries < 1 {
		return errors.New("ble.retries must be at least 1")
	}
	if c.Exporter.ReadInterval <= 0 {
		return errors.New("exporter.read_interval must be positive")
	}
	if c.MQTT.QoS > 2 {
		return errors.Errorf("mqtt.qos %d out of range", c.MQTT.QoS)
	}
	if c.Influx.Enabled() && (c.Influx.Org == "" || c.Influx.Bucket == "") {
		return errors.New("influx.org and influx.bucket are required with influx.url")
	}
	for i, d := range c.Devices {
		if err := aranet.ValidateAddress(d.Address); err != nil {
			return errors.Wrapf(err, "devices[%d]", i)
		}
	}
	return nil
}

// ClientOptions maps the BLE settings onto aranet.Options.
func (c BLEConfig) ClientOptions() aranet.Options {
	opts := aranet.DefaultOptions()
	opts.NotifyTimeout = c.NotifyTimeout
	opts.PollInterval = c.PollInterval
	opts.MaxPollRetries = c.MaxPollRetries
	if c.LegacyTemperature {
		opts.Codec = aranet.Codec{Temperature: aranet.TemperatureLegacyClamp}
	}
	return opts
}

// DeviceName returns the configured name for address, if any.
func (c *Config) DeviceName(address string) (string, bool) {
	for _, d := range c.Devices {
		if aranet.NormalizeAddress(d.Address) == aranet.NormalizeAddress(address) {
			return d.Name, true
		}
	}
	return "", false
}

// ApplyLogging configures the logrus standard logger.
func (c LogConfig) ApplyLogging() error {
	level, err := log.ParseLevel(c.Level)
	if err != nil {
		return errors.Wrap(err, "invalid log level")
	}
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
	})
	return nil
}
