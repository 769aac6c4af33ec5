package export

import (
	"strconv"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/alepar/aranet/aranet"
	"github.com/alepar/aranet/config"
)

var errPublishTimeout = errors.New("failed to publish due to timeout reached")

// mqttClient is the part of mqtt.Client the publisher uses.
type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTPublisher publishes every quantity of a reading to its own topic,
// <prefix>/<device>/<quantity>.
type MQTTPublisher struct {
	client  mqttClient
	prefix  string
	qos     byte
	retain  bool
	timeout time.Duration
}

// NewMQTTPublisher connects to the broker of cfg.
func NewMQTTPublisher(cfg config.MQTTConfig) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetConnectTimeout(cfg.Timeout).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(cfg.Timeout) {
		return nil, errors.Errorf("timed out connecting to mqtt broker %s", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, errors.Wrapf(err, "failed to connect to mqtt broker %s", cfg.Broker)
	}
	log.Debugf("connected to mqtt broker %s", cfg.Broker)

	return newMQTTPublisher(client, cfg), nil
}

func newMQTTPublisher(client mqttClient, cfg config.MQTTConfig) *MQTTPublisher {
	return &MQTTPublisher{
		client:  client,
		prefix:  strings.TrimSuffix(cfg.TopicPrefix, "/"),
		qos:     cfg.QoS,
		retain:  cfg.Retain,
		timeout: cfg.Timeout,
	}
}

func (pub *MQTTPublisher) topic(device, field string) string {
	return pub.prefix + "/" + device + "/" + field
}

// PublishReading publishes the present quantities of r under device.
func (pub *MQTTPublisher) PublishReading(device string, r aranet.CurrentReading) error {
	if device == "" {
		return errors.New("empty device name")
	}
	for _, f := range ReadingFields(r) {
		payload := strconv.FormatFloat(f.Value, 'f', -1, 64)
		if err := pub.publish(pub.topic(device, f.Name), payload); err != nil {
			return err
		}
	}
	return nil
}

func (pub *MQTTPublisher) publish(topic, payload string) error {
	token := pub.client.Publish(topic, pub.qos, pub.retain, payload)
	if token.Error() != nil {
		return errors.Wrapf(token.Error(), "failed to publish to %s", topic)
	}
	if !token.WaitTimeout(pub.timeout) {
		return errors.Wrapf(errPublishTimeout, "topic %s", topic)
	}
	return errors.Wrapf(token.Error(), "failed to publish to %s", topic)
}

func (pub *MQTTPublisher) Close() error {
	pub.client.Disconnect(uint(pub.timeout / time.Millisecond))
	return nil
}
