package mqtt

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/berfenger/pzem2mqtt/internal/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	MQTT_PAYLOAD_ONLINE  = "online"
	MQTT_PAYLOAD_OFFLINE = "offline"
	MQTT_PAYLOAD_ON      = "on"
	MQTT_PAYLOAD_OFF     = "off"

	defaultClientId = "pzem2mqtt"
)

// MQTTClient wraps the paho client with the bridge topic scheme and
// goroutine-backed token handling, so actors never block on the broker.
type MQTTClient struct {
	client        mqtt.Client
	cfg           config.MQTTConfig
	commandRegexp *regexp.Regexp
}

// ParsedMQTTCommand is a publication on a command topic broken into the
// entity it addresses and the payload it carries.
type ParsedMQTTCommand struct {
	DeviceId string
	Command  string
	Payload  string
}

func OptsFromConfig(cfg config.MQTTConfig) *mqtt.ClientOptions {
	clientId := cfg.ClientId
	if clientId == "" {
		clientId = defaultClientId
	}
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port))
	opts.SetClientID(fmt.Sprintf("%s_%d", clientId, rand.IntN(1000)))
	if cfg.Username != "" && cfg.Password != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	// last will flips the bridge offline when the connection drops
	opts.WillEnabled = true
	opts.WillTopic = bridgeStateTopic(cfg.BaseTopic)
	opts.WillPayload = []byte(MQTT_PAYLOAD_OFFLINE)
	opts.WillRetained = true
	opts.WillQos = 0
	return opts
}

func CreateMQTTClient(cfg config.MQTTConfig, opts *mqtt.ClientOptions, onConnect func(mqtt.Client),
	onConnectionLost func(mqtt.Client, error)) *MQTTClient {
	if onConnect != nil {
		opts.OnConnect = onConnect
	}
	if onConnectionLost != nil {
		opts.OnConnectionLost = onConnectionLost
	}
	return &MQTTClient{
		client:        mqtt.NewClient(opts),
		cfg:           cfg,
		commandRegexp: commandExtractor(cfg.BaseTopic),
	}
}

func (c *MQTTClient) topic(parts ...string) string {
	return c.cfg.BaseTopic + "/" + strings.Join(parts, "/")
}

func (c *MQTTClient) BridgeStateTopic() string {
	return bridgeStateTopic(c.cfg.BaseTopic)
}

func (c *MQTTClient) SensorStateTopic(sensorId string) string {
	return c.topic("sensor", sensorId, "state")
}

func (c *MQTTClient) BinarySensorStateTopic(sensorId string) string {
	return c.topic("binary_sensor", sensorId, "state")
}

func (c *MQTTClient) SwitchStateTopic(switchId string) string {
	return c.topic("switch", switchId, "state")
}

func (c *MQTTClient) SwitchCommandTopic(switchId string) string {
	return c.topic("switch", switchId, "command")
}

func (c *MQTTClient) InputNumberStateTopic(numberId string) string {
	return c.topic("number", numberId, "state")
}

func (c *MQTTClient) InputNumberCommandTopic(numberId string) string {
	return c.topic("number", numberId, "set")
}

// ParseMQTTCommand classifies a message seen on the base topic tree.
// Messages on state topics or with malformed payloads are rejected.
func (c *MQTTClient) ParseMQTTCommand(msg mqtt.Message) (*ParsedMQTTCommand, error) {
	m := c.commandRegexp.FindStringSubmatch(msg.Topic())
	if m == nil {
		return nil, errors.New("not a command topic")
	}
	kind, deviceId, verb := m[1], m[2], m[3]
	payload := string(msg.Payload())
	switch {
	case kind == "switch" && verb == "command":
		return &ParsedMQTTCommand{DeviceId: deviceId, Command: "switch", Payload: payload}, nil
	case kind == "number" && verb == "set":
		if _, err := strconv.ParseFloat(payload, 64); err != nil {
			return nil, err
		}
		return &ParsedMQTTCommand{DeviceId: deviceId, Command: "number", Payload: payload}, nil
	}
	return nil, errors.New("not a command topic")
}

// awaitToken watches a paho token off the caller goroutine and invokes
// continuation exactly once. A broker that does not answer within timeout
// counts as an error.
func awaitToken(token mqtt.Token, timeout time.Duration, what string, continuation func(error)) {
	go func() {
		if !token.WaitTimeout(timeout) {
			continuation(fmt.Errorf("MQTT %s timed out", what))
			return
		}
		continuation(token.Error())
	}()
}

func (c *MQTTClient) Connect(continuation func(error), timeout time.Duration) {
	awaitToken(c.client.Connect(), timeout, "connect", continuation)
}

func (c *MQTTClient) Publish(topic string, payload any, qos byte, retain bool, continuation func(error), timeout time.Duration) {
	awaitToken(c.client.Publish(topic, qos, retain, payload), timeout, "publish", continuation)
}

func (c *MQTTClient) Subscribe(topic string, qos byte, handler mqtt.MessageHandler, continuation func(error), timeout time.Duration) {
	awaitToken(c.client.Subscribe(topic, qos, handler), timeout, "subscribe", continuation)
}

// SubscribeToCommandTopic listens on the whole base topic tree. Command
// filtering happens in ParseMQTTCommand.
func (c *MQTTClient) SubscribeToCommandTopic(handler mqtt.MessageHandler, continuation func(error), timeout time.Duration) {
	c.Subscribe(c.cfg.BaseTopic+"/#", 1, handler, continuation, timeout)
}

func (c *MQTTClient) Disconnect(timeout time.Duration) {
	c.client.Disconnect(uint(timeout.Milliseconds()))
}

func commandExtractor(baseTopic string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf(`^%s/(switch|number)/([a-z0-9_]+)/(command|set)$`, regexp.QuoteMeta(baseTopic)))
}

func bridgeStateTopic(baseTopic string) string {
	return baseTopic + "/bridge/state"
}
