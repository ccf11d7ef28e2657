package mqtt

import (
	"strings"
	"testing"

	"github.com/berfenger/pzem2mqtt/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestCommandExtractor(t *testing.T) {

	assert := assert.New(t)

	r := commandExtractor("loremTopic")

	m := r.FindStringSubmatch("loremTopic/switch/energy_reset/command")
	assert.NotNil(m)
	assert.Equal("switch", m[1], "kind extract")
	assert.Equal("energy_reset", m[2], "device extract")
	assert.Equal("command", m[3], "verb extract")

	m = r.FindStringSubmatch("loremTopic/number/alarm_threshold/set")
	assert.NotNil(m)
	assert.Equal("number", m[1], "kind extract")
	assert.Equal("alarm_threshold", m[2], "device extract")
	assert.Equal("set", m[3], "verb extract")

	// sensors have no command topics
	assert.Nil(r.FindStringSubmatch("loremTopic/sensor/power/state"))
	// other base topics belong to someone else
	assert.Nil(r.FindStringSubmatch("otherTopic/switch/energy_reset/command"))
	// device ids are lowercase
	assert.Nil(r.FindStringSubmatch("loremTopic/switch/Energy_Reset/command"))
}

func TestParseMQTTCommand(t *testing.T) {

	assert := assert.New(t)

	client := testClient()

	cmd, err := client.ParseMQTTCommand(&stubMessage{
		topic:   "pzem2mqtt/switch/energy_reset/command",
		payload: "on",
	})
	assert.Nil(err)
	assert.Equal("energy_reset", cmd.DeviceId, "device extract")
	assert.Equal("switch", cmd.Command)
	assert.Equal("on", cmd.Payload)

	cmd, err = client.ParseMQTTCommand(&stubMessage{
		topic:   "pzem2mqtt/number/alarm_threshold/set",
		payload: "2300",
	})
	assert.Nil(err)
	assert.Equal("alarm_threshold", cmd.DeviceId, "number_id extract")
	assert.Equal("number", cmd.Command)
	assert.Equal("2300", cmd.Payload)
}

func TestParseMQTTCommandFail(t *testing.T) {

	assert := assert.New(t)

	client := testClient()

	// state topics are not commands
	_, err := client.ParseMQTTCommand(&stubMessage{
		topic:   "pzem2mqtt/switch/energy_reset/state",
		payload: "on",
	})
	assert.NotNil(err)

	// switches use "command", numbers use "set", not the other way around
	_, err = client.ParseMQTTCommand(&stubMessage{
		topic:   "pzem2mqtt/switch/energy_reset/set",
		payload: "on",
	})
	assert.NotNil(err)

	_, err = client.ParseMQTTCommand(&stubMessage{
		topic:   "pzem2mqtt/number/alarm_threshold/command",
		payload: "2300",
	})
	assert.NotNil(err)

	// input number payload must be a number
	_, err = client.ParseMQTTCommand(&stubMessage{
		topic:   "pzem2mqtt/number/alarm_threshold/set",
		payload: "lorem",
	})
	assert.NotNil(err)
}

func TestTopicBuilders(t *testing.T) {

	assert := assert.New(t)

	client := testClient()

	assert.Equal("pzem2mqtt/sensor/power/state", client.SensorStateTopic("power"))
	assert.Equal("pzem2mqtt/binary_sensor/alarm/state", client.BinarySensorStateTopic("alarm"))
	assert.Equal("pzem2mqtt/switch/energy_reset/state", client.SwitchStateTopic("energy_reset"))
	assert.Equal("pzem2mqtt/switch/energy_reset/command", client.SwitchCommandTopic("energy_reset"))
	assert.Equal("pzem2mqtt/number/alarm_threshold/state", client.InputNumberStateTopic("alarm_threshold"))
	assert.Equal("pzem2mqtt/number/alarm_threshold/set", client.InputNumberCommandTopic("alarm_threshold"))
	assert.Equal("pzem2mqtt/bridge/state", client.BridgeStateTopic())
}

func TestOptsFromConfig(t *testing.T) {

	assert := assert.New(t)

	opts := OptsFromConfig(config.MQTTConfig{
		Host:      "localhost",
		Port:      1883,
		BaseTopic: "pzem2mqtt",
	})

	assert.Len(opts.Servers, 1)
	assert.Equal("tcp://localhost:1883", opts.Servers[0].String())
	// default client id plus a random suffix
	assert.True(strings.HasPrefix(opts.ClientID, "pzem2mqtt_"))

	// the last will marks the bridge offline
	assert.True(opts.WillEnabled)
	assert.Equal("pzem2mqtt/bridge/state", opts.WillTopic)
	assert.Equal(MQTT_PAYLOAD_OFFLINE, string(opts.WillPayload))
	assert.True(opts.WillRetained)
}

func testClient() *MQTTClient {
	cfg := config.MQTTConfig{BaseTopic: "pzem2mqtt", HADiscoveryTopic: "homeassistant"}
	return &MQTTClient{
		cfg:           cfg,
		commandRegexp: commandExtractor(cfg.BaseTopic),
	}
}

type stubMessage struct {
	topic   string
	payload string
}

func (m *stubMessage) Duplicate() bool {
	return false
}

func (m *stubMessage) Qos() byte {
	return 0
}

func (m *stubMessage) Retained() bool {
	return false
}

func (m *stubMessage) Topic() string {
	return m.topic
}

func (m *stubMessage) MessageID() uint16 {
	return 0
}

func (m *stubMessage) Payload() []byte {
	return []byte(m.payload)
}

func (m *stubMessage) Ack() {
}
