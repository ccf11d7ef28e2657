package mqtt

import (
	"fmt"

	"github.com/berfenger/pzem2mqtt/internal/core/domain"
)

// HADiscoveryConfig is the JSON document Home Assistant expects on a
// discovery config topic. Field names follow the MQTT discovery schema.
type HADiscoveryConfig struct {
	Device            HADiscoveryDevice `json:"device"`
	StateTopic        string            `json:"state_topic"`
	CommandTopic      string            `json:"command_topic,omitempty"`
	StateClass        string            `json:"state_class,omitempty"`
	DeviceClass       string            `json:"device_class,omitempty"`
	UnitOfMeasurement string            `json:"unit_of_measurement,omitempty"`
	AvTopic           string            `json:"availability_topic,omitempty"`
	EntityCategory    string            `json:"entity_category,omitempty"`
	Name              string            `json:"name"`
	UniqueId          string            `json:"unique_id"`
	Platform          string            `json:"platform"`
	EnabledByDefault  *bool             `json:"enabled_by_default,omitempty"`
	PayloadOn         string            `json:"payload_on,omitempty"`
	PayloadOff        string            `json:"payload_off,omitempty"`
	Icon              string            `json:"icon,omitempty"`
	Min               float64           `json:"min,omitempty"`
	Max               float64           `json:"max,omitempty"`
	Step              float64           `json:"step,omitempty"`
	Mode              string            `json:"mode,omitempty"`
	InitialValue      float64           `json:"initial,omitempty"`
}

type HADiscoveryDevice struct {
	Id           []string `json:"identifiers"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Version      string   `json:"sw_version,omitempty"`
	Model        string   `json:"model,omitempty"`
	Name         string   `json:"name,omitempty"`
	ViaDevice    string   `json:"via_device,omitempty"`
}

func (c *MQTTClient) HADiscoverySensorTopic(sensor domain.GenericSensor) string {
	return fmt.Sprintf("%s/%s/%s/%s/config", c.cfg.HADiscoveryTopic, sensor.SensorType, sensor.Device.Id, sensor.Id)
}

func (c *MQTTClient) HADiscoverySwitchTopic(sw domain.GenericSwitch) string {
	return fmt.Sprintf("%s/switch/%s/%s/config", c.cfg.HADiscoveryTopic, sw.Device.Id, sw.Id)
}

func (c *MQTTClient) HADiscoveryInputNumberTopic(number domain.GenericInputNumber) string {
	return fmt.Sprintf("%s/number/%s/%s/config", c.cfg.HADiscoveryTopic, number.Device.Id, number.Id)
}

// discoveryBase fills the fields every entity kind shares. Availability is
// tied to the bridge state topic so entities drop to unavailable together
// with the bridge.
func discoveryBase(client *MQTTClient, dev HADiscoveryDevice, name, uniqueId, icon string) HADiscoveryConfig {
	return HADiscoveryConfig{
		Device:   dev,
		AvTopic:  client.BridgeStateTopic(),
		Name:     name,
		UniqueId: uniqueId,
		Icon:     icon,
		Platform: "mqtt",
	}
}

func SensorDiscoveryConfig(client *MQTTClient, sensor domain.GenericSensor) HADiscoveryConfig {
	cfg := discoveryBase(client, discoveryDevice(sensor.Device), sensor.Name, sensor.UniqueId, sensor.Icon)
	cfg.StateClass = sensor.StateClass
	cfg.DeviceClass = sensor.DeviceClass
	cfg.UnitOfMeasurement = sensor.UnitOfMeasurement
	cfg.EntityCategory = sensor.EntityCategory
	cfg.EnabledByDefault = sensor.EnabledByDefault
	switch {
	case sensor.Id == domain.SENSOR_ID_BRIDGE_STATE:
		cfg.StateTopic = client.BridgeStateTopic()
		cfg.PayloadOn = MQTT_PAYLOAD_ONLINE
		cfg.PayloadOff = MQTT_PAYLOAD_OFFLINE
	case sensor.SensorType == domain.SENSOR_TYPE_BINARY:
		cfg.StateTopic = client.BinarySensorStateTopic(sensor.Id)
		cfg.PayloadOn = MQTT_PAYLOAD_ON
		cfg.PayloadOff = MQTT_PAYLOAD_OFF
	default:
		cfg.StateTopic = client.SensorStateTopic(sensor.Id)
	}
	return cfg
}

func SwitchDiscoveryConfig(client *MQTTClient, sw domain.GenericSwitch) HADiscoveryConfig {
	cfg := discoveryBase(client, discoveryDevice(sw.Device), sw.Name, sw.UniqueId, sw.Icon)
	cfg.StateTopic = client.SwitchStateTopic(sw.Id)
	cfg.CommandTopic = client.SwitchCommandTopic(sw.Id)
	cfg.PayloadOn = MQTT_PAYLOAD_ON
	cfg.PayloadOff = MQTT_PAYLOAD_OFF
	return cfg
}

func InputNumberDiscoveryConfig(client *MQTTClient, number domain.GenericInputNumber) HADiscoveryConfig {
	cfg := discoveryBase(client, discoveryDevice(number.Device), number.Name, number.UniqueId, number.Icon)
	cfg.StateTopic = client.InputNumberStateTopic(number.Id)
	cfg.CommandTopic = client.InputNumberCommandTopic(number.Id)
	cfg.Min = number.Min
	cfg.Max = number.Max
	cfg.Step = number.Step
	cfg.Mode = number.Mode
	cfg.InitialValue = number.InitialValue
	return cfg
}

func discoveryDevice(d domain.Device) HADiscoveryDevice {
	return HADiscoveryDevice{
		Id:           []string{d.Id},
		Manufacturer: d.Manufacturer,
		Version:      d.Version,
		Model:        d.Model,
		Name:         d.Name,
		ViaDevice:    d.ViaDevice,
	}
}
