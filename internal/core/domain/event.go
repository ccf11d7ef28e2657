package domain

// SensorUpdateEvent is the shape of every state change published on the
// actor system event stream. The MQTT adapter maps each event to a state
// topic update. Retained marks events whose last value must survive a
// broker restart.
type SensorUpdateEvent interface {
	SensorId() string
	Retained() bool
}

type SensorUpdateEventMixIn struct {
	Id string
}

func (e SensorUpdateEventMixIn) SensorId() string {
	return e.Id
}

func (e SensorUpdateEventMixIn) Retained() bool {
	return false
}

// FloatSensorUpdateEvent reports a numeric reading together with the number
// of decimals it should be rendered with.
type FloatSensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value    float64
	Decimals uint
}

// BinarySensorUpdateEvent reports an on/off reading, like the power alarm.
type BinarySensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value bool
}

// SwitchSensorUpdateEvent reflects the state of a command switch back to
// its state topic.
type SwitchSensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value bool
}

func (e SwitchSensorUpdateEvent) Retained() bool {
	return true
}

// BridgeStateUpdateEvent flips the bridge availability topic.
type BridgeStateUpdateEvent struct {
	SensorUpdateEventMixIn
	Value bool
}

// InputNumberSensorUpdateEvent reflects the current value of a writable
// number entity, like the alarm threshold.
type InputNumberSensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value    float64
	Decimals uint
}

func (e InputNumberSensorUpdateEvent) Retained() bool {
	return true
}
