package domain

import (
	"github.com/berfenger/pzem2mqtt/pkg/pzem004t"

	"github.com/asynkron/protoactor-go/actor"
)

const (
	ACTOR_ID_MASTER       = "master"
	ACTOR_ID_METER        = "meter"
	ACTOR_ID_MONITOR      = "monitor"
	ACTOR_ID_MQTT         = "mqtt"
	ACTOR_ID_HA_DISCOVERY = "hadiscovery"
)

type ActorRef actor.PID

type ActorRequestMixIn struct {
	ReplyToRef *ActorRef
}

type ActorRequest interface {
	ReplyTo() *ActorRef
}

func (r ActorRequestMixIn) ReplyTo() *ActorRef {
	return r.ReplyToRef
}

type ActorResponseMixIn struct {
	ResponseError error
}

func (r ActorResponseMixIn) GetResponseError() error {
	return r.ResponseError
}

func (r ActorResponseMixIn) HasResponseError() bool {
	return r.ResponseError != nil
}

type ActorResponse interface {
	GetResponseError() error
	HasResponseError() bool
}

// ErrResponse builds the mixin for a failed response in one call.
func ErrResponse(err error) ActorResponseMixIn {
	return ActorResponseMixIn{ResponseError: err}
}

// MeterInfo describes the sensor behind the meter actor. The PZEM-004T has
// no identity registers, so this is limited to its bus address and the
// configured alarm threshold.
type MeterInfo struct {
	Address            uint8
	AlarmThresholdWatt uint16
}

type GetMeterInfoRequest struct {
	ActorRequestMixIn
}

type GetMeterInfoResponse struct {
	ActorResponseMixIn
	Meter *MeterInfo
}

type GetMeasurementsRequest struct {
	ActorRequestMixIn
}

type GetMeasurementsResponse struct {
	ActorResponseMixIn
	Measurement *pzem004t.Measurement
}

type GetAlarmThresholdRequest struct {
	ActorRequestMixIn
}

type GetAlarmThresholdResponse struct {
	ActorResponseMixIn
	ThresholdWatt uint16
}

type SetAlarmThresholdRequest struct {
	ActorRequestMixIn
	ThresholdWatt uint16
}

type SetAlarmThresholdResponse struct {
	ActorResponseMixIn
	ThresholdWatt uint16
}

type SetMeterAddressRequest struct {
	ActorRequestMixIn
	Address uint8
}

type SetMeterAddressResponse struct {
	ActorResponseMixIn
	Address uint8
}

type ResetEnergyRequest struct {
	ActorRequestMixIn
}

type ResetEnergyResponse struct {
	ActorResponseMixIn
}

type PublishMessageRequest struct {
	ActorRequestMixIn
	Topic   string
	Payload string
	Retain  bool
}

type PublishMessageResponse struct {
	ActorResponseMixIn
}

type PublishSensorUpdateRequest struct {
	ActorRequestMixIn
	Retain bool
	Event  SensorUpdateEvent
}

type PublishSensorUpdateResponse struct {
	ActorResponseMixIn
}

type PublishDiscoveryRequest struct {
	ActorRequestMixIn
	Sensors      []GenericSensor
	Switches     []GenericSwitch
	InputNumbers []GenericInputNumber
}

type PublishDiscoveryResponse struct {
	ActorResponseMixIn
}

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}
