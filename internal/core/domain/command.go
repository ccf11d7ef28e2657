package domain

import "fmt"

// MeterCommand

type MeterCommand interface {
	ActorRequest
	MeterCommand() string
}

type MeterCommandMixIn struct {
	ActorRequestMixIn
}

func (r MeterCommandMixIn) MeterCommand() string {
	return fmt.Sprintf("%T", r)
}

// Meter commands

type MeterResetEnergyRequest struct {
	MeterCommandMixIn
	Enable bool
}

type MeterSetAlarmThresholdRequest struct {
	MeterCommandMixIn
	ThresholdWatt uint16
}

// ensure interface compliance
var _ MeterCommand = (*MeterResetEnergyRequest)(nil)
var _ MeterCommand = (*MeterSetAlarmThresholdRequest)(nil)
