package actor

import (
	"fmt"
	"time"

	"github.com/berfenger/pzem2mqtt/internal/core/domain"
	"github.com/berfenger/pzem2mqtt/internal/util/actorutil"
	"github.com/berfenger/pzem2mqtt/pkg/pzem004t"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

// exchangeDeadline caps a single request/response exchange on the bus,
// retries included. It is intentionally larger than the read timeout.
const exchangeDeadline = 2 * time.Second

// MeterActor owns the serial link to the PZEM-004T. One exchange runs at
// a time and the actor stashes everything else, so the half-duplex bus
// never sees two requests in flight.
type MeterActor struct {
	behavior    actor.Behavior
	stash       *actorutil.Stash
	meter       pzem004t.Meter
	readTimeout time.Duration
	logger      *zap.Logger
}

func NewMeterActor(meter pzem004t.Meter, readTimeout time.Duration, logger *zap.Logger) *MeterActor {
	act := &MeterActor{
		meter:       meter,
		readTimeout: readTimeout,
		behavior:    actor.NewBehavior(),
		stash:       &actorutil.Stash{},
		logger:      actorutil.ActorLogger(domain.ACTOR_ID_METER, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *MeterActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MeterActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("meter@starting started")
		err := state.meter.Open()
		if err != nil {
			panic(err)
		}
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
		state.meter.Close()
	default:
		state.logger.Debug("meter@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MeterActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("meter@default ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_METER,
			Healthy: true,
			State:   "idle",
		})
	case domain.GetMeterInfoRequest:
		state.logger.Debug("meter@default GetMeterInfoRequest")
		actorutil.RunExchange(ctx, actorutil.ReplyTarget(ctx, msg), exchangeDeadline, state.getMeterInfo,
			func(err error) domain.GetMeterInfoResponse {
				return domain.GetMeterInfoResponse{ActorResponseMixIn: domain.ErrResponse(err)}
			})
		state.behavior.BecomeStacked(state.ExchangingReceive)
	case domain.GetMeasurementsRequest:
		state.logger.Debug("meter@default GetMeasurementsRequest")
		actorutil.RunExchange(ctx, actorutil.ReplyTarget(ctx, msg), exchangeDeadline, state.getMeasurements,
			func(err error) domain.GetMeasurementsResponse {
				return domain.GetMeasurementsResponse{ActorResponseMixIn: domain.ErrResponse(err)}
			})
		state.behavior.BecomeStacked(state.ExchangingReceive)
	case domain.GetAlarmThresholdRequest:
		state.logger.Debug("meter@default GetAlarmThresholdRequest")
		actorutil.RunExchange(ctx, actorutil.ReplyTarget(ctx, msg), exchangeDeadline, state.getAlarmThreshold,
			func(err error) domain.GetAlarmThresholdResponse {
				return domain.GetAlarmThresholdResponse{ActorResponseMixIn: domain.ErrResponse(err)}
			})
		state.behavior.BecomeStacked(state.ExchangingReceive)
	case domain.SetAlarmThresholdRequest:
		state.logger.Debug("meter@default SetAlarmThresholdRequest")
		actorutil.RunExchange(ctx, actorutil.ReplyTarget(ctx, msg), exchangeDeadline,
			func() (*domain.SetAlarmThresholdResponse, error) {
				return state.setAlarmThreshold(msg.ThresholdWatt)
			},
			func(err error) domain.SetAlarmThresholdResponse {
				return domain.SetAlarmThresholdResponse{ActorResponseMixIn: domain.ErrResponse(err)}
			})
		state.behavior.BecomeStacked(state.ExchangingReceive)
	case domain.SetMeterAddressRequest:
		state.logger.Debug("meter@default SetMeterAddressRequest")
		actorutil.RunExchange(ctx, actorutil.ReplyTarget(ctx, msg), exchangeDeadline,
			func() (*domain.SetMeterAddressResponse, error) {
				return state.setMeterAddress(msg.Address)
			},
			func(err error) domain.SetMeterAddressResponse {
				return domain.SetMeterAddressResponse{ActorResponseMixIn: domain.ErrResponse(err)}
			})
		state.behavior.BecomeStacked(state.ExchangingReceive)
	case domain.ResetEnergyRequest:
		state.logger.Debug("meter@default ResetEnergyRequest")
		actorutil.RunExchange(ctx, actorutil.ReplyTarget(ctx, msg), exchangeDeadline, state.resetEnergy,
			func(err error) domain.ResetEnergyResponse {
				return domain.ResetEnergyResponse{ActorResponseMixIn: domain.ErrResponse(err)}
			})
		state.behavior.BecomeStacked(state.ExchangingReceive)
	case *actor.Stopping:
		state.meter.Close()
	default:
		state.logger.Debug("meter@default ignore", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

// ExchangingReceive holds the actor while a bus exchange is in flight.
// The reply is forwarded as soon as the exchange settles.
func (state *MeterActor) ExchangingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case actorutil.TaskResult:
		state.logger.Debug("meter@exchanging result", zap.String("type", fmt.Sprintf("%T", msg.Message)))
		if msg.ReplyTo != nil {
			ctx.Send(msg.ReplyTo, msg.Message)
		}
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case *actor.Stopping:
		state.meter.Close()
	default:
		state.logger.Debug("meter@exchanging stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (a *MeterActor) getMeterInfo() (*domain.GetMeterInfoResponse, error) {
	address, err := a.meter.GetAddress(pzem004t.BoundedBy(a.readTimeout))
	if err != nil {
		a.logger.Error("read address failed", zap.Error(err))
		return nil, err
	}
	threshold, err := a.meter.GetAlarmThreshold(pzem004t.BoundedBy(a.readTimeout))
	if err != nil {
		a.logger.Error("read alarm threshold failed", zap.Error(err))
		return nil, err
	}
	return &domain.GetMeterInfoResponse{
		Meter: &domain.MeterInfo{
			Address:            address,
			AlarmThresholdWatt: threshold,
		},
	}, nil
}

func (a *MeterActor) getMeasurements() (*domain.GetMeasurementsResponse, error) {
	var m pzem004t.Measurement
	err := a.meter.ReadMeasurements(&m, pzem004t.BoundedBy(a.readTimeout))
	if err != nil {
		a.logger.Error("read measurements failed", zap.Error(err))
		return nil, err
	}
	return &domain.GetMeasurementsResponse{
		Measurement: &m,
	}, nil
}

func (a *MeterActor) getAlarmThreshold() (*domain.GetAlarmThresholdResponse, error) {
	threshold, err := a.meter.GetAlarmThreshold(pzem004t.BoundedBy(a.readTimeout))
	if err != nil {
		a.logger.Error("read alarm threshold failed", zap.Error(err))
		return nil, err
	}
	return &domain.GetAlarmThresholdResponse{
		ThresholdWatt: threshold,
	}, nil
}

func (a *MeterActor) setAlarmThreshold(watts uint16) (*domain.SetAlarmThresholdResponse, error) {
	err := a.meter.SetAlarmThreshold(watts, pzem004t.BoundedBy(a.readTimeout))
	if err != nil {
		a.logger.Error("write alarm threshold failed", zap.Error(err))
		return nil, err
	}
	return &domain.SetAlarmThresholdResponse{
		ThresholdWatt: watts,
	}, nil
}

func (a *MeterActor) setMeterAddress(address uint8) (*domain.SetMeterAddressResponse, error) {
	err := a.meter.SetAddress(address, pzem004t.BoundedBy(a.readTimeout))
	if err != nil {
		a.logger.Error("write address failed", zap.Error(err))
		return nil, err
	}
	return &domain.SetMeterAddressResponse{
		Address: address,
	}, nil
}

func (a *MeterActor) resetEnergy() (*domain.ResetEnergyResponse, error) {
	if err := a.meter.ResetEnergy(pzem004t.BoundedBy(a.readTimeout)); err != nil {
		a.logger.Error("energy reset failed", zap.Error(err))
		return nil, err
	}
	return &domain.ResetEnergyResponse{}, nil
}
