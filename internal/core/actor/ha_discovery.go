package actor

import (
	"errors"
	"fmt"
	"time"

	"github.com/berfenger/pzem2mqtt/internal/config"
	"github.com/berfenger/pzem2mqtt/internal/core/domain"
	. "github.com/berfenger/pzem2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

const discoveryRequestTimeout = 2 * time.Second

// HADiscoveryActor announces the bridge and the meter to Home Assistant.
// It waits until the meter and mqtt actors are up, reads the meter
// identity and publishes one retained discovery config per entity.
type HADiscoveryActor struct {
	config     *config.Config
	behavior   actor.Behavior
	stash      *Stash
	rollCall   *healthRollCall
	meterActor *actor.PID
	mqttActor  *actor.PID

	logger *zap.Logger
}

func NewHADiscoveryActor(config *config.Config, meterActor *actor.PID, mqttActor *actor.PID, logger *zap.Logger) *HADiscoveryActor {
	act := &HADiscoveryActor{
		config:     config,
		meterActor: meterActor,
		mqttActor:  mqttActor,
		behavior:   actor.NewBehavior(),
		stash:      &Stash{},
		logger:     ActorLogger(domain.ACTOR_ID_HA_DISCOVERY, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *HADiscoveryActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *HADiscoveryActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("hadiscovery@starting started")

		// both peers must be up before announcing anything
		state.rollCall = newHealthRollCall(nil)
		for _, peer := range []namedPID{
			{domain.ACTOR_ID_METER, state.meterActor},
			{domain.ACTOR_ID_MQTT, state.mqttActor},
		} {
			state.rollCall.expect(peer.id)
			id := peer.id
			ReenterWithRecover(ctx, ctx.RequestFuture(peer.pid, domain.ActorHealthRequest{}, discoveryRequestTimeout), func(error) any {
				return domain.ActorHealthResponse{Id: id, Healthy: false}
			})
		}
		state.behavior.Become(state.WaitingHealthyReceive)
	case *actor.Restarting:
	default:
		state.logger.Debug("hadiscovery@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) WaitingHealthyReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthResponse:
		state.logger.Debug("hadiscovery@healthcheck ActorHealthResponse", zap.String("peer", msg.Id), zap.Bool("healthy", msg.Healthy))
		state.rollCall.record(msg)
		if !state.rollCall.done() {
			return
		}
		if state.rollCall.unhealthy > 0 {
			// a restart retries the whole announcement
			panic(errors.New("meter or mqtt actor not healthy"))
		}
		state.rollCall = nil
		ReenterWithRecover(ctx, ctx.RequestFuture(state.meterActor, domain.GetMeterInfoRequest{}, discoveryRequestTimeout), func(err error) any {
			return domain.GetMeterInfoResponse{ActorResponseMixIn: domain.ErrResponse(err)}
		})
		state.behavior.Become(state.WaitingInfoReceive)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("hadiscovery@healthcheck stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) WaitingInfoReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.GetMeterInfoResponse:
		if msg.HasResponseError() {
			panic(msg.GetResponseError())
		}
		state.logger.Debug("hadiscovery@info GetMeterInfoResponse", zap.Any("response", msg))

		ctx.Send(state.mqttActor, state.discoveryRequest(msg.Meter))
		state.behavior.Become(state.DoneReceive)
	default:
		state.logger.Debug("hadiscovery@info ignore", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

// DoneReceive keeps the actor alive after the announcement so a restart
// republishes discovery.
func (state *HADiscoveryActor) DoneReceive(ctx actor.Context) {
	state.logger.Debug("hadiscovery@done ignore", zap.String("type", fmt.Sprintf("%T", ctx.Message())))
}

func (state *HADiscoveryActor) discoveryRequest(info *domain.MeterInfo) domain.PublishDiscoveryRequest {
	baseTopic := state.config.MQTT.BaseTopic

	bridgeDevice := domain.BridgeDevice(baseTopic)
	meterDevice := domain.MeterDevice(baseTopic, info)
	meterDevice.ViaDevice = bridgeDevice.Id

	// only the first entity carries the full device description, the rest
	// reference it by id
	meterSensors := domain.MeterSensors(meterDevice)
	for i := range meterSensors {
		if i > 0 {
			meterSensors[i].Device = domain.IdDevice(meterDevice)
		}
	}

	sensors := domain.BridgeSensors(bridgeDevice)
	sensors = append(sensors, meterSensors...)

	return domain.PublishDiscoveryRequest{
		Sensors:      sensors,
		Switches:     domain.MeterSwitches(meterDevice),
		InputNumbers: domain.MeterInputNumbers(meterDevice, info),
	}
}
