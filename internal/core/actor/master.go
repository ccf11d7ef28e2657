package actor

import (
	"errors"
	"fmt"
	"time"

	adactor "github.com/berfenger/pzem2mqtt/internal/adapter/actor"
	"github.com/berfenger/pzem2mqtt/internal/config"
	"github.com/berfenger/pzem2mqtt/internal/core/domain"
	. "github.com/berfenger/pzem2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

const (
	healthProbeTimeout = 500 * time.Millisecond
	healthRoundTimeout = 1 * time.Second
)

type MQTTActorProvider func(*eventstream.EventStream) *adactor.MQTTActor

type MeterActorProvider func() *adactor.MeterActor

// MasterOfPuppetsActor supervises the actor tree: the meter and mqtt
// adapters, the monitor that drives them, and optionally the discovery
// announcer. It also answers aggregated health requests.
type MasterOfPuppetsActor struct {
	config   config.Config
	behavior actor.Behavior
	stash    *Stash

	rollCall           *healthRollCall
	eventStream        *eventstream.EventStream
	meterActor         *actor.PID
	mqttActor          *actor.PID
	monitorActor       *actor.PID
	meterActorProvider MeterActorProvider
	mqttActorProvider  MQTTActorProvider
	logger             *zap.Logger
}

type namedPID struct {
	id  string
	pid *actor.PID
}

func NewMasterOfPuppetsActor(config config.Config, meterActorProvider MeterActorProvider, mqttActorProvider MQTTActorProvider, logger *zap.Logger) *MasterOfPuppetsActor {
	act := &MasterOfPuppetsActor{
		config:             config,
		behavior:           actor.NewBehavior(),
		stash:              &Stash{},
		logger:             ActorLogger(domain.ACTOR_ID_MASTER, logger),
		eventStream:        &eventstream.EventStream{},
		meterActorProvider: meterActorProvider,
		mqttActorProvider:  mqttActorProvider,
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *MasterOfPuppetsActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MasterOfPuppetsActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("master@starting started")

		// adapters restart with backoff, they face external resources
		backoff := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)
		state.meterActor = state.spawnChild(ctx, domain.ACTOR_ID_METER, func() actor.Actor {
			return state.meterActorProvider()
		}, backoff)
		state.mqttActor = state.spawnChild(ctx, domain.ACTOR_ID_MQTT, func() actor.Actor {
			return state.mqttActorProvider(state.eventStream)
		}, backoff)

		state.monitorActor = state.spawnChild(ctx, domain.ACTOR_ID_MONITOR, func() actor.Actor {
			return NewMonitorActor(&state.config, state.meterActor, state.eventStream, state.logger)
		}, actor.NewAllForOneStrategy(1, 10*time.Second, state.restartDecider))

		if state.config.MQTT.HADiscoveryEnable {
			state.spawnChild(ctx, domain.ACTOR_ID_HA_DISCOVERY, func() actor.Actor {
				return NewHADiscoveryActor(&state.config, state.meterActor, state.mqttActor, state.logger)
			}, actor.NewOneForOneStrategy(1, 10*time.Second, state.restartDecider))
		}

		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("master@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("master@default ActorHealthRequest")
		state.rollCall = newHealthRollCall(ctx.Sender())
		for _, child := range []namedPID{
			{domain.ACTOR_ID_METER, state.meterActor},
			{domain.ACTOR_ID_MQTT, state.mqttActor},
			{domain.ACTOR_ID_MONITOR, state.monitorActor},
		} {
			state.rollCall.expect(child.id)
			id := child.id
			ReenterWithRecover(ctx, ctx.RequestFuture(child.pid, domain.ActorHealthRequest{}, healthProbeTimeout), func(error) any {
				return domain.ActorHealthResponse{Id: id, Healthy: false}
			})
		}
		ctx.SetReceiveTimeout(healthRoundTimeout)
		state.behavior.BecomeStacked(state.HealthCheckReceive)
	case adactor.ParsedCommand:
		state.logger.Debug("master@default parsedCommand", zap.Any("command", msg.Command))
		if msg.Command == nil {
			return
		}
		cmd, err := ParsedMQTTCommandToCommand(*msg.Command)
		if err != nil {
			state.logger.Warn("master@default unusable command", zap.Error(err))
			return
		}
		if meterCmd, ok := cmd.(domain.MeterCommand); ok {
			ctx.Send(state.monitorActor, meterCmd)
		}
	case *actor.ReceiveTimeout:
		// stray timeout from a finished health check
		ctx.SetReceiveTimeout(0)
	case *actor.Terminated:
		// the meter is not optional, give up if it dies on boot
		if msg.Who.Id == fmt.Sprintf("%s/%s", domain.ACTOR_ID_MASTER, domain.ACTOR_ID_METER) {
			state.logger.Error("master@default meter terminated")
			panic(errors.New("meter terminated"))
		}
	default:
		state.logger.Debug("master@default stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) HealthCheckReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.ReceiveTimeout:
		// whoever did not answer counts as unhealthy
		state.finishRollCall(ctx)
	case domain.ActorHealthResponse:
		state.logger.Debug("master@healthcheck ActorHealthResponse", zap.String("child", msg.Id), zap.Bool("healthy", msg.Healthy))
		state.rollCall.record(msg)
		if state.rollCall.done() {
			state.finishRollCall(ctx)
		}
	default:
		state.logger.Debug("master@healthcheck stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) finishRollCall(ctx actor.Context) {
	ctx.SetReceiveTimeout(0)
	state.rollCall.respond(ctx)
	state.rollCall = nil
	state.behavior.UnbecomeStacked()
	state.stash.UnstashAll(ctx)
}

func (state *MasterOfPuppetsActor) spawnChild(ctx actor.Context, name string, producer actor.Producer, supervisor actor.SupervisorStrategy) *actor.PID {
	props := actor.PropsFromProducer(producer, actor.WithSupervisor(supervisor))
	pid, err := ctx.SpawnNamed(props, name)
	if err != nil {
		panic(err)
	}
	return pid
}

func (state *MasterOfPuppetsActor) restartDecider(reason interface{}) actor.Directive {
	state.logger.Warn("master: child failure", zap.Any("reason", reason))
	return actor.RestartDirective
}

// healthRollCall tracks one round of child health probes.
type healthRollCall struct {
	waiting   map[string]bool
	unhealthy int
	respondTo *actor.PID
}

func newHealthRollCall(respondTo *actor.PID) *healthRollCall {
	return &healthRollCall{
		waiting:   map[string]bool{},
		respondTo: respondTo,
	}
}

func (r *healthRollCall) expect(id string) {
	r.waiting[id] = true
}

func (r *healthRollCall) record(resp domain.ActorHealthResponse) {
	if !r.waiting[resp.Id] {
		return
	}
	delete(r.waiting, resp.Id)
	if !resp.Healthy {
		r.unhealthy++
	}
}

func (r *healthRollCall) done() bool {
	return len(r.waiting) == 0
}

func (r *healthRollCall) respond(ctx actor.Context) {
	if r.respondTo == nil {
		return
	}
	ctx.Send(r.respondTo, domain.ActorHealthResponse{
		Id:      domain.ACTOR_ID_MASTER,
		Healthy: r.done() && r.unhealthy == 0,
	})
}
