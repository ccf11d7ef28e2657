package actor

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/berfenger/pzem2mqtt/internal/config"
	"github.com/berfenger/pzem2mqtt/internal/core/domain"
	"github.com/berfenger/pzem2mqtt/internal/mqtt"
	"github.com/berfenger/pzem2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

const (
	connectTimeout   = 10 * time.Second
	subscribeTimeout = 1 * time.Second
	publishTimeout   = 5 * time.Second
	stateTimeout     = 500 * time.Millisecond
)

// MQTTActor owns the broker connection. It bridges the actor system event
// stream to state topics and turns command topic traffic into typed
// commands for the parent.
type MQTTActor struct {
	cfg            config.MQTTConfig
	behavior       actor.Behavior
	stash          *actorutil.Stash
	client         *mqtt.MQTTClient
	eventStream    *eventstream.EventStream
	eventStreamSub *eventstream.Subscription
	logger         *zap.Logger
}

// ParsedCommand wraps a command received over MQTT on its way to the
// master actor.
type ParsedCommand struct {
	Command *mqtt.ParsedMQTTCommand
}

type onEventStreamMessage struct {
	event any
}

type brokerConnected struct{}

type commandSubscribed struct{}

type connectionLost struct {
	err error
}

type publishResult struct {
	replyTo *actor.PID
	resp    domain.ActorResponse
	err     error
}

type rawMessage struct {
	topic   string
	payload string
	retain  bool
}

func NewMQTTActor(cfg config.MQTTConfig, eventStream *eventstream.EventStream, logger *zap.Logger) *MQTTActor {
	act := &MQTTActor{
		cfg:         cfg,
		behavior:    actor.NewBehavior(),
		stash:       &actorutil.Stash{},
		logger:      actorutil.ActorLogger(domain.ACTOR_ID_MQTT, logger),
		eventStream: eventStream,
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *MQTTActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MQTTActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("mqtt@starting started")

		state.client = mqtt.CreateMQTTClient(state.cfg, mqtt.OptsFromConfig(state.cfg), nil,
			func(_ pahomqtt.Client, err error) {
				ctx.Send(ctx.Self(), connectionLost{err: err})
			})
		state.client.Connect(func(err error) {
			if err != nil {
				ctx.Send(ctx.Self(), connectionLost{err: err})
				return
			}
			ctx.Send(ctx.Self(), brokerConnected{})
		}, connectTimeout)

	case brokerConnected:
		state.logger.Debug("mqtt@starting connected")

		// mark the bridge online, replacing a stale will payload
		state.client.Publish(state.client.BridgeStateTopic(), mqtt.MQTT_PAYLOAD_ONLINE, 0, true, func(error) {}, stateTimeout)

		// sensor updates arrive through the actor system event stream
		state.eventStreamSub = state.eventStream.Subscribe(func(event any) {
			ctx.Send(ctx.Self(), onEventStreamMessage{event: event})
		})

		state.client.SubscribeToCommandTopic(func(_ pahomqtt.Client, m pahomqtt.Message) {
			if cmd, err := state.client.ParseMQTTCommand(m); err == nil && cmd != nil {
				ctx.Send(ctx.Self(), ParsedCommand{Command: cmd})
			}
		}, func(err error) {
			if err != nil {
				ctx.Send(ctx.Self(), connectionLost{err: err})
				return
			}
			ctx.Send(ctx.Self(), commandSubscribed{})
		}, subscribeTimeout)

	case commandSubscribed:
		state.logger.Debug("mqtt@starting subscribed")
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case connectionLost:
		// let the supervisor restart us with a fresh client
		state.logger.Error("mqtt@starting connection lost", zap.Error(msg.err))
		panic(msg.err)
	case *actor.Restarting:
		state.stop()
	default:
		state.logger.Debug("mqtt@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MQTTActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Restarting:
		state.stop()
	case *actor.Stopping:
		state.stop()
	case domain.ActorHealthRequest:
		state.logger.Debug("mqtt@default ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_MQTT,
			Healthy: true,
			State:   "idle",
		})
	case ParsedCommand:
		// commands go through the parent so the monitor keeps one entry point
		state.logger.Debug("mqtt@default parsedCommand", zap.Any("command", msg.Command))
		ctx.Send(ctx.Parent(), msg)
	case onEventStreamMessage:
		if event, ok := msg.event.(domain.SensorUpdateEvent); ok {
			state.publishEvent(ctx, event, false, nil)
		}
	case domain.PublishMessageRequest:
		state.logger.Debug("mqtt@default PublishMessageRequest", zap.String("topic", msg.Topic))
		state.publishMessage(ctx, msg, actorutil.ReplyTarget(ctx, msg))
	case domain.PublishSensorUpdateRequest:
		state.logger.Debug("mqtt@default PublishSensorUpdateRequest", zap.String("type", fmt.Sprintf("%T", msg.Event)))
		state.publishEvent(ctx, msg.Event, msg.Retain, actorutil.ReplyTarget(ctx, msg))
	case domain.PublishDiscoveryRequest:
		state.logger.Debug("mqtt@default PublishDiscoveryRequest")
		if err := state.publishDiscovery(ctx, msg); err != nil {
			state.logger.Error("mqtt@default discovery publish failed", zap.Error(err))
		}
	case connectionLost:
		state.logger.Error("mqtt@default connection lost", zap.Error(msg.err))
		panic(msg.err)
	default:
		state.logger.Debug("mqtt@default ignore", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

// PublishingReceive holds the actor between a publish and its broker ack.
// Everything else is stashed so publishes keep their order.
func (state *MQTTActor) PublishingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case publishResult:
		if msg.err != nil {
			state.logger.Error("mqtt@publishing publish failed", zap.Error(msg.err))
		}
		if msg.replyTo != nil {
			ctx.Send(msg.replyTo, msg.resp)
		}
		state.behavior.UnbecomeStacked()
		state.stash.UnstashOldest(ctx)
	default:
		state.logger.Debug("mqtt@publishing stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MQTTActor) publishEvent(ctx actor.Context, event domain.SensorUpdateEvent, retain bool, replyTo *actor.PID) {
	m, ok := state.sensorMessage(event)
	if !ok {
		return
	}
	state.logger.Sugar().Debugf("mqtt@publish %s => %s", m.topic, m.payload)
	state.client.Publish(m.topic, m.payload, 1, m.retain || retain, func(err error) {
		ctx.Send(ctx.Self(), publishResult{
			replyTo: replyTo,
			resp:    domain.PublishSensorUpdateResponse{ActorResponseMixIn: domain.ErrResponse(err)},
			err:     err,
		})
	}, publishTimeout)
	state.behavior.BecomeStacked(state.PublishingReceive)
}

func (state *MQTTActor) publishMessage(ctx actor.Context, msg domain.PublishMessageRequest, replyTo *actor.PID) {
	state.logger.Sugar().Debugf("mqtt@publish %s => %s", msg.Topic, msg.Payload)
	state.client.Publish(msg.Topic, msg.Payload, 1, msg.Retain, func(err error) {
		ctx.Send(ctx.Self(), publishResult{
			replyTo: replyTo,
			resp:    domain.PublishMessageResponse{ActorResponseMixIn: domain.ErrResponse(err)},
			err:     err,
		})
	}, publishTimeout)
	state.behavior.BecomeStacked(state.PublishingReceive)
}

// sensorMessage maps an update event to the topic and payload it is
// published as. Events the bridge does not expose map to ok=false.
func (state *MQTTActor) sensorMessage(event domain.SensorUpdateEvent) (rawMessage, bool) {
	m := rawMessage{retain: event.Retained()}
	switch ev := event.(type) {
	case domain.FloatSensorUpdateEvent:
		m.topic = state.client.SensorStateTopic(ev.SensorId())
		m.payload = formatFloat(ev.Value, ev.Decimals)
	case domain.BinarySensorUpdateEvent:
		m.topic = state.client.BinarySensorStateTopic(ev.SensorId())
		m.payload = boolPayload(ev.Value)
	case domain.SwitchSensorUpdateEvent:
		m.topic = state.client.SwitchStateTopic(ev.SensorId())
		m.payload = boolPayload(ev.Value)
	case domain.InputNumberSensorUpdateEvent:
		m.topic = state.client.InputNumberStateTopic(ev.SensorId())
		m.payload = formatFloat(ev.Value, ev.Decimals)
	case domain.BridgeStateUpdateEvent:
		m.topic = state.client.BridgeStateTopic()
		if ev.Value {
			m.payload = mqtt.MQTT_PAYLOAD_ONLINE
		} else {
			m.payload = mqtt.MQTT_PAYLOAD_OFFLINE
		}
	default:
		return rawMessage{}, false
	}
	return m, true
}

func (state *MQTTActor) publishDiscovery(ctx actor.Context, msg domain.PublishDiscoveryRequest) error {
	type discoveryEntry struct {
		topic  string
		config mqtt.HADiscoveryConfig
	}
	var entries []discoveryEntry
	for _, s := range msg.Sensors {
		entries = append(entries, discoveryEntry{state.client.HADiscoverySensorTopic(s), mqtt.SensorDiscoveryConfig(state.client, s)})
	}
	for _, sw := range msg.Switches {
		entries = append(entries, discoveryEntry{state.client.HADiscoverySwitchTopic(sw), mqtt.SwitchDiscoveryConfig(state.client, sw)})
	}
	for _, n := range msg.InputNumbers {
		entries = append(entries, discoveryEntry{state.client.HADiscoveryInputNumberTopic(n), mqtt.InputNumberDiscoveryConfig(state.client, n)})
	}
	for _, e := range entries {
		payload, err := json.Marshal(e.config)
		if err != nil {
			return err
		}
		state.client.Publish(e.topic, payload, 0, true, func(error) {}, subscribeTimeout)
	}
	return nil
}

func (state *MQTTActor) stop() {
	state.logger.Debug("mqtt: disconnect")
	if state.client != nil {
		state.client.Publish(state.client.BridgeStateTopic(), mqtt.MQTT_PAYLOAD_OFFLINE, 0, true, func(error) {}, stateTimeout)
		state.client.Disconnect(stateTimeout)
	}
	if state.eventStreamSub != nil {
		state.eventStream.Unsubscribe(state.eventStreamSub)
		state.eventStreamSub = nil
	}
}

func formatFloat(value float64, decimals uint) string {
	return strconv.FormatFloat(value, 'f', int(decimals), 64)
}

func boolPayload(value bool) string {
	if value {
		return mqtt.MQTT_PAYLOAD_ON
	}
	return mqtt.MQTT_PAYLOAD_OFF
}

// NewTestMQTTActor builds an MQTTActor that never talks to a broker. It
// acknowledges publish requests so actor wiring can be tested without one.
func NewTestMQTTActor(cfg config.MQTTConfig, eventStream *eventstream.EventStream, logger *zap.Logger) *MQTTActor {
	act := &MQTTActor{
		cfg:         cfg,
		behavior:    actor.NewBehavior(),
		stash:       &actorutil.Stash{},
		logger:      actorutil.ActorLogger(domain.ACTOR_ID_MQTT, logger),
		eventStream: eventStream,
	}
	act.behavior.Become(act.DummyReceive)
	return act
}

func (state *MQTTActor) DummyReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.client = mqtt.CreateMQTTClient(state.cfg, mqtt.OptsFromConfig(state.cfg), nil, nil)
	case domain.ActorHealthRequest:
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_MQTT,
			Healthy: true,
			State:   "idle",
		})
	case domain.PublishSensorUpdateRequest:
		if msg.ReplyToRef != nil {
			ctx.Respond(domain.PublishSensorUpdateResponse{})
		}
	case domain.PublishMessageRequest:
		if msg.ReplyToRef != nil {
			ctx.Respond(domain.PublishMessageResponse{})
		}
	}
}
