package actor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/berfenger/pzem2mqtt/internal/config"
	"github.com/berfenger/pzem2mqtt/internal/core/domain"
	"github.com/berfenger/pzem2mqtt/internal/core/events"
	. "github.com/berfenger/pzem2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/asynkron/protoactor-go/scheduler"
	"github.com/reugn/go-quartz/job"
	"github.com/reugn/go-quartz/quartz"
	"go.uber.org/zap"
)

const (
	pollRequestTimeout    = 1 * time.Second
	commandRequestTimeout = 2 * time.Second
)

// MonitorActor drives the meter. It polls measurements on a timer,
// refreshes the alarm threshold every few ticks, executes commands and
// turns everything into events on the event stream.
type MonitorActor struct {
	ActorWithStates
	scheduler   *scheduler.TimerScheduler
	stash       *Stash
	meterActor  *actor.PID
	config      *config.Config
	eventStream *eventstream.EventStream
	cronSched   quartz.Scheduler

	currentParamsCount uint
	paramsCount        uint
	thresholdWatt      uint16

	logger *zap.Logger
}

type monitorTick struct {
}

type energyResetTick struct {
}

func NewMonitorActor(config *config.Config, meterActor *actor.PID, eventStream *eventstream.EventStream, logger *zap.Logger) *MonitorActor {
	act := &MonitorActor{
		config:             config,
		meterActor:         meterActor,
		stash:              &Stash{},
		logger:             ActorLogger(domain.ACTOR_ID_MONITOR, logger),
		eventStream:        eventStream,
		currentParamsCount: config.Monitor.ParamsRefreshTicks,
		paramsCount:        config.Monitor.ParamsRefreshTicks,
		ActorWithStates: ActorWithStates{
			Behavior: actor.NewBehavior(),
		},
	}
	act.Become(MonStartingState{
		actor: act,
	})
	return act
}

func (state *MonitorActor) Receive(context actor.Context) {
	state.Behavior.Receive(context)
}

// Starting state

type MonStartingState struct {
	ActorState
	actor *MonitorActor
}

func (state MonStartingState) Name() string {
	return "starting"
}

func (state MonStartingState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.actor.logger.Debug("monitor@starting started")

		state.actor.scheduler = scheduler.NewTimerScheduler(ctx)
		if state.actor.config.Monitor.PollIntervalMillis > 0 {
			state.actor.scheduler.RequestOnce(state.actor.config.Monitor.PollInterval(), ctx.Self(), monitorTick{})
		}

		ReenterWithRecover(ctx, ctx.RequestFuture(state.actor.meterActor, domain.GetMeterInfoRequest{}, pollRequestTimeout), func(err error) any {
			return domain.GetMeterInfoResponse{ActorResponseMixIn: domain.ErrResponse(err)}
		})
		state.actor.Become(MonWaitingInfoState{
			actor: state.actor,
		})
	case *actor.Restarting:
	default:
		state.actor.logger.Debug("monitor@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.actor.stash.Stash(ctx, msg)
	}
}

// Waiting info state

type MonWaitingInfoState struct {
	ActorState
	actor *MonitorActor
}

func (state MonWaitingInfoState) Name() string {
	return "waitingInfo"
}

func (state MonWaitingInfoState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.GetMeterInfoResponse:
		if msg.HasResponseError() {
			state.actor.logger.Error("monitor@waitingInfo GetMeterInfoResponse error", zap.Error(msg.GetResponseError()))
			panic(msg.GetResponseError())
		}
		state.actor.logger.Debug("monitor@waitingInfo GetMeterInfoResponse")
		state.actor.logger.Sugar().Infof("meter found at address 0x%02X, alarm threshold %d W", msg.Meter.Address, msg.Meter.AlarmThresholdWatt)
		state.actor.thresholdWatt = msg.Meter.AlarmThresholdWatt

		if state.actor.config.Monitor.EnergyResetCron != "" {
			if err := state.actor.startEnergyResetCron(ctx); err != nil {
				state.actor.logger.Error("monitor@waitingInfo energy reset cron error", zap.Error(err))
				panic(err)
			}
		}

		state.actor.Become(MonPollingState{
			actor: state.actor,
		}.OnEnter(ctx))
		state.actor.stash.UnstashAll(ctx)
	default:
		state.actor.logger.Debug("monitor@waitingInfo stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.actor.stash.Stash(ctx, msg)
	}
}

// Polling state

type MonPollingState struct {
	ActorState
	actor *MonitorActor
}

func (state MonPollingState) Name() string {
	return "polling"
}

func (state MonPollingState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.actor.logger.Debug("monitor@polling ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_MONITOR,
			Healthy: true,
			State:   state.Name(),
		})
	case monitorTick:
		state.actor.logger.Debug("monitor@polling monitorTick")
		// read input registers
		ReenterWithRecover(ctx, ctx.RequestFuture(state.actor.meterActor, domain.GetMeasurementsRequest{}, pollRequestTimeout), func(err error) any {
			return domain.GetMeasurementsResponse{ActorResponseMixIn: domain.ErrResponse(err)}
		})
		// refresh alarm threshold every paramsCount ticks
		if state.actor.currentParamsCount == state.actor.paramsCount {
			state.actor.currentParamsCount = 0
			ReenterWithRecover(ctx, ctx.RequestFuture(state.actor.meterActor, domain.GetAlarmThresholdRequest{}, pollRequestTimeout), func(err error) any {
				return domain.GetAlarmThresholdResponse{ActorResponseMixIn: domain.ErrResponse(err)}
			})
		} else {
			state.actor.currentParamsCount++
		}

		// schedule next tick
		state.actor.scheduler.RequestOnce(state.actor.config.Monitor.PollInterval(), ctx.Self(), monitorTick{})
		state.actor.BecomeStacked(MonWaitingMeasurementsState{
			actor: state.actor,
		})
	case energyResetTick:
		// scheduled energy counter reset
		state.actor.logger.Debug("monitor@polling energyResetTick")
		state.actor.BecomeStacked(MonAwaitEnergyResetResponseState{
			actor: state.actor,
		}.OnEnterAction(ctx))
	case domain.GetAlarmThresholdResponse:
		state.actor.logger.Debug("monitor@polling GetAlarmThresholdResponse")
		if !msg.HasResponseError() {
			state.actor.setAlarmThreshold(msg.ThresholdWatt)
		}
	case domain.MeterCommand:
		switch cmd := msg.(type) {
		case domain.MeterResetEnergyRequest:
			state.actor.logger.Sugar().Debugf("monitor@polling cmd resetEnergy %t", cmd.Enable)
			if cmd.Enable {
				state.actor.BecomeStacked(MonAwaitEnergyResetResponseState{
					actor: state.actor,
				}.OnEnterAction(ctx))
			} else {
				state.actor.updateEnergyResetSwitchState(false)
			}
		case domain.MeterSetAlarmThresholdRequest:
			state.actor.logger.Sugar().Debugf("monitor@polling cmd setAlarmThreshold %d", cmd.ThresholdWatt)
			state.actor.BecomeStacked(MonAwaitSetThresholdResponseState{
				actor: state.actor,
			}.OnEnterAction(ctx, cmd.ThresholdWatt))
		}
	case domain.ResetEnergyResponse:
		// redelivered after the await state exits
		ctx.SetReceiveTimeout(0)
		if msg.HasResponseError() {
			state.actor.logger.Error("monitor@polling ResetEnergyResponse error", zap.Error(msg.GetResponseError()))
		}
		state.actor.updateEnergyResetSwitchState(false)
	case domain.SetAlarmThresholdResponse:
		// redelivered after the await state exits
		ctx.SetReceiveTimeout(0)
		if msg.HasResponseError() {
			state.actor.logger.Error("monitor@polling SetAlarmThresholdResponse error", zap.Error(msg.GetResponseError()))
		} else {
			state.actor.setAlarmThreshold(msg.ThresholdWatt)
		}
	case *actor.Restarting:
		state.actor.stopCron()
	case *actor.Stopping:
		state.actor.stopCron()
	default:
		state.actor.logger.Debug("monitor@polling ignore", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state MonPollingState) OnEnter(ctx actor.Context) MonPollingState {
	state.actor.updateEnergyResetSwitchState(false)
	state.actor.updateAlarmThreshold(state.actor.thresholdWatt)
	return state
}

// Waiting measurements state

type MonWaitingMeasurementsState struct {
	ActorState
	actor *MonitorActor
}

func (state MonWaitingMeasurementsState) Name() string {
	return "waitingMeasurements"
}

func (state MonWaitingMeasurementsState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.GetMeasurementsResponse:
		if msg.HasResponseError() {
			state.actor.logger.Error("monitor@waitingMeasurements GetMeasurementsResponse error", zap.Error(msg.GetResponseError()))
			state.actor.UnbecomeStacked()
			state.actor.stash.UnstashAll(ctx)
			return
		}
		state.actor.logger.Debug("monitor@waitingMeasurements GetMeasurementsResponse")
		if msg.Measurement != nil {
			evs := events.MeasurementToUpdateEvents(msg.Measurement)
			for _, ev := range evs {
				state.actor.eventStream.Publish(ev)
			}
		}
		state.actor.UnbecomeStacked()
		state.actor.stash.UnstashAll(ctx)
	case *actor.Restarting:
		state.actor.stopCron()
	case *actor.Stopping:
		state.actor.stopCron()
	default:
		state.actor.logger.Debug("monitor@waitingMeasurements stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.actor.stash.Stash(ctx, msg)
	}
}

// Await energy reset response state

type MonAwaitEnergyResetResponseState struct {
	ActorState
	actor *MonitorActor
}

func (state MonAwaitEnergyResetResponseState) Name() string {
	return "awaitEnergyReset"
}

func (state MonAwaitEnergyResetResponseState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ResetEnergyResponse:
		ctx.SetReceiveTimeout(0)
		if msg.HasResponseError() {
			state.actor.logger.Error("monitor@awaitEnergyReset ResetEnergyResponse error", zap.Error(msg.GetResponseError()))
		} else {
			state.actor.logger.Debug("monitor@awaitEnergyReset ResetEnergyResponse", zap.Any("response", msg))
		}
		ctx.RequestWithCustomSender(ctx.Self(), msg, ctx.Sender())
		state.actor.UnbecomeStacked()
		state.actor.stash.UnstashAll(ctx)
	case *actor.ReceiveTimeout:
		ctx.SetReceiveTimeout(0)
		state.actor.logger.Debug("monitor@awaitEnergyReset ReceiveTimeout")
		ctx.RequestWithCustomSender(ctx.Self(), domain.ResetEnergyResponse{
			ActorResponseMixIn: domain.ErrResponse(errors.New("receive timeout")),
		}, ctx.Sender())
		state.actor.UnbecomeStacked()
		state.actor.stash.UnstashAll(ctx)
	case *actor.Restarting:
		state.actor.stopCron()
	case *actor.Stopping:
		state.actor.stopCron()
	default:
		state.actor.logger.Debug("monitor@awaitEnergyReset stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.actor.stash.Stash(ctx, msg)
	}
}

func (state MonAwaitEnergyResetResponseState) OnEnterAction(ctx actor.Context) MonAwaitEnergyResetResponseState {
	state.actor.updateEnergyResetSwitchState(true)
	ReenterWithRecover(ctx, ctx.RequestFuture(state.actor.meterActor,
		domain.ResetEnergyRequest{}, commandRequestTimeout),
		func(err error) any {
			return domain.ResetEnergyResponse{ActorResponseMixIn: domain.ErrResponse(err)}
		})
	ctx.SetReceiveTimeout(commandRequestTimeout)
	return state
}

// Await set threshold response state

type MonAwaitSetThresholdResponseState struct {
	ActorState
	actor *MonitorActor
}

func (state MonAwaitSetThresholdResponseState) Name() string {
	return "awaitSetThreshold"
}

func (state MonAwaitSetThresholdResponseState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.SetAlarmThresholdResponse:
		ctx.SetReceiveTimeout(0)
		if msg.HasResponseError() {
			state.actor.logger.Error("monitor@awaitSetThreshold SetAlarmThresholdResponse error", zap.Error(msg.GetResponseError()))
		} else {
			state.actor.logger.Debug("monitor@awaitSetThreshold SetAlarmThresholdResponse", zap.Any("response", msg))
		}
		ctx.RequestWithCustomSender(ctx.Self(), msg, ctx.Sender())
		state.actor.UnbecomeStacked()
		state.actor.stash.UnstashAll(ctx)
	case *actor.ReceiveTimeout:
		ctx.SetReceiveTimeout(0)
		state.actor.logger.Debug("monitor@awaitSetThreshold ReceiveTimeout")
		ctx.RequestWithCustomSender(ctx.Self(), domain.SetAlarmThresholdResponse{
			ActorResponseMixIn: domain.ErrResponse(errors.New("receive timeout")),
		}, ctx.Sender())
		state.actor.UnbecomeStacked()
		state.actor.stash.UnstashAll(ctx)
	case *actor.Restarting:
		state.actor.stopCron()
	case *actor.Stopping:
		state.actor.stopCron()
	default:
		state.actor.logger.Debug("monitor@awaitSetThreshold stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.actor.stash.Stash(ctx, msg)
	}
}

func (state MonAwaitSetThresholdResponseState) OnEnterAction(ctx actor.Context, thresholdWatt uint16) MonAwaitSetThresholdResponseState {
	ReenterWithRecover(ctx, ctx.RequestFuture(state.actor.meterActor,
		domain.SetAlarmThresholdRequest{ThresholdWatt: thresholdWatt}, commandRequestTimeout),
		func(err error) any {
			return domain.SetAlarmThresholdResponse{ActorResponseMixIn: domain.ErrResponse(err)}
		})
	ctx.SetReceiveTimeout(commandRequestTimeout)
	return state
}

// Energy reset cron

func (state *MonitorActor) startEnergyResetCron(ctx actor.Context) error {
	trigger, err := quartz.NewCronTrigger(state.config.Monitor.EnergyResetCron)
	if err != nil {
		return err
	}
	sched := quartz.NewStdScheduler()
	system := ctx.ActorSystem()
	self := ctx.Self()
	resetJob := job.NewFunctionJob(func(_ context.Context) (bool, error) {
		system.Root.Send(self, energyResetTick{})
		return true, nil
	})
	sched.Start(context.Background())
	if err := sched.ScheduleJob(quartz.NewJobDetail(resetJob, quartz.NewJobKey("energy_reset")), trigger); err != nil {
		sched.Stop()
		return err
	}
	state.cronSched = sched
	state.logger.Sugar().Infof("energy reset scheduled with cron %s", state.config.Monitor.EnergyResetCron)
	return nil
}

func (state *MonitorActor) stopCron() {
	if state.cronSched != nil {
		state.cronSched.Stop()
		state.cronSched = nil
	}
}

// Event stream helpers

func (state *MonitorActor) setAlarmThreshold(thresholdWatt uint16) {
	state.thresholdWatt = thresholdWatt
	state.updateAlarmThreshold(thresholdWatt)
}

func (state *MonitorActor) updateEnergyResetSwitchState(switchState bool) {
	event := events.EnergyResetSwitchUpdateEvents(switchState)
	state.eventStream.Publish(event)
}

func (state *MonitorActor) updateAlarmThreshold(thresholdWatt uint16) {
	events := events.AlarmThresholdUpdateEvents(thresholdWatt)
	for _, ev := range events {
		state.eventStream.Publish(ev)
	}
}
