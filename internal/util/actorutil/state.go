package actorutil

import (
	"github.com/asynkron/protoactor-go/actor"
)

// ActorState names one state of a state-machine actor. Name shows up in
// logs and health reports.
type ActorState interface {
	Name() string
	Receive(actor.Context)
}

// ActorWithStates adapts protoactor's Behavior stack to named states.
type ActorWithStates struct {
	Behavior actor.Behavior
}

func (a *ActorWithStates) Become(state ActorState) {
	a.Behavior.Become(state.Receive)
}

func (a *ActorWithStates) BecomeStacked(state ActorState) {
	a.Behavior.BecomeStacked(state.Receive)
}

func (a *ActorWithStates) UnbecomeStacked() {
	a.Behavior.UnbecomeStacked()
}
