package actorutil

import (
	"github.com/asynkron/protoactor-go/actor"
)

// Stash parks messages an actor cannot handle in its current state so they
// can be redelivered later with their original sender intact.
type Stash struct {
	pending []pendingMessage
}

type pendingMessage struct {
	msg    any
	sender *actor.PID
}

func (s *Stash) Stash(ctx actor.Context, msg any) {
	s.pending = append(s.pending, pendingMessage{msg: msg, sender: ctx.Sender()})
}

// UnstashAll requeues every parked message in arrival order.
func (s *Stash) UnstashAll(ctx actor.Context) {
	pending := s.pending
	s.pending = nil
	for _, p := range pending {
		ctx.RequestWithCustomSender(ctx.Self(), p.msg, p.sender)
	}
}

// UnstashOldest requeues only the first parked message. Used by states that
// admit one request at a time.
func (s *Stash) UnstashOldest(ctx actor.Context) {
	if len(s.pending) == 0 {
		return
	}
	first := s.pending[0]
	s.pending = s.pending[1:]
	ctx.RequestWithCustomSender(ctx.Self(), first.msg, first.sender)
}
