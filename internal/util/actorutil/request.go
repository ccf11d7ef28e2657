package actorutil

import (
	"github.com/berfenger/pzem2mqtt/internal/core/domain"

	"github.com/asynkron/protoactor-go/actor"
)

// ReplyTarget resolves where the response to req must go: the explicit
// reply-to ref when the request carries one, the message sender otherwise.
func ReplyTarget(ctx actor.Context, req domain.ActorRequest) *actor.PID {
	if ref := req.ReplyTo(); ref != nil {
		return (*actor.PID)(ref)
	}
	return ctx.Sender()
}
