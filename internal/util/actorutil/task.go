package actorutil

import (
	"errors"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/primetalk/goio/io"
)

// TaskResult carries the outcome of an exchange back to the actor that
// started it, along with the PID the response must be forwarded to.
type TaskResult struct {
	Message any
	ReplyTo *actor.PID
}

// RunExchange evaluates fn under a deadline and sends a TaskResult to the
// actor itself. A failed or overrun exchange goes through fallback, so the
// requester always receives a typed response. The actor should switch to a
// stacked waiting state right after calling this.
func RunExchange[T any](ctx actor.Context, replyTo *actor.PID, deadline time.Duration, fn func() (*T, error), fallback func(error) T) {
	task := io.Map(io.Eval(fn), func(v *T) T {
		if v == nil {
			panic(errors.New("exchange produced no value"))
		}
		return *v
	})
	outcome := io.RunSync(io.WithTimeout[T](deadline)(task))
	message := outcome.Value
	if outcome.Error != nil {
		message = fallback(outcome.Error)
	}
	ctx.Send(ctx.Self(), TaskResult{Message: message, ReplyTo: replyTo})
}
