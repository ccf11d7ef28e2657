package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/berfenger/pzem2mqtt/internal/config"

	"github.com/asynkron/protoactor-go/actor"
)

// Server exposes the bridge over HTTP. The actor system stays the source
// of truth, handlers only ask the master actor.
type Server struct {
	port        uint
	httpLog     bool
	rootContext *actor.RootContext
	masterActor *actor.PID
}

func NewServer(cfg config.Config, rootContext *actor.RootContext, masterActor *actor.PID) *http.Server {
	srv := &Server{
		port:        cfg.Port,
		rootContext: rootContext,
		masterActor: masterActor,
		httpLog:     cfg.HttpLog,
	}

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", srv.port),
		Handler:      srv.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}
