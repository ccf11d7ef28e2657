package pzem004t

import (
	"time"

	"go.uber.org/zap"
)

// Instrument receives the wall time spent on each device operation.
type Instrument struct {
	RecordTime func(opName string, elapsed time.Duration)
}

func recordTimer(name string, instrument []Instrument) func() {
	if len(instrument) == 0 {
		return func() {}
	}
	start := time.Now()
	return func() {
		elapsed := time.Since(start)
		for i := range instrument {
			instrument[i].RecordTime(name, elapsed)
		}
	}
}

func traceLoggerInstrument(logger *zap.Logger) *Instrument {
	return &Instrument{
		RecordTime: func(opName string, elapsed time.Duration) {
			logger.Debug("exchange done", zap.String("op", opName), zap.Int64("millis", elapsed.Milliseconds()))
		},
	}
}
