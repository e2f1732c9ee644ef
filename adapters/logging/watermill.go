package logging

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/go-logr/logr"
)

// WatermillAdapter routes watermill logs into a logr.Logger.
type WatermillAdapter struct {
	logger logr.Logger
}

var _ watermill.LoggerAdapter = WatermillAdapter{}

// NewWatermillAdapter wraps logger.
func NewWatermillAdapter(logger logr.Logger) WatermillAdapter {
	return WatermillAdapter{logger: logger.WithValues("component", "watermill")}
}

func (a WatermillAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.logger.Error(err, msg, keysAndValues(fields)...)
}

func (a WatermillAdapter) Info(msg string, fields watermill.LogFields) {
	a.logger.Info(msg, keysAndValues(fields)...)
}

func (a WatermillAdapter) Debug(msg string, fields watermill.LogFields) {
	a.logger.V(1).Info(msg, keysAndValues(fields)...)
}

func (a WatermillAdapter) Trace(msg string, fields watermill.LogFields) {
	a.logger.V(2).Info(msg, keysAndValues(fields)...)
}

func (a WatermillAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return WatermillAdapter{logger: a.logger.WithValues(keysAndValues(fields)...)}
}

func keysAndValues(fields watermill.LogFields) []any {
	kv := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		kv = append(kv, k, v)
	}
	return kv
}
