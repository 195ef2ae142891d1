package f2x

import (
	"fmt"

	"github.com/arloliu/go-f2x/logger"
)

// TransportOption represents a functional option for configuring a Transport.
type TransportOption interface {
	apply(*Transport) error
}

type transportOptFunc struct {
	name      string
	applyFunc func(*Transport) error
}

func (o *transportOptFunc) apply(t *Transport) error {
	if err := o.applyFunc(t); err != nil {
		return fmt.Errorf("option %s: %w", o.name, err)
	}

	return nil
}

func newTransportOptFunc(name string, f func(*Transport) error) *transportOptFunc {
	return &transportOptFunc{name: name, applyFunc: f}
}

// WithLogger sets the logger of the transport and of the categories created on it.
//
// The default is the package default logger from logger.GetLogger.
func WithLogger(l logger.Logger) TransportOption {
	return newTransportOptFunc("WithLogger", func(t *Transport) error {
		if l == nil {
			return ErrLoggerNil
		}
		t.logger = l

		return nil
	})
}

// WithMessageTrace sets a callback receiving every inbound and outbound frame after framing.
func WithMessageTrace(f TraceFunc) TransportOption {
	return newTransportOptFunc("WithMessageTrace", func(t *Transport) error {
		t.trace = f
		return nil
	})
}

// WithConnStateChangeHandler adds handlers invoked when the connection state changes.
func WithConnStateChangeHandler(handlers ...ConnStateChangeHandler) TransportOption {
	return newTransportOptFunc("WithConnStateChangeHandler", func(t *Transport) error {
		t.stateHandlers = append(t.stateHandlers, handlers...)
		return nil
	})
}
