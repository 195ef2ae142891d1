package f2xws

import (
	"errors"
	"net/url"
	"sync"
	"time"

	"github.com/arloliu/go-f2x/f2x"
	"github.com/arloliu/go-f2x/logger"
)

// DefaultMaxFrameSize is the default upper bound of a websocket message, header included.
const DefaultMaxFrameSize = 16 * 1024 * 1024

// Config represents the configuration of a websocket raw transport.
type Config struct {
	mu sync.RWMutex

	url string

	// handshakeTimeout bounds the websocket opening handshake. Defaults to 5 seconds.
	handshakeTimeout time.Duration
	// writeTimeout bounds writing a single message. Defaults to 5 seconds.
	writeTimeout time.Duration
	// closeTimeout bounds the close handshake and the wait for the receiver. Defaults to 1 second.
	closeTimeout time.Duration
	// maxFrameSize is the read limit of the connection. Defaults to DefaultMaxFrameSize.
	maxFrameSize int

	logger logger.Logger
}

// NewConfig creates a websocket configuration for rawURL, which must use the ws or wss scheme.
func NewConfig(rawURL string, opts ...Option) (*Config, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, errors.New("url scheme must be ws or wss")
	}
	if u.Host == "" {
		return nil, errors.New("url has no host")
	}

	cfg := &Config{
		url:              rawURL,
		handshakeTimeout: 5 * time.Second,
		writeTimeout:     5 * time.Second,
		closeTimeout:     1 * time.Second,
		maxFrameSize:     DefaultMaxFrameSize,
		logger:           logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// URL returns the websocket URL.
func (cfg *Config) URL() string {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.url
}

// settings is a point-in-time copy of a Config.
type settings struct {
	url              string
	handshakeTimeout time.Duration
	writeTimeout     time.Duration
	closeTimeout     time.Duration
	maxFrameSize     int
	logger           logger.Logger
}

func (cfg *Config) snapshot() settings {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return settings{
		url:              cfg.url,
		handshakeTimeout: cfg.handshakeTimeout,
		writeTimeout:     cfg.writeTimeout,
		closeTimeout:     cfg.closeTimeout,
		maxFrameSize:     cfg.maxFrameSize,
		logger:           cfg.logger,
	}
}

// Option configures a Config.
type Option interface {
	apply(*Config) error
}

type optFunc struct {
	name      string
	applyFunc func(*Config) error
}

func (o *optFunc) apply(cfg *Config) error {
	if cfg == nil {
		return ErrConfigNil
	}

	cfg.mu.Lock()
	defer cfg.mu.Unlock()

	return o.applyFunc(cfg)
}

func newOptFunc(name string, f func(*Config) error) *optFunc {
	return &optFunc{name: name, applyFunc: f}
}

// WithHandshakeTimeout sets the timeout of the opening handshake.
// The value must be within 100 milliseconds and 60 seconds.
func WithHandshakeTimeout(val time.Duration) Option {
	return newOptFunc("WithHandshakeTimeout", func(cfg *Config) error {
		if val < 100*time.Millisecond || val > 60*time.Second {
			return errors.New("handshake timeout out of range [0.1, 60] seconds")
		}
		cfg.handshakeTimeout = val

		return nil
	})
}

// WithWriteTimeout sets the timeout of writing a message.
// The value must be within 100 milliseconds and 120 seconds.
func WithWriteTimeout(val time.Duration) Option {
	return newOptFunc("WithWriteTimeout", func(cfg *Config) error {
		if val < 100*time.Millisecond || val > 120*time.Second {
			return errors.New("write timeout out of range [0.1, 120] seconds")
		}
		cfg.writeTimeout = val

		return nil
	})
}

// WithCloseTimeout sets how long Disconnect waits for the close handshake and the receiver goroutine.
// The value must be within 100 milliseconds and 30 seconds.
func WithCloseTimeout(val time.Duration) Option {
	return newOptFunc("WithCloseTimeout", func(cfg *Config) error {
		if val < 100*time.Millisecond || val > 30*time.Second {
			return errors.New("close timeout out of range [0.1, 30] seconds")
		}
		cfg.closeTimeout = val

		return nil
	})
}

// WithMaxFrameSize limits the size of a message, application header included.
func WithMaxFrameSize(size int) Option {
	return newOptFunc("WithMaxFrameSize", func(cfg *Config) error {
		if size < f2x.HeaderSize || size > 1<<30 {
			return errors.New("max frame size out of range [17, 1073741824]")
		}
		cfg.maxFrameSize = size

		return nil
	})
}

// WithLogger sets the logger of the connection.
func WithLogger(l logger.Logger) Option {
	return newOptFunc("WithLogger", func(cfg *Config) error {
		if l == nil {
			return errors.New("logger is nil")
		}
		cfg.logger = l

		return nil
	})
}
