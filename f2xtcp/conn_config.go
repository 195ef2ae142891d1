package f2xtcp

import (
	"errors"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/arloliu/go-f2x/f2x"
	"github.com/arloliu/go-f2x/logger"
)

// DefaultMaxFrameSize is the default upper bound of a frame's length, header included.
const DefaultMaxFrameSize = 16 * 1024 * 1024

// ConnectionConfig represents the configuration parameters of a TCP raw transport.
type ConnectionConfig struct {
	mu sync.RWMutex

	// host is the remote Foundation host in active mode, or the bind address in passive mode.
	host string
	// port is the TCP port. Zero lets the system pick a port in passive mode.
	port int

	// isActive selects active (dial) or passive (accept a single peer) mode.
	// Defaults to true.
	isActive bool

	// connectTimeout bounds a single dial attempt in active mode.
	// Defaults to 3 seconds.
	connectTimeout time.Duration
	// acceptTimeout bounds each iteration of the accept loop in passive mode.
	// Defaults to 1 second.
	acceptTimeout time.Duration
	// closeConnTimeout bounds the wait for the connection goroutines to terminate.
	// Defaults to 3 seconds.
	closeConnTimeout time.Duration
	// writeTimeout bounds enqueueing a frame and writing it to the socket.
	// Defaults to 5 seconds.
	writeTimeout time.Duration
	// readTimeout bounds reading the body of a frame once its length has arrived.
	// Defaults to 5 seconds.
	readTimeout time.Duration

	// senderQueueSize is the number of frames buffered before they are written.
	// Defaults to 10.
	senderQueueSize int
	// maxFrameSize limits the length of a single frame in both directions.
	// Defaults to DefaultMaxFrameSize.
	maxFrameSize int

	logger logger.Logger
}

// NewConnectionConfig creates a TCP connection configuration for host and port with the given options applied.
func NewConnectionConfig(host string, port int, opts ...ConnOption) (*ConnectionConfig, error) {
	cfg := &ConnectionConfig{
		isActive:         true,
		connectTimeout:   3 * time.Second,
		acceptTimeout:    1 * time.Second,
		closeConnTimeout: 3 * time.Second,
		writeTimeout:     5 * time.Second,
		readTimeout:      5 * time.Second,
		senderQueueSize:  10,
		maxFrameSize:     DefaultMaxFrameSize,
		logger:           logger.GetLogger(),
	}

	if err := withHost(host).apply(cfg); err != nil {
		return cfg, err
	}

	if err := withPort(port).apply(cfg); err != nil {
		return cfg, err
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return cfg, err
		}
	}

	return cfg, nil
}

// Host returns the configured host.
func (cfg *ConnectionConfig) Host() string {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.host
}

// Port returns the configured port.
func (cfg *ConnectionConfig) Port() int {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.port
}

// IsActive reports whether the connection dials the remote.
func (cfg *ConnectionConfig) IsActive() bool {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.isActive
}

// MaxFrameSize returns the frame size limit.
func (cfg *ConnectionConfig) MaxFrameSize() int {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.maxFrameSize
}

func (cfg *ConnectionConfig) timeouts() (connect, accept, closeConn, write, read time.Duration) {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.connectTimeout, cfg.acceptTimeout, cfg.closeConnTimeout, cfg.writeTimeout, cfg.readTimeout
}

// ConnOption represents a functional option for configuring a ConnectionConfig.
type ConnOption interface {
	apply(*ConnectionConfig) error
}

type connOptFunc struct {
	name      string
	runtime   bool
	applyFunc func(*ConnectionConfig) error
}

func (c *connOptFunc) apply(cfg *ConnectionConfig) error {
	if cfg == nil {
		return ErrConnConfigNil
	}

	cfg.mu.Lock()
	defer cfg.mu.Unlock()

	return c.applyFunc(cfg)
}

func newConnOptFunc(name string, runtime bool, f func(*ConnectionConfig) error) *connOptFunc {
	return &connOptFunc{
		name:      name,
		runtime:   runtime,
		applyFunc: f,
	}
}

// withHost validates host as an IP address or a resolvable host name.
func withHost(host string) ConnOption {
	return newConnOptFunc("withHost", false, func(cfg *ConnectionConfig) error {
		if ip := net.ParseIP(host); ip != nil {
			cfg.host = host
			return nil
		}

		host = strings.TrimPrefix(host, ".")
		host = strings.TrimSuffix(host, ".")
		if host == "" {
			return errors.New("invalid host")
		}
		if _, err := net.LookupHost(host); err == nil {
			cfg.host = host
			return nil
		}

		return errors.New("invalid host")
	})
}

func withPort(port int) ConnOption {
	return newConnOptFunc("withPort", false, func(cfg *ConnectionConfig) error {
		if port < 0 || port > 65535 {
			return errors.New("port is out of range [0, 65535]")
		}
		cfg.port = port

		return nil
	})
}

// WithActive makes the connection dial the remote host. This is the default.
//
// This option can't be changed at runtime.
func WithActive() ConnOption {
	return newConnOptFunc("WithActive", false, func(cfg *ConnectionConfig) error {
		cfg.isActive = true
		return nil
	})
}

// WithPassive makes the connection listen on host:port and accept a single peer.
//
// This option can't be changed at runtime.
func WithPassive() ConnOption {
	return newConnOptFunc("WithPassive", false, func(cfg *ConnectionConfig) error {
		cfg.isActive = false
		return nil
	})
}

// WithConnectTimeout sets the timeout of a single dial attempt in active mode.
// The value must be within 100 milliseconds and 30 seconds.
//
// The default value is 3 seconds.
func WithConnectTimeout(val time.Duration) ConnOption {
	return newConnOptFunc("WithConnectTimeout", true, func(cfg *ConnectionConfig) error {
		if val < 100*time.Millisecond || val > 30*time.Second {
			return errors.New("connect timeout out of range [0.1, 30] seconds")
		}
		cfg.connectTimeout = val

		return nil
	})
}

// WithAcceptTimeout sets the timeout of each accept iteration in passive mode.
// The value must be within 100 milliseconds and 2 seconds.
//
// The default value is 1 second.
func WithAcceptTimeout(val time.Duration) ConnOption {
	return newConnOptFunc("WithAcceptTimeout", true, func(cfg *ConnectionConfig) error {
		if val < 100*time.Millisecond || val > 2*time.Second {
			return errors.New("accept timeout out of range [0.1, 2] seconds")
		}
		cfg.acceptTimeout = val

		return nil
	})
}

// WithCloseConnTimeout sets how long closing a connection waits for its goroutines.
// The value must be within 1 and 30 seconds.
//
// The default value is 3 seconds.
func WithCloseConnTimeout(val time.Duration) ConnOption {
	return newConnOptFunc("WithCloseConnTimeout", true, func(cfg *ConnectionConfig) error {
		if val < 1*time.Second || val > 30*time.Second {
			return errors.New("close connection timeout out of range [1, 30] seconds")
		}
		cfg.closeConnTimeout = val

		return nil
	})
}

// WithWriteTimeout sets the timeout of enqueueing a frame and of writing it to the socket.
// The value must be within 100 milliseconds and 120 seconds.
//
// The default value is 5 seconds.
func WithWriteTimeout(val time.Duration) ConnOption {
	return newConnOptFunc("WithWriteTimeout", true, func(cfg *ConnectionConfig) error {
		if val < 100*time.Millisecond || val > 120*time.Second {
			return errors.New("write timeout out of range [0.1, 120] seconds")
		}
		cfg.writeTimeout = val

		return nil
	})
}

// WithReadTimeout sets the timeout of reading a frame body after its length prefix arrived.
// The connection may idle indefinitely between frames.
// The value must be within 100 milliseconds and 120 seconds.
//
// The default value is 5 seconds.
func WithReadTimeout(val time.Duration) ConnOption {
	return newConnOptFunc("WithReadTimeout", true, func(cfg *ConnectionConfig) error {
		if val < 100*time.Millisecond || val > 120*time.Second {
			return errors.New("read timeout out of range [0.1, 120] seconds")
		}
		cfg.readTimeout = val

		return nil
	})
}

// WithSenderQueueSize sets the number of frames buffered before they are written to the socket.
// The size must be within 1 and 1000.
//
// The default value is 10.
//
// This option can't be changed at runtime.
func WithSenderQueueSize(size int) ConnOption {
	return newConnOptFunc("WithSenderQueueSize", false, func(cfg *ConnectionConfig) error {
		if size < 1 || size > 1000 {
			return errors.New("the sender queue size out of range [1, 1000]")
		}
		cfg.senderQueueSize = size

		return nil
	})
}

// WithMaxFrameSize limits the length of a frame, application header included.
// The size must be at least the application header size.
//
// The default value is DefaultMaxFrameSize.
//
// This option can't be changed at runtime.
func WithMaxFrameSize(size int) ConnOption {
	return newConnOptFunc("WithMaxFrameSize", false, func(cfg *ConnectionConfig) error {
		if size < f2x.HeaderSize || size > 1<<30 {
			return errors.New("max frame size out of range [17, 1073741824]")
		}
		cfg.maxFrameSize = size

		return nil
	})
}

// WithLogger sets the logger of the connection. The default is the global logger.
//
// This option can't be changed at runtime.
func WithLogger(l logger.Logger) ConnOption {
	return newConnOptFunc("WithLogger", false, func(cfg *ConnectionConfig) error {
		if l == nil {
			return errors.New("logger is nil")
		}
		cfg.logger = l

		return nil
	})
}
