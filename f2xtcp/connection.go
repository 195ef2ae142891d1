package f2xtcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/arloliu/go-f2x/f2x"
	"github.com/arloliu/go-f2x/internal/pool"
	"github.com/arloliu/go-f2x/logger"
)

const (
	initialRetryDelay = 100 * time.Millisecond
	maxRetryDelay     = 5 * time.Second
	retryDelayFactor  = 2
)

// Connection is an f2x.RawTransport over a TCP socket.
//
// Each frame travels as a 4-byte big-endian length followed by the frame bytes. In active mode Connect
// dials host:port, retrying with exponential backoff until it succeeds or the context is done. In passive
// mode Connect listens on host:port and accepts a single peer.
//
// Frames passed to Send are queued and written by a sender goroutine; received frames are delivered by a
// receiver goroutine in arrival order. A read or write failure closes the socket and is reported once
// through the fault handler. Disconnect never reports a fault.
type Connection struct {
	pctx   context.Context
	cfg    *ConnectionConfig
	logger logger.Logger

	opState f2x.AtomicOpState
	taskMgr *f2x.TaskManager

	listenerMu sync.Mutex
	listener   net.Listener // passive mode only
	connMu     sync.Mutex
	conn       net.Conn

	handlerMu    sync.RWMutex
	recvHandler  func(frame []byte)
	faultHandler func(err error)

	senderQueue chan []byte
	reader      frameReader

	metrics ConnectionMetrics
}

var _ f2x.RawTransport = (*Connection)(nil)

// NewConnection creates a TCP connection with the given configuration. ctx is the parent context of
// all goroutines of the connection.
func NewConnection(ctx context.Context, cfg *ConnectionConfig) (*Connection, error) {
	if cfg == nil {
		return nil, ErrConnConfigNil
	}

	cfg.mu.RLock()
	l := cfg.logger.With("transport", "tcp")
	queueSize := cfg.senderQueueSize
	cfg.mu.RUnlock()

	c := &Connection{
		pctx:        ctx,
		cfg:         cfg,
		logger:      l,
		taskMgr:     f2x.NewTaskManager(ctx, l),
		senderQueue: make(chan []byte, queueSize),
	}

	return c, nil
}

// UpdateConfigOptions applies runtime-changeable options. The new values take effect for the next
// operation that uses them.
func (c *Connection) UpdateConfigOptions(opts ...ConnOption) error {
	for _, opt := range opts {
		connOpt, ok := opt.(*connOptFunc)
		if !ok {
			return errors.New("invalid ConnOption type")
		}

		if !connOpt.runtime {
			return fmt.Errorf("option %s can't be changed at runtime", connOpt.name)
		}

		if err := opt.apply(c.cfg); err != nil {
			return err
		}
	}

	return nil
}

// GetLogger returns the logger of the connection.
func (c *Connection) GetLogger() logger.Logger {
	return c.logger
}

// GetMetrics returns the metrics of the connection.
func (c *Connection) GetMetrics() *ConnectionMetrics {
	return &c.metrics
}

// SetReceiveHandler implements f2x.RawTransport.
func (c *Connection) SetReceiveHandler(handler func(frame []byte)) {
	c.handlerMu.Lock()
	defer c.handlerMu.Unlock()

	c.recvHandler = handler
}

// SetFaultHandler implements f2x.RawTransport.
func (c *Connection) SetFaultHandler(handler func(err error)) {
	c.handlerMu.Lock()
	defer c.handlerMu.Unlock()

	c.faultHandler = handler
}

// Listen starts listening in passive mode without waiting for a peer. It is called by Connect
// when needed; calling it first allows reading the bound address with Addr.
func (c *Connection) Listen() error {
	if c.cfg.IsActive() {
		return errors.New("listen is only available in passive mode")
	}

	c.listenerMu.Lock()
	defer c.listenerMu.Unlock()

	if c.listener != nil {
		return nil
	}

	address := net.JoinHostPort(c.cfg.Host(), strconv.Itoa(c.cfg.Port()))
	c.logger.Debug("try to listen", "method", "Listen", "address", address)

	var lc net.ListenConfig
	listener, err := lc.Listen(c.pctx, "tcp", address)
	if err != nil {
		c.logger.Error("failed to listen", "method", "Listen", "address", address, "error", err)
		return err
	}
	c.listener = listener

	return nil
}

// Addr returns the listening address in passive mode, or nil if not listening.
func (c *Connection) Addr() net.Addr {
	c.listenerMu.Lock()
	defer c.listenerMu.Unlock()

	if c.listener == nil {
		return nil
	}

	return c.listener.Addr()
}

// Connect implements f2x.RawTransport. It blocks until the socket is established or ctx is done.
//
// Connect on an open connection is a no-op.
func (c *Connection) Connect(ctx context.Context) error {
	if c.opState.IsOpened() {
		return nil
	}

	if !c.opState.ToOpening() {
		return ErrConnBusy
	}

	var (
		conn net.Conn
		err  error
	)
	if c.cfg.IsActive() {
		conn, err = c.dial(ctx)
	} else {
		conn, err = c.accept(ctx)
	}

	if err != nil {
		c.opState.Set(f2x.ClosedState)
		return err
	}

	c.setupConn(conn)

	// opened before the goroutines start, so a fault they report is never dropped
	if !c.opState.ToOpened() {
		// Disconnect raced with Connect
		c.closeConn()
		c.opState.ToClosed()
		return f2x.ErrConnClosed
	}

	if err := c.startTasks(); err != nil {
		if c.opState.ToClosing() {
			c.closeConn()
			c.opState.ToClosed()
		}
		return err
	}

	c.logger.Debug("connection opened", "method", "Connect",
		"local_addr", conn.LocalAddr().String(),
		"remote_addr", conn.RemoteAddr().String(),
	)

	return nil
}

// Disconnect implements f2x.RawTransport. It closes the socket and, in passive mode, the listener.
func (c *Connection) Disconnect() error {
	if !c.opState.ToClosing() {
		_ = c.closeListener()
		return nil
	}

	c.closeConn()
	err := c.closeListener()
	c.opState.ToClosed()

	c.logger.Debug("connection closed", "method", "Disconnect")

	return err
}

// Send implements f2x.RawTransport. The frame is copied and queued for the sender goroutine.
//
// It returns ErrSendTimeout if the queue stays full for the write timeout.
func (c *Connection) Send(frame []byte) error {
	if !c.opState.IsOpened() {
		return f2x.ErrNotConnected
	}

	if maxSize := c.cfg.MaxFrameSize(); len(frame) > maxSize {
		return fmt.Errorf("%w: length %d, maximum %d", ErrFrameTooLarge, len(frame), maxSize)
	}
	if len(frame) == 0 {
		return ErrZeroLengthFrame
	}

	_, _, _, writeTimeout, _ := c.cfg.timeouts()
	timer := pool.AcquireTimer(writeTimeout)
	defer pool.ReleaseTimer(timer)

	ctx := c.taskMgr.Context()

	select {
	case c.senderQueue <- prefixFrame(frame):
		return nil
	case <-timer.C:
		return ErrSendTimeout
	case <-ctx.Done():
		return f2x.ErrConnClosed
	}
}

func (c *Connection) dial(ctx context.Context) (net.Conn, error) {
	delay := initialRetryDelay
	for {
		conn, err := c.tryConnect(ctx)
		if err == nil {
			c.metrics.resetConnRetryGauge()
			return conn, nil
		}

		c.metrics.incConnRetryGauge()
		c.logger.Debug("failed to connect, schedule retry", "method", "dial", "error", err, "delay", delay)

		timer := pool.AcquireTimer(delay)
		select {
		case <-ctx.Done():
			pool.ReleaseTimer(timer)
			return nil, fmt.Errorf("connect to %s:%d: %w", c.cfg.Host(), c.cfg.Port(), ctx.Err())
		case <-timer.C:
			pool.ReleaseTimer(timer)
		}

		if !c.opState.IsOpening() {
			return nil, f2x.ErrConnClosed
		}

		delay = min(delay*retryDelayFactor, maxRetryDelay)
	}
}

func (c *Connection) tryConnect(ctx context.Context) (net.Conn, error) {
	address := net.JoinHostPort(c.cfg.Host(), strconv.Itoa(c.cfg.Port()))
	connectTimeout, _, _, _, _ := c.cfg.timeouts()
	dialer := &net.Dialer{KeepAlive: 30 * time.Second}

	dialCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	return dialer.DialContext(dialCtx, "tcp", address)
}

func (c *Connection) accept(ctx context.Context) (net.Conn, error) {
	if err := c.Listen(); err != nil {
		return nil, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !c.opState.IsOpening() {
			return nil, f2x.ErrConnClosed
		}

		tcpListener := c.getTCPListener()
		if tcpListener == nil {
			return nil, f2x.ErrConnClosed
		}

		conn, err := tcpListener.Accept()
		if err == nil {
			c.logger.Debug("connection accepted", "method", "accept", "remote_address", conn.RemoteAddr())
			// one peer per connection; the next Connect listens again
			_ = c.closeListener()

			return conn, nil
		}

		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			continue
		}

		return nil, fmt.Errorf("accept: %w", err)
	}
}

func (c *Connection) getTCPListener() *net.TCPListener {
	c.listenerMu.Lock()
	defer c.listenerMu.Unlock()

	if c.listener == nil {
		return nil
	}

	tcpListener, ok := c.listener.(*net.TCPListener)
	if !ok {
		c.logger.Error("listener is not a TCP listener", "method", "getTCPListener")
		return nil
	}

	_, acceptTimeout, _, _, _ := c.cfg.timeouts()
	if err := tcpListener.SetDeadline(time.Now().Add(acceptTimeout)); err != nil {
		c.logger.Error("failed to set deadline for tcp listener", "method", "getTCPListener", "error", err)
		return nil
	}

	return tcpListener
}

func (c *Connection) closeListener() error {
	c.listenerMu.Lock()
	defer c.listenerMu.Unlock()

	if c.listener == nil {
		return nil
	}

	err := c.listener.Close()
	c.listener = nil

	return err
}

func (c *Connection) setupConn(conn net.Conn) {
	_, _, _, _, readTimeout := c.cfg.timeouts()

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()

	c.reader = frameReader{readTimeout: readTimeout, maxFrameSize: c.cfg.MaxFrameSize()}

	// drop frames queued for a previous connection
	for len(c.senderQueue) > 0 {
		<-c.senderQueue
	}
}

// startTasks starts the sender and receiver goroutines of the current socket.
func (c *Connection) startTasks() error {
	if err := c.taskMgr.StartSender("senderTask", c.senderTask, nil, c.senderQueue); err != nil {
		return err
	}

	return c.taskMgr.StartReceiver("receiverTask", c.receiverTask, nil)
}

// closeConn stops the connection goroutines and closes the socket, waiting at most the close timeout.
// It must not be called from a connection goroutine.
func (c *Connection) closeConn() {
	_, _, timeout, _, _ := c.cfg.timeouts()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	c.taskMgr.Stop()

	c.connMu.Lock()
	if c.conn != nil {
		if tcpConn, ok := c.conn.(*net.TCPConn); ok {
			_ = tcpConn.SetLinger(0)
		}
		if err := c.conn.Close(); err != nil {
			c.logger.Debug("failed to close TCP connection", "method", "closeConn", "error", err)
		}
		c.conn = nil
	}
	c.connMu.Unlock()

	go func() {
		c.taskMgr.Wait()
		cancel()
	}()

	<-ctx.Done()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		c.logger.Error("close timeout", "method", "closeConn", "timeout", timeout)
	}
}

// fault closes a broken connection and reports err, unless Disconnect got there first.
func (c *Connection) fault(err error) {
	if !c.opState.ToClosing() {
		return
	}

	c.metrics.incFaultCount()
	c.logger.Warn("connection fault", "method", "fault", "error", err)

	c.closeConn()
	c.opState.ToClosed()

	c.handlerMu.RLock()
	handler := c.faultHandler
	c.handlerMu.RUnlock()

	if handler != nil {
		handler(err)
	}
}

func (c *Connection) currentConn() net.Conn {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	return c.conn
}

// senderTask writes one queued frame to the socket.
func (c *Connection) senderTask(buf []byte) bool {
	conn := c.currentConn()
	if conn == nil {
		return false
	}

	_, _, _, writeTimeout, _ := c.cfg.timeouts()
	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		c.metrics.incFrameErrCount()
		go c.fault(fmt.Errorf("set write deadline: %w", err))
		return false
	}

	if _, err := conn.Write(buf); err != nil {
		c.metrics.incFrameErrCount()
		if c.opState.IsOpened() {
			c.logger.Error("failed to write frame", "method", "senderTask", "error", err)
		}
		go c.fault(fmt.Errorf("write frame: %w", err))

		return false
	}

	c.metrics.incFrameSendCount()

	return true
}

// receiverTask reads one frame and hands it to the receive handler.
func (c *Connection) receiverTask(lenBuf []byte) bool {
	conn := c.currentConn()
	if conn == nil {
		return false
	}

	frame, err := c.reader.ReadFrame(conn, lenBuf)
	if err != nil {
		if c.opState.IsClosing() || c.opState.IsClosed() {
			// closing on purpose
			return false
		}

		if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
			c.metrics.incFrameErrCount()
			c.logger.Error("failed to read frame", "method", "receiverTask", "error", err)
		}
		go c.fault(err)

		return false
	}

	c.metrics.incFrameRecvCount()

	c.handlerMu.RLock()
	handler := c.recvHandler
	c.handlerMu.RUnlock()

	if handler != nil {
		handler(frame)
	}

	return true
}
