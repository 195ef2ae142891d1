package f2xws

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/arloliu/go-f2x/f2x"
	"github.com/arloliu/go-f2x/logger"
	"github.com/gorilla/websocket"
)

// Connection is an f2x.RawTransport over a websocket. Every frame is one binary message.
//
// Send writes synchronously under the write timeout. Received messages are delivered by a receiver
// goroutine in arrival order; a text message, an empty message or a read failure closes the websocket
// and is reported once through the fault handler.
type Connection struct {
	cfg    *Config
	logger logger.Logger

	opState f2x.AtomicOpState
	taskMgr *f2x.TaskManager

	connMu  sync.Mutex
	conn    *websocket.Conn
	writeMu sync.Mutex

	handlerMu    sync.RWMutex
	recvHandler  func(frame []byte)
	faultHandler func(err error)
}

var _ f2x.RawTransport = (*Connection)(nil)

// NewConnection creates a websocket connection. ctx is the parent context of the receiver goroutine.
func NewConnection(ctx context.Context, cfg *Config) (*Connection, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}

	l := cfg.snapshot().logger.With("transport", "websocket")

	return &Connection{
		cfg:     cfg,
		logger:  l,
		taskMgr: f2x.NewTaskManager(ctx, l),
	}, nil
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

// Connect implements f2x.RawTransport. It performs the opening handshake.
func (c *Connection) Connect(ctx context.Context) error {
	if c.opState.IsOpened() {
		return nil
	}

	if !c.opState.ToOpening() {
		return ErrConnBusy
	}

	s := c.cfg.snapshot()

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = s.handshakeTimeout

	conn, resp, err := dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		c.opState.Set(f2x.ClosedState)
		if resp != nil {
			return fmt.Errorf("websocket handshake with %s failed with status %d: %w", s.url, resp.StatusCode, err)
		}

		return fmt.Errorf("websocket dial %s: %w", s.url, err)
	}
	conn.SetReadLimit(int64(s.maxFrameSize))

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()

	// opened before the receiver starts, so a close frame read right after the handshake is a fault
	if !c.opState.ToOpened() {
		c.closeConn(websocket.CloseNormalClosure)
		c.opState.ToClosed()
		return f2x.ErrConnClosed
	}

	if err := c.taskMgr.Start("receiverTask", c.receiverTask); err != nil {
		if c.opState.ToClosing() {
			c.closeConn(websocket.CloseInternalServerErr)
			c.opState.ToClosed()
		}
		return err
	}

	c.logger.Debug("websocket opened", "method", "Connect", "url", s.url, "remote_addr", conn.RemoteAddr().String())

	return nil
}

// Disconnect implements f2x.RawTransport. It sends a close message and closes the websocket.
func (c *Connection) Disconnect() error {
	if !c.opState.ToClosing() {
		return nil
	}

	c.closeConn(websocket.CloseNormalClosure)
	c.opState.ToClosed()

	c.logger.Debug("websocket closed", "method", "Disconnect")

	return nil
}

// Send implements f2x.RawTransport.
func (c *Connection) Send(frame []byte) error {
	if !c.opState.IsOpened() {
		return f2x.ErrNotConnected
	}

	s := c.cfg.snapshot()
	if len(frame) > s.maxFrameSize {
		return fmt.Errorf("%w: length %d, maximum %d", ErrFrameTooLarge, len(frame), s.maxFrameSize)
	}
	if len(frame) == 0 {
		return ErrEmptyFrame
	}

	conn := c.currentConn()
	if conn == nil {
		return f2x.ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
		go c.fault(err)
		return err
	}

	if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		go c.fault(fmt.Errorf("write message: %w", err))
		return err
	}

	return nil
}

func (c *Connection) currentConn() *websocket.Conn {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	return c.conn
}

// closeConn sends a close message with code, closes the websocket and waits for the receiver.
// It must not be called from the receiver goroutine.
func (c *Connection) closeConn(code int) {
	timeout := c.cfg.snapshot().closeTimeout

	c.taskMgr.Stop()

	c.connMu.Lock()
	conn := c.conn
	c.conn = nil
	c.connMu.Unlock()

	if conn != nil {
		msg := websocket.FormatCloseMessage(code, "")
		if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(timeout)); err != nil {
			c.logger.Debug("failed to send close message", "method", "closeConn", "error", err)
		}
		_ = conn.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	go func() {
		c.taskMgr.Wait()
		cancel()
	}()

	<-ctx.Done()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		c.logger.Error("close timeout", "method", "closeConn", "timeout", timeout)
	}
}

func (c *Connection) fault(err error) {
	if !c.opState.ToClosing() {
		return
	}

	c.logger.Warn("websocket fault", "method", "fault", "error", err)

	code := websocket.CloseAbnormalClosure
	if errors.Is(err, ErrUnexpectedMessageType) || errors.Is(err, ErrEmptyFrame) {
		code = websocket.CloseUnsupportedData
	}
	c.closeConn(code)
	c.opState.ToClosed()

	c.handlerMu.RLock()
	handler := c.faultHandler
	c.handlerMu.RUnlock()

	if handler != nil {
		handler(err)
	}
}

// receiverTask reads one message and hands it to the receive handler.
func (c *Connection) receiverTask() bool {
	conn := c.currentConn()
	if conn == nil {
		return false
	}

	msgType, data, err := conn.ReadMessage()
	if err != nil {
		if c.opState.IsClosing() || c.opState.IsClosed() {
			return false
		}

		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) &&
			!errors.Is(err, net.ErrClosed) {
			c.logger.Error("failed to read message", "method", "receiverTask", "error", err)
		}
		go c.fault(err)

		return false
	}

	if msgType != websocket.BinaryMessage {
		go c.fault(fmt.Errorf("%w: %d", ErrUnexpectedMessageType, msgType))
		return false
	}
	if len(data) == 0 {
		go c.fault(ErrEmptyFrame)
		return false
	}

	c.handlerMu.RLock()
	handler := c.recvHandler
	c.handlerMu.RUnlock()

	if handler != nil {
		handler(data)
	}

	return true
}
