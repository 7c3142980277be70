package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"go.uber.org/zap"

	"github.com/shubham-shewale/stockpulse/cmd/gateway/internal/hub"
	"github.com/shubham-shewale/stockpulse/pkg/config"
	"github.com/shubham-shewale/stockpulse/pkg/protocol"
)

const (
	maxMessageSize = 4 * 1024
)

var (
	ErrClientClosed   = errors.New("client closed")
	ErrSendBufferFull = errors.New("send buffer full")
)

type Options struct {
	SendBuffer int
	WriteWait  time.Duration
	PongWait   time.Duration
	PingPeriod time.Duration
}

func OptionsFromConfig(cfg config.GatewayConfig) Options {
	return Options{
		SendBuffer: cfg.SendBuffer,
		WriteWait:  cfg.WriteWait,
		PongWait:   cfg.PongWait,
		PingPeriod: cfg.PingPeriod,
	}
}

func DefaultOptions() Options {
	return Options{
		SendBuffer: 64,
		WriteWait:  5 * time.Second,
		PongWait:   60 * time.Second,
		PingPeriod: 50 * time.Second,
	}
}

// ClientAdapter bridges one websocket connection to the hub.
type ClientAdapter struct {
	conn   net.Conn
	hub    *hub.Hub
	send   chan []byte
	logger *zap.Logger
	opts   Options

	mu     sync.RWMutex
	closed bool
}

var _ hub.ClientInterface = (*ClientAdapter)(nil)

func NewClient(conn net.Conn, h *hub.Hub, logger *zap.Logger, opts Options) *ClientAdapter {
	def := DefaultOptions()
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = def.SendBuffer
	}
	if opts.WriteWait <= 0 {
		opts.WriteWait = def.WriteWait
	}
	if opts.PongWait <= 0 {
		opts.PongWait = def.PongWait
	}
	if opts.PingPeriod <= 0 {
		opts.PingPeriod = def.PingPeriod
	}
	return &ClientAdapter{
		conn:   conn,
		hub:    h,
		send:   make(chan []byte, opts.SendBuffer),
		logger: logger,
		opts:   opts,
	}
}

// Start subscribes the connection and runs its pumps. The initial snapshot
// is queued by the hub before the read pump starts.
func (c *ClientAdapter) Start() {
	go c.writePump()
	if _, err := c.hub.Register(c); err != nil {
		c.logger.Warn("Subscription refused", zap.String("client", c.ID()), zap.Error(err))
		return
	}
	go c.readPump()
}

func (c *ClientAdapter) ID() string { return c.conn.RemoteAddr().String() }

// Close only closes the send channel; writePump closes the conn.
func (c *ClientAdapter) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// SendBytes queues a frame without blocking. A full buffer drops the frame.
func (c *ClientAdapter) SendBytes(b []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClientClosed
	}
	select {
	case c.send <- b:
		return nil
	default:
		return ErrSendBufferFull
	}
}

func (c *ClientAdapter) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))

	for {
		header, err := ws.ReadHeader(c.conn)
		if err != nil {
			break
		}

		if header.Length > int64(maxMessageSize) {
			c.logger.Warn("Msg too big", zap.Int64("size", header.Length))
			break
		}

		if !header.Fin {
			c.logger.Warn("Client sent fragmented message (not supported)")
			break
		}

		payload := make([]byte, header.Length)
		if _, err := io.ReadFull(c.conn, payload); err != nil {
			break
		}

		if header.Masked {
			ws.Cipher(payload, header.Mask, 0)
		}

		if header.OpCode == ws.OpClose {
			break
		}
		if header.OpCode == ws.OpPong {
			c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
			continue
		}

		if header.OpCode == ws.OpText {
			c.handleText(payload)
		}
	}
}

// handleText answers keepalive pings. The feed is read-only, so anything
// else is ignored.
func (c *ClientAdapter) handleText(payload []byte) {
	var msg protocol.ClientMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		c.logger.Debug("Ignoring malformed client frame", zap.String("client", c.ID()))
		return
	}
	if msg.Event == protocol.EventPing {
		c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
		_ = c.SendBytes(protocol.EncodePong())
	}
}

func (c *ClientAdapter) writePump() {
	ticker := time.NewTicker(c.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if !ok {
				c.conn.Write(ws.CompiledClose)
				return
			}
			if err := wsutil.WriteServerText(c.conn, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := wsutil.WriteServerMessage(c.conn, ws.OpPing, nil); err != nil {
				return
			}
		}
	}
}
