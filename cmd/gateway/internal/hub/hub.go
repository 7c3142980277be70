package hub

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shubham-shewale/stockpulse/cmd/gateway/internal/tickloop"
	"github.com/shubham-shewale/stockpulse/pkg/config"
	"github.com/shubham-shewale/stockpulse/pkg/models"
	"github.com/shubham-shewale/stockpulse/pkg/protocol"
)

var ErrHubClosed = errors.New("hub is shut down")

type ClientInterface interface {
	ID() string
	SendBytes(b []byte) error
	Close()
}

// QuoteStore is the single shared state the hub ticks
type QuoteStore interface {
	Get() []models.Stock
	ApplyTick() []models.Stock
}

// TickObserver is told about every tick after it has been broadcast.
// Implementations must not block.
type TickObserver interface {
	Observe(seq uint64, at time.Time, stocks []models.Stock)
}

type Option func(*Hub)

func WithClock(c tickloop.Clock) Option { return func(h *Hub) { h.clock = c } }

func WithInterval(d time.Duration) Option { return func(h *Hub) { h.interval = d } }

// WithTickMode selects config.TickModeGlobal (the default) or
// config.TickModePerConnection, where every subscription arms its own timer.
func WithTickMode(mode string) Option {
	return func(h *Hub) { h.perConnection = mode == config.TickModePerConnection }
}

func WithObserver(o TickObserver) Option {
	return func(h *Hub) { h.observers = append(h.observers, o) }
}

type Hub struct {
	subscribers map[ClientInterface]*Subscription

	store         QuoteStore
	logger        *zap.Logger
	clock         tickloop.Clock
	interval      time.Duration
	perConnection bool
	observers     []TickObserver

	mu     sync.RWMutex // guards subscribers and closed
	closed bool

	// turn makes registration and ticks run one at a time, so the store has
	// a single writer and every client sees ticks in the order applied.
	turn sync.Mutex
	seq  uint64
}

func NewHub(store QuoteStore, logger *zap.Logger, opts ...Option) *Hub {
	h := &Hub{
		subscribers:   make(map[ClientInterface]*Subscription),
		store:         store,
		logger:        logger,
		clock:         tickloop.RealClock{},
		interval:      config.DefaultTickInterval,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register subscribes a client: it receives the current snapshot at once and,
// in per-connection mode, arms its own tick timer.
func (h *Hub) Register(client ClientInterface) (*Subscription, error) {
	h.turn.Lock()
	defer h.turn.Unlock()

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		client.Close()
		return nil, ErrHubClosed
	}
	if sub, ok := h.subscribers[client]; ok {
		h.mu.Unlock()
		return sub, nil
	}
	sub := newSubscription(client, h.clock.Now())
	h.subscribers[client] = sub
	count := len(h.subscribers)
	h.mu.Unlock()

	h.logger.Info("Client connected",
		zap.String("subscription", sub.ID()),
		zap.String("client", client.ID()),
		zap.Int("subscribers", count),
	)

	payload, err := protocol.EncodeStocksUpdate(h.store.Get())
	if err != nil {
		h.logger.Error("Encode snapshot failed", zap.Error(err))
	} else if err := client.SendBytes(payload); err != nil {
		h.logger.Warn("Initial snapshot not delivered", zap.String("client", client.ID()), zap.Error(err))
	}

	if h.perConnection {
		sub.arm(tickloop.Start(h.clock, h.interval, func() { h.Tick() }))
	}
	return sub, nil
}

// Unregister ends a client's subscription and cancels its timer in the same
// call. Repeated calls are no-ops.
func (h *Hub) Unregister(client ClientInterface) bool {
	h.mu.Lock()
	sub, ok := h.subscribers[client]
	if ok {
		delete(h.subscribers, client)
	}
	count := len(h.subscribers)
	h.mu.Unlock()

	if !ok {
		return false
	}

	sub.disconnect()
	client.Close()

	h.logger.Info("Client disconnected",
		zap.String("subscription", sub.ID()),
		zap.String("client", client.ID()),
		zap.Int("subscribers", count),
	)
	return true
}

// Tick applies one store mutation and broadcasts the result to every
// subscriber. Returns the number of clients that accepted the push.
func (h *Hub) Tick() int {
	h.turn.Lock()
	defer h.turn.Unlock()

	stocks := h.store.ApplyTick()
	h.seq++
	delivered := h.Broadcast(stocks)

	at := h.clock.Now()
	for _, o := range h.observers {
		o.Observe(h.seq, at, stocks)
	}
	return delivered
}

// Broadcast pushes stocks to all current subscribers. A failing client is
// logged and skipped; there is no retry since the next tick supersedes it.
func (h *Hub) Broadcast(stocks []models.Stock) int {
	payload, err := protocol.EncodeStocksUpdate(stocks)
	if err != nil {
		h.logger.Error("Encode broadcast failed", zap.Error(err))
		return 0
	}

	h.mu.RLock()
	clients := make([]ClientInterface, 0, len(h.subscribers))
	for c := range h.subscribers {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, c := range clients {
		if err := c.SendBytes(payload); err != nil {
			h.logger.Debug("Push dropped", zap.String("client", c.ID()), zap.Error(err))
			continue
		}
		delivered++
	}
	return delivered
}

// Run drives the global timer when configured and shuts the hub down once
// ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	if !h.perConnection {
		loop := tickloop.Start(h.clock, h.interval, func() { h.Tick() })
		defer loop.Stop()
	}
	<-ctx.Done()
	h.Shutdown()
}

// Shutdown disconnects every subscriber. Later registrations are refused.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	h.closed = true
	subs := h.subscribers
	h.subscribers = make(map[ClientInterface]*Subscription)
	h.mu.Unlock()

	for c, sub := range subs {
		sub.disconnect()
		c.Close()
	}
	h.logger.Info("Hub shut down", zap.Int("disconnected", len(subs)))
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

func (h *Hub) Subscription(client ClientInterface) (*Subscription, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	sub, ok := h.subscribers[client]
	return sub, ok
}

// Seq is the number of ticks applied so far.
func (h *Hub) Seq() uint64 {
	h.turn.Lock()
	defer h.turn.Unlock()
	return h.seq
}
