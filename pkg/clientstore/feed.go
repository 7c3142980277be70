package clientstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/shubham-shewale/stockpulse/pkg/models"
	"github.com/shubham-shewale/stockpulse/pkg/protocol"
)

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Feed consumes a gateway's websocket and keeps a Store current.
type Feed struct {
	url    string
	store  *Store
	logger *zap.Logger
	dialer *websocket.Dialer
}

func NewFeed(url string, store *Store, logger *zap.Logger) *Feed {
	return &Feed{
		url:    url,
		store:  store,
		logger: logger,
		dialer: websocket.DefaultDialer,
	}
}

// Run reads updates until ctx is cancelled (returns nil) or the connection
// fails (returns the error).
func (f *Feed) Run(ctx context.Context) error {
	conn, _, err := f.dialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", f.url, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		conn.Close()
	})
	defer stop()

	f.logger.Info("Feed connected", zap.String("url", f.url))

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		if err := f.handle(raw); err != nil {
			f.logger.Warn("Skipping frame", zap.Error(err))
		}
	}
}

var errUnexpectedPayload = errors.New("unexpected payload")

func (f *Feed) handle(raw []byte) error {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%w: %v", errUnexpectedPayload, err)
	}
	if env.Event != protocol.EventStocksUpdate {
		return nil
	}

	var stocks []models.Stock
	if err := json.Unmarshal(env.Data, &stocks); err != nil {
		return fmt.Errorf("%w: %v", errUnexpectedPayload, err)
	}
	f.store.OnUpdate(stocks)
	return nil
}
