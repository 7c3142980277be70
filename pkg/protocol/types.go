package protocol

import (
	"encoding/json"

	"github.com/shubham-shewale/stockpulse/pkg/models"
)

const (
	EventStocksUpdate = "stocksUpdate"
	EventPing         = "ping"
	EventPong         = "pong"
)

// Message is the envelope of every server-to-client frame
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// ClientMessage is what a client may send. The feed is read-only; only
// keepalive pings are answered.
type ClientMessage struct {
	Event string `json:"event"`
}

// EncodeStocksUpdate renders the full snapshot sequence as one frame.
func EncodeStocksUpdate(stocks []models.Stock) ([]byte, error) {
	if stocks == nil {
		stocks = []models.Stock{}
	}
	return json.Marshal(Message{Event: EventStocksUpdate, Data: stocks})
}

func EncodePong() []byte {
	b, _ := json.Marshal(Message{Event: EventPong})
	return b
}
