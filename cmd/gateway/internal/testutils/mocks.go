package testutils

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shubham-shewale/stockpulse/cmd/gateway/internal/tickloop"
	"github.com/shubham-shewale/stockpulse/pkg/models"
	"github.com/shubham-shewale/stockpulse/pkg/protocol"
)

var ErrMockSend = errors.New("mock send failure")

// MockClient simulates a connected websocket client
type MockClient struct {
	IDVal      string
	RawBytes   []string
	Closed     int
	ShouldFail bool
	Mu         sync.Mutex
}

func NewMockClient(id string) *MockClient {
	return &MockClient{IDVal: id}
}

func (m *MockClient) ID() string { return m.IDVal }

func (m *MockClient) Close() {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Closed++
}

func (m *MockClient) SendBytes(b []byte) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.ShouldFail {
		return ErrMockSend
	}
	m.RawBytes = append(m.RawBytes, string(b))
	return nil
}

func (m *MockClient) Count() int {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return len(m.RawBytes)
}

func (m *MockClient) CloseCount() int {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return m.Closed
}

// Updates decodes every stocksUpdate frame received so far.
func (m *MockClient) Updates(t *testing.T) [][]models.Stock {
	t.Helper()
	m.Mu.Lock()
	defer m.Mu.Unlock()

	var out [][]models.Stock
	for _, raw := range m.RawBytes {
		var msg struct {
			Event string         `json:"event"`
			Data  []models.Stock `json:"data"`
		}
		if err := json.Unmarshal([]byte(raw), &msg); err != nil {
			t.Fatalf("undecodable frame %q: %v", raw, err)
		}
		if msg.Event == protocol.EventStocksUpdate {
			out = append(out, msg.Data)
		}
	}
	return out
}

// MockRand replays Values in order, then repeats the last one
type MockRand struct {
	Values []float64
	Mu     sync.Mutex
	i      int
}

func NewMockRand(values ...float64) *MockRand {
	return &MockRand{Values: values}
}

func (m *MockRand) Float64() float64 {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if len(m.Values) == 0 {
		return 0.5
	}
	v := m.Values[min(m.i, len(m.Values)-1)]
	m.i++
	return v
}

// FakeClock is a tickloop.Clock whose tickers only fire on Advance
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*fakeTicker
}

func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) NewTicker(d time.Duration) tickloop.Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTicker{
		ch:     make(chan time.Time, 1),
		period: d,
		next:   c.now.Add(d),
	}
	c.tickers = append(c.tickers, t)
	return t
}

// Advance moves time forward and fires every ticker that came due.
// Like time.Ticker, a ticker whose previous tick is still unread drops the new one.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)

	for _, t := range c.tickers {
		t.mu.Lock()
		for !t.stopped && !t.next.After(c.now) {
			select {
			case t.ch <- t.next:
			default:
			}
			t.next = t.next.Add(t.period)
		}
		t.mu.Unlock()
	}
}

// ActiveTickers counts tickers that have not been stopped.
func (c *FakeClock) ActiveTickers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.tickers {
		t.mu.Lock()
		if !t.stopped {
			n++
		}
		t.mu.Unlock()
	}
	return n
}

type fakeTicker struct {
	mu      sync.Mutex
	ch      chan time.Time
	period  time.Duration
	next    time.Time
	stopped bool
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }

func (t *fakeTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

// MockObserver records ticks handed to it by the hub
type MockObserver struct {
	Seqs   []uint64
	Stocks [][]models.Stock
	Mu     sync.Mutex
}

func (m *MockObserver) Observe(seq uint64, at time.Time, stocks []models.Stock) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Seqs = append(m.Seqs, seq)
	m.Stocks = append(m.Stocks, stocks)
}

func (m *MockObserver) Count() int {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return len(m.Seqs)
}

// SeedStocks is a small fixed universe for tests
func SeedStocks() []models.Stock {
	return []models.Stock{
		{ID: "1", Symbol: "AAPL", Name: "Apple Inc.", Price: 100, Change: 2, ChangePercent: 2.04, Open: 98, High: 101, Low: 97,
			Prediction: models.PredictionBull, Sentiment: models.Sentiment{Score: 0.7, News: []models.NewsItem{}}},
		{ID: "2", Symbol: "MSFT", Name: "Microsoft Corporation", Price: 400, Change: -4, ChangePercent: -0.99, Open: 404, High: 405, Low: 399,
			Prediction: models.PredictionNeutral, Sentiment: models.Sentiment{Score: 0.1, News: []models.NewsItem{}}},
		{ID: "3", Symbol: "GOOG", Name: "Alphabet Inc.", Price: 150, Change: 0, ChangePercent: 0, Open: 150, High: 151, Low: 149,
			Prediction: models.PredictionShort, Sentiment: models.Sentiment{Score: -0.3, News: []models.NewsItem{}}},
	}
}
