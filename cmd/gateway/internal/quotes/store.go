package quotes

import (
	"math/rand"
	randv2 "math/rand/v2"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/shubham-shewale/stockpulse/pkg/models"
)

// Rand is the source of per-tick randomness
type Rand interface {
	Float64() float64
}

type RealRand struct{ *rand.Rand }

func (r RealRand) Float64() float64 { return r.Rand.Float64() }

// GlobalRand is safe for concurrent use, unlike RealRand.
type GlobalRand struct{}

func (GlobalRand) Float64() float64 { return randv2.Float64() }

// Store is the in-memory, ordered set of stock snapshots.
// Display order is insertion order and never changes.
type Store struct {
	mu     sync.RWMutex
	stocks []models.Stock
	index  map[string]int
	rand   Rand
}

func NewStore(seed []models.Stock, rnd Rand) *Store {
	s := &Store{
		stocks: make([]models.Stock, 0, len(seed)),
		index:  make(map[string]int, len(seed)),
		rand:   rnd,
	}

	for _, st := range seed {
		if _, dup := s.index[st.ID]; dup {
			continue
		}
		st = st.Clone()
		if st.Sentiment.News == nil {
			st.Sentiment.News = []models.NewsItem{}
		}
		st.High = max(st.High, st.Open, st.Price)
		st.Low = min(st.Low, st.Open, st.Price)

		s.index[st.ID] = len(s.stocks)
		s.stocks = append(s.stocks, st)
	}
	return s
}

// Get returns a copy of the current snapshots in display order.
func (s *Store) Get() []models.Stock {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot()
}

func (s *Store) Find(id string) (models.Stock, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return models.Stock{}, false
	}
	return s.stocks[i].Clone(), true
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.stocks)
}

// ApplyTick moves every price by at most ±0.5% and returns the new state.
func (s *Store) ApplyTick() []models.Stock {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.stocks {
		delta := (s.rand.Float64() - 0.5) * 0.01 * s.stocks[i].Price
		s.stocks[i] = Perturb(s.stocks[i], delta)
	}
	return s.snapshot()
}

func (s *Store) snapshot() []models.Stock {
	out := make([]models.Stock, len(s.stocks))
	for i, st := range s.stocks {
		out[i] = st.Clone()
	}
	return out
}

// Perturb applies one price move of delta to st.
//
// changePercent accumulates delta relative to the pre-move price rather than
// being recomputed from change/open. Dashboards already rely on this drift.
func Perturb(st models.Stock, delta float64) models.Stock {
	price := round2(st.Price + delta)

	if st.Price != 0 {
		st.ChangePercent = round2(st.ChangePercent + (delta/st.Price)*100)
	}
	st.Change = round2(st.Change + delta)
	st.Price = price
	st.High = max(st.High, price)
	st.Low = min(st.Low, price)
	return st
}

// round2 rounds half away from zero at two decimal places.
func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
