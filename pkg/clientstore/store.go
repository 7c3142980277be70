// Package clientstore holds a consumer's view of the market feed: the latest
// snapshot set plus local selection state.
package clientstore

import (
	"sync"

	"github.com/shubham-shewale/stockpulse/pkg/models"
)

type ChartMode string

const (
	ChartCandle ChartMode = "candle"
	ChartLine   ChartMode = "line"
)

// View is what listeners receive after every change.
type View struct {
	Stocks    []models.Stock
	Selected  *models.Stock
	ChartMode ChartMode
	Timeframe models.Timeframe
}

type Store struct {
	mu         sync.RWMutex
	stocks     []models.Stock
	selectedID string
	chartMode  ChartMode
	timeframe  models.Timeframe

	listeners map[int]func(View)
	nextID    int
}

func New() *Store {
	return &Store{
		chartMode: ChartCandle,
		timeframe: models.Timeframe1M,
		listeners: make(map[int]func(View)),
	}
}

// OnUpdate replaces the held snapshots wholesale. The selection survives if
// its id is still present; otherwise it falls back to the first stock, or to
// nothing when the update is empty.
func (s *Store) OnUpdate(stocks []models.Stock) {
	s.mu.Lock()
	s.stocks = make([]models.Stock, len(stocks))
	for i, st := range stocks {
		s.stocks[i] = st.Clone()
	}

	if s.indexOf(s.selectedID) < 0 {
		s.selectedID = ""
		if len(s.stocks) > 0 {
			s.selectedID = s.stocks[0].ID
		}
	}
	view, listeners := s.viewLocked(), s.listenersLocked()
	s.mu.Unlock()

	notify(listeners, view)
}

func (s *Store) Stocks() []models.Stock {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Stock, len(s.stocks))
	for i, st := range s.stocks {
		out[i] = st.Clone()
	}
	return out
}

// Select picks a stock by id. Unknown ids leave the selection unchanged.
func (s *Store) Select(id string) bool {
	s.mu.Lock()
	if s.indexOf(id) < 0 {
		s.mu.Unlock()
		return false
	}
	s.selectedID = id
	view, listeners := s.viewLocked(), s.listenersLocked()
	s.mu.Unlock()

	notify(listeners, view)
	return true
}

func (s *Store) Selected() (models.Stock, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(s.selectedID)
	if i < 0 {
		return models.Stock{}, false
	}
	return s.stocks[i].Clone(), true
}

func (s *Store) SetTimeframe(tf models.Timeframe) bool {
	if !tf.Valid() {
		return false
	}
	s.mu.Lock()
	s.timeframe = tf
	view, listeners := s.viewLocked(), s.listenersLocked()
	s.mu.Unlock()

	notify(listeners, view)
	return true
}

func (s *Store) Timeframe() models.Timeframe {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.timeframe
}

func (s *Store) SetChartMode(m ChartMode) bool {
	if m != ChartCandle && m != ChartLine {
		return false
	}
	s.mu.Lock()
	s.chartMode = m
	view, listeners := s.viewLocked(), s.listenersLocked()
	s.mu.Unlock()

	notify(listeners, view)
	return true
}

func (s *Store) ChartMode() ChartMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chartMode
}

func (s *Store) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewLocked()
}

// Subscribe registers fn to be called after every change. The returned
// function removes it.
func (s *Store) Subscribe(fn func(View)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// Reset drops everything, as when the consuming view goes away.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stocks = nil
	s.selectedID = ""
	s.chartMode = ChartCandle
	s.timeframe = models.Timeframe1M
	s.listeners = make(map[int]func(View))
}

func (s *Store) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i, st := range s.stocks {
		if st.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) viewLocked() View {
	v := View{
		Stocks:    make([]models.Stock, len(s.stocks)),
		ChartMode: s.chartMode,
		Timeframe: s.timeframe,
	}
	for i, st := range s.stocks {
		v.Stocks[i] = st.Clone()
	}
	if i := s.indexOf(s.selectedID); i >= 0 {
		sel := v.Stocks[i]
		v.Selected = &sel
	}
	return v
}

func (s *Store) listenersLocked() []func(View) {
	out := make([]func(View), 0, len(s.listeners))
	for _, fn := range s.listeners {
		out = append(out, fn)
	}
	return out
}

func notify(listeners []func(View), v View) {
	for _, fn := range listeners {
		fn(v)
	}
}
