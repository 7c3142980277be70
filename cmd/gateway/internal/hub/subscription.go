package hub

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shubham-shewale/stockpulse/cmd/gateway/internal/tickloop"
)

type State int

const (
	StateConnected State = iota
	StateDisconnected
)

func (s State) String() string {
	if s == StateConnected {
		return "connected"
	}
	return "disconnected"
}

// Subscription is one live client and, in per-connection mode, its timer.
type Subscription struct {
	id          string
	client      ClientInterface
	connectedAt time.Time

	mu    sync.Mutex
	state State
	loop  *tickloop.Loop
}

func newSubscription(client ClientInterface, now time.Time) *Subscription {
	return &Subscription{
		id:          uuid.NewString(),
		client:      client,
		connectedAt: now,
		state:       StateConnected,
	}
}

func (s *Subscription) ID() string             { return s.id }
func (s *Subscription) Client() ClientInterface { return s.client }
func (s *Subscription) ConnectedAt() time.Time  { return s.connectedAt }

func (s *Subscription) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Loop is nil in global tick mode.
func (s *Subscription) Loop() *tickloop.Loop {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loop
}

// arm attaches the timer. A subscription that already disconnected gets the
// timer stopped right away.
func (s *Subscription) arm(l *tickloop.Loop) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateDisconnected {
		l.Stop()
		return
	}
	s.loop = l
}

// disconnect moves to the terminal state and cancels the timer. Only the
// first call has any effect.
func (s *Subscription) disconnect() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateDisconnected {
		return false
	}
	s.state = StateDisconnected
	if s.loop != nil {
		s.loop.Stop()
	}
	return true
}
