package hub_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shubham-shewale/stockpulse/cmd/gateway/internal/hub"
	"github.com/shubham-shewale/stockpulse/cmd/gateway/internal/quotes"
	"github.com/shubham-shewale/stockpulse/cmd/gateway/internal/testutils"
	"github.com/shubham-shewale/stockpulse/pkg/config"
)

const interval = 5 * time.Second

func setup(opts ...hub.Option) (*hub.Hub, *testutils.FakeClock) {
	clock := testutils.NewFakeClock(time.Unix(1700000000, 0))
	store := quotes.NewStore(testutils.SeedStocks(), testutils.NewMockRand(0.9, 0.1, 0.6))
	// per-connection unless a test asks otherwise
	opts = append([]hub.Option{
		hub.WithClock(clock),
		hub.WithInterval(interval),
		hub.WithTickMode(config.TickModePerConnection),
	}, opts...)
	return hub.NewHub(store, zap.NewNop(), opts...), clock
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, time.Second, time.Millisecond)
}

func TestHub_Register_SendsInitialSnapshot(t *testing.T) {
	h, clock := setup()
	client := testutils.NewMockClient("c1")

	sub, err := h.Register(client)
	require.NoError(t, err)

	assert.Equal(t, hub.StateConnected, sub.State())
	assert.NotEmpty(t, sub.ID())
	assert.Equal(t, 1, h.Count())
	assert.Equal(t, 1, clock.ActiveTickers())

	updates := client.Updates(t)
	require.Len(t, updates, 1)
	assert.Equal(t, testutils.SeedStocks(), updates[0])
}

func TestHub_Register_Idempotent(t *testing.T) {
	h, clock := setup()
	client := testutils.NewMockClient("c1")

	first, _ := h.Register(client)
	second, _ := h.Register(client)

	assert.Same(t, first, second)
	assert.Equal(t, 1, client.Count(), "snapshot sent once")
	assert.Equal(t, 1, clock.ActiveTickers(), "timer armed once")
}

func TestHub_Tick_FansOutToEverySubscriber(t *testing.T) {
	h, _ := setup()
	clients := []*testutils.MockClient{
		testutils.NewMockClient("a"),
		testutils.NewMockClient("b"),
		testutils.NewMockClient("c"),
	}
	for _, c := range clients {
		_, err := h.Register(c)
		require.NoError(t, err)
	}

	delivered := h.Tick()
	assert.Equal(t, len(clients), delivered)

	want := clients[0].Updates(t)[1]
	for _, c := range clients {
		updates := c.Updates(t)
		require.Len(t, updates, 2)
		assert.Equal(t, want, updates[1], "every subscriber gets the identical sequence")
	}
	assert.Equal(t, uint64(1), h.Seq())
}

func TestHub_TimerOfOneSubscriptionBroadcastsToAll(t *testing.T) {
	h, clock := setup()
	a := testutils.NewMockClient("a")
	b := testutils.NewMockClient("b")

	_, err := h.Register(a)
	require.NoError(t, err)

	// b connects half an interval later, so only a's timer is due first
	clock.Advance(interval / 2)
	_, err = h.Register(b)
	require.NoError(t, err)

	clock.Advance(interval / 2)
	waitFor(t, func() bool { return a.Count() == 2 && b.Count() == 2 })

	assert.Equal(t, a.Updates(t)[1], b.Updates(t)[1])
	assert.Equal(t, uint64(1), h.Seq())
}

func TestHub_PerConnectionDriftScalesWithConnections(t *testing.T) {
	h, clock := setup()
	a := testutils.NewMockClient("a")
	_, _ = h.Register(a)
	_, _ = h.Register(testutils.NewMockClient("b"))

	clock.Advance(interval)
	// both timers fire, each ticks the shared store and broadcasts to both
	waitFor(t, func() bool { return a.Count() == 3 })
	assert.Equal(t, uint64(2), h.Seq())
}

func TestHub_Unregister_StopsTimer(t *testing.T) {
	h, clock := setup()
	a := testutils.NewMockClient("a")
	b := testutils.NewMockClient("b")

	subA, _ := h.Register(a)
	_, _ = h.Register(b)
	loopA := subA.Loop()
	require.NotNil(t, loopA)

	assert.True(t, h.Unregister(a))
	assert.Equal(t, hub.StateDisconnected, subA.State())
	assert.Equal(t, 1, a.CloseCount())
	assert.Equal(t, 1, clock.ActiveTickers())

	for i := 0; i < 3; i++ {
		clock.Advance(interval)
		waitFor(t, func() bool { return b.Count() == 2+i })
	}

	assert.Equal(t, 0, loopA.Fires(), "no tick may come from a cancelled subscription")
	assert.Equal(t, 1, a.Count(), "unregistered client receives nothing more")
	assert.Equal(t, uint64(3), h.Seq())
}

func TestHub_Unregister_Twice(t *testing.T) {
	h, _ := setup()
	client := testutils.NewMockClient("c1")
	_, _ = h.Register(client)

	assert.True(t, h.Unregister(client))
	assert.False(t, h.Unregister(client))
	assert.Equal(t, 1, client.CloseCount())
	assert.Equal(t, 0, h.Count())
}

func TestHub_Unregister_Unknown(t *testing.T) {
	h, _ := setup()
	assert.False(t, h.Unregister(testutils.NewMockClient("ghost")))
}

func TestHub_FailingClientDoesNotBlockOthers(t *testing.T) {
	h, _ := setup()
	good := testutils.NewMockClient("good")
	bad := testutils.NewMockClient("bad")

	_, _ = h.Register(good)
	_, _ = h.Register(bad)

	bad.Mu.Lock()
	bad.ShouldFail = true
	bad.Mu.Unlock()

	assert.Equal(t, 1, h.Tick())
	assert.Equal(t, 1, h.Tick())
	assert.Len(t, good.Updates(t), 3)
	assert.Equal(t, 2, h.Count(), "failed push is not a disconnect")
}

func TestHub_TicksKeepInvariants(t *testing.T) {
	h, _ := setup()
	client := testutils.NewMockClient("c1")
	_, _ = h.Register(client)

	for i := 0; i < 50; i++ {
		h.Tick()
	}

	updates := client.Updates(t)
	require.Len(t, updates, 51)
	for i := 1; i < len(updates); i++ {
		for j, st := range updates[i] {
			prev := updates[i-1][j]
			assert.Equal(t, prev.ID, st.ID, "order is stable")
			assert.LessOrEqual(t, st.Low, st.Price)
			assert.GreaterOrEqual(t, st.High, st.Price)
			assert.GreaterOrEqual(t, st.High, prev.High)
			assert.LessOrEqual(t, st.Low, prev.Low)
		}
	}
}

func TestHub_Observers(t *testing.T) {
	obs := &testutils.MockObserver{}
	h, _ := setup(hub.WithObserver(obs))
	_, _ = h.Register(testutils.NewMockClient("c1"))

	h.Tick()
	h.Tick()

	assert.Equal(t, []uint64{1, 2}, obs.Seqs)
	assert.Len(t, obs.Stocks[1], 3)
}

func TestHub_GlobalMode(t *testing.T) {
	h, clock := setup(hub.WithTickMode(config.TickModeGlobal))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	clients := []*testutils.MockClient{testutils.NewMockClient("a"), testutils.NewMockClient("b"), testutils.NewMockClient("c")}
	for _, c := range clients {
		sub, err := h.Register(c)
		require.NoError(t, err)
		assert.Nil(t, sub.Loop(), "no per-connection timer in global mode")
	}
	waitFor(t, func() bool { return clock.ActiveTickers() == 1 })

	clock.Advance(interval)
	waitFor(t, func() bool { return h.Seq() == 1 })
	for _, c := range clients {
		waitFor(t, func() bool { return c.Count() == 2 })
	}

	cancel()
	<-done
	assert.Equal(t, 0, h.Count())
	assert.Equal(t, 0, clock.ActiveTickers())
	for _, c := range clients {
		assert.Equal(t, 1, c.CloseCount())
	}
}

func TestHub_Shutdown_RefusesNewClients(t *testing.T) {
	h, clock := setup()
	existing := testutils.NewMockClient("old")
	_, _ = h.Register(existing)

	h.Shutdown()
	assert.Equal(t, 0, clock.ActiveTickers())
	assert.Equal(t, 1, existing.CloseCount())

	late := testutils.NewMockClient("late")
	_, err := h.Register(late)
	assert.ErrorIs(t, err, hub.ErrHubClosed)
	assert.Equal(t, 1, late.CloseCount())
	assert.Equal(t, 0, late.Count())
}

func TestHub_RaceCondition(t *testing.T) {
	// Run with `go test -race ./...`
	h, clock := setup()
	client := testutils.NewMockClient("c1")
	done := make(chan struct{}, 3)

	go func() {
		_, _ = h.Register(client)
		done <- struct{}{}
	}()
	go func() {
		h.Tick()
		done <- struct{}{}
	}()
	go func() {
		h.Unregister(client)
		done <- struct{}{}
	}()
	for i := 0; i < 3; i++ {
		<-done
	}

	// whichever order ran, a lingering registration still owns its timer
	h.Unregister(client)
	assert.Equal(t, 0, clock.ActiveTickers())
}
