package quotes_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shubham-shewale/stockpulse/cmd/gateway/internal/quotes"
	"github.com/shubham-shewale/stockpulse/cmd/gateway/internal/testutils"
	"github.com/shubham-shewale/stockpulse/pkg/models"
)

func TestStore_GetPreservesSeedOrder(t *testing.T) {
	store := quotes.NewStore(quotes.DefaultSeed(), testutils.NewMockRand())

	got := store.Get()
	require.Len(t, got, 3)
	assert.Equal(t, []string{"AAPL", "MSFT", "GOOG"}, []string{got[0].Symbol, got[1].Symbol, got[2].Symbol})
	assert.NotNil(t, got[0].Sentiment.News, "news must encode as [] rather than null")
}

func TestStore_GetReturnsCopy(t *testing.T) {
	store := quotes.NewStore(quotes.DefaultSeed(), testutils.NewMockRand())

	got := store.Get()
	got[0].Price = -1

	st, ok := store.Find("1")
	require.True(t, ok)
	assert.Equal(t, 189.30, st.Price)
}

func TestStore_DuplicateIDsKeepFirst(t *testing.T) {
	seed := testutils.SeedStocks()
	dup := seed[0]
	dup.Symbol = "DUPE"
	store := quotes.NewStore(append(seed, dup), testutils.NewMockRand())

	assert.Equal(t, 3, store.Len())
	st, _ := store.Find("1")
	assert.Equal(t, "AAPL", st.Symbol)
}

func TestStore_SeedBoundsAreWidened(t *testing.T) {
	seed := []models.Stock{{ID: "x", Symbol: "X", Price: 12, Open: 8, High: 10, Low: 9}}
	store := quotes.NewStore(seed, testutils.NewMockRand())

	st, _ := store.Find("x")
	assert.Equal(t, 12.0, st.High)
	assert.Equal(t, 8.0, st.Low)
}

func TestStore_Find(t *testing.T) {
	store := quotes.NewStore(quotes.DefaultSeed(), testutils.NewMockRand())

	st, ok := store.Find("2")
	require.True(t, ok)
	assert.Equal(t, "MSFT", st.Symbol)

	_, ok = store.Find("nonexistent")
	assert.False(t, ok)
}

func TestStore_EmptyTick(t *testing.T) {
	store := quotes.NewStore(nil, testutils.NewMockRand())
	assert.Empty(t, store.ApplyTick())
	assert.Empty(t, store.Get())
}

func TestPerturb_ChangePercentUsesPreTickPrice(t *testing.T) {
	st := models.Stock{Price: 100, Change: 2, ChangePercent: 2.04, Open: 98, High: 100.5, Low: 97}

	got := quotes.Perturb(st, 1)

	assert.Equal(t, 101.0, got.Price)
	assert.Equal(t, 3.0, got.Change)
	// (1/100)*100, not (1/101)*100
	assert.InDelta(t, 3.04, got.ChangePercent, 1e-9)
	assert.Equal(t, 101.0, got.High)
	assert.Equal(t, 97.0, got.Low)
	assert.Equal(t, 98.0, got.Open)
}

func TestPerturb_DownMoveWidensLow(t *testing.T) {
	st := models.Stock{Price: 100, Open: 100, High: 101, Low: 99.8}

	got := quotes.Perturb(st, -0.5)

	assert.Equal(t, 99.5, got.Price)
	assert.Equal(t, 99.5, got.Low)
	assert.Equal(t, 101.0, got.High)
	assert.InDelta(t, -0.5, got.ChangePercent, 1e-9)
}

func TestPerturb_RoundsToTwoPlaces(t *testing.T) {
	st := models.Stock{Price: 189.30, Open: 184.07, High: 189.50, Low: 183.95}

	got := quotes.Perturb(st, 0.123456)
	assert.Equal(t, 189.42, got.Price)

	again := quotes.Perturb(st, 0.123456)
	assert.Equal(t, got, again, "same delta must give the same result")
}

func TestStore_ApplyTickUsesRandomDelta(t *testing.T) {
	// 1.0 -> +0.5% of price, 0.0 -> -0.5% of price, 0.5 -> unchanged
	store := quotes.NewStore(testutils.SeedStocks(), testutils.NewMockRand(1.0, 0.0, 0.5))

	got := store.ApplyTick()
	require.Len(t, got, 3)

	assert.Equal(t, 100.5, got[0].Price)
	assert.Equal(t, 398.0, got[1].Price)
	assert.Equal(t, 150.0, got[2].Price)
	assert.Equal(t, 398.0, got[1].Low)
}

func TestStore_InvariantsHoldOverManyTicks(t *testing.T) {
	rnd := quotes.RealRand{Rand: rand.New(rand.NewSource(42))}
	store := quotes.NewStore(quotes.ExtendedSeed(), rnd)

	prevHigh := map[string]float64{}
	prevLow := map[string]float64{}
	for _, st := range store.Get() {
		prevHigh[st.ID], prevLow[st.ID] = st.High, st.Low
	}

	for i := 0; i < 2000; i++ {
		before := store.Get()
		after := store.ApplyTick()
		for j, st := range after {
			assert.LessOrEqual(t, st.Low, st.Price)
			assert.LessOrEqual(t, st.Price, st.High)
			assert.LessOrEqual(t, st.Low, st.Open)
			assert.LessOrEqual(t, st.Open, st.High)
			assert.GreaterOrEqual(t, st.High, prevHigh[st.ID], "high narrowed")
			assert.LessOrEqual(t, st.Low, prevLow[st.ID], "low narrowed")
			// 0.5% move plus rounding slack
			assert.LessOrEqual(t, abs(st.Price-before[j].Price), before[j].Price*0.005+0.01)
			prevHigh[st.ID], prevLow[st.ID] = st.High, st.Low
		}
		if t.Failed() {
			t.Fatalf("invariant broken at tick %d", i)
		}
	}
}

func TestHistory(t *testing.T) {
	rnd := quotes.RealRand{Rand: rand.New(rand.NewSource(7))}
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	candles := quotes.History(rnd, now, 30, 150)
	require.Len(t, candles, 30)

	assert.Equal(t, now.AddDate(0, 0, -30).Unix(), candles[0].Time)
	assert.Equal(t, now.AddDate(0, 0, -1).Unix(), candles[29].Time)
	for i, c := range candles {
		assert.LessOrEqual(t, c.Low, c.Open)
		assert.LessOrEqual(t, c.Low, c.Close)
		assert.GreaterOrEqual(t, c.High, c.Open)
		assert.GreaterOrEqual(t, c.High, c.Close)
		if i > 0 {
			assert.Greater(t, c.Time, candles[i-1].Time)
		}
	}
}

func TestSimulate(t *testing.T) {
	seed := quotes.DefaultSeed()

	tests := []struct {
		name     string
		stock    models.Stock
		amount   float64
		days     int
		wantPct  float64
		wantRisk models.RiskLevel
		wantConf float64
	}{
		{
			// (0.15 + 1.4/10) * 1 = 0.29
			name: "bullish over a month", stock: seed[0], amount: 1000, days: 30,
			wantPct: 0.29, wantRisk: models.RiskHigh, wantConf: 0.81,
		},
		{
			// (0.03 + 0.6/10) * (7/30) = 0.021
			name: "neutral over a week", stock: seed[2], amount: 500, days: 7,
			wantPct: 0.021, wantRisk: models.RiskMedium, wantConf: 0.69,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// 0.5 makes the noise term zero
			sim := quotes.Simulate(testutils.NewMockRand(0.5), tt.stock, tt.amount, tt.days)

			assert.InDelta(t, tt.wantPct, sim.PredictedReturnPercent, 1e-9)
			assert.InDelta(t, tt.amount*tt.wantPct, sim.PredictedReturn, 1e-9)
			assert.InDelta(t, tt.amount*(1+tt.wantPct), sim.PredictedValue, 1e-9)
			assert.Equal(t, tt.wantRisk, sim.RiskLevel)
			assert.InDelta(t, tt.wantConf, sim.ConfidenceScore, 1e-9)
			assert.Equal(t, tt.days, sim.Timeframe)
		})
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
