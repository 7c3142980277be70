package quotes

import (
	"math"
	"time"

	"github.com/shubham-shewale/stockpulse/pkg/models"
)

const historyVolatility = 0.02

// History produces a daily random-walk candle series of the given length,
// ending the day before now. Candles always satisfy low <= open,close <= high.
func History(rnd Rand, now time.Time, days int, startPrice float64) []models.Candle {
	out := make([]models.Candle, 0, days)
	price := startPrice

	for i := 0; i < days; i++ {
		day := now.AddDate(0, 0, -(days - i))

		change := (rnd.Float64() - 0.5) * historyVolatility * price
		price += change
		swing := math.Abs(change) * 0.5

		open := price - rnd.Float64()*change*0.5
		high := math.Max(price, open) + rnd.Float64()*swing
		low := math.Min(price, open) - rnd.Float64()*swing

		out = append(out, models.Candle{
			Time:  day.Unix(),
			Open:  round2(open),
			High:  round2(high),
			Low:   round2(low),
			Close: round2(price),
		})
	}
	return out
}

// Simulate projects a synthetic return for amount invested in st over days.
func Simulate(rnd Rand, st models.Stock, amount float64, days int) models.Simulation {
	sentimentFactor := st.Sentiment.Score * 2

	predictionFactor := 0.03
	switch st.Prediction {
	case models.PredictionBull:
		predictionFactor = 0.15
	case models.PredictionShort:
		predictionFactor = -0.12
	}

	base := (predictionFactor + sentimentFactor/10) * (float64(days) / 30)
	noise := rnd.Float64()*0.05 - 0.025
	pct := base + noise
	ret := amount * pct

	volatility := 0.0
	if st.Price != 0 {
		volatility = math.Abs(st.Change / st.Price)
	}

	risk := models.RiskMedium
	switch {
	case volatility < 0.01 && math.Abs(pct) < 0.1:
		risk = models.RiskLow
	case volatility > 0.03 || math.Abs(pct) > 0.25:
		risk = models.RiskHigh
	}

	confidence := math.Min(0.95, math.Max(0.3, 0.6+math.Abs(st.Sentiment.Score)*0.3))

	return models.Simulation{
		Stock:                  st,
		InvestmentAmount:       amount,
		PredictedReturn:        ret,
		PredictedReturnPercent: pct,
		PredictedValue:         amount + ret,
		Timeframe:              days,
		RiskLevel:              risk,
		ConfidenceScore:        confidence,
	}
}
