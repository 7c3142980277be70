package quotes

import "github.com/shubham-shewale/stockpulse/pkg/models"

func stock(id, symbol, name string, price, change, changePercent, open, high, low float64,
	volume, marketCap int64, sector string, prediction models.Prediction, score float64) models.Stock {
	return models.Stock{
		ID:            id,
		Symbol:        symbol,
		Name:          name,
		Price:         price,
		Change:        change,
		ChangePercent: changePercent,
		Open:          open,
		High:          high,
		Low:           low,
		Volume:        volume,
		MarketCap:     marketCap,
		Sector:        sector,
		Prediction:    prediction,
		Sentiment:     models.Sentiment{Score: score, News: []models.NewsItem{}},
	}
}

// DefaultSeed is the universe the gateway starts with.
func DefaultSeed() []models.Stock {
	return []models.Stock{
		stock("1", "AAPL", "Apple Inc.", 189.30, 5.23, 2.84, 184.07, 189.50, 183.95,
			68590000, 2950000000000, "Technology", models.PredictionBull, 0.7),
		stock("2", "MSFT", "Microsoft Corporation", 410.34, 12.87, 3.24, 397.47, 411.12, 397.05,
			23680000, 3050000000000, "Technology", models.PredictionBull, 0.8),
		stock("3", "GOOG", "Alphabet Inc.", 152.18, 3.45, 2.32, 148.73, 152.40, 148.50,
			24160000, 1910000000000, "Technology", models.PredictionNeutral, 0.3),
	}
}

// ExtendedSeed adds the rest of the dashboard watchlist to DefaultSeed.
func ExtendedSeed() []models.Stock {
	return append(DefaultSeed(),
		stock("4", "AMZN", "Amazon.com, Inc.", 178.75, 1.23, 0.69, 177.52, 179.35, 177.00,
			34560000, 1850000000000, "Consumer Discretionary", models.PredictionBull, 0.5),
		stock("5", "NFLX", "Netflix, Inc.", 572.40, -19.83, -3.35, 592.23, 592.50, 570.75,
			6250000, 249800000000, "Communication Services", models.PredictionShort, -0.4),
		stock("6", "META", "Meta Platforms, Inc.", 472.96, 9.84, 2.13, 463.12, 473.85, 462.90,
			15680000, 1210000000000, "Technology", models.PredictionBull, 0.6),
		stock("7", "TSLA", "Tesla, Inc.", 175.20, -2.34, -1.32, 177.54, 178.20, 174.85,
			86250000, 558000000000, "Consumer Discretionary", models.PredictionNeutral, 0.1),
	)
}
