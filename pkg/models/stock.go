package models

// Prediction is the directional signal attached to a stock
type Prediction string

const (
	PredictionBull    Prediction = "bull"
	PredictionNeutral Prediction = "neutral"
	PredictionShort   Prediction = "short"
)

func (p Prediction) Valid() bool {
	switch p {
	case PredictionBull, PredictionNeutral, PredictionShort:
		return true
	}
	return false
}

// NewsItem is carried for wire compatibility; the feed never populates it.
type NewsItem struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Summary   string  `json:"summary"`
	Source    string  `json:"source"`
	URL       string  `json:"url"`
	Sentiment float64 `json:"sentiment"` // -1 to 1
	Timestamp int64   `json:"timestamp"` // unix seconds
}

type Sentiment struct {
	Score float64    `json:"score"` // -1 to 1
	News  []NewsItem `json:"news"`
}

// Stock is one row of market state as pushed to dashboards
type Stock struct {
	ID            string     `json:"id"`
	Symbol        string     `json:"symbol"`
	Name          string     `json:"name"`
	Price         float64    `json:"price"`
	Change        float64    `json:"change"`
	ChangePercent float64    `json:"changePercent"`
	Open          float64    `json:"open"`
	High          float64    `json:"high"`
	Low           float64    `json:"low"`
	Volume        int64      `json:"volume"`
	MarketCap     int64      `json:"marketCap"`
	Sector        string     `json:"sector"`
	Prediction    Prediction `json:"prediction"`
	Sentiment     Sentiment  `json:"sentiment"`
}

// Clone returns a copy that shares no slices with s.
func (s Stock) Clone() Stock {
	out := s
	out.Sentiment.News = make([]NewsItem, len(s.Sentiment.News))
	copy(out.Sentiment.News, s.Sentiment.News)
	return out
}

// StockUpdate is a single journaled tick for one stock
type StockUpdate struct {
	Seq       uint64 `json:"seq"`       // monotonic tick counter of the gateway
	Timestamp int64  `json:"timestamp"` // unix micro
	Stock     Stock  `json:"stock"`
}

// Candle is one OHLC point in chart-series form
type Candle struct {
	Time  int64   `json:"time"` // unix seconds
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// LinePoint is one point of a line series
type LinePoint struct {
	Time  int64   `json:"time"` // unix seconds
	Value float64 `json:"value"`
}

type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// Simulation is the outcome of a synthetic investment projection
type Simulation struct {
	Stock                  Stock     `json:"stock"`
	InvestmentAmount       float64   `json:"investmentAmount"`
	PredictedReturn        float64   `json:"predictedReturn"`
	PredictedReturnPercent float64   `json:"predictedReturnPercent"`
	PredictedValue         float64   `json:"predictedValue"`
	Timeframe              int       `json:"timeframe"` // days
	RiskLevel              RiskLevel `json:"riskLevel"`
	ConfidenceScore        float64   `json:"confidenceScore"`
}

// Timeframe is the chart window a dashboard asks for
type Timeframe string

const (
	Timeframe1D Timeframe = "1D"
	Timeframe1W Timeframe = "1W"
	Timeframe1M Timeframe = "1M"
	Timeframe3M Timeframe = "3M"
	Timeframe1Y Timeframe = "1Y"
)

// Days returns the number of daily points for tf, or 0 if tf is unknown.
func (tf Timeframe) Days() int {
	switch tf {
	case Timeframe1D:
		return 1
	case Timeframe1W:
		return 7
	case Timeframe1M:
		return 30
	case Timeframe3M:
		return 90
	case Timeframe1Y:
		return 365
	}
	return 0
}

func (tf Timeframe) Valid() bool { return tf.Days() > 0 }
