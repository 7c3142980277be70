package clientstore

import (
	"sort"
	"strings"

	"github.com/shubham-shewale/stockpulse/pkg/models"
)

// Filter keeps stocks whose symbol or name contains term, ignoring case.
func Filter(stocks []models.Stock, term string) []models.Stock {
	term = strings.ToLower(strings.TrimSpace(term))
	out := make([]models.Stock, 0, len(stocks))
	for _, st := range stocks {
		if term == "" ||
			strings.Contains(strings.ToLower(st.Symbol), term) ||
			strings.Contains(strings.ToLower(st.Name), term) {
			out = append(out, st)
		}
	}
	return out
}

// TopMovers returns up to n gainers (largest positive changePercent first)
// and up to n losers (most negative first).
func TopMovers(stocks []models.Stock, n int) (gainers, losers []models.Stock) {
	for _, st := range stocks {
		switch {
		case st.ChangePercent > 0:
			gainers = append(gainers, st)
		case st.ChangePercent < 0:
			losers = append(losers, st)
		}
	}
	sort.SliceStable(gainers, func(i, j int) bool { return gainers[i].ChangePercent > gainers[j].ChangePercent })
	sort.SliceStable(losers, func(i, j int) bool { return losers[i].ChangePercent < losers[j].ChangePercent })

	if len(gainers) > n {
		gainers = gainers[:n]
	}
	if len(losers) > n {
		losers = losers[:n]
	}
	return gainers, losers
}
