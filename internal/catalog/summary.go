package catalog

import (
	"math"

	"github.com/montanaflynn/stats"

	"github.com/ummitifli/storefront/internal/domain"
)

// Summary is the admin dashboard view of the snapshot.
type Summary struct {
	Total       int            `json:"total"`
	InStock     int            `json:"in_stock"`
	Discounted  int            `json:"discounted"`
	ByCategory  map[string]int `json:"by_category"`
	MinPrice    float64        `json:"min_price"`
	MaxPrice    float64        `json:"max_price"`
	MeanPrice   float64        `json:"mean_price"`
	MedianPrice float64        `json:"median_price"`
}

// Summarize computes counts and price statistics. Price fields stay zero for
// an empty catalog.
func Summarize(products []domain.Product) Summary {
	s := Summary{Total: len(products), ByCategory: make(map[string]int)}
	prices := make(stats.Float64Data, 0, len(products))
	for _, p := range products {
		if p.InStock {
			s.InStock++
		}
		if p.HasDiscount() {
			s.Discounted++
		}
		s.ByCategory[p.Category]++
		prices = append(prices, p.Price)
	}
	if len(prices) == 0 {
		return s
	}
	s.MinPrice, _ = prices.Min()
	s.MaxPrice, _ = prices.Max()
	mean, _ := prices.Mean()
	s.MeanPrice = round2(mean)
	median, _ := prices.Median()
	s.MedianPrice = round2(median)
	return s
}

// Summary computes the summary of the current snapshot.
func (c *Catalog) Summary() Summary {
	return Summarize(c.Snapshot())
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
