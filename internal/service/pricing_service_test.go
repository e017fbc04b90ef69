package service

import (
	"testing"

	"github.com/aditya/ridequote/internal/models"
)

func TestPrice(t *testing.T) {
	ps := NewPricingService()

	tests := []struct {
		name       string
		baseRate   float64
		perKmRate  float64
		distanceKm float64
		want       float64
	}{
		{"city corridor", 3.50, 1.20, 5, 9.50},
		{"zero distance is base rate", 4.00, 2.00, 0, 4.00},
		{"rounds to cents", 2.00, 1.333, 3, 6.00}, // 2 + 3.999
		{"fractional distance", 3.00, 1.10, 2.5, 5.75},
		{"negative distance clamps", 3.00, 1.00, -4, 3.00},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &models.Partner{BaseRate: tt.baseRate, PerKmRate: tt.perKmRate}
			if got := ps.Price(p, tt.distanceKm); got != tt.want {
				t.Errorf("Price() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPriceDeterministicAndMonotonic(t *testing.T) {
	ps := NewPricingService()
	p := &models.Partner{BaseRate: 3.50, PerKmRate: 1.20}

	prev := -1.0
	for d := 0.0; d <= 50; d += 0.25 {
		first := ps.Price(p, d)
		if second := ps.Price(p, d); first != second {
			t.Fatalf("Price(%v) not deterministic: %v vs %v", d, first, second)
		}
		if first < prev {
			t.Fatalf("Price(%v) = %v decreased from %v", d, first, prev)
		}
		prev = first
	}
}

func TestParseAverageResponseTime(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"5-10 minutes", 8},
		{"< 5 minutes", 5},
		{"15 mins", 15},
		{"immediate", DefaultPickupETA},
		{"", DefaultPickupETA},
		{"10 to 20", 15},
		{"3-4 mins", 4},
		{"5-10 or 30 at night", 8},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := ParseAverageResponseTime(tt.text); got != tt.want {
				t.Errorf("ParseAverageResponseTime(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}

func TestPickupETA(t *testing.T) {
	ps := NewPricingService()
	p := &models.Partner{AverageResponseTime: "5-10 minutes"}
	if got := ps.PickupETA(p); got != 8 {
		t.Errorf("PickupETA() = %d, want 8", got)
	}
}

func TestAssignTags(t *testing.T) {
	ps := NewPricingService()

	tests := []struct {
		name     string
		quotes   []*QuoteCandidate
		wantTags []string
	}{
		{
			name:     "empty set",
			quotes:   nil,
			wantTags: nil,
		},
		{
			name:     "single quote is best price only",
			quotes:   []*QuoteCandidate{{Price: 9.5, EstimatedArrival: 8}},
			wantTags: []string{models.TagBestPrice},
		},
		{
			name: "fastest among the rest",
			quotes: []*QuoteCandidate{
				{Price: 9.5, EstimatedArrival: 8},
				{Price: 11, EstimatedArrival: 3},
				{Price: 12, EstimatedArrival: 5},
			},
			wantTags: []string{models.TagBestPrice, models.TagFastest, ""},
		},
		{
			name: "cheapest is also fastest",
			quotes: []*QuoteCandidate{
				{Price: 9.5, EstimatedArrival: 2},
				{Price: 11, EstimatedArrival: 6},
				{Price: 12, EstimatedArrival: 5},
			},
			wantTags: []string{models.TagBestPrice, "", models.TagFastest},
		},
		{
			name: "price tie goes to first",
			quotes: []*QuoteCandidate{
				{Price: 10, EstimatedArrival: 9},
				{Price: 10, EstimatedArrival: 4},
				{Price: 13, EstimatedArrival: 4},
			},
			wantTags: []string{models.TagBestPrice, models.TagFastest, ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ps.AssignTags(tt.quotes)

			best, fastest := 0, 0
			for i, q := range tt.quotes {
				if q.Tag != tt.wantTags[i] {
					t.Errorf("quote %d tag = %q, want %q", i, q.Tag, tt.wantTags[i])
				}
				switch q.Tag {
				case models.TagBestPrice:
					best++
				case models.TagFastest:
					fastest++
				}
			}
			if len(tt.quotes) > 0 && best != 1 {
				t.Errorf("%d quotes tagged best price, want exactly 1", best)
			}
			if fastest > 1 {
				t.Errorf("%d quotes tagged fastest, want at most 1", fastest)
			}
		})
	}
}

func TestEstimateDuration(t *testing.T) {
	ps := NewPricingService()

	tests := []struct {
		distanceKm float64
		want       int
	}{
		{0, 5},
		{1, 5},
		{5, 12},
		{10, 24},
		{25, 60},
	}

	for _, tt := range tests {
		if got := ps.EstimateDuration(tt.distanceKm); got != tt.want {
			t.Errorf("EstimateDuration(%v) = %d, want %d", tt.distanceKm, got, tt.want)
		}
	}
}

func TestEstimateDistance(t *testing.T) {
	ps := NewPricingService()

	// London: Westminster to Islington-ish, ~2.6km straight line
	got := ps.EstimateDistance(51.50, -0.12, 51.52, -0.10)
	if got < 3.0 || got > 4.0 {
		t.Errorf("EstimateDistance() = %v, want between 3 and 4 km", got)
	}

	if same := ps.EstimateDistance(51.5, -0.12, 51.5, -0.12); same != 0 {
		t.Errorf("EstimateDistance() for identical points = %v, want 0", same)
	}
}
