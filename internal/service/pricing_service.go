package service

import (
	"math"
	"regexp"
	"strconv"

	"github.com/aditya/ridequote/internal/models"
)

// DefaultPickupETA is used when a partner's response time has no number in it.
const DefaultPickupETA = 10

var integerPattern = regexp.MustCompile(`\d+`)

// QuoteCandidate is the pricing engine's view of a quote before persistence.
type QuoteCandidate struct {
	Price            float64
	EstimatedArrival int
	Tag              string
}

type PricingService interface {
	Price(partner *models.Partner, distanceKm float64) float64
	PickupETA(partner *models.Partner) int
	AssignTags(quotes []*QuoteCandidate)
	EstimateDistance(pickupLat, pickupLng, dropoffLat, dropoffLng float64) float64
	EstimateDuration(distanceKm float64) int
}

type pricingService struct{}

func NewPricingService() PricingService {
	return &pricingService{}
}

// Price is base rate plus the per-km rate over the trip distance, in currency
// units rounded to cents.
func (s *pricingService) Price(partner *models.Partner, distanceKm float64) float64 {
	if distanceKm < 0 {
		distanceKm = 0
	}
	return round(partner.BaseRate + distanceKm*partner.PerKmRate)
}

func (s *pricingService) PickupETA(partner *models.Partner) int {
	return ParseAverageResponseTime(partner.AverageResponseTime)
}

// AssignTags marks the cheapest quote "Best Price" and, among the others, the
// quickest pickup "Fastest". Ties go to the earliest entry in the slice.
func (s *pricingService) AssignTags(quotes []*QuoteCandidate) {
	for _, q := range quotes {
		q.Tag = ""
	}
	if len(quotes) == 0 {
		return
	}

	best := 0
	for i, q := range quotes {
		if q.Price < quotes[best].Price {
			best = i
		}
	}
	quotes[best].Tag = models.TagBestPrice

	fastest := -1
	for i, q := range quotes {
		if i == best {
			continue
		}
		if fastest == -1 || q.EstimatedArrival < quotes[fastest].EstimatedArrival {
			fastest = i
		}
	}
	if fastest >= 0 {
		quotes[fastest].Tag = models.TagFastest
	}
}

// EstimateDistance calculates straight-line distance and multiplies by road factor
func (s *pricingService) EstimateDistance(pickupLat, pickupLng, dropoffLat, dropoffLng float64) float64 {
	straightLine := haversineDistance(pickupLat, pickupLng, dropoffLat, dropoffLng)
	return round(straightLine * 1.3)
}

// EstimateDuration assumes 25 km/h average city speed with a 5 minute floor
func (s *pricingService) EstimateDuration(distanceKm float64) int {
	durationMins := int(math.Ceil(distanceKm / 25.0 * 60))
	if durationMins < 5 {
		durationMins = 5
	}
	return durationMins
}

// ParseAverageResponseTime reads a free-text partner response time such as
// "5-10 minutes", "< 5 mins" or "15 mins". A single number is used as is, a
// range is averaged and rounded up, and text without numbers yields the default.
func ParseAverageResponseTime(text string) int {
	matches := integerPattern.FindAllString(text, -1)

	nums := make([]int, 0, 2)
	for _, m := range matches {
		n, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		nums = append(nums, n)
		if len(nums) == 2 {
			break
		}
	}

	switch len(nums) {
	case 0:
		return DefaultPickupETA
	case 1:
		return nums[0]
	default:
		return int(math.Ceil(float64(nums[0]+nums[1]) / 2))
	}
}

// haversineDistance calculates the distance in km between two points on Earth
func haversineDistance(lat1, lng1, lat2, lng2 float64) float64 {
	const earthRadius = 6371 // km

	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLng/2)*math.Sin(deltaLng/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}

func round(f float64) float64 {
	return math.Round(f*100) / 100
}
