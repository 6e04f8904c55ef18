// Package pricing computes effective tire prices under promotions. Tires
// sell in sets of four, so every quote carries both the per-unit price and
// the price for a set of 4.
package pricing

import (
	"fmt"
	"math"

	"tirestock-backend/models"
)

// Quote is the evaluated price of one tire under one promotion.
// PerUnit is a pointer so callers can hide it for roles that may only see
// bundled prices.
type Quote struct {
	PerUnit     *float64 `json:"price_per_item"`
	ForFour     float64  `json:"price_for_4"`
	Description string   `json:"description"`
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func f(v float64) *float64 { return &v }

// Evaluate computes the effective price for base price per item under p.
// The caller is responsible for checking that p is active and that the
// caller may see retail prices.
func Evaluate(base float64, p models.Promotion) (Quote, error) {
	switch p.Kind {
	case models.PromoBuyXGetY:
		x := p.V1
		var y float64
		if p.V2 != nil {
			y = *p.V2
		}
		if x < 1 || y < 1 {
			return Quote{}, fmt.Errorf("buy_x_get_y requires x >= 1 and y >= 1, got x=%v y=%v", x, y)
		}
		perUnit := round2(base * x / (x + y))
		return Quote{
			PerUnit:     f(perUnit),
			ForFour:     round2(base * 4 * x / (x + y)),
			Description: fmt.Sprintf("ซื้อ %.0f แถม %.0f", x, y),
		}, nil

	case models.PromoPercentageDiscount:
		if p.V1 <= 0 || p.V1 > 100 {
			return Quote{}, fmt.Errorf("percentage_discount requires 0 < percent <= 100, got %v", p.V1)
		}
		perUnit := round2(base * (1 - p.V1/100))
		return Quote{
			PerUnit:     f(perUnit),
			ForFour:     round2(perUnit * 4),
			Description: fmt.Sprintf("ลด %.0f%%", p.V1),
		}, nil

	case models.PromoFixedPricePerN:
		if p.V1 <= 0 {
			return Quote{}, fmt.Errorf("fixed_price_per_n requires a positive price, got %v", p.V1)
		}
		n := 4.0
		if p.V2 != nil && *p.V2 >= 1 {
			n = *p.V2
		}
		perUnit := round2(p.V1 / n)
		return Quote{
			PerUnit:     f(perUnit),
			ForFour:     round2(perUnit * 4),
			Description: fmt.Sprintf("%.0f เส้น %.0f", n, p.V1),
		}, nil
	}
	return Quote{}, fmt.Errorf("unknown promotion kind %q", p.Kind)
}

// BundlePrice returns the total price for qty tires, applying p when it is
// non-nil and active. Used by the chatbot quote for bundle sizes 1, 2, 4.
func BundlePrice(base float64, p *models.Promotion, qty int) float64 {
	if p == nil || !p.IsActive {
		return round2(base * float64(qty))
	}
	q, err := Evaluate(base, *p)
	if err != nil || q.PerUnit == nil {
		return round2(base * float64(qty))
	}
	if qty == 4 {
		return q.ForFour
	}
	return round2(*q.PerUnit * float64(qty))
}
