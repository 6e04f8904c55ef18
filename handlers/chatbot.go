package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"tirestock-backend/config"
	"tirestock-backend/models"
	"tirestock-backend/pricing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ChatbotHandler serves the keyed read endpoint the LINE bot calls. The
// caller sees stock and retail bundle prices, never costs.
type ChatbotHandler struct {
	DB *gorm.DB
}

var bundleSizes = []int{1, 2, 4}

type chatbotBundle struct {
	Quantity   int     `json:"quantity"`
	TotalPrice float64 `json:"total_price"`
	Profitable bool    `json:"profitable"`
}

type chatbotTire struct {
	ID        uint            `json:"id"`
	Brand     string          `json:"brand"`
	Model     string          `json:"model"`
	Size      string          `json:"size"`
	Quantity  int             `json:"quantity"`
	Promotion *string         `json:"promotion,omitempty"`
	Bundles   []chatbotBundle `json:"bundles"`
}

// minProfitPerTire reads the profitability threshold, preferring the
// settings row over the environment so admins can tune it at runtime.
func minProfitPerTire(db *gorm.DB) float64 {
	var setting models.Setting
	if err := db.Where("key = ?", models.SettingChatbotMinProfit).First(&setting).Error; err == nil {
		if v, err := strconv.ParseFloat(setting.Value, 64); err == nil {
			return v
		}
	}
	v, err := strconv.ParseFloat(config.GetEnv("CHATBOT_MIN_PROFIT_PER_TIRE", "0"), 64)
	if err != nil {
		return 0
	}
	return v
}

// referenceCost is the highest recorded cost, the conservative baseline
// for the profitability gate.
func referenceCost(t *models.Tire) *float64 {
	var best *float64
	for _, c := range []*float64{t.CostSC, t.CostDunlop, t.CostOnline} {
		if c != nil && (best == nil || *c > *best) {
			best = c
		}
	}
	return best
}

// profitable reports whether selling qty tires at totalPrice clears the
// configured minimum profit per tire. Tires with no recorded cost pass.
func profitable(t *models.Tire, qty int, totalPrice, minProfit float64) bool {
	cost := referenceCost(t)
	if cost == nil {
		return true
	}
	perTire := totalPrice / float64(qty)
	return perTire-*cost >= minProfit
}

// SearchTires matches tires on a free-text size fragment and returns
// stock plus bundle prices for 1, 2 and 4.
func (h *ChatbotHandler) SearchTires(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		respondError(c, ErrValidation, "q is required")
		return
	}

	like := "%" + query + "%"
	var tires []models.Tire
	if err := h.DB.Preload("Promotion").
		Where("is_deleted = ? AND (size LIKE ? OR brand LIKE ? OR model LIKE ?)", false, like, like, like).
		Order("brand asc, model asc, size asc").
		Limit(searchLimit).
		Find(&tires).Error; err != nil {
		respondError(c, ErrInternal, "Failed to search tires")
		return
	}

	minProfit := minProfitPerTire(h.DB)
	results := make([]chatbotTire, 0, len(tires))
	for i := range tires {
		t := &tires[i]
		if t.PricePerItem == nil {
			continue
		}

		entry := chatbotTire{
			ID:       t.ID,
			Brand:    t.Brand,
			Model:    t.Model,
			Size:     t.Size,
			Quantity: t.Quantity,
		}
		promo := t.Promotion
		if promo != nil && !promo.IsActive {
			promo = nil
		}
		if promo != nil {
			if q, err := pricing.Evaluate(*t.PricePerItem, *promo); err == nil {
				entry.Promotion = &q.Description
			}
		}

		for _, qty := range bundleSizes {
			total := pricing.BundlePrice(*t.PricePerItem, promo, qty)
			entry.Bundles = append(entry.Bundles, chatbotBundle{
				Quantity:   qty,
				TotalPrice: total,
				Profitable: profitable(t, qty, total, minProfit),
			})
		}
		results = append(results, entry)
	}

	c.JSON(http.StatusOK, gin.H{"query": query, "results": results})
}
