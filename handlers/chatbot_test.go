package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"tirestock-backend/models"
)

func chatbotRequest(q, key string) *http.Request {
	req := httptest.NewRequest("GET", "/api/chatbot/tires?q="+q, nil)
	if key != "" {
		req.Header.Set("X-Api-Key", key)
	}
	return req
}

func TestChatbotRequiresAPIKey(t *testing.T) {
	db := freshDB()
	router := setupChatbotRouter(db)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, chatbotRequest("215", ""))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 without key, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, chatbotRequest("215", "wrong-key"))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 with wrong key, got %d", w.Code)
	}
}

func TestChatbotRequiresQuery(t *testing.T) {
	db := freshDB()
	router := setupChatbotRouter(db)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, chatbotRequest("", "test-chatbot-key"))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d: %s", w.Code, w.Body.String())
	}
	if parseResponse(w)["message"] != "q is required" {
		t.Errorf("unexpected message")
	}
}

func TestChatbotBundlesAndPromotion(t *testing.T) {
	db := freshDB()
	promo := models.Promotion{
		Name: "4 for 16000", Kind: models.PromoFixedPricePerN,
		V1: 16000, IsActive: true,
	}
	db.Create(&promo)
	tire := seedTire(db, "michelin", "primacy 4", "215/55R17", 8, 4500)
	db.Model(&models.Tire{}).Where("id = ?", tire.ID).Update("promotion_id", promo.ID)

	// No price, never quoted.
	db.Create(&models.Tire{Brand: "michelin", Model: "energy", Size: "215/60R16", Quantity: 2})

	router := setupChatbotRouter(db)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, chatbotRequest("215", "test-chatbot-key"))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := parseResponse(w)
	results := resp["results"].([]interface{})
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	entry := results[0].(map[string]interface{})
	if entry["quantity"] != float64(8) {
		t.Errorf("unexpected quantity %v", entry["quantity"])
	}
	if entry["promotion"] != "4 เส้น 16000" {
		t.Errorf("unexpected promotion text %v", entry["promotion"])
	}

	bundles := entry["bundles"].([]interface{})
	if len(bundles) != 3 {
		t.Fatalf("expected bundles for 1, 2 and 4, got %d", len(bundles))
	}
	prices := map[float64]float64{}
	for _, b := range bundles {
		bundle := b.(map[string]interface{})
		prices[bundle["quantity"].(float64)] = bundle["total_price"].(float64)
	}
	// Promo per-unit is 4000; the set of four sells at the promo price.
	if prices[1] != 4000 || prices[2] != 8000 || prices[4] != 16000 {
		t.Errorf("unexpected bundle prices %v", prices)
	}
}

func TestChatbotProfitabilityGate(t *testing.T) {
	db := freshDB()
	tire := seedTire(db, "michelin", "primacy 4", "215/55R17", 4, 4500)
	db.Model(&models.Tire{}).Where("id = ?", tire.ID).
		Updates(map[string]interface{}{"cost_sc": 4000, "cost_dunlop": 4300})

	router := setupChatbotRouter(db)

	bundleProfitable := func() bool {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, chatbotRequest("215", "test-chatbot-key"))
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
		}
		results := parseResponse(w)["results"].([]interface{})
		bundle := results[0].(map[string]interface{})["bundles"].([]interface{})[0].(map[string]interface{})
		return bundle["profitable"].(bool)
	}

	// Margin over the highest cost is 200 per tire. No threshold set,
	// so anything non-negative passes.
	if !bundleProfitable() {
		t.Error("expected profitable with no threshold")
	}

	db.Create(&models.Setting{Key: models.SettingChatbotMinProfit, Value: "500"})
	if bundleProfitable() {
		t.Error("expected unprofitable under a 500 threshold")
	}
}

func TestChatbotNoCostAlwaysProfitable(t *testing.T) {
	db := freshDB()
	seedTire(db, "michelin", "primacy 4", "215/55R17", 4, 4500)
	db.Create(&models.Setting{Key: models.SettingChatbotMinProfit, Value: "99999"})

	router := setupChatbotRouter(db)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, chatbotRequest("215", "test-chatbot-key"))
	results := parseResponse(w)["results"].([]interface{})
	bundles := results[0].(map[string]interface{})["bundles"].([]interface{})
	for _, b := range bundles {
		if !b.(map[string]interface{})["profitable"].(bool) {
			t.Error("tires without costs should always pass the gate")
		}
	}
}
