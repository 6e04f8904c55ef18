package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tirestock-backend/models"
)

func TestCreateCommissionProgram(t *testing.T) {
	db := freshDB()
	_, token := seedUser(db, "admin1", "admin")
	tire := seedTire(db, "michelin", "primacy 4", "215/55R17", 10, 4500)

	router := setupCommissionRouter(db)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("POST", "/api/admin/commissions", map[string]interface{}{
		"item_kind":       "tire",
		"item_id":         tire.ID,
		"start_date":      "2026-08-01",
		"end_date":        "2026-08-31",
		"amount_per_item": 50,
	}, token))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	resp := parseResponse(w)
	if resp["amount_per_item"] != float64(50) {
		t.Errorf("unexpected amount %v", resp["amount_per_item"])
	}
}

func TestCreateCommissionProgramEndBeforeStart(t *testing.T) {
	db := freshDB()
	_, token := seedUser(db, "admin1", "admin")
	tire := seedTire(db, "michelin", "primacy 4", "215/55R17", 10, 4500)

	router := setupCommissionRouter(db)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("POST", "/api/admin/commissions", map[string]interface{}{
		"item_kind":       "tire",
		"item_id":         tire.ID,
		"start_date":      "2026-08-31",
		"end_date":        "2026-08-01",
		"amount_per_item": 50,
	}, token))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d: %s", w.Code, w.Body.String())
	}
	resp := parseResponse(w)
	if resp["message"] != "end_date is before start_date" {
		t.Errorf("unexpected message %v", resp["message"])
	}
}

func TestCreateCommissionProgramOverlap(t *testing.T) {
	db := freshDB()
	admin, token := seedUser(db, "admin1", "admin")
	tire := seedTire(db, "michelin", "primacy 4", "215/55R17", 10, 4500)

	start, _ := time.Parse("2006-01-02", "2026-08-01")
	end, _ := time.Parse("2006-01-02", "2026-08-31")
	db.Create(&models.CommissionProgram{
		ItemKind: models.KindTire, ItemID: tire.ID,
		StartDate: start, EndDate: &end,
		AmountPerItem: 50, CreatedBy: admin.ID,
	})

	router := setupCommissionRouter(db)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("POST", "/api/admin/commissions", map[string]interface{}{
		"item_kind":       "tire",
		"item_id":         tire.ID,
		"start_date":      "2026-08-15",
		"amount_per_item": 80,
	}, token))
	if w.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d: %s", w.Code, w.Body.String())
	}
	resp := parseResponse(w)
	if resp["message"] != "An overlapping commission program already exists for this item" {
		t.Errorf("unexpected message %v", resp["message"])
	}

	// A window after the existing one is fine.
	w = httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("POST", "/api/admin/commissions", map[string]interface{}{
		"item_kind":       "tire",
		"item_id":         tire.ID,
		"start_date":      "2026-09-01",
		"amount_per_item": 80,
	}, token))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCommissionReport(t *testing.T) {
	db := freshDB()
	channels := seedChannels(db)
	admin, token := seedUser(db, "admin1", "admin")
	tire := seedTire(db, "michelin", "primacy 4", "215/55R17", 20, 4500)

	commission := 100.0
	seedMovement(db, models.KindTire, models.StockMovement{
		Timestamp: atDisplayHour(0, 9), ItemID: tire.ID, Type: models.MovementOut,
		QuantityChange: 2, RemainingQuantity: 18,
		UserID: admin.ID, ChannelID: channels[models.ChannelStorefrontRetail],
		AccruedCommission: &commission,
	})
	// Zero-commission sale stays out of the report.
	seedMovement(db, models.KindTire, models.StockMovement{
		Timestamp: atDisplayHour(0, 10), ItemID: tire.ID, Type: models.MovementOut,
		QuantityChange: 1, RemainingQuantity: 17,
		UserID: admin.ID, ChannelID: channels[models.ChannelStorefrontRetail],
	})

	router := setupCommissionRouter(db)

	today := todayCivil()
	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("GET",
		fmt.Sprintf("/api/admin/commissions/report?from=%s&to=%s", today, today), nil, token))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := parseResponse(w)
	if resp["grand_total"] != float64(100) {
		t.Errorf("expected grand total 100, got %v", resp["grand_total"])
	}
	items := resp["items"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("expected 1 report line, got %d", len(items))
	}
	line := items[0].(map[string]interface{})
	if line["units_sold"] != float64(2) {
		t.Errorf("expected 2 units sold, got %v", line["units_sold"])
	}
	if line["total_commission"] != float64(100) {
		t.Errorf("expected line total 100, got %v", line["total_commission"])
	}
}

func TestRepairAccruals(t *testing.T) {
	db := freshDB()
	channels := seedChannels(db)
	admin, token := seedUser(db, "admin1", "admin")
	tire := seedTire(db, "michelin", "primacy 4", "215/55R17", 20, 4500)

	db.Create(&models.CommissionProgram{
		ItemKind: models.KindTire, ItemID: tire.ID,
		StartDate:     time.Now().UTC().AddDate(0, 0, -7),
		AmountPerItem: 50, CreatedBy: admin.ID,
	})

	// Tampered accrual: the program says 2 x 50 = 100, the row says 5.
	wrong := 5.0
	m := seedMovement(db, models.KindTire, models.StockMovement{
		Timestamp: time.Now().UTC().Add(-time.Hour), ItemID: tire.ID, Type: models.MovementOut,
		QuantityChange: 2, RemainingQuantity: 18,
		UserID: admin.ID, ChannelID: channels[models.ChannelStorefrontRetail],
		AccruedCommission: &wrong,
	})

	router := setupCommissionRouter(db)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("POST", "/api/admin/commissions/repair", nil, token))
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d: %s", w.Code, w.Body.String())
	}
	resp := parseResponse(w)
	jobID, ok := resp["job_id"].(string)
	if !ok {
		t.Fatalf("expected a job_id, got %v", resp)
	}

	waitForJob(t, jobID)

	var stored models.StockMovement
	db.Table(models.MovementTable(models.KindTire)).First(&stored, m.ID)
	if stored.AccruedCommission == nil || *stored.AccruedCommission != 100 {
		t.Errorf("expected repaired commission 100, got %v", stored.AccruedCommission)
	}
}

func TestDeleteCommissionProgram(t *testing.T) {
	db := freshDB()
	admin, token := seedUser(db, "admin1", "admin")
	tire := seedTire(db, "michelin", "primacy 4", "215/55R17", 10, 4500)
	program := models.CommissionProgram{
		ItemKind: models.KindTire, ItemID: tire.ID,
		StartDate: time.Now().UTC(), AmountPerItem: 50, CreatedBy: admin.ID,
	}
	db.Create(&program)

	router := setupCommissionRouter(db)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("DELETE", fmt.Sprintf("/api/admin/commissions/%d", program.ID), nil, token))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var count int64
	db.Model(&models.CommissionProgram{}).Count(&count)
	if count != 0 {
		t.Errorf("expected no programs left, got %d", count)
	}
}
