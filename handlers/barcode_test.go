package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"tirestock-backend/models"
)

func TestAttachBarcode(t *testing.T) {
	db := freshDB()
	_, token := seedUser(db, "editor1", "editor")
	tire := seedTire(db, "michelin", "primacy 4", "215/55R17", 4, 4500)

	router := setupBarcodeRouter(db)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("POST", "/api/barcodes", map[string]interface{}{
		"item_kind":  "tire",
		"item_id":    tire.ID,
		"code":       "8850001234567",
		"is_primary": true,
	}, token))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	resp := parseResponse(w)
	if resp["code"] != "8850001234567" {
		t.Errorf("unexpected code %v", resp["code"])
	}
	if resp["is_primary"] != true {
		t.Error("expected a primary barcode")
	}
}

func TestAttachBarcodeConflictAcrossKinds(t *testing.T) {
	db := freshDB()
	_, token := seedUser(db, "editor1", "editor")
	tire := seedTire(db, "michelin", "primacy 4", "215/55R17", 4, 4500)
	wheel := seedWheel(db, "enkei", "rpf1", 2, 8500)
	db.Create(&models.Barcode{ItemKind: models.KindTire, ItemID: tire.ID, Code: "8850001234567"})

	router := setupBarcodeRouter(db)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("POST", "/api/barcodes", map[string]interface{}{
		"item_kind": "wheel",
		"item_id":   wheel.ID,
		"code":      "8850001234567",
	}, token))
	if w.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d: %s", w.Code, w.Body.String())
	}
	resp := parseResponse(w)
	expected := fmt.Sprintf("Barcode already bound to tire #%d", tire.ID)
	if resp["message"] != expected {
		t.Errorf("expected %q, got %v", expected, resp["message"])
	}
}

func TestAttachBarcodeDemotesPrimary(t *testing.T) {
	db := freshDB()
	_, token := seedUser(db, "editor1", "editor")
	tire := seedTire(db, "michelin", "primacy 4", "215/55R17", 4, 4500)
	db.Create(&models.Barcode{ItemKind: models.KindTire, ItemID: tire.ID, Code: "OLD-PRIMARY", IsPrimary: true})

	router := setupBarcodeRouter(db)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("POST", "/api/barcodes", map[string]interface{}{
		"item_kind":  "tire",
		"item_id":    tire.ID,
		"code":       "NEW-PRIMARY",
		"is_primary": true,
	}, token))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var primaries int64
	db.Model(&models.Barcode{}).
		Where("item_kind = ? AND item_id = ? AND is_primary = ?", models.KindTire, tire.ID, true).
		Count(&primaries)
	if primaries != 1 {
		t.Errorf("expected exactly one primary barcode, got %d", primaries)
	}

	var old models.Barcode
	db.Where("code = ?", "OLD-PRIMARY").First(&old)
	if old.IsPrimary {
		t.Error("old primary should have been demoted")
	}
}

func TestAttachBarcodeToDeletedItem(t *testing.T) {
	db := freshDB()
	_, token := seedUser(db, "editor1", "editor")
	tire := seedTire(db, "michelin", "primacy 4", "215/55R17", 0, 4500)
	db.Model(&tire).Update("is_deleted", true)

	router := setupBarcodeRouter(db)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("POST", "/api/barcodes", map[string]interface{}{
		"item_kind": "tire",
		"item_id":   tire.ID,
		"code":      "8850001234567",
	}, token))
	if w.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d: %s", w.Code, w.Body.String())
	}
}

func TestResolveBarcode(t *testing.T) {
	db := freshDB()
	_, token := seedUser(db, "viewer1", "viewer")
	tire := seedTire(db, "michelin", "primacy 4", "215/55R17", 7, 4500)
	db.Create(&models.Barcode{ItemKind: models.KindTire, ItemID: tire.ID, Code: "8850001234567", IsPrimary: true})

	router := setupBarcodeRouter(db)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("GET", "/api/barcodes/resolve?code=8850001234567", nil, token))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := parseResponse(w)
	if resp["item_kind"] != "tire" {
		t.Errorf("expected item_kind tire, got %v", resp["item_kind"])
	}
	if resp["item_id"] != float64(tire.ID) {
		t.Errorf("expected item_id %d, got %v", tire.ID, resp["item_id"])
	}
	if resp["quantity"] != float64(7) {
		t.Errorf("expected quantity 7, got %v", resp["quantity"])
	}
}

func TestResolveBarcodeUnknown(t *testing.T) {
	db := freshDB()
	_, token := seedUser(db, "viewer1", "viewer")

	router := setupBarcodeRouter(db)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("GET", "/api/barcodes/resolve?code=no-such-code", nil, token))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestDetachBarcode(t *testing.T) {
	db := freshDB()
	_, token := seedUser(db, "editor1", "editor")
	tire := seedTire(db, "michelin", "primacy 4", "215/55R17", 4, 4500)
	barcode := models.Barcode{ItemKind: models.KindTire, ItemID: tire.ID, Code: "8850001234567"}
	db.Create(&barcode)

	router := setupBarcodeRouter(db)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("DELETE", fmt.Sprintf("/api/barcodes/%d", barcode.ID), nil, token))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var count int64
	db.Model(&models.Barcode{}).Count(&count)
	if count != 0 {
		t.Errorf("expected no barcodes left, got %d", count)
	}
}

func TestListBarcodesPrimaryFirst(t *testing.T) {
	db := freshDB()
	_, token := seedUser(db, "viewer1", "viewer")
	tire := seedTire(db, "michelin", "primacy 4", "215/55R17", 4, 4500)
	db.Create(&models.Barcode{ItemKind: models.KindTire, ItemID: tire.ID, Code: "SECONDARY"})
	db.Create(&models.Barcode{ItemKind: models.KindTire, ItemID: tire.ID, Code: "PRIMARY", IsPrimary: true})

	router := setupBarcodeRouter(db)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("GET", fmt.Sprintf("/api/barcodes?item_kind=tire&item_id=%d", tire.ID), nil, token))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	barcodes := parseResponseArray(w)
	if len(barcodes) != 2 {
		t.Fatalf("expected 2 barcodes, got %d", len(barcodes))
	}
	if barcodes[0].(map[string]interface{})["code"] != "PRIMARY" {
		t.Errorf("primary barcode should come first, got %v", barcodes[0])
	}
}
