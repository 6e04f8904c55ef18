package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"tirestock-backend/models"
)

func TestCreateSparePart(t *testing.T) {
	db := freshDB()
	seedChannels(db)
	_, token := seedUser(db, "editor1", "editor")
	cat := seedCategory(db, "Brakes", nil)

	router := setupCatalogRouter(db)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("POST", "/api/spare-parts", map[string]interface{}{
		"name":         "Brake Pad Set",
		"part_number":  "BP-1042",
		"brand":        "Bendix",
		"category_id":  cat.ID,
		"quantity":     10,
		"retail_price": 1200.0,
	}, token))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	resp := parseResponse(w)
	if resp["brand"] != "bendix" {
		t.Errorf("brand should be stored normalized, got %v", resp["brand"])
	}

	var movementCount int64
	db.Table(models.MovementTable(models.KindSparePart)).Count(&movementCount)
	if movementCount != 1 {
		t.Errorf("expected 1 opening movement, got %d", movementCount)
	}
}

func TestCreateSparePartDuplicateByPartNumber(t *testing.T) {
	db := freshDB()
	seedChannels(db)
	_, token := seedUser(db, "editor1", "editor")
	db.Create(&models.SparePart{
		Name: "Brake Pad Set", PartNumber: sptr("BP-1042"),
		RetailPrice: fptr(1200),
	})

	router := setupCatalogRouter(db)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("POST", "/api/spare-parts", map[string]interface{}{
		"name":         "brake pad set",
		"part_number":  "bp-1042",
		"quantity":     1,
		"retail_price": 1100.0,
	}, token))
	if w.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d: %s", w.Code, w.Body.String())
	}
	resp := parseResponse(w)
	if resp["message"] != "A spare part with this name already exists" {
		t.Errorf("unexpected message %v", resp["message"])
	}
}

func TestCreateSparePartSameNameDifferentPartNumber(t *testing.T) {
	db := freshDB()
	seedChannels(db)
	_, token := seedUser(db, "editor1", "editor")
	db.Create(&models.SparePart{
		Name: "Brake Pad Set", PartNumber: sptr("BP-1042"),
		RetailPrice: fptr(1200),
	})

	router := setupCatalogRouter(db)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("POST", "/api/spare-parts", map[string]interface{}{
		"name":         "Brake Pad Set",
		"part_number":  "BP-2077",
		"quantity":     1,
		"retail_price": 1400.0,
	}, token))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCreateSparePartDuplicateByBrandWhenNoPartNumber(t *testing.T) {
	db := freshDB()
	seedChannels(db)
	_, token := seedUser(db, "editor1", "editor")
	db.Create(&models.SparePart{
		Name: "Wiper Blade", Brand: sptr("bosch"),
		RetailPrice: fptr(350),
	})

	router := setupCatalogRouter(db)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("POST", "/api/spare-parts", map[string]interface{}{
		"name":         "Wiper Blade",
		"brand":        "Bosch",
		"quantity":     1,
		"retail_price": 350.0,
	}, token))
	if w.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d: %s", w.Code, w.Body.String())
	}

	// A different brand under the same name is a new part.
	w = httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("POST", "/api/spare-parts", map[string]interface{}{
		"name":         "Wiper Blade",
		"brand":        "Denso",
		"quantity":     1,
		"retail_price": 320.0,
	}, token))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCreateSparePartUnknownCategory(t *testing.T) {
	db := freshDB()
	seedChannels(db)
	_, token := seedUser(db, "editor1", "editor")

	router := setupCatalogRouter(db)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("POST", "/api/spare-parts", map[string]interface{}{
		"name":         "Brake Pad Set",
		"category_id":  999,
		"quantity":     1,
		"retail_price": 1200.0,
	}, token))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d: %s", w.Code, w.Body.String())
	}
	resp := parseResponse(w)
	if resp["message"] != "Category not found" {
		t.Errorf("unexpected message %v", resp["message"])
	}
}

func TestGetSparePartRoleFiltering(t *testing.T) {
	db := freshDB()
	part := models.SparePart{
		Name: "Brake Pad Set", Quantity: 3,
		RetailPrice: fptr(1200), Cost: fptr(700), WholesalePrice1: fptr(950),
	}
	db.Create(&part)
	_, token := seedUser(db, "retail1", "retail_sales")

	router := setupCatalogRouter(db)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("GET", fmt.Sprintf("/api/spare-parts/%d", part.ID), nil, token))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := parseResponse(w)
	if resp["cost"] != nil {
		t.Error("retail sales must not see cost")
	}
	if resp["wholesale_price1"] != nil {
		t.Error("retail sales must not see wholesale prices")
	}
}
