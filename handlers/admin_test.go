package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tirestock-backend/cache"
	"tirestock-backend/middleware"
	"tirestock-backend/models"

	"github.com/gin-gonic/gin"
)

func TestAdminDashboard(t *testing.T) {
	db := freshDB()
	channels := seedChannels(db)
	user, token := seedUser(db, "admin1", "admin")

	tire := seedTire(db, "michelin", "primacy 4", "215/55R17", 5, 4500)
	deleted := seedTire(db, "michelin", "pilot sport", "225/40R18", 0, 6200)
	db.Model(&models.Tire{}).Where("id = ?", deleted.ID).Update("is_deleted", true)
	seedWheel(db, "enkei", "rpf1", 4, 8500)
	seedMovement(db, models.KindTire, models.StockMovement{
		Timestamp: atDisplayHour(0, 9), ItemID: tire.ID, Type: models.MovementIn,
		QuantityChange: 2, RemainingQuantity: 7,
		UserID: user.ID, ChannelID: channels[models.ChannelReceivePurchase],
	})
	db.Create(&models.Notification{ActorUserID: user.ID, Message: "x"})

	router := setupAdminRouter(db)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("GET", "/api/admin/dashboard", nil, token))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := parseResponse(w)

	kinds := resp["kinds"].(map[string]interface{})
	tires := kinds["tire"].(map[string]interface{})
	if tires["items"] != float64(1) || tires["deleted"] != float64(1) {
		t.Errorf("unexpected tire summary %v", tires)
	}
	if tires["quantity"] != float64(5) {
		t.Errorf("expected live tire quantity 5, got %v", tires["quantity"])
	}
	if resp["movements_today"] != float64(1) {
		t.Errorf("expected 1 movement today, got %v", resp["movements_today"])
	}
	if resp["unread_notifications"] != float64(1) {
		t.Errorf("expected 1 unread, got %v", resp["unread_notifications"])
	}
	if resp["active_users"] != float64(1) {
		t.Errorf("expected 1 active user, got %v", resp["active_users"])
	}
}

func TestCreateUser(t *testing.T) {
	db := freshDB()
	_, token := seedUser(db, "admin1", "admin")

	router := setupAdminRouter(db)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("POST", "/api/admin/users", map[string]interface{}{
		"username": "somchai",
		"password": "longenough",
		"name":     "Somchai",
		"role":     "editor",
	}, token))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	resp := parseResponse(w)
	if resp["role"] != "editor" || resp["is_active"] != true {
		t.Errorf("unexpected user %v", resp)
	}
	if _, leaked := resp["password"]; leaked {
		t.Error("password must never be serialized")
	}

	// Duplicate username.
	w = httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("POST", "/api/admin/users", map[string]interface{}{
		"username": "somchai", "password": "longenough", "role": "viewer",
	}, token))
	if w.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d: %s", w.Code, w.Body.String())
	}
	if parseResponse(w)["message"] != "Username is taken" {
		t.Errorf("unexpected message")
	}

	// Unknown role.
	w = httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("POST", "/api/admin/users", map[string]interface{}{
		"username": "somsri", "password": "longenough", "role": "owner",
	}, token))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for unknown role, got %d", w.Code)
	}

	// Short password.
	w = httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("POST", "/api/admin/users", map[string]interface{}{
		"username": "somsri", "password": "short", "role": "viewer",
	}, token))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for short password, got %d", w.Code)
	}
}

func TestUpdateUserSelfGuards(t *testing.T) {
	db := freshDB()
	admin, token := seedUser(db, "admin1", "admin")
	other, _ := seedUser(db, "editor1", "editor")

	router := setupAdminRouter(db)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("PUT", "/api/admin/users/"+admin.ID.String(), map[string]interface{}{
		"is_active": false,
	}, token))
	if w.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d: %s", w.Code, w.Body.String())
	}
	if parseResponse(w)["message"] != "Cannot deactivate your own account" {
		t.Errorf("unexpected message")
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("PUT", "/api/admin/users/"+admin.ID.String(), map[string]interface{}{
		"role": "viewer",
	}, token))
	if w.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d: %s", w.Code, w.Body.String())
	}
	if parseResponse(w)["message"] != "Cannot change your own role" {
		t.Errorf("unexpected message")
	}

	// Deactivating someone else is fine.
	w = httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("PUT", "/api/admin/users/"+other.ID.String(), map[string]interface{}{
		"is_active": false,
		"name":      "Former editor",
	}, token))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := parseResponse(w)
	if resp["is_active"] != false || resp["name"] != "Former editor" {
		t.Errorf("unexpected user %v", resp)
	}
}

func TestHardDeleteRequiresSoftDelete(t *testing.T) {
	db := freshDB()
	channels := seedChannels(db)
	admin, token := seedUser(db, "admin1", "admin")
	tire := seedTire(db, "michelin", "primacy 4", "215/55R17", 0, 4500)
	seedMovement(db, models.KindTire, models.StockMovement{
		Timestamp: time.Now().UTC(), ItemID: tire.ID, Type: models.MovementIn,
		QuantityChange: 2, RemainingQuantity: 2,
		UserID: admin.ID, ChannelID: channels[models.ChannelReceivePurchase],
	})
	db.Create(&models.Barcode{ItemKind: models.KindTire, ItemID: tire.ID, Code: "885001", IsPrimary: true})

	router := setupAdminRouter(db)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("DELETE", fmt.Sprintf("/api/admin/items/tire/%d", tire.ID), nil, token))
	if w.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d: %s", w.Code, w.Body.String())
	}
	if parseResponse(w)["message"] != "Soft delete the item before hard deleting" {
		t.Errorf("unexpected message")
	}

	db.Model(&models.Tire{}).Where("id = ?", tire.ID).Update("is_deleted", true)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("DELETE", fmt.Sprintf("/api/admin/items/tire/%d", tire.ID), nil, token))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var tireCount, movementCount, barcodeCount int64
	db.Model(&models.Tire{}).Where("id = ?", tire.ID).Count(&tireCount)
	db.Table("tire_movements").Where("item_id = ?", tire.ID).Count(&movementCount)
	db.Model(&models.Barcode{}).Where("item_kind = ? AND item_id = ?", models.KindTire, tire.ID).Count(&barcodeCount)
	if tireCount != 0 || movementCount != 0 || barcodeCount != 0 {
		t.Errorf("expected full cascade, left tire=%d movements=%d barcodes=%d",
			tireCount, movementCount, barcodeCount)
	}
}

func TestGetDeletedItems(t *testing.T) {
	db := freshDB()
	_, token := seedUser(db, "admin1", "admin")
	tire := seedTire(db, "michelin", "primacy 4", "215/55R17", 0, 4500)
	db.Model(&models.Tire{}).Where("id = ?", tire.ID).Update("is_deleted", true)
	seedTire(db, "bridgestone", "turanza", "195/65R15", 3, 2800)

	router := setupAdminRouter(db)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("GET", "/api/admin/deleted/tire", nil, token))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	rows := parseResponseArray(w)
	if len(rows) != 1 {
		t.Fatalf("expected 1 deleted tire, got %d", len(rows))
	}
	if rows[0].(map[string]interface{})["id"] != float64(tire.ID) {
		t.Errorf("unexpected row %v", rows[0])
	}
}

func TestRebuildQuantitiesSingleItem(t *testing.T) {
	db := freshDB()
	channels := seedChannels(db)
	admin, token := seedUser(db, "admin1", "admin")
	tire := seedTire(db, "michelin", "primacy 4", "215/55R17", 0, 4500)
	seedMovement(db, models.KindTire, models.StockMovement{
		Timestamp: time.Now().UTC().Add(-2 * time.Hour), ItemID: tire.ID, Type: models.MovementIn,
		QuantityChange: 10, RemainingQuantity: 99,
		UserID: admin.ID, ChannelID: channels[models.ChannelReceivePurchase],
	})
	seedMovement(db, models.KindTire, models.StockMovement{
		Timestamp: time.Now().UTC().Add(-time.Hour), ItemID: tire.ID, Type: models.MovementOut,
		QuantityChange: 3, RemainingQuantity: 42,
		UserID: admin.ID, ChannelID: channels[models.ChannelStorefrontRetail],
	})
	db.Model(&models.Tire{}).Where("id = ?", tire.ID).Update("quantity", 55)

	router := setupAdminRouter(db)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("POST",
		fmt.Sprintf("/api/admin/rebuild-quantities?item_kind=tire&item_id=%d", tire.ID), nil, token))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if parseResponse(w)["message"] != "Item quantities rebuilt" {
		t.Errorf("unexpected message")
	}

	var fixed models.Tire
	db.First(&fixed, tire.ID)
	if fixed.Quantity != 7 {
		t.Errorf("expected quantity 7 after rebuild, got %d", fixed.Quantity)
	}
	var movements []models.StockMovement
	db.Table("tire_movements").Where("item_id = ?", tire.ID).Order("timestamp asc").Find(&movements)
	if movements[0].RemainingQuantity != 10 || movements[1].RemainingQuantity != 7 {
		t.Errorf("expected running balances 10 and 7, got %d and %d",
			movements[0].RemainingQuantity, movements[1].RemainingQuantity)
	}
}

func TestRebuildQuantitiesJob(t *testing.T) {
	db := freshDB()
	channels := seedChannels(db)
	admin, token := seedUser(db, "admin1", "admin")
	tire := seedTire(db, "michelin", "primacy 4", "215/55R17", 0, 4500)
	seedMovement(db, models.KindTire, models.StockMovement{
		Timestamp: time.Now().UTC(), ItemID: tire.ID, Type: models.MovementIn,
		QuantityChange: 4, RemainingQuantity: 1,
		UserID: admin.ID, ChannelID: channels[models.ChannelReceivePurchase],
	})

	router := setupAdminRouter(db)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("POST", "/api/admin/rebuild-quantities", nil, token))
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d: %s", w.Code, w.Body.String())
	}
	jobID := parseResponse(w)["job_id"].(string)
	job := waitForJob(t, jobID)
	if len(job.Errors) != 0 {
		t.Fatalf("expected clean run, got errors %v", job.Errors)
	}

	var fixed models.Tire
	db.First(&fixed, tire.ID)
	if fixed.Quantity != 4 {
		t.Errorf("expected quantity 4 after rebuild, got %d", fixed.Quantity)
	}
}

func TestRebuildJobInvalidatesCatalogCache(t *testing.T) {
	db := freshDB()
	seedChannels(db)
	_, token := seedUser(db, "admin1", "admin")
	seedTire(db, "michelin", "primacy 4", "215/55R17", 3, 4500)

	store := cache.NewMemory()
	r := gin.New()
	adminHandler := &AdminHandler{DB: db, Cache: store}
	admin := r.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware())
	admin.Use(middleware.AdminMiddleware())
	admin.POST("/rebuild-quantities", adminHandler.RebuildQuantities)

	ctx := context.Background()
	store.Set(ctx, cache.KeyBrandList("tire"), "stale", time.Minute)
	store.Set(ctx, cache.ItemListPrefix("wheel")+"all", "stale", time.Minute)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authRequest("POST", "/api/admin/rebuild-quantities", nil, token))
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d: %s", w.Code, w.Body.String())
	}
	waitForJob(t, parseResponse(w)["job_id"].(string))

	if _, ok := store.Get(ctx, cache.KeyBrandList("tire")); ok {
		t.Error("brand list should be invalidated after the rebuild job")
	}
	if _, ok := store.Get(ctx, cache.ItemListPrefix("wheel")+"all"); ok {
		t.Error("item lists of every kind should be invalidated")
	}
}

func TestGetJobStatusErrors(t *testing.T) {
	db := freshDB()
	_, token := seedUser(db, "admin1", "admin")

	router := setupAdminRouter(db)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("GET", "/api/admin/jobs/not-a-uuid", nil, token))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("GET", "/api/admin/jobs/6f1e2d3c-4b5a-6978-8796-a5b4c3d2e1f0", nil, token))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", w.Code)
	}
}

func TestSettingsUpsert(t *testing.T) {
	db := freshDB()
	_, token := seedUser(db, "admin1", "admin")

	router := setupAdminRouter(db)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("PUT", "/api/admin/settings", map[string]interface{}{
		"key":   models.SettingChatbotMinProfit,
		"value": "250",
	}, token))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	// Upsert overwrites.
	w = httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("PUT", "/api/admin/settings", map[string]interface{}{
		"key":   models.SettingChatbotMinProfit,
		"value": "300",
	}, token))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("GET", "/api/admin/settings", nil, token))
	rows := parseResponseArray(w)
	found := false
	for _, r := range rows {
		row := r.(map[string]interface{})
		if row["key"] == models.SettingChatbotMinProfit {
			found = true
			if row["value"] != "300" {
				t.Errorf("expected value 300, got %v", row["value"])
			}
		}
	}
	if !found {
		t.Error("setting not listed")
	}
}

func TestActivityLogRecordsAdminRequests(t *testing.T) {
	db := freshDB()
	admin, token := seedUser(db, "admin1", "admin")

	router := setupAdminRouter(db)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("GET", "/api/admin/dashboard", nil, token))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("GET", "/api/admin/activity-log?user_id="+admin.ID.String(), nil, token))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	// The logger writes after the handler, so the listing itself is not
	// in its own response yet.
	rows := parseResponseArray(w)
	if len(rows) != 1 {
		t.Fatalf("expected 1 audit row, got %d", len(rows))
	}
	first := rows[0].(map[string]interface{})
	if first["method"] != "GET" || first["path"] != "/api/admin/dashboard" {
		t.Errorf("unexpected audit row %v", first)
	}
	if first["endpoint_label"] != "admin" {
		t.Errorf("unexpected label %v", first["endpoint_label"])
	}
}
