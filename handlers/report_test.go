package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"tirestock-backend/models"
)

func TestDailyReportArithmetic(t *testing.T) {
	db := freshDB()
	channels := seedChannels(db)
	user, token := seedUser(db, "admin1", "admin")
	tire := seedTire(db, "michelin", "primacy 4", "215/55R17", 12, 4500)

	// Opening stock of 10 from yesterday.
	seedMovement(db, models.KindTire, models.StockMovement{
		Timestamp: atDisplayHour(-1, 12), ItemID: tire.ID, Type: models.MovementIn,
		QuantityChange: 10, RemainingQuantity: 10,
		UserID: user.ID, ChannelID: channels[models.ChannelReceivePurchase],
	})
	// Today: +4, -3, +1.
	seedMovement(db, models.KindTire, models.StockMovement{
		Timestamp: atDisplayHour(0, 9), ItemID: tire.ID, Type: models.MovementIn,
		QuantityChange: 4, RemainingQuantity: 14,
		UserID: user.ID, ChannelID: channels[models.ChannelReceivePurchase],
	})
	seedMovement(db, models.KindTire, models.StockMovement{
		Timestamp: atDisplayHour(0, 10), ItemID: tire.ID, Type: models.MovementOut,
		QuantityChange: 3, RemainingQuantity: 11,
		UserID: user.ID, ChannelID: channels[models.ChannelStorefrontRetail],
	})
	seedMovement(db, models.KindTire, models.StockMovement{
		Timestamp: atDisplayHour(0, 11), ItemID: tire.ID, Type: models.MovementReturn,
		QuantityChange: 1, RemainingQuantity: 12,
		UserID: user.ID, ChannelID: channels[models.ChannelReceiveReturn],
		ReturnCustomerType: sptr(models.ReturnCustomerStorefrontWalk),
	})

	router := setupReportRouter(db)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("GET", "/api/reports/daily?date="+todayCivil(), nil, token))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := parseResponse(w)

	kinds := resp["kinds"].(map[string]interface{})
	tires := kinds["tire"].(map[string]interface{})
	groups := tires["groups"].([]interface{})
	if len(groups) != 1 {
		t.Fatalf("expected 1 brand group, got %d", len(groups))
	}
	group := groups[0].(map[string]interface{})
	if group["name"] != "michelin" {
		t.Errorf("expected group michelin, got %v", group["name"])
	}
	lines := group["lines"].([]interface{})
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	line := lines[0].(map[string]interface{})
	if line["opening"] != float64(10) {
		t.Errorf("expected opening 10, got %v", line["opening"])
	}
	if line["in"] != float64(4) || line["out"] != float64(3) || line["return"] != float64(1) {
		t.Errorf("unexpected window sums: %v", line)
	}
	if line["closing"] != float64(12) {
		t.Errorf("expected closing 12, got %v", line["closing"])
	}

	grand := resp["grand_totals"].(map[string]interface{})
	if grand["closing"] != float64(12) {
		t.Errorf("expected grand closing 12, got %v", grand["closing"])
	}
}

func TestDailyReportSkipsUntouchedEmptyItems(t *testing.T) {
	db := freshDB()
	seedChannels(db)
	_, token := seedUser(db, "admin1", "admin")
	// No history, no stock: invisible.
	seedTire(db, "michelin", "primacy 4", "215/55R17", 0, 4500)
	// No history today but holds stock: shows with flat line.
	seedTire(db, "bridgestone", "turanza", "195/65R15", 6, 2800)

	router := setupReportRouter(db)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("GET", "/api/reports/daily?date="+todayCivil(), nil, token))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := parseResponse(w)
	kinds := resp["kinds"].(map[string]interface{})
	tires := kinds["tire"].(map[string]interface{})
	groups := tires["groups"].([]interface{})
	if len(groups) != 1 {
		t.Fatalf("expected only the stocked brand, got %d groups", len(groups))
	}
	if groups[0].(map[string]interface{})["name"] != "bridgestone" {
		t.Errorf("unexpected group %v", groups[0])
	}
}

func TestDailyReportSparePartGrouping(t *testing.T) {
	db := freshDB()
	seedChannels(db)
	_, token := seedUser(db, "admin1", "admin")
	cat := seedCategory(db, "Brakes", nil)

	db.Create(&models.SparePart{
		Name: "Brake Pad Set", Brand: sptr("bendix"), CategoryID: &cat.ID,
		Quantity: 5, RetailPrice: fptr(1200),
	})
	db.Create(&models.SparePart{
		Name: "Mystery Bolt", Quantity: 3, RetailPrice: fptr(20),
	})

	router := setupReportRouter(db)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("GET", "/api/reports/daily?date="+todayCivil(), nil, token))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := parseResponse(w)
	kinds := resp["kinds"].(map[string]interface{})
	parts := kinds["spare_part"].(map[string]interface{})
	groups := parts["groups"].([]interface{})
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	// Sorted by name: "Brakes / bendix" before "Uncategorized".
	if groups[0].(map[string]interface{})["name"] != "Brakes / bendix" {
		t.Errorf("unexpected first group %v", groups[0].(map[string]interface{})["name"])
	}
	if groups[1].(map[string]interface{})["name"] != "Uncategorized" {
		t.Errorf("unexpected second group %v", groups[1].(map[string]interface{})["name"])
	}
}

func TestDailyReportWheelNumericSizeOrder(t *testing.T) {
	db := freshDB()
	_, token := seedUser(db, "viewer1", "viewer")
	wide := models.Wheel{Brand: "enkei", Model: "rpf1", Diameter: "15",
		PCD: "4x100", Width: "10", Quantity: 2, RetailPrice: fptr(8000)}
	db.Create(&wide)
	narrow := models.Wheel{Brand: "enkei", Model: "rpf1", Diameter: "15",
		PCD: "4x100", Width: "9.5", Quantity: 2, RetailPrice: fptr(8000)}
	db.Create(&narrow)

	router := setupReportRouter(db)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("GET", "/api/reports/daily?date="+todayCivil(), nil, token))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := parseResponse(w)
	wheels := resp["kinds"].(map[string]interface{})["wheel"].(map[string]interface{})
	groups := wheels["groups"].([]interface{})
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	lines := groups[0].(map[string]interface{})["lines"].([]interface{})
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	// Width 9.5 sorts before 10 when compared as numbers.
	if lines[0].(map[string]interface{})["item_id"] != float64(narrow.ID) {
		t.Errorf("expected the 9.5 wheel first, got %v", lines[0])
	}
}

func TestRangeReportChannelDecomposition(t *testing.T) {
	db := freshDB()
	channels := seedChannels(db)
	user, token := seedUser(db, "admin1", "admin")
	tire := seedTire(db, "michelin", "primacy 4", "215/55R17", 20, 4500)

	var shopee, lazada models.OnlinePlatform
	db.Where("name = ?", "Shopee").First(&shopee)
	db.Where("name = ?", "Lazada").First(&lazada)
	customer := models.WholesaleCustomer{Name: "Somsak Garage"}
	db.Create(&customer)

	seedMovement(db, models.KindTire, models.StockMovement{
		Timestamp: atDisplayHour(0, 9), ItemID: tire.ID, Type: models.MovementOut,
		QuantityChange: 4, RemainingQuantity: 16,
		UserID: user.ID, ChannelID: channels[models.ChannelOnline], OnlinePlatformID: &shopee.ID,
	})
	seedMovement(db, models.KindTire, models.StockMovement{
		Timestamp: atDisplayHour(0, 10), ItemID: tire.ID, Type: models.MovementOut,
		QuantityChange: 2, RemainingQuantity: 14,
		UserID: user.ID, ChannelID: channels[models.ChannelOnline], OnlinePlatformID: &lazada.ID,
	})
	seedMovement(db, models.KindTire, models.StockMovement{
		Timestamp: atDisplayHour(0, 11), ItemID: tire.ID, Type: models.MovementOut,
		QuantityChange: 6, RemainingQuantity: 8,
		UserID: user.ID, ChannelID: channels[models.ChannelStorefrontWholesale], WholesaleCustomerID: &customer.ID,
	})
	seedMovement(db, models.KindTire, models.StockMovement{
		Timestamp: atDisplayHour(0, 12), ItemID: tire.ID, Type: models.MovementReturn,
		QuantityChange: 1, RemainingQuantity: 9,
		UserID: user.ID, ChannelID: channels[models.ChannelReceiveReturn],
		ReturnCustomerType: sptr(models.ReturnCustomerOnline), OnlinePlatformID: &shopee.ID,
	})

	router := setupReportRouter(db)

	today := todayCivil()
	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("GET", "/api/reports/range?from="+today+"&to="+today, nil, token))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := parseResponse(w)

	breakdowns := resp["channels"].([]interface{})
	byName := map[string]map[string]interface{}{}
	for _, b := range breakdowns {
		cb := b.(map[string]interface{})
		byName[cb["channel"].(string)] = cb
	}

	// Channels without activity stay out.
	if _, present := byName[models.ChannelStorefrontRetail]; present {
		t.Error("idle channel should be omitted")
	}

	online := byName[models.ChannelOnline]
	if online == nil {
		t.Fatal("expected online channel in the breakdown")
	}
	if online["out"] != float64(6) {
		t.Errorf("expected 6 out via online, got %v", online["out"])
	}
	platforms := online["platforms"].([]interface{})
	if len(platforms) != 2 {
		t.Fatalf("expected 2 platform sub-totals, got %d", len(platforms))
	}
	// Sorted by name: Lazada before Shopee.
	first := platforms[0].(map[string]interface{})
	if first["name"] != "Lazada" || first["out"] != float64(2) {
		t.Errorf("unexpected first platform sub-total %v", first)
	}

	wholesale := byName[models.ChannelStorefrontWholesale]
	if wholesale == nil {
		t.Fatal("expected wholesale channel in the breakdown")
	}
	subs := wholesale["wholesale_customers"].([]interface{})
	if len(subs) != 1 || subs[0].(map[string]interface{})["name"] != "Somsak Garage" {
		t.Errorf("unexpected wholesale sub-totals %v", subs)
	}

	returns := byName[models.ChannelReceiveReturn]
	if returns == nil {
		t.Fatal("expected return channel in the breakdown")
	}
	attrs := returns["returns"].([]interface{})
	if len(attrs) != 1 {
		t.Fatalf("expected 1 return attribution, got %d", len(attrs))
	}
	attr := attrs[0].(map[string]interface{})
	if attr["return_customer_type"] != models.ReturnCustomerOnline {
		t.Errorf("unexpected attribution type %v", attr["return_customer_type"])
	}
	if attr["platform"] != "Shopee" {
		t.Errorf("expected Shopee attribution, got %v", attr["platform"])
	}
}
