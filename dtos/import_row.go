package dtos

// Import rows are already parsed by the caller; the engine never touches
// spreadsheet files. Matching precedence on import: ExistingID, then
// PrimaryBarcode, then the kind's uniqueness key.

type TireImportRow struct {
	ExistingID      *uint    `json:"existing_id"`
	PrimaryBarcode  *string  `json:"primary_barcode"`
	Brand           string   `json:"brand"`
	Model           string   `json:"model"`
	Size            string   `json:"size"`
	Year            *int     `json:"year"`
	Quantity        int      `json:"quantity"`
	CostSC          *float64 `json:"cost_sc"`
	CostDunlop      *float64 `json:"cost_dunlop"`
	WholesalePrice1 *float64 `json:"wholesale_price1"`
	WholesalePrice2 *float64 `json:"wholesale_price2"`
	PricePerItem    *float64 `json:"price_per_item"`
}

type WheelImportRow struct {
	ExistingID      *uint    `json:"existing_id"`
	PrimaryBarcode  *string  `json:"primary_barcode"`
	Brand           string   `json:"brand"`
	Model           string   `json:"model"`
	Diameter        string   `json:"diameter"`
	PCD             string   `json:"pcd"`
	Width           string   `json:"width"`
	ET              *string  `json:"et"`
	Color           *string  `json:"color"`
	Quantity        int      `json:"quantity"`
	Cost            *float64 `json:"cost"`
	WholesalePrice1 *float64 `json:"wholesale_price1"`
	WholesalePrice2 *float64 `json:"wholesale_price2"`
	RetailPrice     *float64 `json:"retail_price"`
}

type SparePartImportRow struct {
	ExistingID      *uint    `json:"existing_id"`
	PrimaryBarcode  *string  `json:"primary_barcode"`
	Name            string   `json:"name"`
	PartNumber      *string  `json:"part_number"`
	Brand           *string  `json:"brand"`
	CategoryID      *uint    `json:"category_id"`
	Quantity        int      `json:"quantity"`
	Cost            *float64 `json:"cost"`
	WholesalePrice1 *float64 `json:"wholesale_price1"`
	WholesalePrice2 *float64 `json:"wholesale_price2"`
	RetailPrice     *float64 `json:"retail_price"`
}
