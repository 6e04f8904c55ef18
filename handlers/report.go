package handlers

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"tirestock-backend/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ReportHandler struct {
	DB *gorm.DB
}

type reportLine struct {
	ItemID  uint   `json:"item_id"`
	Label   string `json:"label"`
	Opening int    `json:"opening"`
	In      int    `json:"in"`
	Out     int    `json:"out"`
	Return  int    `json:"return"`
	Closing int    `json:"closing"`
}

type reportTotals struct {
	Opening int `json:"opening"`
	In      int `json:"in"`
	Out     int `json:"out"`
	Return  int `json:"return"`
	Closing int `json:"closing"`
}

type reportGroup struct {
	Name   string       `json:"name"`
	Lines  []reportLine `json:"lines"`
	Totals reportTotals `json:"totals"`
}

type kindReport struct {
	Groups []reportGroup `json:"groups"`
	Totals reportTotals  `json:"totals"`
}

func (t *reportTotals) add(l reportLine) {
	t.Opening += l.Opening
	t.In += l.In
	t.Out += l.Out
	t.Return += l.Return
	t.Closing += l.Closing
}

type movementSum struct {
	ItemID uint
	Type   string
	Qty    int
}

// openingBalances folds every movement strictly before start into a
// per-item signed sum.
func openingBalances(db *gorm.DB, kind models.ItemKind, start time.Time) (map[uint]int, error) {
	var rows []struct {
		ItemID uint
		Qty    int
	}
	err := db.Table(models.MovementTable(kind)).
		Select("item_id, SUM(CASE WHEN type = 'OUT' THEN -quantity_change ELSE quantity_change END) AS qty").
		Where("timestamp < ?", start).
		Group("item_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[uint]int, len(rows))
	for _, r := range rows {
		out[r.ItemID] = r.Qty
	}
	return out, nil
}

// windowSums aggregates movement quantities per (item, type) inside
// [start, end).
func windowSums(db *gorm.DB, kind models.ItemKind, start, end time.Time) (map[uint]map[string]int, error) {
	var rows []movementSum
	err := db.Table(models.MovementTable(kind)).
		Select("item_id, type, SUM(quantity_change) AS qty").
		Where("timestamp >= ? AND timestamp < ?", start, end).
		Group("item_id, type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := map[uint]map[string]int{}
	for _, r := range rows {
		if out[r.ItemID] == nil {
			out[r.ItemID] = map[string]int{}
		}
		out[r.ItemID][r.Type] = r.Qty
	}
	return out, nil
}

// reportEntry pairs a line with the group it sorts into.
type reportEntry struct {
	group string
	line  reportLine
}

// kindEntries builds one line per item that was touched in the window,
// opened the window non-empty, or currently holds stock. Tires and wheels
// group by brand; spare parts group by category then brand.
func kindEntries(db *gorm.DB, kind models.ItemKind, start, end time.Time) ([]reportEntry, error) {
	opening, err := openingBalances(db, kind, start)
	if err != nil {
		return nil, err
	}
	sums, err := windowSums(db, kind, start, end)
	if err != nil {
		return nil, err
	}

	var entries []reportEntry

	appendEntry := func(id uint, label, group string, current int) {
		open := opening[id]
		s := sums[id]
		_, touched := sums[id]
		if !touched && open == 0 && current == 0 {
			return
		}
		line := reportLine{
			ItemID:  id,
			Label:   label,
			Opening: open,
			In:      s[models.MovementIn],
			Out:     s[models.MovementOut],
			Return:  s[models.MovementReturn],
		}
		line.Closing = line.Opening + line.In + line.Return - line.Out
		entries = append(entries, reportEntry{group: group, line: line})
	}

	sizeValue := func(s string) float64 {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0
		}
		return v
	}

	switch kind {
	case models.KindTire:
		var tires []models.Tire
		if err := db.Order("brand asc, model asc, size asc").Find(&tires).Error; err != nil {
			return nil, err
		}
		for i := range tires {
			t := &tires[i]
			appendEntry(t.ID, t.Label(), t.Brand, t.Quantity)
		}

	case models.KindWheel:
		var wheels []models.Wheel
		if err := db.Order("brand asc, model asc").Find(&wheels).Error; err != nil {
			return nil, err
		}
		// Diameter and width are stored as strings; compare them as
		// numbers so 9.5 sorts before 10.
		sort.SliceStable(wheels, func(i, j int) bool {
			if wheels[i].Brand != wheels[j].Brand {
				return wheels[i].Brand < wheels[j].Brand
			}
			if wheels[i].Model != wheels[j].Model {
				return wheels[i].Model < wheels[j].Model
			}
			di, dj := sizeValue(wheels[i].Diameter), sizeValue(wheels[j].Diameter)
			if di != dj {
				return di < dj
			}
			return sizeValue(wheels[i].Width) < sizeValue(wheels[j].Width)
		})
		for i := range wheels {
			w := &wheels[i]
			appendEntry(w.ID, w.Label(), w.Brand, w.Quantity)
		}

	case models.KindSparePart:
		var parts []models.SparePart
		if err := db.Preload("Category").Order("name asc").Find(&parts).Error; err != nil {
			return nil, err
		}
		for i := range parts {
			p := &parts[i]
			category := "Uncategorized"
			if p.Category != nil {
				category = p.Category.DisplayName
			}
			group := category
			if p.BrandName() != "" {
				group = category + " / " + p.BrandName()
			}
			appendEntry(p.ID, p.Label(), group, p.Quantity)
		}
	}

	return entries, nil
}

// buildKindReport folds entries into ordered groups with per-group and
// per-kind totals. Item order inside a group follows the catalog order the
// entries were built in.
func buildKindReport(entries []reportEntry) kindReport {
	byGroup := map[string]*reportGroup{}
	var names []string
	report := kindReport{Groups: []reportGroup{}}

	for _, e := range entries {
		g, seen := byGroup[e.group]
		if !seen {
			g = &reportGroup{Name: e.group}
			byGroup[e.group] = g
			names = append(names, e.group)
		}
		g.Lines = append(g.Lines, e.line)
		g.Totals.add(e.line)
		report.Totals.add(e.line)
	}

	sort.Strings(names)
	for _, name := range names {
		report.Groups = append(report.Groups, *byGroup[name])
	}
	return report
}

func (h *ReportHandler) buildReport(c *gin.Context, start, end time.Time) (map[string]kindReport, reportTotals, bool) {
	kinds := map[string]kindReport{}
	var grand reportTotals
	for _, kind := range models.AllKinds {
		entries, err := kindEntries(h.DB, kind, start, end)
		if err != nil {
			respondError(c, ErrInternal, "Failed to build report")
			return nil, grand, false
		}
		r := buildKindReport(entries)
		grand.Opening += r.Totals.Opening
		grand.In += r.Totals.In
		grand.Out += r.Totals.Out
		grand.Return += r.Totals.Return
		grand.Closing += r.Totals.Closing
		kinds[string(kind)] = r
	}
	return kinds, grand, true
}

// GetDailyReport renders day D: per item opening, IN, OUT, RETURN and
// closing, grouped and totalled.
func (h *ReportHandler) GetDailyReport(c *gin.Context) {
	d, err := parseCivilDate(c.Query("date"))
	if err != nil {
		respondError(c, ErrValidation, "Invalid date")
		return
	}
	start, end := dayBoundsUTC(d)

	kinds, grand, ok := h.buildReport(c, start, end)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"date":         c.Query("date"),
		"kinds":        kinds,
		"grand_totals": grand,
	})
}

type returnAttribution struct {
	Quantity           int     `json:"quantity"`
	ReturnCustomerType string  `json:"return_customer_type"`
	Platform           *string `json:"platform,omitempty"`
	Customer           *string `json:"customer,omitempty"`
}

type subTotal struct {
	Name string `json:"name"`
	In   int    `json:"in"`
	Out  int    `json:"out"`
	Ret  int    `json:"return"`
}

type channelBreakdown struct {
	Channel     string              `json:"channel"`
	DisplayName string              `json:"display_name"`
	In          int                 `json:"in"`
	Out         int                 `json:"out"`
	Ret         int                 `json:"return"`
	Platforms   []subTotal          `json:"platforms,omitempty"`
	Wholesale   []subTotal          `json:"wholesale_customers,omitempty"`
	Returns     []returnAttribution `json:"returns,omitempty"`
}

// channelDecomposition splits the window's movements by sales channel,
// with platform and wholesale-customer sub-totals and the attribution of
// every RETURN. Channels with no activity are omitted.
func (h *ReportHandler) channelDecomposition(start, end time.Time) ([]channelBreakdown, error) {
	var channels []models.SalesChannel
	if err := h.DB.Order("name asc").Find(&channels).Error; err != nil {
		return nil, err
	}

	var platforms []models.OnlinePlatform
	if err := h.DB.Find(&platforms).Error; err != nil {
		return nil, err
	}
	platformName := map[uint]string{}
	for _, p := range platforms {
		platformName[p.ID] = p.Name
	}

	var customers []models.WholesaleCustomer
	if err := h.DB.Find(&customers).Error; err != nil {
		return nil, err
	}
	customerName := map[uint]string{}
	for _, w := range customers {
		customerName[w.ID] = w.Name
	}

	byChannel := map[uint]*channelBreakdown{}
	for i := range channels {
		byChannel[channels[i].ID] = &channelBreakdown{
			Channel:     channels[i].Name,
			DisplayName: channels[i].DisplayName,
		}
	}

	type subKey struct {
		channel uint
		sub     uint
	}
	platformSub := map[subKey]*subTotal{}
	customerSub := map[subKey]*subTotal{}

	for _, kind := range models.AllKinds {
		var movements []models.StockMovement
		if err := h.DB.Table(models.MovementTable(kind)).
			Where("timestamp >= ? AND timestamp < ?", start, end).
			Order("timestamp asc, id asc").
			Find(&movements).Error; err != nil {
			return nil, err
		}

		for _, m := range movements {
			cb, known := byChannel[m.ChannelID]
			if !known {
				continue
			}
			switch m.Type {
			case models.MovementIn:
				cb.In += m.QuantityChange
			case models.MovementOut:
				cb.Out += m.QuantityChange
			case models.MovementReturn:
				cb.Ret += m.QuantityChange
			}

			if m.OnlinePlatformID != nil {
				key := subKey{m.ChannelID, *m.OnlinePlatformID}
				st, seen := platformSub[key]
				if !seen {
					st = &subTotal{Name: platformName[*m.OnlinePlatformID]}
					platformSub[key] = st
				}
				addToSub(st, m.Type, m.QuantityChange)
			}
			if m.WholesaleCustomerID != nil {
				key := subKey{m.ChannelID, *m.WholesaleCustomerID}
				st, seen := customerSub[key]
				if !seen {
					st = &subTotal{Name: customerName[*m.WholesaleCustomerID]}
					customerSub[key] = st
				}
				addToSub(st, m.Type, m.QuantityChange)
			}

			if m.Type == models.MovementReturn && m.ReturnCustomerType != nil {
				attr := returnAttribution{
					Quantity:           m.QuantityChange,
					ReturnCustomerType: *m.ReturnCustomerType,
				}
				if m.OnlinePlatformID != nil {
					name := platformName[*m.OnlinePlatformID]
					attr.Platform = &name
				}
				if m.WholesaleCustomerID != nil {
					name := customerName[*m.WholesaleCustomerID]
					attr.Customer = &name
				}
				cb.Returns = append(cb.Returns, attr)
			}
		}
	}

	var out []channelBreakdown
	for i := range channels {
		cb := byChannel[channels[i].ID]
		if cb.In == 0 && cb.Out == 0 && cb.Ret == 0 {
			continue
		}
		for key, st := range platformSub {
			if key.channel == channels[i].ID {
				cb.Platforms = append(cb.Platforms, *st)
			}
		}
		for key, st := range customerSub {
			if key.channel == channels[i].ID {
				cb.Wholesale = append(cb.Wholesale, *st)
			}
		}
		sort.Slice(cb.Platforms, func(a, b int) bool { return cb.Platforms[a].Name < cb.Platforms[b].Name })
		sort.Slice(cb.Wholesale, func(a, b int) bool { return cb.Wholesale[a].Name < cb.Wholesale[b].Name })
		out = append(out, *cb)
	}
	return out, nil
}

func addToSub(st *subTotal, movementType string, qty int) {
	switch movementType {
	case models.MovementIn:
		st.In += qty
	case models.MovementOut:
		st.Out += qty
	case models.MovementReturn:
		st.Ret += qty
	}
}

// GetRangeReport folds the closed interval [from, to] with the daily
// arithmetic, plus the per-channel decomposition.
func (h *ReportHandler) GetRangeReport(c *gin.Context) {
	from, err := parseCivilDate(c.Query("from"))
	if err != nil {
		respondError(c, ErrValidation, "Invalid from date")
		return
	}
	to, err := parseCivilDate(c.Query("to"))
	if err != nil {
		respondError(c, ErrValidation, "Invalid to date")
		return
	}
	start, _ := dayBoundsUTC(from)
	_, end := dayBoundsUTC(to)
	if end.Before(start) {
		respondError(c, ErrValidation, "to is before from")
		return
	}

	kinds, grand, ok := h.buildReport(c, start, end)
	if !ok {
		return
	}

	channels, err := h.channelDecomposition(start, end)
	if err != nil {
		respondError(c, ErrInternal, "Failed to build channel breakdown")
		return
	}
	if channels == nil {
		channels = []channelBreakdown{}
	}

	c.JSON(http.StatusOK, gin.H{
		"from":         c.Query("from"),
		"to":           c.Query("to"),
		"kinds":        kinds,
		"grand_totals": grand,
		"channels":     channels,
	})
}
