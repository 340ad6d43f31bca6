package syncer

import (
	"errors"
	"fmt"
	"log"
	"time"

	"cremeria/store"
)

const pullProductsKey = "sync:pull:products"

// ErrRemoteDisabled is returned when a pull is requested without a replica.
var ErrRemoteDisabled = errors.New("no remote replica configured")

// PullProducts copies the remote product catalog into the local store.
// Remote wins for the catalog, except that a row is only overwritten when the
// remote updated_at is not older than the local one, and local-only fields
// survive remote nulls. Repeated calls within the cooldown window are
// suppressed. Returns the number of rows applied.
func (e *Engine) PullProducts() (int, error) {
	if e.remote == nil || !e.remote.Enabled() {
		return 0, ErrRemoteDisabled
	}
	if e.pullCooldown > 0 {
		if _, hit := e.cache.Get(pullProductsKey); hit {
			return 0, nil
		}
	}

	rows, err := e.remote.Select("products", nil, nil, "", 0)
	if err != nil {
		return 0, fmt.Errorf("pull products: %w", err)
	}

	applied := 0
	for _, row := range rows {
		p := productFromRemote(row)
		if p.Code == "" {
			continue
		}
		local, err := e.db.GetProduct(p.Code)
		if err == nil && p.UpdatedAt != "" && local.UpdatedAt != "" {
			if remoteUpdated, localUpdated := parseAnyTime(p.UpdatedAt), parseAnyTime(local.UpdatedAt); !remoteUpdated.IsZero() && !localUpdated.IsZero() && remoteUpdated.Before(localUpdated) {
				continue
			}
		} else if err != nil && !errors.Is(err, store.ErrNotFound) {
			log.Printf("pull products: lookup %s: %v", p.Code, err)
			continue
		}
		if err := e.db.UpsertProductFromRemote(p); err != nil {
			log.Printf("pull products: apply %s: %v", p.Code, err)
			continue
		}
		applied++
	}

	if e.pullCooldown > 0 {
		e.cache.Set(pullProductsKey, e.now().Format(time.RFC3339), e.pullCooldown)
	}
	e.mu.Lock()
	e.status.LastPull = e.now()
	e.mu.Unlock()
	log.Printf("sync: pulled %d/%d products", applied, len(rows))
	return applied, nil
}

// productFromRemote maps a remote JSON row onto a Product, tolerating the
// remote schema being a subset or superset of the local one.
func productFromRemote(row map[string]any) *store.Product {
	p := &store.Product{
		Code:            toStr(row["code"]),
		Name:            toStr(row["name"]),
		SaleMode:        saleModeLocal(toStr(row["sale_mode"])),
		StockUnits:      int(toInt(row["stock_units"])),
		StockKg:         toFloat(row["stock_kg"]),
		MinStockUnits:   int(toInt(row["min_stock_units"])),
		MinStockKg:      toFloat(row["min_stock_kg"]),
		MaxStockUnits:   int(toInt(row["max_stock_units"])),
		MaxStockKg:      toFloat(row["max_stock_kg"]),
		PricePurchase:   toFloat(row["price_purchase"]),
		PriceNormal:     toFloat(row["price_normal"]),
		PriceWholesale1: toFloat(row["price_wholesale_1"]),
		PriceWholesale2: toFloat(row["price_wholesale_2"]),
		PriceWholesale3: toFloat(row["price_wholesale_3"]),
		PricePerKg:      toFloat(row["price_per_kg"]),
		Category:        toStr(row["category"]),
		UnitWeight:      toFloat(row["unit_weight"]),
	}
	if v, ok := row["plu_number"]; ok && v != nil {
		plu := toInt(v)
		p.PLUNumber = &plu
	}
	if v := toStr(row["updated_at"]); v != "" {
		if t := parseAnyTime(v); !t.IsZero() {
			p.UpdatedAt = t.Format(store.TimeLayout)
		}
	}
	return p
}

func saleModeLocal(mode string) string {
	switch mode {
	case "granel", store.SaleModeKg:
		return store.SaleModeKg
	case "unidad", "pieza", store.SaleModeUnit, "":
		return store.SaleModeUnit
	}
	return mode
}

func parseAnyTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339, time.RFC3339Nano, store.TimeLayout, store.DateLayout} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}

func toStr(v any) string {
	s, _ := v.(string)
	return s
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	}
	return 0
}
