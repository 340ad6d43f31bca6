package syncer

import (
	"time"

	"cremeria/store"
)

// TableSpec binds a local select to a remote table. Specs are pushed in slice
// order so parent rows land before their children on every cycle.
type TableSpec struct {
	Name       string // local table, for logging
	LocalSQL   string
	RemoteName string
	PrimaryKey string
	// RemoteColumns restricts what is sent; the hosted schema may be a strict
	// subset of the local one. Empty means send everything.
	RemoteColumns []string
	Normalize     func(row map[string]any)
}

// datetimeColumns are normalized before upload: empty strings become null so
// the hosted date/time types accept the row, and full local timestamps become
// ISO-8601 with offset. Date-only and clock-only values pass through.
var datetimeColumns = map[string]bool{
	"timestamp":       true,
	"sale_timestamp":  true,
	"created_at":      true,
	"updated_at":      true,
	"paid_at":         true,
	"issued_at":       true,
	"expires_at":      true,
	"credit_due_date": true,
	"credit_due_time": true,
}

func coerceDatetimes(row map[string]any) {
	for col, v := range row {
		if !datetimeColumns[col] {
			continue
		}
		s, ok := v.(string)
		if !ok {
			continue
		}
		if s == "" {
			row[col] = nil
			continue
		}
		if t, err := time.ParseInLocation(store.TimeLayout, s, time.Local); err == nil {
			row[col] = t.Format(time.RFC3339)
		}
	}
}

// saleModeRemote maps local sale modes onto the hosted vocabulary.
func saleModeRemote(mode string) string {
	switch mode {
	case store.SaleModeKg:
		return "granel"
	case store.SaleModeUnit:
		return "unidad"
	}
	return mode
}

func normalizeProduct(row map[string]any) {
	if mode, ok := row["sale_mode"].(string); ok {
		row["sale_mode"] = saleModeRemote(mode)
	}
}

func normalizeSale(row map[string]any) {
	if mode, ok := row["sale_mode"].(string); ok {
		row["sale_mode"] = saleModeRemote(mode)
	}
}

func normalizeCredit(row map[string]any) {
	// The hosted table models payment as a boolean "pagado".
	paid := toInt(row["paid_flag"]) != 0
	delete(row, "paid_flag")
	row["pagado"] = paid
}

func normalizeOrder(row map[string]any) {
	if s, ok := row["status"].(string); ok {
		switch s {
		case store.OrderPending:
			row["status"] = "pendiente"
		case store.OrderPaid:
			row["status"] = "pagado"
		}
	}
}

// pushTables is the authoritative set of synced tables. Tables not listed here
// (users, sessions, barcode_mappings) exist only locally.
var pushTables = []TableSpec{
	{
		Name:       "products",
		LocalSQL:   `SELECT * FROM products`,
		RemoteName: "products",
		PrimaryKey: "code",
		Normalize:  normalizeProduct,
	},
	{
		Name:       "sales",
		LocalSQL:   `SELECT * FROM sales`,
		RemoteName: "ventas",
		PrimaryKey: "id",
		Normalize:  normalizeSale,
	},
	{
		Name:       "credit_pending",
		LocalSQL:   `SELECT * FROM credit_pending`,
		RemoteName: "creditos_pendientes",
		PrimaryKey: "id",
		Normalize:  normalizeCredit,
	},
	{
		Name:       "expenses",
		LocalSQL:   `SELECT * FROM expenses`,
		RemoteName: "gastos_adicionales",
		PrimaryKey: "id",
	},
	{
		Name:       "passive_income",
		LocalSQL:   `SELECT * FROM passive_income`,
		RemoteName: "ingresos_pasivos",
		PrimaryKey: "id",
	},
	{
		Name:       "purchase_orders",
		LocalSQL:   `SELECT * FROM purchase_orders`,
		RemoteName: "pedidos",
		PrimaryKey: "id",
		Normalize:  normalizeOrder,
	},
	{
		Name:       "purchase_order_items",
		LocalSQL:   `SELECT * FROM purchase_order_items`,
		RemoteName: "pedidos_items",
		PrimaryKey: "id",
	},
}

func toInt(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}
