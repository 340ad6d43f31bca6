package store

import (
	"database/sql"
	"time"
)

// Purchase order states.
const (
	OrderPending = "pending"
	OrderPaid    = "paid"
)

// PurchaseOrder is a replenishment order placed with a supplier.
type PurchaseOrder struct {
	ID        int64               `json:"id"`
	Reference string              `json:"reference"`
	CreatedAt string              `json:"created_at"`
	Total     float64             `json:"total"`
	Status    string              `json:"status"`
	PaidAt    *string             `json:"paid_at"`
	Notes     string              `json:"notes"`
	Items     []PurchaseOrderItem `json:"items,omitempty"`
}

// PurchaseOrderItem is one product line of a purchase order.
type PurchaseOrderItem struct {
	ID          int64   `json:"id"`
	OrderID     int64   `json:"order_id"`
	ProductCode string  `json:"product_code"`
	Quantity    float64 `json:"quantity"`
	UnitCost    float64 `json:"unit_cost"`
}

// CreatePurchaseOrder writes the order and its items in one transaction.
func (db *DB) CreatePurchaseOrder(o *PurchaseOrder) error {
	if o.Status == "" {
		o.Status = OrderPending
	}
	if o.CreatedAt == "" {
		o.CreatedAt = time.Now().Format(TimeLayout)
	}
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if db.driver == "postgres" {
		err = tx.QueryRow(db.Q(`
			INSERT INTO purchase_orders (reference, created_at, total, status, notes)
			VALUES (?, ?, ?, ?, ?) RETURNING id`),
			o.Reference, o.CreatedAt, o.Total, o.Status, o.Notes).Scan(&o.ID)
	} else {
		var res sql.Result
		res, err = tx.Exec(`
			INSERT INTO purchase_orders (reference, created_at, total, status, notes)
			VALUES (?, ?, ?, ?, ?)`,
			o.Reference, o.CreatedAt, o.Total, o.Status, o.Notes)
		if err == nil {
			o.ID, err = res.LastInsertId()
		}
	}
	if err != nil {
		return err
	}

	for i := range o.Items {
		item := &o.Items[i]
		item.OrderID = o.ID
		if _, err := tx.Exec(db.Q(`
			INSERT INTO purchase_order_items (order_id, product_code, quantity, unit_cost)
			VALUES (?, ?, ?, ?)`),
			item.OrderID, item.ProductCode, item.Quantity, item.UnitCost); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (db *DB) GetPurchaseOrder(id int64) (*PurchaseOrder, error) {
	o := &PurchaseOrder{}
	err := db.QueryRow(db.Q(`
		SELECT id, reference, created_at, total, status, paid_at, notes
		FROM purchase_orders WHERE id = ?`), id).
		Scan(&o.ID, &o.Reference, &o.CreatedAt, &o.Total, &o.Status, &o.PaidAt, &o.Notes)
	if err != nil {
		return nil, notFound(err)
	}
	items, err := db.listOrderItems(id)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return o, nil
}

func (db *DB) listOrderItems(orderID int64) ([]PurchaseOrderItem, error) {
	rows, err := db.Query(db.Q(`
		SELECT id, order_id, product_code, quantity, unit_cost
		FROM purchase_order_items WHERE order_id = ? ORDER BY id`), orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PurchaseOrderItem
	for rows.Next() {
		var it PurchaseOrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductCode, &it.Quantity, &it.UnitCost); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (db *DB) ListPurchaseOrders(status string) ([]PurchaseOrder, error) {
	query := `SELECT id, reference, created_at, total, status, paid_at, notes FROM purchase_orders`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`
	rows, err := db.Query(db.Q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var orders []PurchaseOrder
	for rows.Next() {
		var o PurchaseOrder
		if err := rows.Scan(&o.ID, &o.Reference, &o.CreatedAt, &o.Total, &o.Status, &o.PaidAt, &o.Notes); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// MarkPurchaseOrderPaid transitions an order to paid and stamps paid_at.
func (db *DB) MarkPurchaseOrderPaid(id int64, paidAt string) error {
	res, err := db.Exec(db.Q(`UPDATE purchase_orders SET status = 'paid', paid_at = ? WHERE id = ? AND status = 'pending'`), paidAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
