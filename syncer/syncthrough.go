package syncer

import (
	"log"

	"cremeria/store"
)

// Single-row sync-through: eager best-effort propagation after a local write.
// Failures are logged only; the periodic cycle re-converges the row because
// upsert is idempotent.

func (e *Engine) findSpec(name string) *TableSpec {
	for i := range pushTables {
		if pushTables[i].Name == name {
			return &pushTables[i]
		}
	}
	return nil
}

func (e *Engine) pushOne(specName, whereSQL string, args ...any) {
	if e.remote == nil || !e.remote.Enabled() {
		return
	}
	spec := e.findSpec(specName)
	if spec == nil {
		return
	}
	rows, err := e.materializeWhere(spec, whereSQL, args...)
	if err != nil {
		log.Printf("sync-through %s: %v", specName, err)
		return
	}
	if len(rows) == 0 {
		return
	}
	if err := e.upsertBatch(spec, rows); err != nil {
		log.Printf("sync-through %s: upsert: %v", specName, err)
	}
}

func (e *Engine) materializeWhere(spec *TableSpec, whereSQL string, args ...any) ([]map[string]any, error) {
	return e.materializeSQL(spec, spec.LocalSQL+" WHERE "+whereSQL, args...)
}

// PushSale propagates one committed sale line.
func (e *Engine) PushSale(s *store.Sale) {
	e.pushOne("sales", e.db.Q("id = ?"), s.ID)
}

// PushProduct propagates a product's current state (stock included).
func (e *Engine) PushProduct(code string) {
	e.pushOne("products", e.db.Q("code = ?"), code)
}

// PushCredit propagates one receivable.
func (e *Engine) PushCredit(c *store.CreditPending) {
	e.pushOne("credit_pending", e.db.Q("id = ?"), c.ID)
}

// PushExpense propagates one expense entry.
func (e *Engine) PushExpense(id int64) {
	e.pushOne("expenses", e.db.Q("id = ?"), id)
}

// PushPassiveIncome propagates one passive income entry.
func (e *Engine) PushPassiveIncome(id int64) {
	e.pushOne("passive_income", e.db.Q("id = ?"), id)
}

// PushPurchaseOrder propagates an order and then its items, parent first.
func (e *Engine) PushPurchaseOrder(id int64) {
	e.pushOne("purchase_orders", e.db.Q("id = ?"), id)
	e.pushOne("purchase_order_items", e.db.Q("order_id = ?"), id)
}
