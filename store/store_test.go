package store

import (
	"errors"
	"path/filepath"
	"testing"

	"cremeria/config"
)

// testDB creates a temporary SQLite database for testing.
func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(&config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func plu(n int64) *int64 { return &n }

// --- Migration tests ---

func TestMigrateIdempotent(t *testing.T) {
	db := testDB(t)
	// Open already migrated; running again must be a no-op.
	if err := db.Migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("third migrate: %v", err)
	}
}

func TestTableColumns(t *testing.T) {
	db := testDB(t)
	cols, err := db.TableColumns("products")
	if err != nil {
		t.Fatalf("table columns: %v", err)
	}
	want := map[string]bool{"code": false, "plu_number": false, "sale_mode": false, "updated_at": false}
	for _, c := range cols {
		if _, ok := want[c]; ok {
			want[c] = true
		}
	}
	for c, seen := range want {
		if !seen {
			t.Errorf("column %q missing from products", c)
		}
	}
}

// --- Product tests ---

func TestProductCRUD(t *testing.T) {
	db := testDB(t)

	p := &Product{
		Code:       "7501055300846",
		PLUNumber:  plu(55123),
		Name:       "Queso Oaxaca",
		SaleMode:   SaleModeKg,
		StockKg:    12.5,
		PricePerKg: 180,
		Category:   "quesos",
	}
	if err := db.CreateProduct(p); err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.UpdatedAt == "" {
		t.Error("UpdatedAt should be stamped on create")
	}

	got, err := db.GetProduct("7501055300846")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Queso Oaxaca" {
		t.Errorf("Name = %q", got.Name)
	}
	if got.PLUNumber == nil || *got.PLUNumber != 55123 {
		t.Errorf("PLUNumber = %v, want 55123", got.PLUNumber)
	}

	got.PricePerKg = 190
	if err := db.UpdateProduct(got); err != nil {
		t.Fatalf("update: %v", err)
	}
	got2, _ := db.GetProduct(p.Code)
	if got2.PricePerKg != 190 {
		t.Errorf("PricePerKg = %v, want 190", got2.PricePerKg)
	}

	if err := db.DeleteProduct(p.Code); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := db.GetProduct(p.Code); !errors.Is(err, ErrNotFound) {
		t.Errorf("after delete: err = %v, want ErrNotFound", err)
	}
}

func TestUpdateProductMissing(t *testing.T) {
	db := testDB(t)
	err := db.UpdateProduct(&Product{Code: "nope", Name: "x"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDecrementStock(t *testing.T) {
	db := testDB(t)

	unit := &Product{Code: "U1", Name: "Crema 1L", SaleMode: SaleModeUnit, StockUnits: 5, PriceNormal: 40}
	bulk := &Product{Code: "K1", Name: "Jamon", SaleMode: SaleModeKg, StockKg: 2.0, PricePerKg: 120}
	db.CreateProduct(unit)
	db.CreateProduct(bulk)

	tx, _ := db.Begin()
	if err := db.DecrementStockUnits(tx, "U1", 3, "2026-02-01 10:00:00"); err != nil {
		t.Fatalf("decrement units: %v", err)
	}
	if err := db.DecrementStockKg(tx, "K1", 0.75, "2026-02-01 10:00:00"); err != nil {
		t.Fatalf("decrement kg: %v", err)
	}
	tx.Commit()

	u, _ := db.GetProduct("U1")
	if u.StockUnits != 2 {
		t.Errorf("StockUnits = %d, want 2", u.StockUnits)
	}
	k, _ := db.GetProduct("K1")
	if k.StockKg != 1.25 {
		t.Errorf("StockKg = %v, want 1.25", k.StockKg)
	}

	// Guard: decrementing past zero fails and leaves stock untouched. The
	// error kind tells a failed guard apart from a missing product.
	tx2, _ := db.Begin()
	if err := db.DecrementStockUnits(tx2, "U1", 10, "2026-02-01 10:05:00"); !errors.Is(err, ErrInsufficientStock) {
		t.Errorf("overdraw err = %v, want ErrInsufficientStock", err)
	}
	if err := db.DecrementStockKg(tx2, "K1", 9.5, "2026-02-01 10:05:00"); !errors.Is(err, ErrInsufficientStock) {
		t.Errorf("kg overdraw err = %v, want ErrInsufficientStock", err)
	}
	if err := db.DecrementStockUnits(tx2, "GHOST", 1, "2026-02-01 10:05:00"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing product err = %v, want ErrNotFound", err)
	}
	tx2.Rollback()
	u2, _ := db.GetProduct("U1")
	if u2.StockUnits != 2 {
		t.Errorf("StockUnits after failed overdraw = %d, want 2", u2.StockUnits)
	}
}

func TestListLowStock(t *testing.T) {
	db := testDB(t)

	db.CreateProduct(&Product{Code: "L1", Name: "Low units", SaleMode: SaleModeUnit, StockUnits: 2, MinStockUnits: 5})
	db.CreateProduct(&Product{Code: "L2", Name: "Fine units", SaleMode: SaleModeUnit, StockUnits: 20, MinStockUnits: 5})
	db.CreateProduct(&Product{Code: "L3", Name: "Low kg", SaleMode: SaleModeKg, StockKg: 0.5, MinStockKg: 1})
	db.CreateProduct(&Product{Code: "L4", Name: "No minimum", SaleMode: SaleModeUnit, StockUnits: 0})

	low, err := db.ListLowStock()
	if err != nil {
		t.Fatalf("list low stock: %v", err)
	}
	if len(low) != 2 {
		t.Fatalf("low stock count = %d, want 2", len(low))
	}
	codes := map[string]bool{}
	for _, p := range low {
		codes[p.Code] = true
	}
	if !codes["L1"] || !codes["L3"] {
		t.Errorf("low stock codes = %v", codes)
	}
}

func TestFindByScanCode(t *testing.T) {
	db := testDB(t)

	db.CreateProduct(&Product{Code: "7501055300846", Name: "Exact", SaleMode: SaleModeUnit})
	db.CreateProduct(&Product{Code: "CHEESE-01", PLUNumber: plu(4011), Name: "By PLU", SaleMode: SaleModeKg})
	db.CreateProduct(&Product{Code: "QQ234567QQ", Name: "By tail", SaleMode: SaleModeUnit})
	db.CreateProduct(&Product{Code: "MAPPED-01", Name: "By mapping", SaleMode: SaleModeUnit})
	db.SetBarcodeMapping("999999999", "MAPPED-01")

	cases := []struct {
		scan, wantCode string
	}{
		{"7501055300846", "7501055300846"}, // exact code
		{"4011", "CHEESE-01"},             // PLU lookup
		{"881234567", "QQ234567QQ"},       // 9-digit scan, trailing digits inside a code
		{"999999999", "MAPPED-01"},        // mapping table fallback
	}
	for _, c := range cases {
		p, err := db.FindByScanCode(c.scan)
		if err != nil {
			t.Errorf("FindByScanCode(%q): %v", c.scan, err)
			continue
		}
		if p.Code != c.wantCode {
			t.Errorf("FindByScanCode(%q) = %q, want %q", c.scan, p.Code, c.wantCode)
		}
	}

	if _, err := db.FindByScanCode("0"); !errors.Is(err, ErrNotFound) {
		t.Errorf("miss: err = %v, want ErrNotFound", err)
	}
}

func TestFindByScanCode_NineDigitPLUTails(t *testing.T) {
	db := testDB(t)
	// Scale frames carry a 9-digit code whose tail is the catalog PLU.
	db.CreateProduct(&Product{Code: "JAM-SER", PLUNumber: plu(1234567), Name: "7-digit PLU", SaleMode: SaleModeKg})

	p, err := db.FindByScanCode("261234567")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if p.Code != "JAM-SER" {
		t.Errorf("resolved %q, want JAM-SER", p.Code)
	}
}

func TestUpsertProductFromRemote_PreservesPLU(t *testing.T) {
	db := testDB(t)
	db.CreateProduct(&Product{Code: "P1", PLUNumber: plu(777), Name: "Local", SaleMode: SaleModeUnit, PriceNormal: 10})

	// Remote rows carry no plu_number; the local value must survive.
	err := db.UpsertProductFromRemote(&Product{Code: "P1", Name: "Remote name", SaleMode: SaleModeUnit, PriceNormal: 12, UpdatedAt: "2026-03-01 00:00:00"})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, _ := db.GetProduct("P1")
	if got.Name != "Remote name" || got.PriceNormal != 12 {
		t.Errorf("remote fields not applied: %+v", got)
	}
	if got.PLUNumber == nil || *got.PLUNumber != 777 {
		t.Errorf("PLUNumber = %v, want 777", got.PLUNumber)
	}

	// Unknown code inserts.
	if err := db.UpsertProductFromRemote(&Product{Code: "P2", Name: "New", SaleMode: SaleModeKg}); err != nil {
		t.Fatalf("insert new: %v", err)
	}
	if _, err := db.GetProduct("P2"); err != nil {
		t.Errorf("new product missing: %v", err)
	}
}

// --- Sale and credit tests ---

func TestInsertSaleAndTicket(t *testing.T) {
	db := testDB(t)
	ts := "2026-02-01 12:30:00"

	tx, _ := db.Begin()
	for _, s := range []*Sale{
		{Timestamp: ts, Code: "A", Name: "Item A", Quantity: 2, UnitPrice: 10, Total: 20, SaleMode: SaleModeUnit, CustomerTier: TierNormal, PaymentTypes: TenderCash, AmountCash: 50, PaidFlag: 1},
		{Timestamp: ts, Code: "B", Name: "Item B", WeightSold: 0.5, UnitPrice: 60, Total: 30, SaleMode: SaleModeKg, CustomerTier: TierNormal, PaymentTypes: TenderCash, AmountCash: 50, PaidFlag: 1},
	} {
		if err := db.InsertSale(tx, s); err != nil {
			t.Fatalf("insert sale: %v", err)
		}
		if s.ID == 0 {
			t.Error("sale ID should be assigned")
		}
	}
	tx.Commit()

	ticket, err := db.ListTicket(ts)
	if err != nil {
		t.Fatalf("list ticket: %v", err)
	}
	if len(ticket) != 2 {
		t.Fatalf("ticket lines = %d, want 2", len(ticket))
	}

	day, err := db.ListSalesByDate("2026-02-01")
	if err != nil {
		t.Fatalf("list by date: %v", err)
	}
	if len(day) != 2 {
		t.Errorf("day lines = %d, want 2", len(day))
	}
	if other, _ := db.ListSalesByDate("2026-02-02"); len(other) != 0 {
		t.Errorf("wrong-day lines = %d, want 0", len(other))
	}
}

func TestDailyTenderTotals(t *testing.T) {
	db := testDB(t)

	// Two tickets. Tender amounts repeat on every line of a ticket, so totals
	// must count each ticket once, not each line.
	tx, _ := db.Begin()
	db.InsertSale(tx, &Sale{Timestamp: "2026-02-01 09:00:00", Code: "A", Name: "A", Quantity: 1, Total: 30, SaleMode: SaleModeUnit, PaymentTypes: TenderCash, AmountCash: 100, PaidFlag: 1})
	db.InsertSale(tx, &Sale{Timestamp: "2026-02-01 09:00:00", Code: "B", Name: "B", Quantity: 1, Total: 70, SaleMode: SaleModeUnit, PaymentTypes: TenderCash, AmountCash: 100, PaidFlag: 1})
	db.InsertSale(tx, &Sale{Timestamp: "2026-02-01 11:00:00", Code: "C", Name: "C", Quantity: 1, Total: 55, SaleMode: SaleModeUnit, PaymentTypes: TenderCard, AmountCard: 55, PaidFlag: 1})
	tx.Commit()

	totals, err := db.DailyTenderTotals("2026-02-01")
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if totals.Cash != 100 {
		t.Errorf("Cash = %v, want 100", totals.Cash)
	}
	if totals.Card != 55 {
		t.Errorf("Card = %v, want 55", totals.Card)
	}
	if totals.Sales != 155 {
		t.Errorf("Sales = %v, want 155", totals.Sales)
	}
}

func TestCreditLifecycle(t *testing.T) {
	db := testDB(t)

	tx, _ := db.Begin()
	sale := &Sale{Timestamp: "2026-02-01 10:00:00", Code: "A", Name: "A", Quantity: 1, Total: 200, SaleMode: SaleModeUnit, PaymentTypes: TenderCredit, AmountCredit: 200, PaidFlag: 0}
	db.InsertSale(tx, sale)
	c := &CreditPending{CustomerName: "Dona Mari", Amount: 200, SaleTimestamp: sale.Timestamp, DueDate: "2026-02-02", SaleID: &sale.ID}
	if err := db.InsertCredit(tx, c); err != nil {
		t.Fatalf("insert credit: %v", err)
	}
	tx.Commit()

	if c.DueTime != "15:00" {
		t.Errorf("DueTime = %q, want default 15:00", c.DueTime)
	}

	unpaid, _ := db.ListUnpaidCredits()
	if len(unpaid) != 1 {
		t.Fatalf("unpaid = %d, want 1", len(unpaid))
	}

	if err := db.MarkCreditAlerted(c.ID); err != nil {
		t.Fatalf("mark alerted: %v", err)
	}
	got, _ := db.GetCredit(c.ID)
	if got.AlertShownFlag != 1 {
		t.Error("AlertShownFlag should be 1")
	}

	n, err := db.RearmCreditAlerts()
	if err != nil || n != 1 {
		t.Fatalf("rearm = %d, %v; want 1, nil", n, err)
	}
	got, _ = db.GetCredit(c.ID)
	if got.AlertShownFlag != 0 {
		t.Error("AlertShownFlag should be re-armed to 0")
	}

	if err := db.MarkCreditPaid(c.ID); err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	got, _ = db.GetCredit(c.ID)
	if got.PaidFlag != 1 {
		t.Error("PaidFlag should be 1")
	}
	// The originating sale settles too.
	ticket, _ := db.ListTicket(sale.Timestamp)
	if len(ticket) != 1 || ticket[0].PaidFlag != 1 {
		t.Error("sale paid_flag should follow the credit")
	}

	if unpaid, _ := db.ListUnpaidCredits(); len(unpaid) != 0 {
		t.Errorf("unpaid after settle = %d, want 0", len(unpaid))
	}
}

// --- Finance tests ---

func TestExpenseCRUD(t *testing.T) {
	db := testDB(t)

	e := &ExpenseEntry{Date: "2026-02-01", Kind: "servicios", Description: "Luz", Amount: 450, Username: "mari"}
	if err := db.CreateExpense(e); err != nil {
		t.Fatalf("create: %v", err)
	}
	if e.ID == 0 {
		t.Fatal("ID should be assigned")
	}

	list, err := db.ListExpenses("2026-02-01", "2026-02-28")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Description != "Luz" {
		t.Errorf("list = %+v", list)
	}
	if out, _ := db.ListExpenses("2026-03-01", "2026-03-31"); len(out) != 0 {
		t.Errorf("out-of-range list = %d entries", len(out))
	}

	if err := db.DeleteExpense(e.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := db.DeleteExpense(e.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("double delete err = %v, want ErrNotFound", err)
	}
}

func TestPassiveIncomeCRUD(t *testing.T) {
	db := testDB(t)

	e := &PassiveIncomeEntry{Date: "2026-02-05", Description: "Renta local", Amount: 3000}
	if err := db.CreatePassiveIncome(e); err != nil {
		t.Fatalf("create: %v", err)
	}
	list, err := db.ListPassiveIncome("", "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("list = %d entries, want 1", len(list))
	}
	if err := db.DeletePassiveIncome(e.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

// --- Purchase order tests ---

func TestPurchaseOrderLifecycle(t *testing.T) {
	db := testDB(t)

	o := &PurchaseOrder{
		Reference: "po-001",
		Total:     1500,
		Notes:     "entrega martes",
		Items: []PurchaseOrderItem{
			{ProductCode: "A", Quantity: 10, UnitCost: 100},
			{ProductCode: "B", Quantity: 5, UnitCost: 100},
		},
	}
	if err := db.CreatePurchaseOrder(o); err != nil {
		t.Fatalf("create: %v", err)
	}
	if o.ID == 0 {
		t.Fatal("ID should be assigned")
	}
	if o.Status != OrderPending {
		t.Errorf("Status = %q, want pending", o.Status)
	}

	got, err := db.GetPurchaseOrder(o.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(got.Items))
	}

	pending, _ := db.ListPurchaseOrders(OrderPending)
	if len(pending) != 1 {
		t.Errorf("pending = %d, want 1", len(pending))
	}

	if err := db.MarkPurchaseOrderPaid(o.ID, "2026-02-03 09:00:00"); err != nil {
		t.Fatalf("pay: %v", err)
	}
	got, _ = db.GetPurchaseOrder(o.ID)
	if got.Status != OrderPaid || got.PaidAt == nil {
		t.Errorf("after pay: status=%q paid_at=%v", got.Status, got.PaidAt)
	}

	// Paying twice fails: the order already left pending.
	if err := db.MarkPurchaseOrderPaid(o.ID, "2026-02-03 10:00:00"); !errors.Is(err, ErrNotFound) {
		t.Errorf("double pay err = %v, want ErrNotFound", err)
	}
}

// --- User and session tests ---

func TestUserCRUD(t *testing.T) {
	db := testDB(t)

	id, err := db.CreateUser("mari", "hash123", RoleAdmin, "Maria C.")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id == 0 {
		t.Fatal("id should be assigned")
	}

	u, err := db.GetUser("mari")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if u.Role != RoleAdmin || !u.Active {
		t.Errorf("user = %+v", u)
	}

	if err := db.SetUserActive("mari", false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	u, _ = db.GetUser("mari")
	if u.Active {
		t.Error("user should be inactive")
	}

	if err := db.UpdateUserPassword("mari", "newhash"); err != nil {
		t.Fatalf("set password: %v", err)
	}
	u, _ = db.GetUser("mari")
	if u.PasswordHash != "newhash" {
		t.Errorf("PasswordHash = %q", u.PasswordHash)
	}
}

func TestSessions(t *testing.T) {
	db := testDB(t)
	db.CreateUser("mari", "h", RoleClerk, "")

	s := &Session{Token: "tok1", Username: "mari", IssuedAt: "2026-02-01 08:00:00", ExpiresAt: "2026-02-01 20:00:00"}
	if err := db.CreateSession(s); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := db.GetSession("tok1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Username != "mari" {
		t.Errorf("Username = %q", got.Username)
	}

	n, err := db.DeleteExpiredSessions("2026-02-02 00:00:00")
	if err != nil || n != 1 {
		t.Fatalf("reap = %d, %v; want 1, nil", n, err)
	}
	if _, err := db.GetSession("tok1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("after reap err = %v, want ErrNotFound", err)
	}
}
