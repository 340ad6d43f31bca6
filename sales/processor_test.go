package sales

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"cremeria/config"
	"cremeria/store"
)

func testDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(&config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func fixedClock() time.Time {
	return time.Date(2026, 2, 1, 14, 30, 0, 0, time.Local)
}

// fakePusher records what was pushed after commit.
type fakePusher struct {
	sales    []*store.Sale
	products []string
	credits  []*store.CreditPending
}

func (f *fakePusher) PushSale(s *store.Sale)            { f.sales = append(f.sales, s) }
func (f *fakePusher) PushProduct(code string)           { f.products = append(f.products, code) }
func (f *fakePusher) PushCredit(c *store.CreditPending) { f.credits = append(f.credits, c) }

func seedCatalog(t *testing.T, db *store.DB) {
	t.Helper()
	for _, p := range []*store.Product{
		{Code: "CREMA", Name: "Crema 1L", SaleMode: store.SaleModeUnit, StockUnits: 10, PriceNormal: 40},
		{Code: "QUESO", Name: "Queso Oaxaca", SaleMode: store.SaleModeKg, StockKg: 5.0, PricePerKg: 180},
	} {
		if err := db.CreateProduct(p); err != nil {
			t.Fatalf("seed %s: %v", p.Code, err)
		}
	}
}

func TestFinalize_CashSale(t *testing.T) {
	db := testDB(t)
	seedCatalog(t, db)
	pusher := &fakePusher{}
	proc := NewProcessor(db, pusher, fixedClock)

	cart := []CartLine{
		{Code: "CREMA", SaleMode: store.SaleModeUnit, Quantity: 2, UnitPrice: 40, Total: 80},
		{Code: "QUESO", SaleMode: store.SaleModeKg, WeightKg: 0.5, UnitPrice: 180, Total: 90},
	}
	ts, err := proc.Finalize(cart, store.TierNormal, Tenders{Cash: 170}, nil)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if ts != "2026-02-01 14:30:00" {
		t.Errorf("timestamp = %q", ts)
	}

	// All lines share the ticket timestamp.
	lines, _ := db.ListTicket(ts)
	if len(lines) != 2 {
		t.Fatalf("ticket lines = %d, want 2", len(lines))
	}
	for _, l := range lines {
		if l.PaidFlag != 1 {
			t.Errorf("line %s paid_flag = %d, want 1", l.Code, l.PaidFlag)
		}
		if l.PaymentTypes != store.TenderCash {
			t.Errorf("line %s payment_types = %q", l.Code, l.PaymentTypes)
		}
	}

	// Stock decremented per mode.
	crema, _ := db.GetProduct("CREMA")
	if crema.StockUnits != 8 {
		t.Errorf("CREMA stock = %d, want 8", crema.StockUnits)
	}
	queso, _ := db.GetProduct("QUESO")
	if queso.StockKg != 4.5 {
		t.Errorf("QUESO stock = %v, want 4.5", queso.StockKg)
	}

	// Committed rows were pushed.
	if len(pusher.sales) != 2 || len(pusher.products) != 2 {
		t.Errorf("pushed sales=%d products=%d", len(pusher.sales), len(pusher.products))
	}
	if len(pusher.credits) != 0 {
		t.Errorf("pushed credits = %d, want 0", len(pusher.credits))
	}
}

func TestFinalize_CreditSale(t *testing.T) {
	db := testDB(t)
	seedCatalog(t, db)
	pusher := &fakePusher{}
	proc := NewProcessor(db, pusher, fixedClock)

	cart := []CartLine{{Code: "CREMA", SaleMode: store.SaleModeUnit, Quantity: 1, UnitPrice: 40, Total: 40}}
	credit := &CreditInfo{CustomerName: "Dona Mari"}
	ts, err := proc.Finalize(cart, store.TierNormal, Tenders{Credit: 40}, credit)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}

	// Fully on credit: the ticket stays unpaid.
	lines, _ := db.ListTicket(ts)
	if lines[0].PaidFlag != 0 {
		t.Error("paid_flag should be 0 for a full-credit sale")
	}

	credits, _ := db.ListUnpaidCredits()
	if len(credits) != 1 {
		t.Fatalf("credits = %d, want 1", len(credits))
	}
	c := credits[0]
	if c.CustomerName != "Dona Mari" || c.Amount != 40 {
		t.Errorf("credit = %+v", c)
	}
	// Defaults: due tomorrow at 15:00.
	if c.DueDate != "2026-02-02" {
		t.Errorf("DueDate = %q, want 2026-02-02", c.DueDate)
	}
	if c.DueTime != "15:00" {
		t.Errorf("DueTime = %q, want 15:00", c.DueTime)
	}
	if c.SaleID == nil || *c.SaleID != lines[0].ID {
		t.Errorf("SaleID = %v, want %d", c.SaleID, lines[0].ID)
	}
	if len(pusher.credits) != 1 {
		t.Errorf("pushed credits = %d, want 1", len(pusher.credits))
	}
}

func TestFinalize_PartialCreditStaysPaid(t *testing.T) {
	db := testDB(t)
	seedCatalog(t, db)
	proc := NewProcessor(db, nil, fixedClock)

	cart := []CartLine{{Code: "CREMA", SaleMode: store.SaleModeUnit, Quantity: 2, UnitPrice: 40, Total: 80}}
	ts, err := proc.Finalize(cart, store.TierNormal, Tenders{Cash: 50, Credit: 30}, &CreditInfo{CustomerName: "Luis"})
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	lines, _ := db.ListTicket(ts)
	if lines[0].PaidFlag != 1 {
		t.Error("partially-credited ticket should keep paid_flag = 1")
	}
	if lines[0].PaymentTypes != "cash,credit" {
		t.Errorf("payment_types = %q", lines[0].PaymentTypes)
	}
	credits, _ := db.ListUnpaidCredits()
	if len(credits) != 1 || credits[0].Amount != 30 {
		t.Errorf("credits = %+v", credits)
	}
}

func TestFinalize_PreconditionOrder(t *testing.T) {
	db := testDB(t)
	seedCatalog(t, db)
	proc := NewProcessor(db, nil, fixedClock)

	if _, err := proc.Finalize(nil, store.TierNormal, Tenders{Cash: 10}, nil); !errors.Is(err, ErrEmptyCart) {
		t.Errorf("empty cart err = %v", err)
	}

	cart := []CartLine{{Code: "CREMA", SaleMode: store.SaleModeUnit, Quantity: 1, UnitPrice: 40, Total: 40}}
	if _, err := proc.Finalize(cart, store.TierNormal, Tenders{}, nil); !errors.Is(err, ErrNoTender) {
		t.Errorf("no tender err = %v", err)
	}
	if _, err := proc.Finalize(cart, store.TierNormal, Tenders{Cash: 100}, nil); !errors.Is(err, ErrTenderMismatch) {
		t.Errorf("mismatch err = %v", err)
	}
	if _, err := proc.Finalize(cart, store.TierNormal, Tenders{Credit: 40}, nil); !errors.Is(err, ErrMissingCreditCustomer) {
		t.Errorf("missing customer err = %v", err)
	}
	if _, err := proc.Finalize(cart, store.TierNormal, Tenders{Credit: 40}, &CreditInfo{CustomerName: "  "}); !errors.Is(err, ErrMissingCreditCustomer) {
		t.Errorf("blank customer err = %v", err)
	}

	over := []CartLine{{Code: "QUESO", SaleMode: store.SaleModeKg, WeightKg: 9.0, UnitPrice: 180, Total: 1620}}
	if _, err := proc.Finalize(over, store.TierNormal, Tenders{Cash: 1620}, nil); !errors.Is(err, ErrInsufficientStock) {
		t.Errorf("stock err = %v", err)
	}

	bad := []CartLine{{Code: "CREMA", SaleMode: store.SaleModeUnit, Quantity: 0, UnitPrice: 40}}
	if _, err := proc.Finalize(bad, store.TierNormal, Tenders{Cash: 40}, nil); !errors.Is(err, ErrBadLine) {
		t.Errorf("bad line err = %v", err)
	}

	// None of the failures wrote anything.
	if sales, _ := db.ListSalesByDate("2026-02-01"); len(sales) != 0 {
		t.Errorf("sales written on failure = %d", len(sales))
	}
	crema, _ := db.GetProduct("CREMA")
	if crema.StockUnits != 10 {
		t.Errorf("stock touched on failure: %d", crema.StockUnits)
	}
	if credits, _ := db.ListUnpaidCredits(); len(credits) != 0 {
		t.Errorf("credits written on failure = %d", len(credits))
	}
}

func TestFinalize_TenderTolerance(t *testing.T) {
	db := testDB(t)
	seedCatalog(t, db)
	proc := NewProcessor(db, nil, fixedClock)

	cart := []CartLine{{Code: "CREMA", SaleMode: store.SaleModeUnit, Quantity: 1, UnitPrice: 40, Total: 40}}
	// A one-cent gap is accepted; anything wider is not.
	if _, err := proc.Finalize(cart, store.TierNormal, Tenders{Cash: 40.01}, nil); err != nil {
		t.Errorf("within tolerance: %v", err)
	}
	if _, err := proc.Finalize(cart, store.TierNormal, Tenders{Cash: 40.02}, nil); !errors.Is(err, ErrTenderMismatch) {
		t.Errorf("outside tolerance err = %v", err)
	}
}

func TestFinalize_UnknownProduct(t *testing.T) {
	db := testDB(t)
	proc := NewProcessor(db, nil, fixedClock)

	cart := []CartLine{{Code: "GHOST", SaleMode: store.SaleModeUnit, Quantity: 1, UnitPrice: 5, Total: 5}}
	if _, err := proc.Finalize(cart, store.TierNormal, Tenders{Cash: 5}, nil); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("unknown product err = %v", err)
	}
}

func TestFinalize_CumulativeOversell(t *testing.T) {
	db := testDB(t)
	seedCatalog(t, db)
	proc := NewProcessor(db, nil, fixedClock)

	// Each line alone passes the per-line check against 10 units; together
	// they oversell, so the in-transaction guard has to catch it.
	cart := []CartLine{
		{Code: "CREMA", SaleMode: store.SaleModeUnit, Quantity: 6, UnitPrice: 40, Total: 240},
		{Code: "CREMA", SaleMode: store.SaleModeUnit, Quantity: 6, UnitPrice: 40, Total: 240},
	}
	_, err := proc.Finalize(cart, store.TierNormal, Tenders{Cash: 480}, nil)
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("err = %v, want ErrInsufficientStock", err)
	}
	if errors.Is(err, store.ErrNotFound) {
		t.Error("oversell should not read as a missing product")
	}

	// The whole ticket rolled back.
	crema, _ := db.GetProduct("CREMA")
	if crema.StockUnits != 10 {
		t.Errorf("stock after rollback = %d, want 10", crema.StockUnits)
	}
	if lines, _ := db.ListTicket("2026-02-01 14:30:00"); len(lines) != 0 {
		t.Errorf("rolled-back ticket has %d lines", len(lines))
	}
}
