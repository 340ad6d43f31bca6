// Package sales turns a validated cart into persisted ticket rows, stock
// decrements and credit entries, in one local transaction.
package sales

import (
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"cremeria/pricing"
	"cremeria/store"
)

var (
	ErrEmptyCart             = errors.New("cart is empty")
	ErrNoTender              = errors.New("no payment tender selected")
	ErrTenderMismatch        = errors.New("tender amounts do not match cart total")
	ErrInsufficientStock     = store.ErrInsufficientStock
	ErrMissingCreditCustomer = errors.New("credit sale requires a customer name")
	ErrBadLine               = errors.New("invalid cart line")
)

// tenderTolerance is the allowed gap between cart total and tender sum.
const tenderTolerance = 0.01

// CartLine is one item being sold. Quantity applies to by-unit products,
// WeightKg to by-weight products.
type CartLine struct {
	Code      string  `json:"code"`
	Name      string  `json:"name"`
	SaleMode  string  `json:"sale_mode"`
	Quantity  int     `json:"quantity"`
	WeightKg  float64 `json:"weight_kg"`
	UnitPrice float64 `json:"unit_price"`
	Total     float64 `json:"total"`
}

// Tenders is the payment breakdown of a ticket.
type Tenders struct {
	Cash     float64 `json:"cash"`
	Card     float64 `json:"card"`
	Transfer float64 `json:"transfer"`
	Credit   float64 `json:"credit"`
}

// Sum returns the total tendered amount.
func (t Tenders) Sum() float64 {
	return t.Cash + t.Card + t.Transfer + t.Credit
}

// Types returns the normalized comma-joined list of tender types used.
func (t Tenders) Types() string {
	var types []string
	if t.Cash > 0 {
		types = append(types, store.TenderCash)
	}
	if t.Card > 0 {
		types = append(types, store.TenderCard)
	}
	if t.Transfer > 0 {
		types = append(types, store.TenderTransfer)
	}
	if t.Credit > 0 {
		types = append(types, store.TenderCredit)
	}
	return strings.Join(types, ",")
}

// CreditInfo carries the receivable details of a credit tender.
type CreditInfo struct {
	CustomerName string `json:"customer_name"`
	DueDate      string `json:"due_date"`
	DueTime      string `json:"due_time"`
}

// Pusher propagates committed rows to the remote replica, best-effort.
type Pusher interface {
	PushSale(s *store.Sale)
	PushProduct(code string)
	PushCredit(c *store.CreditPending)
}

// Processor finalizes sales against the local store.
type Processor struct {
	db     *store.DB
	pusher Pusher
	now    func() time.Time
}

// NewProcessor builds a Processor. pusher may be nil when the shop runs
// without a remote replica; now is injected for deterministic tests.
func NewProcessor(db *store.DB, pusher Pusher, now func() time.Time) *Processor {
	if now == nil {
		now = time.Now
	}
	return &Processor{db: db, pusher: pusher, now: now}
}

// Finalize validates the cart and commits the ticket. It returns the shared
// ticket timestamp that groups the inserted line rows.
//
// Preconditions are checked in order and the first failure aborts with no
// writes. Remote push happens after commit and never fails the sale.
func (p *Processor) Finalize(cart []CartLine, tier string, tenders Tenders, credit *CreditInfo) (string, error) {
	if len(cart) == 0 {
		return "", ErrEmptyCart
	}
	if tenders.Sum() <= 0 {
		return "", ErrNoTender
	}

	total := 0.0
	products := make(map[string]*store.Product, len(cart))
	for i, line := range cart {
		prod, err := p.db.GetProduct(line.Code)
		if err != nil {
			return "", fmt.Errorf("line %d (%s): %w", i+1, line.Code, err)
		}
		switch prod.SaleMode {
		case store.SaleModeUnit:
			if line.Quantity <= 0 {
				return "", fmt.Errorf("line %d (%s): %w", i+1, line.Code, ErrBadLine)
			}
			if prod.StockUnits < line.Quantity {
				return "", fmt.Errorf("%s: have %d units, need %d: %w",
					prod.Code, prod.StockUnits, line.Quantity, ErrInsufficientStock)
			}
		case store.SaleModeKg:
			if line.WeightKg <= 0 {
				return "", fmt.Errorf("line %d (%s): %w", i+1, line.Code, ErrBadLine)
			}
			if prod.StockKg < line.WeightKg {
				return "", fmt.Errorf("%s: have %.3f kg, need %.3f kg: %w",
					prod.Code, prod.StockKg, line.WeightKg, ErrInsufficientStock)
			}
		}
		products[line.Code] = prod
		total += line.Total
	}
	total = pricing.Round2(total)

	if math.Abs(tenders.Sum()-total) > tenderTolerance {
		return "", fmt.Errorf("cart %.2f vs tendered %.2f: %w", total, tenders.Sum(), ErrTenderMismatch)
	}
	if tenders.Credit > 0 && (credit == nil || strings.TrimSpace(credit.CustomerName) == "") {
		return "", ErrMissingCreditCustomer
	}

	now := p.now()
	timestamp := now.Format(store.TimeLayout)

	paidFlag := 1
	if math.Abs(tenders.Credit-total) <= tenderTolerance {
		paidFlag = 0
	}

	dueDate, dueTime, customer := "", "", ""
	if tenders.Credit > 0 {
		customer = strings.TrimSpace(credit.CustomerName)
		dueDate = credit.DueDate
		if dueDate == "" {
			dueDate = now.AddDate(0, 0, 1).Format(store.DateLayout)
		}
		dueTime = credit.DueTime
		if dueTime == "" {
			dueTime = "15:00"
		}
	}

	tx, err := p.db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin sale tx: %w", err)
	}
	defer tx.Rollback()

	saleRows := make([]*store.Sale, 0, len(cart))
	for _, line := range cart {
		prod := products[line.Code]
		s := &store.Sale{
			Timestamp:      timestamp,
			Code:           prod.Code,
			Name:           prod.Name,
			Quantity:       line.Quantity,
			UnitPrice:      line.UnitPrice,
			Total:          pricing.Round2(line.Total),
			SaleMode:       prod.SaleMode,
			CustomerTier:   tier,
			PaymentTypes:   tenders.Types(),
			AmountCash:     tenders.Cash,
			AmountCard:     tenders.Card,
			AmountTransfer: tenders.Transfer,
			AmountCredit:   tenders.Credit,
			CreditDueDate:  dueDate,
			CreditDueTime:  dueTime,
			CreditCustomer: customer,
			PaidFlag:       paidFlag,
		}
		if prod.SaleMode == store.SaleModeKg {
			s.WeightSold = line.WeightKg
			s.Quantity = 0
		}
		if err := p.db.InsertSale(tx, s); err != nil {
			return "", fmt.Errorf("insert sale line: %w", err)
		}
		saleRows = append(saleRows, s)

		if prod.SaleMode == store.SaleModeKg {
			err = p.db.DecrementStockKg(tx, prod.Code, line.WeightKg, timestamp)
		} else {
			err = p.db.DecrementStockUnits(tx, prod.Code, line.Quantity, timestamp)
		}
		if err != nil {
			return "", fmt.Errorf("decrement stock %s: %w", prod.Code, err)
		}
	}

	var creditRow *store.CreditPending
	if tenders.Credit > 0 {
		creditRow = &store.CreditPending{
			CustomerName:  customer,
			Amount:        pricing.Round2(tenders.Credit),
			SaleTimestamp: timestamp,
			DueDate:       dueDate,
			DueTime:       dueTime,
			SaleID:        &saleRows[0].ID,
		}
		if err := p.db.InsertCredit(tx, creditRow); err != nil {
			return "", fmt.Errorf("insert credit: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit sale: %w", err)
	}

	if p.pusher != nil {
		for _, s := range saleRows {
			p.pusher.PushSale(s)
		}
		for code := range products {
			p.pusher.PushProduct(code)
		}
		if creditRow != nil {
			p.pusher.PushCredit(creditRow)
		}
	} else {
		log.Printf("sale %s committed without remote push (no replica configured)", timestamp)
	}
	return timestamp, nil
}
