package store

import "database/sql"

// Tender types accepted within a ticket.
const (
	TenderCash     = "cash"
	TenderCard     = "card"
	TenderTransfer = "transfer"
	TenderCredit   = "credit"
)

// Sale is one line item of a ticket. All lines of a ticket share the same
// Timestamp, which is the grouping key.
type Sale struct {
	ID             int64   `json:"id"`
	Timestamp      string  `json:"timestamp"`
	Code           string  `json:"code"`
	Name           string  `json:"name"`
	Quantity       int     `json:"quantity"`
	UnitPrice      float64 `json:"unit_price"`
	Total          float64 `json:"total"`
	WeightSold     float64 `json:"weight_sold"`
	SaleMode       string  `json:"sale_mode"`
	CustomerTier   string  `json:"customer_tier"`
	PaymentTypes   string  `json:"payment_types"`
	AmountCash     float64 `json:"amount_cash"`
	AmountCard     float64 `json:"amount_card"`
	AmountTransfer float64 `json:"amount_transfer"`
	AmountCredit   float64 `json:"amount_credit"`
	CreditDueDate  string  `json:"credit_due_date"`
	CreditDueTime  string  `json:"credit_due_time"`
	CreditCustomer string  `json:"credit_customer"`
	PaidFlag       int     `json:"paid_flag"`
}

const saleCols = `id, timestamp, code, name, quantity, unit_price, total, weight_sold, sale_mode,
	customer_tier, payment_types, amount_cash, amount_card, amount_transfer, amount_credit,
	credit_due_date, credit_due_time, credit_customer, paid_flag`

// InsertSale writes one line row inside tx and assigns s.ID.
func (db *DB) InsertSale(tx *sql.Tx, s *Sale) error {
	if db.driver == "postgres" {
		return tx.QueryRow(db.Q(`
			INSERT INTO sales (timestamp, code, name, quantity, unit_price, total, weight_sold, sale_mode,
				customer_tier, payment_types, amount_cash, amount_card, amount_transfer, amount_credit,
				credit_due_date, credit_due_time, credit_customer, paid_flag)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`),
			s.Timestamp, s.Code, s.Name, s.Quantity, s.UnitPrice, s.Total, s.WeightSold, s.SaleMode,
			s.CustomerTier, s.PaymentTypes, s.AmountCash, s.AmountCard, s.AmountTransfer, s.AmountCredit,
			s.CreditDueDate, s.CreditDueTime, s.CreditCustomer, s.PaidFlag).Scan(&s.ID)
	}
	res, err := tx.Exec(`
		INSERT INTO sales (timestamp, code, name, quantity, unit_price, total, weight_sold, sale_mode,
			customer_tier, payment_types, amount_cash, amount_card, amount_transfer, amount_credit,
			credit_due_date, credit_due_time, credit_customer, paid_flag)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.Timestamp, s.Code, s.Name, s.Quantity, s.UnitPrice, s.Total, s.WeightSold, s.SaleMode,
		s.CustomerTier, s.PaymentTypes, s.AmountCash, s.AmountCard, s.AmountTransfer, s.AmountCredit,
		s.CreditDueDate, s.CreditDueTime, s.CreditCustomer, s.PaidFlag)
	if err != nil {
		return err
	}
	s.ID, err = res.LastInsertId()
	return err
}

// ListTicket returns all line rows sharing a ticket timestamp, in insert order.
func (db *DB) ListTicket(timestamp string) ([]Sale, error) {
	rows, err := db.Query(db.Q(`SELECT `+saleCols+` FROM sales WHERE timestamp = ? ORDER BY id`), timestamp)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSales(rows)
}

// ListSalesByDate returns all sale lines whose ticket falls on a calendar day.
func (db *DB) ListSalesByDate(date string) ([]Sale, error) {
	rows, err := db.Query(db.Q(`SELECT `+saleCols+` FROM sales WHERE timestamp LIKE ? ORDER BY timestamp, id`), date+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSales(rows)
}

func collectSales(rows *sql.Rows) ([]Sale, error) {
	var sales []Sale
	for rows.Next() {
		var s Sale
		if err := rows.Scan(&s.ID, &s.Timestamp, &s.Code, &s.Name, &s.Quantity, &s.UnitPrice, &s.Total,
			&s.WeightSold, &s.SaleMode, &s.CustomerTier, &s.PaymentTypes,
			&s.AmountCash, &s.AmountCard, &s.AmountTransfer, &s.AmountCredit,
			&s.CreditDueDate, &s.CreditDueTime, &s.CreditCustomer, &s.PaidFlag); err != nil {
			return nil, err
		}
		sales = append(sales, s)
	}
	return sales, rows.Err()
}

// TenderTotals sums each tender over the tickets of a day. Tender amounts are
// stored per line; a ticket's breakdown repeats on every line, so totals come
// from one representative line per ticket.
type TenderTotals struct {
	Cash     float64 `json:"cash"`
	Card     float64 `json:"card"`
	Transfer float64 `json:"transfer"`
	Credit   float64 `json:"credit"`
	Sales    float64 `json:"sales"`
}

func (db *DB) DailyTenderTotals(date string) (*TenderTotals, error) {
	t := &TenderTotals{}
	err := db.QueryRow(db.Q(`
		SELECT COALESCE(SUM(amount_cash), 0), COALESCE(SUM(amount_card), 0),
		       COALESCE(SUM(amount_transfer), 0), COALESCE(SUM(amount_credit), 0)
		FROM sales WHERE timestamp LIKE ? AND id IN (
			SELECT MIN(id) FROM sales WHERE timestamp LIKE ? GROUP BY timestamp
		)`), date+"%", date+"%").Scan(&t.Cash, &t.Card, &t.Transfer, &t.Credit)
	if err != nil {
		return nil, err
	}
	err = db.QueryRow(db.Q(`SELECT COALESCE(SUM(total), 0) FROM sales WHERE timestamp LIKE ?`), date+"%").Scan(&t.Sales)
	return t, err
}
