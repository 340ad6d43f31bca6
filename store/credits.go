package store

import "database/sql"

// CreditPending is an accounts-receivable entry opened by a credit tender.
// Rows are never deleted; they transition through paid_flag/alert_shown_flag.
type CreditPending struct {
	ID             int64   `json:"id"`
	CustomerName   string  `json:"customer_name"`
	Amount         float64 `json:"amount"`
	SaleTimestamp  string  `json:"sale_timestamp"`
	DueDate        string  `json:"due_date"`
	DueTime        string  `json:"due_time"`
	SaleID         *int64  `json:"sale_id"`
	PaidFlag       int     `json:"paid_flag"`
	AlertShownFlag int     `json:"alert_shown_flag"`
}

const creditCols = `id, customer_name, amount, sale_timestamp, due_date, due_time, sale_id, paid_flag, alert_shown_flag`

// InsertCredit writes a credit row inside tx and assigns c.ID.
func (db *DB) InsertCredit(tx *sql.Tx, c *CreditPending) error {
	if c.DueTime == "" {
		c.DueTime = "15:00"
	}
	if db.driver == "postgres" {
		return tx.QueryRow(db.Q(`
			INSERT INTO credit_pending (customer_name, amount, sale_timestamp, due_date, due_time, sale_id, paid_flag, alert_shown_flag)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`),
			c.CustomerName, c.Amount, c.SaleTimestamp, c.DueDate, c.DueTime, c.SaleID, c.PaidFlag, c.AlertShownFlag).Scan(&c.ID)
	}
	res, err := tx.Exec(`
		INSERT INTO credit_pending (customer_name, amount, sale_timestamp, due_date, due_time, sale_id, paid_flag, alert_shown_flag)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.CustomerName, c.Amount, c.SaleTimestamp, c.DueDate, c.DueTime, c.SaleID, c.PaidFlag, c.AlertShownFlag)
	if err != nil {
		return err
	}
	c.ID, err = res.LastInsertId()
	return err
}

func (db *DB) GetCredit(id int64) (*CreditPending, error) {
	c := &CreditPending{}
	err := db.QueryRow(db.Q(`SELECT `+creditCols+` FROM credit_pending WHERE id = ?`), id).
		Scan(&c.ID, &c.CustomerName, &c.Amount, &c.SaleTimestamp, &c.DueDate, &c.DueTime, &c.SaleID, &c.PaidFlag, &c.AlertShownFlag)
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

// ListUnpaidCredits returns every open credit ordered by due date and time.
func (db *DB) ListUnpaidCredits() ([]CreditPending, error) {
	rows, err := db.Query(`SELECT ` + creditCols + ` FROM credit_pending WHERE paid_flag = 0 ORDER BY due_date, due_time`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCredits(rows)
}

func (db *DB) ListAllCredits() ([]CreditPending, error) {
	rows, err := db.Query(`SELECT ` + creditCols + ` FROM credit_pending ORDER BY due_date DESC, due_time DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCredits(rows)
}

func collectCredits(rows *sql.Rows) ([]CreditPending, error) {
	var credits []CreditPending
	for rows.Next() {
		var c CreditPending
		if err := rows.Scan(&c.ID, &c.CustomerName, &c.Amount, &c.SaleTimestamp, &c.DueDate, &c.DueTime,
			&c.SaleID, &c.PaidFlag, &c.AlertShownFlag); err != nil {
			return nil, err
		}
		credits = append(credits, c)
	}
	return credits, rows.Err()
}

func (db *DB) MarkCreditPaid(id int64) error {
	res, err := db.Exec(db.Q(`UPDATE credit_pending SET paid_flag = 1 WHERE id = ?`), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	// The originating sale row stops showing as outstanding too.
	db.Exec(db.Q(`UPDATE sales SET paid_flag = 1 WHERE id IN (SELECT sale_id FROM credit_pending WHERE id = ? AND sale_id IS NOT NULL)`), id)
	return nil
}

func (db *DB) MarkCreditAlerted(id int64) error {
	res, err := db.Exec(db.Q(`UPDATE credit_pending SET alert_shown_flag = 1 WHERE id = ?`), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// RearmCreditAlerts clears alert_shown_flag on all unpaid credits so snoozed
// alerts fire again. Run by the daily midnight job.
func (db *DB) RearmCreditAlerts() (int64, error) {
	res, err := db.Exec(`UPDATE credit_pending SET alert_shown_flag = 0 WHERE paid_flag = 0 AND alert_shown_flag = 1`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
