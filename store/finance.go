package store

// ExpenseEntry is an additional (non-purchase) business expense.
type ExpenseEntry struct {
	ID          int64   `json:"id"`
	Date        string  `json:"date"`
	Kind        string  `json:"kind"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Notes       string  `json:"notes"`
	Username    string  `json:"username"`
}

// PassiveIncomeEntry records income outside the sales flow.
type PassiveIncomeEntry struct {
	ID          int64   `json:"id"`
	Date        string  `json:"date"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Notes       string  `json:"notes"`
	Username    string  `json:"username"`
}

func (db *DB) CreateExpense(e *ExpenseEntry) error {
	if db.driver == "postgres" {
		return db.QueryRow(db.Q(`
			INSERT INTO expenses (date, kind, description, amount, notes, username)
			VALUES (?, ?, ?, ?, ?, ?) RETURNING id`),
			e.Date, e.Kind, e.Description, e.Amount, e.Notes, e.Username).Scan(&e.ID)
	}
	res, err := db.Exec(`
		INSERT INTO expenses (date, kind, description, amount, notes, username)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.Date, e.Kind, e.Description, e.Amount, e.Notes, e.Username)
	if err != nil {
		return err
	}
	e.ID, err = res.LastInsertId()
	return err
}

// dateBounds widens empty range endpoints. Dates sort lexically in ISO form.
func dateBounds(from, to string) (string, string) {
	if from == "" {
		from = "0000-01-01"
	}
	if to == "" {
		to = "9999-12-31"
	}
	return from, to
}

func (db *DB) ListExpenses(from, to string) ([]ExpenseEntry, error) {
	from, to = dateBounds(from, to)
	rows, err := db.Query(db.Q(`
		SELECT id, date, kind, description, amount, notes, username
		FROM expenses WHERE date >= ? AND date <= ? ORDER BY date DESC, id DESC`), from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []ExpenseEntry
	for rows.Next() {
		var e ExpenseEntry
		if err := rows.Scan(&e.ID, &e.Date, &e.Kind, &e.Description, &e.Amount, &e.Notes, &e.Username); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (db *DB) DeleteExpense(id int64) error {
	return execAffecting(db, `DELETE FROM expenses WHERE id = ?`, id)
}

func (db *DB) CreatePassiveIncome(e *PassiveIncomeEntry) error {
	if db.driver == "postgres" {
		return db.QueryRow(db.Q(`
			INSERT INTO passive_income (date, description, amount, notes, username)
			VALUES (?, ?, ?, ?, ?) RETURNING id`),
			e.Date, e.Description, e.Amount, e.Notes, e.Username).Scan(&e.ID)
	}
	res, err := db.Exec(`
		INSERT INTO passive_income (date, description, amount, notes, username)
		VALUES (?, ?, ?, ?, ?)`,
		e.Date, e.Description, e.Amount, e.Notes, e.Username)
	if err != nil {
		return err
	}
	e.ID, err = res.LastInsertId()
	return err
}

func (db *DB) ListPassiveIncome(from, to string) ([]PassiveIncomeEntry, error) {
	from, to = dateBounds(from, to)
	rows, err := db.Query(db.Q(`
		SELECT id, date, description, amount, notes, username
		FROM passive_income WHERE date >= ? AND date <= ? ORDER BY date DESC, id DESC`), from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []PassiveIncomeEntry
	for rows.Next() {
		var e PassiveIncomeEntry
		if err := rows.Scan(&e.ID, &e.Date, &e.Description, &e.Amount, &e.Notes, &e.Username); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (db *DB) DeletePassiveIncome(id int64) error {
	return execAffecting(db, `DELETE FROM passive_income WHERE id = ?`, id)
}

func execAffecting(db *DB, query string, args ...any) error {
	res, err := db.Exec(db.Q(query), args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
