package store

import (
	"database/sql"
	"fmt"
)

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS products (
    code              TEXT PRIMARY KEY,
    plu_number        INTEGER,
    name              TEXT NOT NULL DEFAULT '',
    sale_mode         TEXT NOT NULL DEFAULT 'unit',
    stock_units       INTEGER NOT NULL DEFAULT 0,
    stock_kg          REAL NOT NULL DEFAULT 0,
    min_stock_units   INTEGER NOT NULL DEFAULT 0,
    min_stock_kg      REAL NOT NULL DEFAULT 0,
    max_stock_units   INTEGER NOT NULL DEFAULT 0,
    max_stock_kg      REAL NOT NULL DEFAULT 0,
    price_purchase    REAL NOT NULL DEFAULT 0,
    price_normal      REAL NOT NULL DEFAULT 0,
    price_wholesale_1 REAL NOT NULL DEFAULT 0,
    price_wholesale_2 REAL NOT NULL DEFAULT 0,
    price_wholesale_3 REAL NOT NULL DEFAULT 0,
    price_per_kg      REAL NOT NULL DEFAULT 0,
    category          TEXT NOT NULL DEFAULT '',
    unit_weight       REAL NOT NULL DEFAULT 0,
    updated_at        TEXT NOT NULL DEFAULT (datetime('now','localtime'))
);
CREATE INDEX IF NOT EXISTS idx_products_plu ON products(plu_number);

CREATE TABLE IF NOT EXISTS sales (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    timestamp       TEXT NOT NULL,
    code            TEXT NOT NULL,
    name            TEXT NOT NULL DEFAULT '',
    quantity        INTEGER NOT NULL DEFAULT 0,
    unit_price      REAL NOT NULL DEFAULT 0,
    total           REAL NOT NULL DEFAULT 0,
    weight_sold     REAL NOT NULL DEFAULT 0,
    sale_mode       TEXT NOT NULL DEFAULT 'unit',
    customer_tier   TEXT NOT NULL DEFAULT 'normal',
    payment_types   TEXT NOT NULL DEFAULT '',
    amount_cash     REAL NOT NULL DEFAULT 0,
    amount_card     REAL NOT NULL DEFAULT 0,
    amount_transfer REAL NOT NULL DEFAULT 0,
    amount_credit   REAL NOT NULL DEFAULT 0,
    credit_due_date TEXT NOT NULL DEFAULT '',
    credit_due_time TEXT NOT NULL DEFAULT '',
    credit_customer TEXT NOT NULL DEFAULT '',
    paid_flag       INTEGER NOT NULL DEFAULT 1
);
CREATE INDEX IF NOT EXISTS idx_sales_timestamp ON sales(timestamp);

CREATE TABLE IF NOT EXISTS credit_pending (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    customer_name    TEXT NOT NULL DEFAULT '',
    amount           REAL NOT NULL DEFAULT 0,
    sale_timestamp   TEXT NOT NULL DEFAULT '',
    due_date         TEXT NOT NULL DEFAULT '',
    due_time         TEXT NOT NULL DEFAULT '15:00',
    sale_id          INTEGER,
    paid_flag        INTEGER NOT NULL DEFAULT 0,
    alert_shown_flag INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_credit_due ON credit_pending(due_date, due_time, paid_flag);

CREATE TABLE IF NOT EXISTS barcode_mappings (
    scale_code   TEXT PRIMARY KEY,
    product_code TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS expenses (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    date        TEXT NOT NULL,
    kind        TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    amount      REAL NOT NULL DEFAULT 0,
    notes       TEXT NOT NULL DEFAULT '',
    username    TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS passive_income (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    date        TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    amount      REAL NOT NULL DEFAULT 0,
    notes       TEXT NOT NULL DEFAULT '',
    username    TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS purchase_orders (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    reference  TEXT NOT NULL UNIQUE,
    created_at TEXT NOT NULL DEFAULT (datetime('now','localtime')),
    total      REAL NOT NULL DEFAULT 0,
    status     TEXT NOT NULL DEFAULT 'pending',
    paid_at    TEXT,
    notes      TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS purchase_order_items (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    order_id     INTEGER NOT NULL REFERENCES purchase_orders(id) ON DELETE CASCADE,
    product_code TEXT NOT NULL,
    quantity     REAL NOT NULL DEFAULT 0,
    unit_cost    REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    username      TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'clerk',
    full_name     TEXT NOT NULL DEFAULT '',
    active        INTEGER NOT NULL DEFAULT 1,
    created_at    TEXT NOT NULL DEFAULT (datetime('now','localtime')),
    last_login    TEXT
);

CREATE TABLE IF NOT EXISTS sessions (
    token      TEXT PRIMARY KEY,
    username   TEXT NOT NULL,
    issued_at  TEXT NOT NULL,
    expires_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires_at);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS products (
    code              TEXT PRIMARY KEY,
    plu_number        BIGINT,
    name              TEXT NOT NULL DEFAULT '',
    sale_mode         TEXT NOT NULL DEFAULT 'unit',
    stock_units       INTEGER NOT NULL DEFAULT 0,
    stock_kg          DOUBLE PRECISION NOT NULL DEFAULT 0,
    min_stock_units   INTEGER NOT NULL DEFAULT 0,
    min_stock_kg      DOUBLE PRECISION NOT NULL DEFAULT 0,
    max_stock_units   INTEGER NOT NULL DEFAULT 0,
    max_stock_kg      DOUBLE PRECISION NOT NULL DEFAULT 0,
    price_purchase    DOUBLE PRECISION NOT NULL DEFAULT 0,
    price_normal      DOUBLE PRECISION NOT NULL DEFAULT 0,
    price_wholesale_1 DOUBLE PRECISION NOT NULL DEFAULT 0,
    price_wholesale_2 DOUBLE PRECISION NOT NULL DEFAULT 0,
    price_wholesale_3 DOUBLE PRECISION NOT NULL DEFAULT 0,
    price_per_kg      DOUBLE PRECISION NOT NULL DEFAULT 0,
    category          TEXT NOT NULL DEFAULT '',
    unit_weight       DOUBLE PRECISION NOT NULL DEFAULT 0,
    updated_at        TEXT NOT NULL DEFAULT to_char(NOW(), 'YYYY-MM-DD HH24:MI:SS')
);
CREATE INDEX IF NOT EXISTS idx_products_plu ON products(plu_number);

CREATE TABLE IF NOT EXISTS sales (
    id              BIGSERIAL PRIMARY KEY,
    timestamp       TEXT NOT NULL,
    code            TEXT NOT NULL,
    name            TEXT NOT NULL DEFAULT '',
    quantity        INTEGER NOT NULL DEFAULT 0,
    unit_price      DOUBLE PRECISION NOT NULL DEFAULT 0,
    total           DOUBLE PRECISION NOT NULL DEFAULT 0,
    weight_sold     DOUBLE PRECISION NOT NULL DEFAULT 0,
    sale_mode       TEXT NOT NULL DEFAULT 'unit',
    customer_tier   TEXT NOT NULL DEFAULT 'normal',
    payment_types   TEXT NOT NULL DEFAULT '',
    amount_cash     DOUBLE PRECISION NOT NULL DEFAULT 0,
    amount_card     DOUBLE PRECISION NOT NULL DEFAULT 0,
    amount_transfer DOUBLE PRECISION NOT NULL DEFAULT 0,
    amount_credit   DOUBLE PRECISION NOT NULL DEFAULT 0,
    credit_due_date TEXT NOT NULL DEFAULT '',
    credit_due_time TEXT NOT NULL DEFAULT '',
    credit_customer TEXT NOT NULL DEFAULT '',
    paid_flag       INTEGER NOT NULL DEFAULT 1
);
CREATE INDEX IF NOT EXISTS idx_sales_timestamp ON sales(timestamp);

CREATE TABLE IF NOT EXISTS credit_pending (
    id               BIGSERIAL PRIMARY KEY,
    customer_name    TEXT NOT NULL DEFAULT '',
    amount           DOUBLE PRECISION NOT NULL DEFAULT 0,
    sale_timestamp   TEXT NOT NULL DEFAULT '',
    due_date         TEXT NOT NULL DEFAULT '',
    due_time         TEXT NOT NULL DEFAULT '15:00',
    sale_id          BIGINT,
    paid_flag        INTEGER NOT NULL DEFAULT 0,
    alert_shown_flag INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_credit_due ON credit_pending(due_date, due_time, paid_flag);

CREATE TABLE IF NOT EXISTS barcode_mappings (
    scale_code   TEXT PRIMARY KEY,
    product_code TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS expenses (
    id          BIGSERIAL PRIMARY KEY,
    date        TEXT NOT NULL,
    kind        TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    amount      DOUBLE PRECISION NOT NULL DEFAULT 0,
    notes       TEXT NOT NULL DEFAULT '',
    username    TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS passive_income (
    id          BIGSERIAL PRIMARY KEY,
    date        TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    amount      DOUBLE PRECISION NOT NULL DEFAULT 0,
    notes       TEXT NOT NULL DEFAULT '',
    username    TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS purchase_orders (
    id         BIGSERIAL PRIMARY KEY,
    reference  TEXT NOT NULL UNIQUE,
    created_at TEXT NOT NULL DEFAULT to_char(NOW(), 'YYYY-MM-DD HH24:MI:SS'),
    total      DOUBLE PRECISION NOT NULL DEFAULT 0,
    status     TEXT NOT NULL DEFAULT 'pending',
    paid_at    TEXT,
    notes      TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS purchase_order_items (
    id           BIGSERIAL PRIMARY KEY,
    order_id     BIGINT NOT NULL REFERENCES purchase_orders(id) ON DELETE CASCADE,
    product_code TEXT NOT NULL,
    quantity     DOUBLE PRECISION NOT NULL DEFAULT 0,
    unit_cost    DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS users (
    id            BIGSERIAL PRIMARY KEY,
    username      TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'clerk',
    full_name     TEXT NOT NULL DEFAULT '',
    active        INTEGER NOT NULL DEFAULT 1,
    created_at    TEXT NOT NULL DEFAULT to_char(NOW(), 'YYYY-MM-DD HH24:MI:SS'),
    last_login    TEXT
);

CREATE TABLE IF NOT EXISTS sessions (
    token      TEXT PRIMARY KEY,
    username   TEXT NOT NULL,
    issued_at  TEXT NOT NULL,
    expires_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires_at);
`

// Migrate creates missing tables and applies additive column migrations.
// Safe to run on every startup.
func (db *DB) Migrate() error {
	var schema string
	switch db.driver {
	case "sqlite":
		schema = schemaSQLite
	case "postgres":
		schema = schemaPostgres
	default:
		return fmt.Errorf("no schema for driver: %s", db.driver)
	}
	if _, err := db.Exec(schema); err != nil {
		return err
	}
	return db.migrateColumns()
}

// migrateColumns adds columns introduced after the initial schema. Existing
// databases pick them up with safe defaults; columns are matched by name only.
func (db *DB) migrateColumns() error {
	adds := []struct{ table, column, ddl string }{
		{"products", "unit_weight", "REAL NOT NULL DEFAULT 0"},
		{"products", "max_stock_units", "INTEGER NOT NULL DEFAULT 0"},
		{"products", "max_stock_kg", "REAL NOT NULL DEFAULT 0"},
		{"sales", "customer_tier", "TEXT NOT NULL DEFAULT 'normal'"},
		{"sales", "credit_customer", "TEXT NOT NULL DEFAULT ''"},
		{"credit_pending", "alert_shown_flag", "INTEGER NOT NULL DEFAULT 0"},
		{"users", "last_login", "TEXT"},
		{"purchase_orders", "paid_at", "TEXT"},
	}
	for _, a := range adds {
		if db.columnExists(a.table, a.column) {
			continue
		}
		ddl := a.ddl
		if db.driver == "postgres" {
			// SQLite REAL maps onto DOUBLE PRECISION remotely.
			if a.ddl == "REAL NOT NULL DEFAULT 0" {
				ddl = "DOUBLE PRECISION NOT NULL DEFAULT 0"
			}
		}
		if _, err := db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", a.table, a.column, ddl)); err != nil {
			return fmt.Errorf("add column %s.%s: %w", a.table, a.column, err)
		}
	}
	return nil
}

// columnExists checks if a column exists in a table.
func (db *DB) columnExists(table, column string) bool {
	switch db.driver {
	case "sqlite":
		rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
		if err != nil {
			return false
		}
		defer rows.Close()
		for rows.Next() {
			var cid int
			var name, typ string
			var notnull int
			var dflt sql.NullString
			var pk int
			if err := rows.Scan(&cid, &name, &typ, &notnull, &dflt, &pk); err != nil {
				return false
			}
			if name == column {
				return true
			}
		}
		return false
	case "postgres":
		var exists bool
		db.QueryRow(`SELECT EXISTS (SELECT 1 FROM information_schema.columns WHERE table_name=$1 AND column_name=$2)`, table, column).Scan(&exists)
		return exists
	}
	return false
}

// TableColumns returns the column names of a table, in schema order.
func (db *DB) TableColumns(table string) ([]string, error) {
	switch db.driver {
	case "sqlite":
		rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		var cols []string
		for rows.Next() {
			var cid int
			var name, typ string
			var notnull int
			var dflt sql.NullString
			var pk int
			if err := rows.Scan(&cid, &name, &typ, &notnull, &dflt, &pk); err != nil {
				return nil, err
			}
			cols = append(cols, name)
		}
		return cols, rows.Err()
	case "postgres":
		rows, err := db.Query(`SELECT column_name FROM information_schema.columns WHERE table_name=$1 ORDER BY ordinal_position`, table)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		var cols []string
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				return nil, err
			}
			cols = append(cols, name)
		}
		return cols, rows.Err()
	}
	return nil, fmt.Errorf("unknown driver: %s", db.driver)
}
