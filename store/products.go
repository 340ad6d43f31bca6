package store

import (
	"database/sql"
	"strconv"
	"time"
)

// Sale modes. A product is sold either by unit or by weight, never both.
const (
	SaleModeUnit = "unit"
	SaleModeKg   = "kg"
)

// Customer tiers.
const (
	TierNormal     = "normal"
	TierWholesale1 = "wholesale_1"
	TierWholesale2 = "wholesale_2"
	TierWholesale3 = "wholesale_3"
)

// Product is a catalog entry. Code is the primary identity and may be an
// EAN-13, an internal alphanumeric or a numeric PLU stored as a string.
type Product struct {
	Code            string  `json:"code"`
	PLUNumber       *int64  `json:"plu_number"`
	Name            string  `json:"name"`
	SaleMode        string  `json:"sale_mode"`
	StockUnits      int     `json:"stock_units"`
	StockKg         float64 `json:"stock_kg"`
	MinStockUnits   int     `json:"min_stock_units"`
	MinStockKg      float64 `json:"min_stock_kg"`
	MaxStockUnits   int     `json:"max_stock_units"`
	MaxStockKg      float64 `json:"max_stock_kg"`
	PricePurchase   float64 `json:"price_purchase"`
	PriceNormal     float64 `json:"price_normal"`
	PriceWholesale1 float64 `json:"price_wholesale_1"`
	PriceWholesale2 float64 `json:"price_wholesale_2"`
	PriceWholesale3 float64 `json:"price_wholesale_3"`
	PricePerKg      float64 `json:"price_per_kg"`
	Category        string  `json:"category"`
	UnitWeight      float64 `json:"unit_weight"`
	UpdatedAt       string  `json:"updated_at"`
}

const productCols = `code, plu_number, name, sale_mode, stock_units, stock_kg,
	min_stock_units, min_stock_kg, max_stock_units, max_stock_kg,
	price_purchase, price_normal, price_wholesale_1, price_wholesale_2, price_wholesale_3,
	price_per_kg, category, unit_weight, updated_at`

func scanProduct(row interface{ Scan(...any) error }) (*Product, error) {
	p := &Product{}
	err := row.Scan(&p.Code, &p.PLUNumber, &p.Name, &p.SaleMode, &p.StockUnits, &p.StockKg,
		&p.MinStockUnits, &p.MinStockKg, &p.MaxStockUnits, &p.MaxStockKg,
		&p.PricePurchase, &p.PriceNormal, &p.PriceWholesale1, &p.PriceWholesale2, &p.PriceWholesale3,
		&p.PricePerKg, &p.Category, &p.UnitWeight, &p.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

func (db *DB) GetProduct(code string) (*Product, error) {
	return scanProduct(db.QueryRow(db.Q(`SELECT `+productCols+` FROM products WHERE code = ?`), code))
}

func (db *DB) GetProductByPLU(plu int64) (*Product, error) {
	return scanProduct(db.QueryRow(db.Q(`SELECT `+productCols+` FROM products WHERE plu_number = ?`), plu))
}

func (db *DB) ListProducts() ([]Product, error) {
	rows, err := db.Query(`SELECT ` + productCols + ` FROM products ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProducts(rows)
}

func collectProducts(rows *sql.Rows) ([]Product, error) {
	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func (db *DB) CreateProduct(p *Product) error {
	if p.SaleMode == "" {
		p.SaleMode = SaleModeUnit
	}
	if p.UpdatedAt == "" {
		p.UpdatedAt = time.Now().Format(TimeLayout)
	}
	_, err := db.Exec(db.Q(`
		INSERT INTO products (`+productCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		p.Code, p.PLUNumber, p.Name, p.SaleMode, p.StockUnits, p.StockKg,
		p.MinStockUnits, p.MinStockKg, p.MaxStockUnits, p.MaxStockKg,
		p.PricePurchase, p.PriceNormal, p.PriceWholesale1, p.PriceWholesale2, p.PriceWholesale3,
		p.PricePerKg, p.Category, p.UnitWeight, p.UpdatedAt)
	return err
}

func (db *DB) UpdateProduct(p *Product) error {
	p.UpdatedAt = time.Now().Format(TimeLayout)
	res, err := db.Exec(db.Q(`
		UPDATE products SET plu_number=?, name=?, sale_mode=?, stock_units=?, stock_kg=?,
			min_stock_units=?, min_stock_kg=?, max_stock_units=?, max_stock_kg=?,
			price_purchase=?, price_normal=?, price_wholesale_1=?, price_wholesale_2=?, price_wholesale_3=?,
			price_per_kg=?, category=?, unit_weight=?, updated_at=?
		WHERE code=?`),
		p.PLUNumber, p.Name, p.SaleMode, p.StockUnits, p.StockKg,
		p.MinStockUnits, p.MinStockKg, p.MaxStockUnits, p.MaxStockKg,
		p.PricePurchase, p.PriceNormal, p.PriceWholesale1, p.PriceWholesale2, p.PriceWholesale3,
		p.PricePerKg, p.Category, p.UnitWeight, p.UpdatedAt, p.Code)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DB) DeleteProduct(code string) error {
	_, err := db.Exec(db.Q(`DELETE FROM products WHERE code = ?`), code)
	return err
}

// DecrementStockUnits subtracts sold units inside tx, guarding against
// going negative.
func (db *DB) DecrementStockUnits(tx *sql.Tx, code string, qty int, updatedAt string) error {
	res, err := tx.Exec(db.Q(`
		UPDATE products SET stock_units = stock_units - ?, updated_at = ?
		WHERE code = ? AND stock_units >= ?`), qty, updatedAt, code, qty)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return db.stockGuardErr(tx, code)
	}
	return nil
}

// DecrementStockKg subtracts sold kilograms inside tx.
func (db *DB) DecrementStockKg(tx *sql.Tx, code string, kg float64, updatedAt string) error {
	res, err := tx.Exec(db.Q(`
		UPDATE products SET stock_kg = stock_kg - ?, updated_at = ?
		WHERE code = ? AND stock_kg >= ?`), kg, updatedAt, code, kg)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return db.stockGuardErr(tx, code)
	}
	return nil
}

// stockGuardErr tells a missing row apart from a failed stock guard after a
// zero-row decrement.
func (db *DB) stockGuardErr(tx *sql.Tx, code string) error {
	var one int
	if err := tx.QueryRow(db.Q(`SELECT 1 FROM products WHERE code = ?`), code).Scan(&one); err != nil {
		return notFound(err)
	}
	return ErrInsufficientStock
}

// ListLowStock returns products at or below their minimum stock level for
// their sale mode.
func (db *DB) ListLowStock() ([]Product, error) {
	rows, err := db.Query(`SELECT ` + productCols + ` FROM products
		WHERE (sale_mode = 'unit' AND min_stock_units > 0 AND stock_units <= min_stock_units)
		   OR (sale_mode = 'kg' AND min_stock_kg > 0 AND stock_kg <= min_stock_kg)
		ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProducts(rows)
}

// FindByScanCode resolves a scanner digit string to a product. Strategies are
// tried in order; the first hit wins:
//  1. exact match on code
//  2. exact match on plu_number
//  3. for 9-digit inputs, the trailing 7/6/5 digits as a PLU, then code prefix
//  4. trailing 6 digits anywhere inside a code
//  5. the scale mapping table
func (db *DB) FindByScanCode(scan string) (*Product, error) {
	if p, err := db.GetProduct(scan); err == nil {
		return p, nil
	}

	if plu, err := strconv.ParseInt(scan, 10, 64); err == nil {
		if p, err := db.GetProductByPLU(plu); err == nil {
			return p, nil
		}
	}

	if len(scan) == 9 {
		for _, tail := range []int{7, 6, 5} {
			sub := scan[len(scan)-tail:]
			plu, err := strconv.ParseInt(sub, 10, 64)
			if err != nil {
				continue
			}
			if p, err := db.GetProductByPLU(plu); err == nil {
				return p, nil
			}
		}
		if p, err := scanProduct(db.QueryRow(db.Q(
			`SELECT `+productCols+` FROM products WHERE code LIKE ? ORDER BY code LIMIT 1`),
			scan+"%")); err == nil {
			return p, nil
		}
	}

	if len(scan) >= 6 {
		tail := scan[len(scan)-6:]
		if p, err := scanProduct(db.QueryRow(db.Q(
			`SELECT `+productCols+` FROM products WHERE code LIKE ? ORDER BY code LIMIT 1`),
			"%"+tail+"%")); err == nil {
			return p, nil
		}
	}

	var mapped string
	err := db.QueryRow(db.Q(`SELECT product_code FROM barcode_mappings WHERE scale_code = ?`), scan).Scan(&mapped)
	if err == nil {
		return db.GetProduct(mapped)
	}
	return nil, ErrNotFound
}

// UpsertProductFromRemote applies a pulled catalog row. Local-only fields
// (plu_number in particular) survive a remote null.
func (db *DB) UpsertProductFromRemote(p *Product) error {
	existing, err := db.GetProduct(p.Code)
	if err != nil {
		if err == ErrNotFound {
			return db.CreateProduct(p)
		}
		return err
	}
	if p.PLUNumber == nil {
		p.PLUNumber = existing.PLUNumber
	}
	if p.UpdatedAt == "" {
		p.UpdatedAt = existing.UpdatedAt
	}
	_, err = db.Exec(db.Q(`
		UPDATE products SET plu_number=?, name=?, sale_mode=?, stock_units=?, stock_kg=?,
			min_stock_units=?, min_stock_kg=?, max_stock_units=?, max_stock_kg=?,
			price_purchase=?, price_normal=?, price_wholesale_1=?, price_wholesale_2=?, price_wholesale_3=?,
			price_per_kg=?, category=?, unit_weight=?, updated_at=?
		WHERE code=?`),
		p.PLUNumber, p.Name, p.SaleMode, p.StockUnits, p.StockKg,
		p.MinStockUnits, p.MinStockKg, p.MaxStockUnits, p.MaxStockKg,
		p.PricePurchase, p.PriceNormal, p.PriceWholesale1, p.PriceWholesale2, p.PriceWholesale3,
		p.PricePerKg, p.Category, p.UnitWeight, p.UpdatedAt, p.Code)
	return err
}
