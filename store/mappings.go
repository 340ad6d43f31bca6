package store

// BarcodeMapping links a scale-printed code to a catalog product when the
// scale code matches neither code nor plu_number.
type BarcodeMapping struct {
	ScaleCode   string `json:"scale_code"`
	ProductCode string `json:"product_code"`
}

func (db *DB) SetBarcodeMapping(scaleCode, productCode string) error {
	if db.driver == "postgres" {
		_, err := db.Exec(db.Q(`
			INSERT INTO barcode_mappings (scale_code, product_code) VALUES (?, ?)
			ON CONFLICT (scale_code) DO UPDATE SET product_code = EXCLUDED.product_code`),
			scaleCode, productCode)
		return err
	}
	_, err := db.Exec(`INSERT OR REPLACE INTO barcode_mappings (scale_code, product_code) VALUES (?, ?)`,
		scaleCode, productCode)
	return err
}

func (db *DB) ListBarcodeMappings() ([]BarcodeMapping, error) {
	rows, err := db.Query(`SELECT scale_code, product_code FROM barcode_mappings ORDER BY scale_code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var mappings []BarcodeMapping
	for rows.Next() {
		var m BarcodeMapping
		if err := rows.Scan(&m.ScaleCode, &m.ProductCode); err != nil {
			return nil, err
		}
		mappings = append(mappings, m)
	}
	return mappings, rows.Err()
}

func (db *DB) DeleteBarcodeMapping(scaleCode string) error {
	return execAffecting(db, `DELETE FROM barcode_mappings WHERE scale_code = ?`, scaleCode)
}
