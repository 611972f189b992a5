package seed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"logodouman/domain"
)

// EnsureAdmin creates a bootstrap admin account when the users table is
// empty. Both email and password must come from the environment; no
// default credentials are baked in.
func EnsureAdmin(db *sqlx.DB, email, password string) {
	if email == "" || password == "" {
		return
	}
	var count int64
	if err := db.Get(&count, `SELECT COUNT(*) FROM users`); err != nil {
		log.Printf("unable to check users table: %v", err)
		return
	}
	if count > 0 {
		return
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("unable to hash admin password: %v", err)
		return
	}
	_, err = db.Exec(`INSERT INTO users (username, email, password, role) VALUES ($1, $2, $3, $4)`,
		"admin", strings.ToLower(email), hashed, domain.RoleAdmin)
	if err != nil {
		log.Printf("unable to create admin user: %v", err)
		return
	}
	log.Printf("seeded admin user %s", email)
}

type catalogRow struct {
	Code         string
	CategoryName string
	ProductName  string
	Description  string
	Price        int64
	Stock        int64
	ImageURL     string
}

// parseCatalogRow validates one CSV record. A row with a malformed
// price or stock cell is rejected instead of seeded with zeros.
func parseCatalogRow(record []string) (catalogRow, error) {
	if len(record) < 7 {
		return catalogRow{}, fmt.Errorf("expected 7 columns, got %d", len(record))
	}
	row := catalogRow{
		Code:         strings.ToUpper(strings.TrimSpace(record[0])),
		CategoryName: strings.TrimSpace(record[1]),
		ProductName:  strings.TrimSpace(record[2]),
		Description:  strings.TrimSpace(record[3]),
		ImageURL:     strings.TrimSpace(record[6]),
	}
	if row.Code == "" || row.ProductName == "" {
		return catalogRow{}, errors.New("missing category code or product name")
	}
	price, err := strconv.ParseInt(strings.TrimSpace(record[4]), 10, 64)
	if err != nil || price < 0 {
		return catalogRow{}, fmt.Errorf("bad price %q", record[4])
	}
	stock, err := strconv.ParseInt(strings.TrimSpace(record[5]), 10, 64)
	if err != nil || stock < 0 {
		return catalogRow{}, fmt.Errorf("bad stock %q", record[5])
	}
	row.Price = price
	row.Stock = stock
	return row, nil
}

// LoadCatalog ingests the CSV into categories, products and inventory.
// Columns: category_code, category_name, product_name, description,
// price (minor units), stock, image_url. The loader is a no-op once
// any product exists.
func LoadCatalog(db *sqlx.DB, csvPath string) {
	var count int64
	if err := db.Get(&count, `SELECT COUNT(*) FROM products`); err != nil {
		log.Printf("unable to check products table: %v", err)
		return
	}
	if count > 0 {
		return
	}

	file, err := os.Open(csvPath)
	if err != nil {
		log.Printf("unable to load catalog %s: %v", csvPath, err)
		return
	}
	defer file.Close()

	reader := csv.NewReader(file)
	// Skip header
	if _, err := reader.Read(); err != nil {
		log.Printf("unable to read catalog header: %v", err)
		return
	}

	tx, err := db.Beginx()
	if err != nil {
		log.Printf("unable to start catalog transaction: %v", err)
		return
	}
	defer tx.Rollback()

	rows := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Printf("unable to read catalog row: %v", err)
			continue
		}
		row, err := parseCatalogRow(record)
		if err != nil {
			log.Printf("skipping catalog row: %v", err)
			continue
		}

		var categoryID string
		err = tx.Get(&categoryID, `
			INSERT INTO categories (code, name) VALUES ($1, $2)
			ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name
			RETURNING id`, row.Code, row.CategoryName)
		if err != nil {
			log.Printf("unable to upsert category %s: %v", row.Code, err)
			continue
		}

		var productID int64
		err = tx.Get(&productID, `
			INSERT INTO products (name, description, price, category_id, image_url, stock)
			VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
			row.ProductName, row.Description, row.Price, categoryID, row.ImageURL, row.Stock)
		if err != nil {
			log.Printf("unable to insert product %s: %v", row.ProductName, err)
			continue
		}
		if _, err := tx.Exec(`INSERT INTO inventory (product_id, quantity, reserved, available) VALUES ($1, $2, 0, $2)`,
			productID, row.Stock); err != nil {
			log.Printf("unable to insert inventory for %s: %v", row.ProductName, err)
			continue
		}
		rows++
	}

	if err := tx.Commit(); err != nil {
		log.Printf("unable to commit catalog seed: %v", err)
	} else {
		log.Printf("seeded catalog with %d products", rows)
	}
}
