// Dev helper: seeds a local database with sample roles, categories and
// items. Run with: go run scripts/seed_inventory.go
package main

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/mattn/go-sqlite3"
)

var sampleCategories = []struct {
	name, parameter, unit string
}{
	{"Cables", "Length", "m"},
	{"Fasteners", "Diameter", "mm"},
	{"Paint", "Color", "l"},
	{"Lumber", "Grade", "pcs"},
}

var sampleItems = []struct {
	name, category, parameterValue, unit string
}{
	{"HDMI cable", "Cables", "2", "m"},
	{"Ethernet cable Cat6", "Cables", "5", "m"},
	{"Power extension cord", "Cables", "3", "m"},
	{"Wood screw", "Fasteners", "4", "mm"},
	{"Hex bolt", "Fasteners", "8", "mm"},
	{"Wall paint white", "Paint", "RAL 9010", "l"},
	{"Primer grey", "Paint", "RAL 7040", "l"},
	{"Pine board", "Lumber", "A", "pcs"},
}

func main() {
	db, err := sql.Open("sqlite3", "./stockroom-data/stockroom.db")
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	for _, name := range []string{"admin", "operator"} {
		if _, err := db.Exec("INSERT OR IGNORE INTO roles (name) VALUES (?)", name); err != nil {
			log.Fatal(err)
		}
	}

	for _, c := range sampleCategories {
		if _, err := db.Exec(
			"INSERT OR IGNORE INTO categories (name, parameter, unit) VALUES (?, ?, ?)",
			c.name, c.parameter, c.unit); err != nil {
			log.Fatal(err)
		}
	}

	count := 0
	for _, it := range sampleItems {
		var categoryID int
		if err := db.QueryRow("SELECT id FROM categories WHERE name = ?", it.category).Scan(&categoryID); err != nil {
			log.Fatal(err)
		}
		if _, err := db.Exec(
			"INSERT INTO items (name, category_id, parameter_value, unit) VALUES (?, ?, ?, ?)",
			it.name, categoryID, it.parameterValue, it.unit); err != nil {
			log.Fatal(err)
		}
		count++
	}

	fmt.Printf("Seeded %d categories and %d items\n", len(sampleCategories), count)
}
