package sqlstore

import (
	"database/sql"
	"fmt"
	"strings"

	"stockroom/internal/models"
	"stockroom/internal/store"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// DBType represents the type of database
type DBType string

const (
	SQLite   DBType = "sqlite3"
	Postgres DBType = "postgres"
)

// SQLStore implements the Store interface for SQL databases
type SQLStore struct {
	db     *sql.DB
	dbType DBType
}

// New creates a new SQLStore with the given driver and connection string
func New(driver, connStr string) (*SQLStore, error) {
	db, err := sql.Open(driver, connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	s := &SQLStore{
		db:     db,
		dbType: DBType(driver),
	}

	if err := s.initSchema(); err != nil {
		return nil, err
	}

	return s, nil
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL
func (s *SQLStore) rebind(query string) string {
	if s.dbType == SQLite {
		return query
	}
	var result strings.Builder
	argNum := 1
	for _, c := range query {
		if c == '?' {
			result.WriteString(fmt.Sprintf("$%d", argNum))
			argNum++
		} else {
			result.WriteRune(c)
		}
	}
	return result.String()
}

// isUniqueViolation reports whether err is a unique-constraint violation
// from either driver.
func isUniqueViolation(err error) bool {
	if sqliteErr, ok := err.(sqlite3.Error); ok {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	return false
}

func (s *SQLStore) initSchema() error {
	var createRolesTable, createUsersTable, createCategoriesTable, createItemsTable string

	if s.dbType == Postgres {
		createRolesTable = `
		CREATE TABLE IF NOT EXISTS roles (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL UNIQUE
		);`

		createUsersTable = `
		CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			full_name TEXT NOT NULL,
			role_id INTEGER NOT NULL
		);`

		createCategoriesTable = `
		CREATE TABLE IF NOT EXISTS categories (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			parameter TEXT,
			unit TEXT NOT NULL
		);`

		createItemsTable = `
		CREATE TABLE IF NOT EXISTS items (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			category_id INTEGER NOT NULL REFERENCES categories(id),
			parameter_value TEXT NOT NULL,
			unit TEXT NOT NULL,
			image_id TEXT
		);`
	} else {
		createRolesTable = `
		CREATE TABLE IF NOT EXISTS roles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE
		);`

		createUsersTable = `
		CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			full_name TEXT NOT NULL,
			role_id INTEGER NOT NULL
		);`

		createCategoriesTable = `
		CREATE TABLE IF NOT EXISTS categories (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			parameter TEXT,
			unit TEXT NOT NULL
		);`

		createItemsTable = `
		CREATE TABLE IF NOT EXISTS items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			category_id INTEGER NOT NULL,
			parameter_value TEXT NOT NULL,
			unit TEXT NOT NULL,
			image_id TEXT,
			FOREIGN KEY(category_id) REFERENCES categories(id)
		);`
	}

	for _, stmt := range []string{createRolesTable, createUsersTable, createCategoriesTable, createItemsTable} {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// insertReturningID runs an INSERT and returns the generated id, using
// RETURNING on PostgreSQL and LastInsertId on SQLite.
func (s *SQLStore) insertReturningID(query string, args ...interface{}) (int, error) {
	if s.dbType == Postgres {
		var id int
		err := s.db.QueryRow(s.rebind(query+" RETURNING id"), args...).Scan(&id)
		return id, err
	}
	result, err := s.db.Exec(s.rebind(query), args...)
	if err != nil {
		return 0, err
	}
	id, err := result.LastInsertId()
	return int(id), err
}

// Role functions
func (s *SQLStore) CreateRole(name string) (models.Role, error) {
	id, err := s.insertReturningID("INSERT INTO roles (name) VALUES (?)", name)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Role{}, store.ErrDuplicate
		}
		return models.Role{}, err
	}
	return models.Role{ID: id, Name: name}, nil
}

func (s *SQLStore) GetRoles() ([]models.Role, error) {
	rows, err := s.db.Query("SELECT id, name FROM roles ORDER BY id ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []models.Role
	for rows.Next() {
		var r models.Role
		if err := rows.Scan(&r.ID, &r.Name); err != nil {
			return nil, err
		}
		roles = append(roles, r)
	}
	return roles, rows.Err()
}

func (s *SQLStore) GetRoleByID(id int) (models.Role, error) {
	var r models.Role
	err := s.db.QueryRow(s.rebind("SELECT id, name FROM roles WHERE id = ?"), id).Scan(&r.ID, &r.Name)
	if err == sql.ErrNoRows {
		return models.Role{}, store.ErrNotFound
	}
	return r, err
}

// DeleteRole removes the role only. Users referencing it keep their
// role_id; GetUsers reports an empty role name for them.
func (s *SQLStore) DeleteRole(id int) error {
	result, err := s.db.Exec(s.rebind("DELETE FROM roles WHERE id = ?"), id)
	if err != nil {
		return err
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// User functions
func (s *SQLStore) CreateUser(username, passwordHash, fullName string, roleID int) (models.User, error) {
	id, err := s.insertReturningID(
		"INSERT INTO users (username, password_hash, full_name, role_id) VALUES (?, ?, ?, ?)",
		username, passwordHash, fullName, roleID)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, store.ErrDuplicate
		}
		return models.User{}, err
	}
	return models.User{ID: id, Username: username, PasswordHash: passwordHash, FullName: fullName, RoleID: roleID}, nil
}

func (s *SQLStore) GetUserByUsername(username string) (models.User, error) {
	var u models.User
	err := s.db.QueryRow(
		s.rebind("SELECT id, username, password_hash, full_name, role_id FROM users WHERE username = ?"),
		username).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.FullName, &u.RoleID)
	if err == sql.ErrNoRows {
		return models.User{}, store.ErrNotFound
	}
	return u, err
}

func (s *SQLStore) GetUsers() ([]models.UserView, error) {
	rows, err := s.db.Query(`
		SELECT u.id, u.username, u.full_name, COALESCE(r.name, '')
		FROM users u LEFT JOIN roles r ON u.role_id = r.id
		ORDER BY u.id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.UserView
	for rows.Next() {
		var v models.UserView
		if err := rows.Scan(&v.ID, &v.Username, &v.FullName, &v.Role); err != nil {
			return nil, err
		}
		users = append(users, v)
	}
	return users, rows.Err()
}

func (s *SQLStore) DeleteUser(id int) error {
	result, err := s.db.Exec(s.rebind("DELETE FROM users WHERE id = ?"), id)
	if err != nil {
		return err
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Category functions
func (s *SQLStore) CreateCategory(name, parameter, unit string) (models.Category, error) {
	id, err := s.insertReturningID(
		"INSERT INTO categories (name, parameter, unit) VALUES (?, ?, ?)",
		name, parameter, unit)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Category{}, store.ErrDuplicate
		}
		return models.Category{}, err
	}
	return models.Category{ID: id, Name: name, Parameter: parameter, Unit: unit}, nil
}

func (s *SQLStore) GetCategories() ([]models.Category, error) {
	rows, err := s.db.Query("SELECT id, name, COALESCE(parameter, ''), unit FROM categories ORDER BY id ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Parameter, &c.Unit); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// DeleteCategory removes the category and cascades to its items. Items go
// first so the items->categories reference never dangles mid-delete.
func (s *SQLStore) DeleteCategory(id int) error {
	if _, err := s.db.Exec(s.rebind("DELETE FROM items WHERE category_id = ?"), id); err != nil {
		return err
	}

	result, err := s.db.Exec(s.rebind("DELETE FROM categories WHERE id = ?"), id)
	if err != nil {
		return err
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Item functions
func (s *SQLStore) CreateItem(item models.Item) (models.Item, error) {
	// The category must exist at creation time; it is not re-validated later.
	var exists int
	err := s.db.QueryRow(s.rebind("SELECT 1 FROM categories WHERE id = ?"), item.CategoryID).Scan(&exists)
	if err == sql.ErrNoRows {
		return models.Item{}, store.ErrMissingRef
	}
	if err != nil {
		return models.Item{}, err
	}

	id, err := s.insertReturningID(
		"INSERT INTO items (name, category_id, parameter_value, unit, image_id) VALUES (?, ?, ?, ?, ?)",
		item.Name, item.CategoryID, item.ParameterValue, item.Unit, item.ImageID)
	if err != nil {
		return models.Item{}, err
	}
	item.ID = id
	return item, nil
}

// GetItems returns all items, or only those in the given category when
// categoryID is non-zero.
func (s *SQLStore) GetItems(categoryID int) ([]models.Item, error) {
	query := "SELECT id, name, category_id, parameter_value, unit, COALESCE(image_id, '') FROM items"
	var args []interface{}
	if categoryID != 0 {
		query += " WHERE category_id = ?"
		args = append(args, categoryID)
	}

	rows, err := s.db.Query(s.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanItems(rows)
}

// SearchItems returns items whose name contains query as a case-sensitive
// substring, in storage order. LIKE is case-insensitive on SQLite, so both
// drivers use their byte-position builtin instead.
func (s *SQLStore) SearchItems(query string) ([]models.Item, error) {
	var stmt string
	if s.dbType == Postgres {
		stmt = "SELECT id, name, category_id, parameter_value, unit, COALESCE(image_id, '') FROM items WHERE strpos(name, $1) > 0"
	} else {
		stmt = "SELECT id, name, category_id, parameter_value, unit, COALESCE(image_id, '') FROM items WHERE instr(name, ?) > 0"
	}

	rows, err := s.db.Query(stmt, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanItems(rows)
}

func (s *SQLStore) DeleteItem(id int) error {
	result, err := s.db.Exec(s.rebind("DELETE FROM items WHERE id = ?"), id)
	if err != nil {
		return err
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func scanItems(rows *sql.Rows) ([]models.Item, error) {
	var items []models.Item
	for rows.Next() {
		var it models.Item
		if err := rows.Scan(&it.ID, &it.Name, &it.CategoryID, &it.ParameterValue, &it.Unit, &it.ImageID); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
