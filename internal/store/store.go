package store

import (
	"errors"

	"stockroom/internal/models"
)

// Sentinel errors returned by Store implementations. Handlers map these to
// HTTP status codes; anything else is treated as an internal error.
var (
	ErrNotFound   = errors.New("not found")
	ErrDuplicate  = errors.New("duplicate value for unique field")
	ErrMissingRef = errors.New("referenced entity does not exist")
)

// Store defines the interface for all database operations
type Store interface {
	// Roles
	CreateRole(name string) (models.Role, error)
	GetRoles() ([]models.Role, error)
	GetRoleByID(id int) (models.Role, error)
	DeleteRole(id int) error

	// Users
	CreateUser(username, passwordHash, fullName string, roleID int) (models.User, error)
	GetUserByUsername(username string) (models.User, error)
	GetUsers() ([]models.UserView, error)
	DeleteUser(id int) error

	// Categories
	CreateCategory(name, parameter, unit string) (models.Category, error)
	GetCategories() ([]models.Category, error)
	DeleteCategory(id int) error

	// Items
	CreateItem(item models.Item) (models.Item, error)
	GetItems(categoryID int) ([]models.Item, error)
	SearchItems(query string) ([]models.Item, error)
	DeleteItem(id int) error

	Close() error
}
