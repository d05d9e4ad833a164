package models

type Role struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type User struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	FullName     string `json:"full_name"`
	RoleID       int    `json:"role_id"`
}

// UserView is the read model returned by the API: the persisted user joined
// with its role name. Role is empty when the role has been deleted.
type UserView struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

type Category struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Parameter string `json:"parameter,omitempty"`
	Unit      string `json:"unit"`
}

type Item struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	CategoryID     int    `json:"category_id"`
	ParameterValue string `json:"parameter_value"`
	Unit           string `json:"unit"`
	ImageID        string `json:"image_id,omitempty"`
}
