package api

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"stockroom/internal/auth"
	"stockroom/internal/config"
	"stockroom/internal/imagestore"
	"stockroom/internal/models"
	"stockroom/internal/store"
)

// Handlers holds the dependencies shared by all HTTP handlers.
type Handlers struct {
	store  store.Store
	images *imagestore.Store
	cfg    *config.Config
}

func NewHandlers(st store.Store, images *imagestore.Store, cfg *config.Config) *Handlers {
	return &Handlers{store: st, images: images, cfg: cfg}
}

// Routes returns the ServeMux for the REST surface.
func (h *Handlers) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /register", h.Register)
	mux.HandleFunc("POST /login", h.Login)

	mux.HandleFunc("POST /roles", h.CreateRole)
	mux.HandleFunc("GET /roles", h.GetRoles)
	mux.HandleFunc("DELETE /roles/{id}", h.DeleteRole)

	mux.HandleFunc("GET /users", h.GetUsers)
	mux.HandleFunc("DELETE /users/{id}", h.DeleteUser)

	mux.HandleFunc("POST /categories", h.CreateCategory)
	mux.HandleFunc("GET /categories", h.GetCategories)
	mux.HandleFunc("DELETE /categories/{id}", h.DeleteCategory)

	mux.HandleFunc("POST /items", h.CreateItem)
	mux.HandleFunc("GET /items", h.GetItems)
	mux.HandleFunc("GET /items/search", h.SearchItems)
	mux.HandleFunc("DELETE /items/{id}", h.DeleteItem)

	mux.HandleFunc("POST /upload_image", h.UploadImage)
	mux.HandleFunc("GET /imgs/{id}", h.GetImage)

	return mux
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}

func pathID(r *http.Request) (int, error) {
	return strconv.Atoi(r.PathValue("id"))
}

type registerRequest struct {
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
	RoleID   int    `json:"role_id"`
}

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if _, err := h.store.GetUserByUsername(req.Username); err == nil {
		writeError(w, http.StatusBadRequest, "Username already registered")
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	role, err := h.store.GetRoleByID(req.RoleID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusBadRequest, "Role does not exist")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	user, err := h.store.CreateUser(req.Username, hash, req.FullName, req.RoleID)
	if errors.Is(err, store.ErrDuplicate) {
		writeError(w, http.StatusBadRequest, "Username already registered")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, models.UserView{
		ID:       user.ID,
		Username: user.Username,
		FullName: user.FullName,
		Role:     role.Name,
	})
}

// Login checks credentials against the stored bcrypt hash. No session or
// token is established; the caller keeps the returned user_id.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")

	user, err := h.store.GetUserByUsername(username)
	if err != nil || !auth.CheckPassword(user.PasswordHash, password) {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	// First admin login seeds the db.json indirection file.
	if username == "admin" {
		created, err := h.cfg.BootstrapDBConfig()
		if err != nil {
			log.Printf("bootstrap db config: %v", err)
		} else if created {
			log.Printf("Created default config for admin user")
		}
	}

	writeJSON(w, map[string]interface{}{
		"message": "Login successful",
		"user_id": user.ID,
	})
}

func (h *Handlers) CreateRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	role, err := h.store.CreateRole(req.Name)
	if errors.Is(err, store.ErrDuplicate) {
		writeError(w, http.StatusBadRequest, "Role already exists")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, role)
}

func (h *Handlers) GetRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.store.GetRoles()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if roles == nil {
		roles = []models.Role{}
	}
	writeJSON(w, roles)
}

func (h *Handlers) DeleteRole(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid role ID")
		return
	}

	switch err := h.store.DeleteRole(id); {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Role not found")
	case err != nil:
		writeError(w, http.StatusInternalServerError, "Internal server error")
	default:
		writeJSON(w, map[string]string{"message": "Role deleted successfully"})
	}
}

func (h *Handlers) GetUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.GetUsers()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if users == nil {
		users = []models.UserView{}
	}
	writeJSON(w, users)
}

func (h *Handlers) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	switch err := h.store.DeleteUser(id); {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "User not found")
	case err != nil:
		writeError(w, http.StatusInternalServerError, "Internal server error")
	default:
		writeJSON(w, map[string]string{"message": "User deleted successfully"})
	}
}

func (h *Handlers) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name      string `json:"name"`
		Parameter string `json:"parameter"`
		Unit      string `json:"unit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	category, err := h.store.CreateCategory(req.Name, req.Parameter, req.Unit)
	if errors.Is(err, store.ErrDuplicate) {
		writeError(w, http.StatusBadRequest, "Category already exists")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, category)
}

func (h *Handlers) GetCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.store.GetCategories()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if categories == nil {
		categories = []models.Category{}
	}
	writeJSON(w, categories)
}

func (h *Handlers) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid category ID")
		return
	}

	switch err := h.store.DeleteCategory(id); {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Category not found")
	case err != nil:
		writeError(w, http.StatusInternalServerError, "Internal server error")
	default:
		writeJSON(w, map[string]string{"message": "Category deleted successfully"})
	}
}

func (h *Handlers) CreateItem(w http.ResponseWriter, r *http.Request) {
	var item models.Item
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	created, err := h.store.CreateItem(item)
	if errors.Is(err, store.ErrMissingRef) {
		writeError(w, http.StatusBadRequest, "Category does not exist")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, created)
}

func (h *Handlers) GetItems(w http.ResponseWriter, r *http.Request) {
	categoryID := 0
	if raw := r.URL.Query().Get("category_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid category ID")
			return
		}
		categoryID = id
	}

	items, err := h.store.GetItems(categoryID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if items == nil {
		items = []models.Item{}
	}
	writeJSON(w, items)
}

func (h *Handlers) SearchItems(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		writeError(w, http.StatusBadRequest, "Missing search query")
		return
	}

	items, err := h.store.SearchItems(query)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if items == nil {
		items = []models.Item{}
	}
	writeJSON(w, items)
}

func (h *Handlers) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid item ID")
		return
	}

	switch err := h.store.DeleteItem(id); {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Item not found")
	case err != nil:
		writeError(w, http.StatusInternalServerError, "Internal server error")
	default:
		writeJSON(w, map[string]string{"message": "Item deleted successfully"})
	}
}

func (h *Handlers) UploadImage(w http.ResponseWriter, r *http.Request) {
	// Multipart memory threshold only; larger files spill to temp disk.
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No image provided")
		return
	}
	defer file.Close()

	token, err := h.images.Save(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, map[string]string{"image_id": token})
}

func (h *Handlers) GetImage(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("id")

	if raw := r.URL.Query().Get("w"); raw != "" {
		width, err := strconv.Atoi(raw)
		if err != nil || width <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid width")
			return
		}
		data, err := h.images.Thumbnail(token, width)
		if errors.Is(err, imagestore.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Image not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(data)
		return
	}

	content, err := h.images.Open(token)
	if errors.Is(err, imagestore.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Image not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	defer content.Close()

	w.Header().Set("Content-Type", "image/jpeg")
	io.Copy(w, content)
}
