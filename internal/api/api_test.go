package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"stockroom/internal/config"
	"stockroom/internal/imagestore"
	"stockroom/internal/models"
	"stockroom/internal/store/sqlstore"
)

var (
	testMux *http.ServeMux
	testCfg *config.Config
)

func TestMain(m *testing.M) {
	// Setup
	dir, err := os.MkdirTemp("", "stockroom-test")
	if err != nil {
		panic(err)
	}

	testCfg = &config.Config{
		DataDir:          dir,
		ImgsDir:          filepath.Join(dir, "imgs"),
		DBConfigPath:     filepath.Join(dir, "db.json"),
		DefaultDBPath:    filepath.Join(dir, "test.db"),
		DefaultImagePath: filepath.Join(dir, "default.jpg"),
	}

	st, err := sqlstore.New("sqlite3", testCfg.DefaultDBPath)
	if err != nil {
		panic(err)
	}

	images, err := imagestore.New(testCfg.ImgsDir, testCfg.DefaultImagePath)
	if err != nil {
		panic(err)
	}

	testMux = NewHandlers(st, images, testCfg).Routes()

	// Run tests
	code := m.Run()

	// Teardown
	st.Close()
	os.RemoveAll(dir)
	os.Exit(code)
}

func doJSON(method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	testMux.ServeHTTP(w, req)
	return w
}

func createRole(t *testing.T, name string) models.Role {
	t.Helper()
	w := doJSON("POST", "/roles", map[string]string{"name": name})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status OK creating role, got %v", w.Code)
	}
	var role models.Role
	json.NewDecoder(w.Body).Decode(&role)
	return role
}

func createCategory(t *testing.T, name, unit string) models.Category {
	t.Helper()
	w := doJSON("POST", "/categories", map[string]string{"name": name, "unit": unit})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status OK creating category, got %v", w.Code)
	}
	var category models.Category
	json.NewDecoder(w.Body).Decode(&category)
	return category
}

func TestRegisterDuplicateUsername(t *testing.T) {
	role := createRole(t, "clerk")

	body := map[string]interface{}{
		"username": "dupuser", "full_name": "First One",
		"password": "secret123", "role_id": role.ID,
	}
	w := doJSON("POST", "/register", body)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status OK, got %v: %s", w.Code, w.Body.String())
	}

	var created models.UserView
	json.NewDecoder(w.Body).Decode(&created)
	if created.Role != "clerk" {
		t.Errorf("Expected role 'clerk' in response, got %q", created.Role)
	}

	w = doJSON("POST", "/register", body)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status BadRequest for duplicate username, got %v", w.Code)
	}

	// First user remains queryable.
	w = doJSON("GET", "/users", nil)
	var users []models.UserView
	json.NewDecoder(w.Body).Decode(&users)
	found := false
	for _, u := range users {
		if u.ID == created.ID && u.Username == "dupuser" {
			found = true
		}
	}
	if !found {
		t.Error("Expected first user to remain queryable after duplicate attempt")
	}
}

func TestRegisterUnknownRole(t *testing.T) {
	w := doJSON("POST", "/register", map[string]interface{}{
		"username": "ghostrole", "full_name": "No Role",
		"password": "secret123", "role_id": 99999,
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status BadRequest, got %v", w.Code)
	}

	// No user row was created.
	var users []models.UserView
	w = doJSON("GET", "/users", nil)
	json.NewDecoder(w.Body).Decode(&users)
	for _, u := range users {
		if u.Username == "ghostrole" {
			t.Error("Expected no user row for failed registration")
		}
	}
}

func login(username, password string) *httptest.ResponseRecorder {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)
	req := httptest.NewRequest("POST", "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	testMux.ServeHTTP(w, req)
	return w
}

func TestLoginFlow(t *testing.T) {
	role := createRole(t, "cashier")

	w := doJSON("POST", "/register", map[string]interface{}{
		"username": "loginuser", "full_name": "Log In",
		"password": "password123", "role_id": role.ID,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status OK, got %v", w.Code)
	}
	var created models.UserView
	json.NewDecoder(w.Body).Decode(&created)

	w = login("loginuser", "password123")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status OK, got %v", w.Code)
	}
	var resp struct {
		Message string `json:"message"`
		UserID  int    `json:"user_id"`
	}
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.UserID != created.ID {
		t.Errorf("Expected user_id %d, got %d", created.ID, resp.UserID)
	}
	if resp.Message != "Login successful" {
		t.Errorf("Unexpected message %q", resp.Message)
	}

	w = login("loginuser", "wrongpassword")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status Unauthorized, got %v", w.Code)
	}

	w = login("nosuchuser", "password123")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status Unauthorized for unknown user, got %v", w.Code)
	}
}

func TestAdminLoginBootstrapsConfig(t *testing.T) {
	role := createRole(t, "superuser")

	w := doJSON("POST", "/register", map[string]interface{}{
		"username": "admin", "full_name": "Administrator",
		"password": "admin", "role_id": role.ID,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status OK, got %v", w.Code)
	}

	if _, err := os.Stat(testCfg.DBConfigPath); !os.IsNotExist(err) {
		t.Fatal("Expected no db.json before admin login")
	}

	w = login("admin", "admin")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status OK, got %v", w.Code)
	}

	if _, err := os.Stat(testCfg.DBConfigPath); err != nil {
		t.Errorf("Expected db.json after first admin login: %v", err)
	}

	path, err := testCfg.ActiveDBPath()
	if err != nil {
		t.Fatalf("ActiveDBPath: %v", err)
	}
	if path != testCfg.DefaultDBPath {
		t.Errorf("Expected bootstrapped path %q, got %q", testCfg.DefaultDBPath, path)
	}
}

func TestCategoryCascade(t *testing.T) {
	category := createCategory(t, "Cascade Paint", "l")

	for _, name := range []string{"Red paint", "Blue paint"} {
		w := doJSON("POST", "/items", map[string]interface{}{
			"name": name, "category_id": category.ID,
			"parameter_value": "1", "unit": "l",
		})
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status OK creating item, got %v", w.Code)
		}
	}

	w := doJSON("DELETE", fmt.Sprintf("/categories/%d", category.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status OK, got %v", w.Code)
	}

	w = doJSON("GET", fmt.Sprintf("/items?category_id=%d", category.ID), nil)
	var items []models.Item
	json.NewDecoder(w.Body).Decode(&items)
	if len(items) != 0 {
		t.Errorf("Expected no items after category delete, got %d", len(items))
	}

	w = doJSON("DELETE", fmt.Sprintf("/categories/%d", category.ID), nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status NotFound on second delete, got %v", w.Code)
	}
}

func TestRoleDeleteOrphansUsers(t *testing.T) {
	role := createRole(t, "temporary")

	w := doJSON("POST", "/register", map[string]interface{}{
		"username": "orphanuser", "full_name": "Orphan User",
		"password": "secret123", "role_id": role.ID,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status OK, got %v", w.Code)
	}

	w = doJSON("DELETE", fmt.Sprintf("/roles/%d", role.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status OK, got %v", w.Code)
	}

	var users []models.UserView
	w = doJSON("GET", "/users", nil)
	json.NewDecoder(w.Body).Decode(&users)
	found := false
	for _, u := range users {
		if u.Username == "orphanuser" {
			found = true
			if u.Role != "" {
				t.Errorf("Expected empty role name after role delete, got %q", u.Role)
			}
		}
	}
	if !found {
		t.Error("Expected user to survive role deletion")
	}
}

func TestItemWithUnknownCategory(t *testing.T) {
	w := doJSON("POST", "/items", map[string]interface{}{
		"name": "Floating item", "category_id": 99999,
		"parameter_value": "1", "unit": "pcs",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status BadRequest, got %v", w.Code)
	}
}

func TestSearchItems(t *testing.T) {
	category := createCategory(t, "Search Fasteners", "mm")

	for _, name := range []string{"Hex bolt M8", "Wood screw"} {
		w := doJSON("POST", "/items", map[string]interface{}{
			"name": name, "category_id": category.ID,
			"parameter_value": "8", "unit": "mm",
		})
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status OK creating item, got %v", w.Code)
		}
	}

	w := doJSON("GET", "/items/search?query=bolt", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status OK, got %v", w.Code)
	}
	var items []models.Item
	json.NewDecoder(w.Body).Decode(&items)
	if len(items) != 1 || items[0].Name != "Hex bolt M8" {
		t.Errorf("Expected exactly the bolt item, got %v", items)
	}

	w = doJSON("GET", "/items/search?query=nonexistent", nil)
	json.NewDecoder(w.Body).Decode(&items)
	if len(items) != 0 {
		t.Errorf("Expected empty result, got %v", items)
	}

	w = doJSON("GET", "/items/search", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status BadRequest for missing query, got %v", w.Code)
	}
}

func uploadImage(t *testing.T, content []byte) string {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", "photo.jpg")
	if err != nil {
		t.Fatal(err)
	}
	part.Write(content)
	mw.Close()

	req := httptest.NewRequest("POST", "/upload_image", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	testMux.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status OK, got %v", w.Code)
	}

	var resp map[string]string
	json.NewDecoder(w.Body).Decode(&resp)
	if resp["image_id"] == "" {
		t.Fatal("Expected image_id in upload response")
	}
	return resp["image_id"]
}

func TestImageRoundtrip(t *testing.T) {
	content := []byte("not really a jpeg, stored verbatim")
	imageID := uploadImage(t, content)

	w := doJSON("GET", "/imgs/"+imageID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status OK, got %v", w.Code)
	}
	if !bytes.Equal(w.Body.Bytes(), content) {
		t.Error("Expected byte-identical content after roundtrip")
	}

	// No default placeholder configured yet: unknown token is a 404.
	w = doJSON("GET", "/imgs/00000000-0000-0000-0000-000000000000", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status NotFound, got %v", w.Code)
	}

	// With a placeholder on disk, unknown tokens serve it instead.
	placeholder := []byte("placeholder bytes")
	if err := os.WriteFile(testCfg.DefaultImagePath, placeholder, 0o644); err != nil {
		t.Fatal(err)
	}
	defer os.Remove(testCfg.DefaultImagePath)

	w = doJSON("GET", "/imgs/00000000-0000-0000-0000-000000000000", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status OK with placeholder, got %v", w.Code)
	}
	if !bytes.Equal(w.Body.Bytes(), placeholder) {
		t.Error("Expected placeholder content for unknown token")
	}
}

func TestThumbnailOfVerbatimContent(t *testing.T) {
	content := []byte("plain text upload")
	imageID := uploadImage(t, content)

	// Content that does not decode as an image is served unchanged.
	w := doJSON("GET", "/imgs/"+imageID+"?w=32", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status OK, got %v", w.Code)
	}
	if !bytes.Equal(w.Body.Bytes(), content) {
		t.Error("Expected original bytes for undecodable thumbnail request")
	}

	w = doJSON("GET", "/imgs/"+imageID+"?w=zero", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status BadRequest for bad width, got %v", w.Code)
	}
}
