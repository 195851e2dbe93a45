package data

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"reqbridge/internal/core"
	"reqbridge/internal/service"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testUser(username, email, phone string) *core.User {
	return &core.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		Phone:        phone,
		PasswordHash: "hash",
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}
}

func TestUserRepoRoundTrip(t *testing.T) {
	repo := NewUserRepo(testDB(t))

	u := testUser("alice", "alice@example.com", "13800001234")
	if err := repo.Create(u); err != nil {
		t.Fatalf("Create: %v", err)
	}

	for name, get := range map[string]func() (*core.User, error){
		"by id":       func() (*core.User, error) { return repo.GetByID(u.ID) },
		"by username": func() (*core.User, error) { return repo.GetByUsername("alice") },
		"by email":    func() (*core.User, error) { return repo.GetByEmail("alice@example.com") },
		"by phone":    func() (*core.User, error) { return repo.GetByPhone("13800001234") },
	} {
		got, err := get()
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if got.ID != u.ID || got.Username != "alice" || !got.IsActive {
			t.Errorf("%s = %+v", name, got)
		}
	}

	if _, err := repo.GetByUsername("nobody"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("missing user err = %v", err)
	}
}

func TestUserRepoConflicts(t *testing.T) {
	repo := NewUserRepo(testDB(t))

	if err := repo.Create(testUser("bob", "bob@example.com", "13800001234")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	tests := []struct {
		name  string
		user  *core.User
		field string
	}{
		{"username", testUser("bob", "other@example.com", "13800009999"), "username"},
		{"email", testUser("bob2", "bob@example.com", "13800008888"), "email"},
		{"phone", testUser("bob3", "b3@example.com", "13800001234"), "phone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repo.Create(tt.user)
			var conflict *core.ConflictError
			if !errors.As(err, &conflict) {
				t.Fatalf("err = %v, want ConflictError", err)
			}
			if conflict.Field != tt.field {
				t.Errorf("field = %q, want %q", conflict.Field, tt.field)
			}
		})
	}
}

func TestUserRepoEmptyEmailAndPhoneNotUnique(t *testing.T) {
	repo := NewUserRepo(testDB(t))

	// Phone-less and email-less accounts must coexist; empty maps to NULL
	if err := repo.Create(testUser("carol", "", "")); err != nil {
		t.Fatalf("Create carol: %v", err)
	}
	if err := repo.Create(testUser("dave", "", "")); err != nil {
		t.Fatalf("Create dave: %v", err)
	}

	got, err := repo.GetByUsername("carol")
	if err != nil {
		t.Fatalf("GetByUsername: %v", err)
	}
	if got.Email != "" || got.Phone != "" {
		t.Errorf("empty columns came back as %q/%q", got.Email, got.Phone)
	}
}

func TestUserRepoUpdate(t *testing.T) {
	repo := NewUserRepo(testDB(t))

	u := testUser("erin", "erin@example.com", "")
	if err := repo.Create(u); err != nil {
		t.Fatalf("Create: %v", err)
	}

	u.PasswordHash = "new-hash"
	u.IsActive = false
	if err := repo.Update(u); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := repo.GetByID(u.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.PasswordHash != "new-hash" || got.IsActive {
		t.Errorf("after update: %+v", got)
	}
}

func TestRequestRepoEncryptsAuthAtRest(t *testing.T) {
	db := testDB(t)
	cipher, err := service.NewEncryptionService(strings.Repeat("k", 32))
	if err != nil {
		t.Fatalf("cipher: %v", err)
	}
	repo := NewRequestRepo(db, cipher)

	req := &core.SavedRequest{
		ID:        uuid.NewString(),
		UserID:    "user-1",
		Name:      "call",
		Method:    "GET",
		URL:       "https://x.test",
		Headers:   map[string]string{"X-A": "1"},
		Params:    map[string]string{"p": "2"},
		Auth:      core.AuthConfig{Type: core.AuthBearer, Token: "super-secret"},
		CreatedAt: time.Now().UTC(),
	}
	if err := repo.SaveRequest(req); err != nil {
		t.Fatalf("SaveRequest: %v", err)
	}

	// The token never hits the table in the clear
	var authEnc string
	if err := db.QueryRow(`SELECT auth_enc FROM saved_requests WHERE id = ?`, req.ID).Scan(&authEnc); err != nil {
		t.Fatalf("select: %v", err)
	}
	if strings.Contains(authEnc, "super-secret") {
		t.Error("auth stored in the clear")
	}

	list, err := repo.ListSaved("user-1")
	if err != nil {
		t.Fatalf("ListSaved: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("len = %d", len(list))
	}
	got := list[0]
	if got.Auth.Token != "super-secret" || got.Auth.Type != core.AuthBearer {
		t.Errorf("auth = %+v", got.Auth)
	}
	if got.Headers["X-A"] != "1" || got.Params["p"] != "2" {
		t.Errorf("headers/params = %v %v", got.Headers, got.Params)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open("oracle", "dsn"); err == nil {
		t.Fatal("unknown driver accepted")
	}
}

func TestRebind(t *testing.T) {
	tests := []struct {
		driver string
		query  string
		want   string
	}{
		{"sqlite", "SELECT * FROM t WHERE a = ? AND b = ?", "SELECT * FROM t WHERE a = ? AND b = ?"},
		{"mysql", "SELECT * FROM t WHERE a = ?", "SELECT * FROM t WHERE a = ?"},
		{"postgres", "SELECT * FROM t WHERE a = ? AND b = ?", "SELECT * FROM t WHERE a = $1 AND b = $2"},
		{"sqlserver", "SELECT * FROM t WHERE a = ? AND b = ?", "SELECT * FROM t WHERE a = @p1 AND b = @p2"},
	}
	for _, tt := range tests {
		d := &DB{driver: tt.driver}
		if got := d.Rebind(tt.query); got != tt.want {
			t.Errorf("Rebind(%s, %q) = %q, want %q", tt.driver, tt.query, got, tt.want)
		}
	}
}
