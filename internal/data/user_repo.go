package data

import (
	"database/sql"
	"errors"
	"strings"

	"reqbridge/internal/core"
)

type UserRepo struct {
	db *DB
}

func NewUserRepo(db *DB) *UserRepo {
	return &UserRepo{db: db}
}

// Create inserts a new user. The unique constraints on username/email/phone
// are the authoritative guard against concurrent duplicate registrations;
// violations come back as *core.ConflictError.
func (r *UserRepo) Create(u *core.User) error {
	_, err := r.db.Exec(r.db.Rebind(
		`INSERT INTO users (id, username, email, phone, password_hash, is_active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`),
		u.ID, u.Username, nullable(u.Email), nullable(u.Phone), u.PasswordHash, boolToInt(u.IsActive), u.CreatedAt)
	if isUniqueViolation(err) {
		return &core.ConflictError{Field: conflictField(err)}
	}
	return err
}

func (r *UserRepo) GetByID(id string) (*core.User, error) {
	return r.getBy("id", id)
}

func (r *UserRepo) GetByUsername(username string) (*core.User, error) {
	return r.getBy("username", username)
}

func (r *UserRepo) GetByEmail(email string) (*core.User, error) {
	return r.getBy("email", email)
}

func (r *UserRepo) GetByPhone(phone string) (*core.User, error) {
	return r.getBy("phone", phone)
}

func (r *UserRepo) getBy(column, value string) (*core.User, error) {
	var u core.User
	var email, phone sql.NullString
	var isActive int
	err := r.db.QueryRow(r.db.Rebind(
		`SELECT id, username, email, phone, password_hash, is_active, created_at
		 FROM users WHERE `+column+` = ?`), value).
		Scan(&u.ID, &u.Username, &email, &phone, &u.PasswordHash, &isActive, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.Email = email.String
	u.Phone = phone.String
	u.IsActive = isActive == 1
	return &u, nil
}

func (r *UserRepo) Update(u *core.User) error {
	_, err := r.db.Exec(r.db.Rebind(
		`UPDATE users SET username=?, email=?, phone=?, password_hash=?, is_active=? WHERE id=?`),
		u.Username, nullable(u.Email), nullable(u.Phone), u.PasswordHash, boolToInt(u.IsActive), u.ID)
	return err
}

// conflictField guesses which unique column tripped from the driver message.
func conflictField(err error) string {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "email"):
		return "email"
	case strings.Contains(msg, "phone"):
		return "phone"
	default:
		return "username"
	}
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
