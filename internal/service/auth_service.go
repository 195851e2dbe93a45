package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"golang.org/x/crypto/bcrypt"

	"reqbridge/internal/core"
)

const tokenName = "reqbridge"

// tokenClaims is the payload signed into a bearer token. Tokens are
// stateless: no server-side session row, no revocation list.
type tokenClaims struct {
	UserID string `json:"uid"`
	Expiry int64  `json:"exp"`
}

type AuthService struct {
	users core.UserRepository
	codes *CodeStore
	codec *securecookie.SecureCookie
	ttl   time.Duration
}

// NewAuthService builds the auth service. The key signs bearer tokens; ttl
// bounds their lifetime.
func NewAuthService(users core.UserRepository, key string, ttl time.Duration) *AuthService {
	hashKey := sha256.Sum256([]byte(key))
	codec := securecookie.New(hashKey[:], nil)
	codec.SetSerializer(securecookie.JSONEncoder{})

	return &AuthService{
		users: users,
		codes: NewCodeStore(),
		codec: codec,
		ttl:   ttl,
	}
}

// Register creates a new user and issues a token. Conflicts are checked in
// username, email, phone order; the storage unique constraints close the
// race between concurrent registrations.
func (s *AuthService) Register(username, email, password, phone string) (*core.User, string, error) {
	switch {
	case username == "":
		return nil, "", &core.ValidationError{Field: "username"}
	case email == "":
		return nil, "", &core.ValidationError{Field: "email"}
	case password == "":
		return nil, "", &core.ValidationError{Field: "password"}
	}

	if _, err := s.users.GetByUsername(username); err == nil {
		return nil, "", &core.ConflictError{Field: "username"}
	}
	if _, err := s.users.GetByEmail(email); err == nil {
		return nil, "", &core.ConflictError{Field: "email"}
	}
	if phone != "" {
		if _, err := s.users.GetByPhone(phone); err == nil {
			return nil, "", &core.ConflictError{Field: "phone"}
		}
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}

	user := &core.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		Phone:        phone,
		PasswordHash: string(hashed),
		IsActive:     true,
		CreatedAt:    time.Now(),
	}
	if err := s.users.Create(user); err != nil {
		return nil, "", err
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// LoginInput carries either username|email+password or phone+code.
type LoginInput struct {
	Username string
	Email    string
	Password string
	Phone    string
	Code     string
}

// Login authenticates in one of two mutually exclusive modes. Phone login
// auto-registers unknown phones: whoever receives the code owns the account.
func (s *AuthService) Login(in LoginInput) (*core.User, string, error) {
	var user *core.User
	var err error

	if in.Phone != "" {
		user, err = s.loginWithPhone(in.Phone, in.Code)
	} else {
		user, err = s.loginWithPassword(in)
	}
	if err != nil {
		return nil, "", err
	}

	if !user.IsActive {
		return nil, "", core.ErrAccountDisabled
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *AuthService) loginWithPassword(in LoginInput) (*core.User, error) {
	var user *core.User
	var err error
	switch {
	case in.Username != "":
		user, err = s.users.GetByUsername(in.Username)
	case in.Email != "":
		user, err = s.users.GetByEmail(in.Email)
	default:
		return nil, &core.ValidationError{Field: "username"}
	}
	if err != nil {
		// Don't leak whether the account exists
		return nil, core.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, core.ErrInvalidCredentials
	}
	return user, nil
}

func (s *AuthService) loginWithPhone(phone, code string) (*core.User, error) {
	if !s.codes.Verify(phone, code) {
		return nil, fmt.Errorf("verification code: %w", core.ErrInvalidCredentials)
	}

	user, err := s.users.GetByPhone(phone)
	if errors.Is(err, core.ErrNotFound) {
		return s.registerFromPhone(phone)
	}
	return user, err
}

// registerFromPhone creates an account for a phone seen for the first time.
// The username is synthesized from the phone suffix; the password is random
// so the account is only reachable through phone login.
func (s *AuthService) registerFromPhone(phone string) (*core.User, error) {
	randomPass := make([]byte, 24)
	if _, err := rand.Read(randomPass); err != nil {
		return nil, err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(hex.EncodeToString(randomPass)), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &core.User{
		ID:           uuid.NewString(),
		Username:     "user_" + phoneSuffix(phone, 4),
		Phone:        phone,
		PasswordHash: string(hashed),
		IsActive:     true,
		CreatedAt:    time.Now(),
	}

	err = s.users.Create(user)
	var conflict *core.ConflictError
	if errors.As(err, &conflict) && conflict.Field == "username" {
		// Another phone with the same suffix; fall back to the full number
		user.Username = "user_" + phone
		err = s.users.Create(user)
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// VerifyToken validates a bearer token and resolves its user. Pure check, no
// side effects.
func (s *AuthService) VerifyToken(token string) (*core.User, error) {
	var claims tokenClaims
	if err := s.codec.Decode(tokenName, token, &claims); err != nil {
		return nil, core.ErrInvalidToken
	}
	if time.Now().Unix() > claims.Expiry {
		return nil, core.ErrInvalidToken
	}

	user, err := s.users.GetByID(claims.UserID)
	if err != nil {
		return nil, core.ErrInvalidToken
	}
	if !user.IsActive {
		return nil, core.ErrAccountDisabled
	}
	return user, nil
}

// SendVerificationCode issues a code for the phone and returns it for
// out-of-band dispatch. The HTTP layer logs it; it is never sent back to the
// requesting client.
func (s *AuthService) SendVerificationCode(phone string) (string, error) {
	if !validPhone(phone) {
		return "", &core.ValidationError{Field: "phone"}
	}
	return s.codes.Issue(phone)
}

// ResetPassword resets a user's password by username
func (s *AuthService) ResetPassword(username, newPassword string) error {
	user, err := s.users.GetByUsername(username)
	if err != nil {
		return fmt.Errorf("user not found: %s", username)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user.PasswordHash = string(hashed)
	return s.users.Update(user)
}

func (s *AuthService) issueToken(user *core.User) (string, error) {
	claims := tokenClaims{
		UserID: user.ID,
		Expiry: time.Now().Add(s.ttl).Unix(),
	}
	return s.codec.Encode(tokenName, claims)
}

func validPhone(phone string) bool {
	if len(phone) < 6 || len(phone) > 20 {
		return false
	}
	for i, r := range phone {
		if r >= '0' && r <= '9' {
			continue
		}
		if r == '+' && i == 0 {
			continue
		}
		return false
	}
	return true
}

func phoneSuffix(phone string, n int) string {
	if len(phone) <= n {
		return phone
	}
	return phone[len(phone)-n:]
}
