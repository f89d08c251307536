package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var ErrUnknownUser = errors.New("unknown user")

const bcryptCost = 12

type User struct {
	ID          string `json:"id" yaml:"id"`
	Username    string `json:"username" yaml:"username"`
	DisplayName string `json:"display_name,omitempty" yaml:"display_name"`
	Role        string `json:"role" yaml:"role"`
}

// UserRepo is the local user directory used by dev login and role attachment.
type UserRepo struct{ db *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

// execQuerier is satisfied by *sql.DB and *sql.Tx.
type execQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// UserInput is one row of a bulk upsert.
type UserInput struct {
	User
	Password string
}

// Upsert creates or updates a user by username. An empty password keeps the stored hash.
func (u *UserRepo) Upsert(ctx context.Context, usr User, password string) (User, error) {
	return upsertUser(ctx, u.db, usr, password)
}

// UpsertMany writes every row in one transaction; any failure leaves the directory untouched.
func (u *UserRepo) UpsertMany(ctx context.Context, rows []UserInput) ([]User, error) {
	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	out := make([]User, 0, len(rows))
	for i, row := range rows {
		usr, err := upsertUser(ctx, tx, row.User, row.Password)
		if err != nil {
			return nil, fmt.Errorf("row %d (%s): %w", i+1, row.Username, err)
		}
		out = append(out, usr)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

func upsertUser(ctx context.Context, q execQuerier, usr User, password string) (User, error) {
	if strings.TrimSpace(usr.Username) == "" {
		return User{}, errors.New("username required")
	}
	if usr.ID == "" {
		usr.ID = uuid.NewString()
	}
	if usr.Role == "" {
		usr.Role = "student"
	}
	hash := ""
	if password != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
		if err != nil {
			return User{}, err
		}
		hash = string(h)
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO users (id, username, display_name, role, password_hash, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (username) DO UPDATE SET
		  display_name=EXCLUDED.display_name,
		  role=EXCLUDED.role,
		  password_hash=CASE WHEN EXCLUDED.password_hash = '' THEN users.password_hash
		                     ELSE EXCLUDED.password_hash END`,
		usr.ID, usr.Username, usr.DisplayName, usr.Role, hash, time.Now().Unix())
	if err != nil {
		return User{}, err
	}
	return findUser(ctx, q, usr.Username)
}

func (u *UserRepo) Find(ctx context.Context, username string) (User, error) {
	return findUser(ctx, u.db, username)
}

func findUser(ctx context.Context, q execQuerier, username string) (User, error) {
	var usr User
	err := q.QueryRowContext(ctx,
		`SELECT id, username, display_name, role FROM users WHERE username=$1`, username,
	).Scan(&usr.ID, &usr.Username, &usr.DisplayName, &usr.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUnknownUser
	}
	return usr, err
}

func (u *UserRepo) RoleOf(ctx context.Context, subject string) (string, error) {
	var role string
	err := u.db.QueryRowContext(ctx,
		`SELECT role FROM users WHERE id=$1 OR username=$1`, subject,
	).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrUnknownUser
	}
	return role, err
}

// Authenticate checks a password and returns the user.
func (u *UserRepo) Authenticate(ctx context.Context, username, password string) (User, error) {
	var usr User
	var hash string
	err := u.db.QueryRowContext(ctx,
		`SELECT id, username, display_name, role, password_hash FROM users WHERE username=$1`, username,
	).Scan(&usr.ID, &usr.Username, &usr.DisplayName, &usr.Role, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUnknownUser
	}
	if err != nil {
		return User{}, err
	}
	if hash == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return User{}, ErrUnknownUser
	}
	return usr, nil
}

// ChangePassword verifies the old password of user id and stores the new one.
func (u *UserRepo) ChangePassword(ctx context.Context, id, oldPassword, newPassword string) error {
	var hash string
	err := u.db.QueryRowContext(ctx, `SELECT password_hash FROM users WHERE id=$1`, id).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrUnknownUser
	}
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(oldPassword)) != nil {
		return ErrUnknownUser
	}
	next, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return err
	}
	_, err = u.db.ExecContext(ctx, `UPDATE users SET password_hash=$1 WHERE id=$2`, string(next), id)
	return err
}

// Authenticator is what LoginHandler needs from a user directory.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (User, error)
}

// POST /auth/login  { "username": "...", "password": "..." }
// Tokens carry the user id as subject.
func LoginHandler(a *AuthService, users Authenticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		usr, err := users.Authenticate(r.Context(), req.Username, req.Password)
		if errors.Is(err, ErrUnknownUser) {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		if err != nil {
			http.Error(w, "login failed", http.StatusInternalServerError)
			return
		}
		tok, err := a.IssueJWT(usr.ID, usr.Role)
		if err != nil {
			http.Error(w, "issue token", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"access_token": tok,
			"user_id":      usr.ID,
			"role":         usr.Role,
		})
	}
}
