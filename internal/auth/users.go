// Package auth provides the credential table, password hashing, and JWT
// issuance/verification used by the HTTP layer.
package auth

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Role names as stored in the user table and carried in token claims.
const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

// ErrInvalidCredentials is returned for unknown users and wrong passwords
// alike, so callers cannot distinguish the two.
var ErrInvalidCredentials = errors.New("invalid credentials")

// User is one row of the credential table.
type User struct {
	Username     string
	PasswordHash string
	Role         string
}

// UserStore holds the credential table in memory. Rows load once at startup;
// the store is read-only afterwards and safe for concurrent use.
type UserStore struct {
	users map[string]User
}

// LoadUsers parses a credential table from CSV. The first line is a header
// and is skipped. Each row is username,bcrypt-hash,role; a legacy ROLE_
// prefix on the role column is stripped.
func LoadUsers(r io.Reader) (*UserStore, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 3
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse user table: %w", err)
	}
	if len(records) == 0 {
		return nil, errors.New("user table is empty")
	}

	users := make(map[string]User, len(records)-1)
	for _, rec := range records[1:] {
		u := User{
			Username:     strings.TrimSpace(rec[0]),
			PasswordHash: strings.TrimSpace(rec[1]),
			Role:         strings.TrimPrefix(strings.TrimSpace(rec[2]), "ROLE_"),
		}
		if u.Username == "" || u.PasswordHash == "" || u.Role == "" {
			return nil, fmt.Errorf("user table row %q has empty fields", rec)
		}
		users[u.Username] = u
	}
	if len(users) == 0 {
		return nil, errors.New("user table has no rows")
	}
	return &UserStore{users: users}, nil
}

// LoadUsersFile reads the credential table from path. When path is empty or
// the file does not exist, fallback (typically the embedded default table)
// is used instead.
func LoadUsersFile(path string, fallback []byte) (*UserStore, error) {
	if path != "" {
		f, err := os.Open(path)
		switch {
		case err == nil:
			defer f.Close()
			return LoadUsers(f)
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("open user table %s: %w", path, err)
		}
	}
	return LoadUsers(bytes.NewReader(fallback))
}

// Lookup returns the user row for username.
func (s *UserStore) Lookup(username string) (User, bool) {
	u, ok := s.users[username]
	return u, ok
}

// Authenticate verifies username/password against the table.
func (s *UserStore) Authenticate(username, password string) (User, error) {
	u, ok := s.users[username]
	if !ok {
		return User{}, ErrInvalidCredentials
	}
	if !CheckPassword(u.PasswordHash, password) {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

// Len reports the number of loaded users.
func (s *UserStore) Len() int { return len(s.users) }
