package auth

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// DefaultPassword is the password of the built-in development accounts.
const DefaultPassword = "123456"

// User is one entry of the user directory. Password holds an encoded hash
// (see CheckPassword), never the clear text.
type User struct {
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	Roles    []string `yaml:"roles"`
}

type usersFile struct {
	Users []User `yaml:"users"`
}

// Directory is an immutable set of users keyed by lower-cased username.
type Directory struct {
	users map[string]User
}

func NewDirectory(users ...User) (*Directory, error) {
	d := &Directory{users: make(map[string]User, len(users))}
	for i, u := range users {
		u.Username = strings.TrimSpace(u.Username)
		if u.Username == "" {
			return nil, fmt.Errorf("user #%d: username is required", i+1)
		}
		if strings.TrimSpace(u.Password) == "" {
			return nil, fmt.Errorf("user %q: password hash is required", u.Username)
		}
		key := strings.ToLower(u.Username)
		if _, dup := d.users[key]; dup {
			return nil, fmt.Errorf("user %q: duplicate username", u.Username)
		}
		roles := make([]string, 0, len(u.Roles))
		for _, r := range u.Roles {
			if r = strings.ToUpper(strings.TrimSpace(r)); r != "" {
				roles = append(roles, r)
			}
		}
		u.Roles = roles
		d.users[key] = u
	}
	return d, nil
}

// LoadDirectory reads a YAML users file:
//
//	users:
//	  - username: admin
//	    password: "{bcrypt}$2a$10$..."
//	    roles: [USER, ADMIN]
func LoadDirectory(path string) (*Directory, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read users file: %w", err)
	}
	var f usersFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse users file %s: %w", path, err)
	}
	if len(f.Users) == 0 {
		return nil, errors.New("users file defines no users")
	}
	return NewDirectory(f.Users...)
}

// DefaultDirectory returns the development accounts "user" (USER) and
// "admin" (USER, ADMIN), both with DefaultPassword hashed at the given
// bcrypt cost.
func DefaultDirectory(cost int) (*Directory, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	userHash, err := encodeBcrypt(DefaultPassword, cost)
	if err != nil {
		return nil, err
	}
	adminHash, err := encodeBcrypt(DefaultPassword, cost)
	if err != nil {
		return nil, err
	}
	return NewDirectory(
		User{Username: "user", Password: userHash, Roles: []string{RoleUser}},
		User{Username: "admin", Password: adminHash, Roles: []string{RoleUser, RoleAdmin}},
	)
}

func (d *Directory) Len() int { return len(d.users) }

// Lookup returns the principal for username without checking a password.
func (d *Directory) Lookup(username string) (Principal, bool) {
	u, ok := d.users[strings.ToLower(strings.TrimSpace(username))]
	if !ok {
		return Principal{}, false
	}
	return Principal{Username: u.Username, Roles: append([]string(nil), u.Roles...)}, true
}

// missingUserHash is checked for unknown usernames so they cost the same
// bcrypt work as known ones.
var missingUserHash = sync.OnceValue(func() string {
	h, err := encodeBcrypt("missing-user", bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return h
})

// Authenticate verifies the credentials and returns the matching principal.
func (d *Directory) Authenticate(username, password string) (Principal, bool) {
	u, ok := d.users[strings.ToLower(strings.TrimSpace(username))]
	if !ok {
		CheckPassword(missingUserHash(), password)
		return Principal{}, false
	}
	if !CheckPassword(u.Password, password) {
		return Principal{}, false
	}
	return Principal{Username: u.Username, Roles: append([]string(nil), u.Roles...)}, true
}
