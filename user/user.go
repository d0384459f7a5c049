// Package user holds the credentials and ad-hoc fields Variable
// plugins read from, and the active-user selection a session runs as.
package user

import (
	"fmt"

	"github.com/raidersec/raider/plugin"
)

// User is one set of login credentials plus any extra fields a graph's
// Variable plugins reference (e.g. an email, a TOTP secret).
//
// Unlike the original, a User never accumulates cookies/headers/output
// values as it authenticates: that state lives in the session's
// plugin.Store instead, so the same User can back multiple concurrent
// sessions safely.
type User struct {
	Username string
	Password string
	Data     map[string]string
}

// New returns a User with username and password plus any additional
// named fields.
func New(username, password string, data map[string]string) *User {
	return &User{Username: username, Password: password, Data: data}
}

// ToUserData converts u into the plugin.UserData map Variable plugins
// resolve against.
func (u *User) ToUserData() plugin.UserData {
	data := plugin.UserData{
		"username": u.Username,
		"password": u.Password,
	}
	for k, v := range u.Data {
		data[k] = v
	}
	return data
}

// Store holds every configured User, keyed by username, and tracks
// which one is active.
type Store struct {
	users  map[string]*User
	active string
}

// NewStore returns a Store over users. activeUsername selects the
// active user; an empty string defaults to the first user in users.
func NewStore(users []*User, activeUsername string) (*Store, error) {
	if len(users) == 0 {
		return nil, fmt.Errorf("user store: at least one user is required")
	}
	s := &Store{users: make(map[string]*User, len(users))}
	for _, u := range users {
		s.users[u.Username] = u
	}
	if activeUsername == "" {
		activeUsername = users[0].Username
	}
	if _, ok := s.users[activeUsername]; !ok {
		return nil, fmt.Errorf("user store: active user %q not defined", activeUsername)
	}
	s.active = activeUsername
	return s, nil
}

// Active returns the currently active User.
func (s *Store) Active() *User { return s.users[s.active] }

// SetActive switches the active user by username.
func (s *Store) SetActive(username string) error {
	if _, ok := s.users[username]; !ok {
		return fmt.Errorf("user store: unknown user %q", username)
	}
	s.active = username
	return nil
}

// Get returns the user with the given username.
func (s *Store) Get(username string) (*User, bool) {
	u, ok := s.users[username]
	return u, ok
}
