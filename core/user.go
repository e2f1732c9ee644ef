package core

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// MaxNameLength bounds first and last names
	MaxNameLength = 50

	minPasswordLength = 4
	maxPasswordLength = 50
)

var (
	passwordDigit = regexp.MustCompile(`\d`)
	passwordLower = regexp.MustCompile(`[a-z]`)
	passwordUpper = regexp.MustCompile(`[A-Z]`)
)

// User is a persisted account
type User struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	Active       bool
	Superuser    bool
}

// NewUser is the input of registration
type NewUser struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// Validate checks the shape of a registration.
func (n NewUser) Validate() error {
	if err := checkName(n.FirstName); err != nil {
		return err
	}
	if err := checkName(n.LastName); err != nil {
		return err
	}
	if !strings.Contains(n.Email, "@") {
		return ErrInvalidInput
	}
	return ValidatePassword(n.Password)
}

// UserUpdate carries the fields to change; nil means untouched.
type UserUpdate struct {
	FirstName    *string
	LastName     *string
	PasswordHash *string
	Active       *bool
}

// IsEmpty reports whether the update changes nothing.
func (u UserUpdate) IsEmpty() bool {
	return u.FirstName == nil && u.LastName == nil && u.PasswordHash == nil && u.Active == nil
}

// Validate checks the profile fields of the update.
func (u UserUpdate) Validate() error {
	if u.IsEmpty() {
		return ErrEmptyUpdate
	}
	if u.FirstName != nil {
		if err := checkName(*u.FirstName); err != nil {
			return err
		}
	}
	if u.LastName != nil {
		if err := checkName(*u.LastName); err != nil {
			return err
		}
	}
	return nil
}

// Apply copies the set fields onto user.
func (u UserUpdate) Apply(user *User) {
	if u.FirstName != nil {
		user.FirstName = *u.FirstName
	}
	if u.LastName != nil {
		user.LastName = *u.LastName
	}
	if u.PasswordHash != nil {
		user.PasswordHash = *u.PasswordHash
	}
	if u.Active != nil {
		user.Active = *u.Active
	}
}

// ValidatePassword enforces 4-50 characters with at least one digit, one
// lowercase and one uppercase letter.
func ValidatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < minPasswordLength || n > maxPasswordLength {
		return ErrInvalidPassword
	}
	if !passwordDigit.MatchString(password) || !passwordLower.MatchString(password) || !passwordUpper.MatchString(password) {
		return ErrInvalidPassword
	}
	return nil
}

func checkName(name string) error {
	if name == "" {
		return ErrInvalidInput
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return ErrFieldTooLong
	}
	return nil
}
