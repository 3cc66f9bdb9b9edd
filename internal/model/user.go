package model

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	TgID         int64     `json:"tg_id"`
	Phone        string    `json:"phone,omitempty"`
	City         string    `json:"city,omitempty"`
	Avatar       string    `json:"avatar,omitempty"`
	IsStaff      bool      `json:"is_staff"`
	IsSuperuser  bool      `json:"is_superuser"`
	CreatedAt    time.Time `json:"created_at"`
}

var ErrEmailRequired = errors.New("email is required")

// NormalizeEmail lower-cases the domain part of an address and trims surrounding space.
func NormalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", ErrEmailRequired
	}
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || domain == "" || strings.Contains(domain, "@") {
		return "", InvalidField("email", "must be a valid address")
	}
	return local + "@" + strings.ToLower(domain), nil
}

// ValidateFields checks the user's column constraints. Superusers must carry a Telegram id.
func (u *User) ValidateFields() error {
	switch {
	case u.Email == "":
		return InvalidField("email", "required")
	case u.TgID == 0:
		if u.IsSuperuser {
			return InvalidField("tg_id", "required for superusers")
		}
		return InvalidField("tg_id", "required")
	case utf8.RuneCountInString(u.Phone) > 15:
		return InvalidField("phone", "at most 15 characters")
	case utf8.RuneCountInString(u.City) > 100:
		return InvalidField("city", "at most 100 characters")
	}
	return nil
}

// String renders the user the way it appears in reminder job names.
func (u *User) String() string {
	return u.Email
}
