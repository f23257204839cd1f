package domain

import (
	"strconv"
	"strings"
	"time"
)

// User is a participant identified by their Telegram id.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username,omitempty"`
	FullName     string    `json:"full_name"`
	LanguageCode string    `json:"language_code,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DisplayName falls back from full name to @username to the numeric id.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if name := strings.TrimSpace(u.FullName); name != "" {
		return name
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	return strconv.FormatInt(u.ID, 10)
}

// Admin is an entry of the admin allow-list.
type Admin struct {
	UserID    int64
	Username  string
	FullName  string
	IsActive  bool
	AddedBy   int64
	CreatedAt time.Time
}
