package models

import "time"

// User is a Telegram user known to the shop. Created on first verified
// WebApp session or first bot interaction, updated on every subsequent one.
type User struct {
	TgID         int64     `json:"tg_id"`
	Username     string    `json:"username,omitempty"`
	FirstName    string    `json:"first_name,omitempty"`
	LastName     string    `json:"last_name,omitempty"`
	LanguageCode string    `json:"language_code,omitempty"`
	IsPremium    bool      `json:"is_premium"`
	IsBlocked    bool      `json:"is_blocked"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// WebAppUser is the identity record nested in the signed init-data payload.
type WebAppUser struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	LanguageCode string `json:"language_code"`
	IsPremium    bool   `json:"is_premium"`
}

// InitData is a verified init-data payload.
type InitData struct {
	// Fields holds every key/value pair of the raw payload, hash included.
	Fields   map[string]string
	AuthDate time.Time
	// User is nil when the payload carried no user field or it failed to
	// decode; RawUser keeps the original string either way.
	User    *WebAppUser
	RawUser string
}
