package models

import (
	"fmt"
	"strings"
	"time"
)

// Channel is a Telegram channel or group a user may be required to join.
// The set is managed by admins; this backend only reads it.
type Channel struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	ChatID     int64     `json:"chat_id,omitempty"`
	Username   string    `json:"username,omitempty"`
	InviteLink string    `json:"invite_link,omitempty"`
	IsGroup    bool      `json:"is_group"`
	IsRequired bool      `json:"is_required"`
	IsActive   bool      `json:"is_active"`
	SortOrder  int       `json:"sort_order"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Locator returns the reference used for membership probes. A numeric chat id
// takes priority over the @username form; empty when the channel carries
// neither.
func (c *Channel) Locator() string {
	if c.ChatID != 0 {
		return fmt.Sprintf("%d", c.ChatID)
	}
	if u := strings.TrimSpace(c.Username); u != "" {
		if strings.HasPrefix(u, "@") {
			return u
		}
		return "@" + u
	}
	return ""
}

// PublicLink returns the human-facing join link shown to users.
func (c *Channel) PublicLink() string {
	if u := strings.TrimSpace(strings.TrimPrefix(c.Username, "@")); u != "" {
		return "https://t.me/" + u
	}
	return c.InviteLink
}

// ChannelRef is a human-facing reference to a channel the user still has to
// join. It never exposes internal chat ids.
type ChannelRef struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}

// Verdict is the aggregated result of a subscription check.
type Verdict struct {
	OK        bool         `json:"ok"`
	NotJoined []ChannelRef `json:"not_joined"`
}
