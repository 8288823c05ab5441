// Package models defines server-side data models persisted in the database.
package models

import (
	"strings"
	"time"

	"github.com/dmitrijs2005/coursesell/internal/common"
)

// Avatar references a profile picture held by object storage.
type Avatar struct {
	ID  string `json:"public_id"`
	URL string `json:"url"`
}

// Subscription is the account's paid-plan state.
type Subscription struct {
	ID       string     `json:"id,omitempty"`
	Status   string     `json:"status"`
	RenewsAt *time.Time `json:"renews_at,omitempty"`
}

// User is an account. PasswordHash and the reset-token pair never leave the
// server.
type User struct {
	ID                  string       `json:"_id"`
	Name                string       `json:"name"`
	Email               string       `json:"email"`
	PasswordHash        string       `json:"-"`
	Role                string       `json:"role"`
	Avatar              Avatar       `json:"avatar"`
	Subscription        Subscription `json:"subscription"`
	Playlist            Playlist     `json:"playlist"`
	ResetTokenHash      *string      `json:"-"`
	ResetTokenExpiresAt *time.Time   `json:"-"`
	CreatedAt           time.Time    `json:"createdAt"`
	UpdatedAt           time.Time    `json:"updatedAt"`
}

// NormalizeEmail is the canonical form emails are stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (u *User) IsAdmin() bool {
	return u.Role == common.RoleAdmin
}

// SetResetToken stores a reset digest together with its expiry.
func (u *User) SetResetToken(hash string, expiresAt time.Time) {
	u.ResetTokenHash = &hash
	u.ResetTokenExpiresAt = &expiresAt
}

// ClearResetToken removes both halves of the reset pair.
func (u *User) ClearResetToken() {
	u.ResetTokenHash = nil
	u.ResetTokenExpiresAt = nil
}

// ResetTokenValid reports whether a reset digest is stored and unexpired at now.
func (u *User) ResetTokenValid(now time.Time) bool {
	return u.ResetTokenHash != nil && u.ResetTokenExpiresAt != nil && now.Before(*u.ResetTokenExpiresAt)
}

// ToggleRole flips between user and admin.
func (u *User) ToggleRole() {
	if u.Role == common.RoleAdmin {
		u.Role = common.RoleUser
	} else {
		u.Role = common.RoleAdmin
	}
}
