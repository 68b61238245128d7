// Package models holds the server-side entities and their field validation.
package models

import (
	"strings"
	"time"
)

// User is an account row. Digest fields hold bcrypt digests only; the raw
// tokens live in the transient fields for the duration of one request and
// are never written by the repositories.
type User struct {
	ID               string     `db:"id"`
	Name             string     `db:"name" validate:"notblank,max=50"`
	Email            string     `db:"email" validate:"notblank,max=255,emailformat"`
	PasswordDigest   string     `db:"password_digest"`
	RememberDigest   *string    `db:"remember_digest"`
	ActivationDigest *string    `db:"activation_digest"`
	Activated        bool       `db:"activated"`
	ActivatedAt      *time.Time `db:"activated_at"`
	ResetDigest      *string    `db:"reset_digest"`
	ResetSentAt      *time.Time `db:"reset_sent_at"`
	Admin            bool       `db:"admin"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`

	RememberToken   string `db:"-"`
	ActivationToken string `db:"-"`
	ResetToken      string `db:"-"`
}

// NormalizeEmail lowercases the email. Every code path that persists a
// user calls it first.
func (u *User) NormalizeEmail() {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
}

// Validate checks name and email constraints. Uniqueness of the email is
// enforced by the database.
func (u *User) Validate() error {
	return validateStruct(u)
}

// Column names a users column that may be written through a partial update.
type Column string

const (
	ColumnName             Column = "name"
	ColumnEmail            Column = "email"
	ColumnPasswordDigest   Column = "password_digest"
	ColumnRememberDigest   Column = "remember_digest"
	ColumnActivationDigest Column = "activation_digest"
	ColumnActivated        Column = "activated"
	ColumnActivatedAt      Column = "activated_at"
	ColumnResetDigest      Column = "reset_digest"
	ColumnResetSentAt      Column = "reset_sent_at"
	ColumnAdmin            Column = "admin"
)

// Columns is a set of column values written together by UpdateColumns.
// A nil value stores SQL NULL.
type Columns map[Column]any
