// Package common contains shared constants and sentinel errors used across
// sampleapp components.
package common

// Metadata keys carried by authenticated requests.
const (
	// SessionTokenHeaderName holds the signed session token issued on login.
	SessionTokenHeaderName = "session_token"

	// UserIDHeaderName and RememberTokenHeaderName together form the
	// persistent "remember me" credential.
	UserIDHeaderName        = "user_id"
	RememberTokenHeaderName = "remember_token"
)
