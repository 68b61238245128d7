// Package credentials owns the password and token lifecycle of a user
// account: bcrypt password digests, remember-me tokens, activation tokens
// and password-reset tokens.
//
// Raw tokens are produced by NewToken, handed to the caller once (cookie or
// email) and only their bcrypt digest is persisted. Verification recomputes
// the digest and reports a plain boolean; a missing or malformed digest is
// indistinguishable from a wrong token.
//
// Concurrent Remember or CreateResetDigest calls for the same user are not
// coordinated: the last write wins and earlier raw tokens stop verifying.
package credentials
