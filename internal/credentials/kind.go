package credentials

import "github.com/dmitrijs2005/sampleapp/internal/server/models"

// Kind selects one of the token digests stored on a user.
type Kind int

const (
	KindRemember Kind = iota + 1
	KindActivation
	KindReset
)

func (k Kind) String() string {
	switch k {
	case KindRemember:
		return "remember"
	case KindActivation:
		return "activation"
	case KindReset:
		return "reset"
	default:
		return "unknown"
	}
}

// Column is the users column holding the digest for k.
func (k Kind) Column() models.Column {
	switch k {
	case KindRemember:
		return models.ColumnRememberDigest
	case KindActivation:
		return models.ColumnActivationDigest
	case KindReset:
		return models.ColumnResetDigest
	default:
		return ""
	}
}

// digest returns the stored digest of kind k, or "" when it is unset.
func digest(u *models.User, k Kind) string {
	var d *string
	switch k {
	case KindRemember:
		d = u.RememberDigest
	case KindActivation:
		d = u.ActivationDigest
	case KindReset:
		d = u.ResetDigest
	}
	if d == nil {
		return ""
	}
	return *d
}
