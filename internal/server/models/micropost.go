package models

import "time"

// MaxMicropostLength is the maximum number of characters in a post.
const MaxMicropostLength = 140

type Micropost struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id" validate:"required"`
	Content   string    `db:"content" validate:"notblank,max=140"`
	CreatedAt time.Time `db:"created_at"`
}

func (m *Micropost) Validate() error {
	return validateStruct(m)
}
