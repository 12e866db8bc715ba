package domain

import (
	"time"

	"github.com/google/uuid"
)

type Customer struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	Name      string     `db:"name" json:"name"`
	Surname   string     `db:"surname" json:"surname"`
	Email     string     `db:"email" json:"email"`
	Pin       string     `db:"pin" json:"pin"`
	Password  string     `db:"password" json:"-"`
	Enabled   bool       `db:"enabled" json:"enabled"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt *time.Time `db:"updated_at" json:"updated_at"`
}

// FullName is used as the greeting in the confirmation email.
func (c *Customer) FullName() string {
	if c.Surname == "" {
		return c.Name
	}
	return c.Name + " " + c.Surname
}
