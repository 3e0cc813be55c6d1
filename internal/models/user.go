package models

import "time"

const (
	RoleAdmin    = "admin"
	RoleEmployee = "employee"
)

// User is a back-office account.
type User struct {
	ID           int64     `bson:"_id" json:"id" db:"id"`
	Username     string    `bson:"username" json:"username" db:"username"`
	Email        string    `bson:"email" json:"email" db:"email"`
	PasswordHash string    `bson:"passwordHash" json:"-" db:"password"`
	Role         string    `bson:"role" json:"role" db:"role"`
	IsActive     bool      `bson:"isActive" json:"isActive" db:"isActive"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt" db:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt" json:"updatedAt" db:"updatedAt"`
}
