package models

import "github.com/chatter/chatter-backend/internal/database"

// User is a chatter account stored in the "users" collection.
type User struct {
	database.AbstractDocument `bson:",inline"`
	Email                     string `bson:"email" json:"email"`
	Password                  string `bson:"password" json:"-"` // bcrypt hash
}
