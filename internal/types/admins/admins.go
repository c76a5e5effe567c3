package admins

import "time"

// Admin is one administrator account stored in the admins collection.
type Admin struct {
	Name      string    `bson:"name" json:"name"`
	Password  string    `bson:"password" json:"-"`
	CreatedAt time.Time `bson:"createdAt" json:"created_at"`
}

// CreateRequest is the payload for registering a new admin account.
type CreateRequest struct {
	Name     string `json:"name" validate:"required,min=3,max=15"`
	Password string `json:"password" validate:"required,min=8"`
}

// AuthRequest is the payload for authenticating an existing admin.
type AuthRequest struct {
	Name     string `json:"name" validate:"required"`
	Password string `json:"password" validate:"required"`
}
