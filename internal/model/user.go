package model

import "time"

// User roles recognized by the authorization middleware.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// User represents a row in the `users` table.  Outside of
// registration the core only reads users: the identity comes from a
// verified JWT and the email is looked up when publishing a booking
// confirmation.
//
// Fields:
//  ID           – primary key identifier.
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password.
//  FullName     – optional display name used in notifications.
//  Role         – customer or admin.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	FullName     *string   // users.full_name (nullable)
	Role         string    // users.role
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}
