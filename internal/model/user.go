package model

import "time"

// Roles carried in the users.role column and the JWT "role" claim.
const (
    RoleStaff    = "STAFF"
    RoleCustomer = "CUSTOMER"
)

// User represents a staff member or a customer as stored in the `users`
// table.  Handlers define their own response types so PasswordHash never
// leaves the server.
type User struct {
    ID           uint64    // users.id
    Username     string    // users.username (unique, lower-cased)
    Email        string    // users.email (optional)
    FirstName    string    // users.first_name
    LastName     string    // users.last_name
    PasswordHash string    // users.password_hash (bcrypt)
    Role         string    // users.role: STAFF or CUSTOMER
    CreatedAt    time.Time // users.created_at
}
