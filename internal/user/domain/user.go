package domain

import "time"

// User is the identity handed to callers and held in the session cache.
type User struct {
	ID       int64
	Username string
	Email    string
}

// Account is a stored user together with its secret. It never leaves the
// repository and credential store layers.
type Account struct {
	User
	PasswordHash string
	CreatedAt    time.Time
}

type Credentials struct {
	Username string
	Password string
}

// QuerySpec selects accounts by username and/or id. Zero fields do not
// filter; a non-positive Limit means 1 since both keys are unique.
type QuerySpec struct {
	Username string
	ID       int64
	Limit    int
}

type NewAccount struct {
	Username     string
	Email        string
	PasswordHash string
}
