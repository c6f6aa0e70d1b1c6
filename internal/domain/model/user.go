package model

import "time"

type User struct {
	ID        string
	Username  string
	Email     string
	IsAdmin   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
