package backend

import (
	"time"

	"github.com/google/uuid"
)

func standInListUsers() []User {
	return []User{}
}

func standInCreateUser(in NewUser) User {
	return User{
		ID:        uuid.New(),
		Name:      in.Name,
		Email:     in.Email,
		CreatedAt: time.Now().UTC(),
	}
}
