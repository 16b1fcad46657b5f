package backend

import (
	"time"

	"github.com/google/uuid"
)

// User is a stored user record.
type User struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// NewUser is the input for CreateUser.
type NewUser struct {
	Name  string `json:"name" validate:"required,min=1,max=100"`
	Email string `json:"email" validate:"required,email,max=254"`
}

// Message is the payload accepted by the body-data endpoint.
type Message struct {
	Code        int32  `json:"code" validate:"gte=0"`
	MessageText string `json:"message_text" validate:"required,max=4096"`
}

// Stats is a snapshot of pool usage. All fields are zero for a stand-in.
type Stats struct {
	Kind            string `json:"kind"`
	TotalConns      int32  `json:"total_conns"`
	IdleConns       int32  `json:"idle_conns"`
	AcquiredConns   int32  `json:"acquired_conns"`
	MaxConns        int32  `json:"max_conns"`
	AcquireCount    int64  `json:"acquire_count"`
	EmptyAcquires   int64  `json:"empty_acquire_count"`
	CanceledAcquire int64  `json:"canceled_acquire_count"`
}
