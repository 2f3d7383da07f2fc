package identity

import (
	"time"

	"github.com/google/uuid"
)

// User is the identity service's view of the signed-in account. Values are
// replaced wholesale on every successful validation, never patched.
// The reduced variant of the current-user endpoint fills only Email.
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Fullname  string    `json:"fullname,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DisplayName returns Fullname, falling back to Email.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.Fullname != "" {
		return u.Fullname
	}
	return u.Email
}

// Credentials are posted to the login and register endpoints.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
