package domain

import "github.com/leafsii/leafsii-cms/internal/db/entities"

// Caller is the authenticated identity a service operation runs as
type Caller struct {
	UserID   string
	Username string
	Role     string
}

// CallerFromUser builds the caller for a loaded user
func CallerFromUser(u *entities.User) *Caller {
	return &Caller{UserID: u.ID, Username: u.Username, Role: u.Role}
}

func (c *Caller) IsAdmin() bool {
	return c != nil && c.Role == entities.RoleAdmin
}
