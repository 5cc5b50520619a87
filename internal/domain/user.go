package domain

import (
	"context"
	"time"
)

// Item pairs an illustration reference with a count. Items are embedded in
// the owning user and have no standalone lifecycle.
type Item struct {
	IllustID int64
	Count    int
}

// User represents a registered user of the application. Token holds the
// single active session token; it is empty while the user is logged out.
type User struct {
	ID           int64
	Email        string
	Name         string
	Image        string
	PasswordHash string
	Token        string
	IllustList   []int64
	ItemList     []Item
	Favorites    []int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserRepository defines persistence operations for users. Get operations
// load the embedded reference lists along with the row.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	// UpdateToken overwrites the stored session token. An empty token
	// means logged out.
	UpdateToken(ctx context.Context, id int64, token string) error
	AddIllust(ctx context.Context, userID, illustID int64) error
	AddItem(ctx context.Context, userID int64, item Item) error
	AddFavorite(ctx context.Context, userID, illustID int64) error
}
