package persistence

import (
	"errors"
	"fmt"
	"time"

	"chat-presence/config"
	"chat-presence/types"
)

// ErrNotFound is returned when a row does not exist. Backends map their own
// not-found errors to this one.
var ErrNotFound = errors.New("not found")

type Persister interface {
	// UpsertUser creates the user row or, if it exists, updates status,
	// now_room and role only. is_muted and created_at survive re-login.
	// The passed struct is refreshed from the stored row.
	UpsertUser(user *types.User) error
	GetUser(userId string) (*types.User, error)
	SetUserStatus(userId string, status types.Status) (*types.User, error)
	SetUserPresence(userId string, status types.Status, room string) (*types.User, error)
	SetUserMuted(userId string, muted bool) (*types.User, error)
	GetUsers() ([]*types.User, error)

	// CountRoomOccupants counts users recorded against the room with a
	// non-offline status.
	CountRoomOccupants(room string) (int, error)
	// RoomOccupants returns the users recorded against the room with status
	// online or typing.
	RoomOccupants(room string) ([]*types.User, error)

	StoreMessage(msg *types.Message) error
	// RecentMessages returns up to maxCount of the newest messages in the
	// room, ordered oldest-first.
	RecentMessages(room string, maxCount int) ([]*types.Message, error)
	// PruneMessages deletes messages created before the cutoff and returns
	// the number of rows removed.
	PruneMessages(before time.Time) (int64, error)

	Close() error
}

// NewPersister selects the backend from the configuration. An empty type
// falls back to an in-memory BuntDB store so the server runs without any
// persistence configuration.
func NewPersister(cfg *config.Config) (Persister, error) {
	switch cfg.PersistenceConfig.Type {
	case "gorm-sqlite", "gorm-postgres":
		return NewGormPersister(cfg)
	case "buntdb":
		return NewBuntPersister(cfg.PersistenceConfig.DSN)
	case "":
		return NewBuntPersister(":memory:")
	}
	return nil, fmt.Errorf("invalid persistence type %q", cfg.PersistenceConfig.Type)
}
