package types

import "time"

// Status is the presence state of a participant.
type Status string

const (
	StatusOffline Status = "offline"
	StatusOnline  Status = "online"
	StatusTyping  Status = "typing"
)

// Role authorizes moderation actions. The first participant to log into a
// room with no other non-offline occupant becomes moderator for that login.
type Role int

const (
	RoleMember    Role = 1
	RoleModerator Role = 2
)

// User is the persisted participant record, one row per user id. Rows are
// upserted on login and never hard-deleted; leaving is recorded as
// status=offline plus the sentinel room.
type User struct {
	Id        string    `json:"userId" gorm:"column:user_id;primaryKey"`
	Status    Status    `json:"status" gorm:"column:status"`
	NowRoom   string    `json:"nowRoom" gorm:"column:now_room"`
	Role      Role      `json:"role" gorm:"column:role"`
	IsMuted   bool      `json:"isMuted" gorm:"column:is_muted"`
	CreatedAt time.Time `json:"createdAt" gorm:"column:created_at"`
}
