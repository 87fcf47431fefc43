package types

import (
	"fmt"
	"time"

	"github.com/mitchellh/hashstructure/v2"
)

// Message is a persisted chat message. Rows are append-only, ordering is by
// CreatedAt ascending.
type Message struct {
	Id        string    `json:"id" gorm:"column:id;primaryKey"`
	UserId    string    `json:"userId" gorm:"column:user_id;index"`
	Room      string    `json:"room" gorm:"column:room;index"`
	Text      string    `json:"text" gorm:"column:text"`
	CreatedAt time.Time `json:"timestamp" gorm:"column:created_at;index"`
}

// CreateId derives the message id from sender, room, content and timestamp.
func (m *Message) CreateId() error {
	key := struct {
		UserId string
		Room   string
		Text   string
		Nanos  int64
	}{m.UserId, m.Room, m.Text, m.CreatedAt.UnixNano()}
	hash, err := hashstructure.Hash(key, hashstructure.FormatV2, nil)
	if err != nil {
		return err
	}
	m.Id = fmt.Sprintf("%016x", hash)
	return nil
}
