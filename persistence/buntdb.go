package persistence

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"chat-presence/types"
	"github.com/tidwall/buntdb"
)

type BuntDBPersist struct {
	db *buntdb.DB
}

// NewBuntPersister opens a BuntDB-backed store at the given path, or an
// in-memory one for ":memory:".
func NewBuntPersister(path string) (Persister, error) {
	if path == "" {
		return nil, fmt.Errorf("no buntdb path")
	}
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, err
	}
	return &BuntDBPersist{db: db}, nil
}

func userKey(userId string) string   { return "user:" + userId }
func messageKey(msgId string) string { return "message:" + msgId }

func (p *BuntDBPersist) storeUser(user *types.User) error {
	u, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return p.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(userKey(user.Id), string(u), nil)
		return err
	})
}

func (p *BuntDBPersist) UpsertUser(user *types.User) error {
	if user.Id == "" {
		return fmt.Errorf("no user id")
	}
	existing, err := p.GetUser(user.Id)
	if err != nil && err != ErrNotFound {
		return err
	}
	if err == ErrNotFound {
		if user.CreatedAt.IsZero() {
			user.CreatedAt = time.Now().UTC()
		}
	} else {
		// only status, now_room and role are overwritten on re-login
		user.IsMuted = existing.IsMuted
		user.CreatedAt = existing.CreatedAt
	}
	return p.storeUser(user)
}

func (p *BuntDBPersist) GetUser(userId string) (*types.User, error) {
	if userId == "" {
		return nil, fmt.Errorf("no user id")
	}
	user := types.User{}
	err := p.db.View(func(tx *buntdb.Tx) error {
		u, err := tx.Get(userKey(userId))
		if err != nil {
			return err
		}
		return json.Unmarshal([]byte(u), &user)
	})
	if err == buntdb.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (p *BuntDBPersist) SetUserStatus(userId string, status types.Status) (*types.User, error) {
	user, err := p.GetUser(userId)
	if err != nil {
		return nil, err
	}
	user.Status = status
	return user, p.storeUser(user)
}

func (p *BuntDBPersist) SetUserPresence(userId string, status types.Status, room string) (*types.User, error) {
	user, err := p.GetUser(userId)
	if err != nil {
		return nil, err
	}
	user.Status = status
	user.NowRoom = room
	return user, p.storeUser(user)
}

func (p *BuntDBPersist) SetUserMuted(userId string, muted bool) (*types.User, error) {
	user, err := p.GetUser(userId)
	if err != nil {
		return nil, err
	}
	user.IsMuted = muted
	return user, p.storeUser(user)
}

func (p *BuntDBPersist) GetUsers() ([]*types.User, error) {
	users := make([]*types.User, 0)
	err := p.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys("user:*", func(key, val string) bool {
			user := types.User{}
			if err := json.Unmarshal([]byte(val), &user); err == nil {
				users = append(users, &user)
			}
			return true
		})
	})
	return users, err
}

func (p *BuntDBPersist) CountRoomOccupants(room string) (int, error) {
	count := 0
	err := p.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys("user:*", func(key, val string) bool {
			user := types.User{}
			if err := json.Unmarshal([]byte(val), &user); err == nil {
				if user.NowRoom == room && user.Status != types.StatusOffline {
					count++
				}
			}
			return true
		})
	})
	return count, err
}

func (p *BuntDBPersist) RoomOccupants(room string) ([]*types.User, error) {
	users := make([]*types.User, 0)
	err := p.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys("user:*", func(key, val string) bool {
			user := types.User{}
			if err := json.Unmarshal([]byte(val), &user); err == nil {
				if user.NowRoom == room && (user.Status == types.StatusOnline || user.Status == types.StatusTyping) {
					users = append(users, &user)
				}
			}
			return true
		})
	})
	return users, err
}

func (p *BuntDBPersist) StoreMessage(msg *types.Message) error {
	if msg.Id == "" {
		if err := msg.CreateId(); err != nil {
			return err
		}
	}
	m, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return p.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(messageKey(msg.Id), string(m), nil)
		return err
	})
}

func (p *BuntDBPersist) roomMessages(room string) ([]*types.Message, error) {
	messages := make([]*types.Message, 0)
	err := p.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys("message:*", func(key, val string) bool {
			msg := types.Message{}
			if err := json.Unmarshal([]byte(val), &msg); err == nil {
				if msg.Room == room {
					messages = append(messages, &msg)
				}
			}
			return true
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(messages, func(i, j int) bool {
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})
	return messages, nil
}

func (p *BuntDBPersist) RecentMessages(room string, maxCount int) ([]*types.Message, error) {
	messages, err := p.roomMessages(room)
	if err != nil {
		return nil, err
	}
	if maxCount > 0 && len(messages) > maxCount {
		messages = messages[len(messages)-maxCount:]
	}
	return messages, nil
}

func (p *BuntDBPersist) PruneMessages(before time.Time) (int64, error) {
	var pruned int64
	err := p.db.Update(func(tx *buntdb.Tx) error {
		stale := make([]string, 0)
		err := tx.AscendKeys("message:*", func(key, val string) bool {
			msg := types.Message{}
			if err := json.Unmarshal([]byte(val), &msg); err == nil {
				if msg.CreatedAt.Before(before) {
					stale = append(stale, key)
				}
			}
			return true
		})
		if err != nil {
			return err
		}
		for _, key := range stale {
			if _, err := tx.Delete(key); err != nil {
				return err
			}
			pruned++
		}
		return nil
	})
	return pruned, err
}

func (p *BuntDBPersist) Close() error {
	return p.db.Close()
}
