package persistence

import (
	"errors"
	"fmt"
	"time"

	"chat-presence/config"
	"chat-presence/types"
	lru "github.com/hashicorp/golang-lru"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const userCacheSize = 1024

type GormPersist struct {
	db *gorm.DB

	// read-through cache for GetUser, invalidated on every write to the row
	userCache *lru.Cache
}

func NewGormPersister(cfg *config.Config) (Persister, error) {
	db, err := setupGormDB(cfg)
	if err != nil {
		return nil, err
	}
	cache, err := lru.New(userCacheSize)
	if err != nil {
		return nil, err
	}
	p := GormPersist{db: db, userCache: cache}
	return &p, nil
}

func setupGormDB(cfg *config.Config) (*gorm.DB, error) {
	if cfg.PersistenceConfig.DSN == "" {
		return nil, fmt.Errorf("no DSN configured")
	}
	var dial gorm.Dialector
	switch cfg.PersistenceConfig.Type {
	case "gorm-postgres":
		dial = postgres.Open(cfg.PersistenceConfig.DSN)

	case "gorm-sqlite":
		dial = sqlite.Open(cfg.PersistenceConfig.DSN)

	default:
		return nil, fmt.Errorf("invalid gorm configuration")
	}
	db, err := gorm.Open(dial, &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.Migrator().AutoMigrate(&types.User{}, &types.Message{}); err != nil {
		return nil, err
	}
	return db, nil
}

func (p *GormPersist) UpsertUser(user *types.User) error {
	p.userCache.Remove(user.Id)
	err := p.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "now_room", "role"}),
	}).Create(user).Error
	if err != nil {
		return err
	}
	// refresh is_muted and created_at from the stored row
	return p.db.First(user, "user_id = ?", user.Id).Error
}

func (p *GormPersist) GetUser(userId string) (*types.User, error) {
	if userId == "" {
		return nil, fmt.Errorf("no user id")
	}
	if cached, ok := p.userCache.Get(userId); ok {
		user := cached.(types.User)
		return &user, nil
	}
	user := types.User{}
	err := p.db.First(&user, "user_id = ?", userId).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.userCache.Add(userId, user)
	return &user, nil
}

func (p *GormPersist) updateUser(userId string, updates map[string]interface{}) (*types.User, error) {
	p.userCache.Remove(userId)
	res := p.db.Model(&types.User{}).Where("user_id = ?", userId).Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	user := types.User{}
	if err := p.db.First(&user, "user_id = ?", userId).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (p *GormPersist) SetUserStatus(userId string, status types.Status) (*types.User, error) {
	return p.updateUser(userId, map[string]interface{}{"status": status})
}

func (p *GormPersist) SetUserPresence(userId string, status types.Status, room string) (*types.User, error) {
	return p.updateUser(userId, map[string]interface{}{"status": status, "now_room": room})
}

func (p *GormPersist) SetUserMuted(userId string, muted bool) (*types.User, error) {
	return p.updateUser(userId, map[string]interface{}{"is_muted": muted})
}

func (p *GormPersist) GetUsers() ([]*types.User, error) {
	users := make([]*types.User, 0)
	err := p.db.Find(&users).Error
	return users, err
}

func (p *GormPersist) CountRoomOccupants(room string) (int, error) {
	var count int64
	err := p.db.Model(&types.User{}).
		Where("now_room = ? AND status <> ?", room, types.StatusOffline).
		Count(&count).Error
	return int(count), err
}

func (p *GormPersist) RoomOccupants(room string) ([]*types.User, error) {
	users := make([]*types.User, 0)
	err := p.db.
		Where("now_room = ? AND status IN ?", room, []types.Status{types.StatusOnline, types.StatusTyping}).
		Find(&users).Error
	return users, err
}

func (p *GormPersist) StoreMessage(msg *types.Message) error {
	return p.db.Create(msg).Error
}

func (p *GormPersist) RecentMessages(room string, maxCount int) ([]*types.Message, error) {
	messages := make([]*types.Message, 0)
	err := p.db.
		Where("room = ?", room).
		Order("created_at DESC").
		Limit(maxCount).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	// newest-first from the query, the protocol wants oldest-first
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (p *GormPersist) PruneMessages(before time.Time) (int64, error) {
	res := p.db.Where("created_at < ?", before).Delete(&types.Message{})
	return res.RowsAffected, res.Error
}

func (p *GormPersist) Close() error {
	return nil
}
