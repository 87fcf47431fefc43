package chat

import (
	"chat-presence/globals"
	"chat-presence/persistence"
	"chat-presence/types"
	"github.com/hashicorp/go-hclog"
)

// PresenceService persists status transitions and broadcasts the canonical
// presence snapshot. Centralizing the snapshot broadcast here avoids
// payload-shape drift between call sites.
type PresenceService struct {
	store     persistence.Persister
	transport Transport
	log       hclog.Logger
}

func NewPresenceService(store persistence.Persister, transport Transport) *PresenceService {
	return &PresenceService{
		store:     store,
		transport: transport,
		log:       globals.AppLogger.Named("presence"),
	}
}

// Broadcast emits the user's presence snapshot to all connections except the
// acting one.
func (s *PresenceService) Broadcast(exceptConnId string, user *types.User) {
	s.transport.Broadcast(exceptConnId, types.EventUserStatusChanged, user)
}

// SetStatus persists the status transition and broadcasts the updated
// snapshot.
func (s *PresenceService) SetStatus(exceptConnId, userId string, status types.Status) (*types.User, error) {
	user, err := s.store.SetUserStatus(userId, status)
	if err != nil {
		return nil, err
	}
	s.log.Debug("status changed", "user", userId, "status", status)
	s.Broadcast(exceptConnId, user)
	return user, nil
}

// SetPresence persists a combined status and room transition, keeping the two
// consistent, and broadcasts the updated snapshot.
func (s *PresenceService) SetPresence(exceptConnId, userId string, status types.Status, room string) (*types.User, error) {
	user, err := s.store.SetUserPresence(userId, status, room)
	if err != nil {
		return nil, err
	}
	s.log.Debug("presence changed", "user", userId, "status", status, "room", room)
	s.Broadcast(exceptConnId, user)
	return user, nil
}
