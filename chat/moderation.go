package chat

import (
	"errors"
	"fmt"

	"chat-presence/globals"
	"chat-presence/observability"
	"chat-presence/persistence"
	"chat-presence/types"
	"github.com/hashicorp/go-hclog"
)

// ModerationService authorizes and applies mute/unmute/kick actions. The
// acting participant must hold the moderator role; a failed authorization is
// a normal control path that emits errorMessage to the actor alone.
//
// Notices are multicast to the room the moderator currently occupies, which
// is not necessarily the target's room.
type ModerationService struct {
	store     persistence.Persister
	transport Transport
	presence  *PresenceService
	log       hclog.Logger
}

func NewModerationService(store persistence.Persister, transport Transport, presence *PresenceService) *ModerationService {
	return &ModerationService{
		store:     store,
		transport: transport,
		presence:  presence,
		log:       globals.AppLogger.Named("moderation"),
	}
}

// authorize checks the actor's role. It returns false with a nil error when
// the actor is not a moderator, in which case the error notice has already
// been emitted.
func (s *ModerationService) authorize(connId, moderatorId string) (bool, error) {
	moderator, err := s.store.GetUser(moderatorId)
	if errors.Is(err, persistence.ErrNotFound) {
		s.transport.ToConn(connId, types.EventErrorMessage, types.ErrorMessage{Message: "only moderators can do that"})
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if moderator.Role != types.RoleModerator {
		s.log.Info("moderation denied", "moderator", moderatorId, "role", moderator.Role)
		s.transport.ToConn(connId, types.EventErrorMessage, types.ErrorMessage{Message: "only moderators can do that"})
		return false, nil
	}
	return true, nil
}

// SetMuted applies a mute or unmute to the target and notifies the
// moderator's current room.
func (s *ModerationService) SetMuted(connId, modRoom, moderatorId, targetId string, muted bool) error {
	action := "mute"
	if !muted {
		action = "unmute"
	}
	ok, err := s.authorize(connId, moderatorId)
	if err != nil {
		return err
	}
	if !ok {
		observability.ModerationActionsTotal.WithLabelValues(action, "denied").Inc()
		return nil
	}
	target, err := s.store.SetUserMuted(targetId, muted)
	if errors.Is(err, persistence.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	observability.ModerationActionsTotal.WithLabelValues(action, "applied").Inc()
	s.log.Info("mute state changed", "target", targetId, "muted", muted, "moderator", moderatorId)
	notice := fmt.Sprintf("%s was muted by %s", targetId, moderatorId)
	if !muted {
		notice = fmt.Sprintf("%s was unmuted by %s", targetId, moderatorId)
	}
	s.transport.ToRoom(modRoom, types.EventRoomMessage, types.RoomMessage{Room: modRoom, Message: notice})
	s.transport.ToRoom(modRoom, types.EventUserMuted, types.UserMuted{UserId: target.Id, Muted: muted})
	return nil
}

// Kick marks the target offline with the sentinel room, notifies the
// moderator's current room and broadcasts the target's updated snapshot.
//
// The target's live connection is not evicted at the transport layer; only
// stored state changes.
func (s *ModerationService) Kick(connId, modRoom, moderatorId, targetId string) error {
	ok, err := s.authorize(connId, moderatorId)
	if err != nil {
		return err
	}
	if !ok {
		observability.ModerationActionsTotal.WithLabelValues("kick", "denied").Inc()
		return nil
	}
	target, err := s.store.SetUserPresence(targetId, types.StatusOffline, globals.SentinelRoom)
	if errors.Is(err, persistence.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	observability.ModerationActionsTotal.WithLabelValues("kick", "applied").Inc()
	s.log.Info("user kicked", "target", targetId, "moderator", moderatorId)
	notice := fmt.Sprintf("%s was kicked by %s", targetId, moderatorId)
	s.transport.ToRoom(modRoom, types.EventRoomMessage, types.RoomMessage{Room: modRoom, Message: notice})
	s.transport.ToRoom(modRoom, types.EventUserKicked, types.UserKicked{UserId: target.Id})
	s.presence.Broadcast(connId, target)
	return nil
}
