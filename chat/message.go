package chat

import (
	"errors"
	"time"

	"chat-presence/globals"
	"chat-presence/observability"
	"chat-presence/persistence"
	"chat-presence/types"
	"github.com/hashicorp/go-hclog"
)

// MessageService validates send eligibility, persists the message and fans it
// out to the room.
type MessageService struct {
	store     persistence.Persister
	transport Transport
	presence  *PresenceService
	log       hclog.Logger
}

func NewMessageService(store persistence.Persister, transport Transport, presence *PresenceService) *MessageService {
	return &MessageService{
		store:     store,
		transport: transport,
		presence:  presence,
		log:       globals.AppLogger.Named("message"),
	}
}

// Send persists a message from the sender into the room and multicasts it to
// the whole room, sender included. A muted sender gets an error notice alone
// and nothing is persisted. Sending resets the sender's status to online.
func (s *MessageService) Send(connId, room, userId, text string) error {
	sender, err := s.store.GetUser(userId)
	if errors.Is(err, persistence.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if sender.IsMuted {
		s.log.Info("muted user tried to send", "user", userId, "room", room)
		s.transport.ToConn(connId, types.EventErrorMessage, types.ErrorMessage{Message: "you are muted and cannot send messages"})
		return nil
	}
	msg := &types.Message{
		UserId:    userId,
		Room:      room,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	if err := msg.CreateId(); err != nil {
		return err
	}
	if err := s.store.StoreMessage(msg); err != nil {
		return err
	}
	observability.MessagesTotal.Inc()
	s.transport.ToRoom(room, types.EventUserMessage, types.UserMessageOut{
		Message:   msg.Text,
		Name:      msg.UserId,
		Timestamp: msg.CreatedAt,
	})
	_, err = s.presence.SetStatus(connId, userId, types.StatusOnline)
	return err
}
