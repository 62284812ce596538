package service

import (
	"context"
	"errors"
	"fmt"

	"securechat-service/model"
	"securechat-service/utils"

	"gorm.io/gorm"
)

// Events pushed to clients through the transport layer.
const (
	EventChatRequest     = "chat_request"
	EventIncomingMessage = "incoming_message"
	EventSentMessage     = "sent_message"
	EventReadReceipt     = "read_receipt"
	EventGroupMessage    = "group_message"
	EventPresence        = "presence"
)

// TopicPresence is the broadcast topic every connected client is
// subscribed to.
const TopicPresence = "presence"

// Transport pushes events to connected clients. State is always committed
// before an Emit is attempted; implementations log failures and never
// surface them to the caller.
type Transport interface {
	// Emit delivers to a single user's private channel.
	Emit(room string, event string, payload any)
	// Broadcast delivers to every subscriber of a topic.
	Broadcast(topic string, event string, payload any)
}

// Audit receives fire-and-forget notifications of notable events. No
// acknowledgment is expected.
type Audit interface {
	Notify(action string, payload any)
}

// PresenceCache is the externally-owned online-state store.
type PresenceCache interface {
	Get(ctx context.Context, id uint) (online bool, ok bool, err error)
	Set(ctx context.Context, id uint, online bool) error
	Delete(ctx context.Context, id uint) error
}

// UserRoom is the private channel name of a user. Room names use the same
// decimal id format as token claims.
func UserRoom(id uint) string {
	return utils.FormatID(id)
}

// GroupTopic is the broadcast topic of a group chat.
func GroupTopic(id uint) string {
	return "group:" + utils.FormatID(id)
}

func getUser(ctx context.Context, db *gorm.DB, id uint) (*model.User, error) {
	user := new(model.User)
	if err := db.WithContext(ctx).First(user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %d: %w", id, model.ErrNotFound)
		}
		return nil, err
	}
	return user, nil
}
