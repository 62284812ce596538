package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"securechat-service/model"

	"gorm.io/gorm"
)

// ConversationSummary is the inbox row for one conversation partner.
type ConversationSummary struct {
	PartnerID       uint              `json:"partnerId"`
	PartnerUsername string            `json:"partnerUsername"`
	LastMessage     model.ChatMessage `json:"lastMessage"`
	UnreadCount     int               `json:"unreadCount"`
}

// ReadReceipt is delivered to a sender when the recipient reads their
// messages. One receipt per sender per MarkRead call.
type ReadReceipt struct {
	ReaderID      uint      `json:"readerId"`
	MessageIDs    []uint    `json:"messageIds"`
	ReadTimestamp time.Time `json:"readTimestamp"`
}

// MessageService persists and delivers private messages. Messages are
// durably stored before any delivery is attempted; a push failure never
// rolls back the write.
type MessageService struct {
	db        *gorm.DB
	blocks    *BlockService
	transport Transport
	audit     Audit
}

func NewMessageService(db *gorm.DB, blocks *BlockService, transport Transport, audit Audit) *MessageService {
	return &MessageService{db: db, blocks: blocks, transport: transport, audit: audit}
}

// Send persists an unread message and delivers two tagged copies: the
// incoming copy to the recipient, the sent echo (carrying the client's
// correlation id) back to the sender. The block check runs on every send,
// accepted conversation or not.
func (s *MessageService) Send(ctx context.Context, senderID, recipientID uint, env model.Envelope, oneTime bool, localID string) (*model.ChatMessage, error) {
	if senderID == recipientID {
		return nil, fmt.Errorf("cannot message yourself: %w", model.ErrBadRequest)
	}
	if _, err := getUser(ctx, s.db, senderID); err != nil {
		return nil, err
	}
	if _, err := getUser(ctx, s.db, recipientID); err != nil {
		return nil, err
	}

	blocked, err := s.blocks.BlockedEither(ctx, senderID, recipientID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, fmt.Errorf("message not allowed: %w", model.ErrForbidden)
	}

	message := model.ChatMessage{
		SenderID:    senderID,
		RecipientID: recipientID,
		Envelope:    env,
		OneTime:     oneTime,
	}
	if err := s.db.WithContext(ctx).Create(&message).Error; err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).
		Preload("Sender").Preload("Recipient").
		First(&message, message.ID).Error; err != nil {
		return nil, err
	}
	message.LocalID = localID

	incoming := message
	incoming.LocalID = ""
	s.transport.Emit(UserRoom(recipientID), EventIncomingMessage, incoming)
	s.transport.Emit(UserRoom(senderID), EventSentMessage, message)
	return &message, nil
}

// Conversation returns every message between the two users in storage
// order. Read state is normalized: a set read timestamp counts as read.
func (s *MessageService) Conversation(ctx context.Context, userID, partnerID uint) ([]model.ChatMessage, error) {
	if _, err := getUser(ctx, s.db, userID); err != nil {
		return nil, err
	}
	var messages []model.ChatMessage
	err := s.db.WithContext(ctx).
		Where("(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)",
			userID, partnerID, partnerID, userID).
		Preload("Sender").Preload("Recipient").
		Order("id asc").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	for i := range messages {
		if messages[i].ReadTimestamp != nil {
			messages[i].Read = true
		}
	}
	return messages, nil
}

// Summaries returns, per conversation partner, the most recent message and
// how many of that partner's messages the user has not read, most recent
// conversation first.
func (s *MessageService) Summaries(ctx context.Context, userID uint) ([]ConversationSummary, error) {
	if _, err := getUser(ctx, s.db, userID); err != nil {
		return nil, err
	}

	var messages []model.ChatMessage
	err := s.db.WithContext(ctx).
		Where("sender_id = ? OR recipient_id = ?", userID, userID).
		Order("id asc").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	latest := make(map[uint]model.ChatMessage)
	unread := make(map[uint]int)
	for _, message := range messages {
		partner := message.SenderID
		if partner == userID {
			partner = message.RecipientID
		}
		last, seen := latest[partner]
		if !seen || !message.CreatedAt.Before(last.CreatedAt) {
			latest[partner] = message
		}
		if message.RecipientID == userID && !message.Read && message.ReadTimestamp == nil {
			unread[message.SenderID]++
		}
	}

	summaries := make([]ConversationSummary, 0, len(latest))
	for partner, message := range latest {
		username := ""
		if user, err := getUser(ctx, s.db, partner); err == nil {
			username = user.Username
		}
		if message.ReadTimestamp != nil {
			message.Read = true
		}
		summaries = append(summaries, ConversationSummary{
			PartnerID:       partner,
			PartnerUsername: username,
			LastMessage:     message,
			UnreadCount:     unread[partner],
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].LastMessage.ID > summaries[j].LastMessage.ID
	})
	return summaries, nil
}

// MarkRead marks the caller's unread messages among ids as read, fans out
// one receipt per original sender and purges one-time messages, all in one
// transaction. Both the REST handler and the socket push path call this.
// Ids that are not addressed to the caller or already read are ignored.
func (s *MessageService) MarkRead(ctx context.Context, userID uint, messageIDs []uint) error {
	if len(messageIDs) == 0 {
		return fmt.Errorf("empty message id list: %w", model.ErrBadRequest)
	}

	now := time.Now()
	var matched []model.ChatMessage
	var purged []uint

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("recipient_id = ? AND read = ? AND id IN ?", userID, false, messageIDs).
			Find(&matched).Error; err != nil {
			return err
		}
		if len(matched) == 0 {
			return nil
		}

		ids := make([]uint, 0, len(matched))
		for _, message := range matched {
			ids = append(ids, message.ID)
			if message.OneTime {
				purged = append(purged, message.ID)
			}
		}

		err := tx.Model(&model.ChatMessage{}).
			Where("id IN ?", ids).
			Updates(map[string]any{"read": true, "read_timestamp": now}).Error
		if err != nil {
			return err
		}

		if len(purged) > 0 {
			// One-time messages are gone for good once read.
			return tx.Unscoped().Where("id IN ?", purged).Delete(&model.ChatMessage{}).Error
		}
		return nil
	})
	if err != nil {
		return err
	}
	if len(matched) == 0 {
		return nil
	}

	bySender := make(map[uint][]uint)
	for _, message := range matched {
		bySender[message.SenderID] = append(bySender[message.SenderID], message.ID)
	}
	for sender, ids := range bySender {
		s.transport.Emit(UserRoom(sender), EventReadReceipt, ReadReceipt{
			ReaderID:      userID,
			MessageIDs:    ids,
			ReadTimestamp: now,
		})
	}

	if len(purged) > 0 {
		s.audit.Notify("one_time_messages_purged", map[string]any{
			"readerId":   userID,
			"messageIds": purged,
		})
	}
	return nil
}

// DeleteConversation removes every message between the two users. Either
// party may delete the whole conversation.
func (s *MessageService) DeleteConversation(ctx context.Context, userID, partnerID uint) error {
	if partnerID == 0 {
		return fmt.Errorf("malformed partner id: %w", model.ErrBadRequest)
	}
	if _, err := getUser(ctx, s.db, userID); err != nil {
		return err
	}

	pair := s.db.WithContext(ctx).Model(&model.ChatMessage{}).
		Where("(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)",
			userID, partnerID, partnerID, userID)

	var count int64
	if err := pair.Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("no conversation with user %d: %w", partnerID, model.ErrNotFound)
	}

	return s.db.WithContext(ctx).Unscoped().
		Where("(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)",
			userID, partnerID, partnerID, userID).
		Delete(&model.ChatMessage{}).Error
}
