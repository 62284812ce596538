package service

import (
	"context"
	"errors"
	"fmt"

	"securechat-service/model"

	"gorm.io/gorm"
)

// GroupHistory is the full message log of one group.
type GroupHistory struct {
	GroupID  uint                     `json:"groupId"`
	Name     string                   `json:"name"`
	Messages []model.GroupChatMessage `json:"messages"`
}

// GroupService handles group creation and topic-based broadcast. Delivery
// goes to every subscriber of the group topic, not per listed participant.
type GroupService struct {
	db        *gorm.DB
	transport Transport
	audit     Audit
}

func NewGroupService(db *gorm.DB, transport Transport, audit Audit) *GroupService {
	return &GroupService{db: db, transport: transport, audit: audit}
}

// Create persists a group with its full participant set. Any unknown
// participant id fails the whole call; nobody is silently skipped.
func (s *GroupService) Create(ctx context.Context, name string, participantIDs []uint) (*model.GroupChat, error) {
	if name == "" {
		return nil, fmt.Errorf("group name is required: %w", model.ErrBadRequest)
	}
	if len(participantIDs) == 0 {
		return nil, fmt.Errorf("empty participant list: %w", model.ErrBadRequest)
	}

	participants := make([]model.User, 0, len(participantIDs))
	seen := make(map[uint]bool, len(participantIDs))
	for _, id := range participantIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		user, err := getUser(ctx, s.db, id)
		if err != nil {
			return nil, err
		}
		participants = append(participants, *user)
	}

	group := model.GroupChat{Name: name, Participants: participants}
	if err := s.db.WithContext(ctx).Create(&group).Error; err != nil {
		return nil, err
	}

	for _, participant := range participants {
		s.audit.Notify("group_participant_added", map[string]any{
			"groupId":       group.ID,
			"groupName":     group.Name,
			"participantId": participant.ID,
		})
	}
	return &group, nil
}

// SendMessage persists a group message and broadcasts it on the group
// topic. The sender must be a current participant.
func (s *GroupService) SendMessage(ctx context.Context, groupID, senderID uint, content string) (*model.GroupChatMessage, error) {
	if content == "" {
		return nil, fmt.Errorf("empty message content: %w", model.ErrBadRequest)
	}

	group := new(model.GroupChat)
	err := s.db.WithContext(ctx).Preload("Participants").First(group, groupID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("group %d: %w", groupID, model.ErrNotFound)
		}
		return nil, err
	}
	if _, err := getUser(ctx, s.db, senderID); err != nil {
		return nil, err
	}

	member := false
	for _, participant := range group.Participants {
		if participant.ID == senderID {
			member = true
			break
		}
	}
	if !member {
		return nil, fmt.Errorf("user %d is not a participant of group %d: %w", senderID, groupID, model.ErrForbidden)
	}

	message := model.GroupChatMessage{GroupID: groupID, SenderID: senderID, Content: content}
	if err := s.db.WithContext(ctx).Create(&message).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Preload("Sender").First(&message, message.ID).Error; err != nil {
		return nil, err
	}

	s.transport.Broadcast(GroupTopic(groupID), EventGroupMessage, message)
	return &message, nil
}

// History returns all group messages in ascending timestamp order. The
// group name is resolved best-effort; a vanished group reads "Unknown".
func (s *GroupService) History(ctx context.Context, groupID uint) (*GroupHistory, error) {
	name := "Unknown"
	group := new(model.GroupChat)
	if err := s.db.WithContext(ctx).First(group, groupID).Error; err == nil {
		name = group.Name
	}

	var messages []model.GroupChatMessage
	err := s.db.WithContext(ctx).
		Where(&model.GroupChatMessage{GroupID: groupID}).
		Preload("Sender").
		Order("created_at asc, id asc").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	return &GroupHistory{GroupID: groupID, Name: name, Messages: messages}, nil
}
