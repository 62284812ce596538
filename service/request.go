package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"securechat-service/metrics"
	"securechat-service/model"

	"gorm.io/gorm"
)

// ChatRequestService runs the consent handshake between two users. A
// request is created PENDING and settles into exactly one of ACCEPTED,
// REJECTED, CANCELLED or EXPIRED; settled requests are kept as a record.
type ChatRequestService struct {
	db        *gorm.DB
	blocks    *BlockService
	transport Transport
	audit     Audit
}

func NewChatRequestService(db *gorm.DB, blocks *BlockService, transport Transport, audit Audit) *ChatRequestService {
	return &ChatRequestService{db: db, blocks: blocks, transport: transport, audit: audit}
}

// Send creates a PENDING request and delivers it to the recipient. The
// pre-read on an existing pending request is a latency optimization; the
// partial unique index is what actually prevents a concurrent duplicate.
func (s *ChatRequestService) Send(ctx context.Context, requesterID, recipientID uint, env model.Envelope) (*model.ChatRequest, error) {
	if requesterID == recipientID {
		return nil, fmt.Errorf("cannot request a chat with yourself: %w", model.ErrBadRequest)
	}
	if _, err := getUser(ctx, s.db, requesterID); err != nil {
		return nil, err
	}
	if _, err := getUser(ctx, s.db, recipientID); err != nil {
		return nil, err
	}

	blocked, err := s.blocks.BlockedEither(ctx, requesterID, recipientID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, fmt.Errorf("chat request not allowed: %w", model.ErrForbidden)
	}

	var pending int64
	err = s.db.WithContext(ctx).Model(&model.ChatRequest{}).
		Where(&model.ChatRequest{RequesterID: requesterID, RecipientID: recipientID, Status: model.RequestPending}).
		Count(&pending).Error
	if err != nil {
		return nil, err
	}
	if pending > 0 {
		return nil, fmt.Errorf("a pending chat request already exists: %w", model.ErrConflict)
	}

	request := model.ChatRequest{
		RequesterID: requesterID,
		RecipientID: recipientID,
		Envelope:    env,
		Status:      model.RequestPending,
	}
	if err := s.db.WithContext(ctx).Create(&request).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("a pending chat request already exists: %w", model.ErrConflict)
		}
		return nil, err
	}

	if err := s.db.WithContext(ctx).
		Preload("Requester").Preload("Recipient").
		First(&request, request.ID).Error; err != nil {
		return nil, err
	}

	s.transport.Emit(UserRoom(recipientID), EventChatRequest, request)
	return &request, nil
}

// Accept transitions the request to ACCEPTED and materializes its envelope
// as the first message of the conversation. Only the recipient may accept.
func (s *ChatRequestService) Accept(ctx context.Context, requestID, callerID uint) (*model.ChatMessage, error) {
	request, err := s.get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.RecipientID != callerID {
		return nil, fmt.Errorf("only the recipient can accept a chat request: %w", model.ErrForbidden)
	}
	if request.Status != model.RequestPending {
		return nil, fmt.Errorf("chat request already %s: %w", request.Status, model.ErrConflict)
	}

	message := model.ChatMessage{
		SenderID:    request.RequesterID,
		RecipientID: request.RecipientID,
		Envelope:    request.Envelope,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Conditional update guards against a concurrent settle.
		res := tx.Model(&model.ChatRequest{}).
			Where("id = ? AND status = ?", request.ID, model.RequestPending).
			Update("status", model.RequestAccepted)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("chat request already settled: %w", model.ErrConflict)
		}
		return tx.Create(&message).Error
	})
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).
		Preload("Sender").Preload("Recipient").
		First(&message, message.ID).Error; err != nil {
		return nil, err
	}

	s.transport.Emit(UserRoom(message.RecipientID), EventIncomingMessage, message)
	s.transport.Emit(UserRoom(message.SenderID), EventSentMessage, message)
	s.audit.Notify("conversation_created", map[string]any{
		"requestId":   request.ID,
		"requesterId": request.RequesterID,
		"recipientId": request.RecipientID,
		"messageId":   message.ID,
	})
	return &message, nil
}

// Reject settles a pending request. Rejecting a non-pending request is a
// no-op so client retries stay cheap.
func (s *ChatRequestService) Reject(ctx context.Context, requestID, callerID uint) error {
	request, err := s.get(ctx, requestID)
	if err != nil {
		return err
	}
	if request.RecipientID != callerID {
		return fmt.Errorf("only the recipient can reject a chat request: %w", model.ErrForbidden)
	}
	if request.Status != model.RequestPending {
		return nil
	}
	return s.settle(ctx, request.ID, model.RequestRejected)
}

// Cancel withdraws a pending request. Only the requester may cancel;
// cancelling a non-pending request is a no-op.
func (s *ChatRequestService) Cancel(ctx context.Context, requestID, callerID uint) error {
	request, err := s.get(ctx, requestID)
	if err != nil {
		return err
	}
	if request.RequesterID != callerID {
		return fmt.Errorf("only the requester can cancel a chat request: %w", model.ErrForbidden)
	}
	if request.Status != model.RequestPending {
		return nil
	}
	return s.settle(ctx, request.ID, model.RequestCancelled)
}

// ListPending returns all pending requests addressed to the user.
func (s *ChatRequestService) ListPending(ctx context.Context, userID uint) ([]model.ChatRequest, error) {
	if _, err := getUser(ctx, s.db, userID); err != nil {
		return nil, err
	}
	var requests []model.ChatRequest
	err := s.db.WithContext(ctx).
		Where(&model.ChatRequest{RecipientID: userID, Status: model.RequestPending}).
		Preload("Requester").
		Order("id asc").
		Find(&requests).Error
	return requests, err
}

// ExpireStale bulk-transitions pending requests older than retention to
// EXPIRED and returns how many were swept. This is the only path that
// settles requests without a caller identity.
func (s *ChatRequestService) ExpireStale(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	res := s.db.WithContext(ctx).Model(&model.ChatRequest{}).
		Where("status = ? AND created_at < ?", model.RequestPending, cutoff).
		Update("status", model.RequestExpired)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		metrics.ExpiredRequests.Add(float64(res.RowsAffected))
		s.audit.Notify("chat_requests_expired", map[string]any{
			"count":  res.RowsAffected,
			"cutoff": cutoff,
		})
	}
	return res.RowsAffected, nil
}

func (s *ChatRequestService) get(ctx context.Context, requestID uint) (*model.ChatRequest, error) {
	request := new(model.ChatRequest)
	if err := s.db.WithContext(ctx).First(request, requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("chat request %d: %w", requestID, model.ErrNotFound)
		}
		return nil, err
	}
	return request, nil
}

func (s *ChatRequestService) settle(ctx context.Context, requestID uint, status model.RequestStatus) error {
	return s.db.WithContext(ctx).Model(&model.ChatRequest{}).
		Where("id = ? AND status = ?", requestID, model.RequestPending).
		Update("status", status).Error
}
