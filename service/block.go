package service

import (
	"context"
	"errors"

	"securechat-service/model"

	"gorm.io/gorm"
)

// BlockService maintains the blocking relation between user pairs. Writes
// are one-directional (only the blocker owns the edge); enforcement reads
// both directions.
type BlockService struct {
	db    *gorm.DB
	audit Audit
}

func NewBlockService(db *gorm.DB, audit Audit) *BlockService {
	return &BlockService{db: db, audit: audit}
}

// Block adds the edge blocker->blocked. Idempotent; the audit event fires
// only on first insertion.
func (s *BlockService) Block(ctx context.Context, blockerID, blockedID uint) error {
	if _, err := getUser(ctx, s.db, blockerID); err != nil {
		return err
	}
	if _, err := getUser(ctx, s.db, blockedID); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).
		Where(&model.UserBlock{BlockerID: blockerID, BlockedID: blockedID}).
		First(new(model.UserBlock)).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	edge := model.UserBlock{BlockerID: blockerID, BlockedID: blockedID}
	if err := s.db.WithContext(ctx).Create(&edge).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost a race against an identical block; same outcome.
			return nil
		}
		return err
	}

	s.audit.Notify("user_blocked", map[string]any{
		"blockerId": blockerID,
		"blockedId": blockedID,
	})
	return nil
}

// Unblock removes the edge if present; a missing edge is a no-op.
func (s *BlockService) Unblock(ctx context.Context, blockerID, blockedID uint) error {
	if _, err := getUser(ctx, s.db, blockerID); err != nil {
		return err
	}
	if _, err := getUser(ctx, s.db, blockedID); err != nil {
		return err
	}
	return s.db.WithContext(ctx).
		Where(&model.UserBlock{BlockerID: blockerID, BlockedID: blockedID}).
		Delete(&model.UserBlock{}).Error
}

// IsBlocked reports whether a has blocked b.
func (s *BlockService) IsBlocked(ctx context.Context, a, b uint) (bool, error) {
	if _, err := getUser(ctx, s.db, a); err != nil {
		return false, err
	}
	if _, err := getUser(ctx, s.db, b); err != nil {
		return false, err
	}

	var count int64
	err := s.db.WithContext(ctx).Model(&model.UserBlock{}).
		Where(&model.UserBlock{BlockerID: a, BlockedID: b}).
		Count(&count).Error
	return count > 0, err
}

// BlockedEither reports whether either party has blocked the other. Every
// interaction-initiating path checks this.
func (s *BlockService) BlockedEither(ctx context.Context, a, b uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.UserBlock{}).
		Where("(blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?)", a, b, b, a).
		Count(&count).Error
	return count > 0, err
}

// List returns the ids of users blocked by blockerID.
func (s *BlockService) List(ctx context.Context, blockerID uint) ([]uint, error) {
	if _, err := getUser(ctx, s.db, blockerID); err != nil {
		return nil, err
	}
	var edges []model.UserBlock
	if err := s.db.WithContext(ctx).
		Where(&model.UserBlock{BlockerID: blockerID}).
		Order("id asc").
		Find(&edges).Error; err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(edges))
	for _, edge := range edges {
		ids = append(ids, edge.BlockedID)
	}
	return ids, nil
}
