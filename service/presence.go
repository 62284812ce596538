package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"securechat-service/metrics"
	"securechat-service/model"

	"gorm.io/gorm"
)

// PresenceSnapshot is broadcast on every presence transition.
type PresenceSnapshot struct {
	ID       uint       `json:"id"`
	Username string     `json:"username"`
	Online   bool       `json:"online"`
	LastSeen *time.Time `json:"lastSeen"`
}

// PresenceService tracks who is reachable right now. Transitions are
// last-writer-wins per user; the data is UX-only and delivery never
// depends on it.
type PresenceService struct {
	db        *gorm.DB
	cache     PresenceCache
	transport Transport
}

func NewPresenceService(db *gorm.DB, cache PresenceCache, transport Transport) *PresenceService {
	return &PresenceService{db: db, cache: cache, transport: transport}
}

// Resolve maps an id-or-username key to the user record. Numeric ids are
// tried first, username is the fallback.
func (s *PresenceService) Resolve(ctx context.Context, key string) (*model.User, error) {
	if id, err := strconv.ParseUint(key, 10, 64); err == nil {
		user := new(model.User)
		err := s.db.WithContext(ctx).First(user, uint(id)).Error
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	user := new(model.User)
	err := s.db.WithContext(ctx).Where(&model.User{Username: key}).First(user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %q: %w", key, model.ErrNotFound)
		}
		return nil, err
	}
	return user, nil
}

// Connect marks the user online. LastSeen is deliberately left untouched;
// it only moves on the transition to offline.
func (s *PresenceService) Connect(ctx context.Context, key string) error {
	return s.setOnline(ctx, key)
}

// Heartbeat is an idempotent online transition.
func (s *PresenceService) Heartbeat(ctx context.Context, key string) error {
	return s.setOnline(ctx, key)
}

func (s *PresenceService) setOnline(ctx context.Context, key string) error {
	user, err := s.Resolve(ctx, key)
	if err != nil {
		return err
	}
	if user.Online {
		// Already online, nothing transitions.
		return nil
	}

	if err := s.db.WithContext(ctx).Model(user).Update("online", true).Error; err != nil {
		return err
	}
	user.Online = true
	s.afterTransition(ctx, user)
	return nil
}

// Disconnect marks the user offline and stamps LastSeen.
func (s *PresenceService) Disconnect(ctx context.Context, key string) error {
	user, err := s.Resolve(ctx, key)
	if err != nil {
		return err
	}
	if !user.Online {
		return nil
	}

	now := time.Now()
	err = s.db.WithContext(ctx).Model(user).
		Updates(map[string]any{"online": false, "last_seen": now}).Error
	if err != nil {
		return err
	}
	user.Online = false
	user.LastSeen = &now
	s.afterTransition(ctx, user)
	return nil
}

// Get returns the current presence snapshot. The cache answers the online
// flag when it can; the user record is the source for the rest.
func (s *PresenceService) Get(ctx context.Context, key string) (*PresenceSnapshot, error) {
	user, err := s.Resolve(ctx, key)
	if err != nil {
		return nil, err
	}
	online := user.Online
	if cached, ok, err := s.cache.Get(ctx, user.ID); err == nil && ok {
		online = cached
	}
	return &PresenceSnapshot{
		ID:       user.ID,
		Username: user.Username,
		Online:   online,
		LastSeen: user.LastSeen,
	}, nil
}

func (s *PresenceService) afterTransition(ctx context.Context, user *model.User) {
	state := "offline"
	if user.Online {
		state = "online"
	}
	metrics.PresenceTransitions.WithLabelValues(state).Inc()

	if err := s.cache.Set(ctx, user.ID, user.Online); err != nil {
		log.Printf("presence cache update failed for user %d: %v", user.ID, err)
	}

	s.transport.Broadcast(TopicPresence, EventPresence, PresenceSnapshot{
		ID:       user.ID,
		Username: user.Username,
		Online:   user.Online,
		LastSeen: user.LastSeen,
	})
}
