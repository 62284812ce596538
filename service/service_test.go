package service

import (
	"context"
	"sync"
	"testing"

	"securechat-service/model"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type pushedEvent struct {
	Room    string
	Event   string
	Payload any
}

type fakeTransport struct {
	mu     sync.Mutex
	pushed []pushedEvent
}

func (t *fakeTransport) Emit(room string, event string, payload any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pushed = append(t.pushed, pushedEvent{Room: room, Event: event, Payload: payload})
}

func (t *fakeTransport) Broadcast(topic string, event string, payload any) {
	t.Emit(topic, event, payload)
}

func (t *fakeTransport) events(room string, event string) []pushedEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []pushedEvent
	for _, e := range t.pushed {
		if e.Room == room && e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

func (t *fakeTransport) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pushed = nil
}

type auditEvent struct {
	Action  string
	Payload any
}

type fakeAudit struct {
	mu     sync.Mutex
	events []auditEvent
}

func (a *fakeAudit) Notify(action string, payload any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, auditEvent{Action: action, Payload: payload})
}

func (a *fakeAudit) count(action string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, e := range a.events {
		if e.Action == action {
			n++
		}
	}
	return n
}

type memPresence struct {
	mu    sync.Mutex
	state map[uint]bool
}

func newMemPresence() *memPresence {
	return &memPresence{state: make(map[uint]bool)}
}

func (p *memPresence) Get(ctx context.Context, id uint) (bool, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	online, ok := p.state[id]
	return online, ok, nil
}

func (p *memPresence) Set(ctx context.Context, id uint, online bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state[id] = online
	return nil
}

func (p *memPresence) Delete(ctx context.Context, id uint) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.state, id)
	return nil
}

type fixture struct {
	db        *gorm.DB
	transport *fakeTransport
	audit     *fakeAudit
	cache     *memPresence

	blocks   *BlockService
	presence *PresenceService
	requests *ChatRequestService
	messages *MessageService
	groups   *GroupService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get database handle: %v", err)
	}
	// A single connection so every goroutine sees the same in-memory db.
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&model.User{},
		&model.UserBlock{},
		&model.ChatRequest{},
		&model.ChatMessage{},
		&model.GroupChat{},
		&model.GroupChatMessage{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	f := &fixture{
		db:        db,
		transport: &fakeTransport{},
		audit:     &fakeAudit{},
		cache:     newMemPresence(),
	}
	f.blocks = NewBlockService(db, f.audit)
	f.presence = NewPresenceService(db, f.cache, f.transport)
	f.requests = NewChatRequestService(db, f.blocks, f.transport, f.audit)
	f.messages = NewMessageService(db, f.blocks, f.transport, f.audit)
	f.groups = NewGroupService(db, f.transport, f.audit)

	t.Cleanup(func() { sqlDB.Close() })
	return f
}

func (f *fixture) user(t *testing.T, username string) *model.User {
	t.Helper()
	user := model.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "hashed-secret",
		Role:     "user",
	}
	if err := f.db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user %s: %v", username, err)
	}
	return &user
}

func testEnvelope(tag string) model.Envelope {
	return model.Envelope{
		Ciphertext:          "ct-" + tag,
		SenderKey:           "sk-" + tag,
		RecipientKey:        "rk-" + tag,
		IV:                  "iv-" + tag,
		SenderKeyVersion:    "v1",
		RecipientKeyVersion: "v1",
	}
}
