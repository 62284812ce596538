package service

import (
	"context"
	"errors"
	"testing"

	"securechat-service/model"
)

func TestGroupCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	carol := f.user(t, "carol")

	group, err := f.groups.Create(ctx, "weekend-plans", []uint{alice.ID, bob.ID, carol.ID})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if len(group.Participants) != 3 {
		t.Errorf("expected 3 participants, got %d", len(group.Participants))
	}
	if got := f.audit.count("group_participant_added"); got != 3 {
		t.Errorf("expected one audit event per participant, got %d", got)
	}
}

func TestGroupCreateUnknownParticipantFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")

	_, err := f.groups.Create(ctx, "ghosts", []uint{alice.ID, 9999})
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	// Nothing was persisted.
	var count int64
	f.db.Model(&model.GroupChat{}).Count(&count)
	if count != 0 {
		t.Errorf("expected no group persisted, got %d", count)
	}
}

func TestGroupCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")

	if _, err := f.groups.Create(ctx, "", []uint{alice.ID}); !errors.Is(err, model.ErrBadRequest) {
		t.Errorf("expected ErrBadRequest for empty name, got %v", err)
	}
	if _, err := f.groups.Create(ctx, "empty", nil); !errors.Is(err, model.ErrBadRequest) {
		t.Errorf("expected ErrBadRequest for empty participants, got %v", err)
	}
}

func TestGroupSendBroadcastsOnTopic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	group, _ := f.groups.Create(ctx, "pair", []uint{alice.ID, bob.ID})

	message, err := f.groups.SendMessage(ctx, group.ID, alice.ID, "hello group")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if message.Sender.Username != "alice" {
		t.Errorf("expected sender preloaded, got %+v", message.Sender)
	}

	broadcasts := f.transport.events(GroupTopic(group.ID), EventGroupMessage)
	if len(broadcasts) != 1 {
		t.Fatalf("expected 1 broadcast on the group topic, got %d", len(broadcasts))
	}
}

func TestGroupSendRequiresMembership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	mallory := f.user(t, "mallory")

	group, _ := f.groups.Create(ctx, "private", []uint{alice.ID, bob.ID})

	if _, err := f.groups.SendMessage(ctx, group.ID, mallory.ID, "let me in"); !errors.Is(err, model.ErrForbidden) {
		t.Errorf("expected ErrForbidden for non-participant, got %v", err)
	}
	if _, err := f.groups.SendMessage(ctx, 9999, alice.ID, "hello"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown group, got %v", err)
	}
}

func TestGroupHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	group, _ := f.groups.Create(ctx, "log", []uint{alice.ID, bob.ID})
	f.groups.SendMessage(ctx, group.ID, alice.ID, "one")
	f.groups.SendMessage(ctx, group.ID, bob.ID, "two")
	f.groups.SendMessage(ctx, group.ID, alice.ID, "three")

	history, err := f.groups.History(ctx, group.ID)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if history.Name != "log" {
		t.Errorf("expected group name resolved, got %q", history.Name)
	}
	if len(history.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(history.Messages))
	}
	if history.Messages[0].Content != "one" || history.Messages[2].Content != "three" {
		t.Errorf("expected ascending order, got %q ... %q", history.Messages[0].Content, history.Messages[2].Content)
	}
}

func TestGroupHistoryUnknownGroupFallsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	history, err := f.groups.History(ctx, 9999)
	if err != nil {
		t.Fatalf("history of an unknown group must not fail: %v", err)
	}
	if history.Name != "Unknown" {
		t.Errorf("expected name fallback, got %q", history.Name)
	}
	if len(history.Messages) != 0 {
		t.Errorf("expected no messages, got %d", len(history.Messages))
	}
}
