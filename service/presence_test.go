package service

import (
	"context"
	"errors"
	"testing"

	"securechat-service/model"
	"securechat-service/utils"
)

func TestPresenceConnectDisconnect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	key := utils.FormatID(alice.ID)

	if err := f.presence.Connect(ctx, key); err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	snapshot, err := f.presence.Get(ctx, key)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !snapshot.Online {
		t.Error("expected user online after connect")
	}
	if snapshot.LastSeen != nil {
		t.Error("lastSeen must not be stamped on the online transition")
	}

	if err := f.presence.Disconnect(ctx, key); err != nil {
		t.Fatalf("disconnect failed: %v", err)
	}

	snapshot, _ = f.presence.Get(ctx, key)
	if snapshot.Online {
		t.Error("expected user offline after disconnect")
	}
	if snapshot.LastSeen == nil {
		t.Error("expected lastSeen stamped on the offline transition")
	}
}

func TestPresenceHeartbeatDoesNotTouchLastSeen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	key := utils.FormatID(alice.ID)

	f.presence.Connect(ctx, key)
	f.presence.Disconnect(ctx, key)

	before, _ := f.presence.Get(ctx, key)
	if before.LastSeen == nil {
		t.Fatal("expected lastSeen after disconnect")
	}

	f.presence.Heartbeat(ctx, key)
	f.presence.Heartbeat(ctx, key)

	after, _ := f.presence.Get(ctx, key)
	if !after.Online {
		t.Error("expected heartbeat to bring the user online")
	}
	if after.LastSeen == nil || !after.LastSeen.Equal(*before.LastSeen) {
		t.Errorf("heartbeat must not move lastSeen: before %v, after %v", before.LastSeen, after.LastSeen)
	}
}

func TestPresenceTransitionsBroadcast(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	key := utils.FormatID(alice.ID)

	f.presence.Connect(ctx, key)
	f.presence.Heartbeat(ctx, key) // no transition, no broadcast
	f.presence.Disconnect(ctx, key)

	events := f.transport.events(TopicPresence, EventPresence)
	if len(events) != 2 {
		t.Fatalf("expected 2 presence broadcasts, got %d", len(events))
	}

	first := events[0].Payload.(PresenceSnapshot)
	if !first.Online || first.Username != "alice" {
		t.Errorf("unexpected first snapshot: %+v", first)
	}
	second := events[1].Payload.(PresenceSnapshot)
	if second.Online || second.LastSeen == nil {
		t.Errorf("unexpected second snapshot: %+v", second)
	}
}

func TestPresenceDualLookup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")

	byID, err := f.presence.Resolve(ctx, utils.FormatID(alice.ID))
	if err != nil || byID.ID != alice.ID {
		t.Errorf("resolve by id failed: %v", err)
	}

	byName, err := f.presence.Resolve(ctx, "alice")
	if err != nil || byName.ID != alice.ID {
		t.Errorf("resolve by username failed: %v", err)
	}

	// A fully numeric username still resolves through the fallback.
	numeric := f.user(t, "12345")
	byNumericName, err := f.presence.Resolve(ctx, "12345")
	if err != nil || byNumericName.ID != numeric.ID {
		t.Errorf("resolve of numeric username failed: %v", err)
	}

	_, err = f.presence.Resolve(ctx, "nobody")
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPresenceCacheFollowsTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	key := utils.FormatID(alice.ID)

	f.presence.Connect(ctx, key)
	if online, ok, _ := f.cache.Get(ctx, alice.ID); !ok || !online {
		t.Error("expected cache to record the online state")
	}

	f.presence.Disconnect(ctx, key)
	if online, ok, _ := f.cache.Get(ctx, alice.ID); !ok || online {
		t.Error("expected cache to record the offline state")
	}
}
