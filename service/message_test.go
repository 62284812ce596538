package service

import (
	"context"
	"errors"
	"testing"

	"securechat-service/model"
	"securechat-service/utils"
)

func TestMessageSendDeliversTaggedCopies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	message, err := f.messages.Send(ctx, alice.ID, bob.ID, testEnvelope("hi"), false, "local-42")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if message.Read {
		t.Error("new message must be unread")
	}

	incoming := f.transport.events(utils.FormatID(bob.ID), EventIncomingMessage)
	if len(incoming) != 1 {
		t.Fatalf("expected 1 incoming event, got %d", len(incoming))
	}
	sent := f.transport.events(utils.FormatID(alice.ID), EventSentMessage)
	if len(sent) != 1 {
		t.Fatalf("expected 1 sent event, got %d", len(sent))
	}

	echo := sent[0].Payload.(model.ChatMessage)
	if echo.LocalID != "local-42" {
		t.Errorf("sent echo must carry the correlation id, got %q", echo.LocalID)
	}
	theirs := incoming[0].Payload.(model.ChatMessage)
	if theirs.LocalID != "" {
		t.Errorf("incoming copy must not leak the correlation id, got %q", theirs.LocalID)
	}
}

func TestMessageSendBlockedEitherDirection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	f.blocks.Block(ctx, alice.ID, bob.ID)

	if _, err := f.messages.Send(ctx, alice.ID, bob.ID, testEnvelope("x"), false, ""); !errors.Is(err, model.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
	if _, err := f.messages.Send(ctx, bob.ID, alice.ID, testEnvelope("x"), false, ""); !errors.Is(err, model.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
}

func TestConversationOrderAndReadNormalization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	first, _ := f.messages.Send(ctx, alice.ID, bob.ID, testEnvelope("1"), false, "")
	second, _ := f.messages.Send(ctx, bob.ID, alice.ID, testEnvelope("2"), false, "")

	// Simulate legacy rows where only the timestamp was written.
	now := first.CreatedAt
	f.db.Model(&model.ChatMessage{}).Where("id = ?", first.ID).
		Update("read_timestamp", now)

	messages, err := f.messages.Conversation(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("conversation failed: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].ID != first.ID || messages[1].ID != second.ID {
		t.Errorf("expected storage order, got %d then %d", messages[0].ID, messages[1].ID)
	}
	if !messages[0].Read {
		t.Error("a set read timestamp must read as read")
	}
}

func TestSummaries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	carol := f.user(t, "carol")

	f.messages.Send(ctx, bob.ID, alice.ID, testEnvelope("b1"), false, "")
	f.messages.Send(ctx, bob.ID, alice.ID, testEnvelope("b2"), false, "")
	f.messages.Send(ctx, alice.ID, bob.ID, testEnvelope("b3"), false, "")
	last, _ := f.messages.Send(ctx, carol.ID, alice.ID, testEnvelope("c1"), false, "")

	summaries, err := f.messages.Summaries(ctx, alice.ID)
	if err != nil {
		t.Fatalf("summaries failed: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}

	// Most recent conversation first.
	if summaries[0].PartnerID != carol.ID || summaries[0].PartnerUsername != "carol" {
		t.Errorf("unexpected first summary: %+v", summaries[0])
	}
	if summaries[0].LastMessage.ID != last.ID || summaries[0].UnreadCount != 1 {
		t.Errorf("unexpected carol summary: %+v", summaries[0])
	}

	bobSummary := summaries[1]
	if bobSummary.PartnerID != bob.ID {
		t.Fatalf("unexpected second summary: %+v", bobSummary)
	}
	// b3 is the latest message with bob; two of bob's messages are unread.
	if bobSummary.LastMessage.SenderID != alice.ID {
		t.Errorf("expected alice's message as latest, got sender %d", bobSummary.LastMessage.SenderID)
	}
	if bobSummary.UnreadCount != 2 {
		t.Errorf("expected 2 unread from bob, got %d", bobSummary.UnreadCount)
	}
}

func TestMarkReadGroupsReceiptsBySender(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	carol := f.user(t, "carol")

	m1, _ := f.messages.Send(ctx, bob.ID, alice.ID, testEnvelope("b"), false, "")
	m2, _ := f.messages.Send(ctx, carol.ID, alice.ID, testEnvelope("c"), false, "")
	f.transport.reset()

	if err := f.messages.MarkRead(ctx, alice.ID, []uint{m1.ID, m2.ID}); err != nil {
		t.Fatalf("markRead failed: %v", err)
	}

	bobReceipts := f.transport.events(utils.FormatID(bob.ID), EventReadReceipt)
	carolReceipts := f.transport.events(utils.FormatID(carol.ID), EventReadReceipt)
	if len(bobReceipts) != 1 || len(carolReceipts) != 1 {
		t.Fatalf("expected one receipt per sender, got %d and %d", len(bobReceipts), len(carolReceipts))
	}

	receipt := bobReceipts[0].Payload.(ReadReceipt)
	if receipt.ReaderID != alice.ID || len(receipt.MessageIDs) != 1 || receipt.MessageIDs[0] != m1.ID {
		t.Errorf("bob's receipt must only carry bob's ids: %+v", receipt)
	}
}

func TestMarkReadIgnoresForeignAndReadMessages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	mine, _ := f.messages.Send(ctx, alice.ID, bob.ID, testEnvelope("out"), false, "")
	theirs, _ := f.messages.Send(ctx, bob.ID, alice.ID, testEnvelope("in"), false, "")
	f.messages.MarkRead(ctx, alice.ID, []uint{theirs.ID})
	f.transport.reset()

	// Own outgoing message and an already-read message: nothing matches,
	// which is a silent success.
	if err := f.messages.MarkRead(ctx, alice.ID, []uint{mine.ID, theirs.ID}); err != nil {
		t.Errorf("no-op markRead must succeed, got %v", err)
	}
	if len(f.transport.pushed) != 0 {
		t.Errorf("no receipts expected, got %d", len(f.transport.pushed))
	}

	var got model.ChatMessage
	f.db.First(&got, mine.ID)
	if got.Read {
		t.Error("sender-side copy must not be markable by the sender")
	}

	if err := f.messages.MarkRead(ctx, alice.ID, nil); !errors.Is(err, model.ErrBadRequest) {
		t.Errorf("empty id list must be ErrBadRequest, got %v", err)
	}
}

func TestOneTimeMessagePurgedAfterRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	message, _ := f.messages.Send(ctx, alice.ID, bob.ID, testEnvelope("secret"), true, "")

	// Visible before the read.
	before, _ := f.messages.Conversation(ctx, bob.ID, alice.ID)
	if len(before) != 1 {
		t.Fatalf("expected 1 message before read, got %d", len(before))
	}

	if err := f.messages.MarkRead(ctx, bob.ID, []uint{message.ID}); err != nil {
		t.Fatalf("markRead failed: %v", err)
	}

	after, _ := f.messages.Conversation(ctx, bob.ID, alice.ID)
	if len(after) != 0 {
		t.Errorf("one-time message must be gone after read, got %d", len(after))
	}

	// Hard delete, not a soft delete.
	var count int64
	f.db.Unscoped().Model(&model.ChatMessage{}).Where("id = ?", message.ID).Count(&count)
	if count != 0 {
		t.Error("one-time message must be hard-deleted")
	}

	// The sender still gets the receipt and the purge is audited.
	if got := f.transport.events(utils.FormatID(alice.ID), EventReadReceipt); len(got) != 1 {
		t.Errorf("expected 1 receipt, got %d", len(got))
	}
	if got := f.audit.count("one_time_messages_purged"); got != 1 {
		t.Errorf("expected 1 purge audit event, got %d", got)
	}
}

func TestDeleteConversation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	carol := f.user(t, "carol")

	f.messages.Send(ctx, alice.ID, bob.ID, testEnvelope("1"), false, "")
	f.messages.Send(ctx, bob.ID, alice.ID, testEnvelope("2"), false, "")
	kept, _ := f.messages.Send(ctx, alice.ID, carol.ID, testEnvelope("3"), false, "")

	// Either party may delete; bob deletes here.
	if err := f.messages.DeleteConversation(ctx, bob.ID, alice.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	messages, _ := f.messages.Conversation(ctx, alice.ID, bob.ID)
	if len(messages) != 0 {
		t.Errorf("expected empty conversation, got %d messages", len(messages))
	}

	// The other conversation survives.
	others, _ := f.messages.Conversation(ctx, alice.ID, carol.ID)
	if len(others) != 1 || others[0].ID != kept.ID {
		t.Errorf("unrelated conversation must survive: %+v", others)
	}

	if err := f.messages.DeleteConversation(ctx, bob.ID, alice.ID); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("deleting an empty conversation must be ErrNotFound, got %v", err)
	}
	if err := f.messages.DeleteConversation(ctx, bob.ID, 0); !errors.Is(err, model.ErrBadRequest) {
		t.Errorf("malformed partner id must be ErrBadRequest, got %v", err)
	}
}
