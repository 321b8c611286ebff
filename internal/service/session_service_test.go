package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/command-center/helpdesk/internal/domain"
	"github.com/command-center/helpdesk/internal/events"
	apperrors "github.com/command-center/helpdesk/pkg/util"
)

func newSessionFixture() (*SessionService, *memSessionRepo, *memChatRepo, *captureDispatcher) {
	sessions := newMemSessionRepo()
	chat := &memChatRepo{}
	dispatcher := &captureDispatcher{}
	svc := NewSessionService(SessionDependencies{
		SessionRepo: sessions,
		ChatRepo:    chat,
		Dispatcher:  dispatcher,
		Logger:      zap.NewNop(),
	})
	return svc, sessions, chat, dispatcher
}

func TestCreateSession(t *testing.T) {
	svc, _, _, dispatcher := newSessionFixture()
	ctx := context.Background()

	session, err := svc.Create(ctx, customerIdentity("c-1"), domain.SessionTypeChat, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if session.Status != domain.SessionStatusWaiting {
		t.Fatalf("new session status = %s", session.Status)
	}
	if len(dispatcher.byType(events.EventSessionCreated)) != 1 {
		t.Fatal("session_created not published")
	}

	if _, err := svc.Create(ctx, agentIdentity("a-1"), domain.SessionTypeChat, nil); !apperrors.IsCode(err, "FORBIDDEN") {
		t.Fatalf("agent create: got %v", err)
	}
	if _, err := svc.Create(ctx, customerIdentity("c-1"), domain.SessionType("hologram"), nil); !apperrors.IsCode(err, "VALIDATION_FAILED") {
		t.Fatalf("bad type: got %v", err)
	}
}

func TestJoinFirstAgentWins(t *testing.T) {
	svc, sessions, _, dispatcher := newSessionFixture()
	ctx := context.Background()

	session, _ := svc.Create(ctx, customerIdentity("c-1"), domain.SessionTypeVideo, nil)

	first, err := svc.Join(ctx, agentIdentity("a-1"), session.ID)
	if err != nil {
		t.Fatalf("first join: %v", err)
	}
	if first.Status != domain.SessionStatusActive {
		t.Fatalf("status = %s", first.Status)
	}
	if first.AgentID == nil || *first.AgentID != "a-1" {
		t.Fatalf("agent = %v", first.AgentID)
	}

	// A second agent is admitted but the recorded agent does not change.
	second, err := svc.Join(ctx, agentIdentity("a-2"), session.ID)
	if err != nil {
		t.Fatalf("second join: %v", err)
	}
	if second.AgentID == nil || *second.AgentID != "a-1" {
		t.Fatalf("agent overwritten: %v", second.AgentID)
	}

	stored, _ := sessions.GetByID(ctx, session.ID)
	if *stored.AgentID != "a-1" {
		t.Fatalf("stored agent = %s", *stored.AgentID)
	}
	if len(dispatcher.byType(events.EventSessionJoined)) != 2 {
		t.Fatal("session_joined not published per join")
	}
}

func TestJoinDeniedForCustomersAndMembers(t *testing.T) {
	svc, _, _, _ := newSessionFixture()
	ctx := context.Background()

	session, _ := svc.Create(ctx, customerIdentity("c-1"), domain.SessionTypeChat, nil)

	if _, err := svc.Join(ctx, customerIdentity("c-1"), session.ID); !apperrors.IsCode(err, "FORBIDDEN") {
		t.Fatalf("customer join: got %v", err)
	}
	member := &domain.Identity{ID: "m-1", Role: domain.RoleMember}
	if _, err := svc.Join(ctx, member, session.ID); !apperrors.IsCode(err, "FORBIDDEN") {
		t.Fatalf("member join: got %v", err)
	}
}

func TestJoinEndedSession(t *testing.T) {
	svc, _, _, _ := newSessionFixture()
	ctx := context.Background()

	session, _ := svc.Create(ctx, customerIdentity("c-1"), domain.SessionTypeChat, nil)
	if _, err := svc.End(ctx, customerIdentity("c-1"), session.ID); err != nil {
		t.Fatalf("End: %v", err)
	}

	if _, err := svc.Join(ctx, agentIdentity("a-1"), session.ID); !apperrors.IsCode(err, "INVALID_TRANSITION") {
		t.Fatalf("join after end: got %v", err)
	}
}

func TestEndStampsDurationOnce(t *testing.T) {
	svc, _, _, dispatcher := newSessionFixture()
	ctx := context.Background()

	session, _ := svc.Create(ctx, customerIdentity("c-1"), domain.SessionTypeVoice, nil)
	start := session.StartedAt

	svc.now = func() time.Time { return start.Add(90 * time.Second) }
	first, err := svc.End(ctx, customerIdentity("c-1"), session.ID)
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if first.Status != domain.SessionStatusEnded || first.EndedAt == nil {
		t.Fatalf("end not recorded: %+v", first)
	}
	if first.DurationSeconds == nil || !almostEqual(*first.DurationSeconds, 90) {
		t.Fatalf("duration = %v", first.DurationSeconds)
	}

	// Ending again later is a no-op returning the stored record.
	svc.now = func() time.Time { return start.Add(1 * time.Hour) }
	second, err := svc.End(ctx, customerIdentity("c-1"), session.ID)
	if err != nil {
		t.Fatalf("repeat End: %v", err)
	}
	if !almostEqual(*second.DurationSeconds, 90) {
		t.Fatalf("duration changed: %v", *second.DurationSeconds)
	}
	if !second.EndedAt.Equal(*first.EndedAt) {
		t.Fatalf("endedAt changed: %v vs %v", second.EndedAt, first.EndedAt)
	}
	if len(dispatcher.byType(events.EventSessionEnded)) != 1 {
		t.Fatal("session_ended should fire only on the actual transition")
	}
}

func TestEndForeignCustomer(t *testing.T) {
	svc, _, _, _ := newSessionFixture()
	ctx := context.Background()

	session, _ := svc.Create(ctx, customerIdentity("c-1"), domain.SessionTypeChat, nil)
	if _, err := svc.End(ctx, customerIdentity("c-2"), session.ID); !apperrors.IsCode(err, "FORBIDDEN") {
		t.Fatalf("foreign end: got %v", err)
	}
}

func TestListActiveScoping(t *testing.T) {
	svc, _, _, _ := newSessionFixture()
	ctx := context.Background()

	mine, _ := svc.Create(ctx, customerIdentity("c-1"), domain.SessionTypeChat, nil)
	other, _ := svc.Create(ctx, customerIdentity("c-2"), domain.SessionTypeChat, nil)
	_, _ = svc.Join(ctx, agentIdentity("a-1"), other.ID)

	ended, _ := svc.Create(ctx, customerIdentity("c-1"), domain.SessionTypeChat, nil)
	_, _ = svc.End(ctx, customerIdentity("c-1"), ended.ID)

	own, err := svc.ListActive(ctx, customerIdentity("c-1"))
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(own) != 1 || own[0].ID != mine.ID {
		t.Fatalf("customer view wrong: %+v", own)
	}

	assigned, _ := svc.ListActive(ctx, agentIdentity("a-1"))
	if len(assigned) != 1 || assigned[0].ID != other.ID {
		t.Fatalf("agent view wrong: %+v", assigned)
	}

	admin := &domain.Identity{ID: "adm", Role: domain.RoleAdmin}
	all, _ := svc.ListActive(ctx, admin)
	if len(all) != 2 {
		t.Fatalf("admin should see both live sessions, got %d", len(all))
	}
}

func TestSendChatMessage(t *testing.T) {
	svc, _, chat, dispatcher := newSessionFixture()
	ctx := context.Background()

	session, _ := svc.Create(ctx, customerIdentity("c-1"), domain.SessionTypeChat, nil)

	if err := svc.SendChatMessage(ctx, customerIdentity("c-1"), session.ID, "hello"); err != nil {
		t.Fatalf("SendChatMessage: %v", err)
	}

	history, _ := svc.ChatHistory(ctx, customerIdentity("c-1"), session.ID)
	if len(history) != 1 || history[0].Content != "hello" {
		t.Fatalf("history = %+v", history)
	}

	published := dispatcher.byType(events.EventChatMessageSent)
	if len(published) != 1 {
		t.Fatal("chat_message not published")
	}
	payload := published[0].Payload.(events.ChatMessagePayload)
	if payload.BestEffort {
		t.Fatal("persisted message should not be flagged best-effort")
	}

	// Persistence failure still broadcasts, flagged.
	chat.failAll = true
	if err := svc.SendChatMessage(ctx, customerIdentity("c-1"), session.ID, "still there?"); err != nil {
		t.Fatalf("best-effort send: %v", err)
	}
	published = dispatcher.byType(events.EventChatMessageSent)
	if len(published) != 2 {
		t.Fatal("failed persistence must not suppress the broadcast")
	}
	if !published[1].Payload.(events.ChatMessagePayload).BestEffort {
		t.Fatal("broadcast after failed persistence must carry the best-effort flag")
	}
}

func TestConcurrentChatSendsKeepCommitOrder(t *testing.T) {
	svc, _, chat, dispatcher := newSessionFixture()
	ctx := context.Background()

	session, _ := svc.Create(ctx, customerIdentity("c-1"), domain.SessionTypeChat, nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = svc.SendChatMessage(ctx, customerIdentity("c-1"), session.ID, fmt.Sprintf("line-%d", n))
		}(i)
	}
	wg.Wait()

	history, _ := chat.ListBySession(ctx, session.ID)
	published := dispatcher.byType(events.EventChatMessageSent)
	if len(history) != 20 || len(published) != 20 {
		t.Fatalf("persisted %d, published %d, want 20 each", len(history), len(published))
	}
	// Room delivery order must match commit order message by message.
	for i := range history {
		msg := published[i].Payload.(events.ChatMessagePayload).Message
		if msg.Content != history[i].Content {
			t.Fatalf("position %d: published %q, persisted %q", i, msg.Content, history[i].Content)
		}
	}
}

func TestSendChatMessageEndedSession(t *testing.T) {
	svc, _, _, _ := newSessionFixture()
	ctx := context.Background()

	session, _ := svc.Create(ctx, customerIdentity("c-1"), domain.SessionTypeChat, nil)
	_, _ = svc.End(ctx, customerIdentity("c-1"), session.ID)

	if err := svc.SendChatMessage(ctx, customerIdentity("c-1"), session.ID, "too late"); !apperrors.IsCode(err, "INVALID_TRANSITION") {
		t.Fatalf("chat after end: got %v", err)
	}
}
