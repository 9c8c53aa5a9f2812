package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"warbler/internal/model"
)

type stubMessageStore struct {
	seq  uint
	byID map[uint]model.Message
}

func newStubMessageStore() *stubMessageStore {
	return &stubMessageStore{byID: map[uint]model.Message{}}
}

func (s *stubMessageStore) Create(message *model.Message) error {
	s.seq++
	message.ID = s.seq
	s.byID[message.ID] = *message
	return nil
}

func (s *stubMessageStore) GetByID(id uint) (*model.Message, error) {
	message, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	return &message, nil
}

func (s *stubMessageStore) ListRecent(limit int) ([]model.Message, error) {
	messages := make([]model.Message, 0, len(s.byID))
	for _, message := range s.byID {
		messages = append(messages, message)
	}
	return messages, nil
}

func (s *stubMessageStore) ListByUserID(userID uint, limit int) ([]model.Message, error) {
	var messages []model.Message
	for _, message := range s.byID {
		if message.UserID == userID {
			messages = append(messages, message)
		}
	}
	return messages, nil
}

func (s *stubMessageStore) DeleteByID(id uint) error {
	delete(s.byID, id)
	return nil
}

type stubUserStore struct {
	seq  uint
	byID map[uint]model.User
}

func newStubUserStore() *stubUserStore {
	return &stubUserStore{byID: map[uint]model.User{}}
}

func (s *stubUserStore) Create(user *model.User) error {
	s.seq++
	user.ID = s.seq
	s.byID[user.ID] = *user
	return nil
}

func (s *stubUserStore) GetByID(id uint) (*model.User, error) {
	user, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

func (s *stubUserStore) GetByUsername(username string) (*model.User, error) {
	for _, user := range s.byID {
		if user.Username == username {
			u := user
			return &u, nil
		}
	}
	return nil, nil
}

func (s *stubUserStore) GetByEmail(email string) (*model.User, error) {
	for _, user := range s.byID {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, nil
}

type stubEventPublisher struct {
	published []model.MessageEvent
	fail      bool
}

func (s *stubEventPublisher) Publish(ctx context.Context, evt model.MessageEvent) error {
	if s.fail {
		return errors.New("broker down")
	}
	s.published = append(s.published, evt)
	return nil
}

type stubTimelineCache struct {
	cached      []model.Message
	hit         bool
	dirty       bool
	invalidated int
	stored      [][]model.Message
}

func (s *stubTimelineCache) GetRecent(ctx context.Context) ([]model.Message, bool, error) {
	return s.cached, s.hit, nil
}

func (s *stubTimelineCache) SetRecent(ctx context.Context, messages []model.Message) error {
	s.stored = append(s.stored, messages)
	return nil
}

func (s *stubTimelineCache) Invalidate(ctx context.Context) error {
	s.invalidated++
	return nil
}

func (s *stubTimelineCache) MarkDirty(ctx context.Context) error {
	s.dirty = true
	return nil
}

func (s *stubTimelineCache) IsDirty(ctx context.Context) (bool, error) {
	return s.dirty, nil
}

func seedUser(t *testing.T, users *stubUserStore, username string) *model.User {
	t.Helper()
	user := &model.User{Username: username, Email: username + "@test.com", PasswordHash: "x"}
	if err := users.Create(user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func seedMessage(t *testing.T, messages *stubMessageStore, userID uint, text string) *model.Message {
	t.Helper()
	message := &model.Message{Text: text, UserID: userID, CreatedAt: time.Now()}
	if err := messages.Create(message); err != nil {
		t.Fatalf("seed message: %v", err)
	}
	return message
}

func TestPost_RequiresAuthentication(t *testing.T) {
	messages := newStubMessageStore()
	svc := NewMessageService(messages, newStubUserStore(), nil, nil, zerolog.Nop())

	_, err := svc.Post(context.Background(), nil, "Hello")

	if !errors.Is(err, ErrAuthenticationRequired) {
		t.Fatalf("expected ErrAuthenticationRequired, got %v", err)
	}
	if len(messages.byID) != 0 {
		t.Fatalf("anonymous post must not create a row, store has %d", len(messages.byID))
	}
}

func TestPost_StoresOwnerAndTrimsText(t *testing.T) {
	users := newStubUserStore()
	messages := newStubMessageStore()
	publisher := &stubEventPublisher{}
	timeline := &stubTimelineCache{}
	svc := NewMessageService(messages, users, publisher, timeline, zerolog.Nop())
	user := seedUser(t, users, "testuser1")

	message, err := svc.Post(context.Background(), &Identity{UserID: user.ID, Username: user.Username}, "  Hello  ")
	if err != nil {
		t.Fatalf("post failed: %v", err)
	}

	if message.Text != "Hello" {
		t.Fatalf("expected trimmed text, got %q", message.Text)
	}
	if message.UserID != user.ID {
		t.Fatalf("expected owner %d, got %d", user.ID, message.UserID)
	}
	if message.CreatedAt.IsZero() {
		t.Fatalf("expected timestamp to be set")
	}
	if len(publisher.published) != 1 || publisher.published[0].Action != model.EventMessageCreated {
		t.Fatalf("expected one created event, got %+v", publisher.published)
	}
	if timeline.invalidated != 1 {
		t.Fatalf("expected timeline invalidation, got %d", timeline.invalidated)
	}
}

func TestPost_RejectsInvalidText(t *testing.T) {
	users := newStubUserStore()
	messages := newStubMessageStore()
	svc := NewMessageService(messages, users, nil, nil, zerolog.Nop())
	user := seedUser(t, users, "testuser1")
	actor := &Identity{UserID: user.ID}

	for _, text := range []string{"", "   ", strings.Repeat("x", 141)} {
		if _, err := svc.Post(context.Background(), actor, text); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("text %q: expected ErrInvalidInput, got %v", text, err)
		}
	}
	if len(messages.byID) != 0 {
		t.Fatalf("invalid posts must not create rows")
	}
}

func TestPost_SucceedsWhenEventPublishFails(t *testing.T) {
	users := newStubUserStore()
	messages := newStubMessageStore()
	svc := NewMessageService(messages, users, &stubEventPublisher{fail: true}, nil, zerolog.Nop())
	user := seedUser(t, users, "testuser1")

	message, err := svc.Post(context.Background(), &Identity{UserID: user.ID}, "Hello")
	if err != nil {
		t.Fatalf("post must not fail on audit publish error: %v", err)
	}
	if _, ok := messages.byID[message.ID]; !ok {
		t.Fatalf("message row missing")
	}
}

func TestGet_IsPublicAndIncludesOwner(t *testing.T) {
	users := newStubUserStore()
	messages := newStubMessageStore()
	svc := NewMessageService(messages, users, nil, nil, zerolog.Nop())
	user := seedUser(t, users, "testuser2")
	message := seedMessage(t, messages, user.ID, "Test Message 2")

	view, err := svc.Get(message.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if view.Message.Text != "Test Message 2" {
		t.Fatalf("unexpected text %q", view.Message.Text)
	}
	if view.OwnerUsername != "testuser2" {
		t.Fatalf("unexpected owner %q", view.OwnerUsername)
	}
}

func TestGet_UnknownID(t *testing.T) {
	svc := NewMessageService(newStubMessageStore(), newStubUserStore(), nil, nil, zerolog.Nop())

	if _, err := svc.Get(99); !errors.Is(err, ErrMessageNotFound) {
		t.Fatalf("expected ErrMessageNotFound, got %v", err)
	}
}

func TestDelete_OwnerRemovesRow(t *testing.T) {
	users := newStubUserStore()
	messages := newStubMessageStore()
	publisher := &stubEventPublisher{}
	svc := NewMessageService(messages, users, publisher, nil, zerolog.Nop())
	user := seedUser(t, users, "testuser1")
	message := seedMessage(t, messages, user.ID, "Test Message 1")

	if err := svc.Delete(context.Background(), &Identity{UserID: user.ID}, message.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if _, ok := messages.byID[message.ID]; ok {
		t.Fatalf("row still present after owner delete")
	}
	if len(publisher.published) != 1 || publisher.published[0].Action != model.EventMessageDeleted {
		t.Fatalf("expected one deleted event, got %+v", publisher.published)
	}
}

func TestDelete_NonOwnerLeavesRow(t *testing.T) {
	users := newStubUserStore()
	messages := newStubMessageStore()
	svc := NewMessageService(messages, users, nil, nil, zerolog.Nop())
	owner := seedUser(t, users, "testuser2")
	intruder := seedUser(t, users, "testuser1")
	message := seedMessage(t, messages, owner.ID, "Test Message 2")

	err := svc.Delete(context.Background(), &Identity{UserID: intruder.ID}, message.ID)

	if !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if _, ok := messages.byID[message.ID]; !ok {
		t.Fatalf("denied delete must leave the row intact")
	}
	if view, err := svc.Get(message.ID); err != nil || view.Message.Text != "Test Message 2" {
		t.Fatalf("message must stay readable after denied delete: %v", err)
	}
}

func TestDelete_AnonymousRejected(t *testing.T) {
	users := newStubUserStore()
	messages := newStubMessageStore()
	svc := NewMessageService(messages, users, nil, nil, zerolog.Nop())
	owner := seedUser(t, users, "testuser1")
	message := seedMessage(t, messages, owner.ID, "Test Message 1")

	if err := svc.Delete(context.Background(), nil, message.ID); !errors.Is(err, ErrAuthenticationRequired) {
		t.Fatalf("expected ErrAuthenticationRequired, got %v", err)
	}
	if _, ok := messages.byID[message.ID]; !ok {
		t.Fatalf("anonymous delete must leave the row intact")
	}
}

func TestDelete_UnknownID(t *testing.T) {
	users := newStubUserStore()
	svc := NewMessageService(newStubMessageStore(), users, nil, nil, zerolog.Nop())
	user := seedUser(t, users, "testuser1")

	if err := svc.Delete(context.Background(), &Identity{UserID: user.ID}, 42); !errors.Is(err, ErrMessageNotFound) {
		t.Fatalf("expected ErrMessageNotFound, got %v", err)
	}
}

func TestRecent_ServedFromCleanCache(t *testing.T) {
	messages := newStubMessageStore()
	timeline := &stubTimelineCache{
		cached: []model.Message{{ID: 7, Text: "cached", UserID: 1}},
		hit:    true,
	}
	svc := NewMessageService(messages, newStubUserStore(), nil, timeline, zerolog.Nop())

	got, err := svc.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("recent failed: %v", err)
	}
	if len(got) != 1 || got[0].Text != "cached" {
		t.Fatalf("expected cached timeline, got %+v", got)
	}
}

func TestRecent_DirtyCacheFallsBackToStore(t *testing.T) {
	users := newStubUserStore()
	messages := newStubMessageStore()
	user := seedUser(t, users, "testuser1")
	seedMessage(t, messages, user.ID, "fresh")
	timeline := &stubTimelineCache{
		cached: []model.Message{{ID: 7, Text: "stale"}},
		hit:    true,
		dirty:  true,
	}
	svc := NewMessageService(messages, users, nil, timeline, zerolog.Nop())

	got, err := svc.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("recent failed: %v", err)
	}
	if len(got) != 1 || got[0].Text != "fresh" {
		t.Fatalf("expected store timeline while dirty, got %+v", got)
	}
	if len(timeline.stored) != 0 {
		t.Fatalf("dirty timeline must not be re-cached")
	}
}
