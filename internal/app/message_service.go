package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"warbler/internal/metrics"
	"warbler/internal/model"
)

var (
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrNotOwner               = errors.New("not the message owner")
	ErrMessageNotFound        = errors.New("message not found")
)

const maxMessageLen = 140

type MessageStore interface {
	Create(message *model.Message) error
	GetByID(id uint) (*model.Message, error)
	ListRecent(limit int) ([]model.Message, error)
	ListByUserID(userID uint, limit int) ([]model.Message, error)
	DeleteByID(id uint) error
}

type EventPublisher interface {
	Publish(ctx context.Context, evt model.MessageEvent) error
}

type TimelineCache interface {
	GetRecent(ctx context.Context) ([]model.Message, bool, error)
	SetRecent(ctx context.Context, messages []model.Message) error
	Invalidate(ctx context.Context) error
	MarkDirty(ctx context.Context) error
	IsDirty(ctx context.Context) (bool, error)
}

// MessageService owns the message lifecycle and its authorization gate:
// anyone may read a message, only an authenticated caller may post one, and
// only the owner may delete one. Denied attempts leave stored state untouched.
type MessageService struct {
	messages MessageStore
	users    UserStore
	events   EventPublisher
	timeline TimelineCache
	log      zerolog.Logger
}

// MessageView is a message joined with its owner's username for display.
type MessageView struct {
	Message       model.Message
	OwnerUsername string
}

func NewMessageService(
	messages MessageStore,
	users UserStore,
	events EventPublisher,
	timeline TimelineCache,
	log zerolog.Logger,
) *MessageService {
	return &MessageService{
		messages: messages,
		users:    users,
		events:   events,
		timeline: timeline,
		log:      log,
	}
}

// Post creates a message owned by the actor. An anonymous actor is rejected
// before anything is written.
func (s *MessageService) Post(ctx context.Context, actor *Identity, text string) (*model.Message, error) {
	if actor == nil {
		metrics.UnauthorizedTotal.WithLabelValues("create", "unauthenticated").Inc()
		return nil, ErrAuthenticationRequired
	}

	text = strings.TrimSpace(text)
	if text == "" || utf8.RuneCountInString(text) > maxMessageLen {
		return nil, ErrInvalidInput
	}

	message := &model.Message{
		Text:      text,
		UserID:    actor.UserID,
		CreatedAt: time.Now(),
	}
	if err := s.messages.Create(message); err != nil {
		return nil, err
	}

	s.invalidateTimeline(ctx)
	s.publishEvent(ctx, model.EventMessageCreated, message)
	metrics.MessagesCreatedTotal.Inc()
	return message, nil
}

// Get returns a message with its owner's username. Reads are public: no
// actor is required.
func (s *MessageService) Get(id uint) (*MessageView, error) {
	if id == 0 {
		return nil, ErrMessageNotFound
	}

	message, err := s.messages.GetByID(id)
	if err != nil {
		return nil, err
	}
	if message == nil {
		return nil, ErrMessageNotFound
	}

	owner, err := s.users.GetByID(message.UserID)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		// Owner rows are never deleted ahead of their messages.
		return nil, fmt.Errorf("message %d owner %d missing", message.ID, message.UserID)
	}

	return &MessageView{
		Message:       *message,
		OwnerUsername: owner.Username,
	}, nil
}

// Delete removes a message if and only if the actor owns it. A denied
// attempt is a no-op: the row stays readable afterwards.
func (s *MessageService) Delete(ctx context.Context, actor *Identity, id uint) error {
	if actor == nil {
		metrics.UnauthorizedTotal.WithLabelValues("delete", "unauthenticated").Inc()
		return ErrAuthenticationRequired
	}

	message, err := s.messages.GetByID(id)
	if err != nil {
		return err
	}
	if message == nil {
		return ErrMessageNotFound
	}
	if message.UserID != actor.UserID {
		metrics.UnauthorizedTotal.WithLabelValues("delete", "not_owner").Inc()
		return ErrNotOwner
	}

	if err := s.messages.DeleteByID(id); err != nil {
		return err
	}

	s.invalidateTimeline(ctx)
	s.publishEvent(ctx, model.EventMessageDeleted, message)
	metrics.MessagesDeletedTotal.Inc()
	return nil
}

// Recent returns the newest messages, served from the timeline cache when it
// is populated and clean.
func (s *MessageService) Recent(ctx context.Context, limit int) ([]model.Message, error) {
	if s.timeline != nil {
		dirty, err := s.timeline.IsDirty(ctx)
		if err == nil && !dirty {
			if cached, hit, cacheErr := s.timeline.GetRecent(ctx); cacheErr == nil && hit {
				return trimMessages(cached, limit), nil
			}
		}
	}

	messages, err := s.messages.ListRecent(limit)
	if err != nil {
		return nil, err
	}
	if s.timeline != nil {
		if dirty, dirtyErr := s.timeline.IsDirty(ctx); dirtyErr == nil && !dirty {
			_ = s.timeline.SetRecent(ctx, messages)
		}
	}
	return messages, nil
}

func (s *MessageService) ListByUser(userID uint, limit int) ([]model.Message, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	return s.messages.ListByUserID(userID, limit)
}

func (s *MessageService) invalidateTimeline(ctx context.Context) {
	if s.timeline == nil {
		return
	}
	if err := s.timeline.MarkDirty(ctx); err != nil {
		s.log.Warn().Err(err).Msg("mark timeline dirty failed")
	}
	if err := s.timeline.Invalidate(ctx); err != nil {
		s.log.Warn().Err(err).Msg("invalidate timeline failed")
	}
}

// publishEvent is best effort: the row write already succeeded, a lost audit
// event must not fail the request.
func (s *MessageService) publishEvent(ctx context.Context, action string, message *model.Message) {
	if s.events == nil {
		return
	}
	evt := model.MessageEvent{
		MessageID: message.ID,
		UserID:    message.UserID,
		Action:    action,
		Text:      message.Text,
		CreatedAt: time.Now(),
	}
	if err := s.events.Publish(ctx, evt); err != nil {
		s.log.Warn().Err(err).Str("action", action).Uint("message_id", message.ID).Msg("publish message event failed")
	}
}

func trimMessages(messages []model.Message, limit int) []model.Message {
	if limit <= 0 || limit >= len(messages) {
		return messages
	}
	return messages[:limit]
}
