package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/whynot-innovations/portal/internal/apperror"
	"github.com/whynot-innovations/portal/internal/model"
	"github.com/whynot-innovations/portal/internal/repository"
)

const MaxMessageLength = 5000

// MessageInput is what a user submits.
type MessageInput struct {
	Type         model.MessageType
	InnovationID string
	Content      string
}

// MessageService handles user feedback. Messages are never deleted: the
// read flag belongs to admins and the archived flag to the author.
type MessageService struct {
	messages    repository.MessageRepository
	innovations repository.InnovationRepository
	guard       *Guard
	logger      *slog.Logger
	now         func() time.Time
}

func NewMessageService(
	messages repository.MessageRepository,
	innovations repository.InnovationRepository,
	guard *Guard,
	logger *slog.Logger,
) *MessageService {
	return &MessageService{
		messages:    messages,
		innovations: innovations,
		guard:       guard,
		logger:      logger,
		now:         time.Now,
	}
}

// Create stores a message from any verified caller. For innovation messages
// the title is copied from the stored innovation, not from the request.
func (s *MessageService) Create(ctx context.Context, token string, in MessageInput) (*model.Message, error) {
	caller, err := s.guard.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}

	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, apperror.ValidationFailed("content", "message content is required")
	}
	if utf8.RuneCountInString(content) > MaxMessageLength {
		return nil, apperror.ValidationFailed("content",
			fmt.Sprintf("message must be %d characters or fewer", MaxMessageLength))
	}

	if in.Type == "" {
		in.Type = model.MessageGeneral
	}
	if !in.Type.Valid() {
		return nil, apperror.ValidationFailed("type", "type must be general or innovation")
	}

	m := &model.Message{
		Type:           in.Type,
		Content:        content,
		CreatedBy:      caller.UID,
		CreatedByEmail: caller.Email,
		CreatedAt:      s.now().UTC(),
	}

	if in.Type == model.MessageInnovation {
		if in.InnovationID == "" {
			return nil, apperror.ValidationFailed("innovationId", "innovationId is required for innovation messages")
		}
		innovation, err := s.innovations.GetInnovation(ctx, in.InnovationID)
		if err != nil {
			return nil, err
		}
		m.InnovationID = innovation.ID
		m.InnovationTitle = innovation.Title
	}

	if err := s.messages.CreateMessage(ctx, m); err != nil {
		return nil, fmt.Errorf("service/message: creating: %w", err)
	}

	s.logger.Info("message created",
		slog.String("id", m.ID),
		slog.String("type", string(m.Type)),
		slog.String("by", caller.UID),
	)
	return m, nil
}

// ListMine returns the caller's own messages, newest first.
func (s *MessageService) ListMine(ctx context.Context, token string, includeArchived bool) ([]model.Message, error) {
	caller, err := s.guard.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.messages.ListMessages(ctx, repository.MessageQuery{
		CreatedBy:       caller.UID,
		IncludeArchived: includeArchived,
	})
}

// ListAll is the admin inbox. Archived messages stay visible to admins;
// archiving only tidies the author's own view.
func (s *MessageService) ListAll(ctx context.Context, token string, filter model.MessageFilter) ([]model.Message, error) {
	if _, err := s.guard.RequirePrivileged(ctx, token); err != nil {
		return nil, err
	}

	if filter == "" {
		filter = model.FilterAll
	}
	if !filter.Valid() {
		return nil, apperror.ValidationFailed("filter", "filter must be one of all, general, innovation, unread")
	}

	q := repository.MessageQuery{IncludeArchived: true}
	switch filter {
	case model.FilterGeneral:
		q.Type = model.MessageGeneral
	case model.FilterInnovation:
		q.Type = model.MessageInnovation
	case model.FilterUnread:
		q.UnreadOnly = true
	}

	return s.messages.ListMessages(ctx, q)
}

// SetRead sets the read flag. Admin only.
func (s *MessageService) SetRead(ctx context.Context, token, id string, read bool) (*model.Message, error) {
	caller, err := s.guard.RequirePrivileged(ctx, token)
	if err != nil {
		return nil, err
	}

	m, err := s.messages.GetMessage(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.messages.SetMessageRead(ctx, id, read); err != nil {
		return nil, err
	}
	m.Read = read

	s.logger.Info("message read flag set",
		slog.String("id", id),
		slog.Bool("read", read),
		slog.String("by", caller.UID),
	)
	return m, nil
}

// ToggleArchived flips the archived flag. Only the author may do this;
// privilege neither grants nor is required for it.
func (s *MessageService) ToggleArchived(ctx context.Context, token, id string) (*model.Message, error) {
	caller, err := s.guard.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}

	m, err := s.messages.GetMessage(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.CreatedBy != caller.UID {
		return nil, apperror.Forbidden("only the author can archive a message")
	}

	archived := !m.Archived
	if err := s.messages.SetMessageArchived(ctx, id, archived); err != nil {
		return nil, err
	}
	m.Archived = archived

	return m, nil
}
