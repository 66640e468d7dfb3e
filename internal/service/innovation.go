package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"github.com/whynot-innovations/portal/internal/apperror"
	"github.com/whynot-innovations/portal/internal/model"
	"github.com/whynot-innovations/portal/internal/repository"
)

// Validation limits for innovations.
const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 20000
	MaxTags              = 20
	MaxTagLength         = 50
)

// InnovationInput is the client-supplied part of an innovation. Everything
// else (ID, timestamps, creator) is set by the server.
type InnovationInput struct {
	Title       string
	Description string
	Status      model.InnovationStatus
	Tags        []string
	Link        string
}

// InnovationService manages the public innovation showcase. Reads are
// public; every write requires a privileged caller.
type InnovationService struct {
	repo      repository.InnovationRepository
	guard     *Guard
	sanitizer *bluemonday.Policy
	logger    *slog.Logger
	now       func() time.Time
}

func NewInnovationService(repo repository.InnovationRepository, guard *Guard, logger *slog.Logger) *InnovationService {
	return &InnovationService{
		repo:      repo,
		guard:     guard,
		sanitizer: bluemonday.UGCPolicy(),
		logger:    logger,
		now:       time.Now,
	}
}

// List returns every innovation, newest first.
func (s *InnovationService) List(ctx context.Context) ([]model.Innovation, error) {
	innovations, err := s.repo.ListInnovations(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/innovation: listing: %w", err)
	}
	return innovations, nil
}

func (s *InnovationService) Get(ctx context.Context, id string) (*model.Innovation, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "innovation ID is required")
	}
	return s.repo.GetInnovation(ctx, id)
}

// Create stores a new innovation. Status defaults to pending.
func (s *InnovationService) Create(ctx context.Context, token string, in InnovationInput) (*model.Innovation, error) {
	caller, err := s.guard.RequirePrivileged(ctx, token)
	if err != nil {
		return nil, err
	}

	if in.Status == "" {
		in.Status = model.StatusPending
	}
	clean, err := s.validate(in)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	innovation := &model.Innovation{
		Title:       clean.Title,
		Description: clean.Description,
		Status:      clean.Status,
		Tags:        clean.Tags,
		Link:        clean.Link,
		CreatedBy:   caller.UID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateInnovation(ctx, innovation); err != nil {
		return nil, fmt.Errorf("service/innovation: creating: %w", err)
	}

	s.logger.Info("innovation created",
		slog.String("id", innovation.ID),
		slog.String("by", caller.UID),
	)
	return innovation, nil
}

// Update replaces the mutable fields of an existing innovation. An empty
// status keeps the current one; absent tags clear the list. created_at and
// created_by are never changed.
func (s *InnovationService) Update(ctx context.Context, token, id string, in InnovationInput) (*model.Innovation, error) {
	caller, err := s.guard.RequirePrivileged(ctx, token)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.GetInnovation(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Status == "" {
		in.Status = existing.Status
	}
	clean, err := s.validate(in)
	if err != nil {
		return nil, err
	}

	existing.Title = clean.Title
	existing.Description = clean.Description
	existing.Status = clean.Status
	existing.Tags = clean.Tags
	existing.Link = clean.Link
	existing.UpdatedAt = s.now().UTC()

	if err := s.repo.UpdateInnovation(ctx, existing); err != nil {
		return nil, err
	}

	s.logger.Info("innovation updated",
		slog.String("id", id),
		slog.String("by", caller.UID),
	)
	return existing, nil
}

// Delete removes an innovation. Messages that reference it are kept, with
// their copy of the title.
func (s *InnovationService) Delete(ctx context.Context, token, id string) error {
	caller, err := s.guard.RequirePrivileged(ctx, token)
	if err != nil {
		return err
	}

	if _, err := s.repo.GetInnovation(ctx, id); err != nil {
		return err
	}
	if err := s.repo.DeleteInnovation(ctx, id); err != nil {
		return err
	}

	s.logger.Info("innovation deleted",
		slog.String("id", id),
		slog.String("by", caller.UID),
	)
	return nil
}

// validate checks and normalises input. Status must already be filled in.
func (s *InnovationService) validate(in InnovationInput) (InnovationInput, error) {
	out := InnovationInput{Status: in.Status}

	out.Title = strings.TrimSpace(in.Title)
	if out.Title == "" {
		return out, apperror.ValidationFailed("title", "title is required")
	}
	if utf8.RuneCountInString(out.Title) > MaxTitleLength {
		return out, apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or fewer", MaxTitleLength))
	}

	out.Description = strings.TrimSpace(s.sanitizer.Sanitize(in.Description))
	if utf8.RuneCountInString(out.Description) > MaxDescriptionLength {
		return out, apperror.ValidationFailed("description",
			fmt.Sprintf("description must be %d characters or fewer", MaxDescriptionLength))
	}

	if !out.Status.Valid() {
		return out, apperror.ValidationFailed("status", "status must be one of pending, active, completed")
	}

	tags, err := normalizeTags(in.Tags)
	if err != nil {
		return out, err
	}
	out.Tags = tags

	link, err := normalizeLink(in.Link)
	if err != nil {
		return out, err
	}
	out.Link = link

	return out, nil
}

// normalizeTags trims each tag and drops empty ones, keeping order. The
// result is never nil.
func normalizeTags(tags []string) ([]string, error) {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if utf8.RuneCountInString(t) > MaxTagLength {
			return nil, apperror.ValidationFailed("tags",
				fmt.Sprintf("each tag must be %d characters or fewer", MaxTagLength))
		}
		out = append(out, t)
	}
	if len(out) > MaxTags {
		return nil, apperror.ValidationFailed("tags", fmt.Sprintf("at most %d tags are allowed", MaxTags))
	}
	return out, nil
}

// normalizeLink accepts an empty string or an absolute http(s) URL.
func normalizeLink(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", apperror.ValidationFailed("link", "link must be an absolute http or https URL")
	}
	return u.String(), nil
}
