package submission

import (
	"context"
	"errors"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/hackday/teamportal/internal/domain"
	"github.com/hackday/teamportal/internal/store"
	"github.com/hackday/teamportal/pkg/config"
)

// Service maintains the append-only submission log.
type Service struct {
	store    store.Store
	logger   *slog.Logger
	maxBytes int
}

// New constructs a Service. The attachment cap comes from configuration so
// the inline-payload policy stays explicit rather than implicit.
func New(st store.Store, logger *slog.Logger, cfg config.PortalConfig) Service {
	return Service{store: st, logger: logger, maxBytes: cfg.MaxAttachmentKB * 1024}
}

// ErrAttachmentTooLarge reports an inline payload above the configured cap.
var ErrAttachmentTooLarge = errors.New("attachment exceeds the configured size limit")

var errMissingTeamID = errors.New("team id is required")

// SubmitInput carries one form submission. PDF and Image arrive base64
// encoded on the wire and are stored inline with the record.
type SubmitInput struct {
	TeamID      string `json:"team_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ExternalURL string `json:"external_url"`
	PDF         []byte `json:"pdf"`
	Image       []byte `json:"image"`
}

// Submit appends a new record. Prior submissions are never revised; the log
// is a history, not a mutable document.
func (s Service) Submit(ctx context.Context, in SubmitInput) (*domain.Submission, error) {
	if strings.TrimSpace(in.TeamID) == "" {
		return nil, errMissingTeamID
	}
	if len(in.PDF) > s.maxBytes || len(in.Image) > s.maxBytes {
		return nil, ErrAttachmentTooLarge
	}
	title := in.Title
	if title == "" {
		title = "Untitled"
	}
	submissions, err := store.LoadList[domain.Submission](ctx, s.store, store.KeySubmissions)
	if err != nil {
		return nil, err
	}
	sub := domain.Submission{
		ID:          uuid.NewString(),
		TeamID:      in.TeamID,
		Title:       title,
		Description: in.Description,
		ExternalURL: in.ExternalURL,
		PDF:         in.PDF,
		Image:       in.Image,
		CreatedAt:   time.Now().UTC(),
	}
	submissions = append(submissions, sub)
	if err := store.SaveList(ctx, s.store, store.KeySubmissions, submissions); err != nil {
		return nil, err
	}
	s.logger.Info("submission recorded", "submission_id", sub.ID, "team_id", sub.TeamID)
	return &sub, nil
}

// ListByTeam returns a team's submissions in storage order, oldest first.
func (s Service) ListByTeam(ctx context.Context, teamID string) ([]domain.Submission, error) {
	submissions, err := store.LoadList[domain.Submission](ctx, s.store, store.KeySubmissions)
	if err != nil {
		return nil, err
	}
	var out []domain.Submission
	for _, sub := range submissions {
		if sub.TeamID == teamID {
			out = append(out, sub)
		}
	}
	return out, nil
}
